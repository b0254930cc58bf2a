package sender

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// placeholder matches ${name} and ${env:NAME}.
var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// Substitute replaces ${name} placeholders with sequence values and
// ${env:NAME} with environment variables. All missing names are reported.
func Substitute(text string, values map[string]string) (string, error) {
	if !strings.Contains(text, "${") {
		return text, nil
	}

	var errs []error
	result := placeholder.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-1]

		if env, ok := strings.CutPrefix(name, "env:"); ok {
			if v, ok := os.LookupEnv(env); ok {
				return v
			}
			errs = append(errs, fmt.Errorf("env var %q not set", env))
			return match
		}

		if v, ok := values[name]; ok {
			return v
		}
		errs = append(errs, fmt.Errorf("sequence %q not found", name))
		return match
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return result, nil
}

// SubstituteMap applies Substitute to every value of m.
func SubstituteMap(m map[string]string, values map[string]string) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}

	result := make(map[string]string, len(m))
	var errs []error
	for k, v := range m {
		s, err := Substitute(v, values)
		if err != nil {
			errs = append(errs, fmt.Errorf("header %q: %w", k, err))
			continue
		}
		result[k] = s
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}
