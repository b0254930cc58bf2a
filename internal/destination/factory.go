package destination

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"

	"tempo/internal/core"
	"tempo/internal/logging"
)

// ErrUnknownType is returned by Build for an unregistered destination type.
var ErrUnknownType = errors.New("unknown destination type")

// Properties are the string settings of a destination.
type Properties map[string]string

func (p Properties) bool(key string) (bool, error) {
	v, ok := p[key]
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("property %s: %w", key, err)
	}
	return b, nil
}

// Factory creates a destination. reporter is the name of the owning reporter.
type Factory func(reporter string, props Properties) (core.Destination, error)

var factories = map[string]Factory{
	"console": func(string, Properties) (core.Destination, error) {
		return NewConsole(nil), nil
	},
	"memory": func(string, Properties) (core.Destination, error) {
		return NewMemory(), nil
	},
	"log": func(reporter string, props Properties) (core.Destination, error) {
		level, err := logging.ParseLevel(props["level"])
		if err != nil {
			return nil, err
		}
		return NewLog(logging.Named("measurement").Named(reporter), level), nil
	},
	"csv": func(_ string, props Properties) (core.Destination, error) {
		path := props["path"]
		if path == "" {
			return nil, errors.New("csv destination needs a path")
		}
		var delim rune
		if s := props["delimiter"]; s != "" {
			r, size := utf8.DecodeRuneInString(s)
			if size != len(s) {
				return nil, fmt.Errorf("csv delimiter %q must be a single character", s)
			}
			delim = r
		}
		appendTo, err := props.bool("append")
		if err != nil {
			return nil, err
		}
		return NewCSV(path, delim, appendTo), nil
	},
	"prometheus": func(reporter string, props Properties) (core.Destination, error) {
		return NewPrometheus(props["namespace"], reporter, props["listen"]), nil
	},
}

// Types returns the known destination types, sorted.
func Types() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build creates a destination of the given type for the named reporter.
func Build(typ, reporter string, props Properties) (core.Destination, error) {
	f, ok := factories[typ]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, typ)
	}
	d, err := f(reporter, props)
	if err != nil {
		return nil, fmt.Errorf("%s destination: %w", typ, err)
	}
	return d, nil
}
