package reporter

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownType is returned by Build for an unregistered reporter type.
var ErrUnknownType = errors.New("unknown reporter type")

// Factory creates a strategy from string properties.
type Factory func(props map[string]string) (Strategy, error)

var factories = map[string]Factory{
	"throughput": func(map[string]string) (Strategy, error) {
		return Throughput{}, nil
	},
	"responseTime": func(props map[string]string) (Strategy, error) {
		spec, ok := props["percentiles"]
		if !ok {
			spec = "50,90,99"
		}
		ps, err := ParsePercentiles(spec)
		if err != nil {
			return nil, err
		}
		return NewResponseTime(ps...)
	},
}

// Types returns the known reporter types, sorted.
func Types() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build creates a reporter of the given type.
func Build(typ, name string, props map[string]string) (*Reporter, error) {
	f, ok := factories[typ]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, typ)
	}
	s, err := f(props)
	if err != nil {
		return nil, fmt.Errorf("reporter %s: %w", name, err)
	}
	if name == "" {
		name = typ
	}
	return New(name, s), nil
}
