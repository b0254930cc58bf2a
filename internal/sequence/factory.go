package sequence

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
)

var types = []string{"data", "fileLines", "filesContent", "number", "random", "timestamp", "uuid"}

// Types returns the known sequence types, sorted.
func Types() []string {
	return append([]string(nil), types...)
}

// ErrUnknownType is returned by Build for an unregistered sequence type.
var ErrUnknownType = errors.New("unknown sequence type")

// Config describes one sequence. Relative paths are resolved against Dir.
type Config struct {
	Type       string
	Async      bool
	Properties map[string]string
	Dir        string
}

// Build creates a sequence from its config. Generators are wrapped in Async
// when requested, otherwise computed on demand.
func Build(cfg Config) (Sequence, error) {
	p := props(cfg.Properties)
	var g Generator[string]
	switch cfg.Type {
	case "number":
		n := NewNumber()
		start, err := p.int64("start", 0)
		if err != nil {
			return nil, err
		}
		step, err := p.int64("step", 1)
		if err != nil {
			return nil, err
		}
		cycle, err := p.bool("cycle", true)
		if err != nil {
			return nil, err
		}
		n.SetStart(start).SetCycle(cycle)
		if _, ok := p["end"]; ok {
			end, err := p.int64("end", 0)
			if err != nil {
				return nil, err
			}
			n.SetEnd(end)
		}
		n.SetStep(step)
		g = n
	case "random":
		lo, err := p.int64("min", 0)
		if err != nil {
			return nil, err
		}
		hi, err := p.int64("max", 100)
		if err != nil {
			return nil, err
		}
		r, err := NewRandom(int(lo), int(hi))
		if err != nil {
			return nil, err
		}
		g = r
	case "timestamp":
		g = NewTimestamp(nil)
	case "uuid":
		g = UUID{}
	case "fileLines":
		path, err := p.path("path", cfg.Dir)
		if err != nil {
			return nil, err
		}
		g = NewFileLines(path)
	case "filesContent":
		path, err := p.path("path", cfg.Dir)
		if err != nil {
			return nil, err
		}
		cached, err := p.bool("cache", true)
		if err != nil {
			return nil, err
		}
		g = NewFilesContent(path, cached)
	case "data":
		path, err := p.path("path", cfg.Dir)
		if err != nil {
			return nil, err
		}
		d, err := NewData(path, Mode(p["mode"]))
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, cfg.Type)
	}

	if cfg.Async {
		return NewAsync(g), nil
	}
	return Sync(g), nil
}

type props map[string]string

func (p props) int64(key string, def int64) (int64, error) {
	s, ok := p[key]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("property %s: %w", key, err)
	}
	return v, nil
}

func (p props) bool(key string, def bool) (bool, error) {
	s, ok := p[key]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("property %s: %w", key, err)
	}
	return v, nil
}

func (p props) path(key, dir string) (string, error) {
	s := p[key]
	if s == "" {
		return "", fmt.Errorf("property %s is required", key)
	}
	if !filepath.IsAbs(s) && dir != "" {
		s = filepath.Join(dir, s)
	}
	return s, nil
}
