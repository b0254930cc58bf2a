package destination

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"tempo/internal/core"
)

// CSV appends measurements as rows of a CSV file. The columns are fixed by
// the first measurement: time, iterations, percentage and its result labels.
// Labels that appear later are dropped, missing ones are left empty.
type CSV struct {
	path      string
	delimiter rune
	append    bool

	mu      sync.Mutex
	file    *os.File
	w       *csv.Writer
	columns []string
}

func NewCSV(path string, delimiter rune, appendTo bool) *CSV {
	if delimiter == 0 {
		delimiter = ','
	}
	return &CSV{path: path, delimiter: delimiter, append: appendTo}
}

func (d *CSV) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if d.append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(d.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open csv %s: %w", d.path, err)
	}
	d.file = f
	d.w = csv.NewWriter(f)
	d.w.Comma = d.delimiter
	d.columns = nil
	return nil
}

func (d *CSV) Report(m *core.Measurement) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.w == nil {
		return fmt.Errorf("csv %s: not open", d.path)
	}
	if d.columns == nil {
		d.columns = m.Keys()
		header := append([]string{"Time", "Iterations", "Percentage"}, d.columns...)
		if err := d.w.Write(header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	row := make([]string, 0, len(d.columns)+3)
	row = append(row, core.FormatHMS(m.Time()), strconv.FormatInt(m.Iteration()+1, 10), strconv.FormatInt(m.Percentage(), 10))
	for _, c := range d.columns {
		v, ok := m.Get(c)
		if !ok {
			row = append(row, "")
			continue
		}
		row = append(row, formatValue(v))
	}
	if err := d.w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	d.w.Flush()
	return d.w.Error()
}

func (d *CSV) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	d.w.Flush()
	werr := d.w.Error()
	cerr := d.file.Close()
	d.file, d.w = nil, nil
	if werr != nil {
		return werr
	}
	return cerr
}

func (d *CSV) String() string { return "csv:" + d.path }

func formatValue(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}
