package sequence

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Mode defines how data rows are selected.
type Mode string

const (
	// ModeSequential iterates through rows in order, wrapping around.
	ModeSequential Mode = "sequential"
	// ModeRandom selects a random row each time.
	ModeRandom Mode = "random"
)

// Data publishes one row of a CSV or JSON data file per snapshot. Each field
// is published as "<id>.<field>".
type Data struct {
	path    string
	mode    Mode
	rows    atomic.Pointer[[]map[string]string]
	counter atomic.Uint64
}

// NewData creates a data sequence for a .csv or .json file. Rows are loaded
// on Reset.
func NewData(path string, mode Mode) (*Data, error) {
	if mode == "" {
		mode = ModeSequential
	}
	if mode != ModeSequential && mode != ModeRandom {
		return nil, fmt.Errorf("unknown data mode %q", mode)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".json":
	default:
		return nil, fmt.Errorf("unsupported file format %q (use .csv or .json)", ext)
	}
	return &Data{path: path, mode: mode}, nil
}

// Len returns the number of loaded rows.
func (d *Data) Len() int {
	if rows := d.rows.Load(); rows != nil {
		return len(*rows)
	}
	return 0
}

// Row returns the next row.
func (d *Data) Row() map[string]string {
	rows := d.rows.Load()
	if rows == nil || len(*rows) == 0 {
		return nil
	}
	var idx int
	switch d.mode {
	case ModeRandom:
		idx = rand.Intn(len(*rows))
	default:
		n := d.counter.Add(1) - 1
		idx = int(n % uint64(len(*rows)))
	}
	return (*rows)[idx]
}

func (d *Data) PublishNext(id string, values map[string]string) {
	for field, v := range d.Row() {
		values[id+"."+field] = v
	}
}

func (d *Data) Reset() error {
	var (
		rows []map[string]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(d.path)) {
	case ".csv":
		rows, err = loadCSV(d.path)
	default:
		rows, err = loadJSON(d.path)
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", d.path, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("data file %s is empty", d.path)
	}
	d.rows.Store(&rows)
	d.counter.Store(0)
	return nil
}

// loadCSV loads a CSV file. The first row holds the field names.
func loadCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV must have header row and at least one data row")
	}

	headers := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// loadJSON loads a JSON array of objects. Values are formatted with %v.
func loadJSON(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("JSON must be an array of objects: %w", err)
	}
	rows := make([]map[string]string, 0, len(objects))
	for _, obj := range objects {
		row := make(map[string]string, len(obj))
		for k, v := range obj {
			row[k] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
