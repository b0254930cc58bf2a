package sequence

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"tempo/internal/logging"
)

// FileLines yields the lines of a file in order, starting over after the
// last one. The file is read on Reset.
type FileLines struct {
	path string

	mu    sync.Mutex
	lines []string
	pos   int
}

func NewFileLines(path string) *FileLines {
	return &FileLines{path: path}
}

func (f *FileLines) Next() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lines) == 0 {
		return "", fmt.Errorf("file lines sequence %s has no lines", f.path)
	}
	if f.pos >= len(f.lines) {
		f.pos = 0
	}
	line := f.lines[f.pos]
	f.pos++
	return line, nil
}

func (f *FileLines) Reset() error {
	lines, err := readLines(f.path)
	if err != nil {
		return fmt.Errorf("file lines sequence: %w", err)
	}
	f.mu.Lock()
	f.lines = lines
	f.pos = 0
	f.mu.Unlock()
	return nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

var lineBreaks = strings.NewReplacer("\r\n", "", "\n", "")

// FilesContent reads a list of file names, one per line, and yields the
// content of the next listed file. Relative names are resolved against the
// directory of the list. Contents are cached unless disabled.
type FilesContent struct {
	names  *FileLines
	dir    string
	cached bool
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]string
}

func NewFilesContent(listPath string, cached bool) *FilesContent {
	return &FilesContent{
		names:  NewFileLines(listPath),
		dir:    filepath.Dir(listPath),
		cached: cached,
		logger: logging.Named("sequence"),
		cache:  make(map[string]string),
	}
}

func (f *FilesContent) Next() (string, error) {
	name, err := f.names.Next()
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(f.dir, name)
	}

	if f.cached {
		f.mu.Lock()
		content, ok := f.cache[name]
		f.mu.Unlock()
		if ok {
			return content, nil
		}
	}

	data, err := os.ReadFile(name)
	if err != nil {
		f.logger.Warn("Unable to read file content for sequence", zap.String("file", name), zap.Error(err))
		return "", err
	}
	content := lineBreaks.Replace(string(data))
	if content == "" {
		f.logger.Warn("Empty sequence value", zap.String("file", name))
	}
	if f.cached {
		f.mu.Lock()
		f.cache[name] = content
		f.mu.Unlock()
	}
	return content, nil
}

func (f *FilesContent) Reset() error {
	f.mu.Lock()
	f.cache = make(map[string]string)
	f.mu.Unlock()
	return f.names.Reset()
}
