package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Individual dataset lines can run to several megabytes of nested JSON, so
// the scanner needs far more headroom than bufio's default.
const maxLineBytes = 64 * 1024 * 1024

// ErrEndOfPass marks the normal end of a dataset traversal.
var ErrEndOfPass = errors.New("end of dataset pass")

// ParseError reports a line that wasn't valid JSON. It doesn't end the pass;
// the reader keeps going with the next line.
type ParseError struct {
	Line int // 1-based
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed JSON on line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// A DatasetReader produces passes over a newline-delimited JSON trace file.
// Each pass re-reads the file from the start; the dataset is static, so
// restarting from disk keeps every iteration identical without holding
// gigabytes of decoded rows between passes.
type DatasetReader struct {
	path  string
	limit int // max lines per pass, 0 = all
}

func NewDatasetReader(path string, limit int) *DatasetReader {
	return &DatasetReader{path: path, limit: limit}
}

// Open starts a fresh pass at line 1.
func (r *DatasetReader) Open() (*Pass, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Pass{f: f, scanner: scanner, limit: r.limit}, nil
}

// A Pass is a single traversal of the dataset file.
type Pass struct {
	f       *os.File
	scanner *bufio.Scanner
	limit   int
	line    int
}

// Next returns the next record in file order. It returns a *ParseError for a
// line that isn't valid JSON (the pass continues if called again), and
// ErrEndOfPass once the limit or the end of the file is reached. The limit
// counts lines consumed, well-formed or not.
func (p *Pass) Next() (*SpanRecord, error) {
	if p.limit > 0 && p.line >= p.limit {
		return nil, ErrEndOfPass
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading dataset: %w", err)
		}
		return nil, ErrEndOfPass
	}
	p.line++
	rec := &SpanRecord{}
	if err := json.Unmarshal(p.scanner.Bytes(), rec); err != nil {
		return nil, &ParseError{Line: p.line, Err: err}
	}
	return rec, nil
}

func (p *Pass) Close() error {
	return p.f.Close()
}
