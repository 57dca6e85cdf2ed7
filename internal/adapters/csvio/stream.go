package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// StreamWriter writes CSV rows to a file one at a time.
type StreamWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
	rows   int
}

// WriteOption configures a StreamWriter.
type WriteOption func(*csv.Writer)

// WithDelimiter sets the field separator. Comma is the default.
func WithDelimiter(r rune) WriteOption {
	return func(w *csv.Writer) {
		w.Comma = r
	}
}

// CreateStreamWriter creates path (and its directory) and writes the header.
func CreateStreamWriter(path string, header []string, opts ...WriteOption) (*StreamWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	w := csv.NewWriter(f)
	for _, opt := range opts {
		opt(w)
	}
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return &StreamWriter{path: path, file: f, writer: w}, nil
}

// Write appends one row.
func (s *StreamWriter) Write(row []string) error {
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.rows++
	return nil
}

// Rows returns the number of data rows written.
func (s *StreamWriter) Rows() int { return s.rows }

// Path returns the destination file.
func (s *StreamWriter) Path() string { return s.path }

// Close flushes and closes the file.
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		_ = s.file.Close()
		return fmt.Errorf("flush %s: %w", s.path, err)
	}
	return s.file.Close()
}

// writeAll writes header and rows to path in one go.
func writeAll(path string, header []string, rows [][]string) error {
	w, err := CreateStreamWriter(path, header)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}
