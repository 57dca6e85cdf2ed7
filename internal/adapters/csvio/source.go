package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names accepted for input files.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin1"
)

// NormalizeEncoding maps encoding aliases to EncodingUTF8 or EncodingLatin1.
func NormalizeEncoding(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return EncodingLatin1, nil
	}
	return "", fmt.Errorf("%w: %s", ErrEncoding, name)
}

// ReadOption configures file readers.
type ReadOption func(*readConfig)

type readConfig struct {
	encoding string
}

// WithEncoding decodes the file from the named encoding. UTF-8 is the default.
func WithEncoding(name string) ReadOption {
	return func(c *readConfig) {
		c.encoding = name
	}
}

func newReadConfig(opts []ReadOption) (readConfig, error) {
	c := readConfig{encoding: EncodingUTF8}
	for _, opt := range opts {
		opt(&c)
	}
	enc, err := NormalizeEncoding(c.encoding)
	if err != nil {
		return c, err
	}
	c.encoding = enc
	return c, nil
}

// table is a header-indexed CSV reader over a decoded file.
type table struct {
	path   string
	file   *os.File
	reader *csv.Reader
	index  map[string]int
}

func openTable(path string, delimiter rune, cfg readConfig) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	var src io.Reader
	switch cfg.encoding {
	case EncodingLatin1:
		src = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	default:
		src = transform.NewReader(f, unicode.UTF8BOM.NewDecoder())
	}

	r := csv.NewReader(src)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	r.ReuseRecord = true

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	return &table{path: path, file: f, reader: r, index: index}, nil
}

func (t *table) has(col string) bool {
	_, ok := t.index[col]
	return ok
}

func (t *table) require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s in %s", ErrMissingColumn, strings.Join(missing, ", "), t.path)
	}
	return nil
}

// next returns the next row and its physical line, or io.EOF.
func (t *table) next() ([]string, int, error) {
	row, err := t.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, io.EOF
		}
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrMalformedRow, t.path, err)
	}
	line, _ := t.reader.FieldPos(0)
	return row, line, nil
}

// get returns the trimmed value of col in row, or "" when absent.
func (t *table) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) close() error {
	return t.file.Close()
}
