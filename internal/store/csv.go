package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// utf8BOM lets spreadsheet programs detect the encoding of Chinese headers
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVBackend keeps the report in a UTF-8 CSV file
type CSVBackend struct {
	path string
}

// NewCSVBackend creates a CSV backend
func NewCSVBackend(path string) *CSVBackend {
	return &CSVBackend{path: path}
}

// Name implements Backend
func (b *CSVBackend) Name() string {
	return "csv"
}

// Header implements Backend
func (b *CSVBackend) Header(ctx context.Context) ([]string, bool, error) {
	t, err := b.Read(ctx)
	if err != nil {
		return nil, false, err
	}
	return t.Header, len(t.Header) > 0, nil
}

// Read implements Backend
func (b *CSVBackend) Read(ctx context.Context) (*Table, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1

	t := &Table{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse report: %w", err)
		}
		if t.Header == nil {
			t.Header = rec
			continue
		}
		t.Rows = append(t.Rows, pad(rec, len(t.Header)))
	}
	return t, nil
}

// Append implements Backend. The file is rewritten so a widened header stays
// consistent with the rows above it.
func (b *CSVBackend) Append(ctx context.Context, header []string, rows [][]string) error {
	existing, err := b.Read(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range existing.Rows {
		if err := w.Write(pad(row, len(header))); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return replaceFile(b.path, ".review-*.csv", func(tmp string) error {
		return os.WriteFile(tmp, buf.Bytes(), 0644)
	})
}

// Close implements Backend
func (b *CSVBackend) Close() error {
	return nil
}
