package store

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXBackend keeps the report in one worksheet of an Excel workbook
type XLSXBackend struct {
	path  string
	sheet string
}

// NewXLSXBackend creates a workbook backend; sheet defaults to Sheet1
func NewXLSXBackend(path, sheet string) *XLSXBackend {
	if sheet == "" {
		sheet = "Sheet1"
	}
	return &XLSXBackend{path: path, sheet: sheet}
}

// Name implements Backend
func (b *XLSXBackend) Name() string {
	return "xlsx"
}

// Header implements Backend
func (b *XLSXBackend) Header(ctx context.Context) ([]string, bool, error) {
	t, exists, err := b.read()
	if err != nil || !exists {
		return nil, exists, err
	}
	return t.Header, len(t.Header) > 0, nil
}

// Read implements Backend
func (b *XLSXBackend) Read(ctx context.Context) (*Table, error) {
	t, _, err := b.read()
	return t, err
}

func (b *XLSXBackend) read() (*Table, bool, error) {
	exists, err := fileExists(b.path)
	if err != nil || !exists {
		return &Table{}, false, err
	}

	f, err := excelize.OpenFile(b.path)
	if err != nil {
		return nil, false, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if idx, err := f.GetSheetIndex(b.sheet); err != nil || idx < 0 {
		return &Table{}, false, nil
	}

	rows, err := f.GetRows(b.sheet)
	if err != nil {
		return nil, false, fmt.Errorf("read sheet %s: %w", b.sheet, err)
	}
	if len(rows) == 0 {
		return &Table{}, false, nil
	}

	t := &Table{Header: rows[0]}
	for _, row := range rows[1:] {
		t.Rows = append(t.Rows, pad(row, len(t.Header)))
	}
	return t, true, nil
}

// Append implements Backend. The workbook is rewritten through a temp file.
func (b *XLSXBackend) Append(ctx context.Context, header []string, rows [][]string) error {
	existing, _, err := b.read()
	if err != nil {
		return err
	}

	exists, err := fileExists(b.path)
	if err != nil {
		return err
	}
	fresh := !exists

	var f *excelize.File
	if fresh {
		f = excelize.NewFile()
	} else if f, err = excelize.OpenFile(b.path); err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	if err := b.ensureSheet(f, fresh); err != nil {
		_ = f.Close()
		return err
	}
	defer func() { _ = f.Close() }()

	if err := setRow(f, b.sheet, 1, header); err != nil {
		return err
	}
	next := len(existing.Rows) + 2
	for i, row := range rows {
		if err := setRow(f, b.sheet, next+i, row); err != nil {
			return err
		}
	}

	return replaceFile(b.path, ".review-*.xlsx", func(tmp string) error {
		if err := f.SaveAs(tmp); err != nil {
			return fmt.Errorf("save workbook: %w", err)
		}
		return nil
	})
}

// ensureSheet adds the report sheet; a fresh workbook drops its default sheet
func (b *XLSXBackend) ensureSheet(f *excelize.File, fresh bool) error {
	if idx, err := f.GetSheetIndex(b.sheet); err == nil && idx >= 0 {
		return nil
	}
	idx, err := f.NewSheet(b.sheet)
	if err != nil {
		return fmt.Errorf("create sheet %s: %w", b.sheet, err)
	}
	f.SetActiveSheet(idx)
	if fresh && b.sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// Close implements Backend
func (b *XLSXBackend) Close() error {
	return nil
}
