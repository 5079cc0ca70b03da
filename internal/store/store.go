// Package store keeps the cumulative review report: one header, one row per
// reviewed dossier, appended across runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/textaudit/internal/model"
)

// ErrSchemaMismatch is matched by *SchemaMismatchError
var ErrSchemaMismatch = errors.New("schema mismatch")

// SchemaMismatchError reports existing report columns that incoming rows lack
type SchemaMismatchError struct {
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: report columns missing from new rows: %s", strings.Join(e.Missing, ", "))
}

// Is makes errors.Is(err, ErrSchemaMismatch) true
func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// Table is a header plus rows aligned to it
type Table struct {
	Header []string
	Rows   [][]string
}

// Backend persists the report table. Append must be all-or-nothing: on error
// the stored table is unchanged.
type Backend interface {
	// Name identifies the backend in logs
	Name() string

	// Header returns the stored header; exists is false before the first append
	Header(ctx context.Context) (header []string, exists bool, err error)

	// Append stores rows under header. header extends the stored header with
	// new columns at the end; rows are aligned to header.
	Append(ctx context.Context, header []string, rows [][]string) error

	// Read returns the whole table
	Read(ctx context.Context) (*Table, error)

	Close() error
}

// Formats accepted by Open
const (
	FormatXLSX   = "xlsx"
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// Open creates the backend described by cfg. The format defaults to the path extension.
func Open(cfg model.StoreConfig) (Backend, error) {
	if cfg.Path == "" {
		return nil, errors.New("store path is empty")
	}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = FormatFromPath(cfg.Path)
	}

	switch format {
	case FormatXLSX:
		return NewXLSXBackend(cfg.Path, cfg.Sheet), nil
	case FormatCSV:
		return NewCSVBackend(cfg.Path), nil
	case FormatSQLite:
		return NewSQLiteBackend(cfg.Path, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown store format: %s (supported: xlsx, csv, sqlite)", format)
	}
}

// FormatFromPath derives the store format from a file extension
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return FormatXLSX
	}
}

// pad extends row to n cells
func pad(row []string, n int) []string {
	if len(row) >= n {
		return row[:n]
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
