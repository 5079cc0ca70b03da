package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const rowIDColumn = "row_id"

// SQLiteBackend keeps the report in one table, every column TEXT.
// Column names are the Chinese report headers, quoted.
type SQLiteBackend struct {
	db    *sql.DB
	table string
}

// NewSQLiteBackend opens (creating if needed) the database at path
func NewSQLiteBackend(path, table string) (*SQLiteBackend, error) {
	if table == "" {
		table = "review_results"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &SQLiteBackend{db: db, table: table}, nil
}

// Name implements Backend
func (b *SQLiteBackend) Name() string {
	return "sqlite"
}

// Header implements Backend
func (b *SQLiteBackend) Header(ctx context.Context) ([]string, bool, error) {
	return columnsOf(ctx, b.db, b.table)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func columnsOf(ctx context.Context, q queryer, table string) ([]string, bool, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, false, fmt.Errorf("table info: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, false, fmt.Errorf("scan table info: %w", err)
		}
		if name != rowIDColumn {
			cols = append(cols, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return cols, len(cols) > 0, nil
}

// Append implements Backend. Table creation, new columns and rows share one transaction.
func (b *SQLiteBackend) Append(ctx context.Context, header []string, rows [][]string) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, exists, err := columnsOf(ctx, tx, b.table)
	if err != nil {
		return err
	}

	if !exists {
		defs := []string{quoteIdent(rowIDColumn) + " INTEGER PRIMARY KEY AUTOINCREMENT"}
		for _, c := range header {
			defs = append(defs, quoteIdent(c)+" TEXT")
		}
		stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(b.table), strings.Join(defs, ", "))
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	} else {
		have := make(map[string]bool, len(existing))
		for _, c := range existing {
			have[c] = true
		}
		for _, c := range header {
			if have[c] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", quoteIdent(b.table), quoteIdent(c))
			if _, err = tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("add column %s: %w", c, err)
			}
		}
	}

	cols := make([]string, len(header))
	marks := make([]string, len(header))
	for i, c := range header {
		cols[i] = quoteIdent(c)
		marks[i] = "?"
	}
	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(b.table), strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = insert.Close() }()

	for _, row := range rows {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err = insert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Read implements Backend
func (b *SQLiteBackend) Read(ctx context.Context) (*Table, error) {
	header, exists, err := b.Header(ctx)
	if err != nil || !exists {
		return &Table{}, err
	}

	cols := make([]string, len(header))
	for i, c := range header {
		cols[i] = fmt.Sprintf("COALESCE(%s, '')", quoteIdent(c))
	}
	rows, err := b.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "), quoteIdent(b.table), quoteIdent(rowIDColumn)))
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer func() { _ = rows.Close() }()

	t := &Table{Header: header}
	for rows.Next() {
		values := make([]string, len(header))
		ptrs := make([]any, len(header))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		t.Rows = append(t.Rows, values)
	}
	return t, rows.Err()
}

// Close implements Backend
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
