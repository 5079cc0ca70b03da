package store

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/textaudit/internal/model"
)

type backendCase struct {
	name string
	open func(t *testing.T) Backend
}

func backends() []backendCase {
	return []backendCase{
		{"xlsx", func(t *testing.T) Backend {
			return NewXLSXBackend(filepath.Join(t.TempDir(), "review_results.xlsx"), "Sheet1")
		}},
		{"xlsx-named-sheet", func(t *testing.T) Backend {
			return NewXLSXBackend(filepath.Join(t.TempDir(), "review_results.xlsx"), "审核结果")
		}},
		{"csv", func(t *testing.T) Backend {
			return NewCSVBackend(filepath.Join(t.TempDir(), "review_results.csv"))
		}},
		{"sqlite", func(t *testing.T) Backend {
			b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "review.db"), "")
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { _ = b.Close() })
			return b
		}},
	}
}

func record(dossier string, verdict model.Verdict, remarks string) model.ReviewRecord {
	return model.ReviewRecord{
		Dossier: dossier,
		Fields: []model.FieldValue{
			{Name: model.FieldTitle, Value: dossier + "教材", Found: true, Source: model.SourceForm},
			{Name: model.FieldISBN, Value: "9787040123456", Found: true, Source: model.SourceForm},
		},
		Verdict: verdict,
		Remarks: remarks,
	}
}

func TestAggregator_CreatesStoreWithCanonicalHeader(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			ctx := context.Background()
			b := bc.open(t)
			agg := NewAggregator(b)

			if err := agg.Append(ctx, record("OperationsResearch", model.VerdictFail, "ISBN: form=1 vs attachment=2")); err != nil {
				t.Fatalf("Append failed: %v", err)
			}

			got, err := b.Read(ctx)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if diff := cmp.Diff(model.RecordColumns(), got.Header); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
			if len(got.Rows) != 1 {
				t.Fatalf("expected 1 row, got %d", len(got.Rows))
			}
			row := got.Rows[0]
			if row[0] != "OperationsResearch" || row[len(row)-2] != "不通过" || row[len(row)-1] != "ISBN: form=1 vs attachment=2" {
				t.Errorf("unexpected row: %v", row)
			}
		})
	}
}

func TestAggregator_AppendOrderIndependent(t *testing.T) {
	a := record("A", model.VerdictPass, "")
	b := record("B", model.VerdictFail, "could not verify: 版次")

	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			ctx := context.Background()

			first := bc.open(t)
			if err := NewAggregator(first).Append(ctx, a); err != nil {
				t.Fatal(err)
			}
			if err := NewAggregator(first).Append(ctx, b); err != nil {
				t.Fatal(err)
			}

			second := bc.open(t)
			if err := NewAggregator(second).Append(ctx, b, a); err != nil {
				t.Fatal(err)
			}

			t1, _ := first.Read(ctx)
			t2, _ := second.Read(ctx)
			if diff := cmp.Diff(t1.Header, t2.Header); diff != "" {
				t.Errorf("headers differ (-first +second):\n%s", diff)
			}
			if diff := cmp.Diff(sortedRows(t1.Rows), sortedRows(t2.Rows)); diff != "" {
				t.Errorf("row sets differ (-first +second):\n%s", diff)
			}
		})
	}
}

func sortedRows(rows [][]string) [][]string {
	out := append([][]string(nil), rows...)
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func TestAggregator_SchemaMismatchLeavesStoreUntouched(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			ctx := context.Background()
			b := bc.open(t)
			agg := NewAggregator(b)

			cols := append(model.RecordColumns(), "审核人")
			row := append(record("A", model.VerdictPass, "").Row(), "王老师")
			if err := agg.AppendRows(ctx, cols, [][]string{row}); err != nil {
				t.Fatalf("AppendRows failed: %v", err)
			}
			before, err := b.Read(ctx)
			if err != nil {
				t.Fatal(err)
			}

			err = agg.Append(ctx, record("B", model.VerdictPass, ""))
			if !errors.Is(err, ErrSchemaMismatch) {
				t.Fatalf("expected ErrSchemaMismatch, got %v", err)
			}
			var sme *SchemaMismatchError
			if !errors.As(err, &sme) || !cmp.Equal(sme.Missing, []string{"审核人"}) {
				t.Errorf("expected missing [审核人], got %v", err)
			}

			after, err := b.Read(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(before, after); diff != "" {
				t.Errorf("store modified by rejected append (-before +after):\n%s", diff)
			}
		})
	}
}

func TestAggregator_NewColumnsAppendedAtEnd(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			ctx := context.Background()
			b := bc.open(t)
			agg := NewAggregator(b)

			if err := agg.AppendRows(ctx, []string{"文件夹名", "审核状态"}, [][]string{{"A", "通过"}}); err != nil {
				t.Fatal(err)
			}
			// Incoming order differs from the stored header and adds 备注
			if err := agg.AppendRows(ctx, []string{"备注", "审核状态", "文件夹名"}, [][]string{{"ok", "不通过", "B"}}); err != nil {
				t.Fatal(err)
			}

			got, err := b.Read(ctx)
			if err != nil {
				t.Fatal(err)
			}
			want := &Table{
				Header: []string{"文件夹名", "审核状态", "备注"},
				Rows: [][]string{
					{"A", "通过", ""},
					{"B", "不通过", "ok"},
				},
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("table mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAggregator_BatchMode(t *testing.T) {
	ctx := context.Background()
	b := NewCSVBackend(filepath.Join(t.TempDir(), "r.csv"))
	agg := NewAggregator(b, WithBatch(true))

	for _, id := range []string{"A", "B", "C"} {
		if err := agg.Append(ctx, record(id, model.VerdictPass, "")); err != nil {
			t.Fatal(err)
		}
	}
	if agg.Pending() != 3 {
		t.Errorf("expected 3 pending, got %d", agg.Pending())
	}
	if _, exists, _ := b.Header(ctx); exists {
		t.Error("expected nothing written before Flush")
	}

	if err := agg.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	got, _ := b.Read(ctx)
	if len(got.Rows) != 3 || agg.Pending() != 0 {
		t.Errorf("expected 3 rows and empty buffer, got %d rows, %d pending", len(got.Rows), agg.Pending())
	}
}

func TestAggregator_RejectsMalformedRows(t *testing.T) {
	agg := NewAggregator(NewCSVBackend(filepath.Join(t.TempDir(), "r.csv")))
	ctx := context.Background()

	if err := agg.AppendRows(ctx, []string{"a", "a"}, nil); err == nil {
		t.Error("expected duplicate column error")
	}
	if err := agg.AppendRows(ctx, []string{"a", "b"}, [][]string{{"1"}}); err == nil {
		t.Error("expected row width error")
	}
}

func TestMerge(t *testing.T) {
	got, err := Merge([]string{"a", "b"}, []string{"c", "b", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}

	_, err = Merge([]string{"a", "b", "c"}, []string{"a"})
	want := "schema mismatch: report columns missing from new rows: b, c"
	if err == nil || err.Error() != want {
		t.Errorf("got %v, want %q", err, want)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg  model.StoreConfig
		want string
	}{
		{model.StoreConfig{Path: filepath.Join(dir, "r.xlsx")}, "xlsx"},
		{model.StoreConfig{Path: filepath.Join(dir, "r.csv")}, "csv"},
		{model.StoreConfig{Path: filepath.Join(dir, "r.db")}, "sqlite"},
		{model.StoreConfig{Path: filepath.Join(dir, "r.out"), Format: "CSV"}, "csv"},
	}
	for _, tt := range tests {
		b, err := Open(tt.cfg)
		if err != nil {
			t.Fatalf("Open(%+v) failed: %v", tt.cfg, err)
		}
		if b.Name() != tt.want {
			t.Errorf("Open(%s) = %s, want %s", tt.cfg.Path, b.Name(), tt.want)
		}
		_ = b.Close()
	}

	if _, err := Open(model.StoreConfig{Path: "r.xlsx", Format: "parquet"}); err == nil {
		t.Error("expected unknown format error")
	}
}
