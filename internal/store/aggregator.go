package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/textaudit/internal/model"
	"go.uber.org/zap"
)

// Aggregator appends review records to a backend under the schema guard:
// every existing column must be present in what is appended.
type Aggregator struct {
	backend Backend
	batch   bool
	logger  *zap.Logger

	mu      sync.Mutex
	pending []model.ReviewRecord
}

// AggregatorOption configures an Aggregator
type AggregatorOption func(*Aggregator)

// WithBatch buffers records until Flush
func WithBatch(batch bool) AggregatorOption {
	return func(a *Aggregator) { a.batch = batch }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAggregator creates an aggregator over backend
func NewAggregator(backend Backend, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{backend: backend, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Append stores records in the canonical column layout. In batch mode they are
// buffered and written by Flush.
func (a *Aggregator) Append(ctx context.Context, records ...model.ReviewRecord) error {
	if len(records) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.batch {
		a.pending = append(a.pending, records...)
		return nil
	}
	return a.writeRecords(ctx, records)
}

// Flush writes buffered records. Nothing is lost on failure; the buffer is kept.
func (a *Aggregator) Flush(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.pending) == 0 {
		return nil
	}
	if err := a.writeRecords(ctx, a.pending); err != nil {
		return err
	}
	a.pending = nil
	return nil
}

// Pending returns the number of buffered records
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

func (a *Aggregator) writeRecords(ctx context.Context, records []model.ReviewRecord) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	return a.appendRows(ctx, model.RecordColumns(), rows)
}

// AppendRows stores rows with an arbitrary column set. The first append
// creates the store with columns as header.
func (a *Aggregator) AppendRows(ctx context.Context, columns []string, rows [][]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.appendRows(ctx, columns, rows)
}

func (a *Aggregator) appendRows(ctx context.Context, columns []string, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	position := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := position[c]; dup {
			return fmt.Errorf("duplicate column %q", c)
		}
		position[c] = i
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(columns))
		}
	}

	existing, exists, err := a.backend.Header(ctx)
	if err != nil {
		return fmt.Errorf("read %s header: %w", a.backend.Name(), err)
	}

	header := columns
	if exists {
		header, err = Merge(existing, columns)
		if err != nil {
			return err
		}
	}

	aligned := make([][]string, len(rows))
	for i, row := range rows {
		out := make([]string, len(header))
		for j, col := range header {
			if k, ok := position[col]; ok {
				out[j] = row[k]
			}
		}
		aligned[i] = out
	}

	if err := a.backend.Append(ctx, header, aligned); err != nil {
		return fmt.Errorf("append to %s: %w", a.backend.Name(), err)
	}

	a.logger.Debug("rows appended",
		zap.String("backend", a.backend.Name()),
		zap.Int("rows", len(rows)),
		zap.Int("columns", len(header)))
	return nil
}

// Merge checks incoming columns against an existing header and returns the
// header to write: the existing order, then incoming columns it lacks.
func Merge(existing, incoming []string) ([]string, error) {
	in := make(map[string]bool, len(incoming))
	for _, c := range incoming {
		in[c] = true
	}

	var missing []string
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c] = true
		if !in[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Missing: missing}
	}

	merged := append([]string(nil), existing...)
	for _, c := range incoming {
		if !have[c] {
			merged = append(merged, c)
		}
	}
	return merged, nil
}
