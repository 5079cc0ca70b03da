package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/textaudit/internal/model"
	"go.uber.org/zap"
)

// Reviewer reviews one dossier. An error means no record was produced.
type Reviewer interface {
	Review(ctx context.Context, d model.Dossier) (*model.ReviewRecord, error)
}

// Sink receives review records; store.Aggregator implements it
type Sink interface {
	Append(ctx context.Context, records ...model.ReviewRecord) error
	Flush(ctx context.Context) error
}

// DossierResult is the outcome of one dossier
type DossierResult struct {
	Dossier model.Dossier
	Record  *model.ReviewRecord
	Error   error
}

// Summary counts the outcomes of a run
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Errors   int // Dossiers that produced no record
	Recorded int // Records handed to the sink
	Results  []DossierResult
}

// BatchProcessor reviews dossiers one after another and feeds every record to the sink
type BatchProcessor struct {
	reviewer Reviewer
	sink     Sink
	logger   *zap.Logger
	onStart  func(d model.Dossier)
	onDone   func(r DossierResult)
}

// BatchOption configures a BatchProcessor
type BatchOption func(*BatchProcessor)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) BatchOption {
	return func(b *BatchProcessor) {
		if l != nil {
			b.logger = l
		}
	}
}

// OnStart is called before each dossier is reviewed
func OnStart(fn func(d model.Dossier)) BatchOption {
	return func(b *BatchProcessor) { b.onStart = fn }
}

// OnDone is called after each dossier, record or not
func OnDone(fn func(r DossierResult)) BatchOption {
	return func(b *BatchProcessor) { b.onDone = fn }
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(reviewer Reviewer, sink Sink, opts ...BatchOption) *BatchProcessor {
	b := &BatchProcessor{reviewer: reviewer, sink: sink, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProcessDossiers reviews the dossiers in order. A dossier that fails to
// produce a record does not stop the run; a sink failure does, since later
// records could not be stored either. Records completed before cancellation
// are still flushed.
func (b *BatchProcessor) ProcessDossiers(ctx context.Context, dossiers []model.Dossier) (*Summary, error) {
	sum := &Summary{}
	runErr := b.run(ctx, dossiers, sum)

	// Buffered records survive cancellation
	if err := b.sink.Flush(context.WithoutCancel(ctx)); err != nil {
		b.logger.Error("flush failed", zap.Error(err))
		if runErr == nil {
			runErr = fmt.Errorf("flush: %w", err)
		}
	}
	return sum, runErr
}

func (b *BatchProcessor) run(ctx context.Context, dossiers []model.Dossier, sum *Summary) error {
	for _, d := range dossiers {
		if err := ctx.Err(); err != nil {
			b.logger.Warn("run canceled", zap.Int("reviewed", sum.Total))
			return err
		}
		if b.onStart != nil {
			b.onStart(d)
		}

		rec, err := b.reviewer.Review(ctx, d)
		res := DossierResult{Dossier: d, Record: rec, Error: err}
		sum.Total++

		if err != nil || rec == nil {
			sum.Errors++
			sum.Results = append(sum.Results, res)
			b.logger.Warn("dossier produced no record", zap.String("dossier", d.ID), zap.Error(err))
			if b.onDone != nil {
				b.onDone(res)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		if rec.Verdict == model.VerdictPass {
			sum.Passed++
		} else {
			sum.Failed++
		}
		sum.Results = append(sum.Results, res)

		if err := b.sink.Append(ctx, *rec); err != nil {
			b.logger.Error("append failed", zap.String("dossier", d.ID), zap.Error(err))
			if b.onDone != nil {
				b.onDone(res)
			}
			return fmt.Errorf("store %s: %w", d.ID, err)
		}
		sum.Recorded++

		if b.onDone != nil {
			b.onDone(res)
		}
	}
	return nil
}

// ErrNotDirectory is returned when the data path is not a directory
var ErrNotDirectory = errors.New("not a directory")

// DiscoverDossiers lists every subdirectory of root as a dossier, in name
// order, with its files in name order. Hidden directories are skipped, as
// are nested directories inside a dossier.
func DiscoverDossiers(root string) ([]model.Dossier, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var dossiers []model.Dossier
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		d, err := ReadDossier(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		dossiers = append(dossiers, d)
	}
	return dossiers, nil
}

// ReadDossier reads one dossier folder
func ReadDossier(dir string) (model.Dossier, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return model.Dossier{}, fmt.Errorf("read dossier: %w", err)
	}

	d := model.Dossier{ID: filepath.Base(dir), Path: dir}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		d.Files = append(d.Files, model.FileRef{Name: e.Name(), Path: filepath.Join(dir, e.Name())})
	}
	return d, nil
}
