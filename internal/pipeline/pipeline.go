// Package pipeline reviews one dossier end to end: classify, extract the form,
// render the attachments, reconcile, and produce exactly one review record.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/textaudit/internal/classify"
	"github.com/ppiankov/textaudit/internal/extract"
	"github.com/ppiankov/textaudit/internal/model"
	"github.com/ppiankov/textaudit/internal/reconcile"
	"go.uber.org/zap"
)

// State is a stage of a dossier review
type State string

const (
	StateClassifying           State = "classifying"
	StateExtractingForm        State = "extracting-form"
	StateExtractingAttachments State = "extracting-attachments"
	StateComparing             State = "comparing"
	StateVerdicted             State = "verdicted"
	StateFailed                State = "failed"
)

// Terminal reports whether no further transition follows
func (s State) Terminal() bool {
	return s == StateVerdicted || s == StateFailed
}

// Pipeline reviews dossiers one at a time
type Pipeline struct {
	backend    extract.Backend
	classifier *classify.Classifier
	engine     *reconcile.Engine
	notifier   Notifier
	logger     *zap.Logger
	maxBytes   int64
	onState    func(dossier string, s State)
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithClassifier replaces the name-cue-only default classifier
func WithClassifier(c *classify.Classifier) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithEngine replaces the default reconciliation engine
func WithEngine(e *reconcile.Engine) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.engine = e
		}
	}
}

// WithNotifier receives one update per reviewed dossier
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxBytes refuses larger files before they reach the backend
func WithMaxBytes(n int64) Option {
	return func(p *Pipeline) { p.maxBytes = n }
}

// WithStateHook observes every state transition
func WithStateHook(fn func(dossier string, s State)) Option {
	return func(p *Pipeline) { p.onState = fn }
}

// New creates a pipeline over an extraction backend
func New(backend extract.Backend, opts ...Option) *Pipeline {
	p := &Pipeline{
		backend:    backend,
		classifier: classify.New(),
		engine:     reconcile.NewEngine(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// review carries the state of one dossier through the stages
type review struct {
	dossier    model.Dossier
	state      State
	assignment *classify.Assignment
	form       extract.Fields
	renderings []string
	record     *model.ReviewRecord
}

// Review runs the dossier to a terminal state and returns its record.
// Failures of the dossier itself become a failing record; an error is
// returned only when ctx ends first, and then no record is produced.
func (p *Pipeline) Review(ctx context.Context, d model.Dossier) (*model.ReviewRecord, error) {
	start := time.Now()
	r := &review{dossier: d}
	log := p.logger.With(zap.String("dossier", d.ID))

	steps := map[State]func(context.Context, *review, *zap.Logger) (State, error){
		StateClassifying:           p.classifyStep,
		StateExtractingForm:        p.extractFormStep,
		StateExtractingAttachments: p.renderStep,
		StateComparing:             p.compareStep,
	}

	p.transition(r, StateClassifying, log)
	for !r.state.Terminal() {
		if err := ctx.Err(); err != nil {
			log.Warn("review canceled", zap.String("state", string(r.state)))
			return nil, err
		}
		next, err := steps[r.state](ctx, r, log)
		if err != nil {
			return nil, err
		}
		p.transition(r, next, log)
	}

	log.Info("review complete",
		zap.String("verdict", string(r.record.Verdict)),
		zap.Duration("elapsed", time.Since(start)))

	if p.notifier != nil {
		p.notifier.Notify(ctx, UpdateFromRecord(r.record))
	}
	return r.record, nil
}

func (p *Pipeline) transition(r *review, s State, log *zap.Logger) {
	r.state = s
	log.Debug("state", zap.String("state", string(s)))
	if p.onState != nil {
		p.onState(r.dossier.ID, s)
	}
}

func (p *Pipeline) classifyStep(ctx context.Context, r *review, log *zap.Logger) (State, error) {
	a, err := p.classifier.Classify(ctx, r.dossier.Files)
	r.assignment = a
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn("classification failed", zap.Error(err))
		r.fail(err.Error())
		return StateFailed, nil
	}
	return StateExtractingForm, nil
}

func (p *Pipeline) extractFormStep(ctx context.Context, r *review, log *zap.Logger) (State, error) {
	ref, _ := r.assignment.Form()

	doc, err := extract.Load(ref, p.maxBytes)
	if err == nil {
		r.form, err = p.backend.ExtractFields(ctx, doc, model.Catalog())
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn("form extraction failed", zap.String("file", ref.Name), zap.Error(err))
		r.fail(model.JoinRemarks("form extraction failed: "+err.Error(), unknownRemark(r.assignment)))
		return StateFailed, nil
	}

	log.Debug("form extracted", zap.String("file", ref.Name), zap.Int("fields", len(r.form)))
	return StateExtractingAttachments, nil
}

func (p *Pipeline) renderStep(ctx context.Context, r *review, log *zap.Logger) (State, error) {
	for _, ref := range r.assignment.Attachments() {
		doc, err := extract.Load(ref, p.maxBytes)
		var text string
		if err == nil {
			text, err = p.backend.RenderText(ctx, doc)
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			// Fields only this attachment could confirm end up indeterminate
			log.Warn("attachment render failed", zap.String("file", ref.Name), zap.Error(err))
			continue
		}
		r.renderings = append(r.renderings, text)
	}
	return StateComparing, nil
}

func (p *Pipeline) compareStep(ctx context.Context, r *review, log *zap.Logger) (State, error) {
	values := formValues(r.form)
	result := p.engine.Compare(values, r.renderings)

	r.record = &model.ReviewRecord{
		Dossier: r.dossier.ID,
		Fields:  values,
		Verdict: result.Verdict,
		Remarks: model.JoinRemarks(result.Remarks, unknownRemark(r.assignment)),
		Result:  &result,
	}
	return StateVerdicted, nil
}

func (r *review) fail(remarks string) {
	r.record = &model.ReviewRecord{
		Dossier: r.dossier.ID,
		Verdict: model.VerdictFail,
		Remarks: remarks,
	}
}

// formValues lays extracted fields out in catalog order
func formValues(fields extract.Fields) []model.FieldValue {
	out := make([]model.FieldValue, 0, len(fields))
	for _, name := range model.CatalogNames() {
		v, ok := fields[name]
		out = append(out, model.FieldValue{Name: name, Value: v, Found: ok, Source: model.SourceForm})
	}
	return out
}

func unknownRemark(a *classify.Assignment) string {
	if a == nil {
		return ""
	}
	var names []string
	for _, f := range a.Unknown() {
		if !classify.IsSystemFile(f.Name) {
			names = append(names, f.Name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	return fmt.Sprintf("unclassified files: %s", strings.Join(names, ", "))
}
