// Package reconcile compares application-form values with what the attachments
// say, field by field, and derives the dossier verdict.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/ppiankov/textaudit/internal/model"
	"github.com/ppiankov/textaudit/internal/normalize"
	"go.uber.org/zap"
)

// Engine reconciles the reduced field subset
type Engine struct {
	registry *normalize.Registry
	fields   []model.Field
	logger   *zap.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithRegistry replaces the comparator registry
func WithRegistry(r *normalize.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithFields replaces the compared field set
func WithFields(fields []model.Field) Option {
	return func(e *Engine) { e.fields = fields }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over the reduced subset with the default comparators
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		registry: normalize.NewRegistry(),
		fields:   model.Reduced(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compare reconciles form values against the attachment renderings.
// The verdict is pass iff no field is a mismatch.
func (e *Engine) Compare(form []model.FieldValue, renderings []string) model.ReconciliationResult {
	idx := NewIndex(strings.Join(renderings, "\n\n"))

	byName := make(map[model.FieldName]model.FieldValue, len(form))
	for _, v := range form {
		byName[v.Name] = v
	}

	result := model.ReconciliationResult{Verdict: model.VerdictPass}
	for _, f := range e.fields {
		formValue, ok := byName[f.Name]
		if !ok {
			formValue = model.FieldValue{Name: f.Name, Source: model.SourceForm}
		}
		c := e.compareField(f, formValue, idx)
		e.logger.Debug("field compared",
			zap.String("field", string(f.Name)),
			zap.String("outcome", string(c.Outcome)),
			zap.String("form", c.Form.Value),
			zap.String("attachment", c.Attachment.Value))
		result.Comparisons = append(result.Comparisons, c)
	}

	if len(result.Mismatches()) > 0 {
		result.Verdict = model.VerdictFail
	}
	result.Remarks = Remarks(result)
	return result
}

func (e *Engine) compareField(f model.Field, form model.FieldValue, idx *Index) model.Comparison {
	cmp := e.registry.For(f)
	c := model.Comparison{
		Field:      f.Name,
		Form:       form,
		Attachment: model.FieldValue{Name: f.Name, Source: model.SourceAttachment},
		Outcome:    model.OutcomeIndeterminate,
	}

	candidates := idx.Candidates(f)
	var anchored []Candidate
	for _, cand := range candidates {
		if cand.Anchored {
			anchored = append(anchored, cand)
		}
	}

	formCanonical, formOK := "", false
	if form.Found {
		formCanonical, formOK = cmp.Canonical(form.Value)
	}

	found := func(v string) {
		c.Attachment.Value = v
		c.Attachment.Found = true
	}

	// Anchored values decide: any equivalent one is a match, otherwise the first contradicts the form
	if len(anchored) > 0 {
		if !formOK {
			found(anchored[0].Value)
			return c
		}
		for _, cand := range anchored {
			if cmp.Equivalent(form.Value, cand.Value) {
				found(cand.Value)
				c.Outcome = model.OutcomeMatch
				return c
			}
		}
		for _, cand := range anchored {
			if _, ok := cmp.Canonical(cand.Value); ok {
				found(cand.Value)
				c.Outcome = model.OutcomeMismatch
				return c
			}
		}
		// Anchored values that cannot be read as this kind do not contradict anything
	}

	if !formOK {
		return c
	}

	// Unanchored evidence can only confirm
	for _, cand := range candidates {
		if !cand.Anchored && cmp.Equivalent(form.Value, cand.Value) {
			found(cand.Value)
			c.Outcome = model.OutcomeMatch
			return c
		}
	}
	if !presenceCounts(f.Kind) {
		return c
	}
	// The token around each occurrence must itself be equivalent; "张三" inside "张三丰" is not a match
	for _, seg := range idx.Segments(formCanonical) {
		if cmp.Equivalent(form.Value, seg) {
			found(seg)
			c.Outcome = model.OutcomeMatch
			return c
		}
	}
	return c
}

// presenceCounts reports whether an unlabeled occurrence of the form value can confirm it
func presenceCounts(kind model.FieldKind) bool {
	switch kind {
	case model.KindText, model.KindOrganization, model.KindPerson:
		return true
	}
	return false
}

// Remarks lists every mismatch, then every field that could not be verified
func Remarks(r model.ReconciliationResult) string {
	var parts []string
	for _, c := range r.Mismatches() {
		parts = append(parts, MismatchRemark(c))
	}
	for _, c := range r.Indeterminate() {
		parts = append(parts, fmt.Sprintf("could not verify: %s", c.Field))
	}
	return model.JoinRemarks(parts...)
}

// MismatchRemark formats one mismatch for the report
func MismatchRemark(c model.Comparison) string {
	return fmt.Sprintf("%s: form=%s vs attachment=%s", c.Field, c.Form.Value, c.Attachment.Value)
}
