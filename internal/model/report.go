package model

import "strings"

// Report column headers that are not catalog fields
const (
	ColumnDossier = "文件夹名"
	ColumnVerdict = "审核状态"
	ColumnRemarks = "备注"
)

// Source records where a field value came from
type Source string

const (
	SourceForm       Source = "form"
	SourceAttachment Source = "attachment"
)

// FieldValue is one extracted value. Found=false means the value could not be located.
type FieldValue struct {
	Name   FieldName `json:"name"`
	Value  string    `json:"value,omitempty"`
	Found  bool      `json:"found"`
	Source Source    `json:"source"`
}

// Verdict is the pass/fail outcome of a dossier review
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// Label returns the report label for the verdict
func (v Verdict) Label() string {
	if v == VerdictPass {
		return "通过"
	}
	return "不通过"
}

// Outcome is the tri-state result of comparing one field
type Outcome string

const (
	OutcomeMatch         Outcome = "match"
	OutcomeMismatch      Outcome = "mismatch"
	OutcomeIndeterminate Outcome = "indeterminate" // One side has no value
)

// Comparison holds both sides of one reduced-subset field
type Comparison struct {
	Field      FieldName  `json:"field"`
	Form       FieldValue `json:"form"`
	Attachment FieldValue `json:"attachment"`
	Outcome    Outcome    `json:"outcome"`
}

// ReconciliationResult is the per-field comparison plus the aggregate verdict
type ReconciliationResult struct {
	Comparisons []Comparison `json:"comparisons"`
	Verdict     Verdict      `json:"verdict"`
	Remarks     string       `json:"remarks"`
}

// Mismatches returns the comparisons that failed
func (r ReconciliationResult) Mismatches() []Comparison {
	return r.filter(OutcomeMismatch)
}

// Indeterminate returns the comparisons that could not be verified
func (r ReconciliationResult) Indeterminate() []Comparison {
	return r.filter(OutcomeIndeterminate)
}

func (r ReconciliationResult) filter(o Outcome) []Comparison {
	var out []Comparison
	for _, c := range r.Comparisons {
		if c.Outcome == o {
			out = append(out, c)
		}
	}
	return out
}

// ReviewRecord is the unit persisted to the tabular store, one per dossier
type ReviewRecord struct {
	Dossier string       `json:"dossier"`
	Fields  []FieldValue `json:"fields,omitempty"` // Form values in catalog order; empty when the review failed early
	Verdict Verdict      `json:"verdict"`
	Remarks string       `json:"remarks"`

	// Result is the detailed comparison, nil when the dossier never reached comparison
	Result *ReconciliationResult `json:"result,omitempty"`
}

// Value returns the form value of a field and whether it was found
func (r ReviewRecord) Value(name FieldName) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, f.Found
		}
	}
	return "", false
}

// RecordColumns returns the canonical report header
func RecordColumns() []string {
	cols := make([]string, 0, len(catalog)+3)
	cols = append(cols, ColumnDossier)
	for _, f := range catalog {
		cols = append(cols, string(f.Name))
	}
	return append(cols, ColumnVerdict, ColumnRemarks)
}

// Row renders the record against the canonical header. Missing values are empty cells.
func (r ReviewRecord) Row() []string {
	cols := RecordColumns()
	row := make([]string, len(cols))
	row[0] = r.Dossier
	for i, f := range catalog {
		if v, ok := r.Value(f.Name); ok {
			row[i+1] = v
		}
	}
	row[len(cols)-2] = r.Verdict.Label()
	row[len(cols)-1] = r.Remarks
	return row
}

// JoinRemarks joins remark fragments with the report separator, skipping empty ones
func JoinRemarks(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "; ")
}
