package reconcile

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/textaudit/internal/model"
)

func formValues(values map[model.FieldName]string) []model.FieldValue {
	var out []model.FieldValue
	for _, name := range model.CatalogNames() {
		v, ok := values[name]
		out = append(out, model.FieldValue{Name: name, Value: v, Found: ok, Source: model.SourceForm})
	}
	return out
}

func operationsResearchForm() map[model.FieldName]string {
	return map[model.FieldName]string{
		model.FieldTitle:          "运筹学",
		model.FieldISBN:           "9787040123456",
		model.FieldFirstEditor:    "张三",
		model.FieldPublisher:      "高等教育出版社",
		model.FieldFirstEdition:   "2018-03",
		model.FieldMediaForm:      "纸质",
		model.FieldCurrentEdition: "2020-05",
		model.FieldEditionNumber:  "2",
		model.FieldLatestPrinting: "2023-07",
	}
}

func outcomes(r model.ReconciliationResult) map[model.FieldName]model.Outcome {
	out := make(map[model.FieldName]model.Outcome)
	for _, c := range r.Comparisons {
		out[c.Field] = c.Outcome
	}
	return out
}

func TestEngine_OperationsResearch(t *testing.T) {
	e := NewEngine()
	result := e.Compare(formValues(operationsResearchForm()), []string{copyrightPage, "封面：运筹学（第2版）"})

	want := map[model.FieldName]model.Outcome{
		model.FieldTitle:          model.OutcomeMatch,
		model.FieldISBN:           model.OutcomeMismatch,
		model.FieldFirstEditor:    model.OutcomeMatch,
		model.FieldPublisher:      model.OutcomeMatch,
		model.FieldFirstEdition:   model.OutcomeMatch,
		model.FieldMediaForm:      model.OutcomeIndeterminate,
		model.FieldCurrentEdition: model.OutcomeMatch,
		model.FieldEditionNumber:  model.OutcomeMatch,
		model.FieldLatestPrinting: model.OutcomeMatch,
	}
	if diff := cmp.Diff(want, outcomes(result)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}

	if result.Verdict != model.VerdictFail {
		t.Errorf("expected fail, got %s", result.Verdict)
	}
	wantRemarks := "ISBN: form=9787040123456 vs attachment=978-7-04-012345-7; could not verify: 载体形式"
	if result.Remarks != wantRemarks {
		t.Errorf("remarks:\n got %q\nwant %q", result.Remarks, wantRemarks)
	}
}

func TestEngine_ComparesReducedSubsetInOrder(t *testing.T) {
	result := NewEngine().Compare(formValues(operationsResearchForm()), []string{copyrightPage})

	var got []model.FieldName
	for _, c := range result.Comparisons {
		got = append(got, c.Field)
	}
	var want []model.FieldName
	for _, f := range model.Reduced() {
		want = append(want, f.Name)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("field order mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_DateEquivalence(t *testing.T) {
	form := formValues(map[model.FieldName]string{model.FieldCurrentEdition: "2020-05"})
	result := NewEngine().Compare(form, []string{"出版时间：2020年5月"})

	if got := outcomes(result)[model.FieldCurrentEdition]; got != model.OutcomeMatch {
		t.Errorf("expected 2020-05 to match 2020年5月, got %s", got)
	}
}

func TestEngine_NullIsIndeterminate(t *testing.T) {
	values := operationsResearchForm()
	delete(values, model.FieldISBN)

	result := NewEngine().Compare(formValues(values), []string{copyrightPage})

	var isbn model.Comparison
	for _, c := range result.Comparisons {
		if c.Field == model.FieldISBN {
			isbn = c
		}
	}
	if isbn.Outcome != model.OutcomeIndeterminate {
		t.Errorf("expected indeterminate for a missing form value, got %s", isbn.Outcome)
	}
	if !isbn.Attachment.Found {
		t.Error("expected the attachment value to still be recorded")
	}
	if result.Verdict != model.VerdictPass {
		t.Errorf("expected pass without mismatches, got %s (%s)", result.Verdict, result.Remarks)
	}
}

func TestEngine_AllIndeterminatePasses(t *testing.T) {
	result := NewEngine().Compare(formValues(operationsResearchForm()), []string{""})

	if result.Verdict != model.VerdictPass {
		t.Errorf("expected pass, got %s", result.Verdict)
	}
	if len(result.Indeterminate()) != len(model.Reduced()) {
		t.Errorf("expected every field indeterminate, got %d", len(result.Indeterminate()))
	}
}

func TestEngine_UnanchoredDatesOnlyConfirm(t *testing.T) {
	form := formValues(map[model.FieldName]string{
		model.FieldFirstEdition:   "2017-01",
		model.FieldLatestPrinting: "2019-01",
	})
	result := NewEngine().Compare(form, []string{"本书于2019年1月修订"})

	got := outcomes(result)
	if got[model.FieldFirstEdition] != model.OutcomeIndeterminate {
		t.Errorf("a bare date must not contradict the form, got %s", got[model.FieldFirstEdition])
	}
	if got[model.FieldLatestPrinting] != model.OutcomeMatch {
		t.Errorf("a bare date may confirm the form, got %s", got[model.FieldLatestPrinting])
	}
}

func TestEngine_PresenceMatch(t *testing.T) {
	form := formValues(map[model.FieldName]string{
		model.FieldTitle:       "运筹学",
		model.FieldFirstEditor: "张三 主编",
	})
	result := NewEngine().Compare(form, []string{"运 筹 学\n张三 编著"})

	got := outcomes(result)
	if got[model.FieldTitle] != model.OutcomeMatch || got[model.FieldFirstEditor] != model.OutcomeMatch {
		t.Errorf("expected presence matches, got %v", got)
	}
}

func TestEngine_LabelMismatch(t *testing.T) {
	form := formValues(map[model.FieldName]string{model.FieldPublisher: "高等教育出版社"})
	result := NewEngine().Compare(form, []string{"出版社：清华大学出版社"})

	if result.Verdict != model.VerdictFail {
		t.Fatalf("expected fail, got %s", result.Verdict)
	}
	want := "出版单位: form=高等教育出版社 vs attachment=清华大学出版社"
	if got := MismatchRemark(result.Mismatches()[0]); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRemarks_Order(t *testing.T) {
	r := model.ReconciliationResult{Comparisons: []model.Comparison{
		{Field: model.FieldTitle, Outcome: model.OutcomeIndeterminate},
		{Field: model.FieldISBN, Outcome: model.OutcomeMismatch,
			Form:       model.FieldValue{Value: "1"},
			Attachment: model.FieldValue{Value: "2"}},
		{Field: model.FieldPublisher, Outcome: model.OutcomeMatch},
	}}

	want := "ISBN: form=1 vs attachment=2; could not verify: 教材名称"
	if got := Remarks(r); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

const cipLine = "高等数学 / 张三丰主编. \u2014北京：北京大学出版社，2020.5"

func TestEngine_UnlabeledTokensMustBeWhole(t *testing.T) {
	tests := []struct {
		name  string
		field model.FieldName
		form  string
		want  model.Outcome
	}{
		{"title inside longer title", model.FieldTitle, "数学", model.OutcomeIndeterminate},
		{"editor inside longer name", model.FieldFirstEditor, "张三", model.OutcomeIndeterminate},
		{"university inside press", model.FieldPublisher, "北京大学", model.OutcomeIndeterminate},
		{"whole title", model.FieldTitle, "高等数学", model.OutcomeMatch},
		{"whole editor", model.FieldFirstEditor, "张三丰", model.OutcomeMatch},
		{"whole publisher", model.FieldPublisher, "北京大学出版社", model.OutcomeMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := formValues(map[model.FieldName]string{tt.field: tt.form})
			result := NewEngine().Compare(form, []string{cipLine})

			if got := outcomes(result)[tt.field]; got != tt.want {
				t.Errorf("%s=%q: got %s, want %s", tt.field, tt.form, got, tt.want)
			}
			if result.Verdict != model.VerdictPass {
				t.Errorf("unlabeled text must never fail a dossier, got %s", result.Verdict)
			}
		})
	}
}

func TestEngine_UnlabeledSubstringsDoNotPass(t *testing.T) {
	form := formValues(map[model.FieldName]string{
		model.FieldTitle:       "数学",
		model.FieldFirstEditor: "张三",
		model.FieldPublisher:   "北京大学",
	})
	result := NewEngine().Compare(form, []string{cipLine})

	for _, name := range []model.FieldName{model.FieldTitle, model.FieldFirstEditor, model.FieldPublisher} {
		if got := outcomes(result)[name]; got == model.OutcomeMatch {
			t.Errorf("%s must not match a longer token", name)
		}
	}
	if !strings.Contains(result.Remarks, "could not verify: 教材名称") {
		t.Errorf("expected the title to be reported unverified, got %q", result.Remarks)
	}
}

func TestEngine_LabeledISBNFollowedByYear(t *testing.T) {
	form := formValues(map[model.FieldName]string{model.FieldISBN: "9787112311347"})
	result := NewEngine().Compare(form, []string{"书号：978-7-112-31134-8 2020"})

	if result.Verdict != model.VerdictFail {
		t.Fatalf("expected a wrong check digit to fail, got %s (%s)", result.Verdict, result.Remarks)
	}
	want := "ISBN: form=9787112311347 vs attachment=978-7-112-31134-8"
	if got := MismatchRemark(result.Mismatches()[0]); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
