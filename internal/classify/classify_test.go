package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/textaudit/internal/model"
)

func refs(names ...string) []model.FileRef {
	out := make([]model.FileRef, len(names))
	for i, n := range names {
		out[i] = model.FileRef{Name: n, Path: "/data/dossier/" + n}
	}
	return out
}

func roles(a *Assignment) map[string]model.FileRole {
	out := make(map[string]model.FileRole)
	for _, f := range a.Files {
		out[f.File.Name] = f.Role
	}
	return out
}

func TestNameCue(t *testing.T) {
	tests := []struct {
		name string
		want cue
	}{
		{"教材申报书.pdf", cueForm},
		{"申报表（盖章版）.pdf", cueForm},
		{"application_form.docx", cueForm},
		{"附件1-版权页.pdf", cueAttachment1},
		{"附件一 封面.jpg", cueAttachment1},
		{"附件 2.pdf", cueAttachment2},
		{"Attachment-2.PDF", cueAttachment2},
		{"申报书附件1.pdf", cueAttachment1},
		{"附件.pdf", cueAttachment},
		{"scan001.pdf", cueNone},
	}
	for _, tt := range tests {
		if got := nameCue(tt.name); got != tt.want {
			t.Errorf("nameCue(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClassify_NameCues(t *testing.T) {
	c := New()
	a, err := c.Classify(context.Background(), refs("att2.pdf", "form.pdf", "att1.docx"))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	want := map[string]model.FileRole{
		"form.pdf":  model.RoleApplicationForm,
		"att1.docx": model.RoleAttachment1,
		"att2.pdf":  model.RoleAttachment2,
	}
	if diff := cmp.Diff(want, roles(a)); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}

	atts := a.Attachments()
	if len(atts) != 2 || atts[0].Name != "att1.docx" || atts[1].Name != "att2.pdf" {
		t.Errorf("expected attachments in slot order, got %v", atts)
	}
}

func TestClassify_ArrivalOrderAndUnknown(t *testing.T) {
	c := New()
	a, err := c.Classify(context.Background(), refs(
		".DS_Store", "申报书.pdf", "b.pdf", "~$申报书.docx", "a.jpg", "c.pdf", "notes.txt",
	))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	want := map[string]model.FileRole{
		".DS_Store":    model.RoleUnknown,
		"申报书.pdf":      model.RoleApplicationForm,
		"b.pdf":        model.RoleAttachment1,
		"~$申报书.docx":   model.RoleUnknown,
		"a.jpg":        model.RoleAttachment2,
		"c.pdf":        model.RoleUnknown,
		"notes.txt":    model.RoleUnknown,
	}
	if diff := cmp.Diff(want, roles(a)); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}

	reasons := map[string]string{}
	for _, f := range a.Files {
		reasons[f.File.Name] = f.Reason
	}
	if reasons["c.pdf"] != "no free attachment slot" || reasons["notes.txt"] != "unsupported extension" {
		t.Errorf("unexpected reasons: %v", reasons)
	}
}

func TestClassify_AtMostOneForm(t *testing.T) {
	c := New()
	a, err := c.Classify(context.Background(), refs("附件1.pdf", "scan.pdf", "附件2.pdf"))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	forms := 0
	for _, f := range a.Files {
		if f.Role == model.RoleApplicationForm {
			forms++
		}
	}
	if forms != 1 || a.Role("scan.pdf") != model.RoleApplicationForm {
		t.Errorf("expected scan.pdf to be the form by elimination, got %v", roles(a))
	}
}

func TestClassify_NoForm(t *testing.T) {
	c := New()
	a, err := c.Classify(context.Background(), refs("a.pdf", "b.pdf"))
	if !errors.Is(err, ErrNoApplicationForm) {
		t.Fatalf("expected ErrNoApplicationForm, got %v", err)
	}
	if err.Error() != "no application form found" {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if _, ok := a.Form(); ok {
		t.Error("expected no form in partial assignment")
	}
}

func TestClassify_AmbiguousForms(t *testing.T) {
	c := New()
	_, err := c.Classify(context.Background(), refs("申报书.pdf", "申报表.pdf", "附件1.pdf"))

	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected *Error, got %v", err)
	}
	want := "no application form found: ambiguous candidates 申报书.pdf, 申报表.pdf"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

type fakePreviewer map[string]string

func (p fakePreviewer) Preview(ctx context.Context, ref model.FileRef) (string, error) {
	text, ok := p[ref.Name]
	if !ok {
		return "", errors.New("render failed")
	}
	return text, nil
}

const formPreview = `| 申报单位 | 某大学 | 申报类型 | 新编 |
| 教材名称 | 运筹学 | ISBN | 9787040123456 |
| 第一主编/作者 | 张三 | 出版单位 | 高等教育出版社 |
| 初版时间 | 2018-03 | 载体形式 | 纸质 |`

const copyrightPreview = `书名：运筹学
ISBN 978-7-04-012345-6
2018年3月第1版 2023年7月第5次印刷`

func TestClassify_Previews(t *testing.T) {
	p := fakePreviewer{
		"scan1.pdf": copyrightPreview,
		"scan2.pdf": formPreview,
		"scan3.pdf": "封面",
	}
	c := New(WithPreviewer(p), WithMinFormLabels(4))
	a, err := c.Classify(context.Background(), refs("scan1.pdf", "scan2.pdf", "scan3.pdf"))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if a.Role("scan2.pdf") != model.RoleApplicationForm {
		t.Errorf("expected densest preview to win, got %v", roles(a))
	}
	if a.Role("scan1.pdf") != model.RoleAttachment1 || a.Role("scan3.pdf") != model.RoleAttachment2 {
		t.Errorf("expected arrival order for attachments, got %v", roles(a))
	}
}

func TestClassify_PreviewsBelowThreshold(t *testing.T) {
	p := fakePreviewer{"a.pdf": copyrightPreview, "b.pdf": "封面"}
	c := New(WithPreviewer(p), WithMinFormLabels(4))
	if _, err := c.Classify(context.Background(), refs("a.pdf", "b.pdf")); !errors.Is(err, ErrNoApplicationForm) {
		t.Errorf("expected ErrNoApplicationForm below threshold, got %v", err)
	}
}

func TestLabelDensity(t *testing.T) {
	if got := LabelDensity(formPreview); got < 8 {
		t.Errorf("expected form preview to carry most labels, got %d", got)
	}
	if got := LabelDensity(copyrightPreview); got > 2 {
		t.Errorf("expected copyright page to carry few labels, got %d", got)
	}
}

type fakeAdvisor struct {
	answer map[string]model.FileRole
	seen   []FileHint
}

func (a *fakeAdvisor) AdviseRoles(ctx context.Context, files []FileHint) (map[string]model.FileRole, error) {
	a.seen = files
	return a.answer, nil
}

func TestClassify_Advisor(t *testing.T) {
	adv := &fakeAdvisor{answer: map[string]model.FileRole{
		"x.pdf":     model.RoleAttachment2,
		"y.pdf":     model.RoleApplicationForm,
		"z.pdf":     model.RoleAttachment1,
		"ghost.pdf": model.RoleApplicationForm,
	}}
	c := New(WithAdvisor(adv))
	a, err := c.Classify(context.Background(), refs("x.pdf", "y.pdf", "z.pdf"))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	want := map[string]model.FileRole{
		"x.pdf": model.RoleAttachment2,
		"y.pdf": model.RoleApplicationForm,
		"z.pdf": model.RoleAttachment1,
	}
	if diff := cmp.Diff(want, roles(a)); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}
	if len(adv.seen) != 3 {
		t.Errorf("expected advisor to see 3 files, got %d", len(adv.seen))
	}
}

func TestClassify_AdvisorTwoForms(t *testing.T) {
	adv := &fakeAdvisor{answer: map[string]model.FileRole{
		"x.pdf": model.RoleApplicationForm,
		"y.pdf": model.RoleApplicationForm,
	}}
	c := New(WithAdvisor(adv))
	if _, err := c.Classify(context.Background(), refs("x.pdf", "y.pdf")); !errors.Is(err, ErrNoApplicationForm) {
		t.Errorf("expected advisor answer with two forms to be rejected, got %v", err)
	}
}
