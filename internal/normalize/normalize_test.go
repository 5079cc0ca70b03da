package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/textaudit/internal/model"
)

func TestDateComparator_Equivalent(t *testing.T) {
	c := DateComparator{}
	tests := []struct {
		a, b string
		want bool
	}{
		{"2020-05", "2020年5月", true},
		{"2020-05", "2020年05月", true},
		{"2020-05", "2020.5", true},
		{"2020-05", "2020/05/12", true},
		{"2020-05", "202005", true},
		{"2020-05", "二〇二〇年五月", true},
		{"2020-05", "2020年5月第1版", true},
		{"2020-12", "二〇二〇年十二月", true},
		{"2020-05", "2020-06", false},
		{"2020-05", "2021年5月", false},
		{"2020-05", "", false},
		{"2020-13", "2020-13", false},
	}

	for _, tt := range tests {
		if got := c.Equivalent(tt.a, tt.b); got != tt.want {
			t.Errorf("Equivalent(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFindYearMonths(t *testing.T) {
	text := "2018年3月第1版 2023年7月第5次印刷\nISBN 978-7-04-012345-6"
	got := FindYearMonths(text)
	want := []string{"2018-03", "2023-07"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FindYearMonths mismatch (-want +got):\n%s", diff)
	}
}

func TestISBNComparator(t *testing.T) {
	c := ISBNComparator{}
	tests := []struct {
		a, b string
		want bool
	}{
		{"9787112311347", "978-7-112-31134-7", true},
		{"9787112311347", "ISBN 978 7 112 31134 7", true},
		{"ＩＳＢＮ９７８７１１２３１１３４７", "9787112311347", true},
		{"9787040123456", "978-7-04-012345-7", false},
		{"7-04-012345-X", "9787040123456", true},
		{"9787040123456", "12345", false},
	}

	for _, tt := range tests {
		if got := c.Equivalent(tt.a, tt.b); got != tt.want {
			t.Errorf("Equivalent(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFindISBNs(t *testing.T) {
	text := "书号：ISBN 978-7-112-31134-7\n定价：49.00元\n另见 9787112311347"
	got := FindISBNs(text)
	want := []string{"9787112311347"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FindISBNs mismatch (-want +got):\n%s", diff)
	}
}

func TestValidISBN13(t *testing.T) {
	if !ValidISBN13("9787040123456") {
		t.Error("expected valid check digit")
	}
	if ValidISBN13("9787040123457") {
		t.Error("expected invalid check digit")
	}
}

func TestNumericComparator(t *testing.T) {
	c := NumericComparator{}
	tests := []struct {
		a, b string
		want bool
	}{
		{"2", "第2版", true},
		{"2", "第二版", true},
		{"12", "十二", true},
		{"20", "二十", true},
		{"105", "一百零五", true},
		{"1.5", "1.5万", true},
		{"3", "第5次印刷", false},
		{"", "2", false},
	}

	for _, tt := range tests {
		if got := c.Equivalent(tt.a, tt.b); got != tt.want {
			t.Errorf("Equivalent(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTextComparator(t *testing.T) {
	c := TextComparator{}
	tests := []struct {
		a, b string
		want bool
	}{
		{"运筹学", "《运筹学》", true},
		{"运筹学", " 运 筹 学 ", true},
		{"运筹学", "运筹学（第5版）", true},
		{"Operations Research", "operations  research", true},
		{"运筹学", "高等运筹学", false},
		{"数学", "高等数学", false},
	}

	for _, tt := range tests {
		if got := c.Equivalent(tt.a, tt.b); got != tt.want {
			t.Errorf("Equivalent(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOrganizationComparator(t *testing.T) {
	c := OrganizationComparator{}
	if !c.Equivalent("高等教育出版社", "高等教育出版社有限公司") {
		t.Error("expected legal-form suffix to be ignored")
	}
	if c.Equivalent("高等教育出版社", "清华大学出版社") {
		t.Error("different publishers must not be equivalent")
	}
}

func TestPersonComparator(t *testing.T) {
	c := PersonComparator{}
	tests := []struct {
		a, b string
		want bool
	}{
		{"张三", "张三 主编", true},
		{"张三", "张三、李四 等编著", true},
		{"张三", "主编：张三", true},
		{"张三", "张三主编", true},
		{"张三", "李四", false},
		{"张三", "张 三", true},
		{"张 三", "张 四", false},
		{"欧阳 修", "欧阳 锋", false},
		{"John Smith", "John Doe", false},
		{"John Smith", "john  smith", true},
		{"John Smith, Jane Doe", "John Smith 主编", true},
	}

	for _, tt := range tests {
		if got := c.Equivalent(tt.a, tt.b); got != tt.want {
			t.Errorf("Equivalent(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEnumComparator(t *testing.T) {
	c := NewEnumComparator(DefaultEnumGroups())
	tests := []struct {
		a, b string
		want bool
	}{
		{"纸质", "纸质教材", true},
		{"数字教材", "电子版", true},
		{"纸质+数字", "新形态教材", true},
		{"是", "Yes", true},
		{"纸质", "数字", false},
		{"其他", "其他", true},
	}

	for _, tt := range tests {
		if got := c.Equivalent(tt.a, tt.b); got != tt.want {
			t.Errorf("Equivalent(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIsPlaceholder(t *testing.T) {
	for _, v := range []string{"", " ", "null", "N/A", "/", "-", "无法识别"} {
		if !IsPlaceholder(v) {
			t.Errorf("expected %q to be a placeholder", v)
		}
	}
	for _, v := range []string{"无", "运筹学", "0"} {
		if IsPlaceholder(v) {
			t.Errorf("expected %q to be a real value", v)
		}
	}
}

type exactComparator struct{}

func (exactComparator) Canonical(raw string) (string, bool) { return raw, raw != "" }
func (exactComparator) Equivalent(a, b string) bool     { return a == b }

func TestRegistry_Override(t *testing.T) {
	r := NewRegistry()
	title, _ := model.Lookup(model.FieldTitle)

	if !r.For(title).Equivalent("运筹学", "《运筹学》") {
		t.Error("default text comparator should ignore book-title marks")
	}

	r.Register(model.FieldTitle, exactComparator{})
	if r.For(title).Equivalent("运筹学", "《运筹学》") {
		t.Error("override should replace the kind default")
	}

	isbn, _ := model.Lookup(model.FieldISBN)
	if _, ok := r.For(isbn).(ISBNComparator); !ok {
		t.Errorf("expected ISBN comparator, got %T", r.For(isbn))
	}
}
