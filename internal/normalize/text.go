// Package normalize canonicalizes field values so that differently formatted
// renderings of the same fact compare equal.
//
// Each field kind has its own Comparator; there is no global similarity
// threshold. Two values are equivalent only when their canonical forms are
// identical.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Comparator canonicalizes values of one kind and judges equivalence
type Comparator interface {
	// Canonical returns the canonical form, or false when the value has no usable content
	Canonical(raw string) (string, bool)

	// Equivalent reports whether two raw values denote the same thing
	Equivalent(a, b string) bool
}

// Fold applies NFKC (full-width to half-width, compatibility forms) and case folding
func Fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// Clean folds s and drops whitespace, punctuation and symbols.
// "《运筹学》 " and "运筹学" both clean to "运筹学".
func Clean(s string) string {
	s = Fold(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsPlaceholder reports whether a raw value is a stand-in for "no value"
func IsPlaceholder(raw string) bool {
	switch Clean(raw) {
	case "", "null", "none", "nil", "na", "无法识别", "未识别", "未找到", "不详":
		return true
	}
	return false
}

// TextComparator compares free text such as titles.
// A trailing bracketed qualifier is ignored: "运筹学（第5版）" equals "运筹学".
type TextComparator struct{}

// Canonical implements Comparator
func (TextComparator) Canonical(raw string) (string, bool) {
	c := Clean(stripQualifier(Fold(raw)))
	return c, c != ""
}

// Equivalent implements Comparator
func (t TextComparator) Equivalent(a, b string) bool {
	return equalCanonical(t, a, b)
}

// OrganizationComparator compares institutions and publishers.
// Legal-form suffixes are dropped: "高等教育出版社有限公司" equals "高等教育出版社".
type OrganizationComparator struct{}

var orgSuffixes = []string{"股份有限公司", "有限责任公司", "有限公司", "集团"}

// Canonical implements Comparator
func (OrganizationComparator) Canonical(raw string) (string, bool) {
	c := Clean(raw)
	for changed := true; changed; {
		changed = false
		for _, suffix := range orgSuffixes {
			if trimmed := strings.TrimSuffix(c, suffix); trimmed != c && trimmed != "" {
				c = trimmed
				changed = true
			}
		}
	}
	return c, c != ""
}

// Equivalent implements Comparator
func (o OrganizationComparator) Equivalent(a, b string) bool {
	return equalCanonical(o, a, b)
}

// PersonComparator compares the first listed person of a name field.
// Role words and co-author lists are dropped: "张三 主编" and "张三、李四 等编著" both canonicalize to "张三".
// Names are listed with punctuation only, so "John Smith" and "张 三" stay whole.
type PersonComparator struct{}

var (
	personPrefixes = []string{"第一主编", "主编", "作者", "编著", "著者"}
	personSuffixes = []string{"等编著", "等主编", "等著", "编著", "主编", "主审", "等", "著", "编"}
)

// Canonical implements Comparator
func (PersonComparator) Canonical(raw string) (string, bool) {
	for _, token := range strings.FieldsFunc(Fold(raw), isNameSeparator) {
		name := strings.TrimSpace(token)
		for _, p := range personPrefixes {
			name = strings.TrimSpace(strings.TrimPrefix(name, p))
		}
		for changed := true; changed; {
			changed = false
			for _, s := range personSuffixes {
				if trimmed := strings.TrimSpace(strings.TrimSuffix(name, s)); trimmed != name && trimmed != "" {
					name = trimmed
					changed = true
				}
			}
		}
		if c := Clean(name); c != "" && !isRoleWord(c) {
			return c, true
		}
	}
	return "", false
}

// Equivalent implements Comparator
func (p PersonComparator) Equivalent(a, b string) bool {
	return equalCanonical(p, a, b)
}

func isNameSeparator(r rune) bool {
	switch r {
	case ',', '、', ';', '/', ':', '|', '，', '；', '：', '\n':
		return true
	}
	return false
}

func isRoleWord(s string) bool {
	for _, w := range personSuffixes {
		if s == w {
			return true
		}
	}
	for _, w := range personPrefixes {
		if s == w {
			return true
		}
	}
	return false
}

// stripQualifier removes one trailing bracketed qualifier, keeping the value when nothing else remains
func stripQualifier(s string) string {
	s = strings.TrimSpace(s)
	pairs := map[rune]rune{')': '(', ']': '[', '】': '【', '〕': '〔'}

	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	open, ok := pairs[runes[len(runes)-1]]
	if !ok {
		return s
	}
	for i := len(runes) - 2; i > 0; i-- {
		if runes[i] == open {
			if head := strings.TrimSpace(string(runes[:i])); head != "" {
				return head
			}
			return s
		}
	}
	return s
}

func equalCanonical(c Comparator, a, b string) bool {
	ca, okA := c.Canonical(a)
	cb, okB := c.Canonical(b)
	return okA && okB && ca == cb
}
