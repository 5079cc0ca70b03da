package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// 2020-05, 2020.5, 2020/05, 2020年5月, 2020 年 05 月, 2020-05-12
	dateSeparated = regexp.MustCompile(`(?:^|\D)(\d{4})\s*(?:年|[-./])\s*(\d{1,2})(?:\s*月)?`)
	// 202005
	dateCompact = regexp.MustCompile(`^(\d{4})(\d{2})$`)
	// 二〇二〇年五月
	dateChinese = regexp.MustCompile(`([〇零○一二三四五六七八九]{4})\s*年\s*([一二三四五六七八九十]{1,3})\s*月`)
)

// DateComparator compares year-month dates, rendered canonically as YYYY-MM
type DateComparator struct{}

// Canonical implements Comparator
func (DateComparator) Canonical(raw string) (string, bool) {
	return ParseYearMonth(raw)
}

// Equivalent implements Comparator
func (d DateComparator) Equivalent(a, b string) bool {
	return equalCanonical(d, a, b)
}

// ParseYearMonth extracts the first year-month in raw and formats it as YYYY-MM
func ParseYearMonth(raw string) (string, bool) {
	s := Fold(raw)

	if m := dateChinese.FindStringSubmatch(s); m != nil {
		year := chineseDigits(m[1])
		month, ok := ParseChineseInt(m[2])
		if ok {
			return formatYearMonth(year, strconv.Itoa(month))
		}
	}

	if m := dateSeparated.FindStringSubmatch(s); m != nil {
		return formatYearMonth(m[1], m[2])
	}

	if m := dateCompact.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		return formatYearMonth(m[1], m[2])
	}

	return "", false
}

// FindYearMonths returns every year-month in text, canonicalized, in order of appearance
func FindYearMonths(text string) []string {
	s := Fold(text)
	var out []string
	for _, m := range dateSeparated.FindAllStringSubmatch(s, -1) {
		if ym, ok := formatYearMonth(m[1], m[2]); ok {
			out = append(out, ym)
		}
	}
	for _, m := range dateChinese.FindAllStringSubmatch(s, -1) {
		if month, ok := ParseChineseInt(m[2]); ok {
			if ym, ok := formatYearMonth(chineseDigits(m[1]), strconv.Itoa(month)); ok {
				out = append(out, ym)
			}
		}
	}
	return out
}

func formatYearMonth(yearStr, monthStr string) (string, bool) {
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1900 || year > 2200 {
		return "", false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d", year, month), true
}

// chineseDigits maps digit-by-digit Chinese years ("二〇二〇") to Arabic
func chineseDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if d, ok := chineseDigit[r]; ok {
			b.WriteByte(byte('0' + d))
		}
	}
	return b.String()
}
