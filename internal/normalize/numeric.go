package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var chineseDigit = map[rune]int{
	'〇': 0, '零': 0, '○': 0,
	'一': 1, '壹': 1,
	'二': 2, '两': 2, '贰': 2,
	'三': 3, '叁': 3,
	'四': 4, '肆': 4,
	'五': 5, '伍': 5,
	'六': 6, '陆': 6,
	'七': 7, '柒': 7,
	'八': 8, '捌': 8,
	'九': 9, '玖': 9,
}

var chineseUnit = map[rune]int{'十': 10, '拾': 10, '百': 100, '佰': 100, '千': 1000, '仟': 1000}

var (
	arabicNumber  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	chineseNumber = regexp.MustCompile(`[〇零○一壹二两贰三叁四肆五伍六陆七柒八捌九玖十拾百佰千仟]+`)
)

// ParseChineseInt parses a Chinese numeral below ten thousand ("十二", "二十", "一百零五")
func ParseChineseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	total, current := 0, 0
	seen := false
	for _, r := range s {
		if d, ok := chineseDigit[r]; ok {
			current = d
			seen = true
			continue
		}
		unit, ok := chineseUnit[r]
		if !ok {
			return 0, false
		}
		if current == 0 {
			current = 1 // "十二" has an implicit leading one
		}
		total += current * unit
		current = 0
		seen = true
	}
	if !seen {
		return 0, false
	}
	return total + current, true
}

// NumericComparator compares counts written as Arabic or Chinese numerals with optional units.
// "第2版", "2", "二版" and "第二版" are all 2. "1.5万" is 1.5, matching the 万-denominated columns.
type NumericComparator struct{}

// Canonical implements Comparator
func (NumericComparator) Canonical(raw string) (string, bool) {
	v, ok := ParseNumber(raw)
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', -1, 64), true
}

// Equivalent implements Comparator
func (NumericComparator) Equivalent(a, b string) bool {
	va, okA := ParseNumber(a)
	vb, okB := ParseNumber(b)
	return okA && okB && math.Abs(va-vb) < 1e-9
}

// ParseNumber extracts the first number in raw. Arabic digits win over Chinese numerals.
func ParseNumber(raw string) (float64, bool) {
	s := Fold(raw)
	if m := arabicNumber.FindString(s); m != "" {
		v, err := strconv.ParseFloat(m, 64)
		return v, err == nil
	}
	if m := chineseNumber.FindString(strings.TrimSpace(s)); m != "" {
		if v, ok := ParseChineseInt(m); ok {
			return float64(v), true
		}
	}
	return 0, false
}
