package normalize

import (
	"regexp"
	"strings"
)

// isbnToken matches ISBN-10/13 written with or without hyphens and spaces
var isbnToken = regexp.MustCompile(`(?:97[89][-\s]?)?\d{1,5}[-\s]?\d{1,7}[-\s]?\d{1,7}[-\s]?[\dX]`)

// ISBNComparator compares ISBNs by digits, treating ISBN-10 and its ISBN-13 form as equal
type ISBNComparator struct{}

// Canonical implements Comparator. The result is always a 13-digit ISBN.
func (ISBNComparator) Canonical(raw string) (string, bool) {
	return CanonicalISBN(raw)
}

// Equivalent implements Comparator
func (i ISBNComparator) Equivalent(a, b string) bool {
	return equalCanonical(i, a, b)
}

// CanonicalISBN strips separators and the "ISBN" prefix and converts ISBN-10 to ISBN-13.
// The check digit is kept as written, so a wrong check digit stays distinguishable.
func CanonicalISBN(raw string) (string, bool) {
	s := strings.ToUpper(Fold(raw))
	s = strings.ReplaceAll(s, "ISBN", "")

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == 'X' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch len(digits) {
	case 13:
		if strings.ContainsRune(digits, 'X') {
			return "", false
		}
		return digits, true
	case 10:
		if strings.ContainsRune(digits[:9], 'X') {
			return "", false
		}
		core := "978" + digits[:9]
		return core + isbn13Check(core), true
	}
	return "", false
}

// FindISBNs returns every ISBN-shaped token in text, canonicalized and de-duplicated
func FindISBNs(text string) []string {
	s := strings.ToUpper(Fold(text))
	seen := make(map[string]bool)
	var out []string
	for _, m := range isbnToken.FindAllString(s, -1) {
		if c, ok := CanonicalISBN(m); ok && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// ValidISBN13 reports whether a canonical ISBN-13 carries a correct check digit
func ValidISBN13(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}
	return isbn13Check(isbn[:12]) == isbn[12:]
}

func isbn13Check(first12 string) string {
	sum := 0
	for i, r := range first12 {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return string(rune('0' + (10-sum%10)%10))
}
