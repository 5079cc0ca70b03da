package reconcile

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ppiankov/textaudit/internal/extract"
	"github.com/ppiankov/textaudit/internal/model"
	"github.com/ppiankov/textaudit/internal/normalize"
)

// Origin says how a candidate was found in attachment text
type Origin string

const (
	OriginImprint Origin = "imprint" // Edition/printing line of the copyright page
	OriginLabel   Origin = "label"   // "label：value" or a table row
	OriginISBN    Origin = "isbn"    // ISBN-prefixed token
	OriginScan    Origin = "scan"    // Bare token anywhere in the text
)

// Candidate is one value located in attachment text.
// Only anchored candidates are specific enough to contradict the form.
type Candidate struct {
	Value    string
	Origin   Origin
	Anchored bool
}

var (
	ymPattern  = `(\d{4}\s*(?:年|[-./])\s*\d{1,2}\s*月?)`
	numPattern = `([0-9〇零一二三四五六七八九十百]+)`

	// 2018年3月第1版
	editionLine = regexp.MustCompile(ymPattern + `[^\d\n]{0,8}?第\s*` + numPattern + `\s*版`)
	// 2023年7月第5次印刷, 2023年7月第2版第5次印刷
	printingLine = regexp.MustCompile(ymPattern + `[^\d\n]{0,8}?(?:第\s*[0-9〇零一二三四五六七八九十]+\s*版\s*)?第\s*` + numPattern + `\s*次\s*印刷`)
	// ISBN 978-7-04-012345-7, 书号：978...; the capture stops at thirteen or ten digits
	isbnLabeled = regexp.MustCompile(`(?i)(?:ISBN|书号)[\s:：]*(97[89][-\s]?(?:\d[-\s]?){9}\d|\d(?:[-\s]?\d){8}[-\s]?[\dX])`)
	// Splits "书名：运筹学    作者：张三" into pairs
	pairSplit = regexp.MustCompile(`\s{2,}|\t|　`)
	// CIP separators, as in "高等数学 / 张三主编. \u2014北京：高等教育出版社，2020.5"
	segmentSplit = regexp.MustCompile(`[\t|/，,；;、。：:]|[\x{2013}-\x{2015}]+|\s{2,}|　`)
)

type imprint struct {
	number int
	date   string
}

// Index is the searchable form of the concatenated attachment renderings
type Index struct {
	text      string
	cleaned   string
	labels    map[string][]string // cleaned label → values in order of appearance
	editions  []imprint
	printings []imprint
	isbns     []string // ISBN-prefixed tokens, raw
	scanISBNs []string // bare ISBN-13 tokens, canonical
	dates     []string // every year-month, canonical
	segments  []string // delimited runs of text, folded
}

// NewIndex parses attachment text once for all field lookups
func NewIndex(text string) *Index {
	text = extract.FlattenTables(text)
	folded := normalize.Fold(text)

	idx := &Index{
		text:    text,
		cleaned: normalize.Clean(text),
		labels:  make(map[string][]string),
		dates:   normalize.FindYearMonths(text),
	}

	idx.parseImprints(folded)
	idx.parseLabels(text)
	idx.parseSegments(folded)

	for _, m := range isbnLabeled.FindAllStringSubmatch(folded, -1) {
		idx.isbns = append(idx.isbns, strings.TrimSpace(m[1]))
	}
	for _, isbn := range normalize.FindISBNs(text) {
		if ValidScanISBN(isbn) {
			idx.scanISBNs = append(idx.scanISBNs, isbn)
		}
	}

	return idx
}

// ValidScanISBN accepts bare tokens only when they carry a correct check digit
func ValidScanISBN(isbn string) bool {
	return normalize.ValidISBN13(isbn)
}

func (idx *Index) parseImprints(folded string) {
	for _, m := range printingLine.FindAllStringSubmatch(folded, -1) {
		if ip, ok := newImprint(m[1], m[2]); ok {
			idx.printings = append(idx.printings, ip)
		}
	}

	for _, loc := range editionLine.FindAllStringSubmatchIndex(folded, -1) {
		// "2023年7月第2版第5次印刷" dates the printing, not the edition
		rest := folded[loc[1]:]
		if printingAfter(rest) {
			continue
		}
		if ip, ok := newImprint(folded[loc[2]:loc[3]], folded[loc[4]:loc[5]]); ok {
			idx.editions = append(idx.editions, ip)
		}
	}

	byNumber := func(list []imprint) func(i, j int) bool {
		return func(i, j int) bool {
			if list[i].number != list[j].number {
				return list[i].number < list[j].number
			}
			return list[i].date < list[j].date
		}
	}
	sort.SliceStable(idx.editions, byNumber(idx.editions))
}

var printingPrefix = regexp.MustCompile(`^\s*第\s*[0-9〇零一二三四五六七八九十百]+\s*次\s*印刷`)

func printingAfter(s string) bool {
	return printingPrefix.MatchString(s)
}

func newImprint(dateRaw, numRaw string) (imprint, bool) {
	date, ok := normalize.ParseYearMonth(dateRaw)
	if !ok {
		return imprint{}, false
	}
	n, ok := normalize.ParseNumber(numRaw)
	if !ok || n < 1 {
		return imprint{}, false
	}
	return imprint{number: int(n), date: date}, true
}

func (idx *Index) parseLabels(text string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "|") {
			idx.parseRow(line)
			continue
		}

		for _, segment := range pairSplit.Split(line, -1) {
			if key, value, ok := splitPair(segment); ok {
				idx.addLabel(key, value)
			}
		}
	}
}

// parseRow reads "| 书名 | 运筹学 | 作者 | 张三 |" as alternating label/value cells
// and "| 书名：运筹学 |" as a pair within one cell
func (idx *Index) parseRow(line string) {
	var cells []string
	for _, c := range strings.Split(strings.Trim(line, "|"), "|") {
		cells = append(cells, strings.TrimSpace(c))
	}

	for i := 0; i < len(cells); i++ {
		if key, value, ok := splitPair(cells[i]); ok {
			idx.addLabel(key, value)
			continue
		}
		if i+1 < len(cells) && !isSeparatorCell(cells[i]) && cells[i+1] != "" && !isSeparatorCell(cells[i+1]) {
			idx.addLabel(cells[i], cells[i+1])
		}
	}
}

func isSeparatorCell(s string) bool {
	return strings.Trim(s, "-: ") == ""
}

func splitPair(s string) (string, string, bool) {
	i := strings.IndexAny(s, ":：")
	if i <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(s[:i])
	value := strings.TrimSpace(strings.TrimLeft(s[i:], ":："))
	if key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}

func (idx *Index) addLabel(key, value string) {
	k := normalize.Clean(key)
	if k == "" || normalize.IsPlaceholder(value) {
		return
	}
	idx.labels[k] = append(idx.labels[k], value)
}

// Candidates returns the values located for a field, anchored ones first
func (idx *Index) Candidates(f model.Field) []Candidate {
	var out []Candidate
	add := func(v string, o Origin, anchored bool) {
		for _, c := range out {
			if c.Value == v {
				return
			}
		}
		out = append(out, Candidate{Value: v, Origin: o, Anchored: anchored})
	}

	switch f.Name {
	case model.FieldFirstEdition:
		for _, e := range idx.editions {
			if e.number == 1 {
				add(e.date, OriginImprint, true)
			}
		}
	case model.FieldCurrentEdition:
		if e, ok := last(idx.editions); ok {
			add(e.date, OriginImprint, true)
		}
	case model.FieldEditionNumber:
		if e, ok := last(idx.editions); ok {
			add(strconv.Itoa(e.number), OriginImprint, true)
		}
	case model.FieldLatestPrinting:
		if p, ok := latest(idx.printings); ok {
			add(p.date, OriginImprint, true)
		}
	case model.FieldISBN:
		for _, v := range idx.isbns {
			add(v, OriginISBN, true)
		}
	}

	for _, alias := range f.Aliases {
		for _, v := range idx.labels[normalize.Clean(alias)] {
			add(v, OriginLabel, true)
		}
	}

	switch f.Kind {
	case model.KindIdentifier:
		for _, v := range idx.scanISBNs {
			add(v, OriginScan, false)
		}
	case model.KindDate:
		for _, v := range idx.dates {
			add(v, OriginScan, false)
		}
	}

	return out
}

func (idx *Index) parseSegments(folded string) {
	add := func(seg string) {
		if seg = strings.TrimFunc(seg, isSegmentEdge); seg != "" {
			idx.segments = append(idx.segments, seg)
		}
	}
	for _, line := range strings.Split(folded, "\n") {
		// Whole lines keep titles such as "运筹学:理论与应用" intact
		add(line)
		for _, seg := range segmentSplit.Split(line, -1) {
			add(seg)
		}
	}
}

// isSegmentEdge trims spacing and the full stop of "张三主编." while keeping closing brackets
func isSegmentEdge(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(".·…", r)
}

// Segments returns the delimited runs of text that contain a canonical value.
// A run is the whole token between separators, so "数学" yields "高等数学", never "数学".
func (idx *Index) Segments(canonical string) []string {
	want := normalize.Clean(canonical)
	if want == "" || !strings.Contains(idx.cleaned, want) {
		return nil
	}
	var out []string
	for _, seg := range idx.segments {
		if strings.Contains(normalize.Clean(seg), want) {
			out = append(out, seg)
		}
	}
	return out
}

func last(list []imprint) (imprint, bool) {
	if len(list) == 0 {
		return imprint{}, false
	}
	return list[len(list)-1], true
}

// latest picks the most recent printing; numbering restarts per edition, so dates decide
func latest(list []imprint) (imprint, bool) {
	var best imprint
	found := false
	for _, p := range list {
		if !found || p.date > best.date || (p.date == best.date && p.number > best.number) {
			best, found = p, true
		}
	}
	return best, found
}
