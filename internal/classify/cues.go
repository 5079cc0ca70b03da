package classify

import (
	"path/filepath"
	"strings"

	"github.com/ppiankov/textaudit/internal/model"
	"github.com/ppiankov/textaudit/internal/normalize"
)

type cue int

const (
	cueNone cue = iota
	cueForm
	cueAttachment  // "附件" without a number
	cueAttachment1
	cueAttachment2
)

var (
	attachment1Cues = []string{"附件1", "附件一", "attachment1", "att1", "annex1"}
	attachment2Cues = []string{"附件2", "附件二", "attachment2", "att2", "annex2"}
	attachmentCues  = []string{"附件", "attachment", "annex"}
	formCues        = []string{"申报书", "申报表", "申请表", "申请书", "推荐表", "application", "form"}
)

// nameCue reads the role hint in a file name. Numbered attachment cues win
// over form cues, so "申报书附件1.pdf" is an attachment.
func nameCue(name string) cue {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	key := strings.ToLower(base)
	key = strings.NewReplacer(" ", "", "_", "", "-", "", "　", "", "（", "", "）", "", "(", "", ")", "").Replace(key)

	switch {
	case containsAny(key, attachment1Cues):
		return cueAttachment1
	case containsAny(key, attachment2Cues):
		return cueAttachment2
	case containsAny(key, formCues):
		return cueForm
	case containsAny(key, attachmentCues):
		return cueAttachment
	}
	return cueNone
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// LabelDensity counts how many catalog fields have their label in text.
// Application forms carry most of the catalog; attachments only a few.
func LabelDensity(text string) int {
	folded := normalize.Clean(text)
	count := 0
	for _, f := range model.Catalog() {
		for _, label := range labelKeys(f.Name) {
			if strings.Contains(folded, label) {
				count++
				break
			}
		}
	}
	return count
}

// labelKeys drops the parenthetical qualifier and splits alternatives,
// "其他编写人员（前5人，不含主编）" → ["其他编写人员"]
func labelKeys(name model.FieldName) []string {
	s := string(name)
	if i := strings.IndexAny(s, "（("); i > 0 {
		s = s[:i]
	}
	var keys []string
	for _, part := range strings.Split(s, "/") {
		if k := normalize.Clean(part); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
