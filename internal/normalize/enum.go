package normalize

// EnumComparator maps synonyms of a closed choice set onto one key.
// Values outside the table fall back to their cleaned text.
type EnumComparator struct {
	synonyms map[string]string
}

// NewEnumComparator builds a comparator from key → synonyms groups
func NewEnumComparator(groups map[string][]string) *EnumComparator {
	c := &EnumComparator{synonyms: make(map[string]string)}
	for key, words := range groups {
		c.synonyms[Clean(key)] = key
		for _, w := range words {
			c.synonyms[Clean(w)] = key
		}
	}
	return c
}

// DefaultEnumGroups covers the choice fields of the declaration form
func DefaultEnumGroups() map[string][]string {
	return map[string][]string{
		// 载体形式
		"纸质":   {"纸质教材", "纸质版", "纸本", "纸质书", "印刷版", "纸质图书"},
		"数字":   {"数字教材", "数字版", "电子", "电子版", "电子书", "电子教材", "数字化教材"},
		"纸数融合": {"纸质+数字", "纸质教材+数字资源", "纸质+数字资源", "新形态", "新形态教材", "融媒体教材", "纸数一体"},

		// 是否为重点立项教材
		"是": {"y", "yes", "true", "有"},
		"否": {"n", "no", "false", "无"},

		// 主要语种类型
		"中文": {"汉语", "简体中文", "汉文"},
		"英文": {"英语", "english"},
	}
}

// Canonical implements Comparator
func (c *EnumComparator) Canonical(raw string) (string, bool) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return "", false
	}
	if key, ok := c.synonyms[cleaned]; ok {
		return key, true
	}
	return cleaned, true
}

// Equivalent implements Comparator
func (c *EnumComparator) Equivalent(a, b string) bool {
	return equalCanonical(c, a, b)
}
