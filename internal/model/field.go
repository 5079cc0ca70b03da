package model

// FieldName identifies one entry of the declaration field catalog.
// The value doubles as the column header in the review report.
type FieldName string

const (
	FieldInstitution    FieldName = "申报单位"
	FieldSubmissionType FieldName = "申报类型"
	FieldTitle          FieldName = "教材名称"
	FieldISBN           FieldName = "ISBN"
	FieldFirstEditor    FieldName = "第一主编/作者"
	FieldContributors   FieldName = "其他编写人员（前5人，不含主编）"
	FieldLanguage       FieldName = "主要语种类型"
	FieldPublisher      FieldName = "出版单位"
	FieldFirstEdition   FieldName = "初版时间"
	FieldMediaForm      FieldName = "载体形式"
	FieldCurrentEdition FieldName = "本版出版时间"
	FieldEditionNumber  FieldName = "版次"
	FieldLatestPrinting FieldName = "最新印次时间"
	FieldPrintingCount  FieldName = "总印次（各版累计）"
	FieldPrintRun       FieldName = "初版以来合计印数（万）"
	FieldKeyProject     FieldName = "是否为重点立项教材"
	FieldAwards         FieldName = "其他省部级以上项目获奖"
)

// FieldKind selects how a field value is normalized and compared
type FieldKind string

const (
	KindText         FieldKind = "text"         // Free text (titles, award lists)
	KindOrganization FieldKind = "organization" // Institutions and publishers
	KindPerson       FieldKind = "person"       // Editor / author names
	KindIdentifier   FieldKind = "identifier"   // ISBN
	KindDate         FieldKind = "date"         // YYYY-MM
	KindEnum         FieldKind = "enum"         // Closed set of choices
	KindNumeric      FieldKind = "numeric"      // Counts and quantities
)

// Field describes one catalog entry
type Field struct {
	Name FieldName
	Kind FieldKind

	// Description is sent to the extraction backend as the schema hint
	Description string

	// Aliases are labels under which the value may appear in attachment text
	Aliases []string

	// Verifiable marks fields of the reduced subset that are re-derived from attachments
	Verifiable bool
}

var catalog = []Field{
	{Name: FieldInstitution, Kind: KindOrganization, Description: "申报单位"},
	{Name: FieldSubmissionType, Kind: KindEnum, Description: "申报类型"},
	{
		Name:        FieldTitle,
		Kind:        KindText,
		Description: "申报教材名称",
		Aliases:     []string{"教材名称", "书名", "图书名称", "名称"},
		Verifiable:  true,
	},
	{
		Name:        FieldISBN,
		Kind:        KindIdentifier,
		Description: "ISBN",
		Aliases:     []string{"ISBN", "书号", "国际标准书号"},
		Verifiable:  true,
	},
	{
		Name:        FieldFirstEditor,
		Kind:        KindPerson,
		Description: "第一主编/作者",
		Aliases:     []string{"第一主编", "主编", "作者", "编著", "著者"},
		Verifiable:  true,
	},
	{Name: FieldContributors, Kind: KindText, Description: "其他编写人员（前5人，不含主编）"},
	{Name: FieldLanguage, Kind: KindEnum, Description: "主要语种类型"},
	{
		Name:        FieldPublisher,
		Kind:        KindOrganization,
		Description: "出版单位",
		Aliases:     []string{"出版单位", "出版社", "出版发行", "出版者"},
		Verifiable:  true,
	},
	{
		Name:        FieldFirstEdition,
		Kind:        KindDate,
		Description: "初版时间（XXXX-XX）",
		Aliases:     []string{"初版时间", "首版时间", "初版"},
		Verifiable:  true,
	},
	{
		Name:        FieldMediaForm,
		Kind:        KindEnum,
		Description: "载体形式",
		Aliases:     []string{"载体形式", "载体", "出版形式"},
		Verifiable:  true,
	},
	{
		Name:        FieldCurrentEdition,
		Kind:        KindDate,
		Description: "本版出版时间（XXXX-XX）",
		Aliases:     []string{"本版出版时间", "本版时间", "出版时间", "出版日期"},
		Verifiable:  true,
	},
	{
		Name:        FieldEditionNumber,
		Kind:        KindNumeric,
		Description: "版次",
		Aliases:     []string{"版次"},
		Verifiable:  true,
	},
	{
		Name:        FieldLatestPrinting,
		Kind:        KindDate,
		Description: "最新印次时间（XXXX-XX）",
		Aliases:     []string{"最新印次时间", "印次时间", "印刷时间", "印次"},
		Verifiable:  true,
	},
	{Name: FieldPrintingCount, Kind: KindNumeric, Description: "总印次（各版累计）"},
	{Name: FieldPrintRun, Kind: KindNumeric, Description: "初版以来合计印数（万）"},
	{Name: FieldKeyProject, Kind: KindEnum, Description: "是否为重点立项教材"},
	{Name: FieldAwards, Kind: KindText, Description: "其他省部级以上项目获奖"},
}

// Catalog returns the full ordered field catalog
func Catalog() []Field {
	out := make([]Field, len(catalog))
	copy(out, catalog)
	return out
}

// CatalogNames returns the ordered names of the full catalog
func CatalogNames() []FieldName {
	names := make([]FieldName, len(catalog))
	for i, f := range catalog {
		names[i] = f.Name
	}
	return names
}

// Reduced returns the ordered subset of fields that attachments are expected to carry
func Reduced() []Field {
	var out []Field
	for _, f := range catalog {
		if f.Verifiable {
			out = append(out, f)
		}
	}
	return out
}

// Lookup finds a catalog field by name
func Lookup(name FieldName) (Field, bool) {
	for _, f := range catalog {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
