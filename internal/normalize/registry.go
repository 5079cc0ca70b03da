package normalize

import "github.com/ppiankov/textaudit/internal/model"

// Registry resolves the comparator for a field: a per-field override first, then the kind default
type Registry struct {
	byField map[model.FieldName]Comparator
	byKind  map[model.FieldKind]Comparator
}

// NewRegistry creates a registry with the built-in comparator for every field kind
func NewRegistry() *Registry {
	return &Registry{
		byField: make(map[model.FieldName]Comparator),
		byKind: map[model.FieldKind]Comparator{
			model.KindText:         TextComparator{},
			model.KindOrganization: OrganizationComparator{},
			model.KindPerson:       PersonComparator{},
			model.KindIdentifier:   ISBNComparator{},
			model.KindDate:         DateComparator{},
			model.KindEnum:         NewEnumComparator(DefaultEnumGroups()),
			model.KindNumeric:      NumericComparator{},
		},
	}
}

// Register overrides the comparator of a single field
func (r *Registry) Register(name model.FieldName, c Comparator) {
	r.byField[name] = c
}

// For returns the comparator for a field
func (r *Registry) For(f model.Field) Comparator {
	if c, ok := r.byField[f.Name]; ok {
		return c
	}
	if c, ok := r.byKind[f.Kind]; ok {
		return c
	}
	return TextComparator{}
}
