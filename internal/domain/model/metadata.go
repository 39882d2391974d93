package model

// VariableOption is the uniform shape of a dynamic-table reference list item,
// whichever of the four provider schemas it came from.
type VariableOption struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Code      string `json:"code,omitempty"`
	Group     string `json:"group,omitempty"`
	GroupName string `json:"group_name,omitempty"`
}

// DynamicMetadata holds the reference lists needed to request dynamic-table data.
// SourceDomain is the domain the lists were actually fetched from, which may be
// NationalDomainID after fallback.
type DynamicMetadata struct {
	VerticalVars   []VariableOption `json:"vertical_vars"`
	HorizontalVars []VariableOption `json:"horizontal_vars"`
	Years          []VariableOption `json:"years"`
	DerivedYears   []VariableOption `json:"derived_years"`
	SourceDomain   string           `json:"source_domain"`
}

// Complete reports whether the vertical, horizontal and year lists are all
// non-empty. Incomplete metadata cannot be used to request data.
func (m DynamicMetadata) Complete() bool {
	return len(m.VerticalVars) > 0 && len(m.HorizontalVars) > 0 && len(m.Years) > 0
}

// SelectionMode tells a renderer how many options of a group may be chosen.
type SelectionMode string

const (
	SingleChoice SelectionMode = "single"
	MultiChoice  SelectionMode = "multi"
)

// OptionGroup is one choice group a renderer presents to the user.
type OptionGroup struct {
	Name      string           `json:"name"`
	Param     string           `json:"param"`
	Selection SelectionMode    `json:"selection"`
	Options   []VariableOption `json:"options"`
}

// OptionGroups returns the metadata as an ordered list of choice groups. Empty
// categories are omitted.
func (m DynamicMetadata) OptionGroups() []OptionGroup {
	candidates := []OptionGroup{
		{Name: "Vertical variable", Param: "vervar", Selection: SingleChoice, Options: m.VerticalVars},
		{Name: "Horizontal variable", Param: "turvar", Selection: MultiChoice, Options: m.HorizontalVars},
		{Name: "Year", Param: "th", Selection: SingleChoice, Options: m.Years},
		{Name: "Derived period", Param: "turth", Selection: MultiChoice, Options: m.DerivedYears},
	}

	groups := make([]OptionGroup, 0, len(candidates))
	for _, g := range candidates {
		if len(g.Options) == 0 {
			continue
		}
		groups = append(groups, g)
	}
	return groups
}

// FindOption returns the option with the given ID, if present.
func FindOption(opts []VariableOption, id string) (VariableOption, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return VariableOption{}, false
}
