package model

// Property is a remote fact the enricher knows how to carry into the graph
type Property string

const (
	PropBirthDate  Property = "birthDate"
	PropBirthPlace Property = "birthPlace"
	PropPosition   Property = "position"
	PropDeathDate  Property = "deathDate"
	PropDeathPlace Property = "deathPlace"
	PropTeam       Property = "team"
)

// Properties lists every recognized property in query order
var Properties = []Property{
	PropBirthDate,
	PropBirthPlace,
	PropPosition,
	PropDeathDate,
	PropDeathPlace,
	PropTeam,
}

// Var is the SPARQL variable bound by the ontology predicate
func (p Property) Var() string {
	return string(p)
}

// RawVar is the SPARQL variable bound by the human-entered property predicate
func (p Property) RawVar() string {
	return string(p) + "Raw"
}

// IsDate reports whether values of this property are coerced as dates
func (p Property) IsDate() bool {
	return p == PropBirthDate || p == PropDeathDate
}

// Variants holds the two candidate values for one property in one row.
// A nil pointer means the OPTIONAL group did not match.
type Variants struct {
	Primary  *string `json:"primary,omitempty"`
	Fallback *string `json:"fallback,omitempty"`
}

// Value returns the primary value if present, else the fallback.
// Empty strings count as absent.
func (v Variants) Value() (string, bool) {
	if v.Primary != nil && *v.Primary != "" {
		return *v.Primary, true
	}
	if v.Fallback != nil && *v.Fallback != "" {
		return *v.Fallback, true
	}
	return "", false
}

// Binding is one result row of an entity lookup
type Binding struct {
	BirthDate  Variants `json:"birth_date"`
	BirthPlace Variants `json:"birth_place"`
	Position   Variants `json:"position"`
	DeathDate  Variants `json:"death_date"`
	DeathPlace Variants `json:"death_place"`
	Team       Variants `json:"team"`
}

// Variants returns the candidate pair for a property
func (b *Binding) Variants(p Property) *Variants {
	switch p {
	case PropBirthDate:
		return &b.BirthDate
	case PropBirthPlace:
		return &b.BirthPlace
	case PropPosition:
		return &b.Position
	case PropDeathDate:
		return &b.DeathDate
	case PropDeathPlace:
		return &b.DeathPlace
	case PropTeam:
		return &b.Team
	}
	return nil
}

// Value returns the preferred value of a property in this row
func (b Binding) Value(p Property) (string, bool) {
	v := b.Variants(p)
	if v == nil {
		return "", false
	}
	return v.Value()
}

// Set stores a value under its SPARQL variable name.
// Unknown variables are ignored and reported as false.
func (b *Binding) Set(variable, value string) bool {
	for _, p := range Properties {
		switch variable {
		case p.Var():
			b.Variants(p).Primary = &value
			return true
		case p.RawVar():
			b.Variants(p).Fallback = &value
			return true
		}
	}
	return false
}

// IsEmpty reports whether no property matched in this row
func (b Binding) IsEmpty() bool {
	for _, p := range Properties {
		if _, ok := b.Value(p); ok {
			return false
		}
	}
	return true
}
