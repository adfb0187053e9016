// Package inspection models the equipment checked during a fire-safety
// inspection. Each category is a variant registered in a lookup table that
// owns its form decoding and validation.
package inspection

// Category tags an Item. Values are the codes stored in reports and
// spreadsheets.
type Category string

const (
	CategoryHydrant           Category = "hidrante"
	CategoryExtinguisher      Category = "extintor"
	CategoryLight             Category = "luz"
	CategoryPump              Category = "bomba"
	CategorySignage           Category = "sinalizacao"
	CategoryElectromechanical Category = "eletro"
	CategoryGeneral           Category = "geral"
)

// Canonical is the order categories appear in the report.
var Canonical = []Category{
	CategoryHydrant,
	CategoryExtinguisher,
	CategoryLight,
	CategorySignage,
	CategoryElectromechanical,
	CategoryPump,
	CategoryGeneral,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := variants[c]
	return ok
}

// Rank is the position of c in Canonical; unknown categories sort last.
func (c Category) Rank() int {
	for i, k := range Canonical {
		if k == c {
			return i
		}
	}
	return len(Canonical)
}

// Label is the upper-case name printed in the photo annex.
func (c Category) Label() string {
	if v, ok := variants[c]; ok {
		return v.Label
	}
	return string(c)
}

func (c Category) String() string { return string(c) }
