package inspection

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/unee-t/firecheck/internal/imaging"
)

// Values written for general notes, which have no tag or location.
const (
	GeneralID       = "Geral"
	GeneralLocation = "-"
)

// Item is one inspected piece of equipment or a general note.
type Item struct {
	UID      int64 // creation token, unique per report
	Category Category
	ID       string // equipment tag, compared case-insensitively
	Location string
	Note     string
	Images   []imaging.Image
	Details  Details
}

// Details holds the category-specific fields of an Item.
type Details interface {
	Category() Category
	check(note string) error
}

// Clone copies the item; image bytes are shared.
func (it *Item) Clone() *Item {
	c := *it
	c.Images = append([]imaging.Image(nil), it.Images...)
	return &c
}

// Validate checks the invariants that hold for every stored item.
func (it *Item) Validate() error {
	v, ok := variants[it.Category]
	if !ok {
		return &ValidationError{Field: "type", Code: CodeUnknown, Message: fmt.Sprintf("Tipo de item desconhecido: %q.", it.Category)}
	}
	if it.Details == nil {
		it.Details = v.New()
	}
	if it.Details.Category() != it.Category {
		return &ValidationError{Field: "type", Code: CodeConflict, Message: "Dados do item não correspondem ao tipo."}
	}
	if it.Category == CategoryGeneral {
		it.ID, it.Location = GeneralID, GeneralLocation
	} else if strings.TrimSpace(it.Location) == "" || strings.TrimSpace(it.ID) == "" {
		return required("andar", "Preencha o Local e a Identificação do item.")
	}
	return it.Details.check(it.Note)
}

// SameID reports whether two items carry the same tag. General notes never
// collide.
func (it *Item) SameID(other *Item) bool {
	if it.Category == CategoryGeneral || other.Category == CategoryGeneral {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(it.ID), strings.TrimSpace(other.ID))
}

// Title is the one-line caption used in the item list.
func (it *Item) Title() string {
	if it.Category != CategoryGeneral {
		return it.ID + " | " + it.Location
	}
	note := strings.TrimSpace(it.Note)
	if note == "" {
		return "Observação Geral"
	}
	if utf8.RuneCountInString(note) > 30 {
		return string([]rune(note)[:30]) + "..."
	}
	return note
}

// Label identifies the item in the photo annex.
func (it *Item) Label() string {
	if it.Category == CategoryGeneral {
		return "OBSERVAÇÃO GERAL"
	}
	return fmt.Sprintf("%s - %s (%s)", it.Category.Label(), it.ID, it.Location)
}

// ShortLabel is printed when an item's photos continue on a new page.
func (it *Item) ShortLabel() string {
	if it.Category == CategoryGeneral {
		return "OBSERVAÇÃO GERAL (cont.)"
	}
	return it.ID + " (cont.)"
}
