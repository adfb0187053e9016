// Package report holds an inspection report in memory: its header, its
// items and the two signatures, plus the single-slot edit buffer.
package report

import (
	"errors"

	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/inspection"
)

var (
	// ErrNotFound is returned when no item has the given creation token.
	ErrNotFound = errors.New("item not found")
	// ErrEditInProgress is returned when an edit is started before the
	// pending one is saved or cancelled.
	ErrEditInProgress = errors.New("another item is being edited")
)

// Signatures are the raster captures of the signature pads. A nil slot
// prints a blank line.
type Signatures struct {
	Technician *imaging.Image
	Client     *imaging.Image
}

// Aggregate is a full inspection report. It is not safe for concurrent use;
// the owning session serializes access.
type Aggregate struct {
	Header     Header
	Signatures Signatures

	items   []*inspection.Item
	editing *inspection.Item
}

// New returns an empty report.
func New() *Aggregate {
	return &Aggregate{}
}

// Len is the number of stored items, excluding one being edited.
func (a *Aggregate) Len() int { return len(a.items) }

// Items returns the items in insertion order. The slice is a copy.
func (a *Aggregate) Items() []*inspection.Item {
	return append([]*inspection.Item(nil), a.items...)
}

// Editing returns the item in the edit buffer, if any.
func (a *Aggregate) Editing() *inspection.Item { return a.editing }

// Add validates it and appends it. A pending edit is resolved by the add:
// the form that held the edited item is what is being saved.
func (a *Aggregate) Add(it *inspection.Item) error {
	if err := check(it, a.items); err != nil {
		return err
	}
	assignToken(it, a.items)
	a.items = append(a.items, it)
	a.editing = nil
	return nil
}

func check(it *inspection.Item, against []*inspection.Item) error {
	if err := it.Validate(); err != nil {
		return err
	}
	for _, other := range against {
		if it.SameID(other) {
			return inspection.DuplicateID(it.ID)
		}
	}
	return nil
}

// assignToken gives it a fresh creation token when it has none or when its
// token is already taken.
func assignToken(it *inspection.Item, against []*inspection.Item) {
	if it.UID != 0 {
		taken := false
		for _, other := range against {
			if other.UID == it.UID {
				taken = true
				break
			}
		}
		if !taken {
			return
		}
	}
	it.UID = inspection.NewToken()
}

// Remove deletes the item with the given token. Missing tokens are ignored.
func (a *Aggregate) Remove(uid int64) {
	if i := a.index(uid); i >= 0 {
		a.items = append(a.items[:i], a.items[i+1:]...)
	}
}

// Edit moves the item into the edit buffer and returns it.
func (a *Aggregate) Edit(uid int64) (*inspection.Item, error) {
	if a.editing != nil {
		return nil, ErrEditInProgress
	}
	i := a.index(uid)
	if i < 0 {
		return nil, ErrNotFound
	}
	it := a.items[i]
	a.items = append(a.items[:i], a.items[i+1:]...)
	a.editing = it
	return it, nil
}

// CancelEdit puts the buffered item back unchanged.
func (a *Aggregate) CancelEdit() {
	if a.editing == nil {
		return
	}
	a.items = append(a.items, a.editing)
	a.editing = nil
}

// SortedView returns the items in display order without touching storage.
func (a *Aggregate) SortedView(order Order) []*inspection.Item {
	out := a.Items()
	sortItems(out, order)
	return out
}

// ByCategory returns the stored items of category c in insertion order.
func (a *Aggregate) ByCategory(c inspection.Category) []*inspection.Item {
	var out []*inspection.Item
	for _, it := range a.items {
		if it.Category == c {
			out = append(out, it)
		}
	}
	return out
}

// ReplaceItems swaps the whole item list after validating every item and
// tag uniqueness. On error nothing changes.
func (a *Aggregate) ReplaceItems(items []*inspection.Item) error {
	next := make([]*inspection.Item, 0, len(items))
	for _, it := range items {
		if err := check(it, next); err != nil {
			return err
		}
		assignToken(it, next)
		next = append(next, it)
	}
	a.items = next
	a.editing = nil
	return nil
}

func (a *Aggregate) index(uid int64) int {
	for i, it := range a.items {
		if it.UID == uid {
			return i
		}
	}
	return -1
}
