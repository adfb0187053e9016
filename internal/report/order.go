package report

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/unee-t/firecheck/internal/inspection"
)

// Order selects how the item list is displayed.
type Order string

const (
	OrderNewest       Order = "newest"
	OrderOldest       Order = "oldest"
	OrderAlphabetical Order = "alphabetical"
)

// ParseOrder defaults to newest first.
func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return OrderNewest, nil
	case OrderNewest, OrderOldest, OrderAlphabetical:
		return o, nil
	}
	return "", fmt.Errorf("unknown order %q", s)
}

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.BrazilianPortuguese, collate.Numeric, collate.IgnoreCase, collate.IgnoreDiacritics)
)

// CompareIDs orders equipment tags the way a person reads them: digits by
// value, letters without case or accents, so "H-2" comes before "H-10".
func CompareIDs(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

func sortItems(items []*inspection.Item, order Order) {
	switch order {
	case OrderOldest:
		sort.SliceStable(items, func(i, j int) bool { return items[i].UID < items[j].UID })
	case OrderAlphabetical:
		sort.SliceStable(items, func(i, j int) bool {
			if c := CompareIDs(items[i].ID, items[j].ID); c != 0 {
				return c < 0
			}
			return items[i].UID < items[j].UID
		})
	default:
		sort.SliceStable(items, func(i, j int) bool { return items[i].UID > items[j].UID })
	}
}

// ByCategoryThenID is the photo annex order: canonical category order, then
// tag, then creation.
func ByCategoryThenID(items []*inspection.Item) []*inspection.Item {
	out := append([]*inspection.Item(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := a.Category.Rank(), b.Category.Rank(); ra != rb {
			return ra < rb
		}
		if c := CompareIDs(a.ID, b.ID); c != 0 {
			return c < 0
		}
		return a.UID < b.UID
	})
	return out
}
