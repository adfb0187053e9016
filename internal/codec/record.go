package codec

import (
	"encoding/json"
	"fmt"

	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/inspection"
)

// ItemRecord is the serialized form of an item. Images holds one reference
// per photo: a data URI in backups, a blob key in cloud manifests.
type ItemRecord struct {
	UID      int64               `json:"uid"`
	Type     inspection.Category `json:"type"`
	ID       string              `json:"id"`
	Location string              `json:"andar"`
	Note     string              `json:"obs,omitempty"`
	Details  json.RawMessage     `json:"details,omitempty"`
	Images   []string            `json:"images,omitempty"`
}

// ToRecord serializes it, turning each photo into a reference with ref.
// A nil ref drops the photos.
func ToRecord(it *inspection.Item, ref func(i int, img imaging.Image) (string, error)) (ItemRecord, error) {
	rec := ItemRecord{
		UID:      it.UID,
		Type:     it.Category,
		ID:       it.ID,
		Location: it.Location,
		Note:     it.Note,
	}
	if it.Details != nil {
		b, err := json.Marshal(it.Details)
		if err != nil {
			return rec, fmt.Errorf("marshal %s details: %w", it.Category, err)
		}
		rec.Details = b
	}
	if ref == nil {
		return rec, nil
	}
	for i, img := range it.Images {
		s, err := ref(i, img)
		if err != nil {
			return rec, err
		}
		rec.Images = append(rec.Images, s)
	}
	return rec, nil
}

// FromRecord rebuilds an item, resolving photo references with load. The
// item is not validated; adding it to a report does that.
func FromRecord(rec ItemRecord, load func(i int, ref string) (imaging.Image, error)) (*inspection.Item, error) {
	v, ok := inspection.Lookup(rec.Type)
	if !ok {
		return nil, fmt.Errorf("unknown item type %q", rec.Type)
	}
	details := v.New()
	if len(rec.Details) > 0 && string(rec.Details) != "null" {
		if err := json.Unmarshal(rec.Details, details); err != nil {
			return nil, fmt.Errorf("item %q details: %w", rec.ID, err)
		}
	}
	it := &inspection.Item{
		UID:      rec.UID,
		Category: rec.Type,
		ID:       rec.ID,
		Location: rec.Location,
		Note:     rec.Note,
		Details:  details,
	}
	if load == nil {
		return it, nil
	}
	for i, ref := range rec.Images {
		img, err := load(i, ref)
		if err != nil {
			return nil, err
		}
		it.Images = append(it.Images, img)
	}
	return it, nil
}

// PhotoName synthesizes the filename of the n-th photo of an item.
func PhotoName(uid int64, i int, mime string) string {
	return fmt.Sprintf("foto_%d_%d%s", uid, i+1, extension(mime))
}

func extension(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ".jpg"
}
