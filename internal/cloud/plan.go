package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/unee-t/firecheck/internal/codec"
	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/inspection"
	"github.com/unee-t/firecheck/internal/report"
)

// Manifest is the stored report document. Image references are blob keys
// as planned and blob URLs once published.
type Manifest struct {
	ID         string                `json:"id"`
	UserID     string                `json:"userId"`
	Header     report.Header         `json:"header"`
	Items      []codec.ItemRecord    `json:"items"`
	Signatures codec.SignatureRecord `json:"signatures"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// Blob is one image to upload under Key. Item is the creation token of the
// owning item, zero for signatures.
type Blob struct {
	Key   string
	Item  int64
	Image imaging.Image
}

// Fetcher loads an image by reference.
type Fetcher func(ctx context.Context, ref string) (imaging.Image, error)

// PhotoKey addresses the n-th photo of an item. The creation token stands
// for the item so that general notes, which share an ID, never collide.
func PhotoKey(user, reportID string, uid int64, n int) string {
	return fmt.Sprintf("%s/%s/%d/%d", user, reportID, uid, n)
}

// SignatureKey addresses a signature slot ("tecnico" or "cliente").
func SignatureKey(user, reportID, slot string) string {
	return fmt.Sprintf("%s/%s/signatures/%s", user, reportID, slot)
}

// Plan splits a into the manifest to store and the blobs to upload.
func Plan(user, reportID string, a *report.Aggregate) (Manifest, []Blob, error) {
	m := Manifest{ID: reportID, UserID: user, Header: a.Header, Items: []codec.ItemRecord{}}
	var blobs []Blob
	for _, it := range a.Items() {
		uid := it.UID
		rec, err := codec.ToRecord(it, func(i int, img imaging.Image) (string, error) {
			key := PhotoKey(user, reportID, uid, i)
			blobs = append(blobs, Blob{Key: key, Item: uid, Image: img})
			return key, nil
		})
		if err != nil {
			return m, nil, err
		}
		m.Items = append(m.Items, rec)
	}
	if s := a.Signatures.Technician; s != nil && !s.Empty() {
		m.Signatures.Technician = SignatureKey(user, reportID, "tecnico")
		blobs = append(blobs, Blob{Key: m.Signatures.Technician, Image: *s})
	}
	if s := a.Signatures.Client; s != nil && !s.Empty() {
		m.Signatures.Client = SignatureKey(user, reportID, "cliente")
		blobs = append(blobs, Blob{Key: m.Signatures.Client, Image: *s})
	}
	return m, blobs, nil
}

// Reconstruct rebuilds the report described by m, loading every image
// through fetch.
func Reconstruct(ctx context.Context, m Manifest, fetch Fetcher) (*report.Aggregate, error) {
	items := make([]*inspection.Item, 0, len(m.Items))
	for _, rec := range m.Items {
		uid := rec.UID
		it, err := codec.FromRecord(rec, func(i int, ref string) (imaging.Image, error) {
			img, err := fetch(ctx, ref)
			if err != nil {
				return img, err
			}
			img.Name = codec.PhotoName(uid, i, img.MIME)
			return img, nil
		})
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	a := report.New()
	a.Header = m.Header
	if err := a.ReplaceItems(items); err != nil {
		return nil, err
	}
	var err error
	if a.Signatures.Technician, err = fetchSignature(ctx, fetch, m.Signatures.Technician, "assinatura_tecnico.png"); err != nil {
		return nil, err
	}
	if a.Signatures.Client, err = fetchSignature(ctx, fetch, m.Signatures.Client, "assinatura_cliente.png"); err != nil {
		return nil, err
	}
	return a, nil
}

func fetchSignature(ctx context.Context, fetch Fetcher, ref, name string) (*imaging.Image, error) {
	if ref == "" {
		return nil, nil
	}
	img, err := fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	img.Name = name
	return &img, nil
}
