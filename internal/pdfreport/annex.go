package pdfreport

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/inspection"
	"github.com/unee-t/firecheck/internal/report"
)

// Photo annex grid.
const (
	photoSize   = 85.0
	photoGap    = 12.0
	photoRow    = photoSize + 10
	groupHeight = 6.0
)

// embeddable returns img as a JPEG that fpdf can embed, together with its
// pixel size. The format is sniffed from the bytes; the declared MIME type
// is not trusted. Anything that is not already a JPEG is re-encoded.
func embeddable(img imaging.Image) (imaging.Image, int, int, error) {
	if img.Empty() {
		return img, 0, 0, &imaging.EncodingError{Name: img.Name, Err: fmt.Errorf("no data")}
	}
	src, format, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return img, 0, 0, &imaging.EncodingError{Name: img.Name, Err: err}
	}
	if format != "jpeg" {
		img.MIME = "image/" + format
		out, err := imaging.Normalize(img, 0, 0.9)
		if err != nil {
			return img, 0, 0, err
		}
		b := src.Bounds()
		return out, b.Dx(), b.Dy(), nil
	}
	img.MIME = "image/jpeg"
	b := src.Bounds()
	return img, b.Dx(), b.Dy(), nil
}

// fit scales a w×h picture into a box, centered.
func fit(w, h int, x, y, bw, bh float64) (float64, float64, float64, float64) {
	s := math.Min(bw/float64(w), bh/float64(h))
	dw, dh := float64(w)*s, float64(h)*s
	return x + (bw-dw)/2, y + (bh-dh)/2, dw, dh
}

type annexPhoto struct {
	img  imaging.Image
	w, h int
	n    int
}

type annexGroup struct {
	item   *inspection.Item
	photos []annexPhoto
}

// annexGroups collects the drawable photos of every item, ordered by
// category then natural ID. Undecodable photos are logged and dropped.
func (l *layout) annexGroups(items []*inspection.Item) []annexGroup {
	var groups []annexGroup
	for _, it := range report.ByCategoryThenID(items) {
		if len(it.Images) == 0 {
			continue
		}
		g := annexGroup{item: it}
		for i, raw := range it.Images {
			img, w, h, err := embeddable(raw)
			if err != nil {
				l.log.WithError(err).WithField("item", it.Label()).WithField("photo", raw.Name).Warn("skipping photo")
				l.doc.Skipped = append(l.doc.Skipped, raw.Name)
				continue
			}
			g.photos = append(g.photos, annexPhoto{img: img, w: w, h: h, n: i + 1})
		}
		if len(g.photos) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

func (l *layout) groupBar(label string) {
	l.fill(marginX, l.y, contentWidth, groupHeight, slate100)
	l.text(marginX+2, l.y+4, label, "B", 8, slate900, alignLeft)
	l.y += groupHeight + 2
}

// annex prints the photographic appendix: a two-column grid per item under
// a labelled bar, the bar repeated in short form when an item continues on a
// new page.
func (l *layout) annex(items []*inspection.Item) {
	groups := l.annexGroups(items)
	if len(groups) == 0 {
		return
	}
	l.newPage()
	l.section("Anexo: Relatório Fotográfico")
	l.y += 5

	for _, g := range groups {
		if l.y+photoSize+20 > bottomY {
			l.newPage()
		}
		l.groupBar(g.item.Label())
		col := 0
		for _, p := range g.photos {
			if col == 0 && l.y+photoSize > bottomY {
				l.newPage()
				l.groupBar(g.item.ShortLabel())
			}
			x := marginX + float64(col)*(photoSize+photoGap)
			l.frame(x, l.y, photoSize, photoSize, slate300)
			px, py, pw, ph := fit(p.w, p.h, x, l.y, photoSize, photoSize)
			l.picture(fmt.Sprintf("foto-%d-%d", g.item.UID, p.n), p.img, px, py, pw, ph)
			l.text(x+photoSize/2, l.y+photoSize+4, fmt.Sprintf("Foto %d", p.n), "", 7, gray, alignCenter)
			col++
			if col == 2 {
				col = 0
				l.y += photoRow
			}
		}
		if col > 0 {
			l.y += photoRow
		}
		l.y += 5
	}
}
