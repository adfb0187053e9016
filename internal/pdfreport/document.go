// Package pdfreport lays out an inspection report on A4 pages and writes
// it as PDF. Layout produces a Document of positioned drawing operations;
// writing replays them through fpdf.
package pdfreport

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/report"
)

// Document is a laid-out report.
type Document struct {
	Title    string
	Filename string // download name of the final file
	Mode     Mode
	Pages    []*Page

	// Rows records where every table row landed.
	Rows []RowPlacement
	// Skipped names the images left out because they could not be decoded.
	Skipped []string

	images map[string]imaging.Image
}

// Page is one A4 page of drawing operations.
type Page struct {
	Number int
	ops    []op
}

// RowPlacement is the position of one table body row.
type RowPlacement struct {
	Table string
	Page  int
	Y     float64
	H     float64
	Cells []string
}

// Texts returns the strings drawn on the page, in drawing order.
func (p *Page) Texts() []string {
	var out []string
	for _, o := range p.ops {
		if t, ok := o.(textOp); ok {
			out = append(out, t.s)
		}
	}
	return out
}

// Pictures returns the number of images drawn on the page.
func (p *Page) Pictures() int {
	n := 0
	for _, o := range p.ops {
		if _, ok := o.(imageOp); ok {
			n++
		}
	}
	return n
}

type op interface {
	draw(pdf *fpdf.Fpdf, tr func(string) string)
}

type align byte

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

type textOp struct {
	x, y  float64
	s     string
	style string
	size  float64
	color report.RGB
	align align
}

func (t textOp) draw(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetFont(fontFamily, t.style, t.size)
	pdf.SetTextColor(t.color.R, t.color.G, t.color.B)
	s := tr(t.s)
	x := t.x
	switch t.align {
	case alignCenter:
		x -= pdf.GetStringWidth(s) / 2
	case alignRight:
		x -= pdf.GetStringWidth(s)
	}
	pdf.Text(x, t.y, s)
}

type rectOp struct {
	x, y, w, h float64
	fill       *report.RGB
	stroke     *report.RGB
	lineWidth  float64
}

func (r rectOp) draw(pdf *fpdf.Fpdf, _ func(string) string) {
	style := ""
	if r.fill != nil {
		pdf.SetFillColor(r.fill.R, r.fill.G, r.fill.B)
		style += "F"
	}
	if r.stroke != nil {
		pdf.SetDrawColor(r.stroke.R, r.stroke.G, r.stroke.B)
		pdf.SetLineWidth(lineWidthOr(r.lineWidth))
		style += "D"
	}
	if style == "" {
		return
	}
	pdf.Rect(r.x, r.y, r.w, r.h, style)
}

type lineOp struct {
	x1, y1, x2, y2 float64
	color          report.RGB
	width          float64
}

func (l lineOp) draw(pdf *fpdf.Fpdf, _ func(string) string) {
	pdf.SetDrawColor(l.color.R, l.color.G, l.color.B)
	pdf.SetLineWidth(lineWidthOr(l.width))
	pdf.Line(l.x1, l.y1, l.x2, l.y2)
}

type imageOp struct {
	name       string
	x, y, w, h float64
}

func (i imageOp) draw(pdf *fpdf.Fpdf, _ func(string) string) {
	pdf.ImageOptions(i.name, i.x, i.y, i.w, i.h, false, fpdf.ImageOptions{}, 0, "")
}

func lineWidthOr(w float64) float64 {
	if w <= 0 {
		return 0.2
	}
	return w
}

func fpdfImageType(mime string) string {
	switch mime {
	case "image/jpeg", "image/jpg":
		return "JPG"
	case "image/png":
		return "PNG"
	case "image/gif":
		return "GIF"
	}
	return ""
}

// WritePDF renders the document.
func (d *Document) WritePDF(w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(d.Title, true)
	pdf.SetCreator(brand, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for name, img := range d.images {
		pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: fpdfImageType(img.MIME)}, bytes.NewReader(img.Data))
		if pdf.Err() {
			return fmt.Errorf("register image %s: %w", name, pdf.Error())
		}
	}
	for _, p := range d.Pages {
		pdf.AddPage()
		for _, o := range p.ops {
			o.draw(pdf, tr)
		}
	}
	return pdf.Output(w)
}

// Bytes renders the document into memory.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.WritePDF(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
