package pdfreport

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/apex/log"
	"github.com/go-pdf/fpdf"

	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/report"
)

// Page geometry in millimetres, A4 portrait.
const (
	pageWidth    = 210.0
	marginX      = 14.0
	contentWidth = pageWidth - 2*marginX
	topY         = 20.0
	bottomY      = 280.0
	footerY      = 285.0
	tableBreakY  = 240.0

	fontFamily = "Helvetica"
	brand      = "FireCheck Pro"
)

var (
	slate900 = report.RGB{R: 15, G: 23, B: 42}
	slate800 = report.RGB{R: 30, G: 41, B: 59}
	slate700 = report.RGB{R: 51, G: 65, B: 85}
	slate500 = report.RGB{R: 100, G: 116, B: 139}
	slate400 = report.RGB{R: 148, G: 163, B: 184}
	slate300 = report.RGB{R: 203, G: 213, B: 225}
	slate100 = report.RGB{R: 241, G: 245, B: 249}
	slate50  = report.RGB{R: 248, G: 250, B: 252}
	white    = report.RGB{R: 255, G: 255, B: 255}
	ink      = report.RGB{R: 0, G: 0, B: 0}
	gray     = report.RGB{R: 100, G: 100, B: 100}
	footGray = report.RGB{R: 150, G: 150, B: 150}
	alarmRed = report.RGB{R: 185, G: 28, B: 28}
)

// measurer answers text widths with fpdf's core font metrics.
type measurer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newMeasurer() *measurer {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCellMargin(0)
	return &measurer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (m *measurer) width(s, style string, size float64) float64 {
	m.pdf.SetFont(fontFamily, style, size)
	return m.pdf.GetStringWidth(m.tr(s))
}

// wrap breaks s into lines no wider than w using fpdf's own line breaking.
// Explicit newlines are kept and words longer than a line are split.
//
// SplitText indexes the core font widths by rune, so it is fed a copy of s
// in which every rune is its cp1252 byte. The lines it returns are then cut
// from the original text at the same rune offsets.
func (m *measurer) wrap(s, style string, size, w float64) []string {
	m.pdf.SetFont(fontFamily, style, size)
	orig := []rune(strings.ReplaceAll(s, "\r\n", "\n"))
	proxy := make([]rune, len(orig))
	for i, r := range orig {
		proxy[i] = m.latin1(r)
	}

	var lines []string
	pos := 0
	for _, ln := range m.pdf.SplitText(string(proxy), w) {
		n := len([]rune(ln))
		lines = append(lines, string(orig[pos:pos+n]))
		pos += n
		if pos < len(proxy) && unicode.IsSpace(proxy[pos]) {
			pos++
		}
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

// latin1 maps r to the rune whose value is its cp1252 code, "?" when the
// font cannot print it.
func (m *measurer) latin1(r rune) rune {
	if r < utf8.RuneSelf || r == '\n' {
		return r
	}
	b := m.tr(string(r))
	if len(b) != 1 {
		return '?'
	}
	return rune(b[0])
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// layout is the cursor state while pages are being filled.
type layout struct {
	doc  *Document
	page *Page
	y    float64
	m    *measurer
	log  log.Interface
}

func newLayout(doc *Document, l log.Interface) *layout {
	lay := &layout{doc: doc, m: newMeasurer(), log: l}
	lay.newPage()
	return lay
}

func (l *layout) newPage() {
	l.page = &Page{Number: len(l.doc.Pages) + 1}
	l.doc.Pages = append(l.doc.Pages, l.page)
	l.y = topY
}

// ensure starts a new page unless h more millimetres fit above the bottom
// margin.
func (l *layout) ensure(h float64) bool {
	if l.y+h > bottomY {
		l.newPage()
		return true
	}
	return false
}

func (l *layout) add(o op) { l.page.ops = append(l.page.ops, o) }

func (l *layout) text(x, y float64, s, style string, size float64, c report.RGB, a align) {
	l.add(textOp{x: x, y: y, s: s, style: style, size: size, color: c, align: a})
}

func (l *layout) fill(x, y, w, h float64, c report.RGB) {
	l.add(rectOp{x: x, y: y, w: w, h: h, fill: &c})
}

func (l *layout) box(x, y, w, h float64, fill, stroke report.RGB, lw float64) {
	l.add(rectOp{x: x, y: y, w: w, h: h, fill: &fill, stroke: &stroke, lineWidth: lw})
}

func (l *layout) frame(x, y, w, h float64, stroke report.RGB) {
	l.add(rectOp{x: x, y: y, w: w, h: h, stroke: &stroke})
}

func (l *layout) line(x1, y1, x2, y2 float64, c report.RGB, w float64) {
	l.add(lineOp{x1: x1, y1: y1, x2: x2, y2: y2, color: c, width: w})
}

func (l *layout) picture(name string, img imaging.Image, x, y, w, h float64) {
	if l.doc.images == nil {
		l.doc.images = make(map[string]imaging.Image)
	}
	l.doc.images[name] = img
	l.add(imageOp{name: name, x: x, y: y, w: w, h: h})
}

// section draws a numbered section bar and moves the cursor below it.
func (l *layout) section(title string) {
	l.fill(marginX, l.y, contentWidth, 8, slate100)
	l.fill(marginX, l.y, 1.5, 8, slate900)
	l.text(marginX+4, l.y+5.5, title, "B", 12, slate900, alignLeft)
	l.y += 14
}

// paragraph prints wrapped body text, breaking pages between lines.
func (l *layout) paragraph(s string, c report.RGB) {
	const size, lh = 10.0, 5.0
	for _, ln := range l.m.wrap(s, "", size, contentWidth) {
		l.ensure(lh)
		l.text(marginX, l.y, ln, "", size, c, alignLeft)
		l.y += lh
	}
}

// placeholder prints the italic note shown when a section has no content.
func (l *layout) placeholder(s string) {
	l.text(marginX, l.y+10, s, "I", 10, gray, alignLeft)
	l.y += 16
}

// footers stamps every page once the page count is known.
func (l *layout) footers() {
	total := len(l.doc.Pages)
	for _, p := range l.doc.Pages {
		p.ops = append(p.ops,
			textOp{x: marginX, y: footerY, s: brand + " - Relatório Digital", size: 8, color: footGray},
			textOp{x: pageWidth - marginX, y: footerY, s: pageLabel(p.Number, total), size: 8, color: footGray, align: alignRight},
		)
	}
}

func pageLabel(n, total int) string {
	return fmt.Sprintf("Página %d de %d", n, total)
}
