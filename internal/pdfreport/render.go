package pdfreport

import (
	"regexp"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/inspection"
	"github.com/unee-t/firecheck/internal/report"
)

// Mode selects how the rendered file is delivered.
type Mode string

const (
	// ModePersist is the final download.
	ModePersist Mode = "persist"
	// ModePreview opens the file for viewing; on mobile browsers it is
	// downloaded under a distinct name instead.
	ModePreview Mode = "preview"
)

// ParseMode defaults to ModePersist.
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModePreview {
		return ModePreview
	}
	return ModePersist
}

// Options tune rendering.
type Options struct {
	Now func() time.Time
	Log log.Interface
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) logger() log.Interface {
	if o.Log != nil {
		return o.Log
	}
	return log.Log
}

// Render lays out the whole report: cover and executive summary, the
// per-category checklists, general observations, the final opinion, the
// signature page and, when any item has photos, the photo annex.
func Render(a *report.Aggregate, mode Mode, opts Options) *Document {
	h := a.Header
	doc := &Document{
		Title:    "Relatório de Inspeção - " + clientName(h),
		Filename: Filename(h.Client, false),
		Mode:     mode,
	}
	lay := newLayout(doc, opts.logger().WithField("client", h.Client))
	items := a.Items()

	lay.cover(h, opts.now())
	lay.summary(h)

	lay.newPage()
	lay.section("2. Detalhamento Técnico (Checklists)")
	lay.checklists(items)

	lay.newPage()
	lay.section("3. Observações Gerais")
	general := a.ByCategory(inspection.CategoryGeneral)
	if len(general) == 0 {
		lay.placeholder("Nenhuma ocorrência geral registrada.")
	} else {
		lay.drawTable("", generalTable, general)
	}

	lay.newPage()
	lay.section("4. Parecer Técnico Final")
	if strings.TrimSpace(h.Conclusion) == "" {
		lay.placeholder("Sem considerações finais.")
	} else {
		lay.y += 5
		lay.paragraph(h.Conclusion, ink)
	}

	lay.newPage()
	lay.signatures(h, a.Signatures)

	lay.annex(items)
	lay.footers()
	return doc
}

func clientName(h report.Header) string {
	if c := strings.TrimSpace(h.Client); c != "" {
		return c
	}
	return "CLIENTE NÃO INFORMADO"
}

// cover draws the dark title band with the client box.
func (l *layout) cover(h report.Header, now time.Time) {
	l.fill(0, 0, pageWidth, 50, slate900)
	l.text(pageWidth/2, 16, "RELATÓRIO DE INSPEÇÃO", "B", 18, white, alignCenter)
	l.text(pageWidth/2, 23, "SISTEMAS DE PREVENÇÃO E COMBATE A INCÊNDIO", "", 10, slate400, alignCenter)

	l.box(marginX, 28, contentWidth, 19, slate800, slate700, 0.2)
	right := pageWidth - marginX - 4
	row := func(y float64, label, value, rlabel, rvalue string) {
		l.text(marginX+4, y, label, "B", 9, white, alignLeft)
		l.text(marginX+4+l.m.width(label, "B", 9)+2, y, value, "", 9, white, alignLeft)
		if rvalue == "" {
			return
		}
		l.text(right, y, rvalue, "", 9, white, alignRight)
		l.text(right-l.m.width(rvalue, "", 9)-2, y, rlabel, "B", 9, white, alignRight)
	}
	row(34, "CLIENTE:", truncate(clientName(h), 35), "DATA:", h.FormatDate(now))
	row(39, "LOCAL:", truncate(dash(h.Site), 45), "CLASSIFICAÇÃO:", truncate(h.Classification, 20))
	row(44, "RESP. TÉCNICO:", truncate(dash(h.Technician), 40), "VALIDADE AVCB:", h.CertificateExpiry)
	l.y = 62
}

// summary is section 1: verdict banner, facilities summary and risks.
func (l *layout) summary(h report.Header) {
	l.section("1. Sumário Executivo")
	b := h.Verdict.Banner()
	l.box(marginX, l.y, contentWidth, 12, b.Fill, b.Border, 0.5)
	l.text(pageWidth/2, l.y+7.5, b.Label, "B", 11, b.Text, alignCenter)
	l.y += 20

	if s := strings.TrimSpace(h.Summary); s != "" {
		l.ensure(15)
		l.text(marginX, l.y, "Resumo das Instalações", "B", 11, slate900, alignLeft)
		l.y += 6
		l.paragraph(s, ink)
		l.y += 6
	}
	if r := strings.TrimSpace(h.Risks); r != "" {
		l.ensure(15)
		l.text(marginX, l.y, "Principais Não Conformidades / Riscos", "B", 11, alarmRed, alignLeft)
		l.y += 6
		l.paragraph(r, alarmRed)
		l.y += 6
	}
}

// checklists prints one table per equipment category in canonical order.
func (l *layout) checklists(items []*inspection.Item) {
	sorted := report.ByCategoryThenID(items)
	printed := false
	for _, c := range inspection.Canonical {
		t, ok := tables[c]
		if !ok {
			continue
		}
		var group []*inspection.Item
		for _, it := range sorted {
			if it.Category == c {
				group = append(group, it)
			}
		}
		if len(group) == 0 {
			continue
		}
		v, _ := inspection.Lookup(c)
		l.drawTable(v.Title, t, group)
		printed = true
	}
	if !printed {
		l.placeholder("Nenhum equipamento registrado.")
	}
}

// signatures draws the validation page with both signature lines.
func (l *layout) signatures(h report.Header, s report.Signatures) {
	l.text(pageWidth/2, 40, "Validação do Relatório", "B", 14, slate900, alignCenter)
	l.text(pageWidth/2, 48, "As partes abaixo confirmam a realização da inspeção descrita neste relatório.", "", 9, gray, alignCenter)

	const sigY = 100.0
	slots := []struct {
		key, label, name string
		img              *imaging.Image
		center           float64
	}{
		{"tecnico", "RESPONSÁVEL TÉCNICO", h.Technician, s.Technician, 60},
		{"cliente", "CLIENTE / RESPONSÁVEL", h.Client, s.Client, 150},
	}
	for _, slot := range slots {
		if slot.img != nil && !slot.img.Empty() {
			if img, err := imaging.FlattenSignature(*slot.img); err != nil {
				l.log.WithError(err).WithField("slot", slot.key).Warn("skipping signature")
				l.doc.Skipped = append(l.doc.Skipped, slot.img.Name)
			} else if w, hh, err := imaging.Dimensions(img); err == nil {
				x, y, dw, dh := fit(w, hh, slot.center-20, sigY-22, 40, 20)
				l.picture("assinatura-"+slot.key, img, x, y, dw, dh)
			}
		}
		l.line(slot.center-30, sigY, slot.center+30, sigY, ink, 0.3)
		l.text(slot.center, sigY+5, slot.label, "B", 10, ink, alignCenter)
		if name := strings.TrimSpace(slot.name); name != "" {
			l.text(slot.center, sigY+10, strings.ToUpper(name), "", 9, gray, alignCenter)
		}
	}
	l.y = sigY + 20
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// Filename is the download name: the client name with every character other
// than ASCII letters and digits replaced by an underscore. Previews carry a
// _PREVIA suffix.
func Filename(client string, preview bool) string {
	name := nonAlnum.ReplaceAllString(strings.TrimSpace(client), "_")
	if name == "" {
		name = "Vistoria"
	}
	name = "Relatorio_" + name
	if preview {
		name += "_PREVIA"
	}
	return name + ".pdf"
}

var mobileAgent = regexp.MustCompile(`Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// IsMobile reports whether the user agent belongs to a phone or tablet
// browser, which cannot display an inline preview.
func IsMobile(userAgent string) bool {
	return mobileAgent.MatchString(userAgent)
}

// Delivery decides how a rendered document reaches the browser: inline for
// desktop previews, as an attachment otherwise. The preview suffix is only
// used for mobile previews.
func Delivery(client string, mode Mode, userAgent string) (inline bool, filename string) {
	if mode != ModePreview {
		return false, Filename(client, false)
	}
	if IsMobile(userAgent) {
		return false, Filename(client, true)
	}
	return true, Filename(client, false)
}
