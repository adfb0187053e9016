package pdfreport

import (
	"strings"

	"github.com/unee-t/firecheck/internal/inspection"
)

// table describes how one equipment category is printed.
type table struct {
	headers []string
	widths  []float64 // relative
	row     func(it *inspection.Item) []string
}

var tables = map[inspection.Category]table{
	inspection.CategoryHydrant: {
		headers: []string{"Local", "ID", "Mangueira", "Validade", "Componentes", "Acionador", "Observações"},
		widths:  []float64{22, 16, 24, 18, 26, 20, 40},
		row: func(it *inspection.Item) []string {
			h := it.Details.(*inspection.Hydrant)
			hose := "S/ Mangueira"
			if h.Hose != nil {
				hose = h.Hose.Lengths + " lance(s) / " + dash(h.Hose.Size)
			}
			expiry, _, _ := h.HoseFields()
			return []string{it.Location, it.ID, hose, expiry, checklist(h.Missing(), "Falta"), activator(h), dash(it.Note)}
		},
	},
	inspection.CategoryExtinguisher: {
		headers: []string{"Local", "ID", "Tipo", "Capac.", "Recarga", "Teste Hidro", "Visual", "Observações"},
		widths:  []float64{22, 14, 16, 14, 18, 18, 16, 40},
		row: func(it *inspection.Item) []string {
			e := it.Details.(*inspection.Extinguisher)
			capacity := "-"
			if strings.TrimSpace(e.Weight) != "" {
				capacity = e.Weight + " kg"
			}
			visual := "Verificar"
			if e.VisualOK() {
				visual = "OK"
			}
			return []string{it.Location, it.ID, dash(e.Kind), capacity, dash(e.Recharge), dash(e.HydroTest), visual, dash(it.Note)}
		},
	},
	inspection.CategoryLight: {
		headers: []string{"Local", "ID", "Tipo", "Estado", "Autonomia", "Checklist", "Observações"},
		widths:  []float64{22, 14, 20, 16, 20, 26, 40},
		row: func(it *inspection.Item) []string {
			l := it.Details.(*inspection.Light)
			return []string{it.Location, it.ID, dash(l.Kind), dash(l.State), dash(l.Autonomy), checklist(l.Failures(), "Falha"), dash(it.Note)}
		},
	},
	inspection.CategorySignage: {
		headers: []string{"Local", "ID", "Tipo", "Conformidade", "Observações"},
		widths:  []float64{24, 16, 30, 40, 48},
		row: func(it *inspection.Item) []string {
			s := it.Details.(*inspection.Signage)
			conformity := "Inexistente"
			if s.Present {
				conformity = "Conforme"
				if f := s.Failures(); len(f) > 0 {
					conformity = "Irregular: " + strings.Join(f, ",")
				}
			}
			return []string{it.Location, it.ID, dash(s.Kind), conformity, dash(it.Note)}
		},
	},
	inspection.CategoryElectromechanical: {
		headers: []string{"Local", "ID", "Sistema", "Acionadores", "Manut.", "Checklist", "Observações"},
		widths:  []float64{22, 14, 22, 20, 14, 26, 40},
		row: func(it *inspection.Item) []string {
			e := it.Details.(*inspection.Electromechanical)
			maintenance := "Não"
			if e.MaintenanceNeeded {
				maintenance = "SIM"
			}
			return []string{it.Location, it.ID, dash(e.SystemKind), dash(e.ButtonStations), maintenance, checklist(e.Failures(), "Falha"), dash(it.Note)}
		},
	},
	inspection.CategoryPump: {
		headers: []string{"Local", "ID", "Painel", "Pressão", "Manut.", "Observações"},
		widths:  []float64{24, 16, 24, 18, 16, 50},
		row: func(it *inspection.Item) []string {
			p := it.Details.(*inspection.Pump)
			panel, pressure, maintenance := "Manual/Off", "Pend.", "Não"
			if p.Automatic {
				panel = "Automático"
			}
			if p.PressureOK {
				pressure = "OK"
			}
			if p.MaintenanceNeeded {
				maintenance = "SIM"
			}
			return []string{it.Location, it.ID, panel, pressure, maintenance, dash(it.Note)}
		},
	},
}

var generalTable = table{
	headers: []string{"Descrição da Ocorrência"},
	widths:  []float64{1},
	row: func(it *inspection.Item) []string {
		return []string{it.Note}
	},
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func checklist(failed []string, prefix string) string {
	if len(failed) == 0 {
		return "OK"
	}
	return prefix + ": " + strings.Join(failed, ",")
}

func activator(h *inspection.Hydrant) string {
	switch {
	case !h.HasActivator:
		return "-"
	case h.ActivatorBroken:
		return "Quebrado"
	case h.ActivatorFunctional:
		return "Funcional"
	}
	return "Verificar"
}

// Table text metrics.
const (
	cellSize    = 8.0
	cellLine    = 3.5
	cellPadding = 1.5
	titleHeight = 5.0
)

var (
	headFill   = slate700
	stripeFill = slate50
)

type cellRow struct {
	cells [][]string
	h     float64
}

// measureRow wraps every cell. When maxLines is positive a cell is cut to
// that many lines, the last one ending in an ellipsis, so the row still fits
// on a single page.
func (l *layout) measureRow(cells []string, widths []float64, style string, maxLines int) cellRow {
	r := cellRow{cells: make([][]string, len(cells))}
	lines := 1
	for i, c := range cells {
		w := widths[i] - 2*cellPadding
		r.cells[i] = l.m.wrap(c, style, cellSize, w)
		if maxLines > 0 && len(r.cells[i]) > maxLines {
			r.cells[i] = l.clip(r.cells[i][:maxLines], style, w)
		}
		if n := len(r.cells[i]); n > lines {
			lines = n
		}
	}
	r.h = float64(lines)*cellLine + 2*cellPadding
	return r
}

// clip ends the last of lines with an ellipsis, dropping runes until it
// fits in w.
func (l *layout) clip(lines []string, style string, w float64) []string {
	out := append([]string(nil), lines...)
	last := []rune(strings.TrimRight(out[len(out)-1], " "))
	for len(last) > 0 && l.m.width(string(last)+ellipsis, style, cellSize) > w {
		last = last[:len(last)-1]
	}
	out[len(out)-1] = string(last) + ellipsis
	return out
}

const ellipsis = "…"

// drawTable prints a titled grid. A table starts on a new page when the
// cursor is low or when its title, header and first row do not fit. Rows are
// never split; a row that does not fit moves to the next page below a
// repeated header.
func (l *layout) drawTable(title string, t table, items []*inspection.Item) {
	widths := scale(t.widths, contentWidth)
	head := l.measureRow(t.headers, widths, "B", 0)
	maxLines := int((bottomY - topY - titleHeight - head.h - 2*cellPadding) / cellLine)
	rows := make([]cellRow, len(items))
	for i, it := range items {
		rows[i] = l.measureRow(t.row(it), widths, "", maxLines)
	}

	need := head.h
	if title != "" {
		need += titleHeight
	}
	if len(rows) > 0 {
		need += rows[0].h
	}
	if l.y > tableBreakY || l.y+need > bottomY {
		l.newPage()
	}
	if title != "" {
		l.text(marginX, l.y+3, title, "B", 9, slate900, alignLeft)
		l.y += titleHeight
	}
	l.cells(head, widths, true, false)

	for i, r := range rows {
		if l.y+r.h > bottomY && l.y > topY+head.h {
			l.newPage()
			l.cells(head, widths, true, false)
		}
		top := l.y
		l.cells(r, widths, false, i%2 == 1)
		l.doc.Rows = append(l.doc.Rows, RowPlacement{
			Table: title,
			Page:  l.page.Number,
			Y:     top,
			H:     r.h,
			Cells: t.row(items[i]),
		})
	}
	l.y += 8
}

// cells draws one row of the grid at the cursor and advances past it.
func (l *layout) cells(r cellRow, widths []float64, head, stripe bool) {
	x := marginX
	style, color := "", ink
	if head {
		style, color = "B", white
	}
	for i, lines := range r.cells {
		w := widths[i]
		switch {
		case head:
			l.box(x, l.y, w, r.h, headFill, slate300, 0.1)
		case stripe:
			l.box(x, l.y, w, r.h, stripeFill, slate300, 0.1)
		default:
			l.frame(x, l.y, w, r.h, slate300)
		}
		a, tx := alignCenter, x+w/2
		if i == len(r.cells)-1 && !head {
			a, tx = alignLeft, x+cellPadding
		}
		for j, ln := range lines {
			l.text(tx, l.y+cellPadding+float64(j+1)*cellLine-0.8, ln, style, cellSize, color, a)
		}
		x += w
	}
	l.y += r.h
}

func scale(weights []float64, total float64) []float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = w / sum * total
	}
	return out
}
