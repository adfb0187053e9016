package codec

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/unee-t/firecheck/internal/inspection"
	"github.com/unee-t/firecheck/internal/report"
)

// Sheet names of the spreadsheet export.
const (
	HeaderSheet = "Dados Cliente"
	ItemsSheet  = "Itens Vistoriados"
)

type headerField struct {
	key string
	get func(h *report.Header) *string
}

var headerFields = []headerField{
	{"Cliente", func(h *report.Header) *string { return &h.Client }},
	{"Local", func(h *report.Header) *string { return &h.Site }},
	{"Técnico", func(h *report.Header) *string { return &h.Technician }},
	{"Classificação", func(h *report.Header) *string { return &h.Classification }},
	{"Data", func(h *report.Header) *string { return &h.InspectedAt }},
	{"Validade AVCB", func(h *report.Header) *string { return &h.CertificateExpiry }},
	{"Resumo", func(h *report.Header) *string { return &h.Summary }},
	{"Riscos", func(h *report.Header) *string { return &h.Risks }},
	{"Conclusão", func(h *report.Header) *string { return &h.Conclusion }},
}

const verdictKey = "Parecer"

// ExportSheet writes the two-sheet spreadsheet of a. Photos are not carried.
func ExportSheet(w io.Writer, a *report.Aggregate) error {
	if a.Len() == 0 {
		return &inspection.ValidationError{Field: "items", Code: inspection.CodeRequired, Message: "A lista está vazia."}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", HeaderSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ItemsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	headStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeHeaderSheet(f, a.Header, headStyle); err != nil {
		return err
	}
	if err := writeItemsSheet(f, a.Items(), headStyle); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func writeHeaderSheet(f *excelize.File, h report.Header, style int) error {
	rows := [][]interface{}{{"Campo", "Valor"}}
	for _, hf := range headerFields {
		rows = append(rows, []interface{}{hf.key, *hf.get(&h)})
	}
	rows = append(rows, []interface{}{verdictKey, h.Verdict.Text()})

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(HeaderSheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", HeaderSheet, i+1, err)
		}
	}
	if err := f.SetCellStyle(HeaderSheet, "A1", "B1", style); err != nil {
		return err
	}
	if err := f.SetColWidth(HeaderSheet, "A", "A", 18); err != nil {
		return err
	}
	return f.SetColWidth(HeaderSheet, "B", "B", 60)
}

func writeItemsSheet(f *excelize.File, items []*inspection.Item, style int) error {
	head := make([]interface{}, len(itemColumns))
	for i, c := range itemColumns {
		head[i] = c
	}
	if err := f.SetSheetRow(ItemsSheet, "A1", &head); err != nil {
		return fmt.Errorf("write %s header: %w", ItemsSheet, err)
	}
	last, err := excelize.ColumnNumberToName(len(itemColumns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(ItemsSheet, "A1", last+"1", style); err != nil {
		return err
	}

	for n, it := range items {
		row := map[string]string{
			colType:     string(it.Category),
			colLocation: it.Location,
			colID:       it.ID,
			colNote:     it.Note,
			colUID:      strconv.FormatInt(it.UID, 10),
		}
		if rc, ok := rowCodecs[it.Category]; ok && it.Details != nil {
			rc.write(it.Details, row)
		}
		values := make([]interface{}, len(itemColumns))
		for i, c := range itemColumns {
			values[i] = row[c]
		}
		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ItemsSheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", ItemsSheet, n+2, err)
		}
	}
	return f.SetColVisible(ItemsSheet, last, false)
}

// ImportSheet reads a spreadsheet written by ExportSheet (or by earlier
// versions of the form) into a new report whose item list is meant to
// replace the current one.
func ImportSheet(r io.Reader) (*report.Aggregate, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ImportFormatError{Format: "xlsx", Reason: "unreadable workbook", Err: err}
	}
	defer f.Close()

	sheets := map[string]bool{}
	for _, s := range f.GetSheetList() {
		sheets[s] = true
	}
	if !sheets[ItemsSheet] {
		return nil, &ImportFormatError{Format: "xlsx", Reason: fmt.Sprintf("missing sheet %q", ItemsSheet)}
	}

	a := report.New()
	if sheets[HeaderSheet] {
		rows, err := f.GetRows(HeaderSheet)
		if err != nil {
			return nil, &ImportFormatError{Format: "xlsx", Reason: "unreadable header sheet", Err: err}
		}
		a.Header = readHeader(rows)
	}

	rows, err := f.GetRows(ItemsSheet)
	if err != nil {
		return nil, &ImportFormatError{Format: "xlsx", Reason: "unreadable items sheet", Err: err}
	}
	items, err := readItems(rows)
	if err != nil {
		return nil, err
	}
	if err := a.ReplaceItems(items); err != nil {
		return nil, &ImportFormatError{Format: "xlsx", Reason: "invalid item", Err: err}
	}
	return a, nil
}

func readHeader(rows [][]string) report.Header {
	values := map[string]string{}
	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		v := ""
		if len(row) > 1 {
			v = row[1]
		}
		values[strings.TrimSpace(row[0])] = v
	}
	var h report.Header
	for _, hf := range headerFields {
		*hf.get(&h) = values[hf.key]
	}
	h.Verdict = report.ParseVerdict(values[verdictKey])
	return h
}

func readItems(rows [][]string) ([]*inspection.Item, error) {
	if len(rows) == 0 {
		return nil, &ImportFormatError{Format: "xlsx", Reason: "items sheet has no header row"}
	}
	index := map[string]int{}
	for i, name := range rows[0] {
		index[strings.TrimSpace(name)] = i
	}
	if _, ok := index[colType]; !ok {
		return nil, &ImportFormatError{Format: "xlsx", Reason: fmt.Sprintf("items sheet has no %q column", colType)}
	}

	var items []*inspection.Item
	for n, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		row := map[string]string{}
		for name, i := range index {
			if i < len(cells) {
				row[name] = cells[i]
			}
		}
		cat := inspection.Category(or(row, colType, string(inspection.CategoryGeneral)))
		rc, ok := rowCodecs[cat]
		if !ok {
			return nil, &ImportFormatError{Format: "xlsx", Reason: fmt.Sprintf("row %d: unknown type %q", n+2, cat)}
		}
		uid, _ := strconv.ParseInt(strings.TrimSpace(row[colUID]), 10, 64)
		items = append(items, &inspection.Item{
			UID:      uid,
			Category: cat,
			ID:       strings.TrimSpace(row[colID]),
			Location: strings.TrimSpace(row[colLocation]),
			Note:     row[colNote],
			Details:  rc.read(row),
		})
	}
	return items, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
