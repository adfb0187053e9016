package codec

import (
	"bytes"
	"errors"
	"net/url"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/inspection"
	"github.com/unee-t/firecheck/internal/report"
)

func capture(t *testing.T, cat inspection.Category, values url.Values) *inspection.Item {
	t.Helper()
	it, err := inspection.Capture(cat, values)
	if err != nil {
		t.Fatalf("Capture(%s) error = %v", cat, err)
	}
	return it
}

func mixedReport(t *testing.T) *report.Aggregate {
	t.Helper()
	a := report.New()
	a.Header = report.Header{
		Client:            "Condomínio Edifício Aurora",
		Site:              "Rua das Flores, 120",
		Technician:        "Eng. Maria Souza",
		Classification:    "A-2",
		InspectedAt:       "2026-03-07T14:30",
		CertificateExpiry: "2027-05-01",
		Verdict:           report.VerdictApprovedWithRestrictions,
		Summary:           "Edifício residencial com 12 pavimentos.",
		Risks:             "Extintor vencido no 3º andar.",
		Conclusion:        "Regularizar em 30 dias.",
	}
	items := []*inspection.Item{
		capture(t, inspection.CategoryHydrant, url.Values{"andar": {"Térreo"}, "id": {"H-1"}, "tem_mangueira": {"on"}, "selo": {"S123"}, "validade": {"2027-01"}, "lances": {"2"}, "metragem": {"30m"}, "check_registro": {"on"}, "check_chave": {"on"}}),
		capture(t, inspection.CategoryHydrant, url.Values{"andar": {"1º"}, "id": {"H-2"}, "tem_acionador": {"on"}, "acionador_quebrado": {"on"}, "obs": {"Sem mangueira"}}),
		capture(t, inspection.CategoryExtinguisher, url.Values{"andar": {"3º"}, "id": {"E-7"}, "tipo": {"PQS"}, "peso": {"6"}, "recarga": {"2025-01"}, "check_lacre": {"on"}}),
		capture(t, inspection.CategoryLight, url.Values{"andar": {"Escada"}, "id": {"L-1"}, "tipo": {"Bloco"}, "check_led": {"on"}}),
		capture(t, inspection.CategoryPump, url.Values{"andar": {"Casa de bombas"}, "id": {"B-1"}, "operacao": {"on"}, "necessita_manutencao": {"on"}, "obs": {"Gaxeta vazando"}}),
		capture(t, inspection.CategorySignage, url.Values{"andar": {"Hall"}, "id": {"S-1"}, "existente": {"Sim"}, "tipo": {"Saida"}, "check_foto": {"on"}, "check_visivel": {"on"}}),
		capture(t, inspection.CategorySignage, url.Values{"andar": {"Garagem"}, "id": {"S-2"}, "existente": {"Não"}}),
		capture(t, inspection.CategoryElectromechanical, url.Values{"andar": {"Portaria"}, "id": {"CA-1"}, "tipo_sistema": {"Alarme"}, "botoeiras": {"12"}, "precisa_manutencao": {"Sim"}, "obs": {"Sirene fraca"}, "check_painel": {"on"}}),
		capture(t, inspection.CategoryGeneral, url.Values{"obs": {"Rota de fuga obstruída"}}),
	}
	items[0].Images = []imaging.Image{
		{Name: "a.jpg", MIME: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff, 1, 2, 3}},
		{Name: "b.jpg", MIME: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff, 4, 5, 6, 0}},
	}
	items[8].Images = []imaging.Image{{Name: "c.jpg", MIME: "image/jpeg", Data: []byte{9, 9, 9}}}
	for _, it := range items {
		if err := a.Add(it); err != nil {
			t.Fatalf("Add(%s) error = %v", it.ID, err)
		}
	}
	return a
}

func records(t *testing.T, a *report.Aggregate) []ItemRecord {
	t.Helper()
	var out []ItemRecord
	for _, it := range a.Items() {
		rec, err := ToRecord(it, nil)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, rec)
	}
	return out
}

func TestBackupRoundTrip(t *testing.T) {
	a := mixedReport(t)
	a.Signatures.Technician = &imaging.Image{Name: "sig.png", MIME: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}

	var buf bytes.Buffer
	if err := EncodeBackup(&buf, a); err != nil {
		t.Fatalf("EncodeBackup() error = %v", err)
	}
	if len(a.Items()[0].Images) != 2 {
		t.Fatalf("EncodeBackup() stripped photos from the live report")
	}

	got, err := DecodeBackup(&buf)
	if err != nil {
		t.Fatalf("DecodeBackup() error = %v", err)
	}
	if got.Header != a.Header {
		t.Errorf("DecodeBackup() header = %+v, want %+v", got.Header, a.Header)
	}
	if !reflect.DeepEqual(records(t, got), records(t, a)) {
		t.Errorf("DecodeBackup() items differ")
	}
	want, have := a.Items(), got.Items()
	for i := range want {
		if len(want[i].Images) != len(have[i].Images) {
			t.Fatalf("item %s: %d photos, want %d", want[i].ID, len(have[i].Images), len(want[i].Images))
		}
		for j := range want[i].Images {
			if !bytes.Equal(want[i].Images[j].Data, have[i].Images[j].Data) || want[i].Images[j].MIME != have[i].Images[j].MIME {
				t.Errorf("item %s photo %d not byte-identical", want[i].ID, j)
			}
			if have[i].Images[j].Name == "" {
				t.Errorf("item %s photo %d has no filename", want[i].ID, j)
			}
		}
	}
	if got.Signatures.Technician == nil || !bytes.Equal(got.Signatures.Technician.Data, a.Signatures.Technician.Data) {
		t.Errorf("DecodeBackup() lost the technician signature")
	}
	if got.Signatures.Client != nil {
		t.Errorf("DecodeBackup() invented a client signature")
	}
}

func TestBackupEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeBackup(&buf, report.New()); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeBackup(&buf)
	if err != nil {
		t.Fatalf("DecodeBackup() error = %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("DecodeBackup() = %d items", got.Len())
	}
}

func TestDecodeBackupErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"Malformed", `{"items": [`},
		{"Unknown type", `{"items": [{"uid": 1, "type": "sprinkler", "id": "X", "andar": "1"}]}`},
		{"Bad photo", `{"items": [{"uid": 1, "type": "hidrante", "id": "H-1", "andar": "1", "images": ["nope"]}]}`},
		{"Duplicate ids", `{"items": [{"uid": 1, "type": "hidrante", "id": "H-1", "andar": "1"}, {"uid": 2, "type": "extintor", "id": "h-1", "andar": "2"}]}`},
		{"Missing required note", `{"items": [{"uid": 1, "type": "geral", "id": "Geral", "andar": "-"}]}`},
		{"Future version", `{"version": 99, "items": []}`},
		{"Bad signature", `{"items": [], "signatures": {"tecnico": "data:image/png;base64,***"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBackup(bytes.NewBufferString(tt.doc))
			var ferr *ImportFormatError
			if !errors.As(err, &ferr) {
				t.Errorf("DecodeBackup() error = %v, want *ImportFormatError", err)
			}
		})
	}
}

func TestSheetRoundTrip(t *testing.T) {
	a := mixedReport(t)

	var buf bytes.Buffer
	if err := ExportSheet(&buf, a); err != nil {
		t.Fatalf("ExportSheet() error = %v", err)
	}
	got, err := ImportSheet(&buf)
	if err != nil {
		t.Fatalf("ImportSheet() error = %v", err)
	}
	if got.Header != a.Header {
		t.Errorf("ImportSheet() header = %+v, want %+v", got.Header, a.Header)
	}
	if !reflect.DeepEqual(records(t, got), records(t, a)) {
		t.Errorf("ImportSheet() items differ:\n got %+v\nwant %+v", records(t, got), records(t, a))
	}
	for _, it := range got.Items() {
		if len(it.Images) != 0 {
			t.Errorf("ImportSheet() produced photos for %s", it.ID)
		}
	}
}

func TestExportSheetEmpty(t *testing.T) {
	var verr *inspection.ValidationError
	if err := ExportSheet(&bytes.Buffer{}, report.New()); !errors.As(err, &verr) {
		t.Errorf("ExportSheet() error = %v, want validation error", err)
	}
}

func sheetFile(t *testing.T, rows [][]interface{}, withHeader bool) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", ItemsSheet); err != nil {
		t.Fatal(err)
	}
	if withHeader {
		if _, err := f.NewSheet(HeaderSheet); err != nil {
			t.Fatal(err)
		}
		_ = f.SetSheetRow(HeaderSheet, "A1", &[]interface{}{"Cliente", "Padaria Central"})
	}
	for i, row := range rows {
		row := row
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(ItemsSheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestImportSheetDefaults(t *testing.T) {
	buf := sheetFile(t, [][]interface{}{
		{"Tipo", "ID", "Local/Andar", "H-Mangueira?", "H-Registro OK", "Observações"},
		{"hidrante", "H-9", "2º", "SIM", "sim"},
		{"luz", "L-9", "2º"},
		{"", "", "", "", "", "Nota sem tipo"},
		{},
	}, true)

	a, err := ImportSheet(buf)
	if err != nil {
		t.Fatalf("ImportSheet() error = %v", err)
	}
	if a.Header.Client != "Padaria Central" {
		t.Errorf("ImportSheet() client = %q", a.Header.Client)
	}
	items := a.Items()
	if len(items) != 3 {
		t.Fatalf("ImportSheet() = %d items, want 3", len(items))
	}
	h := items[0].Details.(*inspection.Hydrant)
	if h.Hose == nil || h.Hose.Lengths != "1" || h.Hose.Size != "15m" || h.Hose.Expiry != "" {
		t.Errorf("hydrant hose defaults = %+v", h.Hose)
	}
	if !h.RegisterOK || h.AdapterOK {
		t.Errorf("hydrant checks = %+v", h)
	}
	l := items[1].Details.(*inspection.Light)
	if l.State != "OK" || l.Autonomy != "Nao Testado" {
		t.Errorf("light defaults = %+v", l)
	}
	if items[2].Category != inspection.CategoryGeneral || items[2].ID != inspection.GeneralID {
		t.Errorf("untyped row = %+v", items[2])
	}
	for _, it := range items {
		if it.UID == 0 {
			t.Errorf("item %s has no creation token", it.ID)
		}
	}
}

func TestImportSheetErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  *bytes.Buffer
	}{
		{"Not a workbook", bytes.NewBufferString("hello")},
		{"Unknown type", sheetFile(t, [][]interface{}{{"Tipo", "ID", "Local/Andar"}, {"sprinkler", "X", "1"}}, false)},
		{"No type column", sheetFile(t, [][]interface{}{{"ID", "Local/Andar"}, {"X", "1"}}, false)},
		{"Duplicate ids", sheetFile(t, [][]interface{}{{"Tipo", "ID", "Local/Andar"}, {"hidrante", "H-1", "1"}, {"extintor", "h-1", "2"}}, false)},
		{"Missing id", sheetFile(t, [][]interface{}{{"Tipo", "ID", "Local/Andar"}, {"hidrante", "", "1"}}, false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportSheet(tt.buf)
			var ferr *ImportFormatError
			if !errors.As(err, &ferr) {
				t.Errorf("ImportSheet() error = %v, want *ImportFormatError", err)
			}
		})
	}
}
