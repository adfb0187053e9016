package report

import (
	"strings"
	"time"
)

// Verdict is the executive-summary classification of the inspected system.
type Verdict string

const (
	VerdictNone                     Verdict = ""
	VerdictApproved                 Verdict = "approved"
	VerdictApprovedWithRestrictions Verdict = "approvedWithRestrictions"
	VerdictRejected                 Verdict = "rejected"
)

// ParseVerdict accepts the enum values and the labels of the summary
// selector ("Aprovado", "Aprovado com Restrições", "Reprovado").
func ParseVerdict(s string) Verdict {
	switch v := Verdict(strings.TrimSpace(s)); v {
	case VerdictApproved, VerdictApprovedWithRestrictions, VerdictRejected:
		return v
	}
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "restri"):
		return VerdictApprovedWithRestrictions
	case strings.Contains(l, "reprovado"), strings.Contains(l, "inoperante"):
		return VerdictRejected
	case strings.Contains(l, "aprovado"):
		return VerdictApproved
	}
	return VerdictNone
}

// Text is the selector label stored in spreadsheets.
func (v Verdict) Text() string {
	switch v {
	case VerdictApproved:
		return "Aprovado"
	case VerdictApprovedWithRestrictions:
		return "Aprovado com Restrições"
	case VerdictRejected:
		return "Reprovado"
	}
	return ""
}

// RGB is an 8-bit color.
type RGB struct{ R, G, B int }

// Banner is the styling of the verdict box.
type Banner struct {
	Label  string
	Fill   RGB
	Border RGB
	Text   RGB
}

// Banner returns the box printed for v. An empty verdict gets a neutral gray
// "not evaluated" box.
func (v Verdict) Banner() Banner {
	switch v {
	case VerdictApproved:
		return Banner{Label: "SISTEMA APROVADO", Fill: RGB{220, 252, 231}, Border: RGB{22, 101, 52}, Text: RGB{22, 101, 52}}
	case VerdictApprovedWithRestrictions:
		return Banner{Label: "APROVADO COM RESTRIÇÕES", Fill: RGB{254, 249, 195}, Border: RGB{133, 77, 14}, Text: RGB{133, 77, 14}}
	case VerdictRejected:
		return Banner{Label: "SISTEMA REPROVADO / INOPERANTE", Fill: RGB{254, 226, 226}, Border: RGB{153, 27, 27}, Text: RGB{153, 27, 27}}
	}
	return Banner{Label: "NÃO AVALIADO", Fill: RGB{241, 245, 249}, Border: RGB{100, 116, 139}, Text: RGB{71, 85, 105}}
}

// Header holds the report metadata typed in the summary tab.
type Header struct {
	Client            string  `json:"cliente" schema:"cliente"`
	Site              string  `json:"local" schema:"local"`
	Technician        string  `json:"respTecnico" schema:"resp_tecnico"`
	Classification    string  `json:"classificacao" schema:"classificacao"`
	InspectedAt       string  `json:"data" schema:"data_relatorio"`
	CertificateExpiry string  `json:"validadeAvcb" schema:"validade_avcb"`
	Verdict           Verdict `json:"parecerTecnico" schema:"parecer"`
	Summary           string  `json:"resumoInstalacoes" schema:"resumo"`
	Risks             string  `json:"principaisRiscos" schema:"riscos"`
	Conclusion        string  `json:"conclusaoFinal" schema:"conclusao"`
}

// FormatDate renders InspectedAt as "DD/MM/YYYY às HH:MM" when it carries a
// time, "DD/MM/YYYY" when it is a bare date, and now otherwise.
func (h Header) FormatDate(now time.Time) string {
	raw := strings.TrimSpace(h.InspectedAt)
	if raw == "" {
		return now.Format("02/01/2006 15:04")
	}
	if strings.Contains(raw, "T") {
		datePart, timePart, _ := strings.Cut(raw, "T")
		if len(timePart) > 5 {
			timePart = timePart[:5]
		}
		return dmy(datePart) + " às " + timePart
	}
	return dmy(raw)
}

func dmy(isoDate string) string {
	parts := strings.Split(isoDate, "-")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}
