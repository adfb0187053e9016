package codec

import (
	"strings"

	"github.com/unee-t/firecheck/internal/inspection"
)

// Columns of the items sheet. Every category writes its own columns and
// leaves the rest blank.
const (
	colType     = "Tipo"
	colLocation = "Local/Andar"
	colID       = "ID"
	colNote     = "Observações"
	colUID      = "_UID"
)

var itemColumns = []string{
	colType, colLocation, colID, colNote,
	"H-Mangueira?", "H-Selo", "H-Validade", "H-Lances", "H-Metragem",
	"H-Registro OK", "H-Adaptador OK", "H-Chave OK", "H-Esguicho OK",
	"H-Tem Acionador?", "H-Acionador Funcional", "H-Acionador Quebrado",
	"E-Tipo", "E-Peso", "E-Recarga", "E-Teste Hidro",
	"E-Lacre OK", "E-Manometro OK", "E-Sinalizacao OK", "E-Mangueira OK",
	"L-Tipo", "L-Estado", "L-Autonomia",
	"L-Acendimento OK", "L-LED OK", "L-Fixacao OK", "L-Lux OK",
	"B-Automatico", "B-Teste Pressao OK", "B-Manutencao?",
	"S-Existente?", "S-Tipo", "S-Fotoluminescente OK", "S-Fixacao OK", "S-Visivel OK", "S-Legivel OK",
	"EL-Sistema", "EL-Botoeiras", "EL-Manutencao?",
	"EL-Painel OK", "EL-Piloto OK", "EL-Ruido OK", "EL-Fixacao OK",
	colUID,
}

func boolText(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

func textBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "sim")
}

// or returns the cell value, or def when the cell is blank.
func or(row map[string]string, col, def string) string {
	if v := strings.TrimSpace(row[col]); v != "" {
		return v
	}
	return def
}

// absent reads a cell where "-" means not applicable.
func absent(row map[string]string, col string) string {
	if v := or(row, col, "-"); v != "-" {
		return v
	}
	return ""
}

type rowCodec struct {
	write func(d inspection.Details, row map[string]string)
	read  func(row map[string]string) inspection.Details
}

var rowCodecs = map[inspection.Category]rowCodec{
	inspection.CategoryHydrant: {
		write: func(d inspection.Details, row map[string]string) {
			h := d.(*inspection.Hydrant)
			row["H-Mangueira?"] = boolText(h.Hose != nil)
			row["H-Validade"], row["H-Lances"], row["H-Metragem"] = h.HoseFields()
			if h.Hose != nil {
				row["H-Selo"] = h.Hose.Seal
			}
			row["H-Registro OK"] = boolText(h.RegisterOK)
			row["H-Adaptador OK"] = boolText(h.AdapterOK)
			row["H-Chave OK"] = boolText(h.KeyOK)
			row["H-Esguicho OK"] = boolText(h.NozzleOK)
			row["H-Tem Acionador?"] = boolText(h.HasActivator)
			row["H-Acionador Funcional"] = boolText(h.ActivatorFunctional)
			row["H-Acionador Quebrado"] = boolText(h.ActivatorBroken)
		},
		read: func(row map[string]string) inspection.Details {
			h := &inspection.Hydrant{
				RegisterOK:          textBool(row["H-Registro OK"]),
				AdapterOK:           textBool(row["H-Adaptador OK"]),
				KeyOK:               textBool(row["H-Chave OK"]),
				NozzleOK:            textBool(row["H-Esguicho OK"]),
				HasActivator:        textBool(row["H-Tem Acionador?"]),
				ActivatorFunctional: textBool(row["H-Acionador Funcional"]),
				ActivatorBroken:     textBool(row["H-Acionador Quebrado"]),
			}
			if textBool(row["H-Mangueira?"]) {
				h.Hose = &inspection.Hose{
					Seal:    absent(row, "H-Selo"),
					Expiry:  absent(row, "H-Validade"),
					Lengths: or(row, "H-Lances", "1"),
					Size:    or(row, "H-Metragem", "15m"),
				}
			}
			return h
		},
	},
	inspection.CategoryExtinguisher: {
		write: func(d inspection.Details, row map[string]string) {
			e := d.(*inspection.Extinguisher)
			row["E-Tipo"] = e.Kind
			row["E-Peso"] = e.Weight
			row["E-Recarga"] = e.Recharge
			row["E-Teste Hidro"] = e.HydroTest
			row["E-Lacre OK"] = boolText(e.SealOK)
			row["E-Manometro OK"] = boolText(e.GaugeOK)
			row["E-Sinalizacao OK"] = boolText(e.SignOK)
			row["E-Mangueira OK"] = boolText(e.HoseOK)
		},
		read: func(row map[string]string) inspection.Details {
			return &inspection.Extinguisher{
				Kind:      or(row, "E-Tipo", ""),
				Weight:    or(row, "E-Peso", ""),
				Recharge:  absent(row, "E-Recarga"),
				HydroTest: absent(row, "E-Teste Hidro"),
				SealOK:    textBool(row["E-Lacre OK"]),
				GaugeOK:   textBool(row["E-Manometro OK"]),
				SignOK:    textBool(row["E-Sinalizacao OK"]),
				HoseOK:    textBool(row["E-Mangueira OK"]),
			}
		},
	},
	inspection.CategoryLight: {
		write: func(d inspection.Details, row map[string]string) {
			l := d.(*inspection.Light)
			row["L-Tipo"] = l.Kind
			row["L-Estado"] = l.State
			row["L-Autonomia"] = l.Autonomy
			row["L-Acendimento OK"] = boolText(l.IgnitionOK)
			row["L-LED OK"] = boolText(l.LEDOK)
			row["L-Fixacao OK"] = boolText(l.MountOK)
			row["L-Lux OK"] = boolText(l.LuxOK)
		},
		read: func(row map[string]string) inspection.Details {
			return &inspection.Light{
				Kind:       or(row, "L-Tipo", or(row, "E-Tipo", "")),
				State:      or(row, "L-Estado", "OK"),
				Autonomy:   or(row, "L-Autonomia", "Nao Testado"),
				IgnitionOK: textBool(row["L-Acendimento OK"]),
				LEDOK:      textBool(row["L-LED OK"]),
				MountOK:    textBool(row["L-Fixacao OK"]),
				LuxOK:      textBool(row["L-Lux OK"]),
			}
		},
	},
	inspection.CategoryPump: {
		write: func(d inspection.Details, row map[string]string) {
			p := d.(*inspection.Pump)
			row["B-Automatico"] = boolText(p.Automatic)
			row["B-Teste Pressao OK"] = boolText(p.PressureOK)
			row["B-Manutencao?"] = boolText(p.MaintenanceNeeded)
		},
		read: func(row map[string]string) inspection.Details {
			return &inspection.Pump{
				Automatic:         textBool(row["B-Automatico"]),
				PressureOK:        textBool(row["B-Teste Pressao OK"]),
				MaintenanceNeeded: textBool(row["B-Manutencao?"]),
			}
		},
	},
	inspection.CategorySignage: {
		write: func(d inspection.Details, row map[string]string) {
			s := d.(*inspection.Signage)
			row["S-Existente?"] = s.Present.String()
			row["S-Tipo"] = s.Kind
			row["S-Fotoluminescente OK"] = boolText(s.PhotoluminescentOK)
			row["S-Fixacao OK"] = boolText(s.MountOK)
			row["S-Visivel OK"] = boolText(s.VisibleOK)
			row["S-Legivel OK"] = boolText(s.LegibleOK)
		},
		read: func(row map[string]string) inspection.Details {
			return &inspection.Signage{
				Present:            inspection.ParseYesNo(row["S-Existente?"]),
				Kind:               absent(row, "S-Tipo"),
				PhotoluminescentOK: textBool(row["S-Fotoluminescente OK"]),
				MountOK:            textBool(row["S-Fixacao OK"]),
				VisibleOK:          textBool(row["S-Visivel OK"]),
				LegibleOK:          textBool(row["S-Legivel OK"]),
			}
		},
	},
	inspection.CategoryElectromechanical: {
		write: func(d inspection.Details, row map[string]string) {
			e := d.(*inspection.Electromechanical)
			row["EL-Sistema"] = e.SystemKind
			row["EL-Botoeiras"] = e.ButtonStations
			row["EL-Manutencao?"] = e.MaintenanceNeeded.String()
			row["EL-Painel OK"] = boolText(e.PanelOK)
			row["EL-Piloto OK"] = boolText(e.PilotOK)
			row["EL-Ruido OK"] = boolText(e.NoiseOK)
			row["EL-Fixacao OK"] = boolText(e.MountOK)
		},
		read: func(row map[string]string) inspection.Details {
			return &inspection.Electromechanical{
				SystemKind:        or(row, "EL-Sistema", ""),
				ButtonStations:    or(row, "EL-Botoeiras", ""),
				MaintenanceNeeded: inspection.ParseYesNo(row["EL-Manutencao?"]),
				PanelOK:           textBool(row["EL-Painel OK"]),
				PilotOK:           textBool(row["EL-Piloto OK"]),
				NoiseOK:           textBool(row["EL-Ruido OK"]),
				MountOK:           textBool(row["EL-Fixacao OK"]),
			}
		},
	},
	inspection.CategoryGeneral: {
		write: func(inspection.Details, map[string]string) {},
		read:  func(map[string]string) inspection.Details { return &inspection.General{} },
	},
}
