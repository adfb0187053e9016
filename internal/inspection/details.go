package inspection

import (
	"encoding/json"
	"strings"
)

// YesNo is a Sim/Não selector.
type YesNo bool

// ParseYesNo is true only for "sim", ignoring case and spaces.
func ParseYesNo(s string) YesNo {
	return YesNo(strings.EqualFold(strings.TrimSpace(s), "sim"))
}

func (y YesNo) String() string {
	if y {
		return "Sim"
	}
	return "Não"
}

func (y YesNo) MarshalJSON() ([]byte, error) {
	return json.Marshal(y.String())
}

func (y *YesNo) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*y = YesNo(t)
	case string:
		*y = ParseYesNo(t)
	default:
		*y = false
	}
	return nil
}

// Hose describes the hose stored in a hydrant cabinet.
type Hose struct {
	Seal    string `json:"selo,omitempty"`
	Expiry  string `json:"validade,omitempty"`
	Lengths string `json:"lances"`
	Size    string `json:"metragem"`
}

// Hydrant is a wall hydrant cabinet.
type Hydrant struct {
	RegisterOK          bool  `json:"check_registro"`
	AdapterOK           bool  `json:"check_adaptador"`
	KeyOK               bool  `json:"check_chave"`
	NozzleOK            bool  `json:"check_esguicho"`
	Hose                *Hose `json:"mangueira,omitempty"`
	HasActivator        bool  `json:"tem_acionador"`
	ActivatorFunctional bool  `json:"acionador_funcional"`
	ActivatorBroken     bool  `json:"acionador_quebrado"`
}

func (Hydrant) Category() Category { return CategoryHydrant }

func (h *Hydrant) check(string) error {
	if !h.HasActivator {
		h.ActivatorFunctional, h.ActivatorBroken = false, false
		return nil
	}
	if h.ActivatorFunctional && h.ActivatorBroken {
		return &ValidationError{Field: "acionador_funcional", Code: CodeConflict, Message: "O acionador não pode estar funcional e quebrado ao mesmo tempo."}
	}
	return nil
}

// HoseFields returns validade, lances and metragem as printed, with the
// not-applicable markers when the cabinet has no hose.
func (h Hydrant) HoseFields() (expiry, lengths, size string) {
	if h.Hose == nil {
		return "-", "0", "-"
	}
	expiry = h.Hose.Expiry
	if expiry == "" {
		expiry = "-"
	}
	return expiry, h.Hose.Lengths, h.Hose.Size
}

// Missing lists abbreviations of the absent components.
func (h Hydrant) Missing() []string {
	var out []string
	if !h.RegisterOK {
		out = append(out, "Reg")
	}
	if !h.AdapterOK {
		out = append(out, "Adap")
	}
	if !h.KeyOK {
		out = append(out, "Chv")
	}
	if !h.NozzleOK {
		out = append(out, "Esg")
	}
	return out
}

// Extinguisher is a portable extinguisher.
type Extinguisher struct {
	Kind      string `json:"tipo" schema:"tipo"`
	Weight    string `json:"peso" schema:"peso"`
	Recharge  string `json:"recarga,omitempty" schema:"recarga"`
	HydroTest string `json:"teste_hidro,omitempty" schema:"teste_hidro"`
	SealOK    bool   `json:"check_lacre" schema:"check_lacre"`
	GaugeOK   bool   `json:"check_manometro" schema:"check_manometro"`
	SignOK    bool   `json:"check_sinalizacao" schema:"check_sinalizacao"`
	HoseOK    bool   `json:"check_mangueira" schema:"check_mangueira"`
}

func (Extinguisher) Category() Category { return CategoryExtinguisher }

func (e *Extinguisher) check(string) error { return nil }

// VisualOK is the seal and gauge verdict printed in the table.
func (e Extinguisher) VisualOK() bool { return e.SealOK && e.GaugeOK }

// Light is an emergency lighting unit.
type Light struct {
	Kind       string `json:"tipo" schema:"tipo"`
	State      string `json:"estado" schema:"estado"`
	Autonomy   string `json:"autonomia" schema:"autonomia"`
	IgnitionOK bool   `json:"check_acendimento" schema:"check_acendimento"`
	LEDOK      bool   `json:"check_led" schema:"check_led"`
	MountOK    bool   `json:"check_fixacao" schema:"check_fixacao"`
	LuxOK      bool   `json:"check_lux" schema:"check_lux"`
}

func (Light) Category() Category { return CategoryLight }

func (l *Light) check(string) error { return nil }

// Failures lists abbreviations of the failed checks.
func (l Light) Failures() []string {
	var out []string
	if !l.IgnitionOK {
		out = append(out, "Acend")
	}
	if !l.LEDOK {
		out = append(out, "LED")
	}
	if !l.MountOK {
		out = append(out, "Fix")
	}
	if !l.LuxOK {
		out = append(out, "Lux")
	}
	return out
}

// Pump is the fire pump set.
type Pump struct {
	Automatic         bool `json:"operacao" schema:"operacao"`
	PressureOK        bool `json:"teste_pressao" schema:"teste_pressao"`
	MaintenanceNeeded bool `json:"necessita_manutencao" schema:"necessita_manutencao"`
}

func (Pump) Category() Category { return CategoryPump }

func (p *Pump) check(note string) error {
	if p.MaintenanceNeeded && strings.TrimSpace(note) == "" {
		return required("obs", "Você indicou manutenção na bomba. Descreva o problema na observação.")
	}
	return nil
}

// Signage is an emergency sign.
type Signage struct {
	Present            YesNo  `json:"existente" schema:"existente"`
	Kind               string `json:"tipo,omitempty" schema:"tipo"`
	PhotoluminescentOK bool   `json:"check_foto" schema:"check_foto"`
	MountOK            bool   `json:"check_fixacao" schema:"check_fixacao"`
	VisibleOK          bool   `json:"check_visivel" schema:"check_visivel"`
	LegibleOK          bool   `json:"check_legivel" schema:"check_legivel"`
}

func (Signage) Category() Category { return CategorySignage }

func (s *Signage) check(string) error {
	if !s.Present {
		*s = Signage{}
	}
	return nil
}

// Failures lists abbreviations of the failed checks of a present sign.
func (s Signage) Failures() []string {
	var out []string
	if !s.PhotoluminescentOK {
		out = append(out, "Foto")
	}
	if !s.MountOK {
		out = append(out, "Fix")
	}
	if !s.VisibleOK {
		out = append(out, "Vis")
	}
	if !s.LegibleOK {
		out = append(out, "Leg")
	}
	return out
}

// Electromechanical is an alarm or detection system.
type Electromechanical struct {
	SystemKind        string `json:"tipo_sistema" schema:"tipo_sistema"`
	ButtonStations    string `json:"botoeiras" schema:"botoeiras"`
	MaintenanceNeeded YesNo  `json:"precisa_manutencao" schema:"precisa_manutencao"`
	PanelOK           bool   `json:"check_painel" schema:"check_painel"`
	PilotOK           bool   `json:"check_piloto" schema:"check_piloto"`
	NoiseOK           bool   `json:"check_ruido" schema:"check_ruido"`
	MountOK           bool   `json:"check_fixacao" schema:"check_fixacao"`
}

func (Electromechanical) Category() Category { return CategoryElectromechanical }

func (e *Electromechanical) check(note string) error {
	if e.MaintenanceNeeded && strings.TrimSpace(note) == "" {
		return required("obs", "Descreva o motivo da manutenção na observação.")
	}
	return nil
}

// Failures lists abbreviations of the failed checks.
func (e Electromechanical) Failures() []string {
	var out []string
	if !e.PanelOK {
		out = append(out, "Painel")
	}
	if !e.PilotOK {
		out = append(out, "Piloto")
	}
	if !e.NoiseOK {
		out = append(out, "Ruído")
	}
	if !e.MountOK {
		out = append(out, "Fix")
	}
	return out
}

// General is a free-text observation.
type General struct{}

func (General) Category() Category { return CategoryGeneral }

func (g *General) check(note string) error {
	if strings.TrimSpace(note) == "" {
		return required("obs", "Digite alguma observação antes de adicionar.")
	}
	return nil
}
