package inspection

import (
	"net/url"
	"reflect"
	"strings"

	"github.com/gorilla/schema"
)

// Variant is the registration of one category.
type Variant struct {
	Category Category
	Label    string // annex label
	Title    string // table title
	New      func() Details
	decode   func(url.Values) (Details, error)
}

var variants = map[Category]*Variant{
	CategoryHydrant: {
		Category: CategoryHydrant, Label: "HIDRANTE", Title: "SISTEMA DE HIDRANTES",
		New: func() Details { return &Hydrant{} }, decode: decodeHydrant,
	},
	CategoryExtinguisher: {
		Category: CategoryExtinguisher, Label: "EXTINTOR", Title: "EXTINTORES DE INCÊNDIO",
		New:    func() Details { return &Extinguisher{} },
		decode: func(v url.Values) (Details, error) { d := &Extinguisher{}; return d, decodeForm(d, v) },
	},
	CategoryLight: {
		Category: CategoryLight, Label: "ILUMINAÇÃO", Title: "ILUMINAÇÃO DE EMERGÊNCIA",
		New: func() Details { return &Light{} }, decode: decodeLight,
	},
	CategoryPump: {
		Category: CategoryPump, Label: "BOMBA", Title: "CONJUNTO DE BOMBAS",
		New:    func() Details { return &Pump{} },
		decode: func(v url.Values) (Details, error) { d := &Pump{}; return d, decodeForm(d, v) },
	},
	CategorySignage: {
		Category: CategorySignage, Label: "SINALIZAÇÃO", Title: "SINALIZAÇÃO DE EMERGÊNCIA",
		New:    func() Details { return &Signage{} },
		decode: func(v url.Values) (Details, error) { d := &Signage{}; return d, decodeForm(d, v) },
	},
	CategoryElectromechanical: {
		Category: CategoryElectromechanical, Label: "ELETROMECÂNICA", Title: "ELETROMECÂNICA / ALARME",
		New:    func() Details { return &Electromechanical{} },
		decode: func(v url.Values) (Details, error) { d := &Electromechanical{}; return d, decodeForm(d, v) },
	},
	CategoryGeneral: {
		Category: CategoryGeneral, Label: "GERAL", Title: "OBSERVAÇÕES GERAIS",
		New:    func() Details { return &General{} },
		decode: func(url.Values) (Details, error) { return &General{}, nil },
	},
}

// Lookup returns the registration of c.
func Lookup(c Category) (*Variant, bool) {
	v, ok := variants[c]
	return v, ok
}

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.ZeroEmpty(true)
	d.RegisterConverter(YesNo(false), func(s string) reflect.Value {
		return reflect.ValueOf(ParseYesNo(s))
	})
	return d
}

func decodeForm(dst interface{}, values url.Values) error {
	if err := decoder.Decode(dst, values); err != nil {
		return &ValidationError{Field: "form", Code: CodeUnknown, Message: "Valores inválidos no formulário: " + err.Error()}
	}
	return nil
}

type baseForm struct {
	Location string `schema:"andar"`
	ID       string `schema:"id"`
	Note     string `schema:"obs"`
}

type hydrantForm struct {
	RegisterOK          bool   `schema:"check_registro"`
	AdapterOK           bool   `schema:"check_adaptador"`
	KeyOK               bool   `schema:"check_chave"`
	NozzleOK            bool   `schema:"check_esguicho"`
	HasHose             bool   `schema:"tem_mangueira"`
	Seal                string `schema:"selo"`
	Expiry              string `schema:"validade"`
	Lengths             string `schema:"lances"`
	Size                string `schema:"metragem"`
	HasActivator        bool   `schema:"tem_acionador"`
	ActivatorFunctional bool   `schema:"acionador_funcional"`
	ActivatorBroken     bool   `schema:"acionador_quebrado"`
}

func decodeHydrant(values url.Values) (Details, error) {
	var f hydrantForm
	if err := decodeForm(&f, values); err != nil {
		return nil, err
	}
	h := &Hydrant{
		RegisterOK:          f.RegisterOK,
		AdapterOK:           f.AdapterOK,
		KeyOK:               f.KeyOK,
		NozzleOK:            f.NozzleOK,
		HasActivator:        f.HasActivator,
		ActivatorFunctional: f.ActivatorFunctional,
		ActivatorBroken:     f.ActivatorBroken,
	}
	// Hose values typed before the box was unticked are dropped here.
	if f.HasHose {
		h.Hose = &Hose{
			Seal:    strings.TrimSpace(f.Seal),
			Expiry:  strings.TrimSpace(f.Expiry),
			Lengths: orDefault(f.Lengths, "1"),
			Size:    orDefault(f.Size, "15m"),
		}
	}
	return h, nil
}

func decodeLight(values url.Values) (Details, error) {
	l := &Light{}
	if err := decodeForm(l, values); err != nil {
		return nil, err
	}
	l.State = orDefault(l.State, "OK")
	l.Autonomy = orDefault(l.Autonomy, "Nao Testado")
	return l, nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// Capture builds a validated item of category cat from plain form values.
// Duplicate tags are checked by the report the item is added to.
func Capture(cat Category, values url.Values) (*Item, error) {
	v, ok := variants[cat]
	if !ok {
		return nil, &ValidationError{Field: "type", Code: CodeUnknown, Message: "Selecione um tipo de item válido."}
	}
	var base baseForm
	if err := decodeForm(&base, values); err != nil {
		return nil, err
	}
	details, err := v.decode(values)
	if err != nil {
		return nil, err
	}
	it := &Item{
		Category: cat,
		ID:       strings.TrimSpace(base.ID),
		Location: strings.TrimSpace(base.Location),
		Note:     strings.TrimSpace(base.Note),
		Details:  details,
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}
	it.UID = NewToken()
	return it, nil
}
