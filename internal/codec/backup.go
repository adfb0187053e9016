package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/inspection"
	"github.com/unee-t/firecheck/internal/report"
)

const backupVersion = 1

// Backup is the JSON document downloaded as a local backup.
type Backup struct {
	Version    int             `json:"version"`
	Header     report.Header   `json:"header"`
	Items      []ItemRecord    `json:"items"`
	Signatures SignatureRecord `json:"signatures"`
}

// SignatureRecord holds the pad captures as data URIs.
type SignatureRecord struct {
	Technician string `json:"tecnico,omitempty"`
	Client     string `json:"cliente,omitempty"`
}

func inline(_ int, img imaging.Image) (string, error) {
	return img.DataURI(), nil
}

// NewBackup builds the backup document for a. The report's own items keep
// their binary photos.
func NewBackup(a *report.Aggregate) (*Backup, error) {
	b := &Backup{Version: backupVersion, Header: a.Header, Items: []ItemRecord{}}
	for _, it := range a.Items() {
		rec, err := ToRecord(it, inline)
		if err != nil {
			return nil, err
		}
		b.Items = append(b.Items, rec)
	}
	if s := a.Signatures.Technician; s != nil {
		b.Signatures.Technician = s.DataURI()
	}
	if s := a.Signatures.Client; s != nil {
		b.Signatures.Client = s.DataURI()
	}
	return b, nil
}

// EncodeBackup writes the JSON backup of a.
func EncodeBackup(w io.Writer, a *report.Aggregate) error {
	b, err := NewBackup(a)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// DecodeBackup reads a JSON backup into a new report. The whole document is
// checked before anything is returned.
func DecodeBackup(r io.Reader) (*report.Aggregate, error) {
	var b Backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, &ImportFormatError{Format: "json", Reason: "malformed document", Err: err}
	}
	if b.Version > backupVersion {
		return nil, &ImportFormatError{Format: "json", Reason: fmt.Sprintf("unsupported version %d", b.Version)}
	}
	return b.Aggregate()
}

// Aggregate rebuilds the report described by b.
func (b *Backup) Aggregate() (*report.Aggregate, error) {
	items := make([]*inspection.Item, 0, len(b.Items))
	for _, rec := range b.Items {
		uid := rec.UID
		it, err := FromRecord(rec, func(i int, ref string) (imaging.Image, error) {
			img, err := imaging.ParseDataURI(ref)
			if err != nil {
				return img, err
			}
			img.Name = PhotoName(uid, i, img.MIME)
			return img, nil
		})
		if err != nil {
			return nil, &ImportFormatError{Format: "json", Reason: "invalid item", Err: err}
		}
		items = append(items, it)
	}

	a := report.New()
	a.Header = b.Header
	if err := a.ReplaceItems(items); err != nil {
		return nil, &ImportFormatError{Format: "json", Reason: "invalid item", Err: err}
	}
	var err error
	if a.Signatures.Technician, err = signature(b.Signatures.Technician, "assinatura_tecnico.png"); err != nil {
		return nil, err
	}
	if a.Signatures.Client, err = signature(b.Signatures.Client, "assinatura_cliente.png"); err != nil {
		return nil, err
	}
	return a, nil
}

func signature(uri, name string) (*imaging.Image, error) {
	if uri == "" {
		return nil, nil
	}
	img, err := imaging.ParseDataURI(uri)
	if err != nil {
		return nil, &ImportFormatError{Format: "json", Reason: "invalid signature", Err: err}
	}
	img.Name = name
	return &img, nil
}
