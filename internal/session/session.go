// Package session owns the state of one report being filled in: the report
// aggregate and the photos staged for the item form.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/inspection"
	"github.com/unee-t/firecheck/internal/report"
)

var (
	// ErrNotFound is returned for unknown or expired sessions.
	ErrNotFound = errors.New("session not found")
	// ErrBusy is returned when the same operation is already running.
	ErrBusy = errors.New("operation already in progress")
	// ErrPhotosStaged is returned when an edit would replace photos staged
	// for a new item.
	ErrPhotosStaged = errors.New("photos staged for a new item")
)

// Slot names a signature pad.
type Slot string

const (
	SlotTechnician Slot = "tecnico"
	SlotClient     Slot = "cliente"
)

// ParseSlot validates a slot name.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotTechnician, SlotClient:
		return Slot(s), nil
	}
	return "", &inspection.ValidationError{Field: "slot", Code: inspection.CodeUnknown, Message: fmt.Sprintf("Assinatura desconhecida: %q.", s)}
}

// Session is one report in progress.
type Session struct {
	ID      string
	User    string
	Report  *report.Aggregate
	Staged  []imaging.Image
	Updated time.Time
}

// New starts an empty report for user.
func New(user string) *Session {
	return &Session{ID: uuid.NewString(), User: user, Report: report.New(), Updated: time.Now().UTC()}
}

// StageImages normalizes the selected photos in parallel and appends them,
// in selection order, to the staged photos. Files that are not images or do
// not decode are logged and left out; their names are returned.
func (s *Session) StageImages(ctx context.Context, raws []imaging.Image, opts imaging.Options, l log.Interface) ([]string, error) {
	if l == nil {
		l = log.Log
	}
	out := make([]imaging.Image, len(raws))
	ok := make([]bool, len(raws))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, raw := range raws {
		i, raw := i, raw
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !raw.IsImage() {
				l.WithField("session", s.ID).WithField("file", raw.Name).Warn("ignoring file that is not an image")
				return nil
			}
			img, err := imaging.Normalize(raw, opts.MaxWidth, opts.Quality)
			var encErr *imaging.EncodingError
			if errors.As(err, &encErr) {
				l.WithError(err).WithField("session", s.ID).WithField("file", raw.Name).Warn("skipping photo")
				return nil
			}
			if err != nil {
				return err
			}
			out[i], ok[i] = img, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var skipped []string
	for i := range raws {
		if ok[i] {
			s.Staged = append(s.Staged, out[i])
		} else {
			skipped = append(skipped, raws[i].Name)
		}
	}
	s.touch()
	return skipped, nil
}

// DropStaged removes the i-th staged photo.
func (s *Session) DropStaged(i int) error {
	if i < 0 || i >= len(s.Staged) {
		return ErrNotFound
	}
	s.Staged = append(s.Staged[:i], s.Staged[i+1:]...)
	s.touch()
	return nil
}

// ClearStaged discards every staged photo.
func (s *Session) ClearStaged() {
	s.Staged = nil
	s.touch()
}

// CaptureItem builds an item of category cat from form values, attaches the
// staged photos and adds it to the report. Staging is cleared only when the
// item is accepted.
func (s *Session) CaptureItem(cat inspection.Category, values url.Values) (*inspection.Item, error) {
	it, err := inspection.Capture(cat, values)
	if err != nil {
		return nil, err
	}
	it.Images = append([]imaging.Image(nil), s.Staged...)
	if err := s.Report.Add(it); err != nil {
		return nil, err
	}
	s.Staged = nil
	s.touch()
	return it, nil
}

// Edit moves an item into the edit buffer and stages its photos so that
// they are kept when the form is saved again. It is refused while photos
// for a new item are staged.
func (s *Session) Edit(uid int64) (*inspection.Item, error) {
	if len(s.Staged) > 0 && s.Report.Editing() == nil {
		return nil, ErrPhotosStaged
	}
	it, err := s.Report.Edit(uid)
	if err != nil {
		return nil, err
	}
	s.Staged = append([]imaging.Image(nil), it.Images...)
	s.touch()
	return it, nil
}

// CancelEdit restores the edited item and clears the staged photos.
func (s *Session) CancelEdit() {
	s.Report.CancelEdit()
	s.Staged = nil
	s.touch()
}

// SetSignature stores a pad capture flattened onto white. An empty capture
// clears the slot.
func (s *Session) SetSignature(slot Slot, raw imaging.Image) error {
	var dst **imaging.Image
	switch slot {
	case SlotTechnician:
		dst = &s.Report.Signatures.Technician
	case SlotClient:
		dst = &s.Report.Signatures.Client
	default:
		_, err := ParseSlot(string(slot))
		return err
	}
	if raw.Empty() {
		*dst = nil
		s.touch()
		return nil
	}
	img, err := imaging.FlattenSignature(raw)
	if err != nil {
		return err
	}
	img.Name = "assinatura_" + string(slot) + ".png"
	*dst = &img
	s.touch()
	return nil
}

// Replace swaps in a report loaded from a backup, a spreadsheet or the
// cloud. Staged photos are dropped.
func (s *Session) Replace(a *report.Aggregate) {
	s.Report = a
	s.Staged = nil
	s.touch()
}

// ApplySheet takes the header and the items of an imported spreadsheet.
// The signatures are kept; spreadsheets do not carry them.
func (s *Session) ApplySheet(a *report.Aggregate) {
	a.Signatures = s.Report.Signatures
	s.Replace(a)
}

func (s *Session) touch() { s.Updated = time.Now().UTC() }
