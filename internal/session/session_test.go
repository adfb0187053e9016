package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/inspection"
	"github.com/unee-t/firecheck/internal/report"
)

func pngImage(t *testing.T, name string, w, h int, c color.Color) imaging.Image {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return imaging.Image{Name: name, MIME: "image/png", Data: buf.Bytes()}
}

func hydrantForm(id string) url.Values {
	return url.Values{"andar": {"Térreo"}, "id": {id}, "check_registro": {"true"}}
}

func TestStageImages(t *testing.T) {
	s := New("u1")
	h := memory.New()
	raws := []imaging.Image{
		pngImage(t, "wide.png", 1600, 800, color.NRGBA{R: 200, A: 255}),
		{Name: "bad.jpg", MIME: "image/jpeg", Data: []byte("garbage")},
		{Name: "notes.txt", MIME: "text/plain", Data: []byte("hello")},
		pngImage(t, "small.png", 300, 200, color.NRGBA{B: 200, A: 255}),
	}

	skipped, err := s.StageImages(context.Background(), raws, imaging.Defaults(), &log.Logger{Handler: h, Level: log.InfoLevel})
	require.NoError(t, err)
	assert.Equal(t, []string{"bad.jpg", "notes.txt"}, skipped)
	require.Len(t, s.Staged, 2)
	assert.Equal(t, "wide.png", s.Staged[0].Name)
	assert.Equal(t, "small.png", s.Staged[1].Name)

	w, hh, err := imaging.Dimensions(s.Staged[0])
	require.NoError(t, err)
	assert.Equal(t, 1200, w)
	assert.Equal(t, 600, hh)
	assert.Equal(t, "image/jpeg", s.Staged[0].MIME)
	assert.Len(t, h.Entries, 2)

	require.NoError(t, s.DropStaged(0))
	require.Len(t, s.Staged, 1)
	assert.Equal(t, "small.png", s.Staged[0].Name)
	assert.ErrorIs(t, s.DropStaged(5), ErrNotFound)
	s.ClearStaged()
	assert.Empty(t, s.Staged)
}

func TestCaptureItem(t *testing.T) {
	s := New("u1")
	s.Staged = []imaging.Image{{Name: "a.jpg", MIME: "image/jpeg", Data: []byte{1}}}

	it, err := s.CaptureItem(inspection.CategoryHydrant, hydrantForm("H-1"))
	require.NoError(t, err)
	assert.Len(t, it.Images, 1)
	assert.Empty(t, s.Staged, "staging is cleared once the item is saved")

	s.Staged = []imaging.Image{{Name: "b.jpg", MIME: "image/jpeg", Data: []byte{2}}}
	_, err = s.CaptureItem(inspection.CategoryHydrant, hydrantForm("h-1"))
	assert.ErrorIs(t, err, inspection.ErrDuplicateID)
	assert.Len(t, s.Staged, 1, "a rejected item keeps the staged photos")
	assert.Equal(t, 1, s.Report.Len())
}

func TestEditFlow(t *testing.T) {
	s := New("u1")
	s.Staged = []imaging.Image{{Name: "a.jpg", MIME: "image/jpeg", Data: []byte{1}}}
	it, err := s.CaptureItem(inspection.CategoryHydrant, hydrantForm("H-1"))
	require.NoError(t, err)

	_, err = s.Edit(it.UID)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Report.Len())
	require.Len(t, s.Staged, 1, "photos of the edited item are staged again")

	_, err = s.Edit(it.UID)
	assert.ErrorIs(t, err, report.ErrEditInProgress)

	s.CancelEdit()
	assert.Equal(t, 1, s.Report.Len())
	assert.Empty(t, s.Staged)

	_, err = s.Edit(it.UID)
	require.NoError(t, err)
	saved, err := s.CaptureItem(inspection.CategoryHydrant, hydrantForm("H-1A"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Report.Len())
	assert.Nil(t, s.Report.Editing())
	assert.Len(t, saved.Images, 1)
	assert.Equal(t, "H-1A", s.Report.Items()[0].ID)
}

func TestEditKeepsStagedPhotos(t *testing.T) {
	s := New("u1")
	it, err := s.CaptureItem(inspection.CategoryHydrant, hydrantForm("H-1"))
	require.NoError(t, err)

	staged := imaging.Image{Name: "nova.jpg", MIME: "image/jpeg", Data: []byte{1}}
	s.Staged = []imaging.Image{staged}
	_, err = s.Edit(it.UID)
	assert.ErrorIs(t, err, ErrPhotosStaged)
	assert.Nil(t, s.Report.Editing())
	assert.Equal(t, []imaging.Image{staged}, s.Staged)

	s.ClearStaged()
	_, err = s.Edit(it.UID)
	require.NoError(t, err)
}

func TestSetSignature(t *testing.T) {
	s := New("u1")
	raw := pngImage(t, "", 40, 20, color.NRGBA{})

	require.NoError(t, s.SetSignature(SlotTechnician, raw))
	require.NotNil(t, s.Report.Signatures.Technician)
	assert.Equal(t, "assinatura_tecnico.png", s.Report.Signatures.Technician.Name)

	flat, _, err := image.Decode(bytes.NewReader(s.Report.Signatures.Technician.Data))
	require.NoError(t, err)
	r, g, b, a := flat.At(5, 5).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff, 0xffff}, []uint32{r, g, b, a}, "transparent pixels become white")

	require.NoError(t, s.SetSignature(SlotTechnician, imaging.Image{}))
	assert.Nil(t, s.Report.Signatures.Technician)

	err = s.SetSignature(Slot("testemunha"), raw)
	var verr *inspection.ValidationError
	assert.True(t, errors.As(err, &verr))

	err = s.SetSignature(SlotClient, imaging.Image{Name: "x.png", MIME: "image/png", Data: []byte("nope")})
	var encErr *imaging.EncodingError
	assert.True(t, errors.As(err, &encErr))
}

func TestGuard(t *testing.T) {
	g := NewGuard()
	release, err := g.Acquire("s1", "pdf")
	require.NoError(t, err)
	assert.True(t, g.Busy("s1", "pdf"))

	_, err = g.Acquire("s1", "pdf")
	assert.ErrorIs(t, err, ErrBusy)

	other, err := g.Acquire("s1", "publish")
	require.NoError(t, err)
	other()

	release()
	assert.False(t, g.Busy("s1", "pdf"))
	release2, err := g.Acquire("s1", "pdf")
	require.NoError(t, err)
	release2()
}

func redisStore(t *testing.T) Store {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb, 0)
}

func TestStores(t *testing.T) {
	stores := []struct {
		name string
		new  func(t *testing.T) Store
	}{
		{"memory", func(*testing.T) Store { return NewMemoryStore() }},
		{"redis", redisStore},
	}
	for _, tt := range stores {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := tt.new(t)

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, store.Update(ctx, "missing", func(*Session) error { return nil }), ErrNotFound)

			s := New("u1")
			s.Report.Header.Client = "Hotel Central"
			require.NoError(t, store.Create(ctx, s))

			err = store.Update(ctx, s.ID, func(s *Session) error {
				s.Staged = []imaging.Image{{Name: "a.jpg", MIME: "image/jpeg", Data: []byte{1, 2, 3}}}
				if _, err := s.CaptureItem(inspection.CategoryHydrant, hydrantForm("H-1")); err != nil {
					return err
				}
				if _, err := s.CaptureItem(inspection.CategoryPump, url.Values{"andar": {"Subsolo"}, "id": {"B-1"}}); err != nil {
					return err
				}
				s.Staged = []imaging.Image{{Name: "b.jpg", MIME: "image/jpeg", Data: []byte{4}}}
				return nil
			})
			require.NoError(t, err)

			var hydrantUID int64
			got, err := store.Get(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, "u1", got.User)
			assert.Equal(t, "Hotel Central", got.Report.Header.Client)
			require.Equal(t, 2, got.Report.Len())
			hydrantUID = got.Report.Items()[0].UID
			assert.Equal(t, []byte{1, 2, 3}, got.Report.Items()[0].Images[0].Data)
			require.Len(t, got.Staged, 1)
			assert.Equal(t, "b.jpg", got.Staged[0].Name)

			require.NoError(t, store.Update(ctx, s.ID, func(s *Session) error {
				_, err := s.Edit(hydrantUID)
				return err
			}))
			got, err = store.Get(ctx, s.ID)
			require.NoError(t, err)
			require.NotNil(t, got.Report.Editing(), "the edit buffer survives storage")
			assert.Equal(t, hydrantUID, got.Report.Editing().UID)
			assert.Equal(t, 1, got.Report.Len())

			boom := errors.New("boom")
			assert.ErrorIs(t, store.Update(ctx, s.ID, func(*Session) error { return boom }), boom)

			require.NoError(t, store.Delete(ctx, s.ID))
			_, err = store.Get(ctx, s.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestViewDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	store := redisStore(t)
	s := New("u1")
	require.NoError(t, store.Create(ctx, s))

	require.NoError(t, store.View(ctx, s.ID, func(s *Session) error {
		s.Report.Header.Client = "changed"
		return nil
	}))
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Report.Header.Client)
}
