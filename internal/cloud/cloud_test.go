package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/inspection"
	"github.com/unee-t/firecheck/internal/report"
)

func photo(name string, b byte) imaging.Image {
	return imaging.Image{Name: name, MIME: "image/jpeg", Data: []byte{0xff, 0xd8, b, b + 1, 0xff, 0xd9}}
}

func sampleReport(t *testing.T) *report.Aggregate {
	t.Helper()
	a := report.New()
	a.Header = report.Header{Client: "Shopping Norte", Site: "Bloco B", Verdict: report.VerdictApproved}
	items := []*inspection.Item{
		{Category: inspection.CategoryHydrant, ID: "H-1", Location: "Térreo", Details: &inspection.Hydrant{RegisterOK: true}, Images: []imaging.Image{photo("a.jpg", 1), photo("b.jpg", 2)}},
		{Category: inspection.CategoryGeneral, Note: "Rota de fuga obstruída", Images: []imaging.Image{photo("c.jpg", 3)}},
		{Category: inspection.CategoryGeneral, Note: "Porta corta-fogo sem mola", Images: []imaging.Image{photo("d.jpg", 4)}},
		{Category: inspection.CategoryPump, ID: "B-1", Location: "Subsolo", Details: &inspection.Pump{Automatic: true}},
	}
	for _, it := range items {
		require.NoError(t, a.Add(it))
	}
	sig := imaging.Image{Name: "assinatura.png", MIME: "image/png", Data: []byte("png-bytes")}
	a.Signatures.Technician = &sig
	return a
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func testPublisher(t *testing.T) (*Publisher, *Memory, *memory.Handler) {
	t.Helper()
	store, err := NewGormStore(testDB(t))
	require.NoError(t, err)
	blobs := NewMemory()
	h := memory.New()
	clock := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	return &Publisher{
		Blobs: blobs,
		Docs:  store,
		Log:   &log.Logger{Handler: h, Level: log.DebugLevel},
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	}, blobs, h
}

func TestPlanKeys(t *testing.T) {
	a := sampleReport(t)
	m, blobs, err := Plan("u1", "r1", a)
	require.NoError(t, err)

	items := a.Items()
	want := []string{
		PhotoKey("u1", "r1", items[0].UID, 0),
		PhotoKey("u1", "r1", items[0].UID, 1),
		PhotoKey("u1", "r1", items[1].UID, 0),
		PhotoKey("u1", "r1", items[2].UID, 0),
		"u1/r1/signatures/tecnico",
	}
	var got []string
	for _, b := range blobs {
		got = append(got, b.Key)
	}
	assert.Equal(t, want, got)
	assert.NotEqual(t, got[2], got[3], "general notes share an ID but not a key")
	assert.Equal(t, []string{want[0], want[1]}, m.Items[0].Images)
	assert.Empty(t, m.Items[3].Images)
	assert.Equal(t, "u1/r1/signatures/tecnico", m.Signatures.Technician)
	assert.Empty(t, m.Signatures.Client)
	assert.True(t, strings.HasPrefix(want[0], fmt.Sprintf("u1/r1/%d/", items[0].UID)))
}

func TestPublishOpenRoundTrip(t *testing.T) {
	p, blobs, _ := testPublisher(t)
	ctx := context.Background()
	a := sampleReport(t)

	m, err := p.Publish(ctx, "u1", a)
	require.NoError(t, err)
	assert.Equal(t, 5, blobs.Len())
	for _, ref := range m.Items[0].Images {
		assert.True(t, strings.HasPrefix(ref, "mem://u1/"+m.ID+"/"), ref)
	}

	got, err := p.Open(ctx, "u1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Header, got.Header)
	require.Equal(t, a.Len(), got.Len())
	for i, want := range a.Items() {
		it := got.Items()[i]
		assert.Equal(t, want.UID, it.UID)
		assert.Equal(t, want.ID, it.ID)
		assert.Equal(t, want.Note, it.Note)
		assert.Equal(t, want.Details, it.Details)
		require.Len(t, it.Images, len(want.Images))
		for j := range want.Images {
			assert.Equal(t, want.Images[j].Data, it.Images[j].Data)
		}
	}
	require.NotNil(t, got.Signatures.Technician)
	assert.Equal(t, []byte("png-bytes"), got.Signatures.Technician.Data)
	assert.Equal(t, "assinatura_tecnico.png", got.Signatures.Technician.Name)
	assert.Nil(t, got.Signatures.Client)

	_, err = p.Open(ctx, "someone-else", m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublishFailureAbandons(t *testing.T) {
	p, blobs, logs := testPublisher(t)
	boom := errors.New("connection reset")
	blobs.Fail = func(key string) error {
		if strings.HasSuffix(key, "/1") {
			return boom
		}
		return nil
	}

	_, err := p.Publish(context.Background(), "u1", sampleReport(t))
	var ioe *IOError
	require.ErrorAs(t, err, &ioe)
	assert.Equal(t, "put", ioe.Op)
	assert.ErrorIs(t, err, boom)

	list, err := p.History(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, list, "no document is written when an upload fails")

	logged := false
	for _, e := range logs.Entries {
		if e.Level == log.ErrorLevel {
			logged = true
		}
	}
	assert.True(t, logged, "IO failures are logged")
}

func TestHistoryNewestFirst(t *testing.T) {
	p, _, _ := testPublisher(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 12; i++ {
		a := report.New()
		if i == 11 {
			a.Header.Client = "Último"
		}
		m, err := p.Publish(ctx, "u1", a)
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	_, err := p.Publish(ctx, "u2", report.New())
	require.NoError(t, err)

	list, err := p.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 10)
	assert.Equal(t, ids[11], list[0].ID)
	assert.Equal(t, ids[2], list[9].ID)
	assert.Equal(t, "Último", list[0].Client)
	assert.Equal(t, "Não Informado", list[1].Client)
	assert.Equal(t, "Não Informado", list[1].Technician)
	assert.Equal(t, "-", list[1].Classification)
	assert.Equal(t, 0, list[1].ItemCount)
}

func TestReconstructMissingBlob(t *testing.T) {
	a := sampleReport(t)
	m, _, err := Plan("u1", "r1", a)
	require.NoError(t, err)

	_, err = Reconstruct(context.Background(), m, NewMemory().Fetch)
	var ioe *IOError
	require.ErrorAs(t, err, &ioe)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenKeepsBlankHeader(t *testing.T) {
	p, _, _ := testPublisher(t)
	ctx := context.Background()
	m, err := p.Publish(ctx, "u1", report.New())
	require.NoError(t, err)

	got, err := p.Open(ctx, "u1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Header.Client)
	assert.Equal(t, 0, got.Len())
}
