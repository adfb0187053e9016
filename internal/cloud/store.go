package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/unee-t/firecheck/internal/codec"
	"github.com/unee-t/firecheck/internal/report"
)

// Placeholders written to the listing columns of blank header fields.
const (
	notInformed     = "Não Informado"
	notClassified   = "-"
	historyPageSize = 10
)

// Summary is one entry of a user's report history.
type Summary struct {
	ID             string
	Client         string
	Site           string
	Technician     string
	Classification string
	Verdict        report.Verdict
	ItemCount      int
	CreatedAt      time.Time
}

// DocumentStore keeps report manifests.
type DocumentStore interface {
	Save(ctx context.Context, m *Manifest) error
	Load(ctx context.Context, user, id string) (*Manifest, error)
	ListRecent(ctx context.Context, user string, limit int) ([]Summary, error)
}

// ReportDocument is the stored row of a published report.
type ReportDocument struct {
	ID             string         `gorm:"type:varchar(36);primaryKey"`
	UserID         string         `gorm:"type:varchar(128);not null;index:idx_report_user_created,priority:1"`
	Client         string         `gorm:"not null"`
	Site           string         `gorm:"not null"`
	Technician     string         `gorm:"not null"`
	Classification string         `gorm:"not null"`
	Verdict        string         `gorm:"type:varchar(32)"`
	Header         datatypes.JSON `gorm:"not null"`
	Items          datatypes.JSON `gorm:"not null"`
	Signatures     datatypes.JSON `gorm:"not null"`
	ItemCount      int            `gorm:"not null;default:0"`
	CreatedAt      time.Time      `gorm:"not null;index:idx_report_user_created,priority:2"`
}

func (ReportDocument) TableName() string { return "inspection_reports" }

// OpenDatabase connects to postgres when databaseURL is set and to the
// sqlite file at sqlitePath otherwise.
func OpenDatabase(databaseURL, sqlitePath string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	var dialector gorm.Dialector
	switch {
	case databaseURL != "":
		dialector = postgres.Open(databaseURL)
	case sqlitePath != "":
		dialector = sqlite.Open(sqlitePath)
	default:
		return nil, errors.New("no database configured")
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// GormStore is a DocumentStore on a SQL database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the schema and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&ReportDocument{}); err != nil {
		return nil, fmt.Errorf("migrate reports: %w", err)
	}
	return &GormStore{db: db}, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func (s *GormStore) Save(ctx context.Context, m *Manifest) error {
	header, err := json.Marshal(m.Header)
	if err != nil {
		return err
	}
	items, err := json.Marshal(m.Items)
	if err != nil {
		return err
	}
	signatures, err := json.Marshal(m.Signatures)
	if err != nil {
		return err
	}
	row := &ReportDocument{
		ID:             m.ID,
		UserID:         m.UserID,
		Client:         orDefault(m.Header.Client, notInformed),
		Site:           orDefault(m.Header.Site, notInformed),
		Technician:     orDefault(m.Header.Technician, notInformed),
		Classification: orDefault(m.Header.Classification, notClassified),
		Verdict:        string(m.Header.Verdict),
		Header:         datatypes.JSON(header),
		Items:          datatypes.JSON(items),
		Signatures:     datatypes.JSON(signatures),
		ItemCount:      len(m.Items),
		CreatedAt:      m.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return ioError("save", m.ID, err)
	}
	return nil
}

func (s *GormStore) Load(ctx context.Context, user, id string) (*Manifest, error) {
	var row ReportDocument
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, user).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, ioError("load", id, err)
	}
	m := &Manifest{ID: row.ID, UserID: row.UserID, CreatedAt: row.CreatedAt}
	if err := json.Unmarshal(row.Header, &m.Header); err != nil {
		return nil, fmt.Errorf("report %s header: %w", id, err)
	}
	if err := json.Unmarshal(row.Items, &m.Items); err != nil {
		return nil, fmt.Errorf("report %s items: %w", id, err)
	}
	if err := json.Unmarshal(row.Signatures, &m.Signatures); err != nil {
		return nil, fmt.Errorf("report %s signatures: %w", id, err)
	}
	if m.Items == nil {
		m.Items = []codec.ItemRecord{}
	}
	return m, nil
}

func (s *GormStore) ListRecent(ctx context.Context, user string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = historyPageSize
	}
	var rows []ReportDocument
	err := s.db.WithContext(ctx).
		Select("id", "client", "site", "technician", "classification", "verdict", "item_count", "created_at").
		Where("user_id = ?", user).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, ioError("list", user, err)
	}
	out := make([]Summary, 0, len(rows))
	for _, r := range rows {
		out = append(out, Summary{
			ID:             r.ID,
			Client:         r.Client,
			Site:           r.Site,
			Technician:     r.Technician,
			Classification: r.Classification,
			Verdict:        report.Verdict(r.Verdict),
			ItemCount:      r.ItemCount,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out, nil
}
