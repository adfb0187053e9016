package main

import (
	"html/template"
	"time"

	"github.com/unee-t/firecheck/internal/cloud"
	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/inspection"
	"github.com/unee-t/firecheck/internal/report"
	"github.com/unee-t/firecheck/internal/session"
)

// ItemView is one row of the item list
type ItemView struct {
	UID      int64               `json:"uid"`
	Type     inspection.Category `json:"type"`
	Badge    string              `json:"badge"` // HIDRANTE, EXTINTOR, ...
	Title    string              `json:"title"`
	ID       string              `json:"id"`
	Location string              `json:"andar"`
	Note     string              `json:"obs,omitempty"`
	Photos   int                 `json:"photos"`
	Details  inspection.Details  `json:"details,omitempty"`
}

// StagedView is a thumbnail of a photo waiting for the item form
type StagedView struct {
	Name    string       `json:"name"`
	DataURI template.URL `json:"dataUri"`
}

// ReportView is the whole session as the form sees it
type ReportView struct {
	ID         string         `json:"id"`
	Header     report.Header  `json:"header"`
	Count      int            `json:"count"`
	Items      []ItemView     `json:"items"`
	Editing    *ItemView      `json:"editing,omitempty"`
	Staged     []StagedView   `json:"staged"`
	Signatures SignaturesView `json:"signatures"`
}

// SignaturesView tells which pads have been signed
type SignaturesView struct {
	Technician bool `json:"tecnico"`
	Client     bool `json:"cliente"`
}

// StageResult answers a photo upload
type StageResult struct {
	Staged  []StagedView `json:"staged"`
	Skipped []string     `json:"skipped,omitempty"`
}

// HistoryEntry is one stored report
type HistoryEntry struct {
	ID             string    `json:"id"`
	Client         string    `json:"cliente"`
	Site           string    `json:"local"`
	Technician     string    `json:"respTecnico"`
	Classification string    `json:"classificacao"`
	Verdict        string    `json:"parecer"`
	Items          int       `json:"itemCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PublishResult answers a cloud save
type PublishResult struct {
	ReportID string `json:"reportId"`
	Items    int    `json:"itemCount"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func newItemView(it *inspection.Item) ItemView {
	return ItemView{
		UID:      it.UID,
		Type:     it.Category,
		Badge:    it.Category.Label(),
		Title:    it.Title(),
		ID:       it.ID,
		Location: it.Location,
		Note:     it.Note,
		Photos:   len(it.Images),
		Details:  it.Details,
	}
}

func newItemViews(items []*inspection.Item) []ItemView {
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		out = append(out, newItemView(it))
	}
	return out
}

func newStagedViews(staged []imaging.Image) []StagedView {
	out := make([]StagedView, 0, len(staged))
	for _, img := range staged {
		out = append(out, StagedView{Name: img.Name, DataURI: template.URL(img.DataURI())})
	}
	return out
}

func newReportView(s *session.Session, order report.Order) ReportView {
	v := ReportView{
		ID:     s.ID,
		Header: s.Report.Header,
		Count:  s.Report.Len(),
		Items:  newItemViews(s.Report.SortedView(order)),
		Staged: newStagedViews(s.Staged),
		Signatures: SignaturesView{
			Technician: s.Report.Signatures.Technician != nil,
			Client:     s.Report.Signatures.Client != nil,
		},
	}
	if it := s.Report.Editing(); it != nil {
		ev := newItemView(it)
		v.Editing = &ev
	}
	return v
}

func newHistoryEntry(s cloud.Summary) HistoryEntry {
	return HistoryEntry{
		ID:             s.ID,
		Client:         s.Client,
		Site:           s.Site,
		Technician:     s.Technician,
		Classification: s.Classification,
		Verdict:        s.Verdict.Text(),
		Items:          s.ItemCount,
		CreatedAt:      s.CreatedAt,
	}
}
