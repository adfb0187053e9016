package cloud

import (
	"context"
	"errors"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/unee-t/firecheck/internal/report"
)

// Publisher saves reports to the cloud and reads them back.
type Publisher struct {
	Blobs BlobStore
	Docs  DocumentStore

	// Limiter paces blob uploads; nil means unpaced.
	Limiter *rate.Limiter
	Log     log.Interface
	Now     func() time.Time
}

func (p *Publisher) logger() log.Interface {
	if p.Log != nil {
		return p.Log
	}
	return log.Log
}

func (p *Publisher) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Publisher) put(ctx context.Context, b Blob) (string, error) {
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return "", ioError("put", b.Key, err)
		}
	}
	return p.Blobs.Put(ctx, b.Key, b.Image)
}

// Publish uploads every photo and signature of a and stores the report
// document. Items upload in parallel; an item counts as saved once all of
// its photos are up. Any failure abandons the whole publication and no
// document is written.
func (p *Publisher) Publish(ctx context.Context, user string, a *report.Aggregate) (*Manifest, error) {
	id := uuid.NewString()
	ctxLog := p.logger().WithFields(log.Fields{"user": user, "report": id})

	m, blobs, err := Plan(user, id, a)
	if err != nil {
		return nil, err
	}

	urls := make(map[string]string, len(blobs))
	byItem := make(map[int64][]int)
	var order []int64
	for i, b := range blobs {
		if _, ok := byItem[b.Item]; !ok {
			order = append(order, b.Item)
		}
		byItem[b.Item] = append(byItem[b.Item], i)
	}
	results := make([]string, len(blobs))

	g, gctx := errgroup.WithContext(ctx)
	for _, uid := range order {
		uid, idx := uid, byItem[uid]
		g.Go(func() error {
			photos, pctx := errgroup.WithContext(gctx)
			for _, i := range idx {
				i := i
				photos.Go(func() error {
					url, err := p.put(pctx, blobs[i])
					if err != nil {
						return err
					}
					results[i] = url
					return nil
				})
			}
			if err := photos.Wait(); err != nil {
				return err
			}
			if uid != 0 {
				ctxLog.WithField("item", uid).WithField("photos", len(idx)).Debug("item photos uploaded")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		ctxLog.WithError(err).Error("publish failed")
		return nil, err
	}
	for i, b := range blobs {
		urls[b.Key] = results[i]
	}

	for i := range m.Items {
		for j, key := range m.Items[i].Images {
			m.Items[i].Images[j] = urls[key]
		}
	}
	if m.Signatures.Technician != "" {
		m.Signatures.Technician = urls[m.Signatures.Technician]
	}
	if m.Signatures.Client != "" {
		m.Signatures.Client = urls[m.Signatures.Client]
	}
	m.CreatedAt = p.now().UTC()

	if err := p.Docs.Save(ctx, &m); err != nil {
		ctxLog.WithError(err).Error("saving report document")
		return nil, err
	}
	ctxLog.WithFields(log.Fields{"items": len(m.Items), "blobs": len(blobs)}).Info("report published")
	return &m, nil
}

// Open loads a stored report with its images.
func (p *Publisher) Open(ctx context.Context, user, id string) (*report.Aggregate, error) {
	m, err := p.Docs.Load(ctx, user, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger().WithError(err).WithField("report", id).Error("loading report")
		}
		return nil, err
	}
	a, err := Reconstruct(ctx, *m, p.Blobs.Fetch)
	if err != nil {
		p.logger().WithError(err).WithField("report", id).Error("reconstructing report")
		return nil, err
	}
	return a, nil
}

// History lists the user's most recent reports, newest first.
func (p *Publisher) History(ctx context.Context, user string) ([]Summary, error) {
	list, err := p.Docs.ListRecent(ctx, user, historyPageSize)
	if err != nil {
		p.logger().WithError(err).WithField("user", user).Error("listing reports")
		return nil, err
	}
	return list, nil
}
