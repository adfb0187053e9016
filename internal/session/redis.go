package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unee-t/firecheck/internal/codec"
	"github.com/unee-t/firecheck/internal/imaging"
)

const (
	redisPrefix  = "firecheck:session:"
	redisRetries = 5
)

// DefaultTTL is how long an idle session is kept in redis.
const DefaultTTL = 24 * time.Hour

// snapshot is the stored form of a session. An item in the edit buffer is
// stored with the others and put back into the buffer on load.
type snapshot struct {
	ID      string          `json:"id"`
	User    string          `json:"user"`
	Report  *codec.Backup   `json:"report"`
	Editing int64           `json:"editing,omitempty"`
	Staged  []stagedPicture `json:"staged,omitempty"`
	Updated time.Time       `json:"updated"`
}

type stagedPicture struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

func encodeSession(s *Session) ([]byte, error) {
	b, err := codec.NewBackup(s.Report)
	if err != nil {
		return nil, err
	}
	snap := snapshot{ID: s.ID, User: s.User, Report: b, Updated: s.Updated}
	if it := s.Report.Editing(); it != nil {
		rec, err := codec.ToRecord(it, func(_ int, img imaging.Image) (string, error) {
			return img.DataURI(), nil
		})
		if err != nil {
			return nil, err
		}
		b.Items = append(b.Items, rec)
		snap.Editing = it.UID
	}
	for _, img := range s.Staged {
		snap.Staged = append(snap.Staged, stagedPicture{Name: img.Name, MIME: img.MIME, Data: img.Data})
	}
	return json.Marshal(snap)
}

func decodeSession(data []byte) (*Session, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if snap.Report == nil {
		return nil, fmt.Errorf("decode session %s: missing report", snap.ID)
	}
	a, err := snap.Report.Aggregate()
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", snap.ID, err)
	}
	if snap.Editing != 0 {
		if _, err := a.Edit(snap.Editing); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", snap.ID, err)
		}
	}
	s := &Session{ID: snap.ID, User: snap.User, Report: a, Updated: snap.Updated}
	for _, p := range snap.Staged {
		s.Staged = append(s.Staged, imaging.Image{Name: p.Name, MIME: p.MIME, Data: p.Data})
	}
	return s, nil
}

// RedisStore keeps sessions in redis so that any instance can serve them.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore returns a store on rdb; a zero ttl selects DefaultTTL.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(id string) string { return redisPrefix + id }

func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	data, err := encodeSession(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key(s.ID), data, r.ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(data)
}

func (r *RedisStore) View(ctx context.Context, id string, fn func(*Session) error) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fn(s)
}

// Update applies fn under optimistic locking, retrying when another writer
// changed the session in between.
func (r *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) error {
	k := key(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		s, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		out, err := encodeSession(s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, out, r.ttl)
			return nil
		})
		return err
	}
	for i := 0; i < redisRetries; i++ {
		err := r.rdb.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update session %s: %w", id, redis.TxFailedErr)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, key(id)).Err()
}
