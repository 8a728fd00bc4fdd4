// Package remote mirrors collection snapshots to redis so another device can
// pull the books. Payloads are snappy-compressed JSON envelopes.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shopbooks/internal/lock"
	"github.com/smallbiznis/shopbooks/internal/persistence/domain"
)

const (
	keyPrefix = "shopbooks"
	lockTTL   = 10 * time.Second
)

type envelope struct {
	Revision  string          `json:"revision"`
	Records   int             `json:"records"`
	UpdatedAt time.Time       `json:"updated_at"`
	Payload   json.RawMessage `json:"payload"`
}

type Mirror struct {
	client redis.Cmdable
	locker *lock.Locker
}

func New(client redis.Cmdable, locker *lock.Locker) *Mirror {
	return &Mirror{client: client, locker: locker}
}

var _ domain.Mirror = (*Mirror)(nil)

func Key(storeKey, collection string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, storeKey, collection)
}

func lockKey(storeKey, collection string) string {
	return Key(storeKey, collection) + ":lock"
}

func (m *Mirror) Push(ctx context.Context, s domain.Snapshot) error {
	if m == nil || m.client == nil {
		return domain.ErrMirrorDisabled
	}
	data, err := encode(s)
	if err != nil {
		return err
	}

	if m.locker != nil {
		lk := lockKey(s.StoreKey, s.Collection)
		token, ok, err := m.locker.TryLock(ctx, lk, lockTTL)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("mirror %s: %w", s.Collection, lock.ErrLockHeld)
		}
		defer func() { _ = m.locker.Release(context.WithoutCancel(ctx), lk, token) }()
	}

	return m.client.Set(ctx, Key(s.StoreKey, s.Collection), data, 0).Err()
}

func (m *Mirror) Pull(ctx context.Context, storeKey, collection string) (domain.Snapshot, error) {
	if m == nil || m.client == nil {
		return domain.Snapshot{}, domain.ErrMirrorDisabled
	}
	data, err := m.client.Get(ctx, Key(storeKey, collection)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Snapshot{}, domain.ErrNotFound
		}
		return domain.Snapshot{}, err
	}
	s, err := decode(data)
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.StoreKey = storeKey
	s.Collection = collection
	return s, nil
}

func encode(s domain.Snapshot) ([]byte, error) {
	payload := s.Payload
	if len(payload) == 0 {
		payload = []byte("[]")
	}
	raw, err := json.Marshal(envelope{
		Revision:  s.Revision,
		Records:   s.Records,
		UpdatedAt: s.UpdatedAt.UTC(),
		Payload:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncodePayload, err)
	}
	return snappy.Encode(nil, raw), nil
}

func decode(data []byte) (domain.Snapshot, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("decompress snapshot: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return domain.Snapshot{
		Revision:  env.Revision,
		Records:   env.Records,
		UpdatedAt: env.UpdatedAt,
		Payload:   []byte(env.Payload),
	}, nil
}
