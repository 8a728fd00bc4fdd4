package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/shopbooks/internal/clock"
	"github.com/smallbiznis/shopbooks/internal/config"
	"github.com/smallbiznis/shopbooks/internal/persistence/domain"
	"github.com/smallbiznis/shopbooks/internal/persistence/writebehind"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultStoreKey = "default"

type Params struct {
	fx.In

	Log     *zap.Logger
	Config  config.Config
	Clock   clock.Clock
	Repo    domain.Repository
	Mirror  domain.Mirror `optional:"true"`
	Queue   *writebehind.Queue
	Tracker *writebehind.Tracker
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	mirror   domain.Mirror
	queue    *writebehind.Queue
	tracker  *writebehind.Tracker
	storeKey string
}

func New(p Params) *Service {
	svc := &Service{
		log:      p.Log.Named("persistence.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		mirror:   p.Mirror,
		queue:    p.Queue,
		tracker:  p.Tracker,
		storeKey: StoreKey(p.Config.StoreName),
	}

	p.Queue.Register(domain.TargetPrimary, p.Repo.Save)
	if p.Mirror != nil {
		p.Queue.Register(domain.TargetRemote, p.Mirror.Push)
	}
	return svc
}

var _ domain.Persister = (*Service)(nil)

// StoreKey turns a shop name into the key snapshots are filed under.
func StoreKey(name string) string {
	key := slug.Make(strings.TrimSpace(name))
	if key == "" {
		return defaultStoreKey
	}
	return key
}

// Persist snapshots the full record list of a collection and schedules it
// for every target. The returned result is queued unless encoding failed.
func (s *Service) Persist(collection string, records any) domain.Result {
	now := s.clock.Now().UTC()
	result := domain.Result{
		Collection: collection,
		Target:     domain.TargetPrimary,
		Status:     domain.StatusQueued,
		At:         now,
	}

	payload, count, err := encodeRecords(records)
	if err != nil {
		result.Status = domain.StatusFailed
		result.Reason = "encode"
		result.Error = err.Error()
		s.tracker.Record(result)
		s.log.Error("snapshot encode failed", zap.String("collection", collection), zap.Error(err))
		return result
	}

	revision := ulid.Make().String()
	result.Revision = revision
	s.queue.Enqueue(domain.Snapshot{
		StoreKey:   s.storeKey,
		Collection: collection,
		Revision:   revision,
		Records:    count,
		Payload:    payload,
		UpdatedAt:  now,
	})
	return result
}

// Load returns the stored payload of a collection. The primary wins; the
// mirror is consulted only when the primary has nothing or fails.
func (s *Service) Load(ctx context.Context, collection string) ([]byte, bool, error) {
	snap, err := s.repo.Load(ctx, s.storeKey, collection)
	if err == nil {
		return snap.Payload, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.log.Warn("primary load failed", zap.String("collection", collection), zap.Error(err))
	}
	primaryErr := err

	if s.mirror == nil {
		if errors.Is(primaryErr, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, primaryErr
	}

	snap, err = s.mirror.Pull(ctx, s.storeKey, collection)
	switch {
	case err == nil:
		s.log.Info("collection restored from mirror",
			zap.String("collection", collection),
			zap.String("revision", snap.Revision),
		)
		return snap.Payload, true, nil
	case errors.Is(err, domain.ErrNotFound) && errors.Is(primaryErr, domain.ErrNotFound):
		return nil, false, nil
	case errors.Is(primaryErr, domain.ErrNotFound):
		return nil, false, err
	default:
		return nil, false, primaryErr
	}
}

func (s *Service) Health() domain.HealthReport {
	return s.tracker.Report(s.queue.Len())
}

// Flush writes everything still pending, bounded by ctx.
func (s *Service) Flush(ctx context.Context) error {
	return s.queue.Flush(ctx)
}

func encodeRecords(records any) ([]byte, int, error) {
	if records == nil {
		return []byte("[]"), 0, nil
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrEncodePayload, err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, 0, fmt.Errorf("%w: records must be a list", domain.ErrEncodePayload)
	}
	return payload, len(items), nil
}
