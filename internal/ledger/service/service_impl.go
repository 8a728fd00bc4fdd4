package service

import (
	"math"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopbooks/internal/clock"
	"github.com/smallbiznis/shopbooks/internal/config"
	"github.com/smallbiznis/shopbooks/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	GenID  *snowflake.Node
	Config *config.BooksConfigHolder
}

type Service struct {
	log    *zap.Logger
	clock  clock.Clock
	genID  *snowflake.Node
	config *config.BooksConfigHolder

	mu      sync.RWMutex
	entries []domain.CollectionEntry
	keys    map[domain.DedupKey]int
}

var _ domain.Ledger = (*Service)(nil)

func New(p Params) *Service {
	return &Service{
		log:    p.Log.Named("ledger.service"),
		clock:  p.Clock,
		genID:  p.GenID,
		config: p.Config,
		keys:   map[domain.DedupKey]int{},
	}
}

func (s *Service) Normalize(c domain.Candidate) (domain.CollectionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.normalize(c)
}

func (s *Service) Accepts(c domain.Candidate) bool {
	_, err := s.Normalize(c)
	return err == nil
}

func (s *Service) normalize(c domain.Candidate) (domain.CollectionEntry, error) {
	entry := domain.CollectionEntry{
		ID:       strings.TrimSpace(c.ID),
		Date:     strings.TrimSpace(c.Date),
		Source:   strings.TrimSpace(c.Source),
		Kind:     c.Kind,
		Details:  strings.TrimSpace(c.Details),
		Amount:   c.Amount,
		Customer: strings.TrimSpace(c.Customer),
		Product:  strings.TrimSpace(c.Product),
		Qty:      c.Qty,
		Price:    c.Price,
		Item:     strings.TrimSpace(c.Item),
		Model:    strings.TrimSpace(c.Model),
		RefID:    strings.TrimSpace(c.RefID),
	}
	if entry.Amount == 0 {
		return domain.CollectionEntry{}, domain.ErrZeroAmount
	}
	if entry.Kind != "" {
		kind, ok := domain.ParseKind(string(entry.Kind))
		if !ok {
			return domain.CollectionEntry{}, domain.ErrInvalidKind
		}
		entry.Kind = kind
	}
	if entry.Date == "" {
		entry.Date = clock.Today(s.clock)
	}
	if entry.Source == "" {
		entry.Source = domain.DefaultSource
	}
	if entry.Kind == "" {
		entry.Kind = domain.ClassifySource(entry.Source)
	}
	if _, exists := s.keys[entry.Key()]; exists {
		return domain.CollectionEntry{}, domain.ErrDuplicateEntry
	}
	if entry.ID == "" {
		entry.ID = s.genID.Generate().String()
	}
	return entry, nil
}

func (s *Service) Add(c domain.Candidate) (domain.CollectionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.normalize(c)
	if err != nil {
		s.log.Debug("collection rejected",
			zap.String("source", c.Source),
			zap.String("details", c.Details),
			zap.Float64("amount", c.Amount.Float()),
			zap.Error(err),
		)
		return domain.CollectionEntry{}, err
	}

	s.entries = append([]domain.CollectionEntry{entry}, s.entries...)
	s.reindex()
	return entry, nil
}

func (s *Service) Remove(id string) (domain.CollectionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id {
			return s.removeAt(i), nil
		}
	}
	return domain.CollectionEntry{}, domain.ErrNotFound
}

func (s *Service) RemoveBestMatch(q domain.MatchQuery) (domain.CollectionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tolerance := config.DefaultBooksConfig().MatchTolerance
	if s.config != nil {
		tolerance = s.config.Get().MatchTolerance
	}
	date := strings.TrimSpace(q.Date)
	for i, e := range s.entries {
		if e.Date != date {
			continue
		}
		if math.Abs(e.Amount.Float()-q.Amount) >= tolerance {
			continue
		}
		if !e.InDomain(q.Domain) {
			continue
		}
		removed := s.removeAt(i)
		s.log.Warn("collection removed by best match",
			zap.String("id", removed.ID),
			zap.String("date", date),
			zap.Float64("amount", q.Amount),
			zap.String("domain", string(q.Domain)),
		)
		return removed, nil
	}
	return domain.CollectionEntry{}, domain.ErrNotFound
}

func (s *Service) Get(id string) (domain.CollectionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return domain.CollectionEntry{}, false
}

func (s *Service) Entries() []domain.CollectionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CollectionEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Service) Load(entries []domain.CollectionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := make([]domain.CollectionEntry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	var assigned int
	for _, e := range entries {
		if e.ID == "" {
			e.ID = s.genID.Generate().String()
			assigned++
		}
		if _, dup := seen[e.ID]; dup {
			e.ID = s.genID.Generate().String()
			assigned++
		}
		seen[e.ID] = struct{}{}
		if e.Source == "" {
			e.Source = domain.DefaultSource
		}
		if e.Kind == "" {
			e.Kind = domain.ClassifySource(e.Source)
		}
		loaded = append(loaded, e)
	}
	s.entries = loaded
	s.reindex()

	s.log.Info("ledger loaded",
		zap.Int("entries", len(loaded)),
		zap.Int("ids_assigned", assigned),
		zap.Int("keys", len(s.keys)),
	)
}

func (s *Service) RebuildDedupIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reindex()
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Service) removeAt(i int) domain.CollectionEntry {
	removed := s.entries[i]
	s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
	s.reindex()
	return removed
}

func (s *Service) reindex() {
	keys := make(map[domain.DedupKey]int, len(s.entries))
	for _, e := range s.entries {
		keys[e.Key()]++
	}
	s.keys = keys
}
