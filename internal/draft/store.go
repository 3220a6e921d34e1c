package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/Kerhoff/WishboT/internal/metrics"
)

// Store persists one draft per chat. Get returns (nil, nil) when the chat has
// no live draft.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Draft, error)
	Put(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, chatID int64) error
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps drafts in process memory. Entries idle for longer than
// the TTL are invisible to Get and dropped by the janitor.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	size    *atomic.Int64
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func NewMemoryStore(ttl time.Duration, m *metrics.Metrics, logger *logrus.Logger) *MemoryStore {
	return &MemoryStore{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		size:    atomic.NewInt64(0),
		metrics: m,
		logger:  logger,
	}
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (*Draft, error) {
	s.mu.Lock()
	entry, ok := s.entries[chatID]
	s.mu.Unlock()

	if !ok || !s.now().Before(entry.expiresAt) {
		return nil, nil
	}

	d := &Draft{}
	if err := json.Unmarshal(entry.data, d); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return d, nil
}

func (s *MemoryStore) Put(_ context.Context, d *Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	s.mu.Lock()
	s.entries[d.ChatID] = memoryEntry{data: data, expiresAt: s.now().Add(s.ttl)}
	n := int64(len(s.entries))
	s.mu.Unlock()

	s.setSize(n)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, chatID int64) error {
	s.mu.Lock()
	delete(s.entries, chatID)
	n := int64(len(s.entries))
	s.mu.Unlock()

	s.setSize(n)
	return nil
}

// Len returns the number of stored drafts, expired ones included until the
// next sweep.
func (s *MemoryStore) Len() int64 {
	return s.size.Load()
}

func (s *MemoryStore) setSize(n int64) {
	s.size.Store(n)
	s.metrics.SetActiveDrafts(n)
}

// Sweep drops expired drafts and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for chatID, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, chatID)
			removed++
		}
	}
	n := int64(len(s.entries))
	s.mu.Unlock()

	s.setSize(n)
	return removed
}

// RunJanitor sweeps expired drafts every interval. It blocks until the
// context is cancelled, so it should be launched in a separate goroutine.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Draft janitor started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Draft janitor stopped")
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				s.logger.WithField("removed", removed).Debug("Expired drafts dropped")
			}
		}
	}
}
