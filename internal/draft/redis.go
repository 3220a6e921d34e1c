package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/metrics"
)

const (
	keyNamespace = "wishbot:draft"
	scanBatch    = 100
)

type cmdable interface {
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Del(context.Context, ...string) *redis.IntCmd
	Scan(context.Context, uint64, string, int64) *redis.ScanCmd
}

// RedisStore keeps each draft as a JSON value whose key expires after the
// TTL. Every Put refreshes the expiry.
type RedisStore struct {
	client  cmdable
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration, m *metrics.Metrics, logger *logrus.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, metrics: m, logger: logger}
}

// NewRedisClient parses url and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func draftKey(chatID int64) string {
	return keyNamespace + ":" + strconv.FormatInt(chatID, 10)
}

func (s *RedisStore) Get(ctx context.Context, chatID int64) (*Draft, error) {
	data, err := s.client.Get(ctx, draftKey(chatID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	d := &Draft{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return d, nil
}

func (s *RedisStore) Put(ctx context.Context, d *Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(d.ChatID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, draftKey(chatID)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// Count returns the number of live drafts. Redis expires keys on its own, so
// the count walks the namespace with SCAN.
func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	var (
		cursor uint64
		n      int64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyNamespace+":*", scanBatch).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan drafts: %w", err)
		}
		n += int64(len(keys))
		if next == 0 {
			return n, nil
		}
		cursor = next
	}
}

// ReportActive publishes the current draft count on the active drafts gauge.
func (s *RedisStore) ReportActive(ctx context.Context) error {
	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	s.metrics.SetActiveDrafts(n)
	return nil
}

// RunGauge refreshes the active drafts gauge every interval until ctx is
// cancelled.
func (s *RedisStore) RunGauge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ReportActive(ctx); err != nil && ctx.Err() == nil {
				s.logger.WithError(err).Warn("Failed to count drafts")
			}
		}
	}
}
