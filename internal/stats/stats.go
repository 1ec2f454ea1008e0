package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/config"
	"github.com/therealutkarshpriyadarshi/yt2mp3/pkg/models"
)

// Store keeps request counters
type Store interface {
	IncrementStat(ctx context.Context, stat string) error
	Snapshot(ctx context.Context) (*models.Stats, error)
	Close() error
}

// New returns a Redis-backed store when Redis is enabled and an in-memory
// store otherwise.
func New(cfg config.RedisConfig) (Store, error) {
	if !cfg.Enabled {
		return NewMemoryStore(), nil
	}
	return NewRedisStore(cfg.Host, cfg.Port, cfg.Password, cfg.DB)
}

// RedisStore shares counters between instances through Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store
func NewRedisStore(host string, port int, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func statKey(stat string) string {
	return fmt.Sprintf("yt2mp3:stats:%s", stat)
}

// IncrementStat increments a statistic counter
func (s *RedisStore) IncrementStat(ctx context.Context, stat string) error {
	return s.client.Incr(ctx, statKey(stat)).Err()
}

// GetStat retrieves a statistic value. Missing counters read as zero.
func (s *RedisStore) GetStat(ctx context.Context, stat string) (int64, error) {
	value, err := s.client.Get(ctx, statKey(stat)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get stat %s: %w", stat, err)
	}
	return value, nil
}

// Snapshot reads all counters
func (s *RedisStore) Snapshot(ctx context.Context) (*models.Stats, error) {
	keys := []string{
		models.StatRequests,
		models.StatSucceeded,
		models.StatFailed,
		models.StatInvalidInput,
		models.StatCleanupFailures,
	}
	values := make(map[string]int64, len(keys))
	for _, k := range keys {
		v, err := s.GetStat(ctx, k)
		if err != nil {
			return nil, err
		}
		values[k] = v
	}
	return fromMap(values), nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore keeps counters in process memory
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]int64)}
}

// IncrementStat increments a statistic counter
func (s *MemoryStore) IncrementStat(_ context.Context, stat string) error {
	s.mu.Lock()
	s.counters[stat]++
	s.mu.Unlock()
	return nil
}

// Snapshot copies all counters
func (s *MemoryStore) Snapshot(_ context.Context) (*models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fromMap(s.counters), nil
}

func (s *MemoryStore) Close() error { return nil }

func fromMap(m map[string]int64) *models.Stats {
	return &models.Stats{
		Requests:        m[models.StatRequests],
		Succeeded:       m[models.StatSucceeded],
		Failed:          m[models.StatFailed],
		InvalidInput:    m[models.StatInvalidInput],
		CleanupFailures: m[models.StatCleanupFailures],
	}
}
