package service

import (
	"context"
	"sync"
	"time"

	"wordchain/internal/repository"
)

// StatsSource computes the all-time aggregates.
type StatsSource interface {
	AllTime(ctx context.Context) (repository.AllTimeStats, error)
}

// StatsService memoizes the aggregate query. The lock covers the refresh,
// so concurrent callers after expiry produce a single database round-trip.
type StatsService struct {
	source StatsSource
	ttl    time.Duration

	mu       sync.Mutex
	cached   repository.AllTimeStats
	cachedOn time.Time

	now func() time.Time
}

func NewStatsService(source StatsSource, ttl time.Duration) *StatsService {
	return &StatsService{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *StatsService) AllTime(ctx context.Context) (repository.AllTimeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cachedOn.IsZero() && s.now().Sub(s.cachedOn) < s.ttl {
		return s.cached, nil
	}

	stats, err := s.source.AllTime(ctx)
	if err != nil {
		return repository.AllTimeStats{}, err
	}
	s.cached = stats
	s.cachedOn = s.now()
	return stats, nil
}
