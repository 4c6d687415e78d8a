package service

import (
	"context"
	"errors"
	"time"

	"gateway/internal/domain"
	"gateway/internal/repository"
)

// IdempotencyStore caches admission responses by (key, merchantID).
type IdempotencyStore interface {
	// Lookup returns the cached response, or nil if absent or expired.
	Lookup(ctx context.Context, key, merchantID string) (*domain.CachedResponse, error)
	// Store caches resp for ttl. The first stored response for a key wins.
	Store(ctx context.Context, key, merchantID string, resp domain.CachedResponse, ttl time.Duration) error
}

// IdempotencyService is the relational IdempotencyStore.
type IdempotencyService struct {
	repo repository.IdempotencyKeyRepository
	now  func() time.Time
}

var _ IdempotencyStore = (*IdempotencyService)(nil)

// NewIdempotencyService creates a new IdempotencyService.
func NewIdempotencyService(repo repository.IdempotencyKeyRepository) *IdempotencyService {
	return &IdempotencyService{repo: repo, now: time.Now}
}

// WithClock overrides the clock used for expiry checks.
func (s *IdempotencyService) WithClock(now func() time.Time) *IdempotencyService {
	s.now = now
	return s
}

// Lookup returns the cached response for (key, merchantID). An expired entry
// is deleted and reported as absent.
func (s *IdempotencyService) Lookup(ctx context.Context, key, merchantID string) (*domain.CachedResponse, error) {
	entry, err := s.repo.Get(ctx, key, merchantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if entry.Expired(s.now()) {
		if err := s.repo.Delete(ctx, key, merchantID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &entry.Response, nil
}

// Store caches resp for (key, merchantID) until now+ttl.
func (s *IdempotencyService) Store(ctx context.Context, key, merchantID string, resp domain.CachedResponse, ttl time.Duration) error {
	now := s.now()

	err := s.repo.Create(ctx, &domain.IdempotencyKey{
		Key:        key,
		MerchantID: merchantID,
		Response:   resp,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}

	return err
}
