package repository

import (
	"context"
	"sync"
	"time"

	"entitlement-api/internal/models"
)

type memoryRepository struct {
	mu            sync.RWMutex
	subscriptions []*models.Subscription
	nextID        uint
}

// NewMemoryRepository returns a process-local repository. Records are
// copied in and out so callers can't mutate stored state.
func NewMemoryRepository() SubscriptionRepository {
	return &memoryRepository{nextID: 1}
}

func (r *memoryRepository) find(match func(*models.Subscription) bool) (*models.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.subscriptions {
		if match(s) {
			c := *s
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepository) FindByToken(_ context.Context, token string) (*models.Subscription, error) {
	return r.find(func(s *models.Subscription) bool { return s.AccessToken == token })
}

func (r *memoryRepository) FindByMobileCode(_ context.Context, code string) (*models.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *models.Subscription
	for _, s := range r.subscriptions {
		if s.MobileAccessCode != code {
			continue
		}
		if best == nil || (s.Active && !best.Active) || (s.Active == best.Active && s.CreatedAt.After(best.CreatedAt)) {
			best = s
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	c := *best
	return &c, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id uint) (*models.Subscription, error) {
	return r.find(func(s *models.Subscription) bool { return s.ID == id })
}

func (r *memoryRepository) Create(_ context.Context, subscription *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	subscription.ID = r.nextID
	r.nextID++
	subscription.CreatedAt = now
	subscription.UpdatedAt = now

	c := *subscription
	r.subscriptions = append(r.subscriptions, &c)
	return nil
}

func (r *memoryRepository) Update(_ context.Context, subscription *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.subscriptions {
		if s.ID == subscription.ID {
			subscription.UpdatedAt = time.Now()
			c := *subscription
			r.subscriptions[i] = &c
			return nil
		}
	}
	return ErrNotFound
}

func (r *memoryRepository) Cancel(_ context.Context, token string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.subscriptions {
		if s.AccessToken == token {
			s.Active = false
			s.UpdatedAt = time.Now()
			c := *s
			return &c, nil
		}
	}
	return nil, ErrNotFound
}
