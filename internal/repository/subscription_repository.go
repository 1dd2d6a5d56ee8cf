package repository

import (
	"context"
	"errors"
	"fmt"

	"entitlement-api/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no subscription matches the lookup.
var ErrNotFound = errors.New("subscription not found")

// SubscriptionRepository is the server-side record store.
type SubscriptionRepository interface {
	FindByToken(ctx context.Context, token string) (*models.Subscription, error)
	FindByMobileCode(ctx context.Context, code string) (*models.Subscription, error)
	FindByID(ctx context.Context, id uint) (*models.Subscription, error)
	Create(ctx context.Context, subscription *models.Subscription) error
	Update(ctx context.Context, subscription *models.Subscription) error
	// Cancel soft-cancels the subscription holding token.
	Cancel(ctx context.Context, token string) (*models.Subscription, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository returns a repository over the subscription table.
func NewGormRepository(db *gorm.DB) SubscriptionRepository {
	return &gormRepository{db: db}
}

func (r *gormRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.WithContext(ctx).Where(query, args...).First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *gormRepository) FindByToken(ctx context.Context, token string) (*models.Subscription, error) {
	return r.first(ctx, "access_token = ?", token)
}

// FindByMobileCode prefers the newest active subscription carrying code;
// codes are not guaranteed unique.
func (r *gormRepository) FindByMobileCode(ctx context.Context, code string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.WithContext(ctx).
		Where("mobile_access_code = ?", code).
		Order("active DESC").
		Order("created_at DESC").
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uint) (*models.Subscription, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *gormRepository) Create(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *gormRepository) Update(ctx context.Context, subscription *models.Subscription) error {
	if subscription.ID == 0 {
		return fmt.Errorf("cannot update unsaved subscription")
	}
	return r.db.WithContext(ctx).Save(subscription).Error
}

func (r *gormRepository) Cancel(ctx context.Context, token string) (*models.Subscription, error) {
	var cancelled *models.Subscription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var subscription models.Subscription
		if err := tx.Where("access_token = ?", token).First(&subscription).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		subscription.Active = false
		if err := tx.Model(&subscription).Update("active", false).Error; err != nil {
			return err
		}
		cancelled = &subscription
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}
