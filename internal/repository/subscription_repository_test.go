package repository

import (
	"context"
	"testing"
	"time"

	"entitlement-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Subscription{}))
	return db
}

func implementations(t *testing.T) map[string]SubscriptionRepository {
	return map[string]SubscriptionRepository{
		"memory": NewMemoryRepository(),
		"gorm":   NewGormRepository(openSQLite(t)),
	}
}

func newSubscription(token, code string) *models.Subscription {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Subscription{
		Email:            "traveller@example.com",
		AccessToken:      token,
		MobileAccessCode: code,
		Plan:             models.PlanMonthlyPremium,
		PaymentID:        "pay_1",
		Active:           true,
		StartDate:        now,
		ExpiresAt:        now.Add(30 * 24 * time.Hour),
	}
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			s := newSubscription("tok_a", "ABCD-EFGH-JKLM")
			require.NoError(t, repo.Create(ctx, s))
			require.NotZero(t, s.ID)

			byToken, err := repo.FindByToken(ctx, "tok_a")
			require.NoError(t, err)
			assert.Equal(t, s.ID, byToken.ID)
			assert.Equal(t, "traveller@example.com", byToken.Email)
			assert.True(t, byToken.Active)

			byCode, err := repo.FindByMobileCode(ctx, "ABCD-EFGH-JKLM")
			require.NoError(t, err)
			assert.Equal(t, s.ID, byCode.ID)

			byID, err := repo.FindByID(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, "tok_a", byID.AccessToken)

			_, err = repo.FindByToken(ctx, "tok_missing")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = repo.FindByMobileCode(ctx, "ZZZZ-ZZZZ-ZZZZ")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestCancelIsSoft(t *testing.T) {
	ctx := context.Background()
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.Create(ctx, newSubscription("tok_b", "BBBB-CCCC-DDDD")))

			cancelled, err := repo.Cancel(ctx, "tok_b")
			require.NoError(t, err)
			assert.False(t, cancelled.Active)

			again, err := repo.FindByToken(ctx, "tok_b")
			require.NoError(t, err, "cancelled records stay readable")
			assert.False(t, again.Active)

			_, err = repo.Cancel(ctx, "tok_none")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			s := newSubscription("tok_c", "CCCC-DDDD-EEEE")
			require.NoError(t, repo.Create(ctx, s))

			s.Plan = models.PlanYearlyPremium
			s.ExpiresAt = s.ExpiresAt.Add(335 * 24 * time.Hour)
			require.NoError(t, repo.Update(ctx, s))

			got, err := repo.FindByToken(ctx, "tok_c")
			require.NoError(t, err)
			assert.Equal(t, models.PlanYearlyPremium, got.Plan)
			assert.True(t, got.ExpiresAt.Equal(s.ExpiresAt))
		})
	}
}

func TestFindByMobileCodePrefersActive(t *testing.T) {
	ctx := context.Background()
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.Create(ctx, newSubscription("tok_old", "SAME-CODE-HERE")))
			_, err := repo.Cancel(ctx, "tok_old")
			require.NoError(t, err)
			require.NoError(t, repo.Create(ctx, newSubscription("tok_new", "SAME-CODE-HERE")))

			got, err := repo.FindByMobileCode(ctx, "SAME-CODE-HERE")
			require.NoError(t, err)
			assert.Equal(t, "tok_new", got.AccessToken)
		})
	}
}

func TestMemoryRepositoryCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	s := newSubscription("tok_d", "DDDD-EEEE-FFFF")
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.FindByToken(ctx, "tok_d")
	require.NoError(t, err)
	got.Active = false

	again, err := repo.FindByToken(ctx, "tok_d")
	require.NoError(t, err)
	assert.True(t, again.Active)
}
