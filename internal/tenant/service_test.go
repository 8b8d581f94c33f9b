package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTenantService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Tenant{}))
	return NewService(db)
}

func TestCreateTenantAndLookup(t *testing.T) {
	svc := setupTenantService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateRequest{Name: "阳光校车", Slug: "Sunshine"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "sunshine", created.Slug) // slug 统一小写
	assert.Equal(t, StatusActive, created.Status)
	assert.Equal(t, "standard", created.Tier)

	bySlug, err := svc.GetBySlug(ctx, "SUNSHINE")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)

	byID, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Slug, byID.Slug)
}

func TestCreateTenantRejectsDuplicateSlug(t *testing.T) {
	svc := setupTenantService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateRequest{Name: "甲", Slug: "dup"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, &CreateRequest{Name: "乙", Slug: "DUP"})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestSuspendTenant(t *testing.T) {
	svc := setupTenantService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateRequest{Name: "甲", Slug: "a"})
	require.NoError(t, err)
	require.NoError(t, svc.Suspend(ctx, created.ID, "System"))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, got.Status)
	assert.False(t, got.SubscriptionActive(time.Now()))
}

func TestSubscriptionActive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	open := &Tenant{Status: StatusActive}
	assert.True(t, open.SubscriptionActive(now))

	expired := &Tenant{Status: StatusActive, SubscriptionEndsAt: &past}
	assert.False(t, expired.SubscriptionActive(now))

	valid := &Tenant{Status: StatusActive, SubscriptionEndsAt: &future}
	assert.True(t, valid.SubscriptionActive(now))
}

func TestTenantContextRoundTrip(t *testing.T) {
	tc := TenantContext{TenantID: "t-1", UserID: "u-1", Role: "Manager", Email: "m@example.com"}
	ctx := WithTenantContext(context.Background(), tc)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, tc, got)
	assert.True(t, got.HasIdentity())

	_, ok = FromContext(context.Background())
	assert.False(t, ok)

	assert.False(t, TenantContext{UserID: "u-1"}.HasIdentity())
}
