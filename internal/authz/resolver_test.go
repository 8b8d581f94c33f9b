package authz

import (
	"context"
	"testing"

	"backend/internal/metrics"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	tenantA = uuid.NewString()
	tenantB = uuid.NewString()
)

func setupAuthzDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Permission{}, &RolePermission{}))
	return db
}

// grantPermission 为角色写入一条授权记录
func grantPermission(t *testing.T, db *gorm.DB, tenantID, role, name, resource, action string, isGranted, isActive bool) {
	t.Helper()

	perm := Permission{
		Name:     name,
		Resource: resource,
		Action:   action,
		IsActive: isActive,
	}
	perm.TenantID = tenantID
	require.NoError(t, db.Create(&perm).Error)

	rp := RolePermission{
		Role:         role,
		PermissionID: perm.ID,
		IsGranted:    isGranted,
	}
	rp.TenantID = tenantID
	require.NoError(t, db.Create(&rp).Error)
}

func newTestResolver(db *gorm.DB) *Resolver {
	return NewResolver(db, DefaultRolePolicy(), nil, zap.NewNop())
}

func TestExplicitGrantAllows(t *testing.T) {
	db := setupAuthzDB(t)
	// Parent 默认对 trips 只读，显式授权后可以删除
	grantPermission(t, db, tenantA, RoleParent, "trips.delete", "trips", ActionDelete, true, true)
	r := newTestResolver(db)

	d := r.ResolveAction(context.Background(), RoleParent, tenantA, "trips", ActionDelete)
	assert.True(t, d.Allowed)
	assert.Equal(t, TierExplicit, d.Tier)
}

func TestRevokedGrantIsTreatedAsAbsent(t *testing.T) {
	db := setupAuthzDB(t)
	// IsGranted=false 不构成否决：默认表仍然放行只读
	grantPermission(t, db, tenantA, RoleParent, "trips.read", "trips", ActionRead, false, true)
	r := newTestResolver(db)

	d := r.ResolveAction(context.Background(), RoleParent, tenantA, "trips", ActionRead)
	assert.True(t, d.Allowed)
	assert.Equal(t, TierDefault, d.Tier)

	// 默认表不覆盖的动作维持拒绝
	d = r.ResolveAction(context.Background(), RoleParent, tenantA, "trips", ActionDelete)
	assert.False(t, d.Allowed)
	assert.Equal(t, TierNone, d.Tier)
}

func TestInactivePermissionIgnored(t *testing.T) {
	db := setupAuthzDB(t)
	grantPermission(t, db, tenantA, RoleParent, "trips.delete", "trips", ActionDelete, true, false)
	r := newTestResolver(db)

	d := r.ResolveAction(context.Background(), RoleParent, tenantA, "trips", ActionDelete)
	assert.False(t, d.Allowed)
}

func TestWildcardGrant(t *testing.T) {
	db := setupAuthzDB(t)
	grantPermission(t, db, tenantA, RoleDriver, "all-access", WildcardAll, "", true, true)
	r := newTestResolver(db)

	// 通配授权不限定资源与动作
	d := r.ResolveAction(context.Background(), RoleDriver, tenantA, "auditlogs", ActionDelete)
	assert.True(t, d.Allowed)
	assert.Equal(t, TierWildcard, d.Tier)
}

func TestExplicitBeatsWildcard(t *testing.T) {
	db := setupAuthzDB(t)
	grantPermission(t, db, tenantA, RoleDriver, "all-access", WildcardStar, "", true, true)
	grantPermission(t, db, tenantA, RoleDriver, "trips.delete", "trips", ActionDelete, true, true)
	r := newTestResolver(db)

	d := r.ResolveAction(context.Background(), RoleDriver, tenantA, "trips", ActionDelete)
	assert.True(t, d.Allowed)
	assert.Equal(t, TierExplicit, d.Tier)
}

func TestTenantIsolation(t *testing.T) {
	db := setupAuthzDB(t)
	grantPermission(t, db, tenantA, RoleParent, "trips.delete", "trips", ActionDelete, true, true)
	r := newTestResolver(db)

	// 租户 A 的授权对租户 B 无效
	d := r.ResolveAction(context.Background(), RoleParent, tenantB, "trips", ActionDelete)
	assert.False(t, d.Allowed)
}

func TestSuperRolesAlwaysAllow(t *testing.T) {
	r := newTestResolver(setupAuthzDB(t))

	for _, role := range []string{RoleSuperAdmin, RoleTenantAdmin} {
		d := r.ResolveAction(context.Background(), role, tenantA, "anything", ActionDelete)
		assert.True(t, d.Allowed, role)
		assert.Equal(t, TierDefault, d.Tier)
	}
}

func TestRoleDefaults(t *testing.T) {
	r := newTestResolver(setupAuthzDB(t))
	ctx := context.Background()

	assert.True(t, r.ResolveAction(ctx, RoleDriver, tenantA, "trips", ActionRead).Allowed)
	assert.True(t, r.ResolveAction(ctx, RoleDriver, tenantA, "trips", ActionUpdate).Allowed)
	assert.False(t, r.ResolveAction(ctx, RoleDriver, tenantA, "users", ActionDelete).Allowed)
	assert.True(t, r.ResolveAction(ctx, RoleManager, tenantA, "auditlogs", ActionRead).Allowed)
	assert.False(t, r.ResolveAction(ctx, RoleManager, tenantA, "auditlogs", ActionDelete).Allowed)
	// 未知角色没有任何默认权限
	assert.False(t, r.ResolveAction(ctx, "Intern", tenantA, "trips", ActionRead).Allowed)
}

func TestRoleMatchingIsCaseInsensitive(t *testing.T) {
	db := setupAuthzDB(t)
	grantPermission(t, db, tenantA, "parent", "trips.delete", "trips", ActionDelete, true, true)
	r := newTestResolver(db)

	d := r.ResolveAction(context.Background(), "PARENT", tenantA, "trips", ActionDelete)
	assert.True(t, d.Allowed)
}

func TestMissingClaimsDeny(t *testing.T) {
	r := newTestResolver(setupAuthzDB(t))
	ctx := context.Background()

	assert.False(t, r.ResolveAction(ctx, "", tenantA, "trips", ActionRead).Allowed)
	assert.False(t, r.ResolveAction(ctx, RoleSuperAdmin, "", "trips", ActionRead).Allowed)
}

func TestStoreFailureDegradesToDefaults(t *testing.T) {
	// 不建表直接查询，模拟权限存储不可用
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	r := newTestResolver(db)
	ctx := context.Background()

	// 降级到默认表：只读仍可用，默认表外的动作仍拒绝
	d := r.ResolveAction(ctx, RoleDriver, tenantA, "trips", ActionRead)
	assert.True(t, d.Allowed)
	assert.Equal(t, TierDefault, d.Tier)

	d = r.ResolveAction(ctx, RoleDriver, tenantA, "trips", ActionDelete)
	assert.False(t, d.Allowed)
}

func TestResolveName(t *testing.T) {
	db := setupAuthzDB(t)
	grantPermission(t, db, tenantA, RoleParent, "reports.export", "reports", "Export", true, true)
	r := newTestResolver(db)
	ctx := context.Background()

	// 显式按权限名授权
	d := r.ResolveName(ctx, RoleParent, tenantA, "reports.export")
	assert.True(t, d.Allowed)
	assert.Equal(t, TierExplicit, d.Tier)

	// 默认表按 "resource.action" 约定解析
	d = r.ResolveName(ctx, RoleParent, tenantA, "trips.read")
	assert.True(t, d.Allowed)
	assert.Equal(t, TierDefault, d.Tier)

	d = r.ResolveName(ctx, RoleParent, tenantA, "trips.delete")
	assert.False(t, d.Allowed)
}

// stubCache 固定返回值的裁决缓存替身
type stubCache struct {
	hit  Decision
	ok   bool
	sets int
}

func (c *stubCache) Get(_ context.Context, _, _, _, _ string) (Decision, bool) {
	return c.hit, c.ok
}

func (c *stubCache) Set(_ context.Context, _, _, _, _ string, _ Decision) {
	c.sets++
}

func TestCacheHitCountsTowardDecisionMetrics(t *testing.T) {
	r := newTestResolver(setupAuthzDB(t))
	r.cache = &stubCache{hit: Decision{Allowed: true, Tier: TierExplicit}, ok: true}

	counter := metrics.AuthzDecisionsTotal.WithLabelValues("allow", TierExplicit)
	before := testutil.ToFloat64(counter)

	// Parent 无显式授权，结果只能来自缓存
	d := r.ResolveAction(context.Background(), RoleParent, tenantA, "trips", ActionDelete)
	assert.True(t, d.Allowed)
	assert.Equal(t, TierExplicit, d.Tier)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestDegradedDecisionNotCached(t *testing.T) {
	// 不建表直接查询，模拟权限存储不可用
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	cache := &stubCache{}
	r := newTestResolver(db)
	r.cache = cache

	d := r.ResolveAction(context.Background(), RoleDriver, tenantA, "trips", ActionRead)
	assert.True(t, d.Allowed)
	assert.Equal(t, TierDefault, d.Tier)
	// 降级裁决不得写入缓存
	assert.Zero(t, cache.sets)
}

func TestResolvedDecisionWrittenToCache(t *testing.T) {
	cache := &stubCache{}
	r := newTestResolver(setupAuthzDB(t))
	r.cache = cache

	r.ResolveAction(context.Background(), RoleDriver, tenantA, "trips", ActionRead)
	assert.Equal(t, 1, cache.sets)
}

func TestSoftDeletedGrantIgnored(t *testing.T) {
	db := setupAuthzDB(t)
	grantPermission(t, db, tenantA, RoleParent, "trips.delete", "trips", ActionDelete, true, true)

	var rp RolePermission
	require.NoError(t, db.Where("role = ?", RoleParent).First(&rp).Error)
	rp.MarkDeleted("System")
	require.NoError(t, db.Save(&rp).Error)

	r := newTestResolver(db)
	d := r.ResolveAction(context.Background(), RoleParent, tenantA, "trips", ActionDelete)
	assert.False(t, d.Allowed)
}
