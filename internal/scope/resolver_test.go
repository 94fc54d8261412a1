package scope

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

func seedStore(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	ctx := context.Background()

	users := []*types.User{
		{ID: "admin1", Email: "admin1@acme.test", Role: types.RoleAdmin, CompanyID: "acme", Active: true},
		{ID: "mgr1", Email: "mgr1@acme.test", Role: types.RoleManager, CompanyID: "acme", Active: true},
		{ID: "mgr2", Email: "mgr2@acme.test", Role: types.RoleManager, CompanyID: "acme", ManagerID: "mgr1", Active: true},
		{ID: "emp1", Email: "emp1@acme.test", Role: types.RoleEmployee, CompanyID: "acme", ManagerID: "mgr1", Active: true},
		{ID: "emp2", Email: "emp2@acme.test", Role: types.RoleEmployee, CompanyID: "acme", ManagerID: "mgr2", Active: true},
		{ID: "gone1", Email: "gone1@acme.test", Role: types.RoleEmployee, CompanyID: "acme", ManagerID: "mgr1", Active: false},
		{ID: "other1", Email: "other1@globex.test", Role: types.RoleEmployee, CompanyID: "globex", ManagerID: "mgr1", Active: true},
	}
	for _, u := range users {
		require.NoError(t, m.CreateUser(ctx, u))
	}
	return m
}

func principal(id string, role types.Role, companyID string) types.Principal {
	return types.Principal{ID: id, Role: role, CompanyID: companyID}
}

func TestAccessibleUserIDs(t *testing.T) {
	m := seedStore(t)
	r, err := NewResolver(DefaultConfig(), m, nil)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name      string
		principal types.Principal
		expected  []string
	}{
		{
			name:      "employee sees only self",
			principal: principal("emp1", types.RoleEmployee, "acme"),
			expected:  []string{"emp1"},
		},
		{
			name:      "manager sees self and active direct reports",
			principal: principal("mgr1", types.RoleManager, "acme"),
			expected:  []string{"mgr1", "mgr2", "emp1"},
		},
		{
			name:      "manager scope is one level deep",
			principal: principal("mgr2", types.RoleManager, "acme"),
			expected:  []string{"mgr2", "emp2"},
		},
		{
			name:      "admin sees whole company including inactive",
			principal: principal("admin1", types.RoleAdmin, "acme"),
			expected:  []string{"admin1", "mgr1", "mgr2", "emp1", "emp2", "gone1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := r.AccessibleUserIDs(ctx, tt.principal)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.expected, set.IDs())
		})
	}
}

// Deactivated reports fall out of a manager's scope, and users from
// another company never enter it even with a matching manager_id.
func TestScopeExcludesInactiveAndForeign(t *testing.T) {
	m := seedStore(t)
	r, err := NewResolver(DefaultConfig(), m, nil)
	require.NoError(t, err)

	set, err := r.AccessibleUserIDs(context.Background(), principal("mgr1", types.RoleManager, "acme"))
	require.NoError(t, err)

	assert.False(t, set.Contains("gone1"))
	assert.False(t, set.Contains("other1"))
}

func TestAdminScopeStaysInCompany(t *testing.T) {
	m := seedStore(t)
	r, err := NewResolver(DefaultConfig(), m, nil)
	require.NoError(t, err)

	set, err := r.AccessibleUserIDs(context.Background(), principal("admin1", types.RoleAdmin, "acme"))
	require.NoError(t, err)
	assert.False(t, set.Contains("other1"))
}

func TestUnknownRoleResolvesEmpty(t *testing.T) {
	m := seedStore(t)
	r, err := NewResolver(DefaultConfig(), m, nil)
	require.NoError(t, err)

	set, err := r.AccessibleUserIDs(context.Background(), principal("emp1", types.Role("superuser"), "acme"))
	require.NoError(t, err)
	assert.Empty(t, set.IDs())
	assert.False(t, set.Contains("emp1"))
}

func TestCanAccessUser(t *testing.T) {
	m := seedStore(t)
	r, err := NewResolver(DefaultConfig(), m, nil)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := r.CanAccessUser(ctx, principal("mgr1", types.RoleManager, "acme"), "emp1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.CanAccessUser(ctx, principal("mgr1", types.RoleManager, "acme"), "emp2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScopeCaching(t *testing.T) {
	m := seedStore(t)
	cfg := DefaultConfig()
	cfg.CacheTTL = time.Minute
	r, err := NewResolver(cfg, m, nil)
	require.NoError(t, err)
	ctx := context.Background()

	p := principal("mgr1", types.RoleManager, "acme")
	_, err = r.AccessibleUserIDs(ctx, p)
	require.NoError(t, err)
	_, err = r.AccessibleUserIDs(ctx, p)
	require.NoError(t, err)

	stats := r.GetStats()
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
	assert.Equal(t, 1, stats.Size)
}

type countingCacheMetrics struct {
	hits   int
	misses int
}

func (c *countingCacheMetrics) RecordScopeCacheHit()  { c.hits++ }
func (c *countingCacheMetrics) RecordScopeCacheMiss() { c.misses++ }

func TestCacheMetricsReported(t *testing.T) {
	m := seedStore(t)
	recorder := &countingCacheMetrics{}
	cfg := DefaultConfig()
	cfg.CacheTTL = time.Minute
	cfg.Metrics = recorder
	r, err := NewResolver(cfg, m, nil)
	require.NoError(t, err)
	ctx := context.Background()

	p := principal("mgr1", types.RoleManager, "acme")
	_, err = r.AccessibleUserIDs(ctx, p)
	require.NoError(t, err)
	_, err = r.AccessibleUserIDs(ctx, p)
	require.NoError(t, err)

	assert.Equal(t, 1, recorder.misses)
	assert.Equal(t, 1, recorder.hits)
}

func TestInvalidateAfterHierarchyChange(t *testing.T) {
	m := seedStore(t)
	cfg := DefaultConfig()
	cfg.CacheTTL = time.Minute
	r, err := NewResolver(cfg, m, nil)
	require.NoError(t, err)
	ctx := context.Background()

	p := principal("mgr1", types.RoleManager, "acme")
	set, err := r.AccessibleUserIDs(ctx, p)
	require.NoError(t, err)
	assert.True(t, set.Contains("emp1"))

	// emp1 moves under mgr2; the cached set still shows the old tree
	// until invalidated.
	newMgr := "mgr2"
	_, err = m.UpdateUser(ctx, "emp1", types.UserPatch{ManagerID: &newMgr})
	require.NoError(t, err)

	set, err = r.AccessibleUserIDs(ctx, p)
	require.NoError(t, err)
	assert.True(t, set.Contains("emp1"))

	r.Invalidate(p)
	set, err = r.AccessibleUserIDs(ctx, p)
	require.NoError(t, err)
	assert.False(t, set.Contains("emp1"))
}
