package policy

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

func seedPolicies(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	ctx := context.Background()

	rules := []*types.ExpensePolicy{
		{ID: uuid.NewString(), CompanyID: "acme", Category: "meals", MaxAmount: 150, RequiresReceipt: true, AutoApproveLimit: 50},
		{ID: uuid.NewString(), CompanyID: "acme", Category: "travel", MaxAmount: 2000, RequiresReceipt: true},
		{ID: uuid.NewString(), CompanyID: "globex", Category: "meals", MaxAmount: 20},
	}
	for _, p := range rules {
		require.NoError(t, m.CreatePolicy(ctx, p))
	}
	return m
}

func TestEvaluate(t *testing.T) {
	m := seedPolicies(t)
	engine, err := NewEngine(m, nil)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name           string
		expense        *types.Expense
		wantViolations int
		wantAuto       bool
	}{
		{
			name:           "within limits with receipt",
			expense:        &types.Expense{Amount: 80, Category: "meals", ReceiptURL: "r.pdf"},
			wantViolations: 0,
			wantAuto:       false,
		},
		{
			name:           "under auto approve limit",
			expense:        &types.Expense{Amount: 30, Category: "meals", ReceiptURL: "r.pdf"},
			wantViolations: 0,
			wantAuto:       true,
		},
		{
			name:           "over limit",
			expense:        &types.Expense{Amount: 300, Category: "meals", ReceiptURL: "r.pdf"},
			wantViolations: 1,
			wantAuto:       false,
		},
		{
			name:           "missing receipt",
			expense:        &types.Expense{Amount: 80, Category: "meals"},
			wantViolations: 1,
			wantAuto:       false,
		},
		{
			name:           "over limit and missing receipt",
			expense:        &types.Expense{Amount: 300, Category: "meals"},
			wantViolations: 2,
			wantAuto:       false,
		},
		{
			name:           "cheap but violating never auto approves",
			expense:        &types.Expense{Amount: 30, Category: "meals"},
			wantViolations: 1,
			wantAuto:       false,
		},
		{
			name:           "unregulated category",
			expense:        &types.Expense{Amount: 9999, Category: "misc"},
			wantViolations: 0,
			wantAuto:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Evaluate(ctx, "acme", tt.expense)
			require.NoError(t, err)
			assert.Len(t, result.Violations, tt.wantViolations)
			assert.Equal(t, tt.wantAuto, result.AutoApprove)
			assert.Equal(t, tt.wantViolations > 0, result.Violated())
		})
	}
}

// Policies belong to one company; another company's rules never apply.
func TestEvaluateCompanyScoped(t *testing.T) {
	m := seedPolicies(t)
	engine, err := NewEngine(m, nil)
	require.NoError(t, err)

	// 80 breaks globex's 20 limit but passes acme's 150.
	e := &types.Expense{Amount: 80, Category: "meals", ReceiptURL: "r.pdf"}

	result, err := engine.Evaluate(context.Background(), "acme", e)
	require.NoError(t, err)
	assert.False(t, result.Violated())

	result, err = engine.Evaluate(context.Background(), "globex", e)
	require.NoError(t, err)
	assert.True(t, result.Violated())
}

func TestResultReason(t *testing.T) {
	assert.Equal(t, "", Result{}.Reason())
	assert.Equal(t, "a", Result{Violations: []string{"a"}}.Reason())
	assert.Equal(t, "a; b", Result{Violations: []string{"a", "b"}}.Reason())
}

func TestSeedDefaults(t *testing.T) {
	m := store.NewMemory()
	d := NewDefaults(nil)
	ctx := context.Background()

	require.NoError(t, d.Seed(ctx, m, "acme"))

	got, err := m.ListPolicies(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, got, len(builtinDefaults))
	for _, p := range got {
		assert.Equal(t, "acme", p.CompanyID)
		assert.WithinDuration(t, time.Now(), p.CreatedAt, time.Minute)
	}
}
