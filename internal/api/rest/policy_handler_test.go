package rest

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseflow/go-core/pkg/types"
)

func TestPolicyCRUD(t *testing.T) {
	e := newTestEnv(t)
	users := seedAcme(t, e)
	adminToken := e.token(t, users["admin1"])

	rec := e.do(t, "POST", "/api/policies", adminToken, PolicyRequest{
		Category:         "travel",
		MaxAmount:        1000,
		RequiresReceipt:  true,
		AutoApproveLimit: 50,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[types.ExpensePolicy](t, rec)
	assert.Equal(t, "acme", created.CompanyID)

	// Any company member may read the policies.
	rec = e.do(t, "GET", "/api/policies", e.token(t, users["emp1"]), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.ExpensePolicy](t, rec), 1)

	// But not members of another company.
	rec = e.do(t, "GET", "/api/policies", e.token(t, users["xadmin"]), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]types.ExpensePolicy](t, rec))

	rec = e.do(t, "PUT", "/api/policies/"+created.ID, adminToken, PolicyRequest{
		Category:  "travel",
		MaxAmount: 1500,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1500.0, decodeBody[types.ExpensePolicy](t, rec).MaxAmount)

	rec = e.do(t, "DELETE", "/api/policies/"+created.ID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	policies, err := e.store.ListPolicies(context.Background(), "acme")
	require.NoError(t, err)
	assert.Empty(t, policies)
}

func TestPolicyAuthorization(t *testing.T) {
	e := newTestEnv(t)
	users := seedAcme(t, e)

	req := PolicyRequest{Category: "meals", MaxAmount: 100}

	// Only admins manage policies.
	for _, name := range []string{"mgr1", "emp1"} {
		rec := e.do(t, "POST", "/api/policies", e.token(t, users[name]), req)
		assert.Equal(t, http.StatusForbidden, rec.Code, name)
	}

	// Cross-company mutation masks existence.
	rec := e.do(t, "POST", "/api/policies", e.token(t, users["admin1"]), req)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody[types.ExpensePolicy](t, rec).ID

	rec = e.do(t, "PUT", "/api/policies/"+id, e.token(t, users["xadmin"]), req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(t, "DELETE", "/api/policies/"+id, e.token(t, users["xadmin"]), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPolicyValidation(t *testing.T) {
	e := newTestEnv(t)
	users := seedAcme(t, e)
	adminToken := e.token(t, users["admin1"])

	rec := e.do(t, "POST", "/api/policies", adminToken, PolicyRequest{MaxAmount: 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "POST", "/api/policies", adminToken, PolicyRequest{
		Category: "meals", MaxAmount: -1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBudgets(t *testing.T) {
	e := newTestEnv(t)
	users := seedAcme(t, e)
	adminToken := e.token(t, users["admin1"])

	rec := e.do(t, "POST", "/api/budgets", adminToken, BudgetRequest{
		Department:   "engineering",
		Category:     "software",
		MonthlyLimit: 5000,
		YearlyLimit:  50000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[types.BudgetLimit](t, rec)
	assert.Equal(t, "acme", created.CompanyID)

	// Admins and managers read budgets; employees do not.
	rec = e.do(t, "GET", "/api/budgets", e.token(t, users["mgr1"]), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.BudgetLimit](t, rec), 1)

	rec = e.do(t, "GET", "/api/budgets", e.token(t, users["emp1"]), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Managers cannot create budgets.
	rec = e.do(t, "POST", "/api/budgets", e.token(t, users["mgr1"]), BudgetRequest{
		Department: "sales", Category: "travel", MonthlyLimit: 100,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Company isolation on reads.
	rec = e.do(t, "GET", "/api/budgets", e.token(t, users["xadmin"]), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]types.BudgetLimit](t, rec))
}

func TestBudgetValidation(t *testing.T) {
	e := newTestEnv(t)
	users := seedAcme(t, e)
	adminToken := e.token(t, users["admin1"])

	rec := e.do(t, "POST", "/api/budgets", adminToken, BudgetRequest{
		Category: "travel", MonthlyLimit: 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "POST", "/api/budgets", adminToken, BudgetRequest{
		Department: "sales", Category: "travel",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
