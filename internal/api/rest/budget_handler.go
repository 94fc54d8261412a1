package rest

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/expenseflow/go-core/internal/auth"
	"github.com/expenseflow/go-core/internal/authz"
	"github.com/expenseflow/go-core/pkg/types"
)

// listBudgetsHandler handles GET /api/budgets. Admins and managers read
// their company's budgets.
func (s *Server) listBudgetsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	if !p.Role.CanManage() {
		writeDomainError(w, authz.ErrRoleForbidden)
		return
	}

	budgets, err := s.deps.Store.ListBudgets(r.Context(), p.CompanyID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if budgets == nil {
		budgets = []*types.BudgetLimit{}
	}
	WriteJSON(w, http.StatusOK, budgets)
}

// createBudgetHandler handles POST /api/budgets
func (s *Server) createBudgetHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	if !authz.CanPerform(p.Role, authz.ActionManageBudgets) {
		writeDomainError(w, authz.ErrRoleForbidden)
		return
	}

	var req BudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Department == "" || req.Category == "" {
		WriteError(w, http.StatusBadRequest, "department and category are required")
		return
	}
	if req.MonthlyLimit <= 0 {
		WriteError(w, http.StatusBadRequest, "monthly_limit must be positive")
		return
	}

	budget := &types.BudgetLimit{
		ID:           uuid.NewString(),
		CompanyID:    p.CompanyID,
		Department:   req.Department,
		Category:     req.Category,
		MonthlyLimit: req.MonthlyLimit,
		YearlyLimit:  req.YearlyLimit,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.deps.Store.CreateBudget(r.Context(), budget); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, budget)
}
