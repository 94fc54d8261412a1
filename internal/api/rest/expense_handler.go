package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/expenseflow/go-core/internal/approval"
	"github.com/expenseflow/go-core/internal/audit"
	"github.com/expenseflow/go-core/internal/auth"
	"github.com/expenseflow/go-core/internal/authz"
	"github.com/expenseflow/go-core/internal/guard"
	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

// createExpenseHandler handles POST /api/expenses. Expenses are always
// created for the authenticated user; there is no submit-on-behalf.
func (s *Server) createExpenseHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	if !authz.CanPerform(p.Role, authz.ActionCreateExpense) {
		writeDomainError(w, authz.ErrRoleForbidden)
		return
	}

	var req CreateExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount <= 0 {
		WriteError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.Category == "" {
		WriteError(w, http.StatusBadRequest, "category is required")
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "date must be RFC 3339 or YYYY-MM-DD")
			return
		}
		date = parsed
	}

	submitter, err := s.deps.Store.GetUser(r.Context(), p.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	currency := req.Currency
	if currency == "" {
		company, err := s.deps.Store.GetCompany(r.Context(), p.CompanyID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		currency = company.Currency
	}

	expense := &types.Expense{
		ID:          uuid.NewString(),
		EmployeeID:  p.ID,
		Amount:      req.Amount,
		Currency:    currency,
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
		Status:      types.StatusPending,
		ReceiptURL:  req.ReceiptURL,
		CreatedAt:   time.Now().UTC(),
	}

	result, err := s.deps.Policies.Evaluate(r.Context(), p.CompanyID, expense)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	expense.PolicyViolation = result.Violated()
	expense.ViolationReason = result.Reason()

	if err := s.deps.Store.CreateExpense(r.Context(), expense); err != nil {
		s.logger.Error("expense creation failed", zap.Error(err))
		writeDomainError(w, err)
		return
	}
	s.deps.Metrics.RecordExpenseSubmitted(expense.Category)

	if result.AutoApprove {
		entry := types.ApprovalEntry{
			ApproverID:   "system",
			ApproverName: "Auto Approval",
			Action:       types.ActionApprove,
			Comment:      "within auto-approve limit",
			Timestamp:    time.Now().UTC(),
		}
		updated, err := s.deps.Store.UpdateExpenseStatusIf(r.Context(), expense.ID,
			types.StatusPending, types.StatusApproved, entry)
		if err == nil {
			expense = updated
		} else {
			s.logger.Warn("auto-approval failed",
				zap.String("expense_id", expense.ID),
				zap.Error(err))
		}
	} else if s.deps.Notifier != nil {
		s.deps.Notifier.ExpenseSubmitted(r.Context(), expense, submitter)
	}

	if result.Violated() {
		s.deps.Metrics.RecordPolicyViolation(expense.Category)
		if s.deps.Notifier != nil {
			s.deps.Notifier.PolicyViolation(r.Context(), expense, result.Reason())
		}
	}

	WriteJSON(w, http.StatusCreated, expense)
}

// listExpensesHandler handles GET /api/expenses. The listing is scoped
// through the resolver, so the store never sees an unscoped query.
func (s *Server) listExpensesHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	start := time.Now()

	viewAction, ok := authz.ViewAction(p.Role)
	if !ok {
		s.deps.Metrics.RecordAccessDenied("role")
		writeDomainError(w, authz.ErrRoleForbidden)
		return
	}

	set, err := s.deps.Scopes.AccessibleUserIDs(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	filter := store.ExpenseFilter{EmployeeIDs: set.IDs()}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := types.ParseExpenseStatus(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = &status
	}
	filter.Category = r.URL.Query().Get("category")
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	expenses, err := s.deps.Store.ListExpenses(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if expenses == nil {
		expenses = []*types.Expense{}
	}

	s.deps.Metrics.RecordAccessCheck("allow", time.Since(start))
	s.deps.Audit.LogAccessDecision(p, string(viewAction), "expenses", audit.DecisionAllow, "")

	WriteJSON(w, http.StatusOK, ExpenseListResponse{Expenses: expenses, Total: len(expenses)})
}

// getExpenseHandler handles GET /api/expenses/{id}
func (s *Server) getExpenseHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	id := mux.Vars(r)["id"]
	start := time.Now()

	expense, err := s.deps.Store.GetExpense(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	owner, err := s.deps.Store.GetUser(r.Context(), expense.EmployeeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	set, err := s.deps.Scopes.AccessibleUserIDs(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := guard.CheckExpenseAccess(p, owner, set); err != nil {
		s.deps.Metrics.RecordAccessCheck("deny", time.Since(start))
		s.deps.Metrics.RecordAccessDenied(denialReason(err))
		s.deps.Audit.LogAccessDecision(p, string(authz.ActionViewOwnExpenses),
			"expense:"+id, audit.DecisionDeny, err.Error())
		writeDomainError(w, err)
		return
	}

	s.deps.Metrics.RecordAccessCheck("allow", time.Since(start))
	s.deps.Audit.LogAccessDecision(p, string(authz.ActionViewOwnExpenses),
		"expense:"+id, audit.DecisionAllow, "")

	WriteJSON(w, http.StatusOK, expense)
}

// pendingExpensesHandler handles GET /api/expenses/pending
func (s *Server) pendingExpensesHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	expenses, err := s.deps.Approvals.ListPending(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if expenses == nil {
		expenses = []*types.Expense{}
	}
	WriteJSON(w, http.StatusOK, ExpenseListResponse{Expenses: expenses, Total: len(expenses)})
}

// approveExpenseHandler handles POST /api/expenses/{id}/approve. Both
// approve and reject decisions go through this endpoint.
func (s *Server) approveExpenseHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	id := mux.Vars(r)["id"]

	var req ApprovalRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action, err := types.ParseApprovalAction(req.Action)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.deps.Approvals.Decide(r.Context(), p, id, action, req.Comment)
	if err != nil {
		var stateErr *approval.InvalidStateError
		if errors.As(err, &stateErr) {
			s.deps.Metrics.RecordApprovalConflict()
		}
		writeDomainError(w, err)
		return
	}

	s.deps.Metrics.RecordApprovalDecision(string(action))
	if n := len(updated.ApprovalHistory); n > 0 {
		s.deps.Audit.LogApprovalDecision(p, updated.ID, updated.ApprovalHistory[n-1])
	}
	WriteJSON(w, http.StatusOK, updated)
}

// denialReason labels a guard error for the denial metric
func denialReason(err error) string {
	switch {
	case errors.Is(err, authz.ErrRoleForbidden):
		return "role"
	case errors.Is(err, authz.ErrScopeForbidden):
		return "scope"
	case errors.Is(err, authz.ErrSelfApproval):
		return "self_approval"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	}
	return "other"
}

// parseDate accepts RFC 3339 timestamps and bare dates
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
