package rest

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/expenseflow/go-core/internal/auth"
	"github.com/expenseflow/go-core/internal/authz"
	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

// listPoliciesHandler handles GET /api/policies. Every authenticated user
// may read their company's policies; employees need to know the limits
// before submitting.
func (s *Server) listPoliciesHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	policies, err := s.deps.Store.ListPolicies(r.Context(), p.CompanyID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if policies == nil {
		policies = []*types.ExpensePolicy{}
	}
	WriteJSON(w, http.StatusOK, policies)
}

// createPolicyHandler handles POST /api/policies
func (s *Server) createPolicyHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	if !authz.CanPerform(p.Role, authz.ActionManagePolicies) {
		writeDomainError(w, authz.ErrRoleForbidden)
		return
	}

	var req PolicyRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Category == "" {
		WriteError(w, http.StatusBadRequest, "category is required")
		return
	}
	if req.MaxAmount < 0 || req.AutoApproveLimit < 0 {
		WriteError(w, http.StatusBadRequest, "limits must be non-negative")
		return
	}

	policy := &types.ExpensePolicy{
		ID:               uuid.NewString(),
		CompanyID:        p.CompanyID,
		Category:         req.Category,
		MaxAmount:        req.MaxAmount,
		RequiresReceipt:  req.RequiresReceipt,
		AutoApproveLimit: req.AutoApproveLimit,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.deps.Store.CreatePolicy(r.Context(), policy); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, policy)
}

// updatePolicyHandler handles PUT /api/policies/{id}
func (s *Server) updatePolicyHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	if !authz.CanPerform(p.Role, authz.ActionManagePolicies) {
		writeDomainError(w, authz.ErrRoleForbidden)
		return
	}
	id := mux.Vars(r)["id"]

	existing, err := s.deps.Store.GetPolicy(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if existing.CompanyID != p.CompanyID {
		writeDomainError(w, store.ErrNotFound)
		return
	}

	var req PolicyRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Category == "" {
		WriteError(w, http.StatusBadRequest, "category is required")
		return
	}
	if req.MaxAmount < 0 || req.AutoApproveLimit < 0 {
		WriteError(w, http.StatusBadRequest, "limits must be non-negative")
		return
	}

	existing.Category = req.Category
	existing.MaxAmount = req.MaxAmount
	existing.RequiresReceipt = req.RequiresReceipt
	existing.AutoApproveLimit = req.AutoApproveLimit

	if err := s.deps.Store.UpdatePolicy(r.Context(), existing); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, existing)
}

// deletePolicyHandler handles DELETE /api/policies/{id}
func (s *Server) deletePolicyHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	if !authz.CanPerform(p.Role, authz.ActionManagePolicies) {
		writeDomainError(w, authz.ErrRoleForbidden)
		return
	}
	id := mux.Vars(r)["id"]

	existing, err := s.deps.Store.GetPolicy(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if existing.CompanyID != p.CompanyID {
		writeDomainError(w, store.ErrNotFound)
		return
	}

	if err := s.deps.Store.DeletePolicy(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
