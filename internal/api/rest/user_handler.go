package rest

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/expenseflow/go-core/internal/auth"
	"github.com/expenseflow/go-core/internal/authz"
	"github.com/expenseflow/go-core/internal/guard"
	"github.com/expenseflow/go-core/pkg/types"
)

// listUsersHandler handles GET /api/users. Admins see the whole company
// including deactivated accounts; managers see their direct reports.
func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var (
		users []*types.User
		err   error
	)
	switch p.Role {
	case types.RoleAdmin:
		users, err = s.deps.Store.ListCompanyUsers(r.Context(), p.CompanyID, true)
	case types.RoleManager:
		users, err = s.deps.Store.ListDirectReports(r.Context(), p.ID, p.CompanyID)
	default:
		writeDomainError(w, authz.ErrRoleForbidden)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := UserListResponse{Users: make([]*UserResponse, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, FromUser(u))
	}
	resp.Total = len(resp.Users)
	WriteJSON(w, http.StatusOK, resp)
}

// createUserHandler handles POST /api/users. Only admins create accounts,
// always within their own company.
func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := types.ParseRole(req.Role)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !authz.CanCreateRole(p.Role, role) {
		writeDomainError(w, authz.ErrRoleForbidden)
		return
	}
	if req.Email == "" || req.FullName == "" {
		WriteError(w, http.StatusBadRequest, "email and full_name are required")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ManagerID != "" {
		if err := s.validateManagerLink(r, p.CompanyID, "", req.ManagerID); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := &types.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         role,
		CompanyID:    p.CompanyID,
		ManagerID:    req.ManagerID,
		Department:   req.Department,
		JobTitle:     req.JobTitle,
		Phone:        req.Phone,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.deps.Store.CreateUser(r.Context(), user); err != nil {
		writeDomainError(w, err)
		return
	}

	// The new user widens the manager's and the admin's scope sets.
	s.deps.Scopes.Invalidate(p)
	if user.ManagerID != "" {
		if manager, err := s.deps.Store.GetUser(r.Context(), user.ManagerID); err == nil {
			s.deps.Scopes.Invalidate(*manager.Principal())
		}
	}

	s.deps.Audit.LogUserChange(p, "create", user.ID, map[string]interface{}{
		"email": user.Email,
		"role":  string(user.Role),
	})
	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("created_by", p.ID))

	WriteJSON(w, http.StatusCreated, FromUser(user))
}

// getUserHandler handles GET /api/users/{id}
func (s *Server) getUserHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	id := mux.Vars(r)["id"]

	target, err := s.deps.Store.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	set, err := s.deps.Scopes.AccessibleUserIDs(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := guard.CheckUserAccess(p, target, set); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, FromUser(target))
}

// updateUserHandler handles PUT /api/users/{id}. Admins update anyone in
// their company; everyone may update their own profile fields. The patch
// is a closed field set and unknown fields are rejected.
func (s *Server) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	id := mux.Vars(r)["id"]

	var patch types.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.Empty() {
		WriteError(w, http.StatusBadRequest, "patch carries no fields")
		return
	}

	target, err := s.deps.Store.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	selfUpdate := target.ID == p.ID
	if selfUpdate && !p.IsAdmin() {
		if patch.Role != nil || patch.ManagerID != nil || patch.Active != nil {
			writeDomainError(w, authz.ErrRoleForbidden)
			return
		}
		patch = patch.ProfileFields()
	} else {
		if err := guard.CheckUserManage(p, target); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	if patch.Role != nil && !patch.Role.Valid() {
		WriteError(w, http.StatusBadRequest, "unknown role")
		return
	}
	if patch.ManagerID != nil && *patch.ManagerID != "" {
		if err := s.validateManagerLink(r, p.CompanyID, target.ID, *patch.ManagerID); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	updated, err := s.deps.Store.UpdateUser(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Role, manager and active changes reshape scope sets beyond the
	// target's own, so the whole cache goes.
	if patch.Role != nil || patch.ManagerID != nil || patch.Active != nil {
		s.deps.Scopes.InvalidateAll()
	}

	s.deps.Audit.LogUserChange(p, "update", updated.ID, patchFields(patch))
	WriteJSON(w, http.StatusOK, FromUser(updated))
}

// deactivateUserHandler handles DELETE /api/users/{id}. Accounts are
// deactivated, never deleted; their expenses stay attributable.
func (s *Server) deactivateUserHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	id := mux.Vars(r)["id"]

	target, err := s.deps.Store.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := guard.CheckUserManage(p, target); err != nil {
		writeDomainError(w, err)
		return
	}
	if target.ID == p.ID {
		WriteError(w, http.StatusBadRequest, "cannot deactivate your own account")
		return
	}

	if err := s.deps.Store.DeactivateUser(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.deps.Scopes.InvalidateAll()

	s.deps.Audit.LogUserChange(p, "deactivate", id, nil)
	s.logger.Info("user deactivated",
		zap.String("user_id", id),
		zap.String("deactivated_by", p.ID))

	w.WriteHeader(http.StatusNoContent)
}

// validateManagerLink checks that a manager assignment stays within the
// company, points at a manager-capable active user and introduces no
// cycle. targetID is empty when creating a new user.
func (s *Server) validateManagerLink(r *http.Request, companyID, targetID, managerID string) error {
	if managerID == targetID {
		return errManagerCycle
	}

	manager, err := s.deps.Store.GetUser(r.Context(), managerID)
	if err != nil {
		return errManagerUnknown
	}
	if manager.CompanyID != companyID {
		return errManagerUnknown
	}
	if !manager.Active {
		return errManagerInactive
	}
	if !manager.Role.CanManage() {
		return errManagerRole
	}

	// Walk the manager chain upward. Hitting the target means the
	// assignment would close a cycle.
	if targetID != "" {
		cur := manager
		for depth := 0; cur.ManagerID != "" && depth < maxHierarchyDepth; depth++ {
			if cur.ManagerID == targetID {
				return errManagerCycle
			}
			next, err := s.deps.Store.GetUser(r.Context(), cur.ManagerID)
			if err != nil {
				break
			}
			cur = next
		}
	}
	return nil
}

const maxHierarchyDepth = 100

var (
	errManagerUnknown  = &validationError{"manager not found in company"}
	errManagerInactive = &validationError{"manager is deactivated"}
	errManagerRole     = &validationError{"manager role cannot have reports"}
	errManagerCycle    = &validationError{"manager assignment would create a cycle"}
)

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

// patchFields lists the fields a patch touches for the audit trail
func patchFields(p types.UserPatch) map[string]interface{} {
	fields := make(map[string]interface{})
	if p.FullName != nil {
		fields["full_name"] = *p.FullName
	}
	if p.Role != nil {
		fields["role"] = string(*p.Role)
	}
	if p.ManagerID != nil {
		fields["manager_id"] = *p.ManagerID
	}
	if p.Department != nil {
		fields["department"] = *p.Department
	}
	if p.JobTitle != nil {
		fields["job_title"] = *p.JobTitle
	}
	if p.Phone != nil {
		fields["phone"] = *p.Phone
	}
	if p.Active != nil {
		fields["active"] = *p.Active
	}
	return fields
}
