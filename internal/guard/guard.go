// Package guard enforces per-resource access checks on top of role policy
// and scope resolution
package guard

import (
	"github.com/expenseflow/go-core/internal/authz"
	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

// Checks run in a fixed order: company isolation first, then scope. A
// resource in another company is reported as missing, never as forbidden,
// so responses do not leak that the resource exists.

// CheckExpenseAccess decides whether the principal may read an expense
// owned by the given user. The scope set must come from the resolver for
// the same principal.
func CheckExpenseAccess(p types.Principal, owner *types.User, scope types.UserIDSet) error {
	if owner.CompanyID != p.CompanyID {
		return store.ErrNotFound
	}
	if !scope.Contains(owner.ID) {
		return authz.ErrScopeForbidden
	}
	return nil
}

// CheckApproval decides whether the principal may decide on an expense
// owned by the given user. Order: role, company, scope, self-approval.
func CheckApproval(p types.Principal, owner *types.User, scope types.UserIDSet) error {
	if !authz.CanPerform(p.Role, authz.ActionApproveExpense) {
		return authz.ErrRoleForbidden
	}
	if owner.CompanyID != p.CompanyID {
		return store.ErrNotFound
	}
	if !scope.Contains(owner.ID) {
		return authz.ErrScopeForbidden
	}
	// Applies to admins as much as managers.
	if owner.ID == p.ID {
		return authz.ErrSelfApproval
	}
	return nil
}

// CheckUserAccess decides whether the principal may read another user's
// profile. Everyone may read their own.
func CheckUserAccess(p types.Principal, target *types.User, scope types.UserIDSet) error {
	if target.CompanyID != p.CompanyID {
		return store.ErrNotFound
	}
	if target.ID == p.ID {
		return nil
	}
	if !scope.Contains(target.ID) {
		return authz.ErrScopeForbidden
	}
	return nil
}

// CheckUserManage decides whether the principal may modify or deactivate
// the target user. Only company admins manage users.
func CheckUserManage(p types.Principal, target *types.User) error {
	if !authz.CanPerform(p.Role, authz.ActionManageUsers) {
		return authz.ErrRoleForbidden
	}
	if target.CompanyID != p.CompanyID {
		return store.ErrNotFound
	}
	return nil
}
