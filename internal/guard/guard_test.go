package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/expenseflow/go-core/internal/authz"
	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

func user(id, companyID string) *types.User {
	return &types.User{ID: id, CompanyID: companyID, Active: true}
}

func TestCheckExpenseAccess(t *testing.T) {
	mgr := types.Principal{ID: "mgr1", Role: types.RoleManager, CompanyID: "acme"}
	scope := types.NewUserIDSet("mgr1", "emp1")

	tests := []struct {
		name    string
		owner   *types.User
		wantErr error
	}{
		{"own report", user("emp1", "acme"), nil},
		{"self", user("mgr1", "acme"), nil},
		{"same company outside scope", user("emp9", "acme"), authz.ErrScopeForbidden},
		{"other company masked as missing", user("emp1", "globex"), store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckExpenseAccess(mgr, tt.owner, scope)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCheckApproval(t *testing.T) {
	scope := types.NewUserIDSet("mgr1", "emp1")

	tests := []struct {
		name      string
		principal types.Principal
		owner     *types.User
		scope     types.UserIDSet
		wantErr   error
	}{
		{
			name:      "manager approves report",
			principal: types.Principal{ID: "mgr1", Role: types.RoleManager, CompanyID: "acme"},
			owner:     user("emp1", "acme"),
			scope:     scope,
			wantErr:   nil,
		},
		{
			name:      "employee lacks the role",
			principal: types.Principal{ID: "emp1", Role: types.RoleEmployee, CompanyID: "acme"},
			owner:     user("emp2", "acme"),
			scope:     types.NewUserIDSet("emp1"),
			wantErr:   authz.ErrRoleForbidden,
		},
		{
			name:      "cross company masked as missing",
			principal: types.Principal{ID: "mgr1", Role: types.RoleManager, CompanyID: "acme"},
			owner:     user("emp1", "globex"),
			scope:     scope,
			wantErr:   store.ErrNotFound,
		},
		{
			name:      "outside manager scope",
			principal: types.Principal{ID: "mgr1", Role: types.RoleManager, CompanyID: "acme"},
			owner:     user("emp9", "acme"),
			scope:     scope,
			wantErr:   authz.ErrScopeForbidden,
		},
		{
			name:      "manager cannot approve own expense",
			principal: types.Principal{ID: "mgr1", Role: types.RoleManager, CompanyID: "acme"},
			owner:     user("mgr1", "acme"),
			scope:     scope,
			wantErr:   authz.ErrSelfApproval,
		},
		{
			name:      "admin cannot approve own expense either",
			principal: types.Principal{ID: "adm1", Role: types.RoleAdmin, CompanyID: "acme"},
			owner:     user("adm1", "acme"),
			scope:     types.NewUserIDSet("adm1", "emp1"),
			wantErr:   authz.ErrSelfApproval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckApproval(tt.principal, tt.owner, tt.scope)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

// Role is checked before company, so an employee probing a foreign
// expense learns nothing about whether it exists.
func TestCheckApprovalRoleBeforeCompany(t *testing.T) {
	emp := types.Principal{ID: "emp1", Role: types.RoleEmployee, CompanyID: "acme"}
	err := CheckApproval(emp, user("emp9", "globex"), types.NewUserIDSet("emp1"))
	assert.ErrorIs(t, err, authz.ErrRoleForbidden)
}

func TestCheckUserAccess(t *testing.T) {
	emp := types.Principal{ID: "emp1", Role: types.RoleEmployee, CompanyID: "acme"}
	ownScope := types.NewUserIDSet("emp1")

	assert.NoError(t, CheckUserAccess(emp, user("emp1", "acme"), ownScope))
	assert.ErrorIs(t, CheckUserAccess(emp, user("emp2", "acme"), ownScope), authz.ErrScopeForbidden)
	assert.ErrorIs(t, CheckUserAccess(emp, user("emp2", "globex"), ownScope), store.ErrNotFound)
}

func TestCheckUserManage(t *testing.T) {
	admin := types.Principal{ID: "adm1", Role: types.RoleAdmin, CompanyID: "acme"}
	mgr := types.Principal{ID: "mgr1", Role: types.RoleManager, CompanyID: "acme"}

	assert.NoError(t, CheckUserManage(admin, user("emp1", "acme")))
	assert.ErrorIs(t, CheckUserManage(mgr, user("emp1", "acme")), authz.ErrRoleForbidden)
	assert.ErrorIs(t, CheckUserManage(admin, user("emp1", "globex")), store.ErrNotFound)
}
