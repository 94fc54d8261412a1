package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/expenseflow/go-core/pkg/types"
)

func TestCanPerform(t *testing.T) {
	tests := []struct {
		name   string
		role   types.Role
		action Action
		want   bool
	}{
		{name: "employee creates expense", role: types.RoleEmployee, action: ActionCreateExpense, want: true},
		{name: "employee views own", role: types.RoleEmployee, action: ActionViewOwnExpenses, want: true},
		{name: "employee denied team view", role: types.RoleEmployee, action: ActionViewTeamExpenses, want: false},
		{name: "employee denied approve", role: types.RoleEmployee, action: ActionApproveExpense, want: false},
		{name: "employee denied user creation", role: types.RoleEmployee, action: ActionCreateUser, want: false},

		{name: "manager views team", role: types.RoleManager, action: ActionViewTeamExpenses, want: true},
		{name: "manager approves", role: types.RoleManager, action: ActionApproveExpense, want: true},
		{name: "manager denied company view", role: types.RoleManager, action: ActionViewCompanyExpenses, want: false},
		{name: "manager denied policies", role: types.RoleManager, action: ActionManagePolicies, want: false},
		{name: "manager denied user creation", role: types.RoleManager, action: ActionCreateUser, want: false},
		{name: "manager denied user management", role: types.RoleManager, action: ActionManageUsers, want: false},

		{name: "admin views company", role: types.RoleAdmin, action: ActionViewCompanyExpenses, want: true},
		{name: "admin manages policies", role: types.RoleAdmin, action: ActionManagePolicies, want: true},
		{name: "admin manages budgets", role: types.RoleAdmin, action: ActionManageBudgets, want: true},
		{name: "admin manages users", role: types.RoleAdmin, action: ActionManageUsers, want: true},
		{name: "admin creates users", role: types.RoleAdmin, action: ActionCreateUser, want: true},

		{name: "unknown role fails closed", role: types.Role("owner"), action: ActionCreateExpense, want: false},
		{name: "unknown action fails closed", role: types.RoleAdmin, action: Action("delete_company"), want: false},
		{name: "empty role fails closed", role: types.Role(""), action: ActionViewOwnExpenses, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPerform(tt.role, tt.action))
		})
	}
}

// TestRoleMonotonicity checks that each step up the ladder keeps every
// permission of the step below.
func TestRoleMonotonicity(t *testing.T) {
	allActions := []Action{
		ActionCreateExpense, ActionViewOwnExpenses, ActionViewTeamExpenses,
		ActionViewCompanyExpenses, ActionApproveExpense, ActionManagePolicies,
		ActionManageBudgets, ActionManageUsers, ActionCreateUser,
	}

	for _, a := range allActions {
		if CanPerform(types.RoleEmployee, a) {
			assert.True(t, CanPerform(types.RoleManager, a), "manager lacks employee permission %s", a)
		}
		if CanPerform(types.RoleManager, a) {
			assert.True(t, CanPerform(types.RoleAdmin, a), "admin lacks manager permission %s", a)
		}
	}
}

func TestCanCreateRole(t *testing.T) {
	// Admin may create any known role, including another admin.
	for _, target := range []types.Role{types.RoleAdmin, types.RoleManager, types.RoleEmployee} {
		assert.True(t, CanCreateRole(types.RoleAdmin, target), "admin should create %s", target)
	}

	// Nobody else creates users at all.
	for _, actor := range []types.Role{types.RoleManager, types.RoleEmployee, types.Role("unknown")} {
		for _, target := range []types.Role{types.RoleAdmin, types.RoleManager, types.RoleEmployee} {
			assert.False(t, CanCreateRole(actor, target), "%s should not create %s", actor, target)
		}
	}

	// Unknown target roles deny even for admins.
	assert.False(t, CanCreateRole(types.RoleAdmin, types.Role("superuser")))
}

func TestViewAction(t *testing.T) {
	a, ok := ViewAction(types.RoleAdmin)
	assert.True(t, ok)
	assert.Equal(t, ActionViewCompanyExpenses, a)

	a, ok = ViewAction(types.RoleManager)
	assert.True(t, ok)
	assert.Equal(t, ActionViewTeamExpenses, a)

	a, ok = ViewAction(types.RoleEmployee)
	assert.True(t, ok)
	assert.Equal(t, ActionViewOwnExpenses, a)

	_, ok = ViewAction(types.Role("guest"))
	assert.False(t, ok)
}
