// Package authz provides the pure role-policy decision tables
package authz

import (
	"github.com/expenseflow/go-core/pkg/types"
)

// Action identifies an operation subject to role policy
type Action string

const (
	ActionCreateExpense       Action = "create_expense"
	ActionViewOwnExpenses     Action = "view_own_expenses"
	ActionViewTeamExpenses    Action = "view_team_expenses"
	ActionViewCompanyExpenses Action = "view_company_expenses"
	ActionApproveExpense      Action = "approve_expense"
	ActionManagePolicies      Action = "manage_policies"
	ActionManageBudgets       Action = "manage_budgets"
	ActionManageUsers         Action = "manage_users"
	ActionCreateUser          Action = "create_user"
)

// rolePermissions is the fixed permission table. The role ladder is
// monotonic: admin rights are a superset of manager rights, which are a
// superset of employee rights. Any (role, action) pair absent from the
// table is denied.
var rolePermissions = map[types.Role]map[Action]struct{}{
	types.RoleEmployee: setOf(
		ActionCreateExpense,
		ActionViewOwnExpenses,
	),
	types.RoleManager: setOf(
		ActionCreateExpense,
		ActionViewOwnExpenses,
		ActionViewTeamExpenses,
		ActionApproveExpense,
	),
	types.RoleAdmin: setOf(
		ActionCreateExpense,
		ActionViewOwnExpenses,
		ActionViewTeamExpenses,
		ActionViewCompanyExpenses,
		ActionApproveExpense,
		ActionManagePolicies,
		ActionManageBudgets,
		ActionManageUsers,
		ActionCreateUser,
	),
}

func setOf(actions ...Action) map[Action]struct{} {
	s := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		s[a] = struct{}{}
	}
	return s
}

// CanPerform reports whether the role is permitted to perform the action.
// Unknown roles and unknown actions deny.
func CanPerform(role types.Role, action Action) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[action]
	return ok
}

// CanCreateRole reports whether an actor with the given role may create a
// user with the target role. Only admins create users; an admin may create
// any of the three roles. Managers can view team data but are explicitly
// denied user creation.
func CanCreateRole(actor, target types.Role) bool {
	if actor != types.RoleAdmin {
		return false
	}
	return target.Valid()
}

// ViewAction returns the widest expense-view action the role holds. Used
// by listing handlers to record which rule admitted the request.
func ViewAction(role types.Role) (Action, bool) {
	switch {
	case CanPerform(role, ActionViewCompanyExpenses):
		return ActionViewCompanyExpenses, true
	case CanPerform(role, ActionViewTeamExpenses):
		return ActionViewTeamExpenses, true
	case CanPerform(role, ActionViewOwnExpenses):
		return ActionViewOwnExpenses, true
	}
	return "", false
}
