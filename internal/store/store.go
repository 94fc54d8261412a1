// Package store provides persistence interfaces and implementations for the
// expense management service
package store

import (
	"context"

	"github.com/expenseflow/go-core/pkg/types"
)

// UserStore persists user records. Listing methods are always company
// scoped; there is no way to enumerate users across companies.
type UserStore interface {
	CreateUser(ctx context.Context, u *types.User) error
	GetUser(ctx context.Context, id string) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)

	// ListCompanyUsers returns every user of a company, including
	// deactivated ones when includeInactive is set.
	ListCompanyUsers(ctx context.Context, companyID string, includeInactive bool) ([]*types.User, error)

	// ListDirectReports returns the active users whose manager_id equals
	// managerID and whose company matches companyID. One hierarchy level
	// only.
	ListDirectReports(ctx context.Context, managerID, companyID string) ([]*types.User, error)

	// UpdateUser applies a typed patch. Fields left nil are untouched.
	UpdateUser(ctx context.Context, id string, patch types.UserPatch) (*types.User, error)

	// DeactivateUser sets active=false. Users are never hard-deleted.
	DeactivateUser(ctx context.Context, id string) error

	CountCompanyUsers(ctx context.Context, companyID string) (int, error)
}

// CompanyStore persists companies. Companies are created once and never
// merged, split or deleted.
type CompanyStore interface {
	CreateCompany(ctx context.Context, c *types.Company) error
	GetCompany(ctx context.Context, id string) (*types.Company, error)
}

// ExpenseFilter narrows an expense listing. EmployeeIDs is mandatory for
// every listing: callers pass the scope resolver's output, so company
// isolation holds by construction.
type ExpenseFilter struct {
	EmployeeIDs []string
	Status      *types.ExpenseStatus
	Category    string
	Limit       int
}

// ExpenseStore persists expenses. Status transitions happen exclusively
// through UpdateExpenseStatusIf; there is no unconditional status update.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e *types.Expense) error
	GetExpense(ctx context.Context, id string) (*types.Expense, error)
	ListExpenses(ctx context.Context, f ExpenseFilter) ([]*types.Expense, error)

	// UpdateExpenseStatusIf atomically transitions the expense from
	// expected to next and appends one approval history entry. When the
	// stored status no longer equals expected it returns ErrStaleStatus
	// and performs no write; concurrent callers therefore resolve to a
	// single winner. Returns the updated expense on success.
	UpdateExpenseStatusIf(ctx context.Context, id string, expected, next types.ExpenseStatus, entry types.ApprovalEntry) (*types.Expense, error)

	// ExpenseStats aggregates the given employees' expenses for dashboards.
	ExpenseStats(ctx context.Context, employeeIDs []string) (*types.ExpenseStats, error)
}

// PolicyStore persists per-company expense policies
type PolicyStore interface {
	CreatePolicy(ctx context.Context, p *types.ExpensePolicy) error
	GetPolicy(ctx context.Context, id string) (*types.ExpensePolicy, error)
	ListPolicies(ctx context.Context, companyID string) ([]*types.ExpensePolicy, error)
	ListPoliciesByCategory(ctx context.Context, companyID, category string) ([]*types.ExpensePolicy, error)
	UpdatePolicy(ctx context.Context, p *types.ExpensePolicy) error
	DeletePolicy(ctx context.Context, id string) error
}

// BudgetStore persists per-company budget limits
type BudgetStore interface {
	CreateBudget(ctx context.Context, b *types.BudgetLimit) error
	ListBudgets(ctx context.Context, companyID string) ([]*types.BudgetLimit, error)
}

// NotificationStore persists user notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *types.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]*types.Notification, error)

	// MarkNotificationRead flips read=true only when the notification
	// belongs to userID.
	MarkNotificationRead(ctx context.Context, id, userID string) error
}

// Store bundles all collections behind one value for wiring convenience
type Store interface {
	UserStore
	CompanyStore
	ExpenseStore
	PolicyStore
	BudgetStore
	NotificationStore
}
