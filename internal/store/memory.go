package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/expenseflow/go-core/pkg/types"
)

// Memory is an in-process Store used for tests and local development. All
// methods copy records on the way in and out so callers never alias the
// stored values.
type Memory struct {
	mu            sync.RWMutex
	users         map[string]*types.User
	usersByEmail  map[string]string
	companies     map[string]*types.Company
	expenses      map[string]*types.Expense
	policies      map[string]*types.ExpensePolicy
	budgets       map[string]*types.BudgetLimit
	notifications map[string]*types.Notification
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]*types.User),
		usersByEmail:  make(map[string]string),
		companies:     make(map[string]*types.Company),
		expenses:      make(map[string]*types.Expense),
		policies:      make(map[string]*types.ExpensePolicy),
		budgets:       make(map[string]*types.BudgetLimit),
		notifications: make(map[string]*types.Notification),
	}
}

// Users

func (m *Memory) CreateUser(ctx context.Context, u *types.User) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, exists := m.usersByEmail[email]; exists {
		return ErrDuplicateEmail
	}

	cp := *u
	m.users[u.ID] = &cp
	m.usersByEmail[email] = u.ID
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id string) (*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *Memory) ListCompanyUsers(ctx context.Context, companyID string, includeInactive bool) ([]*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.User
	for _, u := range m.users {
		if u.CompanyID != companyID {
			continue
		}
		if !includeInactive && !u.Active {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sortUsers(out)
	return out, nil
}

func (m *Memory) ListDirectReports(ctx context.Context, managerID, companyID string) ([]*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.User
	for _, u := range m.users {
		if u.ManagerID != managerID || u.CompanyID != companyID || !u.Active {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sortUsers(out)
	return out, nil
}

func (m *Memory) UpdateUser(ctx context.Context, id string, patch types.UserPatch) (*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.ManagerID != nil {
		u.ManagerID = *patch.ManagerID
	}
	if patch.Department != nil {
		u.Department = *patch.Department
	}
	if patch.JobTitle != nil {
		u.JobTitle = *patch.JobTitle
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if patch.Active != nil {
		u.Active = *patch.Active
	}

	cp := *u
	return &cp, nil
}

func (m *Memory) DeactivateUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Active = false
	return nil
}

func (m *Memory) CountCompanyUsers(ctx context.Context, companyID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, u := range m.users {
		if u.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

// Companies

func (m *Memory) CreateCompany(ctx context.Context, c *types.Company) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.companies[c.ID] = &cp
	return nil
}

func (m *Memory) GetCompany(ctx context.Context, id string) (*types.Company, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// Expenses

func (m *Memory) CreateExpense(ctx context.Context, e *types.Expense) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.expenses[e.ID] = copyExpense(e)
	return nil
}

func (m *Memory) GetExpense(ctx context.Context, id string) (*types.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.expenses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyExpense(e), nil
}

func (m *Memory) ListExpenses(ctx context.Context, f ExpenseFilter) ([]*types.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	ids := types.NewUserIDSet(f.EmployeeIDs...)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Expense
	for _, e := range m.expenses {
		if !ids.Contains(e.EmployeeID) {
			continue
		}
		if f.Status != nil && e.Status != *f.Status {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		out = append(out, copyExpense(e))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) UpdateExpenseStatusIf(ctx context.Context, id string, expected, next types.ExpenseStatus, entry types.ApprovalEntry) (*types.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.expenses[id]
	if !ok {
		return nil, ErrNotFound
	}
	// Compare-and-swap under the store lock: the check and the write are
	// one atomic step, matching the conditional-update semantics of the
	// SQL implementation.
	if e.Status != expected {
		return nil, ErrStaleStatus
	}

	e.Status = next
	e.ApprovalHistory = append(e.ApprovalHistory, entry)
	return copyExpense(e), nil
}

func (m *Memory) ExpenseStats(ctx context.Context, employeeIDs []string) (*types.ExpenseStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	ids := types.NewUserIDSet(employeeIDs...)

	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &types.ExpenseStats{}
	for _, e := range m.expenses {
		if !ids.Contains(e.EmployeeID) {
			continue
		}
		stats.TotalExpenses++
		switch e.Status {
		case types.StatusPending:
			stats.PendingExpenses++
		case types.StatusApproved:
			stats.ApprovedExpenses++
			stats.ApprovedAmount += e.Amount
		case types.StatusRejected:
			stats.RejectedExpenses++
		}
	}
	return stats, nil
}

// Policies

func (m *Memory) CreatePolicy(ctx context.Context, p *types.ExpensePolicy) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	m.policies[p.ID] = &cp
	return nil
}

func (m *Memory) GetPolicy(ctx context.Context, id string) (*types.ExpensePolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.policies[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) ListPolicies(ctx context.Context, companyID string) ([]*types.ExpensePolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.ExpensePolicy
	for _, p := range m.policies {
		if p.CompanyID != companyID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (m *Memory) ListPoliciesByCategory(ctx context.Context, companyID, category string) ([]*types.ExpensePolicy, error) {
	all, err := m.ListPolicies(ctx, companyID)
	if err != nil {
		return nil, err
	}
	var out []*types.ExpensePolicy
	for _, p := range all {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) UpdatePolicy(ctx context.Context, p *types.ExpensePolicy) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.policies[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.policies[p.ID] = &cp
	return nil
}

func (m *Memory) DeletePolicy(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.policies[id]; !ok {
		return ErrNotFound
	}
	delete(m.policies, id)
	return nil
}

// Budgets

func (m *Memory) CreateBudget(ctx context.Context, b *types.BudgetLimit) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *b
	m.budgets[b.ID] = &cp
	return nil
}

func (m *Memory) ListBudgets(ctx context.Context, companyID string) ([]*types.BudgetLimit, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.BudgetLimit
	for _, b := range m.budgets {
		if b.CompanyID != companyID {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out, nil
}

// Notifications

func (m *Memory) CreateNotification(ctx context.Context, n *types.Notification) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *Memory) ListNotifications(ctx context.Context, userID string, limit int) ([]*types.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MarkNotificationRead(ctx context.Context, id, userID string) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.Read = true
	return nil
}

// Helpers

func copyExpense(e *types.Expense) *types.Expense {
	cp := *e
	cp.ApprovalHistory = make([]types.ApprovalEntry, len(e.ApprovalHistory))
	copy(cp.ApprovalHistory, e.ApprovalHistory)
	return &cp
}

func sortUsers(users []*types.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
}
