package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/expenseflow/go-core/pkg/types"
)

// Expenses

func (s *Postgres) CreateExpense(ctx context.Context, e *types.Expense) error {
	history, err := json.Marshal(e.ApprovalHistory)
	if err != nil {
		return fmt.Errorf("marshal approval history: %w", err)
	}
	if e.ApprovalHistory == nil {
		history = []byte("[]")
	}

	query := `
		INSERT INTO expenses (
			id, employee_id, amount, currency, category, description,
			expense_date, status, receipt_url, policy_violation,
			violation_reason, created_at, approval_history
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb)
	`
	_, err = s.db.ExecContext(ctx, query,
		e.ID, e.EmployeeID, e.Amount, e.Currency, e.Category, e.Description,
		e.Date, string(e.Status), e.ReceiptURL, e.PolicyViolation,
		e.ViolationReason, e.CreatedAt, history,
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", mapError(err))
	}
	return nil
}

const expenseColumns = `
	id, employee_id, amount, currency, category, description,
	expense_date, status, receipt_url, policy_violation,
	violation_reason, created_at, approval_history
`

func scanExpense(row interface{ Scan(...interface{}) error }) (*types.Expense, error) {
	e := &types.Expense{}
	var status string
	var history []byte
	err := row.Scan(
		&e.ID, &e.EmployeeID, &e.Amount, &e.Currency, &e.Category, &e.Description,
		&e.Date, &status, &e.ReceiptURL, &e.PolicyViolation,
		&e.ViolationReason, &e.CreatedAt, &history,
	)
	if err != nil {
		return nil, mapError(err)
	}

	parsed, err := types.ParseExpenseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("stored expense %s: %w", e.ID, err)
	}
	e.Status = parsed

	if len(history) > 0 {
		if err := json.Unmarshal(history, &e.ApprovalHistory); err != nil {
			return nil, fmt.Errorf("unmarshal approval history: %w", err)
		}
	}
	return e, nil
}

func (s *Postgres) GetExpense(ctx context.Context, id string) (*types.Expense, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	return scanExpense(row)
}

func (s *Postgres) ListExpenses(ctx context.Context, f ExpenseFilter) ([]*types.Expense, error) {
	// EmployeeIDs carries the scope resolver's output; an empty scope lists
	// nothing rather than everything.
	if len(f.EmployeeIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE employee_id = ANY($1)`
	args := []interface{}{pq.Array(f.EmployeeIDs)}

	if f.Status != nil {
		args = append(args, string(*f.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", mapError(err))
	}
	defer rows.Close()

	var out []*types.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Postgres) UpdateExpenseStatusIf(ctx context.Context, id string, expected, next types.ExpenseStatus, entry types.ApprovalEntry) (*types.Expense, error) {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal approval entry: %w", err)
	}

	// Single conditional statement: the status predicate and the write are
	// one atomic step from the store's perspective, so two concurrent
	// approvals resolve to exactly one winner even across service
	// instances. The history append rides on the same statement.
	query := `
		UPDATE expenses
		SET status = $2,
		    approval_history = approval_history || $3::jsonb
		WHERE id = $1 AND status = $4
		RETURNING ` + expenseColumns

	row := s.db.QueryRowContext(ctx, query, id, string(next), entryJSON, string(expected))
	e, err := scanExpense(row)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("conditional status update: %w", err)
	}

	// Zero rows: either the expense is gone or its status moved. Re-read
	// to tell the two apart.
	if _, getErr := s.GetExpense(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStaleStatus
}

func (s *Postgres) ExpenseStats(ctx context.Context, employeeIDs []string) (*types.ExpenseStats, error) {
	stats := &types.ExpenseStats{}
	if len(employeeIDs) == 0 {
		return stats, nil
	}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'approved'), 0)
		FROM expenses
		WHERE employee_id = ANY($1)
	`
	err := s.db.QueryRowContext(ctx, query, pq.Array(employeeIDs)).Scan(
		&stats.TotalExpenses, &stats.PendingExpenses, &stats.ApprovedExpenses,
		&stats.RejectedExpenses, &stats.ApprovedAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("expense stats: %w", mapError(err))
	}
	return stats, nil
}

// Policies

func (s *Postgres) CreatePolicy(ctx context.Context, p *types.ExpensePolicy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expense_policies (
			id, company_id, category, max_amount, requires_receipt,
			auto_approve_limit, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.CompanyID, p.Category, p.MaxAmount, p.RequiresReceipt,
		p.AutoApproveLimit, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert policy: %w", mapError(err))
	}
	return nil
}

const policyColumns = `
	id, company_id, category, max_amount, requires_receipt,
	auto_approve_limit, created_at
`

func scanPolicy(row interface{ Scan(...interface{}) error }) (*types.ExpensePolicy, error) {
	p := &types.ExpensePolicy{}
	err := row.Scan(&p.ID, &p.CompanyID, &p.Category, &p.MaxAmount,
		&p.RequiresReceipt, &p.AutoApproveLimit, &p.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func (s *Postgres) GetPolicy(ctx context.Context, id string) (*types.ExpensePolicy, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM expense_policies WHERE id = $1`, id)
	return scanPolicy(row)
}

func (s *Postgres) ListPolicies(ctx context.Context, companyID string) ([]*types.ExpensePolicy, error) {
	return s.queryPolicies(ctx,
		`SELECT `+policyColumns+` FROM expense_policies WHERE company_id = $1 ORDER BY category`,
		companyID)
}

func (s *Postgres) ListPoliciesByCategory(ctx context.Context, companyID, category string) ([]*types.ExpensePolicy, error) {
	return s.queryPolicies(ctx,
		`SELECT `+policyColumns+` FROM expense_policies WHERE company_id = $1 AND category = $2`,
		companyID, category)
}

func (s *Postgres) queryPolicies(ctx context.Context, query string, args ...interface{}) ([]*types.ExpensePolicy, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", mapError(err))
	}
	defer rows.Close()

	var out []*types.ExpensePolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Postgres) UpdatePolicy(ctx context.Context, p *types.ExpensePolicy) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE expense_policies
		SET category = $2, max_amount = $3, requires_receipt = $4, auto_approve_limit = $5
		WHERE id = $1
	`, p.ID, p.Category, p.MaxAmount, p.RequiresReceipt, p.AutoApproveLimit)
	if err != nil {
		return fmt.Errorf("update policy: %w", mapError(err))
	}
	return requireRowsAffected(res)
}

func (s *Postgres) DeletePolicy(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expense_policies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete policy: %w", mapError(err))
	}
	return requireRowsAffected(res)
}

// Budgets

func (s *Postgres) CreateBudget(ctx context.Context, b *types.BudgetLimit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budget_limits (
			id, company_id, department, category, monthly_limit, yearly_limit, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.CompanyID, b.Department, b.Category, b.MonthlyLimit, b.YearlyLimit, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert budget: %w", mapError(err))
	}
	return nil
}

func (s *Postgres) ListBudgets(ctx context.Context, companyID string) ([]*types.BudgetLimit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, department, category, monthly_limit, yearly_limit, created_at
		FROM budget_limits
		WHERE company_id = $1
		ORDER BY department, category
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", mapError(err))
	}
	defer rows.Close()

	var out []*types.BudgetLimit
	for rows.Next() {
		b := &types.BudgetLimit{}
		if err := rows.Scan(&b.ID, &b.CompanyID, &b.Department, &b.Category,
			&b.MonthlyLimit, &b.YearlyLimit, &b.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// Notifications

func (s *Postgres) CreateNotification(ctx context.Context, n *types.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, kind, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.UserID, n.Title, n.Message, string(n.Kind), n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", mapError(err))
	}
	return nil
}

func (s *Postgres) ListNotifications(ctx context.Context, userID string, limit int) ([]*types.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, kind, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", mapError(err))
	}
	defer rows.Close()

	var out []*types.Notification
	for rows.Next() {
		n := &types.Notification{}
		var kind string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &kind, &n.Read, &n.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		n.Kind = types.NotificationKind(kind)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Postgres) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", mapError(err))
	}
	return requireRowsAffected(res)
}

func requireRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
