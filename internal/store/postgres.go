package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	"github.com/expenseflow/go-core/pkg/types"
)

// Postgres implements Store on PostgreSQL via database/sql and lib/pq
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL-backed store
func NewPostgres(db *sql.DB) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("database connection is nil")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// mapError translates driver errors into the store taxonomy. Timeouts and
// connection failures become ErrUnavailable so callers know the operation
// is safe to retry.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrUnavailable
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505": // unique_violation
			return ErrDuplicateEmail
		case pqErr.Code.Class() == "08": // connection exceptions
			return ErrUnavailable
		}
	}
	return err
}

// Users

func (s *Postgres) CreateUser(ctx context.Context, u *types.User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, full_name, role, company_id,
			manager_id, department, job_title, phone, active, created_at
		) VALUES ($1, lower($2), $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.FullName, string(u.Role), u.CompanyID,
		u.ManagerID, u.Department, u.JobTitle, u.Phone, u.Active, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapError(err))
	}
	return nil
}

const userColumns = `
	id, email, password_hash, full_name, role, company_id,
	COALESCE(manager_id, ''), department, job_title, phone, active, created_at
`

func (s *Postgres) scanUser(row interface{ Scan(...interface{}) error }) (*types.User, error) {
	u := &types.User{}
	var role string
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &role, &u.CompanyID,
		&u.ManagerID, &u.Department, &u.JobTitle, &u.Phone, &u.Active, &u.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	parsed, err := types.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("stored user %s: %w", u.ID, err)
	}
	u.Role = parsed
	return u, nil
}

func (s *Postgres) GetUser(ctx context.Context, id string) (*types.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return s.scanUser(row)
}

func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
	return s.scanUser(row)
}

func (s *Postgres) ListCompanyUsers(ctx context.Context, companyID string, includeInactive bool) ([]*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY email`

	rows, err := s.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list company users: %w", mapError(err))
	}
	defer rows.Close()
	return s.collectUsers(rows)
}

func (s *Postgres) ListDirectReports(ctx context.Context, managerID, companyID string) ([]*types.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE manager_id = $1 AND company_id = $2 AND active
		ORDER BY email
	`
	rows, err := s.db.QueryContext(ctx, query, managerID, companyID)
	if err != nil {
		return nil, fmt.Errorf("list direct reports: %w", mapError(err))
	}
	defer rows.Close()
	return s.collectUsers(rows)
}

func (s *Postgres) collectUsers(rows *sql.Rows) ([]*types.User, error) {
	var out []*types.User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Postgres) UpdateUser(ctx context.Context, id string, patch types.UserPatch) (*types.User, error) {
	// A patched manager_id of '' clears the link; an absent field keeps
	// it. The flag carries the distinction since both map to NULL-ish
	// values in SQL.
	query := `
		UPDATE users SET
			full_name  = COALESCE($2, full_name),
			role       = COALESCE($3, role),
			manager_id = CASE WHEN $4 THEN NULLIF($5, '') ELSE manager_id END,
			department = COALESCE($6, department),
			job_title  = COALESCE($7, job_title),
			phone      = COALESCE($8, phone),
			active     = COALESCE($9, active)
		WHERE id = $1
		RETURNING ` + userColumns

	var role *string
	if patch.Role != nil {
		r := string(*patch.Role)
		role = &r
	}
	setManager := patch.ManagerID != nil
	var managerID string
	if setManager {
		managerID = *patch.ManagerID
	}

	row := s.db.QueryRowContext(ctx, query,
		id, patch.FullName, role, setManager, managerID,
		patch.Department, patch.JobTitle, patch.Phone, patch.Active,
	)
	return s.scanUser(row)
}

func (s *Postgres) DeactivateUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CountCompanyUsers(ctx context.Context, companyID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE company_id = $1`, companyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count company users: %w", mapError(err))
	}
	return n, nil
}

// Companies

func (s *Postgres) CreateCompany(ctx context.Context, c *types.Company) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, currency, country, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.Name, c.Currency, c.Country, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert company: %w", mapError(err))
	}
	return nil
}

func (s *Postgres) GetCompany(ctx context.Context, id string) (*types.Company, error) {
	c := &types.Company{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, currency, country, created_at FROM companies WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Currency, &c.Country, &c.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}
