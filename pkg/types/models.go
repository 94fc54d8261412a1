package types

import (
	"time"
)

// Company is the tenant boundary. Every user and, transitively through its
// owner, every expense belongs to exactly one company.
type Company struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Currency  string    `json:"currency" db:"currency"`
	Country   string    `json:"country" db:"country"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// User is a principal's persistent record
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // never exposed in JSON
	FullName     string    `json:"full_name" db:"full_name"`
	Role         Role      `json:"role" db:"role"`
	CompanyID    string    `json:"company_id" db:"company_id"`
	ManagerID    string    `json:"manager_id,omitempty" db:"manager_id"`
	Department   string    `json:"department,omitempty" db:"department"`
	JobTitle     string    `json:"job_title,omitempty" db:"job_title"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Principal returns the request-scoped identity snapshot for this user
func (u *User) Principal() *Principal {
	return &Principal{
		ID:        u.ID,
		Name:      u.FullName,
		Role:      u.Role,
		CompanyID: u.CompanyID,
		ManagerID: u.ManagerID,
	}
}

// Expense is a reimbursement claim. Its company is derived transitively
// through the owning user and never stored redundantly.
type Expense struct {
	ID              string          `json:"id" db:"id"`
	EmployeeID      string          `json:"employee_id" db:"employee_id"`
	Amount          float64         `json:"amount" db:"amount"`
	Currency        string          `json:"currency" db:"currency"`
	Category        string          `json:"category" db:"category"`
	Description     string          `json:"description" db:"description"`
	Date            time.Time       `json:"date" db:"date"`
	Status          ExpenseStatus   `json:"status" db:"status"`
	ReceiptURL      string          `json:"receipt_url,omitempty" db:"receipt_url"`
	PolicyViolation bool            `json:"policy_violation" db:"policy_violation"`
	ViolationReason string          `json:"violation_reason,omitempty" db:"violation_reason"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	ApprovalHistory []ApprovalEntry `json:"approval_history" db:"approval_history"`
}

// ApprovalEntry is one append-only record of an approval decision
type ApprovalEntry struct {
	ApproverID   string         `json:"approver_id"`
	ApproverName string         `json:"approver_name"`
	Action       ApprovalAction `json:"action"`
	Comment      string         `json:"comment,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// ExpensePolicy is a per-company, per-category spending rule
type ExpensePolicy struct {
	ID               string    `json:"id" db:"id"`
	CompanyID        string    `json:"company_id" db:"company_id"`
	Category         string    `json:"category" db:"category"`
	MaxAmount        float64   `json:"max_amount" db:"max_amount"`
	RequiresReceipt  bool      `json:"requires_receipt" db:"requires_receipt"`
	AutoApproveLimit float64   `json:"auto_approve_limit,omitempty" db:"auto_approve_limit"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// BudgetLimit caps department spending per category
type BudgetLimit struct {
	ID           string    `json:"id" db:"id"`
	CompanyID    string    `json:"company_id" db:"company_id"`
	Department   string    `json:"department" db:"department"`
	Category     string    `json:"category" db:"category"`
	MonthlyLimit float64   `json:"monthly_limit" db:"monthly_limit"`
	YearlyLimit  float64   `json:"yearly_limit" db:"yearly_limit"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Notification is a best-effort message to a user
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Kind      NotificationKind `json:"type" db:"kind"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// UserPatch is the closed set of user fields an admin may update. Pointer
// fields distinguish "not provided" from zero values; unknown fields are
// rejected at the API boundary rather than silently applied.
type UserPatch struct {
	FullName   *string `json:"full_name,omitempty"`
	Role       *Role   `json:"role,omitempty"`
	ManagerID  *string `json:"manager_id,omitempty"`
	Department *string `json:"department,omitempty"`
	JobTitle   *string `json:"job_title,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

// ProfileFields returns a copy of the patch with the role, manager and
// active fields cleared. Self-service updates are restricted to profile
// fields; privilege-bearing fields require an admin.
func (p UserPatch) ProfileFields() UserPatch {
	p.Role = nil
	p.ManagerID = nil
	p.Active = nil
	return p
}

// Empty reports whether the patch carries no fields
func (p UserPatch) Empty() bool {
	return p.FullName == nil && p.Role == nil && p.ManagerID == nil &&
		p.Department == nil && p.JobTitle == nil && p.Phone == nil && p.Active == nil
}

// ExpenseStats aggregates a scope's expenses for dashboards
type ExpenseStats struct {
	TotalExpenses    int     `json:"total_expenses"`
	PendingExpenses  int     `json:"pending_expenses"`
	ApprovedExpenses int     `json:"approved_expenses"`
	RejectedExpenses int     `json:"rejected_expenses"`
	ApprovedAmount   float64 `json:"approved_amount"`
}

// Category describes one expense category in the company catalog
type Category struct {
	Name            string `json:"name" yaml:"name"`
	Label           string `json:"label" yaml:"label"`
	RequiresReceipt bool   `json:"requires_receipt" yaml:"requires_receipt"`
}
