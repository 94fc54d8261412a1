// Package rest provides the HTTP API for the expense service
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/expenseflow/go-core/internal/approval"
	"github.com/expenseflow/go-core/internal/auth"
	"github.com/expenseflow/go-core/internal/authz"
	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RegisterRequest creates a company together with its first admin
type RegisterRequest struct {
	CompanyName string `json:"company_name"`
	Currency    string `json:"currency,omitempty"`
	Country     string `json:"country,omitempty"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by register and login
type SessionResponse struct {
	Token     string        `json:"token"`
	ExpiresIn int64         `json:"expires_in"` // seconds
	User      *UserResponse `json:"user"`
}

// UserResponse is the API view of a user. The password hash never leaves
// the store layer.
type UserResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	CompanyID  string    `json:"company_id"`
	ManagerID  string    `json:"manager_id,omitempty"`
	Department string    `json:"department,omitempty"`
	JobTitle   string    `json:"job_title,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromUser converts a user record to its API view
func FromUser(u *types.User) *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       string(u.Role),
		CompanyID:  u.CompanyID,
		ManagerID:  u.ManagerID,
		Department: u.Department,
		JobTitle:   u.JobTitle,
		Phone:      u.Phone,
		Active:     u.Active,
		CreatedAt:  u.CreatedAt,
	}
}

// UserListResponse represents a list of users
type UserListResponse struct {
	Users []*UserResponse `json:"users"`
	Total int             `json:"total"`
}

// CreateUserRequest creates a user within the caller's company
type CreateUserRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	ManagerID  string `json:"manager_id,omitempty"`
	Department string `json:"department,omitempty"`
	JobTitle   string `json:"job_title,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// CreateExpenseRequest submits an expense for the authenticated user
type CreateExpenseRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date,omitempty"` // RFC 3339 or 2006-01-02
	ReceiptURL  string  `json:"receipt_url,omitempty"`
}

// ExpenseListResponse represents a list of expenses
type ExpenseListResponse struct {
	Expenses []*types.Expense `json:"expenses"`
	Total    int              `json:"total"`
}

// ApprovalRequest decides on a pending expense
type ApprovalRequest struct {
	Action  string `json:"action"` // approve or reject
	Comment string `json:"comment,omitempty"`
}

// PolicyRequest creates or updates an expense policy
type PolicyRequest struct {
	Category         string  `json:"category"`
	MaxAmount        float64 `json:"max_amount"`
	RequiresReceipt  bool    `json:"requires_receipt"`
	AutoApproveLimit float64 `json:"auto_approve_limit,omitempty"`
}

// BudgetRequest creates a budget limit
type BudgetRequest struct {
	Department   string  `json:"department"`
	Category     string  `json:"category"`
	MonthlyLimit float64 `json:"monthly_limit"`
	YearlyLimit  float64 `json:"yearly_limit,omitempty"`
}

// DashboardResponse aggregates the caller's visible expenses
type DashboardResponse struct {
	Stats             *types.ExpenseStats `json:"stats"`
	Currency          string              `json:"currency"`
	ApprovedAmountUSD float64             `json:"approved_amount_usd"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse represents service status
type StatusResponse struct {
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// writeDomainError maps service errors to HTTP status codes. Cross-company
// resources surface as 404 at the guard layer, so the mapping here never
// needs to mask anything itself.
func writeDomainError(w http.ResponseWriter, err error) {
	var stateErr *approval.InvalidStateError
	switch {
	case errors.Is(err, authz.ErrRoleForbidden),
		errors.Is(err, authz.ErrScopeForbidden),
		errors.Is(err, authz.ErrSelfApproval):
		WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not found")
	case errors.As(err, &stateErr):
		WriteError(w, http.StatusConflict, stateErr.Error())
	case errors.Is(err, store.ErrDuplicateEmail):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrAccountDisabled):
		WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes a request body, rejecting unknown fields
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
