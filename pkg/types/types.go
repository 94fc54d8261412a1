// Package types provides shared types for the expense management service
package types

import (
	"fmt"
)

// Role represents a user's role within a company
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// ParseRole parses a role string into a Role. Unknown strings are rejected
// so that invalid roles are unrepresentable past the parsing boundary.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleEmployee:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// CanManage reports whether the role may have direct reports
func (r Role) CanManage() bool {
	return r == RoleAdmin || r == RoleManager
}

// ExpenseStatus represents the lifecycle state of an expense
type ExpenseStatus string

const (
	StatusPending  ExpenseStatus = "pending"
	StatusApproved ExpenseStatus = "approved"
	StatusRejected ExpenseStatus = "rejected"
	// StatusReimbursed is a downstream state set by the reimbursement flow;
	// no transition into it is performed by this service.
	StatusReimbursed ExpenseStatus = "reimbursed"
)

// ParseExpenseStatus parses an expense status string
func ParseExpenseStatus(s string) (ExpenseStatus, error) {
	switch ExpenseStatus(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusReimbursed:
		return ExpenseStatus(s), nil
	}
	return "", fmt.Errorf("unknown expense status: %q", s)
}

// Terminal reports whether no approval transition may leave this status
func (s ExpenseStatus) Terminal() bool {
	return s != StatusPending
}

// ApprovalAction represents an approver's decision on a pending expense
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "approve"
	ActionReject  ApprovalAction = "reject"
)

// ParseApprovalAction parses an approval action string
func ParseApprovalAction(s string) (ApprovalAction, error) {
	switch ApprovalAction(s) {
	case ActionApprove, ActionReject:
		return ApprovalAction(s), nil
	}
	return "", fmt.Errorf("unknown approval action: %q", s)
}

// ResultingStatus returns the expense status this action transitions to
func (a ApprovalAction) ResultingStatus() ExpenseStatus {
	if a == ActionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// NotificationKind categorizes a notification
type NotificationKind string

const (
	NotifyExpenseSubmitted NotificationKind = "expense_submitted"
	NotifyExpenseApproved  NotificationKind = "expense_approved"
	NotifyExpenseRejected  NotificationKind = "expense_rejected"
	NotifyPolicyViolation  NotificationKind = "policy_violation"
)

// Principal is the identity snapshot of an authenticated actor. It is
// produced once per request from the token claims plus the user record and
// trusted for the duration of that request.
type Principal struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	CompanyID string `json:"company_id"`
	ManagerID string `json:"manager_id,omitempty"`
}

// IsAdmin reports whether the principal holds the admin role
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// UserIDSet is a set of user ids computed by the scope resolver for one
// request. It is derived, never persisted.
type UserIDSet map[string]struct{}

// NewUserIDSet builds a set from the given ids
func NewUserIDSet(ids ...string) UserIDSet {
	s := make(UserIDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set
func (s UserIDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the set members as a slice (unordered)
func (s UserIDSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}
