package authz

import "errors"

var (
	// ErrRoleForbidden is returned when the action is not permitted for the
	// principal's role
	ErrRoleForbidden = errors.New("action not permitted for role")

	// ErrScopeForbidden is returned when the target resource is outside the
	// principal's company or hierarchy scope
	ErrScopeForbidden = errors.New("resource outside principal scope")

	// ErrSelfApproval is returned when an approver attempts to decide their
	// own expense
	ErrSelfApproval = errors.New("approvers cannot decide their own expenses")
)
