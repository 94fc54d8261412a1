// Package audit provides append-only audit logging for authorization
// decisions and account changes
package audit

import "time"

// EventType represents the type of audit event
type EventType string

const (
	EventTypeAccessDecision   EventType = "access_decision"
	EventTypeApprovalDecision EventType = "approval_decision"
	EventTypeUserChange       EventType = "user_change"
	EventTypeLogin            EventType = "login"
	EventTypeSystemStartup    EventType = "system_startup"
	EventTypeSystemShutdown   EventType = "system_shutdown"
)

// Decision is the outcome of an authorization check
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// Actor identifies who performed the audited action
type Actor struct {
	ID        string `json:"id"`
	Role      string `json:"role,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
}

// Event is one audit record. Deny events carry the reason so a review can
// distinguish a role denial from a scope denial.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	EventID   string                 `json:"event_id"`
	RequestID string                 `json:"request_id,omitempty"`
	Actor     Actor                  `json:"actor,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Resource  string                 `json:"resource,omitempty"`
	Decision  Decision               `json:"decision,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
