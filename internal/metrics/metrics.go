// Package metrics provides observability for the expense service
package metrics

import (
	"net/http"
	"time"
)

// Metrics records service-level measurements
type Metrics interface {
	// Authorization
	RecordAccessCheck(decision string, duration time.Duration)
	RecordAccessDenied(reason string)

	// Approval workflow
	RecordApprovalDecision(action string)
	RecordApprovalConflict()

	// Expense lifecycle
	RecordExpenseSubmitted(category string)
	RecordPolicyViolation(category string)

	// HTTP surface
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	IncActiveRequests()
	DecActiveRequests()

	// Scope cache
	RecordScopeCacheHit()
	RecordScopeCacheMiss()

	// HTTPHandler serves the Prometheus scrape endpoint
	HTTPHandler() http.Handler
}

// NoOp provides a no-op implementation for tests and disabled monitoring
type NoOp struct{}

// NewNoOp creates a no-op metrics instance
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (n *NoOp) RecordAccessCheck(string, time.Duration)              {}
func (n *NoOp) RecordAccessDenied(string)                            {}
func (n *NoOp) RecordApprovalDecision(string)                        {}
func (n *NoOp) RecordApprovalConflict()                              {}
func (n *NoOp) RecordExpenseSubmitted(string)                        {}
func (n *NoOp) RecordPolicyViolation(string)                         {}
func (n *NoOp) RecordHTTPRequest(string, string, int, time.Duration) {}
func (n *NoOp) IncActiveRequests()                                   {}
func (n *NoOp) DecActiveRequests()                                   {}
func (n *NoOp) RecordScopeCacheHit()                                 {}
func (n *NoOp) RecordScopeCacheMiss()                                {}

func (n *NoOp) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("# monitoring disabled\n"))
	})
}
