// Package policy evaluates expenses against per-company spending rules and
// provides default rule loading with hot reload
package policy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

// Result is the outcome of evaluating one expense
type Result struct {
	// Violations lists every rule the expense breaks. An expense with
	// violations is still submitted; approvers see the reasons.
	Violations []string

	// AutoApprove is set when the expense falls under the category's
	// auto-approve limit and breaks no rule.
	AutoApprove bool
}

// Violated reports whether any rule was broken
func (r Result) Violated() bool {
	return len(r.Violations) > 0
}

// Reason joins the violations into one display string
func (r Result) Reason() string {
	if len(r.Violations) == 0 {
		return ""
	}
	reason := r.Violations[0]
	for _, v := range r.Violations[1:] {
		reason += "; " + v
	}
	return reason
}

// Engine evaluates expenses against the owning company's policies
type Engine struct {
	policies store.PolicyStore
	logger   *zap.Logger
}

// NewEngine creates a policy engine
func NewEngine(policies store.PolicyStore, logger *zap.Logger) (*Engine, error) {
	if policies == nil {
		return nil, fmt.Errorf("policy store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{policies: policies, logger: logger}, nil
}

// Evaluate checks an expense against the policies of its category. A
// company without policies for the category imposes no restrictions and
// never auto-approves.
func (e *Engine) Evaluate(ctx context.Context, companyID string, expense *types.Expense) (Result, error) {
	policies, err := e.policies.ListPoliciesByCategory(ctx, companyID, expense.Category)
	if err != nil {
		return Result{}, fmt.Errorf("list policies: %w", err)
	}
	if len(policies) == 0 {
		return Result{}, nil
	}

	var result Result
	autoApprove := false
	for _, p := range policies {
		if p.MaxAmount > 0 && expense.Amount > p.MaxAmount {
			result.Violations = append(result.Violations,
				fmt.Sprintf("amount %.2f exceeds the %s limit of %.2f", expense.Amount, p.Category, p.MaxAmount))
		}
		if p.RequiresReceipt && expense.ReceiptURL == "" {
			result.Violations = append(result.Violations,
				fmt.Sprintf("%s expenses require a receipt", p.Category))
		}
		if p.AutoApproveLimit > 0 && expense.Amount <= p.AutoApproveLimit {
			autoApprove = true
		}
	}

	// Auto-approval never applies to a violating expense.
	result.AutoApprove = autoApprove && !result.Violated()

	if result.Violated() {
		e.logger.Info("expense violates policy",
			zap.String("expense_id", expense.ID),
			zap.String("category", expense.Category),
			zap.Strings("violations", result.Violations))
	}
	return result, nil
}
