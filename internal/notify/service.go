// Package notify delivers in-app notifications for workflow events
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

// Service writes notifications to the store. Delivery is best effort:
// failures are logged and never propagated, a lost notification must not
// fail the workflow that produced it.
type Service struct {
	store  store.NotificationStore
	users  store.UserStore
	logger *zap.Logger
}

// NewService creates a notification service
func NewService(notifications store.NotificationStore, users store.UserStore, logger *zap.Logger) (*Service, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification store is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: notifications, users: users, logger: logger}, nil
}

// ExpenseDecided notifies the expense owner about an approval decision
func (s *Service) ExpenseDecided(ctx context.Context, e *types.Expense, entry types.ApprovalEntry) {
	kind := types.NotifyExpenseApproved
	title := "Expense Approved"
	verb := "approved"
	if entry.Action == types.ActionReject {
		kind = types.NotifyExpenseRejected
		title = "Expense Rejected"
		verb = "rejected"
	}

	msg := fmt.Sprintf("Your %s expense of %.2f %s was %s by %s",
		e.Category, e.Amount, e.Currency, verb, entry.ApproverName)
	if entry.Comment != "" {
		msg += ": " + entry.Comment
	}

	s.deliver(ctx, &types.Notification{
		ID:        uuid.NewString(),
		UserID:    e.EmployeeID,
		Title:     title,
		Message:   msg,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	})
}

// ExpenseSubmitted notifies the submitter's manager that a new expense
// awaits review. Submitters without a manager produce no notification.
func (s *Service) ExpenseSubmitted(ctx context.Context, e *types.Expense, submitter *types.User) {
	if submitter.ManagerID == "" {
		return
	}

	s.deliver(ctx, &types.Notification{
		ID:     uuid.NewString(),
		UserID: submitter.ManagerID,
		Title:  "Expense Pending Review",
		Message: fmt.Sprintf("%s submitted a %s expense of %.2f %s",
			submitter.FullName, e.Category, e.Amount, e.Currency),
		Kind:      types.NotifyExpenseSubmitted,
		CreatedAt: time.Now().UTC(),
	})
}

// PolicyViolation warns the submitter that their expense breaks a policy
func (s *Service) PolicyViolation(ctx context.Context, e *types.Expense, reason string) {
	s.deliver(ctx, &types.Notification{
		ID:     uuid.NewString(),
		UserID: e.EmployeeID,
		Title:  "Policy Violation",
		Message: fmt.Sprintf("Your %s expense of %.2f %s violates policy: %s",
			e.Category, e.Amount, e.Currency, reason),
		Kind:      types.NotifyPolicyViolation,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Service) deliver(ctx context.Context, n *types.Notification) {
	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("user_id", n.UserID),
			zap.String("kind", string(n.Kind)),
			zap.Error(err))
	}
}
