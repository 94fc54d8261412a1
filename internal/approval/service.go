// Package approval implements the expense approval workflow
package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/expenseflow/go-core/internal/authz"
	"github.com/expenseflow/go-core/internal/guard"
	"github.com/expenseflow/go-core/internal/scope"
	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

// InvalidStateError is returned when an expense is not pending. Current
// carries the status the expense actually had, so the caller can report
// "already approved" rather than a bare failure.
type InvalidStateError struct {
	Current types.ExpenseStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("expense is not pending (current status: %s)", e.Current)
}

// Notifier receives the outcome of a decision. Delivery is best effort;
// the decision has already committed when it is called.
type Notifier interface {
	ExpenseDecided(ctx context.Context, e *types.Expense, entry types.ApprovalEntry)
}

// Service coordinates approval decisions. It never mutates status
// directly; the store's conditional update is the single point where a
// transition commits, so concurrent deciders resolve to one winner.
type Service struct {
	store    store.Store
	scopes   *scope.Resolver
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates an approval service
func NewService(st store.Store, scopes *scope.Resolver, notifier Notifier, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if scopes == nil {
		return nil, fmt.Errorf("scope resolver is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    st,
		scopes:   scopes,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// Decide applies an approve or reject decision to a pending expense.
// Preconditions run in order: role, then company and scope, then
// self-approval, then pending status. The first failure wins, so a caller
// without the role learns nothing about the expense.
func (s *Service) Decide(ctx context.Context, p types.Principal, expenseID string, action types.ApprovalAction, comment string) (*types.Expense, error) {
	if !authz.CanPerform(p.Role, authz.ActionApproveExpense) {
		return nil, authz.ErrRoleForbidden
	}

	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	owner, err := s.store.GetUser(ctx, expense.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("load expense owner: %w", err)
	}

	set, err := s.scopes.AccessibleUserIDs(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}
	if err := guard.CheckApproval(p, owner, set); err != nil {
		return nil, err
	}

	if expense.Status != types.StatusPending {
		return nil, &InvalidStateError{Current: expense.Status}
	}

	entry := types.ApprovalEntry{
		ApproverID:   p.ID,
		ApproverName: p.Name,
		Action:       action,
		Comment:      comment,
		Timestamp:    time.Now().UTC(),
	}

	updated, err := s.store.UpdateExpenseStatusIf(ctx, expense.ID, types.StatusPending, action.ResultingStatus(), entry)
	if errors.Is(err, store.ErrStaleStatus) {
		// Another decider won the race. Report the status they set.
		current, gerr := s.store.GetExpense(ctx, expense.ID)
		if gerr != nil {
			return nil, err
		}
		return nil, &InvalidStateError{Current: current.Status}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense decided",
		zap.String("expense_id", updated.ID),
		zap.String("approver_id", p.ID),
		zap.String("action", string(action)),
		zap.String("status", string(updated.Status)))

	if s.notifier != nil {
		s.notifier.ExpenseDecided(ctx, updated, entry)
	}
	return updated, nil
}

// ListPending returns the pending expenses the principal may decide on:
// everything in scope except the principal's own submissions.
func (s *Service) ListPending(ctx context.Context, p types.Principal) ([]*types.Expense, error) {
	if !authz.CanPerform(p.Role, authz.ActionApproveExpense) {
		return nil, authz.ErrRoleForbidden
	}

	set, err := s.scopes.AccessibleUserIDs(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		if id != p.ID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pending := types.StatusPending
	return s.store.ListExpenses(ctx, store.ExpenseFilter{
		EmployeeIDs: ids,
		Status:      &pending,
	})
}
