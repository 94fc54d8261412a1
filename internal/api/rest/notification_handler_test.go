package rest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseflow/go-core/pkg/types"
)

func (e *testEnv) seedNotification(t *testing.T, id, userID string) {
	t.Helper()
	require.NoError(t, e.store.CreateNotification(context.Background(), &types.Notification{
		ID:        id,
		UserID:    userID,
		Title:     "Test",
		Message:   "test notification",
		Kind:      types.NotifyExpenseSubmitted,
		CreatedAt: time.Now().UTC(),
	}))
}

func TestListNotifications(t *testing.T) {
	e := newTestEnv(t)
	users := seedAcme(t, e)

	e.seedNotification(t, "n1", "emp1")
	e.seedNotification(t, "n2", "emp1")
	e.seedNotification(t, "n3", "emp2")

	rec := e.do(t, "GET", "/api/notifications", e.token(t, users["emp1"]), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]types.Notification](t, rec)
	assert.Len(t, list, 2)
	for _, n := range list {
		assert.Equal(t, "emp1", n.UserID)
	}

	// Admins see their own notifications, not everyone's.
	rec = e.do(t, "GET", "/api/notifications", e.token(t, users["admin1"]), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]types.Notification](t, rec))

	// Limit applies.
	rec = e.do(t, "GET", "/api/notifications?limit=1", e.token(t, users["emp1"]), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Notification](t, rec), 1)

	rec = e.do(t, "GET", "/api/notifications?limit=-1", e.token(t, users["emp1"]), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkNotificationRead(t *testing.T) {
	e := newTestEnv(t)
	users := seedAcme(t, e)
	e.seedNotification(t, "n1", "emp1")

	// Another user's notification reads as missing.
	rec := e.do(t, "POST", "/api/notifications/n1/read", e.token(t, users["emp2"]), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, "POST", "/api/notifications/n1/read", e.token(t, users["emp1"]), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	list, err := e.store.ListNotifications(context.Background(), "emp1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)
}

func TestDashboardStats(t *testing.T) {
	e := newTestEnv(t)
	users := seedAcme(t, e)

	e.seedExpense(t, "x1", "emp1", 100, types.StatusApproved)
	e.seedExpense(t, "x2", "emp1", 50, types.StatusPending)
	e.seedExpense(t, "x3", "emp2", 200, types.StatusApproved)
	e.seedExpense(t, "x4", "admin1", 75, types.StatusRejected)
	e.seedExpense(t, "x5", "xemp", 999, types.StatusApproved)

	// Admin: company-wide aggregates, globex excluded.
	rec := e.do(t, "GET", "/api/dashboard/stats", e.token(t, users["admin1"]), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decodeBody[DashboardResponse](t, rec)
	assert.Equal(t, 4, dash.Stats.TotalExpenses)
	assert.Equal(t, 2, dash.Stats.ApprovedExpenses)
	assert.Equal(t, 1, dash.Stats.PendingExpenses)
	assert.Equal(t, 1, dash.Stats.RejectedExpenses)
	assert.Equal(t, 300.0, dash.Stats.ApprovedAmount)
	assert.Equal(t, "USD", dash.Currency)
	assert.Equal(t, 300.0, dash.ApprovedAmountUSD)

	// Employee: own expenses only.
	rec = e.do(t, "GET", "/api/dashboard/stats", e.token(t, users["emp1"]), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash = decodeBody[DashboardResponse](t, rec)
	assert.Equal(t, 2, dash.Stats.TotalExpenses)
	assert.Equal(t, 100.0, dash.Stats.ApprovedAmount)

	// Manager: self plus reports.
	rec = e.do(t, "GET", "/api/dashboard/stats", e.token(t, users["mgr1"]), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash = decodeBody[DashboardResponse](t, rec)
	assert.Equal(t, 3, dash.Stats.TotalExpenses)
}

func TestCategories(t *testing.T) {
	e := newTestEnv(t)
	users := seedAcme(t, e)

	rec := e.do(t, "GET", "/api/categories", e.token(t, users["emp1"]), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	categories := decodeBody[[]types.Category](t, rec)
	require.NotEmpty(t, categories)

	names := make(map[string]bool)
	for _, c := range categories {
		names[c.Name] = true
	}
	assert.True(t, names["travel"])
	assert.True(t, names["other"])
}
