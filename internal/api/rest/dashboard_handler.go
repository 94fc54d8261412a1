package rest

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/expenseflow/go-core/internal/auth"
	"github.com/expenseflow/go-core/pkg/types"
)

// defaultCategories is the static category catalog. Spending rules per
// category live in expense policies; this only drives the client picker.
var defaultCategories = []types.Category{
	{Name: "travel", Label: "Travel", RequiresReceipt: true},
	{Name: "meals", Label: "Meals & Entertainment", RequiresReceipt: true},
	{Name: "office_supplies", Label: "Office Supplies", RequiresReceipt: false},
	{Name: "software", Label: "Software & Subscriptions", RequiresReceipt: true},
	{Name: "other", Label: "Other", RequiresReceipt: false},
}

// dashboardStatsHandler handles GET /api/dashboard/stats. Aggregates run
// over the caller's scope set, so an admin sees company totals and an
// employee only their own.
func (s *Server) dashboardStatsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	set, err := s.deps.Scopes.AccessibleUserIDs(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	stats, err := s.deps.Store.ExpenseStats(r.Context(), set.IDs())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	currency := "USD"
	if company, err := s.deps.Store.GetCompany(r.Context(), p.CompanyID); err == nil {
		currency = company.Currency
	}

	approvedUSD := stats.ApprovedAmount
	if s.deps.Rates != nil && currency != "USD" {
		converted, err := s.deps.Rates.Convert(r.Context(), stats.ApprovedAmount, currency, "USD")
		if err == nil {
			approvedUSD = converted
		} else {
			s.logger.Warn("rate conversion failed", zap.Error(err))
		}
	}

	WriteJSON(w, http.StatusOK, DashboardResponse{
		Stats:             stats,
		Currency:          currency,
		ApprovedAmountUSD: approvedUSD,
	})
}

// categoriesHandler handles GET /api/categories
func (s *Server) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, defaultCategories)
}
