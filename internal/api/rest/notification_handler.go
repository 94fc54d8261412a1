package rest

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/expenseflow/go-core/internal/auth"
	"github.com/expenseflow/go-core/pkg/types"
)

const defaultNotificationLimit = 50

// listNotificationsHandler handles GET /api/notifications. Users only
// ever see their own notifications.
func (s *Server) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	limit := defaultNotificationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	notifications, err := s.deps.Store.ListNotifications(r.Context(), p.ID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if notifications == nil {
		notifications = []*types.Notification{}
	}
	WriteJSON(w, http.StatusOK, notifications)
}

// markNotificationReadHandler handles POST /api/notifications/{id}/read.
// The store only flips notifications owned by the caller, so another
// user's notification reads as missing.
func (s *Server) markNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	id := mux.Vars(r)["id"]

	if err := s.deps.Store.MarkNotificationRead(r.Context(), id, p.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
