package rest

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/expenseflow/go-core/internal/auth"
	"github.com/expenseflow/go-core/internal/store"
)

// currencyByCountry maps country codes to their currency. Registration
// falls back to USD for countries not listed here.
var currencyByCountry = map[string]string{
	"US": "USD",
	"CA": "CAD",
	"GB": "GBP",
	"AU": "AUD",
	"JP": "JPY",
	"IN": "INR",
	"CH": "CHF",
	"DE": "EUR",
	"FR": "EUR",
	"ES": "EUR",
	"IT": "EUR",
	"NL": "EUR",
}

// registerHandler handles POST /api/auth/register. The first user of a
// company registers it and becomes its admin.
func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyName == "" || req.Email == "" || req.FullName == "" {
		WriteError(w, http.StatusBadRequest, "company_name, email and full_name are required")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = currencyByCountry[strings.ToUpper(req.Country)]
	}

	session, err := s.deps.Auth.Register(r.Context(), auth.RegisterInput{
		CompanyName: req.CompanyName,
		Currency:    currency,
		Country:     req.Country,
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("registration failed", zap.Error(err))
		writeDomainError(w, err)
		return
	}

	s.deps.Audit.LogUserChange(*session.User.Principal(), "register", session.User.ID,
		map[string]interface{}{"company_id": session.User.CompanyID})

	WriteJSON(w, http.StatusCreated, SessionResponse{
		Token:     session.Token,
		ExpiresIn: int64(session.ExpiresIn.Seconds()),
		User:      FromUser(session.User),
	})
}

// loginHandler handles POST /api/auth/login
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	session, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.deps.Audit.LogLogin(req.Email, "", false)
		writeDomainError(w, err)
		return
	}

	s.deps.Audit.LogLogin(req.Email, session.User.ID, true)

	WriteJSON(w, http.StatusOK, SessionResponse{
		Token:     session.Token,
		ExpiresIn: int64(session.ExpiresIn.Seconds()),
		User:      FromUser(session.User),
	})
}

// meHandler handles GET /api/auth/me
func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	user, err := s.deps.Store.GetUser(r.Context(), p.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, FromUser(user))
}
