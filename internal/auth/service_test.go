package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseflow/go-core/internal/policy"
	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

func newAuthService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	svc, err := NewService(m, testTokenService(t, 0), policy.NewDefaults(nil), nil)
	require.NoError(t, err)
	return svc, m
}

func TestRegister(t *testing.T) {
	svc, m := newAuthService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{
		CompanyName: "Acme Corp",
		Email:       "founder@acme.test",
		Password:    "Sup3rSecret",
		FullName:    "Fiona Founder",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, types.RoleAdmin, session.User.Role)

	company, err := m.GetCompany(ctx, session.User.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", company.Name)
	assert.Equal(t, "USD", company.Currency)

	// Default category policies are seeded for the new company.
	policies, err := m.ListPolicies(ctx, company.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, policies)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.test", Password: "Sup3rSecret", FullName: "A"})
	assert.Error(t, err)

	_, err = svc.Register(ctx, RegisterInput{CompanyName: "Acme", Email: "a@b.test", Password: "weak", FullName: "A"})
	assert.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	in := RegisterInput{CompanyName: "Acme", Email: "founder@acme.test", Password: "Sup3rSecret", FullName: "A"}
	_, err := svc.Register(ctx, in)
	require.NoError(t, err)

	in.CompanyName = "Globex"
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)
}

func TestLogin(t *testing.T) {
	svc, m := newAuthService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{
		CompanyName: "Acme", Email: "founder@acme.test", Password: "Sup3rSecret", FullName: "A",
	})
	require.NoError(t, err)

	got, err := svc.Login(ctx, "founder@acme.test", "Sup3rSecret")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, got.User.ID)

	// Email lookup is case insensitive.
	_, err = svc.Login(ctx, "FOUNDER@ACME.TEST", "Sup3rSecret")
	assert.NoError(t, err)

	_, err = svc.Login(ctx, "founder@acme.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown email yields the identical error as a wrong password.
	_, err = svc.Login(ctx, "nobody@acme.test", "Sup3rSecret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, m.DeactivateUser(ctx, session.User.ID))
	_, err = svc.Login(ctx, "founder@acme.test", "Sup3rSecret")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestMiddleware(t *testing.T) {
	svc, m := newAuthService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{
		CompanyName: "Acme", Email: "founder@acme.test", Password: "Sup3rSecret", FullName: "Fiona Founder",
	})
	require.NoError(t, err)

	mw, err := NewMiddleware(svc.tokens, m, nil)
	require.NoError(t, err)

	var gotPrincipal types.Principal
	var called bool
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal, _ = PrincipalFromContext(r.Context())
		called = true
	}))

	t.Run("valid token", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+session.Token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.True(t, called)
		assert.Equal(t, session.User.ID, gotPrincipal.ID)
		assert.Equal(t, types.RoleAdmin, gotPrincipal.Role)
		assert.Equal(t, session.User.CompanyID, gotPrincipal.CompanyID)
	})

	t.Run("missing header", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deactivated user", func(t *testing.T) {
		require.NoError(t, m.DeactivateUser(ctx, session.User.ID))
		called = false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+session.Token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// A role change takes effect on the very next request: the middleware
// rebuilds the principal from the stored user, not from token claims.
func TestMiddlewareReflectsRoleChange(t *testing.T) {
	svc, m := newAuthService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{
		CompanyName: "Acme", Email: "founder@acme.test", Password: "Sup3rSecret", FullName: "A",
	})
	require.NoError(t, err)

	demoted := types.RoleEmployee
	_, err = m.UpdateUser(ctx, session.User.ID, types.UserPatch{Role: &demoted})
	require.NoError(t, err)

	mw, err := NewMiddleware(svc.tokens, m, nil)
	require.NoError(t, err)

	var gotPrincipal types.Principal
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal, _ = PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, types.RoleEmployee, gotPrincipal.Role)
}
