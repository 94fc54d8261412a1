package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expenseflow/go-core/internal/policy"
	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

// RegisterInput creates a new company together with its first admin
type RegisterInput struct {
	CompanyName string
	Currency    string
	Country     string
	Email       string
	Password    string
	FullName    string
}

// Session is the result of a successful registration or login
type Session struct {
	Token     string
	ExpiresIn time.Duration
	User      *types.User
}

// Service implements registration and login
type Service struct {
	store    store.Store
	tokens   *TokenService
	defaults *policy.Defaults
	logger   *zap.Logger
}

// NewService creates an authentication service
func NewService(st store.Store, tokens *TokenService, defaults *policy.Defaults, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, tokens: tokens, defaults: defaults, logger: logger}, nil
}

// Register creates a company and its admin account. The first user of a
// company is always an admin; every later account is created by an admin
// through user management.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if in.CompanyName == "" {
		return nil, fmt.Errorf("company name is required")
	}
	if in.Email == "" || in.FullName == "" {
		return nil, fmt.Errorf("email and full name are required")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	company := &types.Company{
		ID:        uuid.NewString(),
		Name:      in.CompanyName,
		Currency:  in.Currency,
		Country:   in.Country,
		CreatedAt: now,
	}
	if company.Currency == "" {
		company.Currency = "USD"
	}
	if err := s.store.CreateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}

	admin := &types.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         types.RoleAdmin,
		CompanyID:    company.ID,
		Active:       true,
		CreatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		return nil, err
	}

	if s.defaults != nil {
		if err := s.defaults.Seed(ctx, s.store, company.ID); err != nil {
			// The company is usable without default policies.
			s.logger.Warn("seeding default policies failed",
				zap.String("company_id", company.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("company registered",
		zap.String("company_id", company.ID),
		zap.String("admin_id", admin.ID))

	return s.newSession(admin)
}

// Login authenticates an email and password pair
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	return s.newSession(user)
}

func (s *Service) newSession(u *types.User) (*Session, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, ExpiresIn: s.tokens.TTL(), User: u}, nil
}
