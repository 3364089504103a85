package service

import (
	"context"
	"errors"
	"strings"

	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository"
	"go-pos-checkout/pkg/jwt"
	"go-pos-checkout/pkg/validator"

	"github.com/google/uuid"
)

var (
	ErrCashierNotFound = errors.New("cashier not found")
	ErrCashierInactive = errors.New("cashier account is inactive")
	ErrSessionReplaced = errors.New("session expired (token issued elsewhere)")
)

type CashierService interface {
	ListActive(ctx context.Context) ([]model.Cashier, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Cashier, error)
	// Ensure returns the cashier with email, creating it when missing.
	Ensure(ctx context.Context, email, name, role string) (*model.Cashier, error)
	// IssueToken starts a new session and invalidates any earlier token.
	IssueToken(ctx context.Context, cashier *model.Cashier) (string, error)
	// Authenticate resolves a token to an active cashier and its claims.
	Authenticate(ctx context.Context, token string) (*model.Cashier, *jwt.Claims, error)
}

type cashierService struct {
	store  repository.Store
	tokens *jwt.Manager
}

func NewCashierService(store repository.Store, tokens *jwt.Manager) CashierService {
	return &cashierService{store: store, tokens: tokens}
}

func (s *cashierService) ListActive(ctx context.Context) ([]model.Cashier, error) {
	return s.store.Cashiers().FindActive(ctx)
}

func (s *cashierService) Get(ctx context.Context, id uuid.UUID) (*model.Cashier, error) {
	c, err := s.store.Cashiers().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCashierNotFound
	}
	return c, err
}

func (s *cashierService) Ensure(ctx context.Context, email, name, role string) (*model.Cashier, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.store.Cashiers().FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if role == "" {
		role = model.RoleCashier
	}
	cashier := &model.Cashier{Email: email, Name: name, Role: role, IsActive: true}
	if errs := validator.ValidateStruct(cashier); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	if err := s.store.Cashiers().Create(ctx, cashier); err != nil {
		return nil, err
	}
	return cashier, nil
}

func (s *cashierService) IssueToken(ctx context.Context, cashier *model.Cashier) (string, error) {
	if !cashier.IsActive {
		return "", ErrCashierInactive
	}
	version := uuid.New().String()
	if err := s.store.Cashiers().UpdateTokenVersion(ctx, cashier.ID, version); err != nil {
		return "", err
	}
	cashier.TokenVersion = version
	return s.tokens.GenerateToken(cashier.ID, cashier.Email, cashier.Name, cashier.Role, model.PrivilegesFor(cashier.Role), version)
}

func (s *cashierService) Authenticate(ctx context.Context, token string) (*model.Cashier, *jwt.Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, nil, err
	}
	cashier, err := s.store.Cashiers().FindByID(ctx, claims.CashierID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrCashierNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if !cashier.IsActive {
		return nil, nil, ErrCashierInactive
	}
	if cashier.TokenVersion != claims.TokenVersion {
		return nil, nil, ErrSessionReplaced
	}
	return cashier, claims, nil
}
