package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/repositories"
)

const (
	adminIDPrefix     = "adm_"
	minPasswordLength = 8
)

var (
	// ErrAccountInvalidInput signals the caller provided invalid data.
	ErrAccountInvalidInput = errors.New("account: invalid input")
	// ErrAccountNotFound indicates the admin account could not be located.
	ErrAccountNotFound = errors.New("account: not found")
	// ErrAccountConflict indicates the email address is already registered.
	ErrAccountConflict = errors.New("account: conflict")
	// ErrAccountInvalidCredentials indicates the email/password pair did not match.
	ErrAccountInvalidCredentials = errors.New("account: invalid credentials")
	// ErrAccountDisabled indicates the account exists but may not sign in.
	ErrAccountDisabled = errors.New("account: disabled")
)

// TokenIssuer mints signed bearer tokens for authenticated admins.
type TokenIssuer interface {
	Issue(admin domain.Admin, now time.Time) (token string, expiresAt time.Time, err error)
}

// AccountServiceDeps bundles collaborators required to construct the account service.
type AccountServiceDeps struct {
	Admins      repositories.AdminRepository
	Tokens      TokenIssuer
	Clock       func() time.Time
	IDGenerator func() string
	BcryptCost  int
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type accountService struct {
	admins     repositories.AdminRepository
	tokens     TokenIssuer
	clock      func() time.Time
	newID      func() string
	bcryptCost int
	logger     func(context.Context, string, map[string]any)
}

// NewAccountService wires dependencies into a concrete AccountService implementation.
func NewAccountService(deps AccountServiceDeps) (AccountService, error) {
	if deps.Admins == nil {
		return nil, errors.New("account service: admin repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("account service: token issuer is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	cost := deps.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &accountService{
		admins: deps.Admins,
		tokens: deps.Tokens,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:      idGen,
		bcryptCost: cost,
		logger:     logger,
	}, nil
}

func (s *accountService) Signup(ctx context.Context, cmd SignupCommand) (Admin, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" || !strings.Contains(email, "@") {
		return Admin{}, fmt.Errorf("%w: a valid email is required", ErrAccountInvalidInput)
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Admin{}, fmt.Errorf("%w: name is required", ErrAccountInvalidInput)
	}
	if len(cmd.Password) < minPasswordLength {
		return Admin{}, fmt.Errorf("%w: password must be at least %d characters", ErrAccountInvalidInput, minPasswordLength)
	}

	role := cmd.Role
	if role == "" {
		role = domain.AdminRoleOperator
	}
	if role != domain.AdminRoleAdmin && role != domain.AdminRoleOperator {
		return Admin{}, fmt.Errorf("%w: unknown role %q", ErrAccountInvalidInput, cmd.Role)
	}

	if _, err := s.admins.FindByEmail(ctx, email); err == nil {
		return Admin{}, fmt.Errorf("%w: email %s is already registered", ErrAccountConflict, email)
	} else if mapped := s.mapRepositoryError(err); !errors.Is(mapped, ErrAccountNotFound) {
		return Admin{}, mapped
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.bcryptCost)
	if err != nil {
		return Admin{}, fmt.Errorf("account: hash password: %w", err)
	}

	now := s.clock()
	admin := Admin{
		ID:           adminIDPrefix + s.newID(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.admins.Insert(ctx, admin); err != nil {
		return Admin{}, s.mapRepositoryError(err)
	}
	return admin, nil
}

func (s *accountService) Login(ctx context.Context, cmd LoginCommand) (LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" || cmd.Password == "" {
		return LoginResult{}, fmt.Errorf("%w: email and password are required", ErrAccountInvalidInput)
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if mapped := s.mapRepositoryError(err); errors.Is(mapped, ErrAccountNotFound) {
			return LoginResult{}, ErrAccountInvalidCredentials
		} else {
			return LoginResult{}, mapped
		}
	}
	if admin.Disabled {
		return LoginResult{}, ErrAccountDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(cmd.Password)); err != nil {
		return LoginResult{}, ErrAccountInvalidCredentials
	}

	now := s.clock()
	token, expiresAt, err := s.tokens.Issue(admin, now)
	if err != nil {
		return LoginResult{}, fmt.Errorf("account: issue token: %w", err)
	}

	admin.LastLoginAt = &now
	admin.UpdatedAt = now
	if err := s.admins.Update(ctx, admin); err != nil {
		// Login still succeeds when the last-login stamp cannot be written.
		s.logger(ctx, "account.last_login.update.failed", map[string]any{
			"admin": admin.ID,
			"error": err.Error(),
		})
	}

	return LoginResult{Admin: admin, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *accountService) GetAdmin(ctx context.Context, adminID string) (Admin, error) {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return Admin{}, fmt.Errorf("%w: admin id is required", ErrAccountInvalidInput)
	}

	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		return Admin{}, s.mapRepositoryError(err)
	}
	return admin, nil
}

func (s *accountService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrAccountNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrAccountConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("account: repository unavailable: %w", err)
		}
	}

	return err
}
