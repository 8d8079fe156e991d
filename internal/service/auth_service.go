package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bagumbayan/brgydocs/internal/auth"
	"github.com/bagumbayan/brgydocs/internal/models"
	"github.com/bagumbayan/brgydocs/internal/repository"
	"github.com/bagumbayan/brgydocs/internal/validate"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// RegistrationError carries the per-field messages of a rejected registration.
type RegistrationError struct {
	Fields validate.FieldErrors
}

func (e *RegistrationError) Error() string {
	return "registration rejected: " + e.Fields.First()
}

type AuthService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, logger: logger}
}

// Register creates a resident account. Rule violations are returned as a
// *RegistrationError.
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	exists := false
	if username != "" {
		var err error
		if exists, err = s.users.Exists(ctx, username); err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
	}
	if errs := validate.Registration(username, password, exists); !errs.OK() {
		return nil, &RegistrationError{Fields: errs}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleResident,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &RegistrationError{Fields: validate.FieldErrors{"username": "Username already exists"}}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("username", username))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SeedAdmin creates the administrator account if it does not exist yet.
// The account bypasses the registration rules, which reserve its name.
func (s *AuthService) SeedAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	exists, err := s.users.Exists(ctx, username)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	err = s.users.Create(ctx, &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("create admin: %w", err)
	}
	s.logger.InfoContext(ctx, "admin account seeded", slog.String("username", username))
	return nil
}
