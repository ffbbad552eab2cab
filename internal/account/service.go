// Package account handles registration, login and profile changes.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/logger"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/store"
)

const (
	minName     = 2
	maxName     = 50
	minPassword = 6
)

// Service manages user accounts.
type Service struct {
	store store.UserRepository
	now   func() time.Time
	newID func() string
	cost  int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides user id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithHashCost sets the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService creates an account service.
func NewService(users store.UserRepository, opts ...Option) *Service {
	s := &Service{store: users, now: time.Now, newID: uuid.NewString, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfilePatch is a partial profile update.
type ProfilePatch struct {
	Name   model.Field[string] `json:"name,omitzero"`
	Email  model.Field[string] `json:"email,omitzero"`
	Avatar model.Field[string] `json:"avatar,omitzero"`
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n < minName || n > maxName {
		return "", apperr.Validationf("name must be between %d and %d characters", minName, maxName)
	}
	return name, nil
}

func normalizeEmail(email string) (string, error) {
	email = model.NormalizeEmail(email)
	if !model.ValidEmail(email) {
		return "", apperr.Validation("please provide a valid email")
	}
	return email, nil
}

// ValidatePassword requires at least six characters with an uppercase
// letter, a lowercase letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < minPassword {
		return apperr.Validationf("password must be at least %d characters", minPassword)
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return apperr.Validation("password must contain at least one uppercase letter, one lowercase letter, and one number")
	}
	return nil
}

// Register creates an active account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return model.User{}, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return model.User{}, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return model.User{}, err
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return model.User{}, apperr.Conflict(apperr.CodeEmailTaken, "user already exists with this email")
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.User{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	u := model.User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Active:       true,
		ProjectIDs:   []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.User{}, apperr.Conflict(apperr.CodeEmailTaken, "user already exists with this email")
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	logger.Info("User registered", logger.F("user", u.ID))
	return u, nil
}

func badCredentials() error {
	return apperr.New(apperr.KindUnauthorized, apperr.CodeBadCredentials, "invalid email or password")
}

// Login checks email and password and returns the active account.
func (s *Service) Login(ctx context.Context, email, password string) (model.User, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return model.User{}, apperr.Validation("email and password are required")
	}
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, badCredentials()
	}
	if err != nil {
		return model.User{}, fmt.Errorf("lookup email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		logger.Warn("Failed login", logger.F("user", u.ID))
		return model.User{}, badCredentials()
	}
	if !u.Active {
		return model.User{}, apperr.New(apperr.KindUnauthorized, apperr.CodeAccountInactive, "account is deactivated")
	}
	return u, nil
}

// Active returns the account of userID if it exists and is active.
func (s *Service) Active(ctx context.Context, userID string) (model.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, apperr.New(apperr.KindUnauthorized, apperr.CodeUnauthorized, "user not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	if !u.Active {
		return model.User{}, apperr.New(apperr.KindUnauthorized, apperr.CodeAccountInactive, "account is deactivated")
	}
	return u, nil
}

// UpdateProfile changes name, email or avatar. A new email must not belong
// to another account.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (model.User, error) {
	u, err := s.Active(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if v, ok := patch.Name.Get(); ok {
		if u.Name, err = normalizeName(v); err != nil {
			return model.User{}, err
		}
	}
	if v, ok := patch.Email.Get(); ok {
		email, err := normalizeEmail(v)
		if err != nil {
			return model.User{}, err
		}
		if email != u.Email {
			other, err := s.store.GetUserByEmail(ctx, email)
			if err == nil && other.ID != u.ID {
				return model.User{}, apperr.Conflict(apperr.CodeEmailTaken, "email is already taken")
			}
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return model.User{}, fmt.Errorf("lookup email: %w", err)
			}
		}
		u.Email = email
	}
	if v, ok := patch.Avatar.Get(); ok {
		u.Avatar = strings.TrimSpace(v)
	}

	u.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.User{}, apperr.Conflict(apperr.CodeEmailTaken, "email is already taken")
		}
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" {
		return apperr.Validation("current password is required")
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}
	u, err := s.Active(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return apperr.New(apperr.KindValidation, apperr.CodeBadCredentials, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	logger.Info("Password changed", logger.F("user", u.ID))
	return nil
}

// Deactivate marks the account inactive. Accounts are never deleted.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	u, err := s.Active(ctx, userID)
	if err != nil {
		return err
	}
	u.Active = false
	u.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	logger.Info("Account deactivated", logger.F("user", u.ID))
	return nil
}
