package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", core.ErrUnauthorized)
	ErrUserExists         = fmt.Errorf("user already exists: %w", core.ErrConflict)
)

// RegisterInput is a sign-up request. Role defaults to user.
type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username" binding:"required,notblank"`
	Role     string `json:"role" binding:"omitempty,oneof=user admin"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Session is returned by Register and Login.
type Session struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

// Service registers and logs in users.
type Service struct {
	users  storage.UserRepository
	tokens *TokenIssuer
	now    func() time.Time
}

func NewService(users storage.UserRepository, tokens *TokenIssuer) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewUser validates in and returns a user with a hashed password, ready to
// store. It is shared with the create-user command.
func NewUser(in RegisterInput, now time.Time) (core.User, error) {
	email := core.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return core.User{}, &core.ValidationError{Field: "email", Err: errors.New("must be a valid email address")}
	}
	if in.Password == "" {
		return core.User{}, &core.ValidationError{Field: "password", Err: core.ErrRequired}
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return core.User{}, &core.ValidationError{Field: "username", Err: core.ErrRequired}
	}
	role, err := core.ParseRole(in.Role)
	if err != nil {
		return core.User{}, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return core.User{}, err
	}
	return core.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now.UTC(),
	}, nil
}

// Register creates the account and signs a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	u, err := NewUser(in, s.now())
	if err != nil {
		return Session{}, err
	}

	saved, err := s.users.CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, core.ErrConflict) {
			return Session{}, ErrUserExists
		}
		return Session{}, err
	}
	slog.InfoContext(ctx, "User registered", "user_id", saved.ID, "role", saved.Role)

	return s.session(saved)
}

// Login checks the password. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	u, err := s.users.GetUserByEmail(ctx, core.NormalizeEmail(in.Email))
	if err != nil {
		if core.IsNotFound(err) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !CheckPassword(u.PasswordHash, in.Password) {
		slog.WarnContext(ctx, "Login failed", "user_id", u.ID)
		return Session{}, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *Service) session(u core.User) (Session, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: u}, nil
}
