package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	id "registre/pkg/domain"
	dErrors "registre/pkg/domain-errors"
	"registre/pkg/platform/sentinel"
)

// TokenIssuer mints bearer tokens for the prototype login flow.
type TokenIssuer interface {
	GenerateToken(userID id.UserID) (string, error)
}

// Service resolves users and handles the prototype's email-only login.
type Service struct {
	users  UserStore
	tokens TokenIssuer
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(users UserStore, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{users: users, tokens: tokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetUser resolves a user id to its record.
func (s *Service) GetUser(ctx context.Context, userID id.UserID) (User, error) {
	if userID.IsNil() {
		return User{}, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return User{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// Login exchanges a directory email for a bearer token. The prototype accepts
// any password, so none is taken; the token only asserts identity and the
// role is re-read from the directory on every operation.
func (s *Service) Login(ctx context.Context, email string) (string, User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", User{}, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", User{}, dErrors.New(dErrors.CodeUnauthorized, "unknown email")
		}
		return "", User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return "", User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return token, user, nil
}

// ListUsers returns the provisioned directory (transfer target pickers).
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}
