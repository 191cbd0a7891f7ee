package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/domain/entity"
)

// TokenIssuer mints an access token for an authenticated user. Implemented by
// the JWT manager in the infrastructure layer.
type TokenIssuer interface {
	GenerateToken(user *entity.User) (string, error)
}

// LoginResult is the outcome of a successful login
type LoginResult struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

// AuthService authenticates users at the boundary. The workflow core never
// sees credentials; it only ever receives the resolved actor.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

type authServiceImpl struct {
	userRepo port.UserRepository
	tokens   TokenIssuer
	logger   Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo port.UserRepository, tokens TokenIssuer, logger Logger) AuthService {
	return &authServiceImpl{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

// Login verifies the credentials and issues an access token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.Active {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		s.logger.Error("Failed to issue token", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "role", user.Role.String())
	return &LoginResult{Token: token, User: user}, nil
}
