// Package auth handles accounts, session tokens and company scoping.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/repository"
	"github.com/rpattn/esgdash/pkg/validator"
)

const (
	loginAttempts   = 3
	loginRetryDelay = time.Second
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// RegisterInput is the payload of an account registration.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Company  string `json:"company" validate:"required"`
}

// LoginInput is the payload of a login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned by a successful login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

// Service registers accounts and opens sessions.
type Service struct {
	users      repository.UserRepository
	tokens     *Tokens
	attempts   int
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     logrus.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithRetry overrides the login lookup attempts and delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.attempts = attempts
		}
		s.retryDelay = delay
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires the auth service.
func NewService(users repository.UserRepository, tokens *Tokens, opts ...Option) *Service {
	s := &Service{
		users:      users,
		tokens:     tokens,
		attempts:   loginAttempts,
		retryDelay: loginRetryDelay,
		sleep:      sleepContext,
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tokens exposes the token issuer for the session middleware.
func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// Register hashes the password and stores the account.
func (s *Service) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	input.Email = domain.NormalizeEmail(input.Email)
	input.Company = strings.TrimSpace(input.Company)
	if err := validator.Struct(input); err != nil {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, domain.NewUser(input.Email, string(hash), input.Company))
	if err != nil {
		return domain.User{}, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "company": user.Company}).Info("user registered")
	return user, nil
}

// Login checks the password and issues a session token.
func (s *Service) Login(ctx context.Context, input LoginInput) (Session, error) {
	input.Email = domain.NormalizeEmail(input.Email)
	if err := validator.Struct(input); err != nil {
		return Session{}, err
	}

	user, err := s.lookup(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(user.ID, user.Email, user.Company)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// lookup retries transient repository failures. A missing user is final.
func (s *Service) lookup(ctx context.Context, email string) (domain.User, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		user, err := s.users.GetByEmail(ctx, email)
		if err == nil {
			return user, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, err
		}
		lastErr = err

		if attempt == s.attempts {
			break
		}
		s.logger.WithError(err).WithField("attempt", attempt).Warn("user lookup failed, retrying")
		if err := s.sleep(ctx, s.retryDelay); err != nil {
			return domain.User{}, err
		}
	}
	return domain.User{}, fmt.Errorf("failed to load user after %d attempts: %w", s.attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
