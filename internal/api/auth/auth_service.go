package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	appMiddleware "github.com/FACorreiaa/go-hk-tourism-ai/app/middleware"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

// TokenTTL is the lifetime of an admin access token.
const TokenTTL = time.Hour

type TokenIssuer interface {
	Enabled() bool
	IssueToken(subject, role string, ttl time.Duration) (string, time.Time, error)
}

var _ TokenIssuer = (*appMiddleware.Authenticator)(nil)

// AuthService authenticates the single configured operator account.
type AuthService interface {
	Login(ctx context.Context, username, password string) (token string, expiresAt time.Time, err error)
}

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthServiceImpl struct {
	logger       *slog.Logger
	issuer       TokenIssuer
	username     string
	passwordHash []byte
}

func NewAuthService(issuer TokenIssuer, username, passwordHash string, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:       logger,
		issuer:       issuer,
		username:     username,
		passwordHash: []byte(passwordHash),
	}
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login", trace.WithAttributes(
		attribute.String("auth.username", username),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Login"))

	if !s.issuer.Enabled() || len(s.passwordHash) == 0 {
		span.SetStatus(codes.Error, "Admin login disabled")
		return "", time.Time{}, fmt.Errorf("%w: admin login is not configured", types.ErrServiceUnavailable)
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil || !userOK {
		if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			l.ErrorContext(ctx, "Stored admin password hash is invalid", slog.Any("error", err))
		}
		l.WarnContext(ctx, "Rejected admin login", slog.String("username", username))
		span.SetStatus(codes.Error, "Invalid credentials")
		return "", time.Time{}, fmt.Errorf("%w: invalid credentials", types.ErrUnauthenticated)
	}

	token, expiresAt, err := s.issuer.IssueToken(s.username, appMiddleware.RoleAdmin, TokenTTL)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue admin token", slog.Any("error", err))
		span.RecordError(err)
		return "", time.Time{}, err
	}
	l.InfoContext(ctx, "Admin logged in")
	return token, expiresAt, nil
}
