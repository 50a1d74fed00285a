package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/launchsignal/validator-backend/internal/platform/ctxutil"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newAuth(t *testing.T, secret string, issuer string) AuthService {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	auth, err := NewAuthService(log, secret, issuer)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return auth
}

func TestAuthResolvesUserFromSubject(t *testing.T) {
	auth := newAuth(t, "test-secret", "")
	userID := uuid.New()
	token := signToken(t, "test-secret", jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	ctx, err := auth.SetContextFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if got := ctxutil.UserID(ctx); got != userID {
		t.Fatalf("user id = %s, want %s", got, userID)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	auth := newAuth(t, "test-secret", "")
	token := signToken(t, "other-secret", jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	if _, err := auth.SetContextFromToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	auth := newAuth(t, "test-secret", "")
	token := signToken(t, "test-secret", jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})

	if _, err := auth.SetContextFromToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestAuthRejectsNonUUIDSubject(t *testing.T) {
	auth := newAuth(t, "test-secret", "")
	token := signToken(t, "test-secret", jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-user-id",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	if _, err := auth.SetContextFromToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestAuthEnforcesIssuerWhenConfigured(t *testing.T) {
	auth := newAuth(t, "test-secret", "launchsignal")
	token := signToken(t, "test-secret", jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	if _, err := auth.SetContextFromToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
