package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/launchsignal/validator-backend/internal/platform/ctxutil"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

var ErrInvalidToken = errors.New("invalid token")

// AuthService verifies bearer tokens and stamps the resolved identity onto
// the request context. Token issuance lives with the identity provider; this
// service only consumes HS256 tokens whose subject is the user id.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	log    *logger.Logger
	secret []byte
	issuer string
}

func NewAuthService(log *logger.Logger, secret string, issuer string) (AuthService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("auth: empty signing secret")
	}
	return &authService{
		log:    log.With("service", "AuthService"),
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
	}, nil
}

func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := &jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ctx, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return ctx, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		UserID:  userID,
		TokenID: claims.ID,
	}), nil
}
