package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService issues and validates the access/refresh token pair used by
// the API. Access tokens are short-lived; refresh tokens outlive them and
// can only be exchanged for a new pair, never used to call the API
// directly.
type JWTService interface {
	// GenerateToken creates a signed access token for the user.
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateToken checks an access token's signature, expiry, and type,
	// returning its claims when valid.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateRefreshToken creates a signed refresh token for the user.
	GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateRefreshToken checks a refresh token. A valid access token
	// presented here fails with ErrWrongTokenType.
	ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the decoded content of a token issued by this service.
type Claims struct {
	// UserID identifies the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// TokenType is "access" or "refresh". Checked during validation so a
	// token cannot be replayed in the wrong context.
	TokenType string `json:"type,omitempty"`

	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
