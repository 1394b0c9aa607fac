package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"sketchroom/pkg/types"
)

const tokenIssuer = "sketchroom"

// Identity is the result of a successful credential check.
type Identity struct {
	UserID string
	Email  string
}

// Claims is the payload stored inside both access and refresh tokens.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Gate verifies bearer credentials at connection time and again before
// every state-changing message, since a token can expire mid-session.
// It also mints token pairs for the signup/signin/refresh endpoints.
type Gate struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewGate builds a gate signing with HMAC-SHA256.
func NewGate(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Gate {
	return &Gate{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// Authenticate validates an access token and yields the caller identity.
// It never mutates state; callers reject the connection or the request
// on error.
func (g *Gate) Authenticate(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims, err := g.parse(token, g.accessSecret)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// VerifyRefresh validates a refresh token during rotation.
func (g *Gate) VerifyRefresh(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims, err := g.parse(token, g.refreshSecret)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// IssueTokens mints an access/refresh pair for a user.
func (g *Gate) IssueTokens(userID, email string) (*types.TokenPair, error) {
	access, err := g.sign(userID, email, g.accessSecret, g.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := g.sign(userID, email, g.refreshSecret, g.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &types.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (g *Gate) sign(userID, email string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// jti keeps tokens minted in the same second distinct, so
			// refresh rotation always invalidates the previous token.
			ID: uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (g *Gate) parse(token string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
