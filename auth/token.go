package auth

import (
	"fmt"
	"strings"
	"time"

	"chat-presence/domain"
	"chat-presence/errors"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultIssuer = "chat-presence"

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Verifier signs and checks HS256 tokens.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

func NewVerifier(secret, issuer string) *Verifier {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Verifier{
		secret: []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// GenerateToken creates a signed JWT for a specific user.
func (v *Verifier) GenerateToken(identity domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: identity.UserID,
		Email:  identity.Email,
		Roles:  identity.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    v.issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify accepts a raw token or an "Authorization" header value.
// Every failure wraps errors.ErrUnauthenticated.
func (v *Verifier) Verify(credential string) (domain.Identity, error) {
	raw := BearerToken(credential)
	if raw == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing credential", errors.ErrUnauthenticated)
	}

	token, err := v.parser.ParseWithClaims(raw, &CustomClaims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, jwt.ErrSignatureInvalid)
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return domain.Identity{}, fmt.Errorf("%w: token carries no user_id", errors.ErrUnauthenticated)
	}

	return domain.Identity{UserID: claims.UserID, Email: claims.Email, Roles: claims.Roles}, nil
}

// BearerToken strips an optional "Bearer " scheme, case-insensitively.
func BearerToken(credential string) string {
	credential = strings.TrimSpace(credential)
	if len(credential) > 7 && strings.EqualFold(credential[:7], "bearer ") {
		return strings.TrimSpace(credential[7:])
	}
	return credential
}
