package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenLifetime is how long an issued token stays valid unless
// configured otherwise (TASKIT_TOKEN_LIFETIME).
const DefaultTokenLifetime = 30 * time.Minute

// Claims is the signed claim set carried by every access token
type Claims struct {
	jwt.RegisteredClaims

	Authorities []string `json:"authorities"`
}

// TokenCodec signs and verifies access tokens. The signing key is read-only
// after construction, so a single codec is safe for concurrent use by the
// login handler and the request gatekeeper.
type TokenCodec struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenCodec creates a codec with the given HMAC secret and token lifetime.
// A non-positive lifetime falls back to DefaultTokenLifetime.
func NewTokenCodec(secret []byte, lifetime time.Duration) *TokenCodec {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenCodec{
		secret:   secret,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Issue mints a signed HS256 token for the subject with the given authorities.
// Expiry is issue time plus the configured lifetime.
func (c *TokenCodec) Issue(subject string, authorities []Authority) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("token subject must not be empty")
	}

	now := c.now()
	labels := make([]string, len(authorities))
	for i, a := range authorities {
		labels[i] = string(a)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
		Authorities: labels,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and reconstructs the
// identity. Any failure (tampered signature, malformed structure, expiry,
// missing subject) collapses into ErrInvalidToken; callers never learn which.
func (c *TokenCodec) Verify(raw string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	authorities := make([]Authority, len(claims.Authorities))
	for i, label := range claims.Authorities {
		authorities[i] = Authority(label)
	}

	return &Identity{
		Subject:     claims.Subject,
		Authorities: authorities,
	}, nil
}
