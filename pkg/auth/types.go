// Package auth implements the stateless authentication core: password
// verification against stored credentials, and issuance/verification of signed,
// time-bounded bearer tokens. No session state is kept server-side; a token is
// the only proof of identity between requests.
package auth

import (
	"context"
	"errors"
)

// Authority is a role label granting access to policy-guarded routes
type Authority string

const (
	// AuthorityAdmin grants full access including user and department management
	AuthorityAdmin Authority = "ADMIN"
	// AuthorityUser grants access to task endpoints and own-profile operations
	AuthorityUser Authority = "USER"
)

// Sentinel errors for the authentication core. Both unknown-user and
// wrong-password collapse into ErrInvalidCredentials so responses never reveal
// whether a username exists.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Credential is the stored login material for one user, as read from the
// user-lookup collaborator during login. Never persisted by this package.
type Credential struct {
	Username     string
	PasswordHash string
	Authority    Authority
}

// CredentialLookup maps a username to its stored credential. Implemented by the
// storage layer.
type CredentialLookup interface {
	// FindCredentialByUsername returns the stored credential, or an error that
	// the caller treats as "not found". The issuer never distinguishes the two.
	FindCredentialByUsername(ctx context.Context, username string) (*Credential, error)
}

// Identity is the per-request principal reconstructed from a verified token.
// It lives for exactly one request and is never persisted or cached.
type Identity struct {
	Subject     string
	Authorities []Authority
}

// HasAnyAuthority reports whether the identity holds at least one of the given
// authority labels.
func (id *Identity) HasAnyAuthority(required []string) bool {
	for _, want := range required {
		for _, have := range id.Authorities {
			if string(have) == want {
				return true
			}
		}
	}
	return false
}

// AuthorityStrings returns the identity's authorities as plain strings
func (id *Identity) AuthorityStrings() []string {
	out := make([]string, len(id.Authorities))
	for i, a := range id.Authorities {
		out[i] = string(a)
	}
	return out
}
