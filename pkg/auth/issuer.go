package auth

import "context"

// Issuer turns a username/password pair into a signed access token. It is the
// only component that reads stored credentials; it never mutates user state.
type Issuer struct {
	lookup CredentialLookup
	codec  *TokenCodec
}

// NewIssuer creates an issuer backed by the given credential lookup and codec
func NewIssuer(lookup CredentialLookup, codec *TokenCodec) *Issuer {
	return &Issuer{
		lookup: lookup,
		codec:  codec,
	}
}

// Issue verifies the supplied credentials and mints a token on success.
// Unknown username and wrong password both return ErrInvalidCredentials; the
// distinction must never leak to the caller.
func (i *Issuer) Issue(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	cred, err := i.lookup.FindCredentialByUsername(ctx, username)
	if err != nil || cred == nil {
		return "", ErrInvalidCredentials
	}

	if !VerifyPassword(cred.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	return i.codec.Issue(cred.Username, []Authority{cred.Authority})
}
