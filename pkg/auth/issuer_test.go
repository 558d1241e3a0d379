package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeLookup struct {
	creds map[string]*Credential
	err   error
}

func (f *fakeLookup) FindCredentialByUsername(ctx context.Context, username string) (*Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	cred, ok := f.creds[username]
	if !ok {
		return nil, errors.New("not found")
	}
	return cred, nil
}

func newTestIssuer(t *testing.T) (*Issuer, *TokenCodec) {
	t.Helper()

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	lookup := &fakeLookup{creds: map[string]*Credential{
		"alice": {Username: "alice", PasswordHash: hash, Authority: AuthorityAdmin},
	}}
	codec := NewTokenCodec([]byte("test-secret"), time.Hour)
	return NewIssuer(lookup, codec), codec
}

// TestIssuerSuccess tests that valid credentials mint a verifiable token
func TestIssuerSuccess(t *testing.T) {
	issuer, codec := newTestIssuer(t)

	token, err := issuer.Issue(context.Background(), "alice", "correct horse")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	identity, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if identity.Subject != "alice" {
		t.Errorf("Subject = %v, want alice", identity.Subject)
	}
	if len(identity.Authorities) != 1 || identity.Authorities[0] != AuthorityAdmin {
		t.Errorf("Authorities = %v, want [ADMIN]", identity.Authorities)
	}
}

// TestIssuerRejections tests that every failure mode returns the same error,
// so callers cannot distinguish unknown usernames from wrong passwords
func TestIssuerRejections(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "unknown username", username: "mallory", password: "correct horse"},
		{name: "wrong password", username: "alice", password: "wrong"},
		{name: "empty username", username: "", password: "correct horse"},
		{name: "empty password", username: "alice", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Issue(context.Background(), tt.username, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Issue() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

// TestIssuerLookupFailure tests that backend errors also collapse into the
// generic credentials error
func TestIssuerLookupFailure(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("database down")}
	issuer := NewIssuer(lookup, NewTokenCodec([]byte("test-secret"), time.Hour))

	_, err := issuer.Issue(context.Background(), "alice", "correct horse")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Issue() error = %v, want ErrInvalidCredentials", err)
	}
}
