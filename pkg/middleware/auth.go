// Package middleware implements the request gatekeeper: the stage in the HTTP
// middleware chain that authenticates bearer tokens and enforces the
// access-control policy table before requests reach route dispatch.
package middleware

import (
	"net/http"
	"strings"

	"github.com/ironhack/taskithub/pkg/auth"
	"github.com/ironhack/taskithub/pkg/contextkeys"
	"github.com/ironhack/taskithub/pkg/httputil"
	"github.com/ironhack/taskithub/pkg/observability"
	"github.com/ironhack/taskithub/pkg/policy"
)

// BearerScheme is the Authorization header scheme for access tokens.
// Every request after login carries "Authorization: Bearer <token>".
const BearerScheme = "Bearer"

// TokenVerifier verifies a raw bearer token and reconstructs the identity
type TokenVerifier interface {
	Verify(raw string) (*auth.Identity, error)
}

// Gatekeeper intercepts every request except the login route. Per request it
// extracts and verifies the bearer token, establishes a request-scoped
// identity, consults the policy table, and either forwards or rejects.
//
// The table and verifier are read-only after construction; the gatekeeper
// keeps no per-request state of its own, so one instance serves all requests
// concurrently.
type Gatekeeper struct {
	verifier  TokenVerifier
	table     *policy.Table
	loginPath string
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewGatekeeper creates a gatekeeper enforcing the given policy table.
// Requests to loginPath bypass it entirely.
func NewGatekeeper(verifier TokenVerifier, table *policy.Table, loginPath string, logger *observability.Logger, metrics *observability.Metrics) *Gatekeeper {
	return &Gatekeeper{
		verifier:  verifier,
		table:     table,
		loginPath: loginPath,
		logger:    logger,
		metrics:   metrics,
	}
}

// Handler wraps next with authentication and authorization.
//
// A missing Authorization header is not a failure by itself: the request
// proceeds anonymously and the policy check decides. A present but invalid
// token (tampered, malformed, expired) is always a hard 401, even on routes
// the policy leaves open.
func (g *Gatekeeper) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == g.loginPath {
			next.ServeHTTP(w, r)
			return
		}

		identity, ok := g.establishIdentity(w, r)
		if !ok {
			return
		}
		if identity != nil {
			// The identity lives in this request's context only; nothing is
			// shared or cached across requests.
			r = r.WithContext(contextkeys.WithIdentity(r.Context(), identity))
		}

		rule := g.table.Match(r.Method, r.URL.Path)
		if rule == nil {
			// No rule matched: the route is deliberately open. See the
			// policy package doc for why this is fail-open.
			g.countDecision("", observability.DecisionNoPolicy)
			next.ServeHTTP(w, r)
			return
		}

		if identity == nil {
			g.countDecision(rule.Pattern, observability.DecisionDenied)
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}

		if !identity.HasAnyAuthority(rule.Authorities) {
			g.countDecision(rule.Pattern, observability.DecisionDenied)
			g.logger.WithFields(map[string]interface{}{
				"subject": identity.Subject,
				"method":  r.Method,
				"path":    r.URL.Path,
			}).Warn("insufficient authority")
			httputil.WriteForbidden(w, "insufficient authority")
			return
		}

		g.countDecision(rule.Pattern, observability.DecisionAllowed)
		next.ServeHTTP(w, r)
	})
}

// establishIdentity extracts and verifies the bearer token. It returns
// (nil, true) for anonymous requests and (nil, false) after writing a 401 for
// invalid tokens.
func (g *Gatekeeper) establishIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, true
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != BearerScheme {
		g.countVerification(observability.OutcomeFailure)
		httputil.WriteUnauthorized(w, "invalid authorization header format")
		return nil, false
	}

	identity, err := g.verifier.Verify(parts[1])
	if err != nil {
		g.countVerification(observability.OutcomeFailure)
		httputil.WriteUnauthorized(w, "invalid or expired token")
		return nil, false
	}

	g.countVerification(observability.OutcomeSuccess)
	return identity, true
}

func (g *Gatekeeper) countVerification(outcome string) {
	if g.metrics != nil {
		g.metrics.TokenVerificationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (g *Gatekeeper) countDecision(rule, decision string) {
	if g.metrics != nil {
		g.metrics.AuthzDecisionsTotal.WithLabelValues(rule, decision).Inc()
	}
}

// GetIdentity extracts the authenticated identity from the request context.
// Returns nil for anonymous requests.
func GetIdentity(r *http.Request) *auth.Identity {
	identity, ok := r.Context().Value(contextkeys.IdentityKey).(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}
