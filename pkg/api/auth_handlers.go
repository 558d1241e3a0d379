package api

import (
	"errors"
	"net/http"

	"github.com/ironhack/taskithub/pkg/auth"
	"github.com/ironhack/taskithub/pkg/httputil"
	"github.com/ironhack/taskithub/pkg/observability"
)

// LoginRequest carries the credentials submitted to the login route
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the minted access token
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// login exchanges a username/password pair for a signed access token.
// Every failure mode answers with the same 401 body; nothing about whether
// the username exists may leak.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	token, err := s.issuer.Issue(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.countLogin(observability.OutcomeFailure)
			s.logger.WithField("username", req.Username).Info("login rejected")
			httputil.WriteUnauthorized(w, "invalid credentials")
			return
		}
		s.countLogin(observability.OutcomeFailure)
		httputil.WriteInternalError(w, errors.New("login failed"))
		return
	}

	s.countLogin(observability.OutcomeSuccess)
	httputil.WriteSuccess(w, LoginResponse{AccessToken: token})
}

func (s *Server) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}
