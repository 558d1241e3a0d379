package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ironhack/taskithub/pkg/auth"
	"github.com/ironhack/taskithub/pkg/httputil"
	"github.com/ironhack/taskithub/pkg/middleware"
	"github.com/ironhack/taskithub/pkg/observability"
	"github.com/ironhack/taskithub/pkg/policy"
)

// LoginPath is the only route that accepts credentials instead of a token
const LoginPath = "/api/login"

// Server represents our API server
type Server struct {
	storage    Storage
	router     *mux.Router
	issuer     *auth.Issuer
	gatekeeper *middleware.Gatekeeper
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// Options configures a Server
type Options struct {
	// TokenSecret signs and verifies access tokens. Required.
	TokenSecret []byte

	// TokenLifetime bounds issued tokens; zero means auth.DefaultTokenLifetime.
	TokenLifetime time.Duration

	// Table is the access-control policy; nil means policy.DefaultTable().
	Table *policy.Table

	// Metrics may be nil to disable instrumentation.
	Metrics *observability.Metrics
}

// NewServer creates a new API server with the full middleware chain wired in
func NewServer(storage Storage, logger *observability.Logger, opts Options) *Server {
	table := opts.Table
	if table == nil {
		table = policy.DefaultTable()
	}

	codec := auth.NewTokenCodec(opts.TokenSecret, opts.TokenLifetime)

	s := &Server{
		storage: storage,
		router:  mux.NewRouter(),
		issuer:  auth.NewIssuer(storage, codec),
		logger:  logger,
		metrics: opts.Metrics,
	}
	s.gatekeeper = middleware.NewGatekeeper(codec, table, LoginPath, logger, opts.Metrics)

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Authentication
	s.router.HandleFunc(LoginPath, s.login).Methods("POST")

	// Users
	s.router.HandleFunc("/users", s.createUser).Methods("POST")
	s.router.HandleFunc("/users", s.listUsers).Methods("GET")
	s.router.HandleFunc("/users/username/{username}", s.getUserByUsername).Methods("GET")
	s.router.HandleFunc("/users/{id}", s.getUser).Methods("GET")
	s.router.HandleFunc("/users/{id}", s.updateUser).Methods("PUT")
	s.router.HandleFunc("/users/{id}", s.deleteUser).Methods("DELETE")

	// Departments
	s.router.HandleFunc("/departments", s.createDepartment).Methods("POST")
	s.router.HandleFunc("/departments", s.listDepartments).Methods("GET")
	s.router.HandleFunc("/departments/{id}", s.getDepartment).Methods("GET")
	s.router.HandleFunc("/departments/{id}", s.updateDepartment).Methods("PUT")
	s.router.HandleFunc("/departments/{id}", s.deleteDepartment).Methods("DELETE")

	// Tasks
	s.router.HandleFunc("/tasks", s.createTask).Methods("POST")
	s.router.HandleFunc("/tasks", s.listTasks).Methods("GET")
	s.router.HandleFunc("/tasks/{id}", s.getTask).Methods("GET")
	s.router.HandleFunc("/tasks/{id}", s.updateTask).Methods("PUT")
	s.router.HandleFunc("/tasks/{id}", s.deleteTask).Methods("DELETE")
}

// Handler returns the server's handler with the middleware chain applied.
// Order matters: request id first so every later stage can log it, then
// logging, metrics, panic recovery, and finally the gatekeeper guarding the
// routes themselves.
func (s *Server) Handler() http.Handler {
	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
	}
	if s.metrics != nil {
		chain = append(chain, httputil.MetricsMiddleware(s.metrics))
	}
	chain = append(chain,
		httputil.RecoveryMiddleware(s.logger),
		s.gatekeeper.Handler,
	)
	return httputil.Chain(chain...)(s.router)
}

// BootstrapAdmin creates an initial administrator account if no user with the
// given username exists yet. Existing accounts are left untouched so the
// bootstrap is safe to run on every startup.
func (s *Server) BootstrapAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	if _, err := s.storage.GetUserByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check for existing admin: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &User{
		Name:         "Administrator",
		Username:     username,
		PasswordHash: hash,
		Role:         string(auth.AuthorityAdmin),
	}
	if err := s.storage.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	s.logger.WithField("username", username).Info("bootstrapped admin user")
	return nil
}
