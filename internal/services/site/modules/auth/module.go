// Package auth serves sign-in, sign-up, sign-out and the approval notice.
package auth

import (
	"context"
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/domain/accounts"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

// Service is the account surface sign-in pages need.
type Service interface {
	SignUp(ctx context.Context, in accounts.SignUpInput) (storage.User, error)
	SignIn(ctx context.Context, identifier string, password string) (storage.User, storage.Session, error)
	SignOut(ctx context.Context, sessionID string) error
}

// Module owns the exact auth routes.
type Module struct {
	service Service
}

// New returns an auth module.
func New(service Service) Module {
	return Module{service: service}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "auth" }

// Mount wires auth route handlers.
func (m Module) Mount(deps module.Dependencies) (module.Mount, error) {
	mux := http.NewServeMux()
	h := newHandlers(m.service, deps)
	mux.HandleFunc(http.MethodGet+" "+routepath.Login, h.handleLoginPage)
	mux.HandleFunc(http.MethodPost+" "+routepath.Login, h.handleLogin)
	mux.HandleFunc(http.MethodGet+" "+routepath.Signup, h.handleSignupPage)
	mux.HandleFunc(http.MethodPost+" "+routepath.Signup, h.handleSignup)
	mux.HandleFunc(http.MethodPost+" "+routepath.Logout, h.handleLogout)
	mux.HandleFunc(http.MethodGet+" "+routepath.Pending, h.handlePending)
	return module.Mount{
		Paths:   []string{routepath.Login, routepath.Signup, routepath.Logout, routepath.Pending},
		Handler: mux,
	}, nil
}
