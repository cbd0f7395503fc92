// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package httpapi exposes the auth service over HTTP.
//
// Request bodies may be JSON or URL-encoded forms. Errors are reported as
// {"detail": "..."} with a status derived from the error kind.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wardenauth/warden/internal/auth"
)

// AuthService is the part of *auth.Service the handlers call.
type AuthService interface {
	Login(ctx context.Context, username, password string) (auth.Token, error)
	Register(ctx context.Context, username, password string) (*auth.User, error)
	RequestReset(ctx context.Context, username string) error
	ConfirmReset(ctx context.Context, username, code, newPassword string) error
	Authenticate(ctx context.Context, token string) (*auth.User, error)
}

// RequestObserver records finished requests.
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// Option configures the router.
type Option func(*handler)

// WithLogger sets the logger for request and error logs.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithObserver sets the request metrics recorder.
func WithObserver(o RequestObserver) Option {
	return func(h *handler) {
		h.observer = o
	}
}

// WithMaxBodyBytes caps request bodies. Non-positive values keep the default.
func WithMaxBodyBytes(n int64) Option {
	return func(h *handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// DefaultMaxBodyBytes caps request bodies unless WithMaxBodyBytes says otherwise.
const DefaultMaxBodyBytes = 64 << 10

// NewRouter returns the API handler.
func NewRouter(svc AuthService, opts ...Option) http.Handler {
	h := &handler{
		svc:     svc,
		logger:  slog.Default(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(h.limitBody)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, r, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/register", h.register)
		r.Post("/password/send_code", h.sendCode)
		r.Post("/password/reset", h.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.requireBearer)
			r.Get("/me", h.me)
		})
	})

	return r
}
