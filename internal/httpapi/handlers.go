// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

type handler struct {
	svc      AuthService
	logger   *slog.Logger
	observer RequestObserver
	maxBody  int64
}

type credentialsRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type sendCodeRequest struct {
	Username string `json:"username" form:"username" validate:"required,email"`
}

type resetPasswordRequest struct {
	Username    string `json:"username" form:"username" validate:"required"`
	Code        string `json:"code" form:"code" validate:"required"`
	NewPassword string `json:"new_password" form:"new_password" validate:"required"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UserResponse describes an account without its password hash.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusResponse acknowledges an action with no other payload.
type StatusResponse struct {
	Status bool   `json:"status"`
	Detail string `json:"detail"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, TokenResponse{
		AccessToken: token.Value,
		TokenType:   "bearer",
		ExpiresAt:   token.ExpiresAt,
	})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.svc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UserResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}

func (h *handler) sendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.RequestReset(r.Context(), req.Username); err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, StatusResponse{Status: true, Detail: "Code sent"})
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.ConfirmReset(r.Context(), req.Username, req.Code, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, StatusResponse{Status: true, Detail: "User password updated successfully"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		challenge(w, r, "Could not validate credentials")
		return
	}
	render.JSON(w, r, UserResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}
