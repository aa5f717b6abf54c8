package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// PasswordResetter issues and consumes reset tokens.
// Satisfied by *service.PasswordResetService.
type PasswordResetter interface {
	RequestReset(ctx context.Context, req service.ResetRequest) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// PasswordHandler serves the forgot/reset password flow. Tokens are handed
// to the mailer out of band; exposeToken returns them in the response body
// for local development.
type PasswordHandler struct {
	svc         PasswordResetter
	exposeToken bool
}

func NewPasswordHandler(svc PasswordResetter, exposeToken bool) *PasswordHandler {
	return &PasswordHandler{svc: svc, exposeToken: exposeToken}
}

// RegisterRoutes registers the password endpoints on the public router.
func (h *PasswordHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/password/forgot", h.Forgot)
	r.Post("/auth/password/reset", h.Reset)
}

type forgotPasswordRequest struct {
	AccountType string `json:"account_type"`
	BusinessID  int64  `json:"business_id"`
	Email       string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

const resetRequestedMessage = "if the account exists, a reset link has been sent"

// Forgot issues a reset token. The response is the same whether or not the
// account exists.
func (h *PasswordHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccountType == "" {
		req.AccountType = enum.PrincipalOwner
	}
	if req.AccountType == enum.PrincipalCustomer && req.BusinessID <= 0 {
		writeError(w, http.StatusBadRequest, "business_id is required for customer accounts")
		return
	}

	token, err := h.svc.RequestReset(r.Context(), service.ResetRequest{
		PrincipalType: req.AccountType,
		BusinessID:    req.BusinessID,
		Email:         req.Email,
	})
	if err != nil {
		writeServiceError(w, "request password reset", err)
		return
	}

	resp := map[string]string{"message": resetRequestedMessage}
	if h.exposeToken && token != "" {
		resp["reset_token"] = token
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// Reset consumes a token and sets the new password.
func (h *PasswordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeServiceError(w, "reset password", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
