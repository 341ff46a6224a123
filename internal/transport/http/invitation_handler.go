// Copyright 2026 The VirtualStack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/virtualstack/virtualstack/internal/identity"
	"github.com/virtualstack/virtualstack/internal/invitation"
	"github.com/virtualstack/virtualstack/internal/observability/logger"
)

// CreateInvitationRequest represents invitation creation data
type CreateInvitationRequest struct {
	Email  string  `json:"email"`
	RoleID *string `json:"role_id"`
}

// CreateInvitation invites an email into the tenant. While a live pending
// invitation exists for the same email, the existing one is returned.
func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := GetPrincipal(r.Context())
	inv, err := h.invitationService.Create(r.Context(), invitation.CreateInput{
		Email:     req.Email,
		TenantID:  chi.URLParam(r, "tenantID"),
		RoleID:    req.RoleID,
		InvitedBy: p.User.ID,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidEmail):
			respondError(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, invitation.ErrInviteRoleNotFound):
			respondError(w, http.StatusNotFound, "role not found")
		case errors.Is(err, invitation.ErrRoleTenantMismatch):
			respondError(w, http.StatusBadRequest, "role does not belong to this tenant")
		default:
			slog.ErrorContext(r.Context(), "failed to create invitation", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to create invitation")
		}
		return
	}

	// The token is surfaced here so the tenant admin can deliver it; it is
	// not serialized on any other read path.
	respondJSON(w, http.StatusCreated, map[string]any{
		"invitation": inv,
		"token":      inv.Token,
	})
}

// ListInvitations lists the tenant's invitations
func (h *Handler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	if r.URL.Query().Get("status") == "pending" {
		invs, err := h.invitationService.ListPendingByTenant(r.Context(), tenantID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to list invitations", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to list invitations")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"invitations": invs})
		return
	}

	limit, offset := parsePagination(r)
	invs, err := h.invitationService.ListByTenant(r.Context(), tenantID, limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list invitations", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list invitations")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"invitations": invs})
}

// RevokeInvitation withdraws a pending invitation
func (h *Handler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	err := h.invitationService.Revoke(r.Context(), chi.URLParam(r, "invitationID"), p.User.ID)
	if err != nil {
		switch {
		case errors.Is(err, invitation.ErrInvitationNotFound):
			respondError(w, http.StatusNotFound, "invitation not found")
		case errors.Is(err, invitation.ErrInvitationNotPending):
			respondError(w, http.StatusConflict, "invitation is not pending")
		default:
			slog.ErrorContext(r.Context(), "failed to revoke invitation", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to revoke invitation")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InvitationTokenRequest carries an invitation token
type InvitationTokenRequest struct {
	Token string `json:"token"`
}

// VerifyInvitation reports whether a token identifies an acceptable
// invitation. Public: the invitee is not yet authenticated.
func (h *Handler) VerifyInvitation(w http.ResponseWriter, r *http.Request) {
	var req InvitationTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.invitationService.Verify(r.Context(), req.Token)
	if err != nil {
		respondError(w, http.StatusNotFound, "invitation is not valid")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"email":      inv.Email,
		"tenant_id":  inv.TenantID,
		"expires_at": inv.ExpiresAt,
	})
}

// AcceptInvitation consumes an invitation on behalf of the caller
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req InvitationTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := GetPrincipal(r.Context())
	inv, err := h.invitationService.Accept(r.Context(), req.Token, p.User)
	if err != nil {
		switch {
		case errors.Is(err, invitation.ErrInvitationInvalid),
			errors.Is(err, invitation.ErrInvitationNotPending):
			respondError(w, http.StatusNotFound, "invitation is not valid")
		case errors.Is(err, invitation.ErrEmailMismatch):
			respondError(w, http.StatusForbidden, "invitation was issued to a different email")
		case errors.Is(err, invitation.ErrInviteRoleNotFound),
			errors.Is(err, invitation.ErrRoleTenantMismatch):
			respondError(w, http.StatusConflict, "invitation role can no longer be granted")
		default:
			slog.ErrorContext(r.Context(), "failed to accept invitation", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to accept invitation")
		}
		return
	}

	respondJSON(w, http.StatusOK, inv)
}
