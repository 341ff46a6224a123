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
	"github.com/virtualstack/virtualstack/internal/observability/logger"
)

// CreateUserRequest represents user provisioning data
type CreateUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	IsSuperuser bool   `json:"is_superuser"`
}

// CreateUser provisions a new user (platform administration)
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.CreateUser(r.Context(), identity.CreateUserInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			respondError(w, http.StatusConflict, "email already in use")
		case errors.Is(err, identity.ErrInvalidEmail):
			respondError(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password does not meet requirements")
		default:
			slog.ErrorContext(r.Context(), "failed to create user", logger.Error(err), logger.Email(req.Email))
			respondError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// ListUsers lists users with pagination
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	users, err := h.identityService.ListUsers(r.Context(), limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list users", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

// GetUser retrieves a user by ID
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.identityService.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondUserError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateUserRequest carries mutable profile fields
type UpdateUserRequest struct {
	FullName string `json:"full_name"`
}

// UpdateUser updates a user's profile
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.UpdateProfile(r.Context(), chi.URLParam(r, "userID"), req.FullName)
	if err != nil {
		respondUserError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// DeleteUser removes a user
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.identityService.DeleteUser(r.Context(), chi.URLParam(r, "userID")); err != nil {
		respondUserError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateUser re-enables a deactivated user
func (h *Handler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	if err := h.identityService.SetActive(r.Context(), chi.URLParam(r, "userID"), true); err != nil {
		respondUserError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "activated"})
}

// DeactivateUser disables a user; their tokens and API keys stop resolving
func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	if err := h.identityService.SetActive(r.Context(), chi.URLParam(r, "userID"), false); err != nil {
		respondUserError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func respondUserError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, identity.ErrUserNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	slog.ErrorContext(r.Context(), "user operation failed", logger.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}
