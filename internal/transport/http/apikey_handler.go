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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/virtualstack/virtualstack/internal/apikey"
	"github.com/virtualstack/virtualstack/internal/observability/logger"
)

// CreateAPIKeyRequest represents API key creation data
type CreateAPIKeyRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Scope       string     `json:"scope"`
	TenantID    *string    `json:"tenant_id"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// CreateAPIKey mints a new key for the caller. The response carries the raw
// key exactly once.
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scope := apikey.Scope(req.Scope)
	if req.Scope == "" {
		scope = apikey.ScopeGlobal
	}

	p := GetPrincipal(r.Context())
	key, raw, err := h.apikeyService.Create(r.Context(), apikey.CreateInput{
		OwnerID:     p.User.ID,
		Name:        req.Name,
		Description: req.Description,
		Scope:       scope,
		TenantID:    req.TenantID,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, apikey.ErrTenantRequired),
			errors.Is(err, apikey.ErrTenantForbidden),
			errors.Is(err, apikey.ErrInvalidScope):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(r.Context(), "failed to create api key", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to create api key")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"api_key": key,
		"key":     raw,
	})
}

// ListAPIKeys lists keys visible to the caller
func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var tenantFilter *string
	if v := r.URL.Query().Get("tenant_id"); v != "" {
		tenantFilter = &v
	}

	p := GetPrincipal(r.Context())
	keys, err := h.apikeyService.List(r.Context(), p.User, tenantFilter, limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list api keys", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list api keys")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"api_keys": keys})
}

// GetAPIKey retrieves a key the caller may see
func (h *Handler) GetAPIKey(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	key, err := h.apikeyService.Get(r.Context(), p.User, chi.URLParam(r, "keyID"))
	if err != nil {
		respondAPIKeyError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, key)
}

// UpdateAPIKeyRequest carries mutable key fields
type UpdateAPIKeyRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateAPIKey patches a key's mutable fields
func (h *Handler) UpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req UpdateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := GetPrincipal(r.Context())
	key, err := h.apikeyService.Update(r.Context(), p.User, chi.URLParam(r, "keyID"), apikey.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondAPIKeyError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, key)
}

// DeleteAPIKey revokes and removes a key
func (h *Handler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	if err := h.apikeyService.Delete(r.Context(), p.User, chi.URLParam(r, "keyID")); err != nil {
		respondAPIKeyError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondAPIKeyError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apikey.ErrKeyNotFound) {
		respondError(w, http.StatusNotFound, "api key not found")
		return
	}
	slog.ErrorContext(r.Context(), "api key operation failed", logger.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}
