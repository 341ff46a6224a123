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
	"github.com/virtualstack/virtualstack/internal/observability/logger"
	"github.com/virtualstack/virtualstack/internal/tenant"
)

// CreateTenantRequest represents tenant creation data
type CreateTenantRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// CreateTenant creates a new tenant (platform administration)
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := GetPrincipal(r.Context())
	t, err := h.tenantService.Create(r.Context(), tenant.CreateInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		ActorID:     p.User.ID,
	})
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrNameRequired):
			respondError(w, http.StatusBadRequest, "tenant name is required")
		case errors.Is(err, tenant.ErrSlugTaken):
			respondError(w, http.StatusConflict, "tenant slug already in use")
		default:
			slog.ErrorContext(r.Context(), "failed to create tenant", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to create tenant")
		}
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

// ListTenants lists tenants with pagination
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	tenants, err := h.tenantService.List(r.Context(), limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tenants", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

// GetTenant retrieves the tenant in context
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenantService.Get(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondTenantError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// UpdateTenantRequest carries mutable tenant fields
type UpdateTenantRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateTenant patches tenant fields
func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	var req UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tenantService.Update(r.Context(), chi.URLParam(r, "tenantID"), tenant.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, tenant.ErrNameRequired) {
			respondError(w, http.StatusBadRequest, "tenant name is required")
			return
		}
		respondTenantError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// DeactivateTenant suspends a tenant; decisions against it deny until it is
// reactivated
func (h *Handler) DeactivateTenant(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	err := h.tenantService.SetActive(r.Context(), chi.URLParam(r, "tenantID"), false, p.User.ID)
	if err != nil {
		respondTenantError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// DeleteTenant removes a tenant and everything scoped to it
func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	if err := h.tenantService.Delete(r.Context(), chi.URLParam(r, "tenantID"), p.User.ID); err != nil {
		respondTenantError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondTenantError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, tenant.ErrTenantNotFound) {
		respondError(w, http.StatusNotFound, "tenant not found")
		return
	}
	slog.ErrorContext(r.Context(), "tenant operation failed", logger.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}
