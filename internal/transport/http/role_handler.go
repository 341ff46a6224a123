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
	"github.com/virtualstack/virtualstack/internal/membership"
	"github.com/virtualstack/virtualstack/internal/observability/logger"
	"github.com/virtualstack/virtualstack/internal/role"
)

// ListRoles lists system roles plus the tenant's custom roles with member
// counts
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleService.ListForTenant(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list roles", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list roles")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// CreateRoleRequest represents custom role creation data
type CreateRoleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// CreateRole creates a custom role in the tenant
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := GetPrincipal(r.Context())
	created, err := h.roleService.CreateCustomRole(r.Context(), role.CreateInput{
		TenantID:    chi.URLParam(r, "tenantID"),
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		ActorID:     p.User.ID,
	})
	if err != nil {
		switch {
		case errors.Is(err, role.ErrNameRequired):
			respondError(w, http.StatusBadRequest, "role name is required")
		case errors.Is(err, role.ErrRoleNameTaken):
			respondError(w, http.StatusConflict, "role name already in use")
		default:
			slog.ErrorContext(r.Context(), "failed to create role", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to create role")
		}
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// GetRole retrieves a role visible from the tenant
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	ro, err := h.roleService.Get(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "roleID"))
	if err != nil {
		respondRoleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ro)
}

// UpdateRoleRequest carries mutable role fields
type UpdateRoleRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Permissions []string `json:"permissions"`
}

// UpdateRole patches a custom role
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := GetPrincipal(r.Context())
	ro, err := h.roleService.UpdateCustomRole(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "roleID"), role.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		ActorID:     p.User.ID,
	})
	if err != nil {
		respondRoleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ro)
}

// DeleteRole removes a custom role with no remaining members
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	err := h.roleService.DeleteCustomRole(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "roleID"), p.User.ID)
	if err != nil {
		respondRoleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRolePermissions lists the permission codes a role grants
func (h *Handler) GetRolePermissions(w http.ResponseWriter, r *http.Request) {
	codes, err := h.roleService.GetPermissions(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "roleID"))
	if err != nil {
		respondRoleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"permissions": codes})
}

// ListRoleMembers lists user IDs holding the role in the tenant
func (h *Handler) ListRoleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.membershipService.Members(r.Context(), chi.URLParam(r, "roleID"), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondMembershipError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"members": members})
}

// SetRoleMembersRequest carries the replacement member set
type SetRoleMembersRequest struct {
	UserIDs []string `json:"user_ids"`
}

// SetRoleMembers replaces the member set of a role in one transaction
func (h *Handler) SetRoleMembers(w http.ResponseWriter, r *http.Request) {
	var req SetRoleMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := GetPrincipal(r.Context())
	final, err := h.membershipService.SetRoleMembers(r.Context(),
		chi.URLParam(r, "roleID"), chi.URLParam(r, "tenantID"), req.UserIDs, p.User.ID)
	if err != nil {
		respondMembershipError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"members": final})
}

// AssignRole grants the role to a user in the tenant; assigning an
// already-held role succeeds without effect
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	err := h.membershipService.Assign(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "roleID"), chi.URLParam(r, "tenantID"), p.User.ID)
	if err != nil {
		respondMembershipError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

// RevokeRole removes the role from a user in the tenant
func (h *Handler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	err := h.membershipService.Revoke(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "roleID"), chi.URLParam(r, "tenantID"), p.User.ID)
	if err != nil {
		respondMembershipError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondRoleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, role.ErrRoleNotFound):
		respondError(w, http.StatusNotFound, "role not found")
	case errors.Is(err, role.ErrSystemRoleImmutable):
		respondError(w, http.StatusForbidden, "system roles cannot be modified")
	case errors.Is(err, role.ErrRoleInUse):
		respondError(w, http.StatusConflict, "role still has members")
	case errors.Is(err, role.ErrRoleNameTaken):
		respondError(w, http.StatusConflict, "role name already in use")
	default:
		slog.ErrorContext(r.Context(), "role operation failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondMembershipError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, membership.ErrMembershipNotFound):
		respondError(w, http.StatusNotFound, "membership not found")
	case errors.Is(err, membership.ErrMemberUserNotFound),
		errors.Is(err, membership.ErrMemberRoleNotFound),
		errors.Is(err, membership.ErrMemberTenantNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, membership.ErrRoleTenantMismatch):
		respondError(w, http.StatusBadRequest, "role does not belong to this tenant")
	default:
		slog.ErrorContext(r.Context(), "membership operation failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
