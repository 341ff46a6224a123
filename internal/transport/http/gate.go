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
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/virtualstack/virtualstack/internal/apikey"
	"github.com/virtualstack/virtualstack/internal/authz"
)

// RequirePermission gates a tenant-scoped route behind an authorization
// decision. The tenant comes from the {tenantID} path parameter; for calls
// authenticated with a tenant-scoped API key the key's tenant must match
// the path.
//
// Outcomes map onto status codes without leaking which permission was
// missing: 400 for a malformed tenant id, 401 unauthenticated, 403 denied,
// 404 for a tenant that does not exist.
func (h *Handler) RequirePermission(mode authz.Mode, codes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := chi.URLParam(r, "tenantID")
			principal := GetPrincipal(r.Context())
			if principal == nil {
				respondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if key := principal.Key; key != nil && key.Scope == apikey.ScopeTenant {
				if key.TenantID == nil || *key.TenantID != tenantID {
					h.recordDecision(r, "deny")
					respondError(w, http.StatusForbidden, "permission denied")
					return
				}
			}

			_, err := h.engine.Decide(r.Context(), principal.User, tenantID, codes, mode)
			if err != nil {
				switch {
				case errors.Is(err, authz.ErrMalformedContext):
					h.recordDecision(r, "error")
					respondError(w, http.StatusBadRequest, "malformed tenant id")
				case errors.Is(err, authz.ErrTenantNotFound):
					h.recordDecision(r, "error")
					respondError(w, http.StatusNotFound, "tenant not found")
				case errors.Is(err, authz.ErrNotAuthenticated):
					h.recordDecision(r, "error")
					respondError(w, http.StatusUnauthorized, "authentication required")
				default:
					h.recordDecision(r, "deny")
					respondError(w, http.StatusForbidden, "permission denied")
				}
				return
			}

			h.recordDecision(r, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) recordDecision(r *http.Request, outcome string) {
	if h.authzMetrics != nil {
		h.authzMetrics.Record(r.Context(), outcome)
	}
}
