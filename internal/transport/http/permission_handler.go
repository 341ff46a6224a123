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
	"log/slog"
	"net/http"

	"github.com/virtualstack/virtualstack/internal/observability/logger"
)

// ListPermissions serves the permission catalog, optionally filtered by
// module. The catalog is global, not tenant data.
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	if module := r.URL.Query().Get("module"); module != "" {
		perms, err := h.permissionService.ListByModule(r.Context(), module)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to list permissions", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to list permissions")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"permissions": perms})
		return
	}

	perms, err := h.permissionService.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list permissions", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"permissions": perms})
}
