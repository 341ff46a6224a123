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
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/virtualstack/virtualstack/internal/apikey"
	"github.com/virtualstack/virtualstack/internal/audit"
	"github.com/virtualstack/virtualstack/internal/auth"
	"github.com/virtualstack/virtualstack/internal/authz"
	"github.com/virtualstack/virtualstack/internal/identity"
	"github.com/virtualstack/virtualstack/internal/invitation"
	"github.com/virtualstack/virtualstack/internal/membership"
	"github.com/virtualstack/virtualstack/internal/observability/metrics"
	"github.com/virtualstack/virtualstack/internal/permission"
	"github.com/virtualstack/virtualstack/internal/role"
	"github.com/virtualstack/virtualstack/internal/tenant"
	"github.com/virtualstack/virtualstack/internal/token"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService   *identity.Service
	tenantService     *tenant.Service
	roleService       *role.Service
	membershipService *membership.Service
	permissionService *permission.Service
	apikeyService     *apikey.Service
	invitationService *invitation.Service
	tokens            *token.Manager
	verifier          *auth.Verifier
	engine            *authz.Engine
	auditLogger       audit.Logger
	authzMetrics      *metrics.AuthzMetrics
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	tenantService *tenant.Service,
	roleService *role.Service,
	membershipService *membership.Service,
	permissionService *permission.Service,
	apikeyService *apikey.Service,
	invitationService *invitation.Service,
	tokens *token.Manager,
	verifier *auth.Verifier,
	engine *authz.Engine,
	auditLogger audit.Logger,
	authzMetrics *metrics.AuthzMetrics,
) *Handler {
	return &Handler{
		identityService:   identityService,
		tenantService:     tenantService,
		roleService:       roleService,
		membershipService: membershipService,
		permissionService: permissionService,
		apikeyService:     apikeyService,
		invitationService: invitationService,
		tokens:            tokens,
		verifier:          verifier,
		engine:            engine,
		auditLogger:       auditLogger,
		authzMetrics:      authzMetrics,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		// Public endpoints
		r.Post("/auth/login", h.Login)
		r.Post("/invitations/verify", h.VerifyInvitation)

		// Authenticated, tenant-agnostic endpoints
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)

			r.Get("/auth/me", h.GetCurrentUser)
			r.Post("/auth/change-password", h.ChangePassword)

			r.Get("/permissions", h.ListPermissions)

			r.Post("/invitations/accept", h.AcceptInvitation)

			r.Route("/api-keys", func(r chi.Router) {
				r.Post("/", h.CreateAPIKey)
				r.Get("/", h.ListAPIKeys)
				r.Get("/{keyID}", h.GetAPIKey)
				r.Patch("/{keyID}", h.UpdateAPIKey)
				r.Delete("/{keyID}", h.DeleteAPIKey)
			})
		})

		// Platform administration
		r.Group(func(r chi.Router) {
			r.Use(RequireSuperuser)

			r.Post("/users", h.CreateUser)
			r.Get("/users", h.ListUsers)
			r.Get("/users/{userID}", h.GetUser)
			r.Patch("/users/{userID}", h.UpdateUser)
			r.Delete("/users/{userID}", h.DeleteUser)
			r.Post("/users/{userID}/activate", h.ActivateUser)
			r.Post("/users/{userID}/deactivate", h.DeactivateUser)

			r.Post("/tenants", h.CreateTenant)
			r.Get("/tenants", h.ListTenants)
		})

		// Tenant-scoped endpoints, each behind the permission gate
		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.With(h.RequirePermission(authz.ModeAll, permission.TenantRead)).
				Get("/", h.GetTenant)
			r.With(h.RequirePermission(authz.ModeAll, permission.TenantUpdate)).
				Patch("/", h.UpdateTenant)
			r.With(h.RequirePermission(authz.ModeAll, permission.TenantUpdate)).
				Post("/deactivate", h.DeactivateTenant)
			r.With(h.RequirePermission(authz.ModeAll, permission.TenantDelete)).
				Delete("/", h.DeleteTenant)

			r.Route("/roles", func(r chi.Router) {
				r.With(h.RequirePermission(authz.ModeAll, permission.RoleRead)).
					Get("/", h.ListRoles)
				r.With(h.RequirePermission(authz.ModeAll, permission.RoleCreate)).
					Post("/", h.CreateRole)

				r.Route("/{roleID}", func(r chi.Router) {
					r.With(h.RequirePermission(authz.ModeAll, permission.RoleRead)).
						Get("/", h.GetRole)
					r.With(h.RequirePermission(authz.ModeAll, permission.RoleUpdate)).
						Patch("/", h.UpdateRole)
					r.With(h.RequirePermission(authz.ModeAll, permission.RoleDelete)).
						Delete("/", h.DeleteRole)

					r.With(h.RequirePermission(authz.ModeAll, permission.RoleRead)).
						Get("/permissions", h.GetRolePermissions)

					r.With(h.RequirePermission(authz.ModeAll, permission.RoleRead)).
						Get("/members", h.ListRoleMembers)
					r.With(h.RequirePermission(authz.ModeAll, permission.RoleUpdate)).
						Put("/members", h.SetRoleMembers)
					r.With(h.RequirePermission(authz.ModeAll, permission.RoleUpdate)).
						Post("/members/{userID}", h.AssignRole)
					r.With(h.RequirePermission(authz.ModeAll, permission.RoleUpdate)).
						Delete("/members/{userID}", h.RevokeRole)
				})
			})

			r.Route("/invitations", func(r chi.Router) {
				r.With(h.RequirePermission(authz.ModeAll, permission.InvitationRead)).
					Get("/", h.ListInvitations)
				r.With(h.RequirePermission(authz.ModeAll, permission.InvitationCreate)).
					Post("/", h.CreateInvitation)
				r.With(h.RequirePermission(authz.ModeAll, permission.InvitationDelete)).
					Delete("/{invitationID}", h.RevokeInvitation)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "virtualstack",
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
