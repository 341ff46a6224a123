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

package permission

import "strings"

// Modules with catalog entries
const (
	ModuleUser       = "user"
	ModuleTenant     = "tenant"
	ModuleRole       = "role"
	ModuleAPIKey     = "api_key"
	ModuleVM         = "vm"
	ModulePermission = "permission"
	ModuleInvitation = "invitation"
)

// Actions within a module
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Permission codes. Code(module, action) builds the same strings; these
// constants exist so call sites get compile-time checking.
const (
	UserCreate = "user:create"
	UserRead   = "user:read"
	UserUpdate = "user:update"
	UserDelete = "user:delete"

	TenantCreate = "tenant:create"
	TenantRead   = "tenant:read"
	TenantUpdate = "tenant:update"
	TenantDelete = "tenant:delete"

	RoleCreate = "role:create"
	RoleRead   = "role:read"
	RoleUpdate = "role:update"
	RoleDelete = "role:delete"

	APIKeyCreate = "api_key:create"
	APIKeyRead   = "api_key:read"
	APIKeyUpdate = "api_key:update"
	APIKeyDelete = "api_key:delete"

	VMCreate = "vm:create"
	VMRead   = "vm:read"
	VMUpdate = "vm:update"
	VMDelete = "vm:delete"

	PermissionRead = "permission:read"

	InvitationCreate = "invitation:create"
	InvitationRead   = "invitation:read"
	InvitationDelete = "invitation:delete"
)

// Code builds a permission code from module and action.
func Code(module, action string) string {
	return module + ":" + action
}

// Split breaks a code into module and action. ok is false for codes that
// are not of the `<module>:<action>` shape.
func Split(code string) (module, action string, ok bool) {
	module, action, ok = strings.Cut(code, ":")
	if !ok || module == "" || action == "" {
		return "", "", false
	}
	return module, action, true
}

// Catalog returns the full built-in permission set, in seed order.
func Catalog() []Permission {
	crud := []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

	type moduleActions struct {
		module  string
		actions []string
	}
	all := []moduleActions{
		{ModuleUser, crud},
		{ModuleTenant, crud},
		{ModuleRole, crud},
		{ModuleAPIKey, crud},
		{ModuleVM, crud},
		{ModulePermission, []string{ActionRead}},
		{ModuleInvitation, []string{ActionCreate, ActionRead, ActionDelete}},
	}

	var out []Permission
	for _, ma := range all {
		for _, action := range ma.actions {
			out = append(out, Permission{
				Code:        Code(ma.module, action),
				Name:        capitalize(action) + " " + ma.module,
				Description: "Allows " + action + " on " + ma.module + " resources",
				Module:      ma.module,
				Action:      action,
			})
		}
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
