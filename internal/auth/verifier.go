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

// Package auth resolves request credentials to a principal. Bearer tokens
// and API keys are both accepted; a bearer token wins when both are sent.
package auth

import (
	"context"
	"errors"

	"github.com/virtualstack/virtualstack/internal/apikey"
	"github.com/virtualstack/virtualstack/internal/identity"
	"github.com/virtualstack/virtualstack/internal/token"
)

// Domain errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Principal is the authenticated caller plus how they authenticated. Key is
// non-nil only for API key authentication; a tenant-scoped key pins the
// caller to that tenant.
type Principal struct {
	User *identity.User
	Key  *apikey.Key
}

// KeyValidator validates raw API keys. Satisfied by apikey.Service.
type KeyValidator interface {
	Validate(ctx context.Context, raw string) (*apikey.Key, *identity.User, error)
}

// UserGetter resolves token subjects. Satisfied by identity.Repository.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*identity.User, error)
}

// Verifier resolves bearer tokens and API keys to principals.
type Verifier struct {
	tokens *token.Manager
	keys   KeyValidator
	users  UserGetter
}

// NewVerifier creates a new credential verifier
func NewVerifier(tokens *token.Manager, keys KeyValidator, users UserGetter) *Verifier {
	return &Verifier{tokens: tokens, keys: keys, users: users}
}

// ResolvePrincipal turns at-most-one credential into a principal. Both
// arguments empty means an anonymous request: (nil, nil), not an error.
// A credential that is present but invalid always fails; the verifier
// never falls through from a bad bearer token to the API key.
//
// The token subject is re-resolved against the user store on every call,
// so deactivating a user invalidates outstanding tokens immediately.
func (v *Verifier) ResolvePrincipal(ctx context.Context, bearer, rawKey string) (*Principal, error) {
	if bearer != "" {
		userID, err := v.tokens.Verify(bearer)
		if err != nil {
			return nil, ErrInvalidCredentials
		}
		user, err := v.users.GetByID(ctx, userID)
		if err != nil || user == nil || !user.IsActive {
			return nil, ErrInvalidCredentials
		}
		return &Principal{User: user}, nil
	}

	if rawKey != "" {
		key, user, err := v.keys.Validate(ctx, rawKey)
		if err != nil {
			return nil, ErrInvalidCredentials
		}
		return &Principal{User: user, Key: key}, nil
	}

	return nil, nil
}
