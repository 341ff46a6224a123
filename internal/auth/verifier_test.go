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

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualstack/virtualstack/internal/apikey"
	"github.com/virtualstack/virtualstack/internal/id"
	"github.com/virtualstack/virtualstack/internal/identity"
	"github.com/virtualstack/virtualstack/internal/token"
)

// MockKeyValidator implements KeyValidator
type MockKeyValidator struct {
	key  *apikey.Key
	user *identity.User
	raw  string
}

func (m *MockKeyValidator) Validate(ctx context.Context, raw string) (*apikey.Key, *identity.User, error) {
	if m.raw != "" && raw == m.raw {
		return m.key, m.user, nil
	}
	return nil, nil, apikey.ErrInvalidKey
}

// MockUserGetter implements UserGetter
type MockUserGetter struct {
	users map[string]*identity.User
}

func (m *MockUserGetter) GetByID(ctx context.Context, userID string) (*identity.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

type verifierFixture struct {
	verifier *Verifier
	tokens   *token.Manager
	keys     *MockKeyValidator
	users    *MockUserGetter
	alice    *identity.User
}

func newVerifierFixture() *verifierFixture {
	alice := &identity.User{ID: id.NewUUIDv7(), Email: "alice@example.com", IsActive: true}
	tokens := token.NewManager("0123456789abcdef0123456789abcdef", 30*time.Minute)
	keys := &MockKeyValidator{}
	users := &MockUserGetter{users: map[string]*identity.User{alice.ID: alice}}
	return &verifierFixture{
		verifier: NewVerifier(tokens, keys, users),
		tokens:   tokens,
		keys:     keys,
		users:    users,
		alice:    alice,
	}
}

// TestPurpose: Validates that a request with no credentials resolves to no principal, not an error.
// Scope: Unit Test
// Expected: ResolvePrincipal returns (nil, nil) for empty bearer and key.
// Test Case ID: VER-01
func TestVerifier_Anonymous(t *testing.T) {
	f := newVerifierFixture()

	p, err := f.verifier.ResolvePrincipal(context.Background(), "", "")
	require.NoError(t, err)
	assert.Nil(t, p)
}

// TestPurpose: Validates bearer token resolution, with the subject re-resolved against the user store.
// Scope: Unit Test
// Security: Deactivation takes effect on outstanding tokens immediately
// Expected: A valid token resolves; the same token fails after the user is deactivated.
// Test Case ID: VER-02
func TestVerifier_BearerToken(t *testing.T) {
	f := newVerifierFixture()
	ctx := context.Background()

	signed, err := f.tokens.Issue(f.alice.ID)
	require.NoError(t, err)

	p, err := f.verifier.ResolvePrincipal(ctx, signed, "")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, f.alice.ID, p.User.ID)
	assert.Nil(t, p.Key)

	f.alice.IsActive = false
	_, err = f.verifier.ResolvePrincipal(ctx, signed, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// TestPurpose: Validates that a bad bearer token never falls through to the API key.
// Scope: Unit Test
// Security: A presented credential must be validated, not silently ignored
// Expected: Invalid bearer plus valid key still fails with ErrInvalidCredentials.
// Test Case ID: VER-03
func TestVerifier_BadBearer_NoKeyFallthrough(t *testing.T) {
	f := newVerifierFixture()

	f.keys.raw = "vsak_goodkey"
	f.keys.key = &apikey.Key{ID: id.NewUUIDv7(), UserID: f.alice.ID, Scope: apikey.ScopeGlobal}
	f.keys.user = f.alice

	_, err := f.verifier.ResolvePrincipal(context.Background(), "garbage-token", "vsak_goodkey")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// TestPurpose: Validates API key resolution and that the principal records the key.
// Scope: Unit Test
// Expected: A valid key yields a principal with both User and Key set; an invalid key fails.
// Test Case ID: VER-04
func TestVerifier_APIKey(t *testing.T) {
	f := newVerifierFixture()
	ctx := context.Background()

	f.keys.raw = "vsak_goodkey"
	f.keys.key = &apikey.Key{ID: id.NewUUIDv7(), UserID: f.alice.ID, Scope: apikey.ScopeGlobal}
	f.keys.user = f.alice

	p, err := f.verifier.ResolvePrincipal(ctx, "", "vsak_goodkey")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, f.alice.ID, p.User.ID)
	require.NotNil(t, p.Key)
	assert.Equal(t, f.keys.key.ID, p.Key.ID)

	_, err = f.verifier.ResolvePrincipal(ctx, "", "vsak_wrongkey")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
