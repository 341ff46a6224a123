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

package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/virtualstack/virtualstack/internal/audit"
)

// MockUserRepository is a simple in-memory implementation of Repository
type MockUserRepository struct {
	users map[string]*User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*User)}
}

func (m *MockUserRepository) Create(ctx context.Context, user *User) error {
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *User) error {
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return nil
}

func (m *MockUserRepository) SetActive(ctx context.Context, userID string, active bool) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, userID string) error {
	delete(m.users, userID)
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*User, error) {
	var out []*User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

// Small parameters keep argon2 fast in tests; production values come from config.
func testHasher() *PasswordHasher {
	return NewPasswordHasher(8192, 1, 1, 16, 32)
}

func newTestService() (*Service, *MockUserRepository) {
	repo := NewMockUserRepository()
	return NewService(repo, testHasher(), audit.NewSlogLogger()), repo
}

// TestPurpose: Validates the argon2id hash/verify round trip.
// Scope: Unit Test
// Security: Password storage is one-way and salted
// Expected: The correct password verifies, a wrong one does not, and two hashes of the same password differ.
// Test Case ID: IDN-01
func TestIdentity_Hasher_RoundTrip(t *testing.T) {
	h := testHasher()

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	ok, err := h.Verify("correct horse battery staple", hash)
	if err != nil || !ok {
		t.Fatalf("expected verify success, got ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong password", hash)
	if err != nil {
		t.Fatalf("verify errored: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}

	hash2, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == hash2 {
		t.Fatal("two hashes of the same password are identical; salt is not random")
	}
}

// TestPurpose: Validates user creation rules: email normalization, validation, and uniqueness.
// Scope: Unit Test
// Expected: Email is lower-cased, invalid emails and weak passwords are rejected, duplicates collide on the normalized form.
// Test Case ID: IDN-02
func TestIdentity_CreateUser_Validation(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, CreateUserInput{Email: "  Alice@Example.COM ", Password: "longenough1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %s", user.Email)
	}
	if !user.IsActive {
		t.Fatal("new user should be active")
	}

	if _, err := s.CreateUser(ctx, CreateUserInput{Email: "not-an-email", Password: "longenough1"}); err != ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := s.CreateUser(ctx, CreateUserInput{Email: "bob@example.com", Password: "short"}); err != ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := s.CreateUser(ctx, CreateUserInput{Email: "ALICE@example.com", Password: "longenough1"}); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

// TestPurpose: Validates the authentication flow including the inactive-user branch.
// Scope: Unit Test
// Security: Deactivated accounts cannot log in
// Expected: Correct credentials succeed and record a login time; wrong password and inactive user fail distinctly.
// Test Case ID: IDN-03
func TestIdentity_Authenticate(t *testing.T) {
	s, repo := newTestService()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, CreateUserInput{Email: "alice@example.com", Password: "longenough1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := s.Authenticate(ctx, "Alice@example.com", "longenough1")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("wrong user: %s", got.ID)
	}
	if got.LastLogin == nil {
		t.Fatal("last login not recorded")
	}

	if _, err := s.Authenticate(ctx, "alice@example.com", "wrong-password"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody@example.com", "longenough1"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	repo.users[user.ID].IsActive = false
	if _, err := s.Authenticate(ctx, "alice@example.com", "longenough1"); err != ErrUserInactive {
		t.Fatalf("expected ErrUserInactive, got %v", err)
	}
}

// TestPurpose: Validates that changing a password requires the current one and rejects weak replacements.
// Scope: Unit Test
// Expected: Wrong old password fails, weak new password fails, and the new password authenticates afterwards.
// Test Case ID: IDN-04
func TestIdentity_ChangePassword(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, CreateUserInput{Email: "alice@example.com", Password: "longenough1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := s.ChangePassword(ctx, user.ID, "wrong-password", "replacement1"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := s.ChangePassword(ctx, user.ID, "longenough1", "short"); err != ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := s.ChangePassword(ctx, user.ID, "longenough1", "replacement1"); err != nil {
		t.Fatalf("change failed: %v", err)
	}
	if _, err := s.Authenticate(ctx, "alice@example.com", "replacement1"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if _, err := s.Authenticate(ctx, "alice@example.com", "longenough1"); err != ErrInvalidCredentials {
		t.Fatalf("old password still accepted: %v", err)
	}
}
