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

package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualstack/virtualstack/internal/id"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// TestPurpose: Validates the issue/verify round trip.
// Scope: Unit Test
// Expected: Verify returns the subject user ID of a freshly issued token.
// Test Case ID: TOK-01
func TestToken_IssueVerify_RoundTrip(t *testing.T) {
	m := NewManager(testSecret, 30*time.Minute)
	userID := id.NewUUIDv7()

	signed, err := m.Issue(userID)
	require.NoError(t, err)

	subject, err := m.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, userID, subject)
}

// TestPurpose: Validates that expiry is enforced against the verifier's clock.
// Scope: Unit Test
// Security: Token lifetime bound
// Expected: A token past its TTL fails with ErrExpiredToken.
// Test Case ID: TOK-02
func TestToken_Verify_Expired(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(testSecret, 30*time.Minute)
	m.now = func() time.Time { return issued }

	signed, err := m.Issue(id.NewUUIDv7())
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(29 * time.Minute) }
	_, err = m.Verify(signed)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(31 * time.Minute) }
	_, err = m.Verify(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

// TestPurpose: Validates rejection of tampered and foreign-signed tokens.
// Scope: Unit Test
// Security: Signature integrity
// Expected: Modified payloads and tokens signed with another secret fail with ErrInvalidToken.
// Test Case ID: TOK-03
func TestToken_Verify_Tampered(t *testing.T) {
	m := NewManager(testSecret, 30*time.Minute)

	signed, err := m.Issue(id.NewUUIDv7())
	require.NoError(t, err)

	_, err = m.Verify(signed + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewManager("another-secret-another-secret-32", 30*time.Minute)
	foreign, err := other.Issue(id.NewUUIDv7())
	require.NoError(t, err)
	_, err = m.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestPurpose: Validates that a token whose subject is not a well-formed ID is rejected.
// Scope: Unit Test
// Expected: Verify returns ErrInvalidToken for a malformed subject claim.
// Test Case ID: TOK-04
func TestToken_Verify_MalformedSubject(t *testing.T) {
	m := NewManager(testSecret, 30*time.Minute)

	signed, err := m.Issue("not-a-uuid")
	require.NoError(t, err)

	_, err = m.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
