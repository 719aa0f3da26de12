package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStatusConverter(t *testing.T) {
	testCases := []struct {
		name    string
		column  any
		want    UserStatus
		wantErr bool
	}{
		{"int64 active", int64(1), UserStatusActive, false},
		{"bytes locked", []byte("2"), UserStatusLocked, false},
		{"string expired", "3", UserStatusExpired, false},
		{"out of range", int64(9), 0, true},
		{"null", nil, 0, true},
		{"float", 1.5, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var s UserStatus

			err := s.Scan(tc.column)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, s)

			v, err := s.Value()
			require.NoError(t, err)
			assert.Equal(t, int64(tc.want), v)
		})
	}
}

func TestEnumValueRejectsUnknownCodes(t *testing.T) {
	_, err := TenantStatus(7).Value()
	require.Error(t, err)

	_, err = PasswordResetStatus(-1).Value()
	require.Error(t, err)

	_, err = TokenType("saml").Value()
	require.Error(t, err)
}

func TestEnumJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Tenant TenantStatus `json:"tenant"`
		Policy PolicyType   `json:"policy"`
	}{TenantStatusActive, PolicyTypeXACMLPolicySet})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tenant":"active","policy":"xacml_policy_set"}`, string(out))

	var in struct {
		Status UserStatus `json:"status"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"status":"LOCKED"}`), &in))
	assert.Equal(t, UserStatusLocked, in.Status)
	require.Error(t, json.Unmarshal([]byte(`{"status":"gone"}`), &in))
}

func TestTokenStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	testCases := []struct {
		name  string
		token Token
		want  TokenStatus
	}{
		{"no dates", Token{}, TokenStatusActive},
		{"pending", Token{ValidFromDate: &after}, TokenStatusPending},
		{"expired", Token{ExpiryDate: &before}, TokenStatusExpired},
		{"revoked wins over expired", Token{ExpiryDate: &before, RevocationDate: &before}, TokenStatusRevoked},
		{"revocation in the future", Token{RevocationDate: &after}, TokenStatusActive},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.token.Status(now))
		})
	}
}

func TestTokenClaimsConverter(t *testing.T) {
	claims := TokenClaims{{Name: "scope", Values: []string{"read", "write"}}}

	v, err := claims.Value()
	require.NoError(t, err)

	var scanned TokenClaims
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, claims, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)

	u := User{Password: hash}
	assert.True(t, u.VerifyPassword("s3cret!"))
	assert.False(t, u.VerifyPassword("wrong"))
	assert.False(t, (&User{}).VerifyPassword(""))
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, SortDescending, ParseSortDirection("DESC"))
	assert.Equal(t, SortAscending, ParseSortDirection(""))
	assert.Equal(t, UserSortByUsername, ParseUserSortBy("username"))
	assert.Equal(t, UserSortByPreferredName, ParseUserSortBy("preferredName"))
	assert.Equal(t, UserSortByName, ParseUserSortBy("whatever"))
}
