package uniuri

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChars(t *testing.T) {
	testCases := []struct {
		name    string
		length  int
		chars   []byte
		wantErr error
	}{
		{"security code", SecurityCodeLen, Readable, nil},
		{"long", 5000, AlphaNum, nil},
		{"binary", 64, []byte("01"), nil},
		{"zero length", 0, AlphaNum, nil},
		{"charset too small", 8, []byte("a"), ErrCharset},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewChars(tc.length, tc.chars)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Len(t, s, tc.length)

			for _, r := range s {
				assert.True(t, strings.ContainsRune(string(tc.chars), r), "unexpected character %q", r)
			}
		})
	}
}

func TestGenerators(t *testing.T) {
	code, err := SecurityCode()
	require.NoError(t, err)
	assert.Len(t, code, SecurityCodeLen)
	assert.NotContains(t, code, "0")
	assert.NotContains(t, code, "O")

	other, err := SecurityCode()
	require.NoError(t, err)
	assert.NotEqual(t, code, other)

	id, err := SessionID()
	require.NoError(t, err)
	assert.Len(t, id, SessionIDLen)

	pw, err := Password()
	require.NoError(t, err)
	assert.Len(t, pw, PasswordLen)
}
