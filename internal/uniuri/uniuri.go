package uniuri

import (
	"crypto/rand"
	"errors"
	"math"
)

const (
	// SecurityCodeLen is the length of password reset security codes, ~119 bits of entropy.
	SecurityCodeLen = 20
	// SessionIDLen is the length of session ids, ~190 bits of entropy.
	SessionIDLen = 32
	// PasswordLen is the length of generated passwords.
	PasswordLen = 16
)

var (
	// AlphaNum is the default character set.
	AlphaNum = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")
	// Readable omits characters that are easily confused when a code is typed in by hand.
	Readable = []byte("ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789")

	// ErrCharset is returned for character sets with fewer than 2 or more than 256 characters.
	ErrCharset = errors.New("uniuri: character set must hold between 2 and 256 characters")
)

const (
	maxBufLen      = 2048
	minRegenBufLen = 16
	byteRange      = 256
)

// SecurityCode returns a new password reset security code.
func SecurityCode() (string, error) {
	return NewChars(SecurityCodeLen, Readable)
}

// SessionID returns a new session id.
func SessionID() (string, error) {
	return NewChars(SessionIDLen, AlphaNum)
}

// Password returns a new generated password.
func Password() (string, error) {
	return NewChars(PasswordLen, AlphaNum)
}

// NewChars returns a random string of length characters drawn from chars.
//
// Random bytes above the largest multiple of len(chars) are rejected so every character is
// equally likely.
func NewChars(length int, chars []byte) (string, error) {
	if length <= 0 {
		return "", nil
	}

	clen := len(chars)
	if clen < 2 || clen > byteRange {
		return "", ErrCharset
	}

	maxRb := byteRange - 1 - (byteRange % clen)
	bufLen := min(max(estimatedBufLen(length, maxRb), length), maxBufLen)

	buf := make([]byte, bufLen)
	out := make([]byte, 0, length)

	for {
		if _, err := rand.Read(buf[:bufLen]); err != nil {
			return "", err
		}

		for _, rb := range buf[:bufLen] {
			if int(rb) > maxRb {
				continue
			}

			out = append(out, chars[int(rb)%clen])
			if len(out) == length {
				return string(out), nil
			}
		}

		bufLen = min(max(estimatedBufLen(length-len(out), maxRb), minRegenBufLen), maxBufLen)
	}
}

// estimatedBufLen returns how many random bytes are likely needed when bytes above maxByte are rejected.
func estimatedBufLen(need, maxByte int) int {
	return int(math.Ceil(float64(need) * (float64(byteRange-1) / float64(maxByte))))
}
