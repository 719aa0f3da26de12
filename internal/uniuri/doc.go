// Package uniuri generates the random strings the security module hands out: password reset
// security codes, session ids and generated passwords.
package uniuri
