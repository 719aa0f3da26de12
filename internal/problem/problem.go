// Package problem holds the error catalog of the security module.
//
// Every catalog entry is a *Problem carrying a problem type slug, a human readable title and the
// HTTP status the web layer answers with. Callers wrap entries with additional detail using
// fmt.Errorf("%w: ...") and match them with errors.Is.
package problem

import (
	"errors"
	"net/http"
)

// TypeBase prefixes every problem type slug when rendered as a problem+json type.
const TypeBase = "/problems/security/"

// Problem is a catalog error.
type Problem struct {
	// Type is the short slug of the problem type, e.g. "duplicate-user".
	Type string
	// Title is a short, human-readable summary of the problem.
	Title string
	// Status is the HTTP status code the problem maps to.
	Status int
}

// New creates a catalog entry.
func New(slug, title string, status int) *Problem {
	return &Problem{Type: slug, Title: title, Status: status}
}

// Error implements error.
func (p *Problem) Error() string {
	return p.Title
}

// URI returns the problem type as rendered in problem+json documents.
func (p *Problem) URI() string {
	return TypeBase + p.Type
}

// From returns the catalog entry wrapped by err, if any.
func From(err error) (*Problem, bool) {
	var p *Problem
	if errors.As(err, &p) {
		return p, true
	}

	return nil, false
}

// StatusOf returns the HTTP status for err, http.StatusInternalServerError if err is not a catalog error.
func StatusOf(err error) int {
	if p, ok := From(err); ok {
		return p.Status
	}

	return http.StatusInternalServerError
}
