// Package handler holds what the REST handler packages share: their dependencies, route roots and
// request decoding helpers.
package handler

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/lobkit/identity/internal/config"
	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/web/session"
)

const (
	// APIPath is the root of the REST API.
	APIPath = "/api"
	// SecurityPath is the root of the security administration API.
	SecurityPath = APIPath + "/security"

	// RouterRootPath is the root path within a route group.
	RouterRootPath = "/"
)

// ErrNilDependencies is returned by Init when the router or a dependency is missing.
var ErrNilDependencies = errors.New("router or handler dependencies are nil")

// Dependencies are the services handlers work with.
type Dependencies struct {
	Config         *config.Config
	Security       *security.Service
	Authentication *security.AuthenticationManager
	Sessions       *session.Store
}

// Valid reports whether every dependency is set.
func (d *Dependencies) Valid() bool {
	return d != nil && d.Config != nil && d.Security != nil && d.Authentication != nil && d.Sessions != nil
}

// Service is implemented by every handler package.
type Service interface {
	Init(router fiber.Router, deps *Dependencies) error
}

// Param returns the unescaped route parameter name.
func Param(c fiber.Ctx, name string) string {
	raw := c.Params(name)

	v, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}

	return v
}

// UUIDParam parses the route parameter name as a UUID.
func UUIDParam(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", problem.ErrInvalidArgument, name)
	}

	return id, nil
}

// ListOptions reads the filter, sortDirection, pageIndex and pageSize query parameters.
func ListOptions(c fiber.Ctx) repository.ListOptions {
	return repository.ListOptions{
		Filter:        c.Query("filter"),
		SortDirection: models.ParseSortDirection(c.Query("sortDirection")),
		PageIndex:     fiber.Query[int](c, "pageIndex", 0),
		PageSize:      fiber.Query[int](c, "pageSize", 0),
	}
}

// BoolQuery reads a boolean query parameter, false when absent or malformed.
func BoolQuery(c fiber.Ctx, name string) bool {
	return fiber.Query[bool](c, name, false)
}

// Bind decodes the request body into v.
func Bind(c fiber.Ctx, v any) error {
	if err := c.Bind().Body(v); err != nil {
		return fmt.Errorf("%w: %w", problem.ErrInvalidArgument, err)
	}

	return nil
}

// Created answers 201 with v as JSON.
func Created(c fiber.Ctx, v any) error {
	return c.Status(fiber.StatusCreated).JSON(v)
}

// NoContent answers 204.
func NoContent(c fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// Name is a JSON wrapped name.
type Name struct {
	Name string `json:"name"`
}
