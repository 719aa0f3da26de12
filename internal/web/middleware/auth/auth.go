package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/web/session"
)

const (
	// LocalsPrincipal holds the *security.UserDetails of the request.
	LocalsPrincipal = "principal"
	// LocalsSessionID holds the session id of the request.
	LocalsSessionID = "sessionID"
	// LocalsUsername holds the username, picked up by the access log.
	LocalsUsername = "username"

	bearerPrefix = "Bearer "
)

// SessionIDFromRequest returns the session id carried by the session cookie or the Authorization
// bearer header.
func SessionIDFromRequest(c fiber.Ctx, cookieName string) string {
	if id := c.Cookies(cookieName); id != "" {
		return id
	}

	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}

	return ""
}

// Authenticated rejects requests without a valid session. The principal of the session is stored
// in the locals and in the request context.
func Authenticated(store *session.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := SessionIDFromRequest(c, store.CookieName())

		data, err := store.Read(id)
		if err != nil {
			return fmt.Errorf("%w: no valid session", problem.ErrAuthenticationFailed)
		}

		principal := &data.Principal

		c.Locals(LocalsPrincipal, principal)
		c.Locals(LocalsSessionID, id)
		c.Locals(LocalsUsername, principal.Username)
		c.SetContext(security.ContextWithPrincipal(c.Context(), principal))

		return c.Next()
	}
}

// Principal returns the authenticated principal of the request.
func Principal(c fiber.Ctx) (*security.UserDetails, bool) {
	p, ok := c.Locals(LocalsPrincipal).(*security.UserDetails)
	return p, ok && p != nil
}

// RequireAnyAuthority lets requests pass whose principal holds at least one of the authorities.
// Administrators always pass.
func RequireAnyAuthority(authorities ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		p, ok := Principal(c)
		if !ok {
			return problem.ErrAuthenticationFailed
		}

		if p.IsAdministrator() || p.HasAnyAuthority(authorities...) {
			return c.Next()
		}

		return fmt.Errorf("%w: %s %s", problem.ErrAccessDenied, c.Method(), c.Path())
	}
}

// RequireFunction lets requests pass whose principal may perform one of the function codes.
func RequireFunction(codes ...string) fiber.Handler {
	authorities := make([]string, len(codes))
	for i, code := range codes {
		authorities[i] = security.FunctionAuthority(code)
	}

	return RequireAnyAuthority(authorities...)
}

// RequireUserDirectoryAccess lets requests pass whose principal may administer the user directory
// named by the route parameter param.
func RequireUserDirectoryAccess(param string) fiber.Handler {
	return func(c fiber.Ctx) error {
		p, ok := Principal(c)
		if !ok {
			return problem.ErrAuthenticationFailed
		}

		id, err := uuid.Parse(c.Params(param))
		if err != nil {
			return fmt.Errorf("%w: invalid user directory id", problem.ErrInvalidArgument)
		}

		if !p.HasAccessToUserDirectory(id) {
			return fmt.Errorf("%w: user directory %s", problem.ErrAccessDenied, id)
		}

		return c.Next()
	}
}
