// Package auth provides the session and authorization middleware of the REST API.
//
// Authenticated resolves the session id from the session cookie or an Authorization bearer header
// and exposes the principal to later handlers. RequireAnyAuthority, RequireFunction and
// RequireUserDirectoryAccess check the principal's authorities; administrators pass every check.
package auth
