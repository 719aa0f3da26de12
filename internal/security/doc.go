// Package security implements the security service of the identity module.
//
// # Service
//
// Service is the façade over the repositories and user directories. It manages:
//   - tenants and the user directories associated with them
//   - user directories of the internal and LDAP types
//   - users, passwords and password resets
//   - groups, their members and the roles granted to them
//   - functions, the permissions roles are made of
//   - signed API tokens
//   - XACML policies
//
// Every operation reports failures with the error catalog of the problem package.
//
// # Authorities
//
// UserDetailsService flattens everything a user is allowed to do into authorities:
//   - FUNCTION_<code> for every function granted through the roles of the user's groups
//   - ROLE_<code> for every role granted to the user's groups
//   - TENANT_<id> for every tenant the user's directory belongs to
//   - USER_DIRECTORY_<id> for every user directory of those tenants
//
// AuthenticationManager verifies credentials with the Service and loads the UserDetails of the
// authenticated user.
//
// Example usage:
//
//	svc, err := security.New(repos, security.WithTokenSigning("lobkit", key))
//	manager := security.NewAuthenticationManager(svc, security.NewUserDetailsService(repos))
//
//	auth, err := manager.Authenticate(ctx, "jane", "secret")
//	if auth.Principal.HasAuthority(security.FunctionAuthority(security.FunctionUserAdministration)) {
//	    ...
//	}
package security
