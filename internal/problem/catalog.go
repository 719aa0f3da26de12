package problem

import "net/http"

// Tenants.
var (
	ErrDuplicateTenant = New("duplicate-tenant",
		"A tenant with the specified name already exists.", http.StatusConflict)
	ErrTenantNotFound = New("tenant-not-found",
		"The tenant could not be found.", http.StatusNotFound)
	ErrExistingTenantUserDirectory = New("existing-tenant-user-directory",
		"The user directory is already associated with the tenant.", http.StatusConflict)
	ErrTenantUserDirectoryNotFound = New("tenant-user-directory-not-found",
		"The tenant user directory could not be found.", http.StatusNotFound)
)

// User directories.
var (
	ErrDuplicateUserDirectory = New("duplicate-user-directory",
		"A user directory with the specified name already exists.", http.StatusConflict)
	ErrUserDirectoryNotFound = New("user-directory-not-found",
		"The user directory could not be found.", http.StatusNotFound)
	ErrExistingUserDirectoryUsers = New("existing-user-directory-users",
		"The user directory could not be deleted since it is still associated with one or more users.",
		http.StatusConflict)
	ErrUserDirectoryTypeNotFound = New("user-directory-type-not-found",
		"The user directory type could not be found.", http.StatusNotFound)
	ErrUserDirectoryOperationNotSupported = New("user-directory-operation-not-supported",
		"The operation is not supported by the user directory.", http.StatusBadRequest)
)

// Users and credentials.
var (
	ErrDuplicateUser = New("duplicate-user",
		"A user with the specified username already exists.", http.StatusConflict)
	ErrUserNotFound = New("user-not-found",
		"The user could not be found.", http.StatusNotFound)
	ErrAuthenticationFailed = New("authentication-failed",
		"Authentication failed.", http.StatusUnauthorized)
	ErrUserLocked = New("user-locked",
		"The user is locked.", http.StatusForbidden)
	ErrExpiredPassword = New("expired-password",
		"The password for the user has expired.", http.StatusForbidden)
	ErrExistingPassword = New("existing-password",
		"The password has been used recently and is not valid.", http.StatusConflict)
	ErrInvalidSecurityCode = New("invalid-security-code",
		"The security code is invalid.", http.StatusBadRequest)
	ErrAccessDenied = New("access-denied",
		"Access denied.", http.StatusForbidden)
)

// Groups and roles.
var (
	ErrDuplicateGroup = New("duplicate-group",
		"A group with the specified name already exists.", http.StatusConflict)
	ErrGroupNotFound = New("group-not-found",
		"The group could not be found.", http.StatusNotFound)
	ErrExistingGroupMembers = New("existing-group-members",
		"The group could not be deleted since it is still associated with one or more members.",
		http.StatusConflict)
	ErrExistingGroupMember = New("existing-group-member",
		"The group member already exists.", http.StatusConflict)
	ErrGroupMemberNotFound = New("group-member-not-found",
		"The group member could not be found.", http.StatusNotFound)
	ErrExistingGroupRole = New("existing-group-role",
		"The group role already exists.", http.StatusConflict)
	ErrGroupRoleNotFound = New("group-role-not-found",
		"The group role could not be found.", http.StatusNotFound)
	ErrRoleNotFound = New("role-not-found",
		"The role could not be found.", http.StatusNotFound)
)

// Functions.
var (
	ErrDuplicateFunction = New("duplicate-function",
		"A function with the specified code already exists.", http.StatusConflict)
	ErrFunctionNotFound = New("function-not-found",
		"The function could not be found.", http.StatusNotFound)
)

// Tokens.
var (
	ErrDuplicateToken = New("duplicate-token",
		"A token with the specified name already exists.", http.StatusConflict)
	ErrTokenNotFound = New("token-not-found",
		"The token could not be found.", http.StatusNotFound)
	ErrInvalidToken = New("invalid-token",
		"The token is invalid.", http.StatusUnauthorized)
)

// Policies.
var (
	ErrDuplicatePolicy = New("duplicate-policy",
		"A policy with the specified ID already exists.", http.StatusConflict)
	ErrPolicyNotFound = New("policy-not-found",
		"The policy could not be found.", http.StatusNotFound)
	ErrInvalidPolicyData = New("invalid-policy-data",
		"The policy data is invalid.", http.StatusBadRequest)
)

// Generic.
var (
	ErrInvalidArgument = New("invalid-argument",
		"Invalid argument.", http.StatusBadRequest)
	ErrServiceUnavailable = New("service-unavailable",
		"The security service is currently unavailable.", http.StatusServiceUnavailable)
)
