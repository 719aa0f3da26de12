package security

import "github.com/lobkit/identity/internal/db/models"

// Authority prefixes of UserDetails.Authorities.
const (
	FunctionAuthorityPrefix      = "FUNCTION_"
	RoleAuthorityPrefix          = "ROLE_"
	TenantAuthorityPrefix        = "TENANT_"
	UserDirectoryAuthorityPrefix = "USER_DIRECTORY_"
)

// Role codes.
const (
	// RoleAdministrator has access to everything and may only be granted by another administrator.
	RoleAdministrator = "Administrator"
	// RoleTenantAdministrator administers the user directories of the tenants it is scoped to.
	RoleTenantAdministrator = "TenantAdministrator"
	// RolePasswordResetter may reset the passwords of users.
	RolePasswordResetter = "PasswordResetter"
)

// Function codes. Functions are the permissions checked by the REST API.
const (
	// FunctionTenantAdministration allows managing tenants and their user directories.
	FunctionTenantAdministration = "Security.TenantAdministration"
	// FunctionUserDirectoryAdministration allows managing user directories.
	FunctionUserDirectoryAdministration = "Security.UserDirectoryAdministration"
	// FunctionUserAdministration allows managing users.
	FunctionUserAdministration = "Security.UserAdministration"
	// FunctionGroupAdministration allows managing groups and their role grants.
	FunctionGroupAdministration = "Security.GroupAdministration"
	// FunctionUserGroups allows managing group memberships.
	FunctionUserGroups = "Security.UserGroups"
	// FunctionResetUserPassword allows administrative password changes.
	FunctionResetUserPassword = "Security.ResetUserPassword"
	// FunctionFunctionAdministration allows managing functions.
	FunctionFunctionAdministration = "Security.FunctionAdministration"
	// FunctionTokenAdministration allows generating and revoking tokens.
	FunctionTokenAdministration = "Security.TokenAdministration"
	// FunctionPolicyAdministration allows managing XACML policies.
	FunctionPolicyAdministration = "Security.PolicyAdministration"
)

// FunctionAuthority returns the authority of a function code.
func FunctionAuthority(code string) string {
	return FunctionAuthorityPrefix + code
}

// RoleAuthority returns the authority of a role code.
func RoleAuthority(code string) string {
	return RoleAuthorityPrefix + code
}

// DefaultRoles are the roles every installation starts with.
func DefaultRoles() []models.Role {
	return []models.Role{
		{Code: RoleAdministrator, Name: "Administrator", Description: "Full access to the security module"},
		{Code: RoleTenantAdministrator, Name: "Tenant Administrator", Description: "Administers the user directories of a tenant"},
		{Code: RolePasswordResetter, Name: "Password Resetter", Description: "Resets user passwords"},
	}
}

// DefaultFunctions are the functions every installation starts with.
func DefaultFunctions() []models.Function {
	return []models.Function{
		{Code: FunctionTenantAdministration, Name: "Tenant Administration"},
		{Code: FunctionUserDirectoryAdministration, Name: "User Directory Administration"},
		{Code: FunctionUserAdministration, Name: "User Administration"},
		{Code: FunctionGroupAdministration, Name: "Group Administration"},
		{Code: FunctionUserGroups, Name: "User Group Administration"},
		{Code: FunctionResetUserPassword, Name: "Reset User Password"},
		{Code: FunctionFunctionAdministration, Name: "Function Administration"},
		{Code: FunctionTokenAdministration, Name: "Token Administration"},
		{Code: FunctionPolicyAdministration, Name: "Policy Administration"},
	}
}

// DefaultRoleFunctions maps the default roles to the functions granted to them. The administrator
// role passes every function check and needs no grants.
func DefaultRoleFunctions() map[string][]string {
	return map[string][]string{
		RoleTenantAdministrator: {
			FunctionUserAdministration,
			FunctionGroupAdministration,
			FunctionUserGroups,
			FunctionResetUserPassword,
		},
		RolePasswordResetter: {
			FunctionResetUserPassword,
		},
	}
}
