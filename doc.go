// Package main provides the entry point of the lobkit identity service.
// It manages tenants, user directories, users, groups, roles, functions, tokens and XACML
// policies, authenticates users against internal and LDAP user directories and serves the
// security administration REST API using the Fiber framework. Data is persisted with gorm in
// MySQL, PostgreSQL or SQLite.
package main
