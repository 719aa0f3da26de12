package security

import "context"

// Authentication is the result of a successful authentication.
type Authentication struct {
	Principal     *UserDetails
	Authorities   []string
	Authenticated bool
}

// AuthenticationManager authenticates username and password credentials.
type AuthenticationManager struct {
	service *Service
	details *UserDetailsService
}

// NewAuthenticationManager creates an AuthenticationManager.
func NewAuthenticationManager(service *Service, details *UserDetailsService) *AuthenticationManager {
	return &AuthenticationManager{service: service, details: details}
}

// Authenticate verifies the credentials with the user directory of the user and loads its details.
func (m *AuthenticationManager) Authenticate(ctx context.Context, username, password string) (*Authentication, error) {
	if _, err := m.service.Authenticate(ctx, username, password); err != nil {
		return nil, err
	}

	details, err := m.details.LoadUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	return &Authentication{
		Principal:     details,
		Authorities:   details.Authorities,
		Authenticated: true,
	}, nil
}
