package daemon

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/lobkit/identity/internal/config"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/uniuri"
)

// seed creates the default roles, functions and the administrator account. Without a configured
// password the administrator gets a generated one, logged once.
func seed(ctx context.Context, cfg *config.Config, svc *security.Service) error {
	req := security.SeedRequest{
		AdministratorUsername: cfg.Security.AdministratorUsername,
		AdministratorPassword: cfg.Security.AdministratorPassword,
	}

	if req.AdministratorUsername != "" && req.AdministratorPassword == "" {
		exists, err := svc.Repositories().Users.ExistsByUsernameInAnyDirectory(ctx, req.AdministratorUsername)
		if err != nil {
			return err
		}

		if !exists {
			if req.AdministratorPassword, err = uniuri.Password(); err != nil {
				return err
			}

			log.Warn().Str("username", req.AdministratorUsername).Str("password", req.AdministratorPassword).
				Msg("no administrator password configured, generated one")
		}
	}

	return svc.Seed(ctx, req)
}
