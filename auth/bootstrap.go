package auth

import (
	"context"

	"github.com/jcooky/go-din"
	"github.com/tracelit/tracelit/config"
)

// Bootstrap creates the initial admin user and API key so ingestion clients
// can authenticate against a fresh deployment.
func Bootstrap(ctx context.Context, c *din.Container) error {
	cfg, err := din.GetT[*config.BootstrapConfig](c)
	if err != nil {
		return err
	}

	svc, err := din.GetT[Service](c)
	if err != nil {
		return err
	}

	user, err := svc.RegisterUser(ctx, cfg.UserEmail, cfg.UserPassword, cfg.UserName, cfg.UserImage)
	if err != nil {
		return err
	}

	if cfg.ApiKey == "" {
		return nil
	}

	_, err = svc.CreateApiKey(ctx, "Initial API Key", user.ID, cfg.ApiKey, cfg.ProjectId)
	return err
}
