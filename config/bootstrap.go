package config

import (
	"github.com/jcooky/go-din"
)

// BootstrapConfig describes the initial admin user and API key created at
// process startup so ingestion clients can authenticate out of the box.
type BootstrapConfig struct {
	UserEmail    string `env:"USER_EMAIL"`
	UserPassword string `env:"USER_PASSWORD"`
	UserName     string `env:"USER_NAME"`
	UserImage    string `env:"USER_IMAGE_PATH"`
	ProjectId    string `env:"USER_PROJECT_ID"`
	ApiKey       string `env:"API_KEY"`
}

func init() {
	din.RegisterT(func(c *din.Container) (*BootstrapConfig, error) {
		conf := &BootstrapConfig{
			UserEmail: "admin@localhost",
			UserName:  "Initial User",
		}
		return conf, resolveConfig(conf, c.Env == din.EnvTest)
	})
}
