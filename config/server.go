package config

import (
	"github.com/jcooky/go-din"
)

type ServerConfig struct {
	LogConfig

	Host string `env:"HOST"`
	Port int    `env:"PORT"`

	JwtSecret            string `env:"JWT_SECRET"`
	AccessTokenExpiresIn int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES"`
}

func init() {
	din.RegisterT(func(c *din.Container) (*ServerConfig, error) {
		conf := &ServerConfig{
			LogConfig: LogConfig{
				LogLevel:   "debug",
				LogHandler: "default",
			},
			Host:                 "0.0.0.0",
			Port:                 8000,
			JwtSecret:            "",
			AccessTokenExpiresIn: 60 * 24 * 8,
		}
		return conf, resolveConfig(conf, c.Env == din.EnvTest)
	})
}
