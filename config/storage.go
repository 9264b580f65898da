package config

import (
	"github.com/jcooky/go-din"
)

type StorageConfig struct {
	BucketName      string `env:"AWS_BUCKET_NAME"`
	Region          string `env:"AWS_DEFAULT_REGION"`
	AccessKeyId     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

func init() {
	din.RegisterT(func(c *din.Container) (*StorageConfig, error) {
		conf := &StorageConfig{
			Region: "us-east-2",
		}
		return conf, resolveConfig(conf, c.Env == din.EnvTest)
	})
}
