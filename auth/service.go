package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jcooky/go-din"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tracelit/tracelit/config"
	"github.com/tracelit/tracelit/entity"
	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/internal/db"
	"github.com/tracelit/tracelit/internal/mylog"
)

type (
	Service interface {
		ValidateApiKey(ctx context.Context, key string) (bool, error)
		CreateAccessToken(subject string) (string, error)
		RegisterUser(ctx context.Context, email, password, name, image string) (*entity.User, error)
		CreateApiKey(ctx context.Context, name, userId, key, projectId string) (*entity.ApiKey, error)
	}

	service struct {
		logger *mylog.Logger
		db     *gorm.DB
		cfg    *config.ServerConfig
	}
)

var _ Service = (*service)(nil)

func (s *service) ValidateApiKey(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}

	_, tx := db.OpenSession(ctx, s.db)

	var count int64
	if err := tx.Model(&entity.ApiKey{}).Where("key = ?", key).Count(&count).Error; err != nil {
		return false, errors.Wrapf(err, "failed to look up api key")
	}

	return count > 0, nil
}

func (s *service) CreateAccessToken(subject string) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Duration(s.cfg.AccessTokenExpiresIn) * time.Minute).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JwtSecret))
	if err != nil {
		return "", errors.Wrapf(err, "failed to sign access token")
	}

	return token, nil
}

func (s *service) RegisterUser(ctx context.Context, email, password, name, image string) (*entity.User, error) {
	if email == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "email is required")
	}

	_, tx := db.OpenSession(ctx, s.db)

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	var user entity.User
	if err := tx.Transaction(func(tx *gorm.DB) error {
		r := tx.Find(&user, "email = ?", email)
		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find user")
		}
		if r.RowsAffected > 0 {
			return nil
		}

		user = entity.User{
			Email:          email,
			Name:           name,
			HashedPassword: hashed,
			Image:          image,
		}
		return errors.Wrapf(tx.Create(&user).Error, "failed to create user")
	}); err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *service) CreateApiKey(ctx context.Context, name, userId, key, projectId string) (*entity.ApiKey, error) {
	if key == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "api key value is required")
	}

	_, tx := db.OpenSession(ctx, s.db)

	var apikey entity.ApiKey
	if err := tx.Transaction(func(tx *gorm.DB) error {
		r := tx.Find(&apikey, "key = ?", key)
		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find api key")
		}
		if r.RowsAffected > 0 {
			return nil
		}

		apikey = entity.ApiKey{
			Name:      name,
			Key:       key,
			UserID:    userId,
			ProjectID: projectId,
		}
		return errors.Wrapf(tx.Create(&apikey).Error, "failed to create api key")
	}); err != nil {
		return nil, err
	}

	return &apikey, nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrapf(err, "failed to hash password")
	}
	return string(hashed), nil
}

func VerifyPassword(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

func init() {
	din.RegisterT(func(c *din.Container) (Service, error) {
		logger, err := din.Get[*slog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}

		cfg, err := din.GetT[*config.ServerConfig](c)
		if err != nil {
			return nil, err
		}

		return &service{
			logger: logger,
			db:     din.MustGet[*gorm.DB](c, db.Key),
			cfg:    cfg,
		}, nil
	})
}
