package db

import (
	"strings"

	"github.com/jcooky/go-din"
	"github.com/tracelit/tracelit/config"
	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/internal/mylog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	Key = din.NewRandomName()
)

func OpenDB(databaseUrl string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(databaseUrl, "postgres://") || strings.HasPrefix(databaseUrl, "postgresql://") {
		dialector = postgres.Open(databaseUrl)
	} else {
		dialector = sqlite.Open(databaseUrl)
	}

	db, err := gorm.Open(dialector)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// sqlite does not enforce foreign keys unless asked, and the cascade
	// deletes rely on them.
	if db.Dialector.Name() == "sqlite" {
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, errors.Wrapf(err, "failed to enable foreign keys")
		}
	}

	return db, nil
}

func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrapf(err, "failed to get db")
	}
	if err := sqlDB.Close(); err != nil {
		return errors.Wrapf(err, "failed to close db")
	}

	return nil
}

func init() {
	din.Register(Key, func(c *din.Container) (any, error) {
		logger, err := din.Get[*mylog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}

		cfg, err := din.GetT[*config.DBConfig](c)
		if err != nil {
			return nil, err
		}

		logger.Info("initialize database")
		db, err := OpenDB(cfg.DatabaseUrl)
		if err != nil {
			return nil, err
		}

		if c.Env == din.EnvTest {
			if err := DropAll(c, db); err != nil {
				return nil, errors.Wrapf(err, "failed to drop database")
			}
		}
		if cfg.DatabaseAutoMigrate || c.Env == din.EnvTest {
			if err := AutoMigrate(c, db); err != nil {
				return nil, errors.Wrapf(err, "failed to migrate database")
			}
		}

		go func() {
			<-c.Done()
			if err := CloseDB(db); err != nil {
				logger.Warn("failed to close database", "err", err)
			}
			logger.Info("database closed")
		}()

		return db, nil
	})
}
