package db

import (
	"context"

	"github.com/tracelit/tracelit/entity"
	"github.com/tracelit/tracelit/errors"
	"gorm.io/gorm"
)

func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	_, tx := OpenSession(ctx, db)

	return errors.WithStack(tx.AutoMigrate(
		&entity.User{},
		&entity.ApiKey{},
		&entity.Participant{},
		&entity.Thread{},
		&entity.Step{},
		&entity.Score{},
		&entity.Feedback{},
	))
}

func DropAll(ctx context.Context, db *gorm.DB) error {
	_, tx := OpenSession(ctx, db)
	return errors.WithStack(tx.Migrator().DropTable(
		&entity.Feedback{},
		&entity.Score{},
		&entity.Step{},
		&entity.Thread{},
		&entity.Participant{},
		&entity.ApiKey{},
		&entity.User{},
	))
}
