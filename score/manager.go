package score

import (
	"context"
	"log/slog"

	"github.com/jcooky/go-din"
	"gorm.io/gorm"

	"github.com/tracelit/tracelit/cursor"
	"github.com/tracelit/tracelit/entity"
	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/internal/db"
	"github.com/tracelit/tracelit/internal/mylog"
	"github.com/tracelit/tracelit/thread"
)

type (
	CreateScoreParams struct {
		Name                    string
		Type                    string
		Value                   float64
		Comment                 *string
		Tags                    []string
		StepId                  *string
		GenerationId            *string
		DatasetExperimentItemId *string
	}

	UpdateScoreParams struct {
		Name                    *string
		Type                    *string
		Value                   *float64
		Comment                 *string
		Tags                    []string
		StepId                  *string
		GenerationId            *string
		DatasetExperimentItemId *string
	}

	Manager interface {
		CreateScore(ctx context.Context, params CreateScoreParams) (*thread.Score, error)
		GetScoreById(ctx context.Context, id string) (*thread.Score, error)
		UpdateScore(ctx context.Context, id string, params UpdateScoreParams) (*thread.Score, error)
		DeleteScore(ctx context.Context, id string) (string, error)
	}

	manager struct {
		logger *mylog.Logger
		db     *gorm.DB
	}
)

var _ Manager = (*manager)(nil)

func (s *manager) CreateScore(ctx context.Context, params CreateScoreParams) (*thread.Score, error) {
	_, tx := db.OpenSession(ctx, s.db)

	score := entity.Score{
		Name:                    params.Name,
		Type:                    entity.ScoreType(params.Type),
		Value:                   params.Value,
		Tags:                    params.Tags,
		StepID:                  params.StepId,
		GenerationID:            params.GenerationId,
		DatasetExperimentItemID: params.DatasetExperimentItemId,
	}
	if params.Comment != nil {
		score.Comment = *params.Comment
	}

	if err := tx.Create(&score).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to create score")
	}

	return toWire(&score), nil
}

func (s *manager) GetScoreById(ctx context.Context, id string) (*thread.Score, error) {
	_, tx := db.OpenSession(ctx, s.db)

	id = cursor.DecodeLenient(id)

	var score entity.Score
	r := tx.Find(&score, "id = ?", id)
	if r.Error != nil {
		return nil, errors.Wrapf(r.Error, "failed to find score")
	}
	if r.RowsAffected == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "score %q not found", id)
	}

	return toWire(&score), nil
}

func (s *manager) UpdateScore(ctx context.Context, id string, params UpdateScoreParams) (*thread.Score, error) {
	_, tx := db.OpenSession(ctx, s.db)

	var score entity.Score
	if err := tx.Transaction(func(tx *gorm.DB) error {
		r := tx.Find(&score, "id = ?", id)
		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find score")
		}
		if r.RowsAffected == 0 {
			return errors.Wrapf(errors.ErrNotFound, "score %q not found", id)
		}

		if params.Name != nil {
			score.Name = *params.Name
		}
		if params.Type != nil {
			score.Type = entity.ScoreType(*params.Type)
		}
		if params.Value != nil {
			score.Value = *params.Value
		}
		if params.Comment != nil {
			score.Comment = *params.Comment
		}
		if params.Tags != nil {
			score.Tags = params.Tags
		}
		if params.StepId != nil {
			score.StepID = params.StepId
		}
		if params.GenerationId != nil {
			score.GenerationID = params.GenerationId
		}
		if params.DatasetExperimentItemId != nil {
			score.DatasetExperimentItemID = params.DatasetExperimentItemId
		}

		return errors.Wrapf(tx.Save(&score).Error, "failed to save score")
	}); err != nil {
		return nil, err
	}

	return toWire(&score), nil
}

func (s *manager) DeleteScore(ctx context.Context, id string) (string, error) {
	_, tx := db.OpenSession(ctx, s.db)

	id = cursor.DecodeLenient(id)

	if err := tx.Transaction(func(tx *gorm.DB) error {
		var score entity.Score
		r := tx.Find(&score, "id = ?", id)
		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find score")
		}
		if r.RowsAffected == 0 {
			return errors.Wrapf(errors.ErrNotFound, "score %q not found", id)
		}

		return errors.Wrapf(tx.Delete(&score).Error, "failed to delete score")
	}); err != nil {
		return "", err
	}

	return id, nil
}

func toWire(s *entity.Score) *thread.Score {
	return &thread.Score{
		Id:                      s.ID,
		Name:                    s.Name,
		Type:                    string(s.Type),
		Value:                   s.Value,
		Comment:                 s.Comment,
		Tags:                    s.Tags,
		StepId:                  s.StepID,
		GenerationId:            s.GenerationID,
		DatasetExperimentItemId: s.DatasetExperimentItemID,
	}
}

func init() {
	din.RegisterT(func(c *din.Container) (Manager, error) {
		logger, err := din.Get[*slog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}

		return &manager{
			logger: logger,
			db:     din.MustGet[*gorm.DB](c, db.Key),
		}, nil
	})
}
