package feedback

import (
	"context"
	"log/slog"

	"github.com/jcooky/go-din"
	"gorm.io/gorm"

	"github.com/tracelit/tracelit/entity"
	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/internal/db"
	"github.com/tracelit/tracelit/internal/mylog"
)

type (
	Feedback struct {
		Id       string  `json:"id"`
		Value    float64 `json:"value"`
		Strategy string  `json:"strategy,omitempty"`
		Comment  string  `json:"comment,omitempty"`
		StepId   *string `json:"step_id,omitempty"`
		ThreadId *string `json:"thread_id,omitempty"`
	}

	CreateFeedbackParams struct {
		Value    float64
		Strategy *string
		Comment  *string
		StepId   *string
		ThreadId *string
	}

	UpdateFeedbackParams struct {
		Value    *float64
		Strategy *string
		Comment  *string
	}

	Manager interface {
		CreateFeedback(ctx context.Context, params CreateFeedbackParams) (*Feedback, error)
		UpdateFeedback(ctx context.Context, id string, params UpdateFeedbackParams) (*Feedback, error)
	}

	manager struct {
		logger *mylog.Logger
		db     *gorm.DB
	}
)

var _ Manager = (*manager)(nil)

func (s *manager) CreateFeedback(ctx context.Context, params CreateFeedbackParams) (*Feedback, error) {
	_, tx := db.OpenSession(ctx, s.db)

	feedback := entity.Feedback{
		Value:    params.Value,
		StepID:   params.StepId,
		ThreadID: params.ThreadId,
	}
	if params.Strategy != nil {
		feedback.Strategy = *params.Strategy
	}
	if params.Comment != nil {
		feedback.Comment = *params.Comment
	}

	if err := tx.Create(&feedback).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to create feedback")
	}

	return toWire(&feedback), nil
}

func (s *manager) UpdateFeedback(ctx context.Context, id string, params UpdateFeedbackParams) (*Feedback, error) {
	_, tx := db.OpenSession(ctx, s.db)

	var feedback entity.Feedback
	if err := tx.Transaction(func(tx *gorm.DB) error {
		r := tx.Find(&feedback, "id = ?", id)
		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find feedback")
		}
		if r.RowsAffected == 0 {
			return errors.Wrapf(errors.ErrNotFound, "feedback %q not found", id)
		}

		if params.Value != nil {
			feedback.Value = *params.Value
		}
		if params.Strategy != nil {
			feedback.Strategy = *params.Strategy
		}
		if params.Comment != nil {
			feedback.Comment = *params.Comment
		}

		return errors.Wrapf(tx.Save(&feedback).Error, "failed to save feedback")
	}); err != nil {
		return nil, err
	}

	return toWire(&feedback), nil
}

func toWire(f *entity.Feedback) *Feedback {
	return &Feedback{
		Id:       f.ID,
		Value:    f.Value,
		Strategy: f.Strategy,
		Comment:  f.Comment,
		StepId:   f.StepID,
		ThreadId: f.ThreadID,
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
