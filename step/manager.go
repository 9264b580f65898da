package step

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jcooky/go-din"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tracelit/tracelit/entity"
	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/internal/db"
	"github.com/tracelit/tracelit/internal/mylog"
	"github.com/tracelit/tracelit/storage"
	"github.com/tracelit/tracelit/thread"
)

const (
	// Step ingestion may race the creation of its thread; the upsert polls
	// for the parent before giving up.
	parentPollAttempts = 10
	parentPollDelay    = 200 * time.Millisecond
)

type (
	ScorePayload struct {
		Id                      string   `json:"id,omitempty"`
		Name                    string   `json:"name,omitempty"`
		Type                    string   `json:"type,omitempty"`
		Value                   float64  `json:"value"`
		Comment                 string   `json:"comment,omitempty"`
		Tags                    []string `json:"tags,omitempty"`
		GenerationId            *string  `json:"generation_id,omitempty"`
		DatasetExperimentItemId *string  `json:"dataset_experiment_item_id,omitempty"`
	}

	UpsertStepParams struct {
		Id          string
		ThreadId    string
		StartTime   *time.Time
		EndTime     *time.Time
		Type        *string
		Error       *string
		Input       map[string]any
		Output      map[string]any
		Metadata    map[string]any
		ParentId    *string
		Name        *string
		Tags        []string
		Scores      []ScorePayload
		Generation  map[string]any
		Attachments []*thread.Attachment
	}

	Manager interface {
		UpsertStep(ctx context.Context, params UpsertStepParams) (*thread.Step, error)
		GetStepById(ctx context.Context, id string) (*thread.Step, error)
		DeleteStep(ctx context.Context, id string) (string, error)
	}

	manager struct {
		logger *mylog.Logger
		db     *gorm.DB
		mapper *thread.Mapper
	}
)

var _ Manager = (*manager)(nil)

func (s *manager) UpsertStep(ctx context.Context, params UpsertStepParams) (*thread.Step, error) {
	if params.Id == "" || params.ThreadId == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "step id and thread id are required")
	}

	_, tx := db.OpenSession(ctx, s.db)

	if err := s.awaitParentThread(ctx, tx, params.ThreadId); err != nil {
		return nil, err
	}

	var result *thread.Step
	if err := tx.Transaction(func(tx *gorm.DB) error {
		step := entity.Step{
			ID:        params.Id,
			ThreadID:  params.ThreadId,
			StartTime: params.StartTime,
			EndTime:   params.EndTime,
			ParentID:  params.ParentId,
			Input:     params.Input,
			Output:    params.Output,
			Metadata:  params.Metadata,
			Tags:      params.Tags,
			CreatedAt: time.Now().UTC(),
		}
		if params.Type != nil {
			step.Type = entity.StepType(*params.Type)
		}
		if params.Error != nil {
			step.Error = *params.Error
		}
		if params.Name != nil {
			step.Name = *params.Name
		}

		assignments := map[string]any{
			"thread_id": params.ThreadId,
		}
		setIfNotNil := func(column string, value any, present bool) {
			if present {
				assignments[column] = value
			}
		}
		setIfNotNil("start_time", params.StartTime, params.StartTime != nil)
		setIfNotNil("end_time", params.EndTime, params.EndTime != nil)
		setIfNotNil("parent_id", params.ParentId, params.ParentId != nil)
		setIfNotNil("type", step.Type, params.Type != nil)
		setIfNotNil("error", step.Error, params.Error != nil)
		setIfNotNil("name", step.Name, params.Name != nil)
		setIfNotNil("input", step.Input, params.Input != nil)
		setIfNotNil("output", step.Output, params.Output != nil)
		setIfNotNil("metadata", step.Metadata, params.Metadata != nil)
		setIfNotNil("tags", step.Tags, params.Tags != nil)

		if params.Generation != nil {
			raw, err := json.Marshal(params.Generation)
			if err != nil {
				return errors.Wrapf(err, "failed to serialize generation payload")
			}
			step.Generation = raw
			assignments["generation"] = step.Generation
		}
		if params.Attachments != nil {
			raw, err := json.Marshal(params.Attachments)
			if err != nil {
				return errors.Wrapf(err, "failed to serialize attachments payload")
			}
			step.Attachments = raw
			assignments["attachments"] = step.Attachments
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(assignments),
		}).Create(&step).Error; err != nil {
			return errors.Wrapf(err, "failed to upsert step")
		}

		for _, payload := range params.Scores {
			score := entity.Score{
				ID:                      payload.Id,
				Name:                    payload.Name,
				Type:                    entity.ScoreType(payload.Type),
				Value:                   payload.Value,
				Comment:                 payload.Comment,
				Tags:                    payload.Tags,
				StepID:                  &step.ID,
				GenerationID:            payload.GenerationId,
				DatasetExperimentItemID: payload.DatasetExperimentItemId,
			}
			if err := tx.Save(&score).Error; err != nil {
				return errors.Wrapf(err, "failed to save score")
			}
		}

		updated, err := getStep(tx, step.ID)
		if err != nil {
			return err
		}

		result, err = s.mapper.StepToWire(ctx, updated)
		return err
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// awaitParentThread tolerates the eventual-consistency race where a step
// arrives slightly before its thread's creation has committed.
func (s *manager) awaitParentThread(ctx context.Context, tx *gorm.DB, threadId string) error {
	attempt := 0
	check := func() error {
		attempt++
		var count int64
		if err := tx.Model(&entity.Thread{}).Where("id = ?", threadId).Count(&count).Error; err != nil {
			return backoff.Permanent(errors.Wrapf(err, "failed to check parent thread"))
		}
		if count == 0 {
			return errors.Wrapf(errors.ErrNotFound, "parent thread %q not ready", threadId)
		}
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(parentPollDelay), parentPollAttempts-1),
		ctx,
	)
	if err := backoff.Retry(check, b); err != nil {
		s.logger.Warn("parent thread not ready", "thread_id", threadId, "attempts", attempt)
		return err
	}

	return nil
}

func getStep(tx *gorm.DB, id string) (*entity.Step, error) {
	var step entity.Step
	r := tx.Preload("Scores").Find(&step, "id = ?", id)
	if r.Error != nil {
		return nil, errors.Wrapf(r.Error, "failed to find step")
	}
	if r.RowsAffected == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "step %q not found", id)
	}
	return &step, nil
}

func (s *manager) GetStepById(ctx context.Context, id string) (*thread.Step, error) {
	_, tx := db.OpenSession(ctx, s.db)

	step, err := getStep(tx, id)
	if err != nil {
		return nil, err
	}

	return s.mapper.StepToWire(ctx, step)
}

func (s *manager) DeleteStep(ctx context.Context, id string) (string, error) {
	_, tx := db.OpenSession(ctx, s.db)

	if err := tx.Transaction(func(tx *gorm.DB) error {
		var step entity.Step
		r := tx.Find(&step, "id = ?", id)
		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find step")
		}
		if r.RowsAffected == 0 {
			return errors.Wrapf(errors.ErrNotFound, "step %q not found", id)
		}

		return errors.Wrapf(tx.Delete(&step).Error, "failed to delete step")
	}); err != nil {
		return "", err
	}

	return id, nil
}

func init() {
	din.RegisterT(func(c *din.Container) (Manager, error) {
		logger, err := din.Get[*slog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}

		presigner, err := din.GetT[storage.Presigner](c)
		if err != nil {
			return nil, err
		}

		return &manager{
			logger: logger,
			db:     din.MustGet[*gorm.DB](c, db.Key),
			mapper: thread.NewMapper(presigner),
		}, nil
	})
}
