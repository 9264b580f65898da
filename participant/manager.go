package participant

import (
	"context"
	"log/slog"

	"github.com/jcooky/go-din"
	"gorm.io/gorm"

	"github.com/tracelit/tracelit/entity"
	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/internal/db"
	"github.com/tracelit/tracelit/internal/mylog"
	"github.com/tracelit/tracelit/thread"
)

type (
	Manager interface {
		CreateParticipant(ctx context.Context, identifier string, metadata map[string]any) (*thread.Participant, error)
		GetParticipant(ctx context.Context, id string, identifier string) (*thread.Participant, error)
		UpdateParticipant(ctx context.Context, id string, identifier *string, metadata map[string]any) (*thread.Participant, error)
		DeleteParticipant(ctx context.Context, id string) error
	}

	manager struct {
		logger *mylog.Logger
		db     *gorm.DB
	}
)

var _ Manager = (*manager)(nil)

func (s *manager) CreateParticipant(ctx context.Context, identifier string, metadata map[string]any) (*thread.Participant, error) {
	if identifier == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "identifier is required")
	}

	_, tx := db.OpenSession(ctx, s.db)

	var participant entity.Participant
	if err := tx.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.Participant{}).Where("identifier = ?", identifier).Count(&count).Error; err != nil {
			return errors.Wrapf(err, "failed to check identifier")
		}
		if count > 0 {
			return errors.Wrapf(errors.ErrConflict, "identifier %q is already registered", identifier)
		}

		participant = entity.Participant{
			Identifier: identifier,
			Metadata:   metadata,
		}
		return errors.Wrapf(tx.Create(&participant).Error, "failed to create participant")
	}); err != nil {
		return nil, err
	}

	return toWire(&participant), nil
}

// GetParticipant looks up by id, identifier, or either; both empty is an
// error.
func (s *manager) GetParticipant(ctx context.Context, id string, identifier string) (*thread.Participant, error) {
	if id == "" && identifier == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "id or identifier is required")
	}

	_, tx := db.OpenSession(ctx, s.db)

	stmt := tx.Model(&entity.Participant{})
	switch {
	case id != "" && identifier != "":
		stmt = stmt.Where("id = ? OR identifier = ?", id, identifier)
	case id != "":
		stmt = stmt.Where("id = ?", id)
	default:
		stmt = stmt.Where("identifier = ?", identifier)
	}

	var participant entity.Participant
	r := stmt.Find(&participant)
	if r.Error != nil {
		return nil, errors.Wrapf(r.Error, "failed to find participant")
	}
	if r.RowsAffected == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "participant not found")
	}

	return toWire(&participant), nil
}

func (s *manager) UpdateParticipant(ctx context.Context, id string, identifier *string, metadata map[string]any) (*thread.Participant, error) {
	_, tx := db.OpenSession(ctx, s.db)

	var participant entity.Participant
	if err := tx.Transaction(func(tx *gorm.DB) error {
		r := tx.Find(&participant, "id = ?", id)
		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find participant")
		}
		if r.RowsAffected == 0 {
			return errors.Wrapf(errors.ErrNotFound, "participant %q not found", id)
		}

		if identifier != nil {
			participant.Identifier = *identifier
		}
		if metadata != nil {
			participant.Metadata = metadata
		}

		return participant.Save(tx)
	}); err != nil {
		return nil, err
	}

	return toWire(&participant), nil
}

func (s *manager) DeleteParticipant(ctx context.Context, id string) error {
	_, tx := db.OpenSession(ctx, s.db)

	return errors.Wrapf(
		tx.Where("id = ?", id).Delete(&entity.Participant{}).Error,
		"failed to delete participant",
	)
}

func toWire(p *entity.Participant) *thread.Participant {
	return &thread.Participant{
		Id:         p.ID,
		Identifier: p.Identifier,
		Metadata:   p.Metadata,
		CreatedAt:  p.CreatedAt,
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
