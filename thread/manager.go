package thread

import (
	"context"
	"log/slog"
	"time"

	"github.com/jcooky/go-din"
	"gorm.io/gorm"

	"github.com/tracelit/tracelit/cursor"
	"github.com/tracelit/tracelit/entity"
	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/internal/db"
	"github.com/tracelit/tracelit/internal/mylog"
	"github.com/tracelit/tracelit/storage"
)

type (
	OrderColumn    string
	OrderDirection string
	// MetadataPolicy decides whether supplied metadata merges into the
	// stored map key-by-key or replaces it wholesale.
	MetadataPolicy string
)

const (
	OrderByCreatedAt   OrderColumn = "createdAt"
	OrderByParticipant OrderColumn = "participant"
	OrderByTokenCount  OrderColumn = "tokenCount"

	OrderAsc  OrderDirection = "ASC"
	OrderDesc OrderDirection = "DESC"

	MetadataMerge   MetadataPolicy = "merge"
	MetadataReplace MetadataPolicy = "replace"
)

type (
	OrderBy struct {
		Column    OrderColumn
		Direction OrderDirection
	}

	// ListThreadsRequest carries the pagination parameters. First wins over
	// Last when both are set; Last without First limits from the head of the
	// requested ordering, exactly like a plain LIMIT.
	ListThreadsRequest struct {
		After        *string
		Before       *string
		CursorAnchor *time.Time
		Filters      []Filter
		OrderBy      *OrderBy
		First        *int
		Last         *int
		Skip         *int

		// ProjectId is accepted for wire compatibility; threads carry no
		// project scoping.
		ProjectId *string
	}

	UpsertThreadParams struct {
		Id            string
		Name          *string
		Metadata      map[string]any
		ParticipantId *string
		Environment   *string
		Tags          []string

		// Zero value means MetadataMerge.
		MetadataPolicy MetadataPolicy
	}

	Manager interface {
		GetThreads(ctx context.Context, req *ListThreadsRequest) (*Connection, error)
		GetThreadById(ctx context.Context, id string) (*Thread, error)
		CreateThread(ctx context.Context, params UpsertThreadParams) (*Thread, error)
		UpsertThread(ctx context.Context, params UpsertThreadParams) (*Thread, error)
		DeleteThread(ctx context.Context, id string) (string, error)
	}

	manager struct {
		logger *mylog.Logger
		db     *gorm.DB
		mapper *Mapper
	}
)

var _ Manager = (*manager)(nil)

func (s *manager) GetThreads(ctx context.Context, req *ListThreadsRequest) (*Connection, error) {
	_, tx := db.OpenSession(ctx, s.db)

	orderExpr, err := orderClause(req.OrderBy, tx.Dialector.Name())
	if err != nil {
		return nil, err
	}

	var conn *Connection
	if err := tx.Transaction(func(tx *gorm.DB) error {
		stmt := tx.Model(&entity.Thread{}).
			Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("steps.created_at") }).
			Preload("Steps.Scores").
			Preload("Participant").
			Order(orderExpr)

		if req.CursorAnchor != nil {
			if req.After != nil {
				stmt = stmt.Where("threads.created_at > ?", *req.CursorAnchor)
			} else if req.Before != nil {
				stmt = stmt.Where("threads.created_at < ?", *req.CursorAnchor)
			}
		}

		if req.After != nil {
			stmt = stmt.Where("threads.id > ?", cursor.DecodeLenient(*req.After))
		}
		if req.Before != nil {
			stmt = stmt.Where("threads.id < ?", cursor.DecodeLenient(*req.Before))
		}

		for _, filter := range req.Filters {
			stmt = filter.apply(tx, stmt)
		}

		if req.Skip != nil {
			stmt = stmt.Offset(*req.Skip)
		}
		if req.First != nil {
			stmt = stmt.Limit(*req.First)
		} else if req.Last != nil {
			stmt = stmt.Limit(*req.Last)
		}

		var threads []entity.Thread
		if err := stmt.Find(&threads).Error; err != nil {
			return errors.Wrapf(err, "failed to find threads")
		}

		edges := make([]*Edge, 0, len(threads))
		for i := range threads {
			node, err := s.mapper.ThreadToWire(ctx, &threads[i])
			if err != nil {
				return err
			}
			edges = append(edges, &Edge{
				Node:   node,
				Cursor: cursor.Encode(cursor.KindThread, threads[i].ID),
			})
		}

		pageInfo := PageInfo{}
		if len(threads) > 0 && req.First != nil {
			hasNext, err := threadExists(tx, "id > ?", threads[len(threads)-1].ID)
			if err != nil {
				return err
			}
			pageInfo.HasNextPage = hasNext
		}
		if len(threads) > 0 && (req.After != nil || req.Before != nil) {
			hasPrev, err := threadExists(tx, "id < ?", threads[0].ID)
			if err != nil {
				return err
			}
			pageInfo.HasPreviousPage = hasPrev
		}
		if len(edges) > 0 {
			pageInfo.StartCursor = &edges[0].Cursor
			pageInfo.EndCursor = &edges[len(edges)-1].Cursor
		}

		conn = &Connection{
			Edges:      edges,
			PageInfo:   pageInfo,
			TotalCount: len(edges),
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return conn, nil
}

func threadExists(tx *gorm.DB, cond string, args ...any) (bool, error) {
	var ids []string
	if err := tx.Model(&entity.Thread{}).Where(cond, args...).Limit(1).Pluck("id", &ids).Error; err != nil {
		return false, errors.Wrapf(err, "failed to probe threads")
	}
	return len(ids) > 0, nil
}

func orderClause(o *OrderBy, dialect string) (string, error) {
	column := OrderByCreatedAt
	direction := OrderDesc
	if o != nil {
		if o.Column != "" {
			column = o.Column
		}
		if o.Direction != "" {
			direction = o.Direction
		}
	}

	if direction != OrderAsc && direction != OrderDesc {
		return "", errors.Wrapf(errors.ErrInvalidParams, "invalid order direction %q", direction)
	}

	switch column {
	case OrderByCreatedAt:
		return "threads.created_at " + string(direction), nil
	case OrderByParticipant:
		return "(SELECT participants.identifier FROM participants WHERE participants.id = threads.participant_id) " + string(direction), nil
	case OrderByTokenCount:
		return tokenCountExpr(dialect) + " " + string(direction), nil
	default:
		return "", errors.Wrapf(errors.ErrInvalidParams, "invalid order column %q", column)
	}
}

func (s *manager) GetThreadById(ctx context.Context, id string) (*Thread, error) {
	_, tx := db.OpenSession(ctx, s.db)

	id = cursor.DecodeLenient(id)

	thread, err := getThread(tx, id)
	if err != nil {
		return nil, err
	}

	return s.mapper.ThreadToWire(ctx, thread)
}

func getThread(tx *gorm.DB, id string) (*entity.Thread, error) {
	var thread entity.Thread
	r := tx.
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("steps.created_at") }).
		Preload("Steps.Scores").
		Preload("Participant").
		Find(&thread, "id = ?", id)
	if r.Error != nil {
		return nil, errors.Wrapf(r.Error, "failed to find thread")
	}
	if r.RowsAffected == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "thread %q not found", id)
	}

	return &thread, nil
}

func (s *manager) UpsertThread(ctx context.Context, params UpsertThreadParams) (*Thread, error) {
	if params.Id == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "thread id is required")
	}
	switch params.MetadataPolicy {
	case "", MetadataMerge, MetadataReplace:
	default:
		return nil, errors.Wrapf(errors.ErrInvalidParams, "unknown metadata policy %q", params.MetadataPolicy)
	}
	id := cursor.DecodeLenient(params.Id)

	_, tx := db.OpenSession(ctx, s.db)

	var result *Thread
	if err := tx.Transaction(func(tx *gorm.DB) error {
		var existing entity.Thread
		r := tx.Find(&existing, "id = ?", id)
		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find thread")
		}

		if r.RowsAffected > 0 {
			if params.Name != nil {
				existing.Name = *params.Name
			}
			if params.Environment != nil {
				existing.Environment = *params.Environment
			}
			if params.Tags != nil {
				existing.Tags = params.Tags
			}
			if params.Metadata != nil {
				existing.Metadata = applyMetadata(existing.Metadata, params.Metadata, params.MetadataPolicy)
			}

			if err := existing.Save(tx); err != nil {
				return err
			}
		} else {
			// A bare id with no participant is an ingestion echo of a
			// deleted thread; skip the insert.
			if params.ParticipantId == nil {
				return nil
			}

			thread := entity.Thread{
				ID:            id,
				ParticipantID: params.ParticipantId,
				Tags:          params.Tags,
				Metadata:      params.Metadata,
				CreatedAt:     time.Now().UTC(),
			}
			if params.Name != nil {
				thread.Name = *params.Name
			}
			if params.Environment != nil {
				thread.Environment = *params.Environment
			}

			if err := tx.Create(&thread).Error; err != nil {
				return errors.Wrapf(err, "failed to create thread")
			}
		}

		thread, err := getThread(tx, id)
		if err != nil {
			return err
		}

		result, err = s.mapper.ThreadToWire(ctx, thread)
		return err
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *manager) CreateThread(ctx context.Context, params UpsertThreadParams) (*Thread, error) {
	_, tx := db.OpenSession(ctx, s.db)

	var result *Thread
	if err := tx.Transaction(func(tx *gorm.DB) error {
		thread := entity.Thread{
			ID:            params.Id,
			ParticipantID: params.ParticipantId,
			Tags:          params.Tags,
			Metadata:      params.Metadata,
		}
		if params.Name != nil {
			thread.Name = *params.Name
		}
		if params.Environment != nil {
			thread.Environment = *params.Environment
		}

		if err := tx.Create(&thread).Error; err != nil {
			return errors.Wrapf(err, "failed to create thread")
		}

		created, err := getThread(tx, thread.ID)
		if err != nil {
			return err
		}

		result, err = s.mapper.ThreadToWire(ctx, created)
		return err
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func applyMetadata(existing, supplied map[string]any, policy MetadataPolicy) map[string]any {
	if policy == MetadataReplace {
		return supplied
	}
	if existing == nil {
		existing = map[string]any{}
	}
	for key, value := range supplied {
		existing[key] = value
	}
	return existing
}

func (s *manager) DeleteThread(ctx context.Context, id string) (string, error) {
	_, tx := db.OpenSession(ctx, s.db)

	id = cursor.DecodeLenient(id)

	if err := tx.Transaction(func(tx *gorm.DB) error {
		var thread entity.Thread
		r := tx.Find(&thread, "id = ?", id)
		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find thread")
		}
		if r.RowsAffected == 0 {
			return errors.Wrapf(errors.ErrNotFound, "thread %q not found", id)
		}

		return thread.Delete(tx)
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
			mapper: NewMapper(presigner),
		}, nil
	})
}
