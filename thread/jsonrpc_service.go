package thread

import (
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/jcooky/go-din"

	"github.com/tracelit/tracelit/errors"
)

type (
	JsonRpcService struct {
		manager Manager
	}

	FilterInput struct {
		Field    string `json:"field"`
		Operator string `json:"operator"`
		Value    any    `json:"value"`
	}

	OrderByInput struct {
		Column    string `json:"column"`
		Direction string `json:"direction"`
	}

	GetThreadsRequest struct {
		After        *string       `json:"after,omitempty"`
		Before       *string       `json:"before,omitempty"`
		CursorAnchor *time.Time    `json:"cursor_anchor,omitempty"`
		Filters      []FilterInput `json:"filters,omitempty"`
		OrderBy      *OrderByInput `json:"order_by,omitempty"`
		First        *int          `json:"first,omitempty"`
		Last         *int          `json:"last,omitempty"`
		Skip         *int          `json:"skip,omitempty"`
		ProjectId    *string       `json:"project_id,omitempty"`
	}

	GetThreadRequest struct {
		Id string `json:"id"`
	}

	UpsertThreadRequest struct {
		Id             string         `json:"id"`
		Name           *string        `json:"name,omitempty"`
		Metadata       map[string]any `json:"metadata,omitempty"`
		ParticipantId  *string        `json:"participant_id,omitempty"`
		Environment    *string        `json:"environment,omitempty"`
		Tags           []string       `json:"tags,omitempty"`
		MetadataPolicy string         `json:"metadata_policy,omitempty"`
	}

	DeleteThreadRequest struct {
		Id string `json:"id"`
	}

	DeleteThreadResponse struct {
		Id string `json:"id"`
	}
)

func (s *JsonRpcService) GetThreads(r *http.Request, args *GetThreadsRequest, reply *Connection) error {
	req := ListThreadsRequest{
		After:        args.After,
		Before:       args.Before,
		CursorAnchor: args.CursorAnchor,
		First:        args.First,
		Last:         args.Last,
		Skip:         args.Skip,
		ProjectId:    args.ProjectId,
	}

	for _, input := range args.Filters {
		filter, err := NewFilter(FilterField(input.Field), FilterOperator(input.Operator), input.Value)
		if err != nil {
			return err
		}
		req.Filters = append(req.Filters, filter)
	}

	if args.OrderBy != nil {
		req.OrderBy = &OrderBy{
			Column:    OrderColumn(args.OrderBy.Column),
			Direction: OrderDirection(args.OrderBy.Direction),
		}
	}

	conn, err := s.manager.GetThreads(r.Context(), &req)
	if err != nil {
		return err
	}

	*reply = *conn
	return nil
}

func (s *JsonRpcService) GetThread(r *http.Request, args *GetThreadRequest, reply *Thread) error {
	thread, err := s.manager.GetThreadById(r.Context(), args.Id)
	if err != nil {
		return err
	}

	*reply = *thread
	return nil
}

func (s *JsonRpcService) CreateThread(r *http.Request, args *UpsertThreadRequest, reply *Thread) error {
	thread, err := s.manager.CreateThread(r.Context(), upsertParams(args))
	if err != nil {
		return err
	}

	*reply = *thread
	return nil
}

func (s *JsonRpcService) UpsertThread(r *http.Request, args *UpsertThreadRequest, reply *Thread) error {
	thread, err := s.manager.UpsertThread(r.Context(), upsertParams(args))
	if err != nil {
		return err
	}
	if thread == nil {
		// Upsert of an unknown id with no participant is skipped.
		return nil
	}

	*reply = *thread
	return nil
}

func (s *JsonRpcService) DeleteThread(r *http.Request, args *DeleteThreadRequest, reply *DeleteThreadResponse) error {
	id, err := s.manager.DeleteThread(r.Context(), args.Id)
	if err != nil {
		return err
	}

	reply.Id = id
	return nil
}

func upsertParams(args *UpsertThreadRequest) UpsertThreadParams {
	return UpsertThreadParams{
		Id:             args.Id,
		Name:           args.Name,
		Metadata:       args.Metadata,
		ParticipantId:  args.ParticipantId,
		Environment:    args.Environment,
		Tags:           args.Tags,
		MetadataPolicy: MetadataPolicy(args.MetadataPolicy),
	}
}

var (
	servicePrefix = "tracelit.api.v1.thread"
)

func RegisterJsonRpcService(c *din.Container, server *rpc.Server) error {
	svc := &JsonRpcService{
		manager: din.MustGetT[Manager](c),
	}
	return errors.Wrapf(server.RegisterService(svc, servicePrefix), "failed to register jsonrpc service")
}
