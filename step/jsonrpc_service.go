package step

import (
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/jcooky/go-din"

	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/thread"
)

type (
	JsonRpcService struct {
		manager Manager
	}

	IngestStepRequest struct {
		Id          string               `json:"id"`
		ThreadId    string               `json:"thread_id"`
		StartTime   *time.Time           `json:"start_time,omitempty"`
		EndTime     *time.Time           `json:"end_time,omitempty"`
		Type        *string              `json:"type,omitempty"`
		Error       *string              `json:"error,omitempty"`
		Input       map[string]any       `json:"input,omitempty"`
		Output      map[string]any       `json:"output,omitempty"`
		Metadata    map[string]any       `json:"metadata,omitempty"`
		ParentId    *string              `json:"parent_id,omitempty"`
		Name        *string              `json:"name,omitempty"`
		Tags        []string             `json:"tags,omitempty"`
		Scores      []ScorePayload       `json:"scores,omitempty"`
		Generation  map[string]any       `json:"generation,omitempty"`
		Attachments []*thread.Attachment `json:"attachments,omitempty"`
	}

	GetStepRequest struct {
		Id string `json:"id"`
	}

	DeleteStepRequest struct {
		Id string `json:"id"`
	}

	DeleteStepResponse struct {
		Id string `json:"id"`
	}
)

func (s *JsonRpcService) IngestStep(r *http.Request, args *IngestStepRequest, reply *thread.Step) error {
	step, err := s.manager.UpsertStep(r.Context(), UpsertStepParams{
		Id:          args.Id,
		ThreadId:    args.ThreadId,
		StartTime:   args.StartTime,
		EndTime:     args.EndTime,
		Type:        args.Type,
		Error:       args.Error,
		Input:       args.Input,
		Output:      args.Output,
		Metadata:    args.Metadata,
		ParentId:    args.ParentId,
		Name:        args.Name,
		Tags:        args.Tags,
		Scores:      args.Scores,
		Generation:  args.Generation,
		Attachments: args.Attachments,
	})
	if err != nil {
		return err
	}

	*reply = *step
	return nil
}

func (s *JsonRpcService) GetStep(r *http.Request, args *GetStepRequest, reply *thread.Step) error {
	step, err := s.manager.GetStepById(r.Context(), args.Id)
	if err != nil {
		return err
	}

	*reply = *step
	return nil
}

func (s *JsonRpcService) DeleteStep(r *http.Request, args *DeleteStepRequest, reply *DeleteStepResponse) error {
	id, err := s.manager.DeleteStep(r.Context(), args.Id)
	if err != nil {
		return err
	}

	reply.Id = id
	return nil
}

var (
	servicePrefix = "tracelit.api.v1.step"
)

func RegisterJsonRpcService(c *din.Container, server *rpc.Server) error {
	svc := &JsonRpcService{
		manager: din.MustGetT[Manager](c),
	}
	return errors.Wrapf(server.RegisterService(svc, servicePrefix), "failed to register jsonrpc service")
}
