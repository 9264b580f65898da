package feedback

import (
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/jcooky/go-din"

	"github.com/tracelit/tracelit/errors"
)

type (
	JsonRpcService struct {
		manager Manager
	}

	CreateFeedbackRequest struct {
		Value    float64 `json:"value"`
		Strategy *string `json:"strategy,omitempty"`
		Comment  *string `json:"comment,omitempty"`
		StepId   *string `json:"step_id,omitempty"`
		ThreadId *string `json:"thread_id,omitempty"`
	}

	UpdateFeedbackRequest struct {
		Id       string   `json:"id"`
		Value    *float64 `json:"value,omitempty"`
		Strategy *string  `json:"strategy,omitempty"`
		Comment  *string  `json:"comment,omitempty"`
	}
)

func (s *JsonRpcService) CreateFeedback(r *http.Request, args *CreateFeedbackRequest, reply *Feedback) error {
	feedback, err := s.manager.CreateFeedback(r.Context(), CreateFeedbackParams{
		Value:    args.Value,
		Strategy: args.Strategy,
		Comment:  args.Comment,
		StepId:   args.StepId,
		ThreadId: args.ThreadId,
	})
	if err != nil {
		return err
	}

	*reply = *feedback
	return nil
}

func (s *JsonRpcService) UpdateFeedback(r *http.Request, args *UpdateFeedbackRequest, reply *Feedback) error {
	feedback, err := s.manager.UpdateFeedback(r.Context(), args.Id, UpdateFeedbackParams{
		Value:    args.Value,
		Strategy: args.Strategy,
		Comment:  args.Comment,
	})
	if err != nil {
		return err
	}

	*reply = *feedback
	return nil
}

var (
	servicePrefix = "tracelit.api.v1.feedback"
)

func RegisterJsonRpcService(c *din.Container, server *rpc.Server) error {
	svc := &JsonRpcService{
		manager: din.MustGetT[Manager](c),
	}
	return errors.Wrapf(server.RegisterService(svc, servicePrefix), "failed to register jsonrpc service")
}
