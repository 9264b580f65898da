package score

import (
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/jcooky/go-din"

	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/thread"
)

type (
	JsonRpcService struct {
		manager Manager
	}

	CreateScoreRequest struct {
		Name                    string   `json:"name"`
		Type                    string   `json:"type"`
		Value                   float64  `json:"value"`
		Comment                 *string  `json:"comment,omitempty"`
		Tags                    []string `json:"tags,omitempty"`
		StepId                  *string  `json:"step_id,omitempty"`
		GenerationId            *string  `json:"generation_id,omitempty"`
		DatasetExperimentItemId *string  `json:"dataset_experiment_item_id,omitempty"`
	}

	UpdateScoreRequest struct {
		Id                      string   `json:"id"`
		Name                    *string  `json:"name,omitempty"`
		Type                    *string  `json:"type,omitempty"`
		Value                   *float64 `json:"value,omitempty"`
		Comment                 *string  `json:"comment,omitempty"`
		Tags                    []string `json:"tags,omitempty"`
		StepId                  *string  `json:"step_id,omitempty"`
		GenerationId            *string  `json:"generation_id,omitempty"`
		DatasetExperimentItemId *string  `json:"dataset_experiment_item_id,omitempty"`
	}

	GetScoreRequest struct {
		Id string `json:"id"`
	}

	DeleteScoreRequest struct {
		Id string `json:"id"`
	}

	DeleteScoreResponse struct {
		Id string `json:"id"`
	}
)

func (s *JsonRpcService) CreateScore(r *http.Request, args *CreateScoreRequest, reply *thread.Score) error {
	score, err := s.manager.CreateScore(r.Context(), CreateScoreParams{
		Name:                    args.Name,
		Type:                    args.Type,
		Value:                   args.Value,
		Comment:                 args.Comment,
		Tags:                    args.Tags,
		StepId:                  args.StepId,
		GenerationId:            args.GenerationId,
		DatasetExperimentItemId: args.DatasetExperimentItemId,
	})
	if err != nil {
		return err
	}

	*reply = *score
	return nil
}

func (s *JsonRpcService) GetScore(r *http.Request, args *GetScoreRequest, reply *thread.Score) error {
	score, err := s.manager.GetScoreById(r.Context(), args.Id)
	if err != nil {
		return err
	}

	*reply = *score
	return nil
}

func (s *JsonRpcService) UpdateScore(r *http.Request, args *UpdateScoreRequest, reply *thread.Score) error {
	score, err := s.manager.UpdateScore(r.Context(), args.Id, UpdateScoreParams{
		Name:                    args.Name,
		Type:                    args.Type,
		Value:                   args.Value,
		Comment:                 args.Comment,
		Tags:                    args.Tags,
		StepId:                  args.StepId,
		GenerationId:            args.GenerationId,
		DatasetExperimentItemId: args.DatasetExperimentItemId,
	})
	if err != nil {
		return err
	}

	*reply = *score
	return nil
}

func (s *JsonRpcService) DeleteScore(r *http.Request, args *DeleteScoreRequest, reply *DeleteScoreResponse) error {
	id, err := s.manager.DeleteScore(r.Context(), args.Id)
	if err != nil {
		return err
	}

	reply.Id = id
	return nil
}

var (
	servicePrefix = "tracelit.api.v1.score"
)

func RegisterJsonRpcService(c *din.Container, server *rpc.Server) error {
	svc := &JsonRpcService{
		manager: din.MustGetT[Manager](c),
	}
	return errors.Wrapf(server.RegisterService(svc, servicePrefix), "failed to register jsonrpc service")
}
