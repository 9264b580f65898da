package participant

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

	CreateParticipantRequest struct {
		Identifier string         `json:"identifier"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}

	GetParticipantRequest struct {
		Id         string `json:"id,omitempty"`
		Identifier string `json:"identifier,omitempty"`
	}

	UpdateParticipantRequest struct {
		Id         string         `json:"id"`
		Identifier *string        `json:"identifier,omitempty"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}

	DeleteParticipantRequest struct {
		Id string `json:"id"`
	}

	DeleteParticipantResponse struct {
		Id string `json:"id"`
	}
)

func (s *JsonRpcService) CreateParticipant(r *http.Request, args *CreateParticipantRequest, reply *thread.Participant) error {
	participant, err := s.manager.CreateParticipant(r.Context(), args.Identifier, args.Metadata)
	if err != nil {
		return err
	}

	*reply = *participant
	return nil
}

func (s *JsonRpcService) GetParticipant(r *http.Request, args *GetParticipantRequest, reply *thread.Participant) error {
	participant, err := s.manager.GetParticipant(r.Context(), args.Id, args.Identifier)
	if err != nil {
		return err
	}

	*reply = *participant
	return nil
}

func (s *JsonRpcService) UpdateParticipant(r *http.Request, args *UpdateParticipantRequest, reply *thread.Participant) error {
	participant, err := s.manager.UpdateParticipant(r.Context(), args.Id, args.Identifier, args.Metadata)
	if err != nil {
		return err
	}

	*reply = *participant
	return nil
}

func (s *JsonRpcService) DeleteParticipant(r *http.Request, args *DeleteParticipantRequest, reply *DeleteParticipantResponse) error {
	if err := s.manager.DeleteParticipant(r.Context(), args.Id); err != nil {
		return err
	}

	reply.Id = args.Id
	return nil
}

var (
	servicePrefix = "tracelit.api.v1.participant"
)

func RegisterJsonRpcService(c *din.Container, server *rpc.Server) error {
	svc := &JsonRpcService{
		manager: din.MustGetT[Manager](c),
	}
	return errors.Wrapf(server.RegisterService(svc, servicePrefix), "failed to register jsonrpc service")
}
