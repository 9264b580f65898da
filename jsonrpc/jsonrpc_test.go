package jsonrpc_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/suite"

	"github.com/tracelit/tracelit/auth"
	"github.com/tracelit/tracelit/internal/mytesting"
	"github.com/tracelit/tracelit/jsonrpc"
	"github.com/tracelit/tracelit/participant"
	"github.com/tracelit/tracelit/thread"
)

const testApiKey = "test-api-key"

type Suite struct {
	mytesting.Suite

	handler http.Handler
	server  *httptest.Server
}

func (s *Suite) SetupTest() {
	os.Setenv("ENV_TEST_FILE", "../.env.test")
	s.Suite.SetupTest()

	s.Require().NoError(auth.Bootstrap(s.Context, s.Container))

	s.handler = jsonrpc.NewRouter(s.Container, jsonrpc.WithAPI())
	s.server = httptest.NewServer(s.handler)
}

func (s *Suite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
	s.handler = nil
	s.Suite.TearDownTest()
}

func (s *Suite) call(method string, args, reply any) error {
	body, err := json2.EncodeClientRequest(method, args)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/rpc", bytes.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", testApiKey)

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	// Errors come back with a non-200 status and a JSON-RPC error body.
	return json2.DecodeClientResponse(resp.Body, reply)
}

func (s *Suite) TestHealth() {
	resp, err := s.server.Client().Get(s.server.URL + "/health")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Equal("OK", string(body))
}

func (s *Suite) TestRpcRejectsMissingApiKey() {
	body, err := json2.EncodeClientRequest("tracelit.api.v1.thread.GetThreads", &thread.GetThreadsRequest{})
	s.Require().NoError(err)

	resp, err := s.server.Client().Post(s.server.URL+"/rpc", "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestThreadRoundTrip() {
	var created thread.Participant
	s.Require().NoError(s.call("tracelit.api.v1.participant.CreateParticipant", &participant.CreateParticipantRequest{
		Identifier: "alice",
	}, &created))
	s.NotEmpty(created.Id)

	name := "support chat"
	var upserted thread.Thread
	s.Require().NoError(s.call("tracelit.api.v1.thread.UpsertThread", &thread.UpsertThreadRequest{
		Id:            "th-rpc-1",
		Name:          &name,
		ParticipantId: &created.Id,
		Metadata:      map[string]any{"channel": "web"},
	}, &upserted))
	s.Equal("th-rpc-1", upserted.Id)
	s.Equal("support chat", upserted.Name)

	first := 10
	var page thread.Connection
	s.Require().NoError(s.call("tracelit.api.v1.thread.GetThreads", &thread.GetThreadsRequest{
		First: &first,
	}, &page))
	s.Require().Len(page.Edges, 1)
	s.Equal("th-rpc-1", page.Edges[0].Node.Id)
}

func (s *Suite) TestGetThreadsRejectsUnknownFilter() {
	err := s.call("tracelit.api.v1.thread.GetThreads", &thread.GetThreadsRequest{
		Filters: []thread.FilterInput{
			{Field: "karma", Operator: "eq", Value: "high"},
		},
	}, &thread.Connection{})
	s.Require().Error(err)

	var rpcErr *json2.Error
	s.Require().ErrorAs(err, &rpcErr)
	s.Equal(json2.E_BAD_PARAMS, rpcErr.Code)
}

func (s *Suite) TestUploadRequiresThreadId() {
	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/upload/file", bytes.NewReader([]byte(`{}`)))
	s.Require().NoError(err)
	req.Header.Set("x-api-key", testApiKey)

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestUploadFailsWithServerErrorWhenStorageUnconfigured() {
	body := []byte(`{"thread_id": "th-upload", "content_type": "text/plain"}`)
	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/upload/file", bytes.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("x-api-key", testApiKey)

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	// No bucket is configured in tests, so presigning fails server-side.
	s.Equal(http.StatusInternalServerError, resp.StatusCode)
}

func TestJsonRpc(t *testing.T) {
	suite.Run(t, new(Suite))
}
