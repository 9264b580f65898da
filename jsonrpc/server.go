package jsonrpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/jcooky/go-din"

	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/feedback"
	"github.com/tracelit/tracelit/internal/mylog"
	"github.com/tracelit/tracelit/participant"
	"github.com/tracelit/tracelit/score"
	"github.com/tracelit/tracelit/step"
	"github.com/tracelit/tracelit/thread"
)

type (
	StartTimeCtxKey string
)

var (
	startTimeCtxKey StartTimeCtxKey = "jsonrpc.startTime"
)

func WithAPI() ServerOption {
	return func(c *din.Container, s *rpc.Server) {
		if err := thread.RegisterJsonRpcService(c, s); err != nil {
			panic(err)
		}
		if err := step.RegisterJsonRpcService(c, s); err != nil {
			panic(err)
		}
		if err := participant.RegisterJsonRpcService(c, s); err != nil {
			panic(err)
		}
		if err := score.RegisterJsonRpcService(c, s); err != nil {
			panic(err)
		}
		if err := feedback.RegisterJsonRpcService(c, s); err != nil {
			panic(err)
		}
	}
}

func newRPCServer(c *din.Container, opts ...ServerOption) *rpc.Server {
	logger := din.MustGet[*mylog.Logger](c, mylog.Key)

	server := rpc.NewServer()
	for _, opt := range opts {
		opt(c, server)
	}
	server.RegisterBeforeFunc(func(i *rpc.RequestInfo) {
		startTime := time.Now()
		ctx := context.WithValue(i.Request.Context(), startTimeCtxKey, startTime)
		req := i.Request.WithContext(ctx)
		i.Request = req
	})
	server.RegisterAfterFunc(func(i *rpc.RequestInfo) {
		logger := logger.WithGroup("jsonrpc")
		if startTime, ok := i.Request.Context().Value(startTimeCtxKey).(time.Time); ok {
			duration := time.Since(startTime)
			logger = logger.With(slog.Duration("duration", duration))
		}
		if i.Error != nil {
			logger = logger.With(mylog.Err(i.Error))
		}
		logger.Info("[JSON-RPC] call",
			slog.Int("statusCode", i.StatusCode),
			slog.String("method", i.Method),
			slog.Bool("error", i.Error != nil),
		)
	})
	server.RegisterCodec(json2.NewCustomCodecWithErrorMapper(
		rpc.DefaultEncoderSelector,
		func(err error) error {
			if err == nil {
				return nil
			}

			logger.Error("[JSON-RPC] error", mylog.Err(err))
			var e *json2.Error
			if errors.As(err, &e) {
				return err
			}

			e = &json2.Error{Message: err.Error()}

			if errors.Is(err, errors.ErrInvalidParams) {
				e.Code = json2.E_BAD_PARAMS
			} else if errors.Is(err, errors.ErrInternal) {
				e.Code = json2.E_INTERNAL
			} else if errors.Is(err, errors.ErrInvalidRequest) {
				e.Code = json2.E_INVALID_REQ
			} else if errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrConflict) {
				e.Code = json2.E_SERVER
			} else {
				e.Code = json2.E_INTERNAL
			}

			return e
		},
	), "application/json")

	return server
}
