package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/rpc/v2"
	"github.com/jcooky/go-din"

	"github.com/tracelit/tracelit/auth"
	"github.com/tracelit/tracelit/internal/mylog"
	"github.com/tracelit/tracelit/storage"
)

type ServerOption = func(c *din.Container, server *rpc.Server)

const apiKeyHeader = "x-api-key"

func NewHandler(c *din.Container, opts ...ServerOption) http.Handler {
	logger := din.MustGet[*mylog.Logger](c, mylog.Key)

	rpcServer := newRPCServer(c, opts...)

	return newRecoveryHandler(logger)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithCancel(r.Context())
			defer cancel()

			rpcServer.ServeHTTP(w, r.WithContext(ctx))
		}),
	)
}

// NewRouter wires the full HTTP surface: /health is open, /rpc and
// /upload/file require a valid api key in the x-api-key header.
func NewRouter(c *din.Container, opts ...ServerOption) http.Handler {
	logger := din.MustGet[*mylog.Logger](c, mylog.Key)
	authService := din.MustGetT[auth.Service](c)
	presigner := din.MustGetT[storage.Presigner](c)

	guard := newApiKeyMiddleware(logger, authService)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Warn("failed to write health response", "err", err)
		}
	}).Methods(http.MethodGet)
	router.Handle("/rpc", guard(NewHandler(c, opts...)))
	router.Handle("/upload/file", guard(newUploadHandler(logger, presigner))).Methods(http.MethodPost)

	return router
}

func newApiKeyMiddleware(logger *mylog.Logger, authService auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(apiKeyHeader)
			ok, err := authService.ValidateApiKey(r.Context(), key)
			if err != nil {
				logger.Error("failed to validate api key", mylog.Err(err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if !ok {
				http.Error(w, "invalid api key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type uploadFileRequest struct {
	ThreadId    string `json:"thread_id"`
	ContentType string `json:"content_type"`
}

func newUploadHandler(logger *mylog.Logger, presigner storage.Presigner) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req uploadFileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.ThreadId == "" {
			http.Error(w, "thread_id is required", http.StatusBadRequest)
			return
		}
		if req.ContentType == "" {
			req.ContentType = "application/octet-stream"
		}

		objectKey := fmt.Sprintf("%s/files/%s", req.ThreadId, uuid.NewString())
		desc, err := presigner.PresignPostObject(r.Context(), objectKey, req.ContentType)
		if err != nil {
			logger.Error("failed to presign upload", "key", objectKey, mylog.Err(err))
			http.Error(w, "failed to presign upload", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(desc); err != nil {
			logger.Warn("failed to write upload response", mylog.Err(err))
		}
	})
}
