package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/jcooky/go-din"
	"github.com/spf13/cobra"

	"github.com/tracelit/tracelit/auth"
	"github.com/tracelit/tracelit/config"
	"github.com/tracelit/tracelit/internal/mylog"
	"github.com/tracelit/tracelit/jsonrpc"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracelit",
		Short: "Tracelit observability backend",
	}

	cmd.AddCommand(
		newServeCmd(),
	)

	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := din.NewContainer(cmd.Context(), din.EnvProd)
			defer c.Close()
			onSig := make(chan os.Signal, 3)
			defer close(onSig)
			signal.Notify(onSig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGABRT)

			cfg := din.MustGetT[*config.ServerConfig](c)
			logger := din.MustGet[*mylog.Logger](c, mylog.Key)

			logger.Debug("start tracelit", "config", cfg)

			if err := auth.Bootstrap(c, c); err != nil {
				return err
			}

			server := http.Server{
				Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
				Handler: handlers.CORS(
					handlers.AllowedOrigins([]string{"*"}),
					handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
					handlers.AllowedHeaders([]string{
						"Content-Type",
						"Authorization",
						"Accept",
						"Accept-Language",
						"Accept-Encoding",
						"X-Requested-With",
						"X-Api-Key",
						"Origin",
						"User-Agent",
						"Referer",
						"Cache-Control",
						"Pragma",
					}),
					handlers.ExposedHeaders([]string{"Content-Length", "Content-Type"}),
					handlers.MaxAge(86400),
					handlers.AllowCredentials(),
				)(jsonrpc.NewRouter(c, jsonrpc.WithAPI())),
			}

			go func() {
				<-onSig
				if err := server.Shutdown(c); err != nil {
					logger.Error("failed to shutdown server", "err", err)
				}
			}()

			logger.Info("Starting server", "addr", cfg.Host, "port", cfg.Port)
			return server.ListenAndServe()
		},
	}
}
