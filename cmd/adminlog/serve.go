package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-go-golems/adminlog/pkg/config"
	"github.com/go-go-golems/adminlog/pkg/transport/ws"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(a *app) *cobra.Command {
	var latency time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local log to remote viewers over websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.settings

			spec, err := config.ParseSource(s.Source)
			if err != nil {
				return err
			}
			if spec.Kind == config.SourceWebSocket {
				return errors.New("serve needs a local source, not a websocket URL")
			}
			src, closer, err := openSource(cmd.Context(), s.Source, latency)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			mux := http.NewServeMux()
			mux.Handle("/ws", ws.NewServer(src, websocket.Upgrader{
				CheckOrigin: func(*http.Request) bool { return true },
			}))
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok\n"))
			})
			server := &http.Server{
				Addr:              s.Listen,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			eg, ctx := errgroup.WithContext(cmd.Context())
			eg.Go(func() error {
				<-ctx.Done()
				log.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			eg.Go(func() error {
				log.Info().Str("addr", s.Listen).Str("source", s.Source).Msg("serving admin log at /ws")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "listen")
				}
				return nil
			})
			return eg.Wait()
		},
	}
	cmd.Flags().String("listen", "127.0.0.1:8089", "address to listen on")
	cmd.Flags().DurationVar(&latency, "latency", 0, "artificial latency of the demo source")
	cobra.CheckErr(a.v.BindPFlag("listen", cmd.Flags().Lookup("listen")))
	return cmd
}
