package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stepherg/rayshell/internal/devcore"
	"github.com/stepherg/rayshell/internal/events"
	"github.com/stepherg/rayshell/internal/logging"
	"github.com/stepherg/rayshell/internal/metrics"
	"github.com/stepherg/rayshell/internal/webhook"
	"github.com/stepherg/rayshell/internal/ws"
)

var (
	devListen   string
	devSeed     string
	devInterval time.Duration
)

var devcoreCmd = &cobra.Command{
	Use:   "devcore",
	Short: "Serve an in-memory core over websocket for development",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		promReg := prometheus.NewRegistry()
		reg := events.New(events.WithLogger(logging.Component("events")), events.WithMetrics(metrics.New(promReg)))
		defer reg.Close()
		core := devcore.New(reg, log)

		if devSeed != "" {
			raw, err := os.ReadFile(devSeed)
			if err != nil {
				return err
			}
			n, err := core.ImportFromText(ctx, string(raw))
			if err != nil {
				return err
			}
			log.Info().Int("profiles", n).Str("file", devSeed).Msg("seeded profiles")
		}

		// POST /events on the same listener injects pushes for manual testing.
		r := chi.NewRouter()
		r.Handle("/ws", &ws.Handler{
			Upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
			Dispatcher: core.Mux(),
			Events:     reg,
			Logger:     logging.Component("ws"),
		})
		r.Mount("/", webhook.NewRouter(reg, webhook.Options{
			Token:   cfg.IngestToken,
			Metrics: promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
			Logger:  logging.Component("ingest"),
		}))

		srv := &http.Server{Addr: devListen, Handler: r, ReadHeaderTimeout: 10 * time.Second}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			core.Run(gctx, devInterval)
			return nil
		})
		g.Go(func() error {
			log.Info().Str("addr", devListen).Msg("devcore listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	devcoreCmd.Flags().StringVar(&devListen, "listen", "127.0.0.1:8920", "listen address")
	devcoreCmd.Flags().StringVar(&devSeed, "seed", "", "file of share links imported at start")
	devcoreCmd.Flags().DurationVar(&devInterval, "traffic-interval", time.Second, "traffic push interval")
}
