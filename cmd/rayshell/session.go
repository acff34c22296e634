package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/stepherg/rayshell/internal/config"
	"github.com/stepherg/rayshell/internal/events"
	"github.com/stepherg/rayshell/internal/logging"
	"github.com/stepherg/rayshell/internal/metrics"
	"github.com/stepherg/rayshell/internal/remote"
	"github.com/stepherg/rayshell/internal/rpc"
	"github.com/stepherg/rayshell/internal/shell"
	"github.com/stepherg/rayshell/internal/webhook"
	"github.com/stepherg/rayshell/internal/ws"
)

// session is one connected shell plus everything that has to be torn down
// with it.
type session struct {
	cfg     config.Config
	log     zerolog.Logger
	reg     *events.Registry
	shell   *shell.Shell
	closers []func()
}

func (s *session) Close() {
	s.shell.Close()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.reg.Close()
}

// loadConfig reads settings and sets up logging from them.
func loadConfig() (config.Config, zerolog.Logger, error) {
	logging.Init(logging.Config{Format: "auto", Level: "info", Component: "rayshell"})
	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, logging.Logger(), fmt.Errorf("load config: %w", err)
	}
	log := logging.Init(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Component: "rayshell"})
	return cfg, log, nil
}

// connect dials the core over the configured transport and builds a shell
// on top of it. Events reach the shell's registry either over the websocket
// or, for the WRP transport, through the ingestion listener.
func connect(ctx context.Context) (*session, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(promReg)
	reg := events.New(events.WithLogger(logging.Component("events")), events.WithMetrics(m))
	s := &session{cfg: cfg, log: log, reg: reg}

	var caller rpc.Caller
	switch cfg.Transport {
	case config.TransportWRP:
		caller = &rpc.WRPCaller{
			Client:   &rpc.WRPClient{URL: cfg.WRPURL, Authorization: cfg.WRPAuth},
			Source:   cfg.WRPSource,
			Dest:     cfg.WRPDest,
			Services: cfg.WRPServices,
			Timeout:  cfg.CallTimeout,
		}
		log.Info().Str("url", cfg.WRPURL).Str("dest", cfg.WRPDest).Msg("using wrp bridge")
	default:
		sess, err := ws.Dial(ctx, cfg.CoreURL, reg, ws.SessionOptions{
			CallTimeout: cfg.CallTimeout,
			Logger:      logging.Component("ws"),
		})
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("connect %s: %w", cfg.CoreURL, err)
		}
		s.closers = append(s.closers, func() { _ = sess.Close() })
		caller = sess
		log.Info().Str("url", cfg.CoreURL).Msg("connected to core")
	}

	s.shell = shell.New(reg, remote.New(caller), shell.Options{
		LogCapacity: cfg.LogCapacity,
		LogLimit:    cfg.LogLimit,
		Metrics:     m,
		Logger:      logging.Component("shell"),
	})
	if cfg.Listen != "" {
		stop, err := serveIngest(cfg, reg, promReg, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, stop)
	}
	return s, nil
}

// serveIngest runs the event ingestion and metrics listener until the
// returned stop is called.
func serveIngest(cfg config.Config, reg *events.Registry, promReg *prometheus.Registry, log zerolog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}
	srv := &http.Server{
		Handler: webhook.NewRouter(reg, webhook.Options{
			Token:   cfg.IngestToken,
			Metrics: promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
			Logger:  logging.Component("ingest"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("ingest listener stopped")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("event ingestion listening")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
