// Package shell assembles the stores and binds them to the push topics of
// the core.
package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stepherg/rayshell/internal/events"
	"github.com/stepherg/rayshell/internal/metrics"
	"github.com/stepherg/rayshell/internal/model"
	"github.com/stepherg/rayshell/internal/store"
)

// API is the whole core command surface. *remote.Client satisfies it.
type API interface {
	store.ProfileAPI
	store.SubscriptionAPI
	store.RoutingAPI
	store.DNSAPI
	store.ConfigAPI
	store.LogAPI
	store.CoreAPI
}

// Options tunes a Shell.
type Options struct {
	LogCapacity int
	LogLimit    int
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

// Shell owns every store of one client session.
type Shell struct {
	Profiles      *store.ProfileStore
	Subscriptions *store.SubscriptionStore
	Routings      *store.RoutingStore
	DNS           *store.DNSStore
	Config        *store.ConfigStore
	Core          *store.CoreStore
	Logs          *store.LogStore

	Traffic       *store.Mirror[model.TrafficStats]
	Update        *store.Mirror[model.UpdateProgress]
	Notifications *store.Mirror[model.Notification]

	reg *events.Registry
	log zerolog.Logger

	mu    sync.Mutex
	scope *events.Scope
}

func New(reg *events.Registry, api API, opts Options) *Shell {
	m := opts.Metrics
	return &Shell{
		Profiles:      store.NewProfileStore(api, m),
		Subscriptions: store.NewSubscriptionStore(api, m),
		Routings:      store.NewRoutingStore(api, m),
		DNS:           store.NewDNSStore(api, m),
		Config:        store.NewConfigStore(api, m),
		Core:          store.NewCoreStore(api, m),
		Logs:          store.NewLogStore(api, opts.LogCapacity, opts.LogLimit),
		Traffic:       store.NewMirror(model.TrafficStats{}),
		Update:        store.NewMirror(model.UpdateProgress{}),
		Notifications: store.NewMirror(model.Notification{}),
		reg:           reg,
		log:           opts.Logger.With().Str("component", "shell").Logger(),
	}
}

// Observe binds the push topics to the stores and returns the unbind. A
// second call replaces the first's bindings.
func (s *Shell) Observe() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scope != nil {
		s.scope.Close()
	}
	sc := s.reg.Scope()
	s.scope = sc

	sc.On(events.TopicCoreStatus, events.Typed(s.Core.Status.Set, s.dropped(events.TopicCoreStatus)))
	sc.On(events.TopicTraffic, events.Typed(s.Traffic.Set, s.dropped(events.TopicTraffic)))
	sc.On(events.TopicUpdateProgress, events.Typed(s.Update.Set, s.dropped(events.TopicUpdateProgress)))
	sc.On(events.TopicNotification, events.Typed(s.Notifications.Set, s.dropped(events.TopicNotification)))
	sc.On(events.TopicCoreLog, func(payload any) {
		lines, err := oneOrMany[string](payload)
		if err != nil {
			s.dropped(events.TopicCoreLog)(err)
			return
		}
		s.Logs.AppendBatch(lines)
	})
	sc.On(events.TopicSpeedTest, func(payload any) {
		results, err := oneOrMany[model.SpeedTestResult](payload)
		if err != nil {
			s.dropped(events.TopicSpeedTest)(err)
			return
		}
		s.Profiles.Results.ApplyBatch(results)
	})
	return sc.Close
}

func (s *Shell) dropped(topic string) func(error) {
	return func(err error) {
		s.log.Warn().Err(err).Str("topic", topic).Msg("dropping undecodable event")
	}
}

// oneOrMany decodes a payload that is either a single T or a list of them.
func oneOrMany[T any](payload any) ([]T, error) {
	if many, err := events.Decode[[]T](payload); err == nil {
		return many, nil
	}
	one, err := events.Decode[T](payload)
	if err != nil {
		return nil, err
	}
	return []T{one}, nil
}

// Refresh loads every store concurrently. All loads run to completion; the
// failures are joined.
func (s *Shell) Refresh(ctx context.Context) error {
	loads := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"profiles", s.Profiles.Refresh},
		{"subscriptions", s.Subscriptions.Refresh},
		{"routings", s.Routings.Refresh},
		{"dns", s.DNS.Load},
		{"config", s.Config.Load},
		{"core", s.Core.Load},
		{"logs", func(ctx context.Context) error { return s.Logs.Load(ctx, 0) }},
	}
	// Wait reports only the first failure; errs keeps all of them.
	errs := make([]error, len(loads))
	var g errgroup.Group
	for i, l := range loads {
		g.Go(func() error {
			if err := l.fn(ctx); err != nil {
				errs[i] = fmt.Errorf("load %s: %w", l.name, err)
				return errs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}
	return errors.Join(errs...)
}

// Close drops the shell's event bindings.
func (s *Shell) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scope != nil {
		s.scope.Close()
		s.scope = nil
	}
}
