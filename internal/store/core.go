package store

import (
	"context"

	"github.com/stepherg/rayshell/internal/metrics"
	"github.com/stepherg/rayshell/internal/model"
)

// CoreAPI is the core lifecycle surface.
type CoreAPI interface {
	GetCoreStatus(ctx context.Context) (model.CoreStatus, error)
	StartCore(ctx context.Context) error
	StopCore(ctx context.Context) error
	RestartCore(ctx context.Context) error
}

// CoreStore mirrors the core's running state. Pushed status events land in
// Status directly; commands reload it once they succeed.
type CoreStore struct {
	api    CoreAPI
	load   *Value[model.CoreStatus]
	Status *Mirror[model.CoreStatus]
}

func NewCoreStore(api CoreAPI, m *metrics.Metrics) *CoreStore {
	return &CoreStore{
		api:    api,
		load:   NewValue("core", api.GetCoreStatus, m),
		Status: NewMirror(model.CoreStatus{}),
	}
}

// Load fetches the status into the mirror.
func (s *CoreStore) Load(ctx context.Context) error {
	if err := s.load.Load(ctx); err != nil {
		return err
	}
	st, _ := s.load.Get()
	s.Status.Set(st)
	return nil
}

func (s *CoreStore) Loading() bool { return s.load.Loading() }

func (s *CoreStore) command(ctx context.Context, op func(context.Context) error) error {
	if err := op(ctx); err != nil {
		return err
	}
	return s.Load(ctx)
}

func (s *CoreStore) Start(ctx context.Context) error { return s.command(ctx, s.api.StartCore) }
func (s *CoreStore) Stop(ctx context.Context) error { return s.command(ctx, s.api.StopCore) }
func (s *CoreStore) Restart(ctx context.Context) error { return s.command(ctx, s.api.RestartCore) }

// Toggle stops a running core and starts a stopped one.
func (s *CoreStore) Toggle(ctx context.Context) error {
	if s.Running() {
		return s.Stop(ctx)
	}
	return s.Start(ctx)
}

func (s *CoreStore) Running() bool { return s.Status.Value().Running }
