package store

import (
	"context"

	"github.com/stepherg/rayshell/internal/metrics"
	"github.com/stepherg/rayshell/internal/model"
)

// RoutingAPI is the core's routing surface.
type RoutingAPI interface {
	GetRoutings(ctx context.Context) ([]model.Routing, error)
	AddRouting(ctx context.Context, r model.Routing) error
	UpdateRouting(ctx context.Context, r model.Routing) error
	DeleteRouting(ctx context.Context, id string) error
	SetActiveRouting(ctx context.Context, id string) error
}

type RoutingStore struct {
	*Collection[model.Routing, struct{}]

	api RoutingAPI
}

func NewRoutingStore(api RoutingAPI, m *metrics.Metrics) *RoutingStore {
	return &RoutingStore{
		api: api,
		Collection: NewCollection("routings", func(ctx context.Context, _ struct{}) ([]model.Routing, error) {
			return api.GetRoutings(ctx)
		}, m),
	}
}

func (s *RoutingStore) Refresh(ctx context.Context) error {
	return s.Load(ctx, struct{}{})
}

func (s *RoutingStore) Create(ctx context.Context, r model.Routing) error {
	return s.Mutate(ctx, func(ctx context.Context) error { return s.api.AddRouting(ctx, r) })
}

func (s *RoutingStore) Update(ctx context.Context, r model.Routing) error {
	return s.Mutate(ctx, func(ctx context.Context) error { return s.api.UpdateRouting(ctx, r) })
}

func (s *RoutingStore) Delete(ctx context.Context, id string) error {
	return s.Mutate(ctx, func(ctx context.Context) error { return s.api.DeleteRouting(ctx, id) })
}

// SetActive switches the active rule set. The list is not reloaded.
func (s *RoutingStore) SetActive(ctx context.Context, id string) error {
	return s.api.SetActiveRouting(ctx, id)
}
