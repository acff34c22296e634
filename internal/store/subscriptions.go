package store

import (
	"context"

	"github.com/stepherg/rayshell/internal/metrics"
	"github.com/stepherg/rayshell/internal/model"
)

// SubscriptionAPI is the core's subscription surface.
type SubscriptionAPI interface {
	GetSubscriptions(ctx context.Context) ([]model.Subscription, error)
	AddSubscription(ctx context.Context, s model.Subscription) error
	UpdateSubscription(ctx context.Context, s model.Subscription) error
	DeleteSubscription(ctx context.Context, id string) error
	SyncSubscription(ctx context.Context, id string) (int, error)
	SyncAllSubscriptions(ctx context.Context) (map[string]int, error)
}

// SubscriptionStore is the subscription list plus the set being synced.
type SubscriptionStore struct {
	*Collection[model.Subscription, struct{}]

	api     SubscriptionAPI
	Syncing *Tracker
}

func NewSubscriptionStore(api SubscriptionAPI, m *metrics.Metrics) *SubscriptionStore {
	return &SubscriptionStore{
		api:     api,
		Syncing: NewTracker("subscriptions", m),
		Collection: NewCollection("subscriptions", func(ctx context.Context, _ struct{}) ([]model.Subscription, error) {
			return api.GetSubscriptions(ctx)
		}, m),
	}
}

// Refresh loads the list.
func (s *SubscriptionStore) Refresh(ctx context.Context) error {
	return s.Load(ctx, struct{}{})
}

func (s *SubscriptionStore) Create(ctx context.Context, sub model.Subscription) error {
	return s.Mutate(ctx, func(ctx context.Context) error { return s.api.AddSubscription(ctx, sub) })
}

func (s *SubscriptionStore) Update(ctx context.Context, sub model.Subscription) error {
	return s.Mutate(ctx, func(ctx context.Context) error { return s.api.UpdateSubscription(ctx, sub) })
}

func (s *SubscriptionStore) Delete(ctx context.Context, id string) error {
	return s.Mutate(ctx, func(ctx context.Context) error { return s.api.DeleteSubscription(ctx, id) })
}

// Sync refetches one subscription, reloads the list and returns the profile
// count the core reported. id is marked syncing for the whole operation.
func (s *SubscriptionStore) Sync(ctx context.Context, id string) (int, error) {
	var n int
	err := s.Syncing.Track(ctx, id, func(ctx context.Context) error {
		return s.Mutate(ctx, func(ctx context.Context) error {
			var err error
			n, err = s.api.SyncSubscription(ctx, id)
			return err
		})
	})
	return n, err
}

// SyncAll refetches every subscription; all currently listed ids are marked
// syncing until it settles.
func (s *SubscriptionStore) SyncAll(ctx context.Context) (map[string]int, error) {
	ids := make([]string, 0, s.Len())
	for _, sub := range s.Items() {
		ids = append(ids, sub.ID)
	}
	var counts map[string]int
	err := s.Syncing.TrackAll(ctx, ids, func(ctx context.Context) error {
		return s.Mutate(ctx, func(ctx context.Context) error {
			var err error
			counts, err = s.api.SyncAllSubscriptions(ctx)
			return err
		})
	})
	if counts == nil && err == nil {
		counts = map[string]int{}
	}
	return counts, err
}
