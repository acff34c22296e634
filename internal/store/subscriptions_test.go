package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepherg/rayshell/internal/model"
)

func seededSubs(t *testing.T) (*fakeCore, *SubscriptionStore) {
	t.Helper()
	f := newFakeCore()
	f.subs = []model.Subscription{{ID: "s1", Remarks: "one"}, {ID: "s2", Remarks: "two"}}
	s := NewSubscriptionStore(f, nil)
	require.NoError(t, s.Refresh(context.Background()))
	return f, s
}

func TestSubscriptionCRUD(t *testing.T) {
	ctx := context.Background()
	_, s := seededSubs(t)

	require.NoError(t, s.Create(ctx, model.Subscription{ID: "s3"}))
	assert.Equal(t, 3, s.Len())
	require.NoError(t, s.Update(ctx, model.Subscription{ID: "s3", Remarks: "x"}))
	require.NoError(t, s.Delete(ctx, "s1"))
	assert.Equal(t, 2, s.Len())
}

func TestSubscriptionSyncTracksID(t *testing.T) {
	ctx := context.Background()
	f, s := seededSubs(t)

	var inFlight bool
	f.beforeList = nil
	cancel := s.Syncing.Watch(func() {
		if s.Syncing.InFlight("s1") {
			inFlight = true
		}
	})
	defer cancel()

	n, err := s.Sync(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, inFlight)
	assert.False(t, s.Syncing.InFlight("s1"))

	f.setFail("SyncSubscription", errBoom)
	_, err = s.Sync(ctx, "s1")
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, s.Syncing.InFlight("s1"), "removed after failure too")
}

func TestSubscriptionSyncAll(t *testing.T) {
	ctx := context.Background()
	f, s := seededSubs(t)

	counts, err := s.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"s1": 1, "s2": 1}, counts)
	assert.Zero(t, s.Syncing.Len())

	f.setFail("SyncAllSubscriptions", errBoom)
	_, err = s.SyncAll(ctx)
	assert.ErrorIs(t, err, errBoom)
	assert.Zero(t, s.Syncing.Len())
}
