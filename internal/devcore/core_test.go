package devcore

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepherg/rayshell/internal/events"
	"github.com/stepherg/rayshell/internal/model"
	"github.com/stepherg/rayshell/internal/remote"
	"github.com/stepherg/rayshell/internal/rpc"
)

type captured struct {
	mu     sync.Mutex
	topics []string
	last   map[string]any
}

func (c *captured) Emit(topic string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		c.last = map[string]any{}
	}
	c.topics = append(c.topics, topic)
	c.last[topic] = payload
}

func (c *captured) count(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.topics {
		if t == topic {
			n++
		}
	}
	return n
}

// loopback drives a Mux the way a remote transport would, through JSON.
type loopback struct{ mux *rpc.Mux }

func (l loopback) Call(ctx context.Context, method string, params any, result any) error {
	req, err := rpc.NewRequest(method, params)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	parsed, err := rpc.ParseRequest(raw)
	if err != nil {
		return err
	}
	out, err := json.Marshal(l.mux.Handle(ctx, parsed))
	if err != nil {
		return err
	}
	m, err := rpc.ParseMessage(out)
	if err != nil {
		return err
	}
	return rpc.Settle(method, m, result)
}

func newCore(t *testing.T) (*Core, *captured) {
	t.Helper()
	em := &captured{}
	return New(em, zerolog.Nop()), em
}

func socks(t *testing.T, remarks string, port int) model.Profile {
	t.Helper()
	p := model.NewProfile(model.ConfigSOCKS)
	p.Remarks = remarks
	p.Address = "127.0.0.1"
	p.Port = port
	return p
}

func TestStartRequiresActiveProfile(t *testing.T) {
	c, em := newCore(t)
	ctx := context.Background()
	require.ErrorIs(t, c.StartCore(ctx), ErrNoActive)

	p := socks(t, "local", 1080)
	require.NoError(t, c.AddProfile(ctx, p))
	require.NoError(t, c.SetActiveProfile(ctx, p.ID))
	require.NoError(t, c.StartCore(ctx))

	st, err := c.GetCoreStatus(ctx)
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, "local", st.Profile)
	require.NotNil(t, st.StartTime)
	assert.Equal(t, 1, em.count(events.TopicCoreStatus))

	require.NoError(t, c.StopCore(ctx))
	require.ErrorIs(t, c.StopCore(ctx), ErrNotRunning)
	st, _ = c.GetCoreStatus(ctx)
	assert.False(t, st.Running)
	assert.Nil(t, st.StartTime)
	assert.Equal(t, 2, em.count(events.TopicCoreStatus))
}

func TestTickOnlyWhileRunning(t *testing.T) {
	c, em := newCore(t)
	ctx := context.Background()
	c.Tick(1, 1)
	assert.Zero(t, em.count(events.TopicTraffic))

	p := socks(t, "a", 1080)
	require.NoError(t, c.AddProfile(ctx, p))
	require.NoError(t, c.SetActiveProfile(ctx, p.ID))
	require.NoError(t, c.StartCore(ctx))
	c.Tick(10, 20)
	c.Tick(5, 5)
	require.Equal(t, 2, em.count(events.TopicTraffic))
	assert.Equal(t, model.TrafficStats{Up: 5, Down: 5, TotalUp: 15, TotalDown: 25}, em.last[events.TopicTraffic])
}

func TestDeleteSubscriptionDropsItsProfiles(t *testing.T) {
	c, _ := newCore(t)
	ctx := context.Background()
	sub := model.NewSubscription()
	sub.URL = "https://example.com/sub"
	require.NoError(t, c.AddSubscription(ctx, sub))

	owned := socks(t, "owned", 1080)
	owned.SubID = sub.ID
	require.NoError(t, c.AddProfile(ctx, owned))
	require.NoError(t, c.AddProfile(ctx, socks(t, "free", 1081)))

	n, err := c.SyncSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, c.DeleteSubscription(ctx, sub.ID))
	all, _ := c.GetProfiles(ctx, "")
	require.Len(t, all, 1)
	assert.Equal(t, "free", all[0].Remarks)
}

func TestLockedRoutingRejectsEdits(t *testing.T) {
	c, _ := newCore(t)
	ctx := context.Background()
	r := model.Routing{Remarks: "locked", Locked: true}
	require.NoError(t, c.AddRouting(ctx, r))
	rs, _ := c.GetRoutings(ctx)
	require.Len(t, rs, 2)
	locked := rs[1]
	assert.ErrorIs(t, c.DeleteRouting(ctx, locked.ID), ErrLocked)
	assert.ErrorIs(t, c.UpdateRouting(ctx, locked), ErrLocked)
	assert.ErrorIs(t, c.SetActiveRouting(ctx, "missing"), ErrNotFound)
}

func TestTestProfilesIsDeterministic(t *testing.T) {
	c, em := newCore(t)
	ctx := context.Background()
	fast := socks(t, "fast", 1080)
	dead := socks(t, "dead", 60001)
	require.NoError(t, c.AddProfile(ctx, fast))
	require.NoError(t, c.AddProfile(ctx, dead))

	first, err := c.TestAllProfiles(ctx)
	require.NoError(t, err)
	second, err := c.TestProfiles(ctx, []string{fast.ID, dead.ID})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, -1, second[1].Latency)
	assert.Positive(t, second[0].Latency)
	assert.Equal(t, 4, em.count(events.TopicSpeedTest))
}

func TestMuxThroughClient(t *testing.T) {
	c, _ := newCore(t)
	cl := remote.New(loopback{mux: c.Mux()})
	ctx := context.Background()

	n, err := cl.ImportFromText(ctx, "socks://u:p@10.0.0.1:1080#lab\ntrojan://secret@example.com:443?security=tls&sni=example.com#edge\nbogus")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	profiles, err := cl.GetProfiles(ctx, "")
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, model.ConfigTrojan, profiles[1].ConfigType)
	assert.Equal(t, "secret", profiles[1].Trojan.Password)

	link, err := cl.ExportShareLink(ctx, profiles[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "socks://u:p@10.0.0.1:1080#lab", link)

	require.NoError(t, cl.SetProxyMode(ctx, model.ProxyModeTUN))
	cfg, err := cl.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ProxyModeTUN, cfg.ProxyMode)

	err = cl.StartCore(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, rpc.ErrRemote)

	require.NoError(t, cl.SetActiveProfile(ctx, profiles[0].ID))
	require.NoError(t, cl.StartCore(ctx))
	logs, err := cl.GetLogs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0], "core started with lab")
}
