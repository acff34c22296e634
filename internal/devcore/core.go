// Package devcore is an in-memory stand-in for the proxy core. It answers
// the full command surface and pushes the same events a real core does, so
// the shell can be exercised without a core binary.
package devcore

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stepherg/rayshell/internal/events"
	"github.com/stepherg/rayshell/internal/model"
)

// Emitter receives pushed events. *events.Registry satisfies it.
type Emitter interface {
	Emit(topic string, payload any)
}

var (
	ErrNotFound      = errors.New("not found")
	ErrLocked        = errors.New("routing is locked")
	ErrNotRunning    = errors.New("core is not running")
	ErrNoActive      = errors.New("no active profile")
	ErrAlreadyExists = errors.New("already exists")
)

const maxLogLines = 5000

// Core is the in-memory core. All methods are safe for concurrent use.
type Core struct {
	emit Emitter
	log  zerolog.Logger
	now  func() time.Time

	mu       sync.Mutex
	profiles []model.Profile
	subs     []model.Subscription
	routings []model.Routing
	dns      model.DNS
	cfg      model.Config
	status   model.CoreStatus
	logs     []string
	traffic  model.TrafficStats
}

// New returns a core with default settings and one unlocked routing.
func New(emit Emitter, log zerolog.Logger) *Core {
	if emit == nil {
		emit = events.New()
	}
	routing := model.Routing{
		ID:             uuid.NewString(),
		Remarks:        "default",
		DomainStrategy: "AsIs",
		Enabled:        true,
		Rules: []model.Rule{
			{ID: uuid.NewString(), OutboundTag: "direct", Enabled: true, Remarks: "private", GeoIP: []string{"private"}},
			{ID: uuid.NewString(), OutboundTag: "proxy", Enabled: true, Remarks: "final", Port: "0-65535"},
		},
	}
	cfg := model.DefaultConfig()
	cfg.ActiveRoutingID = routing.ID
	return &Core{
		emit:     emit,
		log:      log.With().Str("component", "devcore").Logger(),
		now:      time.Now,
		routings: []model.Routing{routing},
		dns:      model.DefaultDNS(),
		cfg:      cfg,
		status:   model.CoreStatus{CoreType: model.CoreXray, Version: "dev"},
	}
}

// appendLog records a log line and pushes it. Callers hold c.mu.
func (c *Core) appendLogLocked(format string, args ...any) string {
	line := fmt.Sprintf("%s [Info] %s", c.now().Format("2006/01/02 15:04:05"), fmt.Sprintf(format, args...))
	c.logs = append(c.logs, line)
	if len(c.logs) > maxLogLines {
		c.logs = slices.Clone(c.logs[len(c.logs)-maxLogLines:])
	}
	return line
}

func (c *Core) logf(format string, args ...any) {
	c.mu.Lock()
	line := c.appendLogLocked(format, args...)
	c.mu.Unlock()
	c.log.Debug().Str("line", line).Msg("core log")
	c.emit.Emit(events.TopicCoreLog, line)
}

// Profiles

func (c *Core) GetProfiles(_ context.Context, subID string) ([]model.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Profile, 0, len(c.profiles))
	for _, p := range c.profiles {
		if subID == "" || p.SubID == subID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Core) AddProfile(_ context.Context, p model.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	if slices.ContainsFunc(c.profiles, func(q model.Profile) bool { return q.ID == p.ID }) {
		c.mu.Unlock()
		return fmt.Errorf("profile %s: %w", p.ID, ErrAlreadyExists)
	}
	p.Sort = len(c.profiles)
	c.profiles = append(c.profiles, p)
	c.mu.Unlock()
	c.logf("profile added: %s", p.Remarks)
	return nil
}

func (c *Core) UpdateProfile(_ context.Context, p model.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.profiles, func(q model.Profile) bool { return q.ID == p.ID })
	if i < 0 {
		return fmt.Errorf("profile %s: %w", p.ID, ErrNotFound)
	}
	c.profiles[i] = p
	return nil
}

func (c *Core) DeleteProfiles(_ context.Context, ids []string) error {
	c.mu.Lock()
	c.profiles = slices.DeleteFunc(c.profiles, func(p model.Profile) bool { return slices.Contains(ids, p.ID) })
	if slices.Contains(ids, c.cfg.ActiveProfileID) {
		c.cfg.ActiveProfileID = ""
	}
	c.mu.Unlock()
	c.logf("deleted %d profiles", len(ids))
	return nil
}

func (c *Core) SetActiveProfile(_ context.Context, id string) error {
	c.mu.Lock()
	i := slices.IndexFunc(c.profiles, func(p model.Profile) bool { return p.ID == id })
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	c.cfg.ActiveProfileID = id
	running := c.status.Running
	if running {
		c.status.Profile = c.profiles[i].Remarks
	}
	st := c.status
	c.mu.Unlock()
	if running {
		c.emit.Emit(events.TopicCoreStatus, st)
	}
	return nil
}

func (c *Core) ImportFromText(ctx context.Context, text string) (int, error) {
	parsed, err := ParseShareLinks(text)
	if err != nil && len(parsed) == 0 {
		return 0, err
	}
	n := 0
	for _, p := range parsed {
		if err := c.AddProfile(ctx, p); err == nil {
			n++
		}
	}
	return n, nil
}

func (c *Core) ExportShareLink(_ context.Context, id string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.profiles, func(p model.Profile) bool { return p.ID == id })
	if i < 0 {
		return "", fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return ShareLink(c.profiles[i]), nil
}

// measure derives a stable fake latency from the profile id. Ports above
// 60000 time out.
func measure(p model.Profile) model.SpeedTestResult {
	if p.Port > 60000 {
		return model.SpeedTestResult{ProfileID: p.ID, Latency: -1}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(p.ID))
	ms := 20 + int(h.Sum32()%480)
	return model.SpeedTestResult{ProfileID: p.ID, Latency: ms, Speed: int64(1_000_000_000 / ms)}
}

func (c *Core) TestProfiles(_ context.Context, ids []string) ([]model.SpeedTestResult, error) {
	c.mu.Lock()
	var out []model.SpeedTestResult
	for _, p := range c.profiles {
		if slices.Contains(ids, p.ID) {
			out = append(out, measure(p))
		}
	}
	c.mu.Unlock()
	for _, r := range out {
		c.emit.Emit(events.TopicSpeedTest, r)
	}
	return out, nil
}

func (c *Core) TestAllProfiles(ctx context.Context) ([]model.SpeedTestResult, error) {
	c.mu.Lock()
	ids := make([]string, len(c.profiles))
	for i, p := range c.profiles {
		ids[i] = p.ID
	}
	c.mu.Unlock()
	return c.TestProfiles(ctx, ids)
}

// Subscriptions

func (c *Core) GetSubscriptions(context.Context) ([]model.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.subs), nil
}

func (c *Core) AddSubscription(_ context.Context, s model.Subscription) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.URL == "" {
		return errors.New("subscription url is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s.Sort = len(c.subs)
	c.subs = append(c.subs, s)
	return nil
}

func (c *Core) UpdateSubscription(_ context.Context, s model.Subscription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.subs, func(q model.Subscription) bool { return q.ID == s.ID })
	if i < 0 {
		return fmt.Errorf("subscription %s: %w", s.ID, ErrNotFound)
	}
	c.subs[i] = s
	return nil
}

// DeleteSubscription removes the subscription and every profile it owns.
func (c *Core) DeleteSubscription(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = slices.DeleteFunc(c.subs, func(s model.Subscription) bool { return s.ID == id })
	c.profiles = slices.DeleteFunc(c.profiles, func(p model.Profile) bool { return p.SubID == id })
	return nil
}

// SyncSubscription stamps the update time and reports the profile count.
// Nothing is fetched.
func (c *Core) SyncSubscription(_ context.Context, id string) (int, error) {
	c.mu.Lock()
	i := slices.IndexFunc(c.subs, func(s model.Subscription) bool { return s.ID == id })
	if i < 0 {
		c.mu.Unlock()
		return 0, fmt.Errorf("subscription %s: %w", id, ErrNotFound)
	}
	c.subs[i].UpdateTime = c.now().Unix()
	n := 0
	for _, p := range c.profiles {
		if p.SubID == id {
			n++
		}
	}
	remarks := c.subs[i].Remarks
	c.mu.Unlock()
	c.logf("subscription %s synced: %d profiles", remarks, n)
	return n, nil
}

func (c *Core) SyncAllSubscriptions(ctx context.Context) (map[string]int, error) {
	c.mu.Lock()
	var ids []string
	for _, s := range c.subs {
		if s.Enabled {
			ids = append(ids, s.ID)
		}
	}
	c.mu.Unlock()
	out := make(map[string]int, len(ids))
	for _, id := range ids {
		n, err := c.SyncSubscription(ctx, id)
		if err != nil {
			continue
		}
		out[id] = n
	}
	return out, nil
}

// Routings

func (c *Core) GetRoutings(context.Context) ([]model.Routing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.routings), nil
}

func (c *Core) AddRouting(_ context.Context, r model.Routing) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r.Sort = len(c.routings)
	c.routings = append(c.routings, r)
	return nil
}

func (c *Core) UpdateRouting(_ context.Context, r model.Routing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.routings, func(q model.Routing) bool { return q.ID == r.ID })
	if i < 0 {
		return fmt.Errorf("routing %s: %w", r.ID, ErrNotFound)
	}
	if c.routings[i].Locked {
		return ErrLocked
	}
	c.routings[i] = r
	return nil
}

func (c *Core) DeleteRouting(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.routings, func(q model.Routing) bool { return q.ID == id })
	if i < 0 {
		return fmt.Errorf("routing %s: %w", id, ErrNotFound)
	}
	if c.routings[i].Locked {
		return ErrLocked
	}
	c.routings = slices.Delete(c.routings, i, i+1)
	if c.cfg.ActiveRoutingID == id {
		c.cfg.ActiveRoutingID = ""
	}
	return nil
}

func (c *Core) SetActiveRouting(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.ContainsFunc(c.routings, func(r model.Routing) bool { return r.ID == id }) {
		return fmt.Errorf("routing %s: %w", id, ErrNotFound)
	}
	c.cfg.ActiveRoutingID = id
	return nil
}

// DNS and config

func (c *Core) GetDNSConfig(context.Context) (model.DNS, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dns, nil
}

func (c *Core) UpdateDNSConfig(_ context.Context, d model.DNS) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dns = d
	return nil
}

func (c *Core) GetConfig(context.Context) (model.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg, nil
}

func (c *Core) UpdateConfig(_ context.Context, cfg model.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	return nil
}

func (c *Core) SetProxyMode(_ context.Context, mode model.ProxyMode) error {
	if mode.String() == "unknown" {
		return fmt.Errorf("unknown proxy mode %d", int(mode))
	}
	c.mu.Lock()
	c.cfg.ProxyMode = mode
	c.mu.Unlock()
	c.logf("proxy mode set to %s", mode)
	return nil
}

// Logs

func (c *Core) GetLogs(_ context.Context, limit int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := c.logs
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return slices.Clone(lines), nil
}

func (c *Core) ClearLogs(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = nil
	return nil
}

// Core lifecycle

func (c *Core) GetCoreStatus(context.Context) (model.CoreStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, nil
}

func (c *Core) StartCore(context.Context) error {
	c.mu.Lock()
	i := slices.IndexFunc(c.profiles, func(p model.Profile) bool { return p.ID == c.cfg.ActiveProfileID })
	if i < 0 {
		c.mu.Unlock()
		return ErrNoActive
	}
	start := c.now().Unix()
	c.status.Running = true
	c.status.StartTime = &start
	c.status.PID = 4242
	c.status.Profile = c.profiles[i].Remarks
	st := c.status
	line := c.appendLogLocked("core started with %s", st.Profile)
	c.mu.Unlock()

	c.emit.Emit(events.TopicCoreStatus, st)
	c.emit.Emit(events.TopicCoreLog, line)
	return nil
}

func (c *Core) StopCore(context.Context) error {
	c.mu.Lock()
	if !c.status.Running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.status = model.CoreStatus{CoreType: c.status.CoreType, Version: c.status.Version}
	c.traffic = model.TrafficStats{}
	st := c.status
	line := c.appendLogLocked("core stopped")
	c.mu.Unlock()

	c.emit.Emit(events.TopicCoreStatus, st)
	c.emit.Emit(events.TopicCoreLog, line)
	return nil
}

func (c *Core) RestartCore(ctx context.Context) error {
	if err := c.StopCore(ctx); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return c.StartCore(ctx)
}

// Tick advances the traffic counters by up/down bytes and pushes the new
// stats while the core runs.
func (c *Core) Tick(up, down int64) {
	c.mu.Lock()
	if !c.status.Running {
		c.mu.Unlock()
		return
	}
	c.traffic.Up, c.traffic.Down = up, down
	c.traffic.TotalUp += up
	c.traffic.TotalDown += down
	stats := c.traffic
	c.mu.Unlock()
	c.emit.Emit(events.TopicTraffic, stats)
}

// Run pushes synthetic traffic every interval until ctx is done.
func (c *Core) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var n int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n++
			c.Tick(1024*(n%7+1), 4096*(n%5+1))
		}
	}
}
