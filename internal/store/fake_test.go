package store

import (
	"context"
	"errors"
	"sync"

	"github.com/stepherg/rayshell/internal/model"
)

var errBoom = errors.New("boom")

// fakeCore implements every store API on in-memory records.
type fakeCore struct {
	mu sync.Mutex

	profiles []model.Profile
	subs     []model.Subscription
	routings []model.Routing
	dns      model.DNS
	cfg      model.Config
	status   model.CoreStatus
	logs     []string
	results  []model.SpeedTestResult

	nilLists bool             // list calls return nil
	fail     map[string]error // per-method failures
	calls    []string

	// beforeList, when set, runs inside GetProfiles before it answers.
	beforeList func()
}

func newFakeCore() *fakeCore { return &fakeCore{fail: map[string]error{}} }

func (f *fakeCore) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	return f.fail[method]
}

func (f *fakeCore) setFail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

func (f *fakeCore) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeCore) GetProfiles(_ context.Context, subID string) ([]model.Profile, error) {
	if err := f.record("GetProfiles"); err != nil {
		return nil, err
	}
	if f.beforeList != nil {
		f.beforeList()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nilLists {
		return nil, nil
	}
	var out []model.Profile
	for _, p := range f.profiles {
		if subID == "" || p.SubID == subID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCore) AddProfile(_ context.Context, p model.Profile) error {
	if err := f.record("AddProfile"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, p)
	return nil
}

func (f *fakeCore) UpdateProfile(_ context.Context, p model.Profile) error {
	if err := f.record("UpdateProfile"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.profiles {
		if f.profiles[i].ID == p.ID {
			f.profiles[i] = p
		}
	}
	return nil
}

func (f *fakeCore) DeleteProfiles(_ context.Context, ids []string) error {
	if err := f.record("DeleteProfiles"); err != nil {
		return err
	}
	gone := map[string]bool{}
	for _, id := range ids {
		gone[id] = true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.profiles[:0]
	for _, p := range f.profiles {
		if !gone[p.ID] {
			kept = append(kept, p)
		}
	}
	f.profiles = kept
	return nil
}

func (f *fakeCore) SetActiveProfile(context.Context, string) error {
	return f.record("SetActiveProfile")
}

func (f *fakeCore) ImportFromText(_ context.Context, text string) (int, error) {
	if err := f.record("ImportFromText"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, profile("imported", text, 443))
	return 1, nil
}

func (f *fakeCore) ExportShareLink(_ context.Context, id string) (string, error) {
	if err := f.record("ExportShareLink"); err != nil {
		return "", err
	}
	return "vless://" + id, nil
}

func (f *fakeCore) TestProfiles(context.Context, []string) ([]model.SpeedTestResult, error) {
	if err := f.record("TestProfiles"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results, nil
}

func (f *fakeCore) TestAllProfiles(context.Context) ([]model.SpeedTestResult, error) {
	if err := f.record("TestAllProfiles"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results, nil
}

func (f *fakeCore) GetSubscriptions(context.Context) ([]model.Subscription, error) {
	if err := f.record("GetSubscriptions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nilLists {
		return nil, nil
	}
	return append([]model.Subscription(nil), f.subs...), nil
}

func (f *fakeCore) AddSubscription(_ context.Context, s model.Subscription) error {
	if err := f.record("AddSubscription"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, s)
	return nil
}

func (f *fakeCore) UpdateSubscription(context.Context, model.Subscription) error {
	return f.record("UpdateSubscription")
}

func (f *fakeCore) DeleteSubscription(_ context.Context, id string) error {
	if err := f.record("DeleteSubscription"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subs {
		if s.ID == id {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeCore) SyncSubscription(context.Context, string) (int, error) {
	if err := f.record("SyncSubscription"); err != nil {
		return 0, err
	}
	return 3, nil
}

func (f *fakeCore) SyncAllSubscriptions(context.Context) (map[string]int, error) {
	if err := f.record("SyncAllSubscriptions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for _, s := range f.subs {
		out[s.ID] = 1
	}
	return out, nil
}

func (f *fakeCore) GetRoutings(context.Context) ([]model.Routing, error) {
	if err := f.record("GetRoutings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nilLists {
		return nil, nil
	}
	return append([]model.Routing(nil), f.routings...), nil
}

func (f *fakeCore) AddRouting(_ context.Context, r model.Routing) error {
	if err := f.record("AddRouting"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routings = append(f.routings, r)
	return nil
}

func (f *fakeCore) UpdateRouting(context.Context, model.Routing) error {
	return f.record("UpdateRouting")
}

func (f *fakeCore) DeleteRouting(context.Context, string) error {
	return f.record("DeleteRouting")
}

func (f *fakeCore) SetActiveRouting(_ context.Context, id string) error {
	if err := f.record("SetActiveRouting"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg.ActiveRoutingID = id
	return nil
}

func (f *fakeCore) GetDNSConfig(context.Context) (model.DNS, error) {
	if err := f.record("GetDNSConfig"); err != nil {
		return model.DNS{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dns, nil
}

func (f *fakeCore) UpdateDNSConfig(_ context.Context, d model.DNS) error {
	if err := f.record("UpdateDNSConfig"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dns = d
	return nil
}

func (f *fakeCore) GetConfig(context.Context) (model.Config, error) {
	if err := f.record("GetConfig"); err != nil {
		return model.Config{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg, nil
}

func (f *fakeCore) UpdateConfig(_ context.Context, cfg model.Config) error {
	if err := f.record("UpdateConfig"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
	return nil
}

func (f *fakeCore) SetProxyMode(_ context.Context, mode model.ProxyMode) error {
	if err := f.record("SetProxyMode"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg.ProxyMode = mode
	return nil
}

func (f *fakeCore) GetLogs(_ context.Context, limit int) ([]string, error) {
	if err := f.record("GetLogs"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nilLists {
		return nil, nil
	}
	lines := f.logs
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return append([]string(nil), lines...), nil
}

func (f *fakeCore) ClearLogs(context.Context) error {
	if err := f.record("ClearLogs"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = nil
	return nil
}

func (f *fakeCore) GetCoreStatus(context.Context) (model.CoreStatus, error) {
	if err := f.record("GetCoreStatus"); err != nil {
		return model.CoreStatus{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, nil
}

func (f *fakeCore) StartCore(context.Context) error {
	if err := f.record("StartCore"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status.Running = true
	return nil
}

func (f *fakeCore) StopCore(context.Context) error {
	if err := f.record("StopCore"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status.Running = false
	return nil
}

func (f *fakeCore) RestartCore(context.Context) error {
	return f.record("RestartCore")
}

func profile(id, remarks string, port int) model.Profile {
	p := model.NewProfile(model.ConfigVLESS)
	p.ID, p.Remarks, p.Address, p.Port = id, remarks, remarks+".example.com", port
	return p
}
