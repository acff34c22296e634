package store

import (
	"context"

	"github.com/stepherg/rayshell/internal/metrics"
	"github.com/stepherg/rayshell/internal/model"
)

// DNSAPI is the core's resolver settings surface.
type DNSAPI interface {
	GetDNSConfig(ctx context.Context) (model.DNS, error)
	UpdateDNSConfig(ctx context.Context, d model.DNS) error
}

type DNSStore struct {
	*Value[model.DNS]
	api DNSAPI
}

func NewDNSStore(api DNSAPI, m *metrics.Metrics) *DNSStore {
	return &DNSStore{api: api, Value: NewValue("dns", api.GetDNSConfig, m)}
}

func (s *DNSStore) Update(ctx context.Context, d model.DNS) error {
	return s.Mutate(ctx, func(ctx context.Context) error { return s.api.UpdateDNSConfig(ctx, d) })
}

// ConfigAPI is the core's application settings surface.
type ConfigAPI interface {
	GetConfig(ctx context.Context) (model.Config, error)
	UpdateConfig(ctx context.Context, cfg model.Config) error
	SetProxyMode(ctx context.Context, mode model.ProxyMode) error
}

// ConfigStore mirrors the core's application settings. Writes are followed
// by a reload rather than a local patch.
type ConfigStore struct {
	*Value[model.Config]
	api ConfigAPI
}

func NewConfigStore(api ConfigAPI, m *metrics.Metrics) *ConfigStore {
	return &ConfigStore{api: api, Value: NewValue("config", api.GetConfig, m)}
}

func (s *ConfigStore) Update(ctx context.Context, cfg model.Config) error {
	return s.Mutate(ctx, func(ctx context.Context) error { return s.api.UpdateConfig(ctx, cfg) })
}

func (s *ConfigStore) SetProxyMode(ctx context.Context, mode model.ProxyMode) error {
	return s.Mutate(ctx, func(ctx context.Context) error { return s.api.SetProxyMode(ctx, mode) })
}

func (s *ConfigStore) ActiveProfileID() string {
	cfg, _ := s.Get()
	return cfg.ActiveProfileID
}

func (s *ConfigStore) ActiveRoutingID() string {
	cfg, _ := s.Get()
	return cfg.ActiveRoutingID
}

// Theme is the configured UI theme, "system" until the config is loaded.
func (s *ConfigStore) Theme() string {
	cfg, ok := s.Get()
	if !ok || cfg.UI.Theme == "" {
		return "system"
	}
	return cfg.UI.Theme
}
