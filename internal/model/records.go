package model

import "github.com/google/uuid"

// Subscription is a remote source of profiles.
type Subscription struct {
	ID                 string `json:"id"`
	Remarks            string `json:"remarks"`
	URL                string `json:"url"`
	Enabled            bool   `json:"enabled"`
	Sort               int    `json:"sort"`
	Filter             string `json:"filter,omitempty"`
	AutoUpdateInterval int    `json:"autoUpdateInterval"`
	UpdateTime         int64  `json:"updateTime"`
	UserAgent          string `json:"userAgent,omitempty"`
}

// NewSubscription returns an enabled subscription with a fresh id.
func NewSubscription() Subscription {
	return Subscription{ID: uuid.NewString(), Enabled: true}
}

// Routing is an ordered rule set; one routing is active at a time.
type Routing struct {
	ID             string `json:"id"`
	Remarks        string `json:"remarks"`
	DomainStrategy string `json:"domainStrategy"`
	Rules          []Rule `json:"rules"`
	Enabled        bool   `json:"enabled"`
	Locked         bool   `json:"locked"`
	Sort           int    `json:"sort"`
}

// Rule is one match-and-route entry of a Routing.
type Rule struct {
	ID            string   `json:"id"`
	OutboundTag   string   `json:"outboundTag"`
	Enabled       bool     `json:"enabled"`
	Remarks       string   `json:"remarks,omitempty"`
	Domain        []string `json:"domain,omitempty"`
	DomainSuffix  []string `json:"domainSuffix,omitempty"`
	DomainKeyword []string `json:"domainKeyword,omitempty"`
	DomainRegex   []string `json:"domainRegex,omitempty"`
	Geosite       []string `json:"geosite,omitempty"`
	IP            []string `json:"ip,omitempty"`
	IPCIDR        []string `json:"ipCidr,omitempty"`
	GeoIP         []string `json:"geoip,omitempty"`
	Port          string   `json:"port,omitempty"`
	Protocol      []string `json:"protocol,omitempty"`
	ProcessName   []string `json:"processName,omitempty"`
	Network       string   `json:"network,omitempty"`
	Inbound       []string `json:"inbound,omitempty"`
	RuleSet       []string `json:"ruleSet,omitempty"`
}

// DNS is the resolver configuration handed to the core.
type DNS struct {
	RemoteDNS      string `json:"remoteDns"`
	DirectDNS      string `json:"directDns"`
	BootstrapDNS   string `json:"bootstrapDns"`
	UseSystemHosts bool   `json:"useSystemHosts"`
	FakeIP         bool   `json:"fakeIP"`
	Hosts          string `json:"hosts"`
	DomainStrategy string `json:"domainStrategy"`
}

// DefaultDNS mirrors the core's built-in resolver settings.
func DefaultDNS() DNS {
	return DNS{
		RemoteDNS:      "https://dns.google/dns-query",
		DirectDNS:      "https://dns.alidns.com/dns-query",
		BootstrapDNS:   "1.1.1.1",
		DomainStrategy: "prefer_ipv4",
	}
}

// Config is the core's global application configuration.
type Config struct {
	ActiveProfileID string `json:"activeProfileId"`
	ActiveRoutingID string `json:"activeRoutingId"`
	ActiveDNSPreset string `json:"activeDnsPreset"`

	CoreBasic   CoreBasicConfig   `json:"coreBasic"`
	Inbounds    []InboundConfig   `json:"inbounds"`
	ProxyMode   ProxyMode         `json:"proxyMode"`
	TUN         TUNConfig         `json:"tun"`
	SystemProxy SystemProxyConfig `json:"systemProxy"`
	UI          UIConfig          `json:"ui"`
	SpeedTest   SpeedTestConfig   `json:"speedTest"`
}

type CoreBasicConfig struct {
	LogEnabled     bool   `json:"logEnabled"`
	LogLevel       string `json:"logLevel"`
	MuxEnabled     bool   `json:"muxEnabled"`
	AllowInsecure  bool   `json:"allowInsecure"`
	Fingerprint    string `json:"fingerprint"`
	EnableFragment bool   `json:"enableFragment"`
}

type InboundConfig struct {
	Protocol        string `json:"protocol"`
	ListenAddr      string `json:"listenAddr"`
	Port            int    `json:"port"`
	UDPEnabled      bool   `json:"udpEnabled"`
	SniffingEnabled bool   `json:"sniffingEnabled"`
	AllowLAN        bool   `json:"allowLAN"`
}

type TUNConfig struct {
	Enabled     bool   `json:"enabled"`
	AutoRoute   bool   `json:"autoRoute"`
	StrictRoute bool   `json:"strictRoute"`
	Stack       string `json:"stack"`
	MTU         int    `json:"mtu"`
	EnableIPv6  bool   `json:"enableIPv6"`
}

type SystemProxyConfig struct {
	Exceptions    string `json:"exceptions"`
	NotProxyLocal bool   `json:"notProxyLocal"`
}

type UIConfig struct {
	Theme           string `json:"theme"`
	Language        string `json:"language"`
	FontFamily      string `json:"fontFamily"`
	FontSize        int    `json:"fontSize"`
	AutoHideOnStart bool   `json:"autoHideOnStart"`
	CloseToTray     bool   `json:"closeToTray"`
	ShowInDock      bool   `json:"showInDock"`
}

type SpeedTestConfig struct {
	Timeout    int    `json:"timeout"`
	URL        string `json:"url"`
	PingURL    string `json:"pingUrl"`
	Concurrent int    `json:"concurrent"`
}

// DefaultConfig is what a fresh core reports before any edits.
func DefaultConfig() Config {
	return Config{
		ActiveDNSPreset: "default",
		ProxyMode:       ProxyModeManual,
		CoreBasic: CoreBasicConfig{
			LogEnabled:  true,
			LogLevel:    "info",
			Fingerprint: "chrome",
		},
		Inbounds: []InboundConfig{
			{Protocol: "socks", ListenAddr: "127.0.0.1", Port: 10808, UDPEnabled: true, SniffingEnabled: true},
			{Protocol: "http", ListenAddr: "127.0.0.1", Port: 10809, SniffingEnabled: true},
		},
		TUN:         TUNConfig{AutoRoute: true, StrictRoute: true, Stack: "gvisor", MTU: 9000},
		SystemProxy: SystemProxyConfig{NotProxyLocal: true},
		UI:          UIConfig{Theme: "system", Language: "en", FontSize: 14, CloseToTray: true, ShowInDock: true},
		SpeedTest: SpeedTestConfig{
			Timeout:    10,
			URL:        "https://speed.cloudflare.com/__down?bytes=10000000",
			PingURL:    "https://www.gstatic.com/generate_204",
			Concurrent: 4,
		},
	}
}

// CoreStatus is the running state of the proxy core.
type CoreStatus struct {
	Running   bool     `json:"running"`
	CoreType  CoreType `json:"coreType"`
	Version   string   `json:"version"`
	StartTime *int64   `json:"startTime,omitempty"`
	PID       int      `json:"pid,omitempty"`
	Profile   string   `json:"profile,omitempty"`
}

// TrafficStats carries instantaneous rates and running totals in bytes.
type TrafficStats struct {
	Up        int64 `json:"up"`
	Down      int64 `json:"down"`
	TotalUp   int64 `json:"totalUp"`
	TotalDown int64 `json:"totalDown"`
}

// SpeedTestResult is one latency/throughput measurement. Latency is in
// milliseconds, -1 on timeout; Speed is bytes per second, 0 when untested.
type SpeedTestResult struct {
	ProfileID string `json:"profileId"`
	Latency   int    `json:"latency"`
	Speed     int64  `json:"speed"`
}

// UpdateProgress reports a core binary download.
type UpdateProgress struct {
	CoreType    CoreType `json:"coreType"`
	Downloaded  int64    `json:"downloaded"`
	Total       int64    `json:"total"`
	Status      string   `json:"status"`
	Description string   `json:"description,omitempty"`
}

// Notification is a user-facing message pushed by the core.
type Notification struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
