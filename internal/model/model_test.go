package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ConfigVMess", ConfigVMess.String(), "vmess"},
		{"ConfigVLESS", ConfigVLESS.String(), "vless"},
		{"ConfigTrojan", ConfigTrojan.String(), "trojan"},
		{"ConfigShadowsocks", ConfigShadowsocks.String(), "shadowsocks"},
		{"ConfigHTTP", ConfigHTTP.String(), "http"},
		{"ConfigUnknown", ConfigType(2).String(), "unknown"},
		{"CoreAuto", CoreAuto.String(), "auto"},
		{"CoreSingbox", CoreSingbox.String(), "sing-box"},
		{"ProxyModeSystem", ProxyModeSystem.String(), "system"},
		{"ProxyModeTUN", ProxyModeTUN.String(), "tun"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestParseProxyMode(t *testing.T) {
	m, ok := ParseProxyMode("tun")
	require.True(t, ok)
	assert.Equal(t, ProxyModeTUN, m)

	_, ok = ParseProxyMode("bogus")
	assert.False(t, ok)
}

func TestProfileValidate(t *testing.T) {
	p := NewProfile(ConfigVLESS)
	assert.ErrorIs(t, p.Validate(), ErrAddressRequired)

	p.Address = "example.com"
	p.Port = 443
	assert.NoError(t, p.Validate())

	p.Port = 0
	assert.ErrorIs(t, p.Validate(), ErrPortRange)
	p.Port = 70000
	assert.ErrorIs(t, p.Validate(), ErrPortRange)
	p.Port = 443

	p.Trojan = &TrojanOptions{Password: "x"}
	assert.Error(t, p.Validate(), "foreign option block must be rejected")
	p.Trojan = nil

	p.VLESS = nil
	assert.Error(t, p.Validate(), "missing option block must be rejected")

	p.ConfigType = ConfigType(2)
	assert.Error(t, p.Validate())
}

func TestNewProfileSetsMatchingBlock(t *testing.T) {
	for _, ct := range []ConfigType{
		ConfigVMess, ConfigShadowsocks, ConfigSOCKS, ConfigVLESS, ConfigTrojan,
		ConfigHysteria2, ConfigTUIC, ConfigWireGuard, ConfigHTTP,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			p := NewProfile(ct)
			p.Address = "h"
			p.Port = 1
			assert.NotEmpty(t, p.ID)
			assert.NoError(t, p.Validate())
		})
	}
}

func TestProfileJSONOmitsUnsetBlocks(t *testing.T) {
	p := NewProfile(ConfigTrojan)
	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "trojan")
	assert.NotContains(t, fields, "vmess")
	assert.NotContains(t, fields, "wireguard")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "system", cfg.UI.Theme)
	require.Len(t, cfg.Inbounds, 2)
	assert.Equal(t, 10808, cfg.Inbounds[0].Port)
	assert.Equal(t, 10809, cfg.Inbounds[1].Port)
	assert.Equal(t, "gvisor", cfg.TUN.Stack)
	assert.Equal(t, "prefer_ipv4", DefaultDNS().DomainStrategy)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{10 * 1024, "10.0 KB"},
		{150 * 1024 * 1024, "150 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
	assert.Equal(t, "1.00 KB/s", FormatSpeed(1024))
}

func TestFormatDateAndNames(t *testing.T) {
	assert.Equal(t, "-", FormatDate(0))
	assert.NotEqual(t, "-", FormatDate(1700000000))
	assert.Equal(t, "VLESS", ProtocolName(ConfigVLESS))
	assert.Equal(t, "Unknown", ProtocolName(ConfigType(99)))
	assert.Equal(t, "sing-box", CoreName(CoreSingbox))
	assert.Equal(t, "Unknown", CoreName(CoreType(9)))
}

func TestFormatLatencyAndAddress(t *testing.T) {
	assert.Equal(t, "timeout", FormatLatency(-1))
	assert.Equal(t, "-", FormatLatency(0))
	assert.Equal(t, "42 ms", FormatLatency(42))
	assert.Equal(t, "example.com:443", FormatAddress("example.com", 443))
	assert.Equal(t, "[2001:db8::1]:8443", FormatAddress("2001:db8::1", 8443))
}
