// Package model holds the records mirrored from the proxy core.
package model

// ConfigType is the protocol discriminant of a Profile.
type ConfigType int

const (
	ConfigVMess       ConfigType = 1
	ConfigShadowsocks ConfigType = 3
	ConfigSOCKS       ConfigType = 4
	ConfigVLESS       ConfigType = 5
	ConfigTrojan      ConfigType = 6
	ConfigHysteria2   ConfigType = 7
	ConfigTUIC        ConfigType = 8
	ConfigWireGuard   ConfigType = 9
	ConfigHTTP        ConfigType = 10
)

func (c ConfigType) String() string {
	switch c {
	case ConfigVMess:
		return "vmess"
	case ConfigShadowsocks:
		return "shadowsocks"
	case ConfigSOCKS:
		return "socks"
	case ConfigVLESS:
		return "vless"
	case ConfigTrojan:
		return "trojan"
	case ConfigHysteria2:
		return "hysteria2"
	case ConfigTUIC:
		return "tuic"
	case ConfigWireGuard:
		return "wireguard"
	case ConfigHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// CoreType selects the proxy engine.
type CoreType int

const (
	CoreAuto    CoreType = 0
	CoreXray    CoreType = 1
	CoreSingbox CoreType = 2
)

func (c CoreType) String() string {
	switch c {
	case CoreAuto:
		return "auto"
	case CoreXray:
		return "xray"
	case CoreSingbox:
		return "sing-box"
	default:
		return "unknown"
	}
}

// ProxyMode is how traffic reaches the core.
type ProxyMode int

const (
	ProxyModeManual ProxyMode = 0
	ProxyModeSystem ProxyMode = 1
	ProxyModeTUN    ProxyMode = 2
	ProxyModePAC    ProxyMode = 3
)

func (m ProxyMode) String() string {
	switch m {
	case ProxyModeManual:
		return "manual"
	case ProxyModeSystem:
		return "system"
	case ProxyModeTUN:
		return "tun"
	case ProxyModePAC:
		return "pac"
	default:
		return "unknown"
	}
}

// ParseProxyMode maps a mode name back to its value.
func ParseProxyMode(s string) (ProxyMode, bool) {
	for _, m := range []ProxyMode{ProxyModeManual, ProxyModeSystem, ProxyModeTUN, ProxyModePAC} {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}
