package model

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"time"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with a 1024 base: two decimals below 10,
// one below 100, none above.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(byteUnits) {
		i = len(byteUnits) - 1
	}
	v := float64(n) / math.Pow(1024, float64(i))
	switch {
	case v >= 100:
		return fmt.Sprintf("%.0f %s", v, byteUnits[i])
	case v >= 10:
		return fmt.Sprintf("%.1f %s", v, byteUnits[i])
	default:
		return fmt.Sprintf("%.2f %s", v, byteUnits[i])
	}
}

// FormatSpeed renders a byte rate.
func FormatSpeed(bytesPerSec int64) string {
	return FormatBytes(bytesPerSec) + "/s"
}

// FormatDate renders unix seconds in local time, or "-" when unset.
func FormatDate(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).Local().Format(time.DateTime)
}

// FormatLatency renders a latency in milliseconds. Negative values are
// timeouts and zero means untested.
func FormatLatency(ms int) string {
	switch {
	case ms < 0:
		return "timeout"
	case ms == 0:
		return "-"
	}
	return strconv.Itoa(ms) + " ms"
}

// FormatAddress joins host and port, bracketing IPv6 hosts.
func FormatAddress(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ProtocolName is the display name of a config type.
func ProtocolName(t ConfigType) string {
	switch t {
	case ConfigVMess:
		return "VMess"
	case ConfigShadowsocks:
		return "Shadowsocks"
	case ConfigSOCKS:
		return "SOCKS"
	case ConfigVLESS:
		return "VLESS"
	case ConfigTrojan:
		return "Trojan"
	case ConfigHysteria2:
		return "Hysteria2"
	case ConfigTUIC:
		return "TUIC"
	case ConfigWireGuard:
		return "WireGuard"
	case ConfigHTTP:
		return "HTTP"
	}
	return "Unknown"
}

// CoreName is the display name of a core type.
func CoreName(t CoreType) string {
	switch t {
	case CoreAuto:
		return "Auto"
	case CoreXray:
		return "xray"
	case CoreSingbox:
		return "sing-box"
	}
	return "Unknown"
}
