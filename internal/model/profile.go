package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Profile is one outbound server. The fields shared by every protocol live on
// the struct itself; protocol specific settings live in exactly one of the
// option blocks, selected by ConfigType.
type Profile struct {
	ID         string     `json:"id"`
	ConfigType ConfigType `json:"configType"`
	Remarks    string     `json:"remarks"`
	SubID      string     `json:"subId"`
	ShareURI   string     `json:"shareUri,omitempty"`
	Sort       int        `json:"sort"`
	CoreType   CoreType   `json:"coreType,omitempty"`

	Address string `json:"address"`
	Port    int    `json:"port"`

	Transport Transport `json:"transport"`
	TLS       TLS       `json:"tls"`

	VMess       *VMessOptions       `json:"vmess,omitempty"`
	VLESS       *VLESSOptions       `json:"vless,omitempty"`
	Trojan      *TrojanOptions      `json:"trojan,omitempty"`
	Shadowsocks *ShadowsocksOptions `json:"shadowsocks,omitempty"`
	SOCKS       *AuthOptions        `json:"socks,omitempty"`
	HTTP        *AuthOptions        `json:"http,omitempty"`
	Hysteria2   *Hysteria2Options   `json:"hysteria2,omitempty"`
	TUIC        *TUICOptions        `json:"tuic,omitempty"`
	WireGuard   *WireGuardOptions   `json:"wireguard,omitempty"`
}

// Transport is the stream layer (tcp, ws, grpc, ...).
type Transport struct {
	Network    string `json:"network"`
	HeaderType string `json:"headerType,omitempty"`
	Host       string `json:"host,omitempty"`
	Path       string `json:"path,omitempty"`
}

// TLS is the stream security layer. Reality fields only apply when Security
// is "reality".
type TLS struct {
	Security      string `json:"security"`
	SNI           string `json:"sni,omitempty"`
	ALPN          string `json:"alpn,omitempty"`
	Fingerprint   string `json:"fingerprint,omitempty"`
	AllowInsecure bool   `json:"allowInsecure,omitempty"`
	PublicKey     string `json:"publicKey,omitempty"`
	ShortID       string `json:"shortId,omitempty"`
	SpiderX       string `json:"spiderX,omitempty"`
}

type VMessOptions struct {
	UUID     string `json:"uuid"`
	AlterID  int    `json:"alterId,omitempty"`
	Security string `json:"security"`
}

type VLESSOptions struct {
	UUID string `json:"uuid"`
	Flow string `json:"flow,omitempty"`
}

type TrojanOptions struct {
	Password string `json:"password"`
}

type ShadowsocksOptions struct {
	Method   string `json:"method"`
	Password string `json:"password"`
}

// AuthOptions covers SOCKS and HTTP proxies.
type AuthOptions struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type Hysteria2Options struct {
	Password string `json:"password"`
	Ports    string `json:"ports,omitempty"`
	Obfs     string `json:"obfs,omitempty"`
}

type TUICOptions struct {
	UUID              string `json:"uuid"`
	Password          string `json:"password"`
	CongestionControl string `json:"congestionControl,omitempty"`
}

type WireGuardOptions struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
	LocalAddr  string `json:"localAddress,omitempty"`
	Reserved   string `json:"reserved,omitempty"`
	MTU        int    `json:"mtu,omitempty"`
}

// NewProfile returns a profile of the given type with a fresh id, stream
// defaults and an empty option block for that protocol.
func NewProfile(t ConfigType) Profile {
	p := Profile{
		ID:         uuid.NewString(),
		ConfigType: t,
		Transport:  Transport{Network: "tcp"},
		TLS:        TLS{Security: "none"},
	}
	switch t {
	case ConfigVMess:
		p.VMess = &VMessOptions{Security: "auto"}
	case ConfigVLESS:
		p.VLESS = &VLESSOptions{}
	case ConfigTrojan:
		p.Trojan = &TrojanOptions{}
	case ConfigShadowsocks:
		p.Shadowsocks = &ShadowsocksOptions{}
	case ConfigSOCKS:
		p.SOCKS = &AuthOptions{}
	case ConfigHTTP:
		p.HTTP = &AuthOptions{}
	case ConfigHysteria2:
		p.Hysteria2 = &Hysteria2Options{}
	case ConfigTUIC:
		p.TUIC = &TUICOptions{}
	case ConfigWireGuard:
		p.WireGuard = &WireGuardOptions{}
	}
	return p
}

var (
	ErrAddressRequired = errors.New("address is required")
	ErrPortRange       = errors.New("port must be between 1 and 65535")
)

// blocks reports which option blocks are populated.
func (p Profile) blocks() map[ConfigType]bool {
	return map[ConfigType]bool{
		ConfigVMess:       p.VMess != nil,
		ConfigVLESS:       p.VLESS != nil,
		ConfigTrojan:      p.Trojan != nil,
		ConfigShadowsocks: p.Shadowsocks != nil,
		ConfigSOCKS:       p.SOCKS != nil,
		ConfigHTTP:        p.HTTP != nil,
		ConfigHysteria2:   p.Hysteria2 != nil,
		ConfigTUIC:        p.TUIC != nil,
		ConfigWireGuard:   p.WireGuard != nil,
	}
}

// Validate checks the address, the port and that the populated option block
// is the one ConfigType calls for.
func (p Profile) Validate() error {
	if p.Address == "" {
		return ErrAddressRequired
	}
	if p.Port <= 0 || p.Port > 65535 {
		return ErrPortRange
	}
	set := p.blocks()
	if _, known := set[p.ConfigType]; !known {
		return fmt.Errorf("unknown config type %d", int(p.ConfigType))
	}
	for t, ok := range set {
		if ok && t != p.ConfigType {
			return fmt.Errorf("%s options set on a %s profile", t, p.ConfigType)
		}
	}
	if !set[p.ConfigType] {
		return fmt.Errorf("%s profile is missing its options", p.ConfigType)
	}
	return nil
}
