package devcore

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/stepherg/rayshell/internal/model"
)

var schemes = map[string]model.ConfigType{
	"vmess":     model.ConfigVMess,
	"vless":     model.ConfigVLESS,
	"trojan":    model.ConfigTrojan,
	"ss":        model.ConfigShadowsocks,
	"socks":     model.ConfigSOCKS,
	"http":      model.ConfigHTTP,
	"hysteria2": model.ConfigHysteria2,
	"hy2":       model.ConfigHysteria2,
	"tuic":      model.ConfigTUIC,
	"wireguard": model.ConfigWireGuard,
	"wg":        model.ConfigWireGuard,
}

// ErrNoLinks is returned when the text holds no parseable share link.
var ErrNoLinks = errors.New("no share links found")

// vmessJSON is the base64 payload of the legacy vmess:// form.
type vmessJSON struct {
	PS   string          `json:"ps"`
	Add  string          `json:"add"`
	Port json.RawMessage `json:"port"`
	ID   string          `json:"id"`
	Aid  json.RawMessage `json:"aid"`
	Net  string          `json:"net"`
	Host string          `json:"host"`
	Path string          `json:"path"`
	TLS  string          `json:"tls"`
	SNI  string          `json:"sni"`
}

// ParseShareLinks parses one share link per line. Lines that fail to parse
// are skipped; their errors are joined into the returned error.
func ParseShareLinks(text string) ([]model.Profile, error) {
	var (
		out  []model.Profile
		errs []error
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := ParseShareLink(line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 && len(errs) == 0 {
		return nil, ErrNoLinks
	}
	return out, errors.Join(errs...)
}

// ParseShareLink parses a single scheme://[cred@]host:port[?query][#remarks]
// link. vmess links carrying a base64 JSON body are also accepted.
func ParseShareLink(link string) (model.Profile, error) {
	scheme, rest, ok := strings.Cut(link, "://")
	if !ok {
		return model.Profile{}, fmt.Errorf("%q: missing scheme", truncate(link))
	}
	t, ok := schemes[strings.ToLower(scheme)]
	if !ok {
		return model.Profile{}, fmt.Errorf("%q: unsupported scheme %s", truncate(link), scheme)
	}
	if t == model.ConfigVMess && !strings.Contains(rest, "@") {
		return parseVMessJSON(link, rest)
	}

	u, err := url.Parse(link)
	if err != nil {
		return model.Profile{}, fmt.Errorf("%q: %w", truncate(link), err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return model.Profile{}, fmt.Errorf("%q: bad port", truncate(link))
	}
	p := model.NewProfile(t)
	p.Address = u.Hostname()
	p.Port = port
	p.Remarks = u.Fragment
	p.ShareURI = link
	if p.Remarks == "" {
		p.Remarks = net.JoinHostPort(p.Address, u.Port())
	}

	q := u.Query()
	if v := q.Get("type"); v != "" {
		p.Transport.Network = v
	}
	p.Transport.Host = q.Get("host")
	p.Transport.Path = q.Get("path")
	if v := q.Get("security"); v != "" {
		p.TLS.Security = v
	}
	p.TLS.SNI = q.Get("sni")
	p.TLS.Fingerprint = q.Get("fp")
	p.TLS.PublicKey = q.Get("pbk")
	p.TLS.ShortID = q.Get("sid")

	user := u.User.Username()
	pass, _ := u.User.Password()
	switch t {
	case model.ConfigVMess:
		p.VMess.UUID = user
	case model.ConfigVLESS:
		p.VLESS.UUID = user
		p.VLESS.Flow = q.Get("flow")
	case model.ConfigTrojan:
		p.Trojan.Password = user
	case model.ConfigShadowsocks:
		p.Shadowsocks.Method, p.Shadowsocks.Password = shadowsocksUser(user, pass)
	case model.ConfigSOCKS:
		p.SOCKS.Username, p.SOCKS.Password = user, pass
	case model.ConfigHTTP:
		p.HTTP.Username, p.HTTP.Password = user, pass
	case model.ConfigHysteria2:
		p.Hysteria2.Password = user
		p.Hysteria2.Obfs = q.Get("obfs")
	case model.ConfigTUIC:
		p.TUIC.UUID, p.TUIC.Password = user, pass
		p.TUIC.CongestionControl = q.Get("congestion_control")
	case model.ConfigWireGuard:
		p.WireGuard.PrivateKey = user
		p.WireGuard.PublicKey = q.Get("publickey")
		p.WireGuard.LocalAddr = q.Get("address")
	}
	return p, p.Validate()
}

// shadowsocksUser accepts both method:password and base64(method:password).
func shadowsocksUser(user, pass string) (string, string) {
	if pass != "" {
		return user, pass
	}
	if raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(user, "=")); err == nil {
		if m, pw, ok := strings.Cut(string(raw), ":"); ok {
			return m, pw
		}
	}
	return user, ""
}

func parseVMessJSON(link, body string) (model.Profile, error) {
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(body, "="))
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("%q: vmess body is not base64", truncate(link))
	}
	var v vmessJSON
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.Profile{}, fmt.Errorf("%q: %w", truncate(link), err)
	}
	port, err := strconv.Atoi(strings.Trim(string(v.Port), `"`))
	if err != nil {
		return model.Profile{}, fmt.Errorf("%q: bad port", truncate(link))
	}
	p := model.NewProfile(model.ConfigVMess)
	p.Remarks = v.PS
	p.Address = v.Add
	p.Port = port
	p.ShareURI = link
	p.VMess.UUID = v.ID
	p.VMess.AlterID, _ = strconv.Atoi(strings.Trim(string(v.Aid), `"`))
	if v.Net != "" {
		p.Transport.Network = v.Net
	}
	p.Transport.Host = v.Host
	p.Transport.Path = v.Path
	if v.TLS != "" {
		p.TLS.Security = v.TLS
	}
	p.TLS.SNI = v.SNI
	return p, p.Validate()
}

// ShareLink renders p as a share link. A profile imported from a link
// exports that link unchanged.
func ShareLink(p model.Profile) string {
	if p.ShareURI != "" {
		return p.ShareURI
	}
	scheme := p.ConfigType.String()
	var user *url.Userinfo
	switch p.ConfigType {
	case model.ConfigVMess:
		user = url.User(p.VMess.UUID)
	case model.ConfigVLESS:
		user = url.User(p.VLESS.UUID)
	case model.ConfigTrojan:
		user = url.User(p.Trojan.Password)
	case model.ConfigShadowsocks:
		scheme = "ss"
		user = url.User(base64.RawURLEncoding.EncodeToString([]byte(p.Shadowsocks.Method + ":" + p.Shadowsocks.Password)))
	case model.ConfigSOCKS:
		user = authUser(p.SOCKS)
	case model.ConfigHTTP:
		user = authUser(p.HTTP)
	case model.ConfigHysteria2:
		user = url.User(p.Hysteria2.Password)
	case model.ConfigTUIC:
		user = url.UserPassword(p.TUIC.UUID, p.TUIC.Password)
	case model.ConfigWireGuard:
		user = url.User(p.WireGuard.PrivateKey)
	}
	q := url.Values{}
	if p.Transport.Network != "" && p.Transport.Network != "tcp" {
		q.Set("type", p.Transport.Network)
	}
	if p.TLS.Security != "" && p.TLS.Security != "none" {
		q.Set("security", p.TLS.Security)
	}
	if p.TLS.SNI != "" {
		q.Set("sni", p.TLS.SNI)
	}
	u := url.URL{
		Scheme:   scheme,
		User:     user,
		Host:     net.JoinHostPort(p.Address, strconv.Itoa(p.Port)),
		RawQuery: q.Encode(),
		Fragment: p.Remarks,
	}
	return u.String()
}

func authUser(a *model.AuthOptions) *url.Userinfo {
	if a == nil || a.Username == "" {
		return nil
	}
	return url.UserPassword(a.Username, a.Password)
}

func truncate(s string) string {
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
