// Package config loads runtime settings from defaults, an optional dotenv
// file and RAYSHELL_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Transport names accepted in Config.Transport.
const (
	TransportWS  = "ws"
	TransportWRP = "wrp"
)

// Config holds runtime configuration for the shell.
type Config struct {
	Transport   string        `json:"transport"`
	CoreURL     string        `json:"core_url"` // websocket endpoint of the core
	CallTimeout time.Duration `json:"call_timeout"`

	// WRP bridge; used when Transport is "wrp".
	WRPURL      string   `json:"wrp_url"`
	WRPAuth     string   `json:"wrp_auth"`
	WRPSource   string   `json:"wrp_source"`
	WRPDest     string   `json:"wrp_dest"`
	WRPServices []string `json:"wrp_services"`

	// Event ingestion listener for bridged pushes. Empty disables it.
	Listen      string `json:"listen"`
	IngestToken string `json:"ingest_token"`

	LogLimit    int    `json:"log_limit"`    // lines fetched by a log load
	LogCapacity int    `json:"log_capacity"` // lines kept in memory
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`

	ThemeFile string `json:"theme_file"` // optional file holding "dark" or "light"
}

func Default() Config {
	return Config{
		Transport:   TransportWS,
		CoreURL:     "ws://127.0.0.1:8920/ws",
		CallTimeout: 30 * time.Second,
		WRPSource:   "rayshell/client",
		WRPDest:     "local:core",
		LogLimit:    500,
		LogCapacity: 2000,
		LogLevel:    "info",
		LogFormat:   "auto",
	}
}

// Load returns Default overlaid with envFile (when it exists) and then the
// process environment. An empty envFile skips the file.
func Load(envFile string) (Config, error) {
	cfg := Default()
	values := map[string]string{}
	if envFile != "" {
		fileValues, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			values = fileValues
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}
	if err := cfg.apply(lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) apply(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("RAYSHELL_TRANSPORT", &c.Transport)
	str("RAYSHELL_CORE_URL", &c.CoreURL)
	str("RAYSHELL_WRP_URL", &c.WRPURL)
	str("RAYSHELL_WRP_AUTH", &c.WRPAuth)
	str("RAYSHELL_WRP_SOURCE", &c.WRPSource)
	str("RAYSHELL_WRP_DEST", &c.WRPDest)
	str("RAYSHELL_LISTEN", &c.Listen)
	str("RAYSHELL_INGEST_TOKEN", &c.IngestToken)
	str("RAYSHELL_LOG_LEVEL", &c.LogLevel)
	str("RAYSHELL_LOG_FORMAT", &c.LogFormat)
	str("RAYSHELL_THEME_FILE", &c.ThemeFile)
	if v, ok := lookup("RAYSHELL_WRP_SERVICES"); ok {
		c.WRPServices = splitCSV(v)
	}

	var errs []error
	if v, ok := lookup("RAYSHELL_CALL_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("RAYSHELL_CALL_TIMEOUT: %w", err))
		} else {
			c.CallTimeout = d
		}
	}
	for key, dst := range map[string]*int{
		"RAYSHELL_LOG_LIMIT":    &c.LogLimit,
		"RAYSHELL_LOG_CAPACITY": &c.LogCapacity,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*dst = n
	}
	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Transport {
	case TransportWS:
		if c.CoreURL == "" {
			errs = append(errs, errors.New("core url required for ws transport"))
		}
	case TransportWRP:
		if c.WRPURL == "" {
			errs = append(errs, errors.New("wrp url required for wrp transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	if c.CallTimeout <= 0 {
		errs = append(errs, errors.New("call timeout must be positive"))
	}
	if c.LogLimit <= 0 {
		errs = append(errs, errors.New("log limit must be positive"))
	}
	if c.LogCapacity <= 0 {
		errs = append(errs, errors.New("log capacity must be positive"))
	}
	return errors.Join(errs...)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if q := strings.TrimSpace(p); q != "" {
			out = append(out, q)
		}
	}
	return out
}
