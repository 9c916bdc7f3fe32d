// Package config loads client and relay settings. Values are layered:
// built-in defaults, then persisted settings, then NAF_* environment
// variables, then command-line flags.
package config

import (
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

type ClientConfig struct {
	ServerURL        string `env:"NAF_SERVER_URL"`
	Room             string `env:"NAF_ROOM"`
	AppName          string `env:"NAF_APP_NAME"`
	UpdatesPerSecond int    `env:"NAF_UPDATES_PER_SECOND"`
	TickRate         int    `env:"NAF_TICK_RATE"`
	SyncMode         string `env:"NAF_SYNC_MODE"`

	LogLevel  string `env:"NAF_LOG_LEVEL"`
	LogFormat string `env:"NAF_LOG_FORMAT"`

	// MetricsAddr serves /metrics when set (":9100").
	MetricsAddr string `env:"NAF_METRICS_ADDR"`
	// PersistSettings saves the server URL and room for the next run.
	PersistSettings bool `env:"NAF_PERSIST_SETTINGS"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ServerURL:        netconfig.DefaultServerURL,
		Room:             netconfig.DefaultRoom,
		AppName:          netconfig.DefaultAppName,
		UpdatesPerSecond: netconfig.DefaultUpdatesPerSecond,
		TickRate:         netconfig.DefaultTickRate,
		SyncMode:         string(netconfig.SyncModeLegacy),
		LogLevel:         zerolog.LevelInfoValue,
		LogFormat:        LogFormatConsole,
		PersistSettings:  true,
	}
}

// LoadClientConfig layers saved settings (may be nil) and the environment
// over the defaults and validates the result.
func LoadClientConfig(saved *SavedSettings) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	cfg.ApplySaved(saved)
	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse environment variables")
	}
	return cfg, cfg.Validate()
}

// ApplySaved overlays non-empty persisted values.
func (c *ClientConfig) ApplySaved(saved *SavedSettings) {
	if saved == nil {
		return
	}
	if saved.ServerURL != "" {
		c.ServerURL = saved.ServerURL
	}
	if saved.Room != "" {
		c.Room = saved.Room
	}
	if saved.UpdatesPerSecond > 0 {
		c.UpdatesPerSecond = saved.UpdatesPerSecond
	}
}

// Saved returns the subset of c worth persisting.
func (c ClientConfig) Saved() *SavedSettings {
	return &SavedSettings{
		ServerURL:        c.ServerURL,
		Room:             c.Room,
		UpdatesPerSecond: c.UpdatesPerSecond,
	}
}

// BindFlags registers one flag per setting, defaulting to the current value.
func (c *ClientConfig) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ServerURL, "server", c.ServerURL, "relay WebSocket URL")
	fs.StringVar(&c.Room, "room", c.Room, "room to join")
	fs.StringVar(&c.AppName, "app", c.AppName, "application name sent in the handshake")
	fs.IntVar(&c.UpdatesPerSecond, "ups", c.UpdatesPerSecond, "entity updates sent per second")
	fs.IntVar(&c.TickRate, "tickrate", c.TickRate, "simulation ticks per second")
	fs.StringVar(&c.SyncMode, "sync-mode", c.SyncMode, "flag for steady-state updates: legacy or delta")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: console or json")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve Prometheus metrics on this address")
	fs.BoolVar(&c.PersistSettings, "persist", c.PersistSettings, "remember server and room for the next run")
}

func (c ClientConfig) Validate() error {
	if err := validateURL(c.ServerURL); err != nil {
		return err
	}
	if strings.TrimSpace(c.Room) == "" {
		return eris.New("room cannot be empty")
	}
	if c.UpdatesPerSecond <= 0 {
		return eris.Errorf("updates per second must be positive, got %d", c.UpdatesPerSecond)
	}
	if c.TickRate <= 0 {
		return eris.Errorf("tick rate must be positive, got %d", c.TickRate)
	}
	if !netconfig.SyncMode(c.SyncMode).Valid() {
		return eris.Errorf("sync mode must be %q or %q, got %q",
			netconfig.SyncModeLegacy, netconfig.SyncModeDelta, c.SyncMode)
	}
	return validateLogging(c.LogLevel, c.LogFormat)
}

func (c ClientConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

type RelayConfig struct {
	Port int    `env:"NAF_RELAY_PORT"`
	Path string `env:"NAF_RELAY_PATH"`
	// AppName, when set, is the only application the relay accepts.
	AppName   string `env:"NAF_RELAY_APP_NAME"`
	SendQueue int    `env:"NAF_RELAY_SEND_QUEUE"`

	LogLevel  string `env:"NAF_LOG_LEVEL"`
	LogFormat string `env:"NAF_LOG_FORMAT"`
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		Port:      netconfig.DefaultRelayPort,
		Path:      "/ws",
		SendQueue: 64,
		LogLevel:  zerolog.LevelInfoValue,
		LogFormat: LogFormatConsole,
	}
}

func LoadRelayConfig() (RelayConfig, error) {
	cfg := DefaultRelayConfig()
	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse environment variables")
	}
	return cfg, cfg.Validate()
}

func (c *RelayConfig) BindFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.Port, "port", c.Port, "listen port")
	fs.StringVar(&c.Path, "path", c.Path, "WebSocket endpoint path")
	fs.StringVar(&c.AppName, "app", c.AppName, "only accept this application name (empty accepts any)")
	fs.IntVar(&c.SendQueue, "send-queue", c.SendQueue, "messages buffered per peer before it is dropped")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: console or json")
}

func (c RelayConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return eris.Errorf("port out of range: %d", c.Port)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return eris.Errorf("path must start with '/', got %q", c.Path)
	}
	if c.SendQueue <= 0 {
		return eris.Errorf("send queue must be positive, got %d", c.SendQueue)
	}
	return validateLogging(c.LogLevel, c.LogFormat)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return eris.Wrapf(err, "invalid server url %q", raw)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return eris.Errorf("server url %q must use ws, wss, http or https", raw)
	}
	if u.Host == "" {
		return eris.Errorf("server url %q has no host", raw)
	}
	return nil
}

func validateLogging(level, format string) error {
	if _, err := zerolog.ParseLevel(level); err != nil {
		return eris.Wrapf(err, "invalid log level %q", level)
	}
	if format != LogFormatJSON && format != LogFormatConsole {
		return eris.Errorf("log format must be %q or %q, got %q", LogFormatJSON, LogFormatConsole, format)
	}
	return nil
}

// NewLogger builds the root logger. Components derive their own with
// With().Str("component", ...).
func NewLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), eris.Wrapf(err, "invalid log level %q", level)
	}
	if w == nil {
		w = os.Stderr
	}
	if format == LogFormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
