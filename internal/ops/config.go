package ops

import (
	"os"
	"strings"
	"time"

	"chatclient/pkg/exception"
	"chatclient/pkg/websocket"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Origin    string          `json:"origin"`
	User      string          `json:"user"`
	Backoff   BackoffConfig   `json:"backoff"`
	Transport TransportConfig `json:"transport"`
	Render    RenderConfig    `json:"render"`
	Profiler  ProfilerConfig  `json:"profiler"`
}

// BackoffConfig describes the reconnect policy. Unset fields keep the defaults.
type BackoffConfig struct {
	BaseDelayMs *int64   `json:"baseDelayMs"`
	Multiplier  *float64 `json:"multiplier"`
	MaxAttempts *int     `json:"maxAttempts"`
	// MaxDelayMs caps a single delay; zero keeps the growth uncapped.
	MaxDelayMs int64 `json:"maxDelayMs"`
}

// TransportConfig tunes the socket.
type TransportConfig struct {
	HandshakeTimeoutMs int64  `json:"handshakeTimeoutMs"`
	PingIntervalMs     *int64 `json:"pingIntervalMs"`
	PongWaitMs         *int64 `json:"pongWaitMs"`
	ReadLimit          int64  `json:"readLimit"`
	WriteQueueSize     int    `json:"writeQueueSize"`
}

// RenderConfig selects the render sink.
type RenderConfig struct {
	Format string `json:"format"`
}

// ProfilerConfig enables continuous profiling.
type ProfilerConfig struct {
	Enabled         bool   `json:"enabled"`
	ServerAddress   string `json:"serverAddress"`
	ApplicationName string `json:"applicationName"`
}

// Format is the render sink kind.
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
)

const (
	defaultPingInterval = 54 * time.Second
	defaultPongWait     = 60 * time.Second
	defaultProfilerApp  = "chatclient"
)

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Origin   string
	User     string
	Dialer   websocket.DialerOption
	Manager  websocket.Option
	Format   Format
	Profiler ProfilerConfig
}

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

// ReadFile reads a JSON config file without resolving it. An empty path
// returns the zero config.
func ReadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config file").With("path", path)
	}
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "decode config file").With("path", path)
	}
	return cfg, nil
}

// Resolve validates cfg and fills in defaults.
func Resolve(cfg FileConfig) (Loaded, error) {
	origin := strings.TrimSpace(cfg.Origin)
	if origin == "" {
		return Loaded{}, errors.Wrap(exception.ErrConfigMissing, "origin")
	}
	if _, err := websocket.Endpoint(origin); err != nil {
		return Loaded{}, errors.Wrap(exception.ErrConfigInvalid, err.Error())
	}
	user := strings.TrimSpace(cfg.User)
	if user == "" {
		return Loaded{}, errors.Wrap(exception.ErrConfigMissing, "user")
	}

	backoff, err := resolveBackoff(cfg.Backoff)
	if err != nil {
		return Loaded{}, err
	}
	dialer, manager, err := resolveTransport(cfg.Transport)
	if err != nil {
		return Loaded{}, err
	}
	manager.Backoff = backoff

	format, err := ParseFormat(cfg.Render.Format)
	if err != nil {
		return Loaded{}, err
	}

	profiler := cfg.Profiler
	if profiler.Enabled && profiler.ServerAddress == "" {
		return Loaded{}, errors.Wrap(exception.ErrConfigMissing, "profiler.serverAddress")
	}
	if profiler.ApplicationName == "" {
		profiler.ApplicationName = defaultProfilerApp
	}

	return Loaded{
		Origin:   origin,
		User:     user,
		Dialer:   dialer,
		Manager:  manager,
		Format:   format,
		Profiler: profiler,
	}, nil
}

// ParseFormat maps a config or flag value to a Format. Empty selects text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", errors.Wrap(exception.ErrArgumentUnsupported, "render format "+s)
	}
}

func resolveBackoff(cfg BackoffConfig) (websocket.Backoff, error) {
	b := websocket.DefaultBackoff()
	if cfg.BaseDelayMs != nil {
		b.Base = time.Duration(*cfg.BaseDelayMs) * time.Millisecond
	}
	if cfg.Multiplier != nil {
		b.Multiplier = *cfg.Multiplier
	}
	if cfg.MaxAttempts != nil {
		b.MaxAttempts = *cfg.MaxAttempts
	}
	b.Max = time.Duration(cfg.MaxDelayMs) * time.Millisecond
	if err := b.Validate(); err != nil {
		return websocket.Backoff{}, errors.Wrap(exception.ErrConfigInvalid, err.Error())
	}
	return b, nil
}

func resolveTransport(cfg TransportConfig) (websocket.DialerOption, websocket.Option, error) {
	if cfg.HandshakeTimeoutMs < 0 || cfg.ReadLimit < 0 || cfg.WriteQueueSize < 0 {
		return websocket.DialerOption{}, websocket.Option{}, errors.Wrap(exception.ErrConfigInvalid, "transport values must be >= 0")
	}
	ping := defaultPingInterval
	if cfg.PingIntervalMs != nil {
		ping = time.Duration(*cfg.PingIntervalMs) * time.Millisecond
	}
	pongWait := defaultPongWait
	if cfg.PongWaitMs != nil {
		pongWait = time.Duration(*cfg.PongWaitMs) * time.Millisecond
	}
	if ping == 0 {
		pongWait = 0
	}
	if ping < 0 || pongWait < 0 {
		return websocket.DialerOption{}, websocket.Option{}, errors.Wrap(exception.ErrConfigInvalid, "keepalive values must be >= 0")
	}
	if ping > 0 && pongWait > 0 && ping >= pongWait {
		return websocket.DialerOption{}, websocket.Option{}, errors.Wrap(exception.ErrConfigInvalid, "ping interval must be shorter than pong wait")
	}

	dialer := websocket.DialerOption{
		HandshakeTimeout: time.Duration(cfg.HandshakeTimeoutMs) * time.Millisecond,
		ReadLimit:        cfg.ReadLimit,
		PongWait:         pongWait,
	}
	manager := websocket.Option{
		WriteQueueSize: cfg.WriteQueueSize,
		WriteOverflow:  websocket.OverflowDropNewest,
		PingInterval:   ping,
	}
	return dialer, manager, nil
}
