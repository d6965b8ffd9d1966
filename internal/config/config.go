package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wayfinder-dev/wayfinder/internal/errors"
	"github.com/wayfinder-dev/wayfinder/pkg/live"
	"github.com/wayfinder-dev/wayfinder/pkg/resolve"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "wayfinder.json"

	// DefaultManifest is the default routes manifest path.
	DefaultManifest = "wayfinder.routes.json"

	// DefaultPort is the default server port.
	DefaultPort = 8420

	// DefaultHost is the default server host.
	DefaultHost = "localhost"
)

// Config represents the complete wayfinder.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Manifest is the path to the routes manifest, relative to the
	// config file unless absolute.
	Manifest string `json:"manifest,omitempty"`

	// Server contains live server configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Resolve contains resolution configuration.
	Resolve ResolveConfig `json:"resolve,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// Telemetry contains metrics and tracing toggles.
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains live server settings. Durations are Go
// duration strings like "30s".
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// AllowedOrigins lists origins accepted for WebSocket handshakes
	// in addition to the server's own host.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`

	// PingInterval is the time between keepalive pings.
	PingInterval string `json:"pingInterval,omitempty"`

	// ReadTimeout is the maximum time to wait for a client message.
	ReadTimeout string `json:"readTimeout,omitempty"`

	// WriteTimeout is the maximum time to wait when sending.
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// ShutdownTimeout is the maximum time to wait for sessions to
	// close during shutdown.
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`

	// MaxMessageSize is the maximum incoming message size in bytes.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty"`
}

// ResolveConfig contains resolution settings.
type ResolveConfig struct {
	// RedirectLimit is how many redirects one resolution pass may
	// take before it fails.
	RedirectLimit int `json:"redirectLimit,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is the minimum level to log: debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is the handler format: "text" or "json".
	Format string `json:"format,omitempty"`
}

// TelemetryConfig contains observability toggles.
type TelemetryConfig struct {
	// Metrics enables the Prometheus middleware.
	Metrics bool `json:"metrics,omitempty"`

	// Tracing enables the OpenTelemetry middleware.
	Tracing bool `json:"tracing,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Version:  "0.1.0",
		Manifest: DefaultManifest,
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			PingInterval:    "30s",
			ReadTimeout:     "60s",
			WriteTimeout:    "10s",
			ShutdownTimeout: "30s",
			MaxMessageSize:  16 * 1024,
		},
		Resolve: ResolveConfig{
			RedirectLimit: resolve.DefaultRedirectLimit,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for wayfinder.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No wayfinder.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'wayfinder init' to create a project configuration")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		we := errors.New("E120").
			WithDetail(err.Error()).
			WithSuggestion("Check that wayfinder.json is valid JSON with only known fields").
			Wrap(err)
		if syn, ok := err.(*json.SyntaxError); ok {
			we.WithLocationFromOffset(path, data, syn.Offset)
		}
		return nil, we
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path as indented JSON and records
// path as the config's home for later Save calls.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.New("E120").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from, or "" for a config
// built in memory.
func (c *Config) Path() string { return c.configPath }

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Manifest == "" {
		c.Manifest = DefaultManifest
	}

	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.PingInterval == "" {
		c.Server.PingInterval = "30s"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "60s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "10s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "30s"
	}
	if c.Server.MaxMessageSize == 0 {
		c.Server.MaxMessageSize = 16 * 1024
	}

	if c.Resolve.RedirectLimit == 0 {
		c.Resolve.RedirectLimit = resolve.DefaultRedirectLimit
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid. Zero values pass;
// they mean the default applies.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E121").
			WithDetail("Port " + strconv.Itoa(c.Server.Port) + " is out of range")
	}
	if c.Resolve.RedirectLimit < 0 {
		return errors.New("E122").
			WithDetail("Redirect limit " + strconv.Itoa(c.Resolve.RedirectLimit) + " is negative")
	}
	if _, err := c.logLevel(); err != nil {
		return err
	}
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("E124").
			WithDetail("Log format " + strconv.Quote(c.Log.Format) + " is not known")
	}
	for _, d := range []struct {
		name  string
		value string
	}{
		{"server.pingInterval", c.Server.PingInterval},
		{"server.readTimeout", c.Server.ReadTimeout},
		{"server.writeTimeout", c.Server.WriteTimeout},
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return errors.New("E125").
				WithDetail(d.name + " is " + strconv.Quote(d.value)).
				Wrap(err)
		}
	}
	return nil
}

// Address returns the listen address for the live server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the base URL for the live server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// ManifestPath returns the absolute path to the routes manifest.
func (c *Config) ManifestPath() string {
	if filepath.IsAbs(c.Manifest) {
		return c.Manifest
	}
	return filepath.Join(c.Dir(), c.Manifest)
}

// LiveConfig builds the live server configuration. Validate first;
// LiveConfig assumes the duration strings parse.
func (c *Config) LiveConfig() *live.Config {
	lc := live.DefaultConfig()
	lc.MaxMessageSize = c.Server.MaxMessageSize
	if d, err := time.ParseDuration(c.Server.PingInterval); err == nil {
		lc.PingInterval = d
	}
	if d, err := time.ParseDuration(c.Server.ReadTimeout); err == nil {
		lc.ReadTimeout = d
	}
	if d, err := time.ParseDuration(c.Server.WriteTimeout); err == nil {
		lc.WriteTimeout = d
	}
	if d, err := time.ParseDuration(c.Server.ShutdownTimeout); err == nil {
		lc.ShutdownTimeout = d
	}
	if len(c.Server.AllowedOrigins) > 0 {
		lc.CheckOrigin = originCheck(c.Server.AllowedOrigins)
	}
	return lc
}

// originCheck accepts same-origin handshakes plus the listed origins.
func originCheck(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if live.SameOriginCheck(r) {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, a := range allowed {
			if strings.EqualFold(origin, a) {
				return true
			}
		}
		return false
	}
}

// logLevel maps the configured level name onto slog.
func (c *Config) logLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errors.New("E123").
			WithDetail("Log level " + strconv.Quote(c.Log.Level) + " is not known")
	}
}

// Logger builds a logger from the log settings. Unknown levels fall
// back to info; Validate reports them as errors.
func (c *Config) Logger() *slog.Logger {
	level, err := c.logLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up from startDir looking for the directory that
// holds wayfinder.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for ; !Exists(dir); dir = filepath.Dir(dir) {
		if filepath.Dir(dir) == dir {
			return "", errors.New("E141").
				WithDetail("No wayfinder.json found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'wayfinder init' to create a project configuration")
		}
	}
	return dir, nil
}

// LoadFromWorkingDir finds the project root above the current working
// directory and loads its configuration.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	return Load(root)
}
