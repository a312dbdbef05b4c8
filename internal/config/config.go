package config

import (
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/meshmap/internal/model"
)

// Default configuration values.
const (
	// DefaultUnixEndpoint is the admin socket the daemon creates on Unix-like
	// systems.
	DefaultUnixEndpoint = "/var/run/yggdrasil.sock"

	// DefaultWindowsEndpoint is the admin listener the daemon opens on
	// Windows, where it does not use a Unix socket.
	DefaultWindowsEndpoint = "127.0.0.1:9001"

	// DefaultTimeout bounds one admin request round trip. Remote requests are
	// relayed through the mesh, so a slow node can take many seconds.
	DefaultTimeout = 30 * time.Second

	// DefaultWorkers is the number of concurrent crawl workers, each with
	// its own admin connection.
	DefaultWorkers = 6

	// DefaultMode is the export mode used when none is given.
	DefaultMode = model.ModePath

	// AppName is the application name used for XDG directory paths.
	AppName = "meshmap"
)

// DefaultEndpoint returns the admin endpoint for the current platform.
func DefaultEndpoint() string {
	if runtime.GOOS == "windows" {
		return DefaultWindowsEndpoint
	}
	return DefaultUnixEndpoint
}

// Config holds all configuration options for meshmap.
// This struct is populated from the config file, the environment and CLI
// flags, and passed through the application rather than kept as global state.
// The YAML file has its own nested layout (see File).
type Config struct {
	// Endpoint is the daemon's admin endpoint: a Unix socket path,
	// "unix:///path", "tcp://host:port" or "host:port".
	Endpoint string

	// Timeout bounds each admin request round trip.
	Timeout time.Duration

	// Workers is the number of concurrent crawl workers.
	Workers int

	// CrawlTimeout bounds a whole crawl generation. Zero means no limit.
	CrawlTimeout time.Duration

	// Mode is the graph export mode ("path" or "peers").
	Mode model.Mode

	// ProxyAddress is a SOCKS5 proxy in "host:port" form used to reach TCP
	// admin endpoints on another host. Empty means dial directly.
	ProxyAddress string

	// ProxyUser and ProxyPassword authenticate to the SOCKS5 proxy.
	ProxyUser     string
	ProxyPassword string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// EnvFile is the path to a .env file. Missing files are ignored.
	EnvFile string

	// Overrides holds per-node name and cluster overrides from the config file.
	Overrides map[model.Key]model.NodeOverride

	// JSONReport writes the bare graph payload as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// FullJSON wraps the JSON graph with crawl metadata.
	// Only meaningful together with JSONReport.
	FullJSON bool

	// MarkdownReport writes a Markdown summary of the graph.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Endpoint:  DefaultEndpoint(),
		Timeout:   DefaultTimeout,
		Workers:   DefaultWorkers,
		Mode:      DefaultMode,
		EnvFile:   ".env",
		Overrides: map[model.Key]model.NodeOverride{},
	}
}

// XDGConfigDir returns the XDG config directory for meshmap.
// On Linux: ~/.config/meshmap
// On macOS: ~/Library/Application Support/meshmap
// On Windows: %APPDATA%\meshmap
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGConfigFile returns the config file path inside XDGConfigDir.
func XDGConfigFile() string {
	return filepath.Join(XDGConfigDir(), "config.yaml")
}

// Validate checks if the configuration is valid.
// It returns the first error found, because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrNoEndpoint
	}

	// Timeout must be positive; zero timeout would fail every request
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.CrawlTimeout < 0 {
		return ErrInvalidCrawlTimeout
	}

	if !c.Mode.IsValid() {
		return ErrInvalidMode
	}

	if c.ProxyPassword != "" && c.ProxyUser == "" {
		return ErrIncompleteProxyAuth
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
