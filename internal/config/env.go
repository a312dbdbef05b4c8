package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/nao1215/meshmap/internal/model"
)

// Environment variables read by ApplyEnv.
const (
	EnvEndpoint      = "MESHMAP_ENDPOINT"
	EnvWorkers       = "MESHMAP_WORKERS"
	EnvTimeout       = "MESHMAP_TIMEOUT"
	EnvMode          = "MESHMAP_MODE"
	EnvProxy         = "MESHMAP_PROXY"
	EnvProxyUser     = "MESHMAP_PROXY_USER"
	EnvProxyPassword = "MESHMAP_PROXY_PASSWORD"
)

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// ReadDotEnv parses a .env file without modifying the process environment.
// A missing file yields an empty map.
func ReadDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return values, nil
}

// Lookup returns a LookupFunc that prefers the process environment and
// falls back to dotenv, so real variables win over the .env file.
func Lookup(dotenv map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

// ApplyEnv copies MESHMAP_* variables found by lookup onto c.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if v, ok := lookup(EnvEndpoint); ok && v != "" {
		c.Endpoint = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvWorkers, v)
		}
		c.Workers = n
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvTimeout, v)
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvMode); ok && v != "" {
		c.Mode = model.Mode(v)
	}
	if v, ok := lookup(EnvProxy); ok && v != "" {
		c.ProxyAddress = v
	}
	if v, ok := lookup(EnvProxyUser); ok && v != "" {
		c.ProxyUser = v
	}
	if v, ok := lookup(EnvProxyPassword); ok && v != "" {
		c.ProxyPassword = v
	}
	return nil
}
