package config

import (
	"fmt"
	"time"

	"github.com/nao1215/meshmap/internal/model"
)

// File represents the structure of the .meshmap configuration file.
//
//	daemon:
//	  endpoint: /var/run/yggdrasil.sock
//	  timeout: 30s
//	crawl:
//	  workers: 6
//	  mode: peers
//	nodes:
//	  <64 hex key>:
//	    name: gateway
//	    cluster: backbone
type File struct {
	// Daemon configures how the admin endpoint is reached.
	Daemon DaemonConfig `yaml:"daemon,omitempty"`

	// Crawl configures the crawl engine.
	Crawl CrawlConfig `yaml:"crawl,omitempty"`

	// Nodes maps node keys to name and cluster overrides.
	Nodes map[string]NodeConfig `yaml:"nodes,omitempty"`
}

// DaemonConfig is the daemon section of the config file.
type DaemonConfig struct {
	Endpoint string        `yaml:"endpoint,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`

	// Proxy is a SOCKS5 proxy for TCP endpoints. The password is better
	// kept in MESHMAP_PROXY_PASSWORD than in this file.
	Proxy         string `yaml:"proxy,omitempty"`
	ProxyUser     string `yaml:"proxyUser,omitempty"`
	ProxyPassword string `yaml:"proxyPassword,omitempty"`
}

// CrawlConfig is the crawl section of the config file.
type CrawlConfig struct {
	Workers int           `yaml:"workers,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Mode    string        `yaml:"mode,omitempty"`
}

// NodeConfig overrides what a node reports about itself.
type NodeConfig struct {
	// Name replaces the node's self-reported name.
	Name string `yaml:"name,omitempty"`

	// Cluster sets an explicit cluster label for graph grouping.
	Cluster string `yaml:"cluster,omitempty"`
}

// Overrides converts the nodes section into engine overrides.
// Keys are validated and normalized to lower case.
func (f *File) Overrides() (map[model.Key]model.NodeOverride, error) {
	overrides := make(map[model.Key]model.NodeOverride, len(f.Nodes))
	for raw, node := range f.Nodes {
		key, err := model.ParseKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidNodeKey, raw, err)
		}
		overrides[key] = model.NodeOverride{Name: node.Name, Cluster: node.Cluster}
	}
	return overrides, nil
}

// ApplyTo copies every value set in the file onto c.
// Values left empty in the file keep what c already holds.
func (f *File) ApplyTo(c *Config) error {
	if f.Daemon.Endpoint != "" {
		c.Endpoint = f.Daemon.Endpoint
	}
	if f.Daemon.Timeout != 0 {
		c.Timeout = f.Daemon.Timeout
	}
	if f.Daemon.Proxy != "" {
		c.ProxyAddress = f.Daemon.Proxy
	}
	if f.Daemon.ProxyUser != "" {
		c.ProxyUser = f.Daemon.ProxyUser
	}
	if f.Daemon.ProxyPassword != "" {
		c.ProxyPassword = f.Daemon.ProxyPassword
	}
	if f.Crawl.Workers != 0 {
		c.Workers = f.Crawl.Workers
	}
	if f.Crawl.Timeout != 0 {
		c.CrawlTimeout = f.Crawl.Timeout
	}
	if f.Crawl.Mode != "" {
		c.Mode = model.Mode(f.Crawl.Mode)
	}

	overrides, err := f.Overrides()
	if err != nil {
		return err
	}
	c.Overrides = overrides
	return nil
}
