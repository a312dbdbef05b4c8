// Package config provides configuration structures and utilities for meshmap.
// It defines how the admin endpoint is reached, how the crawl is run, and
// how reports are written. Values are layered: defaults, then the YAML
// config file, then .env and environment variables, then CLI flags.
package config
