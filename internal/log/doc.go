// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// The SecureHandler masks:
//   - SOCKS5 proxy credentials, by attribute name or inside a URL
//   - node private keys (128 hex characters) and PEM private key blocks
//   - passwords, secrets and tokens by attribute name
//
// Public node keys are 64 hex characters and are logged unchanged, since
// they are how operators identify nodes in crawl output.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("dialing admin endpoint",
//	    "endpoint", "tcp://10.0.0.1:9001",
//	    "proxy_password", "hunter2", // logged as ***REDACTED***
//	)
//
//	slog.SetDefault(logger)
package log
