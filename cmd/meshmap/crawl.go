package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/meshmap/internal/admin"
	"github.com/nao1215/meshmap/internal/config"
	"github.com/nao1215/meshmap/internal/crawler"
	"github.com/nao1215/meshmap/internal/log"
	"github.com/nao1215/meshmap/internal/model"
	"github.com/nao1215/meshmap/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the mesh and print its topology",
		Long: `Crawl runs one discovery pass over the mesh reachable from the local daemon.

It seeds the crawl with the daemon's direct peers, asks every discovered node
for its peers and spanning tree neighbors through the daemon, then attaches
tree coordinates from the daemon's lookup table. Nodes that do not answer
are kept with "unknown" details; one slow node never stops the crawl.

Examples:
  # Crawl through the default admin socket
  meshmap crawl

  # Crawl through a TCP admin endpoint with 12 workers
  meshmap crawl --endpoint tcp://127.0.0.1:9001 --workers 12

  # Reconstruct the graph from self-reported peerings and print JSON
  meshmap crawl --mode peers --json

  # Reach a remote admin endpoint through a SOCKS5 proxy
  meshmap crawl --endpoint 10.0.0.5:9001 --proxy 127.0.0.1:1080

  # Write a Markdown report
  meshmap crawl --markdown -o topology.md`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Daemon flags
	cmd.Flags().StringP("endpoint", "e", config.DefaultEndpoint(),
		"Admin endpoint of the local daemon (socket path, unix://, tcp:// or host:port)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each admin request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy for tcp endpoints (host:port)")
	cmd.Flags().String("proxy-user", "",
		"SOCKS5 proxy user name")

	// Crawl flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent crawl workers")
	cmd.Flags().Duration("crawl-timeout", 0,
		"Timeout for the whole crawl (0 means no limit)")
	cmd.Flags().String("mode", string(config.DefaultMode),
		"Graph reconstruction mode: path or peers")

	// Configuration
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .meshmap in current or home directory)")
	cmd.Flags().String("env-file", ".env",
		"File with MESHMAP_* variables (ignored when missing)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the graph as JSON (mutually exclusive with --markdown)")
	cmd.Flags().Bool("full-json", false,
		"Wrap the JSON graph with crawl metadata (implies --json)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output a Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, config.Lookup)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig layers defaults, the config file, the environment and the
// flags the user actually set, in that order.
func buildConfig(cmd *cobra.Command, lookup func(map[string]string) config.LookupFunc) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	flags := cmd.Flags()

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if err := applyConfigFile(cfg); err != nil {
		return nil, err
	}

	if cfg.EnvFile, err = flags.GetString("env-file"); err != nil {
		return nil, err
	}
	dotenv, err := config.ReadDotEnv(cfg.EnvFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookup(dotenv)); err != nil {
		return nil, err
	}

	if flags.Changed("endpoint") {
		if cfg.Endpoint, err = flags.GetString("endpoint"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy-user") {
		if cfg.ProxyUser, err = flags.GetString("proxy-user"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("crawl-timeout") {
		if cfg.CrawlTimeout, err = flags.GetDuration("crawl-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("mode") {
		mode, err := flags.GetString("mode")
		if err != nil {
			return nil, err
		}
		cfg.Mode = model.Mode(mode)
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.FullJSON, err = flags.GetBool("full-json"); err != nil {
		return nil, err
	}
	if cfg.FullJSON {
		cfg.JSONReport = true
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyConfigFile loads the config file if one is found.
// A path given explicitly by the user must exist.
func applyConfigFile(cfg *config.Config) error {
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath == "" {
		if explicitConfigPath {
			return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	if err := file.ApplyTo(cfg); err != nil {
		return fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return nil
}

// newEngine builds a crawl engine that dials the configured admin endpoint.
func newEngine(cfg *config.Config, logger *slog.Logger) (*crawler.Engine, error) {
	endpoint, err := admin.ParseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", cfg.Endpoint, err)
	}

	dialOpts := []admin.Option{
		admin.WithTimeout(cfg.Timeout),
		admin.WithLogger(logger),
	}
	if cfg.ProxyAddress != "" {
		if endpoint.Network != admin.NetworkTCP {
			logger.Warn("proxy ignored for non-tcp endpoint", "endpoint", endpoint.String())
		}
		dialOpts = append(dialOpts, admin.WithProxy(cfg.ProxyAddress, cfg.ProxyUser, cfg.ProxyPassword))
	}

	return crawler.New(
		crawler.AdminDialer(endpoint, dialOpts...),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithLogger(logger),
		crawler.WithOverrides(cfg.Overrides),
	), nil
}

// runCrawl runs one generation and writes the report.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("failed to close admin connection", "error", err)
		}
	}()

	if cfg.CrawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.CrawlTimeout)
		defer cancel()
	}

	if err := engine.Open(ctx); err != nil {
		return fmt.Errorf("cannot reach daemon at %s: %w", cfg.Endpoint, err)
	}

	fmt.Fprintf(stderr, "Crawling mesh via %s...\n", cfg.Endpoint)
	startTime := time.Now()

	if err := engine.Refresh(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("crawl did not finish within %s: %w", cfg.CrawlTimeout, err)
		}
		return fmt.Errorf("crawl failed: %w", err)
	}

	fmt.Fprintf(stderr, "Crawl completed in %s (%s)\n\n",
		time.Since(startTime).Round(time.Millisecond), engine.CrawlingStatus())

	graph, err := engine.Export(cfg.Mode)
	if err != nil {
		return fmt.Errorf("failed to export graph: %w", err)
	}

	generation, root := engine.Generation()
	return outputReport(cfg, &model.Report{
		Mode:        cfg.Mode,
		Root:        root,
		Generation:  generation,
		GeneratedAt: time.Now().UTC(),
		Status:      engine.CrawlingStatus(),
		Graph:       graph,
	}, stdout)
}

// outputReport writes the report in the requested format to the report
// file, or to stdout.
func outputReport(cfg *config.Config, r *model.Report, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.FullJSON:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if _, err := writer.Write(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
