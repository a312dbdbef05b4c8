package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/meshmap/internal/config"
	"github.com/nao1215/meshmap/internal/model"
)

var (
	keyAlpha   = strings.Repeat("a", 64)
	keyBravo   = strings.Repeat("b", 64)
	keyCharlie = strings.Repeat("c", 64)
)

// meshNode is one node served by fakeAdmin.
type meshNode struct {
	name    string
	address string
	path    []uint64
	peers   []string
}

// fakeAdmin serves the admin protocol for a three node mesh rooted at alpha.
// Every node peers with every other one.
type fakeAdmin struct {
	listener net.Listener
	nodes    map[string]meshNode
}

func newFakeAdmin(t *testing.T) *fakeAdmin {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	f := &fakeAdmin{
		listener: ln,
		nodes: map[string]meshNode{
			keyAlpha:   {name: "alpha.hub", address: "200:aaaa::1", path: []uint64{}, peers: []string{keyBravo, keyCharlie}},
			keyBravo:   {name: "bravo.hub", address: "200:bbbb::1", path: []uint64{1}, peers: []string{keyAlpha, keyCharlie}},
			keyCharlie: {name: "charlie", address: "200:cccc::1", path: []uint64{2}, peers: []string{keyAlpha, keyBravo}},
		},
	}
	go f.serve()
	return f
}

func (f *fakeAdmin) endpoint() string {
	return "tcp://" + f.listener.Addr().String()
}

func (f *fakeAdmin) serve() {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		go f.serveConn(conn)
	}
}

func (f *fakeAdmin) serveConn(conn net.Conn) {
	defer conn.Close()

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req struct {
			Request   string            `json:"request"`
			Arguments map[string]string `json:"arguments"`
		}
		if err := dec.Decode(&req); err != nil {
			return
		}
		if err := enc.Encode(f.answer(req.Request, req.Arguments["key"])); err != nil {
			return
		}
	}
}

func (f *fakeAdmin) answer(request, key string) map[string]any {
	success := func(payload any) map[string]any {
		return map[string]any{"status": "success", "request": map[string]any{}, "response": payload}
	}

	node, known := f.nodes[key]
	switch request {
	case "getself":
		root := f.nodes[keyAlpha]
		return success(map[string]any{
			"build_name": "yggdrasil", "build_version": "0.5.12",
			"key": keyAlpha, "address": root.address,
		})
	case "getpeers":
		peers := []map[string]any{{"up": false, "key": ""}}
		for _, k := range f.nodes[keyAlpha].peers {
			peers = append(peers, map[string]any{"up": true, "key": k})
		}
		return success(map[string]any{"peers": peers})
	case "lookups":
		infos := make([]map[string]any, 0, len(f.nodes))
		for k, n := range f.nodes {
			infos = append(infos, map[string]any{"addr": n.address, "key": k, "path": n.path})
		}
		return success(map[string]any{"infos": infos})
	}

	if !known {
		return map[string]any{"status": "error", "error": "node not found"}
	}
	switch request {
	case "getnodeinfo":
		return success(map[string]any{key: map[string]any{
			"name": node.name, "buildname": "yggdrasil", "buildversion": "0.5.12",
			"buildarch": "amd64", "buildplatform": "linux",
		}})
	case "debug_remotegetpeers":
		return success(map[string]any{key: map[string]any{"keys": node.peers}})
	case "debug_remotegettree":
		return success(map[string]any{key: map[string]any{"keys": []string{keyAlpha}}})
	default:
		return map[string]any{"status": "error", "error": "unknown request " + request}
	}
}

// decodedGraph is the part of the JSON graph the tests inspect.
type decodedGraph struct {
	Nodes []struct {
		Label         string  `json:"label"`
		BuildPlatform string  `json:"buildplatform"`
		Cluster       *string `json:"cluster"`
	} `json:"nodes"`
	Edges []struct {
		Dashes bool    `json:"dashes"`
		Arrows *string `json:"arrows"`
	} `json:"edges"`
	Clusters []string `json:"clusters"`
}

// hermeticArgs keeps the test away from config and .env files on the host.
func hermeticArgs(t *testing.T) []string {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("{}\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return []string{"--config", configPath, "--env-file", filepath.Join(dir, "missing.env")}
}

func TestCrawlCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mode      string
		wantNodes int
		wantEdges int
		wantArrow string
	}{
		{name: "path mode links every node to its tree parent", mode: "path", wantNodes: 3, wantEdges: 2, wantArrow: ""},
		{name: "peers mode collapses reciprocal peerings", mode: "peers", wantNodes: 3, wantEdges: 3, wantArrow: model.ArrowToFrom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			daemon := newFakeAdmin(t)

			var stdout, stderr bytes.Buffer
			cmd := NewRootCmd()
			cmd.SetOut(&stdout)
			cmd.SetErr(&stderr)
			args := []string{"crawl", "--endpoint", daemon.endpoint(), "--mode", tt.mode, "--json", "--workers", "2"}
			cmd.SetArgs(append(args, hermeticArgs(t)...))

			if err := cmd.Execute(); err != nil {
				t.Fatalf("crawl failed: %v\nstderr: %s", err, stderr.String())
			}

			var graph decodedGraph
			if err := json.Unmarshal(stdout.Bytes(), &graph); err != nil {
				t.Fatalf("output is not a JSON graph: %v\n%s", err, stdout.String())
			}

			if len(graph.Nodes) != tt.wantNodes {
				t.Errorf("got %d nodes, expected %d", len(graph.Nodes), tt.wantNodes)
			}
			if len(graph.Edges) != tt.wantEdges {
				t.Errorf("got %d edges, expected %d", len(graph.Edges), tt.wantEdges)
			}
			for _, edge := range graph.Edges {
				got := ""
				if edge.Arrows != nil {
					got = *edge.Arrows
				}
				if got != tt.wantArrow || edge.Dashes {
					t.Errorf("edge arrows=%q dashes=%v, expected arrows=%q without dashes", got, edge.Dashes, tt.wantArrow)
				}
			}

			labels := make([]string, 0, len(graph.Nodes))
			for _, node := range graph.Nodes {
				labels = append(labels, node.Label)
			}
			joined := strings.Join(labels, ",")
			for _, want := range []string{"alpha.hub - 200:aaaa", "bravo.hub - 200:bbbb", "charlie - 200:cccc"} {
				if !strings.Contains(joined, want) {
					t.Errorf("expected label %q among %v", want, labels)
				}
			}

			// charlie has no dot in its name and so no cluster.
			if strings.Join(graph.Clusters, ",") != "alpha,bravo" {
				t.Errorf("clusters = %v, expected [alpha bravo]", graph.Clusters)
			}

			if !strings.Contains(stderr.String(), "Crawl completed") {
				t.Errorf("expected progress on stderr, got %q", stderr.String())
			}
		})
	}
}

func TestCrawlCommand_Reports(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		flags    []string
		contains []string
	}{
		{name: "text report", flags: nil, contains: []string{"MESH TOPOLOGY REPORT", keyAlpha, "NODES:         3"}},
		{name: "markdown report", flags: []string{"--markdown"}, contains: []string{"# Mesh Topology Report", "charlie"}},
		{name: "full json report", flags: []string{"--full-json"}, contains: []string{`"generation"`, `"graph"`, keyAlpha}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			daemon := newFakeAdmin(t)
			reportPath := filepath.Join(t.TempDir(), "out", "report")

			var stderr bytes.Buffer
			cmd := NewRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&stderr)
			args := []string{"crawl", "--endpoint", daemon.endpoint(), "-o", reportPath}
			args = append(args, tt.flags...)
			cmd.SetArgs(append(args, hermeticArgs(t)...))

			if err := cmd.Execute(); err != nil {
				t.Fatalf("crawl failed: %v\nstderr: %s", err, stderr.String())
			}

			content, err := os.ReadFile(reportPath)
			if err != nil {
				t.Fatalf("report not written: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(string(content), want) {
					t.Errorf("expected report to contain %q:\n%s", want, content)
				}
			}

			info, err := os.Stat(reportPath)
			if err != nil {
				t.Fatalf("stat failed: %v", err)
			}
			if info.Mode().Perm() != 0600 {
				t.Errorf("report mode = %v, expected 0600", info.Mode().Perm())
			}
		})
	}
}

func TestCrawlCommand_Errors(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	closedEndpoint := "tcp://" + ln.Addr().String()
	_ = ln.Close()

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{name: "unknown mode", args: []string{"--mode", "tree"}, wantErr: config.ErrInvalidMode},
		{name: "zero workers", args: []string{"--workers", "0"}, wantErr: config.ErrInvalidWorkers},
		{name: "json and markdown", args: []string{"--json", "--markdown"}, wantErr: config.ErrConflictingReportFormats},
		{name: "unparsable endpoint", args: []string{"--endpoint", "nohost"}, wantMsg: "invalid endpoint"},
		{name: "daemon not running", args: []string{"--endpoint", closedEndpoint, "--timeout", "2s"}, wantMsg: "cannot reach daemon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewCrawlCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append(tt.args, hermeticArgs(t)...))

			err := cmd.Execute()
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, expected %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, expected it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), ".meshmap")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		return path
	}
	envOf := func(values map[string]string) func(map[string]string) config.LookupFunc {
		return func(map[string]string) config.LookupFunc {
			return func(key string) (string, bool) {
				v, ok := values[key]
				return v, ok
			}
		}
	}
	parse := func(t *testing.T, lookup func(map[string]string) config.LookupFunc, args ...string) (*config.Config, error) {
		t.Helper()
		cmd := NewCrawlCmd()
		args = append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env"))
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("ParseFlags() error = %v", err)
		}
		return buildConfig(cmd, lookup)
	}

	configPath := writeConfig(t, `daemon:
  endpoint: tcp://10.0.0.1:9001
crawl:
  workers: 3
  mode: peers
nodes:
  `+keyBravo+`:
    name: gateway
`)

	t.Run("file overrides defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := parse(t, envOf(nil), "--config", configPath)
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.Endpoint != "tcp://10.0.0.1:9001" || cfg.Workers != 3 || cfg.Mode != model.ModePeers {
			t.Errorf("unexpected config %+v", cfg)
		}
		if cfg.Overrides[model.Key(keyBravo)].Name != "gateway" {
			t.Errorf("override missing: %+v", cfg.Overrides)
		}
		if cfg.Timeout != config.DefaultTimeout {
			t.Errorf("Timeout = %v, expected the default", cfg.Timeout)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Parallel()

		cfg, err := parse(t, envOf(map[string]string{config.EnvWorkers: "4"}), "--config", configPath)
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.Workers != 4 {
			t.Errorf("Workers = %d, expected 4", cfg.Workers)
		}
	})

	t.Run("flags override environment", func(t *testing.T) {
		t.Parallel()

		cfg, err := parse(t, envOf(map[string]string{config.EnvWorkers: "4"}),
			"--config", configPath, "--workers", "9", "--mode", "path", "--timeout", "5s")
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.Workers != 9 || cfg.Mode != model.ModePath || cfg.Timeout != 5*time.Second {
			t.Errorf("unexpected config %+v", cfg)
		}
	})

	t.Run("full json implies json", func(t *testing.T) {
		t.Parallel()

		cfg, err := parse(t, envOf(nil), "--config", configPath, "--full-json")
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if !cfg.JSONReport || !cfg.FullJSON {
			t.Errorf("JSONReport=%v FullJSON=%v", cfg.JSONReport, cfg.FullJSON)
		}
	})

	t.Run("explicit missing config file", func(t *testing.T) {
		t.Parallel()

		_, err := parse(t, envOf(nil), "--config", filepath.Join(t.TempDir(), "absent.yaml"))
		if err == nil || !strings.Contains(err.Error(), "configuration file not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("invalid node key in file", func(t *testing.T) {
		t.Parallel()

		bad := writeConfig(t, "nodes:\n  nope:\n    name: x\n")
		_, err := parse(t, envOf(nil), "--config", bad)
		if !errors.Is(err, config.ErrInvalidNodeKey) {
			t.Errorf("expected ErrInvalidNodeKey, got %v", err)
		}
	})

	t.Run("invalid environment value", func(t *testing.T) {
		t.Parallel()

		_, err := parse(t, envOf(map[string]string{config.EnvTimeout: "later"}), "--config", configPath)
		if !errors.Is(err, config.ErrInvalidEnv) {
			t.Errorf("expected ErrInvalidEnv, got %v", err)
		}
	})
}
