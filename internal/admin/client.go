package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds a single request/response round trip. Relay
// requests wait on a remote node, so this is generous.
const DefaultTimeout = 30 * time.Second

// Client is one persistent connection to the daemon's admin socket.
//
// A Client is NOT safe for concurrent use: the protocol has no request ids,
// so two interleaved requests would read each other's responses.
type Client struct {
	// endpoint is the admin socket this client is connected to.
	endpoint Endpoint

	// conn is the underlying stream connection.
	conn net.Conn

	// dec reads consecutive JSON responses from conn.
	dec *json.Decoder

	// timeout bounds each round trip. Zero means no deadline.
	timeout time.Duration

	logger *slog.Logger

	// mu guards closed and makes Close safe to call from another goroutine.
	mu     sync.Mutex
	closed bool
}

// Option configures Dial.
type Option func(*dialOptions)

type dialOptions struct {
	timeout   time.Duration
	proxyAddr string
	proxyAuth *proxy.Auth
	logger    *slog.Logger
}

// WithTimeout sets the per-request deadline. It also bounds the dial.
func WithTimeout(d time.Duration) Option {
	return func(o *dialOptions) {
		o.timeout = d
	}
}

// WithProxy dials tcp endpoints through a SOCKS5 proxy, for daemons whose
// admin socket is only reachable from another host. An empty user disables
// proxy authentication. Unix endpoints ignore the proxy.
func WithProxy(address, user, password string) Option {
	return func(o *dialOptions) {
		o.proxyAddr = address
		if user != "" {
			o.proxyAuth = &proxy.Auth{User: user, Password: password}
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *dialOptions) {
		o.logger = logger
	}
}

// Dial connects to the admin endpoint. A failure is returned as a
// *ConnectionError.
func Dial(ctx context.Context, endpoint Endpoint, opts ...Option) (*Client, error) {
	o := dialOptions{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	conn, err := dialEndpoint(ctx, endpoint, o)
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint.String(), Op: "dial", Err: err}
	}

	o.logger.Debug("connected to admin socket", "endpoint", endpoint.String())

	return &Client{
		endpoint: endpoint,
		conn:     conn,
		dec:      json.NewDecoder(conn),
		timeout:  o.timeout,
		logger:   o.logger,
	}, nil
}

// dialEndpoint opens the raw stream, through the SOCKS5 proxy if configured.
func dialEndpoint(ctx context.Context, endpoint Endpoint, o dialOptions) (net.Conn, error) {
	switch endpoint.Network {
	case NetworkUnix:
		var d net.Dialer
		return d.DialContext(ctx, NetworkUnix, endpoint.Address)
	case NetworkTCP:
		if o.proxyAddr == "" {
			var d net.Dialer
			return d.DialContext(ctx, NetworkTCP, endpoint.Address)
		}
		dialer, err := proxy.SOCKS5(NetworkTCP, o.proxyAddr, o.proxyAuth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, NetworkTCP, endpoint.Address)
		}
		return dialer.Dial(NetworkTCP, endpoint.Address)
	default:
		return nil, ErrInvalidEndpoint
	}
}

// Endpoint returns the endpoint the client is connected to.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Close releases the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// isClosed reports whether Close was called or the transport failed.
func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// request is the wire form of an admin request.
type request struct {
	Request   string            `json:"request"`
	Arguments map[string]string `json:"arguments"`
	KeepAlive bool              `json:"keepalive"`
}

// response is the wire form of an admin response envelope.
type response struct {
	Status   string          `json:"status"`
	Request  json.RawMessage `json:"request,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Response statuses.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// roundTrip writes one request and reads the one response that follows it.
// It returns the raw success payload.
func (c *Client) roundTrip(ctx context.Context, name string, args map[string]string) (json.RawMessage, error) {
	if c.isClosed() {
		return nil, &ConnectionError{Endpoint: c.endpoint.String(), Op: "request", Err: ErrClosed}
	}

	if args == nil {
		args = map[string]string{}
	}
	payload, err := json.Marshal(request{Request: name, Arguments: args, KeepAlive: true})
	if err != nil {
		return nil, &ProtocolError{Request: name, Err: err}
	}

	if err := c.conn.SetDeadline(c.deadline(ctx)); err != nil {
		return nil, c.fail("deadline", err)
	}
	// Cancelling ctx unblocks a pending read or write by expiring the deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now()) //nolint:errcheck // Best effort wake-up
	})
	defer stop()

	if _, err := c.conn.Write(payload); err != nil {
		return nil, c.fail("write", contextCause(ctx, err))
	}

	var resp response
	if err := c.dec.Decode(&resp); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			// The whole value was consumed; the stream is still aligned.
			return nil, &ProtocolError{Request: name, Err: err}
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			// A broken decoder cannot find the next message boundary.
			_ = c.Close() //nolint:errcheck // Connection is unusable either way
			return nil, &ProtocolError{Request: name, Err: err}
		}
		return nil, c.fail("read", contextCause(ctx, err))
	}

	c.logger.Debug("admin request", "request", name, "arguments", args, "status", resp.Status)

	switch resp.Status {
	case statusSuccess:
		return resp.Response, nil
	case statusError:
		return nil, &RequestError{Request: name, Message: resp.Error}
	default:
		return nil, &ProtocolError{Request: name, Err: fmt.Errorf("unknown response status %q", resp.Status)}
	}
}

// deadline returns the earlier of the per-request timeout and ctx's deadline.
func (c *Client) deadline(ctx context.Context) time.Time {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}

// fail closes the connection and wraps err as a ConnectionError. A response
// may still be in flight, so the stream can no longer be trusted.
func (c *Client) fail(op string, err error) error {
	_ = c.Close() //nolint:errcheck // The original error is more useful
	return &ConnectionError{Endpoint: c.endpoint.String(), Op: op, Err: err}
}

// contextCause prefers the context error when cancellation caused err.
func contextCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// call performs a request and decodes its success payload into T.
func call[T any](ctx context.Context, c *Client, name string, args map[string]string) (T, error) {
	var out T

	raw, err := c.roundTrip(ctx, name, args)
	if err != nil {
		return out, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return out, &ProtocolError{Request: name, Err: errors.New("missing response payload")}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &ProtocolError{Request: name, Err: err}
	}
	return out, nil
}

// callKeyed performs a request about key whose payload is a map keyed by
// the node's resolved key, and returns the single entry for that node.
func callKeyed[T any](ctx context.Context, c *Client, name, key string) (T, error) {
	var zero T

	entries, err := call[map[string]T](ctx, c, name, map[string]string{"key": key})
	if err != nil {
		return zero, err
	}

	if v, ok := entries[key]; ok {
		return v, nil
	}
	if len(entries) == 1 {
		for resolved, v := range entries {
			if !strings.EqualFold(resolved, key) {
				c.logger.Debug("remote answered under a different key",
					"request", name, "key", key, "resolved", resolved)
			}
			return v, nil
		}
	}
	if len(entries) == 0 {
		return zero, &ProtocolError{Request: name, Err: fmt.Errorf("no entry for key %s", key)}
	}
	return zero, &ProtocolError{Request: name, Err: fmt.Errorf("%d ambiguous entries for key %s", len(entries), key)}
}
