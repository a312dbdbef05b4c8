package admin

import (
	"errors"
	"fmt"
)

// ErrClosed is wrapped by ConnectionError when a request is attempted on a
// client that was closed, either explicitly or after a transport failure.
var ErrClosed = errors.New("admin connection closed")

// ErrInvalidEndpoint is returned when an endpoint string cannot be parsed.
var ErrInvalidEndpoint = errors.New("invalid admin endpoint: expected a socket path or host:port")

// ConnectionError reports a transport failure: the endpoint could not be
// reached, or the connection broke while a request was in flight.
// It is fatal to the Client that returned it.
type ConnectionError struct {
	// Endpoint is the admin endpoint the client was talking to.
	Endpoint string

	// Op is the operation that failed ("dial", "write", "read").
	Op string

	// Err is the underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("admin %s %s: %v", e.Op, e.Endpoint, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a response that could not be decoded into the
// schema expected for the request.
type ProtocolError struct {
	// Request is the name of the request that produced the response.
	Request string

	// Err describes the mismatch.
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("admin %s: malformed response: %v", e.Request, e.Err)
}

// Unwrap returns the decoding error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// RequestError reports an error status returned by the daemon.
// The connection stays usable.
type RequestError struct {
	// Request is the name of the failed request.
	Request string

	// Message is the daemon-supplied error message.
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("admin %s: daemon error: %s", e.Request, e.Message)
}

// IsConnectionError reports whether err is or wraps a ConnectionError.
func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

// IsRecoverable reports whether err only affects a single request, so the
// caller may substitute a default and keep using the connection.
func IsRecoverable(err error) bool {
	var reqErr *RequestError
	var protoErr *ProtocolError
	return errors.As(err, &reqErr) || errors.As(err, &protoErr)
}
