// Package admin provides a client for the mesh daemon's admin socket.
//
// The daemon speaks a half-duplex JSON protocol: the client writes one
// request object and reads exactly one response object from the same
// connection. There is no correlation id, so a Client must never be used by
// more than one goroutine at a time. Callers that need concurrency open one
// Client per goroutine.
//
// Every request has a typed method (GetSelf, GetPeers, RemoteGetPeers, ...).
// A payload that does not match the method's schema is a ProtocolError.
//
// # Errors
//
// Failures fall into three classes:
//   - ConnectionError: the transport is unreachable or broken. The client
//     closes itself and must be redialed.
//   - ProtocolError: the daemon answered with something that does not match
//     the expected schema. Only that request is affected.
//   - RequestError: the daemon reported an application-level failure, for
//     example a relay timeout to an unreachable remote node.
//
// # Usage
//
//	client, err := admin.Dial(ctx, endpoint, admin.WithTimeout(30*time.Second))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	self, err := client.GetSelf(ctx)
package admin
