// Package crawler discovers the mesh topology reachable from a local daemon.
//
// # Architecture
//
// The Engine runs one crawl generation at a time. A generation is a
// pipeline of three steps over shared generation state:
//
//   - seeding: identify the root node and submit its direct peers
//   - draining: workers take keys off the frontier and interrogate each
//     node through the daemon, submitting the neighbors they learn about
//   - finalizing: merge the daemon's lookup table into enriched peer data
//
// Every worker owns one daemon connection; the protocol has no
// multiplexing, so connections are never shared.
//
// # Failure isolation
//
// A node that does not answer, or answers garbage, is stored with unknown
// attributes and the crawl moves on. A worker whose connection breaks
// redials once and retires if that fails. Only a failure of the root
// connection aborts a generation.
//
// # Usage
//
//	engine := crawler.New(crawler.AdminDialer(endpoint), crawler.WithWorkers(6))
//	defer engine.Close()
//	if err := engine.Refresh(ctx); err != nil {
//		return err
//	}
//	g, err := engine.Export(model.ModePath)
package crawler
