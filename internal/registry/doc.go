// Package registry holds the in-memory state of one crawl generation:
// static peer data, self-reported adjacency, lookup-enriched peers, and the
// set of keys currently being crawled.
//
// Entries are write-once within a generation. The registry is reset
// wholesale when a new generation starts, and only while the crawler's
// generation lock is held.
package registry
