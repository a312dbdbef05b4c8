// Package main provides the entry point for the meshmap CLI.
//
// meshmap maps the topology of an overlay mesh network. It talks to the
// local daemon's admin socket, crawls every reachable node through it and
// writes the resulting graph as text, JSON or Markdown.
//
// Usage:
//
//	meshmap crawl
//	meshmap crawl --endpoint tcp://127.0.0.1:9001 --mode peers --json
//
// See --help for all available options.
package main

func main() {
	Execute()
}
