// Package report writes exported topology graphs.
//
// This package contains writers for different output formats:
//   - JSONWriter: the graph payload consumed by graph front ends
//   - FullJSONWriter: the payload wrapped with crawl metadata
//   - MarkdownWriter: a summary for documentation and sharing
//   - SimpleWriter: human-readable text output for terminal display
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
