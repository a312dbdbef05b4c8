package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/meshmap/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose lists every node and edge after the summary.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with the full node and edge lists.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder
	g := graphOf(report)

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, Summarize(g))
	if w.verbose {
		w.writeNodes(&sb, g)
		w.writeEdges(&sb, g)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       MESH TOPOLOGY REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Root:        %s\n", report.Root)
	fmt.Fprintf(sb, "Mode:        %s\n", report.Mode)
	fmt.Fprintf(sb, "Generation:  %s\n", report.Generation)
	fmt.Fprintf(sb, "Generated:   %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Status:      %s\n", report.Status)
	sb.WriteString("\n")
}

// writeSummary writes node, edge and platform counts.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, s Summary) {
	section(sb, "SUMMARY")

	fmt.Fprintf(sb, "  NODES:         %d\n", s.Nodes)
	fmt.Fprintf(sb, "  EDGES:         %d (%d bidirectional, %d one-way)\n", s.Edges, s.Bidirectional, s.OneWay)
	fmt.Fprintf(sb, "  CLUSTERS:      %d\n", s.Clusters)
	fmt.Fprintf(sb, "  UNRESPONSIVE:  %d\n", s.Unresponsive)
	sb.WriteString("\n")

	if len(s.Platforms) == 0 {
		return
	}
	sb.WriteString("  Platforms:\n")
	for _, p := range s.Platforms {
		fmt.Fprintf(sb, "    [+] %-12s %d\n", platformTitle(p.Platform), p.Count)
	}
	sb.WriteString("\n")
}

// writeNodes lists every node.
func (w *SimpleWriter) writeNodes(sb *strings.Builder, g *model.Graph) {
	section(sb, "NODES")

	if len(g.Nodes) == 0 {
		sb.WriteString("  No nodes\n\n")
		return
	}
	for _, n := range g.Nodes {
		fmt.Fprintf(sb, "  * %s\n", n.Label)
		fmt.Fprintf(sb, "    Build: %s %s\n", n.BuildPlatform, n.BuildVersion)
		if n.Cluster != nil {
			fmt.Fprintf(sb, "    Cluster: %s\n", *n.Cluster)
		}
	}
	sb.WriteString("\n")
}

// writeEdges lists every edge by node label.
func (w *SimpleWriter) writeEdges(sb *strings.Builder, g *model.Graph) {
	section(sb, "EDGES")

	if len(g.Edges) == 0 {
		sb.WriteString("  No edges\n\n")
		return
	}

	labels := make(map[model.NodeID]string, len(g.Nodes))
	for _, n := range g.Nodes {
		labels[n.ID] = n.Label
	}
	for _, e := range g.Edges {
		arrow := "->"
		if e.IsBidirectional() {
			arrow = "<->"
		}
		fmt.Fprintf(sb, "  %s %s %s\n", labels[e.From], arrow, labels[e.To])
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by meshmap\n")
	sb.WriteString("https://github.com/nao1215/meshmap\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
