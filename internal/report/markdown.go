package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/meshmap/internal/model"
)

// maxMarkdownNodes caps the node table; larger meshes only get the summary.
const maxMarkdownNodes = 200

// MarkdownWriter outputs a topology summary in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)
	g := graphOf(report)
	summary := Summarize(g)

	w.writeHeader(md, report)
	w.writeSummary(md, summary, report.Mode)
	w.writeClusters(md, g)
	w.writeNodes(md, g)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("Mesh Topology Report")
	md.PlainText("")

	root := "-"
	if !report.Root.IsEmpty() {
		root = "`" + report.Root.String() + "`"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root", root},
			{"Mode", string(report.Mode)},
			{"Generation", report.Generation},
			{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", "`" + report.Status + "`"},
		},
	})
	md.PlainText("")
}

// writeSummary writes the node and edge counts.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s Summary, mode model.Mode) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Nodes", strconv.Itoa(s.Nodes)},
			{"Edges", strconv.Itoa(s.Edges)},
			{"Bidirectional edges", strconv.Itoa(s.Bidirectional)},
			{"One-way edges", strconv.Itoa(s.OneWay)},
			{"Clusters", strconv.Itoa(s.Clusters)},
			{"Unresponsive nodes", strconv.Itoa(s.Unresponsive)},
		},
	})
	md.PlainText("")

	if len(s.Platforms) > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s, mode)
}

// writePieChart writes a mermaid pie chart of build platforms.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Build Platforms"),
		piechart.WithShowData(true),
	)

	for _, p := range s.Platforms {
		chart.LabelAndIntValue(platformTitle(p.Platform), uint64(p.Count)) //nolint:gosec // counts are non-negative
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing how complete the crawl looks.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s Summary, mode model.Mode) {
	switch {
	case s.Nodes == 0:
		md.Cautionf("No nodes were discovered in %s mode. Is the daemon running and peered?", mode)
	case s.Edges == 0:
		md.Warningf("%d node(s) were discovered but no links between them.", s.Nodes)
	case s.Unresponsive > 0:
		md.Importantf("%d node(s) did not answer and are shown with unknown attributes.", s.Unresponsive)
	default:
		md.Tip("Every discovered node answered.")
	}
	md.PlainText("")
}

// writeClusters lists the cluster labels.
func (w *MarkdownWriter) writeClusters(md *markdown.Markdown, g *model.Graph) {
	md.H2("Clusters")
	md.PlainText("")

	if len(g.Clusters) == 0 {
		md.PlainText("No clusters.")
		md.PlainText("")
		return
	}

	md.BulletList(g.Clusters...)
	md.PlainText("")
}

// writeNodes writes a table of nodes.
func (w *MarkdownWriter) writeNodes(md *markdown.Markdown, g *model.Graph) {
	md.H2("Nodes")
	md.PlainText("")

	if len(g.Nodes) == 0 {
		md.PlainText("No nodes.")
		md.PlainText("")
		return
	}
	if len(g.Nodes) > maxMarkdownNodes {
		md.PlainTextf("%d nodes, table omitted.", len(g.Nodes))
		md.PlainText("")
		return
	}

	rows := make([][]string, len(g.Nodes))
	for i, n := range g.Nodes {
		cluster := "-"
		if n.Cluster != nil {
			cluster = *n.Cluster
		}
		rows[i] = []string{
			truncateString(n.Label, 40),
			platformTitle(n.BuildPlatform),
			n.BuildVersion,
			truncateString(cluster, 30),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Label", "Platform", "Version", "Cluster"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [meshmap](https://github.com/nao1215/meshmap)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
