package report

import (
	"io"

	"github.com/nao1215/meshmap/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.Report) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// graphOf returns the report's graph, or an empty one.
func graphOf(report *model.Report) *model.Graph {
	if report.Graph == nil {
		return model.NewGraph()
	}
	return report.Graph
}
