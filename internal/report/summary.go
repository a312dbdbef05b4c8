package report

import (
	"cmp"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/meshmap/internal/model"
)

// PlatformCount is the number of nodes built for one platform.
type PlatformCount struct {
	Platform string
	Count    int
}

// Summary aggregates the counts every writer prints.
type Summary struct {
	Nodes         int
	Edges         int
	Bidirectional int
	OneWay        int
	Clusters      int

	// Unresponsive counts nodes whose platform is unknown, which means
	// they did not answer the nodeinfo request.
	Unresponsive int

	// Platforms is ordered by count, then by name.
	Platforms []PlatformCount
}

// Summarize computes the Summary of g.
func Summarize(g *model.Graph) Summary {
	bidirectional := g.BidirectionalCount()
	s := Summary{
		Nodes:         len(g.Nodes),
		Edges:         len(g.Edges),
		Bidirectional: bidirectional,
		OneWay:        len(g.Edges) - bidirectional,
		Clusters:      len(g.Clusters),
	}

	for platform, count := range g.PlatformCounts() {
		if platform == model.Unknown {
			s.Unresponsive = count
		}
		s.Platforms = append(s.Platforms, PlatformCount{Platform: platform, Count: count})
	}
	slices.SortFunc(s.Platforms, func(a, b PlatformCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Platform, b.Platform))
	})
	return s
}

// platformTitle formats a build platform for display ("linux" -> "Linux").
func platformTitle(platform string) string {
	return cases.Title(language.English).String(platform)
}
