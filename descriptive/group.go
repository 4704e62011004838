package descriptive

import (
	"sort"

	"github.com/carbocation/methylseq/align"
	"github.com/carbocation/methylseq/registry"
)

// UnknownGroup collects samples without a registered cell type.
const UnknownGroup = "unknown"

// Group holds the per-site mean raw value across the samples of one cell
// type.
type Group struct {
	Name    string
	Samples []string
	Means   []float64 // One entry per aligned site
}

// GroupByCellType averages, site by site, the raw values of the samples that
// share a cellType in reg. Groups are returned sorted by name.
func GroupByCellType(t *align.MergedTable, reg *registry.Registry) []Group {
	members := make(map[string][]int)
	for i, col := range t.Samples {
		name := reg.CellType(col.SampleID)
		if name == "" {
			name = UnknownGroup
		}
		members[name] = append(members[name], i)
	}

	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Group, 0, len(names))
	for _, name := range names {
		g := Group{Name: name, Means: make([]float64, t.Len())}
		for _, i := range members[name] {
			g.Samples = append(g.Samples, t.Samples[i].SampleID)
			for r, v := range t.Raw[i] {
				g.Means[r] += v
			}
		}
		for r := range g.Means {
			g.Means[r] /= float64(len(members[name]))
		}
		out = append(out, g)
	}

	return out
}
