package resolver

import (
	"github.com/nodepm/peerresolve/internal/depgraph"
	"github.com/nodepm/peerresolve/internal/pkgversion"
)

// Detect performs a single pass over g in insertion order, skipping stale
// nodes entirely, and returns the first node with a non-empty violation
// set, or nil if none is found.
func Detect(g *depgraph.Graph) *Report {
	for _, name := range g.Order {
		d, ok := g.Get(name)
		if !ok || d.Stale || d.Version == "" {
			continue
		}
		v, ok := pkgversion.ParseVersion(d.Version)
		if !ok {
			continue
		}

		report := &Report{Name: d.Name, Version: d.Version}
		for _, requirerName := range d.RequiredByOrder {
			if requirerName == RootRequirer {
				continue
			}
			r, ok := g.Get(requirerName)
			if !ok || r.Stale {
				continue
			}
			rng, ok := r.PeerDependencies[d.Name]
			if !ok {
				continue
			}
			compatible, dependencyTooHigh := pkgversion.Classify(v, rng)
			if compatible {
				continue
			}
			if dependencyTooHigh {
				report.GreaterThan = append(report.GreaterThan, Requirement{Requirer: requirerName, Range: rng})
			} else {
				report.Else = append(report.Else, Requirement{Requirer: requirerName, Range: rng})
			}
		}

		if !report.Empty() {
			return report
		}
	}
	return nil
}
