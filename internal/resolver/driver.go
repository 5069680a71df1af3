package resolver

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nodepm/peerresolve/internal/depgraph"
)

// ResolutionError is returned when the repair engine exhausts every candidate
// for a violation without reaching a fixed point within MaxIterations
// passes — the structural signal that no further strictly-decreasing
// repair exists for the reported conflict.
type ResolutionError struct {
	Report *Report
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution dead-end on %s@%s: no repair satisfies requirers %v / %v",
		e.Report.Name, e.Report.Version, keysOf(e.Report.GreaterThan), keysOf(e.Report.Else))
}

func keysOf(reqs []Requirement) []string {
	out := make([]string, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, req.Requirer)
	}
	return out
}

// Driver runs the build -> detect -> repair fixed-point loop.
type Driver struct {
	Builder  *Builder
	Repairer *Repairer
	Log      *logrus.Entry

	// MaxIterations bounds the detect/repair loop. Every repair strictly
	// decreases some node's version or leaves it unchanged; with a
	// bounded version universe this always terminates, but a corrupt or
	// adversarial registry response could otherwise spin forever, so a
	// generous ceiling backstops it. Zero means unbounded.
	MaxIterations int
}

// Result is what a successful Run produces.
type Result struct {
	Versions    map[string]string
	PeerMeta    map[string]*depgraph.Node
	AddedBeyond []string
	StaleNames  []string
}

// Run builds the graph from seeds and then repairs it to a fixed point,
// returning the resolved version map plus the bookkeeping the Driver (§4.7)
// is specified to emit.
func (d *Driver) Run(ctx context.Context, seeds []string) (*Result, error) {
	if err := d.Builder.Build(ctx, seeds); err != nil {
		return nil, err
	}

	g := d.Builder.Graph
	iterations := 0
	var lastReportKey string
	repeats := 0
	for {
		report := Detect(g)
		if report == nil {
			break
		}
		iterations++
		if d.MaxIterations > 0 && iterations > d.MaxIterations {
			return nil, &ResolutionError{Report: report}
		}

		key := fmt.Sprintf("%s@%s", report.Name, report.Version)
		if key == lastReportKey {
			repeats++
		} else {
			repeats = 0
		}
		lastReportKey = key
		if repeats > len(g.Nodes)+1 {
			return nil, &ResolutionError{Report: report}
		}

		if err := d.Repairer.Repair(ctx, g, report); err != nil {
			return nil, err
		}
	}

	seedSet := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		seedSet[s] = true
	}

	result := &Result{
		Versions: map[string]string{},
		PeerMeta: map[string]*depgraph.Node{},
	}
	for _, name := range g.Order {
		n, _ := g.Get(name)
		result.Versions[name] = n.Version
		result.PeerMeta[name] = n
		if !seedSet[name] {
			result.AddedBeyond = append(result.AddedBeyond, name)
		}
		if n.Stale {
			result.StaleNames = append(result.StaleNames, name)
		}
	}
	return result, nil
}
