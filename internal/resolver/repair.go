package resolver

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nodepm/peerresolve/internal/depgraph"
	"github.com/nodepm/peerresolve/internal/pkgversion"
)

// Repairer mutates a Graph in response to a detector Report. Both repair
// modes need live registry access (a candidate version's peer set is not
// necessarily already in the graph), so it holds the same Registry the
// Builder talks to.
type Repairer struct {
	Client Registry
	Log    *logrus.Entry
}

// Repair applies mode A (if GreaterThan is non-empty) and then mode B for
// every entry in Else, in that order, per a single detector report.
func (rp *Repairer) Repair(ctx context.Context, g *depgraph.Graph, report *Report) error {
	if len(report.GreaterThan) > 0 {
		if err := rp.repairOffendingDependency(ctx, g, report); err != nil {
			return err
		}
	}
	for _, req := range report.Else {
		if err := rp.repairComplainingPeer(ctx, g, report.Name, req.Requirer); err != nil {
			return err
		}
	}
	return nil
}

// repairOffendingDependency is mode A. For each requirer in
// report.GreaterThan, it walks d's published versions (descending,
// skipping any strictly above the originally-reported version) looking for
// the first candidate that is either compatible, or definitively too low
// (pkgversion.Classify's dependencyTooHigh == false — further decreases
// cannot help). That
// candidate is committed as d's new version unconditionally, once per
// requirer; the originally-reported version is used as the walk's starting
// point for every requirer, not the version from the previous iteration,
// reproducing the "last iteration wins" behavior documented as an open
// question: the final committed version is whichever requirer was
// processed last, and may not satisfy an earlier one.
func (rp *Repairer) repairOffendingDependency(ctx context.Context, g *depgraph.Graph, report *Report) error {
	d, ok := g.Get(report.Name)
	if !ok {
		return fmt.Errorf("repair: unknown node %s", report.Name)
	}

	originalVersion, ok := pkgversion.ParseVersion(report.Version)
	if !ok {
		return fmt.Errorf("repair: %s has unparseable version %q", report.Name, report.Version)
	}

	var lastCandidate string
	for _, req := range report.GreaterThan {
		requirer, rng := req.Requirer, req.Range
		lastCandidate = report.Version
		for _, literal := range d.AllVersions {
			candidate, ok := pkgversion.ParseVersion(literal)
			if !ok || candidate.Compare(originalVersion) > 0 {
				continue
			}
			lastCandidate = literal
			compatible, dependencyTooHigh := pkgversion.Classify(candidate, rng)
			if compatible || !dependencyTooHigh {
				break
			}
		}

		peers, err := rp.Client.PeerDependencies(ctx, report.Name, lastCandidate)
		if err != nil {
			return fmt.Errorf("repair: fetching peer dependencies for %s@%s: %w", report.Name, lastCandidate, err)
		}
		g.SetVersion(report.Name, lastCandidate, peers)

		rp.log().WithFields(logrus.Fields{
			"dependency": report.Name,
			"from":       report.Version,
			"to":         lastCandidate,
			"requirer":   requirer,
		}).Info("downgraded dependency to satisfy peer requirement")
	}
	return nil
}

// repairComplainingPeer is mode B: binary-search requirer's published
// versions (sorted descending, so index 0 is newest) for the highest
// version whose peer declaration on dName both exists and is compatible
// with d's current version.
func (rp *Repairer) repairComplainingPeer(ctx context.Context, g *depgraph.Graph, dName, requirerName string) error {
	r, ok := g.Get(requirerName)
	if !ok {
		return fmt.Errorf("repair: unknown requirer %s", requirerName)
	}
	d, ok := g.Get(dName)
	if !ok {
		return fmt.Errorf("repair: unknown node %s", dName)
	}
	dVersion, ok := pkgversion.ParseVersion(d.Version)
	if !ok {
		return fmt.Errorf("repair: %s has unparseable version %q", dName, d.Version)
	}

	versions := r.AllVersions
	lo, hi := 0, len(versions)-1
	result := ""
	var resultPeers map[string]string

	for lo <= hi {
		mid := (lo + hi) / 2
		candidateLiteral := versions[mid]

		peers, err := rp.Client.PeerDependencies(ctx, requirerName, candidateLiteral)
		if err != nil {
			return fmt.Errorf("repair: fetching peer dependencies for %s@%s: %w", requirerName, candidateLiteral, err)
		}
		rng, hasPeer := peers[dName]
		if !hasPeer {
			hi = mid - 1
			continue
		}

		compatible, dependencyTooHigh := pkgversion.Classify(dVersion, rng)
		switch {
		case compatible:
			result = candidateLiteral
			resultPeers = peers
			hi = mid - 1
		case dependencyTooHigh:
			hi = mid - 1
		default:
			lo = mid + 1
		}
	}

	if result == "" {
		return nil
	}

	previousVersion := r.Version
	g.SetVersion(requirerName, result, resultPeers)
	rp.log().WithFields(logrus.Fields{
		"peer": requirerName,
		"from": previousVersion,
		"to":   result,
		"for":  dName,
	}).Info("downgraded peer to accept dependency version")
	return nil
}

func (rp *Repairer) log() *logrus.Entry {
	if rp.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return rp.Log
}
