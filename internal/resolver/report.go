// Package resolver implements the build -> detect -> repair fixed-point
// loop: the Graph Builder, Violation Detector, Repair Engine and Driver
// described by the dependency-graph design this module follows.
package resolver

// RootRequirer is the sentinel requirer name for manifest-direct
// dependencies — the only RequiredBy member with no corresponding node.
const RootRequirer = "<root>"

// Requirement is one requirer's unsatisfied peer dependency range on the
// reported node, in the order the requirer was recorded as a back-edge.
type Requirement struct {
	Requirer string
	Range    string
}

// Report is the result of a single Violation Detector pass: the first
// non-stale node found with at least one unsatisfied peer requirer,
// partitioned by pkgversion.Classify's dependencyTooHigh flag.
type Report struct {
	Name    string
	Version string

	// GreaterThan holds requirers for which Name's version is uniformly
	// too high (pkgversion.Classify's dependencyTooHigh == true), in
	// back-edge insertion order: the Repair Engine's mode A downgrades
	// Name itself to satisfy these, processing them in this order so its
	// documented "last iteration wins" behavior (spec.md §9) is
	// reproducible rather than dependent on Go's randomized map order.
	GreaterThan []Requirement

	// Else holds requirers for which Name's version can't go any lower
	// without failing that requirer's own floor — mode B downgrades the
	// requirer instead, also in back-edge insertion order.
	Else []Requirement
}

// Empty reports whether this report carries no violations at all (used
// internally; Detect returns nil rather than an empty *Report).
func (r *Report) Empty() bool {
	return r == nil || (len(r.GreaterThan) == 0 && len(r.Else) == 0)
}
