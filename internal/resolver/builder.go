package resolver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nodepm/peerresolve/internal/depgraph"
	"github.com/nodepm/peerresolve/internal/pkgversion"
)

// Registry is the subset of registry.Client the builder needs, narrowed so
// tests can supply a fake without depending on the registry package's
// subprocess/cache machinery.
type Registry interface {
	Versions(ctx context.Context, name string) ([]string, error)
	DistTags(ctx context.Context, name string) (map[string]string, error)
	PeerDependencies(ctx context.Context, name, version string) (map[string]string, error)
	PublishTimes(ctx context.Context, name string) (map[string]string, error)
}

// Builder performs the depth-first (here, worklist-driven) expansion that
// populates a Graph from a seed list of direct dependencies.
type Builder struct {
	Client Registry
	Graph  *depgraph.Graph

	// Restrictions pins specific names to a version literal, consulted
	// only when a node is first inserted.
	Restrictions map[string]string

	// StaleThreshold and StaleAllowList drive the staleness computation;
	// Now is injected for testability.
	StaleThreshold time.Duration
	StaleAllowList map[string]bool
	Now            time.Time

	Log *logrus.Entry
}

type worklistItem struct {
	name     string
	requirer string
}

// Build expands the graph starting from seeds, each requested with
// requirer RootRequirer. The worklist is popped from the end (a stack, not
// a FIFO queue) so expansion is pre-order depth-first, matching the
// teacher's own "reverse the insertion queue, to have a DFS" idiom
// (deps.dev/util/resolve/npm/resolve.go) and spec.md §4.4's traversal
// order: a freshly discovered peer is expanded before its siblings, not
// after them.
func (b *Builder) Build(ctx context.Context, seeds []string) error {
	queue := make([]worklistItem, 0, len(seeds))
	for _, s := range seeds {
		queue = append(queue, worklistItem{name: s, requirer: RootRequirer})
	}

	for len(queue) > 0 {
		last := len(queue) - 1
		item := queue[last]
		queue = queue[:last]

		if _, ok := b.Graph.Get(item.name); ok {
			b.Graph.AddRequirer(item.name, item.requirer)
			continue
		}

		node := b.Graph.AddRequirer(item.name, item.requirer)
		b.log().WithFields(logrus.Fields{"name": item.name, "requirer": item.requirer}).Debug("discovering package")

		rawVersions, err := b.Client.Versions(ctx, item.name)
		if err != nil {
			return fmt.Errorf("fetching versions for %s: %w", item.name, err)
		}
		versions := pkgversion.FilterAndSort(rawVersions)
		node.AllVersions = versionStrings(versions)

		version, err := b.selectInitialVersion(ctx, item.name, versions)
		if err != nil {
			return err
		}
		node.Version = version

		peers, err := b.Client.PeerDependencies(ctx, item.name, version)
		if err != nil {
			return fmt.Errorf("fetching peer dependencies for %s@%s: %w", item.name, version, err)
		}
		node.PeerDependencies = peers

		stale, err := b.computeStale(ctx, item.name)
		if err != nil {
			return fmt.Errorf("computing staleness for %s: %w", item.name, err)
		}
		node.Stale = stale

		// Peers are visited in lexicographic order (the teacher's own
		// comment on this point: "in lexicographic order of name, for
		// each dependency"), pushed onto the stack in reverse so the
		// first one in that order is the next one popped.
		peerNames := make([]string, 0, len(peers))
		for peer := range peers {
			peerNames = append(peerNames, peer)
		}
		sort.Strings(peerNames)
		for i := len(peerNames) - 1; i >= 0; i-- {
			queue = append(queue, worklistItem{name: peerNames[i], requirer: item.name})
		}
	}
	return nil
}

// selectInitialVersion implements the restriction policy: a pinned
// restriction wins outright if published, else the highest published
// version below the pin, else the newest version overall; with no
// restriction, dist-tags.latest.
func (b *Builder) selectInitialVersion(ctx context.Context, name string, versions []pkgversion.Version) (string, error) {
	if restriction, ok := b.Restrictions[name]; ok {
		return b.selectRestricted(ctx, name, restriction, versions)
	}

	tags, err := b.Client.DistTags(ctx, name)
	if err != nil {
		return "", fmt.Errorf("fetching dist-tags for %s: %w", name, err)
	}
	if latest, ok := tags["latest"]; ok && latest != "" {
		return latest, nil
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("no published versions for %s", name)
	}
	return versions[0].String(), nil
}

func (b *Builder) selectRestricted(_ context.Context, name, restriction string, versions []pkgversion.Version) (string, error) {
	for _, v := range versions {
		if v.String() == restriction {
			return restriction, nil
		}
	}
	if rv, ok := pkgversion.ParseVersion(restriction); ok {
		for _, v := range versions {
			if v.Less(rv) {
				return v.String(), nil
			}
		}
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("no published versions for %s to satisfy restriction %s", name, restriction)
	}
	return versions[0].String(), nil
}

// computeStale reports whether name's most recent publish timestamp is
// older than StaleThreshold, unless name is on the allow-list.
func (b *Builder) computeStale(ctx context.Context, name string) (bool, error) {
	if b.StaleAllowList[name] {
		return false, nil
	}
	times, err := b.Client.PublishTimes(ctx, name)
	if err != nil {
		return false, err
	}
	var latest time.Time
	for _, ts := range times {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		if t.After(latest) {
			latest = t
		}
	}
	if latest.IsZero() {
		return false, nil
	}
	return b.Now.Sub(latest) > b.StaleThreshold, nil
}

func (b *Builder) log() *logrus.Entry {
	if b.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return b.Log
}

func versionStrings(versions []pkgversion.Version) []string {
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.String()
	}
	return out
}
