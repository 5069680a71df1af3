package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nodepm/peerresolve/internal/depgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriver(reg Registry, now time.Time) *Driver {
	g := depgraph.New()
	b := &Builder{
		Client:         reg,
		Graph:          g,
		Restrictions:   map[string]string{},
		StaleThreshold: 365 * 24 * time.Hour,
		StaleAllowList: map[string]bool{},
		Now:            now,
	}
	return &Driver{
		Builder:       b,
		Repairer:      &Repairer{Client: reg},
		MaxIterations: 100,
	}
}

func TestDriverTrivialScenario(t *testing.T) {
	reg := newFakeRegistry().add("a", packageFixture{
		versions: []string{"1.2.0"}, latest: "1.2.0",
		peers:       map[string]map[string]string{"1.2.0": {}},
		publishedAt: map[string]string{"1.2.0": "2025-06-01T00:00:00Z"},
	})
	d := newDriver(reg, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	result, err := d.Run(context.Background(), []string{"a"})
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]string{"a": "1.2.0"}, result.Versions); diff != "" {
		t.Errorf("resolved versions mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, result.AddedBeyond)
	assert.Empty(t, result.StaleNames)
}

func TestDriverSimplePeerScenario(t *testing.T) {
	reg := newFakeRegistry().
		add("a", packageFixture{
			versions: []string{"1.0.0"}, latest: "1.0.0",
			peers:       map[string]map[string]string{"1.0.0": {"b": "^1.0.0"}},
			publishedAt: map[string]string{"1.0.0": "2025-06-01T00:00:00Z"},
		}).
		add("b", packageFixture{
			versions: []string{"1.5.0"}, latest: "1.5.0",
			peers:       map[string]map[string]string{"1.5.0": {}},
			publishedAt: map[string]string{"1.5.0": "2025-06-01T00:00:00Z"},
		})
	d := newDriver(reg, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	result, err := d.Run(context.Background(), []string{"a"})
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]string{"a": "1.0.0", "b": "1.5.0"}, result.Versions); diff != "" {
		t.Errorf("resolved versions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"b"}, result.AddedBeyond)
	bNode := result.PeerMeta["b"]
	assert.True(t, bNode.RequiredBy["a"])
}

func TestDriverDowngradeDependencyScenario(t *testing.T) {
	reg := newFakeRegistry().
		add("a", packageFixture{
			versions: []string{"1.0.0"}, latest: "1.0.0",
			peers:       map[string]map[string]string{"1.0.0": {"b": "^1.0.0"}},
			publishedAt: map[string]string{"1.0.0": "2025-06-01T00:00:00Z"},
		}).
		add("b", packageFixture{
			versions: []string{"2.0.0", "1.9.0"}, latest: "2.0.0",
			peers: map[string]map[string]string{
				"2.0.0": {},
				"1.9.0": {},
			},
			publishedAt: map[string]string{"2.0.0": "2025-06-01T00:00:00Z", "1.9.0": "2024-01-01T00:00:00Z"},
		})
	d := newDriver(reg, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	result, err := d.Run(context.Background(), []string{"a"})
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]string{"a": "1.0.0", "b": "1.9.0"}, result.Versions); diff != "" {
		t.Errorf("resolved versions mismatch (-want +got):\n%s", diff)
	}
}

func TestDriverStaleSkipScenario(t *testing.T) {
	// L is stale and peer-incompatible with A's demand; the violation
	// must never surface because the detector skips stale nodes.
	reg := newFakeRegistry().
		add("a", packageFixture{
			versions: []string{"1.0.0"}, latest: "1.0.0",
			peers:       map[string]map[string]string{"1.0.0": {"l": "^2.0.0"}},
			publishedAt: map[string]string{"1.0.0": "2025-06-01T00:00:00Z"},
		}).
		add("l", packageFixture{
			versions: []string{"1.0.0"}, latest: "1.0.0",
			peers:       map[string]map[string]string{"1.0.0": {}},
			publishedAt: map[string]string{"1.0.0": "2024-01-01T00:00:00Z"},
		})
	d := newDriver(reg, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	result, err := d.Run(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", result.Versions["l"])
	assert.Contains(t, result.StaleNames, "l")
}
