package resolver

import (
	"context"
	"testing"

	"github.com/nodepm/peerresolve/internal/depgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairModeADowngradesOffendingDependency(t *testing.T) {
	// B is pinned too high (2.0.0) for A's ^1.0.0 demand; B also
	// publishes 1.9.0, which should satisfy it.
	reg := newFakeRegistry().add("b", packageFixture{
		versions: []string{"2.0.0", "1.9.0"},
		peers: map[string]map[string]string{
			"2.0.0": {},
			"1.9.0": {},
		},
	})
	g := depgraph.New()
	g.SetVersion("a", "1.0.0", map[string]string{"b": "^1.0.0"})
	g.SetVersion("b", "2.0.0", map[string]string{})
	bNode, _ := g.Get("b")
	bNode.AllVersions = []string{"2.0.0", "1.9.0"}

	report := Detect(g)
	require.NotNil(t, report)
	require.NotEmpty(t, report.GreaterThan)

	rp := &Repairer{Client: reg}
	require.NoError(t, rp.Repair(context.Background(), g, report))

	bNode, _ = g.Get("b")
	assert.Equal(t, "1.9.0", bNode.Version)
	assert.Nil(t, Detect(g), "graph should reach a fixed point")
}

func TestRepairModeBDowngradesComplainingPeer(t *testing.T) {
	// D sits at 0.5.0, below R's declared ">=1.0.0" floor on D — R must
	// give way instead of D (which cannot go any lower and help).
	reg := newFakeRegistry().add("r", packageFixture{
		versions: []string{"3.0.0", "2.0.0", "1.0.0"},
		peers: map[string]map[string]string{
			"3.0.0": {"d": ">=1.0.0"},
			"2.0.0": {"d": ">=0.0.0"},
			"1.0.0": {"d": ">=0.0.0"},
		},
	})
	g := depgraph.New()
	g.SetVersion("r", "3.0.0", map[string]string{"d": ">=1.0.0"})
	g.SetVersion("d", "0.5.0", map[string]string{})
	rNode, _ := g.Get("r")
	rNode.AllVersions = []string{"3.0.0", "2.0.0", "1.0.0"}

	report := Detect(g)
	require.NotNil(t, report)
	require.NotEmpty(t, report.Else)

	rp := &Repairer{Client: reg}
	require.NoError(t, rp.Repair(context.Background(), g, report))

	rNode, _ = g.Get("r")
	assert.Equal(t, "2.0.0", rNode.Version, "newest r version whose floor on d includes 0.5.0")
	assert.Nil(t, Detect(g))
}
