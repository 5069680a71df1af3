package resolver

import (
	"context"
	"fmt"
)

// packageFixture describes one package's registry-visible state for tests.
type packageFixture struct {
	versions []string
	latest   string
	// peers maps version -> (peer name -> range expression).
	peers map[string]map[string]string
	// publishedAt maps version -> RFC3339 timestamp.
	publishedAt map[string]string
}

// fakeRegistry is an in-memory Registry backed by a fixed set of fixtures,
// used in place of a real npm subprocess + cache for resolver tests.
type fakeRegistry struct {
	packages map[string]packageFixture
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{packages: map[string]packageFixture{}}
}

func (f *fakeRegistry) add(name string, fx packageFixture) *fakeRegistry {
	f.packages[name] = fx
	return f
}

func (f *fakeRegistry) Versions(_ context.Context, name string) ([]string, error) {
	fx, ok := f.packages[name]
	if !ok {
		return nil, fmt.Errorf("fakeRegistry: unknown package %s", name)
	}
	return fx.versions, nil
}

func (f *fakeRegistry) DistTags(_ context.Context, name string) (map[string]string, error) {
	fx, ok := f.packages[name]
	if !ok {
		return nil, fmt.Errorf("fakeRegistry: unknown package %s", name)
	}
	return map[string]string{"latest": fx.latest}, nil
}

func (f *fakeRegistry) PeerDependencies(_ context.Context, name, version string) (map[string]string, error) {
	fx, ok := f.packages[name]
	if !ok {
		return nil, fmt.Errorf("fakeRegistry: unknown package %s", name)
	}
	return fx.peers[version], nil
}

func (f *fakeRegistry) PublishTimes(_ context.Context, name string) (map[string]string, error) {
	fx, ok := f.packages[name]
	if !ok {
		return nil, fmt.Errorf("fakeRegistry: unknown package %s", name)
	}
	return fx.publishedAt, nil
}
