package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nodepm/peerresolve/internal/depgraph"
)

// sibling returns a path alongside m.Path named suffix (e.g. a backup file
// next to package.json becomes package.json.bak in the same directory).
func (m *Manifest) sibling(suffix string) string {
	return filepath.Join(filepath.Dir(m.Path), suffix)
}

// Backup writes a copy of the manifest's current on-disk bytes to
// "<name>.bak" in the manifest's directory, once, before any resolution
// starts.
func (m *Manifest) Backup() error {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return fmt.Errorf("reading manifest for backup: %w", err)
	}
	backupPath := m.sibling(filepath.Base(m.Path) + ".bak")
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return fmt.Errorf("writing backup %s: %w", backupPath, err)
	}
	return nil
}

// peerMetaEntry is one node's sidecar peer-metadata record: everything
// about a resolved node except its full published-versions list, which
// would bloat the sidecar file for no benefit to a human reading it.
type peerMetaEntry struct {
	Version          string            `json:"version"`
	PeerDependencies map[string]string `json:"peerDependencies"`
	RequiredBy       []string          `json:"required_by"`
	Stale            bool              `json:"stale"`
}

// WriteVersionMap writes the resolved name -> version map to
// "resolved-versions.json" alongside the manifest.
func WriteVersionMap(dir string, versions map[string]string) error {
	return writeJSON(filepath.Join(dir, "resolved-versions.json"), versions)
}

// WritePeerMeta writes the resolved peer metadata (peers, required_by,
// stale — omitting the versions list) to "resolved-peers.json" alongside
// the manifest.
func WritePeerMeta(dir string, nodes map[string]*depgraph.Node) error {
	out := make(map[string]peerMetaEntry, len(nodes))
	for name, n := range nodes {
		requiredBy := make([]string, 0, len(n.RequiredBy))
		for r := range n.RequiredBy {
			requiredBy = append(requiredBy, r)
		}
		out[name] = peerMetaEntry{
			Version:          n.Version,
			PeerDependencies: n.PeerDependencies,
			RequiredBy:       requiredBy,
			Stale:            n.Stale,
		}
	}
	return writeJSON(filepath.Join(dir, "resolved-peers.json"), out)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
