// Package manifest reads and writes the JSON package manifest: a schemaless
// top-level object whose dependency sections are detected by a substring
// match on the lowercased key, converted into typed DependencySection
// values as early as possible and kept dynamic everywhere else, per the
// dynamic-then-typed boundary the rest of this module follows.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// DependencySection is one dependency map (e.g. "dependencies",
// "devDependencies", "peerDependencies") as declared in the manifest.
type DependencySection map[string]string

// Manifest is a parsed package manifest. Raw holds every top-level key
// exactly as read so write-back never drops fields this module doesn't
// understand; Sections and Restrictions are the typed views used by the
// resolver.
type Manifest struct {
	Path    string
	Raw     map[string]json.RawMessage
	// Sections maps a top-level key (e.g. "dependencies") to its parsed
	// DependencySection, for every key whose lowercased name contains
	// "dependencies".
	Sections map[string]DependencySection
	// Restrictions is the parsed latestVersionRestrictions map, if present.
	Restrictions map[string]string
}

const restrictionsKey = "latestVersionRestrictions"

// DefaultSection is where a newly resolved name is inserted if it is not
// already present in any existing section.
const DefaultSection = "dependencies"

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	m := &Manifest{
		Path:     path,
		Raw:      raw,
		Sections: map[string]DependencySection{},
	}
	for key, value := range raw {
		if key == restrictionsKey {
			var restrictions map[string]string
			if err := json.Unmarshal(value, &restrictions); err != nil {
				return nil, fmt.Errorf("parsing %s in %s: %w", restrictionsKey, path, err)
			}
			m.Restrictions = restrictions
			continue
		}
		if !strings.Contains(strings.ToLower(key), "dependencies") {
			continue
		}
		var section DependencySection
		if err := json.Unmarshal(value, &section); err != nil {
			return nil, fmt.Errorf("parsing section %s in %s: %w", key, path, err)
		}
		m.Sections[key] = section
	}
	return m, nil
}

// DirectDependencies returns the union of every dependency-section name,
// sorted for deterministic traversal.
func (m *Manifest) DirectDependencies() []string {
	seen := map[string]bool{}
	for _, section := range m.Sections {
		for name := range section {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyResolved merges resolved (name -> version) into the manifest's
// existing sections: a name already present in some section has that
// section's entry overwritten in place; a name not present anywhere is
// inserted into DefaultSection, creating it if necessary.
func (m *Manifest) ApplyResolved(resolved map[string]string) {
	for name, version := range resolved {
		section := m.sectionContaining(name)
		if section == "" {
			section = DefaultSection
			if m.Sections[section] == nil {
				m.Sections[section] = DependencySection{}
			}
		}
		m.Sections[section][name] = version
	}
}

func (m *Manifest) sectionContaining(name string) string {
	for key, section := range m.Sections {
		if _, ok := section[name]; ok {
			return key
		}
	}
	return ""
}

// Write serializes the manifest back to Path, four-space indented,
// reflecting every mutation made via ApplyResolved.
func (m *Manifest) Write() error {
	for key, section := range m.Sections {
		encoded, err := json.Marshal(section)
		if err != nil {
			return fmt.Errorf("encoding section %s: %w", key, err)
		}
		m.Raw[key] = encoded
	}
	out, err := json.MarshalIndent(m.Raw, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(m.Path, out, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", m.Path, err)
	}
	return nil
}
