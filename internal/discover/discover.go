// Package discover walks a working tree looking for package manifests,
// skipping the well-known build and VCS directories that would otherwise
// bury the search in noise (node_modules especially, which can hold
// thousands of nested manifests).
package discover

import (
	"os"
	"path/filepath"
)

// ManifestName is the file name this tool treats as a package manifest.
const ManifestName = "package.json"

// skipDirs are pruned entirely rather than merely ignored, so the walk
// never descends into them.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"vendor":       true,
}

// Manifests returns every ManifestName file under root, skipping build/VCS
// directories, in lexical walk order.
func Manifests(root string) ([]string, error) {
	var found []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == ManifestName {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
