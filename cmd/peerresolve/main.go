// Command peerresolve finds an npm package manifest in the working tree,
// resolves its peer-dependency closure, and writes the resolved versions
// back, matching spec.md §6's CLI surface: enumerate, select, resolve,
// confirm-overwrite, confirm-cleanup.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nodepm/peerresolve/internal/cli"
	"github.com/nodepm/peerresolve/internal/config"
	"github.com/nodepm/peerresolve/internal/depgraph"
	"github.com/nodepm/peerresolve/internal/discover"
	"github.com/nodepm/peerresolve/internal/manifest"
	"github.com/nodepm/peerresolve/internal/registry"
	"github.com/nodepm/peerresolve/internal/resolver"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		root      string
		cacheFile string
	)

	cmd := &cobra.Command{
		Use:   "peerresolve",
		Short: "Resolve npm peer-dependency closures without installing packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), root, cacheFile, cmd.Flags())
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "directory to search for package manifests")
	cmd.Flags().StringVar(&cacheFile, "cache", ".peerresolve-cache.json", "path to the registry response cache")
	cmd.Flags().String("registry.command", "", "registry CLI command to invoke (overrides config)")

	return cmd
}

func run(ctx context.Context, root, cacheFile string, flags *pflag.FlagSet) error {
	log := logrus.New()
	entry := logrus.NewEntry(log)
	shell := cli.NewShell(os.Stdout)

	cfg, err := config.Load([]string{root, "."}, flags)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	paths, err := discover.Manifests(root)
	if err != nil {
		return fmt.Errorf("discovering manifests: %w", err)
	}

	picked, err := shell.SelectManifest(paths)
	if err != nil {
		if err == cli.ErrUserExit {
			return nil
		}
		return err
	}

	m, err := manifest.Load(picked)
	if err != nil {
		return err
	}
	if err := m.Backup(); err != nil {
		return err
	}

	cache := registry.NewCache(cacheFile)
	runner := registry.NewExecRunner(cfg.RegistryCommand)
	client := registry.NewClient(runner, cache, entry)

	builder := &resolver.Builder{
		Client:         client,
		Graph:          depgraph.New(),
		Restrictions:   m.Restrictions,
		StaleThreshold: cfg.StaleThreshold(),
		StaleAllowList: cfg.AllowListSet(),
		Now:            time.Now(),
		Log:            entry,
	}
	driver := &resolver.Driver{
		Builder:  builder,
		Repairer: &resolver.Repairer{Client: client, Log: entry},
		Log:      entry,
	}

	result, err := driver.Run(ctx, m.DirectDependencies())
	if err != nil {
		shell.Failure("resolution failed: %v", err)
		return err
	}

	for _, name := range result.AddedBeyond {
		shell.Notice("added peer dependency beyond the manifest: %s@%s", name, result.Versions[name])
	}
	for _, name := range result.StaleNames {
		shell.Notice("dependency %s has not published in over the configured threshold", name)
	}
	shell.Success("resolved %d packages", len(result.Versions))

	overwrite, err := shell.ConfirmOverwrite(picked)
	if err != nil {
		return err
	}
	if !overwrite {
		return nil
	}

	m.ApplyResolved(result.Versions)
	if err := m.Write(); err != nil {
		return err
	}

	dir := filepath.Dir(picked)
	if err := manifest.WriteVersionMap(dir, result.Versions); err != nil {
		return err
	}
	if err := manifest.WritePeerMeta(dir, result.PeerMeta); err != nil {
		return err
	}

	cleanup, err := shell.ConfirmCleanup()
	if err != nil {
		return err
	}
	if cleanup {
		os.Remove(picked + ".bak")
		os.Remove(filepath.Join(dir, "resolved-versions.json"))
		os.Remove(filepath.Join(dir, "resolved-peers.json"))
	}

	return nil
}
