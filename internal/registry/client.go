// Package registry wraps the npm registry lookups the resolver needs behind
// a subprocess boundary (os/exec against the npm CLI) with a persistent
// on-disk cache in front of it, so repeated resolver passes over the same
// graph never re-issue a network call for a coordinate already seen.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Runner executes a single npm CLI invocation and returns its raw stdout.
// The production implementation shells out; tests supply a fake.
type Runner interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

// ExecRunner runs the configured command (normally "npm") as a subprocess.
type ExecRunner struct {
	Command string
}

// NewExecRunner returns an ExecRunner invoking the given command, defaulting
// to "npm" when empty.
func NewExecRunner(command string) ExecRunner {
	if command == "" {
		command = "npm"
	}
	return ExecRunner{Command: command}
}

func (r ExecRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w (%s)", r.Command, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Client answers registry queries (published versions, peer dependencies,
// publish timestamps) for a package coordinate, caching every query it
// issues.
type Client struct {
	Runner Runner
	Cache  *Cache
	Log    *logrus.Entry
}

// NewClient builds a Client around runner, memoizing results in cache. log
// may be nil, in which case a disabled logger is used.
func NewClient(runner Runner, cache *Cache, log *logrus.Entry) *Client {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Client{Runner: runner, Cache: cache, Log: log}
}

// cacheKey mirrors the original tool's cache key: the full command line
// that would have been shelled out, verb/coordinate/field space-joined.
func cacheKey(verb, coordinate, field string) string {
	return strings.Join([]string{verb, coordinate, field, "--json"}, " ")
}

// query runs (or retrieves from cache) `npm <verb> <coordinate> <field>
// --json` and unmarshals the result into out.
func (c *Client) query(ctx context.Context, verb, coordinate, field string, out interface{}) error {
	key := cacheKey(verb, coordinate, field)
	if raw, ok, err := c.Cache.Get(key); err != nil {
		return err
	} else if ok {
		c.Log.WithField("key", key).Debug("registry cache hit")
		return json.Unmarshal(raw, out)
	}

	c.Log.WithField("key", key).Debug("registry cache miss, querying")
	raw, err := c.Runner.Run(ctx, []string{verb, coordinate, field, "--json"})
	if err != nil {
		return fmt.Errorf("querying %s %s %s: %w", verb, coordinate, field, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("null")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parsing response for %s %s %s: %w", verb, coordinate, field, err)
	}
	if err := c.Cache.Put(key, json.RawMessage(raw)); err != nil {
		return err
	}
	return nil
}

// Versions returns every published version literal for name, unfiltered
// (the caller is expected to run pkgversion.FilterAndSort over the result).
func (c *Client) Versions(ctx context.Context, name string) ([]string, error) {
	var versions []string
	if err := c.query(ctx, "info", name, "versions", &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// DistTags returns the dist-tags map (e.g. {"latest": "3.1.0"}) for name.
func (c *Client) DistTags(ctx context.Context, name string) (map[string]string, error) {
	var tags map[string]string
	if err := c.query(ctx, "view", name, "dist-tags", &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// peerManifest is the slice of package.json that carries peer dependency
// declarations for a single published version.
type peerManifest struct {
	PeerDependencies     map[string]string `json:"peerDependencies"`
	PeerDependenciesMeta map[string]struct {
		Optional bool `json:"optional"`
	} `json:"peerDependenciesMeta"`
}

// PeerDependencies returns the non-optional peer dependency range
// expressions declared by name@version. Peers marked optional in
// peerDependenciesMeta are dropped.
func (c *Client) PeerDependencies(ctx context.Context, name, version string) (map[string]string, error) {
	coordinate := fmt.Sprintf("%s@%s", name, version)
	var m peerManifest
	if err := c.query(ctx, "info", coordinate, "peerDependencies", &m.PeerDependencies); err != nil {
		return nil, err
	}
	if err := c.query(ctx, "info", coordinate, "peerDependenciesMeta", &m.PeerDependenciesMeta); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m.PeerDependencies))
	for peer, rng := range m.PeerDependencies {
		if meta, ok := m.PeerDependenciesMeta[peer]; ok && meta.Optional {
			continue
		}
		out[peer] = rng
	}
	return out, nil
}

// PublishTimes returns the version -> publish-timestamp map for name, with
// the non-version "created"/"modified" bookkeeping keys npm's `time` field
// carries alongside the real entries stripped out.
func (c *Client) PublishTimes(ctx context.Context, name string) (map[string]string, error) {
	var times map[string]string
	if err := c.query(ctx, "info", name, "time", &times); err != nil {
		return nil, err
	}
	delete(times, "created")
	delete(times, "modified")
	return times, nil
}
