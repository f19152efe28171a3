// Package manifest parses Homebrew bundle manifests into catalog
// candidates. Parsing is line-oriented: each package type has one regex,
// blank lines and comments are skipped, and anything that does not match
// is ignored rather than rejected, since Brewfiles routinely carry options
// and directives the catalog does not track.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

// ErrNoManifests indicates that neither typed manifests nor a plain
// Brewfile could be found.
var ErrNoManifests = errors.New("manifest: no manifest files found")

// linePatterns matches one manifest entry per package type. The mas
// pattern also captures the App Store identifier.
var linePatterns = map[types.PackageType]*regexp.Regexp{
	types.TypeBrew: regexp.MustCompile(`^\s*brew\s+["']([^"']+)["']`),
	types.TypeCask: regexp.MustCompile(`^\s*cask\s+["']([^"']+)["']`),
	types.TypeMAS:  regexp.MustCompile(`^\s*mas\s+["']([^"']+)["']\s*,\s*id:\s*(\d+)`),
	types.TypeTap:  regexp.MustCompile(`^\s*tap\s+["']([^"']+)["']`),
}

// Parse extracts candidates of one type from a manifest stream.
// Names are deduplicated case-insensitively, first occurrence wins.
func Parse(r io.Reader, typ types.PackageType) ([]types.Candidate, error) {
	pattern, ok := linePatterns[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidType, typ)
	}

	var cands []types.Candidate
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		m := pattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}

		name := m[1]
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		cand := types.Candidate{Name: name, Type: typ}
		if typ == types.TypeMAS {
			cand.ExternalID = m[2]
		}
		cands = append(cands, cand)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cands, nil
}

// ParseFile extracts candidates of one type from a manifest file. The
// open error is returned unwrapped so callers can distinguish a vanished
// source from a malformed one.
func ParseFile(path string, typ types.PackageType) ([]types.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cands, err := Parse(f, typ)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return cands, nil
}

// Sources maps each package type to the manifest file parsed for it.
// Several types may share one file.
type Sources map[types.PackageType]string

// Paths returns the unique manifest paths in sorted order. These are the
// files the change-detection cycle fingerprints.
func (s Sources) Paths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, p := range s {
		if seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Detect discovers manifest files under dir. Typed manifests
// (Brewfile.Brew, Brewfile.brew, Brewfile.BREW and so on per type) take
// precedence; when any typed manifest exists a plain Brewfile is ignored.
// With no typed manifests, a single Brewfile serves all four types.
func Detect(dir string) (Sources, error) {
	sources := Sources{}

	for _, typ := range types.AllTypes() {
		if path, ok := detectTyped(dir, typ); ok {
			sources[typ] = path
		}
	}
	if len(sources) > 0 {
		return sources, nil
	}

	single := filepath.Join(dir, "Brewfile")
	if _, err := os.Stat(single); err == nil {
		for _, typ := range types.AllTypes() {
			sources[typ] = single
		}
		return sources, nil
	}

	return nil, fmt.Errorf("%w in %s", ErrNoManifests, dir)
}

func detectTyped(dir string, typ types.PackageType) (string, bool) {
	name := string(typ)
	for _, suffix := range []string{
		strings.ToUpper(name[:1]) + name[1:],
		name,
		strings.ToUpper(name),
	} {
		path := filepath.Join(dir, "Brewfile."+suffix)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Resolve determines the manifest file for each type, preferring explicit
// per-type configuration and falling back to detection under the manifest
// dir. At least one source must exist.
func Resolve(cfg *config.Config) (Sources, error) {
	explicit := map[types.PackageType]string{
		types.TypeBrew: cfg.Manifests.Brew,
		types.TypeCask: cfg.Manifests.Cask,
		types.TypeMAS:  cfg.Manifests.Mas,
		types.TypeTap:  cfg.Manifests.Tap,
	}

	// Detection failure only matters if explicit paths don't cover us.
	detected, _ := Detect(cfg.Manifests.Dir)

	sources := Sources{}
	for _, typ := range types.AllTypes() {
		if p := explicit[typ]; p != "" {
			sources[typ] = p
			continue
		}
		if p, ok := detected[typ]; ok {
			sources[typ] = p
		}
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoManifests, cfg.Manifests.Dir)
	}

	return sources, nil
}
