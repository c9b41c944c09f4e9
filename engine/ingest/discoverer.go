package ingest

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/compozy/catalog/engine/core"
)

const (
	ErrCodeInvalidPattern = "INVALID_PATTERN"
	ErrCodePathEscape     = "PATH_ESCAPE_ATTEMPT"
)

// FileDiscoverer finds descriptor files under a root directory.
type FileDiscoverer interface {
	Discover(includes, excludes []string) ([]string, error)
}

type fsDiscoverer struct {
	root string
}

func NewFileDiscoverer(root string) FileDiscoverer {
	return &fsDiscoverer{root: root}
}

// Discover returns the files matching any include pattern and no exclude
// pattern, sorted and without duplicates. Default excludes always apply.
func (d *fsDiscoverer) Discover(includes, excludes []string) ([]string, error) {
	if len(includes) == 0 {
		return []string{}, nil
	}
	seen := make(map[string]struct{})
	for _, pattern := range includes {
		if err := validatePattern(pattern); err != nil {
			return nil, err
		}
		// doublestar does not follow symlinks
		matches, err := doublestar.FilepathGlob(filepath.Join(d.root, pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, core.NewError(
				fmt.Errorf("invalid glob pattern %q: %w", pattern, err),
				ErrCodeInvalidPattern,
				map[string]any{"pattern": pattern},
			)
		}
		for _, match := range matches {
			rel, err := filepath.Rel(d.root, match)
			if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
				return nil, core.NewError(nil, ErrCodePathEscape, map[string]any{
					"file": match,
					"root": d.root,
				})
			}
			seen[match] = struct{}{}
		}
	}
	files := make([]string, 0, len(seen))
	for file := range seen {
		if !d.excluded(file, excludes) {
			files = append(files, file)
		}
	}
	slices.Sort(files)
	return files, nil
}

func validatePattern(pattern string) error {
	clean := filepath.Clean(pattern)
	if filepath.IsAbs(clean) {
		return core.NewError(
			fmt.Errorf("absolute paths not allowed: %s", pattern),
			ErrCodeInvalidPattern,
			map[string]any{"pattern": pattern},
		)
	}
	if slices.Contains(strings.Split(filepath.ToSlash(clean), "/"), "..") {
		return core.NewError(
			fmt.Errorf("parent directory references not allowed: %s", pattern),
			ErrCodeInvalidPattern,
			map[string]any{"pattern": pattern},
		)
	}
	return nil
}

func (d *fsDiscoverer) excluded(file string, excludes []string) bool {
	rel, err := filepath.Rel(d.root, file)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(file)
	for _, pattern := range slices.Concat(DefaultExcludes, excludes) {
		pattern = filepath.ToSlash(pattern)
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
