// Package fileset discovers mapper files for the statement builder: it
// expands the glob patterns from a configuration's mappers list into a
// deterministic file list and reads the matched files back through the
// same tree, so loaders work identically over the OS filesystem and over
// in-memory fixtures.
package fileset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Resolver expands glob patterns against one filesystem tree. The zero
// value is unusable; construct with NewResolver or NewOSResolver.
type Resolver struct {
	fsys fs.FS
	join func(name string) string
	read func(path string) ([]byte, error)
}

// ErrNoPatterns reports a Resolve call with an empty pattern list.
var ErrNoPatterns = errors.New("fileset: no patterns provided")

// PatternError reports a glob pattern the matcher could not parse.
type PatternError struct {
	Pattern string
	Err     error
}

func (e PatternError) Error() string {
	return fmt.Sprintf("invalid glob pattern %q: %v", e.Pattern, e.Err)
}

func (e PatternError) Unwrap() error { return e.Err }

// NoMatchError lists the patterns that matched no files. A pattern that
// matches nothing is almost always a typo in the configuration, so it is
// surfaced as an error rather than silently loading fewer mappers.
type NoMatchError struct {
	Patterns []string
}

func (e NoMatchError) Error() string {
	return "patterns matched no files: " + strings.Join(e.Patterns, ", ")
}

// NewResolver resolves against fsys and returns match names unchanged.
// Pair it with testing/fstest.MapFS for in-memory mapper fixtures.
func NewResolver(fsys fs.FS) Resolver {
	return Resolver{
		fsys: fsys,
		join: func(name string) string { return name },
		read: func(path string) ([]byte, error) { return fs.ReadFile(fsys, path) },
	}
}

// NewOSResolver resolves against the OS filesystem rooted at base and
// returns absolute paths, so the resolved list stays valid however the
// process's working directory moves afterwards.
func NewOSResolver(base string) (Resolver, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return Resolver{}, fmt.Errorf("resolve base %q: %w", base, err)
	}
	info, err := os.Stat(absBase)
	if err != nil {
		return Resolver{}, fmt.Errorf("stat base %q: %w", absBase, err)
	}
	if !info.IsDir() {
		return Resolver{}, fmt.Errorf("base %q is not a directory", absBase)
	}

	return Resolver{
		fsys: os.DirFS(absBase),
		join: func(name string) string {
			if filepath.IsAbs(name) {
				return filepath.Clean(name)
			}
			return filepath.Join(absBase, filepath.FromSlash(name))
		},
		read: os.ReadFile,
	}, nil
}

// Resolve expands every pattern and returns the union of matches, sorted
// and de-duplicated. Patterns use fs.Glob syntax; OS-style separators are
// normalized first.
func (r Resolver) Resolve(patterns []string) ([]string, error) {
	if r.fsys == nil {
		return nil, errors.New("fileset: resolver has no filesystem")
	}
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	matched := make([]string, 0, len(patterns))
	missing := make([]string, 0)

	for _, pattern := range patterns {
		matches, err := fs.Glob(r.fsys, filepath.ToSlash(pattern))
		if err != nil {
			return nil, PatternError{Pattern: pattern, Err: err}
		}
		if len(matches) == 0 {
			missing = append(missing, pattern)
			continue
		}
		for _, match := range matches {
			matched = append(matched, r.join(match))
		}
	}
	if len(missing) > 0 {
		return nil, NoMatchError{Patterns: missing}
	}

	slices.Sort(matched)
	return slices.Compact(matched), nil
}

// ReadFile reads one path previously returned by Resolve through the
// resolver's own tree, so callers never mix fs.FS names with OS paths.
func (r Resolver) ReadFile(path string) ([]byte, error) {
	if r.read == nil {
		return nil, errors.New("fileset: resolver has no filesystem")
	}
	return r.read(path)
}
