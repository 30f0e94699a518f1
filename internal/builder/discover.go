package builder

import (
	"bufio"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v6/plumbing/format/gitignore"
	"github.com/qobs-build/genmake/internal/msg"
)

// Discover returns every translation unit under fsys matched by layout.Sources,
// minus entry points (see isEntryPoint), excluded paths and (optionally) gitignored paths.
// Paths are slash-separated, relative to the root and sorted.
func Discover(fsys fs.FS, layout LayoutSection) ([]string, error) {
	var ignore gitignore.Matcher
	if layout.Gitignore {
		m, err := loadGitignore(fsys)
		if err != nil {
			return nil, err
		}
		ignore = m
	}

	seen := make(map[string]struct{})
	var sources []string

	for _, pat := range layout.Sources {
		matches, err := doublestar.Glob(fsys, pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("while globbing %q: %w", pat, err)
		}
		for _, match := range matches {
			match = cleanRel(match)
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}

			if isEntryPoint(match, layout.EntryPrefix) {
				msg.Trace("entry point %s", match)
				continue
			}
			excluded, err := matchesAny(layout.Exclude, match)
			if err != nil {
				return nil, err
			}
			if excluded {
				continue
			}
			if ignore != nil && ignore.Match(strings.Split(match, "/"), false) {
				msg.Trace("ignored %s", match)
				continue
			}

			msg.Trace("source %s", match)
			sources = append(sources, match)
		}
	}

	slices.Sort(sources)
	return sources, nil
}

// cleanRel normalizes a relative path: forward slashes, no leading "./"
func cleanRel(p string) string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "./")
}

// isEntryPoint matches main.cpp, main_loop.cpp or main-cli.cpp for the marker "main",
// but not maintenance.cpp
func isEntryPoint(p, marker string) bool {
	if marker == "" {
		return false
	}
	stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
	rest, ok := strings.CutPrefix(stem, marker)
	return ok && (rest == "" || strings.ContainsRune("_-.", rune(rest[0])))
}

func matchesAny(patterns []string, p string) (bool, error) {
	for _, pat := range patterns {
		ok, err := doublestar.Match(pat, p)
		if err != nil {
			return false, fmt.Errorf("bad exclude pattern %q: %w", pat, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// loadGitignore collects the patterns of every .gitignore in the tree, each scoped to its directory
func loadGitignore(fsys fs.FS) (gitignore.Matcher, error) {
	files, err := doublestar.Glob(fsys, "**/.gitignore", doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	slices.Sort(files)

	var patterns []gitignore.Pattern
	for _, file := range files {
		var domain []string
		if dir := path.Dir(file); dir != "." {
			domain = strings.Split(dir, "/")
		}

		f, err := fsys.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, domain))
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
	}

	return gitignore.NewMatcher(patterns), nil
}

// ListTargets returns the names of the immediate subdirectories of dir, sorted.
// A missing directory is not an error: the list only documents the preamble.
func ListTargets(fsys fs.FS, dir string) []string {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		msg.Warn("could not list targets in %s: %v", dir, err)
		return nil
	}

	var targets []string
	for _, entry := range entries {
		if entry.IsDir() {
			targets = append(targets, entry.Name())
		}
	}
	slices.Sort(targets)
	return targets
}

// IsTestSource reports whether src lives under the tests directory
func IsTestSource(src, testsDir string) bool {
	testsDir = strings.Trim(cleanRel(testsDir), "/")
	return testsDir != "" && testsDir != "." && strings.HasPrefix(cleanRel(src), testsDir+"/")
}
