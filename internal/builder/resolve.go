package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"sync"

	"github.com/qobs-build/genmake/internal/msg"
)

var (
	angleIncludeRegex = regexp.MustCompile(`^\s*#\s*include\s*<\s*([^<>\s]+)\s*>`)
	quoteIncludeRegex = regexp.MustCompile(`^\s*#\s*include\s*"\s*([^"\s]+)\s*"`)
)

// ReadError is returned when a file taking part in resolution exists but can't be read.
// It aborts the whole generation.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// DependencySet is the set of headers a translation unit transitively includes
type DependencySet map[string]struct{}

// Sorted returns the members in lexical order
func (d DependencySet) Sorted() []string {
	out := make([]string, 0, len(d))
	for h := range d {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

func (d DependencySet) Has(header string) bool {
	_, ok := d[header]
	return ok
}

// Resolver turns include tokens into project headers by searching include roots in order.
// Parsed include lists are cached per file, so a Resolver can be shared between goroutines
// scanning different sources of the same run.
type Resolver struct {
	fsys   fs.FS
	roots  []string
	quoted bool

	mu       sync.Mutex
	includes map[string][]string // file -> include tokens, in order of appearance
}

func NewResolver(fsys fs.FS, includeDirs []string, quoted bool) *Resolver {
	roots := make([]string, 0, len(includeDirs))
	for _, dir := range includeDirs {
		roots = append(roots, cleanRel(dir))
	}
	return &Resolver{
		fsys:     fsys,
		roots:    roots,
		quoted:   quoted,
		includes: make(map[string][]string),
	}
}

// Lookup resolves a single include token. The first root containing a regular file wins.
func (r *Resolver) Lookup(token string) (string, bool) {
	for _, root := range r.roots {
		candidate := path.Join(root, token)
		if !fs.ValidPath(candidate) || !isUnder(candidate, root) {
			continue
		}
		info, err := fs.Stat(r.fsys, candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

func isUnder(p, root string) bool {
	if root == "." {
		return true
	}
	return len(p) > len(root) && p[:len(root)] == root && p[len(root)] == '/'
}

// Resolve returns the transitive closure of project headers included by src.
//
// Headers are visited at most once per call: the visited set is shared by the
// whole traversal, not per recursion frame, so self-includes and mutual
// inclusion cycles of any length terminate.
func (r *Resolver) Resolve(src string) (DependencySet, error) {
	msg.Trace("resolve %s", src)

	deps := make(DependencySet)
	stack := []string{src}

	for len(stack) > 0 {
		file := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		tokens, err := r.scan(file)
		if err != nil {
			return nil, err
		}

		// push in reverse so files are expanded in include order
		for i := len(tokens) - 1; i >= 0; i-- {
			header, ok := r.Lookup(tokens[i])
			if !ok || deps.Has(header) || header == src {
				continue
			}
			deps[header] = struct{}{}
			stack = append(stack, header)
		}
	}

	return deps, nil
}

// scan returns the include tokens of a file, reading it at most once per Resolver
func (r *Resolver) scan(file string) ([]string, error) {
	r.mu.Lock()
	tokens, ok := r.includes[file]
	r.mu.Unlock()
	if ok {
		return tokens, nil
	}

	tokens, err := r.parseIncludes(file)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.includes[file] = tokens
	r.mu.Unlock()
	return tokens, nil
}

func (r *Resolver) parseIncludes(file string) ([]string, error) {
	f, err := r.fsys.Open(file)
	if err != nil {
		return nil, &ReadError{Path: file, Err: err}
	}
	defer f.Close()

	var tokens []string
	rd := bufio.NewReaderSize(f, 64*1024)
	for {
		line, isPrefix, err := rd.ReadLine()
		if errors.Is(err, io.EOF) {
			return tokens, nil
		}
		if err != nil {
			return nil, &ReadError{Path: file, Err: err}
		}
		if token, ok := r.matchInclude(line); ok {
			tokens = append(tokens, token)
		}
		// only the head of an overlong line can hold a directive
		for isPrefix && err == nil {
			_, isPrefix, err = rd.ReadLine()
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, &ReadError{Path: file, Err: err}
		}
	}
}

func (r *Resolver) matchInclude(line []byte) (string, bool) {
	if m := angleIncludeRegex.FindSubmatch(line); m != nil {
		return string(m[1]), true
	}
	if r.quoted {
		if m := quoteIncludeRegex.FindSubmatch(line); m != nil {
			return string(m[1]), true
		}
	}
	return "", false
}
