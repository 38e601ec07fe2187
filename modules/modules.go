// Package modules loads imported Flowby programs for the interpreter.
//
// The interpreter never touches the filesystem; it asks a Resolver for the
// parsed program behind an import path. FileResolver is the standard
// filesystem implementation and Cache adds process-wide memoization with
// per-path serialization.
package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/flowby-lang/flowby/ast"
	"github.com/flowby-lang/flowby/lexer"
	"github.com/flowby-lang/flowby/parser"
)

// Resolver turns an import path into a parsed program. fromPath is the path
// of the importing file, empty for in-memory sources.
type Resolver interface {
	Resolve(path, fromPath string) (*ast.Program, error)
}

// NotFoundError reports an import path that does not map to a source file.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module %q not found", e.Path)
}

// SourceError reports that a module's source failed to lex or parse. All
// collected diagnostics ride along so hosts can report the full batch.
type SourceError struct {
	Path   string
	Phase  string // "lex" or "parse"
	Errors []error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("module %q: %d %s error(s), first: %v",
		e.Path, len(e.Errors), e.Phase, e.Errors[0])
}

// FileResolver loads modules from the filesystem. Import paths resolve
// relative to the importing file's directory; Root anchors imports coming
// from in-memory sources. A path without an extension gets ".flow" appended.
type FileResolver struct {
	Root string
}

// NewFileResolver creates a resolver anchored at root. An empty root means
// the process working directory.
func NewFileResolver(root string) *FileResolver {
	return &FileResolver{Root: root}
}

func (r *FileResolver) Resolve(path, fromPath string) (*ast.Program, error) {
	full := r.locate(path, fromPath)

	src, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("reading module %q: %w", path, err)
	}

	toks, lexErrs := lexer.Tokenize(string(src))
	if len(lexErrs) > 0 {
		return nil, &SourceError{Path: full, Phase: "lex", Errors: asErrors(lexErrs)}
	}
	prog, parseErrs := parser.Parse(toks)
	if len(parseErrs) > 0 {
		return nil, &SourceError{Path: full, Phase: "parse", Errors: asErrors(parseErrs)}
	}
	prog.Path = full
	return prog, nil
}

func (r *FileResolver) locate(path, fromPath string) string {
	if filepath.Ext(path) == "" {
		path += ".flow"
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	base := r.Root
	if fromPath != "" {
		base = filepath.Dir(fromPath)
	}
	return filepath.Clean(filepath.Join(base, path))
}

func asErrors[E error](errs []E) []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// cacheEntry memoizes one resolution. The sync.Once serializes concurrent
// first loads of the same path; later callers share the stored result.
type cacheEntry struct {
	once sync.Once
	prog *ast.Program
	err  error
}

// Cache is an append-only, process-safe memoizing Resolver. Entries are never
// evicted or replaced; a source edit needs a fresh Cache.
type Cache struct {
	inner Resolver

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// NewCache wraps inner with memoization.
func NewCache(inner Resolver) *Cache {
	return &Cache{inner: inner, entries: map[string]*cacheEntry{}}
}

func (c *Cache) Resolve(path, fromPath string) (*ast.Program, error) {
	key := cacheKey(path, fromPath)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &cacheEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.prog, entry.err = c.inner.Resolve(path, fromPath)
	})
	return entry.prog, entry.err
}

// cacheKey folds the importing directory into the key, since relative paths
// resolve differently per importer.
func cacheKey(path, fromPath string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Dir(fromPath) + "\x00" + strings.TrimSpace(path)
}
