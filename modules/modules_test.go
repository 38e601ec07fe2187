package modules

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowby-lang/flowby/ast"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileResolverRelativeToImporter(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "app/main.flow", "let x = 1\n")
	writeFile(t, dir, "app/lib/auth.flow", "let user = \"ada\"\n")

	r := NewFileResolver(dir)
	prog, err := r.Resolve("lib/auth", main)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 1)
	assert.Equal(t, filepath.Join(dir, "app/lib/auth.flow"), prog.Path)
}

func TestFileResolverRootFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.flow", "let a = 1\n")

	r := NewFileResolver(dir)
	prog, err := r.Resolve("util", "")
	require.NoError(t, err)
	assert.NotNil(t, prog)
}

func TestFileResolverKeepsExplicitExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.flow", "let a = 1\n")

	r := NewFileResolver(dir)
	_, err := r.Resolve("util.flow", "")
	require.NoError(t, err)
}

func TestNotFound(t *testing.T) {
	r := NewFileResolver(t.TempDir())
	_, err := r.Resolve("nope", "")

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nope", nf.Path)
}

func TestSourceErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.flow", "let = 1\nlet x 2\n")

	r := NewFileResolver(dir)
	_, err := r.Resolve("bad", "")

	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "parse", se.Phase)
	assert.Len(t, se.Errors, 2, "all parse errors are carried")
}

// countingResolver counts how many times the inner resolver actually runs.
type countingResolver struct {
	calls atomic.Int64
	inner Resolver
}

func (c *countingResolver) Resolve(path, fromPath string) (*ast.Program, error) {
	c.calls.Add(1)
	return c.inner.Resolve(path, fromPath)
}

func TestCacheMemoizes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "m.flow", "let a = 1\n")

	counting := &countingResolver{inner: NewFileResolver(dir)}
	cache := NewCache(counting)

	first, err := cache.Resolve("m", "")
	require.NoError(t, err)
	second, err := cache.Resolve("m", "")
	require.NoError(t, err)

	assert.Same(t, first, second, "cached program is shared")
	assert.Equal(t, int64(1), counting.calls.Load())
}

func TestCacheMemoizesFailures(t *testing.T) {
	counting := &countingResolver{inner: NewFileResolver(t.TempDir())}
	cache := NewCache(counting)

	_, err1 := cache.Resolve("missing", "")
	_, err2 := cache.Resolve("missing", "")
	require.Error(t, err1)
	assert.Equal(t, err1, err2)
	assert.Equal(t, int64(1), counting.calls.Load())
}

func TestCacheSerializesConcurrentLoads(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "m.flow", "let a = 1\n")

	counting := &countingResolver{inner: NewFileResolver(dir)}
	cache := NewCache(counting)

	var wg sync.WaitGroup
	progs := make([]*ast.Program, 16)
	for i := range progs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prog, err := cache.Resolve("m", "")
			if err == nil {
				progs[i] = prog
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(1), counting.calls.Load(), "exactly one real load")
	for _, prog := range progs {
		assert.Same(t, progs[0], prog)
	}
}

func TestCacheKeyDistinguishesImporters(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/util.flow", "let from_a = 1\n")
	writeFile(t, dir, "b/util.flow", "let from_b = 1\n")
	mainA := writeFile(t, dir, "a/main.flow", "let x = 1\n")
	mainB := writeFile(t, dir, "b/main.flow", "let x = 1\n")

	cache := NewCache(NewFileResolver(dir))
	progA, err := cache.Resolve("util", mainA)
	require.NoError(t, err)
	progB, err := cache.Resolve("util", mainB)
	require.NoError(t, err)

	assert.NotSame(t, progA, progB)
	assert.NotEqual(t, progA.Path, progB.Path)
}

func TestUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "deep.flow")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	r := NewFileResolver(dir)
	// "deep.flow" exists but is a directory, so the read fails without NotFound.
	_, err := r.Resolve("deep.flow", "")
	require.Error(t, err)
	var nf *NotFoundError
	assert.False(t, errors.As(err, &nf))
}
