package graph

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	t.Parallel()
	g, err := LoadFile(filepath.Join("testdata", "concepts.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5, g.Len())

	pres, err := g.Prerequisites("closures")
	require.NoError(t, err)
	assert.Equal(t, []domain.ConceptID{"functions", "scope"}, pres)

	c, ok := g.Concept("scope")
	require.True(t, ok)
	assert.Equal(t, "Lexical scope", c.Title)
	assert.Contains(t, c.Aliases, "lexical scope")
}

func TestLoadFileRejectsCycle(t *testing.T) {
	t.Parallel()
	_, err := LoadFile(filepath.Join("testdata", "cyclic.yaml"))
	assert.ErrorIs(t, err, domain.ErrCyclicGraph)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := Load(strings.NewReader("concepts:\n  - id: a\n    prereqs: [b]\n"))
	assert.Error(t, err)
}

func TestLoadEmptyDocument(t *testing.T) {
	t.Parallel()
	g, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())
}

func writeGraph(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestHolderReload(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "concepts.yaml")
	writeGraph(t, path, "concepts:\n  - id: a\n")

	initial, err := LoadFile(path)
	require.NoError(t, err)
	h := NewHolder(initial, nil)

	writeGraph(t, path, "concepts:\n  - id: a\n  - id: b\n    prerequisites: [a]\n")
	require.NoError(t, h.Reload(path))
	assert.True(t, h.Contains("b"))

	pres, err := h.Prerequisites("b")
	require.NoError(t, err)
	assert.Equal(t, []domain.ConceptID{"a"}, pres)

	// A cyclic replacement is rejected and the previous graph stays live
	writeGraph(t, path, "concepts:\n  - id: a\n    prerequisites: [b]\n  - id: b\n    prerequisites: [a]\n")
	err = h.Reload(path)
	assert.ErrorIs(t, err, domain.ErrCyclicGraph)
	pres, err = h.Prerequisites("a")
	require.NoError(t, err)
	assert.Empty(t, pres, "Previous graph must remain in effect after a rejected reload")
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "concepts.yaml")
	writeGraph(t, path, "concepts:\n  - id: a\n")

	initial, err := LoadFile(path)
	require.NoError(t, err)
	h := NewHolder(initial, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(path, h, 20*time.Millisecond, nil)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register before writing.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("concepts:\n  - id: a\n  - id: fresh\n"), 0o644)
		return h.Contains("fresh")
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}
