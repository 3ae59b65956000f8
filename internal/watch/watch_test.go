package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextBatch(t *testing.T, n *Notifier) []string {
	t.Helper()
	select {
	case b, ok := <-n.Batches():
		require.True(t, ok, "batches closed")
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
		return nil
	}
}

func TestNotifierCoalesces(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "-work-app")
	require.NoError(t, os.MkdirAll(proj, 0o755))

	n, err := New(root, "")
	require.NoError(t, err)
	defer n.Close()
	n.SetDelay(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	file := filepath.Join(proj, "s1.jsonl")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte("{}\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(proj, "notes.txt"), []byte("x"), 0o644))

	batch := nextBatch(t, n)
	assert.Equal(t, []string{file}, batch)

	cancel()
	select {
	case _, ok := <-n.Batches():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestNotifierNoRoots(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "a"), "")
	assert.Error(t, err)
}
