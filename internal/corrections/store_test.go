package corrections

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/service"
)

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) service.CorrectionStore{
		"memory": func(_ *testing.T) service.CorrectionStore { return NewMemoryStore(nil) },
		"file": func(t *testing.T) service.CorrectionStore {
			return NewFileStore(filepath.Join(t.TempDir(), "corrections.json"))
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			_, ok, err := s.Lookup(ctx, "星巴克")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Save(ctx, "星巴克", "餐饮"))
			require.NoError(t, s.Save(ctx, "滴滴出行", "交通"))
			require.NoError(t, s.Save(ctx, "星巴克", "社交"))

			category, ok, err := s.Lookup(ctx, "星巴克")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "社交", category)

			all, err := s.All(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"星巴克": "社交", "滴滴出行": "交通"}, all)
		})
	}
}

func TestFileStore_EmptyAndMissingFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	missing := NewFileStore(filepath.Join(dir, "missing.json"))
	all, err := missing.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	emptyPath := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(emptyPath, []byte("  \n"), 0o600))
	all, err = NewFileStore(emptyPath).All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileStore_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileStore(path).Lookup(context.Background(), "x")
	assert.ErrorIs(t, err, common.ErrMalformedInput)
}

func TestFileStore_SameValueLeavesFileUntouched(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "corrections.json")
	s := NewFileStore(path)

	require.NoError(t, s.Save(ctx, "海底捞", "餐饮"))
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, "海底捞", "餐饮"))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), info2.ModTime())
}

func TestFileStore_ConcurrentWritersKeepEveryEntry(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "corrections.json")

	var wg sync.WaitGroup
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, k := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			// separate instances stand in for separate processes
			assert.NoError(t, NewFileStore(path).Save(ctx, k, "cat-"+k))
		}(k)
	}
	wg.Wait()

	all, err := NewFileStore(path).All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(keys))
}
