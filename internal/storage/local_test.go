package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalProvider(t *testing.T) {
	t.Parallel()

	t.Run("creates missing base directory", func(t *testing.T) {
		t.Parallel()

		base := filepath.Join(t.TempDir(), "mirror")
		_, err := NewLocalProvider(base)
		require.NoError(t, err)
		require.DirExists(t, base)
	})

	t.Run("rejects empty path", func(t *testing.T) {
		t.Parallel()

		_, err := NewLocalProvider("  ")
		require.Error(t, err)
	})

	t.Run("rejects file path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		_, err := NewLocalProvider(path)
		require.Error(t, err)
	})
}

func TestLocalProviderSave(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	provider, err := NewLocalProvider(base)
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("ath_id,name,max_age\n101,Alice,34\n")
	require.NoError(t, provider.Save(ctx, "ifsc_results/athletes_age.csv", data))

	got, err := os.ReadFile(filepath.Join(base, "ifsc_results", "athletes_age.csv"))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Overwrites on repeat saves.
	require.NoError(t, provider.Save(ctx, "ifsc_results/athletes_age.csv", []byte("v2")))
	got, err = os.ReadFile(filepath.Join(base, "ifsc_results", "athletes_age.csv"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestLocalProviderSaveRejectsTraversal(t *testing.T) {
	t.Parallel()

	provider, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	require.Error(t, provider.Save(context.Background(), "../escape.csv", []byte("x")))
	require.Error(t, provider.Save(context.Background(), "", []byte("x")))
}
