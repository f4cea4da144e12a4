package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/conformer/pkg/adapters/file"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunReportStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_Layout(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "reports")
	store := file.New(dir)

	require.NoError(t, store.Save(ctx, &domain.RunReport{ID: "run-1", Script: "debugger-break"}))
	assert.FileExists(t, filepath.Join(dir, "run-1.json"))

	// Leftovers from an interrupted save are not reports.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-run-2-123.json"), []byte("{"), 0o644))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	ctx := context.Background()
	store := file.New(t.TempDir())

	for _, id := range []string{"../escape", "a/b", ".."} {
		assert.Error(t, store.Save(ctx, &domain.RunReport{ID: id}), id)
		_, err := store.Load(ctx, id)
		assert.Error(t, err, id)
	}
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_DefaultPath(t *testing.T) {
	assert.Equal(t, file.DefaultBasePath, file.New("").BasePath)
}
