package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunReportStoreContract verifies that a ReportStore implementation adheres
// to the interface contract.
func RunReportStoreContract(t *testing.T, store ReportStore) {
	ctx := context.Background()
	id := "contract-" + time.Now().Format("20060102150405")

	newReport := func(id string) *domain.RunReport {
		start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		return &domain.RunReport{
			ID:        id,
			Script:    "debugger-break",
			Generator: "Ninja",
			StartedAt: start,
			EndedAt:   start.Add(time.Second),
			Methods: []domain.MethodResult{
				{Method: "stdio", Status: domain.StatusPassed, Steps: 4, Received: 3, Ignored: 1,
					StartedAt: start, EndedAt: start},
				{Method: "tcp", Status: domain.StatusFailed, Error: "protocol mismatch", ExitCode: domain.ExitMismatch,
					StartedAt: start, EndedAt: start},
			},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		report := newReport(id)
		require.NoError(t, store.Save(ctx, report))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, report.Script, loaded.Script)
		assert.Equal(t, report.Generator, loaded.Generator)
		assert.True(t, report.StartedAt.Equal(loaded.StartedAt))
		require.Len(t, loaded.Methods, 2)
		assert.Equal(t, report.Methods[0].Method, loaded.Methods[0].Method)
		assert.Equal(t, report.Methods[0].Ignored, loaded.Methods[0].Ignored)
		assert.Equal(t, report.Methods[1].Error, loaded.Methods[1].Error)
		assert.Equal(t, domain.ExitMismatch, loaded.ExitCode())
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		report := newReport(id)
		report.Methods = report.Methods[:1]
		require.NoError(t, store.Save(ctx, report))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Len(t, loaded.Methods, 1)
		assert.True(t, loaded.Passed())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+id)
		assert.ErrorIs(t, err, domain.ErrReportNotFound)
	})

	t.Run("Empty ID", func(t *testing.T) {
		assert.Error(t, store.Save(ctx, newReport("")))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newReport(id)))
		require.NoError(t, store.Delete(ctx, id))

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrReportNotFound)
		assert.NoError(t, store.Delete(ctx, id), "deleting twice is fine")
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := id+"-1", id+"-2"
		require.NoError(t, store.Save(ctx, newReport(id1)))
		require.NoError(t, store.Save(ctx, newReport(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
