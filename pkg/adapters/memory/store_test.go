package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/conformer/pkg/adapters/memory"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunReportStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	report := &domain.RunReport{
		ID:      "run-1",
		Methods: []domain.MethodResult{{Method: "stdio", Status: domain.StatusPassed}},
	}
	require.NoError(t, store.Save(ctx, report))

	report.Methods[0].Status = domain.StatusFailed
	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPassed, loaded.Methods[0].Status, "save keeps a copy")

	loaded.Methods[0].Status = domain.StatusSkipped
	again, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPassed, again.Methods[0].Status, "load returns a copy")
}
