package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/statement-ledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t)

	run, lines := SampleRun("2025-01", "12.345")
	id := db.SeedRun(run, lines)
	require.NotEmpty(t, id)

	got := db.MustGetRun(id)
	assert.Equal(t, "2025-01", got.Period)
	require.NotNil(t, got.Reconciled)
	assert.True(t, *got.Reconciled)

	stored, err := db.Storage.GetRunLines(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "DIV-2025-01-31", stored[0].ReferenceNumber)

	runs, err := db.Storage.ListRuns(context.Background(), service.RunFilter{Period: "2025-01"})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
