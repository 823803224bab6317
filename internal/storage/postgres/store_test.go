package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/invest-be/internal/storage/storagetest"
)

func TestStoreIntegration(t *testing.T) {
	if os.Getenv("RUN_DB_INTEGRATION") != "true" {
		t.Skip("set RUN_DB_INTEGRATION=true to run this integration test")
	}
	url := os.Getenv("DATABASE_URL")
	require.NotEmpty(t, url, "DATABASE_URL is required")

	store, err := NewStore(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.Ping(context.Background()))
	storagetest.Run(t, store)
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}

func TestWhereNumbersPlaceholders(t *testing.T) {
	var w where
	w.add("status = ?", "pending")
	w.add("(name ILIKE ? OR email ILIKE ?)", "%a%")
	assert.Equal(t, " WHERE status = $1 AND (name ILIKE $2 OR email ILIKE $2)", w.String())
	assert.Len(t, w.args, 2)
}
