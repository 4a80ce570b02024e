package sqlite_test

import (
	"context"
	"testing"

	"github.com/mnarita/kioku/internal/repository/sqlite"
	"github.com/mnarita/kioku/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRepository_SaveAndLoad(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.MustClose(t, db)
	repo := sqlite.NewProfileRepository(db)
	ctx := context.Background()

	p, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, p, "no profile stored yet")

	require.NoError(t, repo.Save(ctx, []byte{1, 2, 3}))
	p, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []byte{1, 2, 3}, p.Payload)

	// Saving again upserts the single row.
	require.NoError(t, repo.Save(ctx, []byte{4, 5}))
	p, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []byte{4, 5}, p.Payload)
}
