package genres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/locallibrary/internal/database/crud"
	"github.com/mrlokans/locallibrary/internal/database/dbtest"
)

func TestRepository_FindByIDs(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	poetry, err := repo.GetOrCreate(ctx, "Poetry")
	require.NoError(t, err)
	horror, err := repo.GetOrCreate(ctx, "Horror")
	require.NoError(t, err)

	found, err := repo.FindByIDs(ctx, []uint{poetry.ID, horror.ID, poetry.ID})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Horror", found[0].Name)

	_, err = repo.FindByIDs(ctx, []uint{poetry.ID, 9999})
	assert.ErrorIs(t, err, crud.ErrNotFound)

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepository_GetOrCreate_Idempotent(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, "Cyberpunk")
	require.NoError(t, err)
	second, err := repo.GetOrCreate(ctx, "Cyberpunk")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestRepository_SeededGenresOrdered(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)

	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Name, all[i].Name)
	}
}
