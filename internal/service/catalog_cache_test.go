package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestIngredientCacheExpires(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	testhelpers.CreateIngredient(t, db, "соль", "г")
	svc := newCatalogService(db, logger.NewNop(), 50*time.Millisecond)
	ctx := context.Background()

	got, err := svc.ListIngredients(ctx, "со")
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Written behind the service's back, as cmd/import does.
	testhelpers.CreateIngredient(t, db, "солод", "г")

	got, err = svc.ListIngredients(ctx, "со")
	require.NoError(t, err)
	assert.Len(t, got, 1, "served from cache")

	assert.Eventually(t, func() bool {
		got, err := svc.ListIngredients(ctx, "со")
		return err == nil && len(got) == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestIngredientCacheSkipsEmptyResults(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewCatalogService(db, logger.NewNop())

	_, err := svc.ListIngredients(context.Background(), "соль")
	require.NoError(t, err)
	assert.Zero(t, svc.cache.Len())
}
