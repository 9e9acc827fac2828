package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func names(ings []models.Ingredient) []string {
	out := make([]string, len(ings))
	for i, ing := range ings {
		out[i] = ing.Name
	}
	return out
}

func TestListIngredientsPrefixFirst(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	for _, n := range []string{"сахар", "ванильный сахар", "сахарная пудра", "соль", "тростниковый сахар"} {
		testhelpers.CreateIngredient(t, db, n, "г")
	}
	svc := service.NewCatalogService(db, logger.NewNop())

	got, err := svc.ListIngredients(context.Background(), "сахар")
	require.NoError(t, err)
	assert.Equal(t, []string{"сахар", "сахарная пудра", "ванильный сахар", "тростниковый сахар"}, names(got))

	all, err := svc.ListIngredients(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestImportIngredients(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	testhelpers.CreateIngredient(t, db, "соль", "г")
	svc := service.NewCatalogService(db, logger.NewNop())
	ctx := context.Background()

	// Warm the cache so the import has something to invalidate.
	before, err := svc.ListIngredients(ctx, "")
	require.NoError(t, err)
	require.Len(t, before, 1)

	csv := "name,measurement_unit\nсоль,г\nабрикосовое варенье,г\n\"масло, сливочное\",г\nабрикосы,шт\n"
	n, err := svc.ImportIngredients(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	after, err := svc.ListIngredients(ctx, "")
	require.NoError(t, err)
	assert.Len(t, after, 4)

	n, err = svc.ImportIngredients(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImportIngredientsRejectsShortRows(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := service.NewCatalogService(db, logger.NewNop())

	_, err := svc.ImportIngredients(context.Background(), strings.NewReader("соль\n"))
	assert.Error(t, err)
}

func TestListIngredientsIgnoresCyrillicCase(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	testhelpers.CreateIngredient(t, db, "Соль", "г")
	testhelpers.CreateIngredient(t, db, "Морская соль", "г")
	testhelpers.CreateIngredient(t, db, "Сахар", "г")
	svc := service.NewCatalogService(db, logger.NewNop())
	ctx := context.Background()

	for _, term := range []string{"соль", "СОЛ", "Соль", "сОлЬ"} {
		got, err := svc.ListIngredients(ctx, term)
		require.NoError(t, err)
		assert.Equal(t, []string{"Соль", "Морская соль"}, names(got), term)
	}
}

func TestListIngredientsSeesImportFromAnotherProcess(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	api := service.NewCatalogService(db, logger.NewNop())
	importer := service.NewCatalogService(db, logger.NewNop())
	ctx := context.Background()

	got, err := api.ListIngredients(ctx, "соль")
	require.NoError(t, err)
	require.Empty(t, got)

	n, err := importer.ImportIngredients(ctx, strings.NewReader("соль,г\n"))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err = api.ListIngredients(ctx, "соль")
	require.NoError(t, err)
	assert.Equal(t, []string{"соль"}, names(got))
}

func TestSeedTagsIsIdempotent(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := service.NewCatalogService(db, logger.NewNop())
	ctx := context.Background()

	n, err := svc.SeedTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = svc.SeedTags(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	tags, err := svc.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "breakfast", tags[0].Slug)
	assert.Equal(t, "#FCEB97", tags[0].Color)

	tag, err := svc.GetTag(ctx, tags[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "dinner", tag.Slug)

	_, err = svc.GetTag(ctx, 9999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
