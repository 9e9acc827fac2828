package testhelpers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
)

// DefaultPassword is the password of every user made by CreateTestUser.
const DefaultPassword = "s3cret-pass"

// CreateTestUser inserts a user whose email is derived from username.
func CreateTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:        fmt.Sprintf("%s@example.com", username),
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ing).Error)
	return ing
}

func CreateTag(t *testing.T, db *gorm.DB, name, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Color: models.DefaultTagColor, Slug: slug}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

// RecipeIngredientSpec is an (ingredient, amount) pair for CreateRecipe.
type RecipeIngredientSpec struct {
	Ingredient *models.Ingredient
	Amount     int
}

// CreateRecipe inserts a recipe directly, bypassing validation and image storage.
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, tags []*models.Tag, items ...RecipeIngredientSpec) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Image:       "/media/recipes/test.png",
		Text:        "Cook it.",
		CookingTime: 10,
	}
	for _, tag := range tags {
		recipe.Tags = append(recipe.Tags, *tag)
	}
	require.NoError(t, db.Omit("Tags.*").Create(recipe).Error)

	for _, item := range items {
		require.NoError(t, db.Create(&models.RecipeIngredient{
			RecipeID:     recipe.ID,
			IngredientID: item.Ingredient.ID,
			Amount:       item.Amount,
		}).Error)
	}
	return recipe
}

func AddToCart(t *testing.T, db *gorm.DB, user *models.User, recipe *models.Recipe) {
	t.Helper()
	require.NoError(t, db.Create(&models.ShoppingCartEntry{UserID: user.ID, RecipeID: recipe.ID}).Error)
}
