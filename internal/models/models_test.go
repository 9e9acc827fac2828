package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(SQLiteModels()...))
	return db
}

func TestIngredientNameUnitIsUnique(t *testing.T) {
	db := openDB(t)

	require.NoError(t, db.Create(&Ingredient{Name: "соль", MeasurementUnit: "г"}).Error)
	require.NoError(t, db.Create(&Ingredient{Name: "соль", MeasurementUnit: "щепотка"}).Error)

	err := db.Create(&Ingredient{Name: "соль", MeasurementUnit: "г"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestRecipeIngredientRejectsZeroAmount(t *testing.T) {
	db := openDB(t)

	author := User{Email: "a@example.com", Username: "a", FirstName: "A", LastName: "B", PasswordHash: "x"}
	require.NoError(t, db.Create(&author).Error)
	ing := Ingredient{Name: "мука", MeasurementUnit: "г"}
	require.NoError(t, db.Create(&ing).Error)
	recipe := Recipe{AuthorID: author.ID, Name: "Блины", Text: "Жарить", CookingTime: 20}
	require.NoError(t, db.Create(&recipe).Error)

	err := db.Create(&RecipeIngredient{RecipeID: recipe.ID, IngredientID: ing.ID, Amount: 0}).Error
	assert.Error(t, err)

	require.NoError(t, db.Create(&RecipeIngredient{RecipeID: recipe.ID, IngredientID: ing.ID, Amount: 1}).Error)
}

func TestSubscriptionForbidsSelf(t *testing.T) {
	db := openDB(t)

	user := User{Email: "a@example.com", Username: "a", FirstName: "A", LastName: "B", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	err := db.Create(&Subscription{UserID: user.ID, AuthorID: user.ID}).Error
	assert.Error(t, err)
}
