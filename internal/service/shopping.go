package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/types"
)

// ShoppingListHeader is the first line of every rendered shopping list.
const ShoppingListHeader = "Список покупок:"

// ShoppingService builds the downloadable shopping list of a user's cart.
type ShoppingService struct {
	db  *gorm.DB
	log *logger.Logger
}

var _ IShoppingService = (*ShoppingService)(nil)

func NewShoppingService(db *gorm.DB, log *logger.Logger) *ShoppingService {
	return &ShoppingService{db: db, log: log.With("service", "shopping")}
}

// ShoppingList sums the ingredients of every recipe in userID's cart.
func (s *ShoppingService) ShoppingList(ctx context.Context, userID uint) ([]types.ShoppingListItem, error) {
	var rows []types.ShoppingRow
	err := s.db.WithContext(ctx).
		Table("shopping_cart_entries").
		Select("ingredients.name AS name, ingredients.measurement_unit AS unit, recipe_ingredients.amount AS amount").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = shopping_cart_entries.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("shopping_cart_entries.user_id = ?", userID).
		Order("shopping_cart_entries.id").
		Order("recipe_ingredients.id").
		Scan(&rows).Error
	if err != nil {
		return nil, translateDBError(err, "load shopping cart")
	}

	items := AggregateShoppingList(rows)
	metrics.RecordShoppingList(len(items))
	s.log.Debug("shopping list built", "user_id", userID, "rows", len(rows), "items", len(items))
	return items, nil
}

type shoppingKey struct {
	name string
	unit string
}

// AggregateShoppingList sums amounts per (name, unit) pair. The same name in
// two units stays two lines. Items keep the order in which they first appear.
func AggregateShoppingList(rows []types.ShoppingRow) []types.ShoppingListItem {
	index := make(map[shoppingKey]int, len(rows))
	items := make([]types.ShoppingListItem, 0, len(rows))
	for _, row := range rows {
		key := shoppingKey{name: row.Name, unit: row.Unit}
		if i, ok := index[key]; ok {
			items[i].Amount += row.Amount
			continue
		}
		index[key] = len(items)
		items = append(items, types.ShoppingListItem{Name: row.Name, Amount: row.Amount, Unit: row.Unit})
	}
	return items
}

// RenderShoppingList formats items as the plain-text download.
func RenderShoppingList(items []types.ShoppingListItem) string {
	var b strings.Builder
	b.WriteString(ShoppingListHeader)
	b.WriteByte('\n')
	for _, item := range items {
		fmt.Fprintf(&b, "%s - %d%s\n", item.Name, item.Amount, item.Unit)
	}
	return b.String()
}
