package types

// ShoppingRow is one recipe ingredient line pulled from a user's cart,
// before aggregation.
type ShoppingRow struct {
	Name   string
	Unit   string
	Amount int
}

// ShoppingListItem is one aggregated line of a shopping list.
type ShoppingListItem struct {
	Name   string `json:"name"`
	Amount int    `json:"amount"`
	Unit   string `json:"measurement_unit"`
}
