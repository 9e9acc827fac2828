package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// WriteMode selects which rules apply to an incoming RecipeRequest.
type WriteMode int

const (
	ModeCreate WriteMode = iota
	ModeUpdate
)

func (m WriteMode) String() string {
	if m == ModeUpdate {
		return "update"
	}
	return "create"
}

// Amount is the raw text of an ingredient amount. Any JSON value decodes into
// it, so "abc", 1.5 or null reach the validator and come back keyed by
// "amount" instead of failing the whole body.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(bytes.TrimSpace(data))
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if _, err := strconv.Atoi(string(a)); err == nil {
		return []byte(a), nil
	}
	return json.Marshal(string(a))
}

func (a Amount) String() string { return string(a) }

// IngredientAmount is one {id, amount} entry of a recipe payload.
type IngredientAmount struct {
	ID     uint   `json:"id"`
	Amount Amount `json:"amount"`
}

// RecipeRequest is the body of POST /recipes and PATCH /recipes/{id}.
type RecipeRequest struct {
	Ingredients []IngredientAmount `json:"ingredients"`
	Tags        []uint             `json:"tags"`
	Image       string             `json:"image"`
	Name        string             `json:"name" validate:"required,max=200"`
	Text        string             `json:"text" validate:"required"`
	CookingTime int                `json:"cooking_time" validate:"min=1,max=32000"`
}

// RecipeFilter holds the query-string filters of GET /recipes.
type RecipeFilter struct {
	Tags             []string
	AuthorID         uint
	IsFavorited      bool
	IsInShoppingCart bool
	Name             string
}

type TagResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

type RecipeIngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []TagResponse              `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
	PubDate          time.Time                  `json:"pub_date"`
}

// RecipeShort is the compact form returned by favorite/cart toggles and
// embedded in subscription listings.
type RecipeShort struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}
