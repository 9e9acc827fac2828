package service

import (
	"context"
	"io"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	GenerateToken(user *models.User) (string, error)
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
}

// IUserService defines account and subscription operations. The requester is
// always passed explicitly.
type IUserService interface {
	CreateUser(ctx context.Context, req *types.CreateUserRequest) (*types.UserResponse, error)
	GetUser(ctx context.Context, viewerID, id uint) (*types.UserResponse, error)
	ListUsers(ctx context.Context, viewerID uint, page types.PageRequest) ([]types.UserResponse, int64, error)
	SetPassword(ctx context.Context, userID uint, req *types.SetPasswordRequest) error
	Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error)
	Unsubscribe(ctx context.Context, userID, authorID uint) error
	Subscriptions(ctx context.Context, userID uint, page types.PageRequest, recipesLimit int) ([]types.SubscriptionResponse, int64, error)
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeRequest) (*types.RecipeResponse, error)
	UpdateRecipe(ctx context.Context, requesterID, recipeID uint, req *types.RecipeRequest) (*types.RecipeResponse, error)
	DeleteRecipe(ctx context.Context, requesterID, recipeID uint) error
	GetRecipe(ctx context.Context, viewerID, id uint) (*types.RecipeResponse, error)
	ListRecipes(ctx context.Context, viewerID uint, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeResponse, int64, error)
	AddFavorite(ctx context.Context, userID, recipeID uint) (*types.RecipeShort, error)
	RemoveFavorite(ctx context.Context, userID, recipeID uint) error
	AddToCart(ctx context.Context, userID, recipeID uint) (*types.RecipeShort, error)
	RemoveFromCart(ctx context.Context, userID, recipeID uint) error
}

type IShoppingService interface {
	ShoppingList(ctx context.Context, userID uint) ([]types.ShoppingListItem, error)
}

// ICatalogService serves tags and ingredients.
type ICatalogService interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
	ListIngredients(ctx context.Context, name string) ([]models.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error)
	ImportIngredients(ctx context.Context, r io.Reader) (int, error)
	SeedTags(ctx context.Context) (int, error)
}
