package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// ShoppingListFilename is the attachment name of the downloaded cart.
const ShoppingListFilename = "shopping_list.txt"

type RecipeHandler struct {
	recipeService   service.IRecipeService
	shoppingService service.IShoppingService
	authService     service.IAuthService
	creationLimiter *middleware.RateLimiter
	pageSize        int
	log             *logger.Logger
}

// NewRecipeHandler builds the recipe routes. creationLimiter may be nil, in
// which case recipe creation is not rate limited.
func NewRecipeHandler(
	recipeService service.IRecipeService,
	shoppingService service.IShoppingService,
	authService service.IAuthService,
	creationLimiter *middleware.RateLimiter,
	pageSize int,
	log *logger.Logger,
) *RecipeHandler {
	return &RecipeHandler{
		recipeService:   recipeService,
		shoppingService: shoppingService,
		authService:     authService,
		creationLimiter: creationLimiter,
		pageSize:        pageSize,
		log:             log,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	requireAuth := middleware.AuthMiddleware(h.authService)
	optionalAuth := middleware.OptionalAuth(h.authService)

	create := []gin.HandlerFunc{requireAuth}
	if h.creationLimiter != nil {
		create = append(create, h.creationLimiter.Middleware())
	}
	create = append(create, h.CreateRecipe)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optionalAuth, h.ListRecipes)
		recipes.POST("", create...)
		recipes.GET("/download_shopping_cart", requireAuth, h.DownloadShoppingCart)
		recipes.GET("/:id", optionalAuth, h.GetRecipe)
		recipes.PATCH("/:id", requireAuth, h.UpdateRecipe)
		recipes.DELETE("/:id", requireAuth, h.DeleteRecipe)
		recipes.POST("/:id/favorite", requireAuth, h.AddFavorite)
		recipes.DELETE("/:id/favorite", requireAuth, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", requireAuth, h.AddToCart)
		recipes.DELETE("/:id/shopping_cart", requireAuth, h.RemoveFromCart)
	}
}

// recipeFilter reads ?tags=a&tags=b&author=1&is_favorited=1&is_in_shopping_cart=1&name=.
func recipeFilter(c *gin.Context) types.RecipeFilter {
	filter := types.RecipeFilter{
		Tags:             c.QueryArray("tags"),
		IsFavorited:      queryFlag(c, "is_favorited"),
		IsInShoppingCart: queryFlag(c, "is_in_shopping_cart"),
		Name:             c.Query("name"),
	}
	if author, err := strconv.ParseUint(c.Query("author"), 10, 64); err == nil {
		filter.AuthorID = uint(author)
	}
	return filter
}

func queryFlag(c *gin.Context, key string) bool {
	switch c.Query(key) {
	case "1", "true", "True":
		return true
	}
	return false
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page := pageRequest(c, h.pageSize)
	recipes, total, err := h.recipeService.ListRecipes(c.Request.Context(), middleware.UserID(c), recipeFilter(c), page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, recipes))
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	recipe, err := h.recipeService.GetRecipe(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	recipe, err := h.recipeService.CreateRecipe(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req types.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	recipe, err := h.recipeService.UpdateRecipe(c.Request.Context(), middleware.UserID(c), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.recipeService.DeleteRecipe(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.mark(c, h.recipeService.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.unmark(c, h.recipeService.RemoveFavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.mark(c, h.recipeService.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.unmark(c, h.recipeService.RemoveFromCart)
}

func (h *RecipeHandler) mark(c *gin.Context, add func(ctx context.Context, userID, recipeID uint) (*types.RecipeShort, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	short, err := add(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, short)
}

func (h *RecipeHandler) unmark(c *gin.Context, remove func(ctx context.Context, userID, recipeID uint) error) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := remove(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadShoppingCart returns the requester's aggregated cart as a text file.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	items, err := h.shoppingService.ShoppingList(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+ShoppingListFilename+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.RenderShoppingList(items)))
}
