package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// RecipeService handles recipe operations
type RecipeService struct {
	db     *gorm.DB
	images storage.ImageStore
	log    *logger.Logger
}

var _ IRecipeService = (*RecipeService)(nil)

func NewRecipeService(db *gorm.DB, images storage.ImageStore, log *logger.Logger) *RecipeService {
	return &RecipeService{
		db:     db,
		images: images,
		log:    log.With("service", "recipe"),
	}
}

func (s *RecipeService) isPostgres() bool {
	return s.db.Dialector.Name() == "postgres"
}

// preparedRecipe is a payload that passed validation, with amounts parsed
// and the image decoded.
type preparedRecipe struct {
	req         *types.RecipeRequest
	amounts     []int
	tags        []models.Tag
	image       *storage.Image
	keepImageAs string
}

// prepare validates req and resolves its references. It returns
// validation.FieldErrors when anything is wrong with the payload.
func (s *RecipeService) prepare(ctx context.Context, req *types.RecipeRequest, mode types.WriteMode, current *models.Recipe) (*preparedRecipe, error) {
	errs := validation.FieldErrors{}
	if ruleErrs := validation.ValidateRecipe(req, mode); ruleErrs != nil {
		errs.Merge(ruleErrs)
	}

	db := s.db.WithContext(ctx)
	p := &preparedRecipe{req: req}

	if ids := uniqueIngredientIDs(req.Ingredients); len(ids) > 0 {
		var found int64
		if err := db.Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
			return nil, translateDBError(err, "check ingredients")
		}
		if int(found) != len(ids) {
			errs.Add("ingredients", "unknown ingredient id")
		}
	}
	if ids := uniqueIDs(req.Tags); len(ids) > 0 {
		if err := db.Where("id IN ?", ids).Order("id").Find(&p.tags).Error; err != nil {
			return nil, translateDBError(err, "check tags")
		}
		if len(p.tags) != len(ids) {
			errs.Add("tags", "unknown tag id")
		}
	}

	switch {
	case storage.IsDataURI(req.Image):
		img, err := storage.DecodeDataURI(req.Image)
		if err != nil {
			errs.Add("image", err.Error())
		}
		p.image = img
	case req.Image == "":
		if current != nil {
			p.keepImageAs = current.Image
		}
	case current != nil && req.Image == current.Image:
		p.keepImageAs = current.Image
	default:
		errs.Add("image", storage.ErrInvalidDataURI.Error())
	}

	if len(errs) > 0 {
		for field := range errs {
			metrics.RecipeValidationFailures.WithLabelValues(field).Inc()
		}
		return nil, errs
	}

	p.amounts = make([]int, len(req.Ingredients))
	for i, item := range req.Ingredients {
		// already checked by ValidateRecipe
		p.amounts[i], _ = validation.ParseAmount(item.Amount.String())
	}
	return p, nil
}

// storeImage returns the image URL for the recipe and, when a new upload was
// saved, the object name to discard if the write later fails.
func (s *RecipeService) storeImage(ctx context.Context, p *preparedRecipe) (url, stored string, err error) {
	if p.image == nil {
		return p.keepImageAs, "", nil
	}
	name := storage.NewObjectName(p.image.Ext)
	url, err = s.images.Save(ctx, name, p.image.ContentType, p.image.Data)
	if err != nil {
		s.log.Error("failed to store recipe image", "error", err)
		return "", "", err
	}
	return url, name, nil
}

// discardImage removes an upload whose recipe was never written.
func (s *RecipeService) discardImage(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.images.Delete(context.WithoutCancel(ctx), name); err != nil {
		s.log.Error("failed to remove orphaned recipe image", "object", name, "error", err)
	}
}

func (p *preparedRecipe) ingredientRows(recipeID uint) []models.RecipeIngredient {
	rows := make([]models.RecipeIngredient, len(p.req.Ingredients))
	for i, item := range p.req.Ingredients {
		rows[i] = models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: item.ID,
			Amount:       p.amounts[i],
		}
	}
	return rows
}

// CreateRecipe stores a new recipe owned by authorID.
func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeRequest) (*types.RecipeResponse, error) {
	p, err := s.prepare(ctx, req, types.ModeCreate, nil)
	if err != nil {
		return nil, err
	}
	image, stored, err := s.storeImage(ctx, p)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        req.Name,
		Image:       image,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Omit("Tags.*").Association("Tags").Append(p.tags); err != nil {
			return err
		}
		rows := p.ingredientRows(recipe.ID)
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		return s.saveEmbedding(tx, &recipe)
	})
	if err != nil {
		s.discardImage(ctx, stored)
		return nil, translateDBError(err, "create recipe")
	}

	metrics.RecipesWritten.WithLabelValues("create").Inc()
	s.log.Info("recipe created", "recipe_id", recipe.ID, "author_id", authorID)
	return s.GetRecipe(ctx, authorID, recipe.ID)
}

// UpdateRecipe replaces every field of recipeID. Its ingredient rows are
// deleted and inserted again, never merged.
func (s *RecipeService) UpdateRecipe(ctx context.Context, requesterID, recipeID uint, req *types.RecipeRequest) (*types.RecipeResponse, error) {
	recipe, err := s.ownedRecipe(ctx, requesterID, recipeID)
	if err != nil {
		return nil, err
	}
	p, err := s.prepare(ctx, req, types.ModeUpdate, recipe)
	if err != nil {
		return nil, err
	}
	image, stored, err := s.storeImage(ctx, p)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(recipe).Updates(map[string]interface{}{
			"name":         req.Name,
			"text":         req.Text,
			"cooking_time": req.CookingTime,
			"image":        image,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(recipe).Omit("Tags.*").Association("Tags").Replace(p.tags); err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		rows := p.ingredientRows(recipe.ID)
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		return s.saveEmbedding(tx, recipe)
	})
	if err != nil {
		s.discardImage(ctx, stored)
		return nil, translateDBError(err, "update recipe")
	}

	metrics.RecipesWritten.WithLabelValues("update").Inc()
	return s.GetRecipe(ctx, requesterID, recipe.ID)
}

// DeleteRecipe removes recipeID and everything that points at it.
func (s *RecipeService) DeleteRecipe(ctx context.Context, requesterID, recipeID uint) error {
	recipe, err := s.ownedRecipe(ctx, requesterID, recipeID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		for _, dependent := range []interface{}{
			&models.RecipeIngredient{},
			&models.Favorite{},
			&models.ShoppingCartEntry{},
		} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(dependent).Error; err != nil {
				return err
			}
		}
		if s.isPostgres() {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeEmbedding{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(recipe).Error
	})
	if err != nil {
		return translateDBError(err, "delete recipe")
	}

	metrics.RecipesWritten.WithLabelValues("delete").Inc()
	s.log.Info("recipe deleted", "recipe_id", recipeID, "author_id", requesterID)
	return nil
}

func (s *RecipeService) ownedRecipe(ctx context.Context, requesterID, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		return nil, translateDBError(err, fmt.Sprintf("recipe %d", recipeID))
	}
	if recipe.AuthorID != requesterID {
		return nil, fmt.Errorf("recipe %d belongs to another user: %w", recipeID, ErrForbidden)
	}
	return &recipe, nil
}

func (s *RecipeService) saveEmbedding(tx *gorm.DB, recipe *models.Recipe) error {
	if !s.isPostgres() {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recipe_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"embedding"}),
	}).Create(&models.RecipeEmbedding{
		RecipeID:  recipe.ID,
		Embedding: GenerateEmbedding(recipe.Name),
	}).Error
}

// GetRecipe returns recipe id as seen by viewerID (0 for anonymous).
func (s *RecipeService) GetRecipe(ctx context.Context, viewerID, id uint) (*types.RecipeResponse, error) {
	recipes, err := s.loadRecipes(ctx, []uint{id})
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, fmt.Errorf("recipe %d: %w", id, ErrNotFound)
	}
	out, err := s.readModels(ctx, viewerID, recipes)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ListRecipes returns one page of recipes matching filter, newest first.
// The favorite and cart filters only apply to signed-in viewers.
func (s *RecipeService) ListRecipes(ctx context.Context, viewerID uint, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeResponse, int64, error) {
	db := s.db.WithContext(ctx)
	base := db.Model(&models.Recipe{})

	if len(filter.Tags) > 0 {
		base = base.Where("recipes.id IN (?)", db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.Tags))
	}
	if filter.AuthorID != 0 {
		base = base.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if viewerID != 0 && filter.IsFavorited {
		base = base.Where("recipes.id IN (?)", db.Model(&models.Favorite{}).
			Select("recipe_id").Where("user_id = ?", viewerID))
	}
	if viewerID != 0 && filter.IsInShoppingCart {
		base = base.Where("recipes.id IN (?)", db.Model(&models.ShoppingCartEntry{}).
			Select("recipe_id").Where("user_id = ?", viewerID))
	}
	name := strings.TrimSpace(filter.Name)
	if name != "" {
		base = base.Where(containsCondition(db, "recipes.name"), containsPattern(name))
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translateDBError(err, "count recipes")
	}

	q := base.Session(&gorm.Session{})
	if name != "" && s.isPostgres() {
		q = q.Joins("LEFT JOIN recipe_embeddings ON recipe_embeddings.recipe_id = recipes.id").
			Order(clause.OrderBy{Expression: clause.Expr{
				SQL:  "recipe_embeddings.embedding <-> ?, recipes.created_at DESC, recipes.id DESC",
				Vars: []interface{}{GenerateEmbedding(name)},
			}})
	} else {
		q = q.Order("recipes.created_at DESC").Order("recipes.id DESC")
	}

	var ids []uint
	if err := q.Offset(page.Offset()).Limit(page.Limit).Pluck("recipes.id", &ids).Error; err != nil {
		return nil, 0, translateDBError(err, "list recipes")
	}

	recipes, err := s.loadRecipes(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.readModels(ctx, viewerID, recipes)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// loadRecipes fetches recipes with their associations, in the order of ids.
func (s *RecipeService) loadRecipes(ctx context.Context, ids []uint) ([]models.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recipes []models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient").
		Where("id IN ?", ids).
		Find(&recipes).Error
	if err != nil {
		return nil, translateDBError(err, "load recipes")
	}

	byID := make(map[uint]models.Recipe, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
	}
	ordered := make([]models.Recipe, 0, len(recipes))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

// readModels decorates recipes with the viewer's favorite, cart and
// subscription state, three queries regardless of page size.
func (s *RecipeService) readModels(ctx context.Context, viewerID uint, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	db := s.db.WithContext(ctx)
	recipeIDs := make([]uint, len(recipes))
	authorIDs := make([]uint, len(recipes))
	for i := range recipes {
		recipeIDs[i] = recipes[i].ID
		authorIDs[i] = recipes[i].AuthorID
	}

	favorited, err := markedRecipes(db, &models.Favorite{}, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := markedRecipes(db, &models.ShoppingCartEntry{}, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	subscribed, err := subscribedAuthors(db, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]types.RecipeResponse, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		tags := make([]types.TagResponse, len(r.Tags))
		for j, t := range r.Tags {
			tags[j] = types.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
		}
		ingredients := make([]types.RecipeIngredientResponse, len(r.Ingredients))
		for j, ri := range r.Ingredients {
			ingredients[j] = types.RecipeIngredientResponse{
				ID:              ri.IngredientID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: ri.Ingredient.MeasurementUnit,
				Amount:          ri.Amount,
			}
		}
		out[i] = types.RecipeResponse{
			ID:               r.ID,
			Tags:             tags,
			Author:           userResponse(&r.Author, subscribed[r.AuthorID]),
			Ingredients:      ingredients,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
			PubDate:          r.CreatedAt,
		}
	}
	return out, nil
}

func markedRecipes(db *gorm.DB, model interface{}, viewerID uint, recipeIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(recipeIDs))
	if viewerID == 0 || len(recipeIDs) == 0 {
		return out, nil
	}
	var ids []uint
	if err := db.Model(model).
		Where("user_id = ? AND recipe_id IN ?", viewerID, recipeIDs).
		Pluck("recipe_id", &ids).Error; err != nil {
		return nil, translateDBError(err, "load recipe marks")
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (s *RecipeService) AddFavorite(ctx context.Context, userID, recipeID uint) (*types.RecipeShort, error) {
	return s.addMark(ctx, &models.Favorite{UserID: userID, RecipeID: recipeID}, "favorites")
}

func (s *RecipeService) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	return s.removeMark(ctx, &models.Favorite{}, userID, recipeID, "favorites")
}

func (s *RecipeService) AddToCart(ctx context.Context, userID, recipeID uint) (*types.RecipeShort, error) {
	return s.addMark(ctx, &models.ShoppingCartEntry{UserID: userID, RecipeID: recipeID}, "shopping cart")
}

func (s *RecipeService) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	return s.removeMark(ctx, &models.ShoppingCartEntry{}, userID, recipeID, "shopping cart")
}

// addMark inserts a (user, recipe) row such as a favorite. A second insert
// of the same pair is a conflict, whether caught here or by the unique index.
func (s *RecipeService) addMark(ctx context.Context, mark interface{}, list string) (*types.RecipeShort, error) {
	var userID, recipeID uint
	switch m := mark.(type) {
	case *models.Favorite:
		userID, recipeID = m.UserID, m.RecipeID
	case *models.ShoppingCartEntry:
		userID, recipeID = m.UserID, m.RecipeID
	default:
		return nil, fmt.Errorf("unsupported mark %T", mark)
	}

	db := s.db.WithContext(ctx)
	var recipe models.Recipe
	if err := db.First(&recipe, recipeID).Error; err != nil {
		return nil, translateDBError(err, fmt.Sprintf("recipe %d", recipeID))
	}

	var count int64
	if err := db.Model(mark).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Count(&count).Error; err != nil {
		return nil, translateDBError(err, "check "+list)
	}
	if count > 0 {
		return nil, fmt.Errorf("recipe %d is already in %s: %w", recipeID, list, ErrConflict)
	}
	if err := db.Create(mark).Error; err != nil {
		return nil, translateDBError(err, "add to "+list)
	}

	short := recipeShort(&recipe)
	return &short, nil
}

func (s *RecipeService) removeMark(ctx context.Context, mark interface{}, userID, recipeID uint, list string) error {
	db := s.db.WithContext(ctx)
	var recipe models.Recipe
	if err := db.First(&recipe, recipeID).Error; err != nil {
		return translateDBError(err, fmt.Sprintf("recipe %d", recipeID))
	}

	res := db.Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(mark)
	if res.Error != nil {
		return translateDBError(res.Error, "remove from "+list)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("recipe %d is not in %s: %w", recipeID, list, ErrConflict)
	}
	return nil
}

func recipeShort(r *models.Recipe) types.RecipeShort {
	return types.RecipeShort{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}

func uniqueIngredientIDs(items []types.IngredientAmount) []uint {
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return uniqueIDs(ids)
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
