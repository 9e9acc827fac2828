package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
)

const (
	// ingredientCacheSize bounds the number of distinct search terms kept.
	ingredientCacheSize = 512
	// ingredientCacheTTL bounds how long an import by another process
	// (cmd/import) stays invisible to a running server.
	ingredientCacheTTL = time.Minute
)

// MealTags are the tags every installation starts with.
var MealTags = []models.Tag{
	{Name: "Завтрак", Color: "#FCEB97", Slug: "breakfast"},
	{Name: "Обед", Color: "#6BB324", Slug: "lunch"},
	{Name: "Ужин", Color: "#DC6C14", Slug: "dinner"},
}

// CatalogService serves the read-only tag and ingredient reference data.
type CatalogService struct {
	db    *gorm.DB
	cache *expirable.LRU[string, []models.Ingredient]
	log   *logger.Logger
}

var _ ICatalogService = (*CatalogService)(nil)

func NewCatalogService(db *gorm.DB, log *logger.Logger) *CatalogService {
	return newCatalogService(db, log, ingredientCacheTTL)
}

func newCatalogService(db *gorm.DB, log *logger.Logger, ttl time.Duration) *CatalogService {
	return &CatalogService{
		db:    db,
		cache: expirable.NewLRU[string, []models.Ingredient](ingredientCacheSize, nil, ttl),
		log:   log.With("service", "catalog"),
	}
}

func (s *CatalogService) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, translateDBError(err, "list tags")
	}
	return tags, nil
}

func (s *CatalogService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, translateDBError(err, fmt.Sprintf("tag %d", id))
	}
	return &tag, nil
}

func (s *CatalogService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ing models.Ingredient
	if err := s.db.WithContext(ctx).First(&ing, id).Error; err != nil {
		return nil, translateDBError(err, fmt.Sprintf("ingredient %d", id))
	}
	return &ing, nil
}

// ListIngredients returns ingredients whose name contains name, those that
// start with it first. Each group is sorted by name.
func (s *CatalogService) ListIngredients(ctx context.Context, name string) ([]models.Ingredient, error) {
	term := strings.ToLower(strings.TrimSpace(name))
	if cached, ok := s.cache.Get(term); ok {
		metrics.IngredientCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.IngredientCacheLookups.WithLabelValues("miss").Inc()

	q := s.db.WithContext(ctx).Order("name").Order("id")
	if term != "" {
		q = q.Where(containsCondition(s.db, "name"), containsPattern(term))
	}
	var found []models.Ingredient
	if err := q.Find(&found).Error; err != nil {
		return nil, translateDBError(err, "search ingredients")
	}

	// Rank prefix matches ahead of the rest without disturbing name order.
	sort.SliceStable(found, func(i, j int) bool {
		pi := strings.HasPrefix(strings.ToLower(found[i].Name), term)
		pj := strings.HasPrefix(strings.ToLower(found[j].Name), term)
		return pi && !pj
	})

	// A miss may be filled by a later import, so only hits are kept.
	if len(found) > 0 {
		s.cache.Add(term, found)
	}
	return found, nil
}

// ImportIngredients loads "name,measurement_unit" rows, skipping pairs that
// already exist. A leading header row is ignored. It returns the number of
// ingredients inserted.
func (s *CatalogService) ImportIngredients(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var batch []models.Ingredient
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read ingredients csv: %w", err)
		}
		line++
		if len(record) < 2 {
			return 0, fmt.Errorf("ingredients csv line %d: expected name and measurement unit", line)
		}
		name, unit := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if line == 1 && name == "name" && unit == "measurement_unit" {
			continue
		}
		if name == "" || unit == "" {
			continue
		}
		batch = append(batch, models.Ingredient{Name: name, MeasurementUnit: unit})
	}
	if len(batch) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&batch, 500)
	if res.Error != nil {
		return 0, translateDBError(res.Error, "import ingredients")
	}

	s.cache.Purge()
	s.log.Info("ingredients imported", "rows", len(batch), "inserted", res.RowsAffected)
	return int(res.RowsAffected), nil
}

// SeedTags inserts the meal tags that are missing and returns how many were added.
func (s *CatalogService) SeedTags(ctx context.Context) (int, error) {
	tags := make([]models.Tag, len(MealTags))
	copy(tags, MealTags)

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tags)
	if res.Error != nil {
		return 0, translateDBError(res.Error, "seed tags")
	}
	return int(res.RowsAffected), nil
}
