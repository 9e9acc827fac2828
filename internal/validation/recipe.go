package validation

import (
	"fmt"
	"strconv"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// ValidateRecipe checks a recipe payload and returns every violation found,
// or nil. The ingredient and tag rules run in a fixed order and do not stop
// at the first failure.
func ValidateRecipe(req *types.RecipeRequest, mode types.WriteMode) FieldErrors {
	errs := FieldErrors{}
	if structErrs := ValidateStruct(req); structErrs != nil {
		errs.Merge(structErrs)
	}

	if len(req.Ingredients) == 0 {
		errs.Add("ingredients", "at least one ingredient is required")
	}

	seen := make(map[uint]struct{}, len(req.Ingredients))
	var dupes []uint
	for _, item := range req.Ingredients {
		if _, ok := seen[item.ID]; ok {
			dupes = append(dupes, item.ID)
			continue
		}
		seen[item.ID] = struct{}{}
	}
	if len(dupes) > 0 {
		errs.Add("ingredient", fmt.Sprintf("duplicate ingredient ids: %v", dupes))
	}

	for _, item := range req.Ingredients {
		if _, err := ParseAmount(item.Amount.String()); err != nil {
			errs.Add("amount", fmt.Sprintf("ingredient %d: %v", item.ID, err))
		}
	}

	if len(req.Tags) == 0 {
		errs.Add("tags", "at least one tag is required")
	}
	tagSeen := make(map[uint]struct{}, len(req.Tags))
	for _, id := range req.Tags {
		if _, ok := tagSeen[id]; ok {
			errs.Add("tags", fmt.Sprintf("duplicate tag id %d", id))
			continue
		}
		tagSeen[id] = struct{}{}
	}

	if mode == types.ModeCreate && req.Image == "" {
		errs.Add("image", "an image is required")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ParseAmount accepts only whole numbers within the allowed amount range.
func ParseAmount(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("amount must be a whole number, got %q", raw)
	}
	if n < models.MinAmount {
		return 0, fmt.Errorf("amount must be at least %d", models.MinAmount)
	}
	if n > models.MaxAmount {
		return 0, fmt.Errorf("amount must be at most %d", models.MaxAmount)
	}
	return n, nil
}
