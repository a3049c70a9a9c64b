// Package validation holds the bound checks shared by the recipe, ingredient
// and user services. Every check is a pure function: nil means the input
// passed, otherwise the returned *domain.ValidationError names the field and
// the reason.
package validation

import (
	"fmt"
	"unicode/utf8"

	"foodgram/domain"

	"github.com/google/uuid"
)

const (
	MinCookingTime = 1
	MaxCookingTime = 32000

	MinAmount = 1
	MaxAmount = 32000

	IngredientNameMaxLength  = 128
	MeasurementUnitMaxLength = 64
	RecipeNameMaxLength      = 256
	UserNameMaxLength        = 150
	EmailMaxLength           = 254
)

func CookingTime(minutes int) error {
	if minutes < MinCookingTime || minutes > MaxCookingTime {
		return domain.NewValidationError("cooking_time",
			fmt.Sprintf("must be between %d and %d minutes", MinCookingTime, MaxCookingTime))
	}
	return nil
}

func Amount(amount int) error {
	if amount < MinAmount || amount > MaxAmount {
		return domain.NewValidationError("amount",
			fmt.Sprintf("must be between %d and %d", MinAmount, MaxAmount))
	}
	return nil
}

// StringLength checks that s is non-empty and at most max characters long.
func StringLength(field, s string, max int) error {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return domain.NewValidationError(field, "must not be empty")
	}
	if n > max {
		return domain.NewValidationError(field, fmt.Sprintf("must be at most %d characters", max))
	}
	return nil
}

// DuplicateIngredients reports the first ingredient id that appears more than
// once in entries.
func DuplicateIngredients(entries []domain.CompositionEntry) error {
	seen := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.IngredientID]; ok {
			return domain.NewValidationError("ingredients",
				fmt.Sprintf("ingredient %s is listed more than once", e.IngredientID))
		}
		seen[e.IngredientID] = struct{}{}
	}
	return nil
}

// Composition validates a full entry list: at least one entry, no repeated
// ingredient and every amount in range.
func Composition(entries []domain.CompositionEntry) error {
	if len(entries) == 0 {
		return domain.NewValidationError("ingredients", "at least one ingredient is required")
	}
	if err := DuplicateIngredients(entries); err != nil {
		return err
	}
	for _, e := range entries {
		if e.IngredientID == uuid.Nil {
			return domain.NewValidationError("ingredients", "ingredient id is required")
		}
		if err := Amount(e.Amount); err != nil {
			return err
		}
	}
	return nil
}

// RecipeFields validates the scalar attributes of a recipe.
func RecipeFields(f domain.RecipeFields) error {
	if err := StringLength("name", f.Name, RecipeNameMaxLength); err != nil {
		return err
	}
	if f.Text == "" {
		return domain.NewValidationError("text", "must not be empty")
	}
	if f.ImageURL == "" {
		return domain.NewValidationError("image", "must not be empty")
	}
	return CookingTime(f.CookingTime)
}

// Ingredient validates a catalog (name, unit) pair.
func Ingredient(name, unit string) error {
	if err := StringLength("name", name, IngredientNameMaxLength); err != nil {
		return err
	}
	return StringLength("measurement_unit", unit, MeasurementUnitMaxLength)
}
