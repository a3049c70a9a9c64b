package shoppinglist

import (
	"context"

	"foodgram/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	ShoppingListRepository interface {
		GetCartTotals(ctx context.Context, userID uuid.UUID) ([]domain.ShoppingListItem, error)
	}

	shoppingListRepository struct {
		db *gorm.DB
	}
)

func NewShoppingListRepository(db *gorm.DB) ShoppingListRepository {
	return &shoppingListRepository{db: db}
}

// GetCartTotals sums the ingredient amounts of every recipe in the user's
// cart, grouped by (name, unit) and sorted like the catalog. It is a single
// statement, so it reads one snapshot of the cart and the compositions.
func (r *shoppingListRepository) GetCartTotals(ctx context.Context, userID uuid.UUID) ([]domain.ShoppingListItem, error) {
	items := make([]domain.ShoppingListItem, 0)
	if err := r.db.WithContext(ctx).
		Table("relations").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = relations.target_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("relations.kind = ? AND relations.user_id = ?", string(domain.RelationCart), userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name asc").
		Order("ingredients.measurement_unit asc").
		Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
