package recipe

import (
	"context"
	"errors"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	RecipeRepository interface {
		CreateRecipe(ctx context.Context, recipe *entities.Recipe, entries []domain.CompositionEntry) error
		UpdateRecipe(ctx context.Context, recipe *entities.Recipe, entries []domain.CompositionEntry) error
		ReplaceComposition(ctx context.Context, recipeID uuid.UUID, entries []domain.CompositionEntry) error
		GetComposition(ctx context.Context, recipeID uuid.UUID) ([]entities.RecipeIngredient, error)
		GetRecipeByID(ctx context.Context, id uuid.UUID) (*entities.Recipe, error)
		GetRecipes(ctx context.Context, query RecipeQuery) ([]*entities.Recipe, int64, error)
		DeleteRecipe(ctx context.Context, id uuid.UUID) error
	}

	// RecipeQuery narrows a listing. Nil ids disable the filter.
	RecipeQuery struct {
		AuthorID    *uuid.UUID
		FavoritedBy *uuid.UUID
		InCartOf    *uuid.UUID
		Page        int
		Limit       int
	}

	recipeRepository struct {
		db *gorm.DB
	}
)

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

// checkIngredients fails with a validation error unless every referenced
// ingredient exists in the catalog.
func checkIngredients(tx *gorm.DB, entries []domain.CompositionEntry) error {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.IngredientID)
	}

	var found []uuid.UUID
	if err := tx.Model(&entities.Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}

	known := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return domain.NewValidationError("ingredients", "unknown ingredient "+id.String())
		}
	}
	return nil
}

func insertEntries(tx *gorm.DB, recipeID uuid.UUID, entries []domain.CompositionEntry) error {
	rows := make([]entities.RecipeIngredient, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, entities.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: e.IngredientID,
			Amount:       e.Amount,
		})
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		if utils.IsDuplicateKey(err) {
			return domain.NewValidationError("ingredients", "ingredient is listed more than once")
		}
		return err
	}
	return nil
}

// replaceEntries swaps the whole composition of recipeID. It must run inside
// a transaction so readers never see the delete without the insert.
func replaceEntries(tx *gorm.DB, recipeID uuid.UUID, entries []domain.CompositionEntry) error {
	if err := checkIngredients(tx, entries); err != nil {
		return err
	}
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&entities.RecipeIngredient{}).Error; err != nil {
		return err
	}
	return insertEntries(tx, recipeID, entries)
}

func lockRecipe(tx *gorm.DB, id uuid.UUID) error {
	var recipe entities.Recipe
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where("id = ?", id).First(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrRecipeNotFound
	}
	return err
}

func (r *recipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe, entries []domain.CompositionEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkIngredients(tx, entries); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return err
		}
		return insertEntries(tx, recipe.ID, entries)
	})
}

func (r *recipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, entries []domain.CompositionEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRecipe(tx, recipe.ID); err != nil {
			return err
		}
		if err := tx.Model(&entities.Recipe{}).Where("id = ?", recipe.ID).Updates(map[string]any{
			"name":         recipe.Name,
			"image_url":    recipe.ImageURL,
			"text":         recipe.Text,
			"cooking_time": recipe.CookingTime,
		}).Error; err != nil {
			return err
		}
		return replaceEntries(tx, recipe.ID, entries)
	})
}

func (r *recipeRepository) ReplaceComposition(ctx context.Context, recipeID uuid.UUID, entries []domain.CompositionEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRecipe(tx, recipeID); err != nil {
			return err
		}
		return replaceEntries(tx, recipeID, entries)
	})
}

// GetComposition returns the entries of a recipe with their ingredients
// loaded, ordered by ingredient name.
func (r *recipeRepository) GetComposition(ctx context.Context, recipeID uuid.UUID) ([]entities.RecipeIngredient, error) {
	var entries []entities.RecipeIngredient
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrRecipeNotFound
		}
		return tx.Preload("Ingredient").
			Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
			Where("recipe_ingredients.recipe_id = ?", recipeID).
			Order("ingredients.name asc").
			Order("ingredients.measurement_unit asc").
			Find(&entries).Error
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *recipeRepository) GetRecipeByID(ctx context.Context, id uuid.UUID) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := r.db.WithContext(ctx).Preload("Author").Where("id = ?", id).First(&recipe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) GetRecipes(ctx context.Context, query RecipeQuery) ([]*entities.Recipe, int64, error) {
	var recipes []*entities.Recipe
	var count int64

	db := r.db.WithContext(ctx).Model(&entities.Recipe{})
	if query.AuthorID != nil {
		db = db.Where("author_id = ?", *query.AuthorID)
	}
	if query.FavoritedBy != nil {
		db = db.Where("id IN (?)", r.db.Model(&entities.Relation{}).Select("target_id").
			Where("kind = ? AND user_id = ?", string(domain.RelationFavorite), *query.FavoritedBy))
	}
	if query.InCartOf != nil {
		db = db.Where("id IN (?)", r.db.Model(&entities.Relation{}).Select("target_id").
			Where("kind = ? AND user_id = ?", string(domain.RelationCart), *query.InCartOf))
	}

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Author").
		Preload("Ingredients", func(tx *gorm.DB) *gorm.DB {
			return tx.Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
				Order("ingredients.name asc")
		}).
		Preload("Ingredients.Ingredient").
		Order("created_at desc").
		Order("id desc").
		Offset(utils.Offset(query.Page, query.Limit)).
		Limit(query.Limit).
		Find(&recipes).Error; err != nil {
		return nil, 0, err
	}
	return recipes, count, nil
}

// DeleteRecipe removes the recipe with its composition and every favorite and
// cart relation pointing at it. The recipe row is locked first: a relation
// insert holds a share lock on it, so the insert either commits before the
// cleanup runs or finds the recipe gone.
func (r *recipeRepository) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRecipe(tx, id); err != nil {
			return err
		}
		if err := tx.Where("kind IN ? AND target_id = ?",
			[]string{string(domain.RelationFavorite), string(domain.RelationCart)}, id).
			Delete(&entities.Relation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&entities.Recipe{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrRecipeNotFound
		}
		return nil
	})
}
