package domain

import (
	"time"

	"github.com/google/uuid"
)

var (
	MessageSuccessGetRecipes       = "success get recipes"
	MessageSuccessGetRecipeDetail  = "success get recipe detail"
	MessageSuccessCreateRecipe     = "recipe created successfully"
	MessageSuccessUpdateRecipe     = "recipe updated successfully"
	MessageSuccessDeleteRecipe     = "recipe deleted successfully"
	MessageSuccessAddFavorite      = "recipe added to favorites"
	MessageSuccessRemoveFavorite   = "recipe removed from favorites"
	MessageSuccessAddShoppingCart  = "recipe added to shopping cart"
	MessageSuccessRemoveFromCart   = "recipe removed from shopping cart"
	MessageSuccessSendShoppingList = "shopping list sent successfully"

	MessageFailedGetRecipes        = "failed to get recipes"
	MessageFailedGetRecipeDetail   = "failed to get recipe detail"
	MessageFailedCreateRecipe      = "failed to create recipe"
	MessageFailedUpdateRecipe      = "failed to update recipe"
	MessageFailedDeleteRecipe      = "failed to delete recipe"
	MessageFailedAddFavorite       = "failed to add recipe to favorites"
	MessageFailedRemoveFavorite    = "failed to remove recipe from favorites"
	MessageFailedAddShoppingCart   = "failed to add recipe to shopping cart"
	MessageFailedRemoveFromCart    = "failed to remove recipe from shopping cart"
	MessageFailedGetShoppingList   = "failed to build shopping list"
	MessageFailedSendShoppingList  = "failed to send shopping list"
	MessageFailedUploadRecipeImage = "failed to upload recipe image"

	ErrRecipeNotFound           = NotFoundError("recipe not found")
	ErrUnauthorizedRecipeAccess = ForbiddenError("only the author can modify the recipe")
)

type (
	// CompositionEntry is one (ingredient, amount) pair of a recipe.
	CompositionEntry struct {
		IngredientID uuid.UUID
		Amount       int
	}

	// RecipeFields are the scalar recipe attributes accepted on create and update.
	RecipeFields struct {
		Name        string
		ImageURL    string
		Text        string
		CookingTime int
	}

	RecipeIngredientRequest struct {
		ID     string `json:"id" validate:"required,uuid"`
		Amount int    `json:"amount" validate:"required,min=1,max=32000"`
	}

	RecipeWriteRequest struct {
		Name        string                    `json:"name" validate:"required,max=256"`
		Image       string                    `json:"image" validate:"required"`
		Text        string                    `json:"text" validate:"required"`
		CookingTime int                       `json:"cooking_time" validate:"required,min=1,max=32000"`
		Ingredients []RecipeIngredientRequest `json:"ingredients" validate:"required,min=1,dive"`
	}

	CompositionRequest struct {
		Ingredients []RecipeIngredientRequest `json:"ingredients" validate:"required,min=1,dive"`
	}

	RecipeFilter struct {
		AuthorID         string
		IsFavorited      bool
		IsInShoppingCart bool
		Page             int
		Limit            int
	}

	RecipeIngredient struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	Recipe struct {
		ID               string             `json:"id"`
		Author           *UserProfile       `json:"author"`
		Name             string             `json:"name"`
		Image            string             `json:"image"`
		Text             string             `json:"text"`
		CookingTime      int                `json:"cooking_time"`
		Ingredients      []RecipeIngredient `json:"ingredients"`
		IsFavorited      bool               `json:"is_favorited"`
		IsInShoppingCart bool               `json:"is_in_shopping_cart"`
		CreatedAt        time.Time          `json:"created_at"`
	}

	RecipeShort struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}

	RecipeListResponse struct {
		Recipes    []Recipe   `json:"recipes"`
		Pagination Pagination `json:"pagination"`
	}
)
