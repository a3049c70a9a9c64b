package domain

var (
	MessageSuccessGetIngredients = "success get ingredients"
	MessageSuccessGetIngredient  = "success get ingredient"

	MessageFailedGetIngredients = "failed to get ingredients"
	MessageFailedGetIngredient  = "failed to get ingredient"

	ErrIngredientNotFound = NotFoundError("ingredient not found")
)

type (
	Ingredient struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
	}

	// IngredientSeed is one element of the catalog JSON file.
	IngredientSeed struct {
		Name            *string `json:"name"`
		MeasurementUnit *string `json:"measurement_unit"`
	}

	IngredientLoadResult struct {
		Total   int `json:"total"`
		Created int `json:"created"`
		Skipped int `json:"skipped"`
	}
)
