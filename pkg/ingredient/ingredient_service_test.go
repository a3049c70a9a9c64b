package ingredient_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/testutil"
	"foodgram/pkg/ingredient"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIngredientsOrderedByNameThenUnit(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateIngredient(t, db, "Sugar", "g")
	testutil.CreateIngredient(t, db, "Milk", "ml")
	testutil.CreateIngredient(t, db, "Milk", "g")
	svc := ingredient.NewIngredientService(ingredient.NewIngredientRepository(db))

	got, err := svc.GetIngredients(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, [][2]string{{"Milk", "g"}, {"Milk", "ml"}, {"Sugar", "g"}},
		[][2]string{
			{got[0].Name, got[0].MeasurementUnit},
			{got[1].Name, got[1].MeasurementUnit},
			{got[2].Name, got[2].MeasurementUnit},
		})
}

func TestGetIngredientByID(t *testing.T) {
	db := testutil.NewDB(t)
	flour := testutil.CreateIngredient(t, db, "Flour", "g")
	svc := ingredient.NewIngredientService(ingredient.NewIngredientRepository(db))

	got, err := svc.GetIngredientByID(context.Background(), flour.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.Ingredient{ID: flour.ID.String(), Name: "Flour", MeasurementUnit: "g"}, got)

	_, err = svc.GetIngredientByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetIngredientByID(context.Background(), "flour")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetOrCreate(t *testing.T) {
	db := testutil.NewDB(t)
	svc := ingredient.NewIngredientService(ingredient.NewIngredientRepository(db))
	ctx := context.Background()

	first, created, err := svc.GetOrCreate(ctx, "  Flour ", "g")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Flour", first.Name)

	second, created, err := svc.GetOrCreate(ctx, "Flour", "g")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	_, _, err = svc.GetOrCreate(ctx, strings.Repeat("x", 129), "g")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestConcurrentGetOrCreateKeepsOneRow(t *testing.T) {
	db := testutil.NewDB(t)
	svc := ingredient.NewIngredientService(ingredient.NewIngredientRepository(db))

	ids := make([]string, 6)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, _, err := svc.GetOrCreate(context.Background(), "Salt", "pinch")
			assert.NoError(t, err)
			ids[i] = got.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var count int64
	require.NoError(t, db.Model(&entities.Ingredient{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestLoadIngredients(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateIngredient(t, db, "Salt", "g")
	svc := ingredient.NewIngredientService(ingredient.NewIngredientRepository(db))

	input := `[
		{"name": "Salt", "measurement_unit": "g"},
		{"name": "Flour", "measurement_unit": "g"},
		{"name": "", "measurement_unit": "g"},
		{"measurement_unit": "pcs"},
		{"name": "Egg", "measurement_unit": "pcs"},
		{"name": "Flour", "measurement_unit": "g"}
	]`
	res, err := svc.LoadIngredients(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, domain.IngredientLoadResult{Total: 6, Created: 2, Skipped: 2}, res)

	all, err := svc.GetIngredients(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLoadIngredientsRejectsMalformedDocument(t *testing.T) {
	db := testutil.NewDB(t)
	svc := ingredient.NewIngredientService(ingredient.NewIngredientRepository(db))

	_, err := svc.LoadIngredients(context.Background(), strings.NewReader(`{"name": "Salt"}`))
	assert.Error(t, err)
}
