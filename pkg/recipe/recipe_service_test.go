package recipe_test

import (
	"context"
	"sync"
	"testing"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/testutil"
	"foodgram/internal/utils/imagedata"
	"foodgram/internal/utils/storage"
	"foodgram/pkg/recipe"
	"foodgram/pkg/relation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const pngDataURL = "data:image/png;base64,aGVsbG8="

type stubStore struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

var _ storage.ImageStore = (*stubStore)(nil)

func (s *stubStore) Upload(_ context.Context, folder string, img imagedata.Image) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link := "https://cdn.test/" + folder + "/" + uuid.NewString() + img.Ext
	s.uploaded = append(s.uploaded, link)
	return link, nil
}

func (s *stubStore) Delete(_ context.Context, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, link)
	return nil
}

type fixture struct {
	db        *gorm.DB
	svc       recipe.RecipeService
	relations relation.RelationService
	store     *stubStore
	author    *entities.User
	flour     *entities.Ingredient
	sugar     *entities.Ingredient
	egg       *entities.Ingredient
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	relations := relation.NewRelationService(relation.NewRelationRepository(db))
	store := &stubStore{}
	return &fixture{
		db:        db,
		svc:       recipe.NewRecipeService(recipe.NewRecipeRepository(db), relations, store),
		relations: relations,
		store:     store,
		author:    testutil.CreateUser(t, db, "alice"),
		flour:     testutil.CreateIngredient(t, db, "Flour", "g"),
		sugar:     testutil.CreateIngredient(t, db, "Sugar", "g"),
		egg:       testutil.CreateIngredient(t, db, "Egg", "pcs"),
	}
}

func writeRequest(items ...domain.RecipeIngredientRequest) domain.RecipeWriteRequest {
	return domain.RecipeWriteRequest{
		Name:        "Pancakes",
		Image:       pngDataURL,
		Text:        "Mix and fry",
		CookingTime: 20,
		Ingredients: items,
	}
}

func item(i *entities.Ingredient, amount int) domain.RecipeIngredientRequest {
	return domain.RecipeIngredientRequest{ID: i.ID.String(), Amount: amount}
}

func (f *fixture) countRows(t *testing.T, model any) int64 {
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestCreateThenGetCompositionReturnsSameEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateRecipe(ctx, writeRequest(item(f.flour, 200), item(f.sugar, 50)), f.author.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", created.Name)
	assert.Equal(t, f.author.Username, created.Author.Username)
	require.Len(t, f.store.uploaded, 1)
	assert.Equal(t, f.store.uploaded[0], created.Image)

	entries, err := f.svc.GetComposition(ctx, created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.CompositionEntry{
		{IngredientID: f.flour.ID, Amount: 200},
		{IngredientID: f.sugar.ID, Amount: 50},
	}, entries)

	again, err := f.svc.GetComposition(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}

func TestCreateRejectsRepeatedIngredient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRecipe(context.Background(),
		writeRequest(item(f.flour, 200), item(f.sugar, 50), item(f.flour, 10)), f.author.ID.String())
	require.ErrorIs(t, err, domain.ErrValidation)

	assert.Zero(t, f.countRows(t, &entities.Recipe{}))
	assert.Empty(t, f.store.uploaded)
}

func TestCreateRejectsEmptyComposition(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRecipe(context.Background(), writeRequest(), f.author.ID.String())
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, f.countRows(t, &entities.Recipe{}))
}

func TestCreateWithUnknownIngredientWritesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRecipe(context.Background(),
		writeRequest(item(f.flour, 200), domain.RecipeIngredientRequest{ID: uuid.NewString(), Amount: 5}),
		f.author.ID.String())
	require.ErrorIs(t, err, domain.ErrValidation)

	assert.Zero(t, f.countRows(t, &entities.Recipe{}))
	assert.Zero(t, f.countRows(t, &entities.RecipeIngredient{}))
	// the uploaded picture is cleaned up again
	assert.Equal(t, f.store.uploaded, f.store.deleted)
}

func TestCreateRejectsOutOfRangeValues(t *testing.T) {
	f := newFixture(t)

	req := writeRequest(item(f.flour, 200))
	req.CookingTime = 0
	_, err := f.svc.CreateRecipe(context.Background(), req, f.author.ID.String())
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.CreateRecipe(context.Background(), writeRequest(item(f.flour, 32001)), f.author.ID.String())
	assert.ErrorIs(t, err, domain.ErrValidation)

	req = writeRequest(item(f.flour, 200))
	req.Image = "not-an-image"
	_, err = f.svc.CreateRecipe(context.Background(), req, f.author.ID.String())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReplaceCompositionDropsPreviousEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateRecipe(ctx, writeRequest(item(f.flour, 200), item(f.sugar, 50)), f.author.ID.String())
	require.NoError(t, err)

	next := []domain.CompositionEntry{
		{IngredientID: f.egg.ID, Amount: 2},
		{IngredientID: f.flour.ID, Amount: 100},
	}
	require.NoError(t, f.svc.ReplaceComposition(ctx, created.ID, next, f.author.ID.String()))

	entries, err := f.svc.GetComposition(ctx, created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, next, entries)
}

func TestConcurrentReplaceIsSeenWhole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// both sets are listed in ingredient name order, as GetComposition returns them
	first := []domain.CompositionEntry{
		{IngredientID: f.flour.ID, Amount: 200},
		{IngredientID: f.sugar.ID, Amount: 50},
	}
	second := []domain.CompositionEntry{
		{IngredientID: f.egg.ID, Amount: 2},
		{IngredientID: f.flour.ID, Amount: 100},
	}

	created, err := f.svc.CreateRecipe(ctx, writeRequest(item(f.flour, 200), item(f.sugar, 50)), f.author.ID.String())
	require.NoError(t, err)

	const writers, rounds = 4, 10
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				entries := first
				if (w+i)%2 == 1 {
					entries = second
				}
				assert.NoError(t, f.svc.ReplaceComposition(ctx, created.ID, entries, f.author.ID.String()))
			}
		}(w)
	}

	done := make(chan struct{})
	var reads [][]domain.CompositionEntry
	go func() {
		defer close(done)
		for i := 0; i < writers*rounds; i++ {
			entries, err := f.svc.GetComposition(ctx, created.ID)
			if !assert.NoError(t, err) {
				return
			}
			reads = append(reads, entries)
		}
	}()

	wg.Wait()
	<-done

	require.NotEmpty(t, reads)
	for i, entries := range reads {
		assert.True(t,
			assert.ObjectsAreEqual(first, entries) || assert.ObjectsAreEqual(second, entries),
			"read %d saw a partial composition: %v", i, entries)
	}
}

func TestFailedReplaceKeepsPriorState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateRecipe(ctx, writeRequest(item(f.flour, 200), item(f.sugar, 50)), f.author.ID.String())
	require.NoError(t, err)
	before, err := f.svc.GetComposition(ctx, created.ID)
	require.NoError(t, err)

	err = f.svc.ReplaceComposition(ctx, created.ID, []domain.CompositionEntry{
		{IngredientID: f.egg.ID, Amount: 2},
		{IngredientID: uuid.New(), Amount: 1},
	}, f.author.ID.String())
	require.ErrorIs(t, err, domain.ErrValidation)

	err = f.svc.ReplaceComposition(ctx, created.ID, []domain.CompositionEntry{
		{IngredientID: f.egg.ID, Amount: 2},
		{IngredientID: f.egg.ID, Amount: 3},
	}, f.author.ID.String())
	require.ErrorIs(t, err, domain.ErrValidation)

	after, err := f.svc.GetComposition(ctx, created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, before, after)
}

func TestGetCompositionOfUnknownRecipe(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetComposition(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetComposition(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateRecipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateRecipe(ctx, writeRequest(item(f.flour, 200)), f.author.ID.String())
	require.NoError(t, err)

	req := writeRequest(item(f.egg, 3))
	req.Name = "Omelette"
	req.Image = created.Image
	updated, err := f.svc.UpdateRecipe(ctx, created.ID, req, f.author.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Omelette", updated.Name)
	assert.Equal(t, created.Image, updated.Image)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, domain.RecipeIngredient{ID: f.egg.ID.String(), Name: "Egg", MeasurementUnit: "pcs", Amount: 3}, updated.Ingredients[0])
	assert.Empty(t, f.store.deleted)

	req.Image = pngDataURL
	updated, err = f.svc.UpdateRecipe(ctx, created.ID, req, f.author.ID.String())
	require.NoError(t, err)
	assert.NotEqual(t, created.Image, updated.Image)
	assert.Equal(t, []string{created.Image}, f.store.deleted)
}

func TestOnlyAuthorMayModify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := testutil.CreateUser(t, f.db, "bob")

	created, err := f.svc.CreateRecipe(ctx, writeRequest(item(f.flour, 200)), f.author.ID.String())
	require.NoError(t, err)

	_, err = f.svc.UpdateRecipe(ctx, created.ID, writeRequest(item(f.egg, 1)), bob.ID.String())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = f.svc.ReplaceComposition(ctx, created.ID, []domain.CompositionEntry{{IngredientID: f.egg.ID, Amount: 1}}, bob.ID.String())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.ErrorIs(t, f.svc.DeleteRecipe(ctx, created.ID, bob.ID.String()), domain.ErrForbidden)
}

func TestDeleteRemovesCompositionAndRelations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := testutil.CreateUser(t, f.db, "bob")

	created, err := f.svc.CreateRecipe(ctx, writeRequest(item(f.flour, 200), item(f.egg, 2)), f.author.ID.String())
	require.NoError(t, err)

	_, err = f.svc.AddRelation(ctx, domain.RelationFavorite, created.ID, bob.ID.String())
	require.NoError(t, err)
	_, err = f.svc.AddRelation(ctx, domain.RelationCart, created.ID, bob.ID.String())
	require.NoError(t, err)
	_, err = f.relations.Add(ctx, domain.RelationSubscription, bob.ID.String(), f.author.ID.String())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRecipe(ctx, created.ID, f.author.ID.String()))

	assert.Zero(t, f.countRows(t, &entities.Recipe{}))
	assert.Zero(t, f.countRows(t, &entities.RecipeIngredient{}))
	// only the subscription survives
	assert.EqualValues(t, 1, f.countRows(t, &entities.Relation{}))

	_, err = f.svc.GetRecipe(ctx, created.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetRecipeFlagsForViewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := testutil.CreateUser(t, f.db, "bob")

	created, err := f.svc.CreateRecipe(ctx, writeRequest(item(f.sugar, 50), item(f.flour, 200)), f.author.ID.String())
	require.NoError(t, err)

	short, err := f.svc.AddRelation(ctx, domain.RelationFavorite, created.ID, bob.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.RecipeShort{ID: created.ID, Name: "Pancakes", Image: created.Image, CookingTime: 20}, short)

	got, err := f.svc.GetRecipe(ctx, created.ID, bob.ID.String())
	require.NoError(t, err)
	assert.True(t, got.IsFavorited)
	assert.False(t, got.IsInShoppingCart)
	// ingredients come back in catalog order
	require.Len(t, got.Ingredients, 2)
	assert.Equal(t, "Flour", got.Ingredients[0].Name)
	assert.Equal(t, "Sugar", got.Ingredients[1].Name)

	anon, err := f.svc.GetRecipe(ctx, created.ID, "")
	require.NoError(t, err)
	assert.False(t, anon.IsFavorited)

	require.NoError(t, f.svc.RemoveRelation(ctx, domain.RelationFavorite, created.ID, bob.ID.String()))
	err = f.svc.RemoveRelation(ctx, domain.RelationFavorite, created.ID, bob.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.AddRelation(ctx, domain.RelationSubscription, created.ID, bob.ID.String())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetRecipesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := testutil.CreateUser(t, f.db, "bob")

	a, err := f.svc.CreateRecipe(ctx, writeRequest(item(f.flour, 1)), f.author.ID.String())
	require.NoError(t, err)
	b, err := f.svc.CreateRecipe(ctx, writeRequest(item(f.sugar, 1)), f.author.ID.String())
	require.NoError(t, err)
	own, err := f.svc.CreateRecipe(ctx, writeRequest(item(f.egg, 1)), bob.ID.String())
	require.NoError(t, err)

	_, err = f.svc.AddRelation(ctx, domain.RelationCart, a.ID, bob.ID.String())
	require.NoError(t, err)
	_, err = f.svc.AddRelation(ctx, domain.RelationFavorite, b.ID, bob.ID.String())
	require.NoError(t, err)

	all, err := f.svc.GetRecipes(ctx, domain.RecipeFilter{}, bob.ID.String())
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Pagination.Total)
	assert.Equal(t, recipe.DefaultPageLimit, all.Pagination.Limit)

	byAuthor, err := f.svc.GetRecipes(ctx, domain.RecipeFilter{AuthorID: bob.ID.String()}, "")
	require.NoError(t, err)
	require.Len(t, byAuthor.Recipes, 1)
	assert.Equal(t, own.ID, byAuthor.Recipes[0].ID)

	inCart, err := f.svc.GetRecipes(ctx, domain.RecipeFilter{IsInShoppingCart: true}, bob.ID.String())
	require.NoError(t, err)
	require.Len(t, inCart.Recipes, 1)
	assert.Equal(t, a.ID, inCart.Recipes[0].ID)
	assert.True(t, inCart.Recipes[0].IsInShoppingCart)
	require.Len(t, inCart.Recipes[0].Ingredients, 1)
	assert.Equal(t, "Flour", inCart.Recipes[0].Ingredients[0].Name)

	favorites, err := f.svc.GetRecipes(ctx, domain.RecipeFilter{IsFavorited: true}, bob.ID.String())
	require.NoError(t, err)
	require.Len(t, favorites.Recipes, 1)
	assert.Equal(t, b.ID, favorites.Recipes[0].ID)

	// anonymous viewers cannot filter by their own relations
	anon, err := f.svc.GetRecipes(ctx, domain.RecipeFilter{IsFavorited: true}, "")
	require.NoError(t, err)
	assert.Len(t, anon.Recipes, 3)

	paged, err := f.svc.GetRecipes(ctx, domain.RecipeFilter{Page: 2, Limit: 2}, "")
	require.NoError(t, err)
	assert.Len(t, paged.Recipes, 1)
	assert.EqualValues(t, 2, paged.Pagination.TotalPages)
}
