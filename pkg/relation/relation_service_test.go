package relation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/testutil"
	"foodgram/pkg/recipe"
	"foodgram/pkg/relation"
	"foodgram/pkg/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteAddTwiceConflicts(t *testing.T) {
	db := testutil.NewDB(t)
	svc := relation.NewRelationService(relation.NewRelationRepository(db))
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	recipe := testutil.CreateRecipe(t, db, alice, "pancakes", nil)

	rel, err := svc.Add(ctx, domain.RelationFavorite, alice.ID.String(), recipe.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.RelationFavorite, rel.Kind)
	assert.Equal(t, recipe.ID, rel.TargetID)

	_, err = svc.Add(ctx, domain.RelationFavorite, alice.ID.String(), recipe.ID.String())
	assert.ErrorIs(t, err, domain.ErrConflict)

	// the same pair under another kind is a different relation
	_, err = svc.Add(ctx, domain.RelationCart, alice.ID.String(), recipe.ID.String())
	assert.NoError(t, err)
}

func TestRemoveSucceedsExactlyOnce(t *testing.T) {
	db := testutil.NewDB(t)
	svc := relation.NewRelationService(relation.NewRelationRepository(db))
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	recipe := testutil.CreateRecipe(t, db, alice, "pancakes", nil)

	_, err := svc.Add(ctx, domain.RelationFavorite, alice.ID.String(), recipe.ID.String())
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, domain.RelationFavorite, alice.ID.String(), recipe.ID.String()))
	err = svc.Remove(ctx, domain.RelationFavorite, alice.ID.String(), recipe.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	exists, err := svc.Exists(ctx, domain.RelationFavorite, alice.ID.String(), recipe.ID.String())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSelfSubscriptionIsRejected(t *testing.T) {
	db := testutil.NewDB(t)
	svc := relation.NewRelationService(relation.NewRelationRepository(db))

	alice := testutil.CreateUser(t, db, "alice")
	_, err := svc.Add(context.Background(), domain.RelationSubscription, alice.ID.String(), alice.ID.String())
	require.ErrorIs(t, err, domain.ErrValidation)

	var count int64
	require.NoError(t, db.Model(&entities.Relation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubscribeToAnotherUser(t *testing.T) {
	db := testutil.NewDB(t)
	svc := relation.NewRelationService(relation.NewRelationRepository(db))
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	_, err := svc.Add(ctx, domain.RelationSubscription, alice.ID.String(), bob.ID.String())
	require.NoError(t, err)

	exists, err := svc.Exists(ctx, domain.RelationSubscription, alice.ID.String(), bob.ID.String())
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.Exists(ctx, domain.RelationSubscription, bob.ID.String(), alice.ID.String())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMissingTargetIsNotFound(t *testing.T) {
	db := testutil.NewDB(t)
	svc := relation.NewRelationService(relation.NewRelationRepository(db))
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")

	_, err := svc.Add(ctx, domain.RelationCart, alice.ID.String(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)

	_, err = svc.Add(ctx, domain.RelationSubscription, alice.ID.String(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.Add(ctx, domain.RelationKind("bookmark"), alice.ID.String(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestConcurrentDuplicateAddsLeaveOneRow(t *testing.T) {
	db := testutil.NewDB(t)
	svc := relation.NewRelationService(relation.NewRelationRepository(db))

	alice := testutil.CreateUser(t, db, "alice")
	recipe := testutil.CreateRecipe(t, db, alice, "pancakes", nil)

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Add(context.Background(), domain.RelationCart, alice.ID.String(), recipe.ID.String())
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, domain.ErrConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)

	var count int64
	require.NoError(t, db.Model(&entities.Relation{}).Where("kind = ?", "cart").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestExistingTargets(t *testing.T) {
	db := testutil.NewDB(t)
	svc := relation.NewRelationService(relation.NewRelationRepository(db))
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	a := testutil.CreateRecipe(t, db, alice, "a", nil)
	b := testutil.CreateRecipe(t, db, alice, "b", nil)

	_, err := svc.Add(ctx, domain.RelationFavorite, alice.ID.String(), a.ID.String())
	require.NoError(t, err)

	found, err := svc.ExistingTargets(ctx, domain.RelationFavorite, alice.ID.String(), []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.True(t, found[a.ID])
	assert.False(t, found[b.ID])
}

func TestRelationsDoNotOutliveDeletedRecipe(t *testing.T) {
	db := testutil.NewDB(t)
	svc := relation.NewRelationService(relation.NewRelationRepository(db))
	recipes := recipe.NewRecipeRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	target := testutil.CreateRecipe(t, db, alice, "pancakes", nil)

	const shoppers = 8
	users := make([]*entities.User, shoppers)
	for i := range users {
		users[i] = testutil.CreateUser(t, db, fmt.Sprintf("shopper%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, shoppers)
	for i, u := range users {
		wg.Add(1)
		go func(i int, u *entities.User) {
			defer wg.Done()
			_, errs[i] = svc.Add(ctx, domain.RelationCart, u.ID.String(), target.ID.String())
		}(i, u)
	}
	var deleteErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		deleteErr = recipes.DeleteRecipe(ctx, target.ID)
	}()
	wg.Wait()

	require.NoError(t, deleteErr)
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
		}
	}

	var count int64
	require.NoError(t, db.Model(&entities.Relation{}).Where("target_id = ?", target.ID).Count(&count).Error)
	assert.Zero(t, count)

	_, err := svc.Add(ctx, domain.RelationCart, alice.ID.String(), target.ID.String())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestSubscribeToDeletedUser(t *testing.T) {
	db := testutil.NewDB(t)
	svc := relation.NewRelationService(relation.NewRelationRepository(db))
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	require.NoError(t, user.NewUserRepository(db).DeleteUser(ctx, bob.ID))

	_, err := svc.Add(ctx, domain.RelationSubscription, alice.ID.String(), bob.ID.String())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	var count int64
	require.NoError(t, db.Model(&entities.Relation{}).Count(&count).Error)
	assert.Zero(t, count)
}
