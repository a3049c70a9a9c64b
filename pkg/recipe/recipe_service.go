package recipe

import (
	"context"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/utils/imagedata"
	"foodgram/internal/utils/storage"
	"foodgram/pkg/relation"
	"foodgram/pkg/validation"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

const DefaultPageLimit = 6

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, req domain.RecipeWriteRequest, userID string) (domain.Recipe, error)
		UpdateRecipe(ctx context.Context, id string, req domain.RecipeWriteRequest, userID string) (domain.Recipe, error)
		DeleteRecipe(ctx context.Context, id string, userID string) error
		GetRecipe(ctx context.Context, id string, viewerID string) (domain.Recipe, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string) (domain.RecipeListResponse, error)
		GetComposition(ctx context.Context, id string) ([]domain.CompositionEntry, error)
		ReplaceComposition(ctx context.Context, id string, entries []domain.CompositionEntry, userID string) error
		AddRelation(ctx context.Context, kind domain.RelationKind, id string, userID string) (domain.RecipeShort, error)
		RemoveRelation(ctx context.Context, kind domain.RelationKind, id string, userID string) error
	}

	recipeService struct {
		recipeRepository RecipeRepository
		relationService  relation.RelationService
		images           storage.ImageStore
	}
)

func NewRecipeService(recipeRepository RecipeRepository, relationService relation.RelationService, images storage.ImageStore) RecipeService {
	return &recipeService{
		recipeRepository: recipeRepository,
		relationService:  relationService,
		images:           images,
	}
}

func parseRecipeID(id string) (uuid.UUID, error) {
	recipeID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, domain.ErrRecipeNotFound
	}
	return recipeID, nil
}

func toEntries(items []domain.RecipeIngredientRequest) ([]domain.CompositionEntry, error) {
	entries := make([]domain.CompositionEntry, 0, len(items))
	for _, item := range items {
		id, err := uuid.Parse(item.ID)
		if err != nil {
			return nil, domain.NewValidationError("ingredients", "invalid ingredient id "+item.ID)
		}
		entries = append(entries, domain.CompositionEntry{IngredientID: id, Amount: item.Amount})
	}
	return entries, nil
}

// prepare validates a write request and returns its entries. The image is
// only checked for presence here; it is decoded on upload.
func prepare(req domain.RecipeWriteRequest) ([]domain.CompositionEntry, error) {
	entries, err := toEntries(req.Ingredients)
	if err != nil {
		return nil, err
	}
	if err := validation.Composition(entries); err != nil {
		return nil, err
	}
	if err := validation.RecipeFields(domain.RecipeFields{
		Name:        req.Name,
		ImageURL:    req.Image,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *recipeService) uploadImage(ctx context.Context, dataURL string) (string, error) {
	img, err := imagedata.Decode(dataURL)
	if err != nil {
		return "", err
	}
	return s.images.Upload(ctx, "recipes", img)
}

func (s *recipeService) dropImage(ctx context.Context, link string) {
	if err := s.images.Delete(ctx, link); err != nil {
		log.Warnf("failed to delete image %s: %v", link, err)
	}
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.RecipeWriteRequest, userID string) (domain.Recipe, error) {
	authorID, err := uuid.Parse(userID)
	if err != nil {
		return domain.Recipe{}, domain.ErrParseUUID
	}

	entries, err := prepare(req)
	if err != nil {
		return domain.Recipe{}, err
	}

	imageURL, err := s.uploadImage(ctx, req.Image)
	if err != nil {
		return domain.Recipe{}, err
	}

	recipe := &entities.Recipe{
		AuthorID:    authorID,
		Name:        req.Name,
		ImageURL:    imageURL,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}
	if err := s.recipeRepository.CreateRecipe(ctx, recipe, entries); err != nil {
		s.dropImage(ctx, imageURL)
		return domain.Recipe{}, err
	}

	return s.GetRecipe(ctx, recipe.ID.String(), userID)
}

// UpdateRecipe replaces the fields and the whole composition. A data URL in
// Image uploads a new picture; any other value keeps the current one.
func (s *recipeService) UpdateRecipe(ctx context.Context, id string, req domain.RecipeWriteRequest, userID string) (domain.Recipe, error) {
	recipe, err := s.authorRecipe(ctx, id, userID)
	if err != nil {
		return domain.Recipe{}, err
	}

	entries, err := prepare(req)
	if err != nil {
		return domain.Recipe{}, err
	}

	oldImage := recipe.ImageURL
	if imagedata.IsDataURL(req.Image) {
		imageURL, err := s.uploadImage(ctx, req.Image)
		if err != nil {
			return domain.Recipe{}, err
		}
		recipe.ImageURL = imageURL
	}
	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, entries); err != nil {
		if recipe.ImageURL != oldImage {
			s.dropImage(ctx, recipe.ImageURL)
		}
		return domain.Recipe{}, err
	}
	if recipe.ImageURL != oldImage {
		s.dropImage(ctx, oldImage)
	}

	return s.GetRecipe(ctx, id, userID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, id string, userID string) error {
	recipe, err := s.authorRecipe(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.recipeRepository.DeleteRecipe(ctx, recipe.ID); err != nil {
		return err
	}
	s.dropImage(ctx, recipe.ImageURL)
	return nil
}

func (s *recipeService) authorRecipe(ctx context.Context, id string, userID string) (*entities.Recipe, error) {
	recipeID, err := parseRecipeID(id)
	if err != nil {
		return nil, err
	}
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID.String() != userID {
		return nil, domain.ErrUnauthorizedRecipeAccess
	}
	return recipe, nil
}

func (s *recipeService) GetRecipe(ctx context.Context, id string, viewerID string) (domain.Recipe, error) {
	recipeID, err := parseRecipeID(id)
	if err != nil {
		return domain.Recipe{}, err
	}

	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return domain.Recipe{}, err
	}
	recipe.Ingredients, err = s.recipeRepository.GetComposition(ctx, recipeID)
	if err != nil {
		return domain.Recipe{}, err
	}

	res := toRecipe(recipe)
	if viewerID == "" {
		return res, nil
	}

	if res.IsFavorited, err = s.relationService.Exists(ctx, domain.RelationFavorite, viewerID, id); err != nil {
		return domain.Recipe{}, err
	}
	if res.IsInShoppingCart, err = s.relationService.Exists(ctx, domain.RelationCart, viewerID, id); err != nil {
		return domain.Recipe{}, err
	}
	if res.Author != nil && res.Author.ID != viewerID {
		if res.Author.IsSubscribed, err = s.relationService.Exists(ctx, domain.RelationSubscription, viewerID, res.Author.ID); err != nil {
			return domain.Recipe{}, err
		}
	}
	return res, nil
}

// GetRecipes lists recipes newest first. The favorite and cart filters only
// apply to a signed-in viewer and are ignored otherwise.
func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string) (domain.RecipeListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultPageLimit
	}

	query := RecipeQuery{Page: filter.Page, Limit: filter.Limit}
	if filter.AuthorID != "" {
		authorID, err := uuid.Parse(filter.AuthorID)
		if err != nil {
			return domain.RecipeListResponse{}, domain.NewValidationError("author", "invalid author id")
		}
		query.AuthorID = &authorID
	}

	var viewer uuid.UUID
	if viewerID != "" {
		var err error
		if viewer, err = uuid.Parse(viewerID); err != nil {
			return domain.RecipeListResponse{}, domain.ErrParseUUID
		}
		if filter.IsFavorited {
			query.FavoritedBy = &viewer
		}
		if filter.IsInShoppingCart {
			query.InCartOf = &viewer
		}
	}

	recipes, count, err := s.recipeRepository.GetRecipes(ctx, query)
	if err != nil {
		return domain.RecipeListResponse{}, err
	}

	res := domain.RecipeListResponse{
		Recipes:    make([]domain.Recipe, 0, len(recipes)),
		Pagination: domain.NewPagination(filter.Page, filter.Limit, count),
	}

	ids := make([]uuid.UUID, 0, len(recipes))
	authorIDs := make([]uuid.UUID, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
		authorIDs = append(authorIDs, r.AuthorID)
	}

	var favorites, cart, subscriptions map[uuid.UUID]bool
	if viewerID != "" {
		if favorites, err = s.relationService.ExistingTargets(ctx, domain.RelationFavorite, viewerID, ids); err != nil {
			return domain.RecipeListResponse{}, err
		}
		if cart, err = s.relationService.ExistingTargets(ctx, domain.RelationCart, viewerID, ids); err != nil {
			return domain.RecipeListResponse{}, err
		}
		if subscriptions, err = s.relationService.ExistingTargets(ctx, domain.RelationSubscription, viewerID, authorIDs); err != nil {
			return domain.RecipeListResponse{}, err
		}
	}

	for _, r := range recipes {
		item := toRecipe(r)
		item.IsFavorited = favorites[r.ID]
		item.IsInShoppingCart = cart[r.ID]
		if item.Author != nil {
			item.Author.IsSubscribed = subscriptions[r.AuthorID]
		}
		res.Recipes = append(res.Recipes, item)
	}
	return res, nil
}

func (s *recipeService) GetComposition(ctx context.Context, id string) ([]domain.CompositionEntry, error) {
	recipeID, err := parseRecipeID(id)
	if err != nil {
		return nil, err
	}
	rows, err := s.recipeRepository.GetComposition(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.CompositionEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.CompositionEntry{IngredientID: row.IngredientID, Amount: row.Amount})
	}
	return entries, nil
}

func (s *recipeService) ReplaceComposition(ctx context.Context, id string, entries []domain.CompositionEntry, userID string) error {
	recipe, err := s.authorRecipe(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := validation.Composition(entries); err != nil {
		return err
	}
	return s.recipeRepository.ReplaceComposition(ctx, recipe.ID, entries)
}

// AddRelation puts the recipe into the user's favorites or cart.
func (s *recipeService) AddRelation(ctx context.Context, kind domain.RelationKind, id string, userID string) (domain.RecipeShort, error) {
	if !kind.TargetsRecipe() {
		return domain.RecipeShort{}, domain.ErrUnknownRelationKind
	}
	recipeID, err := parseRecipeID(id)
	if err != nil {
		return domain.RecipeShort{}, err
	}
	if _, err := s.relationService.Add(ctx, kind, userID, id); err != nil {
		return domain.RecipeShort{}, err
	}

	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return domain.RecipeShort{}, err
	}
	return toRecipeShort(recipe), nil
}

func (s *recipeService) RemoveRelation(ctx context.Context, kind domain.RelationKind, id string, userID string) error {
	if !kind.TargetsRecipe() {
		return domain.ErrUnknownRelationKind
	}
	return s.relationService.Remove(ctx, kind, userID, id)
}

func toRecipe(r *entities.Recipe) domain.Recipe {
	res := domain.Recipe{
		ID:          r.ID.String(),
		Name:        r.Name,
		Image:       r.ImageURL,
		Text:        r.Text,
		CookingTime: r.CookingTime,
		Ingredients: make([]domain.RecipeIngredient, 0, len(r.Ingredients)),
		CreatedAt:   r.CreatedAt,
	}
	if r.Author != nil {
		res.Author = &domain.UserProfile{
			ID:        r.Author.ID.String(),
			Email:     r.Author.Email,
			Username:  r.Author.Username,
			FirstName: r.Author.FirstName,
			LastName:  r.Author.LastName,
			Avatar:    r.Author.AvatarURL,
		}
	}
	for _, ri := range r.Ingredients {
		item := domain.RecipeIngredient{ID: ri.IngredientID.String(), Amount: ri.Amount}
		if ri.Ingredient != nil {
			item.Name = ri.Ingredient.Name
			item.MeasurementUnit = ri.Ingredient.MeasurementUnit
		}
		res.Ingredients = append(res.Ingredients, item)
	}
	return res
}

func toRecipeShort(r *entities.Recipe) domain.RecipeShort {
	return domain.RecipeShort{
		ID:          r.ID.String(),
		Name:        r.Name,
		Image:       r.ImageURL,
		CookingTime: r.CookingTime,
	}
}
