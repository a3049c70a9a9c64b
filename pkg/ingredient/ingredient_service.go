package ingredient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/pkg/validation"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

type (
	IngredientService interface {
		GetIngredients(ctx context.Context) ([]domain.Ingredient, error)
		GetIngredientByID(ctx context.Context, id string) (domain.Ingredient, error)
		GetOrCreate(ctx context.Context, name, unit string) (domain.Ingredient, bool, error)
		LoadIngredients(ctx context.Context, r io.Reader) (domain.IngredientLoadResult, error)
	}

	ingredientService struct {
		ingredientRepository IngredientRepository
	}
)

func NewIngredientService(ingredientRepository IngredientRepository) IngredientService {
	return &ingredientService{
		ingredientRepository: ingredientRepository,
	}
}

func toIngredient(i *entities.Ingredient) domain.Ingredient {
	return domain.Ingredient{
		ID:              i.ID.String(),
		Name:            i.Name,
		MeasurementUnit: i.MeasurementUnit,
	}
}

func (s *ingredientService) GetIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	ingredients, err := s.ingredientRepository.GetIngredients(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Ingredient, 0, len(ingredients))
	for _, i := range ingredients {
		result = append(result, toIngredient(i))
	}
	return result, nil
}

func (s *ingredientService) GetIngredientByID(ctx context.Context, id string) (domain.Ingredient, error) {
	ingredientID, err := uuid.Parse(id)
	if err != nil {
		return domain.Ingredient{}, domain.ErrIngredientNotFound
	}

	ingredient, err := s.ingredientRepository.GetIngredientByID(ctx, ingredientID)
	if err != nil {
		return domain.Ingredient{}, err
	}
	return toIngredient(ingredient), nil
}

// GetOrCreate returns the catalog row for (name, unit), inserting it when
// missing. The boolean reports whether a row was inserted.
func (s *ingredientService) GetOrCreate(ctx context.Context, name, unit string) (domain.Ingredient, bool, error) {
	name, unit = strings.TrimSpace(name), strings.TrimSpace(unit)
	if err := validation.Ingredient(name, unit); err != nil {
		return domain.Ingredient{}, false, err
	}

	existing, err := s.ingredientRepository.GetIngredientByPair(ctx, name, unit)
	if err == nil {
		return toIngredient(existing), false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Ingredient{}, false, err
	}

	ingredient := &entities.Ingredient{Name: name, MeasurementUnit: unit}
	if err := s.ingredientRepository.CreateIngredient(ctx, ingredient); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return domain.Ingredient{}, false, err
		}
		// lost the race to a concurrent insert of the same pair
		existing, err = s.ingredientRepository.GetIngredientByPair(ctx, name, unit)
		if err != nil {
			return domain.Ingredient{}, false, err
		}
		return toIngredient(existing), false, nil
	}
	return toIngredient(ingredient), true, nil
}

// LoadIngredients imports a JSON array of {name, measurement_unit} objects.
// Malformed items are skipped and logged; a malformed document is an error.
func (s *ingredientService) LoadIngredients(ctx context.Context, r io.Reader) (domain.IngredientLoadResult, error) {
	var seeds []domain.IngredientSeed
	if err := json.NewDecoder(r).Decode(&seeds); err != nil {
		return domain.IngredientLoadResult{}, fmt.Errorf("decode ingredients: %w", err)
	}

	result := domain.IngredientLoadResult{Total: len(seeds)}
	log.Infof("Loading %d ingredients", len(seeds))

	for i, seed := range seeds {
		pos := i + 1
		if seed.Name == nil || seed.MeasurementUnit == nil {
			log.Warnf("[%d] skipped: missing name or measurement_unit", pos)
			result.Skipped++
			continue
		}
		if strings.TrimSpace(*seed.Name) == "" || strings.TrimSpace(*seed.MeasurementUnit) == "" {
			log.Warnf("[%d] skipped: empty fields", pos)
			result.Skipped++
			continue
		}

		_, created, err := s.GetOrCreate(ctx, *seed.Name, *seed.MeasurementUnit)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			log.Warnf("[%d] skipped: %v", pos, err)
			result.Skipped++
			continue
		}
		if created {
			result.Created++
		}
	}

	log.Infof("Loaded ingredients: %d created, %d skipped", result.Created, result.Skipped)
	return result, nil
}
