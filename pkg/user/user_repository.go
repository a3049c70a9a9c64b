package user

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
	UserRepository interface {
		CreateUser(ctx context.Context, user *entities.User) error
		GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
		GetUserByEmail(ctx context.Context, email string) (*entities.User, error)
		UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error
		UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
		GetUsers(ctx context.Context, page, limit int) ([]*entities.User, int64, error)
		GetSubscriptions(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.User, int64, error)
		GetAuthorRecipes(ctx context.Context, authorID uuid.UUID, limit int) ([]*entities.Recipe, int64, error)
		DeleteUser(ctx context.Context, id uuid.UUID) error
	}

	userRepository struct {
		db *gorm.DB
	}
)

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *entities.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err == nil {
		return nil
	}
	if !utils.IsDuplicateKey(err) {
		return err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrEmailTaken
	}
	return domain.ErrUsernameTaken
}

func (r *userRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	result := r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Update("avatar_url", avatarURL)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	result := r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Update("password", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) GetUsers(ctx context.Context, page, limit int) ([]*entities.User, int64, error) {
	var users []*entities.User
	var count int64

	db := r.db.WithContext(ctx).Model(&entities.User{})
	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("username asc").
		Offset(utils.Offset(page, limit)).
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, count, nil
}

// GetSubscriptions pages through the authors userID follows, ordered by
// username.
func (r *userRepository) GetSubscriptions(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.User, int64, error) {
	var users []*entities.User
	var count int64

	db := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("id IN (?)", r.db.Model(&entities.Relation{}).Select("target_id").
			Where("kind = ? AND user_id = ?", string(domain.RelationSubscription), userID))

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("username asc").
		Offset(utils.Offset(page, limit)).
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, count, nil
}

// GetAuthorRecipes returns up to limit newest recipes of the author and the
// author's total recipe count. A negative limit returns all of them.
func (r *userRepository) GetAuthorRecipes(ctx context.Context, authorID uuid.UUID, limit int) ([]*entities.Recipe, int64, error) {
	var recipes []*entities.Recipe
	var count int64

	db := r.db.WithContext(ctx).Model(&entities.Recipe{}).Where("author_id = ?", authorID)
	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at desc").Order("id desc").Limit(limit).Find(&recipes).Error; err != nil {
		return nil, 0, err
	}
	return recipes, count, nil
}

// DeleteUser removes the user with their recipes and every relation on either
// side: their own toggles, subscriptions to them and toggles on their recipes.
func (r *userRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// relation inserts share-lock their target, so lock the user and
		// their recipes before the cleanup below
		var locked []uuid.UUID
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Model(&entities.User{}).
			Where("id = ?", id).Pluck("id", &locked).Error; err != nil {
			return err
		}
		if len(locked) == 0 {
			return domain.ErrUserNotFound
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Model(&entities.Recipe{}).
			Where("author_id = ?", id).Pluck("id", &locked).Error; err != nil {
			return err
		}

		recipeIDs := tx.Model(&entities.Recipe{}).Select("id").Where("author_id = ?", id)

		if err := tx.Where("user_id = ?", id).
			Or("kind = ? AND target_id = ?", string(domain.RelationSubscription), id).
			Or("kind IN ? AND target_id IN (?)",
				[]string{string(domain.RelationFavorite), string(domain.RelationCart)}, recipeIDs).
			Delete(&entities.Relation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id IN (?)", recipeIDs).Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&entities.Recipe{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&entities.User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
}
