package relation

import (
	"context"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	RelationRepository interface {
		Add(ctx context.Context, kind domain.RelationKind, userID, targetID uuid.UUID) (*entities.Relation, error)
		Remove(ctx context.Context, kind domain.RelationKind, userID, targetID uuid.UUID) error
		Exists(ctx context.Context, kind domain.RelationKind, userID, targetID uuid.UUID) (bool, error)
		ExistingTargets(ctx context.Context, kind domain.RelationKind, userID uuid.UUID, targetIDs []uuid.UUID) (map[uuid.UUID]bool, error)
		TargetExists(ctx context.Context, kind domain.RelationKind, targetID uuid.UUID) (bool, error)
	}

	relationRepository struct {
		db *gorm.DB
	}
)

func NewRelationRepository(db *gorm.DB) RelationRepository {
	return &relationRepository{db: db}
}

// Add inserts the relation after share-locking the target row in the same
// transaction. Deletes of recipes and users take the row lock for update
// before clearing relations, so no relation outlives its target. The unique
// index over (kind, user_id, target_id) decides concurrent duplicates; the
// losing writer gets ErrRelationExists.
func (r *relationRepository) Add(ctx context.Context, kind domain.RelationKind, userID, targetID uuid.UUID) (*entities.Relation, error) {
	relation := &entities.Relation{
		Kind:     string(kind),
		UserID:   userID,
		TargetID: targetID,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []uuid.UUID
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).Model(targetModel(kind)).
			Where("id = ?", targetID).Pluck("id", &locked).Error; err != nil {
			return err
		}
		if len(locked) == 0 {
			return targetNotFound(kind)
		}
		return tx.Create(relation).Error
	})
	if err != nil {
		if utils.IsDuplicateKey(err) {
			return nil, domain.ErrRelationExists
		}
		return nil, err
	}
	return relation, nil
}

func (r *relationRepository) Remove(ctx context.Context, kind domain.RelationKind, userID, targetID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("kind = ? AND user_id = ? AND target_id = ?", string(kind), userID, targetID).
		Delete(&entities.Relation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrRelationNotFound
	}
	return nil
}

func (r *relationRepository) Exists(ctx context.Context, kind domain.RelationKind, userID, targetID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Relation{}).
		Where("kind = ? AND user_id = ? AND target_id = ?", string(kind), userID, targetID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistingTargets reports which of targetIDs the user holds a relation of the
// given kind to. Listing pages use it instead of one Exists call per row.
func (r *relationRepository) ExistingTargets(ctx context.Context, kind domain.RelationKind, userID uuid.UUID, targetIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	found := make(map[uuid.UUID]bool, len(targetIDs))
	if len(targetIDs) == 0 {
		return found, nil
	}

	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&entities.Relation{}).
		Where("kind = ? AND user_id = ? AND target_id IN ?", string(kind), userID, targetIDs).
		Pluck("target_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		found[id] = true
	}
	return found, nil
}

func targetModel(kind domain.RelationKind) any {
	if kind.TargetsRecipe() {
		return &entities.Recipe{}
	}
	return &entities.User{}
}

func (r *relationRepository) TargetExists(ctx context.Context, kind domain.RelationKind, targetID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(targetModel(kind)).Where("id = ?", targetID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
