package relation

import (
	"context"

	"foodgram/domain"
	"foodgram/entities"

	"github.com/google/uuid"
)

type (
	// RelationService is the registry for favorite, cart and subscription
	// toggles. All three kinds share one table and one set of rules.
	RelationService interface {
		Add(ctx context.Context, kind domain.RelationKind, userID, targetID string) (domain.Relation, error)
		Remove(ctx context.Context, kind domain.RelationKind, userID, targetID string) error
		Exists(ctx context.Context, kind domain.RelationKind, userID, targetID string) (bool, error)
		ExistingTargets(ctx context.Context, kind domain.RelationKind, userID string, targetIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	}

	relationService struct {
		relationRepository RelationRepository
	}
)

func NewRelationService(relationRepository RelationRepository) RelationService {
	return &relationService{
		relationRepository: relationRepository,
	}
}

func targetNotFound(kind domain.RelationKind) error {
	if kind.TargetsRecipe() {
		return domain.ErrRecipeNotFound
	}
	return domain.ErrUserNotFound
}

func (s *relationService) parse(kind domain.RelationKind, userID, targetID string) (uuid.UUID, uuid.UUID, error) {
	if !kind.Valid() {
		return uuid.Nil, uuid.Nil, domain.ErrUnknownRelationKind
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrParseUUID
	}
	targetUUID, err := uuid.Parse(targetID)
	if err != nil {
		return uuid.Nil, uuid.Nil, targetNotFound(kind)
	}
	return userUUID, targetUUID, nil
}

func (s *relationService) Add(ctx context.Context, kind domain.RelationKind, userID, targetID string) (domain.Relation, error) {
	userUUID, targetUUID, err := s.parse(kind, userID, targetID)
	if err != nil {
		return domain.Relation{}, err
	}
	if kind == domain.RelationSubscription && userUUID == targetUUID {
		return domain.Relation{}, domain.ErrSelfSubscription
	}

	relation, err := s.relationRepository.Add(ctx, kind, userUUID, targetUUID)
	if err != nil {
		return domain.Relation{}, err
	}
	return toRelation(relation), nil
}

func (s *relationService) Remove(ctx context.Context, kind domain.RelationKind, userID, targetID string) error {
	userUUID, targetUUID, err := s.parse(kind, userID, targetID)
	if err != nil {
		return err
	}

	exists, err := s.relationRepository.TargetExists(ctx, kind, targetUUID)
	if err != nil {
		return err
	}
	if !exists {
		return targetNotFound(kind)
	}

	return s.relationRepository.Remove(ctx, kind, userUUID, targetUUID)
}

func (s *relationService) Exists(ctx context.Context, kind domain.RelationKind, userID, targetID string) (bool, error) {
	userUUID, targetUUID, err := s.parse(kind, userID, targetID)
	if err != nil {
		return false, err
	}
	return s.relationRepository.Exists(ctx, kind, userUUID, targetUUID)
}

func (s *relationService) ExistingTargets(ctx context.Context, kind domain.RelationKind, userID string, targetIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	if !kind.Valid() {
		return nil, domain.ErrUnknownRelationKind
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}
	return s.relationRepository.ExistingTargets(ctx, kind, userUUID, targetIDs)
}

func toRelation(r *entities.Relation) domain.Relation {
	return domain.Relation{
		ID:        r.ID,
		Kind:      domain.RelationKind(r.Kind),
		UserID:    r.UserID,
		TargetID:  r.TargetID,
		CreatedAt: r.CreatedAt,
	}
}
