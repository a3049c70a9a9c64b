package domain

import (
	"time"

	"github.com/google/uuid"
)

// RelationKind tags a user→target toggle relation.
type RelationKind string

const (
	RelationFavorite     RelationKind = "favorite"
	RelationCart         RelationKind = "cart"
	RelationSubscription RelationKind = "subscription"
)

var (
	ErrRelationExists      = ConflictError("relation already exists")
	ErrRelationNotFound    = NotFoundError("relation not found")
	ErrSelfSubscription    = NewValidationError("author", "cannot subscribe to yourself")
	ErrUnknownRelationKind = NewValidationError("kind", "unknown relation kind")
)

func (k RelationKind) Valid() bool {
	switch k {
	case RelationFavorite, RelationCart, RelationSubscription:
		return true
	}
	return false
}

// TargetsRecipe reports whether the target side of the relation is a recipe.
func (k RelationKind) TargetsRecipe() bool {
	return k == RelationFavorite || k == RelationCart
}

type Relation struct {
	ID        uuid.UUID    `json:"id"`
	Kind      RelationKind `json:"kind"`
	UserID    uuid.UUID    `json:"user_id"`
	TargetID  uuid.UUID    `json:"target_id"`
	CreatedAt time.Time    `json:"created_at"`
}
