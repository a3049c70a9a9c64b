package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Relation is a user→target toggle fact tagged by kind: favorite and cart
// point at recipes, subscription points at users.
type Relation struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Kind      string    `gorm:"size:16;not null;uniqueIndex:idx_relations_kind_user_target,priority:1;check:chk_relations_no_self_subscription,kind <> 'subscription' OR user_id <> target_id" json:"kind"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_relations_kind_user_target,priority:2" json:"user_id"`
	TargetID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_relations_kind_user_target,priority:3;index" json:"target_id"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (r *Relation) BeforeCreate(tx *gorm.DB) error {
	newID(&r.ID)
	return nil
}
