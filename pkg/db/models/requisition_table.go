package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/pkg/enums"
)

// RequisitionTable is a batch of requisitions sharing one approval workflow.
// ItemCount caches the number of requisitions and is maintained by the service.
type RequisitionTable struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string            `gorm:"column:name;not null" json:"name"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Status      enums.TableStatus `gorm:"column:status;not null;default:'draft'" json:"status"`
	SubmittedBy *uuid.UUID        `gorm:"column:submitted_by;type:uuid" json:"submitted_by,omitempty"`
	SubmittedAt *time.Time        `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ReviewedBy  *uuid.UUID        `gorm:"column:reviewed_by;type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time        `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	ApprovedBy  *uuid.UUID        `gorm:"column:approved_by;type:uuid" json:"approved_by,omitempty"`
	ApprovedAt  *time.Time        `gorm:"column:approved_at" json:"approved_at,omitempty"`
	Remarks     *string           `gorm:"column:remarks" json:"remarks,omitempty"`
	ItemCount   int               `gorm:"column:item_count;not null;default:0" json:"item_count"`
	DateNeeded  *time.Time        `gorm:"column:date_needed" json:"date_needed,omitempty"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (RequisitionTable) TableName() string { return "requisition_tables" }

func (t *RequisitionTable) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
