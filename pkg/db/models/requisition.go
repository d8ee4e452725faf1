package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/pkg/enums"
)

// Requisition requests QtyNeeded batches of one SKU and owns its exploded materials.
type Requisition struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RequisitionNumber string                  `gorm:"column:requisition_number;not null;uniqueIndex" json:"requisition_number"`
	TableID           uuid.UUID               `gorm:"column:table_id;type:uuid;not null;index" json:"table_id"`
	Type              enums.RequisitionType   `gorm:"column:type;not null" json:"type"`
	SKUCode           string                  `gorm:"column:sku_code;not null" json:"sku_code"`
	SKUName           string                  `gorm:"column:sku_name;not null" json:"sku_name"`
	Category          string                  `gorm:"column:category" json:"category"`
	QtyNeeded         int                     `gorm:"column:qty_needed;not null" json:"qty_needed"`
	DateNeeded        *time.Time              `gorm:"column:date_needed" json:"date_needed,omitempty"`
	Supplier          string                  `gorm:"column:supplier" json:"supplier"`
	Brand             string                  `gorm:"column:brand" json:"brand"`
	Unit              string                  `gorm:"column:unit" json:"unit"`
	Status            enums.RequisitionStatus `gorm:"column:status;not null;default:'draft'" json:"status"`
	SubmittedBy       *uuid.UUID              `gorm:"column:submitted_by;type:uuid" json:"submitted_by,omitempty"`
	SubmittedAt       *time.Time              `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ApprovedBy        *uuid.UUID              `gorm:"column:approved_by;type:uuid" json:"approved_by,omitempty"`
	ApprovedAt        *time.Time              `gorm:"column:approved_at" json:"approved_at,omitempty"`
	ReviewedBy        *uuid.UUID              `gorm:"column:reviewed_by;type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time              `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	Remarks           *string                 `gorm:"column:remarks" json:"remarks,omitempty"`
	Materials         []RequisitionMaterial   `gorm:"foreignKey:RequisitionID;constraint:OnDelete:CASCADE" json:"materials"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (r *Requisition) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RequisitionMaterial is one exploded line. RequiredQty is always Qty × the
// parent's QtyNeeded; Position keeps the catalog order.
type RequisitionMaterial struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RequisitionID uuid.UUID       `gorm:"column:requisition_id;type:uuid;not null;index" json:"requisition_id"`
	Position      int             `gorm:"column:position;not null" json:"position"`
	Name          string          `gorm:"column:name;not null" json:"name"`
	Qty           decimal.Decimal `gorm:"column:qty;type:numeric(14,4);not null" json:"qty"`
	Unit          string          `gorm:"column:unit" json:"unit"`
	Type          string          `gorm:"column:type" json:"type"`
	RequiredQty   decimal.Decimal `gorm:"column:required_qty;type:numeric(14,4);not null" json:"required_qty"`
	ServedQty     decimal.Decimal `gorm:"column:served_qty;type:numeric(14,4);not null;default:0" json:"served_qty"`
	Remarks       *string         `gorm:"column:remarks" json:"remarks,omitempty"`
	ServedDate    *time.Time      `gorm:"column:served_date" json:"served_date,omitempty"`
}

func (m *RequisitionMaterial) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IsUnserved reports whether the material still needs delivery.
func (m RequisitionMaterial) IsUnserved() bool {
	return m.ServedQty.LessThan(m.RequiredQty)
}

// Status derives the per-material serve state. A material with nothing
// required is already fully served.
func (m RequisitionMaterial) Status() enums.MaterialStatus {
	switch {
	case m.RequiredQty.Sign() <= 0:
		return enums.MaterialStatusFullyServed
	case m.ServedQty.Sign() <= 0:
		return enums.MaterialStatusPending
	case m.IsUnserved():
		return enums.MaterialStatusPartiallyServed
	default:
		return enums.MaterialStatusFullyServed
	}
}
