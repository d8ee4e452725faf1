package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/pkg/enums"
)

// POReceipt is proof-of-purchase paperwork. TableID is cleared, not cascaded,
// when its table is deleted.
type POReceipt struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TableID       *uuid.UUID          `gorm:"column:table_id;type:uuid;index" json:"table_id,omitempty"`
	RequisitionID *uuid.UUID          `gorm:"column:requisition_id;type:uuid" json:"requisition_id,omitempty"`
	PONumber      string              `gorm:"column:po_number;not null" json:"po_number"`
	Supplier      string              `gorm:"column:supplier;not null" json:"supplier"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	ReceiptDate   time.Time           `gorm:"column:receipt_date;not null" json:"receipt_date"`
	FileName      *string             `gorm:"column:file_name" json:"file_name,omitempty"`
	FileSize      *int64              `gorm:"column:file_size" json:"file_size,omitempty"`
	ContentType   *string             `gorm:"column:content_type" json:"content_type,omitempty"`
	StoragePath   *string             `gorm:"column:storage_path" json:"storage_path,omitempty"`
	Status        enums.ReceiptStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	UploadedBy    uuid.UUID           `gorm:"column:uploaded_by;type:uuid;not null" json:"uploaded_by"`
	VerifiedBy    *uuid.UUID          `gorm:"column:verified_by;type:uuid" json:"verified_by,omitempty"`
	VerifiedAt    *time.Time          `gorm:"column:verified_at" json:"verified_at,omitempty"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (POReceipt) TableName() string { return "po_receipts" }

func (r *POReceipt) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
