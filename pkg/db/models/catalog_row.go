package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRow is one (SKU, raw material) formula line of the master catalog.
// QuantityPerBatch keeps the sheet text verbatim; it is parsed on explosion.
// Line is the sheet row of the latest upload and orders materials within a SKU.
type CatalogRow struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Category         *string   `gorm:"column:category" json:"category,omitempty"`
	SKUCode          string    `gorm:"column:sku_code;not null;uniqueIndex:ux_catalog_rows_sku_material" json:"sku_code"`
	SKUName          string    `gorm:"column:sku_name;not null" json:"sku_name"`
	QuantityPerUnit  string    `gorm:"column:quantity_per_unit" json:"quantity_per_unit"`
	Unit             string    `gorm:"column:unit" json:"unit"`
	QuantityPerPack  string    `gorm:"column:quantity_per_pack" json:"quantity_per_pack"`
	PackUnit         string    `gorm:"column:pack_unit" json:"pack_unit"`
	RawMaterial      string    `gorm:"column:raw_material;not null;uniqueIndex:ux_catalog_rows_sku_material" json:"raw_material"`
	QuantityPerBatch string    `gorm:"column:quantity_per_batch;not null" json:"quantity_per_batch"`
	BatchUnit        string    `gorm:"column:batch_unit;not null" json:"batch_unit"`
	Type             string    `gorm:"column:type" json:"type"`
	Line             int       `gorm:"column:line;not null;default:0" json:"line"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (CatalogRow) TableName() string { return "catalog_rows" }

func (c *CatalogRow) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
