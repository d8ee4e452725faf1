package catalog

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
)

const upsertBatchSize = 500

// Repository persists master catalog rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, rows []models.CatalogRow) (int, error)
	DeleteAll(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]models.CatalogRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a catalog repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert writes rows keyed by (sku_code, raw_material); conflicting keys are overwritten.
func (r *repository) Upsert(ctx context.Context, rows []models.CatalogRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "sku_code"}, {Name: "raw_material"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"category",
				"sku_name",
				"quantity_per_unit",
				"unit",
				"quantity_per_pack",
				"pack_unit",
				"quantity_per_batch",
				"batch_unit",
				"type",
				"line",
				"updated_at",
			}),
		}).
		CreateInBatches(&rows, upsertBatchSize).Error
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *repository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.CatalogRow{})
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context) ([]models.CatalogRow, error) {
	var rows []models.CatalogRow
	err := r.db.WithContext(ctx).
		Order("sku_code ASC").
		Order("line ASC").
		Order("raw_material ASC").
		Find(&rows).Error
	return rows, err
}
