package tables

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
)

// Repository persists requisition tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, table *models.RequisitionTable) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.RequisitionTable, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RequisitionTable, error)
	ListByStatus(ctx context.Context, statuses ...enums.TableStatus) ([]models.RequisitionTable, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	AdjustItemCount(ctx context.Context, id uuid.UUID, delta int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, table *models.RequisitionTable) error {
	return r.db.WithContext(ctx).Create(table).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RequisitionTable, error) {
	var table models.RequisitionTable
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&table).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RequisitionTable, error) {
	var rows []models.RequisitionTable
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByStatus(ctx context.Context, statuses ...enums.TableStatus) ([]models.RequisitionTable, error) {
	var rows []models.RequisitionTable
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("submitted_at ASC").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.RequisitionTable{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustItemCount moves the cached requisition count by delta, never below zero.
func (r *repository) AdjustItemCount(ctx context.Context, id uuid.UUID, delta int) error {
	expr := gorm.Expr("CASE WHEN item_count + ? < 0 THEN 0 ELSE item_count + ? END", delta, delta)
	res := r.db.WithContext(ctx).Model(&models.RequisitionTable{}).Where("id = ?", id).Update("item_count", expr)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RequisitionTable{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
