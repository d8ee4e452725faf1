package requisitions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
)

// Repository persists requisitions together with their materials.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, req *models.Requisition) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Requisition, error)
	ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.Requisition, error)
	ListByTables(ctx context.Context, tableIDs []uuid.UUID) ([]models.Requisition, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Requisition, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	ReplaceMaterials(ctx context.Context, requisitionID uuid.UUID, materials []models.RequisitionMaterial) error
	UpdateMaterial(ctx context.Context, material models.RequisitionMaterial) error
	Delete(ctx context.Context, id uuid.UUID) error
	SyncItemCount(ctx context.Context, tableID uuid.UUID) (int, error)
	SubmitDrafts(ctx context.Context, tx *gorm.DB, tableID, by uuid.UUID, at time.Time) (int64, error)
	ApproveSubmitted(ctx context.Context, tx *gorm.DB, tableID, by uuid.UUID, at time.Time) (int64, error)
	MarkReviewed(ctx context.Context, tx *gorm.DB, tableID, by uuid.UUID, at time.Time) (int64, error)
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

// conn prefers a caller transaction over the repository handle.
func (r *repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *repository) Create(ctx context.Context, req *models.Requisition) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Requisition, error) {
	var req models.Requisition
	err := r.db.WithContext(ctx).
		Preload("Materials", byPosition).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.Requisition, error) {
	return r.ListByTables(ctx, []uuid.UUID{tableID})
}

func (r *repository) ListByTables(ctx context.Context, tableIDs []uuid.UUID) ([]models.Requisition, error) {
	rows := make([]models.Requisition, 0)
	if len(tableIDs) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Materials", byPosition).
		Where("table_id IN ?", tableIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Requisition, error) {
	rows := make([]models.Requisition, 0)
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Materials", byPosition).
		Where("id IN ?", ids).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Requisition{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplaceMaterials swaps the full material list. Materials carrying an id keep it.
func (r *repository) ReplaceMaterials(ctx context.Context, requisitionID uuid.UUID, materials []models.RequisitionMaterial) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("requisition_id = ?", requisitionID).Delete(&models.RequisitionMaterial{}).Error; err != nil {
		return err
	}
	if len(materials) == 0 {
		return nil
	}
	rows := make([]models.RequisitionMaterial, len(materials))
	for i, m := range materials {
		m.RequisitionID = requisitionID
		m.Position = i
		rows[i] = m
	}
	return db.Create(&rows).Error
}

func (r *repository) UpdateMaterial(ctx context.Context, material models.RequisitionMaterial) error {
	res := r.db.WithContext(ctx).
		Model(&models.RequisitionMaterial{}).
		Where("id = ? AND requisition_id = ?", material.ID, material.RequisitionID).
		Updates(map[string]any{
			"served_qty":  material.ServedQty,
			"remarks":     material.Remarks,
			"served_date": material.ServedDate,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes materials before the requisition. Inside an outer
// transaction gorm nests this as a savepoint.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("requisition_id = ?", id).Delete(&models.RequisitionMaterial{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Requisition{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// SyncItemCount recomputes the table's cached requisition count.
func (r *repository) SyncItemCount(ctx context.Context, tableID uuid.UUID) (int, error) {
	db := r.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Requisition{}).Where("table_id = ?", tableID).Count(&count).Error; err != nil {
		return 0, err
	}
	res := db.Model(&models.RequisitionTable{}).Where("id = ?", tableID).Update("item_count", count)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return int(count), nil
}

func (r *repository) SubmitDrafts(ctx context.Context, tx *gorm.DB, tableID, by uuid.UUID, at time.Time) (int64, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Requisition{}).
		Where("table_id = ? AND status = ?", tableID, enums.RequisitionStatusDraft).
		Updates(map[string]any{
			"status":       enums.RequisitionStatusSubmitted,
			"submitted_by": by,
			"submitted_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ApproveSubmitted(ctx context.Context, tx *gorm.DB, tableID, by uuid.UUID, at time.Time) (int64, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Requisition{}).
		Where("table_id = ? AND status = ?", tableID, enums.RequisitionStatusSubmitted).
		Updates(map[string]any{
			"status":      enums.RequisitionStatusApproved,
			"approved_by": by,
			"approved_at": at,
			"reviewed_by": by,
			"reviewed_at": at,
		})
	return res.RowsAffected, res.Error
}

// MarkReviewed stamps the reviewer on submitted requisitions without changing status.
func (r *repository) MarkReviewed(ctx context.Context, tx *gorm.DB, tableID, by uuid.UUID, at time.Time) (int64, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Requisition{}).
		Where("table_id = ? AND status = ?", tableID, enums.RequisitionStatusSubmitted).
		Updates(map[string]any{
			"reviewed_by": by,
			"reviewed_at": at,
		})
	return res.RowsAffected, res.Error
}
