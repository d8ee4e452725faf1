package receipts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
)

// Repository persists PO receipts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, receipt *models.POReceipt) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.POReceipt, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.POReceipt, error)
	CountPaperwork(ctx context.Context, tableID uuid.UUID) (int64, error)
	DetachTable(ctx context.Context, tx *gorm.DB, tableID uuid.UUID) (int64, error)
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

func (r *repository) Create(ctx context.Context, receipt *models.POReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.POReceipt, error) {
	var receipt models.POReceipt
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&receipt).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.POReceipt{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.POReceipt{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.POReceipt, error) {
	var rows []models.POReceipt
	err := r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Order("receipt_date DESC").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// CountPaperwork counts pending and verified receipts for a table.
func (r *repository) CountPaperwork(ctx context.Context, tableID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.POReceipt{}).
		Where("table_id = ?", tableID).
		Where("status IN ?", []enums.ReceiptStatus{enums.ReceiptStatusPending, enums.ReceiptStatusVerified}).
		Count(&count).Error
	return count, err
}

// DetachTable clears the table reference on every receipt of a table. A nil
// tx runs on the repository connection.
func (r *repository) DetachTable(ctx context.Context, tx *gorm.DB, tableID uuid.UUID) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	res := conn.WithContext(ctx).
		Model(&models.POReceipt{}).
		Where("table_id = ?", tableID).
		Update("table_id", nil)
	return res.RowsAffected, res.Error
}
