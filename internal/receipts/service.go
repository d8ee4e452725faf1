package receipts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/internal/workflow"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
	"github.com/angelmondragon/matreq-backend/pkg/outbox"
)

type tableFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.RequisitionTable, error)
}

type requisitionFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Requisition, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages PO receipt paperwork attached to tables.
type Service interface {
	Create(ctx context.Context, actor workflow.Actor, tableID uuid.UUID, input CreateInput) (*models.POReceipt, error)
	Update(ctx context.Context, actor workflow.Actor, id uuid.UUID, input UpdateInput) (*models.POReceipt, error)
	Delete(ctx context.Context, actor workflow.Actor, id uuid.UUID) error
	ListByTable(ctx context.Context, actor workflow.Actor, tableID uuid.UUID) ([]models.POReceipt, error)
}

// CreateInput holds receipt metadata. The file itself lives in external storage.
type CreateInput struct {
	RequisitionID *uuid.UUID
	PONumber      string
	Supplier      string
	Amount        decimal.Decimal
	ReceiptDate   time.Time
	FileName      *string
	FileSize      *int64
	ContentType   *string
	StoragePath   *string
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	RequisitionID *uuid.UUID
	PONumber      *string
	Supplier      *string
	Amount        *decimal.Decimal
	ReceiptDate   *time.Time
	Status        *enums.ReceiptStatus
}

type service struct {
	repo         Repository
	tables       tableFinder
	requisitions requisitionFinder
	tx           txRunner
	outbox       outboxPublisher
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(repo Repository, tables tableFinder, requisitions requisitionFinder, tx txRunner, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("receipt repository required")
	}
	if tables == nil {
		return nil, fmt.Errorf("table finder required")
	}
	if requisitions == nil {
		return nil, fmt.Errorf("requisition finder required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tables: tables, requisitions: requisitions, tx: tx, outbox: publisher, logg: logg, now: time.Now}, nil
}

func (s *service) loadTable(ctx context.Context, actor workflow.Actor, tableID uuid.UUID) (*models.RequisitionTable, error) {
	table, err := s.tables.FindByID(ctx, tableID)
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "load table")
	}
	if !actor.CanAccessTable(table.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "table belongs to another user")
	}
	return table, nil
}

// checkRequisition ensures a linked requisition exists and sits on the
// receipt's table.
func (s *service) checkRequisition(ctx context.Context, tableID *uuid.UUID, requisitionID uuid.UUID) error {
	req, err := s.requisitions.FindByID(ctx, requisitionID)
	if err != nil {
		return workflow.StoreError(err, "requisition not found", "load requisition")
	}
	if tableID == nil || req.TableID != *tableID {
		return pkgerrors.New(pkgerrors.CodeValidation, "requisition belongs to another table").
			WithDetails(map[string]any{"field": "requisition_id"})
	}
	return nil
}

func (s *service) Create(ctx context.Context, actor workflow.Actor, tableID uuid.UUID, input CreateInput) (*models.POReceipt, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.PONumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "po_number is required")
	}
	if strings.TrimSpace(input.Supplier) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier is required")
	}
	if input.Amount.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount cannot be negative")
	}
	if input.ReceiptDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt_date is required")
	}
	if _, err := s.loadTable(ctx, actor, tableID); err != nil {
		return nil, err
	}
	tid := tableID
	if input.RequisitionID != nil {
		if err := s.checkRequisition(ctx, &tid, *input.RequisitionID); err != nil {
			return nil, err
		}
	}

	receipt := &models.POReceipt{
		TableID:       &tid,
		RequisitionID: input.RequisitionID,
		PONumber:      strings.TrimSpace(input.PONumber),
		Supplier:      strings.TrimSpace(input.Supplier),
		Amount:        input.Amount,
		ReceiptDate:   input.ReceiptDate,
		FileName:      input.FileName,
		FileSize:      input.FileSize,
		ContentType:   input.ContentType,
		StoragePath:   input.StoragePath,
		Status:        enums.ReceiptStatusPending,
		UploadedBy:    actor.UserID,
	}
	if err := s.repo.Create(ctx, receipt); err != nil {
		return nil, workflow.StoreError(err, "receipt not found", "create receipt")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"receipt_id": receipt.ID.String(), "table_id": tableID.String()})
	s.logg.Info(logCtx, "receipt.created")
	return receipt, nil
}

func (s *service) authorize(ctx context.Context, actor workflow.Actor, receipt *models.POReceipt) error {
	if actor.IsAdmin() || receipt.UploadedBy == actor.UserID {
		return nil
	}
	if receipt.TableID != nil {
		_, err := s.loadTable(ctx, actor, *receipt.TableID)
		return err
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "receipt belongs to another user")
}

func (s *service) Update(ctx context.Context, actor workflow.Actor, id uuid.UUID, input UpdateInput) (*models.POReceipt, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	receipt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, workflow.StoreError(err, "receipt not found", "load receipt")
	}
	if err := s.authorize(ctx, actor, receipt); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.PONumber != nil {
		if strings.TrimSpace(*input.PONumber) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "po_number cannot be empty")
		}
		fields["po_number"] = strings.TrimSpace(*input.PONumber)
	}
	if input.Supplier != nil {
		if strings.TrimSpace(*input.Supplier) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier cannot be empty")
		}
		fields["supplier"] = strings.TrimSpace(*input.Supplier)
	}
	if input.Amount != nil {
		if input.Amount.Sign() < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount cannot be negative")
		}
		fields["amount"] = *input.Amount
	}
	if input.ReceiptDate != nil {
		fields["receipt_date"] = *input.ReceiptDate
	}
	if input.RequisitionID != nil {
		if err := s.checkRequisition(ctx, receipt.TableID, *input.RequisitionID); err != nil {
			return nil, err
		}
		fields["requisition_id"] = *input.RequisitionID
	}

	statusChanged := false
	if input.Status != nil && *input.Status != receipt.Status {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid receipt status")
		}
		if !actor.IsAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can verify receipts")
		}
		statusChanged = true
		fields["status"] = *input.Status
		if *input.Status == enums.ReceiptStatusPending {
			fields["verified_by"] = nil
			fields["verified_at"] = nil
		} else {
			fields["verified_by"] = actor.UserID
			fields["verified_at"] = s.now().UTC()
		}
	}
	if len(fields) == 0 {
		return receipt, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, id, fields); err != nil {
			return err
		}
		if !statusChanged {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReceiptStatusChanged,
			AggregateType: enums.AggregateReceipt,
			AggregateID:   id,
			Actor:         actor.Ref(),
			Data: outbox.ReceiptStatusChangedEvent{
				ReceiptID: id,
				TableID:   receipt.TableID,
				Status:    *input.Status,
			},
		})
	})
	if err != nil {
		return nil, workflow.StoreError(err, "receipt not found", "update receipt")
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, workflow.StoreError(err, "receipt not found", "reload receipt")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, actor workflow.Actor, id uuid.UUID) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	receipt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return workflow.StoreError(err, "receipt not found", "load receipt")
	}
	if err := s.authorize(ctx, actor, receipt); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return workflow.StoreError(err, "receipt not found", "delete receipt")
	}
	return nil
}

func (s *service) ListByTable(ctx context.Context, actor workflow.Actor, tableID uuid.UUID) ([]models.POReceipt, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.loadTable(ctx, actor, tableID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByTable(ctx, tableID)
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "list receipts")
	}
	return rows, nil
}
