package requisitions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/internal/cutoff"
	"github.com/angelmondragon/matreq-backend/internal/explode"
	"github.com/angelmondragon/matreq-backend/internal/workflow"
	"github.com/angelmondragon/matreq-backend/pkg/db"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
	"github.com/angelmondragon/matreq-backend/pkg/outbox"
)

const maxNumberAttempts = 5

type tableFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.RequisitionTable, error)
}

type receiptCounter interface {
	CountPaperwork(ctx context.Context, tableID uuid.UUID) (int64, error)
}

type catalogLookup interface {
	RowsForSKU(ctx context.Context, skuCode, skuName string) ([]models.CatalogRow, error)
}

type cutOffChecker interface {
	Check(typ enums.RequisitionType, now time.Time) (cutoff.Status, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type transitionMetrics interface {
	IncTransition(entity, status string)
}

// Service owns the requisition lifecycle inside a table.
type Service interface {
	Create(ctx context.Context, actor workflow.Actor, tableID uuid.UUID, input CreateInput) (*models.Requisition, error)
	UpdateQuantity(ctx context.Context, actor workflow.Actor, id uuid.UUID, qty int) (*models.Requisition, error)
	UpdateFields(ctx context.Context, actor workflow.Actor, id uuid.UUID, patch FieldsPatch) (*models.Requisition, error)
	ServeMaterial(ctx context.Context, actor workflow.Actor, id, materialID uuid.UUID, input ServeInput) (*models.Requisition, error)
	Delete(ctx context.Context, actor workflow.Actor, id uuid.UUID) error
	Get(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*models.Requisition, error)
	ListByTable(ctx context.Context, actor workflow.Actor, tableID uuid.UUID) ([]models.Requisition, error)
}

// CreateInput describes a new requisition. Confirm acknowledges policy warnings.
type CreateInput struct {
	Type       enums.RequisitionType
	SKUCode    string
	SKUName    string
	Category   string
	QtyNeeded  int
	DateNeeded *time.Time
	Supplier   workflow.Choice
	Brand      workflow.Choice
	Unit       string
	Remarks    *string
	Confirm    bool
}

// FieldsPatch is a partial update of descriptive fields.
type FieldsPatch struct {
	Type       *enums.RequisitionType
	Supplier   *workflow.Choice
	Brand      *workflow.Choice
	Unit       *string
	DateNeeded *time.Time
	Remarks    *string
	Confirm    bool
}

// ServeInput records a delivery against one material.
type ServeInput struct {
	ServedQty  decimal.Decimal
	Remarks    *string
	ServedDate *time.Time
}

// Deps groups the collaborators of the requisition service.
type Deps struct {
	Repo     Repository
	Tables   tableFinder
	Receipts receiptCounter
	Catalog  catalogLookup
	CutOff   cutOffChecker
	Numbers  *NumberGenerator
	Tx       txRunner
	Outbox   outboxPublisher
	Metrics  transitionMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tables   tableFinder
	receipts receiptCounter
	catalog  catalogLookup
	cutoff   cutOffChecker
	numbers  *NumberGenerator
	tx       txRunner
	outbox   outboxPublisher
	metrics  transitionMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("requisition repository required")
	case deps.Tables == nil:
		return nil, fmt.Errorf("table finder required")
	case deps.Receipts == nil:
		return nil, fmt.Errorf("receipt counter required")
	case deps.Catalog == nil:
		return nil, fmt.Errorf("catalog lookup required")
	case deps.CutOff == nil:
		return nil, fmt.Errorf("cut-off policy required")
	case deps.Numbers == nil:
		return nil, fmt.Errorf("number generator required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case deps.Metrics == nil:
		return nil, fmt.Errorf("workflow metrics required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     deps.Repo,
		tables:   deps.Tables,
		receipts: deps.Receipts,
		catalog:  deps.Catalog,
		cutoff:   deps.CutOff,
		numbers:  deps.Numbers,
		tx:       deps.Tx,
		outbox:   deps.Outbox,
		metrics:  deps.Metrics,
		logg:     deps.Logger,
		now:      time.Now,
	}, nil
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

func (s *service) load(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*models.Requisition, *models.RequisitionTable, error) {
	if err := actor.Validate(); err != nil {
		return nil, nil, err
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, workflow.StoreError(err, "requisition not found", "load requisition")
	}
	table, err := s.loadTable(ctx, actor, req.TableID)
	if err != nil {
		return nil, nil, err
	}
	return req, table, nil
}

// checkCutOff returns a policy warning when typ is past its window and the
// caller has not confirmed.
func (s *service) checkCutOff(ctx context.Context, typ enums.RequisitionType, confirm bool) error {
	status, err := s.cutoff.Check(typ, s.now())
	if err != nil {
		return err
	}
	if !status.PastCutOff {
		return nil
	}
	if confirm {
		s.logg.Warn(s.logg.WithField(ctx, "type", string(typ)), "requisition.cutoff_overridden")
		return nil
	}
	return cutoff.Warning(status)
}

func validateChoices(supplier, brand workflow.Choice, unit string) error {
	if supplier.IsCustom() && supplier.IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "custom supplier cannot be empty")
	}
	if brand.IsCustom() && brand.IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "custom brand cannot be empty")
	}
	if len(unit) > 64 {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit is too long")
	}
	return nil
}

func (s *service) Create(ctx context.Context, actor workflow.Actor, tableID uuid.UUID, input CreateInput) (*models.Requisition, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid requisition type")
	}
	if err := explode.ValidateMultiplier(input.QtyNeeded); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.SKUCode) == "" && strings.TrimSpace(input.SKUName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku_code or sku_name is required")
	}
	if err := validateChoices(input.Supplier, input.Brand, input.Unit); err != nil {
		return nil, err
	}

	table, err := s.loadTable(ctx, actor, tableID)
	if err != nil {
		return nil, err
	}
	var paperwork int64
	if table.Status == enums.TableStatusApproved {
		if paperwork, err = s.receipts.CountPaperwork(ctx, tableID); err != nil {
			return nil, workflow.StoreError(err, "table not found", "count receipts")
		}
	}
	if err := workflow.CanAddRequisition(*table, paperwork); err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodePolicyWarning) || !input.Confirm {
			return nil, err
		}
		s.logg.Warn(s.logg.WithTableID(ctx, tableID.String()), "requisition.receipt_warning_overridden")
	}
	if err := s.checkCutOff(ctx, input.Type, input.Confirm); err != nil {
		return nil, err
	}

	rows, err := s.catalog.RowsForSKU(ctx, input.SKUCode, input.SKUName)
	if err != nil {
		return nil, err
	}
	materials, err := explode.Explode(rows, input.QtyNeeded)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	req := &models.Requisition{
		TableID:    tableID,
		Type:       input.Type,
		SKUCode:    rows[0].SKUCode,
		SKUName:    rows[0].SKUName,
		Category:   strings.TrimSpace(input.Category),
		QtyNeeded:  input.QtyNeeded,
		DateNeeded: input.DateNeeded,
		Supplier:   input.Supplier.Value(),
		Brand:      input.Brand.Value(),
		Unit:       strings.TrimSpace(input.Unit),
		Status:     enums.RequisitionStatusDraft,
		Remarks:    input.Remarks,
		Materials:  materials,
	}
	if req.Category == "" && rows[0].Category != nil {
		req.Category = *rows[0].Category
	}
	if req.DateNeeded == nil {
		req.DateNeeded = table.DateNeeded
	}
	// Requisitions added to an approved table inherit its approval.
	if table.Status == enums.TableStatusApproved {
		req.Status = enums.RequisitionStatusApproved
		req.ApprovedBy = table.ApprovedBy
		req.ApprovedAt = &now
	}

	if err := s.insertWithNumber(ctx, req); err != nil {
		return nil, err
	}

	s.metrics.IncTransition("requisition", string(req.Status))
	logCtx := s.logg.WithFields(s.logg.WithTableID(ctx, tableID.String()), map[string]any{
		"requisition_id":     req.ID.String(),
		"requisition_number": req.RequisitionNumber,
		"materials":          len(req.Materials),
	})
	s.logg.Info(logCtx, "requisition.created")
	return req, nil
}

// insertWithNumber assigns a number and inserts the requisition, retrying with
// a fresh number when the unique index rejects a collision.
func (s *service) insertWithNumber(ctx context.Context, req *models.Requisition) error {
	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		req.RequisitionNumber = s.numbers.Next(s.now())
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Create(ctx, req); err != nil {
				return err
			}
			_, err := repo.SyncItemCount(ctx, req.TableID)
			return err
		})
		if err == nil {
			return nil
		}
		if !isNumberCollision(err) {
			return workflow.StoreError(err, "table not found", "create requisition")
		}
		lastErr = err
		s.logg.Warn(s.logg.WithField(ctx, "requisition_number", req.RequisitionNumber), "requisition.number_collision")
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate a unique requisition number")
}

func isNumberCollision(err error) bool {
	return db.IsUniqueViolation(err, "ux_requisitions_number") ||
		db.IsUniqueViolation(err, "requisitions.requisition_number")
}

func (s *service) UpdateQuantity(ctx context.Context, actor workflow.Actor, id uuid.UUID, qty int) (*models.Requisition, error) {
	if err := explode.ValidateMultiplier(qty); err != nil {
		return nil, err
	}
	req, table, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.EnsureEditable(*table); err != nil {
		return nil, err
	}

	var materials []models.RequisitionMaterial
	rows, err := s.catalog.RowsForSKU(ctx, req.SKUCode, req.SKUName)
	switch {
	case err == nil:
		materials, err = explode.Regenerate(req.Materials, rows, qty)
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		materials, err = explode.Rescale(req.Materials, qty)
	}
	if err != nil {
		return nil, err
	}

	updated := *req
	updated.QtyNeeded = qty
	updated.Materials = materials
	workflow.Rollup(&updated)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ReplaceMaterials(ctx, id, materials); err != nil {
			return err
		}
		return repo.Update(ctx, id, map[string]any{
			"qty_needed": qty,
			"status":     updated.Status,
		})
	})
	if err != nil {
		return nil, workflow.StoreError(err, "requisition not found", "update requisition quantity")
	}
	return s.reload(ctx, id)
}

func (s *service) UpdateFields(ctx context.Context, actor workflow.Actor, id uuid.UUID, patch FieldsPatch) (*models.Requisition, error) {
	req, table, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.EnsureEditable(*table); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if patch.Type != nil && *patch.Type != req.Type {
		if !patch.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid requisition type")
		}
		if err := s.checkCutOff(ctx, *patch.Type, patch.Confirm); err != nil {
			return nil, err
		}
		fields["type"] = *patch.Type
	}
	supplier, brand, unit := workflow.Known(req.Supplier), workflow.Known(req.Brand), req.Unit
	if patch.Supplier != nil {
		supplier = *patch.Supplier
		fields["supplier"] = supplier.Value()
	}
	if patch.Brand != nil {
		brand = *patch.Brand
		fields["brand"] = brand.Value()
	}
	if patch.Unit != nil {
		unit = strings.TrimSpace(*patch.Unit)
		fields["unit"] = unit
	}
	if err := validateChoices(supplier, brand, unit); err != nil {
		return nil, err
	}
	if patch.DateNeeded != nil {
		fields["date_needed"] = *patch.DateNeeded
	}
	if patch.Remarks != nil {
		fields["remarks"] = *patch.Remarks
	}
	if len(fields) == 0 {
		return req, nil
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, workflow.StoreError(err, "requisition not found", "update requisition")
	}
	return s.reload(ctx, id)
}

// ServeMaterial records a delivery. The rollup runs on a copy; the stored
// requisition only changes if the transaction commits.
func (s *service) ServeMaterial(ctx context.Context, actor workflow.Actor, id, materialID uuid.UUID, input ServeInput) (*models.Requisition, error) {
	if input.ServedQty.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "served_qty cannot be negative")
	}
	req, _, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Status == enums.RequisitionStatusSubmitted || req.Status == enums.RequisitionStatusRejected {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "requisition is %s and cannot be served", req.Status)
	}

	updated := *req
	updated.Materials = append([]models.RequisitionMaterial(nil), req.Materials...)
	idx := -1
	for i, m := range updated.Materials {
		if m.ID == materialID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material not found on requisition")
	}

	material := updated.Materials[idx]
	material.ServedQty = input.ServedQty
	if input.Remarks != nil {
		material.Remarks = input.Remarks
	}
	servedAt := s.now().UTC()
	if input.ServedDate != nil {
		servedAt = *input.ServedDate
	}
	if input.ServedQty.Sign() > 0 {
		material.ServedDate = &servedAt
	} else {
		material.ServedDate = nil
	}
	updated.Materials[idx] = material

	previous := req.Status
	status := workflow.Rollup(&updated)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateMaterial(ctx, material); err != nil {
			return err
		}
		if status == previous {
			return nil
		}
		if err := repo.Update(ctx, id, map[string]any{"status": status}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequisitionServed,
			AggregateType: enums.AggregateRequisition,
			AggregateID:   id,
			Actor:         actor.Ref(),
			Data: outbox.RequisitionServedEvent{
				RequisitionID:     id,
				RequisitionNumber: req.RequisitionNumber,
				TableID:           req.TableID,
				MaterialID:        material.ID,
				Material:          material.Name,
				ServedQty:         material.ServedQty.String(),
				Status:            status,
			},
		})
	})
	if err != nil {
		return nil, workflow.StoreError(err, "material not found", "serve material")
	}

	if status != previous {
		s.metrics.IncTransition("requisition", string(status))
	}
	logCtx := s.logg.WithFields(s.logg.WithRequisitionID(s.logg.WithTableID(ctx, req.TableID.String()), id.String()), map[string]any{
		"material_id": materialID.String(),
		"status":      string(status),
	})
	s.logg.Info(logCtx, "requisition.material_served")
	return &updated, nil
}

func (s *service) Delete(ctx context.Context, actor workflow.Actor, id uuid.UUID) error {
	req, table, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := workflow.EnsureEditable(*table); err != nil {
		return err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		_, err := repo.SyncItemCount(ctx, req.TableID)
		return err
	})
	if err != nil {
		return workflow.StoreError(err, "requisition not found", "delete requisition")
	}
	s.logg.Info(s.logg.WithField(ctx, "requisition_id", id.String()), "requisition.deleted")
	return nil
}

func (s *service) Get(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*models.Requisition, error) {
	req, _, err := s.load(ctx, actor, id)
	return req, err
}

func (s *service) ListByTable(ctx context.Context, actor workflow.Actor, tableID uuid.UUID) ([]models.Requisition, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.loadTable(ctx, actor, tableID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByTable(ctx, tableID)
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "list requisitions")
	}
	return rows, nil
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*models.Requisition, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, workflow.StoreError(err, "requisition not found", "reload requisition")
	}
	return req, nil
}
