package tables

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/internal/cutoff"
	"github.com/angelmondragon/matreq-backend/internal/workflow"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
	"github.com/angelmondragon/matreq-backend/pkg/outbox"
)

type requisitionStore interface {
	ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.Requisition, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SyncItemCount(ctx context.Context, tableID uuid.UUID) (int, error)
	SubmitDrafts(ctx context.Context, tx *gorm.DB, tableID, by uuid.UUID, at time.Time) (int64, error)
	ApproveSubmitted(ctx context.Context, tx *gorm.DB, tableID, by uuid.UUID, at time.Time) (int64, error)
	MarkReviewed(ctx context.Context, tx *gorm.DB, tableID, by uuid.UUID, at time.Time) (int64, error)
}

type receiptStore interface {
	CountPaperwork(ctx context.Context, tableID uuid.UUID) (int64, error)
	DetachTable(ctx context.Context, tx *gorm.DB, tableID uuid.UUID) (int64, error)
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

// Service drives the table approval workflow.
type Service interface {
	Create(ctx context.Context, actor workflow.Actor, input CreateInput) (*models.RequisitionTable, error)
	Get(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*models.RequisitionTable, error)
	ListByUser(ctx context.Context, actor workflow.Actor) ([]models.RequisitionTable, error)
	ListPendingApproval(ctx context.Context, actor workflow.Actor) ([]models.RequisitionTable, error)
	Update(ctx context.Context, actor workflow.Actor, id uuid.UUID, input UpdateInput) (*models.RequisitionTable, error)
	Permissions(ctx context.Context, actor workflow.Actor, id uuid.UUID) (Permissions, error)
	Submit(ctx context.Context, actor workflow.Actor, id uuid.UUID, confirm bool) (*models.RequisitionTable, error)
	Approve(ctx context.Context, actor workflow.Actor, id uuid.UUID, remarks *string) (*models.RequisitionTable, error)
	Reject(ctx context.Context, actor workflow.Actor, id uuid.UUID, remarks *string) (*models.RequisitionTable, error)
	Delete(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*DeleteResult, error)
}

type CreateInput struct {
	Name       string
	DateNeeded *time.Time
	Remarks    *string
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name       *string
	DateNeeded *time.Time
	Remarks    *string
}

// Permissions summarises what the caller may do with a table right now.
type Permissions struct {
	CanEdit           bool   `json:"can_edit"`
	CanAddRequisition bool   `json:"can_add_requisition"`
	Warning           string `json:"warning,omitempty"`
	Paperwork         int64  `json:"paperwork"`
}

// DeleteResult reports what a cascade delete removed.
type DeleteResult struct {
	RequisitionsDeleted int   `json:"requisitions_deleted"`
	ReceiptsDetached    int64 `json:"receipts_detached"`
}

// Deps groups the collaborators of the table service.
type Deps struct {
	Repo         Repository
	Requisitions requisitionStore
	Receipts     receiptStore
	CutOff       cutOffChecker
	Tx           txRunner
	Outbox       outboxPublisher
	Metrics      transitionMetrics
	Logger       *logger.Logger
}

type service struct {
	repo         Repository
	requisitions requisitionStore
	receipts     receiptStore
	cutoff       cutOffChecker
	tx           txRunner
	outbox       outboxPublisher
	metrics      transitionMetrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("table repository required")
	case deps.Requisitions == nil:
		return nil, fmt.Errorf("requisition store required")
	case deps.Receipts == nil:
		return nil, fmt.Errorf("receipt store required")
	case deps.CutOff == nil:
		return nil, fmt.Errorf("cut-off policy required")
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
		repo:         deps.Repo,
		requisitions: deps.Requisitions,
		receipts:     deps.Receipts,
		cutoff:       deps.CutOff,
		tx:           deps.Tx,
		outbox:       deps.Outbox,
		metrics:      deps.Metrics,
		logg:         deps.Logger,
		now:          time.Now,
	}, nil
}

func (s *service) load(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*models.RequisitionTable, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	table, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "load table")
	}
	if !actor.CanAccessTable(table.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "table belongs to another user")
	}
	return table, nil
}

func (s *service) Create(ctx context.Context, actor workflow.Actor, input CreateInput) (*models.RequisitionTable, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table name is required")
	}
	table := &models.RequisitionTable{
		Name:       name,
		UserID:     actor.UserID,
		Status:     enums.TableStatusDraft,
		DateNeeded: input.DateNeeded,
		Remarks:    input.Remarks,
	}
	if err := s.repo.Create(ctx, table); err != nil {
		return nil, workflow.StoreError(err, "table not found", "create table")
	}
	s.metrics.IncTransition("table", string(table.Status))
	s.logg.Info(s.logg.WithTableID(s.logg.WithUserID(ctx, actor.UserID.String()), table.ID.String()), "table.created")
	return table, nil
}

func (s *service) Get(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*models.RequisitionTable, error) {
	return s.load(ctx, actor, id)
}

func (s *service) ListByUser(ctx context.Context, actor workflow.Actor) ([]models.RequisitionTable, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "list tables")
	}
	return rows, nil
}

func (s *service) ListPendingApproval(ctx context.Context, actor workflow.Actor) ([]models.RequisitionTable, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := workflow.EnsureAdmin(actor.Role); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByStatus(ctx, enums.TableStatusSubmitted)
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "list pending tables")
	}
	return rows, nil
}

func (s *service) Update(ctx context.Context, actor workflow.Actor, id uuid.UUID, input UpdateInput) (*models.RequisitionTable, error) {
	table, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.EnsureEditable(*table); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "table name is required")
		}
		fields["name"] = name
	}
	if input.DateNeeded != nil {
		fields["date_needed"] = *input.DateNeeded
	}
	if input.Remarks != nil {
		fields["remarks"] = *input.Remarks
	}
	if len(fields) == 0 {
		return table, nil
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, workflow.StoreError(err, "table not found", "update table")
	}
	return s.reload(ctx, id)
}

func (s *service) Permissions(ctx context.Context, actor workflow.Actor, id uuid.UUID) (Permissions, error) {
	table, err := s.load(ctx, actor, id)
	if err != nil {
		return Permissions{}, err
	}
	perms := Permissions{CanEdit: workflow.CanEdit(*table)}
	if table.Status == enums.TableStatusApproved {
		if perms.Paperwork, err = s.receipts.CountPaperwork(ctx, id); err != nil {
			return Permissions{}, workflow.StoreError(err, "table not found", "count receipts")
		}
	}
	switch err := workflow.CanAddRequisition(*table, perms.Paperwork); {
	case err == nil:
		perms.CanAddRequisition = true
	case pkgerrors.IsCode(err, pkgerrors.CodePolicyWarning):
		perms.Warning = workflow.WarningReceiptRequired
	}
	return perms, nil
}

func (s *service) Submit(ctx context.Context, actor workflow.Actor, id uuid.UUID, confirm bool) (*models.RequisitionTable, error) {
	table, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	reqs, err := s.requisitions.ListByTable(ctx, id)
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "list requisitions")
	}
	if err := workflow.ValidateForSubmit(*table, reqs); err != nil {
		return nil, err
	}
	if err := s.checkCutOffs(ctx, reqs, confirm); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	from := table.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, id, map[string]any{
			"status":       enums.TableStatusSubmitted,
			"submitted_by": actor.UserID,
			"submitted_at": now,
		}); err != nil {
			return err
		}
		if _, err := s.requisitions.SubmitDrafts(ctx, tx, id, actor.UserID, now); err != nil {
			return err
		}
		return s.emitStatus(ctx, tx, actor, enums.EventTableSubmitted, *table, from, enums.TableStatusSubmitted, nil)
	})
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "submit table")
	}
	return s.transitioned(ctx, id, enums.TableStatusSubmitted)
}

// checkCutOffs evaluates each distinct requisition type once, in a stable order.
func (s *service) checkCutOffs(ctx context.Context, reqs []models.Requisition, confirm bool) error {
	seen := map[enums.RequisitionType]bool{}
	var types []enums.RequisitionType
	for _, r := range reqs {
		if !seen[r.Type] {
			seen[r.Type] = true
			types = append(types, r.Type)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	now := s.now()
	for _, typ := range types {
		status, err := s.cutoff.Check(typ, now)
		if err != nil {
			return err
		}
		if !status.PastCutOff {
			continue
		}
		if !confirm {
			return cutoff.Warning(status)
		}
		s.logg.Warn(s.logg.WithField(ctx, "type", string(typ)), "table.cutoff_overridden")
	}
	return nil
}

func (s *service) Approve(ctx context.Context, actor workflow.Actor, id uuid.UUID, remarks *string) (*models.RequisitionTable, error) {
	table, err := s.review(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	fields := map[string]any{
		"status":      enums.TableStatusApproved,
		"approved_by": actor.UserID,
		"approved_at": now,
		"reviewed_by": actor.UserID,
		"reviewed_at": now,
	}
	if remarks != nil {
		fields["remarks"] = *remarks
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, id, fields); err != nil {
			return err
		}
		if _, err := s.requisitions.ApproveSubmitted(ctx, tx, id, actor.UserID, now); err != nil {
			return err
		}
		return s.emitStatus(ctx, tx, actor, enums.EventTableApproved, *table, table.Status, enums.TableStatusApproved, remarks)
	})
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "approve table")
	}
	return s.transitioned(ctx, id, enums.TableStatusApproved)
}

// Reject returns the table to an editable state. Child requisitions keep
// their status and only receive the reviewer stamp.
func (s *service) Reject(ctx context.Context, actor workflow.Actor, id uuid.UUID, remarks *string) (*models.RequisitionTable, error) {
	table, err := s.review(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	fields := map[string]any{
		"status":      enums.TableStatusRejected,
		"reviewed_by": actor.UserID,
		"reviewed_at": now,
	}
	if remarks != nil {
		fields["remarks"] = *remarks
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, id, fields); err != nil {
			return err
		}
		if _, err := s.requisitions.MarkReviewed(ctx, tx, id, actor.UserID, now); err != nil {
			return err
		}
		return s.emitStatus(ctx, tx, actor, enums.EventTableRejected, *table, table.Status, enums.TableStatusRejected, remarks)
	})
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "reject table")
	}
	return s.transitioned(ctx, id, enums.TableStatusRejected)
}

func (s *service) review(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*models.RequisitionTable, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := workflow.EnsureAdmin(actor.Role); err != nil {
		return nil, err
	}
	table, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.EnsureSubmitted(*table); err != nil {
		return nil, err
	}
	return table, nil
}

// Delete cascades in dependency order: receipts are detached, requisitions
// removed one by one, then the table. Requisition failures are aggregated and
// leave the table in place; nothing already removed is restored.
func (s *service) Delete(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*DeleteResult, error) {
	table, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithTableID(ctx, id.String())

	detached, err := s.receipts.DetachTable(ctx, nil, id)
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "detach receipts")
	}
	reqs, err := s.requisitions.ListByTable(ctx, id)
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "list requisitions")
	}

	result := &DeleteResult{ReceiptsDetached: detached}
	var errs error
	for _, r := range reqs {
		if err := s.requisitions.Delete(ctx, r.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete requisition %s: %w", r.RequisitionNumber, err))
			continue
		}
		result.RequisitionsDeleted++
	}
	if errs != nil {
		failed := len(multierr.Errors(errs))
		details := map[string]any{
			"requisitions_deleted": result.RequisitionsDeleted,
			"requisitions_failed":  failed,
			"receipts_detached":    detached,
		}
		// the table stays, so its cached count must match what survived
		if result.RequisitionsDeleted > 0 {
			remaining, syncErr := s.requisitions.SyncItemCount(ctx, id)
			if syncErr != nil {
				errs = multierr.Append(errs, fmt.Errorf("sync item count: %w", syncErr))
			} else {
				details["item_count"] = remaining
			}
		}
		s.logg.Error(s.logg.WithField(logCtx, "failed", failed), "table.delete_partial", errs)
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "table delete incomplete").
			WithDetails(details)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTableDeleted,
			AggregateType: enums.AggregateTable,
			AggregateID:   id,
			Actor:         actor.Ref(),
			Data: outbox.TableDeletedEvent{
				TableID:             id,
				RequisitionsDeleted: result.RequisitionsDeleted,
				ReceiptsDetached:    detached,
			},
		})
	})
	if err != nil {
		return result, workflow.StoreError(err, "table not found", "delete table")
	}

	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"name":                 table.Name,
		"requisitions_deleted": result.RequisitionsDeleted,
		"receipts_detached":    detached,
	}), "table.deleted")
	return result, nil
}

func (s *service) emitStatus(ctx context.Context, tx *gorm.DB, actor workflow.Actor, eventType enums.OutboxEventType, table models.RequisitionTable, from, to enums.TableStatus, remarks *string) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateTable,
		AggregateID:   table.ID,
		Actor:         actor.Ref(),
		Data: outbox.TableStatusChangedEvent{
			TableID:   table.ID,
			Name:      table.Name,
			OwnerID:   table.UserID,
			From:      from,
			To:        to,
			ItemCount: table.ItemCount,
			Remarks:   remarks,
		},
	})
}

func (s *service) transitioned(ctx context.Context, id uuid.UUID, to enums.TableStatus) (*models.RequisitionTable, error) {
	s.metrics.IncTransition("table", string(to))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"table_id": id.String(), "status": string(to)}), "table.status_changed")
	return s.reload(ctx, id)
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*models.RequisitionTable, error) {
	table, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "reload table")
	}
	return table, nil
}
