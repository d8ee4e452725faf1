package receipts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/internal/requisitions"
	"github.com/angelmondragon/matreq-backend/internal/tables"
	"github.com/angelmondragon/matreq-backend/internal/workflow"
	"github.com/angelmondragon/matreq-backend/pkg/db"
	"github.com/angelmondragon/matreq-backend/pkg/db/dbtest"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
	"github.com/angelmondragon/matreq-backend/pkg/outbox"
)

type fixture struct {
	conn  *gorm.DB
	svc   Service
	repo  Repository
	owner workflow.Actor
	admin workflow.Actor
	table models.RequisitionTable
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "receipts-test"})
	repo := NewRepository(conn)
	svc, err := NewService(repo, tables.NewRepository(conn), requisitions.NewRepository(conn), db.FromConn(conn), outbox.NewService(outbox.NewRepository(conn), logg), logg)
	require.NoError(t, err)

	owner := workflow.Actor{UserID: uuid.New(), Role: enums.ActorRoleOperator}
	table := models.RequisitionTable{Name: "Week 2", UserID: owner.UserID, Status: enums.TableStatusApproved}
	require.NoError(t, conn.Create(&table).Error)

	return fixture{
		conn:  conn,
		svc:   svc,
		repo:  repo,
		owner: owner,
		admin: workflow.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin},
		table: table,
	}
}

func validInput() CreateInput {
	return CreateInput{
		PONumber:    "PO-1001",
		Supplier:    "Acme",
		Amount:      decimal.RequireFromString("1520.50"),
		ReceiptDate: time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateCountsAsPaperwork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.svc.Create(ctx, f.owner, f.table.ID, validInput())
	require.NoError(t, err)
	assert.Equal(t, enums.ReceiptStatusPending, receipt.Status)
	assert.Equal(t, f.owner.UserID, receipt.UploadedBy)

	count, err := f.repo.CountPaperwork(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCreateValidatesAndChecksOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := validInput()
	bad.PONumber = " "
	_, err := f.svc.Create(ctx, f.owner, f.table.ID, bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	stranger := workflow.Actor{UserID: uuid.New(), Role: enums.ActorRoleOperator}
	_, err = f.svc.Create(ctx, stranger, f.table.ID, validInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Create(ctx, f.owner, uuid.New(), validInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestVerifyRequiresAdminAndQueuesEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.svc.Create(ctx, f.owner, f.table.ID, validInput())
	require.NoError(t, err)

	verified := enums.ReceiptStatusVerified
	_, err = f.svc.Update(ctx, f.owner, receipt.ID, UpdateInput{Status: &verified})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	updated, err := f.svc.Update(ctx, f.admin, receipt.ID, UpdateInput{Status: &verified})
	require.NoError(t, err)
	assert.Equal(t, enums.ReceiptStatusVerified, updated.Status)
	require.NotNil(t, updated.VerifiedBy)
	assert.Equal(t, f.admin.UserID, *updated.VerifiedBy)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", enums.EventReceiptStatusChanged).Find(&events).Error)
	assert.Len(t, events, 1)

	rejected := enums.ReceiptStatusRejected
	_, err = f.svc.Update(ctx, f.admin, receipt.ID, UpdateInput{Status: &rejected})
	require.NoError(t, err)
	count, err := f.repo.CountPaperwork(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestUpdateFieldsAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.svc.Create(ctx, f.owner, f.table.ID, validInput())
	require.NoError(t, err)

	supplier := "Acme Wholesale"
	amount := decimal.RequireFromString("99.90")
	updated, err := f.svc.Update(ctx, f.owner, receipt.ID, UpdateInput{Supplier: &supplier, Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, supplier, updated.Supplier)
	assert.True(t, updated.Amount.Equal(amount))

	require.NoError(t, f.svc.Delete(ctx, f.owner, receipt.ID))
	err = f.svc.Delete(ctx, f.owner, receipt.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDetachTableKeepsReceipts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.svc.Create(ctx, f.owner, f.table.ID, validInput())
	require.NoError(t, err)

	n, err := f.repo.DetachTable(ctx, nil, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := f.repo.FindByID(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.TableID)

	rows, err := f.svc.ListByTable(ctx, f.owner, f.table.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func (f fixture) seedRequisition(t *testing.T, tableID uuid.UUID, number string) models.Requisition {
	t.Helper()
	req := models.Requisition{
		RequisitionNumber: number,
		TableID:           tableID,
		Type:              enums.RequisitionTypePerishable,
		SKUCode:           "BR-01",
		SKUName:           "Bread",
		QtyNeeded:         1,
		Supplier:          "Acme",
		Brand:             "Local Mill",
		Unit:              "sack",
		Status:            enums.RequisitionStatusApproved,
	}
	require.NoError(t, f.conn.Create(&req).Error)
	return req
}

func TestRequisitionLinkMustStayOnTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := models.RequisitionTable{Name: "Someone else", UserID: uuid.New(), Status: enums.TableStatusDraft}
	require.NoError(t, f.conn.Create(&other).Error)
	own := f.seedRequisition(t, f.table.ID, "MR-260107-001")
	foreign := f.seedRequisition(t, other.ID, "MR-260107-002")

	input := validInput()
	input.RequisitionID = &foreign.ID
	_, err := f.svc.Create(ctx, f.owner, f.table.ID, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	missing := uuid.New()
	input.RequisitionID = &missing
	_, err = f.svc.Create(ctx, f.owner, f.table.ID, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	input.RequisitionID = &own.ID
	receipt, err := f.svc.Create(ctx, f.owner, f.table.ID, input)
	require.NoError(t, err)
	require.NotNil(t, receipt.RequisitionID)
	assert.Equal(t, own.ID, *receipt.RequisitionID)

	_, err = f.svc.Update(ctx, f.owner, receipt.ID, UpdateInput{RequisitionID: &foreign.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	_, err = f.svc.Update(ctx, f.owner, receipt.ID, UpdateInput{RequisitionID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	var stored models.POReceipt
	require.NoError(t, f.conn.First(&stored, "id = ?", receipt.ID).Error)
	assert.Equal(t, own.ID, *stored.RequisitionID)
}
