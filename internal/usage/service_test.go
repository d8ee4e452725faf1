package usage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/matreq-backend/internal/requisitions"
	"github.com/angelmondragon/matreq-backend/internal/tables"
	"github.com/angelmondragon/matreq-backend/internal/workflow"
	"github.com/angelmondragon/matreq-backend/pkg/db/dbtest"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
)

func TestReportAcrossTables(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	owner := workflow.Actor{UserID: uuid.New(), Role: enums.ActorRoleOperator}

	seedTable := func(name string) models.RequisitionTable {
		table := models.RequisitionTable{Name: name, UserID: owner.UserID, Status: enums.TableStatusDraft}
		require.NoError(t, conn.Create(&table).Error)
		return table
	}
	seedReq := func(tableID uuid.UUID, number string, salt string) models.Requisition {
		req := models.Requisition{
			RequisitionNumber: number,
			TableID:           tableID,
			Type:              enums.RequisitionTypePerishable,
			SKUCode:           "BR-01",
			SKUName:           "Bread",
			QtyNeeded:         1,
			Status:            enums.RequisitionStatusDraft,
			Materials: []models.RequisitionMaterial{
				{Name: "Salt", Unit: "kg", Qty: decimal.RequireFromString(salt), RequiredQty: decimal.RequireFromString(salt)},
			},
		}
		require.NoError(t, conn.Create(&req).Error)
		return req
	}

	week1 := seedTable("Week 1")
	week2 := seedTable("Week 2")
	seedReq(week1.ID, "MR-260105-101", "3")
	extra := seedReq(week2.ID, "MR-260105-102", "2")

	svc, err := NewService(tables.NewRepository(conn), requisitions.NewRepository(conn), NewAggregator(nil), logger.New(logger.Options{ServiceName: "usage-test"}))
	require.NoError(t, err)

	summary, err := svc.Report(ctx, owner, ReportInput{
		TableIDs:       []uuid.UUID{week1.ID, week2.ID},
		RequisitionIDs: []uuid.UUID{extra.ID},
	})
	require.NoError(t, err)
	require.Len(t, summary.Rows, 1)
	assert.True(t, summary.Rows[0].Total.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 2, summary.Rows[0].TableCount)
	assert.Equal(t, []string{"Week 1", "Week 2"}, summary.Rows[0].Tables)
	require.Len(t, summary.Types, 1)
	assert.Equal(t, TypeSpice, summary.Types[0].Type)
	assert.True(t, summary.Types[0].Percent.Equal(decimal.NewFromInt(100)))

	byID, err := svc.Report(ctx, owner, ReportInput{RequisitionIDs: []uuid.UUID{extra.ID}})
	require.NoError(t, err)
	require.Len(t, byID.Rows, 1)
	assert.Equal(t, []string{"Week 2"}, byID.Rows[0].Tables)

	stranger := workflow.Actor{UserID: uuid.New(), Role: enums.ActorRoleOperator}
	_, err = svc.Report(ctx, stranger, ReportInput{TableIDs: []uuid.UUID{week1.ID}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Report(ctx, owner, ReportInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Report(ctx, owner, ReportInput{TableIDs: []uuid.UUID{uuid.New()}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
