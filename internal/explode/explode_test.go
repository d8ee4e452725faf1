package explode

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
)

func catalogRow(material, qty, unit string) models.CatalogRow {
	return models.CatalogRow{SKUCode: "SKU-1", SKUName: "Bread", RawMaterial: material, QuantityPerBatch: qty, BatchUnit: unit}
}

func TestParseQuantity(t *testing.T) {
	cases := map[string]string{
		"2.5":    "2.5",
		" 12 ":   "12",
		"0.125":  "0.125",
		".5":     "0.5",
		"3.":     "3",
		"2.5 kg": "2.5",
		"abc":    "0",
		"":       "0",
		"-4":     "0",
	}
	for raw, want := range cases {
		got := ParseQuantity(raw)
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("ParseQuantity(%q) = %s want %s", raw, got, want)
		}
	}
}

func TestExplodeMultipliesExactly(t *testing.T) {
	rows := []models.CatalogRow{
		catalogRow("Flour", "1.25", "kg"),
		catalogRow("Salt", "0.03", "kg"),
		catalogRow("", "9", "kg"),
		catalogRow("Water", "n/a", "L"),
	}

	got, err := Explode(rows, 7)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Flour", got[0].Name)
	assert.True(t, got[0].RequiredQty.Equal(decimal.RequireFromString("8.75")))
	assert.True(t, got[1].RequiredQty.Equal(decimal.RequireFromString("0.21")))
	assert.True(t, got[2].RequiredQty.IsZero())
	assert.Equal(t, "L", got[2].Unit)
	for i, m := range got {
		assert.Equal(t, i, m.Position)
		assert.True(t, m.ServedQty.IsZero())
	}
}

func TestExplodeRejectsOutOfRangeMultiplier(t *testing.T) {
	rows := []models.CatalogRow{catalogRow("Flour", "1", "kg")}
	for _, qty := range []int{0, -1, 1000} {
		_, err := Explode(rows, qty)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "qty %d", qty)
	}
	_, err := Explode(rows, 999)
	require.NoError(t, err)
}

func TestExplodeWithoutRowsIsNotFound(t *testing.T) {
	_, err := Explode(nil, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRegeneratePreservesServeRecordsByName(t *testing.T) {
	rows := []models.CatalogRow{
		catalogRow("Flour", "2", "kg"),
		catalogRow("Sugar", "0.5", "kg"),
	}
	remarks := "short delivery"
	served := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
	flourID := uuid.New()
	reqID := uuid.New()
	existing := []models.RequisitionMaterial{{
		ID:            flourID,
		RequisitionID: reqID,
		Name:          "FLOUR",
		Qty:           decimal.NewFromInt(2),
		RequiredQty:   decimal.NewFromInt(4),
		ServedQty:     decimal.NewFromInt(3),
		Remarks:       &remarks,
		ServedDate:    &served,
	}}

	got, err := Regenerate(existing, rows, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, flourID, got[0].ID)
	assert.Equal(t, reqID, got[0].RequisitionID)
	assert.True(t, got[0].RequiredQty.Equal(decimal.NewFromInt(10)))
	assert.True(t, got[0].ServedQty.Equal(decimal.NewFromInt(3)))
	require.NotNil(t, got[0].Remarks)
	assert.Equal(t, remarks, *got[0].Remarks)
	assert.Equal(t, served, *got[0].ServedDate)

	assert.Equal(t, uuid.Nil, got[1].ID)
	assert.True(t, got[1].RequiredQty.Equal(decimal.RequireFromString("2.5")))
}

func TestRescaleUsesStoredQty(t *testing.T) {
	materials := []models.RequisitionMaterial{{Name: "Flour", Qty: decimal.RequireFromString("1.5"), RequiredQty: decimal.NewFromInt(3)}}
	got, err := Rescale(materials, 4)
	require.NoError(t, err)
	assert.True(t, got[0].RequiredQty.Equal(decimal.NewFromInt(6)))
	assert.True(t, materials[0].RequiredQty.Equal(decimal.NewFromInt(3)))
}
