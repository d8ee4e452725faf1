package usage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
)

type stubCatalog map[string][]models.CatalogRow

func (s stubCatalog) RowsForSKU(_ context.Context, code, _ string) ([]models.CatalogRow, error) {
	rows, ok := s[code]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found in catalog")
	}
	return rows, nil
}

func material(name, unit, qty string) models.RequisitionMaterial {
	return models.RequisitionMaterial{Name: name, Unit: unit, RequiredQty: decimal.RequireFromString(qty)}
}

func source(tableID uuid.UUID, table, sku string, qty int, materials ...models.RequisitionMaterial) Source {
	return Source{
		TableName: table,
		Requisition: models.Requisition{
			ID:                uuid.New(),
			RequisitionNumber: "MR-" + sku,
			TableID:           tableID,
			SKUCode:           sku,
			SKUName:           sku,
			QtyNeeded:         qty,
			Materials:         materials,
		},
	}
}

func TestAggregateCountsDistinctTables(t *testing.T) {
	tableA, tableB := uuid.New(), uuid.New()
	sources := []Source{
		source(tableA, "Week 1", "Bread", 3, material("Salt", "kg", "3")),
		source(tableA, "Week 1", "Bun", 1, material("salt", "kg", "2")),
	}

	summary, err := NewAggregator(nil).Aggregate(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, summary.Rows, 1)
	row := summary.Rows[0]
	assert.Equal(t, "Salt", row.Material)
	assert.True(t, row.Total.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 1, row.TableCount)
	assert.Equal(t, []string{"Week 1"}, row.Tables)
	assert.Equal(t, []string{"Bread (3)", "Bun (1)"}, row.SKUs)

	sources = append(sources, source(tableB, "Week 2", "Bread", 3, material("SALT", "kg", "1")))
	summary, err = NewAggregator(nil).Aggregate(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, 2, summary.Rows[0].TableCount)
	assert.Equal(t, []string{"Bread (3)", "Bun (1)"}, summary.Rows[0].SKUs)
}

func TestAggregateSeparatesUnitsAndSorts(t *testing.T) {
	table := uuid.New()
	sources := []Source{
		source(table, "T", "A", 1,
			material("Salt", "kg", "2"),
			material("Salt", "g", "500"),
			material("Flour", "kg", "7"),
			material("Beef", "kg", "2"),
		),
	}
	summary, err := NewAggregator(nil).Aggregate(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, summary.Rows, 4)

	got := make([]string, 0, len(summary.Rows))
	for _, r := range summary.Rows {
		got = append(got, r.Material+"/"+r.Unit)
	}
	assert.Equal(t, []string{"Salt/g", "Flour/kg", "Beef/kg", "Salt/kg"}, got)
}

func TestAggregateTypeBreakdown(t *testing.T) {
	table := uuid.New()
	flour := material("Flour", "kg", "6")
	flour.Type = "Dry Goods"
	sources := []Source{
		source(table, "T", "A", 1, flour, material("Chicken thigh", "kg", "3"), material("Mystery", "pc", "1")),
	}
	summary, err := NewAggregator(nil).Aggregate(context.Background(), sources)
	require.NoError(t, err)
	assert.True(t, summary.GrandTotal.Equal(decimal.NewFromInt(10)))

	require.Len(t, summary.Types, 3)
	assert.Equal(t, "Dry Goods", summary.Types[0].Type)
	assert.True(t, summary.Types[0].Percent.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, TypeMeat, summary.Types[1].Type)
	assert.True(t, summary.Types[1].Percent.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, TypeOther, summary.Types[2].Type)
}

func TestAggregateExplodesMissingMaterials(t *testing.T) {
	catalog := stubCatalog{
		"BR-01": {
			{SKUCode: "BR-01", SKUName: "Bread", RawMaterial: "Flour", QuantityPerBatch: "1.5", BatchUnit: "kg"},
		},
	}
	table := uuid.New()
	sources := []Source{
		source(table, "T", "BR-01", 4),
		source(table, "T", "GONE", 2),
	}

	summary, err := NewAggregator(catalog).Aggregate(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, summary.Rows, 1)
	assert.True(t, summary.Rows[0].Total.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, []string{"MR-GONE"}, summary.Skipped)
}

func TestAggregateEmpty(t *testing.T) {
	summary, err := NewAggregator(nil).Aggregate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, summary.Rows)
	assert.Empty(t, summary.Types)
	assert.True(t, summary.GrandTotal.IsZero())
}

func TestClassify(t *testing.T) {
	cases := []struct {
		explicit, name, want string
	}{
		{"Dairy", "Salt", "Dairy"},
		{"", "Ground Pork", TypeMeat},
		{"", "Red Onion", TypeVegetable},
		{"", "Iodized Salt", TypeSpice},
		{"", "Paper Box 6x6", TypePackaging},
		{"", "Canola Oil", TypeLiquid},
		{"", "Yeast", TypeOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.explicit, tc.name), tc.name)
	}
}
