package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/matreq-backend/pkg/db"
	"github.com/angelmondragon/matreq-backend/pkg/db/dbtest"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
	"github.com/angelmondragon/matreq-backend/pkg/outbox"
)

type memoryCache struct {
	version   int64
	snapshots map[int64][]models.CatalogRow
	loads     int
	stores    int
	failGet   bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{snapshots: make(map[int64][]models.CatalogRow)}
}

func (c *memoryCache) Version(context.Context) (int64, error) {
	if c.failGet {
		return 0, errors.New("redis down")
	}
	return c.version, nil
}

func (c *memoryCache) Bump(context.Context) (int64, error) {
	c.version++
	return c.version, nil
}

func (c *memoryCache) Load(_ context.Context, version int64) ([]models.CatalogRow, bool, error) {
	c.loads++
	rows, ok := c.snapshots[version]
	return rows, ok, nil
}

func (c *memoryCache) Store(_ context.Context, version int64, rows []models.CatalogRow) error {
	c.stores++
	c.snapshots[version] = rows
	return nil
}

func newTestService(t *testing.T, cache Cache) Service {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "catalog-test"})
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)
	svc, err := NewService(NewRepository(conn), db.FromConn(conn), publisher, cache, logg)
	require.NoError(t, err)
	return svc
}

func row(code, name, material, qty string, category *string) models.CatalogRow {
	return models.CatalogRow{
		Category:         category,
		SKUCode:          code,
		SKUName:          name,
		RawMaterial:      material,
		QuantityPerBatch: qty,
		BatchUnit:        "kg",
	}
}

func strPtr(v string) *string { return &v }

func TestDedupeKeepsLastOccurrence(t *testing.T) {
	rows := []models.CatalogRow{
		row("A", "Bread", "Flour", "1", nil),
		row("A", "Bread", "Salt", "0.1", nil),
		row("A", "Bread", "Flour", "2", nil),
	}
	out := Dedupe(rows)
	require.Len(t, out, 2)
	assert.Equal(t, "Flour", out[0].RawMaterial)
	assert.Equal(t, "2", out[0].QuantityPerBatch)
	assert.Equal(t, "Salt", out[1].RawMaterial)
}

func TestUpsertIsLastWriteWinsAndIdempotent(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	n, err := svc.Upsert(ctx, []models.CatalogRow{
		row("A", "Bread", "Flour", "1", nil),
		row("A", "Bread", "Salt", "0.1", nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.Upsert(ctx, []models.CatalogRow{row("A", "Bread", "Flour", "3.5", nil)})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, []models.CatalogRow{row("A", "Bread", "Flour", "3.5", nil)})
	require.NoError(t, err)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	byMaterial := map[string]string{}
	for _, r := range all {
		byMaterial[r.RawMaterial] = r.QuantityPerBatch
	}
	assert.Equal(t, "3.5", byMaterial["Flour"])
	assert.Equal(t, "0.1", byMaterial["Salt"])
}

func TestReplaceDropsPreviousRows(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, []models.CatalogRow{
		row("A", "Bread", "Flour", "1", nil),
		row("B", "Bun", "Sugar", "1", nil),
	})
	require.NoError(t, err)

	n, err := svc.Replace(ctx, []models.CatalogRow{row("C", "Cake", "Egg", "4", nil)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "C", all[0].SKUCode)
}

func TestWriteRejectsEmptyInput(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Upsert(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCategoriesAndByCategory(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, []models.CatalogRow{
		row("A", "Bread", "Flour", "1", strPtr("Bakery")),
		row("B", "Soup", "Salt", "1", nil),
		row("C", "Stew", "Beef", "1", strPtr("  ")),
	})
	require.NoError(t, err)

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bakery", Uncategorized}, cats)

	rows, err := svc.ByCategory(ctx, "uncategorized")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = svc.ByCategory(ctx, "bakery")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].SKUCode)
}

func TestRowsForSKUFallsBackToName(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, []models.CatalogRow{
		row("A", "Bread", "Flour", "1", nil),
		row("A", "Bread", "Salt", "1", nil),
		row("B", "Bun", "Sugar", "1", nil),
	})
	require.NoError(t, err)

	rows, err := svc.RowsForSKU(ctx, "a", "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = svc.RowsForSKU(ctx, "UNKNOWN", "bun")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Sugar", rows[0].RawMaterial)

	_, err = svc.RowsForSKU(ctx, "Z", "Nothing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.RowsForSKU(ctx, " ", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAllUsesCacheAndUploadsBumpVersion(t *testing.T) {
	cache := newMemoryCache()
	svc := newTestService(t, cache)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, []models.CatalogRow{row("A", "Bread", "Flour", "1", nil)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cache.version)

	_, err = svc.All(ctx)
	require.NoError(t, err)
	_, err = svc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.stores)

	_, err = svc.Upsert(ctx, []models.CatalogRow{row("A", "Bread", "Yeast", "1", nil)})
	require.NoError(t, err)
	rows, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, cache.stores)
}

func TestAllFallsBackWhenCacheFails(t *testing.T) {
	cache := newMemoryCache()
	svc := newTestService(t, cache)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, []models.CatalogRow{row("A", "Bread", "Flour", "1", nil)})
	require.NoError(t, err)

	cache.failGet = true
	rows, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 0, cache.stores)
}

func TestUploadQueuesCatalogEvent(t *testing.T) {
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "catalog-test"})
	svc, err := NewService(NewRepository(conn), db.FromConn(conn), outbox.NewService(outbox.NewRepository(conn), logg), nil, logg)
	require.NoError(t, err)

	_, err = svc.Replace(context.Background(), []models.CatalogRow{row("A", "Bread", "Flour", "1", nil)})
	require.NoError(t, err)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventCatalogIngested, events[0].EventType)
}
