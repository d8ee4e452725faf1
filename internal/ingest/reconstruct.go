package ingest

import (
	"strings"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
)

// Record is one normalized (SKU, raw material) line.
type Record struct {
	Category         string `json:"category"`
	SKUCode          string `json:"sku_code"`
	SKUName          string `json:"sku_name"`
	QuantityPerUnit  string `json:"quantity_per_unit"`
	Unit             string `json:"unit"`
	QuantityPerPack  string `json:"quantity_per_pack"`
	PackUnit         string `json:"pack_unit"`
	RawMaterial      string `json:"raw_material"`
	QuantityPerBatch string `json:"quantity_per_batch"`
	BatchUnit        string `json:"batch_unit"`
	Type             string `json:"type"`
	Line             int    `json:"line"`
}

// ToModel converts the record into a catalog row. An empty category is stored as NULL.
func (r Record) ToModel() models.CatalogRow {
	row := models.CatalogRow{
		SKUCode:          r.SKUCode,
		SKUName:          r.SKUName,
		QuantityPerUnit:  r.QuantityPerUnit,
		Unit:             r.Unit,
		QuantityPerPack:  r.QuantityPerPack,
		PackUnit:         r.PackUnit,
		RawMaterial:      r.RawMaterial,
		QuantityPerBatch: r.QuantityPerBatch,
		BatchUnit:        r.BatchUnit,
		Type:             r.Type,
		Line:             r.Line,
	}
	if r.Category != "" {
		category := r.Category
		row.Category = &category
	}
	return row
}

func (r Record) missing() []Field {
	values := map[Field]string{
		FieldSKUCode:          r.SKUCode,
		FieldSKUName:          r.SKUName,
		FieldRawMaterial:      r.RawMaterial,
		FieldQuantityPerBatch: r.QuantityPerBatch,
		FieldBatchUnit:        r.BatchUnit,
	}
	var out []Field
	for _, f := range RecordFields {
		if values[f] == "" {
			out = append(out, f)
		}
	}
	return out
}

// skuContext holds the SKU-level columns carried down onto material rows.
type skuContext struct {
	Category        string
	SKUCode         string
	SKUName         string
	QuantityPerUnit string
	Unit            string
	QuantityPerPack string
	PackUnit        string
}

// overlay applies the non-blank fields of next on top of c.
func (c skuContext) overlay(next skuContext) skuContext {
	pick := func(cur, n string) string {
		if n != "" {
			return n
		}
		return cur
	}
	return skuContext{
		Category:        pick(c.Category, next.Category),
		SKUCode:         pick(c.SKUCode, next.SKUCode),
		SKUName:         pick(c.SKUName, next.SKUName),
		QuantityPerUnit: pick(c.QuantityPerUnit, next.QuantityPerUnit),
		Unit:            pick(c.Unit, next.Unit),
		QuantityPerPack: pick(c.QuantityPerPack, next.QuantityPerPack),
		PackUnit:        pick(c.PackUnit, next.PackUnit),
	}
}

// startsNewSKU reports whether the row names a different SKU than the context.
func (c skuContext) startsNewSKU(row skuContext) bool {
	if row.SKUCode != "" && !strings.EqualFold(row.SKUCode, c.SKUCode) {
		return true
	}
	return row.SKUCode == "" && row.SKUName != "" && !strings.EqualFold(row.SKUName, c.SKUName)
}

// DroppedRow reports a material row that could not form a complete record.
type DroppedRow struct {
	Row     int      `json:"row"`
	Missing []string `json:"missing"`
}

// Accumulator is the state threaded through the row fold.
type Accumulator struct {
	context skuContext
	Records []Record
	Dropped []DroppedRow
}

// Step folds one data row into the accumulator. sheetRow is the 1-based row
// number in the source sheet and only feeds error reporting.
func Step(acc Accumulator, cols ColumnMap, sheetRow int, cells []string) Accumulator {
	cell := func(f Field) string {
		idx := cols.Index(f)
		if idx < 0 || idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}

	row := skuContext{
		Category:        cell(FieldCategory),
		SKUCode:         cell(FieldSKUCode),
		SKUName:         cell(FieldSKUName),
		QuantityPerUnit: cell(FieldQuantityPerUnit),
		Unit:            cell(FieldUnit),
		QuantityPerPack: cell(FieldQuantityPerPack),
		PackUnit:        cell(FieldPackUnit),
	}
	material := cell(FieldRawMaterial)

	// a header row always resets the carried SKU, even a partial one
	if material == "" {
		acc.context = row
		return acc
	}

	if acc.context.startsNewSKU(row) {
		acc.context = row
	} else {
		acc.context = acc.context.overlay(row)
	}

	ctx := acc.context
	rec := Record{
		Category:         ctx.Category,
		SKUCode:          ctx.SKUCode,
		SKUName:          ctx.SKUName,
		QuantityPerUnit:  ctx.QuantityPerUnit,
		Unit:             ctx.Unit,
		QuantityPerPack:  ctx.QuantityPerPack,
		PackUnit:         ctx.PackUnit,
		RawMaterial:      material,
		QuantityPerBatch: cell(FieldQuantityPerBatch),
		BatchUnit:        cell(FieldBatchUnit),
		Type:             cell(FieldType),
		Line:             sheetRow,
	}

	if missing := rec.missing(); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, f := range missing {
			names = append(names, f.HeaderName())
		}
		acc.Dropped = append(acc.Dropped, DroppedRow{Row: sheetRow, Missing: names})
		return acc
	}
	acc.Records = append(acc.Records, rec)
	return acc
}

// Reconstruct folds data rows (header excluded) into normalized records. The
// result depends on row order: SKU fields are carried down from the most
// recent SKU header or SKU-bearing material row.
func Reconstruct(rows [][]string, cols ColumnMap) Accumulator {
	acc := Accumulator{}
	for i, cells := range rows {
		if isBlankRow(cells) {
			continue
		}
		acc = Step(acc, cols, i+2, cells)
	}
	return acc
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
