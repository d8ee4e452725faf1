package ingest

import (
	"regexp"
	"strings"
)

// Field is a logical column of the catalog sheet.
type Field string

const (
	FieldCategory         Field = "category"
	FieldSKUCode          Field = "sku_code"
	FieldSKUName          Field = "sku_name"
	FieldQuantityPerUnit  Field = "quantity_per_unit"
	FieldUnit             Field = "unit"
	FieldQuantityPerPack  Field = "quantity_per_pack"
	FieldPackUnit         Field = "pack_unit"
	FieldRawMaterial      Field = "raw_material"
	FieldQuantityPerBatch Field = "quantity_per_batch"
	FieldBatchUnit        Field = "batch_unit"
	FieldType             Field = "type"
)

// Fields is the full column vocabulary in sheet order.
var Fields = []Field{
	FieldCategory,
	FieldSKUCode,
	FieldSKUName,
	FieldQuantityPerUnit,
	FieldUnit,
	FieldQuantityPerPack,
	FieldPackUnit,
	FieldRawMaterial,
	FieldQuantityPerBatch,
	FieldBatchUnit,
	FieldType,
}

// RecordFields must be present on every reconstructed record.
var RecordFields = []Field{
	FieldSKUCode,
	FieldSKUName,
	FieldRawMaterial,
	FieldQuantityPerBatch,
	FieldBatchUnit,
}

var headerNames = map[Field]string{
	FieldCategory:         "Category",
	FieldSKUCode:          "SKU Code",
	FieldSKUName:          "SKU",
	FieldQuantityPerUnit:  "Quantity Per Unit",
	FieldUnit:             "Unit",
	FieldQuantityPerPack:  "Quantity Per Pack",
	FieldPackUnit:         "Unit2",
	FieldRawMaterial:      "Raw Material",
	FieldQuantityPerBatch: "Quantity/Batch",
	FieldBatchUnit:        "Unit4",
	FieldType:             "Type",
}

// HeaderName is the column title users see for the field.
func (f Field) HeaderName() string {
	if name, ok := headerNames[f]; ok {
		return name
	}
	return string(f)
}

// ColumnMap resolves fields to zero-based column indexes; -1 means absent.
type ColumnMap map[Field]int

// Index returns the column of f or -1.
func (m ColumnMap) Index(f Field) int {
	if idx, ok := m[f]; ok {
		return idx
	}
	return -1
}

// Missing lists the given fields that did not resolve to a column.
func (m ColumnMap) Missing(fields ...Field) []Field {
	var out []Field
	for _, f := range fields {
		if m.Index(f) < 0 {
			out = append(out, f)
		}
	}
	return out
}

var (
	spaceRe    = regexp.MustCompile(`\s+`)
	unitVarRe  = regexp.MustCompile(`^unit\s*(\d+)$`)
	batchQtyRe = regexp.MustCompile(`quantity\s*(/|per)?\s*batch`)
)

func normalizeHeader(h string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), " ")
}

// MapColumns locates every known field in the header row. It never fails;
// callers decide which absent fields are fatal.
func MapColumns(header []string) ColumnMap {
	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = normalizeHeader(h)
	}

	m := ColumnMap{}
	for _, f := range Fields {
		m[f] = -1
	}

	m[FieldCategory] = firstExact(norm, "category")
	m[FieldSKUCode] = firstExact(norm, "sku code")
	if m[FieldSKUName] = firstExact(norm, "sku"); m[FieldSKUName] < 0 {
		m[FieldSKUName] = firstExact(norm, "sku name")
	}
	m[FieldQuantityPerUnit] = firstExact(norm, "quantity per unit")
	m[FieldQuantityPerPack] = firstExact(norm, "quantity per pack")
	m[FieldType] = firstExact(norm, "type")
	m[FieldRawMaterial] = firstMatch(norm, func(h string) bool {
		return strings.Contains(h, "raw") && strings.Contains(h, "material")
	})
	m[FieldQuantityPerBatch] = firstMatch(norm, func(h string) bool {
		return batchQtyRe.MatchString(h)
	})

	resolveUnits(norm, m)
	return m
}

// resolveUnits handles the three unit columns. Suffixed headers (unit2, unit4)
// win; otherwise a bare "unit" column right after the related quantity column
// is claimed, and the base unit takes the first bare column left over.
func resolveUnits(norm []string, m ColumnMap) {
	var bare []int
	suffixed := map[string]int{}
	for i, h := range norm {
		if h == "unit" {
			bare = append(bare, i)
			continue
		}
		if sub := unitVarRe.FindStringSubmatch(h); sub != nil {
			if _, seen := suffixed[sub[1]]; !seen {
				suffixed[sub[1]] = i
			}
		}
	}

	claimed := map[int]bool{}
	claim := func(field Field, suffix string, after Field) {
		if idx, ok := suffixed[suffix]; ok {
			m[field] = idx
			claimed[idx] = true
			return
		}
		anchor := m.Index(after)
		if anchor < 0 {
			return
		}
		for _, idx := range bare {
			if idx == anchor+1 {
				m[field] = idx
				claimed[idx] = true
				return
			}
		}
	}
	claim(FieldPackUnit, "2", FieldQuantityPerPack)
	claim(FieldBatchUnit, "4", FieldQuantityPerBatch)

	for _, idx := range bare {
		if !claimed[idx] {
			m[FieldUnit] = idx
			return
		}
	}
	if len(bare) > 0 {
		m[FieldUnit] = bare[0]
	}
}

func firstExact(norm []string, want string) int {
	return firstMatch(norm, func(h string) bool { return h == want })
}

func firstMatch(norm []string, pred func(string) bool) int {
	for i, h := range norm {
		if pred(h) {
			return i
		}
	}
	return -1
}
