package ingest

import (
	"fmt"
	"testing"
)

func sheetRow(category, code, name, material, qty, batchUnit, typ string) []string {
	return []string{category, code, name, "1", "pc", "12", "pack", material, qty, batchUnit, typ}
}

func TestReconstructHeaderRowsFollowedByMaterials(t *testing.T) {
	const skus, materials = 3, 4
	var rows [][]string
	for s := 0; s < skus; s++ {
		code := fmt.Sprintf("SKU-%d", s)
		rows = append(rows, sheetRow("Bakery", code, "Bread "+code, "", "", "", ""))
		for m := 0; m < materials; m++ {
			// padded blanks on the SKU cells must not override the carried context
			rows = append(rows, []string{"  ", " ", "\t", "", "", "", "", fmt.Sprintf("Mat %d", m), "2.5", "kg", "Dry"})
		}
	}

	acc := Reconstruct(rows, MapColumns(standardHeader))
	if len(acc.Records) != skus*materials {
		t.Fatalf("expected %d records, got %d (dropped %v)", skus*materials, len(acc.Records), acc.Dropped)
	}
	for i, rec := range acc.Records {
		want := fmt.Sprintf("SKU-%d", i/materials)
		if rec.SKUCode != want {
			t.Fatalf("record %d: expected sku %s, got %s", i, want, rec.SKUCode)
		}
		if rec.SKUName != "Bread "+want || rec.Category != "Bakery" || rec.QuantityPerPack != "12" {
			t.Fatalf("record %d did not carry sku fields: %+v", i, rec)
		}
	}
}

func TestReconstructFirstMaterialRowCarriesSKU(t *testing.T) {
	rows := [][]string{
		sheetRow("Sauce", "S-1", "Tomato Sauce", "Tomato", "10", "kg", "Vegetable"),
		sheetRow("", "", "", "Salt", "0.5", "kg", "Spice"),
		sheetRow("Sauce", "S-2", "Chili Sauce", "Chili", "3", "kg", "Vegetable"),
		sheetRow("", "", "", "Vinegar", "1", "L", "Liquid"),
	}
	acc := Reconstruct(rows, MapColumns(standardHeader))
	if len(acc.Records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(acc.Records))
	}
	if acc.Records[1].SKUCode != "S-1" || acc.Records[3].SKUCode != "S-2" {
		t.Fatalf("unexpected carry-down: %+v", acc.Records)
	}
	if acc.Records[3].SKUName != "Chili Sauce" {
		t.Fatalf("expected second sku name to replace the first, got %q", acc.Records[3].SKUName)
	}
}

func TestReconstructIsOrderDependent(t *testing.T) {
	rows := [][]string{
		sheetRow("", "A", "Alpha", "", "", "", ""),
		sheetRow("", "", "", "Flour", "1", "kg", ""),
		sheetRow("", "B", "Beta", "", "", "", ""),
	}
	cols := MapColumns(standardHeader)
	forward := Reconstruct(rows, cols)
	reversed := Reconstruct([][]string{rows[2], rows[1], rows[0]}, cols)
	if forward.Records[0].SKUCode != "A" || reversed.Records[0].SKUCode != "B" {
		t.Fatalf("expected order to decide the owning sku: %q vs %q",
			forward.Records[0].SKUCode, reversed.Records[0].SKUCode)
	}
}

func TestReconstructDropsIncompleteRecords(t *testing.T) {
	rows := [][]string{
		sheetRow("", "", "", "Orphan", "1", "kg", ""),
		sheetRow("", "C", "Cake", "", "", "", ""),
		sheetRow("", "", "", "Sugar", "", "kg", ""),
		{},
		sheetRow("", "", "", "Egg", "6", "pc", ""),
	}
	acc := Reconstruct(rows, MapColumns(standardHeader))
	if len(acc.Records) != 1 || acc.Records[0].RawMaterial != "Egg" {
		t.Fatalf("expected only Egg to survive, got %+v", acc.Records)
	}
	if len(acc.Dropped) != 2 {
		t.Fatalf("expected 2 dropped rows, got %+v", acc.Dropped)
	}
	if acc.Dropped[0].Row != 2 || acc.Dropped[0].Missing[0] != "SKU Code" {
		t.Fatalf("unexpected first drop %+v", acc.Dropped[0])
	}
	if acc.Dropped[1].Row != 4 || acc.Dropped[1].Missing[0] != "Quantity/Batch" {
		t.Fatalf("unexpected second drop %+v", acc.Dropped[1])
	}
}

func TestReconstructHeaderWithoutSKUClearsContext(t *testing.T) {
	rows := [][]string{
		sheetRow("Bakery", "B-1", "Bun", "", "", "", ""),
		sheetRow("", "", "", "Flour", "2", "kg", ""),
		// section header carrying only a category
		{"Drinks", "", "", "", "", "", "", "", "", "", ""},
		sheetRow("", "", "", "Syrup", "1", "L", ""),
	}
	acc := Reconstruct(rows, MapColumns(standardHeader))
	if len(acc.Records) != 1 || acc.Records[0].RawMaterial != "Flour" {
		t.Fatalf("expected only Flour to survive, got %+v", acc.Records)
	}
	if len(acc.Dropped) != 1 || acc.Dropped[0].Row != 5 || acc.Dropped[0].Missing[0] != "SKU Code" {
		t.Fatalf("expected Syrup dropped for missing sku, got %+v", acc.Dropped)
	}
}

func TestRecordToModelNullsEmptyCategory(t *testing.T) {
	row := Record{SKUCode: "X", RawMaterial: "Y"}.ToModel()
	if row.Category != nil {
		t.Fatalf("expected nil category, got %q", *row.Category)
	}
	row = Record{Category: "Dairy"}.ToModel()
	if row.Category == nil || *row.Category != "Dairy" {
		t.Fatalf("expected Dairy category")
	}
}
