// Package explode turns a SKU's catalog formula into per-requisition material requirements.
package explode

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
)

const (
	MinMultiplier = 1
	MaxMultiplier = 999
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)

// ParseQuantity reads the leading number of a sheet quantity ("2.5", "2.5 kg").
// Anything unparseable or negative is zero.
func ParseQuantity(raw string) decimal.Decimal {
	text := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	match := leadingNumber.FindString(text)
	if match == "" {
		return decimal.Zero
	}
	match = strings.TrimSuffix(strings.TrimPrefix(match, "+"), ".")
	if strings.HasPrefix(match, ".") {
		match = "0" + match
	}
	value, err := decimal.NewFromString(match)
	if err != nil || value.Sign() < 0 {
		return decimal.Zero
	}
	return value
}

// ValidateMultiplier enforces the 1–999 batch range.
func ValidateMultiplier(multiplier int) error {
	if multiplier < MinMultiplier || multiplier > MaxMultiplier {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be between %d and %d", MinMultiplier, MaxMultiplier).
			WithDetails(map[string]any{"qty_needed": multiplier})
	}
	return nil
}

// Explode builds one material per catalog row that names a raw material.
func Explode(rows []models.CatalogRow, multiplier int) ([]models.RequisitionMaterial, error) {
	if err := ValidateMultiplier(multiplier); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no catalog rows for sku")
	}

	factor := decimal.NewFromInt(int64(multiplier))
	materials := make([]models.RequisitionMaterial, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.RawMaterial)
		if name == "" {
			continue
		}
		qty := ParseQuantity(row.QuantityPerBatch)
		materials = append(materials, models.RequisitionMaterial{
			Position:    len(materials),
			Name:        name,
			Qty:         qty,
			Unit:        strings.TrimSpace(row.BatchUnit),
			Type:        strings.TrimSpace(row.Type),
			RequiredQty: qty.Mul(factor),
			ServedQty:   decimal.Zero,
		})
	}
	return materials, nil
}

// Regenerate re-explodes for a new multiplier. Materials matching an existing
// one by name (case-insensitive) keep its id and serve record.
func Regenerate(existing []models.RequisitionMaterial, rows []models.CatalogRow, multiplier int) ([]models.RequisitionMaterial, error) {
	fresh, err := Explode(rows, multiplier)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]models.RequisitionMaterial, len(existing))
	for _, m := range existing {
		byName[strings.ToLower(strings.TrimSpace(m.Name))] = m
	}
	for i := range fresh {
		prev, ok := byName[strings.ToLower(fresh[i].Name)]
		if !ok {
			continue
		}
		fresh[i].ID = prev.ID
		fresh[i].RequisitionID = prev.RequisitionID
		fresh[i].ServedQty = prev.ServedQty
		fresh[i].Remarks = prev.Remarks
		fresh[i].ServedDate = prev.ServedDate
	}
	return fresh, nil
}

// Rescale recomputes required quantities in place from each material's stored
// per-batch qty. It is used when the catalog no longer carries the SKU.
func Rescale(materials []models.RequisitionMaterial, multiplier int) ([]models.RequisitionMaterial, error) {
	if err := ValidateMultiplier(multiplier); err != nil {
		return nil, err
	}
	factor := decimal.NewFromInt(int64(multiplier))
	out := make([]models.RequisitionMaterial, len(materials))
	for i, m := range materials {
		m.RequiredQty = m.Qty.Mul(factor)
		out[i] = m
	}
	return out, nil
}
