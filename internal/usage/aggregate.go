// Package usage sums material requirements across tables for reporting.
package usage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/matreq-backend/internal/explode"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
)

type catalogLookup interface {
	RowsForSKU(ctx context.Context, skuCode, skuName string) ([]models.CatalogRow, error)
}

// Source is one requisition together with the name of its table.
type Source struct {
	Requisition models.Requisition
	TableName   string
}

// Row is the total for one (material, unit) group.
type Row struct {
	Material   string          `json:"material"`
	Unit       string          `json:"unit"`
	Type       string          `json:"type"`
	Total      decimal.Decimal `json:"total"`
	Tables     []string        `json:"tables"`
	TableCount int             `json:"table_count"`
	SKUs       []string        `json:"skus"`
}

// TypeShare is one slice of the type breakdown.
type TypeShare struct {
	Type    string          `json:"type"`
	Total   decimal.Decimal `json:"total"`
	Percent decimal.Decimal `json:"percent"`
}

// Summary is the aggregation output.
type Summary struct {
	Rows       []Row           `json:"rows"`
	Types      []TypeShare     `json:"types"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	// Skipped lists requisitions that had no materials and no usable catalog formula.
	Skipped []string `json:"skipped,omitempty"`
}

type groupKey struct {
	name string
	unit string
}

type group struct {
	row      Row
	tableIDs map[uuid.UUID]struct{}
	tables   map[string]struct{}
	skus     map[string]struct{}
}

// Aggregator groups materials by lowercase name and unit. Requisitions
// without stored materials are exploded from the catalog on demand.
type Aggregator struct {
	catalog catalogLookup
}

// NewAggregator accepts a nil catalog; requisitions without materials are then skipped.
func NewAggregator(catalog catalogLookup) *Aggregator {
	return &Aggregator{catalog: catalog}
}

func (a *Aggregator) Aggregate(ctx context.Context, sources []Source) (*Summary, error) {
	groups := map[groupKey]*group{}
	summary := &Summary{Rows: []Row{}, Types: []TypeShare{}, GrandTotal: decimal.Zero}

	for _, src := range sources {
		req := src.Requisition
		materials, err := a.materials(ctx, req)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				summary.Skipped = append(summary.Skipped, req.RequisitionNumber)
				continue
			}
			return nil, err
		}
		label := fmt.Sprintf("%s (%d)", skuLabel(req), req.QtyNeeded)
		for _, m := range materials {
			name := strings.TrimSpace(m.Name)
			if name == "" {
				continue
			}
			unit := strings.TrimSpace(m.Unit)
			key := groupKey{name: strings.ToLower(name), unit: strings.ToLower(unit)}
			g, ok := groups[key]
			if !ok {
				g = &group{
					row:      Row{Material: name, Unit: unit, Total: decimal.Zero},
					tableIDs: map[uuid.UUID]struct{}{},
					tables:   map[string]struct{}{},
					skus:     map[string]struct{}{},
				}
				groups[key] = g
			}
			if g.row.Type == "" && strings.TrimSpace(m.Type) != "" {
				g.row.Type = strings.TrimSpace(m.Type)
			}
			g.row.Total = g.row.Total.Add(m.RequiredQty)
			g.tableIDs[req.TableID] = struct{}{}
			if src.TableName != "" {
				g.tables[src.TableName] = struct{}{}
			}
			g.skus[label] = struct{}{}
		}
	}

	byType := map[string]decimal.Decimal{}
	for _, g := range groups {
		row := g.row
		row.Type = Classify(row.Type, row.Material)
		row.Tables = sortedKeys(g.tables)
		row.TableCount = len(g.tableIDs)
		row.SKUs = sortedKeys(g.skus)
		summary.Rows = append(summary.Rows, row)
		summary.GrandTotal = summary.GrandTotal.Add(row.Total)
		byType[row.Type] = byType[row.Type].Add(row.Total)
	}

	sort.Slice(summary.Rows, func(i, j int) bool {
		x, y := summary.Rows[i], summary.Rows[j]
		if c := x.Total.Cmp(y.Total); c != 0 {
			return c > 0
		}
		if xn, yn := strings.ToLower(x.Material), strings.ToLower(y.Material); xn != yn {
			return xn < yn
		}
		return x.Unit < y.Unit
	})

	hundred := decimal.NewFromInt(100)
	for typ, total := range byType {
		share := TypeShare{Type: typ, Total: total, Percent: decimal.Zero}
		if summary.GrandTotal.Sign() > 0 {
			share.Percent = total.Div(summary.GrandTotal).Mul(hundred).Round(2)
		}
		summary.Types = append(summary.Types, share)
	}
	sort.Slice(summary.Types, func(i, j int) bool {
		x, y := summary.Types[i], summary.Types[j]
		if c := x.Total.Cmp(y.Total); c != 0 {
			return c > 0
		}
		return x.Type < y.Type
	})
	return summary, nil
}

func (a *Aggregator) materials(ctx context.Context, req models.Requisition) ([]models.RequisitionMaterial, error) {
	if len(req.Materials) > 0 {
		return req.Materials, nil
	}
	if a.catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "requisition has no materials")
	}
	rows, err := a.catalog.RowsForSKU(ctx, req.SKUCode, req.SKUName)
	if err != nil {
		return nil, err
	}
	return explode.Explode(rows, req.QtyNeeded)
}

func skuLabel(req models.Requisition) string {
	if name := strings.TrimSpace(req.SKUName); name != "" {
		return name
	}
	return strings.TrimSpace(req.SKUCode)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
