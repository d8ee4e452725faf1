package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/matreq-backend/internal/workflow"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
)

// MaxReportTables bounds a single report request.
const MaxReportTables = 200

type tableFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.RequisitionTable, error)
}

type requisitionLister interface {
	ListByTables(ctx context.Context, tableIDs []uuid.UUID) ([]models.Requisition, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Requisition, error)
}

// ReportInput selects requisitions by table, by id, or both.
type ReportInput struct {
	TableIDs       []uuid.UUID
	RequisitionIDs []uuid.UUID
}

// Service builds usage reports for tables the caller can see.
type Service interface {
	Report(ctx context.Context, actor workflow.Actor, input ReportInput) (*Summary, error)
}

type service struct {
	tables       tableFinder
	requisitions requisitionLister
	aggregator   *Aggregator
	logg         *logger.Logger
}

func NewService(tables tableFinder, requisitions requisitionLister, aggregator *Aggregator, logg *logger.Logger) (Service, error) {
	if tables == nil {
		return nil, fmt.Errorf("table finder required")
	}
	if requisitions == nil {
		return nil, fmt.Errorf("requisition lister required")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tables: tables, requisitions: requisitions, aggregator: aggregator, logg: logg}, nil
}

func (s *service) Report(ctx context.Context, actor workflow.Actor, input ReportInput) (*Summary, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if len(input.TableIDs) == 0 && len(input.RequisitionIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table_ids or requisition_ids is required")
	}
	if len(input.TableIDs) > MaxReportTables {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d tables per report", MaxReportTables)
	}

	names := map[uuid.UUID]string{}
	for _, id := range input.TableIDs {
		if _, err := s.tableName(ctx, actor, id, names); err != nil {
			return nil, err
		}
	}

	byTable, err := s.requisitions.ListByTables(ctx, input.TableIDs)
	if err != nil {
		return nil, workflow.StoreError(err, "table not found", "list requisitions")
	}
	byID, err := s.requisitions.ListByIDs(ctx, input.RequisitionIDs)
	if err != nil {
		return nil, workflow.StoreError(err, "requisition not found", "list requisitions")
	}

	seen := map[uuid.UUID]struct{}{}
	sources := make([]Source, 0, len(byTable)+len(byID))
	for _, req := range append(byTable, byID...) {
		if _, dup := seen[req.ID]; dup {
			continue
		}
		seen[req.ID] = struct{}{}
		name, err := s.tableName(ctx, actor, req.TableID, names)
		if err != nil {
			return nil, err
		}
		sources = append(sources, Source{Requisition: req, TableName: name})
	}

	summary, err := s.aggregator.Aggregate(ctx, sources)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"tables":       len(input.TableIDs),
		"requisitions": len(sources),
		"materials":    len(summary.Rows),
		"skipped":      len(summary.Skipped),
	}), "usage.report_built")
	return summary, nil
}

// tableName loads and authorizes a table once per report.
func (s *service) tableName(ctx context.Context, actor workflow.Actor, id uuid.UUID, cache map[uuid.UUID]string) (string, error) {
	if name, ok := cache[id]; ok {
		return name, nil
	}
	table, err := s.tables.FindByID(ctx, id)
	if err != nil {
		return "", workflow.StoreError(err, "table not found", "load table")
	}
	if !actor.CanAccessTable(table.UserID) {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "table belongs to another user").
			WithDetails(map[string]any{"table_id": id})
	}
	cache[id] = table.Name
	return table.Name, nil
}
