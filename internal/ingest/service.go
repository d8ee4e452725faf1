package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
)

// CatalogWriter persists reconstructed catalog rows.
type CatalogWriter interface {
	Upsert(ctx context.Context, rows []models.CatalogRow) (int, error)
	Replace(ctx context.Context, rows []models.CatalogRow) (int, error)
}

// Metrics records ingestion outcomes.
type Metrics interface {
	ObserveIngest(outcome string, rows int, duration time.Duration)
}

// Service turns uploaded sheets into catalog rows.
type Service interface {
	Ingest(ctx context.Context, input UploadInput) (*Result, error)
}

// UploadInput is one uploaded catalog file.
type UploadInput struct {
	FileName    string
	Data        []byte
	Mode        enums.CatalogUploadMode
	ActorUserID uuid.UUID
}

// Parsed is a sheet after column mapping and reconstruction, before persistence.
type Parsed struct {
	RowsRead int
	Records  []Record
	Dropped  []DroppedRow
}

// Result summarizes a completed upload.
type Result struct {
	Mode      enums.CatalogUploadMode `json:"mode"`
	RowsRead  int                     `json:"rows_read"`
	Records   int                     `json:"records"`
	Persisted int                     `json:"persisted"`
	Dropped   []DroppedRow            `json:"dropped,omitempty"`
}

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

type service struct {
	catalog CatalogWriter
	metrics Metrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the ingestion pipeline.
func NewService(catalog CatalogWriter, metrics Metrics, logg *logger.Logger) (Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog writer required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("ingest metrics required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{catalog: catalog, metrics: metrics, logg: logg, now: time.Now}, nil
}

// Parse maps the header, rejects sheets missing any mandatory column and
// reconstructs the records.
func Parse(filename string, data []byte) (*Parsed, error) {
	rows, err := ReadSheet(filename, data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sheet has no header row")
	}

	cols := MapColumns(rows[0])
	if missing := cols.Missing(Fields...); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, f := range missing {
			names = append(names, f.HeaderName())
		}
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "missing mandatory columns: %v", names).
			WithDetails(map[string]any{"missing_columns": names})
	}

	acc := Reconstruct(rows[1:], cols)
	return &Parsed{
		RowsRead: len(rows) - 1,
		Records:  acc.Records,
		Dropped:  acc.Dropped,
	}, nil
}

func (s *service) Ingest(ctx context.Context, input UploadInput) (*Result, error) {
	start := s.now()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"file":    input.FileName,
		"mode":    string(input.Mode),
		"user_id": input.ActorUserID.String(),
	})

	mode := input.Mode
	if mode == "" {
		mode = enums.CatalogUploadUpsert
	}

	parsed, err := Parse(input.FileName, input.Data)
	if err != nil {
		s.metrics.ObserveIngest(outcomeRejected, 0, s.now().Sub(start))
		s.logg.Warn(ctx, "catalog upload rejected")
		return nil, err
	}
	if len(parsed.Records) == 0 {
		s.metrics.ObserveIngest(outcomeRejected, 0, s.now().Sub(start))
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no valid material rows found").
			WithDetails(map[string]any{"dropped": parsed.Dropped})
	}

	rows := make([]models.CatalogRow, 0, len(parsed.Records))
	for _, rec := range parsed.Records {
		rows = append(rows, rec.ToModel())
	}

	var persisted int
	switch mode {
	case enums.CatalogUploadReplace:
		persisted, err = s.catalog.Replace(ctx, rows)
	default:
		persisted, err = s.catalog.Upsert(ctx, rows)
	}
	if err != nil {
		s.metrics.ObserveIngest(outcomeFailed, 0, s.now().Sub(start))
		s.logg.Error(ctx, "catalog persist failed", err)
		return nil, err
	}

	s.metrics.ObserveIngest(outcomeSuccess, persisted, s.now().Sub(start))
	ctx = s.logg.WithFields(ctx, map[string]any{
		"rows_read": parsed.RowsRead,
		"persisted": persisted,
		"dropped":   len(parsed.Dropped),
	})
	s.logg.Info(ctx, "catalog.ingested")

	return &Result{
		Mode:      mode,
		RowsRead:  parsed.RowsRead,
		Records:   len(parsed.Records),
		Persisted: persisted,
		Dropped:   parsed.Dropped,
	}, nil
}
