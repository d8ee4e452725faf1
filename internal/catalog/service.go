package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
	"github.com/angelmondragon/matreq-backend/pkg/outbox"
)

// Uncategorized is the synthetic category for rows without one.
const Uncategorized = "Uncategorized"

// catalogAggregateID is the fixed aggregate id for catalog-wide events.
var catalogAggregateID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("matreq:catalog"))

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the master catalog: ingestion writes, read projections and SKU lookup.
type Service interface {
	Upsert(ctx context.Context, rows []models.CatalogRow) (int, error)
	Replace(ctx context.Context, rows []models.CatalogRow) (int, error)
	All(ctx context.Context) ([]models.CatalogRow, error)
	ByCategory(ctx context.Context, category string) ([]models.CatalogRow, error)
	Categories(ctx context.Context) ([]string, error)
	RowsForSKU(ctx context.Context, skuCode, skuName string) ([]models.CatalogRow, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	cache  Cache
	logg   *logger.Logger
}

// NewService wires the catalog. cache may be nil, in which case every read hits the store.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, cache Cache, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, outbox: publisher, cache: cache, logg: logg}, nil
}

// Dedupe keeps the last occurrence of every (sku_code, raw_material) key, in
// the position the key first appeared.
func Dedupe(rows []models.CatalogRow) []models.CatalogRow {
	type key struct{ code, material string }
	index := make(map[key]int, len(rows))
	out := make([]models.CatalogRow, 0, len(rows))
	for _, row := range rows {
		k := key{strings.TrimSpace(row.SKUCode), strings.TrimSpace(row.RawMaterial)}
		if i, ok := index[k]; ok {
			out[i] = row
			continue
		}
		index[k] = len(out)
		out = append(out, row)
	}
	return out
}

func (s *service) Upsert(ctx context.Context, rows []models.CatalogRow) (int, error) {
	return s.write(ctx, enums.CatalogUploadUpsert, rows)
}

func (s *service) Replace(ctx context.Context, rows []models.CatalogRow) (int, error) {
	return s.write(ctx, enums.CatalogUploadReplace, rows)
}

func (s *service) write(ctx context.Context, mode enums.CatalogUploadMode, rows []models.CatalogRow) (int, error) {
	if len(rows) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "no catalog rows to persist")
	}
	unique := Dedupe(rows)

	var persisted int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if mode == enums.CatalogUploadReplace {
			if _, err := repo.DeleteAll(ctx); err != nil {
				return err
			}
		}
		n, err := repo.Upsert(ctx, unique)
		if err != nil {
			return err
		}
		persisted = n
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCatalogIngested,
			AggregateType: enums.AggregateCatalog,
			AggregateID:   catalogAggregateID,
			Data: outbox.CatalogIngestedEvent{
				Mode:      mode,
				Persisted: n,
			},
		})
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist catalog")
	}

	if s.cache != nil {
		if _, err := s.cache.Bump(ctx); err != nil {
			s.logg.Error(ctx, "catalog cache version bump failed", err)
		}
	}
	return persisted, nil
}

// All serves the cached snapshot for the current version, loading from the
// store on a miss. Cache failures degrade to store reads.
func (s *service) All(ctx context.Context) ([]models.CatalogRow, error) {
	if s.cache == nil {
		return s.load(ctx)
	}
	version, err := s.cache.Version(ctx)
	if err != nil {
		s.logg.Warn(ctx, "catalog cache unavailable")
		return s.load(ctx)
	}
	if rows, ok, err := s.cache.Load(ctx, version); err == nil && ok {
		return rows, nil
	}
	rows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Store(ctx, version, rows); err != nil {
		s.logg.Error(ctx, "catalog cache store failed", err)
	}
	return rows, nil
}

func (s *service) load(ctx context.Context) ([]models.CatalogRow, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	return rows, nil
}

// CategoryOf returns the display category of a row.
func CategoryOf(row models.CatalogRow) string {
	if row.Category == nil || strings.TrimSpace(*row.Category) == "" {
		return Uncategorized
	}
	return strings.TrimSpace(*row.Category)
}

func (s *service) ByCategory(ctx context.Context, category string) ([]models.CatalogRow, error) {
	rows, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.TrimSpace(category)
	if want == "" {
		want = Uncategorized
	}
	out := make([]models.CatalogRow, 0)
	for _, row := range rows {
		if strings.EqualFold(CategoryOf(row), want) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, row := range rows {
		c := CategoryOf(row)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// RowsForSKU looks rows up by SKU code, falling back to SKU name when the code
// is empty or unknown.
func (s *service) RowsForSKU(ctx context.Context, skuCode, skuName string) ([]models.CatalogRow, error) {
	rows, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(skuCode)
	name := strings.TrimSpace(skuName)
	if code == "" && name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku code or name is required")
	}

	var out []models.CatalogRow
	if code != "" {
		for _, row := range rows {
			if strings.EqualFold(row.SKUCode, code) {
				out = append(out, row)
			}
		}
	}
	if len(out) == 0 && name != "" {
		for _, row := range rows {
			if strings.EqualFold(row.SKUName, name) {
				out = append(out, row)
			}
		}
	}
	if len(out) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found in catalog").
			WithDetails(map[string]any{"sku_code": code, "sku_name": name})
	}
	return out, nil
}
