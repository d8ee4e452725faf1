package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/matreq-backend/api/controllers"
	"github.com/angelmondragon/matreq-backend/api/middleware"
	"github.com/angelmondragon/matreq-backend/internal/catalog"
	"github.com/angelmondragon/matreq-backend/internal/ingest"
	"github.com/angelmondragon/matreq-backend/internal/receipts"
	"github.com/angelmondragon/matreq-backend/internal/requisitions"
	"github.com/angelmondragon/matreq-backend/internal/tables"
	"github.com/angelmondragon/matreq-backend/internal/usage"
	"github.com/angelmondragon/matreq-backend/pkg/config"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/matreq-backend/pkg/redis"
)

// Services is everything the HTTP surface dispatches to. Nil services answer
// with an internal error rather than panicking.
type Services struct {
	Catalog      catalog.Service
	Ingest       ingest.Service
	Tables       tables.Service
	Requisitions requisitions.Service
	Receipts     receipts.Service
	Usage        usage.Service
	CutOff       controllers.CutOffChecker

	Idempotency pkgredis.IdempotencyStore
	// Metrics is served on /metrics; nil uses the default registry.
	Metrics http.Handler
	// Ready lists the dependencies checked by /health/ready.
	Ready map[string]controllers.Pinger
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, svc.Ready))
	})

	metrics := svc.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Handle("/metrics", metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(svc.Idempotency, cfg.Redis.IdempotencyTTL, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", controllers.CatalogList(svc.Catalog, logg))
			r.Get("/categories", controllers.CatalogCategories(svc.Catalog, logg))
			r.Get("/{skuCode}/explode", controllers.CatalogExplode(svc.Catalog, logg))
		})

		r.Get("/cutoff/{type}", controllers.CutOffStatus(svc.CutOff, logg))

		r.Route("/tables", func(r chi.Router) {
			r.Get("/", controllers.TableList(svc.Tables, logg))
			r.Post("/", controllers.TableCreate(svc.Tables, logg))
			r.Route("/{tableId}", func(r chi.Router) {
				r.Get("/", controllers.TableDetail(svc.Tables, logg))
				r.Patch("/", controllers.TableUpdate(svc.Tables, logg))
				r.Delete("/", controllers.TableDelete(svc.Tables, logg))
				r.Post("/submit", controllers.TableSubmit(svc.Tables, logg))

				r.Get("/requisitions", controllers.RequisitionList(svc.Requisitions, logg))
				r.Post("/requisitions", controllers.RequisitionCreate(svc.Requisitions, logg))

				r.Get("/receipts", controllers.ReceiptList(svc.Receipts, logg))
				r.Post("/receipts", controllers.ReceiptCreate(svc.Receipts, logg))
			})
		})

		r.Route("/requisitions/{requisitionId}", func(r chi.Router) {
			r.Get("/", controllers.RequisitionDetail(svc.Requisitions, logg))
			r.Patch("/", controllers.RequisitionUpdate(svc.Requisitions, logg))
			r.Delete("/", controllers.RequisitionDelete(svc.Requisitions, logg))
			r.Put("/quantity", controllers.RequisitionUpdateQuantity(svc.Requisitions, logg))
			r.Post("/materials/{materialId}/serve", controllers.RequisitionServeMaterial(svc.Requisitions, logg))
		})

		r.Route("/receipts/{receiptId}", func(r chi.Router) {
			r.Patch("/", controllers.ReceiptUpdate(svc.Receipts, logg))
			r.Delete("/", controllers.ReceiptDelete(svc.Receipts, logg))
		})

		r.Post("/reports/usage", controllers.UsageReport(svc.Usage, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))
			r.Get("/ping", controllers.AdminPing())
			r.Post("/catalog/upload", controllers.CatalogUpload(svc.Ingest, cfg.Ingest.MaxUploadBytes(), logg))
			r.Get("/tables/pending", controllers.AdminPendingTables(svc.Tables, logg))
			r.Post("/tables/{tableId}/approve", controllers.AdminApproveTable(svc.Tables, logg))
			r.Post("/tables/{tableId}/reject", controllers.AdminRejectTable(svc.Tables, logg))
		})
	})

	return r
}
