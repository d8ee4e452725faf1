package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/matreq-backend/api/responses"
	"github.com/angelmondragon/matreq-backend/api/validators"
	"github.com/angelmondragon/matreq-backend/internal/catalog"
	"github.com/angelmondragon/matreq-backend/internal/explode"
	"github.com/angelmondragon/matreq-backend/internal/ingest"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
)

const uploadFormField = "file"

// CatalogUpload accepts a multipart xlsx/csv sheet and runs ingestion.
func CatalogUpload(svc ingest.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "ingest")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "upload too large").
					WithDetails(map[string]any{"max_bytes": maxBytes}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		file, header, err := r.FormFile(uploadFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required"))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload"))
			return
		}

		mode := enums.CatalogUploadUpsert
		if raw := strings.TrimSpace(r.FormValue("mode")); raw != "" {
			mode, err = enums.ParseCatalogUploadMode(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode"))
				return
			}
		}

		result, err := svc.Ingest(r.Context(), ingest.UploadInput{
			FileName:    header.Filename,
			Data:        data,
			Mode:        mode,
			ActorUserID: actor.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

// CatalogList returns the catalog, optionally filtered by ?category=.
func CatalogList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}
		if _, ok := requireActor(w, r, logg); !ok {
			return
		}

		var (
			rows []models.CatalogRow
			err  error
		)
		if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
			rows, err = svc.ByCategory(r.Context(), category)
		} else {
			rows, err = svc.All(r.Context())
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func CatalogCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}
		if _, ok := requireActor(w, r, logg); !ok {
			return
		}
		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

type explodeResponse struct {
	SKUCode   string                       `json:"sku_code"`
	SKUName   string                       `json:"sku_name"`
	Qty       int                          `json:"qty"`
	Materials []models.RequisitionMaterial `json:"materials"`
}

// CatalogExplode previews the materials a requisition of ?qty= batches would need.
func CatalogExplode(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}
		if _, ok := requireActor(w, r, logg); !ok {
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "skuCode"))
		qty, err := validators.ParseQueryInt(r, "qty", explode.MinMultiplier, explode.MinMultiplier, explode.MaxMultiplier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.RowsForSKU(r.Context(), code, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		materials, err := explode.Explode(rows, qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := explodeResponse{SKUCode: code, Qty: qty, Materials: materials}
		if len(rows) > 0 {
			resp.SKUCode = rows[0].SKUCode
			resp.SKUName = rows[0].SKUName
		}
		responses.WriteSuccess(w, resp)
	}
}
