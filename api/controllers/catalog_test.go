package controllers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/matreq-backend/api/middleware"
	"github.com/angelmondragon/matreq-backend/internal/catalog"
	"github.com/angelmondragon/matreq-backend/internal/ingest"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
)

type stubCatalogService struct {
	catalog.Service
	rows     []models.CatalogRow
	category string
	skuCode  string
}

func (s *stubCatalogService) All(context.Context) ([]models.CatalogRow, error) {
	return s.rows, nil
}

func (s *stubCatalogService) ByCategory(_ context.Context, category string) ([]models.CatalogRow, error) {
	s.category = category
	return s.rows, nil
}

func (s *stubCatalogService) RowsForSKU(_ context.Context, skuCode, _ string) ([]models.CatalogRow, error) {
	s.skuCode = skuCode
	return s.rows, nil
}

type stubIngestService struct {
	input ingest.UploadInput
}

func (s *stubIngestService) Ingest(_ context.Context, input ingest.UploadInput) (*ingest.Result, error) {
	s.input = input
	return &ingest.Result{Mode: input.Mode, RowsRead: 1, Records: 1, Persisted: 1}, nil
}

func breadRows() []models.CatalogRow {
	return []models.CatalogRow{
		{SKUCode: "BRD-1", SKUName: "Bread", RawMaterial: "Flour", QuantityPerBatch: "2.5", BatchUnit: "kg"},
		{SKUCode: "BRD-1", SKUName: "Bread", RawMaterial: "Yeast", QuantityPerBatch: "10 g", BatchUnit: "g"},
	}
}

func TestCatalogExplodeScalesByQty(t *testing.T) {
	svc := &stubCatalogService{rows: breadRows()}
	actor := operator()
	req := newRequest(http.MethodGet, "/api/v1/catalog/BRD-1/explode?qty=4", "", &actor, map[string]string{"skuCode": "BRD-1"})

	rec := serve(CatalogExplode(svc, nil), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var body explodeResponse
	decodeData(t, rec, &body)
	if body.SKUName != "Bread" || body.Qty != 4 || len(body.Materials) != 2 {
		t.Fatalf("unexpected response %+v", body)
	}
	if !body.Materials[0].RequiredQty.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected flour 10, got %s", body.Materials[0].RequiredQty)
	}
	if !body.Materials[1].RequiredQty.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected yeast 40, got %s", body.Materials[1].RequiredQty)
	}
}

func TestCatalogExplodeRejectsQtyOutOfRange(t *testing.T) {
	actor := operator()
	req := newRequest(http.MethodGet, "/api/v1/catalog/BRD-1/explode?qty=1000", "", &actor, map[string]string{"skuCode": "BRD-1"})

	rec := serve(CatalogExplode(&stubCatalogService{rows: breadRows()}, nil), req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCatalogExplodeUnknownSKU(t *testing.T) {
	actor := operator()
	req := newRequest(http.MethodGet, "/api/v1/catalog/NOPE/explode", "", &actor, map[string]string{"skuCode": "NOPE"})

	rec := serve(CatalogExplode(&stubCatalogService{}, nil), req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestCatalogListFiltersByCategory(t *testing.T) {
	svc := &stubCatalogService{rows: breadRows()}
	actor := operator()
	req := newRequest(http.MethodGet, "/api/v1/catalog?category=Bakery", "", &actor, nil)

	rec := serve(CatalogList(svc, nil), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.category != "Bakery" {
		t.Fatalf("expected category filter, got %q", svc.category)
	}
}

func TestCatalogUploadReadsMultipart(t *testing.T) {
	svc := &stubIngestService{}
	actor := admin()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "catalog.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("SKU Code,SKU Name\nBRD-1,Bread\n")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.WriteField("mode", "replace"); err != nil {
		t.Fatalf("write mode: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/catalog/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = req.WithContext(middleware.WithActor(req.Context(), actor))

	rec := serve(CatalogUpload(svc, 1<<20, nil), req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.input.FileName != "catalog.csv" || svc.input.Mode != enums.CatalogUploadReplace {
		t.Fatalf("unexpected ingest input %+v", svc.input)
	}
	if svc.input.ActorUserID != actor.UserID {
		t.Fatalf("expected actor id to be forwarded")
	}
}

func TestCatalogUploadTooLarge(t *testing.T) {
	actor := admin()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("file", "catalog.csv")
	_, _ = part.Write(bytes.Repeat([]byte("a"), 4096))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/catalog/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = req.WithContext(middleware.WithActor(req.Context(), actor))

	rec := serve(CatalogUpload(&stubIngestService{}, 512, nil), req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
