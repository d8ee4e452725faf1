package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/matreq-backend/internal/requisitions"
	"github.com/angelmondragon/matreq-backend/internal/workflow"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
)

type stubRequisitionService struct {
	requisitions.Service
	created requisitions.CreateInput
	patch   requisitions.FieldsPatch
	served  requisitions.ServeInput
	qty     int
	err     error
}

func (s *stubRequisitionService) Create(_ context.Context, _ workflow.Actor, tableID uuid.UUID, input requisitions.CreateInput) (*models.Requisition, error) {
	s.created = input
	if s.err != nil {
		return nil, s.err
	}
	return &models.Requisition{ID: uuid.New(), TableID: tableID, Type: input.Type, SKUCode: input.SKUCode, QtyNeeded: input.QtyNeeded}, nil
}

func (s *stubRequisitionService) UpdateFields(_ context.Context, _ workflow.Actor, id uuid.UUID, patch requisitions.FieldsPatch) (*models.Requisition, error) {
	s.patch = patch
	return &models.Requisition{ID: id}, s.err
}

func (s *stubRequisitionService) UpdateQuantity(_ context.Context, _ workflow.Actor, id uuid.UUID, qty int) (*models.Requisition, error) {
	s.qty = qty
	return &models.Requisition{ID: id, QtyNeeded: qty}, s.err
}

func (s *stubRequisitionService) ServeMaterial(_ context.Context, _ workflow.Actor, id, _ uuid.UUID, input requisitions.ServeInput) (*models.Requisition, error) {
	s.served = input
	return &models.Requisition{ID: id}, s.err
}

func TestRequisitionCreateParsesChoicesAndConfirm(t *testing.T) {
	svc := &stubRequisitionService{}
	actor := operator()
	tableID := uuid.New()
	body := `{
		"type": "shelf-stable",
		"sku_code": " SKU-1 ",
		"qty_needed": 3,
		"supplier": "Other",
		"supplier_other": "Local Mill",
		"brand": "Acme"
	}`
	req := newRequest(http.MethodPost, "/api/v1/tables/"+tableID.String()+"/requisitions?confirm=true", body, &actor, map[string]string{"tableId": tableID.String()})

	rec := serve(RequisitionCreate(svc, nil), req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	in := svc.created
	if in.Type != enums.RequisitionTypeShelfStable {
		t.Fatalf("unexpected type %s", in.Type)
	}
	if in.SKUCode != "SKU-1" || in.QtyNeeded != 3 {
		t.Fatalf("unexpected input %+v", in)
	}
	if in.Supplier.Value() != "Local Mill" || !in.Supplier.IsCustom() {
		t.Fatalf("expected custom supplier, got %q custom=%v", in.Supplier.Value(), in.Supplier.IsCustom())
	}
	if in.Brand.Value() != "Acme" || in.Brand.IsCustom() {
		t.Fatalf("expected listed brand, got %q", in.Brand.Value())
	}
	if !in.Confirm {
		t.Fatalf("expected confirm from query string")
	}
}

func TestRequisitionCreateAcceptsNameOnlySKU(t *testing.T) {
	svc := &stubRequisitionService{}
	actor := operator()
	tableID := uuid.New()
	body := `{"type":"perishable","sku_name":" Tomato Sauce ","qty_needed":2}`
	req := newRequest(http.MethodPost, "/api/v1/tables/"+tableID.String()+"/requisitions", body, &actor, map[string]string{"tableId": tableID.String()})

	rec := serve(RequisitionCreate(svc, nil), req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.created.SKUCode != "" || svc.created.SKUName != "Tomato Sauce" {
		t.Fatalf("expected name-only lookup, got %+v", svc.created)
	}
}

func TestRequisitionCreateRequiresCodeOrName(t *testing.T) {
	actor := operator()
	tableID := uuid.New()
	body := `{"type":"perishable","qty_needed":2}`
	req := newRequest(http.MethodPost, "/api/v1/tables/"+tableID.String()+"/requisitions", body, &actor, map[string]string{"tableId": tableID.String()})

	rec := serve(RequisitionCreate(&stubRequisitionService{}, nil), req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestRequisitionCreateRejectsOtherWithoutText(t *testing.T) {
	svc := &stubRequisitionService{}
	actor := operator()
	tableID := uuid.New()
	body := `{"type":"perishable","sku_code":"SKU-1","qty_needed":1,"supplier":"Other"}`
	req := newRequest(http.MethodPost, "/api/v1/tables/"+tableID.String()+"/requisitions", body, &actor, map[string]string{"tableId": tableID.String()})

	rec := serve(RequisitionCreate(svc, nil), req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestRequisitionCreateRejectsUnknownType(t *testing.T) {
	actor := operator()
	tableID := uuid.New()
	body := `{"type":"frozen","sku_code":"SKU-1","qty_needed":1}`
	req := newRequest(http.MethodPost, "/api/v1/tables/"+tableID.String()+"/requisitions", body, &actor, map[string]string{"tableId": tableID.String()})

	rec := serve(RequisitionCreate(&stubRequisitionService{}, nil), req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestRequisitionUpdateBuildsPatch(t *testing.T) {
	svc := &stubRequisitionService{}
	actor := operator()
	id := uuid.New()
	body := `{"type":"perishable","brand":"Other","brand_other":"House","confirm":true}`
	req := newRequest(http.MethodPatch, "/api/v1/requisitions/"+id.String(), body, &actor, map[string]string{"requisitionId": id.String()})

	rec := serve(RequisitionUpdate(svc, nil), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.patch.Type == nil || *svc.patch.Type != enums.RequisitionTypePerishable {
		t.Fatalf("expected type in patch")
	}
	if svc.patch.Supplier != nil {
		t.Fatalf("supplier should be untouched")
	}
	if svc.patch.Brand == nil || svc.patch.Brand.Value() != "House" {
		t.Fatalf("expected custom brand in patch")
	}
	if !svc.patch.Confirm {
		t.Fatalf("expected confirm from body")
	}
}

func TestRequisitionUpdateQuantity(t *testing.T) {
	svc := &stubRequisitionService{}
	actor := operator()
	id := uuid.New()
	req := newRequest(http.MethodPut, "/api/v1/requisitions/"+id.String()+"/quantity", `{"qty_needed":12}`, &actor, map[string]string{"requisitionId": id.String()})

	rec := serve(RequisitionUpdateQuantity(svc, nil), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.qty != 12 {
		t.Fatalf("expected qty 12 got %d", svc.qty)
	}
}

func TestRequisitionServeMaterialParsesDecimal(t *testing.T) {
	svc := &stubRequisitionService{}
	actor := operator()
	id, materialID := uuid.New(), uuid.New()
	params := map[string]string{"requisitionId": id.String(), "materialId": materialID.String()}
	req := newRequest(http.MethodPost, "/api/v1/requisitions/x/materials/y/serve", `{"served_qty":"2.50","served_date":"2026-10-16"}`, &actor, params)

	rec := serve(RequisitionServeMaterial(svc, nil), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !svc.served.ServedQty.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("unexpected served qty %s", svc.served.ServedQty)
	}
	if svc.served.ServedDate == nil {
		t.Fatalf("expected served date")
	}
}

func TestRequisitionServeMaterialRejectsNonNumeric(t *testing.T) {
	actor := operator()
	params := map[string]string{"requisitionId": uuid.NewString(), "materialId": uuid.NewString()}
	req := newRequest(http.MethodPost, "/api/v1/requisitions/x/materials/y/serve", `{"served_qty":"lots"}`, &actor, params)

	rec := serve(RequisitionServeMaterial(&stubRequisitionService{}, nil), req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
