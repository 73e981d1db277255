package handler

import (
	"net/http"
	"testing"

	"github.com/fabworks/mfg-core/internal/repository"
	"github.com/fabworks/mfg-core/internal/service"
	"github.com/fabworks/mfg-core/internal/testutil"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAPITest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, nil, zap.NewNop())
	handlers := NewHandlers(services, repos)

	router := testutil.SetupRouter()
	api := testutil.ActorGroup(router, "/api/v1")

	mos := api.Group("/manufacturing-orders")
	mos.GET("", handlers.Order.List)
	mos.GET("/kpis", handlers.Order.KPIs)
	mos.POST("", handlers.Order.Create)
	mos.GET("/:id", handlers.Order.Detail)
	mos.POST("/:id/confirm", handlers.Order.Confirm)
	mos.POST("/:id/start", handlers.Order.Start)
	mos.POST("/:id/cancel", handlers.Order.Cancel)
	mos.POST("/:id/produce", handlers.Order.Produce)

	workOrders := api.Group("/work-orders")
	workOrders.GET("", handlers.WorkOrder.List)
	workOrders.POST("/:id/start", handlers.WorkOrder.StartTimer)
	workOrders.POST("/:id/complete", handlers.WorkOrder.Complete)

	api.GET("/products", handlers.Product.List)
	api.GET("/products/:id", handlers.Product.Get)
	api.POST("/stock/adjust", handlers.Product.AdjustStock)
	api.GET("/stock/ledger", handlers.Product.Ledger)
	api.GET("/stock/ledger/export", handlers.Product.ExportLedger)

	return db, router
}

func seedOrderTestData(t *testing.T, db *gorm.DB) (productID, bomID string) {
	t.Helper()
	desk := testutil.SeedProduct(t, db, "Desk", 0, 0, 0)
	leg := testutil.SeedProduct(t, db, "Desk Leg", 25, 10, 50)
	wc := testutil.SeedWorkCenter(t, db, "Assembly Line 1")
	bom := testutil.SeedBOM(t, db, "Desk BOM", desk.ID,
		[]testutil.BOMComponentSpec{{ProductID: leg.ID, QuantityRequired: 2}},
		[]testutil.BOMOperationSpec{{Name: "Assembly", WorkCenterID: wc.ID, DurationMinutes: 60}},
	)
	return desk.ID, bom.ID
}

// TestOrderLifecycleAPI drives an MO through the API from creation to Done
func TestOrderLifecycleAPI(t *testing.T) {
	db, router := setupAPITest(t)
	productID, bomID := seedOrderTestData(t, db)

	body := map[string]interface{}{
		"product_id":          productID,
		"bom_id":              bomID,
		"quantity_to_produce": 10,
	}
	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/manufacturing-orders", body, testutil.TestActorID)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	moID := data["id"].(string)
	if data["status"].(string) != "Draft" {
		t.Fatalf("expected Draft, got %v", data["status"])
	}
	workOrders := data["work_orders"].([]interface{})
	if len(workOrders) != 1 {
		t.Fatalf("expected 1 work order, got %d", len(workOrders))
	}
	woID := workOrders[0].(map[string]interface{})["id"].(string)

	// Confirm returns the refreshed order view.
	w = testutil.DoRequest(router, http.MethodPost, "/api/v1/manufacturing-orders/"+moID+"/confirm", nil, testutil.TestActorID)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	view := resp["data"].(map[string]interface{})
	order := view["order"].(map[string]interface{})
	if order["status"].(string) != "Confirmed" {
		t.Fatalf("expected Confirmed, got %v", order["status"])
	}

	// Producing before To Close is a state conflict.
	w = testutil.DoRequest(router, http.MethodPost, "/api/v1/manufacturing-orders/"+moID+"/produce", nil, testutil.TestActorID)
	if w.Code != http.StatusConflict {
		t.Fatalf("early produce: expected 409, got %d: %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	if resp["code"].(float64) != 10004 {
		t.Fatalf("expected error code 10004, got %v", resp["code"])
	}

	// Work order timer start and completion drive the MO to To Close.
	woBody := map[string]interface{}{"mo_id": moID}
	w = testutil.DoRequest(router, http.MethodPost, "/api/v1/work-orders/"+woID+"/start", woBody, testutil.TestActorID)
	if w.Code != http.StatusOK {
		t.Fatalf("wo start: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(router, http.MethodPost, "/api/v1/work-orders/"+woID+"/complete", woBody, testutil.TestActorID)
	if w.Code != http.StatusOK {
		t.Fatalf("wo complete: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	view = resp["data"].(map[string]interface{})
	order = view["order"].(map[string]interface{})
	if order["status"].(string) != "To Close" {
		t.Fatalf("expected To Close, got %v", order["status"])
	}

	w = testutil.DoRequest(router, http.MethodPost, "/api/v1/manufacturing-orders/"+moID+"/produce", nil, testutil.TestActorID)
	if w.Code != http.StatusOK {
		t.Fatalf("produce: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	view = resp["data"].(map[string]interface{})
	order = view["order"].(map[string]interface{})
	if order["status"].(string) != "Done" {
		t.Fatalf("expected Done, got %v", order["status"])
	}

	// Detail view carries components with availability annotations.
	w = testutil.DoRequest(router, http.MethodGet, "/api/v1/manufacturing-orders/"+moID, nil, testutil.TestActorID)
	if w.Code != http.StatusOK {
		t.Fatalf("detail: expected 200, got %d", w.Code)
	}
	resp = testutil.ParseResponse(w)
	view = resp["data"].(map[string]interface{})
	components := view["components"].([]interface{})
	if len(components) != 1 {
		t.Fatalf("expected 1 component line, got %d", len(components))
	}
	history := view["status_history"].([]interface{})
	if len(history) != 5 {
		t.Fatalf("expected 5 history rows, got %d", len(history))
	}
}

func TestOrderNotFoundAPI(t *testing.T) {
	_, router := setupAPITest(t)

	w := testutil.DoRequest(router, http.MethodGet, "/api/v1/manufacturing-orders/no-such-id", nil, testutil.TestActorID)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 10002 {
		t.Fatalf("expected error code 10002, got %v", resp["code"])
	}
}

func TestOrderCreateValidationAPI(t *testing.T) {
	db, router := setupAPITest(t)
	productID, _ := seedOrderTestData(t, db)

	// Missing quantity fails binding.
	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/manufacturing-orders",
		map[string]interface{}{"product_id": productID}, testutil.TestActorID)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	// Malformed schedule date is rejected.
	w = testutil.DoRequest(router, http.MethodPost, "/api/v1/manufacturing-orders",
		map[string]interface{}{
			"product_id":          productID,
			"quantity_to_produce": 1,
			"schedule_start_date": "03/01/2026",
		}, testutil.TestActorID)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", w.Code)
	}
}

func TestStockAdjustAPI(t *testing.T) {
	db, router := setupAPITest(t)
	testutil.SeedProduct(t, db, "Bolt", 10, 0, 0)

	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/stock/adjust",
		map[string]interface{}{"name": "Bolt", "quantity_change": 5}, testutil.TestActorID)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["new_quantity"].(float64) != 15 {
		t.Fatalf("expected new_quantity 15, got %v", data["new_quantity"])
	}

	// Overdraw maps to a stock error.
	w = testutil.DoRequest(router, http.MethodPost, "/api/v1/stock/adjust",
		map[string]interface{}{"name": "Bolt", "quantity_change": -100}, testutil.TestActorID)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	resp = testutil.ParseResponse(w)
	if resp["code"].(float64) != 10005 {
		t.Fatalf("expected error code 10005, got %v", resp["code"])
	}

	// Ledger reflects the accepted adjustment.
	w = testutil.DoRequest(router, http.MethodGet, "/api/v1/stock/ledger", nil, testutil.TestActorID)
	if w.Code != http.StatusOK {
		t.Fatalf("ledger: expected 200, got %d", w.Code)
	}
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	if data["total"].(float64) != 2 {
		t.Fatalf("expected 2 ledger entries, got %v", data["total"])
	}
}

func TestLedgerExportAPI(t *testing.T) {
	db, router := setupAPITest(t)
	testutil.SeedProduct(t, db, "Bolt", 10, 0, 0)

	w := testutil.DoRequest(router, http.MethodGet, "/api/v1/stock/ledger/export", nil, testutil.TestActorID)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Fatal("expected a non-empty xlsx body")
	}
}
