package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitfantasy/fixdesk/internal/config"
	"github.com/bitfantasy/fixdesk/internal/event"
	"github.com/bitfantasy/fixdesk/internal/model/entity"
	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/service"
	"github.com/bitfantasy/fixdesk/internal/testutil"
)

func setupRequestTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	bus := event.NewBus(zap.NewNop())
	t.Cleanup(bus.Close)
	mail := service.NewMailService(config.SMTPConfig{}, zap.NewNop())
	svc := service.NewServiceRequestService(repos.ServiceRequest, repos.Technician, repos.Asset, bus, mail, zap.NewNop())
	h := NewServiceRequestHandler(svc)

	r := testutil.SetupRouter()
	r.GET("/api/v1/service-requests", h.List)
	r.POST("/api/v1/service-requests", h.Create)
	r.GET("/api/v1/service-requests/:id", h.Get)
	r.PATCH("/api/v1/service-requests/:id", h.Update)
	r.PUT("/api/v1/service-requests/:id/status", h.UpdateStatus)
	r.PUT("/api/v1/service-requests/:id/technician", h.AssignTechnician)
	r.PUT("/api/v1/service-requests/:id/notes", h.UpdateNotes)
	r.POST("/api/v1/service-requests/:id/media/client", h.AddClientMedia)
	return r, db
}

func TestListEndpointPagination(t *testing.T) {
	r, db := setupRequestTest(t)

	company := testutil.SeedCompany(t, db, "Acme")
	asset := testutil.SeedAsset(t, db, company.ID, "HVAC-1")
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		testutil.SeedServiceRequest(t, db, company.ID, asset.ID, entity.StatusPending, base.Add(time.Duration(i)*time.Minute))
	}

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/service-requests?company_id="+company.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 20 {
		t.Errorf("expected 20 items, got %d", len(items))
	}
	if data["has_more"] != true {
		t.Error("expected has_more true")
	}
	next, ok := data["next_cursor"].(string)
	if !ok || next == "" {
		t.Fatal("expected a next_cursor")
	}

	w = testutil.DoRequest(r, http.MethodGet,
		fmt.Sprintf("/api/v1/service-requests?company_id=%s&cursor=%s", company.ID, next), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if n := data["count"].(float64); n != 5 {
		t.Errorf("expected 5 items on page 2, got %v", n)
	}
	if data["has_more"] != false {
		t.Error("expected has_more false on final page")
	}
}

func TestListEndpointLimitValidation(t *testing.T) {
	r, db := setupRequestTest(t)

	company := testutil.SeedCompany(t, db, "Acme")
	asset := testutil.SeedAsset(t, db, company.ID, "HVAC-1")
	testutil.SeedServiceRequest(t, db, company.ID, asset.ID, entity.StatusPending, time.Now().UTC())

	// 越界和非数字的 limit 必须直接拒绝，不做静默裁剪
	for _, v := range []string{"0", "-5", "101", "500", "abc"} {
		w := testutil.DoRequest(r, http.MethodGet, "/api/v1/service-requests?limit="+v, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", v, w.Code)
		}
		resp := testutil.ParseResponse(w)
		if code := resp["code"].(float64); code != 40000 {
			t.Errorf("limit=%s: expected code 40000, got %v", v, code)
		}
	}

	// 边界值合法
	for _, v := range []string{"1", "100"} {
		w := testutil.DoRequest(r, http.MethodGet, "/api/v1/service-requests?limit="+v, nil)
		if w.Code != http.StatusOK {
			t.Errorf("limit=%s: expected 200, got %d", v, w.Code)
		}
	}

	// 省略时默认20
	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/service-requests", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestListEndpointInvalidCursor(t *testing.T) {
	r, _ := setupRequestTest(t)

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/service-requests?cursor=garbage", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid cursor must be 400, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if code := resp["code"].(float64); code != 40000 {
		t.Errorf("expected code 40000, got %v", code)
	}
}

func TestGetEndpointNotFound(t *testing.T) {
	r, _ := setupRequestTest(t)

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/service-requests/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestUpdateStatusEndpoint(t *testing.T) {
	r, db := setupRequestTest(t)

	company := testutil.SeedCompany(t, db, "Acme")
	asset := testutil.SeedAsset(t, db, company.ID, "HVAC-1")
	req := testutil.SeedServiceRequest(t, db, company.ID, asset.ID, entity.StatusPending, time.Now().UTC())

	w := testutil.DoRequest(r, http.MethodPut,
		"/api/v1/service-requests/"+req.ID+"/status",
		map[string]string{"status": "IN_PROGRESS"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != "IN_PROGRESS" {
		t.Errorf("expected IN_PROGRESS, got %v", data["status"])
	}

	w = testutil.DoRequest(r, http.MethodPut,
		"/api/v1/service-requests/"+req.ID+"/status",
		map[string]string{"status": "BOGUS"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status must be 400, got %d", w.Code)
	}
}

func TestAssignTechnicianEndpoint(t *testing.T) {
	r, db := setupRequestTest(t)

	company := testutil.SeedCompany(t, db, "Acme")
	asset := testutil.SeedAsset(t, db, company.ID, "HVAC-1")
	tech := testutil.SeedTechnician(t, db, company.ID, "alice")
	req := testutil.SeedServiceRequest(t, db, company.ID, asset.ID, entity.StatusPending, time.Now().UTC())

	w := testutil.DoRequest(r, http.MethodPut,
		"/api/v1/service-requests/"+req.ID+"/technician",
		map[string]string{"technician_id": tech.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != "ASSIGNED" {
		t.Errorf("expected auto-advance to ASSIGNED, got %v", data["status"])
	}

	w = testutil.DoRequest(r, http.MethodPut,
		"/api/v1/service-requests/"+req.ID+"/technician",
		map[string]string{"technician_id": "missing"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing technician must be 404, got %d", w.Code)
	}
}

func TestAddClientMediaEndpoint(t *testing.T) {
	r, db := setupRequestTest(t)

	company := testutil.SeedCompany(t, db, "Acme")
	asset := testutil.SeedAsset(t, db, company.ID, "HVAC-1")
	req := testutil.SeedServiceRequest(t, db, company.ID, asset.ID, entity.StatusPending, time.Now().UTC())

	w := testutil.DoRequest(r, http.MethodPost,
		"/api/v1/service-requests/"+req.ID+"/media/client",
		map[string]interface{}{
			"items": []map[string]string{{"url": "https://cdn/a.jpg", "kind": "image"}},
		})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(r, http.MethodPost,
		"/api/v1/service-requests/"+req.ID+"/media/client",
		map[string]interface{}{
			"items": []map[string]string{{"url": "https://cdn/b.bin", "kind": "archive"}},
		})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown media kind must be 400, got %d", w.Code)
	}
}

func TestCreateEndpointValidation(t *testing.T) {
	r, db := setupRequestTest(t)

	company := testutil.SeedCompany(t, db, "Acme")
	asset := testutil.SeedAsset(t, db, company.ID, "HVAC-1")

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/service-requests",
		map[string]string{"asset_id": asset.ID, "type": "MALFUNCTION", "description": "broken"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// 缺少必填字段
	w = testutil.DoRequest(r, http.MethodPost, "/api/v1/service-requests",
		map[string]string{"asset_id": asset.ID})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing fields must be 400, got %d", w.Code)
	}

	// 资产不存在
	w = testutil.DoRequest(r, http.MethodPost, "/api/v1/service-requests",
		map[string]string{"asset_id": "missing", "type": "MALFUNCTION", "description": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing asset must be 404, got %d", w.Code)
	}
}
