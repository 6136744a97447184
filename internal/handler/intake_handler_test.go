package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitfantasy/fixdesk/internal/event"
	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/service"
	"github.com/bitfantasy/fixdesk/internal/shared/ratelimit"
	"github.com/bitfantasy/fixdesk/internal/testutil"
)

func setupIntakeTest(t *testing.T, limit int) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	bus := event.NewBus(zap.NewNop())
	t.Cleanup(bus.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	limiter := ratelimit.NewLimiter(rdb, limit, time.Hour)

	clientSvc := service.NewClientService(repos.Client)
	intakeSvc := service.NewIntakeService(repos.Asset, clientSvc, repos.ServiceRequest, limiter, bus, zap.NewNop())
	assetSvc := service.NewAssetService(repos.Asset, repos.Company, "http://localhost:5173")
	h := NewIntakeHandler(intakeSvc, assetSvc)

	r := testutil.SetupRouter()
	r.GET("/api/v1/public/assets/:token", h.ResolveAsset)
	r.POST("/api/v1/public/intake/:token/request", h.CreateRequest)
	r.GET("/api/v1/public/intake/:token/status", h.Status)
	return r, db
}

func TestResolveAssetEndpoint(t *testing.T) {
	r, db := setupIntakeTest(t, 5)

	company := testutil.SeedCompany(t, db, "Acme")
	asset := testutil.SeedAsset(t, db, company.ID, "Elevator-3")

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/public/assets/"+asset.QRToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["name"] != "Elevator-3" || data["company_name"] != "Acme" {
		t.Errorf("unexpected public asset: %+v", data)
	}

	// 格式非法的令牌直接拒绝
	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/public/assets/short", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed token must be 400, got %d", w.Code)
	}

	// 格式合法但不存在
	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/public/assets/AbCdEfGhIjKlMnOpQrStUv12", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown token must be 404, got %d", w.Code)
	}
}

func TestIntakeEndpointRateLimit(t *testing.T) {
	r, db := setupIntakeTest(t, 2)

	company := testutil.SeedCompany(t, db, "Acme")
	asset := testutil.SeedAsset(t, db, company.ID, "Elevator-3")

	body := map[string]string{
		"name":        "Bob",
		"email":       "bob@example.com",
		"type":        "MALFUNCTION",
		"description": "door stuck",
	}

	for i := 0; i < 2; i++ {
		w := testutil.DoRequest(r, http.MethodPost, "/api/v1/public/intake/"+asset.QRToken+"/request", body)
		if w.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d: %s", i+1, w.Code, w.Body.String())
		}
	}

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/public/intake/"+asset.QRToken+"/request", body)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if code := resp["code"].(float64); code != 42900 {
		t.Errorf("expected code 42900, got %v", code)
	}

	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/public/intake/"+asset.QRToken+"/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status check failed: %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["allowed"] != false {
		t.Errorf("expected exhausted window, got %+v", data)
	}
}
