package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitfantasy/fixdesk/internal/event"
	"github.com/bitfantasy/fixdesk/internal/model/entity"
	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/shared/ratelimit"
	"github.com/bitfantasy/fixdesk/internal/testutil"
)

func newTestIntake(t *testing.T, limit int) (*IntakeService, *event.Bus, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	bus := event.NewBus(zap.NewNop())
	t.Cleanup(bus.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	limiter := ratelimit.NewLimiter(rdb, limit, time.Hour)

	clientSvc := NewClientService(repos.Client)
	svc := NewIntakeService(repos.Asset, clientSvc, repos.ServiceRequest, limiter, bus, zap.NewNop())
	return svc, bus, db
}

func TestIntakeCreate(t *testing.T) {
	svc, bus, db := newTestIntake(t, 5)
	ctx := context.Background()

	company := testutil.SeedCompany(t, db, "Acme")
	asset := testutil.SeedAsset(t, db, company.ID, "Elevator-3")

	sub := bus.Subscribe(company.ID)

	res, err := svc.Create(ctx, asset.QRToken, "1.2.3.4", &IntakeInput{
		Name:        "Bob",
		Email:       "bob@example.com",
		Type:        entity.TypeMalfunction,
		Description: "door stuck between floors",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if res.ID == "" || res.CreatedAt.IsZero() {
		t.Errorf("incomplete result: %+v", res)
	}

	repos := repository.NewRepositories(db)
	req, err := repos.ServiceRequest.FindByID(ctx, res.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if req.Channel != entity.ChannelQR || req.Status != entity.StatusPending {
		t.Errorf("unexpected defaults: channel=%s status=%s", req.Channel, req.Status)
	}
	if req.ClientID == nil {
		t.Fatal("client must be linked")
	}
	if req.CompanyID != company.ID {
		t.Error("company must come from the asset")
	}

	evt := drainOne(t, sub)
	if evt.Kind != event.KindCreated {
		t.Errorf("expected created event, got %s", evt.Kind)
	}
}

func TestIntakeUnknownToken(t *testing.T) {
	svc, _, _ := newTestIntake(t, 5)

	_, err := svc.Create(context.Background(), "AbCdEfGhIjKlMnOpQrStUv12", "1.2.3.4", &IntakeInput{
		Name:        "Bob",
		Type:        entity.TypeMalfunction,
		Description: "x",
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIntakeRateLimited(t *testing.T) {
	svc, _, db := newTestIntake(t, 2)
	ctx := context.Background()

	company := testutil.SeedCompany(t, db, "Acme")
	asset := testutil.SeedAsset(t, db, company.ID, "Elevator-3")

	input := &IntakeInput{
		Name:        "Bob",
		Phone:       "555-0101",
		Type:        entity.TypeMaintenance,
		Description: "routine check",
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Create(ctx, asset.QRToken, "1.2.3.4", input); err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
	}

	if _, err := svc.Create(ctx, asset.QRToken, "1.2.3.4", input); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}

	// 其他IP不受影响
	if _, err := svc.Create(ctx, asset.QRToken, "5.6.7.8", input); err != nil {
		t.Errorf("different ip should not be limited: %v", err)
	}

	status, err := svc.Status(ctx, asset.QRToken, "1.2.3.4")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Allowed || status.Remaining != 0 {
		t.Errorf("expected exhausted window, got %+v", status)
	}
}

func TestIntakeClientDedup(t *testing.T) {
	svc, _, db := newTestIntake(t, 10)
	ctx := context.Background()

	company := testutil.SeedCompany(t, db, "Acme")
	asset := testutil.SeedAsset(t, db, company.ID, "Elevator-3")
	repos := repository.NewRepositories(db)

	first, err := svc.Create(ctx, asset.QRToken, "1.1.1.1", &IntakeInput{
		Name: "Bob", Email: "bob@example.com", Phone: "555-0101",
		Type: entity.TypeMalfunction, Description: "a",
	})
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	// 同邮箱复用同一客户
	second, err := svc.Create(ctx, asset.QRToken, "2.2.2.2", &IntakeInput{
		Name: "Bobby", Email: "bob@example.com",
		Type: entity.TypeMalfunction, Description: "b",
	})
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	// 无邮箱时按手机号复用
	third, err := svc.Create(ctx, asset.QRToken, "3.3.3.3", &IntakeInput{
		Name: "Robert", Phone: "555-0101",
		Type: entity.TypeMaintenance, Description: "c",
	})
	if err != nil {
		t.Fatalf("third create failed: %v", err)
	}

	reqs := make([]*entity.ServiceRequest, 0, 3)
	for _, id := range []string{first.ID, second.ID, third.ID} {
		req, err := repos.ServiceRequest.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		reqs = append(reqs, req)
	}
	if *reqs[0].ClientID != *reqs[1].ClientID {
		t.Error("same email must reuse the client")
	}
	if *reqs[0].ClientID != *reqs[2].ClientID {
		t.Error("same phone must reuse the client")
	}
}
