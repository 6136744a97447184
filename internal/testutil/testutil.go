package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bitfantasy/fixdesk/internal/model/entity"
)

const TestSchema = "test_fixdesk"

// projectRoot returns the project root directory by looking for go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// loadEnv loads .env from the project root
func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetupTestDB creates a test database connection using a dedicated test schema.
// Each test gets an isolated schema that is cleaned up after the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "fixdesk")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// Create a unique test schema for isolation
	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database for schema setup: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// Open connection with search_path in DSN so ALL pooled connections use the test schema
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&entity.Company{},
		&entity.Asset{},
		&entity.Client{},
		&entity.Technician{},
		&entity.ServiceRequest{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			sqlClean, _ := cleanDB.DB()
			if sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedCompany creates a test company
func SeedCompany(t *testing.T, db *gorm.DB, name string) *entity.Company {
	t.Helper()
	company := &entity.Company{
		ID:   uuid.New().String(),
		Name: name,
	}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("Failed to seed company: %v", err)
	}
	return company
}

// SeedAsset creates a test asset
func SeedAsset(t *testing.T, db *gorm.DB, companyID, name string) *entity.Asset {
	t.Helper()
	asset := &entity.Asset{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      name,
		QRToken:   fmt.Sprintf("tok%021d", time.Now().UnixNano()%1_000_000_000_000_000_000),
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("Failed to seed asset: %v", err)
	}
	return asset
}

// SeedTechnician creates a test technician
func SeedTechnician(t *testing.T, db *gorm.DB, companyID, name string) *entity.Technician {
	t.Helper()
	tech := &entity.Technician{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      name,
		Email:     name + "@test.com",
	}
	if err := db.Create(tech).Error; err != nil {
		t.Fatalf("Failed to seed technician: %v", err)
	}
	return tech
}

// SeedClient creates a test client
func SeedClient(t *testing.T, db *gorm.DB, companyID, name, email, phone string) *entity.Client {
	t.Helper()
	client := &entity.Client{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      name,
		Email:     email,
		Phone:     phone,
	}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("Failed to seed client: %v", err)
	}
	return client
}

// SeedServiceRequest creates a test service request with the given creation time
func SeedServiceRequest(t *testing.T, db *gorm.DB, companyID, assetID string, status entity.RequestStatus, createdAt time.Time) *entity.ServiceRequest {
	t.Helper()
	req := &entity.ServiceRequest{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		AssetID:     assetID,
		Channel:     entity.ChannelManual,
		Type:        entity.TypeMalfunction,
		Status:      status,
		Description: "seeded request",
	}
	if err := db.Create(req).Error; err != nil {
		t.Fatalf("Failed to seed service request: %v", err)
	}
	// gorm 自动填充 created_at，这里按测试需要回写
	if err := db.Model(req).UpdateColumns(map[string]interface{}{
		"created_at": createdAt,
		"updated_at": createdAt,
	}).Error; err != nil {
		t.Fatalf("Failed to set created_at: %v", err)
	}
	req.CreatedAt = createdAt
	req.UpdatedAt = createdAt
	return req
}
