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

	"github.com/fabworks/mfg-core/internal/middleware"
	"github.com/fabworks/mfg-core/internal/model/entity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const TestSchema = "test_mfg"

// TestActorID is the default actor identity used in handler tests.
const TestActorID = "test-actor-001"

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

// SetupTestDB creates a test database connection using a dedicated test schema.
// Each test gets an isolated schema that is cleaned up after the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "mfg_core")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// Create a unique test schema for isolation
	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	// First: create schema using a temporary connection
	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database for schema setup: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// Second: open connection with search_path in DSN so ALL pooled connections use test schema
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := entity.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	// Cleanup on test completion
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		// Reconnect to drop the schema
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

// ActorGroup creates an API group with the actor-identity middleware for testing
func ActorGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.Actor())
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, actorID string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedUser creates a test user in the database
func SeedUser(t *testing.T, db *gorm.DB, id, name string) *entity.User {
	t.Helper()
	user := &entity.User{
		ID:        id,
		Name:      name,
		Email:     id + "@test.local",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed test user: %v", err)
	}
	return user
}

// SeedProduct creates a product with the given stock levels, backed by an
// initial ledger entry so the on-hand total stays consistent with the ledger.
func SeedProduct(t *testing.T, db *gorm.DB, name string, onHand, minStock, reorderQty int) *entity.Product {
	t.Helper()
	product := &entity.Product{
		ID:              uuid.New().String(),
		Name:            name,
		OnHandQuantity:  onHand,
		MinStockLevel:   minStock,
		ReorderQuantity: reorderQty,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	if onHand != 0 {
		ledger := &entity.StockLedgerEntry{
			ID:             uuid.New().String(),
			ProductID:      product.ID,
			QuantityChange: onHand,
			Reason:         entity.ReasonInitialStock,
			Timestamp:      time.Now(),
		}
		if err := db.Create(ledger).Error; err != nil {
			t.Fatalf("Failed to seed ledger entry: %v", err)
		}
	}
	return product
}

// SeedWorkCenter creates a work center
func SeedWorkCenter(t *testing.T, db *gorm.DB, name string) *entity.WorkCenter {
	t.Helper()
	wc := &entity.WorkCenter{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(wc).Error; err != nil {
		t.Fatalf("Failed to seed work center: %v", err)
	}
	return wc
}

// BOMComponentSpec describes one component line for SeedBOM
type BOMComponentSpec struct {
	ProductID        string
	QuantityRequired int
}

// BOMOperationSpec describes one operation line for SeedBOM
type BOMOperationSpec struct {
	Name            string
	WorkCenterID    string
	DurationMinutes int
}

// SeedBOM creates a BOM with the given component and operation lines
func SeedBOM(t *testing.T, db *gorm.DB, name, productID string, components []BOMComponentSpec, operations []BOMOperationSpec) *entity.BOM {
	t.Helper()
	bom := &entity.BOM{
		ID:        uuid.New().String(),
		Name:      name,
		ProductID: productID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(bom).Error; err != nil {
		t.Fatalf("Failed to seed BOM: %v", err)
	}
	for _, c := range components {
		line := &entity.BOMComponent{
			ID:                 uuid.New().String(),
			BOMID:              bom.ID,
			ComponentProductID: c.ProductID,
			QuantityRequired:   c.QuantityRequired,
			CreatedAt:          time.Now(),
		}
		if err := db.Create(line).Error; err != nil {
			t.Fatalf("Failed to seed BOM component: %v", err)
		}
	}
	for _, op := range operations {
		line := &entity.BOMOperation{
			ID:              uuid.New().String(),
			BOMID:           bom.ID,
			Name:            op.Name,
			WorkCenterID:    op.WorkCenterID,
			DurationMinutes: op.DurationMinutes,
			CreatedAt:       time.Now(),
		}
		if err := db.Create(line).Error; err != nil {
			t.Fatalf("Failed to seed BOM operation: %v", err)
		}
	}
	return bom
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
