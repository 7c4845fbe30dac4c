//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fenestra-platform/fenestra/internal/activity"
	"github.com/fenestra-platform/fenestra/internal/api"
	"github.com/fenestra-platform/fenestra/internal/auth"
	"github.com/fenestra-platform/fenestra/internal/brand"
	"github.com/fenestra-platform/fenestra/internal/catalog"
	"github.com/fenestra-platform/fenestra/internal/config"
	"github.com/fenestra-platform/fenestra/internal/leads"
	"github.com/fenestra-platform/fenestra/internal/quota"
	"github.com/fenestra-platform/fenestra/internal/sellers"
)

const (
	buyerSecret  = "test-buyer-secret-32-chars-long!!!!"
	sellerSecret = "test-seller-secret-32-chars-long!!!"
	adminSecret  = "test-admin-secret-32-chars-long!!!!"
)

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "fenestra_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/fenestra_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	m, err := migrate.New(fmt.Sprintf("file://%s", getMigrationsPath()), dsn)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Wire services the way main.go does, minus NATS
	quotaCfg := config.QuotaConfig{MonthlyAllowanceSqft: 500}
	verifier := auth.NewVerifier(config.JWTConfig{
		BuyerSecret:  buyerSecret,
		SellerSecret: sellerSecret,
		AdminSecret:  adminSecret,
	})

	quotaRepo := quota.NewRepository(pool)
	ledger := quota.NewLedger(quotaRepo, quotaCfg)

	sellerRepo := sellers.NewRepository(pool)
	sellerSvc := sellers.NewService(sellerRepo, quotaCfg)
	sellerHandler := sellers.NewHandler(sellerSvc, ledger)

	guard := brand.NewGuard(sellerSvc)
	catalogRepo := catalog.NewRepository(pool)
	catalogHandler := catalog.NewHandler(catalogRepo)

	leadRepo := leads.NewRepository(pool)
	policy := leads.NewPricingPolicy(config.PricingConfig{
		BasePricePerSqft: 10.50,
		TargetProfit:     6250,
		DefaultSlots:     6,
	})
	leadSvc := leads.NewService(leadRepo, catalogRepo, policy, nil)
	allocator := leads.NewAllocator(leadRepo, sellerSvc, ledger, guard, nil)
	leadHandler := leads.NewHandler(leadSvc, allocator)

	activityRepo := activity.NewRepository(pool)
	activityHandler := activity.NewHandler(activityRepo)

	router := api.NewRouter(pool, nil, api.RouterConfig{}, api.HandlerSet{
		CreateLead:         leadHandler.Create,
		ListLeads:          leadHandler.List,
		GetLead:            leadHandler.Get,
		GetLeadVisibility:  leadHandler.GetVisibility,
		PurchaseLead:       leadHandler.Purchase,
		PreviewPricing:     leadHandler.Preview,
		OverrideLeadStatus: leadHandler.OverrideStatus,
		DeleteLead:         leadHandler.Delete,
		ListLeadEvents:     activityHandler.ListByLead,

		ListCategories: catalogHandler.ListCategories,
		ListProducts:   catalogHandler.ListProducts,

		RegisterSeller: sellerHandler.Register,
		GetSeller:      sellerHandler.Get,
		ListSellers:    sellerHandler.List,
		ApproveSeller:  sellerHandler.Approve,
		RejectSeller:   sellerHandler.Reject,
		BlockSeller:    sellerHandler.Block,
		UnblockSeller:  sellerHandler.Unblock,
		SellerQuota:    sellerHandler.Quota,

		BuyerAuth:         auth.Middleware(verifier, auth.PrincipalBuyer),
		SellerAuth:        auth.Middleware(verifier, auth.PrincipalSeller),
		AdminAuth:         auth.Middleware(verifier, auth.PrincipalAdmin),
		SellerOrAdminAuth: auth.Middleware(verifier, auth.PrincipalSeller, auth.PrincipalAdmin),
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
	}

	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Token helpers

func BuyerToken(t *testing.T, id uuid.UUID) string {
	t.Helper()
	return signToken(t, buyerSecret, auth.PrincipalBuyer, id)
}

func SellerToken(t *testing.T, id uuid.UUID) string {
	t.Helper()
	return signToken(t, sellerSecret, auth.PrincipalSeller, id)
}

func AdminToken(t *testing.T) string {
	t.Helper()
	return signToken(t, adminSecret, auth.PrincipalAdmin, uuid.New())
}

func signToken(t *testing.T, secret string, principal auth.Principal, id uuid.UUID) string {
	t.Helper()
	token, err := auth.Sign(secret, principal, id.String(), time.Hour)
	if err != nil {
		t.Fatalf("signing %s token: %v", principal, err)
	}
	return token
}

// Seed helpers

func SeedCategory(t *testing.T, env *TestEnv) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	categoryID := uuid.New()
	productID := uuid.New()

	_, err := env.Pool.Exec(ctx,
		`INSERT INTO categories (id, name) VALUES ($1, $2)`,
		categoryID, "casement-"+categoryID.String()[:8])
	if err != nil {
		t.Fatalf("seeding category: %v", err)
	}
	_, err = env.Pool.Exec(ctx,
		`INSERT INTO products (id, category_id, title) VALUES ($1, $2, $3)`,
		productID, categoryID, "standard profile")
	if err != nil {
		t.Fatalf("seeding product: %v", err)
	}
	return categoryID, productID
}

// RegisterApprovedSeller onboards a seller through the API and approves it
// as admin. Returns the seller id.
func RegisterApprovedSeller(t *testing.T, env *TestEnv, phone, city, brandName string) uuid.UUID {
	t.Helper()
	body := map[string]string{
		"phone_number":          phone,
		"company_name":          "Test Windows Co",
		"address":               "12 Industrial Estate",
		"city":                  city,
		"brand_of_profile_used": brandName,
	}
	resp := DoRequest(t, env, "POST", "/api/v1/sellers/register", body, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("seller register failed: status %d", resp.StatusCode)
	}
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	sellerID, err := uuid.Parse(data["id"].(string))
	if err != nil {
		t.Fatalf("parsing seller id: %v", err)
	}

	resp = DoRequest(t, env, "POST", "/api/v1/sellers/"+sellerID.String()+"/approve", nil, AdminToken(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seller approve failed: status %d", resp.StatusCode)
	}
	resp.Body.Close()
	return sellerID
}

// CreateTestLead submits a lead with one quote item sized to the given area.
func CreateTestLead(t *testing.T, env *TestEnv, categoryID, productID uuid.UUID, sqft float64) map[string]any {
	t.Helper()
	return CreateTestLeadInCity(t, env, categoryID, productID, sqft, "Pune")
}

func CreateTestLeadInCity(t *testing.T, env *TestEnv, categoryID, productID uuid.UUID, sqft float64, city string) map[string]any {
	t.Helper()
	body := map[string]any{
		"category_id": categoryID,
		"quote_items": []map[string]any{{
			"product_id": productID,
			"color":      "white",
			"height":     1.0,
			"width":      1.0,
			"quantity":   1,
			"sqft":       sqft,
		}},
		"contact_info": map[string]string{
			"name":           "A Buyer",
			"contact_number": "+919800000000",
		},
		"project_info": map[string]string{
			"name":     "Lakeside Villa",
			"address":  "Plot 4, Lakeside",
			"area":     "Baner",
			"city":     city,
			"pincode":  "411045",
			"stage":    "construction",
			"timeline": "1-3 months",
		},
	}
	resp := DoRequest(t, env, "POST", "/api/v1/leads", body, BuyerToken(t, uuid.New()))
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("lead create failed: status %d body %s", resp.StatusCode, raw)
	}
	result := ParseResponse(t, resp)
	return result["data"].(map[string]any)
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
