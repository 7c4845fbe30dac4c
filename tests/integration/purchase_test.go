//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestLeadCreationComputesPricing(t *testing.T) {
	env := SetupTestEnv(t)
	categoryID, productID := SeedCategory(t, env)

	// 100 sqft: over-profit split into 5 slots of 1250.
	lead := CreateTestLead(t, env, categoryID, productID, 100)

	if got := lead["max_slots"].(float64); got != 5 {
		t.Errorf("max_slots = %v, want 5", got)
	}
	if got := lead["dynamic_slot_price"].(float64); got != 1250 {
		t.Errorf("dynamic_slot_price = %v, want 1250", got)
	}
	if lead["over_profit"] != true {
		t.Error("expected over_profit = true")
	}
	if got := lead["available_slots"].(float64); got != 5 {
		t.Errorf("available_slots = %v, want 5", got)
	}
	if lead["status"] != "new" {
		t.Errorf("status = %v, want new", lead["status"])
	}
}

func TestPurchaseDecrementsSlotsAndChargesSeller(t *testing.T) {
	env := SetupTestEnv(t)
	categoryID, productID := SeedCategory(t, env)
	lead := CreateTestLead(t, env, categoryID, productID, 100)
	leadID := lead["id"].(string)

	sellerID := RegisterApprovedSeller(t, env, uniquePhone(), "Nashik", "Aluplast")

	resp := DoRequest(t, env, "POST", "/api/v1/leads/purchase", map[string]any{
		"lead_id":      leadID,
		"slots_to_buy": 2,
	}, SellerToken(t, sellerID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("purchase failed: status %d", resp.StatusCode)
	}
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)

	if got := data["actual_price_paid"].(float64); got != 2100 {
		t.Errorf("actual_price_paid = %v, want 2100", got)
	}
	if got := data["paid_sqft"].(float64); got != 200 {
		t.Errorf("paid_sqft = %v, want 200", got)
	}
	updated := data["lead"].(map[string]any)
	if got := updated["available_slots"].(float64); got != 3 {
		t.Errorf("available_slots = %v, want 3", got)
	}

	var rows int
	err := env.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM lead_purchases WHERE lead_id = $1 AND seller_id = $2`,
		leadID, sellerID).Scan(&rows)
	if err != nil {
		t.Fatalf("counting purchases: %v", err)
	}
	if rows != 2 {
		t.Errorf("purchase rows = %d, want 2", rows)
	}
}

func TestPurchaseWithFreeQuota(t *testing.T) {
	env := SetupTestEnv(t)
	categoryID, productID := SeedCategory(t, env)
	lead := CreateTestLead(t, env, categoryID, productID, 100)
	leadID := lead["id"].(string)

	sellerID := RegisterApprovedSeller(t, env, uniquePhone(), "Surat", "Rehau")

	resp := DoRequest(t, env, "POST", "/api/v1/leads/purchase", map[string]any{
		"lead_id":          leadID,
		"slots_to_buy":     1,
		"use_free_quota":   true,
		"free_sqft_to_use": 80,
	}, SellerToken(t, sellerID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("purchase failed: status %d", resp.StatusCode)
	}
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)

	if got := data["free_sqft_used"].(float64); got != 80 {
		t.Errorf("free_sqft_used = %v, want 80", got)
	}
	if got := data["actual_price_paid"].(float64); got != 210 {
		t.Errorf("actual_price_paid = %v, want 210", got)
	}

	// Quota endpoint reflects the deduction.
	resp = DoRequest(t, env, "GET", "/api/v1/sellers/me/quota", nil, SellerToken(t, sellerID))
	quotaResult := ParseResponse(t, resp)
	quotaData := quotaResult["data"].(map[string]any)
	if got := quotaData["remaining_quota"].(float64); got != 420 {
		t.Errorf("remaining_quota = %v, want 420", got)
	}
}

func TestBrandLimitBlocksThirdSellerInCity(t *testing.T) {
	env := SetupTestEnv(t)
	categoryID, productID := SeedCategory(t, env)

	city := "Indore-" + uuid.NewString()[:8]
	brandName := "Veka"
	RegisterApprovedSeller(t, env, uniquePhone(), city, brandName)
	RegisterApprovedSeller(t, env, uniquePhone(), city, brandName)
	third := RegisterApprovedSeller(t, env, uniquePhone(), city, brandName)

	lead := CreateTestLeadInCity(t, env, categoryID, productID, 100, city)

	resp := DoRequest(t, env, "POST", "/api/v1/leads/purchase", map[string]any{
		"lead_id":      lead["id"].(string),
		"slots_to_buy": 1,
	}, SellerToken(t, third))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for saturated brand, got %d", resp.StatusCode)
	}
}

func TestSmallLeadSingleBuyPerSeller(t *testing.T) {
	env := SetupTestEnv(t)
	categoryID, productID := SeedCategory(t, env)
	lead := CreateTestLead(t, env, categoryID, productID, 40)
	leadID := lead["id"].(string)

	sellerID := RegisterApprovedSeller(t, env, uniquePhone(), "Bhopal", "Kommerling")

	body := map[string]any{"lead_id": leadID, "slots_to_buy": 1}
	resp := DoRequest(t, env, "POST", "/api/v1/leads/purchase", body, SellerToken(t, sellerID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first purchase failed: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = DoRequest(t, env, "POST", "/api/v1/leads/purchase", body, SellerToken(t, sellerID))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate small-lead purchase, got %d", resp.StatusCode)
	}
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	env := SetupTestEnv(t)
	categoryID, productID := SeedCategory(t, env)
	lead := CreateTestLead(t, env, categoryID, productID, 100)
	leadID := lead["id"].(string)

	const buyers = 12
	tokens := make([]string, buyers)
	for i := range tokens {
		id := RegisterApprovedSeller(t, env, uniquePhone(), fmt.Sprintf("City-%s", uuid.NewString()[:8]), "Deceuninck")
		tokens[i] = SellerToken(t, id)
	}

	var wg sync.WaitGroup
	statuses := make([]int, buyers)
	for i := range buyers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := DoRequest(t, env, "POST", "/api/v1/leads/purchase", map[string]any{
				"lead_id":      leadID,
				"slots_to_buy": 1,
			}, tokens[i])
			statuses[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	sold := 0
	for _, code := range statuses {
		if code == http.StatusOK {
			sold++
		}
	}
	if sold != 5 {
		t.Errorf("sold %d slots, want exactly 5", sold)
	}

	var available int
	var status string
	err := env.Pool.QueryRow(context.Background(),
		`SELECT available_slots, status FROM leads WHERE id = $1`, leadID).Scan(&available, &status)
	if err != nil {
		t.Fatalf("reading lead: %v", err)
	}
	if available != 0 {
		t.Errorf("available_slots = %d, want 0", available)
	}
	if status != "in-progress" {
		t.Errorf("status = %q, want in-progress", status)
	}
}

func TestAdminStatusOverrideRejectsUnknown(t *testing.T) {
	env := SetupTestEnv(t)
	categoryID, productID := SeedCategory(t, env)
	lead := CreateTestLead(t, env, categoryID, productID, 100)
	leadID := lead["id"].(string)

	resp := DoRequest(t, env, "PATCH", "/api/v1/leads/"+leadID+"/status",
		map[string]string{"status": "done"}, AdminToken(t))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Legacy alias maps to the canonical value.
	resp = DoRequest(t, env, "PATCH", "/api/v1/leads/"+leadID+"/status",
		map[string]string{"status": "sold"}, AdminToken(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("override failed: status %d", resp.StatusCode)
	}
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	if data["status"] != "closed" {
		t.Errorf("status = %v, want closed", data["status"])
	}
}

var phoneCounter int
var phoneMu sync.Mutex

func uniquePhone() string {
	phoneMu.Lock()
	defer phoneMu.Unlock()
	phoneCounter++
	return fmt.Sprintf("+9198%08d", phoneCounter)
}
