package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ─── Webhook Tests ──────────────────────────────────────────────────────────

func newRawRequest(t *testing.T, path, body string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req, httptest.NewRecorder()
}

func TestRampWebhook(t *testing.T) {
	h, db := setupServer(t)
	ctx := context.Background()

	if err := db.CreateAccount(ctx, testAccount("user-1")); err != nil {
		t.Fatal(err)
	}

	body := map[string]interface{}{
		"type": "RELEASED",
		"purchase": map[string]interface{}{
			"id":          "purchase-1",
			"account_ref": "user-1",
			"credits":     50,
		},
	}
	w := doJSON(t, h, http.MethodPost, "/api/ramp/webhook", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	acc, err := db.GetAccount(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 50 {
		t.Fatalf("balance after webhook = %d, want 50", acc.Balance)
	}

	// Provider retries deliver the same purchase id; the credit must not repeat,
	// and the retry still gets a success so the provider stops.
	w = doJSON(t, h, http.MethodPost, "/api/ramp/webhook", body)
	if w.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", w.Code)
	}
	acc, err = db.GetAccount(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 50 {
		t.Errorf("balance after replay = %d, want 50", acc.Balance)
	}
}

func TestRampWebhook_IgnoredType(t *testing.T) {
	h, db := setupServer(t)
	ctx := context.Background()

	if err := db.CreateAccount(ctx, testAccount("user-1")); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, h, http.MethodPost, "/api/ramp/webhook", map[string]interface{}{
		"type": "CREATED",
		"purchase": map[string]interface{}{
			"id":          "purchase-1",
			"account_ref": "user-1",
			"credits":     50,
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	acc, err := db.GetAccount(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 0 {
		t.Errorf("CREATED event must not credit, balance = %d", acc.Balance)
	}
}

func TestRampWebhook_Malformed(t *testing.T) {
	h, _ := setupServer(t)

	// A released purchase with no id cannot be deduplicated; it is rejected
	// before anything is recorded.
	w := doJSON(t, h, http.MethodPost, "/api/ramp/webhook", map[string]interface{}{
		"type": "RELEASED",
		"purchase": map[string]interface{}{
			"account_ref": "user-1",
			"credits":     50,
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestRampWebhook_InvalidJSON(t *testing.T) {
	h, _ := setupServer(t)

	req, w := newRawRequest(t, "/api/ramp/webhook", "{not json")
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCoinRemitterWebhook(t *testing.T) {
	h, db := setupServer(t)
	ctx := context.Background()

	if err := db.CreateAccount(ctx, testAccount("user-1")); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, h, http.MethodPost, "/api/coinremitter/webhook", map[string]interface{}{
		"invoice_id":  "inv-1",
		"status":      "Paid",
		"account_ref": "user-1",
		"credits":     25,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	acc, err := db.GetAccount(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 25 {
		t.Errorf("balance = %d, want 25", acc.Balance)
	}
}

func TestCoinRemitterWebhook_Pending(t *testing.T) {
	h, db := setupServer(t)
	ctx := context.Background()

	if err := db.CreateAccount(ctx, testAccount("user-1")); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, h, http.MethodPost, "/api/coinremitter/webhook", map[string]interface{}{
		"invoice_id":  "inv-1",
		"status":      "Pending",
		"account_ref": "user-1",
		"credits":     25,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	acc, err := db.GetAccount(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 0 {
		t.Errorf("pending invoice must not credit, balance = %d", acc.Balance)
	}

	// Once the invoice flips to Paid it credits under the same id.
	w = doJSON(t, h, http.MethodPost, "/api/coinremitter/webhook", map[string]interface{}{
		"invoice_id":  "inv-1",
		"status":      "Paid",
		"account_ref": "user-1",
		"credits":     25,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("paid: expected 200, got %d", w.Code)
	}
	acc, err = db.GetAccount(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 25 {
		t.Errorf("balance after Paid = %d, want 25", acc.Balance)
	}
}

// Unresolvable accounts are recorded and acknowledged so the provider does
// not hammer an event we can never apply.
func TestWebhook_UnknownAccount(t *testing.T) {
	h, _ := setupServer(t)

	w := doJSON(t, h, http.MethodPost, "/api/coinremitter/webhook", map[string]interface{}{
		"invoice_id":  "inv-1",
		"status":      "Paid",
		"account_ref": "ghost",
		"credits":     25,
	})
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for unresolvable account, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "received") {
		t.Errorf("expected an acknowledgement body, got %s", w.Body.String())
	}
}
