package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/payment"
	"fintrack/internal/services"
	"fintrack/internal/session"
	"fintrack/internal/store/kvfile"
)

func newTestServer(t *testing.T, payments *payment.Client) *Server {
	t.Helper()

	st, err := kvfile.New(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ledger := services.NewLedgerService(st, nil, cache.NewLRUCache[[]core.Transaction](16, time.Minute))

	s := NewServer(Options{
		Addr:       ":0",
		Ledger:     ledger,
		Users:      st,
		Sessions:   session.NewMemoryStore(),
		SessionTTL: time.Hour,
		Payments:   payments,
		RateLimit:  ratelimit.Config{RequestsPerMinute: 100000, CleanupInterval: time.Minute},
	})
	t.Cleanup(func() { s.limiter.Stop() })
	return s
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func signupAndLogin(t *testing.T, s *Server) string {
	t.Helper()

	rec := doJSON(t, s, http.MethodPost, "/api/signup", "", map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup = %d: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("signup should return a session token")
	}
	return resp.Token
}

func TestSignupLoginLogout(t *testing.T) {
	s := newTestServer(t, nil)

	token := signupAndLogin(t, s)

	// Duplicate email conflicts.
	rec := doJSON(t, s, http.MethodPost, "/api/signup", "", map[string]string{
		"name":     "Asha",
		"email":    "ASHA@example.com",
		"password": "correct-horse",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup = %d, want 409", rec.Code)
	}

	// Wrong password and unknown user answer identically.
	rec = doJSON(t, s, http.MethodPost, "/api/login", "", map[string]string{
		"email": "asha@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password login = %d, want 401", rec.Code)
	}
	badPass := rec.Body.String()
	rec = doJSON(t, s, http.MethodPost, "/api/login", "", map[string]string{
		"email": "nobody@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized || rec.Body.String() != badPass {
		t.Fatalf("unknown user should answer like a wrong password: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/login", "", map[string]string{
		"email": "asha@example.com", "password": "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/logout", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout = %d, want 204", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/transactions", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("request after logout = %d, want 401", rec.Code)
	}
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "short"}},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email", "password": "long-enough"}},
		{"empty name", map[string]string{"name": " ", "email": "a@example.com", "password": "long-enough"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/signup", "", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("signup = %d, want 422: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestProfileEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := signupAndLogin(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get profile = %d: %s", rec.Code, rec.Body.String())
	}
	var profile profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Name != "Asha" || profile.Email != "asha@example.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.JoinedDate == "" {
		t.Fatal("profile should carry the joined date")
	}

	// Name, phone and avatar are editable; email stays put.
	rec = doJSON(t, s, http.MethodPut, "/api/me", token, map[string]string{
		"name": "Asha K", "phone": "+91 98765 43210", "avatar": "https://example.com/a.png",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update profile = %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Name != "Asha K" || profile.Phone != "+91 98765 43210" || profile.Avatar != "https://example.com/a.png" {
		t.Fatalf("update did not stick: %+v", profile)
	}
	if profile.Email != "asha@example.com" {
		t.Fatalf("email must not change: %+v", profile)
	}

	// Partial update leaves the other fields alone.
	rec = doJSON(t, s, http.MethodPut, "/api/me", token, map[string]string{"avatar": ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("partial update = %d: %s", rec.Code, rec.Body.String())
	}
	profile = profileResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Name != "Asha K" || profile.Avatar != "" {
		t.Fatalf("partial update clobbered fields: %+v", profile)
	}

	if rec := doJSON(t, s, http.MethodPut, "/api/me", token, map[string]string{"name": "  "}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank name = %d, want 422", rec.Code)
	}

	if rec := doJSON(t, s, http.MethodGet, "/api/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated profile = %d, want 401", rec.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	token := signupAndLogin(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "income", "description": "Salary", "amount": 1000.50, "date": "2024-01-05",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add = %d: %s", rec.Code, rec.Body.String())
	}
	var created transactionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == 0 || created.Amount != 1000.50 {
		t.Fatalf("unexpected created transaction: %+v", created)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "expense", "description": "Rent", "amount": "400", "date": "2024-02-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add string amount = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	var list []transactionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 || list[0].Date != "2024-02-01" {
		t.Fatalf("list should be newest first: %+v", list)
	}

	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", rec.Code)
	}

	// Deleting an unknown ID is a silent no-op.
	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/999999", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete missing = %d, want 204", rec.Code)
	}
}

func TestAddTransactionValidation(t *testing.T) {
	s := newTestServer(t, nil)
	token := signupAndLogin(t, s)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"bad type", map[string]any{"type": "transfer", "description": "x", "amount": 10, "date": "2024-01-01"}, http.StatusUnprocessableEntity},
		{"zero amount allowed", map[string]any{"type": "income", "description": "x", "amount": 0, "date": "2024-01-01"}, http.StatusCreated},
		{"negative amount", map[string]any{"type": "income", "description": "x", "amount": -5, "date": "2024-01-01"}, http.StatusUnprocessableEntity},
		{"empty description", map[string]any{"type": "income", "description": "  ", "amount": 10, "date": "2024-01-01"}, http.StatusUnprocessableEntity},
		{"bad date", map[string]any{"type": "income", "description": "x", "amount": 10, "date": "01-01-2024"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/transactions", token, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("add = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := doJSON(t, s, http.MethodGet, "/api/transactions", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list = %d, want 401", rec.Code)
	}
}

func TestSummaryAndSuggestions(t *testing.T) {
	s := newTestServer(t, nil)
	token := signupAndLogin(t, s)

	for _, body := range []map[string]any{
		{"type": "income", "description": "Salary", "amount": 100, "date": "2024-01-05"},
		{"type": "expense", "description": "Rent", "amount": 85, "date": "2024-01-10"},
	} {
		if rec := doJSON(t, s, http.MethodPost, "/api/transactions", token, body); rec.Code != http.StatusCreated {
			t.Fatalf("add = %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/summary", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary = %d", rec.Code)
	}
	var sum summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.Income != 100 || sum.Expense != 85 || sum.Balance != 15 {
		t.Fatalf("unexpected totals: %+v", sum)
	}
	if len(sum.Suggestions) != 3 || !strings.HasPrefix(sum.Suggestions[0], "Warning:") {
		t.Fatalf("high spending should prepend the warning: %v", sum.Suggestions)
	}
	if sum.GoalStatus != "No goal set." {
		t.Fatalf("goal status = %q, want no-goal sentinel", sum.GoalStatus)
	}
}

func TestMonthlySummaryPreservesGaps(t *testing.T) {
	s := newTestServer(t, nil)
	token := signupAndLogin(t, s)

	for _, body := range []map[string]any{
		{"type": "income", "description": "a", "amount": 10, "date": "2024-01-05"},
		{"type": "expense", "description": "b", "amount": 5, "date": "2024-03-10"},
	} {
		if rec := doJSON(t, s, http.MethodPost, "/api/transactions", token, body); rec.Code != http.StatusCreated {
			t.Fatalf("add = %d", rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/summary/monthly", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("monthly = %d", rec.Code)
	}
	var buckets []monthBucketJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &buckets); err != nil {
		t.Fatalf("decode buckets: %v", err)
	}
	if len(buckets) != 2 || buckets[0].Month != "2024-01" || buckets[1].Month != "2024-03" {
		t.Fatalf("empty months must not be filled in: %+v", buckets)
	}
}

func TestGoalEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := signupAndLogin(t, s)

	rec := doJSON(t, s, http.MethodPut, "/api/goal", token, map[string]any{"amount": 200})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set goal = %d: %s", rec.Code, rec.Body.String())
	}

	if rec := doJSON(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "income", "description": "Salary", "amount": 100, "date": "2024-01-05",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("add = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/goal", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get goal = %d", rec.Code)
	}
	var goal goalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &goal); err != nil {
		t.Fatalf("decode goal: %v", err)
	}
	if goal.Amount != 200 || goal.Progress != 50 {
		t.Fatalf("unexpected goal response: %+v", goal)
	}
	if goal.Status != "Saved ₹100.00 of ₹200.00" {
		t.Fatalf("goal status = %q", goal.Status)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/goal", token, map[string]any{"amount": "abc"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid goal = %d, want 422", rec.Code)
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := newTestServer(t, nil)
	token := signupAndLogin(t, s)

	if rec := doJSON(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "income", "description": "Salary", "amount": 100, "date": "2024-01-05",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("add = %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodPut, "/api/goal", token, map[string]any{"amount": 500}); rec.Code != http.StatusNoContent {
		t.Fatalf("set goal = %d", rec.Code)
	}

	if rec := doJSON(t, s, http.MethodPost, "/api/reset", token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("reset = %d", rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/transactions", token, nil)
	var list []transactionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("ledger should be empty after reset: %+v", list)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/goal", token, nil)
	var goal goalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &goal); err != nil {
		t.Fatalf("decode goal: %v", err)
	}
	if goal.Amount != 0 || goal.Status != "No goal set." {
		t.Fatalf("goal should be cleared after reset: %+v", goal)
	}
}

func TestThemeEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := signupAndLogin(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/theme", token, nil)
	var theme themeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &theme); err != nil {
		t.Fatalf("decode theme: %v", err)
	}
	if theme.Theme != "light" {
		t.Fatalf("default theme = %q, want light", theme.Theme)
	}

	if rec := doJSON(t, s, http.MethodPut, "/api/theme", token, map[string]string{"theme": "dark"}); rec.Code != http.StatusNoContent {
		t.Fatalf("set theme = %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodPut, "/api/theme", token, map[string]string{"theme": "sepia"}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid theme = %d, want 422", rec.Code)
	}
}

func TestChatAdvisor(t *testing.T) {
	s := newTestServer(t, nil)
	token := signupAndLogin(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/chat", token, map[string]string{"message": "How do I set a budget?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat = %d", rec.Code)
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	if resp.Reply != core.AdvisorReply("budget") {
		t.Fatalf("unexpected advisor reply: %q", resp.Reply)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestPaymentEndpoints(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_test1", "amount": 12999, "currency": "INR",
		})
	}))
	defer upstream.Close()

	client := payment.NewClient("key_test", "secret_test", upstream.URL, time.Second)
	s := newTestServer(t, client)
	token := signupAndLogin(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/create-order", token, map[string]any{
		"amount": 129.99, "description": "Premium plan",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create-order = %d: %s", rec.Code, rec.Body.String())
	}
	var order createOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.OrderID != "order_test1" || order.Currency != "INR" || order.KeyID != "key_test" {
		t.Fatalf("unexpected order: %+v", order)
	}

	// Omitted description falls back to the standard order label.
	rec = doJSON(t, s, http.MethodPost, "/api/create-order", token, map[string]any{"amount": 129.99})
	if rec.Code != http.StatusOK {
		t.Fatalf("create-order without description = %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.Description != "ExpenseTracker top-up" {
		t.Fatalf("default description = %q", order.Description)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/create-order", token, map[string]any{"amount": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid amount = %d, want 400", rec.Code)
	}

	// The checkout handler posts razorpay_* field names; metadata passes
	// through untouched.
	sig := payment.ComputeSignature("order_test1", "pay_9", "secret_test")
	rec = doJSON(t, s, http.MethodPost, "/api/verify-payment", token, map[string]any{
		"razorpay_order_id":   "order_test1",
		"razorpay_payment_id": "pay_9",
		"razorpay_signature":  sig,
		"metadata":            map[string]any{"plan": "premium"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify = %d: %s", rec.Code, rec.Body.String())
	}
	var verify verifyPaymentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &verify); err != nil {
		t.Fatalf("decode verify: %v", err)
	}
	if !verify.Success || verify.PaymentID != "pay_9" {
		t.Fatalf("unexpected verify response: %+v", verify)
	}
	var meta struct {
		Plan string `json:"plan"`
	}
	if err := json.Unmarshal(verify.Metadata, &meta); err != nil || meta.Plan != "premium" {
		t.Fatalf("metadata did not round-trip: %s (%v)", verify.Metadata, err)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/verify-payment", token, map[string]string{
		"razorpay_order_id": "order_test1", "razorpay_payment_id": "pay_9", "razorpay_signature": "tampered",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("tampered verify = %d, want 400", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &verify); err != nil {
		t.Fatalf("decode verify: %v", err)
	}
	if verify.Success || verify.Error != "Invalid signature" {
		t.Fatalf("unexpected failure response: %+v", verify)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/paytm/initiate", token, map[string]any{"amount": 10})
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("paytm = %d, want 501", rec.Code)
	}
}

func TestPaymentsUnconfigured(t *testing.T) {
	s := newTestServer(t, nil)
	token := signupAndLogin(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/create-order", token, map[string]any{"amount": 10})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("create-order without client = %d, want 503", rec.Code)
	}
}
