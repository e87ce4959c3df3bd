package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"admin-mirror/internal/config"
	"admin-mirror/internal/mirror"
	"admin-mirror/internal/models"
	"admin-mirror/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noopMerger struct{}

func (noopMerger) MergeAccounts(ctx context.Context, keepID, mergeID, reason string, allowAdmin, creatingDuplicates bool) error {
	return nil
}

func newTestServer(t *testing.T) (*Server, *store.MemorySource[*models.Account], *mirror.AdminService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accounts := store.NewMemoryAccounts()
	svc := mirror.New(logger, mirror.Stores{
		Accounts: accounts,
		Origins:  store.NewMemoryOrigins(),
		Auths:    store.NewMemoryAuths(),
		Ponies:   store.NewMemoryPonies(),
		Events:   store.NewMemoryEvents(),
	}, noopMerger{}, mirror.Config{PollInterval: time.Hour})
	t.Cleanup(svc.Stop)

	sweep := mirror.NewSweepJob(logger, svc, time.Hour)
	cfg := config.Config{
		AdminSecretKey: "test-admin-key",
		CORSOrigins:    []string{"*"},
	}
	return NewServer(logger, svc, sweep, nil, cfg), accounts, svc
}

func request(s *Server, method, path, adminKey string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	if adminKey != "" {
		req.Header.Set("X-Admin-Key", adminKey)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func loadAccount(t *testing.T, accounts *store.MemorySource[*models.Account], svc *mirror.AdminService, a *models.Account) {
	t.Helper()
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}
	accounts.Put(a)
	if err := svc.Accounts().Update(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestRateLimitFallback(t *testing.T) {
	// no redis wired: the in-process limiter keyed by peer address applies
	s, _, _ := newTestServer(t)

	limited := 0
	for i := 0; i < 40; i++ {
		req, _ := http.NewRequest("GET", "/healthz", nil)
		req.RemoteAddr = "198.51.100.7:40000"
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		if i == 0 && w.Code != http.StatusOK {
			t.Fatalf("first request must pass, got %d", w.Code)
		}
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited == 0 {
		t.Error("expected requests past the burst to be limited")
	}
}

func TestGetAccount(t *testing.T) {
	s, accounts, svc := newTestServer(t)
	loadAccount(t, accounts, svc, &models.Account{ID: "a1", Name: "First"})

	w := request(s, "GET", "/api/v1/accounts/a1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var info models.AccountInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.ID != "a1" || info.Name != "First" {
		t.Errorf("unexpected body: %+v", info)
	}

	w = request(s, "GET", "/api/v1/accounts/missing", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown account, got %d", w.Code)
	}
}

func TestLookupByEmailName(t *testing.T) {
	s, accounts, svc := newTestServer(t)
	loadAccount(t, accounts, svc, &models.Account{ID: "a1", Emails: []string{"Alpha@example.com"}})

	w := request(s, "GET", "/api/v1/accounts/by-email/alpha", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Accounts []*models.AccountInfo `json:"accounts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Accounts) != 1 || body.Accounts[0].ID != "a1" {
		t.Errorf("unexpected accounts: %v", body.Accounts)
	}

	// unknown keys return an empty list, not 404
	w = request(s, "GET", "/api/v1/accounts/by-email/nobody", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for unknown key, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := request(s, "GET", "/api/v1/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf("unexpected status: %v", body["status"])
	}
	if body["redis"] != "disabled" {
		t.Errorf("expected redis disabled without a client, got %v", body["redis"])
	}
}

func TestAdminAuth(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		name     string
		key      string
		expected int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "wrong", http.StatusForbidden},
		{"valid key", "test-admin-key", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(s, "POST", "/api/v1/admin/report/a1", tt.key, "")
			if w.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestAdminAuth_BearerToken(t *testing.T) {
	s, _, _ := newTestServer(t)

	req, _ := http.NewRequest("POST", "/api/v1/admin/report/a1", nil)
	req.Header.Set("Authorization", "Bearer test-admin-key")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected bearer token accepted, got %d", w.Code)
	}
}

func TestRemovedItem(t *testing.T) {
	s, accounts, svc := newTestServer(t)
	loadAccount(t, accounts, svc, &models.Account{ID: "a1"})

	w := request(s, "POST", "/api/v1/admin/removed/accounts/a1", "test-admin-key", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if _, ok := svc.GetAccountInfo("a1"); ok {
		t.Error("expected account removed from the mirror")
	}

	w = request(s, "POST", "/api/v1/admin/removed/nonsense/a1", "test-admin-key", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown kind, got %d", w.Code)
	}
}

func TestTrackSpam(t *testing.T) {
	s, _, svc := newTestServer(t)

	w := request(s, "POST", "/api/v1/admin/spam/a1", "test-admin-key", `{"message":"buy stuff"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 {
		t.Errorf("expected count 1, got %d", body.Count)
	}
	if svc.SpamCounter("a1").Count != 1 {
		t.Error("expected counter tracked on the service")
	}

	w = request(s, "POST", "/api/v1/admin/spam/a1", "test-admin-key", "not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid body, got %d", w.Code)
	}
}

func TestManualSweep(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := request(s, "POST", "/api/v1/admin/sweep", "test-admin-key", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Merged bool   `json:"merged"`
		Keep   string `json:"keep"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Merged || body.Keep != "" {
		t.Errorf("expected empty sweep result, got %+v", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _, _ := newTestServer(t)

	req, _ := http.NewRequest("OPTIONS", "/api/v1/accounts/a1", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://anywhere.example" {
		t.Errorf("expected wildcard origin echoed, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}
