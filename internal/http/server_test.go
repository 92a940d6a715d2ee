package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	applog "conti/internal/log"
	"conti/internal/services"
	"conti/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "conti-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	repo, err := storage.NewSQLiteRepository(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := applog.New(applog.NewHandler("text", "error"), applog.ComponentHTTP)
	expenses := services.NewExpenseService(repo, nil, logger.Logger)
	balances := services.NewBalanceService(repo, logger.Logger)
	srv := NewServer(":0", repo, expenses, balances, logger)

	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("decode response %q: %v", data, err)
		}
	}
	return resp, decoded
}

func createUser(t *testing.T, base, name string) int64 {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, base+"/users", map[string]any{
		"name":  name,
		"email": name + "@example.com",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user %s: status %d, body %v", name, resp.StatusCode, body)
	}
	return int64(body["id"].(float64))
}

func createGroup(t *testing.T, base string, memberIDs []int64) int64 {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, base+"/groups", map[string]any{
		"name":      "trip",
		"memberIds": memberIDs,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create group: status %d, body %v", resp.StatusCode, body)
	}
	return int64(body["id"].(float64))
}

func TestCreateUserEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/users", map[string]any{
		"name":  "Alice",
		"email": "alice@example.com",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["name"] != "Alice" || body["id"].(float64) == 0 {
		t.Fatalf("unexpected body: %v", body)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id header")
	}

	// Missing name is a validation error.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/users", map[string]any{"email": "x@example.com"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", resp.StatusCode)
	}

	// Malformed JSON is a bad request.
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/users", bytes.NewReader([]byte("{broken")))
	raw, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", raw.StatusCode)
	}
}

func TestGetUserNotFound(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/users/999", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGroupLifecycle(t *testing.T) {
	ts := newTestServer(t)
	alice := createUser(t, ts.URL, "alice")
	bob := createUser(t, ts.URL, "bob")

	groupID := createGroup(t, ts.URL, []int64{alice})

	resp, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/groups/%d/members", ts.URL, groupID),
		map[string]any{"userIds": []int64{bob}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add members: status %d, body %v", resp.StatusCode, body)
	}
	if members := body["memberIds"].([]any); len(members) != 2 {
		t.Fatalf("expected 2 members, got %v", members)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/groups/999/members",
		map[string]any{"userIds": []int64{alice}})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown group, got %d", resp.StatusCode)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	ts := newTestServer(t)
	alice := createUser(t, ts.URL, "alice")
	bob := createUser(t, ts.URL, "bob")
	groupID := createGroup(t, ts.URL, []int64{alice, bob})

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			name: "percentages must sum to 100",
			body: map[string]any{
				"groupId": groupID, "payerId": alice, "amount": 100.0, "splitType": "PERCENTAGE",
				"splits": []map[string]any{
					{"userId": alice, "percentage": 20.0},
					{"userId": bob, "percentage": 30.0},
				},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "exact amounts must match total",
			body: map[string]any{
				"groupId": groupID, "payerId": alice, "amount": 100.0, "splitType": "EXACT",
				"splits": []map[string]any{
					{"userId": alice, "amount": 60.0},
					{"userId": bob, "amount": 60.0},
				},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown split type",
			body: map[string]any{
				"groupId": groupID, "payerId": alice, "amount": 100.0, "splitType": "RANDOM",
				"splits":  []map[string]any{{"userId": alice}},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown group",
			body: map[string]any{
				"groupId": 999, "payerId": alice, "amount": 100.0, "splitType": "EQUAL",
				"splits":  []map[string]any{{"userId": alice}},
			},
			want: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodPost, ts.URL+"/expenses", tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d, body %v", resp.StatusCode, tt.want, body)
			}
		})
	}
}

// Alice fronts 300.00 split equally among three, then Bob pays 100.00
// split exactly between Alice and himself. The settlement is two
// transfers toward Alice.
func TestExpenseAndBalanceFlow(t *testing.T) {
	ts := newTestServer(t)
	alice := createUser(t, ts.URL, "alice")
	bob := createUser(t, ts.URL, "bob")
	carol := createUser(t, ts.URL, "carol")
	groupID := createGroup(t, ts.URL, []int64{alice, bob, carol})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/expenses", map[string]any{
		"groupId": groupID, "payerId": alice, "amount": 300.0,
		"description": "hotel", "splitType": "EQUAL",
		"splits": []map[string]any{
			{"userId": alice}, {"userId": bob}, {"userId": carol},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create equal expense: status %d, body %v", resp.StatusCode, body)
	}
	if splits := body["splits"].([]any); len(splits) != 3 {
		t.Fatalf("expected 3 splits, got %v", splits)
	}

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/expenses", map[string]any{
		"groupId": groupID, "payerId": bob, "amount": 100.0, "splitType": "EXACT",
		"splits": []map[string]any{
			{"userId": alice, "amount": 50.0},
			{"userId": bob, "amount": 50.0},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create exact expense: status %d, body %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/groups/%d/balance", ts.URL, groupID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get balance: status %d, body %v", resp.StatusCode, body)
	}
	transfers := body["transfers"].([]any)
	if len(transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %v", transfers)
	}
	first := transfers[0].(map[string]any)
	second := transfers[1].(map[string]any)
	if int64(first["from"].(float64)) != carol || int64(first["to"].(float64)) != alice || first["amount"].(float64) != 100.0 {
		t.Fatalf("unexpected first transfer: %v", first)
	}
	if int64(second["from"].(float64)) != bob || int64(second["to"].(float64)) != alice || second["amount"].(float64) != 50.0 {
		t.Fatalf("unexpected second transfer: %v", second)
	}

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/groups/%d/expenses", ts.URL, groupID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list expenses: status %d, body %v", resp.StatusCode, body)
	}
	if expenses := body["expenses"].([]any); len(expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %v", expenses)
	}
}

func TestBalanceForEmptyGroup(t *testing.T) {
	ts := newTestServer(t)
	alice := createUser(t, ts.URL, "alice")
	groupID := createGroup(t, ts.URL, []int64{alice})

	resp, body := doJSON(t, http.MethodGet, fmt.Sprintf("%s/groups/%d/balance", ts.URL, groupID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if transfers := body["transfers"].([]any); len(transfers) != 0 {
		t.Fatalf("expected no transfers, got %v", transfers)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	createUser(t, ts.URL, "alice") // generate at least one observed request

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(data, []byte("conti_http_requests_total")) {
		t.Error("expected conti_http_requests_total in metrics output")
	}
}
