package plaid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roundup-pipeline-go/internal/models"
)

func newTestService(t *testing.T, baseUrl string) *Service {
	t.Helper()
	service, err := NewService(models.PlaidConfig{
		Environment: baseUrl,
		ClientId:    "client-1",
		Secret:      "secret-1",
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return service
}

func TestGetTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/connect/get" {
			t.Errorf("Expected path /connect/get, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Expected form content type, got %s", ct)
		}

		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm failed: %v", err)
		}
		if got := r.PostFormValue("client_id"); got != "client-1" {
			t.Errorf("Expected client_id client-1, got %s", got)
		}
		if got := r.PostFormValue("secret"); got != "secret-1" {
			t.Errorf("Expected secret secret-1, got %s", got)
		}
		if got := r.PostFormValue("access_token"); got != "token-1" {
			t.Errorf("Expected access_token token-1, got %s", got)
		}

		var options map[string]string
		if err := json.Unmarshal([]byte(r.PostFormValue("options")), &options); err != nil {
			t.Fatalf("Failed to parse options: %v", err)
		}
		if options["gte"] != "2026-08-01" {
			t.Errorf("Expected gte 2026-08-01, got %s", options["gte"])
		}
		if options["lte"] != "2026-08-24" {
			t.Errorf("Expected lte 2026-08-24, got %s", options["lte"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"transactions": [
				{"_id": "tx-1", "_account": "acct-1", "amount": 1.23, "date": "2026-08-20", "name": "Coffee", "pending": false},
				{"_id": "tx-2", "_account": "acct-1", "amount": 4.56, "date": "2026-08-21", "name": "Books", "pending": true}
			]
		}`))
	}))
	defer server.Close()

	service := newTestService(t, server.URL)
	transactions, err := service.GetTransactions(context.Background(), "token-1",
		models.DateRange{Gte: "2026-08-01", Lte: "2026-08-24"})
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}

	if len(transactions) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(transactions))
	}
	if transactions[0].Id != "tx-1" {
		t.Errorf("Expected tx-1, got %s", transactions[0].Id)
	}
	if transactions[0].Amount.String() != "1.23" {
		t.Errorf("Expected amount 1.23, got %s", transactions[0].Amount.String())
	}
	if !transactions[1].Pending {
		t.Error("Expected tx-2 to be pending")
	}
}

func TestGetTransactions_OmitsEmptyLte(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var options map[string]any
		if err := json.Unmarshal([]byte(r.PostFormValue("options")), &options); err != nil {
			t.Fatalf("Failed to parse options: %v", err)
		}
		if _, present := options["lte"]; present {
			t.Error("Expected lte to be omitted when empty")
		}
		_, _ = w.Write([]byte(`{"transactions": []}`))
	}))
	defer server.Close()

	service := newTestService(t, server.URL)
	transactions, err := service.GetTransactions(context.Background(), "token-1",
		models.DateRange{Gte: "2026-08-01"})
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if len(transactions) != 0 {
		t.Errorf("Expected no transactions, got %d", len(transactions))
	}
}

func TestGetTransactions_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code": 1205, "message": "invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	service := newTestService(t, server.URL)
	_, err := service.GetTransactions(context.Background(), "token-1", models.DateRange{Gte: "2026-08-01"})
	if err == nil {
		t.Fatal("Expected error for non-200 response, got nil")
	}
}

func TestNewService_MissingCredentials(t *testing.T) {
	_, err := NewService(models.PlaidConfig{Environment: "tartan"})
	if err == nil {
		t.Fatal("Expected error for missing credentials, got nil")
	}
}

func TestResolveBaseUrl(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"tartan", "https://tartan.plaid.com"},
		{"api", "https://api.plaid.com"},
		{"", "https://tartan.plaid.com"},
		{"http://localhost:8000", "http://localhost:8000"},
		{"https://example.com/", "https://example.com"},
	}

	for _, tc := range cases {
		if got := resolveBaseUrl(tc.input); got != tc.expected {
			t.Errorf("resolveBaseUrl(%q): expected %s, got %s", tc.input, tc.expected, got)
		}
	}
}
