package signer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roundup-pipeline-go/internal/models"
)

func TestTrigger(t *testing.T) {
	var gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service, err := NewService(models.SignerConfig{Url: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if err := service.Trigger(context.Background()); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if gotPath != "/aws/sqs" {
		t.Errorf("Expected path /aws/sqs, got %s", gotPath)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("Expected POST, got %s", gotMethod)
	}
}

func TestTrigger_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	service, err := NewService(models.SignerConfig{Url: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if err := service.Trigger(context.Background()); err == nil {
		t.Fatal("Expected error for 500 response, got nil")
	}
}

func TestNewService_MissingUrl(t *testing.T) {
	if _, err := NewService(models.SignerConfig{}); err == nil {
		t.Fatal("Expected error for missing signer URL, got nil")
	}
}
