package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DRAJ6/replicactl/pkg/autoscaler"
	"github.com/DRAJ6/replicactl/pkg/journal"
	"github.com/DRAJ6/replicactl/pkg/scaling"
)

func TestNewAutoscalerClient(t *testing.T) {
	client := NewAutoscalerClient("http://localhost:8080")
	if client == nil {
		t.Fatal("NewAutoscalerClient returned nil")
	}
	if client.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:8080")
	}
	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", client.httpClient.Timeout)
	}
}

func TestNewAutoscalerClientWithTimeout(t *testing.T) {
	timeout := 10 * time.Second
	client := NewAutoscalerClientWithTimeout("http://localhost:8080", timeout)
	if client.httpClient.Timeout != timeout {
		t.Errorf("timeout = %v, want %v", client.httpClient.Timeout, timeout)
	}
}

func TestAutoscalerClient_GetTargets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/targets" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		resp := targetsResponse{
			Targets: []autoscaler.Status{
				{
					Target:  "default/api",
					Phase:   autoscaler.PhaseIdle,
					Current: 4,
					LastDecision: &scaling.Decision{
						Desired: 4,
						Reason:  scaling.ReasonNoChange,
					},
					LastTick: time.Now(),
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewAutoscalerClient(server.URL)
	targets, err := client.GetTargets(context.Background())
	if err != nil {
		t.Fatalf("GetTargets() error = %v", err)
	}

	if len(targets) != 1 {
		t.Fatalf("len(targets) = %d, want 1", len(targets))
	}
	if targets[0].Target != "default/api" {
		t.Errorf("Target = %q, want %q", targets[0].Target, "default/api")
	}
	if targets[0].Current != 4 {
		t.Errorf("Current = %d, want 4", targets[0].Current)
	}
	if targets[0].LastDecision == nil {
		t.Fatal("LastDecision is nil")
	}
	if targets[0].LastDecision.Reason != scaling.ReasonNoChange {
		t.Errorf("Reason = %q, want %q", targets[0].LastDecision.Reason, scaling.ReasonNoChange)
	}
}

func TestAutoscalerClient_GetTargets_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewAutoscalerClient(server.URL)
	if _, err := client.GetTargets(context.Background()); err == nil {
		t.Fatal("Expected error for server error")
	}
}

func TestAutoscalerClient_GetTargets_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte("invalid json")); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewAutoscalerClient(server.URL)
	if _, err := client.GetTargets(context.Background()); err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
}

func TestAutoscalerClient_GetDecisions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/decisions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("target") != "default/api" {
			t.Errorf("unexpected target: %s", r.URL.Query().Get("target"))
		}
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("unexpected limit: %s", r.URL.Query().Get("limit"))
		}

		resp := decisionsResponse{
			Target: "default/api",
			Decisions: []journal.Record{
				{
					ID:          "dec-1",
					Target:      "default/api",
					Previous:    3,
					Desired:     6,
					Reason:      scaling.ReasonScaleUp,
					Value:       90,
					TargetValue: 50,
					Timestamp:   time.Now(),
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewAutoscalerClient(server.URL)
	decisions, err := client.GetDecisions(context.Background(), "default/api", 5)
	if err != nil {
		t.Fatalf("GetDecisions() error = %v", err)
	}

	if len(decisions) != 1 {
		t.Fatalf("len(decisions) = %d, want 1", len(decisions))
	}
	if decisions[0].Previous != 3 {
		t.Errorf("Previous = %d, want 3", decisions[0].Previous)
	}
	if decisions[0].Desired != 6 {
		t.Errorf("Desired = %d, want 6", decisions[0].Desired)
	}
	if decisions[0].Reason != scaling.ReasonScaleUp {
		t.Errorf("Reason = %q, want %q", decisions[0].Reason, scaling.ReasonScaleUp)
	}
}

func TestAutoscalerClient_GetDecisions_DefaultLimit(t *testing.T) {
	var capturedURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedURL = r.URL.String()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(decisionsResponse{Target: "default/api"}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewAutoscalerClient(server.URL)
	if _, err := client.GetDecisions(context.Background(), "default/api", 0); err != nil {
		t.Errorf("GetDecisions() error = %v", err)
	}

	expectedPath := "/v1/decisions?target=default%2Fapi"
	if capturedURL != expectedPath {
		t.Errorf("URL = %q, want %q", capturedURL, expectedPath)
	}
}

func TestAutoscalerClient_GetDecisions_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		if err := json.NewEncoder(w).Encode(map[string]string{"error": "target not registered"}); err != nil {
			t.Errorf("failed to encode error response: %v", err)
		}
	}))
	defer server.Close()

	client := NewAutoscalerClient(server.URL)
	if _, err := client.GetDecisions(context.Background(), "default/nonexistent", 0); err == nil {
		t.Fatal("Expected error for unregistered target")
	}
}

func TestAutoscalerClient_GetDecisions_EmptyTarget(t *testing.T) {
	client := NewAutoscalerClient("http://localhost:8080")
	if _, err := client.GetDecisions(context.Background(), "", 0); err == nil {
		t.Fatal("Expected error for empty target")
	}
}

func TestAutoscalerClient_GetDecisions_InvalidURL(t *testing.T) {
	client := NewAutoscalerClient("://invalid-url")
	if _, err := client.GetDecisions(context.Background(), "default/api", 0); err == nil {
		t.Fatal("Expected error for invalid URL")
	}
}

func TestAutoscalerClient_GetDecisions_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		if err := json.NewEncoder(w).Encode(decisionsResponse{}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewAutoscalerClient(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.GetDecisions(ctx, "default/api", 0); err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestAutoscalerClient_GetDecisions_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		if err := json.NewEncoder(w).Encode(decisionsResponse{}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewAutoscalerClientWithTimeout(server.URL, 10*time.Millisecond)

	if _, err := client.GetDecisions(context.Background(), "default/api", 0); err == nil {
		t.Fatal("Expected timeout error")
	}
}
