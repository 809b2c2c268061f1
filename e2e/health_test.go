package e2e

import (
	"net/http"
	"testing"
)

func TestHealth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/health", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["status"] != "ok" {
		t.Errorf("status = %v", result["status"])
	}
	if _, ok := result["services"].(map[string]interface{}); !ok {
		t.Error("expected per-service availability map")
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	ta := setupApp(t)

	// Health must stay reachable for probes without credentials.
	resp, err := doRequest(ta.app, http.MethodGet, "/health", "", map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
}
