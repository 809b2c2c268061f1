package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/reelcraft/api/internal/config"
)

// QuotaChecker asks an external collaborator whether a user may grow their
// stored footprint. Quota accounting itself lives outside this service.
type QuotaChecker interface {
	CheckProjected(ctx context.Context, ownerID string, projectedBytes int64) (bool, error)
}

// QuotaClient implements QuotaChecker against the billing/quota microservice.
type QuotaClient struct {
	httpClient *http.Client
	baseURL    string
}

type quotaCheckRequest struct {
	OwnerID        string `json:"owner_id"`
	ProjectedBytes int64  `json:"projected_bytes"`
}

type quotaCheckResponse struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	UsedBytes int64  `json:"used_bytes"`
}

// NewQuotaClient creates a quota client. An empty base URL leaves the client
// unconfigured; unconfigured clients allow everything.
func NewQuotaClient(cfg *config.QuotaConfig) *QuotaClient {
	return &QuotaClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// IsConfigured returns true if a quota service URL is set.
func (c *QuotaClient) IsConfigured() bool {
	return c.baseURL != ""
}

// CheckProjected returns whether the owner's projected usage after a render
// completes is within quota.
func (c *QuotaClient) CheckProjected(ctx context.Context, ownerID string, projectedBytes int64) (bool, error) {
	if !c.IsConfigured() {
		return true, nil
	}

	body, err := json.Marshal(quotaCheckRequest{
		OwnerID:        ownerID,
		ProjectedBytes: projectedBytes,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal quota request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/quota/check", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create quota request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("quota service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("quota service returned status %d", resp.StatusCode)
	}

	var result quotaCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode quota response: %w", err)
	}

	return result.Allowed, nil
}
