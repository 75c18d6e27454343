package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"railzway-console/shared/config"
)

// Provisioner job statuses as reported by the scheduler.
const (
	JobStatusNotFound = "not_found"
	JobStatusPending  = "pending"
	JobStatusRunning  = "running"
	JobStatusFailed   = "failed"
	JobStatusStopped  = "stopped"
)

// ProvisionerClient handles communication with the workload scheduler
type ProvisionerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewProvisionerClient creates a new provisioner client
func NewProvisionerClient() *ProvisionerClient {
	cfg := config.GetConfig()
	return &ProvisionerClient{
		baseURL: strings.TrimRight(cfg.ProvisionerURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// JobName returns the scheduler job name for an org's instance
func JobName(orgID int64) string {
	return fmt.Sprintf("railzway-org-%d", orgID)
}

type deployJobRequest struct {
	JobID   string `json:"job_id"`
	OrgID   int64  `json:"org_id,string"`
	Version string `json:"version"`
	Tier    string `json:"tier"`
}

type jobStatusResponse struct {
	Status string `json:"status"`
}

// DeployInstance registers (or updates) the org's instance job
func (pc *ProvisionerClient) DeployInstance(ctx context.Context, orgID int64, version, tier string) error {
	payload := deployJobRequest{
		JobID:   JobName(orgID),
		OrgID:   orgID,
		Version: version,
		Tier:    tier,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal deploy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+"/v1/jobs", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provisioner request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("provisioner deploy failed with status %d: %s", resp.StatusCode, string(raw))
	}

	return nil
}

// StopInstance deregisters the org's instance job
func (pc *ProvisionerClient) StopInstance(ctx context.Context, orgID int64) error {
	target := fmt.Sprintf("%s/v1/job/%s", pc.baseURL, JobName(orgID))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provisioner request failed: %w", err)
	}
	defer resp.Body.Close()

	// Stopping an already-absent job is not an error.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("provisioner stop failed with status %d: %s", resp.StatusCode, string(raw))
	}

	return nil
}

// GetInstanceStatus fetches the scheduler's view of the org's instance job
func (pc *ProvisionerClient) GetInstanceStatus(ctx context.Context, orgID int64) (string, error) {
	target := fmt.Sprintf("%s/v1/job/%s/status", pc.baseURL, JobName(orgID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provisioner request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return JobStatusNotFound, nil
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("provisioner status failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var status jobStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("failed to decode status response: %w", err)
	}

	normalized := strings.ToLower(strings.TrimSpace(status.Status))
	if normalized == "" {
		normalized = JobStatusPending
	}
	return normalized, nil
}
