package services

import (
	"encoding/json"
	"strconv"
	"time"

	"railzway-console/shared/database/models"
)

// StatusPayload is the wire shape for an org's instance snapshot. The same
// encoding is served by the REST endpoint, the SSE stream, and the websocket
// feed so every consumer sees identical snapshots.
type StatusPayload struct {
	ID             int64     `json:"id,string"`
	OrgID          int64     `json:"org_id,string"`
	JobID          string    `json:"job_id"`
	DesiredVersion string    `json:"desired_version"`
	CurrentVersion string    `json:"current_version"`
	Status         string    `json:"status"`
	Tier           string    `json:"tier"`
	PlanID         string    `json:"plan_id"`
	PriceID        string    `json:"price_id"`
	LaunchURL      string    `json:"launch_url"`
	LastError      string    `json:"last_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewStatusPayload builds the snapshot for an instance
func NewStatusPayload(inst *models.Instance) *StatusPayload {
	if inst == nil {
		return nil
	}
	return &StatusPayload{
		ID:             inst.ID,
		OrgID:          inst.OrgID,
		JobID:          inst.JobID,
		DesiredVersion: inst.DesiredVersion,
		CurrentVersion: inst.CurrentVersion,
		Status:         inst.Status,
		Tier:           inst.Tier,
		PlanID:         inst.PlanID,
		PriceID:        inst.PriceID,
		LaunchURL:      inst.LaunchURL,
		LastError:      inst.LastError,
		CreatedAt:      inst.CreatedAt,
		UpdatedAt:      inst.UpdatedAt,
	}
}

// EncodeStatus serializes a snapshot, or the missing marker when inst is nil.
// IDs go out as strings everywhere, the missing marker included.
func EncodeStatus(orgID int64, inst *models.Instance) ([]byte, error) {
	if inst == nil {
		return json.Marshal(map[string]interface{}{
			"status": "missing",
			"org_id": strconv.FormatInt(orgID, 10),
		})
	}
	return json.Marshal(NewStatusPayload(inst))
}
