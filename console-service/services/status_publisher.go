package services

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"railzway-console/shared/clients"
	"railzway-console/shared/database/models"
	"railzway-console/shared/utils/cache"
)

// StatusPublisher polls the scheduler for instances in transitional states,
// persists resolved statuses, and pushes fresh snapshots to the stream hub.
type StatusPublisher struct {
	db          *gorm.DB
	provisioner *clients.ProvisionerClient
	hub         *StreamHub
	interval    time.Duration
}

// NewStatusPublisher creates a status publisher
func NewStatusPublisher(db *gorm.DB, provisioner *clients.ProvisionerClient, hub *StreamHub) *StatusPublisher {
	return &StatusPublisher{
		db:          db,
		provisioner: provisioner,
		hub:         hub,
		interval:    4 * time.Second,
	}
}

// Run polls until the context is cancelled
func (sp *StatusPublisher) Run(ctx context.Context) {
	log.Printf("📡 Status publisher started (interval: %v)", sp.interval)

	ticker := time.NewTicker(sp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("📡 Status publisher stopped")
			return
		case <-ticker.C:
			sp.tick(ctx)
		}
	}
}

func (sp *StatusPublisher) tick(ctx context.Context) {
	var pending []models.Instance
	err := sp.db.WithContext(ctx).
		Where("status IN ?", []string{models.StatusProvisioning, models.StatusUpgrading}).
		Find(&pending).Error
	if err != nil {
		log.Printf("❌ Status publisher query failed: %v", err)
		return
	}

	for i := range pending {
		sp.ResolveAndSave(ctx, &pending[i])
	}
}

// ResolveAndSave checks a transitional instance against the scheduler and,
// on a definitive answer, persists and publishes the new status.
func (sp *StatusPublisher) ResolveAndSave(ctx context.Context, inst *models.Instance) bool {
	next, ok := sp.resolveStatus(ctx, inst)
	if !ok || next == inst.Status {
		return false
	}

	switch next {
	case models.StatusActive:
		inst.Status = models.StatusActive
		if inst.CurrentVersion == "" {
			inst.CurrentVersion = inst.DesiredVersion
		}
		inst.LastError = ""
	case models.StatusProvisionFailed:
		inst.MarkProvisionFailed("scheduler reported failure")
	default:
		inst.Status = next
	}
	inst.UpdatedAt = time.Now().UTC()

	if err := sp.db.WithContext(ctx).Save(inst).Error; err != nil {
		log.Printf("❌ Failed to save instance %d state: %v", inst.ID, err)
		return false
	}

	sp.PublishSnapshot(inst.OrgID, inst)
	log.Printf("📡 Instance %d resolved to %s (org %d)", inst.ID, inst.Status, inst.OrgID)
	return true
}

// resolveStatus maps the scheduler's view onto an instance status.
// Running allocations only count once the tenant endpoint answers.
func (sp *StatusPublisher) resolveStatus(ctx context.Context, inst *models.Instance) (string, bool) {
	raw, err := sp.provisioner.GetInstanceStatus(ctx, inst.OrgID)
	if err != nil {
		return "", false
	}

	switch strings.ToLower(strings.TrimSpace(raw)) {
	case clients.JobStatusRunning:
		if instanceReachable(ctx, inst.LaunchURL) {
			return models.StatusActive, true
		}
		return "", false
	case clients.JobStatusFailed, "lost", "complete":
		return models.StatusProvisionFailed, true
	default:
		return "", false
	}
}

// PublishSnapshot refreshes the cache and fans the snapshot out
func (sp *StatusPublisher) PublishSnapshot(orgID int64, inst *models.Instance) {
	payload, err := EncodeStatus(orgID, inst)
	if err != nil {
		log.Printf("❌ Failed to encode snapshot for org %d: %v", orgID, err)
		return
	}

	if cm := cache.GetCacheManager(); cm != nil {
		if err := cm.SetStatusSnapshot(orgID, payload); err != nil {
			log.Printf("❌ Failed to cache snapshot for org %d: %v", orgID, err)
		}
	}

	sp.hub.Publish(orgID, payload)
}

func instanceReachable(ctx context.Context, launchURL string) bool {
	target := strings.TrimSpace(launchURL)
	if target == "" {
		return false
	}

	client := &http.Client{Timeout: 3 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}
