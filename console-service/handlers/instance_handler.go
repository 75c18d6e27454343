package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"railzway-console/console-service/services"
	"railzway-console/shared/clients"
	"railzway-console/shared/config"
	"railzway-console/shared/database/models"
	"railzway-console/shared/utils/cache"
	"railzway-console/shared/utils/id"
)

// InstanceHandler handles instance status, streaming and lifecycle actions
type InstanceHandler struct {
	db          *gorm.DB
	orgs        *OrganizationHandler
	provisioner *clients.ProvisionerClient
	publisher   *services.StatusPublisher
	hub         *services.StreamHub
}

// NewInstanceHandler creates a new instance handler
func NewInstanceHandler(db *gorm.DB, orgs *OrganizationHandler, provisioner *clients.ProvisionerClient, publisher *services.StatusPublisher, hub *services.StreamHub) *InstanceHandler {
	return &InstanceHandler{
		db:          db,
		orgs:        orgs,
		provisioner: provisioner,
		publisher:   publisher,
		hub:         hub,
	}
}

// fetchInstance loads the org's instance, nil when not deployed
func (h *InstanceHandler) fetchInstance(c *gin.Context, orgID int64) (*models.Instance, error) {
	var inst models.Instance
	err := h.db.WithContext(c.Request.Context()).Where("org_id = ?", orgID).First(&inst).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// GetInstanceStatus returns the current snapshot for an org's instance
// @Summary Get instance status
// @Description Returns the instance snapshot for the given organization; 404 with status not_deployed when none exists
// @Tags instance
// @Produce json
// @Param org_id query string true "Organization ID"
// @Success 200 {object} services.StatusPayload
// @Failure 404 {object} map[string]interface{}
// @Router /user/instance [get]
func (h *InstanceHandler) GetInstanceStatus(c *gin.Context) {
	orgID, ok := h.orgs.ResolveOrgID(c)
	if !ok {
		return
	}

	// Serve the cached snapshot when the publisher refreshed it recently.
	if cm := cache.GetCacheManager(); cm != nil {
		if payload, hit := cm.GetStatusSnapshot(orgID); hit {
			c.Data(http.StatusOK, "application/json", payload)
			return
		}
	}

	inst, err := h.fetchInstance(c, orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if inst == nil {
		// 404 means "Not Deployed" or "Org doesn't exist"
		c.JSON(http.StatusNotFound, gin.H{"status": "not_deployed", "org_id": orgID})
		return
	}

	if inst.Status == models.StatusProvisioning || inst.Status == models.StatusUpgrading {
		h.publisher.ResolveAndSave(c.Request.Context(), inst)
	}

	payload, err := services.EncodeStatus(orgID, inst)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode status"})
		return
	}
	if cm := cache.GetCacheManager(); cm != nil {
		if err := cm.SetStatusSnapshot(orgID, payload); err != nil {
			log.Printf("⚠️ Failed to cache snapshot for org %d: %v", orgID, err)
		}
	}

	c.Data(http.StatusOK, "application/json", payload)
}

// StreamInstanceStatus streams snapshots over SSE
// @Summary Stream instance status
// @Description Server-sent events stream of instance snapshots; duplicate snapshots are suppressed
// @Tags instance
// @Produce text/event-stream
// @Param org_id query string true "Organization ID"
// @Success 200
// @Router /user/instance/stream [get]
func (h *InstanceHandler) StreamInstanceStatus(c *gin.Context) {
	orgID, ok := h.orgs.ResolveOrgID(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	headers := c.Writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")

	c.Status(http.StatusOK)
	if _, err := fmt.Fprint(c.Writer, "retry: 3000\n\n"); err == nil {
		flusher.Flush()
	}

	ctx := c.Request.Context()
	updates := h.hub.Subscribe(orgID)
	defer h.hub.Unsubscribe(orgID, updates)

	pollTicker := time.NewTicker(4 * time.Second)
	heartbeatTicker := time.NewTicker(20 * time.Second)
	defer pollTicker.Stop()
	defer heartbeatTicker.Stop()

	var lastPayload string
	send := func(payload []byte) bool {
		next := string(payload)
		if next == lastPayload {
			return true
		}
		lastPayload = next

		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", next); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	poll := func() bool {
		inst, err := h.fetchInstance(c, orgID)
		if err != nil {
			log.Printf("⚠️ Stream poll failed for org %d: %v", orgID, err)
			return true
		}
		payload, err := services.EncodeStatus(orgID, inst)
		if err != nil {
			log.Printf("⚠️ Stream encode failed for org %d: %v", orgID, err)
			return true
		}
		return send(payload)
	}

	if !poll() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case payload, open := <-updates:
			if !open {
				return
			}
			if !send(payload) {
				return
			}
		case <-pollTicker.C:
			if !poll() {
				return
			}
		case <-heartbeatTicker.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// StreamInstanceStatusWS streams snapshots over a websocket
// @Summary Stream instance status over websocket
// @Description Websocket feed of instance snapshots for the organization
// @Tags instance
// @Param org_id query string true "Organization ID"
// @Success 101
// @Router /user/instance/ws [get]
func (h *InstanceHandler) StreamInstanceStatusWS(c *gin.Context) {
	orgID, ok := h.orgs.ResolveOrgID(c)
	if !ok {
		return
	}

	h.hub.HandleWebSocketConnection(c, orgID)
}

// createInstance builds a fresh instance record for an org that lost (or
// never had) one, deriving the launch URL from the org slug.
func (h *InstanceHandler) createInstance(c *gin.Context, orgID int64, version string) (*models.Instance, error) {
	cfg := config.GetConfig()

	var org models.Organization
	if err := h.db.WithContext(c.Request.Context()).First(&org, orgID).Error; err != nil {
		return nil, fmt.Errorf("organization not found: %w", err)
	}

	if version == "" {
		version = cfg.DefaultInstanceVersion
	}

	inst := models.NewInstance(orgID, models.TierFreeTrial, version)
	inst.ID = id.New()
	inst.JobID = fmt.Sprintf("railzway-org-%d", orgID)
	inst.LaunchURL = buildLaunchURL(cfg, org.Slug)

	if err := h.db.WithContext(c.Request.Context()).Create(inst).Error; err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}
	return inst, nil
}

// publishAfterAction invalidates the cached snapshot and pushes the fresh
// one to every consumer, so no reader sees the pre-action state.
func (h *InstanceHandler) publishAfterAction(orgID int64, inst *models.Instance) {
	if cm := cache.GetCacheManager(); cm != nil {
		if err := cm.InvalidateStatusSnapshot(orgID); err != nil {
			log.Printf("⚠️ Failed to invalidate snapshot for org %d: %v", orgID, err)
		}
	}
	h.hub.ResetLastPayload(orgID)
	h.publisher.PublishSnapshot(orgID, inst)
}

// DeployInstance triggers a deployment
// @Summary Deploy instance
// @Description Registers the instance job with the scheduler and moves the instance to provisioning
// @Tags instance
// @Accept json
// @Produce json
// @Param org_id query string true "Organization ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /user/instance/deploy [post]
func (h *InstanceHandler) DeployInstance(c *gin.Context) {
	// The version override is optional; an empty body means "deploy as is".
	var req struct {
		Version string `json:"version"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}

	orgID, ok := h.orgs.ResolveOrgID(c)
	if !ok {
		return
	}

	inst, err := h.fetchInstance(c, orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if inst == nil {
		// Re-provisioning an org without an instance record.
		inst, err = h.createInstance(c, orgID, req.Version)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if inst.Status == models.StatusProvisioning {
		c.JSON(http.StatusConflict, gin.H{"error": "deployment already in progress"})
		return
	}

	if req.Version != "" {
		inst.DesiredVersion = req.Version
	}

	if err := h.provisioner.DeployInstance(c.Request.Context(), orgID, inst.DesiredVersion, inst.Tier); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	inst.MarkProvisioning()
	if err := h.db.Save(inst).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.publishAfterAction(orgID, inst)
	c.JSON(http.StatusOK, gin.H{"status": "deployment_triggered"})
}

// StartInstance starts a stopped instance
// @Summary Start instance
// @Description Re-registers the job for a stopped instance
// @Tags instance
// @Produce json
// @Param org_id query string true "Organization ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /user/instance/start [post]
func (h *InstanceHandler) StartInstance(c *gin.Context) {
	orgID, ok := h.orgs.ResolveOrgID(c)
	if !ok {
		return
	}

	inst, err := h.fetchInstance(c, orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if inst == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
		return
	}
	if !inst.CanStart() {
		c.JSON(http.StatusConflict, gin.H{"error": "instance is not stopped"})
		return
	}

	if err := h.provisioner.DeployInstance(c.Request.Context(), orgID, inst.DesiredVersion, inst.Tier); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to start instance: %v", err)})
		return
	}

	inst.MarkRunning(inst.CurrentVersion)
	if err := h.db.Save(inst).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.publishAfterAction(orgID, inst)
	c.JSON(http.StatusOK, gin.H{"status": "start_triggered"})
}

// StopInstance stops a running instance
// @Summary Stop instance
// @Description Deregisters the instance job and marks the instance stopped
// @Tags instance
// @Produce json
// @Param org_id query string true "Organization ID"
// @Success 200 {object} map[string]interface{}
// @Router /user/instance/stop [post]
func (h *InstanceHandler) StopInstance(c *gin.Context) {
	h.stopInstance(c, "stop_triggered")
}

// PauseInstance pauses a running instance. Pause and stop are the same
// operation on the scheduler side.
// @Summary Pause instance
// @Description Deregisters the instance job and marks the instance stopped
// @Tags instance
// @Produce json
// @Param org_id query string true "Organization ID"
// @Success 200 {object} map[string]interface{}
// @Router /user/instance/pause [post]
func (h *InstanceHandler) PauseInstance(c *gin.Context) {
	h.stopInstance(c, "pause_triggered")
}

func (h *InstanceHandler) stopInstance(c *gin.Context, status string) {
	orgID, ok := h.orgs.ResolveOrgID(c)
	if !ok {
		return
	}

	inst, err := h.fetchInstance(c, orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if inst == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
		return
	}

	if err := h.provisioner.StopInstance(c.Request.Context(), orgID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to stop instance: %v", err)})
		return
	}

	inst.MarkStopped()
	if err := h.db.Save(inst).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.publishAfterAction(orgID, inst)
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// UpgradeInstance upgrades the instance tier
// @Summary Upgrade instance
// @Description Moves the instance to a higher tier and redeploys it
// @Tags instance
// @Accept json
// @Produce json
// @Param org_id query string true "Organization ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /user/instance/upgrade [post]
func (h *InstanceHandler) UpgradeInstance(c *gin.Context) {
	var req struct {
		Tier string `json:"tier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	orgID, ok := h.orgs.ResolveOrgID(c)
	if !ok {
		return
	}

	inst, err := h.fetchInstance(c, orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if inst == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
		return
	}
	if !inst.CanUpgrade(req.Tier) {
		c.JSON(http.StatusConflict, gin.H{"error": "invalid tier upgrade"})
		return
	}

	inst.MarkUpgrading(req.Tier)
	if err := h.provisioner.DeployInstance(c.Request.Context(), orgID, inst.DesiredVersion, inst.Tier); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.Save(inst).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.publishAfterAction(orgID, inst)
	c.JSON(http.StatusOK, gin.H{"status": "upgrade_initiated"})
}

// DowngradeInstance schedules a downgrade at period end
// @Summary Downgrade instance
// @Description Schedules a downgrade to a lower tier at the end of the billing period
// @Tags instance
// @Accept json
// @Produce json
// @Param org_id query string true "Organization ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /user/instance/downgrade [post]
func (h *InstanceHandler) DowngradeInstance(c *gin.Context) {
	var req struct {
		Tier string `json:"tier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	orgID, ok := h.orgs.ResolveOrgID(c)
	if !ok {
		return
	}

	inst, err := h.fetchInstance(c, orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if inst == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
		return
	}
	if !inst.CanDowngrade(req.Tier) {
		c.JSON(http.StatusConflict, gin.H{"error": "invalid tier downgrade"})
		return
	}

	inst.ScheduleDowngrade()
	if err := h.db.Save(inst).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.publishAfterAction(orgID, inst)
	c.JSON(http.StatusOK, gin.H{"status": "downgrade_scheduled"})
}
