package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"railzway-console/shared/database/models"
	"railzway-console/shared/utils/id"
)

// AdminHandler handles operator-only endpoints
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// RolloutVersionRequest represents the rollout payload
type RolloutVersionRequest struct {
	Version string `json:"version" binding:"required"`
}

// RolloutVersion sets a new desired version fleet-wide and queues
// redeployments for every instance that is not stopped or terminated.
// @Summary Roll out a version
// @Description Updates the desired version of all instances and queues redeploy events
// @Tags admin
// @Accept json
// @Produce json
// @Param request body RolloutVersionRequest true "Rollout payload"
// @Security AdminToken
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /admin/rollout [post]
func (h *AdminHandler) RolloutVersion(c *gin.Context) {
	var req RolloutVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	version := strings.TrimSpace(req.Version)
	if version == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "version is required"})
		return
	}

	var instances []models.Instance
	err := h.db.WithContext(c.Request.Context()).
		Where("status NOT IN ?", []string{models.StatusStopped, models.StatusTerminated}).
		Find(&instances).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	queued := 0
	for i := range instances {
		inst := &instances[i]
		if inst.DesiredVersion == version {
			continue
		}

		err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			inst.DesiredVersion = version
			if err := tx.Save(inst).Error; err != nil {
				return err
			}

			event := models.OutboxEvent{
				ID:          id.New(),
				EventType:   models.EventInstanceDeploy,
				AggregateID: inst.OrgID,
				Status:      models.OutboxPending,
			}
			return tx.Create(&event).Error
		})
		if err != nil {
			log.Printf("❌ Rollout failed for instance %d: %v", inst.ID, err)
			continue
		}
		queued++
	}

	log.Printf("✅ Rollout to %s queued for %d instances", version, queued)
	c.JSON(http.StatusOK, gin.H{
		"status":  "rollout_queued",
		"version": version,
		"queued":  queued,
	})
}
