package handlers

import (
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"railzway-console/console-service/middleware"
	"railzway-console/shared/config"
	"railzway-console/shared/database/models"
	"railzway-console/shared/utils/id"
)

// OrganizationHandler handles the org directory and onboarding
type OrganizationHandler struct {
	db *gorm.DB
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(db *gorm.DB) *OrganizationHandler {
	return &OrganizationHandler{db: db}
}

var (
	slugifyRegex = regexp.MustCompile("[^a-z0-9]+")
	orgSlugRegex = regexp.MustCompile("^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$")
)

// slugify converts a display name to a URL slug
func slugify(s string) string {
	s = strings.ToLower(s)
	s = slugifyRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// normalizeOrgSlug validates a namespace, accepting either a bare subdomain
// or a full host under the configured root domain.
func normalizeOrgSlug(raw string, rootDomain string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", fmt.Errorf("organization namespace is required")
	}

	root := strings.Trim(strings.ToLower(strings.TrimSpace(rootDomain)), ".")
	if strings.Contains(value, ".") {
		if root == "" {
			return "", fmt.Errorf("namespace cannot include dots without root domain configured")
		}

		suffix := "." + root
		if !strings.HasSuffix(value, suffix) {
			return "", fmt.Errorf("namespace must end with %s", root)
		}

		prefix := strings.TrimSuffix(value, suffix)
		if strings.Contains(prefix, ".") {
			return "", fmt.Errorf("namespace must be a single subdomain")
		}
		value = prefix
	}

	if !orgSlugRegex.MatchString(value) {
		return "", fmt.Errorf("namespace must be 1-63 chars of lowercase letters, numbers, or hyphen (no leading/trailing hyphen)")
	}

	return value, nil
}

// buildLaunchURL derives the tenant login URL for a slug. Without a root
// domain configured (single-tenant dev setups) the static fallback is used.
func buildLaunchURL(cfg *config.Config, slug string) string {
	root := strings.TrimSpace(cfg.AppRootDomain)
	if root == "" || strings.TrimSpace(slug) == "" {
		return cfg.FallbackLaunchURL
	}
	scheme := strings.TrimSpace(cfg.AppRootScheme)
	if scheme == "" {
		if strings.EqualFold(cfg.Environment, "production") {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	host := fmt.Sprintf("%s.%s", slug, root)
	return fmt.Sprintf("%s://%s/login/railzway_com", scheme, host)
}

// tierForPlan maps a marketing plan label to a tier
func tierForPlan(planID string) string {
	switch strings.ToLower(planID) {
	case "free trial", "free-trial":
		return models.TierFreeTrial
	case "starter":
		return models.TierStarter
	case "pro", "production":
		return models.TierPro
	case "team", "performance":
		return models.TierTeam
	case "enterprise":
		return models.TierEnterprise
	default:
		return models.TierFreeTrial
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// GetUserOrganizations lists the caller's organizations
// @Summary List organizations
// @Description Returns the organizations owned by the authenticated user, newest first
// @Tags organizations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /user/organizations [get]
func (h *OrganizationHandler) GetUserOrganizations(c *gin.Context) {
	userID, ok := middleware.ResolveUserID(c)
	if !ok {
		return
	}

	var orgs []models.Organization
	if err := h.db.Where("owner_id = ?", userID).Order("created_at desc").Find(&orgs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user orgs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orgs})
}

// CheckOrgName checks namespace availability
// @Summary Check organization name
// @Description Reports whether a name or namespace is still available
// @Tags onboarding
// @Produce json
// @Param name query string false "Organization display name"
// @Param namespace query string false "Requested namespace"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /user/onboarding/check-org-name [get]
func (h *OrganizationHandler) CheckOrgName(c *gin.Context) {
	name := c.Query("name")
	namespace := c.Query("namespace")
	if namespace == "" {
		namespace = c.Query("slug")
	}

	if name == "" && namespace == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name or namespace parameter required"})
		return
	}

	var slug string
	if strings.TrimSpace(namespace) != "" {
		parsed, err := normalizeOrgSlug(namespace, config.GetConfig().AppRootDomain)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slug = parsed
	} else {
		slug = slugify(name)
		if slug == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization name"})
			return
		}
	}

	var count int64
	if err := h.db.Model(&models.Organization{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check organization name"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"available": count == 0,
		"name":      name,
		"namespace": namespace,
	})
}

// InitializeOrganizationRequest represents the onboarding submit payload
type InitializeOrganizationRequest struct {
	PlanID       string `json:"plan_id"`
	PriceID      string `json:"price_id"`
	OrgName      string `json:"org_name"`
	OrgSlug      string `json:"org_slug"`
	OrgNamespace string `json:"org_namespace"`
}

// InitializeOrganization creates the org, its instance record, and the
// deploy event in one transaction
// @Summary Initialize organization
// @Description Creates an organization with its instance and queues the first deployment
// @Tags onboarding
// @Accept json
// @Produce json
// @Param request body InitializeOrganizationRequest true "Onboarding payload"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /user/onboarding/initialize [post]
func (h *OrganizationHandler) InitializeOrganization(c *gin.Context) {
	userID, ok := middleware.ResolveUserID(c)
	if !ok {
		return
	}

	var req InitializeOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	// Older frontends send the price id in plan_id.
	priceID := req.PriceID
	if priceID == "" {
		priceID = req.PlanID
	}

	org, err := h.createOrganization(c, userID, req, priceID)
	if err != nil {
		log.Printf("❌ Organization initialization failed for user %d (%s) [%s]: %v",
			userID, req.OrgName, c.GetString("request_id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "organization_initializing",
		"data":   org,
	})
}

func (h *OrganizationHandler) createOrganization(c *gin.Context, userID int64, req InitializeOrganizationRequest, priceID string) (*models.Organization, error) {
	cfg := config.GetConfig()
	var org models.Organization

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, userID).Error; err != nil {
			return fmt.Errorf("user not found: %w", err)
		}

		if strings.TrimSpace(req.OrgName) == "" {
			return fmt.Errorf("organization name is required")
		}
		slug, err := normalizeOrgSlug(firstNonEmpty(req.OrgNamespace, req.OrgSlug), cfg.AppRootDomain)
		if err != nil {
			return err
		}

		if strings.TrimSpace(priceID) == "" {
			return fmt.Errorf("price_id is required")
		}

		now := time.Now()
		org = models.Organization{
			ID:        id.New(),
			OwnerID:   userID,
			Name:      req.OrgName,
			Slug:      slug,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&org).Error; err != nil {
			return fmt.Errorf("failed to create org: %w", err)
		}

		inst := models.Instance{
			ID:             id.New(),
			OrgID:          org.ID,
			Status:         models.StatusInit,
			JobID:          fmt.Sprintf("railzway-org-%d", org.ID),
			DesiredVersion: cfg.DefaultInstanceVersion,
			Tier:           tierForPlan(req.PlanID),
			PlanID:         req.PlanID,
			PriceID:        strings.TrimSpace(priceID),
			LaunchURL:      buildLaunchURL(cfg, slug),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(&inst).Error; err != nil {
			return fmt.Errorf("failed to create instance: %w", err)
		}

		// Durable side effect: the outbox processor picks this up after commit.
		event := models.OutboxEvent{
			ID:          id.New(),
			EventType:   models.EventInstanceDeploy,
			AggregateID: org.ID,
			Status:      models.OutboxPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}
	return &org, nil
}

// UserOwnsOrg verifies that the user owns the given organization
func (h *OrganizationHandler) UserOwnsOrg(userID, orgID int64) (bool, error) {
	var count int64
	if err := h.db.
		Model(&models.Organization{}).
		Where("id = ? AND owner_id = ?", orgID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to verify org ownership: %w", err)
	}
	return count > 0, nil
}

// ResolveOrgID reads org_id from the query and enforces ownership
func (h *OrganizationHandler) ResolveOrgID(c *gin.Context) (int64, bool) {
	userID, ok := middleware.ResolveUserID(c)
	if !ok {
		return 0, false
	}

	queryOrg := c.Query("org_id")
	if queryOrg == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "org_id is required"})
		return 0, false
	}

	parsed, err := strconv.ParseInt(queryOrg, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid org_id"})
		return 0, false
	}

	owns, err := h.UserOwnsOrg(userID, parsed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return 0, false
	}
	if !owns {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return 0, false
	}
	return parsed, true
}
