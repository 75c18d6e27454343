package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"railzway-console/console-service/middleware"
	"railzway-console/shared/database/models"
)

const maxNameLength = 100

// ProfileHandler handles the user profile endpoints
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// UserProfileResponse represents profile data for API responses
type UserProfileResponse struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UpdateUserProfileRequest represents the profile update payload
type UpdateUserProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// GetUserProfile returns the caller's profile
// @Summary Get profile
// @Description Returns the authenticated user's profile
// @Tags profile
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /user/profile [get]
func (h *ProfileHandler) GetUserProfile(c *gin.Context) {
	userID, ok := middleware.ResolveUserID(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_load_user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": UserProfileResponse{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}})
}

// UpdateUserProfile updates the caller's display name
// @Summary Update profile
// @Description Updates first and last name; both fields are written as sent, including empty values
// @Tags profile
// @Accept json
// @Produce json
// @Param request body UpdateUserProfileRequest true "Profile payload"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /user/profile [put]
func (h *ProfileHandler) UpdateUserProfile(c *gin.Context) {
	userID, ok := middleware.ResolveUserID(c)
	if !ok {
		return
	}

	var payload UpdateUserProfileRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	firstName := strings.TrimSpace(payload.FirstName)
	lastName := strings.TrimSpace(payload.LastName)

	if len(firstName) > maxNameLength || len(lastName) > maxNameLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name_too_long"})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_load_user"})
		return
	}

	user.FirstName = firstName
	user.LastName = lastName
	if err := h.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_update_profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": UserProfileResponse{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}})
}
