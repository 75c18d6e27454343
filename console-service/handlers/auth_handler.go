package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"railzway-console/shared/database/models"
	"railzway-console/shared/utils/auth"
	"railzway-console/shared/utils/id"
)

// AuthHandler handles login, callback, session and logout
type AuthHandler struct {
	db *gorm.DB
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{db: db}
}

// Login initiates the OAuth2 authorization code flow
// @Summary Redirect to the identity provider
// @Description Starts the OAuth2 code flow by redirecting to the provider's authorize endpoint
// @Tags auth
// @Success 302
// @Router /auth/login [get]
func (h *AuthHandler) Login(c *gin.Context) {
	c.Redirect(http.StatusFound, auth.LoginURL())
}

// Callback completes the OAuth2 flow and creates a session
// @Summary OAuth2 callback
// @Description Exchanges the authorization code for tokens, provisions the user and sets the session cookie
// @Tags auth
// @Param code query string true "Authorization code"
// @Success 302
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_code"})
		return
	}

	tokenResp, err := auth.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		log.Printf("❌ Token exchange failed [%s]: %v", c.GetString("request_id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_exchange_failed"})
		return
	}

	claims, err := auth.ResolveClaims(c.Request.Context(), tokenResp)
	if err != nil {
		log.Printf("❌ Claims resolution failed [%s]: %v", c.GetString("request_id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid_id_token"})
		return
	}

	user, err := h.ensureUser(claims)
	if err != nil {
		log.Printf("❌ User sync failed for %s: %v", claims.Sub, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_sync_user"})
		return
	}

	if err := auth.CreateSession(c.Writer, c.Request, user.ID); err != nil {
		log.Printf("❌ Session creation failed for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_create_session"})
		return
	}

	log.Printf("✅ User %d authenticated (%s)", user.ID, user.Email)
	c.Redirect(http.StatusFound, "/")
}

// Session reports whether the request carries a valid session
// @Summary Check session
// @Description Returns the authenticated state of the current session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	userID, ok := auth.UserIDFromRequest(c.Request)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false, "error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user_id": userID})
}

// Logout clears the session
// @Summary Log out
// @Description Expires the session cookie and the login flag cookie
// @Tags auth
// @Success 302
// @Router /auth/logout [get]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := auth.ClearSession(c.Writer, c.Request); err != nil {
		log.Printf("❌ Failed to clear session: %v", err)
	}
	c.Redirect(http.StatusFound, "/")
}

// ensureUser finds or creates the user record for the identity claims
// (just-in-time provisioning).
func (h *AuthHandler) ensureUser(claims *auth.IdentityClaims) (*models.User, error) {
	var user models.User
	err := h.db.Where("external_id = ?", claims.Sub).First(&user).Error
	if err == nil {
		h.backfillName(&user, claims.Name)
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	// Link by email when the identity is new but the address is known.
	err = h.db.Where("email = ?", claims.Email).First(&user).Error
	if err == nil {
		user.ExternalID = claims.Sub
		if err := h.db.Save(&user).Error; err != nil {
			return nil, err
		}
		h.backfillName(&user, claims.Name)
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	firstName, lastName := auth.SplitName(claims.Name)
	user = models.User{
		ID:         id.New(),
		Email:      strings.ToLower(strings.TrimSpace(claims.Email)),
		ExternalID: claims.Sub,
		FirstName:  firstName,
		LastName:   lastName,
	}
	if err := h.db.Create(&user).Error; err != nil {
		return nil, err
	}

	log.Printf("✅ User provisioned: %d (%s)", user.ID, user.Email)
	return &user, nil
}

func (h *AuthHandler) backfillName(user *models.User, displayName string) {
	if user.FirstName != "" || user.LastName != "" {
		return
	}
	firstName, lastName := auth.SplitName(displayName)
	if firstName == "" && lastName == "" {
		return
	}
	user.FirstName = firstName
	user.LastName = lastName
	if err := h.db.Save(user).Error; err != nil {
		log.Printf("⚠️ Failed to backfill name for user %d: %v", user.ID, err)
	}
}
