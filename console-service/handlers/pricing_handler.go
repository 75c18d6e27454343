package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"railzway-console/shared/clients"
	"railzway-console/shared/utils/cache"
)

// PricingHandler proxies the billing catalog
type PricingHandler struct {
	billing *clients.BillingClient
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(billing *clients.BillingClient) *PricingHandler {
	return &PricingHandler{billing: billing}
}

type pricingCatalog struct {
	Prices  []clients.Price       `json:"prices"`
	Amounts []clients.PriceAmount `json:"amounts"`
}

// ListPrices lists billing prices
// @Summary List prices
// @Description Returns the billing plan prices, optionally filtered by product or code
// @Tags pricing
// @Produce json
// @Param product_id query string false "Filter by product ID"
// @Param code query string false "Filter by price code"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/prices [get]
func (h *PricingHandler) ListPrices(c *gin.Context) {
	productID := c.Query("product_id")
	code := c.Query("code")

	var prices []clients.Price
	if code != "" {
		// Filtered lookups always go to the billing API.
		direct, err := h.billing.ListPrices(c.Request.Context(), code)
		if err != nil {
			log.Printf("❌ Failed to list prices: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch prices"})
			return
		}
		prices = direct
	} else {
		catalog, err := h.catalog(c)
		if err != nil {
			log.Printf("❌ Failed to list prices: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch prices"})
			return
		}
		prices = catalog.Prices
	}

	if productID != "" {
		filtered := make([]clients.Price, 0, len(prices))
		for _, price := range prices {
			if price.ProductID == productID {
				filtered = append(filtered, price)
			}
		}
		prices = filtered
	}
	c.JSON(http.StatusOK, gin.H{"data": prices})
}

// ListPriceAmounts lists billing price amounts
// @Summary List price amounts
// @Description Returns the amounts attached to prices, optionally filtered by price ID
// @Tags pricing
// @Produce json
// @Param price_id query string false "Filter by price ID"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/price_amounts [get]
func (h *PricingHandler) ListPriceAmounts(c *gin.Context) {
	priceID := c.Query("price_id")

	if priceID != "" {
		amounts, err := h.billing.ListPriceAmounts(c.Request.Context(), priceID)
		if err != nil {
			log.Printf("❌ Failed to list price amounts: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch price amounts"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": amounts})
		return
	}

	catalog, err := h.catalog(c)
	if err != nil {
		log.Printf("❌ Failed to list price amounts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch price amounts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": catalog.Amounts})
}

// catalog serves the unfiltered prices+amounts catalog from redis when fresh,
// fetching and caching both halves together on a miss.
func (h *PricingHandler) catalog(c *gin.Context) (*pricingCatalog, error) {
	cm := cache.GetCacheManager()
	if cm != nil {
		var cached pricingCatalog
		if cm.GetPricingCatalog(&cached) {
			return &cached, nil
		}
	}

	prices, err := h.billing.ListPrices(c.Request.Context(), "")
	if err != nil {
		return nil, err
	}
	amounts, err := h.billing.ListPriceAmounts(c.Request.Context(), "")
	if err != nil {
		return nil, err
	}

	catalog := &pricingCatalog{Prices: prices, Amounts: amounts}
	if cm != nil {
		if err := cm.SetPricingCatalog(catalog); err != nil {
			log.Printf("⚠️ Failed to cache pricing catalog: %v", err)
		}
	}
	return catalog, nil
}
