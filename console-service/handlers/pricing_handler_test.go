package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railzway-console/shared/clients"
)

func pricingBackend(t *testing.T, priceCalls, amountCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/prices":
			priceCalls.Add(1)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"id": "price_starter", "name": "Starter", "code": "starter", "active": true},
				},
			})
		case "/api/price_amounts":
			amountCalls.Add(1)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"id": "pa_1", "price_id": "price_starter", "unit_amount_cents": 900},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestListPriceAmountsServesFullCatalog(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var priceCalls, amountCalls atomic.Int32
	backend := pricingBackend(t, &priceCalls, &amountCalls)
	h := NewPricingHandler(clients.NewBillingClientWith(backend.URL, ""))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/price_amounts", nil)
	h.ListPriceAmounts(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []clients.PriceAmount `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "price_starter", resp.Data[0].PriceID)
	assert.Equal(t, int64(900), resp.Data[0].UnitAmountCents)

	// The unfiltered amounts endpoint loads both catalog halves together.
	assert.Equal(t, int32(1), amountCalls.Load())
	assert.Equal(t, int32(1), priceCalls.Load())
}

func TestListPriceAmountsFilteredBypassesCatalog(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var priceCalls, amountCalls atomic.Int32
	backend := pricingBackend(t, &priceCalls, &amountCalls)
	h := NewPricingHandler(clients.NewBillingClientWith(backend.URL, ""))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/price_amounts?price_id=price_starter", nil)
	h.ListPriceAmounts(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), amountCalls.Load())
	assert.Equal(t, int32(0), priceCalls.Load(), "filtered lookups go straight to the billing API")
}
