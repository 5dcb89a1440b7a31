package handlers_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modestwear/internal/repos"
)

func TestCheckoutOverHTTP(t *testing.T) {
	ta := newTestApp(t)
	ta.product("chiffon", "hijabs", "24.99", 4)
	_, token := ta.shopper("amina@example.com")

	status, body := ta.call("POST", "/api/v1/cart/items", map[string]any{"variant_id": "v-chiffon", "quantity": 2}, token)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.EqualValues(t, 2, body["count"])

	status, _ = ta.call("POST", "/api/v1/orders/checkout", map[string]any{"address": ""}, token)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = ta.call("POST", "/api/v1/orders/checkout", map[string]any{"address": "12 Garden Road"}, token)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "pending", body["status"])
	orderID := body["id"].(string)

	left, err := repos.NewInventoryRepo(ta.db).Stock(ta.ctx, "v-chiffon")
	require.NoError(t, err)
	assert.Equal(t, 2, left)

	status, body = ta.call("GET", "/api/v1/orders", nil, token)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, _ = ta.call("POST", "/api/v1/orders/checkout", map[string]any{"address": "12 Garden Road"}, token)
	assert.Equal(t, fiber.StatusBadRequest, status, "cart is empty after checkout")

	_, other := ta.shopper("other@example.com")
	status, _ = ta.call("GET", "/api/v1/orders/"+orderID, nil, other)
	assert.Equal(t, fiber.StatusNotFound, status)

	admin := ta.admin()
	status, body = ta.call("PATCH", "/api/v1/admin/orders/"+orderID+"/status", map[string]any{"status": "shipped"}, admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "shipped", body["status"])
	status, _ = ta.call("PATCH", "/api/v1/admin/orders/"+orderID+"/status", map[string]any{"status": "lost"}, admin)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = ta.call("GET", "/api/v1/admin/orders", nil, admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])
	status, body = ta.call("GET", "/api/v1/admin/orders?status=shipped", nil, admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])
	status, body = ta.call("GET", "/api/v1/admin/orders?status=pending", nil, admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, body["count"])
}

func TestCheckoutInsufficientStockIs409(t *testing.T) {
	ta := newTestApp(t)
	ta.product("chiffon", "hijabs", "24.99", 1)
	_, token := ta.shopper("amina@example.com")

	status, _ := ta.call("POST", "/api/v1/cart/items", map[string]any{"variant_id": "v-chiffon"}, token)
	require.Equal(t, fiber.StatusCreated, status)
	_, err := ta.db.Exec(`UPDATE variants SET stock = 0 WHERE id = 'v-chiffon'`)
	require.NoError(t, err)

	status, body := ta.call("POST", "/api/v1/orders/checkout", map[string]any{"address": "12 Garden Road"}, token)
	require.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "v-chiffon", body["variant_id"])
	assert.EqualValues(t, 1, body["requested"])
	assert.EqualValues(t, 0, body["available"])

	status, body = ta.call("GET", "/api/v1/cart", nil, token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["items"], 1, "cart survives a failed checkout")
}

func TestWishlistAndOutfitsOverHTTP(t *testing.T) {
	ta := newTestApp(t)
	ta.product("chiffon", "hijabs", "24.99", 3)
	_, token := ta.shopper("amina@example.com")
	_, other := ta.shopper("other@example.com")

	status, _ := ta.call("POST", "/api/v1/wishlist", map[string]any{"variant_id": "v-chiffon"}, token)
	require.Equal(t, fiber.StatusCreated, status)
	status, _ = ta.call("POST", "/api/v1/wishlist/v-chiffon/move-to-cart", nil, token)
	require.Equal(t, fiber.StatusOK, status)
	_, body := ta.call("GET", "/api/v1/cart", nil, token)
	assert.Len(t, body["items"], 1)
	_, body = ta.call("GET", "/api/v1/wishlist", nil, token)
	assert.EqualValues(t, 0, body["count"])

	status, body = ta.call("POST", "/api/v1/outfits", map[string]any{"name": "Eid", "is_public": false}, token)
	require.Equal(t, fiber.StatusCreated, status)
	outfitID := body["id"].(string)
	status, _ = ta.call("POST", "/api/v1/outfits/"+outfitID+"/items", map[string]any{"product_id": "chiffon"}, token)
	require.Equal(t, fiber.StatusCreated, status)
	status, _ = ta.call("POST", "/api/v1/outfits/"+outfitID+"/items", map[string]any{"product_id": "chiffon"}, token)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = ta.call("GET", "/api/v1/outfits/"+outfitID, nil, "")
	assert.Equal(t, fiber.StatusNotFound, status, "private outfits are hidden")
	status, _ = ta.call("PUT", "/api/v1/outfits/"+outfitID, map[string]any{"name": "Eid", "is_public": true}, token)
	require.Equal(t, fiber.StatusOK, status)
	status, body = ta.call("GET", "/api/v1/outfits/"+outfitID, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["items"], 1)
	status, _ = ta.call("DELETE", "/api/v1/outfits/"+outfitID, nil, other)
	assert.Equal(t, fiber.StatusForbidden, status)

	_, body = ta.call("GET", "/api/v1/outfits/public", nil, "")
	assert.EqualValues(t, 1, body["count"])
}
