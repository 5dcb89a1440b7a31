package handlers_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutesRequireStaff(t *testing.T) {
	ta := newTestApp(t)
	_, shopper := ta.shopper("amina@example.com")

	for _, path := range []string{"/api/v1/admin/users", "/api/v1/admin/orders", "/api/v1/admin/inventory/low-stock"} {
		status, _ := ta.call("GET", path, nil, "")
		assert.Equal(t, fiber.StatusUnauthorized, status, path)
		status, _ = ta.call("GET", path, nil, shopper)
		assert.Equal(t, fiber.StatusForbidden, status, path)
	}

	admin := ta.admin()
	status, body := ta.call("GET", "/api/v1/admin/users", nil, admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, body["count"])
}

func TestAdminManagesCatalogAndInventory(t *testing.T) {
	ta := newTestApp(t)
	ta.product("chiffon", "hijabs", "24.99", 2)
	admin := ta.admin()

	status, body := ta.call("POST", "/api/v1/admin/products", map[string]any{
		"category": "hijabs", "name": "Jersey Hijab", "price": "12.50",
		"variants": []map[string]any{{"size": "M", "color": "navy", "stock": 7}},
	}, admin)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "jersey-hijab", body["slug"])

	status, body = ta.call("GET", "/api/v1/admin/inventory/low-stock", nil, admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = ta.call("POST", "/api/v1/admin/inventory/v-chiffon/restock", map[string]any{"quantity": 10}, admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 12, body["stock"])
	status, _ = ta.call("POST", "/api/v1/admin/inventory/v-chiffon/restock", map[string]any{"quantity": 0}, admin)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAdminUserManagement(t *testing.T) {
	ta := newTestApp(t)
	uid, shopper := ta.shopper("amina@example.com")
	admin := ta.admin()

	status, _ := ta.call("PATCH", "/api/v1/admin/users/"+uid, map[string]any{"is_active": false}, admin)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = ta.call("GET", "/api/v1/auth/profile", nil, shopper)
	assert.Equal(t, fiber.StatusUnauthorized, status, "disabling revokes issued tokens")
	status, _ = ta.call("POST", "/api/v1/auth/login", map[string]any{"email": "amina@example.com", "password": pw}, "")
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = ta.call("DELETE", "/api/v1/admin/users/"+uid, nil, admin)
	require.Equal(t, fiber.StatusNoContent, status)
	status, _ = ta.call("DELETE", "/api/v1/admin/users/"+uid, nil, admin)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAdminUploadsProductImage(t *testing.T) {
	ta := newTestApp(t)
	ta.product("chiffon", "hijabs", "24.99", 3)
	admin := ta.admin()

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "chiffon.png")
	require.NoError(t, err)
	_, err = fw.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/admin/products/chiffon/image", &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+admin)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var p map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	url, _ := p["image_url"].(string)
	require.True(t, strings.HasPrefix(url, "http://media.test/products/chiffon/"), url)

	resp, err = ta.app.Test(httptest.NewRequest("GET", "/media/"+strings.TrimPrefix(url, "http://media.test/"), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, png, got)

	status, _ := ta.call("GET", "/media/products/ghost.png", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
}
