package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"catalog/internal/handlers"
	"catalog/internal/middleware"
	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAdmin    = "admin"
	testPassword = "password123"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repositories.OpenDatabase(repositories.DriverSQLite, dsn)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	productService := services.NewProductService(repositories.NewGORMProductRepository(db), nil, logger)
	authService := services.NewAuthService(services.AdminCredentials{Username: testAdmin, PasswordHash: string(hash)}, "test_jwt_secret", logger)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService, logger).RegisterRoutes(apiV1)
	handlers.NewProductHandler(productService, logger).RegisterRoutes(apiV1, middleware.AuthRequired(authService, logger))
	return app
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": testAdmin, "password": testPassword})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	require.NotEmpty(t, loginResp["token"])
	return loginResp["token"]
}

func createForm(name, price, stock string) io.Reader {
	form := url.Values{}
	form.Set("name", name)
	form.Set("price", price)
	form.Set("stock", stock)
	return strings.NewReader(form.Encode())
}

func doCreate(t *testing.T, app *fiber.App, token, name, price, stock string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", createForm(name, price, stock))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeProduct(t *testing.T, resp *http.Response) models.Product {
	t.Helper()
	defer resp.Body.Close()
	var product models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&product))
	return product
}

func TestLogin(t *testing.T) {
	app := setupApp(t)

	assert.NotEmpty(t, login(t, app))

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": testAdmin, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": testAdmin})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestProductWritesRequireAuth(t *testing.T) {
	app := setupApp(t)

	resp := doCreate(t, app, "", "Pan", "15.5", "10")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/products/1", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Reads are public
	resp = doJSON(t, app, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateProduct(t *testing.T) {
	app := setupApp(t)
	token := login(t, app)

	resp := doCreate(t, app, token, "Pan", "15.5", "10")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeProduct(t, resp)
	assert.Equal(t, uint(1), created.ID)
	assert.Equal(t, "Pan", created.Name)
	assert.True(t, decimal.RequireFromString("15.5").Equal(created.Price))
	assert.Equal(t, 10, created.Stock)

	// Query parameters work as well as form fields.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products?name=Leche&price=20&stock=3", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	testCases := []struct {
		name, product, price, stock string
		status                      int
	}{
		{"duplicate name", "Pan", "20", "5", http.StatusConflict},
		{"empty name", "", "20", "5", http.StatusBadRequest},
		{"price not a number", "Queso", "abc", "5", http.StatusBadRequest},
		{"stock not an integer", "Queso", "20", "cinco", http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doCreate(t, app, token, tc.product, tc.price, tc.stock)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestProductLifecycle(t *testing.T) {
	app := setupApp(t)
	token := login(t, app)

	resp := doCreate(t, app, token, "Pan", "15.5", "10")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pan := decodeProduct(t, resp)

	resp = doCreate(t, app, token, "Leche", "22", "4")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	leche := decodeProduct(t, resp)

	t.Run("GetByID", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", pan.ID), "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"price":15.5`)
		var fetched models.Product
		require.NoError(t, json.Unmarshal(raw, &fetched))
		assert.Equal(t, "Pan", fetched.Name)

		resp = doJSON(t, app, http.MethodGet, "/api/v1/products/abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodGet, "/api/v1/products/999", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("Search", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/v1/products/search", "", map[string]string{"name": "zzz"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var products []models.Product
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
		resp.Body.Close()
		assert.Len(t, products, 2)

		resp = doJSON(t, app, http.MethodPost, "/api/v1/products/search", "", map[string]string{"name": ""})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("UpdateByName keeps the name", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/api/v1/products/by-name/Pan", token,
			map[string]any{"name": "Bollo", "price": 18, "stock": 8})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		updated := decodeProduct(t, resp)
		assert.Equal(t, pan.ID, updated.ID)
		assert.Equal(t, "Pan", updated.Name)
		assert.True(t, decimal.NewFromInt(18).Equal(updated.Price))
		assert.Equal(t, 8, updated.Stock)

		// A body name is only checked for uniqueness, so a short one is fine.
		resp = doJSON(t, app, http.MethodPut, "/api/v1/products/by-name/Pan", token,
			map[string]any{"name": "X", "price": 19, "stock": 9})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		updated = decodeProduct(t, resp)
		assert.Equal(t, "Pan", updated.Name)
		assert.Equal(t, 9, updated.Stock)

		resp = doJSON(t, app, http.MethodPut, "/api/v1/products/by-name/Pan", token,
			map[string]any{"price": 3.001, "stock": 9})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodPut, "/api/v1/products/by-name/Nada", token,
			map[string]any{"price": 18, "stock": 8})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodPut, "/api/v1/products/by-name/Pan", token,
			map[string]any{"name": "Leche", "price": 18, "stock": 8})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("UpdateByID replaces every field", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/products/%d", pan.ID)
		resp := doJSON(t, app, http.MethodPut, path, token,
			map[string]any{"name": "Pan integral", "price": 3.25, "stock": 7})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		updated := decodeProduct(t, resp)
		assert.Equal(t, "Pan integral", updated.Name)
		assert.True(t, decimal.RequireFromString("3.25").Equal(updated.Price))
		assert.Equal(t, 7, updated.Stock)

		resp = doJSON(t, app, http.MethodPut, path, token,
			map[string]any{"name": "Leche", "price": 1, "stock": 1})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodPut, path, token,
			map[string]any{"name": "Pan integral", "price": 1})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodPut, path, token,
			map[string]any{"name": "Pan integral", "price": -1, "stock": 1})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodPut, "/api/v1/products/0", token,
			map[string]any{"name": "Pan integral", "price": 1, "stock": 1})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodPut, "/api/v1/products/999", token,
			map[string]any{"name": "Nuevo", "price": 1, "stock": 1})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("Delete", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/products/%d", leche.ID)
		resp := doJSON(t, app, http.MethodDelete, path, token, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodDelete, path, token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})
}
