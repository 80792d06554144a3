package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/address"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository/memory"
	"github.com/example/storefront/internal/services"
)

type staticDirectory struct{}

func (staticDirectory) Provinces(context.Context) ([]address.Unit, error) {
	return []address.Unit{{Code: "79", Name: "Ho Chi Minh"}}, nil
}

func (staticDirectory) Districts(_ context.Context, province string) ([]address.Unit, error) {
	if province != "79" {
		return nil, nil
	}
	return []address.Unit{{Code: "760", Name: "Quan 1", ParentCode: "79"}}, nil
}

func (staticDirectory) Wards(_ context.Context, district string) ([]address.Unit, error) {
	if district != "760" {
		return nil, nil
	}
	return []address.Unit{{Code: "26734", Name: "Ben Nghe", ParentCode: "760"}}, nil
}

type testServer struct {
	app     *fiber.App
	product *models.Product
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:      "user-secret",
		AdminJWTSecret: "admin-secret",
		TokenExpires:   time.Hour,
		Currency:       "vnd",
	}
	log := zap.NewNop()
	store := memory.New()

	product := &models.Product{Name: "Green tea", Price: decimal.NewFromInt(10), Quantity: 5}
	require.NoError(t, store.Products.Create(context.Background(), product))

	users := services.NewUserService(store.Users, 4, log)
	require.NoError(t, users.EnsureAdmin(context.Background(), "admin@example.com", "admin-pass"))

	resolver := address.NewResolver(staticDirectory{}, nil, time.Hour, log)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log)})
	Register(app, Deps{
		Config:  cfg,
		Users:   users,
		Catalog: services.NewCatalogService(store.Categories, store.Products, log),
		Carts:   services.NewCartService(store.Carts, store.Products, log),
		Orders: services.NewOrderService(services.OrderServiceDeps{
			Orders:    store.Orders,
			Products:  store.Products,
			Addresses: resolver,
			Momo:      services.MomoSettings{Phone: "0900000000", AccountName: "SHOP"},
			Currency:  cfg.Currency,
			Logger:    log,
		}),
		Address: resolver,
	})

	return &testServer{app: app, product: product}
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type tokenData struct {
	AccessToken string `json:"access_token"`
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{"email": email, "password": "secret1", "name": "Ann"})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	return decode[tokenData](t, env).AccessToken
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/admin/auth/login", "", fiber.Map{"email": "admin@example.com", "password": "admin-pass"})
	require.Equal(t, fiber.StatusOK, status, env.Message)
	return decode[tokenData](t, env).AccessToken
}

func (s *testServer) orderBody(method string) fiber.Map {
	return fiber.Map{
		"items": []fiber.Map{{
			"product_id": s.product.ID,
			"price":      "10",
			"quantity":   2,
		}},
		"delivery_address": fiber.Map{
			"full_name":     "Nguyen Van A",
			"phone":         "0901234567",
			"province_code": "79",
			"district_code": "760",
			"ward_code":     "26734",
			"street":        "1 Le Loi",
		},
		"payment_method": method,
		"total_amount":   "20",
	}
}

type orderData struct {
	ID                   string `json:"id"`
	OrderStatus          string `json:"order_status"`
	PaymentStatus        string `json:"payment_status"`
	UserPaymentConfirmed bool   `json:"user_payment_confirmed"`
	DeliveryAddress      struct {
		WardName string `json:"ward_name"`
	} `json:"delivery_address"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ann@example.com")

	status, _ := s.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{"email": "ANN@example.com", "password": "secret1"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, env := s.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{"email": "not-an-email", "password": "1"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	fields := decode[map[string]string](t, env)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	status, _ = s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ann@example.com", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, env = s.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ann@example.com", decode[map[string]interface{}](t, env)["email"])

	status, _ = s.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/api/admin/auth/login", "", fiber.Map{"email": "ann@example.com", "password": "secret1"})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestCatalogAndCart(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "cart@example.com")

	status, env := s.do(t, http.MethodGet, "/api/products?limit=10&sort_by=price&order=asc", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	page := decode[struct {
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}](t, env)
	assert.Equal(t, int64(1), page.Pagination.Total)

	status, _ = s.do(t, http.MethodGet, "/api/products?sort_by=name", "", nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = s.do(t, http.MethodGet, "/api/products/not-a-uuid", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/products/%s/availability?quantity=9", s.product.ID), "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, services.Availability{Available: false, AvailableQuantity: 5}, decode[services.Availability](t, env))

	status, _ = s.do(t, http.MethodPost, "/api/cart", token, fiber.Map{"product_id": s.product.ID, "quantity": 9})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = s.do(t, http.MethodPost, "/api/cart", token, fiber.Map{"product_id": s.product.ID, "quantity": 2})
	require.Equal(t, fiber.StatusOK, status)

	status, env = s.do(t, http.MethodGet, "/api/cart/count", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(1), decode[struct {
		Count int64 `json:"count"`
	}](t, env).Count)

	status, _ = s.do(t, http.MethodDelete, "/api/cart", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAddressRoutes(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/api/address/provinces/79/districts", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	districts := decode[[]address.Unit](t, env)
	require.Len(t, districts, 1)
	assert.Equal(t, address.Code("760"), districts[0].Code)

	status, env = s.do(t, http.MethodGet, "/api/address/options?province=79&district=760", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	options := decode[struct {
		Stage    string          `json:"stage"`
		Complete bool            `json:"complete"`
		Options  address.Options `json:"options"`
	}](t, env)
	assert.Equal(t, "district_chosen", options.Stage)
	assert.False(t, options.Complete)
	assert.Len(t, options.Options.Wards, 1)
}

func TestMomoOrderLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "buyer@example.com")
	admin := s.adminToken(t)

	status, env := s.do(t, http.MethodPost, "/api/orders", token, s.orderBody("momo"))
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	created := decode[struct {
		Order orderData `json:"order"`
	}](t, env).Order
	assert.Equal(t, "pending", created.OrderStatus)
	assert.Equal(t, "pending", created.PaymentStatus)
	assert.Equal(t, "Ben Nghe", created.DeliveryAddress.WardName)

	status, env = s.do(t, http.MethodPost, "/api/orders/"+created.ID+"/momo-confirm", token, nil)
	require.Equal(t, fiber.StatusOK, status, env.Message)
	confirmed := decode[orderData](t, env)
	assert.True(t, confirmed.UserPaymentConfirmed)
	assert.Equal(t, "pending", confirmed.PaymentStatus)

	status, _ = s.do(t, http.MethodPut, "/api/admin/orders/"+created.ID+"/status", token, fiber.Map{"status": "confirmed"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, env = s.do(t, http.MethodPut, "/api/admin/orders/"+created.ID+"/payment-status", admin, fiber.Map{"payment_status": "paid"})
	require.Equal(t, fiber.StatusOK, status, env.Message)
	assert.Equal(t, "paid", decode[orderData](t, env).PaymentStatus)

	status, env = s.do(t, http.MethodPut, "/api/admin/orders/"+created.ID+"/status", admin, fiber.Map{"status": "confirmed", "expected_status": "pending"})
	require.Equal(t, fiber.StatusOK, status, env.Message)
	assert.Equal(t, "confirmed", decode[orderData](t, env).OrderStatus)

	status, env = s.do(t, http.MethodGet, "/api/admin/orders/"+created.ID, admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	view := decode[struct {
		orderData
		AllowedTransitions []string `json:"allowed_transitions"`
	}](t, env)
	assert.Equal(t, "confirmed", view.OrderStatus)
	assert.Equal(t, []string{"shipping", "cancelled"}, view.AllowedTransitions)

	status, _ = s.do(t, http.MethodPut, "/api/admin/orders/"+created.ID+"/status", admin, fiber.Map{"status": "shipping", "expected_status": "pending"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = s.do(t, http.MethodPut, "/api/admin/orders/"+created.ID+"/status", admin, fiber.Map{"status": "delivered"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, env = s.do(t, http.MethodGet, "/api/admin/orders/"+created.ID+"/transactions", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.GreaterOrEqual(t, len(decode[[]models.OrderTransaction](t, env)), 3)

	status, env = s.do(t, http.MethodGet, "/api/orders/user", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[struct {
		Orders []orderData `json:"orders"`
	}](t, env).Orders, 1)

	status, env = s.do(t, http.MethodGet, "/api/admin/dashboard", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	stats := decode[struct {
		TotalOrders    int64            `json:"total_orders"`
		OrdersByStatus map[string]int64 `json:"orders_by_status"`
	}](t, env)
	assert.Equal(t, int64(1), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.OrdersByStatus["confirmed"])
}

func TestOrderValidationAndVisibility(t *testing.T) {
	s := newTestServer(t)
	owner := s.register(t, "owner@example.com")
	other := s.register(t, "other@example.com")

	body := s.orderBody("cod")
	body["total_amount"] = "25"
	status, env := s.do(t, http.MethodPost, "/api/orders", owner, body)
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, decode[map[string]string](t, env), "total_amount")

	body = s.orderBody("cod")
	body["delivery_address"].(fiber.Map)["ward_code"] = "99999"
	status, env = s.do(t, http.MethodPost, "/api/orders", owner, body)
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, decode[map[string]string](t, env), "delivery_address.ward_code")

	status, env = s.do(t, http.MethodPost, "/api/orders", owner, s.orderBody("cod"))
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	id := decode[struct {
		Order orderData `json:"order"`
	}](t, env).Order.ID

	status, _ = s.do(t, http.MethodGet, "/api/orders/"+id, other, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPost, "/api/orders/"+id+"/momo-confirm", owner, nil)
	assert.Equal(t, fiber.StatusConflict, status)

	status, env = s.do(t, http.MethodPut, "/api/orders/"+id+"/cancel", owner, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "cancelled", decode[orderData](t, env).OrderStatus)

	status, _ = s.do(t, http.MethodPut, "/api/orders/"+id+"/cancel", owner, nil)
	assert.Equal(t, fiber.StatusConflict, status)
}
