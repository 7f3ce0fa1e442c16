package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/pkg/actor"
	pkgauth "github.com/angelmondragon/orderflow/pkg/auth"
	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/metrics"
	"github.com/angelmondragon/orderflow/pkg/pagination"
	"github.com/angelmondragon/orderflow/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubOrders struct{}

func (stubOrders) Search(context.Context, string, pagination.Params) (pagination.Page[orders.OrderSummary], error) {
	return pagination.NewPage([]orders.OrderSummary{}, pagination.Params{}, 0), nil
}

func (stubOrders) Detail(_ context.Context, id int64) (*orders.OrderDetail, error) {
	return &orders.OrderDetail{OrderSummary: orders.OrderSummary{ID: id}}, nil
}

type stubCheckout struct{ calls int }

func (s *stubCheckout) Checkout(context.Context, actor.Actor, int64) (bool, error) {
	s.calls++
	return true, nil
}

type stubProduction struct{}

func (stubProduction) Advance(_ context.Context, _ actor.Actor, id int64, status enums.ProductionStatus) (*models.Order, error) {
	return &models.Order{ID: id, Status: enums.OrderStatus(status), Version: 2}, nil
}

type stubDeadLetters struct{}

func (stubDeadLetters) List(context.Context, int, int) ([]models.OutboxDeadLetter, int64, error) {
	return nil, 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "orderflow", ExpirationMinutes: 5},
		HTTP: config.HTTPConfig{
			CheckoutRateWindow: time.Minute,
			CheckoutRateLimit:  2,
			IdempotencyTTL:     time.Hour,
		},
	}
}

func newTestRouter(t *testing.T, withRedis bool) (http.Handler, *config.Config, *stubCheckout) {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	metrics.NewOutboxMetrics(reg)

	var client *redis.Client
	if withRedis {
		mr := miniredis.RunT(t)
		var err error
		client, err = redis.New(context.Background(), config.RedisConfig{Address: mr.Addr()}, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
	}

	checkout := &stubCheckout{}
	handler := NewRouter(Deps{
		Config:      cfg,
		DB:          stubPinger{},
		Redis:       client,
		Gatherer:    reg,
		Orders:      stubOrders{},
		Checkout:    checkout,
		Production:  stubProduction{},
		DeadLetters: stubDeadLetters{},
	})
	return handler, cfg, checkout
}

func bearer(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func do(handler http.Handler, method, target, auth, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	handler, _, _ := newTestRouter(t, false)

	assert.Equal(t, http.StatusOK, do(handler, http.MethodGet, "/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, do(handler, http.MethodGet, "/health/ready", "", "").Code)

	resp := do(handler, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "outbox_pending_records")
}

func TestRoleGating(t *testing.T) {
	handler, cfg, _ := newTestRouter(t, false)
	customerAuth := bearer(t, cfg, enums.ActorRoleCustomer)
	productionAuth := bearer(t, cfg, enums.ActorRoleProduction)
	operatorAuth := bearer(t, cfg, enums.ActorRoleOperator)

	cases := []struct {
		name   string
		method string
		target string
		auth   string
		body   string
		want   int
	}{
		{"anonymous search", http.MethodGet, "/api/v1/orders", "", "", http.StatusUnauthorized},
		{"customer search", http.MethodGet, "/api/v1/orders", customerAuth, "", http.StatusOK},
		{"customer detail", http.MethodGet, "/api/v1/orders/5", customerAuth, "", http.StatusOK},
		{"production search", http.MethodGet, "/api/v1/orders", productionAuth, "", http.StatusForbidden},
		{"customer checkout", http.MethodPost, "/api/v1/orders/5/checkout", customerAuth, "", http.StatusNoContent},
		{"production advances", http.MethodPost, "/api/v1/production/orders/5/status", productionAuth, `{"status":"completed"}`, http.StatusOK},
		{"customer advances", http.MethodPost, "/api/v1/production/orders/5/status", customerAuth, `{"status":"completed"}`, http.StatusForbidden},
		{"operator dead letters", http.MethodGet, "/api/v1/admin/outbox/dead-letters", operatorAuth, "", http.StatusOK},
		{"customer dead letters", http.MethodGet, "/api/v1/admin/outbox/dead-letters", customerAuth, "", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(handler, tc.method, tc.target, tc.auth, tc.body)
			assert.Equal(t, tc.want, resp.Code, resp.Body.String())
		})
	}
}

func TestCheckoutGuardsWithRedis(t *testing.T) {
	handler, cfg, checkout := newTestRouter(t, true)
	auth := bearer(t, cfg, enums.ActorRoleCustomer)

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/9/checkout", nil)
		req.Header.Set("Authorization", auth)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp
	}

	first := send("key-1")
	require.Equal(t, http.StatusNoContent, first.Code)
	replay := send("key-1")
	assert.Equal(t, http.StatusNoContent, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replay"))
	assert.Equal(t, 1, checkout.calls)

	limited := send("")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
}
