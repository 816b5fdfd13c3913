package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"minimall/internal/config"
	"minimall/internal/http/handlers"
	"minimall/internal/repos"
	"minimall/internal/services"
)

// memCart is an in-process CartStore so handler tests don't need Redis.
type memCart struct {
	mu       sync.Mutex
	counts   map[int64]map[int64]int
	selected map[int64]map[int64]bool
}

func newMemCart() *memCart {
	return &memCart{
		counts:   map[int64]map[int64]int{},
		selected: map[int64]map[int64]bool{},
	}
}

func (m *memCart) ensure(userID int64) {
	if m.counts[userID] == nil {
		m.counts[userID] = map[int64]int{}
	}
	if m.selected[userID] == nil {
		m.selected[userID] = map[int64]bool{}
	}
}

func (m *memCart) Add(_ context.Context, userID, skuID int64, count int, selected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(userID)
	m.counts[userID][skuID] += count
	if selected {
		m.selected[userID][skuID] = true
	}
	return nil
}

func (m *memCart) Update(_ context.Context, userID, skuID int64, count int, selected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(userID)
	m.counts[userID][skuID] = count
	if selected {
		m.selected[userID][skuID] = true
	} else {
		delete(m.selected[userID], skuID)
	}
	return nil
}

func (m *memCart) Quantities(_ context.Context, userID int64) (map[int64]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]int, len(m.counts[userID]))
	for k, v := range m.counts[userID] {
		out[k] = v
	}
	return out, nil
}

func (m *memCart) SelectedIDs(_ context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.selected[userID]))
	for id := range m.selected[userID] {
		out = append(out, id)
	}
	return out, nil
}

func (m *memCart) Remove(_ context.Context, userID int64, skuIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(userID)
	for _, id := range skuIDs {
		delete(m.counts[userID], id)
		delete(m.selected[userID], id)
	}
	return nil
}

type testEnv struct {
	app     *fiber.App
	db      *sqlx.DB
	store   *memCart
	gateway *services.PaymentGateway
	skus    *repos.SkuRepo
	orders  *repos.OrderRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// the pure-Go driver gives every pooled connection its own :memory: db
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	store := newMemCart()
	userRepo := repos.NewUserRepo(db)
	skuRepo := repos.NewSkuRepo(db)
	orderRepo := repos.NewOrderRepo(db)

	cfg := config.Config{
		Freight:       decimal.RequireFromString("10.00"),
		PayAppID:      "test-app",
		PaySecret:     "test-secret",
		PayGatewayURL: "https://pay.test/gateway.do",
		PayReturnURL:  "http://localhost/pay_success",
	}
	gateway := services.NewPaymentGateway(cfg)
	authSvc := &services.AuthService{Users: userRepo}
	cartSvc := services.NewCartService(store, skuRepo)
	invSvc := services.NewInventoryService(skuRepo)
	orderSvc := services.NewOrderService(orderRepo, skuRepo, userRepo, store, cfg.Freight, gateway)

	authH := &handlers.AuthHandler{Auth: authSvc, Users: userRepo}
	cartH := &handlers.CartHandler{Cart: cartSvc}
	orderH := &handlers.OrderHandler{Order: orderSvc, Repo: orderRepo}
	payH := &handlers.PaymentHandler{Order: orderSvc, Gateway: gateway}
	invH := &handlers.InventoryHandler{Inv: invSvc}
	adminH := &handlers.AdminHandler{Orders: orderRepo, Skus: skuRepo}

	app := fiber.New()
	app.Use(requestid.New())

	app.Post("/register", authH.Register)
	app.Post("/login", authH.Login)
	app.Post("/logout", authH.Logout)
	app.Get("/addresses", handlers.RequireUser(authSvc), authH.Addresses)
	app.Post("/addresses", handlers.RequireUser(authSvc), authH.CreateAddress)

	cart := app.Group("/cart", handlers.RequireUser(authSvc))
	cart.Get("/", cartH.View)
	cart.Post("/", cartH.Add)
	cart.Put("/", cartH.Update)
	cart.Delete("/", cartH.Delete)

	app.Get("/orders/settlement", handlers.RequireUser(authSvc), orderH.Settlement)
	app.Post("/orders", handlers.RequireUser(authSvc), orderH.Place)
	app.Get("/orders", handlers.RequireUser(authSvc), orderH.History)
	app.Get("/orders/:id", handlers.RequireUser(authSvc), orderH.View)
	app.Get("/orders/:id/payment", handlers.RequireUser(authSvc), payH.PayURL)
	app.Put("/payment/status", payH.Status)

	app.Get("/api/v1/availability", invH.Check)

	admin := app.Group("/admin", handlers.RequireAdmin(authSvc))
	admin.Get("/orders", adminH.OrdersPage)
	admin.Post("/orders/:id/status", adminH.UpdateOrderStatus)
	admin.Get("/inventory", adminH.Inventory)
	admin.Post("/inventory", adminH.UpdateInventory)

	return &testEnv{app: app, db: db, store: store, gateway: gateway, skus: skuRepo, orders: orderRepo}
}

func jsonReq(method, target, sid string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// login authenticates a seeded user and returns the bound session cookie.
func login(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	resp, err := env.app.Test(jsonReq("POST", "/login", "", map[string]string{
		"email":    email,
		"password": "Passw0rd!",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	sid := extractCookie(resp, "sid")
	if sid == "" {
		t.Fatal("no sid cookie after login")
	}
	return sid
}
