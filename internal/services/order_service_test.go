package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"minimall/internal/config"
	"minimall/internal/domain"
	"minimall/internal/repos"
	"minimall/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// the pure-Go driver gives every pooled connection its own :memory: db
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// memCartStore is an in-process CartStore for tests that don't need Redis.
type memCartStore struct {
	mu       sync.Mutex
	counts   map[int64]map[int64]int
	selected map[int64]map[int64]bool
}

func newMemCartStore() *memCartStore {
	return &memCartStore{
		counts:   map[int64]map[int64]int{},
		selected: map[int64]map[int64]bool{},
	}
}

func (m *memCartStore) ensure(userID int64) {
	if m.counts[userID] == nil {
		m.counts[userID] = map[int64]int{}
	}
	if m.selected[userID] == nil {
		m.selected[userID] = map[int64]bool{}
	}
}

func (m *memCartStore) Add(_ context.Context, userID, skuID int64, count int, selected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(userID)
	m.counts[userID][skuID] += count
	if selected {
		m.selected[userID][skuID] = true
	}
	return nil
}

func (m *memCartStore) Update(_ context.Context, userID, skuID int64, count int, selected bool) error {
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

func (m *memCartStore) Quantities(_ context.Context, userID int64) (map[int64]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]int, len(m.counts[userID]))
	for k, v := range m.counts[userID] {
		out[k] = v
	}
	return out, nil
}

func (m *memCartStore) SelectedIDs(_ context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.selected[userID]))
	for id := range m.selected[userID] {
		out = append(out, id)
	}
	return out, nil
}

func (m *memCartStore) Remove(_ context.Context, userID int64, skuIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(userID)
	for _, id := range skuIDs {
		delete(m.counts[userID], id)
		delete(m.selected[userID], id)
	}
	return nil
}

type orderEnv struct {
	db     *sqlx.DB
	store  *memCartStore
	skus   *repos.SkuRepo
	orders *repos.OrderRepo
	svc    *services.OrderService
}

func testGatewayConfig() config.Config {
	return config.Config{
		Freight:       decimal.RequireFromString("10.00"),
		PayAppID:      "test-app",
		PaySecret:     "test-secret",
		PayGatewayURL: "https://pay.test/gateway.do",
		PayReturnURL:  "http://localhost/pay_success",
	}
}

func newOrderEnv(t *testing.T) *orderEnv {
	t.Helper()
	db := memdb(t)
	store := newMemCartStore()
	skuRepo := repos.NewSkuRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	userRepo := repos.NewUserRepo(db)
	cfg := testGatewayConfig()
	svc := services.NewOrderService(orderRepo, skuRepo, userRepo, store,
		cfg.Freight, services.NewPaymentGateway(cfg))
	return &orderEnv{db: db, store: store, skus: skuRepo, orders: orderRepo, svc: svc}
}

// seeded data: user 1 (alice) owns address 1; sku 5 has stock 12 at 129.00.
const (
	aliceID   = int64(1)
	adminID   = int64(2)
	aliceAddr = int64(1)
)

func TestPlaceOrder_Success(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	if err := env.store.Add(ctx, aliceID, 5, 5, true); err != nil {
		t.Fatal(err)
	}

	before := time.Now()
	o, err := env.svc.Place(ctx, aliceID, aliceAddr, domain.PayMethodCash)
	if err != nil {
		t.Fatal(err)
	}

	if o.Status != domain.OrderStatusUnsend {
		t.Fatalf("cash order should be UNSEND, got %s", o.Status)
	}
	if o.TotalCount != 5 {
		t.Fatalf("want total_count=5, got %d", o.TotalCount)
	}
	// 5 * 129.00 + 10.00 freight
	if !o.TotalAmount.Equal(decimal.RequireFromString("655.00")) {
		t.Fatalf("want total 655.00, got %s", o.TotalAmount)
	}

	// id contract: timestamp(14) + user id(9) + sequence(3)
	if len(o.ID) != 26 {
		t.Fatalf("order id should be 26 chars, got %q", o.ID)
	}
	ts, err := time.ParseInLocation("20060102150405", o.ID[:14], time.Local)
	if err != nil {
		t.Fatalf("order id prefix not a timestamp: %v", err)
	}
	if ts.Before(before.Add(-2*time.Second)) || ts.After(time.Now().Add(2*time.Second)) {
		t.Fatalf("order id timestamp out of range: %s", ts)
	}
	if o.ID[14:23] != "000000001" {
		t.Fatalf("order id should embed user id, got %q", o.ID[14:23])
	}

	// stock 12 -> 7, sku sales 0 -> 5
	sku, err := env.skus.Get(5)
	if err != nil {
		t.Fatal(err)
	}
	if sku.Stock != 7 || sku.Sales != 5 {
		t.Fatalf("want stock=7 sales=5, got stock=%d sales=%d", sku.Stock, sku.Sales)
	}
	var goodsSales int
	if err := env.db.Get(&goodsSales, `SELECT sales FROM goods WHERE id = ?`, sku.GoodsID); err != nil {
		t.Fatal(err)
	}
	if goodsSales != 5 {
		t.Fatalf("goods sales not bumped, got %d", goodsSales)
	}

	// purchased entry gone from the cart
	q, _ := env.store.Quantities(ctx, aliceID)
	if len(q) != 0 {
		t.Fatalf("cart not cleaned after placement: %v", q)
	}

	// persisted header and items match
	saved, items, err := env.orders.Get(o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !saved.TotalAmount.Equal(o.TotalAmount) || saved.TotalCount != 5 {
		t.Fatalf("persisted totals mismatch: %+v", saved)
	}
	if len(items) != 1 || items[0].SkuID != 5 || items[0].Count != 5 {
		t.Fatalf("bad order items: %+v", items)
	}
	if !items[0].Price.Equal(decimal.RequireFromString("129.00")) {
		t.Fatalf("item price not snapshotted: %s", items[0].Price)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	// sku 4 is seeded with stock 0
	if err := env.store.Add(ctx, aliceID, 4, 1, true); err != nil {
		t.Fatal(err)
	}

	_, err := env.svc.Place(ctx, aliceID, aliceAddr, domain.PayMethodCash)
	if !errors.Is(err, services.ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock, got %v", err)
	}

	// the whole placement rolled back: no order rows, stock untouched
	var n int
	if err := env.db.Get(&n, `SELECT COUNT(*) FROM orders`); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("rolled-back placement left %d order rows", n)
	}
	stock, err := env.skus.Stock(4)
	if err != nil {
		t.Fatal(err)
	}
	if stock != 0 {
		t.Fatalf("stock changed on failed placement: %d", stock)
	}

	// the cart keeps its entry so the buyer can adjust
	q, _ := env.store.Quantities(ctx, aliceID)
	if q[4] != 1 {
		t.Fatalf("cart entry lost on failed placement: %v", q)
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	env := newOrderEnv(t)

	_, err := env.svc.Place(context.Background(), aliceID, aliceAddr, domain.PayMethodCash)
	if !errors.Is(err, services.ErrCartEmpty) {
		t.Fatalf("want ErrCartEmpty, got %v", err)
	}

	var n int
	if err := env.db.Get(&n, `SELECT COUNT(*) FROM orders`); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("empty-cart placement left %d order rows", n)
	}
}

func TestPlaceOrder_AddressOwnership(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	if err := env.store.Add(ctx, adminID, 1, 1, true); err != nil {
		t.Fatal(err)
	}

	// admin tries to ship to alice's address
	_, err := env.svc.Place(ctx, adminID, aliceAddr, domain.PayMethodCash)
	if !errors.Is(err, services.ErrAddressNotFound) {
		t.Fatalf("want ErrAddressNotFound, got %v", err)
	}
}

func TestPlaceOrder_InvalidPayMethod(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	if err := env.store.Add(ctx, aliceID, 1, 1, true); err != nil {
		t.Fatal(err)
	}
	_, err := env.svc.Place(ctx, aliceID, aliceAddr, "WIRE")
	if !errors.Is(err, services.ErrInvalidPayMethod) {
		t.Fatalf("want ErrInvalidPayMethod, got %v", err)
	}
}

func TestPlaceOrder_UnselectedEntriesSurvive(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	if err := env.store.Add(ctx, aliceID, 1, 2, true); err != nil {
		t.Fatal(err)
	}
	if err := env.store.Add(ctx, aliceID, 2, 1, false); err != nil {
		t.Fatal(err)
	}

	o, err := env.svc.Place(ctx, aliceID, aliceAddr, domain.PayMethodCash)
	if err != nil {
		t.Fatal(err)
	}
	if o.TotalCount != 2 {
		t.Fatalf("only selected entries should be ordered, got count %d", o.TotalCount)
	}

	q, _ := env.store.Quantities(ctx, aliceID)
	if q[2] != 1 {
		t.Fatalf("unselected entry should survive placement: %v", q)
	}
	if _, ok := q[1]; ok {
		t.Fatalf("purchased entry should be removed: %v", q)
	}
}

func TestSettle_Quote(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	if err := env.store.Add(ctx, aliceID, 1, 3, true); err != nil {
		t.Fatal(err)
	}
	if err := env.store.Add(ctx, aliceID, 2, 1, false); err != nil {
		t.Fatal(err)
	}

	st, err := env.svc.Settle(ctx, aliceID)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Freight.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("want freight 10.00, got %s", st.Freight)
	}
	if len(st.Items) != 1 || st.Items[0].SkuID != 1 || st.Items[0].Count != 3 {
		t.Fatalf("quote should cover selected entries only: %+v", st.Items)
	}
	if !st.Items[0].Price.Equal(decimal.RequireFromString("58.00")) {
		t.Fatalf("quote carries wrong price: %s", st.Items[0].Price)
	}
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	if err := env.store.Add(ctx, aliceID, 1, 1, true); err != nil {
		t.Fatal(err)
	}
	o, err := env.svc.Place(ctx, aliceID, aliceAddr, domain.PayMethodAlipay)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.OrderStatusUnpaid {
		t.Fatalf("online order should start UNPAID, got %s", o.Status)
	}

	// the buyer can fetch a signed pay url while unpaid
	if _, err := env.svc.PaymentURL(aliceID, o.ID); err != nil {
		t.Fatal(err)
	}
	// but not somebody else
	if _, err := env.svc.PaymentURL(adminID, o.ID); !errors.Is(err, services.ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound for foreign order, got %v", err)
	}

	if err := env.svc.ConfirmPayment(o.ID, "gw-trade-001"); err != nil {
		t.Fatal(err)
	}
	// replayed callback: no error, no second transition, no second record
	if err := env.svc.ConfirmPayment(o.ID, "gw-trade-001"); err != nil {
		t.Fatal(err)
	}

	saved, _, err := env.orders.Get(o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Status != domain.OrderStatusUncomment {
		t.Fatalf("want UNCOMMENT after confirm, got %s", saved.Status)
	}
	n, err := env.orders.PaymentCount(o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("want exactly one payment record, got %d", n)
	}

	// a settled order is no longer payable
	if _, err := env.svc.PaymentURL(aliceID, o.ID); !errors.Is(err, services.ErrOrderNotPayable) {
		t.Fatalf("want ErrOrderNotPayable, got %v", err)
	}
}

func TestConfirmPayment_UnknownOrder(t *testing.T) {
	env := newOrderEnv(t)
	err := env.svc.ConfirmPayment("20260101000000000000001001", "gw-x")
	if !errors.Is(err, services.ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound, got %v", err)
	}
}

func TestPaymentURL_CashOrderNotPayable(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	if err := env.store.Add(ctx, aliceID, 1, 1, true); err != nil {
		t.Fatal(err)
	}
	o, err := env.svc.Place(ctx, aliceID, aliceAddr, domain.PayMethodCash)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.PaymentURL(aliceID, o.ID); !errors.Is(err, services.ErrOrderNotPayable) {
		t.Fatalf("want ErrOrderNotPayable for cash order, got %v", err)
	}
}
