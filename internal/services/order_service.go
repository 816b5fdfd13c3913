package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"minimall/internal/domain"
	"minimall/internal/repos"
)

var (
	ErrCartEmpty         = errors.New("no selected items in cart")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStockContention   = errors.New("stock contention, try again")
	ErrAddressNotFound   = errors.New("address not found")
	ErrInvalidPayMethod  = errors.New("invalid pay method")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotPayable   = errors.New("order not payable")
)

const placementSavepoint = "place_order"

// orderSeq disambiguates orders created by the same user within one
// second; the documented 23-char id prefix stays intact.
var orderSeq atomic.Uint64

type OrderService struct {
	Orders *repos.OrderRepo
	Skus   *repos.SkuRepo
	Users  *repos.UserRepo
	Cart   CartStore

	Freight decimal.Decimal
	Gateway *PaymentGateway

	// MaxStockRetries bounds the conditional-update retry loop per SKU.
	MaxStockRetries int
}

func NewOrderService(orders *repos.OrderRepo, skus *repos.SkuRepo, users *repos.UserRepo, cart CartStore, freight decimal.Decimal, gw *PaymentGateway) *OrderService {
	return &OrderService{
		Orders: orders, Skus: skus, Users: users, Cart: cart,
		Freight: freight, Gateway: gw,
		MaxStockRetries: 5,
	}
}

// newOrderID builds the persisted id contract: timestamp to second
// precision plus the zero-padded 9-digit user id, then a 3-digit
// process-monotonic sequence so two orders in the same second differ.
func newOrderID(userID int64, now time.Time) string {
	seq := orderSeq.Add(1) % 1000
	return now.Format("20060102150405") + fmt.Sprintf("%09d%03d", userID, seq)
}

type SettlementItem struct {
	SkuID int64           `json:"sku_id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
	Count int             `json:"count"`
}

type Settlement struct {
	Freight decimal.Decimal  `json:"freight"`
	Items   []SettlementItem `json:"skus"`
}

// Settle computes a non-committal quote for the selected cart entries.
// Read-only; the quote may be stale by the time Place runs, which
// re-validates stock on its own.
func (s *OrderService) Settle(ctx context.Context, userID int64) (Settlement, error) {
	cart, err := s.selectedCart(ctx, userID)
	if err != nil {
		return Settlement{}, err
	}

	ids := make([]int64, 0, len(cart))
	for id := range cart {
		ids = append(ids, id)
	}
	skus, err := s.Skus.ByIDs(ids)
	if err != nil {
		return Settlement{}, err
	}

	out := Settlement{Freight: s.Freight, Items: make([]SettlementItem, 0, len(skus))}
	for _, sku := range skus {
		out.Items = append(out.Items, SettlementItem{
			SkuID: sku.ID, Name: sku.Name, Price: sku.Price,
			Stock: sku.Stock, Count: cart[sku.ID],
		})
	}
	return out, nil
}

// selectedCart snapshots the cart store once: quantity hash intersected
// with the selection set. Not a transactional read; the cart store has its
// own consistency domain and Place re-validates stock per SKU.
func (s *OrderService) selectedCart(ctx context.Context, userID int64) (map[int64]int, error) {
	quantities, err := s.Cart.Quantities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read cart quantities: %w", err)
	}
	selected, err := s.Cart.SelectedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read cart selection: %w", err)
	}

	cart := make(map[int64]int, len(selected))
	for _, skuID := range selected {
		if count, ok := quantities[skuID]; ok && count > 0 {
			cart[skuID] = count
		}
	}
	return cart, nil
}

// Place converts the user's selected cart entries into a durable order.
// Stock is decremented through a conditional update retried up to
// MaxStockRetries times per SKU; any validation failure rolls back to the
// savepoint and aborts the whole placement. Cart cleanup happens after
// commit and is not atomic with it: a crash in between leaves a stale cart
// entry, an accepted eventual-consistency gap.
func (s *OrderService) Place(ctx context.Context, userID, addressID int64, payMethod string) (*domain.Order, error) {
	addr, err := s.Users.Address(userID, addressID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("load address: %w", err)
	}

	var status string
	switch payMethod {
	case domain.PayMethodCash:
		status = domain.OrderStatusUnsend
	case domain.PayMethodAlipay:
		status = domain.OrderStatusUnpaid
	default:
		return nil, ErrInvalidPayMethod
	}

	order := domain.Order{
		ID:          newOrderID(userID, time.Now()),
		UserID:      userID,
		AddressID:   addr.ID,
		Receiver:    addr.Receiver,
		AddressText: addr.Text(),
		PayMethod:   payMethod,
		Status:      status,
		TotalAmount: decimal.Zero,
		Freight:     s.Freight,
	}

	tx, err := s.Orders.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.Orders.Savepoint(tx, placementSavepoint); err != nil {
		return nil, fmt.Errorf("savepoint: %w", err)
	}

	if err := s.Orders.CreateTx(tx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	cart, err := s.selectedCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart) == 0 {
		_ = s.Orders.RollbackTo(tx, placementSavepoint)
		return nil, ErrCartEmpty
	}

	for skuID, count := range cart {
		decremented := false
		for attempt := 0; attempt < s.MaxStockRetries; attempt++ {
			sku, err := s.Skus.GetTx(tx, skuID)
			if err != nil {
				_ = s.Orders.RollbackTo(tx, placementSavepoint)
				if errors.Is(err, sql.ErrNoRows) {
					return nil, ErrSkuNotFound
				}
				return nil, fmt.Errorf("read sku %d: %w", skuID, err)
			}

			if count > sku.Stock {
				_ = s.Orders.RollbackTo(tx, placementSavepoint)
				return nil, ErrInsufficientStock
			}

			rows, err := s.Skus.DecrementStockTx(tx, skuID, sku.Stock, count)
			if err != nil {
				_ = s.Orders.RollbackTo(tx, placementSavepoint)
				return nil, fmt.Errorf("decrement sku %d: %w", skuID, err)
			}
			if rows == 0 {
				// A concurrent placement changed the row; re-read and retry.
				continue
			}

			if err := s.Skus.AddGoodsSalesTx(tx, sku.GoodsID, count); err != nil {
				_ = s.Orders.RollbackTo(tx, placementSavepoint)
				return nil, fmt.Errorf("bump goods sales: %w", err)
			}

			if err := s.Orders.InsertItemTx(tx, domain.OrderItem{
				OrderID: order.ID, SkuID: skuID, Count: count, Price: sku.Price,
			}); err != nil {
				_ = s.Orders.RollbackTo(tx, placementSavepoint)
				return nil, fmt.Errorf("insert order item: %w", err)
			}

			order.TotalCount += count
			order.TotalAmount = order.TotalAmount.Add(sku.Price.Mul(decimal.NewFromInt(int64(count))))
			decremented = true
			break
		}
		if !decremented {
			_ = s.Orders.RollbackTo(tx, placementSavepoint)
			return nil, ErrStockContention
		}
	}

	order.TotalAmount = order.TotalAmount.Add(order.Freight)
	if err := s.Orders.UpdateTotalsTx(tx, order.ID, order.TotalCount, order.TotalAmount); err != nil {
		return nil, fmt.Errorf("update totals: %w", err)
	}

	if err := s.Orders.Release(tx, placementSavepoint); err != nil {
		return nil, fmt.Errorf("release savepoint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	// Outside the relational transaction; failure leaves stale entries.
	purchased := make([]int64, 0, len(cart))
	for skuID := range cart {
		purchased = append(purchased, skuID)
	}
	if err := s.Cart.Remove(ctx, userID, purchased); err != nil {
		log.Printf("[order] cart cleanup failed for order %s: %v", order.ID, err)
	}

	return &order, nil
}

// PaymentURL builds the signed gateway redirect for an unpaid online order.
func (s *OrderService) PaymentURL(userID int64, orderID string) (string, error) {
	order, _, err := s.Orders.Get(orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrOrderNotFound
		}
		return "", err
	}
	if order.UserID != userID {
		return "", ErrOrderNotFound
	}
	if order.PayMethod != domain.PayMethodAlipay || order.Status != domain.OrderStatusUnpaid {
		return "", ErrOrderNotPayable
	}
	return s.Gateway.PayURL(order.ID, order.TotalAmount), nil
}

// ConfirmPayment transitions a verified (order_id, trade_id) pair out of
// UNPAID. Replays are no-ops: the status guard and the unique payment
// record make the operation idempotent.
func (s *OrderService) ConfirmPayment(orderID, tradeID string) error {
	if _, _, err := s.Orders.Get(orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		return err
	}
	_, err := s.Orders.ConfirmPayment(orderID, tradeID)
	return err
}
