package repos

import (
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"minimall/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// Begin opens the transaction the placement workflow runs in.
func (r *OrderRepo) Begin() (*sqlx.Tx, error) { return r.db.Beginx() }

// Savepoint / RollbackTo / Release wrap the named rollback checkpoint so
// partial placement work can be undone without aborting the transaction.
func (r *OrderRepo) Savepoint(tx *sqlx.Tx, name string) error {
	_, err := tx.Exec(`SAVEPOINT ` + name)
	return err
}

func (r *OrderRepo) RollbackTo(tx *sqlx.Tx, name string) error {
	_, err := tx.Exec(`ROLLBACK TO SAVEPOINT ` + name)
	return err
}

func (r *OrderRepo) Release(tx *sqlx.Tx, name string) error {
	_, err := tx.Exec(`RELEASE SAVEPOINT ` + name)
	return err
}

// CreateTx inserts the order header with zero totals.
func (r *OrderRepo) CreateTx(tx *sqlx.Tx, o domain.Order) error {
	_, err := tx.Exec(`
	  INSERT INTO orders
	    (id, user_id, address_id, receiver, address_text, pay_method, status, total_count, total_amount, freight, created_at)
	  VALUES
	    (?,  ?,       ?,          ?,        ?,            ?,          ?,      ?,           ?,            ?,       CURRENT_TIMESTAMP)
	`, o.ID, o.UserID, o.AddressID, o.Receiver, o.AddressText, o.PayMethod, o.Status, o.TotalCount, o.TotalAmount, o.Freight)
	return err
}

// InsertItemTx inserts a single line item at the snapshotted price.
func (r *OrderRepo) InsertItemTx(tx *sqlx.Tx, it domain.OrderItem) error {
	_, err := tx.Exec(`
	  INSERT INTO order_items(order_id, sku_id, count, price)
	  VALUES(?, ?, ?, ?)
	`, it.OrderID, it.SkuID, it.Count, it.Price)
	return err
}

// UpdateTotalsTx persists the accumulated totals onto the header.
func (r *OrderRepo) UpdateTotalsTx(tx *sqlx.Tx, orderID string, totalCount int, totalAmount decimal.Decimal) error {
	_, err := tx.Exec(`UPDATE orders SET total_count = ?, total_amount = ? WHERE id = ?`,
		totalCount, totalAmount, orderID)
	return err
}

// ---------- Order detail (used by /orders/:id) ----------

type OrderItemRow struct {
	SkuID    int64           `db:"sku_id" json:"sku_id"`
	Name     string          `db:"name" json:"name"`
	Count    int             `db:"count" json:"count"`
	Price    decimal.Decimal `db:"price" json:"price"`
	Subtotal decimal.Decimal `db:"subtotal" json:"subtotal"`
}

func (r *OrderRepo) Get(orderID string) (domain.Order, []OrderItemRow, error) {
	var o domain.Order
	if err := r.db.Get(&o, `
		SELECT id, user_id, address_id, receiver, address_text, pay_method, status,
		       total_count, total_amount, freight, created_at
		FROM orders WHERE id = ?
	`, orderID); err != nil {
		return domain.Order{}, nil, err
	}

	var items []OrderItemRow
	if err := r.db.Select(&items, `
		SELECT oi.sku_id, s.name, oi.count, oi.price, (oi.count * oi.price) AS subtotal
		FROM order_items oi
		JOIN skus s ON s.id = oi.sku_id
		WHERE oi.order_id = ?
		ORDER BY s.name
	`, orderID); err != nil {
		return domain.Order{}, nil, err
	}

	return o, items, nil
}

func (r *OrderRepo) ListByUser(userID int64) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, `
		SELECT id, user_id, address_id, receiver, address_text, pay_method, status,
		       total_count, total_amount, freight, created_at
		FROM orders
		WHERE user_id = ?
		ORDER BY datetime(created_at) DESC, id DESC
	`, userID)
	return out, err
}

func (r *OrderRepo) ListLatest(limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Order
	err := r.db.Select(&out, `
		SELECT id, user_id, address_id, receiver, address_text, pay_method, status,
		       total_count, total_amount, freight, created_at
		FROM orders
		ORDER BY datetime(created_at) DESC, id DESC
		LIMIT ?
	`, limit)
	return out, err
}

func (r *OrderRepo) UpdateStatus(orderID, status string) error {
	_, err := r.db.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, orderID)
	return err
}

// ConfirmPayment records the gateway trade id and transitions the order out
// of UNPAID. Both writes are idempotent: the payment insert is ignored on
// replay and the status update is guarded on status=UNPAID, so replaying a
// confirmation changes nothing. Returns whether this call did the transition.
func (r *OrderRepo) ConfirmPayment(orderID, tradeID string) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO payments(order_id, trade_id) VALUES(?, ?)
		ON CONFLICT(order_id) DO NOTHING
	`, orderID, tradeID); err != nil {
		return false, err
	}

	res, err := tx.Exec(`
		UPDATE orders SET status = ? WHERE id = ? AND status = ?
	`, domain.OrderStatusUncomment, orderID, domain.OrderStatusUnpaid)
	if err != nil {
		return false, err
	}
	rows, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return rows > 0, nil
}

// PaymentCount reports how many payment records exist for an order.
func (r *OrderRepo) PaymentCount(orderID string) (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM payments WHERE order_id = ?`, orderID)
	return n, err
}
