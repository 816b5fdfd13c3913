package domain

import "github.com/shopspring/decimal"

const (
	OrderStatusUnpaid     = "UNPAID"
	OrderStatusUnsend     = "UNSEND"
	OrderStatusUnreceived = "UNRECEIVED"
	OrderStatusUncomment  = "UNCOMMENT"
	OrderStatusFinished   = "FINISHED"
	OrderStatusCanceled   = "CANCELED"
)

const (
	PayMethodCash   = "CASH"
	PayMethodAlipay = "ALIPAY"
)

// Order is the header row; line items are immutable once placed.
type Order struct {
	ID          string          `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	AddressID   int64           `db:"address_id" json:"address_id"`
	Receiver    string          `db:"receiver" json:"receiver"`
	AddressText string          `db:"address_text" json:"address_text"`
	PayMethod   string          `db:"pay_method" json:"pay_method"`
	Status      string          `db:"status" json:"status"`
	TotalCount  int             `db:"total_count" json:"total_count"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Freight     decimal.Decimal `db:"freight" json:"freight"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
}

type OrderItem struct {
	OrderID string          `db:"order_id" json:"order_id"`
	SkuID   int64           `db:"sku_id" json:"sku_id"`
	Count   int             `db:"count" json:"count"`
	Price   decimal.Decimal `db:"price" json:"price"` // snapshot at purchase time
}
