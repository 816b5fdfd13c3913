package domain

import "github.com/shopspring/decimal"

// Goods is the product aggregate (SPU). Its sales counter is advisory,
// display-only, and tolerates lost updates.
type Goods struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Sales int64  `db:"sales"`
}

// SKU is a purchasable variant and the unit of stock tracking.
type SKU struct {
	ID      int64           `db:"id"`
	GoodsID int64           `db:"goods_id"`
	Name    string          `db:"name"`
	Price   decimal.Decimal `db:"price"`
	Stock   int             `db:"stock"`
	Sales   int             `db:"sales"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty,omitempty"`
}
