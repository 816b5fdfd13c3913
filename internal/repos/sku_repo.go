package repos

import (
	"github.com/jmoiron/sqlx"

	"minimall/internal/domain"
)

type SkuRepo struct{ db *sqlx.DB }

func NewSkuRepo(db *sqlx.DB) *SkuRepo { return &SkuRepo{db: db} }

func (r *SkuRepo) Get(skuID int64) (*domain.SKU, error) {
	var s domain.SKU
	err := r.db.Get(&s, `SELECT id,goods_id,name,price,stock,sales FROM skus WHERE id = ?`, skuID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ByIDs loads the SKUs for a set of ids (settlement preview).
func (r *SkuRepo) ByIDs(ids []int64) ([]domain.SKU, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id,goods_id,name,price,stock,sales FROM skus WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var out []domain.SKU
	err = r.db.Select(&out, query, args...)
	return out, err
}

// GetTx re-reads a SKU inside the caller's transaction. Placement uses this
// fresh read as the expected value for the conditional decrement.
func (r *SkuRepo) GetTx(tx *sqlx.Tx, skuID int64) (*domain.SKU, error) {
	var s domain.SKU
	err := tx.Get(&s, `SELECT id,goods_id,name,price,stock,sales FROM skus WHERE id = ?`, skuID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DecrementStockTx applies the optimistic-concurrency guard: the update only
// lands if the row's stock still equals expectedStock. Zero rows affected
// signals a conflicting concurrent writer; the caller re-reads and retries.
func (r *SkuRepo) DecrementStockTx(tx *sqlx.Tx, skuID int64, expectedStock, count int) (int64, error) {
	res, err := tx.Exec(`
		UPDATE skus
		SET stock = ?, sales = sales + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock = ?
	`, expectedStock-count, count, skuID, expectedStock)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AddGoodsSalesTx bumps the parent aggregate's sales counter. Deliberately
// unconditional: the counter is display-only and tolerates lost updates.
func (r *SkuRepo) AddGoodsSalesTx(tx *sqlx.Tx, goodsID int64, count int) error {
	_, err := tx.Exec(`UPDATE goods SET sales = sales + ? WHERE id = ?`, count, goodsID)
	return err
}

// Stock returns the current stock for one SKU (availability endpoint).
func (r *SkuRepo) Stock(skuID int64) (int, error) {
	var qty int
	err := r.db.Get(&qty, `SELECT stock FROM skus WHERE id = ?`, skuID)
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// SetStock overwrites the stock level (admin back office).
func (r *SkuRepo) SetStock(skuID int64, qty int) error {
	_, err := r.db.Exec(`UPDATE skus SET stock = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, qty, skuID)
	return err
}

// Row used by admin inventory pages
type InventoryRow struct {
	SkuID int64  `db:"id" json:"sku_id"`
	Name  string `db:"name" json:"name"`
	Stock int    `db:"stock" json:"stock"`
	Sales int    `db:"sales" json:"sales"`
}

func (r *SkuRepo) ListInventory() ([]InventoryRow, error) {
	var rows []InventoryRow
	err := r.db.Select(&rows, `SELECT id, name, stock, sales FROM skus ORDER BY name`)
	return rows, err
}
