package services

import "context"

// CartStore is the key-value cart system the order workflow reads and
// mutates at transaction boundaries. It lives outside the relational
// consistency domain; see OrderService.Place for the implications.
type CartStore interface {
	Add(ctx context.Context, userID, skuID int64, count int, selected bool) error
	Update(ctx context.Context, userID, skuID int64, count int, selected bool) error
	Quantities(ctx context.Context, userID int64) (map[int64]int, error)
	SelectedIDs(ctx context.Context, userID int64) ([]int64, error)
	Remove(ctx context.Context, userID int64, skuIDs []int64) error
}
