package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"minimall/internal/repos"
)

var ErrSkuNotFound = errors.New("sku not found")

type CartService struct {
	Store CartStore
	Skus  *repos.SkuRepo
}

func NewCartService(store CartStore, skus *repos.SkuRepo) *CartService {
	return &CartService{Store: store, Skus: skus}
}

func (s *CartService) Add(ctx context.Context, userID, skuID int64, count int, selected bool) error {
	if count < 1 {
		count = 1
	}
	if _, err := s.Skus.Get(skuID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSkuNotFound
		}
		return err
	}
	return s.Store.Add(ctx, userID, skuID, count, selected)
}

func (s *CartService) Update(ctx context.Context, userID, skuID int64, count int, selected bool) error {
	if count < 1 {
		return s.Store.Remove(ctx, userID, []int64{skuID})
	}
	if _, err := s.Skus.Get(skuID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSkuNotFound
		}
		return err
	}
	return s.Store.Update(ctx, userID, skuID, count, selected)
}

func (s *CartService) Remove(ctx context.Context, userID int64, skuIDs []int64) error {
	return s.Store.Remove(ctx, userID, skuIDs)
}

type CartItemView struct {
	SkuID    int64           `json:"sku_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Count    int             `json:"count"`
	Selected bool            `json:"selected"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	Items []CartItemView  `json:"items"`
	Total decimal.Decimal `json:"total"` // selected entries only
}

func (s *CartService) View(ctx context.Context, userID int64) (CartView, error) {
	quantities, err := s.Store.Quantities(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	selectedIDs, err := s.Store.SelectedIDs(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	selected := make(map[int64]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = true
	}

	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	skus, err := s.Skus.ByIDs(ids)
	if err != nil {
		return CartView{}, err
	}

	view := CartView{Items: make([]CartItemView, 0, len(skus)), Total: decimal.Zero}
	for _, sku := range skus {
		count := quantities[sku.ID]
		sub := sku.Price.Mul(decimal.NewFromInt(int64(count)))
		item := CartItemView{
			SkuID: sku.ID, Name: sku.Name, Price: sku.Price,
			Count: count, Selected: selected[sku.ID], Subtotal: sub,
		}
		if item.Selected {
			view.Total = view.Total.Add(sub)
		}
		view.Items = append(view.Items, item)
	}
	return view, nil
}
