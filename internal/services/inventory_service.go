package services

import (
	"database/sql"
	"errors"

	"minimall/internal/domain"
	"minimall/internal/repos"
)

type InventoryService struct {
	Skus *repos.SkuRepo
}

func NewInventoryService(skus *repos.SkuRepo) *InventoryService {
	return &InventoryService{Skus: skus}
}

// CheckAvailability converts stock into IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) CheckAvailability(skuID int64) (domain.Availability, error) {
	qty, err := s.Skus.Stock(skuID)
	if err != nil {
		// If no such SKU exists, treat as 0.
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Availability{Status: "OUT_OF_STOCK", Qty: 0}, nil
		}
		return domain.Availability{}, err
	}

	status := "OUT_OF_STOCK"
	switch {
	case qty >= 5:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}, nil
}
