package handlers

import (
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"minimall/internal/config"
	"minimall/internal/repos"
	"minimall/internal/services"
)

type Deps struct {
	AuthHandler      *AuthHandler
	CartHandler      *CartHandler
	OrderHandler     *OrderHandler
	PaymentHandler   *PaymentHandler
	InventoryHandler *InventoryHandler
	AdminHandler     *AdminHandler
}

func NewDeps(db *sqlx.DB, rdb *redis.Client, cfg config.Config, auth *services.AuthService) *Deps {
	userRepo := repos.NewUserRepo(db)
	skuRepo := repos.NewSkuRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	cartStore := repos.NewRedisCartStore(rdb)

	gateway := services.NewPaymentGateway(cfg)
	cartSvc := services.NewCartService(cartStore, skuRepo)
	invSvc := services.NewInventoryService(skuRepo)
	orderSvc := services.NewOrderService(orderRepo, skuRepo, userRepo, cartStore, cfg.Freight, gateway)

	return &Deps{
		AuthHandler:      &AuthHandler{Auth: auth, Users: userRepo},
		CartHandler:      &CartHandler{Cart: cartSvc},
		OrderHandler:     &OrderHandler{Order: orderSvc, Repo: orderRepo},
		PaymentHandler:   &PaymentHandler{Order: orderSvc, Gateway: gateway},
		InventoryHandler: &InventoryHandler{Inv: invSvc},
		AdminHandler:     &AdminHandler{Orders: orderRepo, Skus: skuRepo},
	}
}
