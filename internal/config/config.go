package config

import (
	"log"
	"os"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port          string
	DBDSN         string
	RedisAddr     string
	LogFile       string
	Freight       decimal.Decimal
	PayAppID      string
	PaySecret     string
	PayGatewayURL string
	PayReturnURL  string
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "minimall.db"
	} // sqlite file in project root
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "./minimall.log"
	}

	freight, err := decimal.NewFromString(os.Getenv("FREIGHT"))
	if err != nil || freight.IsNegative() {
		freight = decimal.RequireFromString("10.00")
	}

	appID := os.Getenv("PAY_APP_ID")
	if appID == "" {
		appID = "minimall-dev"
	}
	secret := os.Getenv("PAY_SECRET")
	if secret == "" {
		secret = "dev-only-secret"
	}
	gateway := os.Getenv("PAY_GATEWAY_URL")
	if gateway == "" {
		gateway = "https://sandbox.pay.example.com/gateway.do"
	}
	returnURL := os.Getenv("PAY_RETURN_URL")
	if returnURL == "" {
		returnURL = "http://localhost:8080/pay_success"
	}

	cfg := Config{
		Port: port, DBDSN: dsn, RedisAddr: redisAddr, LogFile: logFile,
		Freight: freight, PayAppID: appID, PaySecret: secret,
		PayGatewayURL: gateway, PayReturnURL: returnURL,
	}
	log.Printf("[config] PORT=%s DB_DSN=%s REDIS_ADDR=%s FREIGHT=%s", cfg.Port, cfg.DBDSN, cfg.RedisAddr, cfg.Freight)
	return cfg
}
