package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"minimall/internal/config"
)

// PaymentGateway signs outgoing pay-page redirects and verifies incoming
// webhook callbacks. Signatures are HMAC-SHA256 over the sorted
// "k=v&k=v" form of all parameters except "sign" itself.
type PaymentGateway struct {
	AppID      string
	Secret     string
	GatewayURL string
	ReturnURL  string
}

func NewPaymentGateway(cfg config.Config) *PaymentGateway {
	return &PaymentGateway{
		AppID:      cfg.PayAppID,
		Secret:     cfg.PaySecret,
		GatewayURL: cfg.PayGatewayURL,
		ReturnURL:  cfg.PayReturnURL,
	}
}

func (g *PaymentGateway) Sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	mac := hmac.New(sha256.New, []byte(g.Secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *PaymentGateway) Verify(params map[string]string, signature string) bool {
	want := g.Sign(params)
	return hmac.Equal([]byte(want), []byte(signature))
}

// PayURL builds the redirect the storefront sends the buyer to.
func (g *PaymentGateway) PayURL(orderID string, amount decimal.Decimal) string {
	params := map[string]string{
		"app_id":       g.AppID,
		"out_trade_no": orderID,
		"total_amount": amount.StringFixed(2),
		"subject":      "minimall order " + orderID,
		"return_url":   g.ReturnURL,
		"timestamp":    time.Now().UTC().Format("2006-01-02 15:04:05"),
	}
	sign := g.Sign(params)

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("sign", sign)
	return g.GatewayURL + "?" + q.Encode()
}
