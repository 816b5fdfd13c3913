package services_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"minimall/internal/services"
)

func TestGateway_SignAndVerify(t *testing.T) {
	gw := services.NewPaymentGateway(testGatewayConfig())

	params := map[string]string{
		"out_trade_no": "20260101120000000000001001",
		"trade_no":     "gw-trade-001",
		"total_amount": "655.00",
	}
	sig := gw.Sign(params)
	if sig == "" {
		t.Fatal("empty signature")
	}
	if sig != gw.Sign(params) {
		t.Fatal("signature not deterministic")
	}
	if !gw.Verify(params, sig) {
		t.Fatal("signature should verify")
	}

	// the sign key itself never participates
	withSign := map[string]string{"sign": "garbage"}
	for k, v := range params {
		withSign[k] = v
	}
	if gw.Sign(withSign) != sig {
		t.Fatal("sign param must be excluded from the digest")
	}

	// tampering any value breaks verification
	params["total_amount"] = "0.01"
	if gw.Verify(params, sig) {
		t.Fatal("tampered params should not verify")
	}
}

func TestGateway_PayURL(t *testing.T) {
	gw := services.NewPaymentGateway(testGatewayConfig())

	raw := gw.PayURL("20260101120000000000001001", decimal.RequireFromString("655.00"))
	if !strings.HasPrefix(raw, "https://pay.test/gateway.do?") {
		t.Fatalf("unexpected url: %s", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("out_trade_no") != "20260101120000000000001001" {
		t.Fatalf("bad out_trade_no: %s", q.Get("out_trade_no"))
	}
	if q.Get("total_amount") != "655.00" {
		t.Fatalf("bad total_amount: %s", q.Get("total_amount"))
	}

	// the embedded signature must verify against the other params
	params := map[string]string{}
	for k := range q {
		if k != "sign" {
			params[k] = q.Get(k)
		}
	}
	if !gw.Verify(params, q.Get("sign")) {
		t.Fatal("pay url signature should verify")
	}
}
