package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"

	"stream-wallet-engine/config"
	"stream-wallet-engine/internal/core/domain"
	"stream-wallet-engine/internal/core/ports"
	"stream-wallet-engine/pkg/apperror"
)

const momoSuccessCode = "0"

// MoMoAdapter implements ports.ProviderAdapter for the MoMo wallet gateway.
// MoMo signs a fixed-order key=value string with HMAC-SHA256; unlike VNPay
// the field order is dictated by the protocol, not sorted.
type MoMoAdapter struct {
	cfg config.MoMoConfig
}

// NewMoMoAdapter creates a MoMo adapter.
func NewMoMoAdapter(cfg config.MoMoConfig) *MoMoAdapter {
	return &MoMoAdapter{cfg: cfg}
}

func (a *MoMoAdapter) Name() string { return "momo" }

// BuildRedirectURL constructs the signed pay URL. The transaction id is both
// orderId and requestId so the callback can be correlated without extra state.
func (a *MoMoAdapter) BuildRedirectURL(tx *domain.Transaction) (string, error) {
	orderID := tx.ID.String()
	amount := strconv.FormatInt(tx.Amount, 10)

	raw := fmt.Sprintf(
		"accessKey=%s&amount=%s&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		a.cfg.AccessKey, amount, "", a.cfg.NotifyURL, orderID, tx.Description,
		a.cfg.PartnerCode, a.cfg.ReturnURL, orderID, "captureWallet",
	)
	sig := momoSign(a.cfg.SecretKey, raw)

	q := url.Values{}
	q.Set("partnerCode", a.cfg.PartnerCode)
	q.Set("accessKey", a.cfg.AccessKey)
	q.Set("requestId", orderID)
	q.Set("amount", amount)
	q.Set("orderId", orderID)
	q.Set("orderInfo", tx.Description)
	q.Set("redirectUrl", a.cfg.ReturnURL)
	q.Set("ipnUrl", a.cfg.NotifyURL)
	q.Set("requestType", "captureWallet")
	q.Set("signature", sig)

	return a.cfg.Endpoint + "?" + q.Encode(), nil
}

// VerifyCallback recomputes the IPN signature over MoMo's fixed field order.
func (a *MoMoAdapter) VerifyCallback(params map[string]string) (*ports.CallbackResult, error) {
	received := params["signature"]
	if received == "" {
		return nil, apperror.ErrSignatureInvalid()
	}

	raw := fmt.Sprintf(
		"accessKey=%s&amount=%s&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%s&resultCode=%s&transId=%s",
		a.cfg.AccessKey, params["amount"], params["extraData"], params["message"],
		params["orderId"], params["orderInfo"], params["orderType"], params["partnerCode"],
		params["payType"], params["requestId"], params["responseTime"],
		params["resultCode"], params["transId"],
	)
	expected := momoSign(a.cfg.SecretKey, raw)
	if !hmac.Equal([]byte(expected), []byte(received)) {
		return nil, apperror.ErrSignatureInvalid()
	}

	amount, err := strconv.ParseInt(params["amount"], 10, 64)
	if err != nil {
		return nil, apperror.Validation("malformed amount")
	}

	code := params["resultCode"]
	return &ports.CallbackResult{
		OrderID:      params["orderId"],
		ProviderTxID: params["transId"],
		Success:      code == momoSuccessCode,
		Amount:       amount,
		ResponseCode: code,
	}, nil
}

func momoSign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
