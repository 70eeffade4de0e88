package provider

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"stream-wallet-engine/config"
	"stream-wallet-engine/internal/core/domain"
	"stream-wallet-engine/internal/core/ports"
	"stream-wallet-engine/pkg/apperror"
)

const (
	vnpayVersion     = "2.1.0"
	vnpayCommand     = "pay"
	vnpayCurrency    = "VND"
	vnpaySuccessCode = "00"
	vnpayDateLayout  = "20060102150405"
)

// VNPayAdapter implements ports.ProviderAdapter for the VNPay gateway.
// VNPay signs the sorted, URL-encoded query string with HMAC-SHA512 and
// reports amounts multiplied by 100.
type VNPayAdapter struct {
	cfg config.VNPayConfig
	now func() time.Time
}

// NewVNPayAdapter creates a VNPay adapter.
func NewVNPayAdapter(cfg config.VNPayConfig) *VNPayAdapter {
	return &VNPayAdapter{cfg: cfg, now: time.Now}
}

func (a *VNPayAdapter) Name() string { return "vnpay" }

// BuildRedirectURL constructs the signed pay URL the client is redirected to.
// The transaction id rides along as vnp_TxnRef and comes back on the callback.
func (a *VNPayAdapter) BuildRedirectURL(tx *domain.Transaction) (string, error) {
	params := map[string]string{
		"vnp_Version":    vnpayVersion,
		"vnp_Command":    vnpayCommand,
		"vnp_TmnCode":    a.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(tx.Amount*100, 10),
		"vnp_CurrCode":   vnpayCurrency,
		"vnp_TxnRef":     tx.ID.String(),
		"vnp_OrderInfo":  tx.Description,
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  a.cfg.ReturnURL,
		"vnp_CreateDate": a.now().Format(vnpayDateLayout),
	}

	query := vnpayCanonicalQuery(params)
	sig := vnpaySign(a.cfg.HashSecret, query)
	return fmt.Sprintf("%s?%s&vnp_SecureHash=%s", a.cfg.PayURL, query, sig), nil
}

// VerifyCallback recomputes the secure hash over every vnp_ param except the
// hash fields themselves and rejects on mismatch before reading anything else.
func (a *VNPayAdapter) VerifyCallback(params map[string]string) (*ports.CallbackResult, error) {
	received := params["vnp_SecureHash"]
	if received == "" {
		return nil, apperror.ErrSignatureInvalid()
	}

	signed := make(map[string]string, len(params))
	for k, v := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		signed[k] = v
	}

	expected := vnpaySign(a.cfg.HashSecret, vnpayCanonicalQuery(signed))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(received))) {
		return nil, apperror.ErrSignatureInvalid()
	}

	amount, err := strconv.ParseInt(params["vnp_Amount"], 10, 64)
	if err != nil {
		return nil, apperror.Validation("malformed vnp_Amount")
	}

	code := params["vnp_ResponseCode"]
	return &ports.CallbackResult{
		OrderID:      params["vnp_TxnRef"],
		ProviderTxID: params["vnp_TransactionNo"],
		Success:      code == vnpaySuccessCode,
		Amount:       amount / 100,
		ResponseCode: code,
	}, nil
}

// vnpayCanonicalQuery sorts keys and URL-encodes values the way VNPay does
// (query escaping, spaces as '+').
func vnpayCanonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if params[k] == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

func vnpaySign(secret, payload string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
