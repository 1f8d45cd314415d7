// Package vnpay implements the card style gateway client. Checkout is a
// locally-built signed URL to the hosted payment page; status queries and
// refunds are JSON calls to the merchant API. The IPN arrives as vnp_* query
// parameters with an inline vnp_SecureHash.
package vnpay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maian3333/ridehub-ms-booking/internal/models"
	"github.com/maian3333/ridehub-ms-booking/pkg/gateway"
	"github.com/maian3333/ridehub-ms-booking/pkg/gateway/signature"
	"github.com/shopspring/decimal"
)

// DateFormat is the gateway's native timestamp layout. Refund and query calls
// must echo the original transaction's creation timestamp in exactly this
// fixed-length form.
const DateFormat = "20060102150405"

// gatewayZone is the gateway's reference timezone (UTC+7).
var gatewayZone = time.FixedZone("ICT", 7*60*60)

// signedFields is the alphabetically ordered union of every field the gateway
// may include in a signed request or IPN. The codec skips absent fields, so
// the one list serves checkout, query, refund and verification.
var signedFields = []string{
	"vnp_Amount",
	"vnp_BankCode",
	"vnp_BankTranNo",
	"vnp_CardType",
	"vnp_Command",
	"vnp_CreateBy",
	"vnp_CreateDate",
	"vnp_CurrCode",
	"vnp_ExpireDate",
	"vnp_IpAddr",
	"vnp_Locale",
	"vnp_OrderInfo",
	"vnp_OrderType",
	"vnp_PayDate",
	"vnp_RequestId",
	"vnp_ResponseCode",
	"vnp_ReturnUrl",
	"vnp_TmnCode",
	"vnp_TransactionDate",
	"vnp_TransactionNo",
	"vnp_TransactionStatus",
	"vnp_TransactionType",
	"vnp_TxnRef",
	"vnp_Version",
}

type Config struct {
	TmnCode        string        `yaml:"VNPAY_TMN_CODE" env:"VNPAY_TMN_CODE"`
	HashSecret     string        `yaml:"VNPAY_HASH_SECRET" env:"VNPAY_HASH_SECRET"`
	PayURL         string        `yaml:"VNPAY_PAY_URL" env:"VNPAY_PAY_URL" env-default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	APIURL         string        `yaml:"VNPAY_API_URL" env:"VNPAY_API_URL" env-default:"https://sandbox.vnpayment.vn/merchant_webapi/api/transaction"`
	ReturnURL      string        `yaml:"VNPAY_RETURN_URL" env:"VNPAY_RETURN_URL"`
	ReturnFEURL    string        `yaml:"VNPAY_RETURN_FE_URL" env:"VNPAY_RETURN_FE_URL"`
	ConnectTimeout time.Duration `yaml:"VNPAY_CONNECT_TIMEOUT" env:"VNPAY_CONNECT_TIMEOUT" env-default:"30s"`
	RequestTimeout time.Duration `yaml:"VNPAY_REQUEST_TIMEOUT" env:"VNPAY_REQUEST_TIMEOUT" env-default:"45s"`
	MaxRetries     int           `yaml:"VNPAY_MAX_RETRIES" env:"VNPAY_MAX_RETRIES" env-default:"3"`
	RetryDelay     time.Duration `yaml:"VNPAY_RETRY_DELAY" env:"VNPAY_RETRY_DELAY" env-default:"2s"`
}

type Client struct {
	cfg   Config
	codec signature.Codec
	hc    *http.Client
	now   func() time.Time
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		codec: signature.Codec{
			Fields:    signedFields,
			Delimiter: "&",
			Encoding:  signature.EncodingHex,
		},
		hc:  gateway.NewHTTPClient(cfg.ConnectTimeout, cfg.RequestTimeout),
		now: time.Now,
	}
}

func (c *Client) Kind() models.PaymentMethod {
	return models.PaymentMethodVNPay
}

func (c *Client) retryPolicy() gateway.RetryPolicy {
	return gateway.RetryPolicy{MaxAttempts: c.cfg.MaxRetries, Delay: c.cfg.RetryDelay}
}

// InitiateCheckout builds the signed hosted-payment URL. No network round trip
// is involved; the gateway validates the signature when the user lands on it.
func (c *Client) InitiateCheckout(_ context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	createDate := c.now().In(gatewayZone).Format(DateFormat)
	expireDate := c.now().In(gatewayZone).Add(15 * time.Minute).Format(DateFormat)

	returnURL := c.cfg.ReturnURL
	if req.ReturnURL != "" {
		returnURL = req.ReturnURL
	}

	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    c.cfg.TmnCode,
		"vnp_Amount":     req.Amount.Mul(decimal.NewFromInt(100)).StringFixed(0),
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     req.TransactionID,
		"vnp_OrderInfo":  "Payment for booking: " + req.OrderRef,
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  returnURL,
		"vnp_IpAddr":     req.IPAddress,
		"vnp_CreateDate": createDate,
		"vnp_ExpireDate": expireDate,
	}

	secureHash := c.codec.Sign(params, c.cfg.HashSecret)

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("vnp_SecureHash", secureHash)

	return &gateway.CheckoutSession{
		TransactionID:     req.TransactionID,
		CheckoutURL:       c.cfg.PayURL + "?" + query.Encode(),
		GatewayCreateDate: createDate,
	}, nil
}

// QueryStatus asks the merchant API for the authoritative transaction state
// and normalizes the reply into the webhook event shape, so reconciliation can
// feed it back through the same path as a real IPN.
func (c *Client) QueryStatus(ctx context.Context, txn *models.PaymentTransaction) (*models.GatewayEvent, error) {
	if len(txn.GatewayCreateDate) != len(DateFormat) {
		return nil, gateway.ErrInvalidRefundDate
	}

	params := map[string]string{
		"vnp_RequestId":       uuid.NewString(),
		"vnp_Version":         "2.1.0",
		"vnp_Command":         "querydr",
		"vnp_TmnCode":         c.cfg.TmnCode,
		"vnp_TxnRef":          txn.TransactionID,
		"vnp_OrderInfo":       "Query transaction: " + txn.TransactionID,
		"vnp_TransactionDate": txn.GatewayCreateDate,
		"vnp_CreateDate":      c.now().In(gatewayZone).Format(DateFormat),
		"vnp_IpAddr":          "127.0.0.1",
	}
	params["vnp_SecureHash"] = c.codec.Sign(params, c.cfg.HashSecret)

	body, err := c.postAPI(ctx, params)
	if err != nil {
		return nil, err
	}

	responseCode := body["vnp_ResponseCode"]
	if responseCode != "00" {
		return nil, fmt.Errorf("%w: query declined with code %s", gateway.ErrGatewayRejected, responseCode)
	}

	outcome := models.EventOutcomeFailed
	if body["vnp_TransactionStatus"] == "00" {
		outcome = models.EventOutcomeSuccess
	}

	var amount *decimal.Decimal
	if raw := body["vnp_Amount"]; raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad vnp_Amount %q", gateway.ErrMalformedPayload, raw)
		}
		units := parsed.Div(decimal.NewFromInt(100))
		amount = &units
	}

	return &models.GatewayEvent{
		TransactionID: body["vnp_TxnRef"],
		OrderRef:      body["vnp_OrderInfo"],
		Outcome:       outcome,
		Amount:        amount,
		Raw:           body,
	}, nil
}

// Refund issues a refund command. The original transaction's gateway creation
// timestamp is validated locally first: absent or malformed input refuses the
// call before any network I/O.
func (c *Client) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	if !validGatewayDate(req.OriginalCreateDate) {
		return nil, gateway.ErrInvalidRefundDate
	}

	transactionType := req.TransactionType
	if transactionType == "" {
		transactionType = "02"
	}

	params := map[string]string{
		"vnp_RequestId":       uuid.NewString(),
		"vnp_Version":         "2.1.0",
		"vnp_Command":         "refund",
		"vnp_TmnCode":         c.cfg.TmnCode,
		"vnp_TransactionType": transactionType,
		"vnp_TxnRef":          req.TransactionID,
		"vnp_Amount":          req.Amount.Mul(decimal.NewFromInt(100)).StringFixed(0),
		"vnp_OrderInfo":       req.OrderInfo,
		"vnp_TransactionDate": req.OriginalCreateDate,
		"vnp_CreateBy":        "system",
		"vnp_CreateDate":      c.now().In(gatewayZone).Format(DateFormat),
		"vnp_IpAddr":          req.IPAddress,
	}
	params["vnp_SecureHash"] = c.codec.Sign(params, c.cfg.HashSecret)

	body, err := c.postAPI(ctx, params)
	if err != nil {
		return nil, err
	}

	responseCode := body["vnp_ResponseCode"]
	result := &gateway.RefundResult{
		Success:           responseCode == "00",
		ResponseCode:      responseCode,
		Message:           body["vnp_Message"],
		TransactionNo:     body["vnp_TransactionNo"],
		TransactionType:   transactionType,
		TransactionStatus: body["vnp_TransactionStatus"],
	}

	if !result.Success {
		return result, fmt.Errorf("%w: refund declined with code %s", gateway.ErrGatewayRejected, responseCode)
	}

	return result, nil
}

// VerifyWebhook validates the inline vnp_SecureHash of an IPN query string.
// The detached signature argument is unused: this gateway always signs inline.
func (c *Client) VerifyWebhook(payload []byte, _ string) bool {
	params, err := parseQueryParams(string(payload))
	if err != nil {
		return false
	}

	return c.verifyInline(params)
}

func (c *Client) VerifyCallback(params map[string]string) gateway.CallbackResult {
	if !c.verifyInline(params) {
		return gateway.CallbackResult{Valid: false, Message: "Invalid signature"}
	}

	status := "FAILED"
	message := "Payment failed: " + params["vnp_ResponseCode"]
	if params["vnp_ResponseCode"] == "00" && params["vnp_TransactionStatus"] == "00" {
		status = "SUCCESS"
		message = "Payment successful"
	}

	return gateway.CallbackResult{
		Valid:         true,
		TransactionID: params["vnp_TxnRef"],
		Status:        status,
		Message:       message,
	}
}

// ParseWebhook normalizes the vnp_* IPN parameters. Success requires the
// response code and the transaction status to both read "00".
func (c *Client) ParseWebhook(payload []byte) (*models.GatewayEvent, error) {
	params, err := parseQueryParams(string(payload))
	if err != nil {
		return nil, err
	}

	txnID := params["vnp_TxnRef"]
	if txnID == "" {
		return nil, fmt.Errorf("%w: missing vnp_TxnRef", gateway.ErrMalformedPayload)
	}

	outcome := models.EventOutcomeFailed
	if params["vnp_ResponseCode"] == "00" && params["vnp_TransactionStatus"] == "00" {
		outcome = models.EventOutcomeSuccess
	}

	// vnp_Amount is declared in hundredths of the currency unit.
	var amount *decimal.Decimal
	if raw := params["vnp_Amount"]; raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad vnp_Amount %q", gateway.ErrMalformedPayload, raw)
		}
		units := parsed.Div(decimal.NewFromInt(100))
		amount = &units
	}

	return &models.GatewayEvent{
		TransactionID: txnID,
		OrderRef:      params["vnp_OrderInfo"],
		Outcome:       outcome,
		Amount:        amount,
		Raw:           params,
	}, nil
}

func (c *Client) verifyInline(params map[string]string) bool {
	provided := params["vnp_SecureHash"]

	rest := make(map[string]string, len(params))
	for k, v := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		rest[k] = v
	}

	return c.codec.Verify(rest, c.cfg.HashSecret, provided)
}

func (c *Client) postAPI(ctx context.Context, params map[string]string) (map[string]string, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	resp, err := gateway.DoWithRetry(c.hc, c.retryPolicy(), func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, strings.NewReader(string(payload)))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading gateway API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gateway API returned HTTP %d", gateway.ErrGatewayRejected, resp.StatusCode)
	}

	var body map[string]string
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrMalformedPayload, err)
	}

	return body, nil
}

func parseQueryParams(query string) (map[string]string, error) {
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrMalformedPayload, err)
	}

	params := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	return params, nil
}

// validGatewayDate checks the fixed-length native timestamp format before any
// refund call leaves the process.
func validGatewayDate(value string) bool {
	if len(value) != len(DateFormat) {
		return false
	}

	_, err := time.Parse(DateFormat, value)

	return err == nil
}
