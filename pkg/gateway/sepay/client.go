// Package sepay implements the bank-transfer style gateway client. Checkout
// initiation is a signed form POST whose final redirect is the hosted payment
// page; queries and refunds go through the merchant API with basic auth.
package sepay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maian3333/ridehub-ms-booking/internal/models"
	"github.com/maian3333/ridehub-ms-booking/pkg/gateway"
	"github.com/maian3333/ridehub-ms-booking/pkg/gateway/signature"
)

// signedFields is the ordered field subset SePay signs, per its checkout
// documentation. Order matters; absent fields are skipped by the codec.
var signedFields = []string{
	"merchant",
	"operation",
	"payment_method",
	"order_amount",
	"currency",
	"order_invoice_number",
	"order_description",
	"customer_id",
	"success_url",
	"error_url",
	"cancel_url",
}

type Config struct {
	MerchantID     string        `yaml:"SEPAY_MERCHANT_ID" env:"SEPAY_MERCHANT_ID"`
	SecretKey      string        `yaml:"SEPAY_SECRET_KEY" env:"SEPAY_SECRET_KEY"`
	APIBaseURL     string        `yaml:"SEPAY_API_BASE_URL" env:"SEPAY_API_BASE_URL" env-default:"https://pgapi-sandbox.sepay.vn"`
	InitURL        string        `yaml:"SEPAY_INIT_URL" env:"SEPAY_INIT_URL" env-default:"https://pay-sandbox.sepay.vn/v1/checkout/init"`
	SuccessURL     string        `yaml:"SEPAY_SUCCESS_URL" env:"SEPAY_SUCCESS_URL"`
	ErrorURL       string        `yaml:"SEPAY_ERROR_URL" env:"SEPAY_ERROR_URL"`
	CancelURL      string        `yaml:"SEPAY_CANCEL_URL" env:"SEPAY_CANCEL_URL"`
	ReturnFEURL    string        `yaml:"SEPAY_RETURN_FE_URL" env:"SEPAY_RETURN_FE_URL"`
	ConnectTimeout time.Duration `yaml:"SEPAY_CONNECT_TIMEOUT" env:"SEPAY_CONNECT_TIMEOUT" env-default:"30s"`
	RequestTimeout time.Duration `yaml:"SEPAY_REQUEST_TIMEOUT" env:"SEPAY_REQUEST_TIMEOUT" env-default:"45s"`
	MaxRetries     int           `yaml:"SEPAY_MAX_RETRIES" env:"SEPAY_MAX_RETRIES" env-default:"3"`
	RetryDelay     time.Duration `yaml:"SEPAY_RETRY_DELAY" env:"SEPAY_RETRY_DELAY" env-default:"2s"`
}

type Client struct {
	cfg   Config
	codec signature.Codec
	hc    *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		codec: signature.Codec{
			Fields:    signedFields,
			Delimiter: ",",
			Encoding:  signature.EncodingBase64,
		},
		hc: gateway.NewHTTPClient(cfg.ConnectTimeout, cfg.RequestTimeout),
	}
}

func (c *Client) Kind() models.PaymentMethod {
	return models.PaymentMethodSePay
}

func (c *Client) retryPolicy() gateway.RetryPolicy {
	return gateway.RetryPolicy{MaxAttempts: c.cfg.MaxRetries, Delay: c.cfg.RetryDelay}
}

// InitiateCheckout posts the signed checkout form and follows the gateway's
// redirects; the final URL is the hosted payment page handed to the end user.
func (c *Client) InitiateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	successURL := c.cfg.SuccessURL
	if req.ReturnURL != "" {
		successURL = req.ReturnURL
	}

	errorURL := c.cfg.ErrorURL
	if errorURL == "" {
		errorURL = successURL
	}

	cancelURL := c.cfg.CancelURL
	if cancelURL == "" {
		cancelURL = successURL
	}

	params := map[string]string{
		"merchant":             c.cfg.MerchantID,
		"operation":            "PURCHASE",
		"payment_method":       "BANK_TRANSFER",
		"order_amount":         req.Amount.String(),
		"currency":             "VND",
		"order_invoice_number": req.TransactionID,
		"order_description":    "Payment for booking: " + req.OrderRef,
		"customer_id":          req.OrderRef,
		"success_url":          successURL,
		"error_url":            errorURL,
		"cancel_url":           cancelURL,
	}

	// The signature is computed over raw values; the body is URL-encoded.
	params["signature"] = c.codec.Sign(params, c.cfg.SecretKey)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	body := form.Encode()

	resp, err := gateway.DoWithRetry(c.hc, c.retryPolicy(), func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.InitURL, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: checkout init returned HTTP %d", gateway.ErrGatewayRejected, resp.StatusCode)
	}

	finalURL := resp.Request.URL.String()
	if finalURL == "" {
		return nil, fmt.Errorf("%w: no checkout URL in init response", gateway.ErrGatewayRejected)
	}

	slog.Info("sepay checkout URL created", slog.String("transactionId", req.TransactionID))

	return &gateway.CheckoutSession{
		TransactionID:     req.TransactionID,
		CheckoutURL:       finalURL,
		GatewayCreateDate: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// QueryStatus fetches the order detail from the merchant API and normalizes it
// into the same event shape webhooks produce.
func (c *Client) QueryStatus(ctx context.Context, txn *models.PaymentTransaction) (*models.GatewayEvent, error) {
	apiURL := c.cfg.APIBaseURL + "/v1/order/detail/" + url.PathEscape(txn.TransactionID)

	resp, err := gateway.DoWithRetry(c.hc, c.retryPolicy(), func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Basic "+c.basicAuth())

		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading order detail response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: order detail query returned HTTP %d", gateway.ErrGatewayRejected, resp.StatusCode)
	}

	return parseOrderDetail(raw)
}

// Refund reverses a captured payment through the merchant API. The original
// gateway creation timestamp must be present and parse as RFC 3339 before any
// network call is attempted.
func (c *Client) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	if _, err := time.Parse(time.RFC3339, req.OriginalCreateDate); err != nil {
		return nil, gateway.ErrInvalidRefundDate
	}

	payload, err := json.Marshal(map[string]string{
		"merchant":             c.cfg.MerchantID,
		"order_invoice_number": req.TransactionID,
		"refund_amount":        req.Amount.String(),
		"refund_description":   req.OrderInfo,
		"original_created_at":  req.OriginalCreateDate,
	})
	if err != nil {
		return nil, err
	}

	resp, err := gateway.DoWithRetry(c.hc, c.retryPolicy(), func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.APIBaseURL+"/v1/transaction/refund", strings.NewReader(string(payload)))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Basic "+c.basicAuth())

		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading refund response: %w", err)
	}

	var body struct {
		Status        string `json:"status"`
		Message       string `json:"message"`
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decoding refund response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !strings.EqualFold(body.Status, "SUCCESS") {
		return &gateway.RefundResult{
			Success:      false,
			ResponseCode: body.Status,
			Message:      body.Message,
		}, fmt.Errorf("%w: refund declined: %s", gateway.ErrGatewayRejected, body.Message)
	}

	return &gateway.RefundResult{
		Success:           true,
		ResponseCode:      "00",
		Message:           body.Message,
		TransactionNo:     body.TransactionID,
		TransactionType:   req.TransactionType,
		TransactionStatus: "REFUNDED",
	}, nil
}

// VerifyWebhook validates the detached signature delivered in the X-Signature
// header, computed over the decoded payload fields.
func (c *Client) VerifyWebhook(payload []byte, sig string) bool {
	var params map[string]string

	if isJSONPayload(payload) {
		event, err := parseJSONWebhook(payload)
		if err != nil {
			return false
		}
		params = event.Raw
	} else {
		var err error
		params, err = parseFlatParams(string(payload))
		if err != nil {
			return false
		}
	}

	return c.verifyParams(params, sig)
}

// VerifyCallback validates the redirect query. The signature travels inline as
// the "signature" parameter and is excluded from the signed set.
func (c *Client) VerifyCallback(params map[string]string) gateway.CallbackResult {
	provided := params["signature"]
	rest := make(map[string]string, len(params))
	for k, v := range params {
		if k != "signature" {
			rest[k] = v
		}
	}

	if !c.codec.Verify(rest, c.cfg.SecretKey, provided) {
		return gateway.CallbackResult{Valid: false, Message: "Invalid signature"}
	}

	status := "FAILED"
	message := "Payment failed"
	if params["response_code"] == "00" && strings.EqualFold(params["status"], "SUCCESS") {
		status = "SUCCESS"
		message = "Payment successful"
	}

	return gateway.CallbackResult{
		Valid:         true,
		TransactionID: params["order_invoice_number"],
		Status:        status,
		Message:       message,
	}
}

func (c *Client) verifyParams(params map[string]string, provided string) bool {
	if provided == "" {
		provided = params["signature"]
	}

	rest := make(map[string]string, len(params))
	for k, v := range params {
		if k != "signature" {
			rest[k] = v
		}
	}

	return c.codec.Verify(rest, c.cfg.SecretKey, provided)
}

func (c *Client) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.MerchantID + ":" + c.cfg.SecretKey))
}
