package sepay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/maian3333/ridehub-ms-booking/internal/models"
	"github.com/maian3333/ridehub-ms-booking/pkg/gateway"
	"github.com/shopspring/decimal"
)

// ParseWebhook normalizes a webhook delivery. The gateway family uses two wire
// encodings: the legacy flat query-string form and the newer nested JSON IPN.
func (c *Client) ParseWebhook(payload []byte) (*models.GatewayEvent, error) {
	if isJSONPayload(payload) {
		return parseJSONWebhook(payload)
	}

	return parseFlatWebhook(string(payload))
}

func isJSONPayload(payload []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(payload), []byte("{"))
}

func parseFlatParams(query string) (map[string]string, error) {
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

// parseFlatWebhook handles the legacy encoding, which only carries an
// order-level status.
func parseFlatWebhook(query string) (*models.GatewayEvent, error) {
	params, err := parseFlatParams(query)
	if err != nil {
		return nil, err
	}

	txnID := params["order_invoice_number"]
	if txnID == "" {
		return nil, fmt.Errorf("%w: missing order_invoice_number", gateway.ErrMalformedPayload)
	}

	outcome := models.EventOutcomeFailed
	if params["order_status"] == "CAPTURED" {
		outcome = models.EventOutcomeSuccess
	}

	var amount *decimal.Decimal
	if raw := params["order_amount"]; raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad order_amount %q", gateway.ErrMalformedPayload, raw)
		}
		amount = &parsed
	}

	return &models.GatewayEvent{
		TransactionID: txnID,
		Outcome:       outcome,
		Amount:        amount,
		Raw:           params,
	}, nil
}

// parseJSONWebhook handles the nested IPN encoding. The top-level "order"
// section is required; "transaction" and "customer" sections may be partial or
// absent, in which case their fields simply stay empty. Decoding goes through
// loosely-typed maps so a missing section never fails the whole parse.
func parseJSONWebhook(payload []byte) (*models.GatewayEvent, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrMalformedPayload, err)
	}

	order := decodeSection(doc, "order")
	if order == nil {
		return nil, fmt.Errorf("%w: missing 'order' section", gateway.ErrMalformedPayload)
	}

	transaction := decodeSection(doc, "transaction")
	customer := decodeSection(doc, "customer")

	txnID := stringField(order, "order_invoice_number")
	if txnID == "" {
		return nil, fmt.Errorf("%w: missing order_invoice_number", gateway.ErrMalformedPayload)
	}

	orderStatus := stringField(order, "order_status")
	transactionStatus := stringField(transaction, "transaction_status")

	// Both the order-level and transaction-level status must agree for the
	// event to classify as a success.
	outcome := models.EventOutcomeFailed
	if orderStatus == "CAPTURED" && transactionStatus == "APPROVED" {
		outcome = models.EventOutcomeSuccess
	}

	var amount *decimal.Decimal
	if raw := stringField(order, "order_amount"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad order_amount %q", gateway.ErrMalformedPayload, raw)
		}
		amount = &parsed
	}

	raw := map[string]string{
		"notification_type":    stringField(doc2map(doc), "notification_type"),
		"order_id":             stringField(order, "order_id"),
		"order_invoice_number": txnID,
		"order_status":         orderStatus,
		"order_amount":         stringField(order, "order_amount"),
		"order_currency":       stringField(order, "order_currency"),
		"order_description":    stringField(order, "order_description"),
		"transaction_id":       stringField(transaction, "transaction_id"),
		"transaction_status":   transactionStatus,
		"payment_method":       stringField(transaction, "payment_method"),
		"customer_id":          stringField(customer, "customer_id"),
		"customer_email":       stringField(customer, "customer_email"),
	}

	return &models.GatewayEvent{
		TransactionID: txnID,
		OrderRef:      stringField(order, "order_description"),
		Outcome:       outcome,
		Amount:        amount,
		Raw:           raw,
	}, nil
}

// parseOrderDetail normalizes the merchant API's order detail response, whose
// payload sits under a "data" envelope shaped like the JSON IPN order section.
func parseOrderDetail(body []byte) (*models.GatewayEvent, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrMalformedPayload, err)
	}

	data := decodeSection(doc, "data")
	if data == nil {
		return nil, fmt.Errorf("%w: missing 'data' section", gateway.ErrMalformedPayload)
	}

	txnID := stringField(data, "order_invoice_number")
	if txnID == "" {
		return nil, fmt.Errorf("%w: missing order_invoice_number", gateway.ErrMalformedPayload)
	}

	orderStatus := stringField(data, "order_status")

	// The detail response nests transactions as an array; the order is settled
	// when any transaction reached APPROVED.
	transactionStatus := ""
	if rawTxns, ok := data["transactions"]; ok {
		if txns, ok := rawTxns.([]any); ok {
			for _, t := range txns {
				if m, ok := t.(map[string]any); ok {
					if stringField(m, "transaction_status") == "APPROVED" {
						transactionStatus = "APPROVED"
						break
					}
					transactionStatus = stringField(m, "transaction_status")
				}
			}
		}
	}

	outcome := models.EventOutcomeFailed
	if orderStatus == "CAPTURED" && transactionStatus == "APPROVED" {
		outcome = models.EventOutcomeSuccess
	}

	var amount *decimal.Decimal
	if raw := stringField(data, "order_amount"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad order_amount %q", gateway.ErrMalformedPayload, raw)
		}
		amount = &parsed
	}

	return &models.GatewayEvent{
		TransactionID: txnID,
		Outcome:       outcome,
		Amount:        amount,
		Raw: map[string]string{
			"order_invoice_number": txnID,
			"order_status":         orderStatus,
			"transaction_status":   transactionStatus,
			"order_amount":         stringField(data, "order_amount"),
			"created_at":           stringField(data, "created_at"),
			"updated_at":           stringField(data, "updated_at"),
		},
	}, nil
}

func decodeSection(doc map[string]json.RawMessage, name string) map[string]any {
	raw, ok := doc[name]
	if !ok {
		return nil
	}

	var section map[string]any
	if err := json.Unmarshal(raw, &section); err != nil {
		return nil
	}

	return section
}

func doc2map(doc map[string]json.RawMessage) map[string]any {
	out := make(map[string]any, len(doc))
	for k, raw := range doc {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out[k] = s
		}
	}

	return out
}

// stringField reads a field from a loosely-typed section, tolerating absent
// sections, absent fields, nulls and numbers.
func stringField(section map[string]any, name string) string {
	if section == nil {
		return ""
	}

	switch v := section[name].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return decimal.NewFromFloat(v).String()
	default:
		return ""
	}
}
