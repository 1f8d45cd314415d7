package handlers

import (
	"net"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/maian3333/ridehub-ms-booking/internal/errors"
	"github.com/maian3333/ridehub-ms-booking/internal/metrics"
	"github.com/maian3333/ridehub-ms-booking/internal/models"
	service "github.com/maian3333/ridehub-ms-booking/internal/services"
	"github.com/maian3333/ridehub-ms-booking/internal/utils"
	"github.com/maian3333/ridehub-ms-booking/internal/utils/response"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	validator      *validator.Validate
	// frontendURLs is where the user lands after a gateway redirect, per
	// gateway kind.
	frontendURLs map[models.PaymentMethod]string
}

func NewPaymentHandler(paymentService service.PaymentService, frontendURLs map[models.PaymentMethod]string) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		validator:      validator.New(),
		frontendURLs:   frontendURLs,
	}
}

// gatewayKind resolves the {kind} path segment. Unknown kinds 404 like any
// other unknown route.
func gatewayKind(r *http.Request) (models.PaymentMethod, bool) {
	switch r.PathValue("kind") {
	case "sepay":
		return models.PaymentMethodSePay, true
	case "vnpay":
		return models.PaymentMethodVNPay, true
	default:
		return "", false
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}

func (h *PaymentHandler) Checkout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		var req models.InitiateCheckoutRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		resp, err := h.paymentService.InitiateCheckout(r.Context(), &req, clientIP(r))
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusCreated, resp)
	}
}

// Webhook handles inbound gateway notifications. SePay delivers a POST body;
// VNPay's IPN arrives as GET query parameters. The acknowledgment vocabulary
// is per gateway and is always a 200: an error-status reply would make the
// gateway retry a permanently-invalid payload forever.
func (h *PaymentHandler) Webhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		kind, ok := gatewayKind(r)
		if !ok {
			http.NotFound(w, r)
			return
		}

		var payload []byte

		if r.Method == http.MethodGet {
			payload = []byte(r.URL.RawQuery)
		} else {
			body, err := utils.ReadBody(r)
			if err != nil {
				response.Error(w, errors.BadRequestError("Unreadable webhook body"))
				return
			}
			payload = body
		}

		result, err := h.paymentService.ProcessWebhook(r.Context(), kind, payload, r.Header.Get("X-Signature"))

		switch kind {
		case models.PaymentMethodVNPay:
			h.ackVNPay(w, result, err)
		default:
			h.ackSePay(w, result, err)
		}
	}
}

func (h *PaymentHandler) ackSePay(w http.ResponseWriter, result *service.WebhookResult, err error) {

	ack := ""
	status := http.StatusOK

	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			switch appErr.Code {
			case errors.ErrCodeInvalidSignature:
				ack = "INVALID_SIGNATURE"
			case errors.ErrCodeMalformedPayload:
				ack = "MALFORMED_PAYLOAD"
			case errors.ErrCodeTransactionNotFound:
				ack = "ORDER_NOT_FOUND"
			case errors.ErrCodeAmountMismatch:
				ack = "INVALID_AMOUNT"
			}
		}

		// Transient failures get a 500 so the gateway redelivers. The
		// idempotent claim makes a redelivered webhook safe.
		if ack == "" {
			ack = "NOTIFY_FAILED"
			status = http.StatusInternalServerError
		}
	} else {
		ack = string(result.Ack)
	}

	metrics.ObserveWebhook("sepay", ack)

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	w.Write([]byte(ack))
}

type vnpayAck struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

func (h *PaymentHandler) ackVNPay(w http.ResponseWriter, result *service.WebhookResult, err error) {

	ack := vnpayAck{RspCode: "99", Message: "Unknown error"}

	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			switch appErr.Code {
			case errors.ErrCodeTransactionNotFound:
				ack = vnpayAck{RspCode: "01", Message: "Order not found"}
			case errors.ErrCodeAmountMismatch:
				ack = vnpayAck{RspCode: "04", Message: "Invalid amount"}
			case errors.ErrCodeInvalidSignature:
				ack = vnpayAck{RspCode: "97", Message: "Invalid signature"}
			}
		}
	} else if result.Ack == service.WebhookAckAlreadyProcessed {
		ack = vnpayAck{RspCode: "02", Message: "Order already confirmed"}
	} else {
		ack = vnpayAck{RspCode: "00", Message: "Confirm Success"}
	}

	metrics.ObserveWebhook("vnpay", ack.RspCode)

	response.WriteJson(w, http.StatusOK, ack)
}

// Callback verifies the user-facing redirect and forwards the user to the
// frontend. Read-only: state transitions belong to the webhook.
func (h *PaymentHandler) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		kind, ok := gatewayKind(r)
		if !ok {
			http.NotFound(w, r)
			return
		}

		result, err := h.paymentService.VerifyCallback(r.Context(), kind, utils.FlattenQuery(r.URL.Query()))
		if err != nil {
			response.Error(w, err)
			return
		}

		frontendURL := h.frontendURLs[kind]
		if frontendURL == "" {
			response.Success(w, http.StatusOK, result)
			return
		}

		status := "failed"
		if result.Valid && result.Status == "SUCCESS" {
			status = "success"
		} else if !result.Valid {
			status = "invalid"
		}

		redirect := frontendURL + "?" + url.Values{
			"status":        {status},
			"transactionId": {result.TransactionID},
			"message":       {result.Message},
		}.Encode()

		http.Redirect(w, r, redirect, http.StatusFound)
	}
}

func (h *PaymentHandler) QueryStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		kind, ok := gatewayKind(r)
		if !ok {
			http.NotFound(w, r)
			return
		}

		transactionID := r.PathValue("transactionId")
		if transactionID == "" {
			response.Error(w, errors.BadRequestError("Transaction ID is required"))
			return
		}

		resp, err := h.paymentService.QueryStatus(r.Context(), kind, transactionID)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, resp)
	}
}

func (h *PaymentHandler) Refund() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		kind, ok := gatewayKind(r)
		if !ok {
			http.NotFound(w, r)
			return
		}

		transactionID := r.PathValue("transactionId")
		if transactionID == "" {
			response.Error(w, errors.BadRequestError("Transaction ID is required"))
			return
		}

		var req models.RefundRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		refundTxn, err := h.paymentService.Refund(r.Context(), kind, transactionID, &req, clientIP(r))
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, refundTxn)
	}
}

func (h *PaymentHandler) Poll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		kind, ok := gatewayKind(r)
		if !ok {
			http.NotFound(w, r)
			return
		}

		transactionID := r.PathValue("transactionId")
		if transactionID == "" {
			response.Error(w, errors.BadRequestError("Transaction ID is required"))
			return
		}

		result, err := h.paymentService.PollTransaction(r.Context(), kind, transactionID)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, result)
	}
}
