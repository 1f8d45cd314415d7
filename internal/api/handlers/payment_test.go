package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maian3333/ridehub-ms-booking/internal/api/handlers"
	appErrors "github.com/maian3333/ridehub-ms-booking/internal/errors"
	"github.com/maian3333/ridehub-ms-booking/internal/models"
	service "github.com/maian3333/ridehub-ms-booking/internal/services"
	"github.com/maian3333/ridehub-ms-booking/internal/services/mocks"
	"github.com/maian3333/ridehub-ms-booking/internal/testutils"
	"github.com/maian3333/ridehub-ms-booking/internal/utils/response"
	"github.com/maian3333/ridehub-ms-booking/pkg/gateway"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPaymentHandler(t *testing.T) (*handlers.PaymentHandler, *mocks.MockPaymentService) {
	mockService := mocks.NewMockPaymentService(t)
	handler := handlers.NewPaymentHandler(mockService, map[models.PaymentMethod]string{
		models.PaymentMethodVNPay: "https://ridehub.example/payment/result",
	})

	return handler, mockService
}

func TestCheckout(t *testing.T) {
	handler, mockService := newPaymentHandler(t)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		reqBody := models.InitiateCheckoutRequest{
			OrderRef: "BOOK-2025-0042",
			Method:   models.PaymentMethodVNPay,
			Amount:   decimal.NewFromInt(150000),
		}
		expected := &models.InitiateCheckoutResponse{
			TransactionID: "TXN-5f4c2a",
			CheckoutURL:   "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?vnp_TxnRef=TXN-5f4c2a",
		}

		mockService.On("InitiateCheckout", mock.Anything, mock.MatchedBy(func(req *models.InitiateCheckoutRequest) bool {
			return req.OrderRef == reqBody.OrderRef && req.Method == models.PaymentMethodVNPay
		}), mock.Anything).Return(expected, nil).Once()

		reqBodyBytes, _ := json.Marshal(reqBody)
		req := testutils.CreateTestRequest(http.MethodPost, "/api/payment/checkout", bytes.NewReader(reqBodyBytes), nil)
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		// Act
		handler.Checkout().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp response.APIResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		dataBytes, err := json.Marshal(resp.Data)
		require.NoError(t, err)

		var checkout models.InitiateCheckoutResponse
		require.NoError(t, json.Unmarshal(dataBytes, &checkout))
		assert.Equal(t, expected.TransactionID, checkout.TransactionID)
		assert.Equal(t, expected.CheckoutURL, checkout.CheckoutURL)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		// Arrange: unsupported method fails the oneof constraint before the
		// service is reached.
		reqBody := models.InitiateCheckoutRequest{
			OrderRef: "BOOK-2025-0042",
			Method:   "CREDIT_CARD",
			Amount:   decimal.NewFromInt(150000),
		}

		reqBodyBytes, _ := json.Marshal(reqBody)
		req := testutils.CreateTestRequest(http.MethodPost, "/api/payment/checkout", bytes.NewReader(reqBodyBytes), nil)
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		// Act
		handler.Checkout().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "InitiateCheckout", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Gateway Unreachable", func(t *testing.T) {
		// Arrange
		reqBody := models.InitiateCheckoutRequest{
			OrderRef: "BOOK-2025-0042",
			Method:   models.PaymentMethodSePay,
			Amount:   decimal.NewFromInt(150000),
		}

		mockService.On("InitiateCheckout", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, appErrors.TransportFailureError("Payment gateway is unreachable")).Once()

		reqBodyBytes, _ := json.Marshal(reqBody)
		req := testutils.CreateTestRequest(http.MethodPost, "/api/payment/checkout", bytes.NewReader(reqBodyBytes), nil)
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		// Act
		handler.Checkout().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusBadGateway, rr.Code)

		var resp response.APIResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, appErrors.ErrCodeTransportFailure, resp.Error.Code)
	})
}

func TestWebhook(t *testing.T) {

	t.Run("SePay Confirmed", func(t *testing.T) {
		// Arrange
		handler, mockService := newPaymentHandler(t)
		payload := []byte(`{"transaction_id":"TXN-5f4c2a","transferAmount":150000}`)

		mockService.On("ProcessWebhook", mock.Anything, models.PaymentMethodSePay, payload, "sig-abc").
			Return(&service.WebhookResult{Ack: service.WebhookAckConfirmed, TransactionID: "TXN-5f4c2a"}, nil).Once()

		req := testutils.CreateTestRequest(http.MethodPost, "/api/payment/sepay/webhook", bytes.NewReader(payload), map[string]string{"kind": "sepay"})
		req.Header.Set("X-Signature", "sig-abc")
		rr := httptest.NewRecorder()

		// Act
		handler.Webhook().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "CONFIRMED", rr.Body.String())
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
	})

	t.Run("SePay Duplicate Delivery", func(t *testing.T) {
		// Arrange
		handler, mockService := newPaymentHandler(t)

		mockService.On("ProcessWebhook", mock.Anything, models.PaymentMethodSePay, mock.Anything, mock.Anything).
			Return(&service.WebhookResult{Ack: service.WebhookAckAlreadyProcessed, TransactionID: "TXN-5f4c2a"}, nil).Once()

		req := testutils.CreateTestRequest(http.MethodPost, "/api/payment/sepay/webhook", bytes.NewReader([]byte(`{}`)), map[string]string{"kind": "sepay"})
		rr := httptest.NewRecorder()

		// Act
		handler.Webhook().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ALREADY_PROCESSED", rr.Body.String())
	})

	t.Run("SePay Invalid Signature Still Acked 200", func(t *testing.T) {
		// Arrange
		handler, mockService := newPaymentHandler(t)

		mockService.On("ProcessWebhook", mock.Anything, models.PaymentMethodSePay, mock.Anything, mock.Anything).
			Return(nil, appErrors.InvalidSignatureError("Webhook signature verification failed")).Once()

		req := testutils.CreateTestRequest(http.MethodPost, "/api/payment/sepay/webhook", bytes.NewReader([]byte(`{}`)), map[string]string{"kind": "sepay"})
		rr := httptest.NewRecorder()

		// Act
		handler.Webhook().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "INVALID_SIGNATURE", rr.Body.String())
	})

	t.Run("SePay Transient Failure Triggers Redelivery", func(t *testing.T) {
		// Arrange: a database error must not be acked as final, or the
		// gateway would never redeliver.
		handler, mockService := newPaymentHandler(t)

		mockService.On("ProcessWebhook", mock.Anything, models.PaymentMethodSePay, mock.Anything, mock.Anything).
			Return(nil, appErrors.DatabaseError("Failed to load transaction")).Once()

		req := testutils.CreateTestRequest(http.MethodPost, "/api/payment/sepay/webhook", bytes.NewReader([]byte(`{}`)), map[string]string{"kind": "sepay"})
		rr := httptest.NewRecorder()

		// Act
		handler.Webhook().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "NOTIFY_FAILED", rr.Body.String())
	})

	t.Run("VNPay IPN Via GET Query", func(t *testing.T) {
		// Arrange: VNPay delivers the IPN as query parameters, so the raw
		// query string is the payload handed to the verifier.
		handler, mockService := newPaymentHandler(t)
		rawQuery := "vnp_Amount=15000000&vnp_ResponseCode=00&vnp_TxnRef=TXN-5f4c2a&vnp_SecureHash=deadbeef"

		mockService.On("ProcessWebhook", mock.Anything, models.PaymentMethodVNPay, []byte(rawQuery), mock.Anything).
			Return(&service.WebhookResult{Ack: service.WebhookAckConfirmed, TransactionID: "TXN-5f4c2a"}, nil).Once()

		req := testutils.CreateTestRequest(http.MethodGet, "/api/payment/vnpay/webhook?"+rawQuery, nil, map[string]string{"kind": "vnpay"})
		rr := httptest.NewRecorder()

		// Act
		handler.Webhook().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"RspCode":"00","Message":"Confirm Success"}`, rr.Body.String())
	})

	t.Run("VNPay Ack Codes", func(t *testing.T) {
		testCases := []struct {
			name        string
			serviceErr  error
			result      *service.WebhookResult
			wantRspCode string
		}{
			{
				name:        "duplicate delivery",
				result:      &service.WebhookResult{Ack: service.WebhookAckAlreadyProcessed},
				wantRspCode: "02",
			},
			{
				name:        "unknown transaction",
				serviceErr:  appErrors.TransactionNotFoundError("No transaction with ID TXN-ghost"),
				wantRspCode: "01",
			},
			{
				name:        "amount mismatch",
				serviceErr:  appErrors.AmountMismatchError("Webhook amount does not match transaction"),
				wantRspCode: "04",
			},
			{
				name:        "invalid signature",
				serviceErr:  appErrors.InvalidSignatureError("Checksum verification failed"),
				wantRspCode: "97",
			},
			{
				name:        "malformed payload",
				serviceErr:  appErrors.MalformedPayloadError("Unparseable IPN parameters"),
				wantRspCode: "99",
			},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				// Arrange
				handler, mockService := newPaymentHandler(t)

				mockService.On("ProcessWebhook", mock.Anything, models.PaymentMethodVNPay, mock.Anything, mock.Anything).
					Return(tc.result, tc.serviceErr).Once()

				req := testutils.CreateTestRequest(http.MethodGet, "/api/payment/vnpay/webhook?vnp_TxnRef=TXN-5f4c2a", nil, map[string]string{"kind": "vnpay"})
				rr := httptest.NewRecorder()

				// Act
				handler.Webhook().ServeHTTP(rr, req)

				// Assert: VNPay requires a 200 with the verdict in RspCode.
				assert.Equal(t, http.StatusOK, rr.Code)

				var ack struct {
					RspCode string `json:"RspCode"`
					Message string `json:"Message"`
				}
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ack))
				assert.Equal(t, tc.wantRspCode, ack.RspCode)
				assert.NotEmpty(t, ack.Message)
			})
		}
	})

	t.Run("Unknown Gateway Kind", func(t *testing.T) {
		// Arrange
		handler, mockService := newPaymentHandler(t)

		req := testutils.CreateTestRequest(http.MethodPost, "/api/payment/paypal/webhook", bytes.NewReader([]byte(`{}`)), map[string]string{"kind": "paypal"})
		rr := httptest.NewRecorder()

		// Act
		handler.Webhook().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertNotCalled(t, "ProcessWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCallback(t *testing.T) {

	t.Run("Successful Payment Redirects To Frontend", func(t *testing.T) {
		// Arrange
		handler, mockService := newPaymentHandler(t)

		mockService.On("VerifyCallback", mock.Anything, models.PaymentMethodVNPay, mock.MatchedBy(func(params map[string]string) bool {
			return params["vnp_TxnRef"] == "TXN-5f4c2a"
		})).Return(&gateway.CallbackResult{
			Valid:         true,
			TransactionID: "TXN-5f4c2a",
			Status:        "SUCCESS",
			Message:       "Payment completed",
		}, nil).Once()

		req := testutils.CreateTestRequest(http.MethodGet, "/api/payment/vnpay/callback?vnp_TxnRef=TXN-5f4c2a&vnp_ResponseCode=00", nil, map[string]string{"kind": "vnpay"})
		rr := httptest.NewRecorder()

		// Act
		handler.Callback().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusFound, rr.Code)

		location := rr.Header().Get("Location")
		assert.Contains(t, location, "https://ridehub.example/payment/result?")
		assert.Contains(t, location, "status=success")
		assert.Contains(t, location, "transactionId=TXN-5f4c2a")
	})

	t.Run("Tampered Redirect Marked Invalid", func(t *testing.T) {
		// Arrange
		handler, mockService := newPaymentHandler(t)

		mockService.On("VerifyCallback", mock.Anything, models.PaymentMethodVNPay, mock.Anything).
			Return(&gateway.CallbackResult{
				Valid:         false,
				TransactionID: "TXN-5f4c2a",
				Message:       "Checksum verification failed",
			}, nil).Once()

		req := testutils.CreateTestRequest(http.MethodGet, "/api/payment/vnpay/callback?vnp_TxnRef=TXN-5f4c2a", nil, map[string]string{"kind": "vnpay"})
		rr := httptest.NewRecorder()

		// Act
		handler.Callback().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Contains(t, rr.Header().Get("Location"), "status=invalid")
	})

	t.Run("No Frontend URL Falls Back To JSON", func(t *testing.T) {
		// Arrange: SePay has no frontend URL configured in this fixture.
		handler, mockService := newPaymentHandler(t)

		mockService.On("VerifyCallback", mock.Anything, models.PaymentMethodSePay, mock.Anything).
			Return(&gateway.CallbackResult{
				Valid:         true,
				TransactionID: "TXN-5f4c2a",
				Status:        "SUCCESS",
			}, nil).Once()

		req := testutils.CreateTestRequest(http.MethodGet, "/api/payment/sepay/callback?transaction_id=TXN-5f4c2a", nil, map[string]string{"kind": "sepay"})
		rr := httptest.NewRecorder()

		// Act
		handler.Callback().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp response.APIResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
	})
}

func TestQueryStatusHandler(t *testing.T) {
	handler, mockService := newPaymentHandler(t)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		amount := decimal.NewFromInt(150000)
		expected := &models.QueryStatusResponse{
			Snapshot: &models.GatewayEvent{
				TransactionID: "TXN-5f4c2a",
				Outcome:       models.EventOutcomeSuccess,
				Amount:        &amount,
			},
			CanSynthesizeWebhook: true,
			Cached:               true,
		}

		mockService.On("QueryStatus", mock.Anything, models.PaymentMethodVNPay, "TXN-5f4c2a").
			Return(expected, nil).Once()

		req := testutils.CreateTestRequest(http.MethodGet, "/api/payment/vnpay/query/TXN-5f4c2a", nil, map[string]string{"kind": "vnpay", "transactionId": "TXN-5f4c2a"})
		rr := httptest.NewRecorder()

		// Act
		handler.QueryStatus().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp response.APIResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
	})

	t.Run("Missing Transaction ID", func(t *testing.T) {
		// Arrange
		req := testutils.CreateTestRequest(http.MethodGet, "/api/payment/vnpay/query/", nil, map[string]string{"kind": "vnpay"})
		rr := httptest.NewRecorder()

		// Act
		handler.QueryStatus().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "QueryStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRefundHandler(t *testing.T) {
	handler, mockService := newPaymentHandler(t)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		reqBody := models.RefundRequest{
			Amount:          decimal.NewFromInt(150000),
			OrderInfo:       "Customer cancelled trip",
			TransactionType: "02",
		}
		refundTxn := &models.PaymentTransaction{
			TransactionID: "REFUND-9b1d44",
			OrderRef:      "BOOK-2025-0042",
			Status:        models.PaymentStatusRefunded,
		}

		mockService.On("Refund", mock.Anything, models.PaymentMethodVNPay, "TXN-5f4c2a", mock.MatchedBy(func(req *models.RefundRequest) bool {
			return req.TransactionType == "02"
		}), mock.Anything).Return(refundTxn, nil).Once()

		reqBodyBytes, _ := json.Marshal(reqBody)
		req := testutils.CreateTestRequest(http.MethodPost, "/api/payment/vnpay/refund/TXN-5f4c2a", bytes.NewReader(reqBodyBytes), map[string]string{"kind": "vnpay", "transactionId": "TXN-5f4c2a"})
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		// Act
		handler.Refund().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp response.APIResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
	})

	t.Run("Not Yet Successful Transaction", func(t *testing.T) {
		// Arrange
		reqBody := models.RefundRequest{
			Amount:          decimal.NewFromInt(150000),
			OrderInfo:       "Customer cancelled trip",
			TransactionType: "02",
		}

		mockService.On("Refund", mock.Anything, models.PaymentMethodVNPay, "TXN-pending", mock.Anything, mock.Anything).
			Return(nil, appErrors.IllegalTransitionError("Only successful transactions can be refunded")).Once()

		reqBodyBytes, _ := json.Marshal(reqBody)
		req := testutils.CreateTestRequest(http.MethodPost, "/api/payment/vnpay/refund/TXN-pending", bytes.NewReader(reqBodyBytes), map[string]string{"kind": "vnpay", "transactionId": "TXN-pending"})
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		// Act
		handler.Refund().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusConflict, rr.Code)

		var resp response.APIResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, appErrors.ErrCodeIllegalTransition, resp.Error.Code)
	})
}

func TestPollHandler(t *testing.T) {
	handler, mockService := newPaymentHandler(t)

	t.Run("Settles A Stuck Transaction", func(t *testing.T) {
		// Arrange
		mockService.On("PollTransaction", mock.Anything, models.PaymentMethodVNPay, "TXN-5f4c2a").
			Return(&service.WebhookResult{Ack: service.WebhookAckConfirmed, TransactionID: "TXN-5f4c2a"}, nil).Once()

		req := testutils.CreateTestRequest(http.MethodPost, "/api/payment/vnpay/poll/TXN-5f4c2a", nil, map[string]string{"kind": "vnpay", "transactionId": "TXN-5f4c2a"})
		rr := httptest.NewRecorder()

		// Act
		handler.Poll().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp response.APIResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
	})
}
