package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/maian3333/ridehub-ms-booking/internal/errors"
	"github.com/maian3333/ridehub-ms-booking/internal/metrics"
	"github.com/maian3333/ridehub-ms-booking/internal/models"
	service "github.com/maian3333/ridehub-ms-booking/internal/services"
	"github.com/maian3333/ridehub-ms-booking/internal/utils"
	"github.com/maian3333/ridehub-ms-booking/internal/utils/response"
)

type TicketHandler struct {
	ticketService service.TicketService
	validator     *validator.Validate
}

func NewTicketHandler(ticketService service.TicketService) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		validator:     validator.New(),
	}
}

func (h *TicketHandler) GetTicket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		ticketCode := r.PathValue("code")
		if ticketCode == "" {
			response.Error(w, errors.BadRequestError("Ticket code is required"))
			return
		}

		ticket, err := h.ticketService.GetTicket(r.Context(), ticketCode)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, ticket)
	}
}

func (h *TicketHandler) ListBookingTickets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		bookingRef := r.PathValue("bookingRef")
		if bookingRef == "" {
			response.Error(w, errors.BadRequestError("Booking reference is required"))
			return
		}

		tickets, err := h.ticketService.ListBookingTickets(r.Context(), bookingRef)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, tickets)
	}
}

func (h *TicketHandler) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		ticketCode := r.PathValue("code")
		if ticketCode == "" {
			response.Error(w, errors.BadRequestError("Ticket code is required"))
			return
		}

		var req models.TicketCancelRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		result, err := h.ticketService.Cancel(r.Context(), ticketCode, &req)
		if err != nil {
			response.Error(w, err)
			return
		}

		writeTicketOperation(w, "cancel", result)
	}
}

func (h *TicketHandler) Refund() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		ticketCode := r.PathValue("code")
		if ticketCode == "" {
			response.Error(w, errors.BadRequestError("Ticket code is required"))
			return
		}

		var req models.TicketRefundRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		result, err := h.ticketService.Refund(r.Context(), ticketCode, &req)
		if err != nil {
			response.Error(w, err)
			return
		}

		writeTicketOperation(w, "refund", result)
	}
}

func (h *TicketHandler) Exchange() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		ticketCode := r.PathValue("code")
		if ticketCode == "" {
			response.Error(w, errors.BadRequestError("Ticket code is required"))
			return
		}

		var req models.TicketExchangeRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		result, err := h.ticketService.Exchange(r.Context(), ticketCode, &req)
		if err != nil {
			response.Error(w, err)
			return
		}

		writeTicketOperation(w, "exchange", result)
	}
}

func (h *TicketHandler) CheckIn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		ticketCode := r.PathValue("code")
		if ticketCode == "" {
			response.Error(w, errors.BadRequestError("Ticket code is required"))
			return
		}

		result, err := h.ticketService.CheckIn(r.Context(), ticketCode)
		if err != nil {
			response.Error(w, err)
			return
		}

		writeTicketOperation(w, "checkin", result)
	}
}

// writeTicketOperation writes the uniform operation reply. Rule rejections
// stay 200 with success=false so callers can surface the message to the user.
func writeTicketOperation(w http.ResponseWriter, operation string, result *models.TicketOperationResponse) {

	outcome := "accepted"
	if !result.Success {
		outcome = "rejected"
	}
	metrics.ObserveTicketOperation(operation, outcome)

	response.Success(w, http.StatusOK, result)
}
