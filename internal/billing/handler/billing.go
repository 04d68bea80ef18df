package handler

import (
	"encoding/json"
	"net/http"

	"tutorhub/internal/billing/service"
	httputil "tutorhub/pkg/http"
	"tutorhub/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type BillingHandler struct {
	service service.BillingService
	log     *logger.Logger
}

func NewBillingHandler(service service.BillingService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{
		service: service,
		log:     log,
	}
}

type rejectRequest struct {
	Notes string `json:"notes"`
}

func (h *BillingHandler) RecordPurchase(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	result, err := h.service.RecordPurchase(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, result)
}

func (h *BillingHandler) SubmitInstallment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req service.InstallmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	invoice, err := h.service.SubmitInstallment(r.Context(), ps.ByName("bookingId"), &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, invoice)
}

func (h *BillingHandler) ApproveInvoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.ApproveInvoice(r.Context(), ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BillingHandler) RejectInvoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	if err := h.service.RejectInvoice(r.Context(), ps.ByName("id"), req.Notes); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BillingHandler) GetInvoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	invoice, err := h.service.GetInvoice(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, invoice)
}

func (h *BillingHandler) GetInstallments(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	installments, err := h.service.GetInstallments(r.Context(), ps.ByName("bookingId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, installments)
}

func (h *BillingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/billing/purchases", h.RecordPurchase)
	router.POST("/api/v1/billing/bookings/:bookingId/installments", h.SubmitInstallment)

	router.POST("/api/v1/billing/invoices/id/:id/approve", h.ApproveInvoice)
	router.POST("/api/v1/billing/invoices/id/:id/reject", h.RejectInvoice)
	router.GET("/api/v1/billing/invoices/id/:id", h.GetInvoice)

	router.GET("/api/v1/billing/bookings/:bookingId/installments", h.GetInstallments)

	h.log.Info("Billing routes registered")
}
