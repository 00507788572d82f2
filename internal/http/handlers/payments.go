package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tabletrack.dev/app/internal/http/middleware"
	"tabletrack.dev/app/internal/http/validation"
	"tabletrack.dev/app/internal/modules/payments"
	"tabletrack.dev/app/internal/shared/apperr"
)

type PaymentsHandler struct {
	IntentSvc  *payments.IntentService
	Reconciler *payments.Reconciler
}

func NewPaymentsHandler(intentSvc *payments.IntentService, rec *payments.Reconciler) *PaymentsHandler {
	return &PaymentsHandler{IntentSvc: intentSvc, Reconciler: rec}
}

type createIntentInput struct {
	OrderID string          `json:"order_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

// POST /payments/create
func (h *PaymentsHandler) CreateIntent(c *gin.Context) {
	var in createIntentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fields := validation.FromBindError(err, &in)
		middleware.Fail(c, apperr.InvalidErr("Invalid payment request.", fields))
		return
	}

	desc, err := h.IntentSvc.CreateIntent(c.Request.Context(), payments.IntentInput{
		OrderID:     in.OrderID,
		ActorUserID: middleware.CurrentUserID(c),
		IsAdmin:     middleware.IsAdmin(c),
		Amount:      in.Amount,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, desc)
}

type verifyInput struct {
	RemoteOrderID   string `json:"remote_order_id" binding:"required"`
	RemotePaymentID string `json:"remote_payment_id" binding:"required"`
	RemoteSignature string `json:"remote_signature" binding:"required"`
	OrderID         string `json:"order_id" binding:"required"`
}

// POST /payments/verify — client-submitted proof of payment. Races freely
// with the webhook; either caller may find the work already done.
func (h *PaymentsHandler) Verify(c *gin.Context) {
	var in verifyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fields := validation.FromBindError(err, &in)
		middleware.Fail(c, apperr.InvalidErr("Invalid verification request.", fields))
		return
	}

	res, err := h.Reconciler.ConfirmPayment(c.Request.Context(), payments.ConfirmInput{
		RemoteIntentID:  in.RemoteOrderID,
		RemotePaymentID: in.RemotePaymentID,
		Signature:       in.RemoteSignature,
		OrderID:         in.OrderID,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "idempotent": res.Idempotent})
}
