package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tabletrack.dev/app/internal/modules/payments"
	"tabletrack.dev/app/internal/shared/apperr"
)

// HeaderWebhookSignature carries the hex HMAC-SHA256 of the raw body.
const HeaderWebhookSignature = "X-Gateway-Signature"

type WebhookHandler struct {
	Logger     *slog.Logger
	Reconciler *payments.Reconciler
}

func NewWebhookHandler(logger *slog.Logger, rec *payments.Reconciler) *WebhookHandler {
	return &WebhookHandler{Logger: logger, Reconciler: rec}
}

// POST /payments/webhook
// Public endpoint; the body signature is the only authentication. The raw
// body must be read before any binding or the digest won't match.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	sig := c.GetHeader(HeaderWebhookSignature)
	if err := h.Reconciler.HandleWebhookEvent(c.Request.Context(), body, sig); err != nil {
		status := apperr.HTTPStatus(err)
		if status >= 500 {
			// non-2xx => gateway retry etsin
			h.Logger.Error("webhook apply failed", "err", err)
		}
		c.JSON(status, gin.H{"ok": false, "error": apperr.PublicMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
