package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironlot/settlement/internal/actorctx"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
)

type paymentWebhookBody struct {
	InvoiceID string     `json:"invoice_id" binding:"required"`
	Method    string     `json:"method"`
	PaidAt    *time.Time `json:"paid_at"`
}

// HandlePaymentWebhook consumes the payment gateway's settlement callback.
// The webhook path bypasses the actor headers; payment confirmations are
// always attributed to the system.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	var body paymentWebhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	method := strings.TrimSpace(body.Method)
	if method == "" {
		method = strings.TrimSpace(c.Param("provider"))
	}

	var paidAt time.Time
	if body.PaidAt != nil {
		paidAt = body.PaidAt.UTC()
	}

	ctx := actorctx.WithActor(c.Request.Context(), actorctx.Actor{Role: actorctx.RoleSystem})
	updated, err := s.invoiceSvc.ConfirmPayment(ctx, invoicedomain.PaymentConfirmation{
		InvoiceID: strings.TrimSpace(body.InvoiceID),
		Method:    method,
		PaidAt:    paidAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}
