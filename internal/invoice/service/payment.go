package service

import (
	"context"
	"strings"
	"time"

	"github.com/ironlot/settlement/internal/actorctx"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	"go.uber.org/zap"
)

// ConfirmPayment ingests the payment gateway's confirmation. It must not be
// accepted while a fee proposal is awaiting the buyer: the gateway has no
// view of the negotiation, so the precondition is enforced here.
func (s *Service) ConfirmPayment(ctx context.Context, req invoicedomain.PaymentConfirmation) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, cmdConfirmPayment, req.InvoiceID, func(inv *invoicedomain.Invoice, actor actorctx.Actor, now time.Time) ([]invoicedomain.Event, error) {
		if inv.PaymentStatus != invoicedomain.PaymentStatusPending {
			return nil, invoicedomain.ErrInvalidStateTransition
		}
		if inv.FeesStatus == invoicedomain.FeesStatusPendingApproval {
			return nil, invoicedomain.ErrPaymentPreconditionFailed
		}

		paidAt := req.PaidAt.UTC()
		if paidAt.IsZero() {
			paidAt = now
		}
		inv.PaymentStatus = invoicedomain.PaymentStatusPaid
		inv.PaidAt = &paidAt
		if method := strings.TrimSpace(req.Method); method != "" {
			inv.PaymentMethod = &method
		}

		if inv.FulfillmentStatus == invoicedomain.FulfillmentStatusAwaitingPayment {
			inv.FulfillmentStatus = invoicedomain.FulfillmentStatusProcessing
		}

		s.log.Info("payment confirmed",
			zap.String("invoice_id", inv.ID.String()),
			zap.Int64("total_amount", inv.TotalAmount),
		)
		return nil, nil
	})
}
