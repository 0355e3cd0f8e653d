package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ironlot/settlement/internal/actorctx"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
)

// MarkShipped records the freight handoff. Requires payment; the supplied PRO
// number (or explicit tracking reference) becomes the canonical tracking
// reference.
func (s *Service) MarkShipped(ctx context.Context, id string, req invoicedomain.MarkShippedRequest) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, cmdMarkShipped, id, func(inv *invoicedomain.Invoice, actor actorctx.Actor, now time.Time) ([]invoicedomain.Event, error) {
		if inv.PaymentStatus != invoicedomain.PaymentStatusPaid {
			return nil, invoicedomain.ErrInvalidStateTransition
		}
		if inv.FulfillmentStatus != invoicedomain.FulfillmentStatusProcessing {
			return nil, invoicedomain.ErrInvalidStateTransition
		}

		carrier := strings.TrimSpace(req.Carrier)
		if carrier == "" {
			return nil, fmt.Errorf("%w: carrier is required", invoicedomain.ErrValidationFailed)
		}

		req.Freight.Apply(inv)

		inv.Carrier = carrier
		tracking := strings.TrimSpace(req.TrackingReference)
		if tracking == "" {
			tracking = inv.ProNumber
		}
		inv.TrackingReference = tracking

		shipped := now
		inv.ShippedAt = &shipped
		inv.FulfillmentStatus = invoicedomain.FulfillmentStatusShipped

		return []invoicedomain.Event{invoicedomain.NewItemShippedEvent(*inv, now)}, nil
	})
}

// UpdateFreightDetails merges new freight metadata field-by-field; omitted
// fields are never blanked.
func (s *Service) UpdateFreightDetails(ctx context.Context, id string, patch invoicedomain.FreightPatch) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, cmdUpdateFreight, id, func(inv *invoicedomain.Invoice, actor actorctx.Actor, now time.Time) ([]invoicedomain.Event, error) {
		if inv.FulfillmentStatus != invoicedomain.FulfillmentStatusShipped {
			return nil, invoicedomain.ErrInvalidStateTransition
		}
		if patch.Empty() {
			return nil, fmt.Errorf("%w: no freight fields supplied", invoicedomain.ErrValidationFailed)
		}

		patch.Apply(inv)
		return nil, nil
	})
}

// MarkDelivered is the seller-direct delivery path. It asserts arrival only;
// buyer confirmation fields are never touched here.
func (s *Service) MarkDelivered(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, cmdMarkDelivered, id, func(inv *invoicedomain.Invoice, actor actorctx.Actor, now time.Time) ([]invoicedomain.Event, error) {
		if inv.FulfillmentStatus != invoicedomain.FulfillmentStatusShipped {
			return nil, invoicedomain.ErrInvalidStateTransition
		}

		delivered := now
		inv.DeliveredAt = &delivered
		inv.FulfillmentStatus = invoicedomain.FulfillmentStatusDelivered

		return []invoicedomain.Event{invoicedomain.NewItemDeliveredEvent(*inv, now)}, nil
	})
}
