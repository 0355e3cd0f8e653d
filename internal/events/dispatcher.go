// Package events bridges invoice domain events to the notification
// dispatcher. Delivery is best-effort: a committed state transition is never
// rolled back because a notification could not be sent.
package events

import (
	"context"
	"fmt"
	"html"

	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	"github.com/ironlot/settlement/internal/observability/metrics"
	partydomain "github.com/ironlot/settlement/internal/party/domain"
	"github.com/ironlot/settlement/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DispatcherParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Email   email.Provider
	Parties partydomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Dispatcher struct {
	db      *gorm.DB
	log     *zap.Logger
	email   email.Provider
	parties partydomain.Repository
	metrics *metrics.Metrics
}

func NewDispatcher(p DispatcherParam) *Dispatcher {
	return &Dispatcher{
		db:      p.DB,
		log:     p.Log.Named("events.dispatcher"),
		email:   p.Email,
		parties: p.Parties,
		metrics: p.Metrics,
	}
}

// Publish delivers one domain event to its target party. Failures are logged
// and swallowed.
func (d *Dispatcher) Publish(ctx context.Context, event invoicedomain.Event) {
	err := d.deliver(ctx, event)
	if d.metrics != nil {
		d.metrics.ObserveEvent(string(event.Type), err)
	}
	if err != nil {
		d.log.Warn("notification delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("invoice_id", event.InvoiceID.String()),
			zap.String("target_id", event.TargetID.String()),
			zap.Error(err),
		)
		return
	}
	d.log.Info("notification dispatched",
		zap.String("event_type", string(event.Type)),
		zap.String("invoice_id", event.InvoiceID.String()),
		zap.String("target_id", event.TargetID.String()),
	)
}

func (d *Dispatcher) deliver(ctx context.Context, event invoicedomain.Event) error {
	party, err := d.parties.FindByID(ctx, d.db, event.TargetID)
	if err != nil {
		return err
	}
	if party == nil || party.Email == "" {
		return fmt.Errorf("no notification address for party %s", event.TargetID)
	}

	body := fmt.Sprintf("<p>%s</p><p>Invoice %s</p>",
		html.EscapeString(event.Summary),
		event.InvoiceID,
	)
	return d.email.Send(ctx, []string{party.Email}, subjectFor(event.Type), body)
}

func subjectFor(eventType invoicedomain.EventType) string {
	switch eventType {
	case invoicedomain.EventFeesSubmitted:
		return "Fees submitted for your approval"
	case invoicedomain.EventFeesApproved:
		return "Your fees were approved"
	case invoicedomain.EventFeesRejected:
		return "Your fees were rejected"
	case invoicedomain.EventItemShipped:
		return "Your item has shipped"
	case invoicedomain.EventItemDelivered:
		return "Your item was delivered"
	case invoicedomain.EventDeliveryConfirmed:
		return "Delivery confirmed by the buyer"
	default:
		return "Update on your transaction"
	}
}

var _ invoicedomain.EventPublisher = (*Dispatcher)(nil)
