package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// EventType names a domain event consumed by the notification dispatcher.
type EventType string

const (
	EventFeesSubmitted     EventType = "fees.submitted"
	EventFeesApproved      EventType = "fees.approved"
	EventFeesRejected      EventType = "fees.rejected"
	EventItemShipped       EventType = "item.shipped"
	EventItemDelivered     EventType = "item.delivered"
	EventDeliveryConfirmed EventType = "delivery.confirmed"
)

// Event is a notification-facing fact about an invoice. TargetID is the party
// the dispatcher should notify; Summary is human-readable.
type Event struct {
	Type       EventType
	InvoiceID  snowflake.ID
	TargetID   snowflake.ID
	Summary    string
	OccurredAt time.Time
}

// EventPublisher hands events to the notification dispatcher. Delivery is
// best-effort: implementations log failures and never propagate them back
// into the command that emitted the event.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// NoOpPublisher drops events.
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(ctx context.Context, event Event) {}

func NewFeesSubmittedEvent(inv Invoice, now time.Time) Event {
	return Event{
		Type:      EventFeesSubmitted,
		InvoiceID: inv.ID,
		TargetID:  inv.BuyerID,
		Summary: fmt.Sprintf("Seller submitted packaging (%s) and shipping (%s) fees for approval",
			FormatAmount(inv.PackagingAmount), FormatAmount(inv.ShippingAmount)),
		OccurredAt: now,
	}
}

func NewFeesApprovedEvent(inv Invoice, now time.Time) Event {
	return Event{
		Type:      EventFeesApproved,
		InvoiceID: inv.ID,
		TargetID:  inv.SellerID,
		Summary: fmt.Sprintf("Buyer approved fees; invoice total is now %s",
			FormatAmount(inv.TotalAmount)),
		OccurredAt: now,
	}
}

func NewFeesRejectedEvent(inv Invoice, reason string, now time.Time) Event {
	return Event{
		Type:       EventFeesRejected,
		InvoiceID:  inv.ID,
		TargetID:   inv.SellerID,
		Summary:    fmt.Sprintf("Buyer rejected the proposed fees: %s", reason),
		OccurredAt: now,
	}
}

func NewItemShippedEvent(inv Invoice, now time.Time) Event {
	summary := fmt.Sprintf("Item shipped via %s", inv.Carrier)
	if inv.TrackingReference != "" {
		summary = fmt.Sprintf("%s (tracking %s)", summary, inv.TrackingReference)
	}
	return Event{
		Type:       EventItemShipped,
		InvoiceID:  inv.ID,
		TargetID:   inv.BuyerID,
		Summary:    summary,
		OccurredAt: now,
	}
}

func NewItemDeliveredEvent(inv Invoice, now time.Time) Event {
	return Event{
		Type:       EventItemDelivered,
		InvoiceID:  inv.ID,
		TargetID:   inv.BuyerID,
		Summary:    "Seller marked the item delivered",
		OccurredAt: now,
	}
}

func NewDeliveryConfirmedEvent(inv Invoice, now time.Time) Event {
	summary := fmt.Sprintf("Buyer confirmed delivery in %s condition", inv.DeliveryCondition)
	if inv.DeliveryNotes != "" {
		summary = fmt.Sprintf("%s: %s", summary, inv.DeliveryNotes)
	}
	return Event{
		Type:       EventDeliveryConfirmed,
		InvoiceID:  inv.ID,
		TargetID:   inv.SellerID,
		Summary:    summary,
		OccurredAt: now,
	}
}

// FormatAmount renders integer cents as a dollar string for summaries.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
