// Package domain contains the invoice aggregate for post-sale settlement.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PaymentStatus tracks whether the buyer has settled the invoice total.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// FeesStatus tracks the seller-proposed packaging/shipping fee cycle.
type FeesStatus string

const (
	FeesStatusNone            FeesStatus = "none"
	FeesStatusPendingApproval FeesStatus = "pending_approval"
	FeesStatusApproved        FeesStatus = "approved"
	FeesStatusRejected        FeesStatus = "rejected"
)

// FulfillmentStatus tracks the shipment lifecycle of the physical item.
// Transitions are monotonic and never regress.
type FulfillmentStatus string

const (
	FulfillmentStatusAwaitingPayment FulfillmentStatus = "awaiting_payment"
	FulfillmentStatusProcessing      FulfillmentStatus = "processing"
	FulfillmentStatusShipped         FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered       FulfillmentStatus = "delivered"
)

// DeliveryCondition is the buyer's attestation of the item condition at
// receipt.
type DeliveryCondition string

const (
	DeliveryConditionGood    DeliveryCondition = "good"
	DeliveryConditionDamaged DeliveryCondition = "damaged"
	DeliveryConditionPartial DeliveryCondition = "partial"
)

// ValidCondition reports whether raw names a known delivery condition.
func ValidCondition(raw DeliveryCondition) bool {
	switch raw {
	case DeliveryConditionGood, DeliveryConditionDamaged, DeliveryConditionPartial:
		return true
	default:
		return false
	}
}

// Invoice is the settlement record for one completed sale. All monetary
// amounts are integer cents; total_amount always equals the sum of the five
// line items.
type Invoice struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ListingID snowflake.ID `gorm:"not null;uniqueIndex" json:"listing_id"`
	SellerID  snowflake.ID `gorm:"not null;index" json:"seller_id"`
	BuyerID   snowflake.ID `gorm:"not null;index" json:"buyer_id"`

	SaleAmount          int64   `gorm:"not null" json:"sale_amount"`
	BuyerPremiumPercent float64 `gorm:"not null;default:0" json:"buyer_premium_percent"`
	BuyerPremiumAmount  int64   `gorm:"not null;default:0" json:"buyer_premium_amount"`
	PackagingAmount     int64   `gorm:"not null;default:0" json:"packaging_amount"`
	ShippingAmount      int64   `gorm:"not null;default:0" json:"shipping_amount"`
	TaxAmount           int64   `gorm:"not null;default:0" json:"tax_amount"`
	TotalAmount         int64   `gorm:"not null;default:0" json:"total_amount"`

	PaymentStatus PaymentStatus `gorm:"type:text;not null;default:'pending'" json:"payment_status"`
	PaymentDueAt  time.Time     `gorm:"not null" json:"payment_due_at"`
	PaidAt        *time.Time    `gorm:"" json:"paid_at,omitempty"`
	PaymentMethod *string       `gorm:"type:text" json:"payment_method,omitempty"`

	FeesStatus          FeesStatus `gorm:"type:text;not null;default:'none'" json:"fees_status"`
	PackagingNote       string     `gorm:"type:text" json:"packaging_note,omitempty"`
	ShippingNote        string     `gorm:"type:text" json:"shipping_note,omitempty"`
	ShippingQuoteURL    *string    `gorm:"type:text" json:"shipping_quote_url,omitempty"`
	FeesSubmittedAt     *time.Time `gorm:"" json:"fees_submitted_at,omitempty"`
	FeesRespondedAt     *time.Time `gorm:"" json:"fees_responded_at,omitempty"`
	FeesRejectionReason string     `gorm:"type:text" json:"fees_rejection_reason,omitempty"`

	FulfillmentStatus FulfillmentStatus `gorm:"type:text;not null;default:'awaiting_payment'" json:"fulfillment_status"`
	ShippedAt         *time.Time        `gorm:"" json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time        `gorm:"" json:"delivered_at,omitempty"`
	Carrier           string            `gorm:"type:text" json:"carrier,omitempty"`
	TrackingReference string            `gorm:"type:text" json:"tracking_reference,omitempty"`

	BOLNumber           string     `gorm:"column:bol_number;type:text" json:"bol_number,omitempty"`
	ProNumber           string     `gorm:"type:text" json:"pro_number,omitempty"`
	FreightClass        string     `gorm:"type:text" json:"freight_class,omitempty"`
	WeightLbs           int64      `gorm:"not null;default:0" json:"weight_lbs,omitempty"`
	PickupDate          *time.Time `gorm:"" json:"pickup_date,omitempty"`
	EstimatedDeliveryAt *time.Time `gorm:"" json:"estimated_delivery_at,omitempty"`
	PickupContact       string     `gorm:"type:text" json:"pickup_contact,omitempty"`
	DeliveryContact     string     `gorm:"type:text" json:"delivery_contact,omitempty"`
	SpecialInstructions string     `gorm:"type:text" json:"special_instructions,omitempty"`

	DeliveryConfirmedAt *time.Time                  `gorm:"" json:"delivery_confirmed_at,omitempty"`
	DeliveryConfirmedBy *snowflake.ID               `gorm:"" json:"delivery_confirmed_by,omitempty"`
	DeliveryCondition   DeliveryCondition           `gorm:"type:text" json:"delivery_condition,omitempty"`
	DeliveryNotes       string                      `gorm:"type:text" json:"delivery_notes,omitempty"`
	SignedDocumentURL   string                      `gorm:"type:text" json:"signed_document_url,omitempty"`
	DamageEvidenceURLs  datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"damage_evidence_urls,omitempty"`

	Version   int64             `gorm:"not null;default:1" json:"-"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Overdue reports whether payment is still pending past the due date. Derived
// only; no background job flips state on it.
func (i Invoice) Overdue(now time.Time) bool {
	return i.PaymentStatus == PaymentStatusPending && now.After(i.PaymentDueAt)
}

// Closed reports whether the invoice reached its terminal state.
func (i Invoice) Closed() bool {
	return i.PaymentStatus == PaymentStatusPaid &&
		i.FulfillmentStatus == FulfillmentStatusDelivered
}

// FreightPatch is a field-by-field update to freight metadata. Nil fields are
// left untouched so a partial update never blanks data the caller omitted.
type FreightPatch struct {
	BOLNumber           *string    `json:"bol_number,omitempty"`
	ProNumber           *string    `json:"pro_number,omitempty"`
	FreightClass        *string    `json:"freight_class,omitempty"`
	WeightLbs           *int64     `json:"weight_lbs,omitempty"`
	PickupDate          *time.Time `json:"pickup_date,omitempty"`
	EstimatedDeliveryAt *time.Time `json:"estimated_delivery_at,omitempty"`
	PickupContact       *string    `json:"pickup_contact,omitempty"`
	DeliveryContact     *string    `json:"delivery_contact,omitempty"`
	SpecialInstructions *string    `json:"special_instructions,omitempty"`
}

// Apply merges the patch into the invoice's freight metadata. Empty strings
// are treated as omitted.
func (p FreightPatch) Apply(inv *Invoice) {
	if v := stringValue(p.BOLNumber); v != "" {
		inv.BOLNumber = v
	}
	if v := stringValue(p.ProNumber); v != "" {
		inv.ProNumber = v
	}
	if v := stringValue(p.FreightClass); v != "" {
		inv.FreightClass = v
	}
	if p.WeightLbs != nil && *p.WeightLbs > 0 {
		inv.WeightLbs = *p.WeightLbs
	}
	if p.PickupDate != nil {
		pickup := p.PickupDate.UTC()
		inv.PickupDate = &pickup
	}
	if p.EstimatedDeliveryAt != nil {
		estimated := p.EstimatedDeliveryAt.UTC()
		inv.EstimatedDeliveryAt = &estimated
	}
	if v := stringValue(p.PickupContact); v != "" {
		inv.PickupContact = v
	}
	if v := stringValue(p.DeliveryContact); v != "" {
		inv.DeliveryContact = v
	}
	if v := stringValue(p.SpecialInstructions); v != "" {
		inv.SpecialInstructions = v
	}
}

// Empty reports whether the patch carries no changes.
func (p FreightPatch) Empty() bool {
	return stringValue(p.BOLNumber) == "" &&
		stringValue(p.ProNumber) == "" &&
		stringValue(p.FreightClass) == "" &&
		(p.WeightLbs == nil || *p.WeightLbs <= 0) &&
		p.PickupDate == nil &&
		p.EstimatedDeliveryAt == nil &&
		stringValue(p.PickupContact) == "" &&
		stringValue(p.DeliveryContact) == "" &&
		stringValue(p.SpecialInstructions) == ""
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
