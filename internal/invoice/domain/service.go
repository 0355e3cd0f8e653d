package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ironlot/settlement/pkg/db/pagination"
)

// DocumentUpload is a raw document or photo payload bound for the object
// store.
type DocumentUpload struct {
	Data        []byte
	ContentType string
	Filename    string
}

type CreateInvoiceRequest struct {
	ListingID           snowflake.ID
	SellerID            snowflake.ID
	BuyerID             snowflake.ID
	SaleAmount          int64
	BuyerPremiumPercent float64
	TaxAmount           int64
}

type SaveFeeDraftRequest struct {
	PackagingAmount int64
	PackagingNote   string
	ShippingAmount  int64
	ShippingNote    string
	Quote           *DocumentUpload
}

type MarkShippedRequest struct {
	Carrier           string
	TrackingReference string
	Freight           FreightPatch
}

type ConfirmDeliveryRequest struct {
	Condition      DeliveryCondition
	Notes          string
	SignedDocument *DocumentUpload
	DamageEvidence []DocumentUpload
}

// ConfirmDeliveryResult carries the confirmed invoice plus non-fatal upload
// warnings surfaced to the caller.
type ConfirmDeliveryResult struct {
	Invoice  Invoice
	Warnings []string
}

type AttachDocumentsRequest struct {
	SignedDocument *DocumentUpload
	Photos         []DocumentUpload
}

// PaymentConfirmation is the one event this system consumes from the payment
// gateway.
type PaymentConfirmation struct {
	InvoiceID string
	Method    string
	PaidAt    time.Time
}

type ListInvoiceRequest struct {
	pagination.Pagination
	SellerID          *snowflake.ID
	BuyerID           *snowflake.ID
	PaymentStatus     *PaymentStatus
	FeesStatus        *FeesStatus
	FulfillmentStatus *FulfillmentStatus
}

// Projection is the read-only view exposed to the presentation layer.
type Projection struct {
	Invoice
	IsOverdue bool `json:"is_overdue"`
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Projection `json:"invoices"`
}

// Service is the transaction orchestrator: every command validates the actor
// and current state, applies the transition under a per-invoice critical
// section, recomputes the total, and emits domain events after commit.
type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, id string) (Projection, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)

	SaveFeeDraft(ctx context.Context, id string, req SaveFeeDraftRequest) (Invoice, error)
	SubmitFeesForApproval(ctx context.Context, id string) (Invoice, error)
	ApproveFees(ctx context.Context, id string) (Invoice, error)
	RejectFees(ctx context.Context, id string, reason string) (Invoice, error)

	MarkShipped(ctx context.Context, id string, req MarkShippedRequest) (Invoice, error)
	UpdateFreightDetails(ctx context.Context, id string, patch FreightPatch) (Invoice, error)
	MarkDelivered(ctx context.Context, id string) (Invoice, error)

	ConfirmDelivery(ctx context.Context, id string, req ConfirmDeliveryRequest) (ConfirmDeliveryResult, error)
	AttachShippingDocuments(ctx context.Context, id string, req AttachDocumentsRequest) (Invoice, error)

	ConfirmPayment(ctx context.Context, req PaymentConfirmation) (Invoice, error)
}

var (
	// ErrPermissionDenied reports a command issued by the wrong actor role or
	// by a party not on the invoice.
	ErrPermissionDenied = errors.New("permission_denied")
	// ErrInvalidStateTransition reports a command that is not valid in the
	// invoice's current sub-state.
	ErrInvalidStateTransition = errors.New("invalid_state_transition")
	// ErrValidationFailed reports a missing or malformed field; wrapped with
	// field detail at the call site.
	ErrValidationFailed = errors.New("validation_failed")
	// ErrAlreadyConfirmed reports a duplicate delivery confirmation.
	ErrAlreadyConfirmed = errors.New("delivery_already_confirmed")
	// ErrConcurrentModification reports that the invoice row moved under a
	// command between load and persist.
	ErrConcurrentModification = errors.New("concurrent_modification")
	// ErrPaymentPreconditionFailed reports a payment confirmation arriving
	// while a fee proposal is still awaiting the buyer.
	ErrPaymentPreconditionFailed = errors.New("payment_precondition_failed")

	ErrNotFound         = errors.New("invoice_not_found")
	ErrInvalidInvoiceID = errors.New("invalid_invoice_id")
)
