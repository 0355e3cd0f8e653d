package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ironlot/settlement/internal/actorctx"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SaveFeeDraft stores seller-proposed packaging/shipping amounts without
// changing the negotiation state. The invoice total reflects draft amounts
// immediately, even while fees_status is still "none"; callers must treat
// that as documented behavior of the draft state, not silently gate it.
// While a proposal is pending the buyer, a revision may change the amounts
// but never zero them both out.
func (s *Service) SaveFeeDraft(ctx context.Context, id string, req invoicedomain.SaveFeeDraftRequest) (invoicedomain.Invoice, error) {
	// Cheap precheck before spending an upload: confirm the invoice exists,
	// the seller is a party to it, and the draft is acceptable at all. The
	// authoritative check repeats under the lock.
	if err := s.precheckFeeDraft(ctx, id, req); err != nil {
		return invoicedomain.Invoice{}, err
	}

	// Quote upload happens outside the invoice lock; a storage outage
	// degrades to a draft without the quote reference.
	var quoteURL string
	if req.Quote != nil && len(req.Quote.Data) > 0 {
		url, err := s.storage.Store(ctx, req.Quote.Data, req.Quote.ContentType)
		if err != nil {
			s.log.Warn("shipping quote upload failed, saving draft without reference",
				zap.String("invoice_id", id),
				zap.Error(err),
			)
		} else {
			quoteURL = url
		}
	}

	return s.mutate(ctx, cmdSaveFeeDraft, id, func(inv *invoicedomain.Invoice, actor actorctx.Actor, now time.Time) ([]invoicedomain.Event, error) {
		if err := validateFeeDraft(*inv, req); err != nil {
			return nil, err
		}

		inv.PackagingAmount = req.PackagingAmount
		inv.PackagingNote = strings.TrimSpace(req.PackagingNote)
		inv.ShippingAmount = req.ShippingAmount
		inv.ShippingNote = strings.TrimSpace(req.ShippingNote)
		if quoteURL != "" {
			inv.ShippingQuoteURL = &quoteURL
		}
		return nil, nil
	})
}

// SubmitFeesForApproval moves drafted fees into the buyer's court.
func (s *Service) SubmitFeesForApproval(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, cmdSubmitFees, id, func(inv *invoicedomain.Invoice, actor actorctx.Actor, now time.Time) ([]invoicedomain.Event, error) {
		if inv.PaymentStatus == invoicedomain.PaymentStatusPaid {
			return nil, invoicedomain.ErrInvalidStateTransition
		}
		switch inv.FeesStatus {
		case invoicedomain.FeesStatusNone, invoicedomain.FeesStatusRejected:
		default:
			return nil, invoicedomain.ErrInvalidStateTransition
		}
		if inv.PackagingAmount+inv.ShippingAmount <= 0 {
			return nil, fmt.Errorf("%w: no fees to submit", invoicedomain.ErrValidationFailed)
		}

		inv.FeesStatus = invoicedomain.FeesStatusPendingApproval
		submitted := now
		inv.FeesSubmittedAt = &submitted
		inv.FeesRespondedAt = nil
		inv.FeesRejectionReason = ""

		return []invoicedomain.Event{invoicedomain.NewFeesSubmittedEvent(*inv, now)}, nil
	})
}

// ApproveFees records the buyer's acceptance; terminal for the fee cycle.
func (s *Service) ApproveFees(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, cmdApproveFees, id, func(inv *invoicedomain.Invoice, actor actorctx.Actor, now time.Time) ([]invoicedomain.Event, error) {
		if inv.FeesStatus != invoicedomain.FeesStatusPendingApproval {
			return nil, invoicedomain.ErrInvalidStateTransition
		}

		inv.FeesStatus = invoicedomain.FeesStatusApproved
		responded := now
		inv.FeesRespondedAt = &responded

		return []invoicedomain.Event{invoicedomain.NewFeesApprovedEvent(*inv, now)}, nil
	})
}

// RejectFees records the buyer's rejection; the seller may redraft and
// resubmit.
func (s *Service) RejectFees(ctx context.Context, id string, reason string) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, cmdRejectFees, id, func(inv *invoicedomain.Invoice, actor actorctx.Actor, now time.Time) ([]invoicedomain.Event, error) {
		trimmed := strings.TrimSpace(reason)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: rejection requires a reason", invoicedomain.ErrValidationFailed)
		}
		if inv.FeesStatus != invoicedomain.FeesStatusPendingApproval {
			return nil, invoicedomain.ErrInvalidStateTransition
		}

		inv.FeesStatus = invoicedomain.FeesStatusRejected
		inv.FeesRejectionReason = trimmed
		responded := now
		inv.FeesRespondedAt = &responded

		return []invoicedomain.Event{invoicedomain.NewFeesRejectedEvent(*inv, trimmed, now)}, nil
	})
}

// precheckFeeDraft verifies actor binding and draftability without holding
// the lock, so quote uploads are not spent on doomed drafts.
func (s *Service) precheckFeeDraft(ctx context.Context, id string, req invoicedomain.SaveFeeDraftRequest) error {
	actor, err := s.requireRole(ctx, cmdSaveFeeDraft)
	if err != nil {
		return err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}

	var inv invoicedomain.Invoice
	if err := s.db.WithContext(ctx).Where("id = ?", invoiceID).Take(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invoicedomain.ErrNotFound
		}
		return err
	}
	if err := bindActor(inv, actor); err != nil {
		return err
	}
	return validateFeeDraft(inv, req)
}

// validateFeeDraft holds the draft acceptance rules shared by the precheck
// and the locked mutation. Once fees sit with the buyer, a revision must
// still carry a nonzero proposal.
func validateFeeDraft(inv invoicedomain.Invoice, req invoicedomain.SaveFeeDraftRequest) error {
	if inv.PaymentStatus == invoicedomain.PaymentStatusPaid {
		return invoicedomain.ErrInvalidStateTransition
	}
	if inv.FeesStatus == invoicedomain.FeesStatusApproved {
		return invoicedomain.ErrInvalidStateTransition
	}
	if req.PackagingAmount < 0 || req.ShippingAmount < 0 {
		return fmt.Errorf("%w: fee amounts must not be negative", invoicedomain.ErrValidationFailed)
	}
	if inv.FeesStatus == invoicedomain.FeesStatusPendingApproval && req.PackagingAmount+req.ShippingAmount <= 0 {
		return fmt.Errorf("%w: fees pending approval cannot be zeroed", invoicedomain.ErrValidationFailed)
	}
	return nil
}
