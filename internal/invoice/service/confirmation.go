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

// ConfirmDelivery is the buyer's attestation of receipt and condition. Upload
// calls run outside the invoice lock; confirmation is never blocked on
// storage availability.
func (s *Service) ConfirmDelivery(ctx context.Context, id string, req invoicedomain.ConfirmDeliveryRequest) (invoicedomain.ConfirmDeliveryResult, error) {
	result, err := s.confirmDelivery(ctx, id, req)
	s.observe(cmdConfirmDelivery, err)
	return result, err
}

func (s *Service) confirmDelivery(ctx context.Context, id string, req invoicedomain.ConfirmDeliveryRequest) (invoicedomain.ConfirmDeliveryResult, error) {
	if !invoicedomain.ValidCondition(req.Condition) {
		return invoicedomain.ConfirmDeliveryResult{}, fmt.Errorf("%w: unknown delivery condition", invoicedomain.ErrValidationFailed)
	}
	notes := strings.TrimSpace(req.Notes)
	if req.Condition != invoicedomain.DeliveryConditionGood && notes == "" {
		return invoicedomain.ConfirmDeliveryResult{}, fmt.Errorf("%w: notes are required when the condition is not good", invoicedomain.ErrValidationFailed)
	}

	// Cheap precheck before spending uploads: confirm the invoice exists, the
	// buyer is a party to it, and it is confirmable at all. The authoritative
	// check repeats under the lock.
	if err := s.precheckConfirmable(ctx, cmdConfirmDelivery, id); err != nil {
		return invoicedomain.ConfirmDeliveryResult{}, err
	}

	signedURL, warnings := s.uploadEvidence(ctx, id, req)

	invoice, err := s.mutate(ctx, cmdConfirmDelivery, id, func(inv *invoicedomain.Invoice, actor actorctx.Actor, now time.Time) ([]invoicedomain.Event, error) {
		if inv.DeliveryConfirmedAt != nil {
			return nil, invoicedomain.ErrAlreadyConfirmed
		}
		if inv.FulfillmentStatus != invoicedomain.FulfillmentStatusShipped {
			return nil, invoicedomain.ErrInvalidStateTransition
		}

		confirmed := now
		inv.DeliveryConfirmedAt = &confirmed
		buyerID := actor.ID
		inv.DeliveryConfirmedBy = &buyerID
		inv.DeliveryCondition = req.Condition
		inv.DeliveryNotes = notes
		if signedURL != "" {
			inv.SignedDocumentURL = signedURL
		}
		for _, url := range warnings.evidenceURLs {
			inv.DamageEvidenceURLs = append(inv.DamageEvidenceURLs, url)
		}

		// The buyer path completes fulfillment even if the seller never
		// called the direct delivered command.
		if inv.FulfillmentStatus != invoicedomain.FulfillmentStatusDelivered {
			inv.FulfillmentStatus = invoicedomain.FulfillmentStatusDelivered
		}
		if inv.DeliveredAt == nil {
			delivered := now
			inv.DeliveredAt = &delivered
		}

		return []invoicedomain.Event{invoicedomain.NewDeliveryConfirmedEvent(*inv, now)}, nil
	})
	if err != nil {
		return invoicedomain.ConfirmDeliveryResult{}, err
	}

	return invoicedomain.ConfirmDeliveryResult{
		Invoice:  invoice,
		Warnings: warnings.messages,
	}, nil
}

type evidenceUploads struct {
	evidenceURLs []string
	messages     []string
}

// uploadEvidence stores the signed document and damage photos. The signed
// document degrades silently; damage evidence failures surface as warnings.
func (s *Service) uploadEvidence(ctx context.Context, id string, req invoicedomain.ConfirmDeliveryRequest) (string, evidenceUploads) {
	var signedURL string
	if req.SignedDocument != nil && len(req.SignedDocument.Data) > 0 {
		url, err := s.storage.Store(ctx, req.SignedDocument.Data, req.SignedDocument.ContentType)
		if err != nil {
			s.log.Warn("signed document upload failed, confirming without it",
				zap.String("invoice_id", id),
				zap.Error(err),
			)
		} else {
			signedURL = url
		}
	}

	var uploads evidenceUploads
	for _, doc := range req.DamageEvidence {
		if len(doc.Data) == 0 {
			continue
		}
		url, err := s.storage.Store(ctx, doc.Data, doc.ContentType)
		if err != nil {
			name := strings.TrimSpace(doc.Filename)
			if name == "" {
				name = "photo"
			}
			uploads.messages = append(uploads.messages,
				fmt.Sprintf("damage evidence %q could not be stored: %v", name, err))
			continue
		}
		uploads.evidenceURLs = append(uploads.evidenceURLs, url)
	}

	return signedURL, uploads
}

// AttachShippingDocuments appends evidence before formal confirmation. Never
// changes fulfillment status.
func (s *Service) AttachShippingDocuments(ctx context.Context, id string, req invoicedomain.AttachDocumentsRequest) (invoicedomain.Invoice, error) {
	inv, err := s.attachShippingDocuments(ctx, id, req)
	s.observe(cmdAttachDocuments, err)
	return inv, err
}

func (s *Service) attachShippingDocuments(ctx context.Context, id string, req invoicedomain.AttachDocumentsRequest) (invoicedomain.Invoice, error) {
	hasSigned := req.SignedDocument != nil && len(req.SignedDocument.Data) > 0
	if !hasSigned && len(req.Photos) == 0 {
		return invoicedomain.Invoice{}, fmt.Errorf("%w: no documents supplied", invoicedomain.ErrValidationFailed)
	}

	if err := s.precheckConfirmable(ctx, cmdAttachDocuments, id); err != nil {
		return invoicedomain.Invoice{}, err
	}

	// Unlike delivery confirmation, attaching documents has nothing to
	// degrade to: a storage failure fails the command.
	var signedURL string
	if hasSigned {
		url, err := s.storage.Store(ctx, req.SignedDocument.Data, req.SignedDocument.ContentType)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		signedURL = url
	}

	photoURLs := make([]string, 0, len(req.Photos))
	for _, photo := range req.Photos {
		if len(photo.Data) == 0 {
			continue
		}
		url, err := s.storage.Store(ctx, photo.Data, photo.ContentType)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		photoURLs = append(photoURLs, url)
	}

	return s.mutate(ctx, cmdAttachDocuments, id, func(inv *invoicedomain.Invoice, actor actorctx.Actor, now time.Time) ([]invoicedomain.Event, error) {
		if inv.DeliveryConfirmedAt != nil {
			return nil, invoicedomain.ErrAlreadyConfirmed
		}
		if inv.FulfillmentStatus != invoicedomain.FulfillmentStatusShipped {
			return nil, invoicedomain.ErrInvalidStateTransition
		}

		if signedURL != "" {
			inv.SignedDocumentURL = signedURL
		}
		for _, url := range photoURLs {
			inv.DamageEvidenceURLs = append(inv.DamageEvidenceURLs, url)
		}
		return nil, nil
	})
}

// precheckConfirmable verifies actor binding and confirmability without
// holding the lock, so upload traffic is not spent on doomed commands.
func (s *Service) precheckConfirmable(ctx context.Context, command string, id string) error {
	actor, err := s.requireRole(ctx, command)
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
	if inv.DeliveryConfirmedAt != nil {
		return invoicedomain.ErrAlreadyConfirmed
	}
	if inv.FulfillmentStatus != invoicedomain.FulfillmentStatusShipped {
		return invoicedomain.ErrInvalidStateTransition
	}
	return nil
}
