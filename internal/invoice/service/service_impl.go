package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ironlot/settlement/internal/actorctx"
	"github.com/ironlot/settlement/internal/config"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	"github.com/ironlot/settlement/internal/invoice/pricing"
	"github.com/ironlot/settlement/internal/observability/metrics"
	"github.com/ironlot/settlement/internal/providers/storage"
	pkgdb "github.com/ironlot/settlement/pkg/db"
	"github.com/ironlot/settlement/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Command names, used for the authorization table and metrics labels.
const (
	cmdCreateInvoice   = "invoice.create"
	cmdSaveFeeDraft    = "fees.save_draft"
	cmdSubmitFees      = "fees.submit"
	cmdApproveFees     = "fees.approve"
	cmdRejectFees      = "fees.reject"
	cmdMarkShipped     = "fulfillment.mark_shipped"
	cmdUpdateFreight   = "fulfillment.update_freight"
	cmdMarkDelivered   = "fulfillment.mark_delivered"
	cmdConfirmDelivery = "delivery.confirm"
	cmdAttachDocuments = "delivery.attach_documents"
	cmdConfirmPayment  = "payment.confirm"
)

// commandRoles is the static command -> allowed role table.
var commandRoles = map[string]actorctx.Role{
	cmdCreateInvoice:   actorctx.RoleSystem,
	cmdSaveFeeDraft:    actorctx.RoleSeller,
	cmdSubmitFees:      actorctx.RoleSeller,
	cmdApproveFees:     actorctx.RoleBuyer,
	cmdRejectFees:      actorctx.RoleBuyer,
	cmdMarkShipped:     actorctx.RoleSeller,
	cmdUpdateFreight:   actorctx.RoleSeller,
	cmdMarkDelivered:   actorctx.RoleSeller,
	cmdConfirmDelivery: actorctx.RoleBuyer,
	cmdAttachDocuments: actorctx.RoleBuyer,
	cmdConfirmPayment:  actorctx.RoleSystem,
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Cfg       config.Config
	Storage   storage.Provider
	Publisher invoicedomain.EventPublisher
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	cfg       config.Config
	storage   storage.Provider
	publisher invoicedomain.EventPublisher
	metrics   *metrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		cfg:       p.Cfg,
		storage:   p.Storage,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	inv, err := s.create(ctx, req)
	s.observe(cmdCreateInvoice, err)
	return inv, err
}

func (s *Service) create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	if _, err := s.requireRole(ctx, cmdCreateInvoice); err != nil {
		return invoicedomain.Invoice{}, err
	}

	switch {
	case req.ListingID == 0 || req.SellerID == 0 || req.BuyerID == 0:
		return invoicedomain.Invoice{}, fmt.Errorf("%w: listing, seller and buyer are required", invoicedomain.ErrValidationFailed)
	case req.SellerID == req.BuyerID:
		return invoicedomain.Invoice{}, fmt.Errorf("%w: seller and buyer must differ", invoicedomain.ErrValidationFailed)
	case req.SaleAmount <= 0:
		return invoicedomain.Invoice{}, fmt.Errorf("%w: sale amount must be positive", invoicedomain.ErrValidationFailed)
	case req.BuyerPremiumPercent < 0 || req.BuyerPremiumPercent > 100:
		return invoicedomain.Invoice{}, fmt.Errorf("%w: buyer premium percent out of range", invoicedomain.ErrValidationFailed)
	case req.TaxAmount < 0:
		return invoicedomain.Invoice{}, fmt.Errorf("%w: tax amount must not be negative", invoicedomain.ErrValidationFailed)
	}

	now := time.Now().UTC()
	inv := invoicedomain.Invoice{
		ID:                  s.genID.Generate(),
		ListingID:           req.ListingID,
		SellerID:            req.SellerID,
		BuyerID:             req.BuyerID,
		SaleAmount:          req.SaleAmount,
		BuyerPremiumPercent: req.BuyerPremiumPercent,
		BuyerPremiumAmount:  pricing.BuyerPremium(req.SaleAmount, req.BuyerPremiumPercent),
		TaxAmount:           req.TaxAmount,
		PaymentStatus:       invoicedomain.PaymentStatusPending,
		PaymentDueAt:        now.AddDate(0, 0, s.paymentDueDays()),
		FeesStatus:          invoicedomain.FeesStatusNone,
		FulfillmentStatus:   invoicedomain.FulfillmentStatusAwaitingPayment,
		Version:             1,
		Metadata:            datatypes.JSONMap{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	pricing.Apply(&inv)

	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		// One invoice per closed sale: a gateway retry of the origination
		// call must not mint a second invoice.
		if pkgdb.IsDuplicateKeyErr(err) {
			return invoicedomain.Invoice{}, fmt.Errorf("%w: invoice already exists for listing", invoicedomain.ErrValidationFailed)
		}
		return invoicedomain.Invoice{}, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("listing_id", inv.ListingID.String()),
		zap.Int64("total_amount", inv.TotalAmount),
	)
	return inv, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Projection, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Projection{}, err
	}

	var inv invoicedomain.Invoice
	err = s.db.WithContext(ctx).Where("id = ?", invoiceID).Take(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invoicedomain.Projection{}, invoicedomain.ErrNotFound
		}
		return invoicedomain.Projection{}, err
	}

	return project(inv, time.Now().UTC()), nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}

	stmt := s.db.WithContext(ctx).Model(&invoicedomain.Invoice{})
	if req.SellerID != nil {
		stmt = stmt.Where("seller_id = ?", *req.SellerID)
	}
	if req.BuyerID != nil {
		stmt = stmt.Where("buyer_id = ?", *req.BuyerID)
	}
	if req.PaymentStatus != nil {
		stmt = stmt.Where("payment_status = ?", *req.PaymentStatus)
	}
	if req.FeesStatus != nil {
		stmt = stmt.Where("fees_status = ?", *req.FeesStatus)
	}
	if req.FulfillmentStatus != nil {
		stmt = stmt.Where("fulfillment_status = ?", *req.FulfillmentStatus)
	}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, fmt.Errorf("%w: bad page token", invoicedomain.ErrValidationFailed)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, fmt.Errorf("%w: bad page token", invoicedomain.ErrValidationFailed)
		}
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, cursor.ID)
	}

	var items []*invoicedomain.Invoice
	err := stmt.
		Order("created_at desc, id desc").
		Limit(pageSize + 1).
		Find(&items).Error
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(inv *invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        inv.ID.String(),
			// Nanosecond precision: the stored timestamps are sub-second.
			CreatedAt: inv.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	now := time.Now().UTC()
	projections := make([]invoicedomain.Projection, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		projections = append(projections, project(*item, now))
	}

	return invoicedomain.ListInvoiceResponse{
		PageInfo: *pageInfo,
		Invoices: projections,
	}, nil
}

// mutate runs one command against one invoice under the per-invoice critical
// section: load FOR UPDATE, bind the actor, apply fn, recompute the total,
// persist with a version guard, then publish fn's events after commit.
func (s *Service) mutate(
	ctx context.Context,
	command string,
	id string,
	fn func(inv *invoicedomain.Invoice, actor actorctx.Actor, now time.Time) ([]invoicedomain.Event, error),
) (invoicedomain.Invoice, error) {
	inv, events, err := s.mutateInner(ctx, command, id, fn)
	s.observe(command, err)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	s.publish(ctx, events)
	return inv, nil
}

func (s *Service) mutateInner(
	ctx context.Context,
	command string,
	id string,
	fn func(inv *invoicedomain.Invoice, actor actorctx.Actor, now time.Time) ([]invoicedomain.Event, error),
) (invoicedomain.Invoice, []invoicedomain.Event, error) {
	actor, err := s.requireRole(ctx, command)
	if err != nil {
		return invoicedomain.Invoice{}, nil, err
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, nil, err
	}

	var updated invoicedomain.Invoice
	var events []invoicedomain.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.loadInvoiceForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return invoicedomain.ErrNotFound
		}
		if err := bindActor(*inv, actor); err != nil {
			return err
		}

		now := time.Now().UTC()
		prevVersion := inv.Version

		evts, err := fn(inv, actor, now)
		if err != nil {
			return err
		}

		pricing.Apply(inv)
		inv.Version = prevVersion + 1
		inv.UpdatedAt = now

		if err := s.persist(ctx, tx, inv, prevVersion); err != nil {
			return err
		}

		updated = *inv
		events = evts
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, nil, err
	}
	return updated, events, nil
}

func (s *Service) loadInvoiceForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	stmt := tx.WithContext(ctx)
	// sqlite has no row locks; its single-writer model serializes anyway.
	if tx.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var inv invoicedomain.Invoice
	err := stmt.Where("id = ?", id).Take(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Service) persist(ctx context.Context, tx *gorm.DB, inv *invoicedomain.Invoice, prevVersion int64) error {
	res := tx.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("id = ? AND version = ?", inv.ID, prevVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(inv)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return invoicedomain.ErrConcurrentModification
	}
	return nil
}

func (s *Service) requireRole(ctx context.Context, command string) (actorctx.Actor, error) {
	actor, ok := actorctx.FromContext(ctx)
	if !ok {
		return actorctx.Actor{}, invoicedomain.ErrPermissionDenied
	}
	allowed, ok := commandRoles[command]
	if !ok || actor.Role != allowed {
		return actorctx.Actor{}, invoicedomain.ErrPermissionDenied
	}
	return actor, nil
}

// bindActor rejects buyers and sellers acting on invoices they are not a
// party to. System callers are trusted platform collaborators.
func bindActor(inv invoicedomain.Invoice, actor actorctx.Actor) error {
	switch actor.Role {
	case actorctx.RoleBuyer:
		if actor.ID != inv.BuyerID {
			return invoicedomain.ErrPermissionDenied
		}
	case actorctx.RoleSeller:
		if actor.ID != inv.SellerID {
			return invoicedomain.ErrPermissionDenied
		}
	case actorctx.RoleSystem:
	default:
		return invoicedomain.ErrPermissionDenied
	}
	return nil
}

func (s *Service) publish(ctx context.Context, events []invoicedomain.Event) {
	if s.publisher == nil {
		return
	}
	for _, event := range events {
		s.publisher.Publish(ctx, event)
	}
}

func (s *Service) observe(command string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveCommand(command, err)
	}
}

func (s *Service) paymentDueDays() int {
	if s.cfg.PaymentDueDays > 0 {
		return s.cfg.PaymentDueDays
	}
	return 7
}

func project(inv invoicedomain.Invoice, now time.Time) invoicedomain.Projection {
	return invoicedomain.Projection{
		Invoice:   inv,
		IsOverdue: inv.Overdue(now),
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, invoicedomain.ErrInvalidInvoiceID
	}
	return id, nil
}
