package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/ironlot/settlement/internal/actorctx"
	"github.com/ironlot/settlement/internal/config"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Mock objects

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, data, contentType)
	return args.String(0), args.Error(1)
}

type recordingPublisher struct {
	events []invoicedomain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event invoicedomain.Event) {
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []invoicedomain.EventType {
	out := make([]invoicedomain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// Fixtures

const (
	testSellerID  = snowflake.ID(11)
	testBuyerID   = snowflake.ID(22)
	testListingID = snowflake.ID(33)
	strangerID    = snowflake.ID(99)
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&invoicedomain.Invoice{}))
	return db
}

func newTestService(t *testing.T, store *mockStorage) (invoicedomain.Service, *gorm.DB, *recordingPublisher) {
	t.Helper()
	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	svc := NewService(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Cfg:       config.Config{PaymentDueDays: 7},
		Storage:   store,
		Publisher: publisher,
	})
	return svc, db, publisher
}

func sysCtx() context.Context {
	return actorctx.WithActor(context.Background(), actorctx.Actor{Role: actorctx.RoleSystem})
}

func buyerCtx(id snowflake.ID) context.Context {
	return actorctx.WithActor(context.Background(), actorctx.Actor{ID: id, Role: actorctx.RoleBuyer})
}

func sellerCtx(id snowflake.ID) context.Context {
	return actorctx.WithActor(context.Background(), actorctx.Actor{ID: id, Role: actorctx.RoleSeller})
}

// nextListingID hands out a fresh listing per fixture; invoices are unique
// per listing.
var listingSeq int64 = 1000

func nextListingID() snowflake.ID {
	return snowflake.ID(atomic.AddInt64(&listingSeq, 1))
}

// createTestInvoice creates the standard fixture: a $10,000.00 sale at 10%
// buyer premium with $800.00 tax.
func createTestInvoice(t *testing.T, svc invoicedomain.Service) invoicedomain.Invoice {
	t.Helper()
	inv, err := svc.Create(sysCtx(), invoicedomain.CreateInvoiceRequest{
		ListingID:           nextListingID(),
		SellerID:            testSellerID,
		BuyerID:             testBuyerID,
		SaleAmount:          1000000,
		BuyerPremiumPercent: 10,
		TaxAmount:           80000,
	})
	require.NoError(t, err)
	return inv
}

func payInvoice(t *testing.T, svc invoicedomain.Service, inv invoicedomain.Invoice) invoicedomain.Invoice {
	t.Helper()
	paid, err := svc.ConfirmPayment(sysCtx(), invoicedomain.PaymentConfirmation{
		InvoiceID: inv.ID.String(),
		Method:    "wire",
	})
	require.NoError(t, err)
	return paid
}

func shipInvoice(t *testing.T, svc invoicedomain.Service, inv invoicedomain.Invoice) invoicedomain.Invoice {
	t.Helper()
	shipped, err := svc.MarkShipped(sellerCtx(testSellerID), inv.ID.String(), invoicedomain.MarkShippedRequest{
		Carrier:           "Old Dominion",
		TrackingReference: "OD-443210",
	})
	require.NoError(t, err)
	return shipped
}

func reload(t *testing.T, db *gorm.DB, id snowflake.ID) invoicedomain.Invoice {
	t.Helper()
	var inv invoicedomain.Invoice
	require.NoError(t, db.Where("id = ?", id).Take(&inv).Error)
	return inv
}

func TestCreate_ComputesPremiumAndTotal(t *testing.T) {
	svc, _, _ := newTestService(t, &mockStorage{})

	inv := createTestInvoice(t, svc)

	assert.Equal(t, int64(100000), inv.BuyerPremiumAmount)
	assert.Equal(t, int64(1180000), inv.TotalAmount)
	assert.Equal(t, invoicedomain.PaymentStatusPending, inv.PaymentStatus)
	assert.Equal(t, invoicedomain.FeesStatusNone, inv.FeesStatus)
	assert.Equal(t, invoicedomain.FulfillmentStatusAwaitingPayment, inv.FulfillmentStatus)
	assert.Equal(t, int64(1), inv.Version)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 7), inv.PaymentDueAt, time.Minute)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t, &mockStorage{})

	cases := []struct {
		name string
		req  invoicedomain.CreateInvoiceRequest
	}{
		{"missing parties", invoicedomain.CreateInvoiceRequest{ListingID: testListingID, SaleAmount: 100}},
		{"same buyer and seller", invoicedomain.CreateInvoiceRequest{ListingID: testListingID, SellerID: testSellerID, BuyerID: testSellerID, SaleAmount: 100}},
		{"zero sale amount", invoicedomain.CreateInvoiceRequest{ListingID: testListingID, SellerID: testSellerID, BuyerID: testBuyerID}},
		{"negative tax", invoicedomain.CreateInvoiceRequest{ListingID: testListingID, SellerID: testSellerID, BuyerID: testBuyerID, SaleAmount: 100, TaxAmount: -1}},
		{"premium over 100", invoicedomain.CreateInvoiceRequest{ListingID: testListingID, SellerID: testSellerID, BuyerID: testBuyerID, SaleAmount: 100, BuyerPremiumPercent: 101}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(sysCtx(), tc.req)
			assert.ErrorIs(t, err, invoicedomain.ErrValidationFailed)
		})
	}
}

// A retried origination call for the same listing must not mint a second
// invoice.
func TestCreate_OneInvoicePerListing(t *testing.T) {
	svc, _, _ := newTestService(t, &mockStorage{})

	req := invoicedomain.CreateInvoiceRequest{
		ListingID:  nextListingID(),
		SellerID:   testSellerID,
		BuyerID:    testBuyerID,
		SaleAmount: 1000000,
	}
	_, err := svc.Create(sysCtx(), req)
	require.NoError(t, err)

	_, err = svc.Create(sysCtx(), req)
	assert.ErrorIs(t, err, invoicedomain.ErrValidationFailed)
}

func TestCreate_RequiresSystemRole(t *testing.T) {
	svc, _, _ := newTestService(t, &mockStorage{})

	_, err := svc.Create(sellerCtx(testSellerID), invoicedomain.CreateInvoiceRequest{
		ListingID: testListingID, SellerID: testSellerID, BuyerID: testBuyerID, SaleAmount: 100,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrPermissionDenied)

	_, err = svc.Create(context.Background(), invoicedomain.CreateInvoiceRequest{
		ListingID: testListingID, SellerID: testSellerID, BuyerID: testBuyerID, SaleAmount: 100,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrPermissionDenied)
}

func TestGetByID_OverdueIsDerived(t *testing.T) {
	svc, db, _ := newTestService(t, &mockStorage{})
	inv := createTestInvoice(t, svc)

	got, err := svc.GetByID(context.Background(), inv.ID.String())
	require.NoError(t, err)
	assert.False(t, got.IsOverdue)

	// Push the due date into the past; status stays pending but the
	// projection reports overdue.
	require.NoError(t, db.Model(&invoicedomain.Invoice{}).
		Where("id = ?", inv.ID).
		Update("payment_due_at", time.Now().UTC().Add(-24*time.Hour)).Error)

	got, err = svc.GetByID(context.Background(), inv.ID.String())
	require.NoError(t, err)
	assert.True(t, got.IsOverdue)
	assert.Equal(t, invoicedomain.PaymentStatusPending, got.PaymentStatus)
}

func TestGetByID_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t, &mockStorage{})

	_, err := svc.GetByID(context.Background(), "123456789")
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)

	_, err = svc.GetByID(context.Background(), "not-a-snowflake")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceID)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	svc, _, _ := newTestService(t, &mockStorage{})

	for i := 0; i < 5; i++ {
		createTestInvoice(t, svc)
	}
	otherBuyer := snowflake.ID(44)
	_, err := svc.Create(sysCtx(), invoicedomain.CreateInvoiceRequest{
		ListingID: nextListingID(), SellerID: testSellerID, BuyerID: otherBuyer, SaleAmount: 5000,
	})
	require.NoError(t, err)

	buyer := testBuyerID
	resp, err := svc.List(context.Background(), invoicedomain.ListInvoiceRequest{BuyerID: &buyer})
	require.NoError(t, err)
	assert.Len(t, resp.Invoices, 5)
	assert.False(t, resp.HasMore)

	// Page through the full set two at a time.
	var seen []snowflake.ID
	token := ""
	for {
		req := invoicedomain.ListInvoiceRequest{}
		req.PageSize = 2
		req.PageToken = token
		page, err := svc.List(context.Background(), req)
		require.NoError(t, err)
		require.LessOrEqual(t, len(page.Invoices), 2)
		for _, item := range page.Invoices {
			seen = append(seen, item.ID)
		}
		if !page.HasMore {
			break
		}
		token = page.NextPageToken
	}
	assert.Len(t, seen, 6)

	status := invoicedomain.PaymentStatusPaid
	resp, err = svc.List(context.Background(), invoicedomain.ListInvoiceRequest{PaymentStatus: &status})
	require.NoError(t, err)
	assert.Empty(t, resp.Invoices)
}

// Rows created within the same second (and even the same instant) must all
// surface when the cursor lands between them; the id tiebreaker carries the
// ordering and the cursor timestamp keeps sub-second precision.
func TestList_PaginatesSameTimestampRows(t *testing.T) {
	svc, db, _ := newTestService(t, &mockStorage{})

	want := make(map[snowflake.ID]bool)
	for i := 0; i < 3; i++ {
		want[createTestInvoice(t, svc).ID] = true
	}
	createdAt := time.Date(2026, 8, 20, 12, 0, 0, 500_000_000, time.UTC)
	require.NoError(t, db.Model(&invoicedomain.Invoice{}).
		Where("created_at IS NOT NULL").
		Update("created_at", createdAt).Error)

	seen := make(map[snowflake.ID]bool)
	token := ""
	for {
		req := invoicedomain.ListInvoiceRequest{}
		req.PageSize = 1
		req.PageToken = token
		page, err := svc.List(context.Background(), req)
		require.NoError(t, err)
		for _, item := range page.Invoices {
			require.False(t, seen[item.ID], "invoice %s returned twice", item.ID)
			seen[item.ID] = true
		}
		if !page.HasMore {
			break
		}
		token = page.NextPageToken
	}
	assert.Equal(t, want, seen)
}

// Every command is bound to exactly one role, and a mismatched role must be
// rejected before anything is read or written.
func TestCommandAuthorizationTable(t *testing.T) {
	svc, db, _ := newTestService(t, &mockStorage{})
	inv := createTestInvoice(t, svc)
	id := inv.ID.String()

	wrongRole := []struct {
		name string
		ctx  context.Context
		call func(ctx context.Context) error
	}{
		{"buyer cannot save fee draft", buyerCtx(testBuyerID), func(ctx context.Context) error {
			_, err := svc.SaveFeeDraft(ctx, id, invoicedomain.SaveFeeDraftRequest{PackagingAmount: 100})
			return err
		}},
		{"buyer cannot submit fees", buyerCtx(testBuyerID), func(ctx context.Context) error {
			_, err := svc.SubmitFeesForApproval(ctx, id)
			return err
		}},
		{"seller cannot approve fees", sellerCtx(testSellerID), func(ctx context.Context) error {
			_, err := svc.ApproveFees(ctx, id)
			return err
		}},
		{"seller cannot reject fees", sellerCtx(testSellerID), func(ctx context.Context) error {
			_, err := svc.RejectFees(ctx, id, "too expensive")
			return err
		}},
		{"buyer cannot mark shipped", buyerCtx(testBuyerID), func(ctx context.Context) error {
			_, err := svc.MarkShipped(ctx, id, invoicedomain.MarkShippedRequest{Carrier: "XPO"})
			return err
		}},
		{"buyer cannot mark delivered", buyerCtx(testBuyerID), func(ctx context.Context) error {
			_, err := svc.MarkDelivered(ctx, id)
			return err
		}},
		{"seller cannot confirm delivery", sellerCtx(testSellerID), func(ctx context.Context) error {
			_, err := svc.ConfirmDelivery(ctx, id, invoicedomain.ConfirmDeliveryRequest{Condition: invoicedomain.DeliveryConditionGood})
			return err
		}},
		{"seller cannot confirm payment", sellerCtx(testSellerID), func(ctx context.Context) error {
			_, err := svc.ConfirmPayment(ctx, invoicedomain.PaymentConfirmation{InvoiceID: id})
			return err
		}},
	}

	for _, tc := range wrongRole {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call(tc.ctx)
			assert.ErrorIs(t, err, invoicedomain.ErrPermissionDenied)
			assert.Equal(t, inv.Version, reload(t, db, inv.ID).Version)
		})
	}
}

// A buyer or seller who is not a party to the invoice is rejected even with
// the right role.
func TestActorMustBePartyToInvoice(t *testing.T) {
	svc, db, _ := newTestService(t, &mockStorage{})
	inv := createTestInvoice(t, svc)

	_, err := svc.SaveFeeDraft(sellerCtx(strangerID), inv.ID.String(), invoicedomain.SaveFeeDraftRequest{PackagingAmount: 100})
	assert.ErrorIs(t, err, invoicedomain.ErrPermissionDenied)

	_, err = svc.ApproveFees(buyerCtx(strangerID), inv.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrPermissionDenied)

	assert.Equal(t, inv.Version, reload(t, db, inv.ID).Version)
}

// Each successful command advances the row version by exactly one; failed
// commands leave it untouched. The version column is what the persist guard
// keys on.
func TestMutate_VersionAdvancesPerCommand(t *testing.T) {
	svc, db, _ := newTestService(t, &mockStorage{})
	inv := createTestInvoice(t, svc)
	require.Equal(t, int64(1), inv.Version)

	updated, err := svc.SaveFeeDraft(sellerCtx(testSellerID), inv.ID.String(), invoicedomain.SaveFeeDraftRequest{
		PackagingAmount: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	_, err = svc.ApproveFees(buyerCtx(testBuyerID), inv.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStateTransition)
	assert.Equal(t, int64(2), reload(t, db, inv.ID).Version)
}
