package service

import (
	"testing"
	"time"

	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkShipped_RequiresPayment(t *testing.T) {
	svc, _, _ := newTestService(t, &mockStorage{})
	inv := createTestInvoice(t, svc)

	_, err := svc.MarkShipped(sellerCtx(testSellerID), inv.ID.String(), invoicedomain.MarkShippedRequest{
		Carrier: "Old Dominion",
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStateTransition)
}

func TestMarkShipped_HappyPath(t *testing.T) {
	svc, _, publisher := newTestService(t, &mockStorage{})
	inv := createTestInvoice(t, svc)
	paid := payInvoice(t, svc, inv)
	require.Equal(t, invoicedomain.FulfillmentStatusProcessing, paid.FulfillmentStatus)

	weight := int64(4200)
	shipped, err := svc.MarkShipped(sellerCtx(testSellerID), inv.ID.String(), invoicedomain.MarkShippedRequest{
		Carrier: "Old Dominion",
		Freight: invoicedomain.FreightPatch{
			BOLNumber:    strptr("BOL-2291"),
			ProNumber:    strptr("PRO-88172"),
			FreightClass: strptr("85"),
			WeightLbs:    &weight,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, invoicedomain.FulfillmentStatusShipped, shipped.FulfillmentStatus)
	require.NotNil(t, shipped.ShippedAt)
	assert.Equal(t, "Old Dominion", shipped.Carrier)
	// No explicit tracking reference: the PRO number stands in.
	assert.Equal(t, "PRO-88172", shipped.TrackingReference)
	assert.Equal(t, "BOL-2291", shipped.BOLNumber)
	assert.Equal(t, int64(4200), shipped.WeightLbs)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, invoicedomain.EventItemShipped, publisher.events[0].Type)
	assert.Equal(t, inv.BuyerID, publisher.events[0].TargetID)
}

func TestMarkShipped_CarrierRequired(t *testing.T) {
	svc, _, _ := newTestService(t, &mockStorage{})
	inv := createTestInvoice(t, svc)
	payInvoice(t, svc, inv)

	_, err := svc.MarkShipped(sellerCtx(testSellerID), inv.ID.String(), invoicedomain.MarkShippedRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrValidationFailed)
}

// Fulfillment never regresses: shipping twice is a conflict.
func TestMarkShipped_Monotonic(t *testing.T) {
	svc, _, _ := newTestService(t, &mockStorage{})
	inv := createTestInvoice(t, svc)
	payInvoice(t, svc, inv)
	shipInvoice(t, svc, inv)

	_, err := svc.MarkShipped(sellerCtx(testSellerID), inv.ID.String(), invoicedomain.MarkShippedRequest{
		Carrier: "XPO",
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStateTransition)
}

func TestUpdateFreightDetails_PartialMergeNeverBlanks(t *testing.T) {
	svc, _, _ := newTestService(t, &mockStorage{})
	inv := createTestInvoice(t, svc)
	payInvoice(t, svc, inv)

	weight := int64(4200)
	_, err := svc.MarkShipped(sellerCtx(testSellerID), inv.ID.String(), invoicedomain.MarkShippedRequest{
		Carrier: "Old Dominion",
		Freight: invoicedomain.FreightPatch{
			BOLNumber:     strptr("BOL-2291"),
			WeightLbs:     &weight,
			PickupContact: strptr("Dave, dock 3"),
		},
	})
	require.NoError(t, err)

	eta := time.Now().UTC().Add(72 * time.Hour)
	updated, err := svc.UpdateFreightDetails(sellerCtx(testSellerID), inv.ID.String(), invoicedomain.FreightPatch{
		ProNumber:           strptr("PRO-88172"),
		EstimatedDeliveryAt: &eta,
	})
	require.NoError(t, err)

	// New fields landed; omitted fields survived.
	assert.Equal(t, "PRO-88172", updated.ProNumber)
	require.NotNil(t, updated.EstimatedDeliveryAt)
	assert.Equal(t, "BOL-2291", updated.BOLNumber)
	assert.Equal(t, int64(4200), updated.WeightLbs)
	assert.Equal(t, "Dave, dock 3", updated.PickupContact)
}

func TestUpdateFreightDetails_EmptyPatch(t *testing.T) {
	svc, _, _ := newTestService(t, &mockStorage{})
	inv := createTestInvoice(t, svc)
	payInvoice(t, svc, inv)
	shipInvoice(t, svc, inv)

	_, err := svc.UpdateFreightDetails(sellerCtx(testSellerID), inv.ID.String(), invoicedomain.FreightPatch{})
	assert.ErrorIs(t, err, invoicedomain.ErrValidationFailed)
}

func TestUpdateFreightDetails_OnlyWhileShipped(t *testing.T) {
	svc, _, _ := newTestService(t, &mockStorage{})
	inv := createTestInvoice(t, svc)
	payInvoice(t, svc, inv)

	_, err := svc.UpdateFreightDetails(sellerCtx(testSellerID), inv.ID.String(), invoicedomain.FreightPatch{
		ProNumber: strptr("PRO-1"),
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStateTransition)
}

func TestMarkDelivered_SellerPath(t *testing.T) {
	svc, _, publisher := newTestService(t, &mockStorage{})
	inv := createTestInvoice(t, svc)
	payInvoice(t, svc, inv)
	shipInvoice(t, svc, inv)

	delivered, err := svc.MarkDelivered(sellerCtx(testSellerID), inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.FulfillmentStatusDelivered, delivered.FulfillmentStatus)
	require.NotNil(t, delivered.DeliveredAt)
	// Seller assertion of arrival is not buyer confirmation.
	assert.Nil(t, delivered.DeliveryConfirmedAt)
	assert.Empty(t, delivered.DeliveryCondition)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, invoicedomain.EventItemDelivered, publisher.events[1].Type)

	_, err = svc.MarkDelivered(sellerCtx(testSellerID), inv.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStateTransition)
}

func strptr(s string) *string { return &s }
