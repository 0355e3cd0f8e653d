package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	partydomain "github.com/ironlot/settlement/internal/party/domain"
	partyrepo "github.com/ironlot/settlement/internal/party/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type mockEmail struct {
	mock.Mock
}

func (m *mockEmail) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

func newTestDispatcher(t *testing.T, email *mockEmail) (*Dispatcher, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&partydomain.Party{}))

	d := NewDispatcher(DispatcherParam{
		DB:      db,
		Log:     zap.NewNop(),
		Email:   email,
		Parties: partyrepo.Provide(),
	})
	return d, db
}

func seedParty(t *testing.T, db *gorm.DB, id snowflake.ID, emailAddr string) {
	t.Helper()
	require.NoError(t, db.Create(&partydomain.Party{
		ID:       id,
		Name:     "Test Party",
		Email:    emailAddr,
		Metadata: datatypes.JSONMap{},
	}).Error)
}

func TestDispatcher_SendsToTargetParty(t *testing.T) {
	email := &mockEmail{}
	email.On("Send",
		mock.Anything,
		[]string{"buyer@ironlot.example"},
		"Your item has shipped",
		mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, "Item shipped via Old Dominion")
		}),
	).Return(nil)

	d, db := newTestDispatcher(t, email)
	buyerID := snowflake.ID(22)
	seedParty(t, db, buyerID, "buyer@ironlot.example")

	d.Publish(context.Background(), invoicedomain.Event{
		Type:       invoicedomain.EventItemShipped,
		InvoiceID:  snowflake.ID(1),
		TargetID:   buyerID,
		Summary:    "Item shipped via Old Dominion",
		OccurredAt: time.Now().UTC(),
	})

	email.AssertExpectations(t)
}

func TestDispatcher_EscapesSummaryHTML(t *testing.T) {
	email := &mockEmail{}
	email.On("Send", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, "&lt;script&gt;") && !strings.Contains(body, "<script>")
		}),
	).Return(nil)

	d, db := newTestDispatcher(t, email)
	sellerID := snowflake.ID(11)
	seedParty(t, db, sellerID, "seller@ironlot.example")

	d.Publish(context.Background(), invoicedomain.Event{
		Type:      invoicedomain.EventFeesRejected,
		InvoiceID: snowflake.ID(1),
		TargetID:  sellerID,
		Summary:   "Buyer rejected the proposed fees: <script>alert(1)</script>",
	})

	email.AssertExpectations(t)
}

// Delivery failures are swallowed: Publish never panics and never propagates.
func TestDispatcher_SwallowsFailures(t *testing.T) {
	email := &mockEmail{}
	email.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp timeout"))

	d, db := newTestDispatcher(t, email)
	buyerID := snowflake.ID(22)
	seedParty(t, db, buyerID, "buyer@ironlot.example")

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), invoicedomain.Event{
			Type:     invoicedomain.EventItemDelivered,
			TargetID: buyerID,
			Summary:  "Seller marked the item delivered",
		})
	})
}

func TestDispatcher_UnknownParty(t *testing.T) {
	email := &mockEmail{}

	d, _ := newTestDispatcher(t, email)

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), invoicedomain.Event{
			Type:     invoicedomain.EventFeesSubmitted,
			TargetID: snowflake.ID(404),
			Summary:  "Seller submitted fees",
		})
	})
	email.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubjectFor_CoversAllEventTypes(t *testing.T) {
	types := []invoicedomain.EventType{
		invoicedomain.EventFeesSubmitted,
		invoicedomain.EventFeesApproved,
		invoicedomain.EventFeesRejected,
		invoicedomain.EventItemShipped,
		invoicedomain.EventItemDelivered,
		invoicedomain.EventDeliveryConfirmed,
	}
	for _, eventType := range types {
		assert.NotEqual(t, "Update on your transaction", subjectFor(eventType))
	}
}
