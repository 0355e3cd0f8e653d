package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ironlot/settlement/internal/actorctx"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubInvoiceService embeds the interface so only the methods under test need
// real bodies.
type stubInvoiceService struct {
	invoicedomain.Service

	confirmCtx context.Context
	confirmReq invoicedomain.PaymentConfirmation
	confirmErr error
}

func (s *stubInvoiceService) ConfirmPayment(ctx context.Context, req invoicedomain.PaymentConfirmation) (invoicedomain.Invoice, error) {
	s.confirmCtx = ctx
	s.confirmReq = req
	if s.confirmErr != nil {
		return invoicedomain.Invoice{}, s.confirmErr
	}
	return invoicedomain.Invoice{PaymentStatus: invoicedomain.PaymentStatusPaid}, nil
}

func newWebhookRouter(stub *stubInvoiceService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	s := &Server{engine: r, invoiceSvc: stub}
	r.POST("/webhooks/payment/:provider", s.HandlePaymentWebhook)
	return r
}

func TestHandlePaymentWebhook_InjectsSystemActor(t *testing.T) {
	stub := &stubInvoiceService{}
	r := newWebhookRouter(stub)

	body := `{"invoice_id":"1954027311","method":"ach","paid_at":"2026-08-20T15:04:05Z"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment/stripe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1954027311", stub.confirmReq.InvoiceID)
	assert.Equal(t, "ach", stub.confirmReq.Method)
	assert.False(t, stub.confirmReq.PaidAt.IsZero())

	actor, ok := actorctx.FromContext(stub.confirmCtx)
	require.True(t, ok)
	assert.Equal(t, actorctx.RoleSystem, actor.Role)
}

// The gateway identifies itself only through the path; an empty method falls
// back to the provider segment.
func TestHandlePaymentWebhook_MethodDefaultsToProvider(t *testing.T) {
	stub := &stubInvoiceService{}
	r := newWebhookRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment/stripe", strings.NewReader(`{"invoice_id":"42"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stripe", stub.confirmReq.Method)
}

func TestHandlePaymentWebhook_BadBody(t *testing.T) {
	stub := &stubInvoiceService{}
	r := newWebhookRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment/stripe", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePaymentWebhook_PreconditionMapsTo422(t *testing.T) {
	stub := &stubInvoiceService{confirmErr: invoicedomain.ErrPaymentPreconditionFailed}
	r := newWebhookRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment/stripe", strings.NewReader(`{"invoice_id":"42"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
