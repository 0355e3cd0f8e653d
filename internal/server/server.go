package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ironlot/settlement/internal/config"
	"github.com/ironlot/settlement/internal/events"
	"github.com/ironlot/settlement/internal/invoice"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	"github.com/ironlot/settlement/internal/observability"
	obsmiddleware "github.com/ironlot/settlement/internal/observability/logger"
	"github.com/ironlot/settlement/internal/party"
	partydomain "github.com/ironlot/settlement/internal/party/domain"
	"github.com/ironlot/settlement/internal/providers/email"
	"github.com/ironlot/settlement/internal/providers/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	email.Module,
	storage.Module,
	party.Module,
	events.Module,
	invoice.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	genID      *snowflake.Node
	invoiceSvc invoicedomain.Service
	partySvc   partydomain.Service
}

type ServerParam struct {
	fx.In

	Engine     *gin.Engine
	Cfg        config.Config
	GenID      *snowflake.Node
	InvoiceSvc invoicedomain.Service
	PartySvc   partydomain.Service
}

func NewServer(p ServerParam) *Server {
	return &Server{
		engine:     p.Engine,
		cfg:        p.Cfg,
		genID:      p.GenID,
		invoiceSvc: p.InvoiceSvc,
		partySvc:   p.PartySvc,
	}
}

func (s *Server) RegisterAPIRoutes() {
	v1 := s.engine.Group("/v1", ActorMiddleware())

	parties := v1.Group("/parties")
	parties.POST("", s.CreateParty)
	parties.GET("/:id", s.GetPartyByID)

	invoices := v1.Group("/invoices")
	invoices.POST("", s.CreateInvoice)
	invoices.GET("", s.ListInvoices)
	invoices.GET("/:id", s.GetInvoiceByID)

	invoices.PUT("/:id/fees", s.SaveFeeDraft)
	invoices.POST("/:id/fees/submit", s.SubmitFeesForApproval)
	invoices.POST("/:id/fees/approve", s.ApproveFees)
	invoices.POST("/:id/fees/reject", s.RejectFees)

	invoices.POST("/:id/shipment", s.MarkShipped)
	invoices.PATCH("/:id/shipment", s.UpdateFreightDetails)
	invoices.POST("/:id/delivered", s.MarkDelivered)

	invoices.POST("/:id/delivery-confirmation", s.ConfirmDelivery)
	invoices.POST("/:id/documents", s.AttachShippingDocuments)

	s.engine.POST("/webhooks/payment/:provider", s.HandlePaymentWebhook)
}
