package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	"github.com/ironlot/settlement/pkg/db/pagination"
)

type createInvoiceBody struct {
	ListingID           string  `json:"listing_id" binding:"required"`
	SellerID            string  `json:"seller_id" binding:"required"`
	BuyerID             string  `json:"buyer_id" binding:"required"`
	SaleAmount          int64   `json:"sale_amount"`
	BuyerPremiumPercent float64 `json:"buyer_premium_percent"`
	TaxAmount           int64   `json:"tax_amount"`
}

// CreateInvoice is the sale-origination intake: invoked once per closed sale
// by the auction platform.
func (s *Server) CreateInvoice(c *gin.Context) {
	var body createInvoiceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	listingID, err1 := snowflake.ParseString(strings.TrimSpace(body.ListingID))
	sellerID, err2 := snowflake.ParseString(strings.TrimSpace(body.SellerID))
	buyerID, err3 := snowflake.ParseString(strings.TrimSpace(body.BuyerID))
	if err1 != nil || err2 != nil || err3 != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	created, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		ListingID:           listingID,
		SellerID:            sellerID,
		BuyerID:             buyerID,
		SaleAmount:          body.SaleAmount,
		BuyerPremiumPercent: body.BuyerPremiumPercent,
		TaxAmount:           body.TaxAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (s *Server) ListInvoices(c *gin.Context) {
	req := invoicedomain.ListInvoiceRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(c.Query("page_token")),
			PageSize:  parsePageSize(c.Query("page_size")),
		},
	}

	if raw := strings.TrimSpace(c.Query("seller_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.SellerID = &id
	}
	if raw := strings.TrimSpace(c.Query("buyer_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.BuyerID = &id
	}
	if raw := strings.TrimSpace(c.Query("payment_status")); raw != "" {
		status := invoicedomain.PaymentStatus(raw)
		req.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(c.Query("fees_status")); raw != "" {
		status := invoicedomain.FeesStatus(raw)
		req.FeesStatus = &status
	}
	if raw := strings.TrimSpace(c.Query("fulfillment_status")); raw != "" {
		status := invoicedomain.FulfillmentStatus(raw)
		req.FulfillmentStatus = &status
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Invoices,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	item, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func parsePageSize(raw string) int {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
