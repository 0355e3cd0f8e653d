package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
)

type saveFeeDraftBody struct {
	PackagingAmount int64  `json:"packaging_amount"`
	PackagingNote   string `json:"packaging_note"`
	ShippingAmount  int64  `json:"shipping_amount"`
	ShippingNote    string `json:"shipping_note"`
}

// SaveFeeDraft accepts either a JSON body or a multipart form. Multipart is
// used when the seller attaches a carrier quote document alongside the
// amounts.
func (s *Server) SaveFeeDraft(c *gin.Context) {
	var req invoicedomain.SaveFeeDraftRequest

	if isMultipart(c) {
		packaging, okPackaging := parseAmountField(c.PostForm("packaging_amount"))
		shipping, okShipping := parseAmountField(c.PostForm("shipping_amount"))
		if !okPackaging || !okShipping {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.PackagingAmount = packaging
		req.ShippingAmount = shipping
		req.PackagingNote = c.PostForm("packaging_note")
		req.ShippingNote = c.PostForm("shipping_note")

		if header, err := c.FormFile("shipping_quote"); err == nil {
			upload, err := readUpload(header)
			if err != nil {
				AbortWithError(c, ErrInvalidRequest)
				return
			}
			req.Quote = &upload
		}
	} else {
		var body saveFeeDraftBody
		if err := c.ShouldBindJSON(&body); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.PackagingAmount = body.PackagingAmount
		req.PackagingNote = body.PackagingNote
		req.ShippingAmount = body.ShippingAmount
		req.ShippingNote = body.ShippingNote
	}

	updated, err := s.invoiceSvc.SaveFeeDraft(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (s *Server) SubmitFeesForApproval(c *gin.Context) {
	updated, err := s.invoiceSvc.SubmitFeesForApproval(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (s *Server) ApproveFees(c *gin.Context) {
	updated, err := s.invoiceSvc.ApproveFees(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

type rejectFeesBody struct {
	Reason string `json:"reason"`
}

func (s *Server) RejectFees(c *gin.Context) {
	var body rejectFeesBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	updated, err := s.invoiceSvc.RejectFees(c.Request.Context(), strings.TrimSpace(c.Param("id")), body.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func parseAmountField(raw string) (int64, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, true
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
