package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
)

type markShippedBody struct {
	Carrier           string                     `json:"carrier"`
	TrackingReference string                     `json:"tracking_reference"`
	Freight           invoicedomain.FreightPatch `json:"freight"`
}

func (s *Server) MarkShipped(c *gin.Context) {
	var body markShippedBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	updated, err := s.invoiceSvc.MarkShipped(c.Request.Context(), strings.TrimSpace(c.Param("id")), invoicedomain.MarkShippedRequest{
		Carrier:           body.Carrier,
		TrackingReference: body.TrackingReference,
		Freight:           body.Freight,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (s *Server) UpdateFreightDetails(c *gin.Context) {
	var patch invoicedomain.FreightPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	updated, err := s.invoiceSvc.UpdateFreightDetails(c.Request.Context(), strings.TrimSpace(c.Param("id")), patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (s *Server) MarkDelivered(c *gin.Context) {
	updated, err := s.invoiceSvc.MarkDelivered(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}
