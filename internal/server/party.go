package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	partydomain "github.com/ironlot/settlement/internal/party/domain"
)

func (s *Server) CreateParty(c *gin.Context) {
	var req partydomain.CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	created, err := s.partySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (s *Server) GetPartyByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	item, err := s.partySvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}
