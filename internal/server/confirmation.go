package server

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
)

// maxUploadBytes caps any single uploaded document. Delivery receipts and
// damage photos are small; anything larger is a client mistake.
const maxUploadBytes = 20 << 20

// ConfirmDelivery handles the buyer's multipart confirmation form: the
// condition and notes fields plus an optional signed delivery document and
// damage evidence photos.
func (s *Server) ConfirmDelivery(c *gin.Context) {
	if !isMultipart(c) {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	req := invoicedomain.ConfirmDeliveryRequest{
		Condition: invoicedomain.DeliveryCondition(strings.TrimSpace(c.PostForm("condition"))),
		Notes:     c.PostForm("notes"),
	}

	if header := firstFile(form, "signed_document"); header != nil {
		upload, err := readUpload(header)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.SignedDocument = &upload
	}
	for _, header := range form.File["damage_evidence"] {
		upload, err := readUpload(header)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.DamageEvidence = append(req.DamageEvidence, upload)
	}

	result, err := s.invoiceSvc.ConfirmDelivery(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     result.Invoice,
		"warnings": result.Warnings,
	})
}

// AttachShippingDocuments accepts late paperwork for an already-confirmed
// delivery: a signed document and/or additional photos.
func (s *Server) AttachShippingDocuments(c *gin.Context) {
	if !isMultipart(c) {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req invoicedomain.AttachDocumentsRequest
	if header := firstFile(form, "signed_document"); header != nil {
		upload, err := readUpload(header)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.SignedDocument = &upload
	}
	for _, header := range form.File["photos"] {
		upload, err := readUpload(header)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.Photos = append(req.Photos, upload)
	}

	updated, err := s.invoiceSvc.AttachShippingDocuments(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil
	}
	return headers[0]
}

func readUpload(header *multipart.FileHeader) (invoicedomain.DocumentUpload, error) {
	file, err := header.Open()
	if err != nil {
		return invoicedomain.DocumentUpload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return invoicedomain.DocumentUpload{}, err
	}

	return invoicedomain.DocumentUpload{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}, nil
}
