package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daily-update-api/internal/dto"
	"github.com/noah-isme/daily-update-api/internal/service"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
	"github.com/noah-isme/daily-update-api/pkg/mailer"
	"github.com/noah-isme/daily-update-api/pkg/response"
)

type emailSender interface {
	SendWithRetry(ctx context.Context, transport string, msg *mailer.Message, maxRetries int) (*mailer.Result, int, error)
	SendBatch(ctx context.Context, transport string, msgs []*mailer.Message, onProgress func(service.BatchProgress), maxRetries int) (*service.BatchResult, error)
	Status(ctx context.Context, transport string) service.TransportStatus
	Statuses(ctx context.Context) []service.TransportStatus
}

// EmailHandler exposes raw email sending and transport status.
type EmailHandler struct {
	email emailSender
}

// NewEmailHandler constructs the handler.
func NewEmailHandler(email emailSender) *EmailHandler {
	return &EmailHandler{email: email}
}

// Send godoc
// @Summary Send a single email
// @Tags Emails
// @Accept json
// @Produce json
// @Param payload body dto.SendEmailRequest true "Email"
// @Success 200 {object} response.Envelope
// @Router /emails/send [post]
func (h *EmailHandler) Send(c *gin.Context) {
	var req dto.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	res, attempts, err := h.email.SendWithRetry(c.Request.Context(), req.Transport, req.Message(), req.MaxRetries)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SendEmailResponse{MessageID: res.MessageID, Transport: res.Transport, Attempts: attempts}, nil)
}

// Batch godoc
// @Summary Send a batch of emails
// @Description Emails are sent in order; failures are reported per recipient and do not stop the batch.
// @Tags Emails
// @Accept json
// @Produce json
// @Param payload body dto.BatchEmailRequest true "Batch"
// @Success 200 {object} response.Envelope
// @Router /emails/batch [post]
func (h *EmailHandler) Batch(c *gin.Context) {
	var req dto.BatchEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	msgs := make([]*mailer.Message, 0, len(req.Emails))
	for _, e := range req.Emails {
		msgs = append(msgs, e.Message())
	}
	result, err := h.email.SendBatch(c.Request.Context(), req.Transport, msgs, nil, req.MaxRetries)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrDeliveryFailed.Code, appErrors.ErrDeliveryFailed.Status, "batch interrupted"))
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Status godoc
// @Summary Email transport status
// @Tags Emails
// @Produce json
// @Param transport query string false "Transport name; all transports when empty"
// @Success 200 {object} response.Envelope
// @Router /emails/status [get]
func (h *EmailHandler) Status(c *gin.Context) {
	if transport := strings.TrimSpace(c.Query("transport")); transport != "" {
		response.JSON(c, http.StatusOK, h.email.Status(c.Request.Context(), transport), nil)
		return
	}
	response.JSON(c, http.StatusOK, h.email.Statuses(c.Request.Context()), nil)
}
