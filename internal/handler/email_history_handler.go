package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daily-update-api/internal/models"
	"github.com/noah-isme/daily-update-api/internal/service"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
	"github.com/noah-isme/daily-update-api/pkg/export"
	"github.com/noah-isme/daily-update-api/pkg/response"
)

type emailHistoryReader interface {
	List(ctx context.Context, filter models.DailyUpdateEmailFilter) ([]models.DailyUpdateEmail, *models.Pagination, error)
	Export(ctx context.Context, filter models.DailyUpdateEmailFilter, format export.Format) (*service.HistoryExport, error)
	Open(token string) (*service.HistoryDownload, error)
}

// EmailHistoryHandler exposes the sent-email history.
type EmailHistoryHandler struct {
	history emailHistoryReader
}

// NewEmailHistoryHandler constructs the handler.
func NewEmailHistoryHandler(history emailHistoryReader) *EmailHistoryHandler {
	return &EmailHistoryHandler{history: history}
}

// List godoc
// @Summary List sent daily update emails
// @Tags EmailHistory
// @Produce json
// @Param studentId query string false "Student ID"
// @Param recipientType query string false "parent or student"
// @Param status query string false "sent, failed or skipped"
// @Param from query string false "First update date (YYYY-MM-DD)"
// @Param to query string false "Last update date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /emails/history [get]
func (h *EmailHistoryHandler) List(c *gin.Context) {
	filter, ok := historyFilter(c)
	if !ok {
		return
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	records, pagination, err := h.history.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Export godoc
// @Summary Export email history
// @Description Renders the filtered history and returns a signed, expiring download link.
// @Tags EmailHistory
// @Produce json
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {object} response.Envelope
// @Router /emails/history/export [get]
func (h *EmailHistoryHandler) Export(c *gin.Context) {
	filter, ok := historyFilter(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return
	}
	result, err := h.history.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download an email history export
// @Tags EmailHistory
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /emails/history/download/{token} [get]
func (h *EmailHistoryHandler) Download(c *gin.Context) {
	download, err := h.history.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Type", download.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	http.ServeContent(c.Writer, c.Request, download.Filename, download.ModTime, download.File)
}

func historyFilter(c *gin.Context) (models.DailyUpdateEmailFilter, bool) {
	teacherID, err := teacherIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return models.DailyUpdateEmailFilter{}, false
	}
	return models.DailyUpdateEmailFilter{
		TeacherID:     teacherID,
		StudentID:     strings.TrimSpace(c.Query("studentId")),
		RecipientType: models.RecipientType(strings.ToLower(strings.TrimSpace(c.Query("recipientType")))),
		Status:        strings.ToLower(strings.TrimSpace(c.Query("status"))),
		DateFrom:      strings.TrimSpace(c.Query("from")),
		DateTo:        strings.TrimSpace(c.Query("to")),
	}, true
}
