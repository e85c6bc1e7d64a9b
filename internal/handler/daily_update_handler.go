package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daily-update-api/internal/middleware"
	"github.com/noah-isme/daily-update-api/internal/models"
	"github.com/noah-isme/daily-update-api/internal/service"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
	"github.com/noah-isme/daily-update-api/pkg/response"
)

type dailyUpdateReader interface {
	ResolveDate(raw string) (time.Time, error)
	GenerateForStudent(ctx context.Context, teacherID, studentID string, date time.Time) (*models.DailyUpdate, error)
	GenerateAll(ctx context.Context, teacherID string, date time.Time) (*service.ClassDailyUpdates, error)
	Summary(ctx context.Context, teacherID string, date time.Time) (*models.ClassSummary, error)
}

type dailyUpdateDispatcher interface {
	SendParentUpdates(ctx context.Context, teacherID string, date time.Time) (*service.DispatchSummary, error)
	SendParentUpdate(ctx context.Context, teacherID, studentID string, date time.Time) (*service.DispatchSummary, error)
	SendStudentEmails(ctx context.Context, teacherID string, date time.Time) (*service.DispatchSummary, error)
	SendStudentEmail(ctx context.Context, teacherID, studentID string, date time.Time) (*service.DispatchSummary, error)
	Preview(ctx context.Context, teacherID, studentID string, date time.Time, t models.RecipientType) (*service.EmailPreview, error)
	PreviewFromData(ctx context.Context, teacherID string, update *models.DailyUpdate) (*service.EmailPreview, error)
	Deliver(ctx context.Context, teacherID string, req service.DeliverRequest) (*service.DispatchSummary, error)
	EnqueueParentUpdates(teacherID string, date time.Time) (*service.DispatchJob, error)
	Job(teacherID, id string) (*service.DispatchJob, error)
}

// DailyUpdateHandler exposes daily update generation and sending endpoints.
type DailyUpdateHandler struct {
	updates  dailyUpdateReader
	dispatch dailyUpdateDispatcher
}

// NewDailyUpdateHandler constructs the handler.
func NewDailyUpdateHandler(updates dailyUpdateReader, dispatch dailyUpdateDispatcher) *DailyUpdateHandler {
	return &DailyUpdateHandler{updates: updates, dispatch: dispatch}
}

// scope resolves the acting teacher and the requested date.
func (h *DailyUpdateHandler) scope(c *gin.Context) (string, time.Time, bool) {
	teacherID, err := teacherIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return "", time.Time{}, false
	}
	date, err := h.updates.ResolveDate(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return "", time.Time{}, false
	}
	return teacherID, date, true
}

// Generate godoc
// @Summary Generate daily updates
// @Description Generates the update of one student when studentId is set, otherwise every update of the class plus its summary.
// @Tags DailyUpdates
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Param studentId query string false "Student ID"
// @Success 200 {object} response.Envelope
// @Router /daily-updates [get]
func (h *DailyUpdateHandler) Generate(c *gin.Context) {
	teacherID, date, ok := h.scope(c)
	if !ok {
		return
	}
	if studentID := strings.TrimSpace(c.Query("studentId")); studentID != "" {
		update, err := h.updates.GenerateForStudent(c.Request.Context(), teacherID, studentID, date)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, update, nil)
		return
	}
	result, err := h.updates.GenerateAll(c.Request.Context(), teacherID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(result.Updates))
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Summary godoc
// @Summary Class summary for a day
// @Tags DailyUpdates
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /daily-updates/summary [get]
func (h *DailyUpdateHandler) Summary(c *gin.Context) {
	teacherID, date, ok := h.scope(c)
	if !ok {
		return
	}
	summary, err := h.updates.Summary(c.Request.Context(), teacherID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Preview godoc
// @Summary Preview a student's daily update email
// @Tags DailyUpdates
// @Produce json
// @Param id path string true "Student ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param type query string false "parent or student" default(parent)
// @Success 200 {object} response.Envelope
// @Router /daily-updates/students/{id}/preview [get]
func (h *DailyUpdateHandler) Preview(c *gin.Context) {
	teacherID, date, ok := h.scope(c)
	if !ok {
		return
	}
	recipient := models.RecipientType(strings.ToLower(c.DefaultQuery("type", string(models.RecipientParent))))
	preview, err := h.dispatch.Preview(c.Request.Context(), teacherID, c.Param("id"), date, recipient)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// PreviewFromData godoc
// @Summary Render a student email from posted update data
// @Tags DailyUpdates
// @Accept json
// @Produce json
// @Param payload body models.DailyUpdate true "Daily update"
// @Success 200 {object} response.Envelope
// @Router /daily-updates/students/preview [post]
func (h *DailyUpdateHandler) PreviewFromData(c *gin.Context) {
	teacherID, err := teacherIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var update models.DailyUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	preview, err := h.dispatch.PreviewFromData(c.Request.Context(), teacherID, &update)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// SendParentUpdates godoc
// @Summary Send parent updates for the whole class
// @Tags DailyUpdates
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param async query bool false "Queue the send and return immediately"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /daily-updates/send [post]
func (h *DailyUpdateHandler) SendParentUpdates(c *gin.Context) {
	teacherID, date, ok := h.scope(c)
	if !ok {
		return
	}
	if async, _ := strconv.ParseBool(c.Query("async")); async {
		job, err := h.dispatch.EnqueueParentUpdates(teacherID, date)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, job)
		return
	}
	summary, err := h.dispatch.SendParentUpdates(c.Request.Context(), teacherID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// JobStatus godoc
// @Summary Status of a queued class send
// @Tags DailyUpdates
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /daily-updates/jobs/{id} [get]
func (h *DailyUpdateHandler) JobStatus(c *gin.Context) {
	teacherID, err := teacherIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.dispatch.Job(teacherID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// SendParentUpdate godoc
// @Summary Send one student's update to their parents
// @Tags DailyUpdates
// @Produce json
// @Param id path string true "Student ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /daily-updates/students/{id}/send [post]
func (h *DailyUpdateHandler) SendParentUpdate(c *gin.Context) {
	teacherID, date, ok := h.scope(c)
	if !ok {
		return
	}
	summary, err := h.dispatch.SendParentUpdate(c.Request.Context(), teacherID, c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// SendStudentEmails godoc
// @Summary Send student emails for the whole class
// @Tags DailyUpdates
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /daily-updates/students/send [post]
func (h *DailyUpdateHandler) SendStudentEmails(c *gin.Context) {
	teacherID, date, ok := h.scope(c)
	if !ok {
		return
	}
	summary, err := h.dispatch.SendStudentEmails(c.Request.Context(), teacherID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// SendStudentEmail godoc
// @Summary Send one student their daily email
// @Tags DailyUpdates
// @Produce json
// @Param id path string true "Student ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /daily-updates/students/{id}/send-student [post]
func (h *DailyUpdateHandler) SendStudentEmail(c *gin.Context) {
	teacherID, date, ok := h.scope(c)
	if !ok {
		return
	}
	summary, err := h.dispatch.SendStudentEmail(c.Request.Context(), teacherID, c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Deliver godoc
// @Summary Deliver rendered student content to recipients
// @Tags DailyUpdates
// @Accept json
// @Produce json
// @Param payload body service.DeliverRequest true "Rendered email"
// @Success 200 {object} response.Envelope
// @Router /daily-updates/students/deliver [post]
func (h *DailyUpdateHandler) Deliver(c *gin.Context) {
	teacherID, err := teacherIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.DeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	summary, err := h.dispatch.Deliver(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
