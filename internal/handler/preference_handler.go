package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daily-update-api/internal/models"
	"github.com/noah-isme/daily-update-api/internal/service"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
	"github.com/noah-isme/daily-update-api/pkg/response"
)

const maxPreferencesBody = 64 << 10

type preferenceManager interface {
	Get(ctx context.Context, teacherID string) (*models.EmailPreferences, error)
	Update(ctx context.Context, teacherID string, raw json.RawMessage) (*models.EmailPreferences, *models.ValidationResult, error)
	Validate(raw json.RawMessage, opts service.PreferenceValidationOptions) *models.ValidationResult
	Availability(ctx context.Context, teacherID, studentID string, date time.Time) (*service.ContentAvailability, error)
}

type dateResolver interface {
	ResolveDate(raw string) (time.Time, error)
}

// PreferenceHandler exposes the teacher's email preferences.
type PreferenceHandler struct {
	prefs preferenceManager
	dates dateResolver
}

// NewPreferenceHandler constructs the handler.
func NewPreferenceHandler(prefs preferenceManager, dates dateResolver) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs, dates: dates}
}

// Get godoc
// @Summary Unified email preferences
// @Tags EmailPreferences
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /email-preferences [get]
func (h *PreferenceHandler) Get(c *gin.Context) {
	teacherID, err := teacherIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	prefs, err := h.prefs.Get(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}

// Update godoc
// @Summary Update email preferences
// @Description Validates the posted preferences and layers them over the current ones.
// @Tags EmailPreferences
// @Accept json
// @Produce json
// @Param payload body models.EmailPreferences true "Preferences"
// @Success 200 {object} response.Envelope
// @Router /email-preferences [put]
func (h *PreferenceHandler) Update(c *gin.Context) {
	teacherID, err := teacherIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	raw, err := readRawBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	prefs, result, err := h.prefs.Update(c.Request.Context(), teacherID, raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if result != nil && len(result.Warnings) > 0 {
		meta = map[string]interface{}{"warnings": result.Warnings}
	}
	response.JSON(c, http.StatusOK, prefs, nil, meta)
}

// Validate godoc
// @Summary Validate email preferences without saving
// @Tags EmailPreferences
// @Accept json
// @Produce json
// @Param strict query bool false "Strict validation"
// @Param type query string false "Limit to parent or student"
// @Param payload body object true "Preferences document"
// @Success 200 {object} response.Envelope
// @Router /email-preferences/validate [post]
func (h *PreferenceHandler) Validate(c *gin.Context) {
	raw, err := readRawBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	opts := service.PreferenceValidationOptions{}
	opts.Strict, _ = strconv.ParseBool(c.Query("strict"))
	if t := strings.ToLower(strings.TrimSpace(c.Query("type"))); t != "" {
		opts.RecipientType = models.RecipientType(t)
		if !opts.RecipientType.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type must be parent or student"))
			return
		}
	}
	response.JSON(c, http.StatusOK, h.prefs.Validate(raw, opts), nil)
}

// Availability godoc
// @Summary Content availability for a student
// @Tags EmailPreferences
// @Produce json
// @Param studentId query string true "Student ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /email-preferences/availability [get]
func (h *PreferenceHandler) Availability(c *gin.Context) {
	teacherID, err := teacherIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	studentID := strings.TrimSpace(c.Query("studentId"))
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId required"))
		return
	}
	date, err := h.dates.ResolveDate(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	availability, err := h.prefs.Availability(c.Request.Context(), teacherID, studentID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

func readRawBody(c *gin.Context) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPreferencesBody))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Email preferences must be an object")
	}
	return json.RawMessage(body), nil
}
