package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/daily-update-api/internal/models"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
)

type emailSettingsWriter interface {
	UpdateEmailSettings(ctx context.Context, id string, settings models.EmailSettings) error
}

// PreferenceService reads and updates a teacher's unified email preferences.
type PreferenceService struct {
	updates  *DailyUpdateService
	settings emailSettingsWriter
	logger   *zap.Logger
}

// NewPreferenceService constructs a PreferenceService.
func NewPreferenceService(updates *DailyUpdateService, settings emailSettingsWriter, logger *zap.Logger) *PreferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceService{updates: updates, settings: settings, logger: logger}
}

// Get returns the effective preferences of a teacher.
func (s *PreferenceService) Get(ctx context.Context, teacherID string) (*models.EmailPreferences, error) {
	teacher, err := s.updates.Teacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return CreateUnifiedEmailPreferences(teacher.EmailSettings, s.logger), nil
}

// Update validates raw and layers it over the teacher's current preferences.
// Missing recipient types and sections keep their current values.
func (s *PreferenceService) Update(ctx context.Context, teacherID string, raw json.RawMessage) (*models.EmailPreferences, *models.ValidationResult, error) {
	result := s.Validate(raw, PreferenceValidationOptions{})
	if !result.IsValid {
		return nil, result, appErrors.WithDetails(appErrors.ErrValidation, "invalid email preferences", result.Errors)
	}

	teacher, err := s.updates.Teacher(ctx, teacherID)
	if err != nil {
		return nil, result, err
	}
	current := CreateUnifiedEmailPreferences(teacher.EmailSettings, s.logger)

	var overlay preferencesOverlay
	if err := json.Unmarshal(raw, &overlay); err != nil {
		return nil, result, appErrors.Clone(appErrors.ErrValidation, "Email preferences must be an object")
	}
	applyOverlay(current.Parent, overlay.Parent, models.RecipientParent, s.logger)
	applyOverlay(current.Student, overlay.Student, models.RecipientStudent, s.logger)

	unified, err := json.Marshal(current)
	if err != nil {
		return nil, result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode preferences")
	}
	settings := teacher.EmailSettings
	settings.Unified = unified
	if err := s.settings.UpdateEmailSettings(ctx, teacherID, settings); err != nil {
		return nil, result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save preferences")
	}
	// cached updates embed the teacher record
	s.updates.Invalidate(ctx, teacherID)
	s.logger.Info("email preferences updated", zap.String("teacher_id", teacherID), zap.Int("warnings", len(result.Warnings)))
	return current, result, nil
}

// Validate checks a raw preferences document without saving it.
func (s *PreferenceService) Validate(raw json.RawMessage, opts PreferenceValidationOptions) *models.ValidationResult {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		decoded = nil
	}
	return ValidateEmailPreferences(decoded, opts)
}

// Availability reports which sections each recipient type would receive
// for one student on date.
func (s *PreferenceService) Availability(ctx context.Context, teacherID, studentID string, date time.Time) (*ContentAvailability, error) {
	prefs, err := s.Get(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	update, err := s.updates.GenerateForStudent(ctx, teacherID, studentID, date)
	if err != nil {
		return nil, err
	}
	availability := CheckContentAvailability(prefs, update, s.logger)
	return &availability, nil
}
