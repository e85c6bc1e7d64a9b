package service

import (
	"encoding/json"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/daily-update-api/internal/models"
)

var defaultShowEmpty = map[models.RecipientType]map[models.EmailSection]bool{
	models.RecipientParent: {
		models.SectionAttendance:    true,
		models.SectionGrades:        false,
		models.SectionSubjectGrades: false,
		models.SectionBehavior:      true,
		models.SectionAssignments:   true,
		models.SectionUpcoming:      true,
		models.SectionLessons:       false,
		models.SectionReminders:     true,
	},
	models.RecipientStudent: {
		models.SectionAttendance:    false,
		models.SectionGrades:        false,
		models.SectionSubjectGrades: false,
		models.SectionBehavior:      false,
		models.SectionAssignments:   true,
		models.SectionUpcoming:      true,
		models.SectionLessons:       false,
		models.SectionReminders:     true,
	},
}

// DefaultEmailPreferences returns a fresh copy of the built-in preferences:
// parent emails on, student emails off, every section enabled.
func DefaultEmailPreferences() *models.EmailPreferences {
	return &models.EmailPreferences{
		Parent:  defaultRecipientPreferences(models.RecipientParent, true),
		Student: defaultRecipientPreferences(models.RecipientStudent, false),
	}
}

func defaultRecipientPreferences(t models.RecipientType, enabled bool) *models.RecipientPreferences {
	prefs := &models.RecipientPreferences{
		Enabled:  enabled,
		Sections: make(map[models.EmailSection]models.SectionPreference, len(models.EmailSections)),
	}
	for _, section := range models.EmailSections {
		prefs.Sections[section] = DefaultSectionPreference(t, section)
	}
	return prefs
}

// DefaultSectionPreference returns the built-in preference for a section,
// falling back to enabled and shown-when-empty.
func DefaultSectionPreference(t models.RecipientType, section models.EmailSection) models.SectionPreference {
	if bySection, ok := defaultShowEmpty[t]; ok {
		if showEmpty, ok := bySection[section]; ok {
			return models.SectionPreference{Enabled: true, ShowEmpty: showEmpty}
		}
	}
	return models.SectionPreference{Enabled: true, ShowEmpty: true}
}

// NormalizePreferences upgrades a flat legacy toggle map. A section missing
// from the map is treated as enabled for both recipient types.
func NormalizePreferences(toggles map[string]bool, t models.RecipientType) map[models.EmailSection]bool {
	normalized := make(map[models.EmailSection]bool, len(models.EmailSections))
	for _, section := range models.EmailSections {
		enabled, ok := toggles[string(section)]
		normalized[section] = !ok || enabled
	}
	return normalized
}

type recipientOverlay struct {
	Enabled  *bool                               `json:"enabled"`
	Sections map[string]models.SectionPreference `json:"sections"`
}

type preferencesOverlay struct {
	Parent  *recipientOverlay `json:"parent"`
	Student *recipientOverlay `json:"student"`
}

// CreateUnifiedEmailPreferences builds the effective preferences of a
// teacher from stored settings: defaults, then legacy parent toggles, then
// the legacy student block, then any stored unified document on top.
// Unknown section keys are dropped with a warning.
func CreateUnifiedEmailPreferences(settings models.EmailSettings, logger *zap.Logger) *models.EmailPreferences {
	if logger == nil {
		logger = zap.NewNop()
	}
	result := DefaultEmailPreferences()

	for key, enabled := range settings.DailyEmailIncludeSections {
		section := models.EmailSection(key)
		if pref, ok := result.Parent.Sections[section]; ok {
			pref.Enabled = enabled
			result.Parent.Sections[section] = pref
		}
	}

	if legacy := settings.StudentDailyEmail; legacy != nil {
		result.Student.Enabled = legacy.Enabled != nil && *legacy.Enabled
		for key, enabled := range legacy.ContentToggles {
			section := models.EmailSection(key)
			if pref, ok := result.Student.Sections[section]; ok {
				pref.Enabled = enabled
				result.Student.Sections[section] = pref
			}
		}
	}

	if len(settings.Unified) == 0 || string(settings.Unified) == "null" {
		return result
	}
	var overlay preferencesOverlay
	if err := json.Unmarshal(settings.Unified, &overlay); err != nil {
		logger.Warn("ignoring malformed unified email preferences", zap.Error(err))
		return result
	}
	applyOverlay(result.Parent, overlay.Parent, models.RecipientParent, logger)
	applyOverlay(result.Student, overlay.Student, models.RecipientStudent, logger)
	return result
}

func applyOverlay(target *models.RecipientPreferences, overlay *recipientOverlay, t models.RecipientType, logger *zap.Logger) {
	if overlay == nil {
		return
	}
	if overlay.Enabled != nil {
		target.Enabled = *overlay.Enabled
	}
	for key, pref := range overlay.Sections {
		section := models.EmailSection(key)
		if !section.Valid() {
			logger.Warn("ignoring unknown email section", zap.String("recipient_type", string(t)), zap.String("section", key))
			continue
		}
		target.Sections[section] = pref
	}
}

// PreferenceValidationOptions tunes ValidateEmailPreferences.
type PreferenceValidationOptions struct {
	Strict bool
	// RecipientType limits validation to one recipient type when set.
	RecipientType models.RecipientType
}

// ValidateEmailPreferences checks an untyped preferences document as
// received from a client.
func ValidateEmailPreferences(raw interface{}, opts PreferenceValidationOptions) *models.ValidationResult {
	result := models.NewValidationResult()

	prefs, ok := raw.(map[string]interface{})
	if !ok || prefs == nil {
		result.AddError("Email preferences must be an object")
		return result
	}

	types := models.RecipientTypes
	if opts.RecipientType != "" {
		types = []models.RecipientType{opts.RecipientType}
	}

	for _, t := range types {
		value, present := prefs[string(t)]
		if !present || value == nil {
			if opts.Strict {
				result.AddError("Missing %s preferences", t)
			} else {
				result.AddWarning("Missing %s preferences - using defaults", t)
			}
			continue
		}
		typePrefs, ok := value.(map[string]interface{})
		if !ok {
			result.AddError("%s preferences must be an object", t)
			continue
		}
		validateRecipientPreferences(result, t, typePrefs, opts.Strict)
	}

	return result
}

func validateRecipientPreferences(result *models.ValidationResult, t models.RecipientType, prefs map[string]interface{}, strict bool) {
	if enabled, present := prefs["enabled"]; present {
		if _, ok := enabled.(bool); !ok {
			result.AddError("%s.enabled must be a boolean", t)
		}
	} else if strict {
		result.AddError("%s.enabled is required", t)
	}

	rawSections, present := prefs["sections"]
	if !present || rawSections == nil {
		if strict {
			result.AddError("%s.sections is required", t)
		}
		return
	}
	sections, ok := rawSections.(map[string]interface{})
	if !ok {
		result.AddError("%s.sections must be an object", t)
		return
	}

	for _, key := range sortedKeys(sections) {
		value := sections[key]
		if !models.EmailSection(key).Valid() {
			if strict {
				result.AddError("Invalid section key: %s.sections.%s", t, key)
			} else {
				result.AddWarning("Unknown section key: %s.sections.%s - will be ignored", t, key)
			}
		}
		switch v := value.(type) {
		case nil, bool:
		case map[string]interface{}:
			for _, prop := range sortedKeys(v) {
				switch prop {
				case "enabled", "showEmpty":
					if _, ok := v[prop].(bool); !ok {
						result.AddError("%s.sections.%s.%s must be a boolean", t, key, prop)
					}
				default:
					if strict {
						result.AddWarning("Unknown property: %s.sections.%s.%s", t, key, prop)
					}
				}
			}
		default:
			result.AddError("%s.sections.%s must be a boolean, null, or object", t, key)
		}
	}

	if strict {
		for _, section := range models.EmailSections {
			if _, ok := sections[string(section)]; !ok {
				result.AddWarning("Missing section configuration: %s.sections.%s", t, section)
			}
		}
	}
}

// ValidateEmailData checks the required fields of update. Enabled sections
// with no data to show are reported as warnings.
func ValidateEmailData(update *models.DailyUpdate, prefs *models.EmailPreferences) *models.ValidationResult {
	result := models.NewValidationResult()
	if update == nil {
		result.AddError("Email data must be an object")
		return result
	}
	if update.StudentName == "" {
		result.AddError("Missing required field: studentName")
	}
	if update.Date == "" {
		result.AddError("Missing required field: date")
	} else if _, err := ParseDate(update.Date, time.UTC); err != nil {
		result.AddError("Invalid date format")
	}

	if prefs == nil {
		return result
	}
	for _, t := range models.RecipientTypes {
		typePrefs := prefs.For(t)
		if typePrefs == nil || !typePrefs.Enabled {
			continue
		}
		for _, section := range models.EmailSections {
			pref, ok := typePrefs.Sections[section]
			if !ok || !pref.Enabled {
				continue
			}
			switch section {
			case models.SectionAttendance:
				if update.Attendance.Status == "" {
					result.AddWarning("%s email has attendance section enabled but no attendance data available", t)
				}
			case models.SectionGrades, models.SectionBehavior, models.SectionLessons:
				if !pref.ShowEmpty && sectionLen(section, update) == 0 {
					result.AddWarning("%s email has %s section enabled but no %s data available", t, section, section)
				}
			case models.SectionUpcoming:
				if !pref.ShowEmpty && len(update.UpcomingAssignments) == 0 {
					result.AddWarning("%s email has upcoming assignments section enabled but no upcoming assignments data available", t)
				}
			}
		}
	}
	return result
}

// ValidateDataSources checks the raw generation input.
func ValidateDataSources(sources *models.DataSources) *models.ValidationResult {
	result := models.NewValidationResult()
	if sources == nil {
		result.AddError("Data sources must be an object")
		return result
	}
	if sources.Students == nil {
		result.AddError("Missing required data source: students")
	} else if len(sources.Students) == 0 {
		result.AddWarning("Data source students is empty")
	}
	if sources.Teacher != nil {
		if sources.Teacher.Name == "" && sources.Teacher.DisplayName == "" {
			result.AddWarning("Teacher name is missing")
		}
		if sources.Teacher.Email == "" {
			result.AddWarning("Teacher email is missing")
		}
	}
	if sources.SchoolName == "" {
		result.AddWarning("School name is missing or invalid")
	}
	return result
}

func sectionLen(section models.EmailSection, update *models.DailyUpdate) int {
	switch section {
	case models.SectionGrades:
		return len(update.Grades)
	case models.SectionSubjectGrades:
		return len(update.SubjectGrades)
	case models.SectionBehavior:
		return len(update.Behavior)
	case models.SectionAssignments:
		return len(update.Assignments)
	case models.SectionUpcoming:
		return len(update.UpcomingAssignments)
	case models.SectionLessons:
		return len(update.Lessons)
	case models.SectionReminders:
		return len(update.Reminders)
	}
	return 0
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
