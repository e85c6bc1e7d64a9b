package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/daily-update-api/internal/models"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
)

// Reasons reported by FilteringSummary.
const (
	ReasonDisabled    = "disabled"
	ReasonEmptyHidden = "empty_and_showEmpty_false"
	ReasonIncluded    = "included"
)

// ContentFilter decides, per recipient type, which sections of a daily
// update are rendered.
type ContentFilter struct {
	recipient models.RecipientType
	prefs     *models.RecipientPreferences
	logger    *zap.Logger
}

// NewContentFilter builds a filter for recipient. Missing preferences fall
// back to an enabled recipient with no sections switched on.
func NewContentFilter(prefs *models.EmailPreferences, recipient models.RecipientType, logger *zap.Logger) (*ContentFilter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !recipient.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Invalid emailType: %s. Must be 'parent' or 'student'", recipient))
	}

	typePrefs := prefs.For(recipient).Clone()
	if typePrefs == nil || typePrefs.Sections == nil {
		logger.Warn("email preferences missing, using safe defaults", zap.String("recipient_type", string(recipient)))
		typePrefs = &models.RecipientPreferences{Enabled: true, Sections: map[models.EmailSection]models.SectionPreference{}}
	}
	for section := range typePrefs.Sections {
		if !section.Valid() {
			logger.Warn("ignoring unknown email section", zap.String("recipient_type", string(recipient)), zap.String("section", string(section)))
			delete(typePrefs.Sections, section)
		}
	}

	return &ContentFilter{recipient: recipient, prefs: typePrefs, logger: logger}, nil
}

// CreateEmailContentFilter never fails: an invalid recipient type yields a
// parent filter with safe defaults.
func CreateEmailContentFilter(prefs *models.EmailPreferences, recipient models.RecipientType, logger *zap.Logger) *ContentFilter {
	filter, err := NewContentFilter(prefs, recipient, logger)
	if err == nil {
		return filter
	}
	if logger != nil {
		logger.Error("failed to create content filter, using safe defaults", zap.Error(err))
	}
	filter, _ = NewContentFilter(nil, models.RecipientParent, logger)
	return filter
}

// RecipientType returns the audience this filter was built for.
func (f *ContentFilter) RecipientType() models.RecipientType {
	return f.recipient
}

// Enabled reports whether emails for this recipient type are switched on.
func (f *ContentFilter) Enabled() bool {
	return f.prefs.Enabled
}

// ShouldIncludeSection decides whether section is rendered for update.
func (f *ContentFilter) ShouldIncludeSection(section models.EmailSection, update *models.DailyUpdate) bool {
	if !section.Valid() {
		return false
	}
	if !f.prefs.Enabled {
		return false
	}
	pref := f.prefs.Sections[section]
	if !pref.Enabled {
		return f.attendanceOverride(section, update)
	}
	if !pref.ShowEmpty && f.IsSectionEmpty(section, update) {
		return false
	}
	return true
}

// attendanceOverride keeps recorded attendance visible when a teacher has
// switched every section off, so an email never omits an absence.
func (f *ContentFilter) attendanceOverride(section models.EmailSection, update *models.DailyUpdate) bool {
	if section != models.SectionAttendance || update == nil || !update.Attendance.Recorded() {
		return false
	}
	for _, s := range models.EmailSections {
		if f.prefs.Sections[s].Enabled {
			return false
		}
	}
	return true
}

// IsSectionEmpty reports whether update has nothing to show for section.
func (f *ContentFilter) IsSectionEmpty(section models.EmailSection, update *models.DailyUpdate) bool {
	if update == nil {
		return true
	}
	switch section {
	case models.SectionAttendance:
		return !update.Attendance.Recorded()
	case models.SectionGrades, models.SectionSubjectGrades, models.SectionBehavior,
		models.SectionAssignments, models.SectionUpcoming, models.SectionLessons, models.SectionReminders:
		return sectionLen(section, update) == 0
	}
	return false
}

// IncludedSections lists the sections to render, in canonical order.
func (f *ContentFilter) IncludedSections(update *models.DailyUpdate) []models.EmailSection {
	included := make([]models.EmailSection, 0, len(models.EmailSections))
	for _, section := range models.EmailSections {
		if f.ShouldIncludeSection(section, update) {
			included = append(included, section)
		}
	}
	return included
}

// HasAnyContent reports whether an email is worth sending.
func (f *ContentFilter) HasAnyContent(update *models.DailyUpdate) bool {
	if len(f.IncludedSections(update)) > 0 {
		return true
	}
	return update != nil && update.Attendance.Recorded()
}

// SectionAnalysis explains one section's inclusion decision.
type SectionAnalysis struct {
	Enabled     bool   `json:"enabled"`
	ShowEmpty   bool   `json:"showEmpty"`
	IsEmpty     bool   `json:"isEmpty"`
	WillInclude bool   `json:"willInclude"`
	Reason      string `json:"reason"`
}

// FilteringSummary is a debugging view of every section decision.
type FilteringSummary struct {
	EmailType        models.RecipientType                    `json:"emailType"`
	EmailEnabled     bool                                    `json:"emailEnabled"`
	SectionsAnalysis map[models.EmailSection]SectionAnalysis `json:"sectionsAnalysis"`
	IncludedSections []models.EmailSection                   `json:"includedSections"`
	ExcludedSections []models.EmailSection                   `json:"excludedSections"`
}

// FilteringSummary explains how update is filtered.
func (f *ContentFilter) FilteringSummary(update *models.DailyUpdate) FilteringSummary {
	summary := FilteringSummary{
		EmailType:        f.recipient,
		EmailEnabled:     f.prefs.Enabled,
		SectionsAnalysis: make(map[models.EmailSection]SectionAnalysis, len(models.EmailSections)),
		IncludedSections: []models.EmailSection{},
		ExcludedSections: []models.EmailSection{},
	}
	for _, section := range models.EmailSections {
		pref := f.prefs.Sections[section]
		analysis := SectionAnalysis{
			Enabled:     pref.Enabled,
			ShowEmpty:   pref.ShowEmpty,
			IsEmpty:     f.IsSectionEmpty(section, update),
			WillInclude: f.ShouldIncludeSection(section, update),
		}
		// Reason describes the preference alone, so an attendance override
		// still reads as disabled.
		switch {
		case !pref.Enabled:
			analysis.Reason = ReasonDisabled
		case !pref.ShowEmpty && analysis.IsEmpty:
			analysis.Reason = ReasonEmptyHidden
		default:
			analysis.Reason = ReasonIncluded
		}
		if analysis.WillInclude {
			summary.IncludedSections = append(summary.IncludedSections, section)
		} else {
			summary.ExcludedSections = append(summary.ExcludedSections, section)
		}
		summary.SectionsAnalysis[section] = analysis
	}
	return summary
}

// ValidateContentFilterData checks the minimum an update needs to be filtered.
func ValidateContentFilterData(update *models.DailyUpdate) *models.ValidationResult {
	result := models.NewValidationResult()
	if update == nil {
		result.AddError("Data must be an object")
		return result
	}
	if update.StudentName == "" {
		result.AddError("Missing studentName in data")
	}
	if update.StudentID == "" {
		result.AddWarning("Missing studentId in data")
	}
	return result
}

// RecipientAvailability summarises what one recipient type would receive.
type RecipientAvailability struct {
	Enabled          bool                  `json:"enabled"`
	HasContent       bool                  `json:"hasContent"`
	IncludedSections []models.EmailSection `json:"includedSections"`
}

// ContentAvailability covers both recipient types.
type ContentAvailability struct {
	Parent  RecipientAvailability `json:"parent"`
	Student RecipientAvailability `json:"student"`
}

// CheckContentAvailability evaluates both recipient types for update.
func CheckContentAvailability(prefs *models.EmailPreferences, update *models.DailyUpdate, logger *zap.Logger) ContentAvailability {
	check := func(t models.RecipientType) RecipientAvailability {
		f := CreateEmailContentFilter(prefs, t, logger)
		return RecipientAvailability{
			Enabled:          f.Enabled(),
			HasContent:       f.HasAnyContent(update),
			IncludedSections: f.IncludedSections(update),
		}
	}
	return ContentAvailability{Parent: check(models.RecipientParent), Student: check(models.RecipientStudent)}
}
