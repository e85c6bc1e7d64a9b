package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/daily-update-api/internal/models"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
)

func presentUpdate() *models.DailyUpdate {
	return &models.DailyUpdate{
		StudentID:   "s1",
		StudentName: "Ada Lovelace",
		Date:        "2024-03-11",
		Attendance:  models.AttendanceSummary{Status: models.AttendancePresent},
		Behavior:    []models.BehaviorIncident{{Type: models.BehaviorPositive, Description: "Kind"}},
	}
}

func TestNewContentFilterInvalidType(t *testing.T) {
	_, err := NewContentFilter(DefaultEmailPreferences(), models.RecipientType("teacher"), zap.NewNop())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Equal(t, "Invalid emailType: teacher. Must be 'parent' or 'student'", err.Error())

	filter := CreateEmailContentFilter(DefaultEmailPreferences(), models.RecipientType("teacher"), zap.NewNop())
	require.NotNil(t, filter)
	assert.Equal(t, models.RecipientParent, filter.RecipientType())
}

func TestContentFilterDefaults(t *testing.T) {
	filter, err := NewContentFilter(DefaultEmailPreferences(), models.RecipientParent, zap.NewNop())
	require.NoError(t, err)
	update := presentUpdate()

	assert.True(t, filter.Enabled())
	assert.True(t, filter.ShouldIncludeSection(models.SectionAttendance, update))
	assert.True(t, filter.ShouldIncludeSection(models.SectionBehavior, update))
	// Empty and hidden when empty.
	assert.False(t, filter.ShouldIncludeSection(models.SectionGrades, update))
	assert.False(t, filter.ShouldIncludeSection(models.SectionLessons, update))
	// Empty but shown.
	assert.True(t, filter.ShouldIncludeSection(models.SectionUpcoming, update))
	assert.False(t, filter.ShouldIncludeSection(models.EmailSection("bogus"), update))

	assert.Equal(t, []models.EmailSection{
		models.SectionAttendance,
		models.SectionBehavior,
		models.SectionAssignments,
		models.SectionUpcoming,
		models.SectionReminders,
	}, filter.IncludedSections(update))
	assert.True(t, filter.HasAnyContent(update))
}

func TestContentFilterDisabledRecipient(t *testing.T) {
	filter, err := NewContentFilter(DefaultEmailPreferences(), models.RecipientStudent, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, filter.Enabled())
	assert.Empty(t, filter.IncludedSections(presentUpdate()))
}

func TestContentFilterMissingPreferences(t *testing.T) {
	filter, err := NewContentFilter(nil, models.RecipientParent, zap.NewNop())
	require.NoError(t, err)
	update := presentUpdate()

	assert.True(t, filter.Enabled())
	// Every section is off, so only recorded attendance survives.
	assert.Equal(t, []models.EmailSection{models.SectionAttendance}, filter.IncludedSections(update))

	update.Attendance = models.AttendanceSummary{Status: models.AttendanceNotRecorded}
	assert.Empty(t, filter.IncludedSections(update))
	assert.False(t, filter.HasAnyContent(update))
}

func TestContentFilterAttendanceOverrideOnlyWhenAllDisabled(t *testing.T) {
	prefs := DefaultEmailPreferences()
	prefs.Parent.Sections[models.SectionAttendance] = models.SectionPreference{}

	filter, err := NewContentFilter(prefs, models.RecipientParent, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, filter.ShouldIncludeSection(models.SectionAttendance, presentUpdate()))
}

func TestContentFilterDropsUnknownSections(t *testing.T) {
	prefs := &models.EmailPreferences{Parent: &models.RecipientPreferences{
		Enabled: true,
		Sections: map[models.EmailSection]models.SectionPreference{
			models.SectionGrades: {Enabled: true, ShowEmpty: true},
			"mystery":            {Enabled: true, ShowEmpty: true},
		},
	}}

	filter, err := NewContentFilter(prefs, models.RecipientParent, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []models.EmailSection{models.SectionGrades}, filter.IncludedSections(&models.DailyUpdate{}))
	// The caller's preferences are left untouched.
	assert.Len(t, prefs.Parent.Sections, 2)
}

func TestContentFilterFilteringSummary(t *testing.T) {
	prefs := DefaultEmailPreferences()
	prefs.Parent.Sections[models.SectionReminders] = models.SectionPreference{}
	filter, err := NewContentFilter(prefs, models.RecipientParent, zap.NewNop())
	require.NoError(t, err)

	summary := filter.FilteringSummary(presentUpdate())
	assert.Equal(t, models.RecipientParent, summary.EmailType)
	assert.True(t, summary.EmailEnabled)
	assert.Equal(t, ReasonIncluded, summary.SectionsAnalysis[models.SectionAttendance].Reason)
	assert.Equal(t, ReasonDisabled, summary.SectionsAnalysis[models.SectionReminders].Reason)
	assert.Equal(t, ReasonEmptyHidden, summary.SectionsAnalysis[models.SectionGrades].Reason)
	assert.True(t, summary.SectionsAnalysis[models.SectionGrades].IsEmpty)
	assert.Len(t, summary.IncludedSections, 4)
	assert.Len(t, summary.ExcludedSections, 4)
}

func TestContentFilterFilteringSummaryAttendanceOverride(t *testing.T) {
	filter, err := NewContentFilter(nil, models.RecipientParent, zap.NewNop())
	require.NoError(t, err)

	summary := filter.FilteringSummary(presentUpdate())
	attendance := summary.SectionsAnalysis[models.SectionAttendance]
	assert.True(t, attendance.WillInclude)
	assert.False(t, attendance.Enabled)
	assert.Equal(t, ReasonDisabled, attendance.Reason)
	assert.Equal(t, []models.EmailSection{models.SectionAttendance}, summary.IncludedSections)
}

func TestValidateContentFilterData(t *testing.T) {
	result := ValidateContentFilterData(nil)
	assert.Equal(t, []string{"Data must be an object"}, result.Errors)

	result = ValidateContentFilterData(&models.DailyUpdate{})
	assert.Equal(t, []string{"Missing studentName in data"}, result.Errors)
	assert.Equal(t, []string{"Missing studentId in data"}, result.Warnings)
}

func TestCheckContentAvailability(t *testing.T) {
	availability := CheckContentAvailability(DefaultEmailPreferences(), presentUpdate(), zap.NewNop())

	assert.True(t, availability.Parent.Enabled)
	assert.True(t, availability.Parent.HasContent)
	assert.False(t, availability.Student.Enabled)
	assert.Empty(t, availability.Student.IncludedSections)
}

func TestContentFilterIsSectionEmpty(t *testing.T) {
	filter, err := NewContentFilter(DefaultEmailPreferences(), models.RecipientParent, zap.NewNop())
	require.NoError(t, err)
	update := presentUpdate()

	assert.True(t, filter.IsSectionEmpty(models.SectionAttendance, nil))
	assert.False(t, filter.IsSectionEmpty(models.SectionAttendance, update))
	assert.False(t, filter.IsSectionEmpty(models.SectionBehavior, update))
	assert.True(t, filter.IsSectionEmpty(models.SectionGrades, update))
	assert.False(t, filter.IsSectionEmpty(models.EmailSection("mystery"), update))

	update.Attendance.Status = models.AttendanceNotRecorded
	assert.True(t, filter.IsSectionEmpty(models.SectionAttendance, update))
}
