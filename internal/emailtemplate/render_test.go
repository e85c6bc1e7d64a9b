package emailtemplate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/daily-update-api/internal/models"
)

type sectionStub map[models.EmailSection]bool

func (s sectionStub) ShouldIncludeSection(section models.EmailSection, _ *models.DailyUpdate) bool {
	return s[section]
}

func ptr[T any](v T) *T { return &v }

func sampleUpdate() *models.DailyUpdate {
	due := time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC)
	return &models.DailyUpdate{
		StudentID:     "s1",
		StudentName:   "Ada Lovelace",
		StudentGender: ptr("female"),
		ParentEmails:  []string{"mom@example.com"},
		Date:          "2024-03-11",
		Attendance:    models.AttendanceSummary{Status: models.AttendancePresent, Notes: "On time"},
		Assignments: []models.Activity{
			{Assignment: models.Assignment{ID: "a1", Name: "Fractions", Subject: "Math", Description: "Use <em>both</em> methods <script>alert(1)</script>"}},
		},
		Grades: []models.DailyGrade{
			{Grade: models.Grade{Score: ptr(18.0), Points: ptr(20.0)}, AssignmentName: "Quiz", Subject: "Math"},
		},
		Behavior: []models.BehaviorIncident{{Type: models.BehaviorPositive, Description: "Helped a friend"}},
		UpcomingAssignments: []models.Assignment{
			{ID: "a2", Name: "Essay", Subject: "English", DueDate: &due},
			{ID: "a3", Name: "Project", Subject: "Science", DueDate: &later},
		},
		Reminders:      []models.Reminder{{Text: "Field trip Friday"}},
		OverallGrade:   ptr(92),
		SubjectGrades:  models.SubjectGrades{{Subject: "Math", Average: 95}, {Subject: "ELA", Average: 88}},
		AttendanceRate: 100,
		SchoolName:     "Walkerville Elementary",
		TeacherName:    "Ms. Frizzle",
		TeacherEmail:   "frizzle@example.com",
	}
}

func TestBuildParentEmail(t *testing.T) {
	sentAt := time.Date(2024, time.March, 11, 15, 4, 0, 0, time.UTC)
	email, err := BuildParentEmail(sampleUpdate(), nil, Options{SentAt: sentAt})
	require.NoError(t, err)

	assert.Equal(t, "📚 Walkerville Elementary - Daily Update for Ada Lovelace (Mar 11, 2024)", email.Subject)
	assert.Contains(t, email.HTML, "Dear Ada&#39;s Parent,")
	assert.Contains(t, email.HTML, "Monday, March 11, 2024")
	assert.Contains(t, email.HTML, "Ada is excelling academically! What a bright young lady she is! 🎉")
	assert.Contains(t, email.HTML, "She showed wonderful behavior today!")
	assert.Contains(t, email.HTML, "92%")
	assert.Contains(t, email.HTML, "18/20 (90%)")
	assert.Contains(t, email.HTML, "Use <em>both</em> methods &lt;script&gt;")
	assert.NotContains(t, email.HTML, "<script>")
	assert.Contains(t, email.HTML, "⏰ Due soon!")
	assert.Contains(t, email.HTML, "This update was sent on March 11, 2024 at 3:04 PM")
	assert.Contains(t, email.HTML, `data-section="lessons"`)

	assert.Contains(t, email.Text, "Dear Ada's Parent,")
	assert.Contains(t, email.Text, "- Quiz (Math): 18/20 (90%)")
	assert.Contains(t, email.Text, "- Essay [English], due Mar 12, 2024 (due soon!)")
}

func TestBuildParentEmailRespectsFilter(t *testing.T) {
	update := sampleUpdate()
	update.ParentName = ptr("Mrs. Lovelace")
	filter := sectionStub{models.SectionAttendance: true, models.SectionGrades: true}

	email, err := BuildParentEmail(update, filter, Options{})
	require.NoError(t, err)

	assert.Contains(t, email.HTML, "Dear Mrs. Lovelace,")
	assert.Contains(t, email.HTML, `data-section="attendance"`)
	assert.Contains(t, email.HTML, `data-section="grades"`)
	for _, hidden := range []string{"behavior", "upcoming", "subjectGrades", "assignments", "lessons", "reminders"} {
		assert.NotContains(t, email.HTML, `data-section="`+hidden+`"`)
	}
	assert.NotContains(t, email.Text, "UPCOMING ASSIGNMENTS")
	assert.Contains(t, email.Text, "TODAY'S ATTENDANCE")
}

func TestBuildParentEmailNeutralPronouns(t *testing.T) {
	update := sampleUpdate()
	update.StudentGender = nil
	update.SubjectGrades = nil
	update.OverallGrade = ptr(65)
	update.AttendanceRate = 50
	update.Behavior = nil

	email, err := BuildParentEmail(update, nil, Options{})
	require.NoError(t, err)
	assert.Contains(t, email.HTML, "Let&#39;s collaborate to help them succeed")
	assert.Contains(t, email.HTML, "your child&#39;s education")
	assert.NotContains(t, email.HTML, "excellent attendance record")
}

func TestBuildParentEmailInvalidDate(t *testing.T) {
	update := sampleUpdate()
	update.Date = "March 11"

	_, err := BuildParentEmail(update, nil, Options{})
	assert.Error(t, err)
	_, err = BuildParentEmail(nil, nil, Options{})
	assert.Error(t, err)
}

func TestBuildStudentEmail(t *testing.T) {
	email, err := BuildStudentEmail(sampleUpdate(), nil, Options{})
	require.NoError(t, err)

	assert.Equal(t, "Walkerville Elementary - Your Daily Spark, Ada! (Mar 11)", email.Subject)
	assert.Contains(t, email.HTML, "Hi there, Ada!")
	assert.Contains(t, email.HTML, "You earned 1 amazing grade! 🏅🎉")
	// 3 for the grade, 1 for attendance, 1 for positive behavior.
	assert.Contains(t, email.HTML, "You earned 5 stars today!")
	assert.Contains(t, email.HTML, "⭐⭐⭐⭐⭐")
	assert.Contains(t, email.HTML, "On fire! 🔥")
	assert.Contains(t, email.HTML, "💜 Kindness Hero")
	assert.Contains(t, email.HTML, "Focus Tip (ELA – 88%)")

	hero := ProcessTemplate(Select(heroGreetings, Seed("s1", "2024-03-11", ContentGreeting)), map[string]string{"name": "Ada"})
	assert.Contains(t, email.HTML, strings.ReplaceAll(hero, "'", "&#39;"))
	date := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
	quote := Select(QuotePool(date), Seed("s1", "2024-03-11", ContentQuote))
	assert.Contains(t, email.Text, quote)

	assert.Contains(t, email.Text, "Hi Ada,")
	assert.Contains(t, email.Text, "- New grades today: 1")
	assert.Contains(t, email.Text, "- Due soon: 2")
}

func TestBuildStudentEmailTimestampDate(t *testing.T) {
	update := sampleUpdate()
	update.Date = "2024-03-11T15:30:00Z"

	email, err := BuildStudentEmail(update, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Walkerville Elementary - Your Daily Spark, Ada! (Mar 11)", email.Subject)

	_, err = BuildParentEmail(update, nil, Options{})
	require.NoError(t, err)
}

func TestBuildStudentEmailUsesTrait(t *testing.T) {
	trait := &models.CharacterTrait{Name: "Kindness", Quotes: []string{"Be kind."}, Challenges: []string{"Compliment a classmate."}}

	email, err := BuildStudentEmail(sampleUpdate(), sectionStub{}, Options{Trait: trait})
	require.NoError(t, err)
	assert.Contains(t, email.HTML, "🌟 Kindness Focus 🌟")
	assert.Contains(t, email.HTML, "Today&#39;s Challenge: Kindness")
	assert.Contains(t, email.HTML, "Compliment a classmate.")
	assert.Contains(t, email.Text, "Be kind.")
	assert.NotContains(t, email.HTML, `data-section="`)
}

func TestGradeColorBands(t *testing.T) {
	assert.Equal(t, "#2e7d32", GradeColor(90))
	assert.Equal(t, "#1976d2", GradeColor(89))
	assert.Equal(t, "#f57c00", GradeColor(70))
	assert.Equal(t, "#d32f2f", GradeColor(69))
}
