package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/daily-update-api/internal/models"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
)

func float(v float64) *float64 { return &v }

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, raw)
	require.NoError(t, err)
	return d
}

func timePtr(t time.Time) *time.Time { return &t }

func sampleSources(t *testing.T) models.DataSources {
	today := day(t, "2024-03-11")
	return models.DataSources{
		Students: []models.Student{
			{ID: "s1", FirstName: "Ada", LastName: "Lovelace", Gender: "female", ParentEmail1: " Mom@Example.com ", ParentEmail2: "mom@example.com", ParentFirstName1: "Annabella"},
			{ID: "s2", FirstName: "Alan", LastName: "Turing", ParentEmail1: "dad@example.com", Status: models.StudentStatusInactive},
			{ID: "s3", FirstName: "Grace", LastName: "Hopper"},
		},
		Attendance: []models.AttendanceRecord{
			{StudentID: "s1", Date: today, Status: models.AttendancePresent},
			{StudentID: "s2", Date: today, Status: models.AttendanceAbsent},
			{StudentID: "s3", Date: today, Status: models.AttendanceTardy},
			{StudentID: "s1", Date: today.AddDate(0, 0, -1), Status: models.AttendanceAbsent},
		},
		Assignments: []models.Assignment{
			{ID: "a1", Name: "Fractions", Subject: "Math", DueDate: timePtr(today), Points: float(20)},
			{ID: "a2", Name: "Essay", Subject: "English", DueDate: timePtr(today.AddDate(0, 0, 3))},
			{ID: "a3", Name: "Project", Subject: "Science", DueDate: timePtr(today.AddDate(0, 0, 7))},
			{ID: "a4", Name: "Poem", Subject: "English", DueDate: timePtr(today.AddDate(0, 0, 1))},
			{ID: "a5", Name: "Spelling", DueDate: timePtr(today.AddDate(0, 0, -2))},
		},
		Grades: []models.Grade{
			{ID: "g1", StudentID: "s1", AssignmentID: "a1", Score: float(18), Points: float(20), DateEntered: timePtr(today.Add(10 * time.Hour))},
			{ID: "g2", StudentID: "s1", AssignmentID: "a5", Score: float(7), Points: float(10), DateEntered: timePtr(today.AddDate(0, 0, -2))},
			{ID: "g3", StudentID: "s1", AssignmentID: "missing", Score: float(5), Points: float(5), DateEntered: timePtr(today.Add(11 * time.Hour))},
			{ID: "g4", StudentID: "s3", AssignmentID: "a1", Score: float(10), Points: float(20), DateEntered: timePtr(today.Add(9 * time.Hour))},
		},
		Behavior: []models.BehaviorIncident{
			{StudentID: "s1", Date: today, Type: models.BehaviorPositive, Description: "Helped a classmate"},
			{StudentID: "s3", Date: today, Type: "Concern", Description: "Talking"},
		},
		Lessons: []models.Lesson{
			{ID: "l1", Title: "Equivalent fractions", Subject: "Math", Date: today},
			{ID: "l2", Title: "Old lesson", Date: today.AddDate(0, 0, -1)},
		},
		Reminders: []models.Reminder{
			{ID: "r1", Text: "Field trip Friday", ActiveFrom: today.AddDate(0, 0, -1), ActiveUntil: timePtr(today.AddDate(0, 0, 4))},
			{ID: "r2", Text: "Expired", ActiveFrom: today.AddDate(0, 0, -5), ActiveUntil: timePtr(today.AddDate(0, 0, -1))},
			{ID: "r3", Text: "Open ended", ActiveFrom: today},
		},
		Teacher:    &models.Teacher{ID: "t1", DisplayName: "Ms. Frizzle", Email: "frizzle@example.com"},
		SchoolName: "Walkerville Elementary",
	}
}

func TestParseDate(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	d, err := ParseDate("2024-03-11", loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-11", d.Format(DateLayout))
	assert.Equal(t, loc, d.Location())

	d, err = ParseDate("2024-03-12T02:30:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-11", d.Format(DateLayout))
	assert.Equal(t, 0, d.Hour())

	_, err = ParseDate("03/11/2024", loc)
	assert.Error(t, err)
}

func TestDailyUpdateGeneratorGenerate(t *testing.T) {
	gen := NewDailyUpdateGenerator(sampleSources(t), GeneratorOptions{Logger: zap.NewNop()})

	update, err := gen.Generate("s1", day(t, "2024-03-11"))
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", update.StudentName)
	require.NotNil(t, update.StudentGender)
	assert.Equal(t, "female", *update.StudentGender)
	assert.Equal(t, []string{"mom@example.com"}, update.ParentEmails)
	require.NotNil(t, update.ParentName)
	assert.Equal(t, "Annabella", *update.ParentName)
	assert.Equal(t, "2024-03-11", update.Date)
	assert.Equal(t, models.AttendancePresent, update.Attendance.Status)
	assert.Equal(t, 100, update.AttendanceRate)

	require.Len(t, update.Grades, 2)
	assert.Equal(t, "Fractions", update.Grades[0].AssignmentName)
	assert.Equal(t, "Math", update.Grades[0].Subject)
	assert.Equal(t, "Unknown Assignment", update.Grades[1].AssignmentName)
	assert.Equal(t, "Unknown Subject", update.Grades[1].Subject)

	require.Len(t, update.Assignments, 2)
	assert.Equal(t, "a1", update.Assignments[0].ID)
	assert.True(t, update.Assignments[0].Completed)
	require.NotNil(t, update.Assignments[0].Grade)
	assert.Equal(t, "g1", update.Assignments[0].Grade.ID)
	assert.True(t, update.Assignments[1].Completed)

	require.Len(t, update.UpcomingAssignments, 2)
	assert.Equal(t, "a4", update.UpcomingAssignments[0].ID)
	assert.Equal(t, "a2", update.UpcomingAssignments[1].ID)

	require.Len(t, update.Behavior, 1)
	require.Len(t, update.Lessons, 1)
	require.Len(t, update.Reminders, 2)
	assert.Equal(t, "r1", update.Reminders[0].ID)
	assert.Equal(t, "r3", update.Reminders[1].ID)

	// (90 + 70 + 100) / 3 = 86.67
	require.NotNil(t, update.OverallGrade)
	assert.Equal(t, 87, *update.OverallGrade)
	math, ok := update.SubjectGrades.Get("Math")
	require.True(t, ok)
	assert.Equal(t, 90, math)
	general, ok := update.SubjectGrades.Get("General")
	require.True(t, ok)
	assert.Equal(t, 85, general)

	assert.Equal(t, "Walkerville Elementary", update.SchoolName)
	assert.Equal(t, "Ms. Frizzle", update.TeacherName)
	assert.Equal(t, "frizzle@example.com", update.TeacherEmail)
}

func TestDailyUpdateGeneratorDefaults(t *testing.T) {
	sources := models.DataSources{
		Students: []models.Student{{ID: "s1", FirstName: "Solo", ParentEmail1: "p@example.com"}},
	}
	gen := NewDailyUpdateGenerator(sources, GeneratorOptions{})

	update, err := gen.Generate("s1", day(t, "2024-03-11"))
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceNotRecorded, update.Attendance.Status)
	assert.Equal(t, "Attendance not yet recorded for today", update.Attendance.Notes)
	assert.Nil(t, update.OverallGrade)
	assert.Nil(t, update.ParentName)
	assert.Nil(t, update.StudentGender)
	assert.Empty(t, update.SubjectGrades)
	assert.Equal(t, 0, update.AttendanceRate)
	assert.Equal(t, "School", update.SchoolName)
	assert.Equal(t, "Teacher", update.TeacherName)
	assert.NotNil(t, update.Grades)
	assert.NotNil(t, update.Reminders)
}

func TestDailyUpdateGeneratorDefaultSchoolNameOption(t *testing.T) {
	sources := models.DataSources{Students: []models.Student{{ID: "s1", ParentEmail1: "p@example.com"}}}
	gen := NewDailyUpdateGenerator(sources, GeneratorOptions{DefaultSchoolName: "Central High"})

	update, err := gen.Generate("s1", day(t, "2024-03-11"))
	require.NoError(t, err)
	assert.Equal(t, "Central High", update.SchoolName)
}

func TestDailyUpdateGeneratorUnknownStudent(t *testing.T) {
	gen := NewDailyUpdateGenerator(sampleSources(t), GeneratorOptions{})

	_, err := gen.Generate("nope", day(t, "2024-03-11"))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Equal(t, "Student with ID nope not found", err.Error())
}

func TestDailyUpdateGeneratorTimezoneBucketing(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	sources := models.DataSources{
		Students:    []models.Student{{ID: "s1", ParentEmail1: "p@example.com"}},
		Assignments: []models.Assignment{{ID: "a1", Name: "Quiz", Subject: "Math"}},
		Grades: []models.Grade{
			// 2024-03-12 04:00 UTC is still the evening of the 11th in Los Angeles.
			{ID: "g1", StudentID: "s1", AssignmentID: "a1", Score: float(9), Points: float(10), DateEntered: timePtr(time.Date(2024, 3, 12, 4, 0, 0, 0, time.UTC))},
		},
	}
	gen := NewDailyUpdateGenerator(sources, GeneratorOptions{Location: loc})

	d, err := ParseDate("2024-03-11", loc)
	require.NoError(t, err)
	update, err := gen.Generate("s1", d)
	require.NoError(t, err)
	require.Len(t, update.Grades, 1)
	assert.Equal(t, "g1", update.Grades[0].ID)
}

func TestDailyUpdateGeneratorStudentsForDailyUpdates(t *testing.T) {
	gen := NewDailyUpdateGenerator(sampleSources(t), GeneratorOptions{})

	students := gen.StudentsForDailyUpdates()
	require.Len(t, students, 1)
	assert.Equal(t, "s1", students[0].ID)

}

func TestDailyUpdateGeneratorGenerateAllCoversRoster(t *testing.T) {
	gen := NewDailyUpdateGenerator(sampleSources(t), GeneratorOptions{})

	updates := gen.GenerateAll(day(t, "2024-03-11"))
	require.Len(t, updates, 3)
	ids := []string{updates[0].StudentID, updates[1].StudentID, updates[2].StudentID}
	assert.Equal(t, []string{"s1", "s2", "s3"}, ids)
	assert.Empty(t, updates[2].ParentEmails)
	assert.Equal(t, "Grace Hopper", updates[2].StudentName)

	assert.True(t, gen.Inactive("s2"))
	assert.False(t, gen.Inactive("s1"))
	assert.False(t, gen.Inactive("missing"))
}

func TestDailyUpdateGeneratorClassSummary(t *testing.T) {
	gen := NewDailyUpdateGenerator(sampleSources(t), GeneratorOptions{})

	summary := gen.ClassSummary(day(t, "2024-03-11"))
	assert.Equal(t, "2024-03-11", summary.Date)
	assert.Equal(t, 3, summary.TotalStudents)
	assert.Equal(t, 1, summary.PresentStudents)
	assert.Equal(t, 1, summary.AbsentStudents)
	assert.Equal(t, 1, summary.LateStudents)
	assert.InDelta(t, 33.333, summary.AttendanceRate, 0.01)
	assert.Equal(t, 3, summary.NewGradesToday)
	assert.Equal(t, 2, summary.UpcomingAssignments)
	// s1 averages 86.67, s3 averages 50.
	require.NotNil(t, summary.AverageGrade)
	assert.Equal(t, 68, *summary.AverageGrade)
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 3, roundHalfUp(2.5))
	assert.Equal(t, 2, roundHalfUp(2.49))
	assert.Equal(t, -2, roundHalfUp(-2.5))
}
