package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCSVPadsShortRows(t *testing.T) {
	out, err := RenderCSV(Dataset{
		Headers: []string{"Student", "Subject", "Status"},
		Rows: [][]string{
			{"Ana Diaz", "📚 Daily Update", "sent"},
			{"Ben Ode"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Student,Subject,Status\nAna Diaz,📚 Daily Update,sent\nBen Ode,,\n", string(out))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := Render(FormatCSV, Dataset{})
	assert.Error(t, err)
	_, err = Render(FormatPDF, Dataset{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestRenderPDFTable(t *testing.T) {
	out, err := RenderPDFTable(Dataset{
		Title:   "Sent daily updates",
		Headers: []string{"Student", "Status"},
		Rows:    [][]string{{"Ana Diaz", "sent"}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderDailyReport(t *testing.T) {
	score, points := 18.0, 20.0
	out, err := RenderDailyReport(DailyReport{
		SchoolName:       "Lincoln Elementary",
		TeacherName:      "Ms. Rivera",
		StudentName:      "Ana Diaz",
		Date:             "2024-03-15",
		AttendanceStatus: "Present",
		SubjectAverages:  []SubjectAverage{{Subject: "Math", Average: 90}},
		Grades:           []ReportGrade{{AssignmentName: "Fractions quiz", Score: &score, Points: &points}},
		Behavior:         []ReportBehavior{{Type: "Positive", Description: "Helped a classmate"}},
		GeneratedAt:      time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = RenderDailyReport(DailyReport{})
	assert.Error(t, err)
}

func TestFormatReportGrade(t *testing.T) {
	score, points := 18.0, 20.0
	assert.Equal(t, "Quiz: 18/20 (90%)", formatReportGrade(ReportGrade{AssignmentName: "Quiz", Score: &score, Points: &points}))
	assert.Equal(t, "Quiz: 18 points", formatReportGrade(ReportGrade{AssignmentName: "Quiz", Score: &score}))
	assert.Equal(t, "Quiz: not scored", formatReportGrade(ReportGrade{AssignmentName: "Quiz"}))
}
