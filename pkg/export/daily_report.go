package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// DailyReport is the content of a per-student "Daily Progress Report" PDF.
type DailyReport struct {
	SchoolName  string
	TeacherName string
	StudentName string
	Date        string

	AttendanceStatus string
	AttendanceNotes  string

	SubjectAverages []SubjectAverage
	Grades          []ReportGrade
	Behavior        []ReportBehavior
	Assignments     []ReportAssignment
	Upcoming        []ReportAssignment

	GeneratedAt time.Time
}

// SubjectAverage is one line of the grade summary.
type SubjectAverage struct {
	Subject string
	Average int
}

// ReportGrade is a grade entered on the report date.
type ReportGrade struct {
	AssignmentName string
	Score          *float64
	Points         *float64
}

// ReportBehavior is one behavior incident.
type ReportBehavior struct {
	Type        string
	Description string
	ActionTaken string
}

// ReportAssignment is an assignment line with an optional due date.
type ReportAssignment struct {
	Name    string
	Subject string
	DueDate string
}

// RenderDailyReport produces the progress report PDF.
func RenderDailyReport(r DailyReport) ([]byte, error) {
	if r.StudentName == "" {
		return nil, fmt.Errorf("daily report requires a student name")
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, tr(r.SchoolName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 16)
	pdf.CellFormat(0, 9, "Daily Progress Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 7, tr("Student: "+r.StudentName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, tr("Date: "+r.Date), "", 1, "L", false, 0, "")

	section := func(title string) {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont("Arial", "", 11)
	}
	line := func(text string) {
		pdf.MultiCell(0, 6, tr(text), "", "L", false)
	}

	section("Attendance")
	line("Status: " + r.AttendanceStatus)
	notes := r.AttendanceNotes
	if notes == "" {
		notes = "No notes"
	}
	line("Notes: " + notes)

	section("Grades")
	for _, s := range r.SubjectAverages {
		line(fmt.Sprintf("%s: %d%%", s.Subject, s.Average))
	}
	if len(r.Grades) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 11)
		line("Today's Grades:")
		pdf.SetFont("Arial", "", 11)
		for _, g := range r.Grades {
			line(formatReportGrade(g))
		}
	}
	if len(r.SubjectAverages) == 0 && len(r.Grades) == 0 {
		line("No grades recorded.")
	}

	section("Behavior")
	if len(r.Behavior) == 0 {
		line("No behavior incidents recorded today.")
	}
	for i, b := range r.Behavior {
		if i > 0 {
			pdf.Ln(2)
		}
		line("Type: " + b.Type)
		line("Description: " + b.Description)
		action := b.ActionTaken
		if action == "" {
			action = "None"
		}
		line("Action Taken: " + action)
	}

	section("Assignments")
	writeAssignments := func(heading string, items []ReportAssignment) {
		if len(items) == 0 {
			return
		}
		pdf.SetFont("Arial", "B", 11)
		line(heading)
		pdf.SetFont("Arial", "", 11)
		for _, a := range items {
			due := a.DueDate
			if due == "" {
				due = "Not specified"
			}
			label := a.Name
			if a.Subject != "" {
				label += " (" + a.Subject + ")"
			}
			line(label + " - Due Date: " + due)
		}
		pdf.Ln(2)
	}
	writeAssignments("Today's Assignments:", r.Assignments)
	writeAssignments("Upcoming Assignments:", r.Upcoming)
	if len(r.Assignments) == 0 && len(r.Upcoming) == 0 {
		line("No assignments.")
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 10)
	footer := []string{
		"This report was automatically generated.",
		"Teacher: " + r.TeacherName,
		"School: " + r.SchoolName,
		"Generated on: " + r.GeneratedAt.Format("Jan 02, 2006 3:04 PM"),
	}
	for _, f := range footer {
		pdf.CellFormat(0, 5, tr(f), "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render daily report: %w", err)
	}
	return buf.Bytes(), nil
}

func formatReportGrade(g ReportGrade) string {
	name := strings.TrimSpace(g.AssignmentName)
	if g.Score == nil {
		return name + ": not scored"
	}
	if g.Points != nil && *g.Points > 0 {
		pct := *g.Score / *g.Points * 100
		return fmt.Sprintf("%s: %s/%s (%.0f%%)", name, trimFloat(*g.Score), trimFloat(*g.Points), pct)
	}
	return fmt.Sprintf("%s: %s points", name, trimFloat(*g.Score))
}

func trimFloat(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
