package emailtemplate

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/daily-update-api/internal/models"
)

// SectionFilter decides which sections of an update are rendered.
type SectionFilter interface {
	ShouldIncludeSection(section models.EmailSection, update *models.DailyUpdate) bool
}

type includeAll struct{}

func (includeAll) ShouldIncludeSection(models.EmailSection, *models.DailyUpdate) bool { return true }

// Options tunes rendering.
type Options struct {
	// Location is where the update date and send time are shown; UTC when nil.
	Location *time.Location
	// SentAt is printed in the parent footer; now when zero.
	SentAt time.Time
	// Trait is the teacher's character trait of the month, if any.
	Trait *models.CharacterTrait
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

type sections map[models.EmailSection]bool

func includedSections(filter SectionFilter, update *models.DailyUpdate) sections {
	if filter == nil {
		filter = includeAll{}
	}
	out := make(sections, len(models.EmailSections))
	for _, s := range models.EmailSections {
		out[s] = filter.ShouldIncludeSection(s, update)
	}
	return out
}

func (s sections) Attendance() bool    { return s[models.SectionAttendance] }
func (s sections) Grades() bool        { return s[models.SectionGrades] }
func (s sections) SubjectGrades() bool { return s[models.SectionSubjectGrades] }
func (s sections) Behavior() bool      { return s[models.SectionBehavior] }
func (s sections) Assignments() bool   { return s[models.SectionAssignments] }
func (s sections) Upcoming() bool      { return s[models.SectionUpcoming] }
func (s sections) Lessons() bool       { return s[models.SectionLessons] }
func (s sections) Reminders() bool     { return s[models.SectionReminders] }

type attendanceView struct {
	Status string
	Notes  string
	Icon   string
	Color  string
	Bg     string
}

type attendanceStyle struct{ icon, color, bg string }

var attendanceStyles = map[string]attendanceStyle{
	models.AttendancePresent: {"✅", "#2e7d32", "#e8f5e8"},
	models.AttendanceTardy:   {"⏰", "#f57c00", "#fff3e0"},
	models.AttendanceAbsent:  {"❌", "#d32f2f", "#ffebee"},
	models.AttendanceExcused: {"📋", "#1976d2", "#e3f2fd"},
}

func newAttendanceView(a models.AttendanceSummary, fallback attendanceStyle) attendanceView {
	status := a.Status
	if status == "" {
		status = models.AttendanceNotRecorded
	}
	style, ok := attendanceStyles[status]
	if !ok {
		style = fallback
	}
	return attendanceView{Status: status, Notes: a.Notes, Icon: style.icon, Color: style.color, Bg: style.bg}
}

type subjectCard struct {
	Subject string
	Average int
	Color   string
}

type activityView struct {
	Name        string
	Subject     string
	Description string
	DueDate     string
	Points      string
	Completed   bool
	Grade       string
}

type gradeView struct {
	AssignmentName string
	Subject        string
	Display        string
	Color          string
}

type behaviorView struct {
	Type        string
	Positive    bool
	Description string
	ActionTaken string
}

type upcomingView struct {
	Name        string
	Subject     string
	Description string
	DueDate     string
	DueShort    string
	Points      string
	Color       string
	Bg          string
	DueSoon     bool
}

type lessonView struct {
	Title    string
	Subject  string
	Duration int
}

func firstName(studentName string) string {
	fields := strings.Fields(studentName)
	if len(fields) == 0 {
		return "Student"
	}
	return fields[0]
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func roundPercent(v float64) int {
	return int(math.Floor(v + 0.5))
}

// gradeDisplay renders "score/points (pct%)", or just the score when the
// grade carries no usable points.
func gradeDisplay(g models.Grade) (string, int, bool) {
	if g.Score == nil {
		return "Not scored", 0, false
	}
	if pct, ok := g.Percentage(); ok {
		rounded := roundPercent(pct)
		return formatNumber(*g.Score) + "/" + formatNumber(*g.Points) + " (" + strconv.Itoa(rounded) + "%)", rounded, true
	}
	return formatNumber(*g.Score), 0, false
}

func newGradeViews(grades []models.DailyGrade, neutral string) []gradeView {
	out := make([]gradeView, 0, len(grades))
	for _, g := range grades {
		display, pct, ok := gradeDisplay(g.Grade)
		color := neutral
		if ok {
			color = GradeColor(pct)
		}
		out = append(out, gradeView{AssignmentName: g.AssignmentName, Subject: g.Subject, Display: display, Color: color})
	}
	return out
}

func newActivityViews(activities []models.Activity) []activityView {
	out := make([]activityView, 0, len(activities))
	for _, a := range activities {
		v := activityView{Name: a.Name, Subject: a.Subject, Description: a.Description, Completed: a.Completed}
		if v.Name == "" {
			v.Name = "Classwork"
		}
		if a.DueDate != nil {
			v.DueDate = a.DueDate.Format("Jan 02, 2006")
		}
		if a.Points != nil && *a.Points > 0 {
			v.Points = formatNumber(*a.Points)
		}
		if a.Grade != nil {
			v.Grade, _, _ = gradeDisplay(*a.Grade)
		}
		out = append(out, v)
	}
	return out
}

func newBehaviorViews(incidents []models.BehaviorIncident) []behaviorView {
	out := make([]behaviorView, 0, len(incidents))
	for _, b := range incidents {
		out = append(out, behaviorView{Type: b.Type, Positive: b.IsPositive(), Description: b.Description, ActionTaken: b.ActionTaken})
	}
	return out
}

// newUpcomingViews colours assignments by how many days after the update
// date they are due.
func newUpcomingViews(assignments []models.Assignment, date time.Time) []upcomingView {
	out := make([]upcomingView, 0, len(assignments))
	for _, a := range assignments {
		v := upcomingView{Name: a.Name, Subject: a.Subject, Description: a.Description, Color: "#1976d2", Bg: "#ffffff"}
		if a.Points != nil && *a.Points > 0 {
			v.Points = formatNumber(*a.Points)
		}
		if a.DueDate != nil {
			v.DueDate = a.DueDate.Format("Jan 02, 2006")
			v.DueShort = a.DueDate.Format("Jan 02")
			due := time.Date(a.DueDate.Year(), a.DueDate.Month(), a.DueDate.Day(), 0, 0, 0, 0, time.UTC)
			from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
			days := int(due.Sub(from).Hours() / 24)
			switch {
			case days <= 1:
				v.Color, v.Bg, v.DueSoon = "#ff5722", "#fff3e0", true
			case days <= 3:
				v.Color, v.Bg = "#ff9800", "#fff8e1"
			}
		}
		out = append(out, v)
	}
	return out
}

func newLessonViews(lessons []models.Lesson) []lessonView {
	out := make([]lessonView, 0, len(lessons))
	for _, l := range lessons {
		title := l.Title
		if title == "" {
			title = "Lesson"
		}
		out = append(out, lessonView{Title: title, Subject: l.Subject, Duration: l.Duration})
	}
	return out
}

func reminderTexts(reminders []models.Reminder) []string {
	out := make([]string, 0, len(reminders))
	for _, r := range reminders {
		if strings.TrimSpace(r.Text) != "" {
			out = append(out, r.Text)
		}
	}
	return out
}

func subjectCards(grades models.SubjectGrades) []subjectCard {
	out := make([]subjectCard, 0, len(grades))
	for _, g := range grades {
		out = append(out, subjectCard{Subject: g.Subject, Average: g.Average, Color: GradeColor(g.Average)})
	}
	return out
}

// pairs lays subject cards out two per row.
func pairs(cards []subjectCard) [][]subjectCard {
	rows := make([][]subjectCard, 0, (len(cards)+1)/2)
	for i := 0; i < len(cards); i += 2 {
		end := i + 2
		if end > len(cards) {
			end = len(cards)
		}
		rows = append(rows, cards[i:end])
	}
	return rows
}

func hasPositiveBehavior(incidents []models.BehaviorIncident) bool {
	for _, b := range incidents {
		if b.IsPositive() {
			return true
		}
	}
	return false
}

// parseUpdateDate reads a YYYY-MM-DD date, or the calendar day of an RFC 3339
// timestamp in loc.
func parseUpdateDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}
