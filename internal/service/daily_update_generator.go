package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/daily-update-api/internal/models"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
)

// DateLayout is the wire format of daily update dates.
const DateLayout = "2006-01-02"

const (
	defaultSchoolName  = "School"
	defaultTeacherName = "Teacher"
	notRecordedNotes   = "Attendance not yet recorded for today"
	unknownAssignment  = "Unknown Assignment"
	unknownSubject     = "Unknown Subject"
	generalSubject     = "General"
	upcomingWindowDays = 7
)

// ParseDate accepts YYYY-MM-DD (interpreted in loc) or an RFC 3339
// timestamp and returns the start of that day in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)
	if t, err := time.ParseInLocation(DateLayout, raw, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

// GeneratorOptions configures a DailyUpdateGenerator.
type GeneratorOptions struct {
	// Location is the school's time zone; timestamps are bucketed into days there.
	Location          *time.Location
	DefaultSchoolName string
	Logger            *zap.Logger
}

// DailyUpdateGenerator joins a class's raw records into per-student daily
// updates. It holds no I/O and is safe for concurrent reads.
type DailyUpdateGenerator struct {
	sources     models.DataSources
	loc         *time.Location
	schoolName  string
	logger      *zap.Logger
	assignments map[string]models.Assignment
}

// NewDailyUpdateGenerator indexes sources for generation.
func NewDailyUpdateGenerator(sources models.DataSources, opts GeneratorOptions) *DailyUpdateGenerator {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	school := strings.TrimSpace(sources.SchoolName)
	if school == "" {
		school = opts.DefaultSchoolName
	}
	if school == "" {
		school = defaultSchoolName
	}
	index := make(map[string]models.Assignment, len(sources.Assignments))
	for _, a := range sources.Assignments {
		index[a.ID] = a
	}
	return &DailyUpdateGenerator{
		sources:     sources,
		loc:         opts.Location,
		schoolName:  school,
		logger:      opts.Logger,
		assignments: index,
	}
}

// Generate builds the daily update of one student for date.
func (g *DailyUpdateGenerator) Generate(studentID string, date time.Time) (*models.DailyUpdate, error) {
	student, ok := g.findStudent(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("Student with ID %s not found", studentID))
	}
	day := g.dayKey(date)

	grades := g.todaysGrades(student.ID, day)
	update := &models.DailyUpdate{
		StudentID:           student.ID,
		StudentName:         strings.TrimSpace(student.FirstName + " " + student.LastName),
		StudentGender:       optionalString(student.Gender),
		ParentEmails:        parentEmails(student),
		ParentName:          parentName(student),
		Date:                day,
		Attendance:          g.attendance(student.ID, day),
		Assignments:         g.todaysActivities(day, grades),
		Grades:              grades,
		Behavior:            g.todaysBehavior(student.ID, day),
		Lessons:             g.todaysLessons(day),
		UpcomingAssignments: g.upcoming(day),
		Reminders:           g.activeReminders(day),
		OverallGrade:        g.overallGrade(student.ID),
		SubjectGrades:       g.subjectGrades(student.ID),
		AttendanceRate:      g.attendanceRate(student.ID, day),
		SchoolName:          g.schoolName,
		TeacherName:         g.teacherName(),
		TeacherEmail:        g.teacherEmail(),
	}
	return update, nil
}

// GenerateAll builds an update for every student on the roster. A student
// whose update cannot be built is logged and left out.
func (g *DailyUpdateGenerator) GenerateAll(date time.Time) []models.DailyUpdate {
	updates := make([]models.DailyUpdate, 0, len(g.sources.Students))
	for _, student := range g.sources.Students {
		update, err := g.Generate(student.ID, date)
		if err != nil {
			g.logger.Warn("skipping daily update", zap.String("student_id", student.ID), zap.Error(err))
			continue
		}
		updates = append(updates, *update)
	}
	return updates
}

// StudentsForDailyUpdates returns active students with a parent email.
func (g *DailyUpdateGenerator) StudentsForDailyUpdates() []models.Student {
	out := make([]models.Student, 0, len(g.sources.Students))
	for _, s := range g.sources.Students {
		if s.HasParentEmail() && s.Status != models.StudentStatusInactive {
			out = append(out, s)
		}
	}
	return out
}

// Inactive reports whether studentID is on the roster with an inactive status.
func (g *DailyUpdateGenerator) Inactive(studentID string) bool {
	student, ok := g.findStudent(studentID)
	return ok && student.Status == models.StudentStatusInactive
}

// Students returns every roster entry.
func (g *DailyUpdateGenerator) Students() []models.Student {
	return g.sources.Students
}

// ClassSummary aggregates the whole class for date.
func (g *DailyUpdateGenerator) ClassSummary(date time.Time) models.ClassSummary {
	day := g.dayKey(date)
	summary := models.ClassSummary{Date: day, TotalStudents: len(g.sources.Students)}

	for _, a := range g.sources.Attendance {
		if calendarKey(a.Date) != day {
			continue
		}
		switch a.Status {
		case models.AttendancePresent:
			summary.PresentStudents++
		case models.AttendanceAbsent:
			summary.AbsentStudents++
		case models.AttendanceTardy:
			summary.LateStudents++
		}
	}
	if summary.TotalStudents > 0 {
		summary.AttendanceRate = float64(summary.PresentStudents) / float64(summary.TotalStudents) * 100
	}
	summary.PresentToday = summary.PresentStudents

	for _, grade := range g.sources.Grades {
		if grade.DateEntered != nil && g.instantKey(*grade.DateEntered) == day {
			summary.NewGradesToday++
		}
	}
	summary.UpcomingAssignments = len(g.upcoming(day))

	var total float64
	var count int
	for _, student := range g.sources.Students {
		if avg, ok := g.averagePercentage(student.ID); ok {
			total += avg
			count++
		}
	}
	if count > 0 {
		avg := roundHalfUp(total / float64(count))
		summary.AverageGrade = &avg
	}

	g.logger.Debug("class summary generated",
		zap.String("date", day),
		zap.Int("total_students", summary.TotalStudents),
		zap.Int("present", summary.PresentStudents),
		zap.Int("attendance_rate", roundHalfUp(summary.AttendanceRate)),
	)
	return summary
}

func (g *DailyUpdateGenerator) findStudent(id string) (models.Student, bool) {
	for _, s := range g.sources.Students {
		if s.ID == id {
			return s, true
		}
	}
	return models.Student{}, false
}

func (g *DailyUpdateGenerator) attendance(studentID, day string) models.AttendanceSummary {
	for _, a := range g.sources.Attendance {
		if a.StudentID == studentID && calendarKey(a.Date) == day {
			return models.AttendanceSummary{Status: a.Status, Notes: a.Notes, Date: day}
		}
	}
	return models.AttendanceSummary{Status: models.AttendanceNotRecorded, Notes: notRecordedNotes, Date: day}
}

// todaysActivities lists assignments due or created on day, then the
// classwork the student was graded on today. Graded work that is already
// listed is marked completed instead of being repeated.
func (g *DailyUpdateGenerator) todaysActivities(day string, grades []models.DailyGrade) []models.Activity {
	activities := make([]models.Activity, 0)
	position := make(map[string]int)
	for _, a := range g.sources.Assignments {
		due := a.DueDate != nil && calendarKey(*a.DueDate) == day
		created := a.CreatedAt != nil && g.instantKey(*a.CreatedAt) == day
		if due || created {
			position[a.ID] = len(activities)
			activities = append(activities, models.Activity{Assignment: a})
		}
	}
	for _, dg := range grades {
		grade := dg.Grade
		if i, ok := position[grade.AssignmentID]; ok && grade.AssignmentID != "" {
			activities[i].Completed = true
			activities[i].Grade = &grade
			continue
		}
		activities = append(activities, models.Activity{
			Assignment: g.assignments[grade.AssignmentID],
			Completed:  true,
			Grade:      &grade,
		})
	}
	return activities
}

func (g *DailyUpdateGenerator) todaysGrades(studentID, day string) []models.DailyGrade {
	out := make([]models.DailyGrade, 0)
	for _, grade := range g.sources.Grades {
		if grade.StudentID != studentID || grade.DateEntered == nil || g.instantKey(*grade.DateEntered) != day {
			continue
		}
		dg := models.DailyGrade{Grade: grade, AssignmentName: unknownAssignment, Subject: unknownSubject}
		if a, ok := g.assignments[grade.AssignmentID]; ok {
			if a.Name != "" {
				dg.AssignmentName = a.Name
			}
			if a.Subject != "" {
				dg.Subject = a.Subject
			}
		}
		out = append(out, dg)
	}
	return out
}

func (g *DailyUpdateGenerator) todaysBehavior(studentID, day string) []models.BehaviorIncident {
	out := make([]models.BehaviorIncident, 0)
	for _, b := range g.sources.Behavior {
		if b.StudentID == studentID && calendarKey(b.Date) == day {
			out = append(out, b)
		}
	}
	return out
}

func (g *DailyUpdateGenerator) todaysLessons(day string) []models.Lesson {
	out := make([]models.Lesson, 0)
	for _, l := range g.sources.Lessons {
		if calendarKey(l.Date) == day {
			out = append(out, l)
		}
	}
	return out
}

func (g *DailyUpdateGenerator) activeReminders(day string) []models.Reminder {
	out := make([]models.Reminder, 0)
	for _, r := range g.sources.Reminders {
		if calendarKey(r.ActiveFrom) > day {
			continue
		}
		if r.ActiveUntil != nil && calendarKey(*r.ActiveUntil) < day {
			continue
		}
		out = append(out, r)
	}
	return out
}

// upcoming lists assignments due in the days after day and within the
// upcoming window, soonest first.
func (g *DailyUpdateGenerator) upcoming(day string) []models.Assignment {
	out := make([]models.Assignment, 0)
	for _, a := range g.sources.Assignments {
		if a.DueDate == nil {
			continue
		}
		ahead := daysBetween(day, calendarKey(*a.DueDate))
		if ahead >= 1 && ahead < upcomingWindowDays {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(*out[j].DueDate)
	})
	return out
}

func (g *DailyUpdateGenerator) averagePercentage(studentID string) (float64, bool) {
	var total float64
	var count int
	for _, grade := range g.sources.Grades {
		if grade.StudentID != studentID {
			continue
		}
		if pct, ok := grade.Percentage(); ok {
			total += pct
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return total / float64(count), true
}

func (g *DailyUpdateGenerator) overallGrade(studentID string) *int {
	avg, ok := g.averagePercentage(studentID)
	if !ok {
		return nil
	}
	rounded := roundHalfUp(avg)
	return &rounded
}

func (g *DailyUpdateGenerator) subjectGrades(studentID string) models.SubjectGrades {
	type bucket struct {
		subject string
		total   float64
		count   int
	}
	var order []*bucket
	bySubject := make(map[string]*bucket)
	for _, grade := range g.sources.Grades {
		if grade.StudentID != studentID || grade.Score == nil {
			continue
		}
		subject := generalSubject
		if a, ok := g.assignments[grade.AssignmentID]; ok && a.Subject != "" {
			subject = a.Subject
		}
		value := *grade.Score
		if pct, ok := grade.Percentage(); ok {
			value = pct
		}
		b, ok := bySubject[subject]
		if !ok {
			b = &bucket{subject: subject}
			bySubject[subject] = b
			order = append(order, b)
		}
		b.total += value
		b.count++
	}
	out := make(models.SubjectGrades, 0, len(order))
	for _, b := range order {
		out = append(out, models.SubjectGrade{Subject: b.subject, Average: roundHalfUp(b.total / float64(b.count))})
	}
	return out
}

func (g *DailyUpdateGenerator) attendanceRate(studentID, day string) int {
	var total, present int
	for _, a := range g.sources.Attendance {
		if a.StudentID != studentID || calendarKey(a.Date) != day {
			continue
		}
		total++
		if a.Status == models.AttendancePresent {
			present++
		}
	}
	if total == 0 {
		return 0
	}
	return roundHalfUp(float64(present) / float64(total) * 100)
}

func (g *DailyUpdateGenerator) teacherName() string {
	if t := g.sources.Teacher; t != nil {
		if t.Name != "" {
			return t.Name
		}
		if t.DisplayName != "" {
			return t.DisplayName
		}
	}
	return defaultTeacherName
}

func (g *DailyUpdateGenerator) teacherEmail() string {
	if t := g.sources.Teacher; t != nil {
		return t.Email
	}
	return ""
}

func (g *DailyUpdateGenerator) dayKey(t time.Time) string {
	return t.In(g.loc).Format(DateLayout)
}

// instantKey buckets a timestamp into a school-local day.
func (g *DailyUpdateGenerator) instantKey(t time.Time) string {
	return t.In(g.loc).Format(DateLayout)
}

// calendarKey formats a DATE column, which carries no zone of its own.
func calendarKey(t time.Time) string {
	return t.Format(DateLayout)
}

func daysBetween(fromKey, toKey string) int {
	from, err1 := time.Parse(DateLayout, fromKey)
	to, err2 := time.Parse(DateLayout, toKey)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

func parentEmails(s models.Student) []string {
	seen := make(map[string]struct{}, 2)
	out := make([]string, 0, 2)
	for _, raw := range []string{s.ParentEmail1, s.ParentEmail2} {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

func parentName(s models.Student) *string {
	for _, candidate := range []string{s.ParentName1, s.ParentName2, s.ParentFirstName1, s.ParentFirstName2} {
		if strings.TrimSpace(candidate) != "" {
			name := candidate
			return &name
		}
	}
	return nil
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
