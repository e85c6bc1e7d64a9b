package emailtemplate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/daily-update-api/internal/models"
)

type parentView struct {
	SchoolName    string
	DateLong      string
	Salutation    string
	FirstName     string
	Pronouns      Pronouns
	Encouragement string

	AverageGrade        int
	AverageColor        string
	AttendanceRate      int
	AttendanceRateColor string
	ActivityCount       int
	UpcomingCount       int

	Show          sections
	SubjectRows   [][]subjectCard
	SubjectCards  []subjectCard
	Attendance    attendanceView
	Activities    []activityView
	Grades        []gradeView
	Behavior      []behaviorView
	Upcoming      []upcomingView
	Lessons       []lessonView
	Reminders     []string
	TeacherName   string
	TeacherEmail  string
	SentAt        string
	OverallGrade  *int
	HasAnySection bool
}

// BuildParentEmail renders the parent daily update. Sections are gated by
// filter; a nil filter renders every section.
func BuildParentEmail(update *models.DailyUpdate, filter SectionFilter, opts Options) (*Email, error) {
	if update == nil {
		return nil, errors.New("daily update is required")
	}
	loc := opts.location()
	date, err := parseUpdateDate(update.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid update date %q: %w", update.Date, err)
	}
	sentAt := opts.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	first := firstName(update.StudentName)
	salutation := first + "'s Parent"
	if update.ParentName != nil && strings.TrimSpace(*update.ParentName) != "" {
		salutation = strings.TrimSpace(*update.ParentName)
	}
	pronouns := PronounsFor(deref(update.StudentGender))

	average := parentAverage(update)
	show := includedSections(filter, update)
	cards := subjectCards(update.SubjectGrades)

	view := parentView{
		SchoolName:          update.SchoolName,
		DateLong:            date.Format("Monday, January 02, 2006"),
		Salutation:          salutation,
		FirstName:           first,
		Pronouns:            pronouns,
		Encouragement:       encouragement(first, pronouns, average, update),
		AverageGrade:        average,
		AverageColor:        GradeColor(average),
		AttendanceRate:      update.AttendanceRate,
		AttendanceRateColor: attendanceRateColor(update.Attendance.Status),
		ActivityCount:       len(update.Assignments),
		UpcomingCount:       len(update.UpcomingAssignments),
		Show:                show,
		SubjectRows:         pairs(cards),
		SubjectCards:        cards,
		Attendance:          newAttendanceView(update.Attendance, attendanceStyles[models.AttendanceAbsent]),
		Activities:          newActivityViews(update.Assignments),
		Grades:              newGradeViews(update.Grades, "#444"),
		Behavior:            newBehaviorViews(update.Behavior),
		Upcoming:            newUpcomingViews(update.UpcomingAssignments, date),
		Lessons:             newLessonViews(update.Lessons),
		Reminders:           reminderTexts(update.Reminders),
		TeacherName:         update.TeacherName,
		TeacherEmail:        update.TeacherEmail,
		SentAt:              sentAt.In(loc).Format("January 02, 2006 at 3:04 PM"),
		OverallGrade:        update.OverallGrade,
	}
	if view.TeacherEmail == "" {
		view.TeacherEmail = "Available upon request"
	}
	for _, included := range show {
		view.HasAnySection = view.HasAnySection || included
	}

	html, text, err := render("parent", view)
	if err != nil {
		return nil, err
	}
	return &Email{
		Subject: fmt.Sprintf("📚 %s - Daily Update for %s (%s)", update.SchoolName, update.StudentName, date.Format("Jan 02, 2006")),
		HTML:    html,
		Text:    text,
	}, nil
}

// parentAverage is the mean of subject averages, falling back to the
// overall grade.
func parentAverage(update *models.DailyUpdate) int {
	if len(update.SubjectGrades) > 0 {
		total := 0
		for _, g := range update.SubjectGrades {
			total += g.Average
		}
		return roundPercent(float64(total) / float64(len(update.SubjectGrades)))
	}
	if update.OverallGrade != nil {
		return *update.OverallGrade
	}
	return 0
}

func attendanceRateColor(status string) string {
	switch status {
	case models.AttendancePresent:
		return "#2e7d32"
	case models.AttendanceTardy:
		return "#f57c00"
	default:
		return "#d32f2f"
	}
}

func encouragement(first string, p Pronouns, average int, update *models.DailyUpdate) string {
	var messages []string
	switch {
	case average >= 90:
		messages = append(messages, fmt.Sprintf("%s is excelling academically! What a bright %s %s %s! 🎉", first, p.Title, p.Subject, p.Be))
	case average >= 80:
		messages = append(messages, fmt.Sprintf("%s is doing great work! %s %s showing strong understanding and dedication! 🚀", first, p.SubjectTitle(), p.Be))
	case average >= 70:
		messages = append(messages, fmt.Sprintf("%s is making good progress. Let's continue supporting %s to reach %s full potential! 📚", first, p.Object, p.Possessive))
	default:
		messages = append(messages, fmt.Sprintf("%s is working hard. Let's collaborate to help %s succeed and build confidence! 🤝", first, p.Object))
	}
	if update.AttendanceRate >= 95 {
		messages = append(messages, fmt.Sprintf("%s %s an excellent attendance record - what a responsible %s! 📅", p.SubjectTitle(), p.maintains(), p.Title))
	}
	if hasPositiveBehavior(update.Behavior) {
		messages = append(messages, fmt.Sprintf("%s showed wonderful behavior today! %s %s truly a role model for others! 🌟", p.SubjectTitle(), p.SubjectTitle(), p.Be))
	}
	return strings.Join(messages, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
