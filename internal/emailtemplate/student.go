package emailtemplate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/daily-update-api/internal/models"
)

const maxStars = 5

type badgeView struct {
	Label string
	Color string
}

type progressView struct {
	Width   int
	Color   string
	Message string
}

type focusView struct {
	Subject string
	Grade   int
	Tip     string
}

type studentView struct {
	SchoolName  string
	DateLong    string
	FirstName   string
	HeroMessage string
	Wins        []string
	Stars       int
	StarRow     string
	Progress    *progressView
	Badges      []badgeView
	Focus       *focusView
	Quote       string
	QuoteTrait  string
	Challenge   string
	Trait       string

	Show         sections
	SubjectCards []subjectCard
	OverallGrade *int
	Grades       []gradeView
	Activities   []activityView
	Lessons      []lessonView
	Upcoming     []upcomingView
	Attendance   attendanceView
	Behavior     []behaviorView
	Reminders    []string
	TeacherName  string
}

// BuildStudentEmail renders the student-facing daily update.
func BuildStudentEmail(update *models.DailyUpdate, filter SectionFilter, opts Options) (*Email, error) {
	if update == nil {
		return nil, errors.New("daily update is required")
	}
	loc := opts.location()
	date, err := parseUpdateDate(update.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid update date %q: %w", update.Date, err)
	}

	first := firstName(update.StudentName)
	seedID := update.StudentID
	if seedID == "" {
		seedID = update.StudentName
	}
	school := update.SchoolName
	if school == "" {
		school = "School"
	}
	teacher := update.TeacherName
	if teacher == "" {
		teacher = "Your Teacher"
	}
	vars := map[string]string{"name": first, "school": school}

	view := studentView{
		SchoolName:   school,
		DateLong:     date.Format("Monday, January 02, 2006"),
		FirstName:    first,
		HeroMessage:  ProcessTemplate(Select(heroGreetings, Seed(seedID, update.Date, ContentGreeting)), vars),
		Wins:         wins(update),
		Stars:        stars(update),
		Progress:     progress(update),
		Badges:       badges(update),
		Focus:        focus(update.SubjectGrades),
		Show:         includedSections(filter, update),
		SubjectCards: subjectCards(update.SubjectGrades),
		OverallGrade: update.OverallGrade,
		Grades:       newGradeViews(update.Grades, "#444"),
		Activities:   newActivityViews(update.Assignments),
		Lessons:      newLessonViews(update.Lessons),
		Upcoming:     newUpcomingViews(update.UpcomingAssignments, date),
		Attendance:   newAttendanceView(update.Attendance, attendanceStyle{"📅", "#666", "#f8f9fa"}),
		Behavior:     newBehaviorViews(update.Behavior),
		Reminders:    reminderTexts(update.Reminders),
		TeacherName:  teacher,
	}
	if view.Stars > 0 {
		view.StarRow = strings.Repeat("⭐", min(view.Stars, maxStars))
	}

	if trait := opts.Trait; trait != nil {
		view.Trait = trait.Name
		view.QuoteTrait = trait.Name
		view.Quote = TraitQuote(trait, seedID, date)
		view.Challenge = TraitChallenge(trait, seedID, date)
	} else {
		view.Quote = Select(QuotePool(date), Seed(seedID, update.Date, ContentQuote))
		view.Challenge = Select(ChallengePool(date, ""), Seed(seedID, update.Date, ContentChallenge))
	}

	html, text, err := render("student", view)
	if err != nil {
		return nil, err
	}
	return &Email{
		Subject: fmt.Sprintf("%s - Your Daily Spark, %s! (%s)", school, first, date.Format("Jan 02")),
		HTML:    html,
		Text:    text,
	}, nil
}

func wins(update *models.DailyUpdate) []string {
	var out []string
	if update.Attendance.Status == models.AttendancePresent {
		out = append(out, "You showed up ready to conquer the day! ✅")
	}
	if n := len(update.Grades); n > 0 {
		out = append(out, fmt.Sprintf("You earned %d amazing %s! 🏅🎉", n, pluralize(n, "grade")))
	}
	if n := len(update.Lessons); n > 0 {
		out = append(out, fmt.Sprintf("You tackled %d %s like a champion! 📚💪", n, pluralize(n, "lesson")))
	}
	if len(update.UpcomingAssignments) > 0 {
		out = append(out, "You have upcoming work — planning ahead shows real leadership! ⏰📋")
	}
	if hasPositiveBehavior(update.Behavior) {
		out = append(out, "You made incredible choices today! 🌈💫")
	}
	return out
}

func stars(update *models.DailyUpdate) int {
	n := 0
	if g := update.OverallGrade; g != nil {
		switch {
		case *g >= 90:
			n += 3
		case *g >= 80:
			n += 2
		case *g >= 70:
			n++
		}
	}
	if update.Attendance.Status == models.AttendancePresent {
		n++
	}
	if hasPositiveBehavior(update.Behavior) {
		n++
	}
	return n
}

// progress prefers the overall grade and falls back to the mean of subject
// averages.
func progress(update *models.DailyUpdate) *progressView {
	var average int
	switch {
	case update.OverallGrade != nil:
		average = *update.OverallGrade
	case len(update.SubjectGrades) > 0:
		total := 0
		for _, g := range update.SubjectGrades {
			total += g.Average
		}
		average = roundPercent(float64(total) / float64(len(update.SubjectGrades)))
	default:
		return nil
	}
	width := max(0, min(100, average))
	view := &progressView{Width: width, Color: GradeColor(width)}
	switch {
	case width >= 90:
		view.Message = "On fire! 🔥"
	case width >= 80:
		view.Message = "Great momentum! 🚀"
	case width >= 70:
		view.Message = "Keep climbing! 🧗"
	default:
		view.Message = "You've got this! 🌱"
	}
	return view
}

func badges(update *models.DailyUpdate) []badgeView {
	var out []badgeView
	if update.Attendance.Status == models.AttendancePresent {
		out = append(out, badgeView{Label: "✅ Attendance Champion", Color: "#1459a9"})
	}
	if len(update.Grades) > 0 {
		out = append(out, badgeView{Label: "📊 Grade Collector", Color: "#ed2024"})
	}
	if len(update.Lessons) > 0 {
		out = append(out, badgeView{Label: "🔎 Curious Learner", Color: "#1459a9"})
	}
	if hasPositiveBehavior(update.Behavior) {
		out = append(out, badgeView{Label: "💜 Kindness Hero", Color: "#ed2024"})
	}
	return out
}

// focus targets the weakest subject.
func focus(grades models.SubjectGrades) *focusView {
	if len(grades) == 0 {
		return nil
	}
	sorted := append(models.SubjectGrades(nil), grades...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Average < sorted[j].Average })
	lowest := sorted[0]
	return &focusView{Subject: lowest.Subject, Grade: lowest.Average, Tip: FocusTip(lowest.Subject)}
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
