package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DailyUpdate is the per-student, per-date aggregate rendered into emails.
// It is built on demand and never persisted.
type DailyUpdate struct {
	StudentID     string            `json:"studentId"`
	StudentName   string            `json:"studentName"`
	StudentGender *string           `json:"studentGender"`
	ParentEmails  []string          `json:"parentEmails"`
	ParentName    *string           `json:"parentName"`
	Date          string            `json:"date"`
	Attendance    AttendanceSummary `json:"attendance"`

	Assignments         []Activity         `json:"assignments"`
	Grades              []DailyGrade       `json:"grades"`
	Behavior            []BehaviorIncident `json:"behavior"`
	Lessons             []Lesson           `json:"lessons"`
	UpcomingAssignments []Assignment       `json:"upcomingAssignments"`
	Reminders           []Reminder         `json:"reminders"`

	OverallGrade   *int          `json:"overallGrade"`
	SubjectGrades  SubjectGrades `json:"subjectGrades"`
	AttendanceRate int           `json:"attendanceRate"`

	SchoolName   string `json:"schoolName"`
	TeacherName  string `json:"teacherName"`
	TeacherEmail string `json:"teacherEmail"`
}

// AttendanceSummary is the attendance shown for the update's date.
type AttendanceSummary struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
	Date   string `json:"date,omitempty"`
}

// Recorded reports whether a real attendance status was taken.
func (a AttendanceSummary) Recorded() bool {
	return a.Status != "" && a.Status != AttendanceNotRecorded
}

// Activity is an entry of today's learning activities: a class assignment
// or a piece of classwork the student was graded on today.
type Activity struct {
	Assignment
	Completed bool   `json:"completed,omitempty"`
	Grade     *Grade `json:"grade,omitempty"`
}

// DailyGrade is a grade entered on the update's date, with assignment context.
type DailyGrade struct {
	Grade
	AssignmentName string `json:"assignmentName"`
	Subject        string `json:"subject"`
}

// SubjectGrade is one subject's average.
type SubjectGrade struct {
	Subject string
	Average int
}

// SubjectGrades keeps per-subject averages in first-seen order and encodes
// as a JSON object.
type SubjectGrades []SubjectGrade

// Get returns the average for subject.
func (s SubjectGrades) Get(subject string) (int, bool) {
	for _, g := range s {
		if g.Subject == subject {
			return g.Average, true
		}
	}
	return 0, false
}

// MarshalJSON encodes the grades as an object preserving order.
func (s SubjectGrades) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(g.Subject)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", g.Average)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of subject → average, keeping key order.
func (s *SubjectGrades) UnmarshalJSON(data []byte) error {
	*s = nil
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("subjectGrades must be an object")
	}
	out := SubjectGrades{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var avg float64
		if err := dec.Decode(&avg); err != nil {
			return fmt.Errorf("subjectGrades.%s: %w", key, err)
		}
		out = append(out, SubjectGrade{Subject: key, Average: int(avg)})
	}
	*s = out
	return nil
}

// ClassSummary aggregates a class for one date.
type ClassSummary struct {
	Date                string  `json:"date"`
	TotalStudents       int     `json:"totalStudents"`
	PresentStudents     int     `json:"presentStudents"`
	AbsentStudents      int     `json:"absentStudents"`
	LateStudents        int     `json:"lateStudents"`
	AttendanceRate      float64 `json:"attendanceRate"`
	PresentToday        int     `json:"presentToday"`
	NewGradesToday      int     `json:"newGradesToday"`
	UpcomingAssignments int     `json:"upcomingAssignments"`
	AverageGrade        *int    `json:"averageGrade"`
}

// DataSources is the raw input a teacher's daily updates are generated from.
type DataSources struct {
	Students    []Student          `json:"students"`
	Attendance  []AttendanceRecord `json:"attendance"`
	Assignments []Assignment       `json:"assignments"`
	Grades      []Grade            `json:"grades"`
	Behavior    []BehaviorIncident `json:"behavior"`
	Lessons     []Lesson           `json:"lessons"`
	Reminders   []Reminder         `json:"reminders"`
	Teacher     *Teacher           `json:"teacher"`
	SchoolName  string             `json:"schoolName"`
}
