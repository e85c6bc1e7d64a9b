package models

import "time"

// Grade is a score a student received on an assignment.
type Grade struct {
	ID           string     `db:"id" json:"id"`
	StudentID    string     `db:"student_id" json:"studentId"`
	AssignmentID string     `db:"assignment_id" json:"assignmentId"`
	Score        *float64   `db:"score" json:"score"`
	Points       *float64   `db:"points" json:"points"`
	DateEntered  *time.Time `db:"date_entered" json:"dateEntered,omitempty"`
}

// Percentage returns score/points*100 when both are usable.
func (g Grade) Percentage() (float64, bool) {
	if g.Score == nil || g.Points == nil || *g.Points <= 0 {
		return 0, false
	}
	return *g.Score / *g.Points * 100, true
}
