package models

import "time"

// BehaviorPositive is the incident type celebrated in emails.
const BehaviorPositive = "Positive"

// BehaviorIncident is a behavior note logged for a student.
type BehaviorIncident struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"studentId"`
	Date        time.Time `db:"date" json:"date"`
	Type        string    `db:"type" json:"type"`
	Description string    `db:"description" json:"description"`
	ActionTaken string    `db:"action_taken" json:"actionTaken,omitempty"`
}

// IsPositive reports whether the incident is positive behavior.
func (b BehaviorIncident) IsPositive() bool {
	return b.Type == BehaviorPositive
}
