package models

import "time"

// Lesson is a class-wide learning activity taught on a date.
type Lesson struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Subject     string    `db:"subject" json:"subject,omitempty"`
	Description string    `db:"description" json:"description,omitempty"`
	Date        time.Time `db:"date" json:"date"`
	// Duration in minutes; zero when unknown.
	Duration int `db:"duration" json:"duration,omitempty"`
}
