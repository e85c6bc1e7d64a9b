package models

import "time"

// Reminder is a class announcement shown while it is active.
type Reminder struct {
	ID          string     `db:"id" json:"id"`
	Text        string     `db:"text" json:"text"`
	ActiveFrom  time.Time  `db:"active_from" json:"activeFrom"`
	ActiveUntil *time.Time `db:"active_until" json:"activeUntil,omitempty"`
}
