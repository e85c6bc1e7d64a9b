package models

import "time"

// Assignment is class-wide coursework.
type Assignment struct {
	ID          string     `db:"id" json:"id,omitempty"`
	Name        string     `db:"name" json:"name,omitempty"`
	Subject     string     `db:"subject" json:"subject,omitempty"`
	Description string     `db:"description" json:"description,omitempty"`
	DueDate     *time.Time `db:"due_date" json:"dueDate,omitempty"`
	Points      *float64   `db:"points" json:"points,omitempty"`
	CreatedAt   *time.Time `db:"created_at" json:"createdAt,omitempty"`
}
