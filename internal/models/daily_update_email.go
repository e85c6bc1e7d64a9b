package models

import (
	"time"

	"github.com/lib/pq"
)

// Delivery statuses of a daily update email.
const (
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
	EmailStatusSkipped = "skipped"
)

// DailyUpdateEmail is the persisted record of one send attempt.
type DailyUpdateEmail struct {
	ID            string         `db:"id" json:"id"`
	TeacherID     string         `db:"teacher_id" json:"teacherId"`
	StudentID     string         `db:"student_id" json:"studentId"`
	StudentName   string         `db:"student_name" json:"studentName"`
	Subject       string         `db:"subject" json:"subject"`
	Recipients    pq.StringArray `db:"recipients" json:"recipients"`
	RecipientType RecipientType  `db:"recipient_type" json:"recipientType"`
	Date          string         `db:"update_date" json:"date"`
	SentStatus    string         `db:"sent_status" json:"sentStatus"`
	MessageID     string         `db:"message_id" json:"messageId,omitempty"`
	Method        string         `db:"method" json:"method"`
	Error         string         `db:"error" json:"error,omitempty"`
	SentAt        time.Time      `db:"sent_at" json:"sentAt"`
}

// DailyUpdateEmailFilter narrows history listings.
type DailyUpdateEmailFilter struct {
	TeacherID     string
	StudentID     string
	RecipientType RecipientType
	Status        string
	DateFrom      string
	DateTo        string
	Page          int
	PageSize      int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
