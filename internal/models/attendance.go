package models

import "time"

// Attendance statuses recorded by teachers.
const (
	AttendancePresent     = "Present"
	AttendanceAbsent      = "Absent"
	AttendanceTardy       = "Tardy"
	AttendanceExcused     = "Excused"
	AttendanceNotRecorded = "Not Recorded"
)

// AttendanceRecord is one student's attendance for one day.
type AttendanceRecord struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"studentId"`
	Date      time.Time `db:"date" json:"date"`
	Status    string    `db:"status" json:"status"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
}
