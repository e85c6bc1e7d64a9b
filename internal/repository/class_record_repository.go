package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/daily-update-api/internal/models"
)

const dateLayout = "2006-01-02"

// ClassRecordRepository reads the day-to-day records of a teacher's class:
// attendance, assignments, grades, behavior, lessons and reminders.
type ClassRecordRepository struct {
	db *sqlx.DB
}

// NewClassRecordRepository constructs a ClassRecordRepository.
func NewClassRecordRepository(db *sqlx.DB) *ClassRecordRepository {
	return &ClassRecordRepository{db: db}
}

// AttendanceOn returns the attendance taken on date.
func (r *ClassRecordRepository) AttendanceOn(ctx context.Context, teacherID string, date time.Time) ([]models.AttendanceRecord, error) {
	const query = `SELECT a.id, a.student_id, a.date, a.status, COALESCE(a.notes, '') AS notes
        FROM attendance a JOIN students s ON s.id = a.student_id
        WHERE s.teacher_id = $1 AND a.date = $2`
	records := make([]models.AttendanceRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, teacherID, date.Format(dateLayout)); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// Assignments returns every assignment of the teacher.
func (r *ClassRecordRepository) Assignments(ctx context.Context, teacherID string) ([]models.Assignment, error) {
	const query = `SELECT id, name, COALESCE(subject, '') AS subject, COALESCE(description, '') AS description, due_date, points, created_at
        FROM assignments WHERE teacher_id = $1 ORDER BY due_date NULLS LAST, name`
	assignments := make([]models.Assignment, 0)
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// Grades returns every grade recorded for the teacher's students. Averages
// span the whole gradebook, so this is not limited to one day.
func (r *ClassRecordRepository) Grades(ctx context.Context, teacherID string) ([]models.Grade, error) {
	const query = `SELECT g.id, g.student_id, COALESCE(g.assignment_id, '') AS assignment_id, g.score, g.points, g.date_entered
        FROM grades g JOIN students s ON s.id = g.student_id
        WHERE s.teacher_id = $1 ORDER BY g.date_entered`
	grades := make([]models.Grade, 0)
	if err := r.db.SelectContext(ctx, &grades, query, teacherID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// BehaviorOn returns behavior incidents logged on date.
func (r *ClassRecordRepository) BehaviorOn(ctx context.Context, teacherID string, date time.Time) ([]models.BehaviorIncident, error) {
	const query = `SELECT b.id, b.student_id, b.date, b.type, b.description, COALESCE(b.action_taken, '') AS action_taken
        FROM behavior b JOIN students s ON s.id = b.student_id
        WHERE s.teacher_id = $1 AND b.date = $2`
	incidents := make([]models.BehaviorIncident, 0)
	if err := r.db.SelectContext(ctx, &incidents, query, teacherID, date.Format(dateLayout)); err != nil {
		return nil, fmt.Errorf("list behavior: %w", err)
	}
	return incidents, nil
}

// LessonsOn returns the lessons taught on date.
func (r *ClassRecordRepository) LessonsOn(ctx context.Context, teacherID string, date time.Time) ([]models.Lesson, error) {
	const query = `SELECT id, title, COALESCE(subject, '') AS subject, COALESCE(description, '') AS description, date, COALESCE(duration, 0) AS duration
        FROM lessons WHERE teacher_id = $1 AND date = $2 ORDER BY title`
	lessons := make([]models.Lesson, 0)
	if err := r.db.SelectContext(ctx, &lessons, query, teacherID, date.Format(dateLayout)); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// RemindersActiveOn returns reminders whose window covers date.
func (r *ClassRecordRepository) RemindersActiveOn(ctx context.Context, teacherID string, date time.Time) ([]models.Reminder, error) {
	const query = `SELECT id, text, active_from, active_until
        FROM reminders WHERE teacher_id = $1 AND active_from <= $2 AND (active_until IS NULL OR active_until >= $2)
        ORDER BY active_from`
	reminders := make([]models.Reminder, 0)
	if err := r.db.SelectContext(ctx, &reminders, query, teacherID, date.Format(dateLayout)); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}
