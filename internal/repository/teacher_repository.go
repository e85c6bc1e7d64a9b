package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/daily-update-api/internal/models"
)

// TeacherRepository manages persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID fetches a teacher. sql.ErrNoRows is returned unwrapped when the
// teacher does not exist.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, name, COALESCE(display_name, '') AS display_name, email, COALESCE(school_name, '') AS school_name,
        COALESCE(email_transport, '') AS email_transport, email_settings, character_traits, updated_at
        FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// UpdateEmailSettings replaces the stored email settings of a teacher.
func (r *TeacherRepository) UpdateEmailSettings(ctx context.Context, id string, settings models.EmailSettings) error {
	const query = `UPDATE teachers SET email_settings = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, settings, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update email settings: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update email settings: teacher %s not found", id)
	}
	return nil
}
