package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/daily-update-api/internal/models"
)

const studentColumns = `id, teacher_id, first_name, last_name, COALESCE(gender, '') AS gender, COALESCE(grade_level, '') AS grade_level,
        status, COALESCE(student_email, '') AS student_email, COALESCE(email, '') AS email,
        COALESCE(parent_email1, '') AS parent_email1, COALESCE(parent_email2, '') AS parent_email2,
        COALESCE(parent_name1, '') AS parent_name1, COALESCE(parent_name2, '') AS parent_name2,
        COALESCE(parent_first_name1, '') AS parent_first_name1, COALESCE(parent_first_name2, '') AS parent_first_name2,
        created_at, updated_at`

// StudentRepository reads a teacher's class roster.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByTeacher returns every student on the teacher's roster ordered by name.
func (r *StudentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE teacher_id = $1 ORDER BY last_name, first_name`
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, teacherID); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches one student of the teacher. sql.ErrNoRows is returned
// unwrapped when the student does not exist.
func (r *StudentRepository) FindByID(ctx context.Context, teacherID, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE teacher_id = $1 AND id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, teacherID, id); err != nil {
		return nil, err
	}
	return &student, nil
}
