package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var studentRowColumns = []string{"id", "teacher_id", "first_name", "last_name", "gender", "grade_level", "status", "student_email", "email",
	"parent_email1", "parent_email2", "parent_name1", "parent_name2", "parent_first_name1", "parent_first_name2", "created_at", "updated_at"}

func TestStudentRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s1", "t1", "Ada", "Lovelace", "female", "5", "active", "ada@school.test", "", "mum@example.com", "", "Mrs Lovelace", "", "Anne", "", now, now).
		AddRow("s2", "t1", "Alan", "Turing", "", "5", "active", "", "", "", "", "", "", "", "", now, now)
	mock.ExpectQuery(`FROM students WHERE teacher_id = \$1 ORDER BY last_name, first_name`).
		WithArgs("t1").
		WillReturnRows(rows)

	students, err := repo.ListByTeacher(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Ada", students[0].FirstName)
	assert.Equal(t, "mum@example.com", students[0].ParentEmail1)
	assert.False(t, students[1].HasParentEmail())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListByTeacherError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`FROM students`).WithArgs("t1").WillReturnError(sql.ErrConnDone)

	_, err := repo.ListByTeacher(context.Background(), "t1")
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "list students")
}

func TestStudentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`FROM students WHERE teacher_id = \$1 AND id = \$2`).
		WithArgs("t1", "missing").
		WillReturnRows(sqlmock.NewRows(studentRowColumns))

	_, err := repo.FindByID(context.Background(), "t1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
