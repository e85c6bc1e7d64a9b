package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march11 = time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)

func TestClassRecordRepositoryAttendanceOn(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRecordRepository(db)

	mock.ExpectQuery(`FROM attendance a JOIN students s ON s.id = a.student_id\s+WHERE s.teacher_id = \$1 AND a.date = \$2`).
		WithArgs("t1", "2024-03-11").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "date", "status", "notes"}).
			AddRow("a1", "s1", march11, "present", ""))

	records, err := repo.AttendanceOn(context.Background(), "t1", march11)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "present", records[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRecordRepositoryAssignments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRecordRepository(db)

	mock.ExpectQuery(`FROM assignments WHERE teacher_id = \$1`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "subject", "description", "due_date", "points", "created_at"}).
			AddRow("as1", "Fractions", "Math", "", march11, 20.0, nil).
			AddRow("as2", "Reading log", "ELA", "", nil, nil, nil))

	assignments, err := repo.Assignments(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	require.NotNil(t, assignments[0].Points)
	assert.Equal(t, 20.0, *assignments[0].Points)
	assert.Nil(t, assignments[1].DueDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRecordRepositoryGrades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRecordRepository(db)

	entered := march11.Add(10 * time.Hour)
	mock.ExpectQuery(`FROM grades g JOIN students s ON s.id = g.student_id\s+WHERE s.teacher_id = \$1`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "assignment_id", "score", "points", "date_entered"}).
			AddRow("g1", "s1", "as1", 18.0, 20.0, entered))

	grades, err := repo.Grades(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, grades, 1)
	pct, ok := grades[0].Percentage()
	assert.True(t, ok)
	assert.Equal(t, 90.0, pct)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRecordRepositoryBehaviorAndLessons(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRecordRepository(db)

	mock.ExpectQuery(`FROM behavior b JOIN students s`).
		WithArgs("t1", "2024-03-11").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "date", "type", "description", "action_taken"}).
			AddRow("b1", "s1", march11, "Positive", "Helped a classmate", ""))
	mock.ExpectQuery(`FROM lessons WHERE teacher_id = \$1 AND date = \$2`).
		WithArgs("t1", "2024-03-11").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "subject", "description", "date", "duration"}).
			AddRow("l1", "Photosynthesis", "Science", "", march11, 45))

	incidents, err := repo.BehaviorOn(context.Background(), "t1", march11)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.True(t, incidents[0].IsPositive())

	lessons, err := repo.LessonsOn(context.Background(), "t1", march11)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, 45, lessons[0].Duration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRecordRepositoryRemindersActiveOn(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRecordRepository(db)

	mock.ExpectQuery(`FROM reminders WHERE teacher_id = \$1 AND active_from <= \$2 AND \(active_until IS NULL OR active_until >= \$2\)`).
		WithArgs("t1", "2024-03-11").
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "active_from", "active_until"}).
			AddRow("r1", "Picture day Friday", march11.AddDate(0, 0, -2), nil))

	reminders, err := repo.RemindersActiveOn(context.Background(), "t1", march11)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Nil(t, reminders[0].ActiveUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}
