package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/daily-update-api/internal/models"
)

var dailyUpdateEmailRowColumns = []string{"id", "teacher_id", "student_id", "student_name", "subject", "recipients", "recipient_type",
	"update_date", "sent_status", "message_id", "method", "error", "sent_at"}

func TestDailyUpdateEmailRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDailyUpdateEmailRepository(db)

	mock.ExpectExec(`INSERT INTO daily_update_emails`).
		WithArgs(sqlmock.AnyArg(), "t1", "s1", "Ada Lovelace", "Daily Update", sqlmock.AnyArg(), "parent",
			"2024-03-11", models.EmailStatusSent, "msg-1", "smtp", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.DailyUpdateEmail{
		TeacherID:     "t1",
		StudentID:     "s1",
		StudentName:   "Ada Lovelace",
		Subject:       "Daily Update",
		Recipients:    []string{"mum@example.com"},
		RecipientType: models.RecipientParent,
		Date:          "2024-03-11",
		SentStatus:    models.EmailStatusSent,
		MessageID:     "msg-1",
		Method:        "smtp",
	}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.SentAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyUpdateEmailRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDailyUpdateEmailRepository(db)

	rows := sqlmock.NewRows(dailyUpdateEmailRowColumns).
		AddRow("e1", "t1", "s1", "Ada Lovelace", "Daily Update", "{mum@example.com,dad@example.com}", "parent",
			"2024-03-11", "sent", "msg-1", "smtp", "", time.Now())
	mock.ExpectQuery(`FROM daily_update_emails WHERE teacher_id = \$1 AND recipient_type = \$2 AND update_date >= \$3 ORDER BY sent_at DESC LIMIT 10 OFFSET 10`).
		WithArgs("t1", "parent", "2024-03-01").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM daily_update_emails WHERE teacher_id = \$1 AND recipient_type = \$2 AND update_date >= \$3`).
		WithArgs("t1", "parent", "2024-03-01").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	records, total, err := repo.List(context.Background(), models.DailyUpdateEmailFilter{
		TeacherID:     "t1",
		RecipientType: models.RecipientParent,
		DateFrom:      "2024-03-01",
		Page:          2,
		PageSize:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"mum@example.com", "dad@example.com"}, []string(records[0].Recipients))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyUpdateEmailRepositoryListAllAndPurge(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDailyUpdateEmailRepository(db)

	mock.ExpectQuery(`FROM daily_update_emails WHERE teacher_id = \$1 AND sent_status = \$2 ORDER BY sent_at DESC$`).
		WithArgs("t1", "failed").
		WillReturnRows(sqlmock.NewRows(dailyUpdateEmailRowColumns))
	mock.ExpectExec(`DELETE FROM daily_update_emails WHERE sent_at < \$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))

	records, err := repo.ListAll(context.Background(), models.DailyUpdateEmailFilter{TeacherID: "t1", Status: "failed"})
	require.NoError(t, err)
	assert.Empty(t, records)

	purged, err := repo.DeleteBefore(context.Background(), time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.EqualValues(t, 4, purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
