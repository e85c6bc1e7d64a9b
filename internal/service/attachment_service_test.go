package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/daily-update-api/internal/models"
	"github.com/noah-isme/daily-update-api/pkg/storage"
)

func TestAttachmentServiceNilSafe(t *testing.T) {
	var svc *AttachmentService
	assert.Nil(t, svc.ForDailyUpdate(&models.DailyUpdate{StudentID: "s1"}))
}

func TestAttachmentServiceCollectsFiles(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewAttachmentService(store, true, nil)

	_, err = svc.SaveStudentReport("s1", "2024-03-11", []byte("%PDF-stored"))
	require.NoError(t, err)
	_, err = store.Save(ClassMaterialsDir("2024-03-11")+"/worksheet.txt", []byte("fractions"))
	require.NoError(t, err)
	_, err = store.Save(ClassMaterialsDir("2024-03-10")+"/old.txt", []byte("yesterday"))
	require.NoError(t, err)

	update := &models.DailyUpdate{
		StudentID:   "s1",
		StudentName: "Ada Lovelace",
		Date:        "2024-03-11",
		SchoolName:  "Walkerville Elementary",
		Attendance:  models.AttendanceSummary{Status: models.AttendancePresent},
	}
	attachments := svc.ForDailyUpdate(update)
	require.Len(t, attachments, 3)

	assert.Equal(t, "Daily_Progress_Report_2024-03-11.pdf", attachments[0].Filename)
	assert.Equal(t, "application/pdf", attachments[0].ContentType)
	assert.Equal(t, "%PDF", string(attachments[0].Content[:4]))

	assert.Equal(t, "Daily_Report_2024-03-11.pdf", attachments[1].Filename)
	assert.Equal(t, []byte("%PDF-stored"), attachments[1].Content)

	assert.Equal(t, "worksheet.txt", attachments[2].Filename)
	assert.Contains(t, attachments[2].ContentType, "text/plain")
}

func TestAttachmentServiceWithoutReport(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewAttachmentService(store, false, nil)

	assert.Empty(t, svc.ForDailyUpdate(&models.DailyUpdate{StudentID: "s1", Date: "2024-03-11"}))

	_, err = svc.SaveStudentReport("s1", "2024-03-11", []byte("%PDF"))
	require.NoError(t, err)
	assert.True(t, store.Exists(StudentReportPath("s1", "2024-03-11")))
	require.NoError(t, svc.DeleteStudentReport("s1", "2024-03-11"))
	assert.False(t, store.Exists(StudentReportPath("s1", "2024-03-11")))
}
