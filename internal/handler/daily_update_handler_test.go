package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/daily-update-api/internal/middleware"
	"github.com/noah-isme/daily-update-api/internal/models"
	"github.com/noah-isme/daily-update-api/internal/service"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
)

type updatesStub struct {
	teacherID string
	studentID string
	date      time.Time
	err       error
}

func (s *updatesStub) ResolveDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	return d, nil
}

func (s *updatesStub) GenerateForStudent(ctx context.Context, teacherID, studentID string, date time.Time) (*models.DailyUpdate, error) {
	s.teacherID, s.studentID, s.date = teacherID, studentID, date
	if s.err != nil {
		return nil, s.err
	}
	return &models.DailyUpdate{StudentID: studentID, StudentName: "Ada Lovelace", Date: date.Format("2006-01-02")}, nil
}

func (s *updatesStub) GenerateAll(ctx context.Context, teacherID string, date time.Time) (*service.ClassDailyUpdates, error) {
	s.teacherID, s.date = teacherID, date
	if s.err != nil {
		return nil, s.err
	}
	return &service.ClassDailyUpdates{
		Date:    date.Format("2006-01-02"),
		Updates: []models.DailyUpdate{{StudentID: "s-1"}, {StudentID: "s-2"}},
	}, nil
}

func (s *updatesStub) Summary(ctx context.Context, teacherID string, date time.Time) (*models.ClassSummary, error) {
	s.teacherID, s.date = teacherID, date
	return &models.ClassSummary{}, s.err
}

type dispatchStub struct {
	calls    []string
	summary  *service.DispatchSummary
	job      *service.DispatchJob
	err      error
	deliver  service.DeliverRequest
	previewT models.RecipientType
}

func (d *dispatchStub) record(name string) (*service.DispatchSummary, error) {
	d.calls = append(d.calls, name)
	if d.err != nil {
		return nil, d.err
	}
	if d.summary == nil {
		return &service.DispatchSummary{Message: name}, nil
	}
	return d.summary, nil
}

func (d *dispatchStub) SendParentUpdates(ctx context.Context, teacherID string, date time.Time) (*service.DispatchSummary, error) {
	return d.record("parents")
}

func (d *dispatchStub) SendParentUpdate(ctx context.Context, teacherID, studentID string, date time.Time) (*service.DispatchSummary, error) {
	return d.record("parent:" + studentID)
}

func (d *dispatchStub) SendStudentEmails(ctx context.Context, teacherID string, date time.Time) (*service.DispatchSummary, error) {
	return d.record("students")
}

func (d *dispatchStub) SendStudentEmail(ctx context.Context, teacherID, studentID string, date time.Time) (*service.DispatchSummary, error) {
	return d.record("student:" + studentID)
}

func (d *dispatchStub) Preview(ctx context.Context, teacherID, studentID string, date time.Time, t models.RecipientType) (*service.EmailPreview, error) {
	d.previewT = t
	if d.err != nil {
		return nil, d.err
	}
	return &service.EmailPreview{RecipientType: t}, nil
}

func (d *dispatchStub) PreviewFromData(ctx context.Context, teacherID string, update *models.DailyUpdate) (*service.EmailPreview, error) {
	d.calls = append(d.calls, "preview-data:"+update.StudentName)
	return &service.EmailPreview{RecipientType: models.RecipientStudent, Update: update}, d.err
}

func (d *dispatchStub) Deliver(ctx context.Context, teacherID string, req service.DeliverRequest) (*service.DispatchSummary, error) {
	d.deliver = req
	return d.record("deliver")
}

func (d *dispatchStub) EnqueueParentUpdates(teacherID string, date time.Time) (*service.DispatchJob, error) {
	d.calls = append(d.calls, "enqueue")
	if d.err != nil {
		return nil, d.err
	}
	return &service.DispatchJob{ID: "job-1", TeacherID: teacherID, Status: service.JobQueued}, nil
}

func (d *dispatchStub) Job(teacherID, id string) (*service.DispatchJob, error) {
	if d.job == nil || d.job.ID != id || d.job.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
	}
	return d.job, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func asTeacher(c *gin.Context, id string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: id, Role: models.RoleTeacher})
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDailyUpdateHandlerGenerateAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	updates := &updatesStub{}
	h := NewDailyUpdateHandler(updates, &dispatchStub{})

	c, w := newGinContext(http.MethodGet, "/daily-updates?date=2024-03-12", nil)
	asTeacher(c, "t-1")
	middleware.WithResponseMeta()(c)

	h.Generate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t-1", updates.teacherID)
	assert.Equal(t, "2024-03-12", updates.date.Format("2006-01-02"))

	body := decodeEnvelope(t, w)
	meta := body["meta"].(map[string]interface{})
	assert.EqualValues(t, 2, meta["count"])
}

func TestDailyUpdateHandlerGenerateForStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	updates := &updatesStub{}
	h := NewDailyUpdateHandler(updates, &dispatchStub{})

	c, w := newGinContext(http.MethodGet, "/daily-updates?studentId=s-9", nil)
	asTeacher(c, "t-1")

	h.Generate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s-9", updates.studentID)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Ada Lovelace", data["studentName"])
}

func TestDailyUpdateHandlerRejectsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewDailyUpdateHandler(&updatesStub{}, &dispatchStub{})

	c, w := newGinContext(http.MethodGet, "/daily-updates/summary?date=11-03-2024", nil)
	asTeacher(c, "t-1")

	h.Summary(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDailyUpdateHandlerRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewDailyUpdateHandler(&updatesStub{}, &dispatchStub{})

	c, w := newGinContext(http.MethodGet, "/daily-updates", nil)
	h.Generate(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDailyUpdateHandlerAdminActsForTeacher(t *testing.T) {
	gin.SetMode(gin.TestMode)
	updates := &updatesStub{}
	h := NewDailyUpdateHandler(updates, &dispatchStub{})

	c, w := newGinContext(http.MethodGet, "/daily-updates/summary?teacherId=t-7", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	h.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t-7", updates.teacherID)
}

func TestDailyUpdateHandlerPreviewDefaultsToParent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dispatch := &dispatchStub{}
	h := NewDailyUpdateHandler(&updatesStub{}, dispatch)

	c, w := newGinContext(http.MethodGet, "/daily-updates/students/s-1/preview", nil)
	c.Params = gin.Params{{Key: "id", Value: "s-1"}}
	asTeacher(c, "t-1")

	h.Preview(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RecipientParent, dispatch.previewT)
}

func TestDailyUpdateHandlerPreviewFromData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dispatch := &dispatchStub{}
	h := NewDailyUpdateHandler(&updatesStub{}, dispatch)

	payload, _ := json.Marshal(models.DailyUpdate{StudentName: "Grace", Date: "2024-03-11"})
	c, w := newGinContext(http.MethodPost, "/daily-updates/students/preview", payload)
	asTeacher(c, "t-1")

	h.PreviewFromData(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"preview-data:Grace"}, dispatch.calls)
}

func TestDailyUpdateHandlerSendParentUpdates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dispatch := &dispatchStub{summary: &service.DispatchSummary{EmailsSent: 3, Message: "Daily updates sent successfully! 3 emails sent."}}
	h := NewDailyUpdateHandler(&updatesStub{}, dispatch)

	c, w := newGinContext(http.MethodPost, "/daily-updates/send", nil)
	asTeacher(c, "t-1")

	h.SendParentUpdates(c)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Daily updates sent successfully! 3 emails sent.", data["message"])
}

func TestDailyUpdateHandlerSendParentUpdatesAsync(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dispatch := &dispatchStub{}
	h := NewDailyUpdateHandler(&updatesStub{}, dispatch)

	c, w := newGinContext(http.MethodPost, "/daily-updates/send?async=true", nil)
	asTeacher(c, "t-1")

	h.SendParentUpdates(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"enqueue"}, dispatch.calls)
}

func TestDailyUpdateHandlerJobStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dispatch := &dispatchStub{job: &service.DispatchJob{ID: "job-1", TeacherID: "t-1", Status: service.JobCompleted}}
	h := NewDailyUpdateHandler(&updatesStub{}, dispatch)

	c, w := newGinContext(http.MethodGet, "/daily-updates/jobs/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	asTeacher(c, "t-1")
	h.JobStatus(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodGet, "/daily-updates/jobs/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	asTeacher(c, "t-2")
	h.JobStatus(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDailyUpdateHandlerSendOneStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dispatch := &dispatchStub{}
	h := NewDailyUpdateHandler(&updatesStub{}, dispatch)

	c, w := newGinContext(http.MethodPost, "/daily-updates/students/s-4/send", nil)
	c.Params = gin.Params{{Key: "id", Value: "s-4"}}
	asTeacher(c, "t-1")
	h.SendParentUpdate(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodPost, "/daily-updates/students/s-4/send-student", nil)
	c.Params = gin.Params{{Key: "id", Value: "s-4"}}
	asTeacher(c, "t-1")
	h.SendStudentEmail(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodPost, "/daily-updates/students/send", nil)
	asTeacher(c, "t-1")
	h.SendStudentEmails(c)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"parent:s-4", "student:s-4", "students"}, dispatch.calls)
}

func TestDailyUpdateHandlerSendErrorsMapToStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dispatch := &dispatchStub{err: appErrors.Clone(appErrors.ErrNoRecipients, "No parent emails found for student")}
	h := NewDailyUpdateHandler(&updatesStub{}, dispatch)

	c, w := newGinContext(http.MethodPost, "/daily-updates/students/s-4/send", nil)
	c.Params = gin.Params{{Key: "id", Value: "s-4"}}
	asTeacher(c, "t-1")

	h.SendParentUpdate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "No parent emails found for student", errBody["message"])
}

func TestDailyUpdateHandlerDeliver(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dispatch := &dispatchStub{}
	h := NewDailyUpdateHandler(&updatesStub{}, dispatch)

	payload, _ := json.Marshal(service.DeliverRequest{Recipients: []string{"ada@example.com"}, Subject: "Today", HTML: "<p>hi</p>"})
	c, w := newGinContext(http.MethodPost, "/daily-updates/students/deliver", payload)
	asTeacher(c, "t-1")

	h.Deliver(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"ada@example.com"}, dispatch.deliver.Recipients)

	c, w = newGinContext(http.MethodPost, "/daily-updates/students/deliver", []byte("{"))
	asTeacher(c, "t-1")
	h.Deliver(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
