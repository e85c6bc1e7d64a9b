package service

import (
	"fmt"
	"mime"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/daily-update-api/internal/models"
	"github.com/noah-isme/daily-update-api/pkg/export"
	"github.com/noah-isme/daily-update-api/pkg/mailer"
)

const (
	studentReportsDir = "student_reports"
	classMaterialsDir = "class_materials"
	pdfContentType    = "application/pdf"
)

type fileStore interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	Exists(name string) bool
	List(dir string) ([]string, error)
	Delete(name string) error
}

// AttachmentService collects the files attached to a parent daily update:
// a generated progress report, a stored per-student report and the class
// materials of the day.
type AttachmentService struct {
	store          fileStore
	generateReport bool
	logger         *zap.Logger
	now            func() time.Time
}

// NewAttachmentService constructs an AttachmentService. store may be nil,
// in which case only generated reports are attached.
func NewAttachmentService(store fileStore, generateReport bool, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{store: store, generateReport: generateReport, logger: logger, now: time.Now}
}

// StudentReportPath is where an uploaded report for studentID on date lives.
func StudentReportPath(studentID, date string) string {
	return path.Join(studentReportsDir, studentID, date+"_report.pdf")
}

// ClassMaterialsDir is the folder holding materials shared on date.
func ClassMaterialsDir(date string) string {
	return path.Join(classMaterialsDir, date)
}

// ForDailyUpdate returns every attachment available for update. Missing or
// unreadable files are logged and skipped.
func (s *AttachmentService) ForDailyUpdate(update *models.DailyUpdate) []mailer.Attachment {
	if s == nil || update == nil {
		return nil
	}
	attachments := make([]mailer.Attachment, 0)

	if s.generateReport {
		if data, err := export.RenderDailyReport(s.dailyReport(update)); err != nil {
			s.logger.Warn("render daily report failed", zap.String("student_id", update.StudentID), zap.Error(err))
		} else {
			attachments = append(attachments, mailer.Attachment{
				Filename:    fmt.Sprintf("Daily_Progress_Report_%s.pdf", update.Date),
				ContentType: pdfContentType,
				Content:     data,
			})
		}
	}

	if s.store == nil {
		return attachments
	}

	if report := StudentReportPath(update.StudentID, update.Date); s.store.Exists(report) {
		if data, err := s.store.Read(report); err != nil {
			s.logger.Warn("read student report failed", zap.String("path", report), zap.Error(err))
		} else {
			attachments = append(attachments, mailer.Attachment{
				Filename:    fmt.Sprintf("Daily_Report_%s.pdf", update.Date),
				ContentType: pdfContentType,
				Content:     data,
			})
		}
	}

	materials, err := s.store.List(ClassMaterialsDir(update.Date))
	if err != nil {
		s.logger.Warn("list class materials failed", zap.String("date", update.Date), zap.Error(err))
		return attachments
	}
	for _, name := range materials {
		data, err := s.store.Read(name)
		if err != nil {
			s.logger.Warn("read class material failed", zap.String("path", name), zap.Error(err))
			continue
		}
		attachments = append(attachments, mailer.Attachment{
			Filename:    path.Base(name),
			ContentType: contentTypeFor(name),
			Content:     data,
		})
	}
	return attachments
}

// SaveStudentReport stores an uploaded report for a student and date.
func (s *AttachmentService) SaveStudentReport(studentID, date string, data []byte) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("attachment storage not configured")
	}
	return s.store.Save(StudentReportPath(studentID, date), data)
}

// DeleteStudentReport removes a stored report.
func (s *AttachmentService) DeleteStudentReport(studentID, date string) error {
	if s.store == nil {
		return nil
	}
	return s.store.Delete(StudentReportPath(studentID, date))
}

func (s *AttachmentService) dailyReport(update *models.DailyUpdate) export.DailyReport {
	report := export.DailyReport{
		SchoolName:       update.SchoolName,
		TeacherName:      update.TeacherName,
		StudentName:      update.StudentName,
		Date:             update.Date,
		AttendanceStatus: update.Attendance.Status,
		AttendanceNotes:  update.Attendance.Notes,
		GeneratedAt:      s.now(),
	}
	for _, g := range update.SubjectGrades {
		report.SubjectAverages = append(report.SubjectAverages, export.SubjectAverage{Subject: g.Subject, Average: g.Average})
	}
	for _, g := range update.Grades {
		report.Grades = append(report.Grades, export.ReportGrade{AssignmentName: g.AssignmentName, Score: g.Score, Points: g.Points})
	}
	for _, b := range update.Behavior {
		report.Behavior = append(report.Behavior, export.ReportBehavior{Type: b.Type, Description: b.Description, ActionTaken: b.ActionTaken})
	}
	for _, a := range update.Assignments {
		report.Assignments = append(report.Assignments, reportAssignment(a.Assignment))
	}
	for _, a := range update.UpcomingAssignments {
		report.Upcoming = append(report.Upcoming, reportAssignment(a))
	}
	return report
}

func reportAssignment(a models.Assignment) export.ReportAssignment {
	due := ""
	if a.DueDate != nil {
		due = a.DueDate.Format(DateLayout)
	}
	return export.ReportAssignment{Name: a.Name, Subject: a.Subject, DueDate: due}
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return pdfContentType
}
