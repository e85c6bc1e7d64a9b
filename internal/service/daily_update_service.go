package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/daily-update-api/internal/models"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
)

type studentReader interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Student, error)
}

type classRecordReader interface {
	AttendanceOn(ctx context.Context, teacherID string, date time.Time) ([]models.AttendanceRecord, error)
	Assignments(ctx context.Context, teacherID string) ([]models.Assignment, error)
	Grades(ctx context.Context, teacherID string) ([]models.Grade, error)
	BehaviorOn(ctx context.Context, teacherID string, date time.Time) ([]models.BehaviorIncident, error)
	LessonsOn(ctx context.Context, teacherID string, date time.Time) ([]models.Lesson, error)
	RemindersActiveOn(ctx context.Context, teacherID string, date time.Time) ([]models.Reminder, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ClassDailyUpdates is every generated update of a class plus its summary.
type ClassDailyUpdates struct {
	Date    string               `json:"date"`
	Updates []models.DailyUpdate `json:"updates"`
	Summary models.ClassSummary  `json:"summary"`
}

// DailyUpdateServiceConfig carries the settings DailyUpdateService needs.
type DailyUpdateServiceConfig struct {
	Location          *time.Location
	DefaultSchoolName string
	CacheTTL          time.Duration
}

// DailyUpdateService loads a teacher's class records and turns them into
// daily updates.
type DailyUpdateService struct {
	students studentReader
	records  classRecordReader
	teachers teacherReader
	cache    *CacheService
	metrics  *MetricsService
	cfg      DailyUpdateServiceConfig
	logger   *zap.Logger
}

// NewDailyUpdateService constructs a DailyUpdateService. cache and metrics may be nil.
func NewDailyUpdateService(students studentReader, records classRecordReader, teachers teacherReader, cache *CacheService, metrics *MetricsService, cfg DailyUpdateServiceConfig, logger *zap.Logger) *DailyUpdateService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyUpdateService{
		students: students,
		records:  records,
		teachers: teachers,
		cache:    cache,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
	}
}

// Location returns the school time zone dates are interpreted in.
func (s *DailyUpdateService) Location() *time.Location {
	return s.cfg.Location
}

// ResolveDate parses raw, defaulting to today in the school time zone.
func (s *DailyUpdateService) ResolveDate(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now().In(s.cfg.Location)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location), nil
	}
	date, err := ParseDate(raw, s.cfg.Location)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	return date, nil
}

// Teacher loads the teacher or returns a not-found error.
func (s *DailyUpdateService) Teacher(ctx context.Context, teacherID string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// LoadSources reads every record the generator needs for date.
func (s *DailyUpdateService) LoadSources(ctx context.Context, teacherID string, date time.Time) (*models.DataSources, error) {
	teacher, err := s.Teacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	sources := &models.DataSources{Teacher: teacher, SchoolName: teacher.SchoolName}
	load := func(label string, fn func() error) error {
		if err := fn(); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load %s", label))
		}
		return nil
	}
	steps := []struct {
		label string
		fn    func() error
	}{
		{"students", func() (err error) { sources.Students, err = s.students.ListByTeacher(ctx, teacherID); return }},
		{"attendance", func() (err error) { sources.Attendance, err = s.records.AttendanceOn(ctx, teacherID, date); return }},
		{"assignments", func() (err error) { sources.Assignments, err = s.records.Assignments(ctx, teacherID); return }},
		{"grades", func() (err error) { sources.Grades, err = s.records.Grades(ctx, teacherID); return }},
		{"behavior", func() (err error) { sources.Behavior, err = s.records.BehaviorOn(ctx, teacherID, date); return }},
		{"lessons", func() (err error) { sources.Lessons, err = s.records.LessonsOn(ctx, teacherID, date); return }},
		{"reminders", func() (err error) { sources.Reminders, err = s.records.RemindersActiveOn(ctx, teacherID, date); return }},
	}
	for _, step := range steps {
		if err := load(step.label, step.fn); err != nil {
			return nil, err
		}
	}

	result := ValidateDataSources(sources)
	for _, warning := range result.Warnings {
		s.logger.Warn("daily update data source", zap.String("teacher_id", teacherID), zap.String("warning", warning))
	}
	if !result.IsValid {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "daily update data is incomplete", result.Errors)
	}
	return sources, nil
}

// Generator loads sources and returns a generator over them.
func (s *DailyUpdateService) Generator(ctx context.Context, teacherID string, date time.Time) (*DailyUpdateGenerator, *models.DataSources, error) {
	sources, err := s.LoadSources(ctx, teacherID, date)
	if err != nil {
		return nil, nil, err
	}
	gen := NewDailyUpdateGenerator(*sources, GeneratorOptions{
		Location:          s.cfg.Location,
		DefaultSchoolName: s.cfg.DefaultSchoolName,
		Logger:            s.logger,
	})
	return gen, sources, nil
}

// GenerateForStudent builds one student's update.
func (s *DailyUpdateService) GenerateForStudent(ctx context.Context, teacherID, studentID string, date time.Time) (*models.DailyUpdate, error) {
	gen, _, err := s.Generator(ctx, teacherID, date)
	if err != nil {
		return nil, err
	}
	update, err := gen.Generate(studentID, date)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDailyUpdates("generated", 1)
	return update, nil
}

// GenerateAll builds every student's update and the class summary.
// Results are cached per teacher and date when caching is enabled.
func (s *DailyUpdateService) GenerateAll(ctx context.Context, teacherID string, date time.Time) (*ClassDailyUpdates, error) {
	if cached, hit := s.cache.ClassUpdates(ctx, teacherID, date.Format(DateLayout)); hit {
		s.metrics.RecordDailyUpdates("cache", len(cached.Updates))
		return cached, nil
	}

	gen, _, err := s.Generator(ctx, teacherID, date)
	if err != nil {
		return nil, err
	}
	result := &ClassDailyUpdates{
		Date:    date.Format(DateLayout),
		Updates: gen.GenerateAll(date),
		Summary: gen.ClassSummary(date),
	}
	s.metrics.RecordDailyUpdates("generated", len(result.Updates))
	s.cache.StoreClassUpdates(ctx, teacherID, result, s.cfg.CacheTTL)
	return result, nil
}

// Summary returns the class summary for date.
func (s *DailyUpdateService) Summary(ctx context.Context, teacherID string, date time.Time) (*models.ClassSummary, error) {
	all, err := s.GenerateAll(ctx, teacherID, date)
	if err != nil {
		return nil, err
	}
	summary := all.Summary
	return &summary, nil
}

// Invalidate drops every cached date of a teacher.
func (s *DailyUpdateService) Invalidate(ctx context.Context, teacherID string) {
	s.cache.ForgetTeacher(ctx, teacherID)
}
