package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/daily-update-api/internal/models"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
	"github.com/noah-isme/daily-update-api/pkg/export"
	"github.com/noah-isme/daily-update-api/pkg/storage"
)

const historyExportDir = "exports/email_history"

type emailRecordReader interface {
	List(ctx context.Context, filter models.DailyUpdateEmailFilter) ([]models.DailyUpdateEmail, int, error)
	ListAll(ctx context.Context, filter models.DailyUpdateEmailFilter) ([]models.DailyUpdateEmail, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type exportStore interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (io.ReadSeekCloser, os.FileInfo, error)
	CleanupOlderThan(dir string, ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(resourceID, path string) (string, time.Time, error)
	Parse(token string) (storage.SignedToken, error)
}

// HistoryConfig tunes EmailHistoryService.
type HistoryConfig struct {
	APIPrefix string
	// ExportTTL is how long rendered exports are kept on disk.
	ExportTTL time.Duration
	// RecordRetention purges send records older than this; zero keeps them forever.
	RecordRetention time.Duration
	Location        *time.Location
}

// HistoryExport describes a rendered export and its download link.
type HistoryExport struct {
	Token     string        `json:"token"`
	URL       string        `json:"url"`
	Format    export.Format `json:"format"`
	Rows      int           `json:"rows"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// HistoryDownload is an opened export file.
type HistoryDownload struct {
	File        io.ReadSeekCloser
	Filename    string
	ContentType string
	ModTime     time.Time
}

// EmailHistoryService lists and exports the daily update send history.
type EmailHistoryService struct {
	records emailRecordReader
	store   exportStore
	signer  downloadSigner
	cfg     HistoryConfig
	logger  *zap.Logger
}

// NewEmailHistoryService constructs an EmailHistoryService.
func NewEmailHistoryService(records emailRecordReader, store exportStore, signer downloadSigner, cfg HistoryConfig, logger *zap.Logger) *EmailHistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExportTTL <= 0 {
		cfg.ExportTTL = 72 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &EmailHistoryService{records: records, store: store, signer: signer, cfg: cfg, logger: logger}
}

// List returns one page of history for the filter's teacher.
func (s *EmailHistoryService) List(ctx context.Context, filter models.DailyUpdateEmailFilter) ([]models.DailyUpdateEmail, *models.Pagination, error) {
	if err := validateHistoryFilter(filter); err != nil {
		return nil, nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	records, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list email history")
	}
	return records, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Export renders every matching record and returns a signed download link.
func (s *EmailHistoryService) Export(ctx context.Context, filter models.DailyUpdateEmailFilter, format export.Format) (*HistoryExport, error) {
	if err := validateHistoryFilter(filter); err != nil {
		return nil, err
	}
	records, err := s.records.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load email history")
	}

	payload, err := export.Render(format, s.dataset(records))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render email history")
	}

	id := uuid.NewString()
	name := path.Join(historyExportDir, filter.TeacherID, fmt.Sprintf("email_history_%s_%s.%s", time.Now().UTC().Format("20060102_150405"), id[:8], format))
	relPath, err := s.store.Save(name, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store email history export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("email history exported", zap.String("teacher_id", filter.TeacherID), zap.Int("rows", len(records)), zap.String("format", string(format)))
	return &HistoryExport{
		Token:     token,
		URL:       fmt.Sprintf("%s/emails/history/download/%s", prefix, token),
		Format:    format,
		Rows:      len(records),
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a download token and opens the export it points at.
func (s *EmailHistoryService) Open(token string) (*HistoryDownload, error) {
	parsed, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, info, err := s.store.Open(parsed.Path)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	format := export.Format(strings.TrimPrefix(path.Ext(parsed.Path), "."))
	return &HistoryDownload{
		File:        file,
		Filename:    path.Base(parsed.Path),
		ContentType: format.ContentType(),
		ModTime:     info.ModTime(),
	}, nil
}

// Cleanup removes expired export files and, when retention is configured,
// old send records.
func (s *EmailHistoryService) Cleanup(ctx context.Context) error {
	removed, err := s.store.CleanupOlderThan(historyExportDir, s.cfg.ExportTTL)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		s.logger.Info("expired email history exports removed", zap.Int("files", len(removed)))
	}
	if s.cfg.RecordRetention <= 0 {
		return nil
	}
	purged, err := s.records.DeleteBefore(ctx, time.Now().Add(-s.cfg.RecordRetention))
	if err != nil {
		return err
	}
	if purged > 0 {
		s.logger.Info("old email history purged", zap.Int64("records", purged))
	}
	return nil
}

func (s *EmailHistoryService) dataset(records []models.DailyUpdateEmail) export.Dataset {
	data := export.Dataset{
		Title:   "Daily Update Email History",
		Headers: []string{"Sent At", "Date", "Student", "Recipient Type", "Recipients", "Subject", "Status", "Transport", "Error"},
		Rows:    make([][]string, 0, len(records)),
	}
	for _, r := range records {
		data.Rows = append(data.Rows, []string{
			r.SentAt.In(s.cfg.Location).Format("2006-01-02 15:04"),
			r.Date,
			r.StudentName,
			string(r.RecipientType),
			strings.Join(r.Recipients, "; "),
			r.Subject,
			r.SentStatus,
			r.Method,
			r.Error,
		})
	}
	return data
}

func validateHistoryFilter(filter models.DailyUpdateEmailFilter) error {
	if filter.RecipientType != "" && !filter.RecipientType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "recipientType must be parent or student")
	}
	for _, raw := range []string{filter.DateFrom, filter.DateTo} {
		if raw == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, raw); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "dates must be YYYY-MM-DD")
		}
	}
	switch filter.Status {
	case "", models.EmailStatusSent, models.EmailStatusFailed, models.EmailStatusSkipped:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "status must be sent, failed or skipped")
	}
	return nil
}
