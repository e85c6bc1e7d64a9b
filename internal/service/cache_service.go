package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
}

// CacheService keeps generated class updates between requests so previews and
// sends for the same teacher and date do not reload every record.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service. A nil or disabled service never hits.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// ClassUpdates returns the cached updates of a teacher's class for date.
// Lookup failures, including entries that no longer decode, count as a miss.
func (s *CacheService) ClassUpdates(ctx context.Context, teacherID, date string) (*ClassDailyUpdates, bool) {
	if !s.Enabled() {
		return nil, false
	}
	key := DailyUpdatesKey(teacherID, date)
	start := time.Now()
	var cached ClassDailyUpdates
	err := s.repo.Get(ctx, key, &cached)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("daily update cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return &cached, true
}

// StoreClassUpdates caches updates under their teacher and date.
func (s *CacheService) StoreClassUpdates(ctx context.Context, teacherID string, updates *ClassDailyUpdates, ttl time.Duration) {
	if !s.Enabled() || updates == nil {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	key := DailyUpdatesKey(teacherID, updates.Date)
	start := time.Now()
	err := s.repo.Set(ctx, key, updates, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("daily update cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// ForgetTeacher drops every cached date of a teacher, e.g. after their email
// settings change.
func (s *CacheService) ForgetTeacher(ctx context.Context, teacherID string) {
	if !s.Enabled() {
		return
	}
	pattern := DailyUpdatesPattern(teacherID)
	deleted, err := s.repo.DeleteByPattern(ctx, pattern)
	if err != nil {
		s.logger.Warn("daily update cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Debug("daily update cache invalidated", zap.String("teacher_id", teacherID), zap.Int("keys", deleted))
	}
}

// DailyUpdatesKey is the cache key of a teacher's generated updates for a date.
func DailyUpdatesKey(teacherID, date string) string {
	return fmt.Sprintf("daily-updates:%s:%s", teacherID, date)
}

// DailyUpdatesPattern matches every cached date of a teacher.
func DailyUpdatesPattern(teacherID string) string {
	return fmt.Sprintf("daily-updates:%s:*", teacherID)
}
