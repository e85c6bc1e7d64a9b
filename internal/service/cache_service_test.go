package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceDisabled(t *testing.T) {
	var nilCache *CacheService
	_, hit := nilCache.ClassUpdates(context.Background(), "t1", "2024-03-11")
	assert.False(t, hit)

	repo := &memoryCacheRepo{items: map[string][]byte{}}
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	svc.StoreClassUpdates(context.Background(), "t1", &ClassDailyUpdates{Date: "2024-03-11"}, 0)
	assert.Empty(t, repo.items)
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := &memoryCacheRepo{items: map[string][]byte{}}
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)

	svc.StoreClassUpdates(context.Background(), "t1", &ClassDailyUpdates{Date: "2024-03-11"}, 0)
	cached, hit := svc.ClassUpdates(context.Background(), "t1", "2024-03-11")
	require.True(t, hit)
	assert.Equal(t, "2024-03-11", cached.Date)

	_, hit = svc.ClassUpdates(context.Background(), "t1", "2024-03-12")
	assert.False(t, hit)

	svc.ForgetTeacher(context.Background(), "t1")
	_, hit = svc.ClassUpdates(context.Background(), "t1", "2024-03-11")
	assert.False(t, hit)
}

func TestCacheServiceUndecodableEntryIsMiss(t *testing.T) {
	repo := &memoryCacheRepo{items: map[string][]byte{DailyUpdatesKey("t1", "2024-03-11"): []byte(`{"updates":"nope"}`)}}
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	_, hit := svc.ClassUpdates(context.Background(), "t1", "2024-03-11")
	assert.False(t, hit)
}
