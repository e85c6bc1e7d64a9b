package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/daily-update-api/internal/models"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
)

func newTestPreferenceService(data *classDataStub) *PreferenceService {
	return NewPreferenceService(newTestDailyUpdateService(data, nil), data, nil)
}

func TestPreferenceServiceGetDefaults(t *testing.T) {
	svc := newTestPreferenceService(newClassDataStub(t))

	prefs, err := svc.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, prefs.Parent.Enabled)
	assert.False(t, prefs.Student.Enabled)
}

func TestPreferenceServiceUpdateOverlaysCurrent(t *testing.T) {
	data := newClassDataStub(t)
	data.saved = &models.EmailSettings{DailyEmailIncludeSections: map[string]bool{"behavior": false}}
	svc := newTestPreferenceService(data)

	raw := json.RawMessage(`{"student":{"enabled":true,"sections":{"grades":{"enabled":false},"mystery":true}}}`)
	prefs, result, err := svc.Update(context.Background(), "t1", raw)
	require.NoError(t, err)
	assert.Contains(t, result.Warnings, "Unknown section key: student.sections.mystery - will be ignored")

	assert.True(t, prefs.Student.Enabled)
	assert.False(t, prefs.Student.Sections[models.SectionGrades].Enabled)
	assert.False(t, prefs.Parent.Sections[models.SectionBehavior].Enabled)

	require.NotNil(t, data.saved)
	assert.Equal(t, map[string]bool{"behavior": false}, data.saved.DailyEmailIncludeSections)
	var stored models.EmailPreferences
	require.NoError(t, json.Unmarshal(data.saved.Unified, &stored))
	assert.True(t, stored.Student.Enabled)

	reloaded, err := svc.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, reloaded.Student.Enabled)
	assert.False(t, reloaded.Student.Sections[models.SectionGrades].Enabled)
}

func TestPreferenceServiceUpdateRejectsInvalid(t *testing.T) {
	data := newClassDataStub(t)
	svc := newTestPreferenceService(data)

	_, result, err := svc.Update(context.Background(), "t1", json.RawMessage(`{"parent":{"enabled":"yes"}}`))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Contains(t, result.Errors, "parent.enabled must be a boolean")
	assert.Nil(t, data.saved)

	_, _, err = svc.Update(context.Background(), "t1", json.RawMessage(`[1,2]`))
	require.Error(t, err)
}

func TestPreferenceServiceValidateStrict(t *testing.T) {
	svc := newTestPreferenceService(newClassDataStub(t))

	result := svc.Validate(json.RawMessage(`{"parent":{"enabled":true,"sections":{}}}`), PreferenceValidationOptions{Strict: true})
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "Missing student preferences")

	result = svc.Validate(json.RawMessage(`not json`), PreferenceValidationOptions{})
	assert.Equal(t, []string{"Email preferences must be an object"}, result.Errors)
}

func TestPreferenceServiceAvailability(t *testing.T) {
	svc := newTestPreferenceService(newClassDataStub(t))

	availability, err := svc.Availability(context.Background(), "t1", "s1", day(t, "2024-03-11"))
	require.NoError(t, err)
	assert.True(t, availability.Parent.Enabled)
	assert.True(t, availability.Parent.HasContent)
	assert.False(t, availability.Student.Enabled)
}
