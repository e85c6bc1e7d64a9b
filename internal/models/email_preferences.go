package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RecipientType distinguishes the two audiences of a daily update.
type RecipientType string

const (
	RecipientParent  RecipientType = "parent"
	RecipientStudent RecipientType = "student"
)

// RecipientTypes lists every recipient type.
var RecipientTypes = []RecipientType{RecipientParent, RecipientStudent}

// Valid reports whether r is parent or student.
func (r RecipientType) Valid() bool {
	return r == RecipientParent || r == RecipientStudent
}

// EmailSection names an independently toggleable block of a daily update.
type EmailSection string

const (
	SectionAttendance    EmailSection = "attendance"
	SectionGrades        EmailSection = "grades"
	SectionSubjectGrades EmailSection = "subjectGrades"
	SectionBehavior      EmailSection = "behavior"
	SectionAssignments   EmailSection = "assignments"
	SectionUpcoming      EmailSection = "upcoming"
	SectionLessons       EmailSection = "lessons"
	SectionReminders     EmailSection = "reminders"
)

// EmailSections is the fixed, ordered set of sections.
var EmailSections = []EmailSection{
	SectionAttendance,
	SectionGrades,
	SectionSubjectGrades,
	SectionBehavior,
	SectionAssignments,
	SectionUpcoming,
	SectionLessons,
	SectionReminders,
}

// Valid reports whether s is one of EmailSections.
func (s EmailSection) Valid() bool {
	for _, known := range EmailSections {
		if s == known {
			return true
		}
	}
	return false
}

// SectionPreference controls one section for one recipient type.
type SectionPreference struct {
	Enabled   bool `json:"enabled"`
	ShowEmpty bool `json:"showEmpty"`
}

// UnmarshalJSON accepts the object form, a bare boolean (the flat legacy
// toggle, shown even when empty) or null (disabled).
func (p *SectionPreference) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch string(trimmed) {
	case "null":
		*p = SectionPreference{}
		return nil
	case "true":
		*p = SectionPreference{Enabled: true, ShowEmpty: true}
		return nil
	case "false":
		*p = SectionPreference{}
		return nil
	}
	var raw struct {
		Enabled   *bool `json:"enabled"`
		ShowEmpty *bool `json:"showEmpty"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("section preference: %w", err)
	}
	*p = SectionPreference{}
	if raw.Enabled != nil {
		p.Enabled = *raw.Enabled
	}
	if raw.ShowEmpty != nil {
		p.ShowEmpty = *raw.ShowEmpty
	}
	return nil
}

// RecipientPreferences holds the toggles for one recipient type.
type RecipientPreferences struct {
	Enabled  bool                               `json:"enabled"`
	Sections map[EmailSection]SectionPreference `json:"sections"`
}

// Clone returns a deep copy.
func (r *RecipientPreferences) Clone() *RecipientPreferences {
	if r == nil {
		return nil
	}
	out := &RecipientPreferences{Enabled: r.Enabled, Sections: make(map[EmailSection]SectionPreference, len(r.Sections))}
	for k, v := range r.Sections {
		out.Sections[k] = v
	}
	return out
}

// EmailPreferences is the unified per-teacher preference document.
type EmailPreferences struct {
	Parent  *RecipientPreferences `json:"parent,omitempty"`
	Student *RecipientPreferences `json:"student,omitempty"`
}

// For returns the preferences of recipient type t, or nil.
func (p *EmailPreferences) For(t RecipientType) *RecipientPreferences {
	if p == nil {
		return nil
	}
	switch t {
	case RecipientParent:
		return p.Parent
	case RecipientStudent:
		return p.Student
	}
	return nil
}

// ValidationResult is the outcome of a preferences or data check.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}}
}

// AddError records an error and marks the result invalid.
func (v *ValidationResult) AddError(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
	v.IsValid = false
}

// AddWarning records a non-fatal finding.
func (v *ValidationResult) AddWarning(format string, args ...interface{}) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
