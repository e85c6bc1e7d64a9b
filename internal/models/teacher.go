package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Teacher is the account that owns a class roster and sends daily updates.
type Teacher struct {
	ID              string          `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	DisplayName     string          `db:"display_name" json:"displayName,omitempty"`
	Email           string          `db:"email" json:"email"`
	SchoolName      string          `db:"school_name" json:"schoolName,omitempty"`
	EmailTransport  string          `db:"email_transport" json:"emailTransport,omitempty"`
	EmailSettings   EmailSettings   `db:"email_settings" json:"emailSettings"`
	CharacterTraits CharacterTraits `db:"character_traits" json:"characterTraits"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// EmailSettings is the stored email configuration of a teacher. Older
// accounts only carry the flat toggles; newer ones carry Unified.
type EmailSettings struct {
	DailyEmailIncludeSections map[string]bool    `json:"dailyEmailIncludeSections,omitempty"`
	StudentDailyEmail         *StudentDailyEmail `json:"studentDailyEmail,omitempty"`
	Unified                   json.RawMessage    `json:"unifiedEmailPreferences,omitempty"`
}

// StudentDailyEmail is the legacy student email toggle block.
type StudentDailyEmail struct {
	Enabled        *bool           `json:"enabled,omitempty"`
	ContentToggles map[string]bool `json:"contentToggles,omitempty"`
}

// Value marshals settings to JSON for persistence.
func (s EmailSettings) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal email settings: %w", err)
	}
	return data, nil
}

// Scan unmarshals the JSONB column.
func (s *EmailSettings) Scan(value interface{}) error {
	*s = EmailSettings{}
	data, err := jsonBytes(value)
	if err != nil || len(data) == 0 {
		return err
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal email settings: %w", err)
	}
	return nil
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", value)
	}
}
