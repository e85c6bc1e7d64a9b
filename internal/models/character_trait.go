package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CharacterTrait is a monthly character-education theme configured by a teacher.
type CharacterTrait struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Months     []int    `json:"months"`
	Quotes     []string `json:"quotes,omitempty"`
	Challenges []string `json:"challenges,omitempty"`
}

// CharacterTraits is stored as a JSONB array on the teacher row.
type CharacterTraits []CharacterTrait

// ForMonth returns the first trait scheduled for month (1-12).
func (t CharacterTraits) ForMonth(month int) *CharacterTrait {
	for i := range t {
		for _, m := range t[i].Months {
			if m == month {
				trait := t[i]
				return &trait
			}
		}
	}
	return nil
}

// Value marshals traits to JSON for persistence.
func (t CharacterTraits) Value() (driver.Value, error) {
	if t == nil {
		t = CharacterTraits{}
	}
	data, err := json.Marshal([]CharacterTrait(t))
	if err != nil {
		return nil, fmt.Errorf("marshal character traits: %w", err)
	}
	return data, nil
}

// Scan unmarshals the JSONB column.
func (t *CharacterTraits) Scan(value interface{}) error {
	*t = nil
	data, err := jsonBytes(value)
	if err != nil || len(data) == 0 {
		return err
	}
	var traits []CharacterTrait
	if err := json.Unmarshal(data, &traits); err != nil {
		return fmt.Errorf("unmarshal character traits: %w", err)
	}
	*t = traits
	return nil
}
