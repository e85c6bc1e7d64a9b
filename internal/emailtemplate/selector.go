package emailtemplate

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf16"
)

// Content types used to derive selection seeds.
const (
	ContentGreeting  = "greeting"
	ContentQuote     = "quote"
	ContentChallenge = "challenge"
	ContentWins      = "wins"
)

// Hash is a 32-bit rolling string hash (h*31 + c) over UTF-16 code units.
// It wraps on overflow so seeds hash identically across clients.
func Hash(seed string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(seed)) {
		h = (h << 5) - h + int32(unit)
	}
	return h
}

// Index maps seed onto [0, n).
func Index(seed string, n int) int {
	if n <= 0 {
		return 0
	}
	h := int64(Hash(seed))
	if h < 0 {
		h = -h
	}
	return int(h % int64(n))
}

// Seed builds the per-student, per-day seed for a content type.
func Seed(studentID, date, contentType string) string {
	return fmt.Sprintf("%s-%s-%s", studentID, date, contentType)
}

// MonthlySeed builds the per-student, per-month seed used for character
// trait content.
func MonthlySeed(studentID string, date time.Time) string {
	return fmt.Sprintf("%s-%d-%d", studentID, date.Year(), int(date.Month()))
}

// Select picks one entry of pool for seed. An empty pool yields "".
func Select(pool []string, seed string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[Index(seed, len(pool))]
}

// SelectMultiple picks up to n distinct entries of pool. Each pick uses the
// seed suffixed with its position and removes the chosen entry.
func SelectMultiple(pool []string, seed string, n int) []string {
	remaining := append([]string(nil), pool...)
	if n > len(remaining) {
		n = len(remaining)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := Index(fmt.Sprintf("%s-%d", seed, i), len(remaining))
		out = append(out, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return out
}

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// ProcessTemplate substitutes {key} placeholders. Unknown keys and keys
// with an empty value are kept as written.
func ProcessTemplate(text string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		if value := vars[match[1:len(match)-1]]; value != "" {
			return value
		}
		return match
	})
}
