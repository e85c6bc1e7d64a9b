package emailtemplate

import (
	"time"

	"github.com/noah-isme/daily-update-api/internal/models"
)

// Fallbacks used when a character trait has no quotes or challenges.
const (
	FallbackTraitQuote     = "Every day is a new opportunity to grow and learn! 🌟"
	FallbackTraitChallenge = "Try something new today that makes you curious! 🔍"
)

var heroGreetings = []string{
	"🌟 You're absolutely amazing, {name}! 🌟",
	"🚀 Way to go, {name}! 🚀",
	"🎉 What a day, {name}! 🎉",
	"💫 Keep shining, {name}! 💫",
	"🏆 Look at you go, {name}! 🏆",
}

var generalQuotes = []string{
	"Small steps every day add up to big results. 🌱",
	"Mistakes help your brain grow. Keep going! 🧠",
	"Your effort matters more than being perfect. ⭐",
	"Be kind, be curious, be you. 💙",
	"Every challenge makes you stronger. 💪",
	"You have amazing potential inside you. ✨",
	"Learning is an adventure - enjoy the journey! 🗺️",
	"Your kindness makes the world better. 🌍",
	"Believe in yourself - you can do it! 🚀",
	"Today is a new opportunity to shine. 🌟",
}

var weekdayQuotes = map[time.Weekday][]string{
	time.Sunday:    {"Fresh start, new week—one curious question can lead to big discoveries. 🌟", "Sunday is perfect for planning your week ahead. 📝"},
	time.Monday:    {"Monday motivation: Start strong and stay curious! 🔍", "New week, new opportunities to learn and grow. 🌱"},
	time.Tuesday:   {`Tuesday tip: Ask one "why" question today. ❓`, "Keep that learning momentum going! 🚀"},
	time.Wednesday: {"Wednesday wisdom: You're halfway through the week! 🎯", "Stay curious about everything around you. 👀"},
	time.Thursday:  {"Thursday thought: Week is ending! Plan one mini curiosity-quest for the weekend. 🔎✨", "Finish the week strong with one new discovery! 💡"},
	time.Friday:    {"Friday feeling: Weekend is here! Time to explore and satisfy your curiosity! 🧪🎉", "Weekend curiosity mission starts now! 🚀"},
	time.Saturday:  {"Saturday spirit: Weekends are perfect for wonder. Notice something new today. 👀", "Time to explore and satisfy your curiosity! 🔍"},
}

var weekendQuotes = []string{
	"Weekend wonder time! What will you discover today? 🔍",
	"Perfect day for a mini curiosity adventure! 🗺️",
	"Weekends are made for exploring and learning! 🌟",
}

var generalChallenges = []string{
	"Ask one curious question in class today ❓",
	"Find 3 new words while reading and use one in a sentence 📖",
	`Try a short "what if" brainstorm about a topic you love 💡`,
	"Observe something at home/school and write one thing you wonder 👀",
	"Teach a friend one cool fact you learned and ask their question 🤝",
	"Draw a tiny diagram of something you're curious about ✍️",
	"Find a safe mini-experiment to try (with an adult's help) 🧪",
	"Read for 10 minutes and jot down 2 curious thoughts 📝",
}

var traitChallenges = map[string][]string{
	"Confidence": {
		"Stand up for what you believe is right today 💪",
		"Share your unique perspective in class discussion 🗣️",
		"Try something new that challenges your comfort zone 🌟",
	},
	"Hope": {
		"Help someone who might need encouragement today 🤝",
		"Write down one thing you're hopeful about for tomorrow ✨",
		"Share a positive message with a classmate 💙",
	},
	"Wisdom": {
		"Think before you speak - choose your words carefully 🧠",
		"Ask a thoughtful question that helps others think deeper ❓",
		"Make a decision based on what you know is right, not just what's easy ⚖️",
	},
}

var planWeekendChallenges = []string{
	"Plan a weekend curiosity mission: list materials and 1 step 🗺️",
	"Think of one thing you want to learn about this weekend 📚",
}

var weekendChallenges = []string{
	"Try your weekend curiosity quest and reflect on 1 discovery 🌟",
	"Do one thing today that makes you wonder about the world 🔍",
}

var focusTips = map[string]string{
	"ELA":     "Read for 10 minutes and jot 3 new words. Practice makes progress! 📖",
	"Math":    "Practice 5 quick problems and explain your steps to a friend. ➗",
	"Science": "Write one “why” question about today’s topic and try to answer it. 🔬",
	"SS":      "Tell a family member one fact you learned and why it matters. 🗺️",
}

const defaultFocusTip = "Try reviewing class notes, practicing a few problems, and asking one question tomorrow. You’ve got this! 💪"

// isWeekend treats Friday and Saturday as the weekend of a school week.
func isWeekend(day time.Weekday) bool {
	return day == time.Friday || day == time.Saturday
}

// QuotePool returns the built-in motivation quotes for date.
func QuotePool(date time.Time) []string {
	pool := append([]string(nil), generalQuotes...)
	pool = append(pool, weekdayQuotes[date.Weekday()]...)
	if isWeekend(date.Weekday()) {
		pool = append(pool, weekendQuotes...)
	}
	return pool
}

// ChallengePool returns the built-in daily challenges for date, extended
// with the trait's extra challenges when traitName is known.
func ChallengePool(date time.Time, traitName string) []string {
	pool := append([]string(nil), generalChallenges...)
	pool = append(pool, traitChallenges[traitName]...)
	switch {
	case date.Weekday() == time.Thursday:
		pool = append(pool, planWeekendChallenges...)
	case isWeekend(date.Weekday()):
		pool = append(pool, weekendChallenges...)
	}
	return pool
}

// TraitQuote picks the trait quote a student sees for the month of date.
func TraitQuote(trait *models.CharacterTrait, studentID string, date time.Time) string {
	if trait == nil || len(trait.Quotes) == 0 {
		return FallbackTraitQuote
	}
	return Select(trait.Quotes, MonthlySeed(studentID, date))
}

// TraitChallenge picks the trait challenge a student sees for the month of date.
func TraitChallenge(trait *models.CharacterTrait, studentID string, date time.Time) string {
	if trait == nil || len(trait.Challenges) == 0 {
		return FallbackTraitChallenge
	}
	return Select(trait.Challenges, MonthlySeed(studentID, date))
}

// FocusTip returns the study tip for subject.
func FocusTip(subject string) string {
	if tip, ok := focusTips[subject]; ok {
		return tip
	}
	return defaultFocusTip
}
