package emailtemplate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Pronouns is the gendered vocabulary used in parent emails.
type Pronouns struct {
	Subject    string
	Object     string
	Possessive string
	Reflexive  string
	Title      string
	Child      string
	// Be is the present tense of "to be" agreeing with Subject.
	Be string
}

var (
	malePronouns    = Pronouns{Subject: "he", Object: "him", Possessive: "his", Reflexive: "himself", Title: "young man", Child: "son", Be: "is"}
	femalePronouns  = Pronouns{Subject: "she", Object: "her", Possessive: "her", Reflexive: "herself", Title: "young lady", Child: "daughter", Be: "is"}
	neutralPronouns = Pronouns{Subject: "they", Object: "them", Possessive: "their", Reflexive: "themselves", Title: "student", Child: "child", Be: "are"}
)

// PronounsFor maps a free-form gender value onto a pronoun set. Anything
// unrecognised, including an empty value, gets they/them.
func PronounsFor(gender string) Pronouns {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "male", "m", "boy", "male student":
		return malePronouns
	case "female", "f", "girl", "female student":
		return femalePronouns
	default:
		return neutralPronouns
	}
}

// SubjectTitle is the capitalised subject pronoun.
func (p Pronouns) SubjectTitle() string {
	return capitalize(p.Subject)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func (p Pronouns) maintains() string {
	if p.Be == "are" {
		return "maintain"
	}
	return "maintains"
}
