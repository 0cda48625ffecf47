package medlog

import (
	"regexp"
	"strings"
)

// QuestionKind distinguishes what the user wants to know about a past dose.
type QuestionKind string

const (
	QuestionLastTime   QuestionKind = "last_time"
	QuestionLastDosage QuestionKind = "last_dosage"
)

// Question is a recognized natural-language query about the log.
type Question struct {
	Kind       QuestionKind
	Medication string
}

var timeQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`when (?:did i|was the last time i) (?:take|took)\s+(.+)`),
	regexp.MustCompile(`when .* last .* (?:take|took)\s+(.+)`),
	regexp.MustCompile(`what time .* last .* (?:take|took)\s+(.+)`),
}

var dosageQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`how much\s+(.+?)\s+did i take last`),
	regexp.MustCompile(`what (?:was|is) my last dose of\s+(.+)`),
	regexp.MustCompile(`what (?:was|is) the last dosage of\s+(.+)`),
}

// ParseQuestion recognizes "when did I last take X" and "how much X did I
// take last" phrasings and pulls out the medication name.
func ParseQuestion(text string) (Question, bool) {
	q := strings.ToLower(strings.TrimSpace(text))
	if q == "" {
		return Question{}, false
	}

	for _, p := range timeQuestionPatterns {
		if m := p.FindStringSubmatch(q); m != nil {
			return Question{Kind: QuestionLastTime, Medication: trimQuestionTail(m[1])}, true
		}
	}
	for _, p := range dosageQuestionPatterns {
		if m := p.FindStringSubmatch(q); m != nil {
			return Question{Kind: QuestionLastDosage, Medication: trimQuestionTail(m[1])}, true
		}
	}
	return Question{}, false
}

func trimQuestionTail(med string) string {
	med = strings.TrimSpace(med)
	med = strings.TrimRight(med, "?!.")
	return strings.TrimSpace(med)
}
