package medlog

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// DefaultDosageUnits is the baseline unit vocabulary. The recognized set is
// deliberately configurable (MEDLOG_DOSAGE_UNITS) because transcripts from
// the wearable use whatever unit the speaker said.
var DefaultDosageUnits = []string{"mg", "ml", "pill", "tablet", "unit", "capsule"}

var numberWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
	"a": "1", "an": "1",
}

type dosePattern struct {
	re      *regexp.Regexp
	medIdx  int
	doseIdx int
	// unitIdx >= 0 marks a number-word pattern: doseIdx captures the word
	// ("one", "an") and unitIdx the count unit ("pill").
	unitIdx int
}

// Extractor turns a free-form utterance into a medication entry candidate
// using ordered keyword/number patterns.
type Extractor struct {
	patterns []dosePattern
	filler   *regexp.Regexp
	now      func() time.Time
}

func NewExtractor(units []string) *Extractor {
	if len(units) == 0 {
		units = DefaultDosageUnits
	}
	quoted := make([]string, 0, len(units))
	for _, u := range units {
		u = strings.ToLower(strings.TrimSpace(u))
		if u == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(u)+"s?")
	}
	if len(quoted) == 0 {
		for _, u := range DefaultDosageUnits {
			quoted = append(quoted, u+"s?")
		}
	}

	verb := `(?:taking|took|take)`
	dose := `(\d+(?:\.\d+)?\s*(?:` + strings.Join(quoted, "|") + `))`
	word := `(one|two|three|four|five|six|seven|eight|nine|ten|a|an)`
	countUnit := `(pills?|tablets?|capsules?)`

	return &Extractor{
		patterns: []dosePattern{
			// "taking 10mg of aspirin"
			{re: regexp.MustCompile(verb + `\s+` + dose + `\s+(?:of\s+)?(.+)`), doseIdx: 1, medIdx: 2, unitIdx: -1},
			// "taking aspirin 10mg"
			{re: regexp.MustCompile(verb + `\s+(.+?)\s+` + dose), medIdx: 1, doseIdx: 2, unitIdx: -1},
			// "10mg aspirin"
			{re: regexp.MustCompile(dose + `\s+(?:of\s+)?(.+)`), doseIdx: 1, medIdx: 2, unitIdx: -1},
			// "aspirin 10mg"
			{re: regexp.MustCompile(`(.+?)\s+` + dose), medIdx: 1, doseIdx: 2, unitIdx: -1},
			// "one pill of tylenol", with or without a leading verb
			{re: regexp.MustCompile(`(?:` + verb + `\s+)?\b` + word + `\s+` + countUnit + `\s+(?:of\s+)?(.+)`), doseIdx: 1, unitIdx: 2, medIdx: 3},
			// "tylenol one pill"
			{re: regexp.MustCompile(verb + `\s+(.+?)\s+` + word + `\s+` + countUnit), medIdx: 1, doseIdx: 2, unitIdx: 3},
		},
		filler: regexp.MustCompile(`\b(i am|i'm|im|i|taking|took|take|my|some|medication|medicine|pills?|tablets?|capsules?|mg|ml)\b`),
		now:    time.Now,
	}
}

// Extract parses an utterance into an entry candidate. The boolean is false
// when no medication name can be recognized; nothing should be logged then.
func (x *Extractor) Extract(text string) (Entry, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return Entry{}, false
	}

	for _, p := range x.patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		dosage := m[p.doseIdx]
		if p.unitIdx >= 0 {
			// Normalize "one pill" to "1 pill", keeping the unit as spoken.
			n, ok := numberWords[dosage]
			if !ok {
				continue
			}
			dosage = n + " " + m[p.unitIdx]
		}
		med := cleanMedicationName(m[p.medIdx])
		if med == "" {
			continue
		}
		return x.entryAt(med, dosage), true
	}

	// Fallback: strip filler words and treat whatever remains as the name.
	cleaned := x.filler.ReplaceAllString(text, "")
	med := cleanMedicationName(cleaned)
	if len(med) > 2 && hasLetter(med) {
		return x.entryAt(med, "Not specified"), true
	}

	return Entry{}, false
}

func (x *Extractor) entryAt(medication, dosage string) Entry {
	now := x.now()
	return Entry{
		Date:       now.Format("2006-01-02"),
		Time:       now.Format("03:04 PM"),
		Medication: medication,
		Dosage:     dosage,
	}
}

func cleanMedicationName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ".!?,")
	s = strings.TrimSpace(s)
	return titleCase(s)
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		r := []rune(strings.ToLower(f))
		r[0] = unicode.ToUpper(r[0])
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
