package medlog

import "strings"

// triggerPhrases arm the "waiting for medication details" state. Phrased
// the way people actually announce a dose out loud.
var triggerPhrases = []string{
	"i am about to take some medication",
	"i'm about to take some medication",
	"about to take medication",
	"taking medication now",
	"i am taking medication",
	"i need to take my medication",
	"time to take my medication",
	"remind me to take my medication",
	"i'm taking my medicine",
	"medicine time",
	"pill time",
	"i'm about to take my pills",
	"time for my medication",
	"i'm going to take my medication",
}

// IsTrigger reports whether the utterance announces an upcoming dose.
func IsTrigger(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	for _, phrase := range triggerPhrases {
		if strings.Contains(t, phrase) {
			return true
		}
	}
	return false
}
