package medlog

import "testing"

func TestParseQuestion(t *testing.T) {
	cases := []struct {
		name       string
		in         string
		kind       QuestionKind
		medication string
	}{
		{
			name:       "when did i take",
			in:         "When did I take aspirin?",
			kind:       QuestionLastTime,
			medication: "aspirin",
		},
		{
			name:       "when was the last time",
			in:         "when was the last time i took lipitor",
			kind:       QuestionLastTime,
			medication: "lipitor",
		},
		{
			name:       "how much did i take last",
			in:         "how much metformin did I take last?",
			kind:       QuestionLastDosage,
			medication: "metformin",
		},
		{
			name:       "last dose of",
			in:         "what was my last dose of tylenol?!",
			kind:       QuestionLastDosage,
			medication: "tylenol",
		},
		{
			name:       "last dosage of",
			in:         "what is the last dosage of vitamin d",
			kind:       QuestionLastDosage,
			medication: "vitamin d",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			q, ok := ParseQuestion(tc.in)
			if !ok {
				t.Fatalf("ParseQuestion(%q) = no match", tc.in)
			}
			if q.Kind != tc.kind {
				t.Fatalf("ParseQuestion(%q) kind = %q, want %q", tc.in, q.Kind, tc.kind)
			}
			if q.Medication != tc.medication {
				t.Fatalf("ParseQuestion(%q) medication = %q, want %q", tc.in, q.Medication, tc.medication)
			}
		})
	}
}

func TestParseQuestionNoMatch(t *testing.T) {
	cases := []string{
		"I'm taking 10mg of aspirin",
		"pill time",
		"when is dinner",
		"",
	}
	for _, in := range cases {
		if q, ok := ParseQuestion(in); ok {
			t.Fatalf("ParseQuestion(%q) = %+v, want no match", in, q)
		}
	}
}

func TestIsTrigger(t *testing.T) {
	triggers := []string{
		"I'm about to take some medication",
		"okay, pill time!",
		"Medicine time",
		"time for my medication",
	}
	for _, in := range triggers {
		if !IsTrigger(in) {
			t.Fatalf("IsTrigger(%q) = false, want true", in)
		}
	}

	nonTriggers := []string{
		"I'm taking 10mg of aspirin",
		"when did i take aspirin",
		"",
	}
	for _, in := range nonTriggers {
		if IsTrigger(in) {
			t.Fatalf("IsTrigger(%q) = true, want false", in)
		}
	}
}
