package models

import (
	"fmt"
	"strings"
)

// Outcome identifies one of the three 1X2 results of a football match.
type Outcome int

const (
	OutcomeHome Outcome = iota
	OutcomeDraw
	OutcomeAway

	// OutcomeCount is the number of distinct outcomes per match.
	OutcomeCount = 3
)

// Sign returns the pools notation for the outcome: "1", "X" or "2".
func (o Outcome) Sign() string {
	switch o {
	case OutcomeHome:
		return "1"
	case OutcomeDraw:
		return "X"
	case OutcomeAway:
		return "2"
	default:
		return "?"
	}
}

// String implements fmt.Stringer with a readable name for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeHome:
		return "home"
	case OutcomeDraw:
		return "draw"
	case OutcomeAway:
		return "away"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ParseSign converts a single pools sign into an Outcome.
func ParseSign(s string) (Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1":
		return OutcomeHome, nil
	case "X":
		return OutcomeDraw, nil
	case "2":
		return OutcomeAway, nil
	default:
		return 0, fmt.Errorf("unknown sign %q", s)
	}
}

// ParseSigns converts a compact pick such as "1" or "1X" into outcomes.
// Duplicates and picks longer than two signs are rejected.
func ParseSigns(s string) ([]Outcome, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return nil, fmt.Errorf("empty pick")
	}
	if len(s) > 2 {
		return nil, fmt.Errorf("pick %q covers more than two outcomes", s)
	}
	seen := [OutcomeCount]bool{}
	outcomes := make([]Outcome, 0, 2)
	for _, r := range s {
		o, err := ParseSign(string(r))
		if err != nil {
			return nil, err
		}
		if seen[o] {
			return nil, fmt.Errorf("pick %q repeats sign %s", s, o.Sign())
		}
		seen[o] = true
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// SignsString renders outcomes as a compact pick string, e.g. "1X".
func SignsString(outcomes []Outcome) string {
	var b strings.Builder
	for _, o := range outcomes {
		b.WriteString(o.Sign())
	}
	return b.String()
}
