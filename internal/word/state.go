package word

import "time"

// State is a rung on the review ladder. Transitions move one rung at a time,
// up on a correct review outcome and down on an incorrect one.
type State string

const (
	StateNew        State = "NEW"
	StateRepeated   State = "REPEATED"
	StateReinforced State = "REINFORCED"
	StateLearned    State = "LEARNED"
)

// Next returns the state after one review outcome. LEARNED is the ceiling
// and NEW the floor; both are idempotent under further outcomes in the same
// direction.
func Next(s State, correct bool) State {
	if correct {
		switch s {
		case StateNew:
			return StateRepeated
		case StateRepeated:
			return StateReinforced
		case StateReinforced:
			return StateLearned
		default:
			return s
		}
	}
	switch s {
	case StateRepeated:
		return StateNew
	case StateReinforced:
		return StateRepeated
	case StateLearned:
		return StateReinforced
	default:
		return s
	}
}

// ReviewThreshold returns how long after creation a word in state s becomes
// due for review. LEARNED words are never due.
func ReviewThreshold(s State) (time.Duration, bool) {
	switch s {
	case StateNew:
		return 24 * time.Hour, true
	case StateRepeated:
		return 5 * 24 * time.Hour, true
	case StateReinforced:
		return 14 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Due reports whether a word created at createdAt has crossed its state's
// review threshold at now.
func Due(s State, createdAt, now time.Time) bool {
	threshold, ok := ReviewThreshold(s)
	if !ok {
		return false
	}
	return now.Sub(createdAt) >= threshold
}
