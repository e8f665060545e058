package registry

// Liveness is the debounced classification of an agent.
type Liveness string

const (
	LivenessUnknown Liveness = "unknown"
	LivenessOnline  Liveness = "online"
	LivenessOffline Liveness = "offline"
)

// tracker is the per-agent flap-debounce state machine. A single probe
// outcome never flips an established classification; it takes `threshold`
// consecutive consistent outcomes to toggle between online and offline.
type tracker struct {
	state     Liveness
	successes int
	failures  int
}

// liveness returns the current classification, reading a zero-value state
// as unknown.
func (t *tracker) liveness() Liveness {
	if t.state == "" {
		return LivenessUnknown
	}
	return t.state
}

// observe feeds one probe outcome into the state machine and reports the
// resulting state plus whether the classification changed.
//
// From unknown there is nothing to debounce: the first observation
// classifies the agent outright. A zero-value tracker starts unknown; its
// state string is empty until the first observation, so both spellings take
// the unknown branch.
func (t *tracker) observe(ok bool, threshold int) (Liveness, bool) {
	if threshold < 1 {
		threshold = 1
	}

	if ok {
		t.successes++
		t.failures = 0
	} else {
		t.failures++
		t.successes = 0
	}

	switch t.state {
	case LivenessUnknown, "":
		if ok {
			t.state = LivenessOnline
		} else {
			t.state = LivenessOffline
		}
		return t.state, true
	case LivenessOnline:
		if !ok && t.failures >= threshold {
			t.state = LivenessOffline
			return t.state, true
		}
	case LivenessOffline:
		if ok && t.successes >= threshold {
			t.state = LivenessOnline
			return t.state, true
		}
	}
	return t.state, false
}
