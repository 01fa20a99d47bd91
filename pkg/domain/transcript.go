package domain

// Transcript is the ordered history of a session.
// Insertion order equals chronological submission order.
type Transcript []TranscriptEntry

// Clone returns a copy that does not share the backing array.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return Transcript{}
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// Since returns a copy of the entries appended after the first n.
func (t Transcript) Since(n int) Transcript {
	if n < 0 {
		n = 0
	}
	if n >= len(t) {
		return Transcript{}
	}
	return t[n:].Clone()
}

// Inputs returns the submitted texts in order.
func (t Transcript) Inputs() []string {
	inputs := make([]string, 0, len(t)/2)
	for _, e := range t {
		if e.Kind == KindInput {
			inputs = append(inputs, e.Value)
		}
	}
	return inputs
}

// Pending reports whether the last Input has not been answered yet.
func (t Transcript) Pending() bool {
	return len(t) > 0 && t[len(t)-1].Kind == KindInput
}

// Validate checks the pairing invariant: every Input is immediately followed
// by exactly one Output or Error. A trailing unanswered Input is accepted when
// allowPending is true.
func (t Transcript) Validate(allowPending bool) error {
	for i := 0; i < len(t); i++ {
		e := t[i]
		if !e.Kind.Valid() {
			return &TranscriptError{Index: i, Reason: "unknown entry kind " + string(e.Kind)}
		}
		if i%2 == 0 {
			if e.Kind != KindInput {
				return &TranscriptError{Index: i, Reason: "expected input entry"}
			}
			continue
		}
		if !e.Kind.IsResult() {
			return &TranscriptError{Index: i, Reason: "expected output or error entry"}
		}
	}
	if !allowPending && t.Pending() {
		return &TranscriptError{Index: len(t) - 1, Reason: "input has no result"}
	}
	return nil
}
