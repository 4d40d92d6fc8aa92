package srs

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// Lifecycle represents the scheduling stage of a concept.
type Lifecycle int

const (
	// New means the concept has never been graded.
	New Lifecycle = iota + 1

	// Learning means the concept is in its initial grading run.
	Learning

	// Review means the concept graduated into the long-term review cycle.
	Review

	// Relearning means the concept lapsed and is being relearned.
	Relearning
)

var (
	lifecycleNames  = [...]string{New: "New", Learning: "Learning", Review: "Review", Relearning: "Relearning"}
	lifecycleByName = map[string]Lifecycle{
		"New":        New,
		"Learning":   Learning,
		"Review":     Review,
		"Relearning": Relearning,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Lifecycle(0)
	_ json.Marshaler           = Lifecycle(0)
	_ json.Unmarshaler         = (*Lifecycle)(nil)
	_ encoding.TextMarshaler   = Lifecycle(0)
	_ encoding.TextUnmarshaler = (*Lifecycle)(nil)
)

// IsValid reports whether l is a defined lifecycle stage.
func (l Lifecycle) IsValid() bool {
	return l >= New && l <= Relearning
}

// String returns the name of the stage ("New", "Learning", "Review", "Relearning").
// For invalid values it returns "Lifecycle(n)".
func (l Lifecycle) String() string {
	if l.IsValid() {
		return lifecycleNames[l]
	}
	return fmt.Sprintf("Lifecycle(%d)", int(l))
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifecycle) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("srs: invalid lifecycle: %d", int(l))
	}
	return []byte(lifecycleNames[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifecycle) UnmarshalText(text []byte) error {
	v, ok := lifecycleByName[string(text)]
	if !ok {
		return fmt.Errorf("srs: invalid lifecycle: %q", text)
	}
	*l = v
	return nil
}

// MarshalJSON implements json.Marshaler. Lifecycle serializes as a JSON string.
func (l Lifecycle) MarshalJSON() ([]byte, error) {
	text, err := l.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (l *Lifecycle) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("srs: invalid lifecycle: %s", data)
	}
	return l.UnmarshalText([]byte(s))
}
