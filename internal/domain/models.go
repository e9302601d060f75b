package domain

import (
	"encoding/json"
	"time"
)

type TargetID string

// Target is one configured threshold. Immutable for the duration of a run.
type Target struct {
	ID        TargetID `json:"id"`
	Label     string   `json:"label"`
	Threshold float64  `json:"threshold"`
	Buffer    float64  `json:"buffer"`
}

// RearmLevel is the price that must be reached to restore an armed target.
func (t Target) RearmLevel() float64 {
	return t.Threshold + t.Buffer
}

// Zone is the last classified side of the threshold.
type Zone string

const (
	ZoneAbove Zone = "above"
	ZoneBelow Zone = "below"
)

// TargetState is the persisted record for one target id.
// LastAlertAtMs is epoch milliseconds; nil means no alert has ever fired.
type TargetState struct {
	Armed         bool   `json:"armed"`
	LastAlertAtMs *int64 `json:"lastAlertAtMs"`
	LastState     Zone   `json:"lastState,omitempty"`
}

// NewTargetState returns the record used for a target id seen for the first time.
func NewTargetState() TargetState {
	return TargetState{Armed: true}
}

// LastAlertAt converts LastAlertAtMs to a time, reporting false when unset.
func (s TargetState) LastAlertAt() (time.Time, bool) {
	if s.LastAlertAtMs == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*s.LastAlertAtMs).UTC(), true
}

// UnmarshalJSON treats a record without an "armed" key as armed.
func (s *TargetState) UnmarshalJSON(b []byte) error {
	var raw struct {
		Armed         *bool  `json:"armed"`
		LastAlertAtMs *int64 `json:"lastAlertAtMs"`
		LastState     Zone   `json:"lastState"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = NewTargetState()
	if raw.Armed != nil {
		s.Armed = *raw.Armed
	}
	s.LastAlertAtMs = raw.LastAlertAtMs
	s.LastState = raw.LastState
	return nil
}

// StateVersion tags the persisted container layout.
const StateVersion = 1

// State is the run-level container owned by the orchestrator.
type State struct {
	Version int                      `json:"version"`
	Targets map[TargetID]TargetState `json:"targets"`
}

func NewState() State {
	return State{Version: StateVersion, Targets: make(map[TargetID]TargetState)}
}

// Record returns the stored record for id, or the default record if none exists.
func (s State) Record(id TargetID) TargetState {
	if rec, ok := s.Targets[id]; ok {
		return rec
	}
	return NewTargetState()
}

// Clone returns a deep copy so stores never share maps with callers.
func (s State) Clone() State {
	out := State{Version: s.Version, Targets: make(map[TargetID]TargetState, len(s.Targets))}
	for id, rec := range s.Targets {
		if rec.LastAlertAtMs != nil {
			ms := *rec.LastAlertAtMs
			rec.LastAlertAtMs = &ms
		}
		out.Targets[id] = rec
	}
	return out
}

// Alert describes one target that fired during a run.
type Alert struct {
	TargetID  TargetID `json:"id"`
	Label     string   `json:"label"`
	Threshold float64  `json:"threshold"`
	Buffer    float64  `json:"buffer"`
}

func (a Alert) RearmLevel() float64 {
	return a.Threshold + a.Buffer
}
