// Package session holds the protocol state machine gating when a plan
// may execute. Transitions come from a fixed whitelist; anything else
// fails loudly and leaves the state untouched.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

// State is the assistant's protocol state.
type State string

// Protocol states.
const (
	StateIdle       State = "IDLE"
	StateListening  State = "LISTENING"
	StateProcessing State = "PROCESSING"
	StateReviewing  State = "REVIEWING"
	StateExecuting  State = "EXECUTING"
	StateError      State = "ERROR"
)

// Event drives a state transition.
type Event string

// Transition events.
const (
	EventWakeWord      Event = "WAKE_WORD"
	EventPushToTalk    Event = "PUSH_TO_TALK"
	EventAudioComplete Event = "AUDIO_COMPLETE"
	EventPlanReady     Event = "PLAN_READY"
	EventPlanSafe      Event = "PLAN_SAFE"
	EventConfirm       Event = "CONFIRM"
	EventDeny          Event = "DENY"
	EventCancel        Event = "CANCEL"
	EventComplete      Event = "COMPLETE"
	EventError         Event = "ERROR"
	EventReset         Event = "RESET"
	EventTimeout       Event = "TIMEOUT"
)

// ErrInvalidTransition marks an event illegal for the current state.
// This is a caller protocol violation, the one error the pipeline
// lets surface.
var ErrInvalidTransition = errors.New("invalid transition")

type stateEvent struct {
	state State
	event Event
}

// transitions is the full whitelist. PLAN_SAFE is the only route from
// PROCESSING straight to EXECUTING, taken when a plan needs no
// confirmation.
var transitions = map[stateEvent]State{
	{StateIdle, EventWakeWord}:   StateListening,
	{StateIdle, EventPushToTalk}: StateListening,
	{StateIdle, EventError}:      StateError,

	{StateListening, EventAudioComplete}: StateProcessing,
	{StateListening, EventCancel}:        StateIdle,
	{StateListening, EventTimeout}:       StateIdle,
	{StateListening, EventError}:         StateError,

	{StateProcessing, EventPlanReady}: StateReviewing,
	{StateProcessing, EventPlanSafe}:  StateExecuting,
	{StateProcessing, EventCancel}:    StateIdle,
	{StateProcessing, EventError}:     StateError,

	{StateReviewing, EventConfirm}: StateExecuting,
	{StateReviewing, EventDeny}:    StateIdle,
	{StateReviewing, EventCancel}:  StateIdle,
	{StateReviewing, EventTimeout}: StateIdle,
	{StateReviewing, EventError}:   StateError,

	{StateExecuting, EventComplete}: StateIdle,
	{StateExecuting, EventError}:    StateError,

	{StateError, EventReset}: StateIdle,
}

// Context is the per-session working set. Cleared exactly when the
// machine returns to IDLE.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type Context struct {
	SessionID            string                `json:"session_id"`
	Transcript           string                `json:"transcript,omitempty"`
	PendingPlan          *contracts.ActionPlan `json:"pending_plan,omitempty"`
	ConfirmationAttempts int                   `json:"confirmation_attempts"`
	StartedAt            time.Time             `json:"started_at"`
}

// Transition is one history record.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type Transition struct {
	From   State     `json:"from"`
	To     State     `json:"to"`
	Event  Event     `json:"event"`
	Forced bool      `json:"forced,omitempty"`
	At     time.Time `json:"at"`
}

// Callback observes state changes. A panicking callback is isolated at
// the call site and can never corrupt the machine.
type Callback func(from, to State, event Event)

const historySize = 64

// Machine is the confirmation state machine. Safe for concurrent use.
type Machine struct {
	mu        sync.Mutex
	state     State
	ctx       Context
	history   []Transition
	histNext  int
	histCount int
	callbacks []Callback
	sessions  int
	clock     func() time.Time
	log       *slog.Logger
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) MachineOption {
	return func(m *Machine) { m.clock = clock }
}

// NewMachine builds a machine parked in IDLE with a fresh session.
func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		state:   StateIdle,
		history: make([]Transition, historySize),
		clock:   func() time.Time { return time.Now().UTC() },
		log:     slog.Default().With("component", "session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ctx = m.freshContext()
	return m
}

func (m *Machine) freshContext() Context {
	m.sessions++
	id := uuid.NewString()
	return Context{
		SessionID: fmt.Sprintf("session-%d-%s", m.sessions, id[:8]),
		StartedAt: m.clock(),
	}
}

// State returns the current protocol state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Is reports whether the machine currently sits in s.
func (m *Machine) Is(s State) bool { return m.State() == s }

// Fire applies one event. An event absent from the whitelist for the
// current state returns ErrInvalidTransition and changes nothing.
func (m *Machine) Fire(event Event) (State, error) {
	m.mu.Lock()
	from := m.state
	next, ok := transitions[stateEvent{from, event}]
	if !ok {
		m.mu.Unlock()
		m.log.Error("rejected transition", "state", from, "event", event)
		return from, fmt.Errorf("%w: event %s in state %s", ErrInvalidTransition, event, from)
	}
	m.apply(from, next, event, false)
	callbacks := append([]Callback(nil), m.callbacks...)
	m.mu.Unlock()

	m.notify(callbacks, from, next, event)
	return next, nil
}

// ForceReset unconditionally returns to IDLE, bypassing the whitelist.
// Reserved for operator and error recovery.
func (m *Machine) ForceReset() {
	m.mu.Lock()
	from := m.state
	m.apply(from, StateIdle, EventReset, true)
	callbacks := append([]Callback(nil), m.callbacks...)
	m.mu.Unlock()

	m.notify(callbacks, from, StateIdle, EventReset)
}

// apply records the transition and clears context on IDLE entry.
// Caller holds the lock.
func (m *Machine) apply(from, to State, event Event, forced bool) {
	m.state = to
	m.history[m.histNext] = Transition{From: from, To: to, Event: event, Forced: forced, At: m.clock()}
	m.histNext = (m.histNext + 1) % historySize
	if m.histCount < historySize {
		m.histCount++
	}
	if to == StateIdle {
		m.ctx = m.freshContext()
	}
	m.log.Debug("transition", "from", from, "to", to, "event", event, "forced", forced)
}

func (m *Machine) notify(callbacks []Callback, from, to State, event Event) {
	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.Error("state callback panicked", "panic", r)
				}
			}()
			cb(from, to, event)
		}()
	}
}

// Subscribe registers a state-change callback.
func (m *Machine) Subscribe(cb Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// History returns the retained transitions, oldest first.
func (m *Machine) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, 0, m.histCount)
	start := (m.histNext - m.histCount + historySize) % historySize
	for i := 0; i < m.histCount; i++ {
		out = append(out, m.history[(start+i)%historySize])
	}
	return out
}

// Context returns a copy of the session context.
func (m *Machine) Context() Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx
}

// SetTranscript records the latest recognized utterance.
func (m *Machine) SetTranscript(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.Transcript = text
}

// SetPendingPlan parks a plan awaiting confirmation.
func (m *Machine) SetPendingPlan(plan *contracts.ActionPlan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.PendingPlan = plan
}

// PendingPlan returns the parked plan, or nil.
func (m *Machine) PendingPlan() *contracts.ActionPlan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx.PendingPlan
}

// RecordConfirmationAttempt bumps the attempt counter and returns the
// new count. Reset with the rest of the context on IDLE entry.
func (m *Machine) RecordConfirmationAttempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.ConfirmationAttempts++
	return m.ctx.ConfirmationAttempts
}
