//go:build property

package session

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var (
	genEvent = gen.OneConstOf(
		EventWakeWord, EventPushToTalk, EventAudioComplete, EventPlanReady,
		EventPlanSafe, EventConfirm, EventDeny, EventCancel, EventComplete,
		EventError, EventReset, EventTimeout,
	)
	allStates = []State{
		StateIdle, StateListening, StateProcessing,
		StateReviewing, StateExecuting, StateError,
	}
)

func TestMachineProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("every event sequence keeps the machine in a known state", prop.ForAll(
		func(events []Event) bool {
			m := NewMachine()
			for _, e := range events {
				m.Fire(e)
			}
			current := m.State()
			for _, s := range allStates {
				if current == s {
					return true
				}
			}
			return false
		},
		gen.SliceOf(genEvent),
	))

	properties.Property("rejected events never move the machine", prop.ForAll(
		func(events []Event, probe Event) bool {
			m := NewMachine()
			for _, e := range events {
				m.Fire(e)
			}
			before := m.State()
			if _, err := m.Fire(probe); err != nil {
				return errors.Is(err, ErrInvalidTransition) && m.State() == before
			}
			_, whitelisted := transitions[stateEvent{before, probe}]
			return whitelisted
		},
		gen.SliceOf(genEvent), genEvent,
	))

	properties.Property("IDLE context is always empty", prop.ForAll(
		func(events []Event) bool {
			m := NewMachine()
			for _, e := range events {
				m.Fire(e)
			}
			if m.State() != StateIdle {
				return true
			}
			ctx := m.Context()
			return ctx.PendingPlan == nil && ctx.Transcript == "" && ctx.ConfirmationAttempts == 0
		},
		gen.SliceOf(genEvent),
	))

	properties.TestingRun(t)
}
