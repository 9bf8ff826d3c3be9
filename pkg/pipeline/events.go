package pipeline

// EventName identifies a pipeline milestone.
type EventName string

// Milestone events observable via On.
const (
	EventCommandReceived    EventName = "command_received"
	EventIntentRecognized   EventName = "intent_recognized"
	EventPlanReady          EventName = "plan_ready"
	EventPolicyEvaluated    EventName = "policy_evaluated"
	EventConfirmationNeeded EventName = "confirmation_needed"
	EventExecutionComplete  EventName = "execution_complete"
	EventErrorOccurred      EventName = "error"
	EventReset              EventName = "reset"
)

// Callback observes one milestone. A panicking callback is isolated at
// the emit site and never disturbs command processing.
type Callback func(event EventName, payload map[string]any)

// On registers a callback and returns its subscription id.
func (p *Pipeline) On(event EventName, cb Callback) int {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()
	if p.callbacks[event] == nil {
		p.callbacks[event] = make(map[int]Callback)
	}
	p.nextCBID++
	p.callbacks[event][p.nextCBID] = cb
	return p.nextCBID
}

// Off removes a subscription. Reports whether it existed.
func (p *Pipeline) Off(event EventName, id int) bool {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()
	subs, ok := p.callbacks[event]
	if !ok {
		return false
	}
	if _, ok := subs[id]; !ok {
		return false
	}
	delete(subs, id)
	return true
}

func (p *Pipeline) emit(event EventName, payload map[string]any) {
	p.cbMu.Lock()
	subs := make([]Callback, 0, len(p.callbacks[event]))
	for _, cb := range p.callbacks[event] {
		subs = append(subs, cb)
	}
	p.cbMu.Unlock()

	for _, cb := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("event callback panicked", "event", event, "panic", r)
				}
			}()
			cb(event, payload)
		}()
	}
}
