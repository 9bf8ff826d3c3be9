// Package pipeline wires the command-processing stages into one flow:
// parse, plan, evaluate, confirm, execute, audit. It owns the
// suspend/resume confirmation protocol and emits an observable event
// at every milestone.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/asphodel42/amadeus/pkg/contracts"
	"github.com/asphodel42/amadeus/pkg/executor"
	"github.com/asphodel42/amadeus/pkg/ledger"
	"github.com/asphodel42/amadeus/pkg/nlu"
	"github.com/asphodel42/amadeus/pkg/observability"
	"github.com/asphodel42/amadeus/pkg/planner"
	"github.com/asphodel42/amadeus/pkg/policy"
	"github.com/asphodel42/amadeus/pkg/providers"
	"github.com/asphodel42/amadeus/pkg/session"
)

// Config tunes pipeline behavior.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type Config struct {
	// DryRunByDefault simulates every plan unless overridden per call.
	DryRunByDefault bool

	// ConfirmationTimeout expires a pending plan parked in REVIEWING.
	ConfirmationTimeout time.Duration

	// MaxConfirmationAttempts bounds failed confirmation responses
	// before the pending plan is cancelled.
	MaxConfirmationAttempts int

	// CommandTimeout bounds plan execution for one command. Zero or
	// negative disables the deadline.
	CommandTimeout time.Duration

	// PasscodeDigest enables PASSCODE confirmations when non-empty.
	// See PasscodeDigest for the derivation.
	PasscodeDigest string

	// IntakeRate and IntakeBurst bound command intake. The protocol is
	// one command at a time; the limiter additionally absorbs bursts
	// from a runaway upstream transcriber.
	IntakeRate  float64
	IntakeBurst int
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		ConfirmationTimeout:     30 * time.Second,
		MaxConfirmationAttempts: 3,
		CommandTimeout:          60 * time.Second,
		IntakeRate:              2,
		IntakeBurst:             4,
	}
}

// Result is the outcome of processing one command.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type Result struct {
	Success  bool                        `json:"success"`
	Request  contracts.CommandRequest    `json:"request"`
	Intent   *contracts.Intent           `json:"intent,omitempty"`
	Plan     *contracts.ActionPlan       `json:"plan,omitempty"`
	Decision *contracts.PolicyDecision   `json:"decision,omitempty"`
	Results  []contracts.ExecutionResult `json:"results,omitempty"`

	// ConfirmationRequired is the suspension sentinel: the plan is
	// parked and a later CONFIRM or DENY command resumes it. Callers
	// branch on this field, never on Error text.
	ConfirmationRequired bool                       `json:"confirmation_required,omitempty"`
	ConfirmationType     contracts.ConfirmationType `json:"confirmation_type,omitempty"`
	ConfirmationPhrase   string                     `json:"confirmation_phrase,omitempty"`

	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Options modifies a single ProcessText call.
type Options struct {
	DryRun           bool
	SkipConfirmation bool

	// Passcode is checked against the configured digest when the
	// pending decision demands PASSCODE confirmation.
	Passcode string
}

// Pipeline orchestrates one session's command flow. One command is
// processed to completion (or to its suspension point) at a time.
type Pipeline struct {
	cfg      Config
	parser   *nlu.Parser
	planner  *planner.Planner
	engine   *policy.Engine
	executor *executor.Executor
	machine  *session.Machine
	ledger   ledger.Ledger
	obs      *observability.Provider
	log      *slog.Logger
	limiter  *rate.Limiter
	clock    func() time.Time

	// capabilities is nil in system-level local mode; a manifest's
	// capability set enables plugin-scoped policy evaluation.
	capabilities []contracts.Capability

	mu              sync.Mutex
	pendingRequest  *contracts.CommandRequest
	pendingDecision *contracts.PolicyDecision
	pendingSince    time.Time

	cbMu      sync.Mutex
	callbacks map[EventName]map[int]Callback
	nextCBID  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(p *Pipeline) { p.cfg = cfg }
}

// WithParser replaces the intent parser.
func WithParser(parser *nlu.Parser) Option {
	return func(p *Pipeline) { p.parser = parser }
}

// WithPlanner replaces the planner.
func WithPlanner(pl *planner.Planner) Option {
	return func(p *Pipeline) { p.planner = pl }
}

// WithEngine replaces the policy engine.
func WithEngine(engine *policy.Engine) Option {
	return func(p *Pipeline) { p.engine = engine }
}

// WithExecutor replaces the executor.
func WithExecutor(ex *executor.Executor) Option {
	return func(p *Pipeline) { p.executor = ex }
}

// WithLedger replaces the audit ledger.
func WithLedger(l ledger.Ledger) Option {
	return func(p *Pipeline) { p.ledger = l }
}

// WithCapabilities switches the policy engine into plugin-scoped mode.
func WithCapabilities(caps []contracts.Capability) Option {
	return func(p *Pipeline) { p.capabilities = caps }
}

// WithObservability attaches a telemetry provider.
func WithObservability(obs *observability.Provider) Option {
	return func(p *Pipeline) { p.obs = obs }
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// New builds a pipeline with local providers and an in-memory ledger
// unless options say otherwise.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:       DefaultConfig(),
		machine:   session.NewMachine(),
		log:       slog.Default().With("component", "pipeline"),
		clock:     func() time.Time { return time.Now().UTC() },
		callbacks: make(map[EventName]map[int]Callback),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.parser == nil {
		p.parser = nlu.NewParser()
	}
	if p.planner == nil {
		p.planner = planner.New(planner.DefaultConfig())
	}
	if p.engine == nil {
		engine, err := policy.NewEngine(policy.DefaultRules())
		if err != nil {
			return nil, fmt.Errorf("build policy engine: %w", err)
		}
		p.engine = engine
	}
	if p.executor == nil {
		set := providers.NewLocal()
		set.FS = providers.NewConfinedFS(set.FS, planner.DefaultConfig().AllowedDirectories)
		registry, err := providers.NewRegistry(set)
		if err != nil {
			return nil, fmt.Errorf("build provider registry: %w", err)
		}
		p.executor = executor.New(registry, executor.DefaultConfig())
	}
	if p.ledger == nil {
		p.ledger = ledger.NewMemory()
	}
	if p.obs == nil {
		obs, err := observability.New(context.Background(), &observability.Config{Enabled: false})
		if err != nil {
			return nil, fmt.Errorf("build observability provider: %w", err)
		}
		p.obs = obs
	}
	if p.cfg.MaxConfirmationAttempts <= 0 {
		p.cfg.MaxConfirmationAttempts = 3
	}
	if p.cfg.ConfirmationTimeout <= 0 {
		p.cfg.ConfirmationTimeout = 30 * time.Second
	}
	if p.cfg.IntakeRate <= 0 {
		p.cfg.IntakeRate = 2
	}
	if p.cfg.IntakeBurst <= 0 {
		p.cfg.IntakeBurst = 4
	}
	p.limiter = rate.NewLimiter(rate.Limit(p.cfg.IntakeRate), p.cfg.IntakeBurst)
	return p, nil
}

// ProcessText runs one command through the full pipeline.
func (p *Pipeline) ProcessText(ctx context.Context, text string, opts Options) Result {
	start := p.clock()

	if !p.limiter.Allow() {
		return Result{
			Error:    "command rate exceeded, try again shortly",
			Duration: p.clock().Sub(start),
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, span := p.obs.StartSpan(ctx, "pipeline.process")
	defer span.End()

	p.obs.SessionStarted(ctx)
	defer p.obs.SessionEnded(ctx)

	p.expirePendingLocked(ctx)

	// Recover from a previous failure before accepting input.
	if p.machine.Is(session.StateError) {
		if _, err := p.machine.Fire(session.EventReset); err != nil {
			p.log.Warn("error-state reset failed", "error", err)
		}
	}
	if p.machine.Is(session.StateIdle) {
		if _, err := p.machine.Fire(session.EventPushToTalk); err != nil {
			return p.fail(ctx, start, Result{}, err.Error())
		}
	}
	if p.machine.Is(session.StateListening) {
		p.machine.SetTranscript(text)
		if _, err := p.machine.Fire(session.EventAudioComplete); err != nil {
			return p.fail(ctx, start, Result{}, err.Error())
		}
	}

	request := contracts.NewCommandRequest(text, contracts.SourceText)
	p.emit(EventCommandReceived, map[string]any{"request": request})
	p.audit(ctx, "command_received", map[string]any{
		"request_id": request.ID,
		"text":       request.RawText,
		"source":     string(request.Source),
	})

	intent := p.parser.Parse(request)
	p.emit(EventIntentRecognized, map[string]any{"intent": intent})
	p.audit(ctx, "intent_recognized", map[string]any{
		"request_id": request.ID,
		"intent":     string(intent.Type),
		"confidence": intent.Confidence,
	})

	// A pending plan absorbs the next command as a confirmation
	// response.
	if p.pendingDecision != nil && p.machine.Is(session.StateReviewing) {
		return p.resumePending(ctx, start, request, intent, text, opts)
	}
	if intent.Type == contracts.IntentConfirm {
		return p.fail(ctx, start, Result{Request: request, Intent: &intent}, "no pending action to confirm")
	}
	if intent.Type == contracts.IntentDeny {
		return p.fail(ctx, start, Result{Request: request, Intent: &intent}, "no pending action to cancel")
	}

	if intent.IsUnknown() {
		p.fireError()
		p.obs.RecordCommand(ctx, string(intent.Type), false)
		return p.fail(ctx, start, Result{Request: request, Intent: &intent}, "could not understand the command")
	}

	plan := p.planner.CreatePlan(intent, opts.DryRun || p.cfg.DryRunByDefault)
	p.emit(EventPlanReady, map[string]any{"plan": plan})
	p.audit(ctx, "plan_ready", map[string]any{
		"request_id": request.ID,
		"plan_id":    plan.ID,
		"actions":    len(plan.Actions),
		"max_risk":   string(plan.MaxRisk()),
		"dry_run":    plan.DryRun,
	})

	if plan.IsEmpty() {
		p.fireError()
		return p.fail(ctx, start, Result{Request: request, Intent: &intent, Plan: &plan}, "no actions planned for this command")
	}

	decision := p.engine.Evaluate(plan, p.capabilities)
	p.emit(EventPolicyEvaluated, map[string]any{"decision": decision})
	p.audit(ctx, "policy_evaluated", map[string]any{
		"request_id":   request.ID,
		"plan_id":      plan.ID,
		"allowed":      decision.Allowed,
		"confirmation": string(decision.ConfirmationType),
	})

	if !decision.Allowed {
		p.fireError()
		p.obs.RecordDenial(ctx, "policy")
		p.audit(ctx, "policy_denied", map[string]any{
			"request_id": request.ID,
			"plan_id":    plan.ID,
			"reason":     decision.Reason,
		})
		return p.fail(ctx, start,
			Result{Request: request, Intent: &intent, Plan: &plan, Decision: &decision},
			"policy denied: "+decision.Reason)
	}

	if decision.RequiresConfirmation && !opts.SkipConfirmation {
		return p.suspend(ctx, start, request, intent, plan, decision)
	}

	// Confirmed implicitly (skip) or never needed.
	if decision.RequiresConfirmation {
		if _, err := p.machine.Fire(session.EventPlanReady); err != nil {
			return p.fail(ctx, start, Result{Request: request, Intent: &intent, Plan: &plan}, err.Error())
		}
		if _, err := p.machine.Fire(session.EventConfirm); err != nil {
			return p.fail(ctx, start, Result{Request: request, Intent: &intent, Plan: &plan}, err.Error())
		}
	} else {
		if _, err := p.machine.Fire(session.EventPlanSafe); err != nil {
			return p.fail(ctx, start, Result{Request: request, Intent: &intent, Plan: &plan}, err.Error())
		}
	}

	return p.runPlan(ctx, start, request, intent, plan, &decision)
}

// suspend parks a plan pending user confirmation.
func (p *Pipeline) suspend(ctx context.Context, start time.Time, request contracts.CommandRequest, intent contracts.Intent, plan contracts.ActionPlan, decision contracts.PolicyDecision) Result {
	if _, err := p.machine.Fire(session.EventPlanReady); err != nil {
		return p.fail(ctx, start, Result{Request: request, Intent: &intent, Plan: &plan}, err.Error())
	}
	p.machine.SetPendingPlan(&plan)
	p.pendingRequest = &request
	p.pendingDecision = &decision
	p.pendingSince = p.clock()

	phrase := p.engine.ConfirmationPhrase(plan)
	p.emit(EventConfirmationNeeded, map[string]any{
		"plan":     plan,
		"decision": decision,
		"phrase":   phrase,
	})
	p.audit(ctx, "confirmation_needed", map[string]any{
		"request_id":   request.ID,
		"plan_id":      plan.ID,
		"confirmation": string(decision.ConfirmationType),
		"max_risk":     string(plan.MaxRisk()),
	})
	p.log.Info("confirmation required",
		"plan_id", plan.ID,
		"risk", plan.MaxRisk(),
		"confirmation", decision.ConfirmationType,
	)

	return Result{
		Request:              request,
		Intent:               &intent,
		Plan:                 &plan,
		Decision:             &decision,
		ConfirmationRequired: true,
		ConfirmationType:     decision.ConfirmationType,
		ConfirmationPhrase:   phrase,
		Duration:             p.clock().Sub(start),
	}
}

// resumePending resolves a confirmation response against the parked
// plan: execute it, cancel it, or count a failed attempt.
func (p *Pipeline) resumePending(ctx context.Context, start time.Time, request contracts.CommandRequest, intent contracts.Intent, text string, opts Options) Result {
	plan := p.machine.PendingPlan()
	decision := p.pendingDecision
	if plan == nil || decision == nil {
		p.clearPending()
		return p.fail(ctx, start, Result{Request: request, Intent: &intent}, "no pending action to confirm")
	}

	if intent.Type == contracts.IntentDeny {
		if _, err := p.machine.Fire(session.EventDeny); err != nil {
			return p.fail(ctx, start, Result{Request: request, Intent: &intent}, err.Error())
		}
		p.clearPending()
		p.log.Info("pending plan denied by user", "plan_id", plan.ID)
		return Result{
			Success:  true,
			Request:  request,
			Intent:   &intent,
			Plan:     plan,
			Error:    "action cancelled by user",
			Duration: p.clock().Sub(start),
		}
	}

	if !p.confirmationSatisfied(*decision, intent, text, opts) {
		attempts := p.machine.RecordConfirmationAttempt()
		if attempts >= p.cfg.MaxConfirmationAttempts {
			if _, err := p.machine.Fire(session.EventCancel); err != nil {
				p.log.Warn("cancel after failed confirmations failed", "error", err)
			}
			p.clearPending()
			return p.fail(ctx, start, Result{Request: request, Intent: &intent, Plan: plan},
				"too many failed confirmation attempts, action cancelled")
		}
		return Result{
			Request:              request,
			Intent:               &intent,
			Plan:                 plan,
			Decision:             decision,
			ConfirmationRequired: true,
			ConfirmationType:     decision.ConfirmationType,
			ConfirmationPhrase:   p.engine.ConfirmationPhrase(*plan),
			Error:                "confirmation did not match, please confirm or cancel",
			Duration:             p.clock().Sub(start),
		}
	}

	if _, err := p.machine.Fire(session.EventConfirm); err != nil {
		return p.fail(ctx, start, Result{Request: request, Intent: &intent}, err.Error())
	}
	pendingRequest := p.pendingRequest
	confirmed := *plan
	p.clearPending()
	p.log.Info("pending plan confirmed", "plan_id", confirmed.ID)
	if pendingRequest != nil {
		request = *pendingRequest
	}
	return p.runPlan(ctx, start, request, intent, confirmed, decision)
}

// confirmationSatisfied checks a response against the demanded
// confirmation strength.
func (p *Pipeline) confirmationSatisfied(decision contracts.PolicyDecision, intent contracts.Intent, text string, opts Options) bool {
	switch decision.ConfirmationType {
	case contracts.ConfirmationTyped:
		phrase := p.engine.ConfirmationPhrase(*p.machine.PendingPlan())
		return phrase != "" && strings.EqualFold(strings.TrimSpace(text), phrase)
	case contracts.ConfirmationPasscode:
		return intent.Type == contracts.IntentConfirm &&
			verifyPasscode(p.cfg.PasscodeDigest, opts.Passcode)
	default:
		return intent.Type == contracts.IntentConfirm
	}
}

// runPlan executes (or simulates) an approved plan and settles the
// session back to IDLE.
func (p *Pipeline) runPlan(ctx context.Context, start time.Time, request contracts.CommandRequest, intent contracts.Intent, plan contracts.ActionPlan, decision *contracts.PolicyDecision) Result {
	execCtx := ctx
	if p.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, p.cfg.CommandTimeout)
		defer cancel()
	}
	results := p.executor.ExecutePlan(execCtx, plan)

	p.emit(EventExecutionComplete, map[string]any{"results": results})
	statuses := make([]string, len(results))
	for i, r := range results {
		statuses[i] = string(r.Status)
	}
	p.audit(ctx, "execution_complete", map[string]any{
		"request_id": request.ID,
		"plan_id":    plan.ID,
		"statuses":   statuses,
	})

	allSuccess := true
	for _, r := range results {
		if !r.Succeeded() {
			allSuccess = false
			break
		}
	}

	if allSuccess {
		if _, err := p.machine.Fire(session.EventComplete); err != nil {
			p.log.Warn("completion transition failed", "error", err)
		}
	} else {
		p.fireError()
	}

	duration := p.clock().Sub(start)
	p.obs.RecordCommand(ctx, string(intent.Type), allSuccess)
	p.obs.RecordDuration(ctx, duration, string(intent.Type))

	res := Result{
		Success:  allSuccess,
		Request:  request,
		Intent:   &intent,
		Plan:     &plan,
		Decision: decision,
		Results:  results,
		Duration: duration,
	}
	if !allSuccess {
		res.Error = firstFailure(results)
	}
	return res
}

// firstFailure summarizes the first non-successful result.
func firstFailure(results []contracts.ExecutionResult) string {
	for _, r := range results {
		if r.Succeeded() || r.Status == contracts.StatusCancelled {
			continue
		}
		if r.Error != "" {
			return fmt.Sprintf("%s: %s", strings.ToLower(string(r.Status)), r.Error)
		}
		return strings.ToLower(string(r.Status))
	}
	return "execution failed"
}

// expirePendingLocked abandons a pending plan whose confirmation
// window has closed.
func (p *Pipeline) expirePendingLocked(ctx context.Context) {
	if p.pendingDecision == nil || p.pendingSince.IsZero() {
		return
	}
	if p.clock().Sub(p.pendingSince) < p.cfg.ConfirmationTimeout {
		return
	}
	planID := ""
	if plan := p.machine.PendingPlan(); plan != nil {
		planID = plan.ID
	}
	if _, err := p.machine.Fire(session.EventTimeout); err != nil {
		p.log.Warn("confirmation timeout transition failed", "error", err)
	}
	p.clearPending()
	p.audit(ctx, "reset", map[string]any{"reason": "confirmation_timeout", "plan_id": planID})
	p.log.Info("pending plan expired", "plan_id", planID)
}

func (p *Pipeline) clearPending() {
	p.pendingRequest = nil
	p.pendingDecision = nil
	p.pendingSince = time.Time{}
}

// fireError drives the machine to ERROR unless already idle. The next
// command resets it.
func (p *Pipeline) fireError() {
	if p.machine.Is(session.StateIdle) || p.machine.Is(session.StateError) {
		return
	}
	if _, err := p.machine.Fire(session.EventError); err != nil {
		p.log.Warn("error transition failed", "state", p.machine.State(), "error", err)
	}
}

// fail finalizes a non-successful result and raises the error event.
func (p *Pipeline) fail(ctx context.Context, start time.Time, partial Result, msg string) Result {
	partial.Success = false
	partial.Error = msg
	partial.Duration = p.clock().Sub(start)
	p.emit(EventErrorOccurred, map[string]any{"error": msg})
	p.audit(ctx, "error", map[string]any{"error": msg})
	return partial
}

// State returns the session's current protocol state.
func (p *Pipeline) State() session.State {
	return p.machine.State()
}

// SessionContext returns a snapshot of the session working set.
func (p *Pipeline) SessionContext() session.Context {
	return p.machine.Context()
}

// Reset unconditionally returns the session to IDLE. Operator
// recovery only.
func (p *Pipeline) Reset(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.machine.ForceReset()
	p.clearPending()
	p.emit(EventReset, map[string]any{})
	p.audit(ctx, "reset", map[string]any{"reason": "forced"})
}

// Ledger exposes the audit ledger for query surfaces.
func (p *Pipeline) Ledger() ledger.Ledger { return p.ledger }

// audit appends a milestone to the ledger. Audit failures are logged,
// never propagated into the command result.
func (p *Pipeline) audit(ctx context.Context, eventType string, payload map[string]any) {
	if p.ledger == nil {
		return
	}
	if _, err := p.ledger.Append(ctx, eventType, "user", payload); err != nil {
		p.log.Error("audit append failed", "event", eventType, "error", err)
	}
}
