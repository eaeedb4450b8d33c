package automation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// RuleSource supplies the rules watching a channel.
type RuleSource interface {
	RulesFor(watch string) []Rule
}

// ActionExecutor carries out a fired rule.
type ActionExecutor interface {
	Execute(ctx context.Context, rule Rule) error
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// Event channels broadcast by the engine.
const (
	EventRuleFired    = "automation.fired"
	EventRuleArmed    = "automation.armed"
	EventRuleCleared  = "automation.cleared"
	EventActionFailed = "automation.failed"
)

// Trigger values reported in fired events.
const (
	TriggerImmediate = "immediate"
	TriggerDelayed   = "delayed"
)

// EngineConfig holds optional engine collaborators and behaviour switches.
type EngineConfig struct {
	// DelayedRevalidate makes a delayed rule re-check the last known watch
	// value when its delay elapses, and skip firing if it dropped below the
	// threshold.
	DelayedRevalidate bool

	// Hub receives engine events. May be nil.
	Hub WSHub

	// Metrics records engine counters. May be nil.
	Metrics *Metrics
}

// PendingTrigger describes an armed delayed rule.
type PendingTrigger struct {
	Watch   string    `json:"watch"`
	Do      string    `json:"do"`
	DoValue float64   `json:"do_value"`
	ArmedAt time.Time `json:"armed_at"`
	FireAt  time.Time `json:"fire_at"`
}

type pendingTrigger struct {
	rule    Rule
	armedAt time.Time
	fireAt  time.Time
	cancel  context.CancelFunc
}

// Engine evaluates incoming values against the rules watching their channel
// and executes the ones that fire. Delayed rules are tracked as pending
// triggers keyed by (watch, do); while one is pending, further qualifying
// values for the same rule are ignored.
//
// Thread Safety: HandleValue, PendingTriggers and Close are safe for
// concurrent use.
type Engine struct {
	rules      RuleSource
	tracker    *Tracker
	executor   ActionExecutor
	hub        WSHub
	metrics    *Metrics
	revalidate bool
	logger     Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu      sync.Mutex
	pending map[RuleKey]*pendingTrigger
	closed  bool
	wg      sync.WaitGroup
}

// NewEngine creates a rule engine. The tracker is read when a delayed rule
// is revalidated and should be the one the ingest path updates.
func NewEngine(rules RuleSource, tracker *Tracker, executor ActionExecutor, cfg EngineConfig, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		rules:      rules,
		tracker:    tracker,
		executor:   executor,
		hub:        cfg.Hub,
		metrics:    cfg.Metrics,
		revalidate: cfg.DelayedRevalidate,
		logger:     logger,
		baseCtx:    ctx,
		cancelBase: cancel,
		pending:    make(map[RuleKey]*pendingTrigger),
	}
}

// HandleValue evaluates every rule watching channel against the transition
// previous -> current. Immediate rules execute before HandleValue returns;
// delayed rules are armed and fire from their own goroutine.
func (e *Engine) HandleValue(ctx context.Context, channel string, previous Reading, current float64) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrEngineClosed
	}

	for _, rule := range e.rules.RulesFor(channel) {
		fired := Evaluate(rule, previous, current)
		e.metrics.observeEvaluation(rule.Kind(), fired)
		if !fired {
			continue
		}

		if cond, ok := rule.Condition.(Delayed); ok {
			e.arm(rule, cond)
			continue
		}
		e.fire(ctx, rule, TriggerImmediate)
	}
	return nil
}

// PendingTriggers returns the armed delayed rules, ordered by watch then do.
func (e *Engine) PendingTriggers() []PendingTrigger {
	e.mu.Lock()
	out := make([]PendingTrigger, 0, len(e.pending))
	for _, p := range e.pending {
		out = append(out, PendingTrigger{
			Watch:   p.rule.Watch,
			Do:      p.rule.Do,
			DoValue: p.rule.DoValue,
			ArmedAt: p.armedAt,
			FireAt:  p.fireAt,
		})
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Watch != out[j].Watch {
			return out[i].Watch < out[j].Watch
		}
		return out[i].Do < out[j].Do
	})
	return out
}

// PendingCount returns the number of armed delayed rules.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Close cancels all pending triggers and waits for their goroutines to exit.
// Cancelled triggers do not fire.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, p := range e.pending {
		p.cancel()
	}
	e.mu.Unlock()

	e.cancelBase()
	e.wg.Wait()
}

// arm starts the delay for rule unless a trigger for it is already pending.
func (e *Engine) arm(rule Rule, cond Delayed) {
	key := rule.Key()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if _, ok := e.pending[key]; ok {
		e.metrics.observeDebounced()
		e.logger.Debug("delayed rule already pending", "rule", key.String())
		return
	}

	now := time.Now()
	ctx, cancel := context.WithCancel(e.baseCtx)
	p := &pendingTrigger{
		rule:    rule,
		armedAt: now,
		fireAt:  now.Add(cond.Delay),
		cancel:  cancel,
	}
	e.pending[key] = p
	e.metrics.setPending(len(e.pending))

	e.logger.Info("delayed rule armed", "rule", key.String(), "delay", cond.Delay)
	e.broadcast(EventRuleArmed, map[string]any{
		"watch":   rule.Watch,
		"do":      rule.Do,
		"fire_at": p.fireAt,
	})

	e.wg.Add(1)
	go e.runPending(ctx, p, cond)
}

func (e *Engine) runPending(ctx context.Context, p *pendingTrigger, cond Delayed) {
	defer e.wg.Done()
	defer e.release(p)

	timer := time.NewTimer(cond.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		e.logger.Debug("delayed rule cancelled", "rule", p.rule.Key().String())
		return
	case <-timer.C:
	}

	if e.revalidate {
		last := e.tracker.Get(p.rule.Watch)
		if !last.Known || last.Value < cond.Threshold {
			e.metrics.observeCleared()
			e.logger.Info("delayed rule condition cleared before firing",
				"rule", p.rule.Key().String(),
				"value", last.Value,
				"threshold", cond.Threshold,
			)
			e.broadcast(EventRuleCleared, map[string]any{
				"watch": p.rule.Watch,
				"do":    p.rule.Do,
				"value": last.Value,
			})
			return
		}
	}

	e.fire(ctx, p.rule, TriggerDelayed)
}

// release removes p from the pending set so the rule can arm again.
func (e *Engine) release(p *pendingTrigger) {
	p.cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	key := p.rule.Key()
	if e.pending[key] == p {
		delete(e.pending, key)
	}
	e.metrics.setPending(len(e.pending))
}

func (e *Engine) fire(ctx context.Context, rule Rule, trigger string) {
	key := rule.Key().String()

	if err := e.executor.Execute(ctx, rule); err != nil {
		e.metrics.observeAction(trigger, false)
		e.logger.Error("automation action failed", "rule", key, "trigger", trigger, "error", err)
		e.broadcast(EventActionFailed, map[string]any{
			"watch": rule.Watch,
			"do":    rule.Do,
			"error": err.Error(),
		})
		return
	}

	e.metrics.observeAction(trigger, true)
	e.logger.Info("automation rule fired", "rule", key, "type", string(rule.Kind()), "trigger", trigger)
	e.broadcast(EventRuleFired, map[string]any{
		"watch":    rule.Watch,
		"do":       rule.Do,
		"do_value": rule.DoValue,
		"type":     rule.Kind(),
		"trigger":  trigger,
	})
}

func (e *Engine) broadcast(channel string, payload any) {
	if e.hub != nil {
		e.hub.Broadcast(channel, payload)
	}
}
