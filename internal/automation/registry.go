package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// Logger defines the logging interface used by the Registry and Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ruleSet is an immutable, committed view of all rules.
type ruleSet struct {
	rules   []Rule
	byWatch map[string][]Rule
}

func newRuleSet(rules []Rule) *ruleSet {
	s := &ruleSet{
		rules:   rules,
		byWatch: make(map[string][]Rule),
	}
	for _, r := range rules {
		s.byWatch[r.Watch] = append(s.byWatch[r.Watch], r)
	}
	return s
}

func (s *ruleSet) indexOf(key RuleKey) int {
	for i, r := range s.rules {
		if r.Key() == key {
			return i
		}
	}
	return -1
}

// Registry is the rule store. It keeps the committed rule set in memory and
// persists the whole set through a Repository on every change.
//
// Writers (Add, Remove, Load, ImportIfEmpty) are serialised by a single
// mutex and publish a new snapshot only after the repository accepted it.
// Readers (List, RulesFor) never block and always see a complete set.
type Registry struct {
	repo     Repository
	writeMu  sync.Mutex
	snapshot atomic.Pointer[ruleSet]
	logger   Logger
}

// NewRegistry creates an empty registry backed by repo.
// Call Load to populate it from storage.
func NewRegistry(repo Repository) *Registry {
	r := &Registry{
		repo:   repo,
		logger: noopLogger{},
	}
	r.snapshot.Store(newRuleSet(nil))
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Load replaces the in-memory rules with the persisted ones.
func (r *Registry) Load(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	rules, err := r.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	r.snapshot.Store(newRuleSet(dedupe(rules)))
	r.logger.Info("automation rules loaded", "count", len(rules))
	return nil
}

// Add validates and stores a rule. A rule with the same (watch, do) pair is
// replaced in place; otherwise the rule is appended. The rule set is
// persisted before Add returns.
func (r *Registry) Add(ctx context.Context, rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	cur := r.snapshot.Load()
	next := make([]Rule, len(cur.rules), len(cur.rules)+1)
	copy(next, cur.rules)

	replaced := false
	if i := cur.indexOf(rule.Key()); i >= 0 {
		next[i] = rule
		replaced = true
	} else {
		next = append(next, rule)
	}

	if err := r.commit(ctx, next); err != nil {
		return err
	}

	r.logger.Info("automation rule added",
		"watch", rule.Watch,
		"do", rule.Do,
		"type", rule.Kind(),
		"replaced", replaced,
	)
	return nil
}

// Remove deletes the rule for (watch, do). Returns ErrRuleNotFound if absent.
func (r *Registry) Remove(ctx context.Context, watch, do string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	cur := r.snapshot.Load()
	i := cur.indexOf(RuleKey{Watch: watch, Do: do})
	if i < 0 {
		return fmt.Errorf("%w: %s->%s", ErrRuleNotFound, watch, do)
	}

	next := make([]Rule, 0, len(cur.rules)-1)
	next = append(next, cur.rules[:i]...)
	next = append(next, cur.rules[i+1:]...)

	if err := r.commit(ctx, next); err != nil {
		return err
	}

	r.logger.Info("automation rule removed", "watch", watch, "do", do)
	return nil
}

// ImportIfEmpty stores rules only when the registry holds none.
// It returns how many rules were imported.
func (r *Registry) ImportIfEmpty(ctx context.Context, rules []Rule) (int, error) {
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return 0, err
		}
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if len(r.snapshot.Load().rules) > 0 || len(rules) == 0 {
		return 0, nil
	}

	next := dedupe(rules)
	if err := r.commit(ctx, next); err != nil {
		return 0, err
	}
	return len(next), nil
}

// commit persists rules and publishes them. Caller holds writeMu.
func (r *Registry) commit(ctx context.Context, rules []Rule) error {
	if err := r.repo.Save(ctx, rules); err != nil {
		return fmt.Errorf("persisting rules: %w", err)
	}
	r.snapshot.Store(newRuleSet(rules))
	return nil
}

// List returns a copy of all rules in insertion order.
func (r *Registry) List() []Rule {
	cur := r.snapshot.Load()
	out := make([]Rule, len(cur.rules))
	copy(out, cur.rules)
	return out
}

// RulesFor returns the rules watching channel. The returned slice is shared
// and must not be modified.
func (r *Registry) RulesFor(watch string) []Rule {
	return r.snapshot.Load().byWatch[watch]
}

// Count returns the number of stored rules.
func (r *Registry) Count() int {
	return len(r.snapshot.Load().rules)
}

// dedupe keeps the last rule for each (watch, do) pair at the position of
// its first occurrence.
func dedupe(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	pos := make(map[RuleKey]int, len(rules))
	for _, rule := range rules {
		if i, ok := pos[rule.Key()]; ok {
			out[i] = rule
			continue
		}
		pos[rule.Key()] = len(out)
		out = append(out, rule)
	}
	return out
}

// LoadRulesFile reads a JSON array of rules in wire shape, the format of the
// legacy automations.json file.
func LoadRulesFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	return rules, nil
}
