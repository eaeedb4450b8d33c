package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/telemetry-core/internal/audit"
	"github.com/nerrad567/telemetry-core/internal/automation"
)

// WebSocket event types for rule set changes.
const (
	EventRuleAdded   = "automation.rule_added"
	EventRuleRemoved = "automation.rule_removed"
)

func (s *Server) handleListAutomations(w http.ResponseWriter, _ *http.Request) {
	rules := s.rules.List()
	if rules == nil {
		rules = []automation.Rule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// handleAddAutomation stores a rule. A rule with the same (watch, do) pair
// is replaced.
func (s *Server) handleAddAutomation(w http.ResponseWriter, r *http.Request) {
	var rule automation.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		if errors.Is(err, automation.ErrInvalidRule) {
			writeValidationError(w, err.Error())
			return
		}
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.rules.Add(r.Context(), rule); err != nil {
		if errors.Is(err, automation.ErrInvalidRule) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("failed to add automation rule",
			"watch", rule.Watch,
			"do", rule.Do,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "failed to store rule")
		return
	}

	s.recordAudit(r.Context(), audit.ActionRuleAdded, rule.Watch, rule.Do, rule)
	s.hub.Broadcast(EventRuleAdded, rule)
	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "added",
		"rule":   rule,
	})
}

// handleRemoveAutomation deletes the rule named by the watch and do query
// parameters.
func (s *Server) handleRemoveAutomation(w http.ResponseWriter, r *http.Request) {
	watch := r.URL.Query().Get("watch")
	do := r.URL.Query().Get("do")
	if watch == "" || do == "" {
		writeBadRequest(w, "watch and do query parameters are required")
		return
	}

	if err := s.rules.Remove(r.Context(), watch, do); err != nil {
		if errors.Is(err, automation.ErrRuleNotFound) {
			writeNotFound(w, "Rule not found")
			return
		}
		s.logger.Error("failed to remove automation rule",
			"watch", watch,
			"do", do,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "failed to remove rule")
		return
	}

	s.recordAudit(r.Context(), audit.ActionRuleRemoved, watch, do, nil)
	key := automation.RuleKey{Watch: watch, Do: do}
	s.hub.Broadcast(EventRuleRemoved, key)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "deleted",
		"watch":  watch,
		"do":     do,
	})
}
