package api

import (
	"net/http"

	"github.com/nerrad567/telemetry-core/internal/automation"
)

// handleValues returns the most recent value seen on every channel.
func (s *Server) handleValues(w http.ResponseWriter, _ *http.Request) {
	values := map[string]float64{}
	if s.values != nil {
		values = s.values.Snapshot()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"values": values,
		"count":  len(values),
	})
}

// handleTriggers returns the delayed rules currently armed.
func (s *Server) handleTriggers(w http.ResponseWriter, _ *http.Request) {
	triggers := []automation.PendingTrigger{}
	if s.triggers != nil {
		if pending := s.triggers.PendingTriggers(); pending != nil {
			triggers = pending
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"triggers": triggers,
		"count":    len(triggers),
	})
}
