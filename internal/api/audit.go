package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nerrad567/telemetry-core/internal/audit"
)

// handleListAudit returns rule set changes, newest first.
//
// Query parameters: action, watch, do, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeJSON(w, http.StatusOK, audit.ListResult{Entries: []audit.Entry{}})
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action: q.Get("action"),
		Watch:  q.Get("watch"),
		Do:     q.Get("do"),
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit entries",
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "failed to list audit entries")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

// recordAudit stores a rule change. Failures are logged and never fail the
// request that made the change.
func (s *Server) recordAudit(ctx context.Context, action, watch, do string, details any) {
	if s.audit == nil {
		return
	}

	entry := &audit.Entry{
		Action: action,
		Watch:  watch,
		Do:     do,
		Source: audit.SourceAPI,
	}
	if claims := claimsFromContext(ctx); claims != nil {
		entry.Subject = claims.Subject
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = raw
		}
	}

	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit entry",
			"action", action,
			"watch", watch,
			"do", do,
			"error", err,
		)
	}
}
