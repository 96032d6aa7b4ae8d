package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newnan/cbfirewall/pkg/audit"
)

// maxBodyBytes bounds the size of a check request.
const maxBodyBytes = 64 << 10

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	decision, err := s.deps.Engine.Check(r.Context(), req.toEngine())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newCheckResponse(decision))
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	rules := s.deps.Engine.Rules()
	writeJSON(w, http.StatusOK, RulesResponse{
		Source: s.deps.Engine.Source().Name(),
		Count:  len(rules),
		Rules:  rules,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Engine.Stats())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Engine.Reload(r.Context()); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "reload failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ReloadResponse{
		Status: "reloaded",
		Rules:  s.deps.Engine.Trie().RuleCount(),
	})
}

// handleAudit serves GET /v1/audit. Query parameters: limit, offset,
// source, world, command, allowed, since (duration), order.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	query, err := parseAuditQuery(r.URL.Query(), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.deps.Audit.Query(r.Context(), query)
	if err != nil {
		var qerr *audit.QueryError
		if errors.As(err, &qerr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.deps.Audit.Count(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AuditResponse{Total: total, Records: records})
}

func parseAuditQuery(v url.Values, now time.Time) (*audit.Query, error) {
	q := &audit.Query{
		Source:    v.Get("source"),
		World:     v.Get("world"),
		Command:   v.Get("command"),
		SortOrder: v.Get("order"),
	}

	for name, dst := range map[string]*int{"limit": &q.Limit, "offset": &q.Offset} {
		if raw := v.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %q", name, raw)
			}
			*dst = n
		}
	}

	if raw := v.Get("allowed"); raw != "" {
		allowed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed: %q", raw)
		}
		q.Allowed = &allowed
	}

	if raw := v.Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid since: %q", raw)
		}
		start := now.Add(-d)
		q.StartTime = &start
	}

	return q, nil
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}
