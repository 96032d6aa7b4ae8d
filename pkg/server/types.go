package server

import (
	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/firewall/engine"
)

// CheckRequest is the body of POST /v1/check. Coordinates are optional and
// only recorded when all three are present.
type CheckRequest struct {
	Command string   `json:"command"`
	Source  string   `json:"source,omitempty"`
	World   string   `json:"world,omitempty"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	Z       *float64 `json:"z,omitempty"`
}

func (r CheckRequest) toEngine() engine.Request {
	req := engine.Request{
		Command: r.Command,
		Source:  r.Source,
		World:   r.World,
	}
	if r.X != nil && r.Y != nil && r.Z != nil {
		req.Position = &audit.Position{X: *r.X, Y: *r.Y, Z: *r.Z}
	}
	return req
}

// CheckResponse is the verdict returned by POST /v1/check.
type CheckResponse struct {
	ID         string  `json:"id"`
	Allowed    bool    `json:"allowed"`
	Reason     string  `json:"reason"`
	Rule       string  `json:"rule,omitempty"`
	Validator  string  `json:"validator,omitempty"`
	DurationMs float64 `json:"duration_ms"`

	// DestroyBlock tells the hook to remove the command block.
	DestroyBlock bool `json:"destroy_block,omitempty"`
}

func newCheckResponse(d *engine.Decision) CheckResponse {
	return CheckResponse{
		ID:           d.ID,
		Allowed:      d.Allowed,
		Reason:       d.Reason,
		Rule:         d.Rule(),
		Validator:    d.Validator,
		DurationMs:   float64(d.Duration.Microseconds()) / 1000,
		DestroyBlock: d.DestroyBlock,
	}
}

// RulesResponse is returned by GET /v1/rules.
type RulesResponse struct {
	Source string   `json:"source"`
	Count  int      `json:"count"`
	Rules  []string `json:"rules"`
}

// ReloadResponse is returned by POST /v1/reload.
type ReloadResponse struct {
	Status string `json:"status"`
	Rules  int    `json:"rules"`
}

// AuditResponse is returned by GET /v1/audit.
type AuditResponse struct {
	Total   int64           `json:"total"`
	Records []*audit.Record `json:"records"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
