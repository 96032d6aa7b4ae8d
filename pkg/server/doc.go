// Package server exposes the firewall engine over HTTP.
//
// A game server plugin posts each command block command before running it:
//
//	POST /v1/check
//	{"command": "/give @p minecraft:diamond 64", "source": "command_block",
//	 "world": "overworld", "x": 10, "y": 64, "z": -3}
//
//	200 OK
//	{"id": "3f0c...", "allowed": false, "reason": "validator rejected",
//	 "rule": "give", "validator": "sequence", "duration_ms": 0.021}
//
// A rejected command is still a 200 response; non-2xx codes mean the
// request itself was bad.
//
// # Routes
//
//   - POST /v1/check: decide one command
//   - GET /v1/rules: list the live rule set
//   - GET /v1/stats: engine, trie and validator statistics
//   - POST /v1/reload: reload rules from their source
//   - GET /v1/audit: query the audit log (limit, offset, source, world,
//     command, allowed, since, order)
//   - GET /health, GET /ready, GET /version
//   - GET /metrics: Prometheus exposition
//
// API routes are wrapped with tracing and metrics middleware. Every request
// gets an X-Request-ID, which is attached to log records through the
// logging package.
package server
