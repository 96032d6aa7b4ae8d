// Package health provides the liveness and readiness endpoints.
//
//   - /health: liveness, 200 while the process runs
//   - /ready: readiness, 200 when every registered check passes, 503 otherwise
//   - /version: build information
//
// The serve command registers one check per component:
//
//	checker := health.New(cfg.Telemetry.Health)
//	checker.RegisterCheck("engine", health.EngineCheck(eng))
//	checker.RegisterCheck("audit_storage", health.StorageCheck(store))
//
// Checks run concurrently, each bounded by HealthConfig.CheckTimeout.
package health
