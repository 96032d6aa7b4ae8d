// Package recorder queues audit records and writes them to storage in the
// background.
//
//	rec := recorder.NewRecorder(store, recorder.FromAuditConfig(cfg.Audit), logger)
//	defer rec.Close()
//
//	rec.Record(ctx, &audit.Record{Command: "op Steve", Reason: "no matching rule"})
//
// Blocked commands are always recorded. Allowed commands are recorded only
// when Config.RecordAllowed is set. When the buffer stays full for longer than
// WriteTimeout the record is dropped and counted in Stats.
package recorder
