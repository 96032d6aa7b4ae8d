// Package engine is the service layer of the command firewall.
//
// An Engine owns the live trie, loads it from a rules.Source and decides
// commands with Check. Each decision is counted, logged, and handed to the
// optional Recorder, Metrics and Tracer hooks:
//
//	eng, err := engine.NewEngine(cfg.Firewall, rules.NewFileSource(path, logger),
//	    engine.WithLogger(logger),
//	    engine.WithRecorder(rec),
//	    engine.WithMetrics(collector),
//	    engine.WithTracer(tracer),
//	)
//	d, err := eng.Check(ctx, engine.Request{Command: "/give @s minecraft:dirt 10", Source: "command_block"})
//
// Reload swaps the rule set atomically and keeps the old rules when loading
// fails. While the firewall is disabled every command is allowed with reason
// "firewall disabled".
package engine
