// Package trie implements the token-level prefix tree that holds the allowed
// command rules.
//
// A rule is a sequence of literal tokens, optionally followed by a validator
// that takes over the remaining tokens:
//
//	t := trie.New()
//	t.AddCommandString("say", nil, nil) // "say ..." is always allowed
//	t.AddCommandString("tp", validate.NewCoordinate(validate.DefaultCoordinateConfig()), nil)
//	t.AddCommandString("execute", validate.NewExecute(t, validate.DefaultExecuteConfig()), nil)
//
//	t.IsCommandSafe("tp ~ ~1 ~")       // true
//	t.IsCommandSafe("tp 99999999 0 0") // false
//	t.IsCommandSafe("op alice")        // false, no rule
//
// # Matching
//
// IsCommandSafe walks tokens (case-insensitively) from the root. A token with
// no matching child rejects. The first node reached that carries a validator
// hands over the scanner and its verdict is final. The first terminal node
// reached allows the command even if tokens remain, so a literal rule acts as a
// prefix rule. Exhausting the input elsewhere rejects.
//
// # Concurrency
//
// Matching and read-only queries take the read lock; AddCommand, RemoveCommand,
// Clear, Replace and ResetStatistics take the write lock. Validators that
// recurse into the trie (the execute validator) pass along the context they
// received, which records that the read lock is already held so that it is not
// acquired twice. Counters are atomic and are only changed by matching.
package trie
