// Package validate implements the validators attached to command trie rules.
//
// A rule such as "give" in the command trie consumes only its literal tokens.
// When a validator is attached to the final token, the trie hands the scanner
// over and the validator decides whether the rest of the command is safe.
//
// # Validators
//
//   - Coordinate: a fixed number of relative (~), local (^) or absolute
//     coordinates within a configured range and the world border.
//   - Selector: one target selector (@s, @p, ...) restricted to an allow-list,
//     with per-key parameter checks, or a literal player name.
//   - Item: an item or block id checked against a deny-list and an allow-list,
//     optional {metadata} screened for dangerous keys, and an optional count.
//   - Execute: the execute sub-grammar (as, at, positioned, facing, rotated, in,
//     align, anchored) terminated by "run <command>", which recurses into the
//     root trie through a CommandChecker.
//   - Composite: AND/OR combination, each child on an independent sub-scanner.
//   - Sequence: children in order on the shared scanner.
//   - End: accepts only exhausted input.
//
// # Failure Model
//
// Every validator fails closed. Malformed numbers, NaN and infinities, missing
// tokens, unknown keywords and malformed brackets all reject; Base.Run also
// turns a panic into a rejection. The only bypass is SetEnabled(false), an
// operational override under which the validator accepts everything.
//
// # Concurrency
//
// Statistics are atomic and the execute nesting depth travels in the context
// (WithDepth / DepthFrom), so validators may be shared between goroutines.
// Scanners are not shared; each call owns its cursor.
package validate
