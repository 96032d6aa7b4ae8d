// Package rules builds the firewall rule set from configuration and rule files.
//
// # Rule Sources
//
// A Source produces the complete list of trie rules on every load:
//
//   - DefaultSource builds rules for firewall.whitelist_commands, with argument
//     validators for give, tp, setblock, fill, summon and execute
//   - FileSource compiles a YAML rule file
//   - MemorySource compiles rule specs held in memory
//
// Sources receive a Builder, which carries the firewall limits used for any
// option a rule leaves unset and the command checker that execute validators
// recurse into. The checker is normally the trie the rules are loaded into:
//
//	t := trie.New()
//	rules, err := rules.NewFileSource("rules.yaml", logger).Load(ctx, rules.NewBuilder(cfg.Firewall, t))
//	if err != nil {
//	    return err
//	}
//	err = t.Replace(rules)
//
// # Rule Files
//
//	rules:
//	  - command: say
//	  - command: give
//	    aliases: ["minecraft:give"]
//	    validator:
//	      type: sequence
//	      children:
//	        - type: selector
//	          allowed: ["@s", "@p"]
//	        - type: item
//	          max_quantity: 16
//	  - command: execute
//	    validator:
//	      type: execute
//	      preset: strict
//
// Unknown fields are rejected. Compile errors are reported as *RuleError with
// the file, the entry index and the command.
//
// # Watching
//
// Watcher reloads on changes to a single rule file. Bursts of events are
// collapsed by a Debouncer.
//
// # Test Cases
//
// LoadCases and RunCases check a list of commands against expected verdicts,
// for use by "cbfirewall rules test".
package rules
