// Cbfirewall checks Minecraft command-block commands against an allow-list
// before they run.
//
// Commands are split into tokens and matched against a trie of allowed
// command prefixes. Arguments after the prefix are checked by validators for
// coordinates, target selectors, items and nested execute chains. Blocked
// commands are written to an audit log.
//
// Usage:
//
//	# Check a single command with the default rule set
//	cbfirewall check "give @s minecraft:dirt 10"
//
//	# Start the HTTP decision server
//	cbfirewall serve --config /etc/cbfirewall/config.yaml
//
//	# Run rule test cases
//	cbfirewall rules test cases.yaml --rules rules.yaml
//
//	# Show blocked commands from the audit database
//	cbfirewall audit query --blocked --since 24h
//
//	# Validate configuration and rule files
//	cbfirewall validate --rules rules.yaml
package main

func main() {
	Execute()
}
