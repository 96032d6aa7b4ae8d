// Package scanner provides the whitespace tokenizer consumed by the command
// trie and every validator.
//
// A Scanner walks a command string token by token:
//
//	sc := scanner.New("tp @s ~ ~1 ~")
//	for tok, ok := sc.Next(); ok; tok, ok = sc.Next() {
//		fmt.Println(tok)
//	}
//
// Besides Next, the scanner offers Peek for one-token lookahead, Remaining to
// hand the unconsumed suffix to another matcher, Index/SetIndex to rewind to a
// saved position, and Sub to create an independent cursor for alternative
// branches that must not observe each other's consumption.
package scanner
