package trie

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"newnan/cbfirewall/pkg/firewall/scanner"
	"newnan/cbfirewall/pkg/firewall/validate"
)

func mustAdd(t *testing.T, tr *Trie, command string, v validate.Validator) {
	t.Helper()
	if err := tr.AddCommandString(command, v, nil); err != nil {
		t.Fatalf("AddCommandString(%q): %v", command, err)
	}
}

func TestTrie_DefaultDeny(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "say", nil)
	mustAdd(t, tr, "time set day", nil)

	tests := []struct {
		command string
		want    bool
	}{
		{"say", true},
		{"say hello world", true},
		{"SAY Hello", true},
		{"time set day", true},
		{"time set", false},
		{"time set night", false},
		{"time", false},
		{"op alice", false},
		{"", false},
		{"   ", false},
		{"sayhello", false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			if got := tr.IsCommandSafe(tt.command); got != tt.want {
				t.Errorf("IsCommandSafe(%q) = %v, want %v", tt.command, got, tt.want)
			}
		})
	}

	if New().IsCommandSafe("say hi") {
		t.Error("empty trie accepted a command")
	}
}

func TestTrie_ValidatorTakesOver(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "tp", validate.NewCoordinate(validate.DefaultCoordinateConfig()))

	if !tr.IsCommandSafe("tp ~ ~1 ~") {
		t.Error("valid coordinates rejected")
	}
	if tr.IsCommandSafe("tp 99999999 0 0") {
		t.Error("out of range coordinates accepted")
	}
	if tr.IsCommandSafe("tp") {
		t.Error("missing coordinates accepted")
	}

	res := tr.Match(context.Background(), "tp 5000 0 0")
	if res.Allowed || res.Reason != ReasonValidatorRejected || res.Validator != "CoordinateValidator" {
		t.Errorf("Match() = %+v", res)
	}
	if !reflect.DeepEqual(res.Prefix, []string{"tp"}) {
		t.Errorf("Prefix = %v", res.Prefix)
	}
}

func TestTrie_ValidatorBeatsDeeperLiteral(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "give", validate.Reject())
	mustAdd(t, tr, "give @s dirt", nil)

	if tr.IsCommandSafe("give @s dirt") {
		t.Error("validator on a shorter prefix must decide")
	}
}

func TestTrie_MatchReasons(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "time set day", nil)
	mustAdd(t, tr, "tp", validate.Accept())

	tests := []struct {
		command string
		allowed bool
		reason  Reason
	}{
		{"time set day", true, ReasonLiteralMatch},
		{"time set", false, ReasonIncomplete},
		{"time add", false, ReasonNoRule},
		{"", false, ReasonEmpty},
		{"tp", true, ReasonValidatorAccepted},
	}

	for _, tt := range tests {
		res := tr.Match(context.Background(), tt.command)
		if res.Allowed != tt.allowed || res.Reason != tt.reason {
			t.Errorf("Match(%q) = %v/%q, want %v/%q", tt.command, res.Allowed, res.Reason, tt.allowed, tt.reason)
		}
	}
}

func TestTrie_Statistics(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "say", nil)

	for i := 0; i < 3; i++ {
		tr.IsCommandSafe("say hi")
	}
	tr.IsCommandSafe("op me")

	stats := tr.Statistics()
	if stats.TotalValidations != 4 || stats.TotalMatches != 3 || stats.TotalRejections != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TreeSize != 1 {
		t.Errorf("TreeSize = %d, want 1", stats.TreeSize)
	}

	before := tr.Root()
	tr.IsCommandSafe("say again")
	if !before.Equal(tr.Root()) {
		t.Error("IsCommandSafe mutated the tree")
	}

	mustAdd(t, tr, "help", nil)
	tr.RemoveCommandString("help")
	tr.Clear()
	if got := tr.Statistics().TotalValidations; got != 5 {
		t.Errorf("structural mutation changed counters: TotalValidations = %d", got)
	}

	tr.ResetStatistics()
	if got := tr.Statistics(); got.TotalValidations != 0 || got.TotalMatches != 0 || got.TotalRejections != 0 {
		t.Errorf("after reset stats = %+v", got)
	}
}

func TestTrie_NestedCallsAreCounted(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "say hi", nil)
	mustAdd(t, tr, "execute", validate.NewExecute(tr, validate.DefaultExecuteConfig()))

	if !tr.IsCommandSafe("execute run say hi") {
		t.Fatal("expected accept")
	}
	if got := tr.Statistics().TotalValidations; got != 2 {
		t.Errorf("TotalValidations = %d, want 2", got)
	}
}

func TestTrie_RemoveCommand(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "time set day", nil)
	mustAdd(t, tr, "time set night", nil)
	mustAdd(t, tr, "time query daytime", nil)

	if !tr.RemoveCommandString("time set day") {
		t.Fatal("RemoveCommand returned false")
	}
	if tr.IsCommandSafe("time set day") {
		t.Error("removed rule still matches")
	}
	if !tr.IsCommandSafe("time set night") {
		t.Error("sibling rule lost")
	}

	root := tr.Root()
	set := root.Child("time").Child("set")
	if set == nil || set.HasChild("day") || !set.HasChild("night") {
		t.Error("orphaned terminal node not pruned or shared prefix lost")
	}

	if tr.RemoveCommandString("time set day") {
		t.Error("second removal returned true")
	}
	if tr.RemoveCommandString("time set") {
		t.Error("removing a non-terminal prefix returned true")
	}
	if tr.RemoveCommandString("weather clear") {
		t.Error("removing an unknown rule returned true")
	}

	tr.RemoveCommandString("time set night")
	tr.RemoveCommandString("time query daytime")
	if !tr.IsEmpty() || tr.Size() != 0 {
		t.Errorf("trie not empty after removing everything: size=%d", tr.Size())
	}
}

func TestTrie_RemoveKeepsLongerRule(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "say", nil)
	mustAdd(t, tr, "say hello", nil)

	if !tr.RemoveCommandString("say") {
		t.Fatal("RemoveCommand returned false")
	}
	if tr.IsCommandSafe("say anything") {
		t.Error("removed prefix rule still matches")
	}
	if !tr.IsCommandSafe("say hello") {
		t.Error("longer rule lost")
	}
}

func TestTrie_AddCommandErrors(t *testing.T) {
	tr := New()

	if err := tr.AddCommand(nil, nil, nil); !errors.Is(err, ErrEmptyRule) {
		t.Errorf("AddCommand(nil) error = %v, want ErrEmptyRule", err)
	}
	if err := tr.AddCommandString("   ", nil, nil); !errors.Is(err, ErrEmptyRule) {
		t.Errorf("AddCommandString(blank) error = %v, want ErrEmptyRule", err)
	}
	if err := tr.AddCommand([]string{"say", ""}, nil, nil); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty token error = %v, want ErrInvalidToken", err)
	}
	if err := tr.AddCommand([]string{"say hello"}, nil, nil); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token with space error = %v, want ErrInvalidToken", err)
	}
	if !tr.IsEmpty() {
		t.Error("failed inserts modified the trie")
	}
}

func TestTrie_Metadata(t *testing.T) {
	tr := New()
	if err := tr.AddCommand([]string{"Give"}, validate.Accept(), map[string]any{"source": "defaults", "priority": 3}); err != nil {
		t.Fatal(err)
	}

	node := tr.Root().Child("give")
	if node == nil {
		t.Fatal("token was not lowercased on insert")
	}
	if src, ok := MetadataAs[string](node, "source"); !ok || src != "defaults" {
		t.Errorf("source = %q, %v", src, ok)
	}
	if _, ok := MetadataAs[string](node, "priority"); ok {
		t.Error("MetadataAs returned a value of the wrong type")
	}
	if p, ok := MetadataAs[int](node, "priority"); !ok || p != 3 {
		t.Errorf("priority = %d, %v", p, ok)
	}

	rules := tr.Rules()
	if len(rules) != 1 || rules[0].Metadata["source"] != "defaults" || rules[0].Validator == nil {
		t.Errorf("Rules() = %+v", rules)
	}
}

func TestTrie_AllCommandsAndSize(t *testing.T) {
	tr := New()
	for _, cmd := range []string{"weather clear", "say", "time set day", "time set night"} {
		mustAdd(t, tr, cmd, nil)
	}

	want := []string{"say", "time set day", "time set night", "weather clear"}
	if got := tr.AllCommands(); !reflect.DeepEqual(got, want) {
		t.Errorf("AllCommands() = %v, want %v", got, want)
	}
	if got := tr.RuleCount(); got != 4 {
		t.Errorf("RuleCount() = %d, want 4", got)
	}
	// say, weather, clear, time, set, day, night
	if got := tr.Size(); got != 7 {
		t.Errorf("Size() = %d, want 7", got)
	}
	if tr.IsEmpty() {
		t.Error("IsEmpty() = true")
	}

	tr.Clear()
	if !tr.IsEmpty() || tr.Size() != 0 || len(tr.AllCommands()) != 0 {
		t.Error("Clear() left rules behind")
	}
}

func TestTrie_Replace(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "say", nil)

	err := tr.Replace([]Rule{{Tokens: []string{"tell"}}, {Tokens: []string{"me"}}})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if tr.IsCommandSafe("say hi") || !tr.IsCommandSafe("tell bob hi") {
		t.Error("Replace did not swap the rule set")
	}

	err = tr.Replace([]Rule{{Tokens: []string{"ok"}}, {Tokens: nil}})
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) || ruleErr.Index != 1 || !errors.Is(err, ErrEmptyRule) {
		t.Fatalf("Replace error = %v", err)
	}
	if !tr.IsCommandSafe("tell bob hi") {
		t.Error("failed Replace discarded the current rules")
	}
}

func TestTrie_ConcurrentMatchAndReplace(t *testing.T) {
	tr := New()
	rules := func(extra string) []Rule {
		return []Rule{
			{Tokens: []string{"say"}},
			{Tokens: []string{"execute"}, Validator: validate.NewExecute(tr, validate.DefaultExecuteConfig())},
			{Tokens: []string{extra}},
		}
	}
	if err := tr.Replace(rules("a")); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 100)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if !tr.IsCommandSafe("execute as @s run execute run say hi") {
					errs <- "nested execute rejected during reload"
					return
				}
				if tr.IsCommandSafe("op me") {
					errs <- "unknown command accepted during reload"
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			extra := "a"
			if j%2 == 0 {
				extra = "b"
			}
			if err := tr.Replace(rules(extra)); err != nil {
				errs <- err.Error()
				return
			}
		}
	}()
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
}

func TestTrie_NestedCallWithPendingWriter(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "say hi", nil)

	entered := make(chan struct{})
	proceed := make(chan struct{})
	gate := validate.NewFunc("Gate", func(ctx context.Context, sc *scanner.Scanner) bool {
		close(entered)
		<-proceed
		return tr.IsCommandSafeContext(ctx, sc.Remaining())
	})
	mustAdd(t, tr, "gate", gate)

	result := make(chan bool)
	go func() { result <- tr.IsCommandSafe("gate say hi") }()

	<-entered
	writerDone := make(chan struct{})
	go func() {
		tr.Clear()
		close(writerDone)
	}()
	close(proceed)

	if !<-result {
		t.Error("nested call rejected")
	}
	<-writerDone
}
