package validate_test

import (
	"context"
	"testing"

	"newnan/cbfirewall/pkg/firewall/scanner"
	"newnan/cbfirewall/pkg/firewall/trie"
	"newnan/cbfirewall/pkg/firewall/validate"
)

func newRootTrie(t *testing.T) *trie.Trie {
	t.Helper()
	tr := trie.New()
	for _, rule := range []string{"say hello", "give @s dirt", "tp ~ ~ ~"} {
		if err := tr.AddCommandString(rule, nil, nil); err != nil {
			t.Fatalf("AddCommandString(%q): %v", rule, err)
		}
	}
	return tr
}

func checkAll(t *testing.T, v validate.Validator, cases map[string]bool) {
	t.Helper()
	for input, want := range cases {
		if got := v.Validate(context.Background(), scanner.New(input)); got != want {
			t.Errorf("Validate(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestExecute_Run(t *testing.T) {
	v := validate.NewExecute(newRootTrie(t), validate.DefaultExecuteConfig())

	checkAll(t, v, map[string]bool{
		"run say hello":       true,
		"run give @s dirt":    true,
		"run tp ~ ~ ~":        true,
		"RUN Say Hello":       true,
		"run dangerous_thing": false,
		"run give @a diamond": false,
		"run":                 false,
		"run    ":             false,
		"say hello":           false,
		"":                    false,
	})
}

func TestExecute_Clauses(t *testing.T) {
	v := validate.NewExecute(newRootTrie(t), validate.DefaultExecuteConfig())

	tests := []struct {
		name  string
		cases map[string]bool
	}{
		{"as/at", map[string]bool{
			"as @s run say hello":    true,
			"at @s run say hello":    true,
			"as @a run say hello":    false,
			"as @e run say hello":    false,
			"at @a run say hello":    false,
			"as @s say hello":        false,
			"as Steve run say hello": false,
		}},
		{"positioned", map[string]bool{
			"positioned 0 64 0 run say hello":      true,
			"positioned ~ ~ ~ run say hello":       true,
			"positioned ^ ^ ^ run say hello":       true,
			"positioned 1001 0 0 run say hello":    false,
			"positioned 0 0 -1001 run say hello":   false,
			"positioned invalid 0 0 run say hello": false,
			"positioned 0 0 run say hello":         false,
		}},
		{"facing", map[string]bool{
			"facing 0 64 0 run say hello":            true,
			"facing ~ ~ ~ run say hello":             true,
			"facing entity @s run say hello":         true,
			"facing entity @s eyes run say hello":    true,
			"facing entity @s feet run say hello":    true,
			"facing entity @a run say hello":         false,
			"facing entity @s invalid run say hello": false,
			"facing 1001 0 0 run say hello":          false,
			"facing entity":                          false,
			"facing":                                 false,
		}},
		{"rotated", map[string]bool{
			"rotated 0 0 run say hello":       true,
			"rotated 90 -45 run say hello":    true,
			"rotated ~ ~ run say hello":       true,
			"rotated ~90 ~-45 run say hello":  true,
			"rotated 361 0 run say hello":     false,
			"rotated 0 -361 run say hello":    false,
			"rotated ~361 0 run say hello":    false,
			"rotated invalid 0 run say hello": false,
			"rotated 0 invalid run say hello": false,
			"rotated 0 run say hello":         false,
			"rotated ^ ^ run say hello":       false,
		}},
		{"in", map[string]bool{
			"in minecraft:overworld run say hello":  true,
			"in minecraft:the_nether run say hello": true,
			"in minecraft:the_end run say hello":    true,
			"in overworld run say hello":            true,
			"in the_nether run say hello":           true,
			"in the_end run say hello":              true,
			"in invalid_dimension run say hello":    false,
			"in custom:dimension run say hello":     false,
		}},
		{"align", map[string]bool{
			"align xyz run say hello":     true,
			"align xy run say hello":      true,
			"align x run say hello":       true,
			"align y run say hello":       true,
			"align z run say hello":       true,
			"align xz run say hello":      true,
			"align yz run say hello":      true,
			"align zyx run say hello":     true,
			"align xx run say hello":      false,
			"align invalid run say hello": false,
			"align xyzw run say hello":    false,
			"align abc run say hello":     false,
			"align run say hello":         false,
		}},
		{"anchored", map[string]bool{
			"anchored eyes run say hello":    true,
			"anchored feet run say hello":    true,
			"anchored invalid run say hello": false,
			"anchored head run say hello":    false,
			"anchored":                       false,
		}},
		{"rejected clauses", map[string]bool{
			"if block ~ ~ ~ air run say hello":                false,
			"unless entity @a run say hello":                  false,
			"store result score test objective run say hello": false,
			"summon run say hello":                            false,
		}},
		{"chains", map[string]bool{
			"as @s at @s positioned ~ ~1 ~ run say hello":             true,
			"as @s positioned 0 64 0 facing ~ ~ ~ run give @s dirt":   true,
			"positioned ~ ~ ~ rotated ~ ~ anchored eyes run tp ~ ~ ~": true,
			"as @a at @s run say hello":                               false,
			"as @s positioned 1001 0 0 run say hello":                 false,
		}},
		{"incomplete", map[string]bool{
			"as @s":            false,
			"positioned 0 0 0": false,
			"facing 0 0 0":     false,
			"as":               false,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkAll(t, v, tt.cases)
		})
	}
}

func TestExecute_DepthLimit(t *testing.T) {
	tr := trie.New()
	if err := tr.AddCommandString("say hi", nil, nil); err != nil {
		t.Fatal(err)
	}
	cfg := validate.DefaultExecuteConfig()
	cfg.MaxDepth = 3
	if err := tr.AddCommandString("execute", validate.NewExecute(tr, cfg), nil); err != nil {
		t.Fatal(err)
	}

	cases := map[string]bool{
		"execute run say hi":                                                             true,
		"execute run execute run say hi":                                                 true,
		"execute run execute run execute run say hi":                                     true,
		"execute run execute run execute run execute run say hi":                         false,
		"execute as @s run execute as @s run execute as @s run execute as @s run say hi": false,
	}
	for cmd, want := range cases {
		if got := tr.IsCommandSafe(cmd); got != want {
			t.Errorf("IsCommandSafe(%q) = %v, want %v", cmd, got, want)
		}
	}

	// Depth is per call: the rejected chain above must not leak into later calls.
	if !tr.IsCommandSafe("execute run say hi") {
		t.Error("depth leaked across calls")
	}
}

func TestExecute_DepthFromContext(t *testing.T) {
	tr := newRootTrie(t)
	v := validate.NewExecute(tr, validate.ExecuteConfig{MaxDepth: 2, Selector: validate.StrictSelectorConfig()})

	ctx := validate.WithDepth(context.Background(), 2)
	if v.Validate(ctx, scanner.New("run say hello")) {
		t.Error("call at max depth accepted")
	}
	ctx = validate.WithDepth(context.Background(), 1)
	if !v.Validate(ctx, scanner.New("run say hello")) {
		t.Error("call below max depth rejected")
	}
}

func TestExecute_Presets(t *testing.T) {
	tr := newRootTrie(t)

	strict := validate.NewStrictExecute(tr)
	if strict.MaxDepth() != 3 {
		t.Errorf("strict MaxDepth() = %d, want 3", strict.MaxDepth())
	}
	checkAll(t, strict, map[string]bool{
		"as @s run say hello":              true,
		"positioned 100 0 0 run say hello": true,
		"positioned 101 0 0 run say hello": false,
		"positioned ~ ~ ~ run say hello":   false,
		"positioned ^ ^ ^ run say hello":   false,
		"as @p run say hello":              false,
	})

	permissive := validate.NewPermissiveExecute(tr)
	if permissive.MaxDepth() != validate.DefaultMaxExecuteDepth {
		t.Errorf("permissive MaxDepth() = %d", permissive.MaxDepth())
	}
	checkAll(t, permissive, map[string]bool{
		"as @p run say hello":        true,
		"at @p run say hello":        true,
		"as player123 run say hello": true,
		"as @a run say hello":        false,
	})

	if permissive.Coordinate().Count() != 3 || !permissive.Selector().PlayerNamesAllowed() {
		t.Errorf("permissive = %s", permissive.Description())
	}
}

func TestExecute_NilChecker(t *testing.T) {
	v := validate.NewExecute(nil, validate.DefaultExecuteConfig())
	if v.Validate(context.Background(), scanner.New("run say hello")) {
		t.Error("execute without a checker accepted")
	}
}
