package validate

import (
	"context"
	"reflect"
	"testing"

	"newnan/cbfirewall/pkg/firewall/scanner"
)

func TestSelector_Default(t *testing.T) {
	v := NewSelector(DefaultSelectorConfig())

	tests := []struct {
		input string
		want  bool
	}{
		{"@s", true},
		{"@a", false},
		{"@e", false},
		{"@p", false},
		{"@r", false},
		{"@s[]", true},
		{"@s[limit=1]", true},
		{"@s[limit=2]", false},
		{"@s[c=1]", true},
		{"@s[limit=0]", false},
		{"@s[distance=..10]", true},
		{"@s[distance=..101]", false},
		{"@s[distance=5..]", true},
		{"@s[distance=5..10]", true},
		{"@s[distance=5..101]", false},
		{"@s[distance=10]", true},
		{"@s[distance=-1]", false},
		{"@s[distance=..]", false},
		{"@s[distance=1..2..3]", false},
		{"@s[distance=NaN]", false},
		{"@s[x=10,y=~,z=-100]", true},
		{"@s[x=101]", false},
		{"@s[dx=5,dy=-5,dz=100]", true},
		{"@s[dx=101]", false},
		{"@s[sort=nearest]", true},
		{"@s[sort=Random]", true},
		{"@s[sort=everything]", false},
		{"@s[gamemode=creative]", true},
		{"@s[gamemode=3]", true},
		{"@s[gamemode=!survival]", false},
		{"@s[level=5]", true},
		{"@s[level=..50]", true},
		{"@s[level=5..200]", false},
		{"@s[level=-1..]", false},
		{"@s[type=pig]", false},
		{"@s[name=Steve]", false},
		{"@s[tag=op]", false},
		{"@s[team=red]", false},
		{"@s[scores={a=1}]", false},
		{"@s[advancements={x=true}]", false},
		{"@s[nbt={}]", false},
		{"@s[x_rotation=10]", false},
		{"@s[unknown=1]", false},
		{"@s[LIMIT=1]", true},
		{"@s[limit=1", false},
		{"@s[limit=1]x", false},
		{"@s]", false},
		{"@s[[limit=1]]", false},
		{"@s[limit]", false},
		{"@s[limit=]", false},
		{"@s[,limit=1]", false},
		{"@a[limit=1]", false},
		{"Steve", true},
		{"player_123", true},
		{"abcdefghijklmnopq", false},
		{"bad-name", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := v.Validate(context.Background(), scanner.New(tt.input)); got != tt.want {
				t.Errorf("Validate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSelector_EmptyInput(t *testing.T) {
	if NewSelector(DefaultSelectorConfig()).Validate(context.Background(), scanner.New("")) {
		t.Error("empty input accepted")
	}
}

func TestSelector_Presets(t *testing.T) {
	strict := NewStrictSelector()
	permissive := NewPermissiveSelector()

	tests := []struct {
		name  string
		v     *Selector
		input string
		want  bool
	}{
		{"strict self", strict, "@s", true},
		{"strict player name", strict, "Steve", false},
		{"strict nearest", strict, "@p", false},
		{"strict zero distance", strict, "@s[distance=0]", true},
		{"strict distance", strict, "@s[distance=..1]", false},
		{"permissive nearest", permissive, "@p", true},
		{"permissive player name", permissive, "Steve", true},
		{"permissive all", permissive, "@a", false},
		{"permissive distance", permissive, "@p[distance=..100]", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Validate(context.Background(), scanner.New(tt.input)); got != tt.want {
				t.Errorf("Validate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	if !reflect.DeepEqual(permissive.AllowedSelectors(), []string{"@p", "@s"}) {
		t.Errorf("AllowedSelectors() = %v", permissive.AllowedSelectors())
	}
	if strict.PlayerNamesAllowed() || strict.MaxRange() != 0 || strict.MaxTargetCount() != 1 {
		t.Errorf("strict config = %s", strict.Description())
	}
}

func TestSelector_ConsumesOneToken(t *testing.T) {
	v := NewSelector(DefaultSelectorConfig())
	sc := scanner.New("@s minecraft:dirt 5")

	if !v.Validate(context.Background(), sc) {
		t.Fatal("expected accept")
	}
	if got := sc.Remaining(); got != "minecraft:dirt 5" {
		t.Errorf("Remaining() = %q", got)
	}
}
