package rules

import (
	"strings"

	"newnan/cbfirewall/pkg/firewall/trie"
	"newnan/cbfirewall/pkg/firewall/validate"
)

// Namespace is the vanilla command namespace. Every default rule is also
// registered under "minecraft:<command>".
const Namespace = "minecraft:"

// DefaultSafeEntities is the built-in allow-list for /summon.
var DefaultSafeEntities = []string{
	"minecraft:pig", "minecraft:cow", "minecraft:sheep", "minecraft:chicken",
	"minecraft:rabbit", "minecraft:horse", "minecraft:donkey", "minecraft:cat",
	"minecraft:wolf", "minecraft:parrot", "minecraft:fox", "minecraft:bee",
	"minecraft:villager", "minecraft:armor_stand", "minecraft:item_frame",
	"minecraft:painting", "minecraft:boat", "minecraft:minecart",
}

// DefaultRules builds the rule set for the builder's command whitelist.
//
// Commands with a known argument shape get a validator:
//
//	give <target> <item> [count]
//	tp|teleport <x y z> | @s [<x y z>]
//	setblock <x y z> <block> [mode]
//	fill <x1 y1 z1> <x2 y2 z2> <block> [mode]
//	summon <entity> [<x y z>]
//	execute <clauses...> run <command>
//
// Any other whitelisted command is a literal rule that allows every argument.
// Both the bare and the "minecraft:" spelling are registered, sharing one
// validator instance.
func DefaultRules(b *Builder) []trie.Rule {
	var out []trie.Rule
	seen := make(map[string]bool)

	for _, cmd := range b.fw.WhitelistCommands {
		name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cmd), "/"))
		name = strings.TrimPrefix(name, Namespace)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		v := b.defaultValidator(name)
		// execute needs a checker; without one it is left out entirely
		if name == "execute" && v == nil {
			continue
		}
		metadata := map[string]any{"source": "default"}
		out = append(out,
			trie.Rule{Tokens: []string{name}, Validator: v, Metadata: metadata},
			trie.Rule{Tokens: []string{Namespace + name}, Validator: v, Metadata: metadata},
		)
	}
	return out
}

func (b *Builder) defaultValidator(name string) validate.Validator {
	switch name {
	case "give":
		return validate.NewSequence(
			validate.NewSelector(b.Selector()),
			validate.NewItem(b.Item()),
		)

	case "tp", "teleport":
		// The target is always the executor; a command block must not move
		// other players, whatever allow_player_names says.
		return validate.Any(
			validate.NewCoordinate(b.Coordinate()),
			validate.NewSequence(
				validate.NewSelector(validate.StrictSelectorConfig()),
				validate.Any(validate.NewEnd(), validate.NewCoordinate(b.Coordinate())),
			),
		)

	case "setblock":
		block := b.Item()
		block.NoQuantity = true
		return validate.NewSequence(
			validate.NewCoordinate(b.Coordinate()),
			validate.NewItem(block),
		)

	case "fill":
		block := b.Item()
		block.NoQuantity = true
		return validate.NewSequence(
			validate.NewCoordinate(b.Coordinate()),
			validate.NewCoordinate(b.Coordinate()),
			validate.NewItem(block),
		)

	case "summon":
		entities := b.fw.SafeEntities
		if len(entities) == 0 {
			entities = DefaultSafeEntities
		}
		return validate.NewSequence(
			validate.NewItem(validate.ItemConfig{
				SafeItems:             entities,
				AllowCustomNamespaces: b.fw.AllowCustomNamespaces,
				NoQuantity:            true,
			}),
			validate.Any(validate.NewEnd(), validate.NewCoordinate(b.Coordinate())),
		)

	case "execute":
		if b.checker == nil {
			return nil
		}
		return validate.NewExecute(b.checker, b.Execute())
	}
	return nil
}
