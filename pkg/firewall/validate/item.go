package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"newnan/cbfirewall/pkg/firewall/scanner"
)

// DefaultMaxQuantity is the default upper bound for an item count.
const DefaultMaxQuantity = 64

// DefaultSafeItems is the built-in allow-list of harmless items.
var DefaultSafeItems = []string{
	"minecraft:dirt", "minecraft:grass_block", "minecraft:stone", "minecraft:cobblestone",
	"minecraft:oak_log", "minecraft:oak_planks", "minecraft:sand", "minecraft:gravel",
	"minecraft:clay",

	"minecraft:bricks", "minecraft:stone_bricks", "minecraft:oak_stairs", "minecraft:oak_slab",
	"minecraft:glass", "minecraft:wool", "minecraft:concrete",

	"minecraft:wooden_sword", "minecraft:wooden_pickaxe", "minecraft:wooden_axe",
	"minecraft:wooden_shovel", "minecraft:wooden_hoe", "minecraft:stone_sword",
	"minecraft:stone_pickaxe", "minecraft:stone_axe", "minecraft:stone_shovel",
	"minecraft:stone_hoe",

	"minecraft:bread", "minecraft:apple", "minecraft:cooked_beef", "minecraft:cooked_pork",
	"minecraft:cooked_chicken", "minecraft:carrot", "minecraft:potato", "minecraft:wheat",

	"minecraft:flower_pot", "minecraft:painting", "minecraft:item_frame", "minecraft:torch",
	"minecraft:lantern",
}

// DangerousItems are rejected in every namespace regardless of the allow-list.
var DangerousItems = []string{
	"command_block", "chain_command_block", "repeating_command_block",
	"structure_block", "jigsaw", "barrier", "bedrock", "end_portal_frame",
	"spawner", "debug_stick", "knowledge_book",
}

var (
	dangerousItems = toSet(DangerousItems)

	dangerousNBTKeys = []string{"command", "customname", "ench", "attributemodifiers", "candestroy", "canplaceon"}
	nbtCommandNames  = []string{"give", "summon", "setblock", "fill", "execute"}
)

// ItemConfig configures an Item validator.
type ItemConfig struct {
	// SafeItems is the allow-list. "minecraft:" entries are normalized to bare names.
	SafeItems []string

	// MaxQuantity bounds the optional count token.
	MaxQuantity int

	// AllowCustomNamespaces permits non-minecraft namespaces whose bare name is allowed.
	AllowCustomNamespaces bool

	// NoQuantity disables the trailing count token, for block and entity ids.
	NoQuantity bool
}

// DefaultItemConfig returns the built-in allow-list with a max quantity of 64.
func DefaultItemConfig() ItemConfig {
	return ItemConfig{
		SafeItems:   DefaultSafeItems,
		MaxQuantity: DefaultMaxQuantity,
	}
}

// Item validates an item id, optional brace metadata and optional quantity.
type Item struct {
	*Base
	cfg  ItemConfig
	safe map[string]struct{}
}

// NewItem creates an Item validator.
func NewItem(cfg ItemConfig) *Item {
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = DefaultMaxQuantity
	}
	safe := make(map[string]struct{}, len(cfg.SafeItems))
	for _, id := range cfg.SafeItems {
		id = strings.ToLower(strings.TrimSpace(id))
		safe[strings.TrimPrefix(id, "minecraft:")] = struct{}{}
	}
	return &Item{
		Base: NewBase("ItemValidator", "Validates item IDs and quantities"),
		cfg:  cfg,
		safe: safe,
	}
}

// Validate implements Validator.
func (it *Item) Validate(ctx context.Context, sc *scanner.Scanner) bool {
	return it.Run(ctx, sc, func(_ context.Context, sc *scanner.Scanner) bool {
		tok, ok := sc.Next()
		if !ok {
			return false
		}
		if !it.ValidateToken(tok) {
			return false
		}
		if it.cfg.NoQuantity {
			return true
		}
		qty, ok := sc.Next()
		if !ok {
			return true
		}
		return IsSafeNumber(qty, 1, it.cfg.MaxQuantity)
	})
}

// ValidateToken checks an item id with optional metadata, without a quantity.
func (it *Item) ValidateToken(tok string) bool {
	id, meta := tok, ""
	if i := strings.IndexByte(tok, '{'); i >= 0 {
		id, meta = tok[:i], tok[i:]
	}
	id = strings.ToLower(id)

	namespace, name := "minecraft", id
	if i := strings.IndexByte(id, ':'); i >= 0 {
		namespace, name = id[:i], id[i+1:]
	}
	if name == "" || namespace == "" {
		return false
	}
	if _, bad := dangerousItems[name]; bad {
		return false
	}
	if !it.allowed(namespace, name, id) {
		return false
	}
	if meta != "" && !metadataSafe(meta) {
		return false
	}
	return true
}

// SafeItems returns the normalized allow-list, sorted.
func (it *Item) SafeItems() []string {
	out := make([]string, 0, len(it.safe))
	for k := range it.safe {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MaxQuantity returns the configured maximum count.
func (it *Item) MaxQuantity() int { return it.cfg.MaxQuantity }

// CustomNamespacesAllowed reports whether non-minecraft namespaces are accepted.
func (it *Item) CustomNamespacesAllowed() bool { return it.cfg.AllowCustomNamespaces }

// Description implements Validator.
func (it *Item) Description() string {
	return fmt.Sprintf("Item validator with %d safe items, max quantity: %d, custom namespaces: %t",
		len(it.safe), it.cfg.MaxQuantity, it.cfg.AllowCustomNamespaces)
}

func (it *Item) allowed(namespace, name, id string) bool {
	if namespace == "minecraft" {
		_, ok := it.safe[name]
		return ok
	}
	if !it.cfg.AllowCustomNamespaces {
		return false
	}
	if _, ok := it.safe[name]; ok {
		return true
	}
	_, ok := it.safe[id]
	return ok
}

// metadataSafe is a substring scan, not an NBT parser.
func metadataSafe(meta string) bool {
	if !strings.HasSuffix(meta, "}") {
		return false
	}
	lower := strings.ToLower(meta)
	for _, key := range dangerousNBTKeys {
		if strings.Contains(lower, key) {
			return false
		}
	}
	for _, cmd := range nbtCommandNames {
		if strings.Contains(lower, cmd) {
			return false
		}
	}
	return true
}
