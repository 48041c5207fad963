package paths

import (
	"sort"
	"strings"

	"bodyshop-gallery/internal/blur/models"
	"bodyshop-gallery/internal/common/logging"
)

// ============================================================
// Matcher strategies
// ============================================================

// Matcher is one step of the zone lookup cascade. Match receives a canonical
// key and returns the stored key it resolves to.
type Matcher struct {
	Name  string
	Match func(key string, store models.ZoneSet) (string, bool)
}

const (
	StrategyExact      = "exact"
	StrategyVariant    = "variant"
	StrategyOverlap    = "overlap"
	StrategyIdentifier = "identifier"
)

// DefaultMatchers returns the cascade exact -> rewritten variants ->
// substring overlap -> identifier token.
func DefaultMatchers(n *Normalizer) []Matcher {
	return []Matcher{
		ExactMatcher(),
		VariantMatcher(n.AssetsPrefix()),
		OverlapMatcher(),
		IdentifierMatcher(),
	}
}

// ExactMatcher matches the key as stored, then case-insensitively.
func ExactMatcher() Matcher {
	return Matcher{Name: StrategyExact, Match: lookupExact}
}

// VariantMatcher retries the lookup with the assets root stripped from, or
// forced onto, the key.
func VariantMatcher(assetsPrefix string) Matcher {
	root := strings.TrimSuffix(assetsPrefix, "/")
	return Matcher{
		Name: StrategyVariant,
		Match: func(key string, store models.ZoneSet) (string, bool) {
			var variants []string
			if strings.HasPrefix(key, assetsPrefix) {
				variants = append(variants, strings.TrimPrefix(key, root))
			} else if strings.HasPrefix(key, "/") {
				variants = append(variants, root+key)
			}
			for _, v := range variants {
				if k, ok := lookupExact(v, store); ok {
					return k, true
				}
			}
			return "", false
		},
	}
}

// OverlapMatcher returns the first stored key (in sorted order) that contains
// the key or is contained in it.
func OverlapMatcher() Matcher {
	return Matcher{
		Name: StrategyOverlap,
		Match: func(key string, store models.ZoneSet) (string, bool) {
			if len(key) <= 1 {
				return "", false
			}
			for _, stored := range sortedKeys(store) {
				k := strings.ToLower(stored)
				if k == "" || k == "/" {
					continue
				}
				if strings.Contains(k, key) || strings.Contains(key, k) {
					return stored, true
				}
			}
			return "", false
		},
	}
}

// IdentifierMatcher extracts the item identifier from the key's filename and
// returns the first stored key containing it.
func IdentifierMatcher() Matcher {
	return Matcher{
		Name: StrategyIdentifier,
		Match: func(key string, store models.ZoneSet) (string, bool) {
			id := ExtractIdentifier(key)
			if id == "" {
				return "", false
			}
			for _, stored := range sortedKeys(store) {
				if strings.Contains(strings.ToLower(stored), id) {
					return stored, true
				}
			}
			return "", false
		},
	}
}

func lookupExact(key string, store models.ZoneSet) (string, bool) {
	if _, ok := store[key]; ok {
		return key, true
	}
	for _, stored := range sortedKeys(store) {
		if strings.EqualFold(stored, key) {
			return stored, true
		}
	}
	return "", false
}

func sortedKeys(store models.ZoneSet) []string {
	keys := make([]string, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ============================================================
// Lookup
// ============================================================

// Resolution describes how a raw reference was matched against a store.
type Resolution struct {
	Key        string `json:"key"`
	MatchedKey string `json:"matchedKey,omitempty"`
	Strategy   string `json:"strategy,omitempty"`
}

// Resolve normalizes raw and runs the matcher cascade over store. ok is
// false when nothing matched; Key is still set when raw was normalizable.
func (n *Normalizer) Resolve(raw string, store models.ZoneSet) (Resolution, bool) {
	return n.ResolveFor(raw, "", store)
}

// ResolveFor is Resolve with item as the page context identifier.
func (n *Normalizer) ResolveFor(raw, item string, store models.ZoneSet) (Resolution, bool) {
	key, err := n.NormalizeFor(raw, item)
	if err != nil {
		n.logger.Debug(logging.EventPathUnmatched, "raw", raw, "error", err)
		return Resolution{}, false
	}
	res := Resolution{Key: key}
	for _, m := range n.matchers {
		if matched, ok := m.Match(key, store); ok {
			res.MatchedKey, res.Strategy = matched, m.Name
			n.logger.Debug(logging.EventPathMatched,
				"raw", raw, "key", key, "matchedKey", matched, "strategy", m.Name)
			return res, true
		}
	}
	n.logger.Debug(logging.EventPathUnmatched, "raw", raw, "key", key)
	return res, false
}

// FindZonesFor returns a copy of the zones stored for raw, or an empty slice
// when no redaction is configured for it.
func (n *Normalizer) FindZonesFor(raw string, store models.ZoneSet) []models.Zone {
	return n.FindZonesForItem(raw, "", store)
}

func (n *Normalizer) FindZonesForItem(raw, item string, store models.ZoneSet) []models.Zone {
	res, ok := n.ResolveFor(raw, item, store)
	if !ok {
		return []models.Zone{}
	}
	zones := models.CloneZones(store[res.MatchedKey])
	if zones == nil {
		zones = []models.Zone{}
	}
	return zones
}
