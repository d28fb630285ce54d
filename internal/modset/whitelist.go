package modset

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed whitelist.yaml
var whitelistYAML []byte

// whitelist is the parsed catalog, category name to member names.
// Loaded once at init; the embedded asset is a build-time constant, so
// a malformed catalog is a programming error, not a runtime condition.
var whitelist = mustLoadWhitelist()

func mustLoadWhitelist() map[string][]string {
	var catalog map[string][]string
	if err := yaml.Unmarshal(whitelistYAML, &catalog); err != nil {
		panic(fmt.Sprintf("modset: embedded whitelist is malformed: %v", err))
	}
	return catalog
}

// WhitelistCategories returns the catalog's category names, sorted.
func WhitelistCategories() []string {
	cats := make([]string, 0, len(whitelist))
	for c := range whitelist {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// WhitelistCategory returns the members of one category, sorted, or nil
// for an unknown category.
func WhitelistCategory(name string) []string {
	members := whitelist[name]
	out := make([]string, len(members))
	copy(out, members)
	sort.Strings(out)
	return out
}

// Whitelist returns the flattened catalog across all categories,
// deduplicated and sorted.
func Whitelist() []string {
	seen := make(map[string]bool)
	var out []string
	for _, members := range whitelist {
		for _, m := range members {
			if seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
