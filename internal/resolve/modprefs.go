package resolve

import "github.com/forgelab/kforge/internal/profile"

// ModulePrefs folds the module reconciliation preferences out of the
// document layers with the same precedence Resolve uses: the override
// beats the preset for the boolean switches, while the explicit extra
// lists union across both layers. Unset everywhere means no filtering.
func ModulePrefs(override, preset *profile.Document) (autoDetect, whitelist bool, extra []string) {
	for _, doc := range []*profile.Document{preset, override} {
		if doc == nil {
			continue
		}
		if doc.Modules.AutoDetect != nil {
			autoDetect = *doc.Modules.AutoDetect
		}
		if doc.Modules.Whitelist != nil {
			whitelist = *doc.Modules.Whitelist
		}
		extra = append(extra, doc.Modules.Extra...)
	}
	return autoDetect, whitelist, extra
}
