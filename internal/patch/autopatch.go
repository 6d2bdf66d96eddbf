package patch

import "strings"

// Category is a named, optional patch group: the directory's first path
// component by convention (e.g. "translations/french/..."); a file at the
// patch root has no directory and so no category (""). Gating by
// category is what account.Account.AutoPatchesEnabled controls (spec.md
// §3 field; SPEC_FULL.md §4.x "Auto-patch enable set").
func Category(relPath string) string {
	parts := dirComponents(relPath)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// FilterByEnabled returns the subset of files whose category is either
// uncategorized (always pushed) or named in enabled (spec.md §3
// "auto_patches_enabled"; original_source/src/PatchFileIndex.hh shows
// these gating which patches reach a given account).
func FilterByEnabled(files []File, enabled []string) []File {
	allowed := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		allowed[strings.ToLower(name)] = true
	}
	out := make([]File, 0, len(files))
	for _, f := range files {
		cat := Category(f.RelPath)
		if cat == "" || allowed[strings.ToLower(cat)] {
			out = append(out, f)
		}
	}
	return out
}
