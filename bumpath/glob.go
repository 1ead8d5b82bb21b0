package bumpath

import (
	glob "github.com/ryanuber/go-glob"
	"k8s.io/klog/v2"
)

// SelectByGlob returns every selectable BIN unify_path in idx matching
// any of patterns. Animation BINs are excluded even if a pattern would
// otherwise match them, logged rather than silently dropped, per §4.9.3.
func SelectByGlob(idx *SourceIndex, patterns []string) []string {
	var out []string
	for unify, e := range idx.entries {
		if e.Kind != KindBin {
			continue
		}
		if !matchesAny(patterns, unify) {
			continue
		}
		if IsAnimationBin(unify) {
			klog.V(2).Infof("bumpath: %q matched a selection glob but is an animation BIN, skipping", unify)
			continue
		}
		out = append(out, unify)
	}
	return out
}

func matchesAny(patterns []string, unify string) bool {
	for _, p := range patterns {
		if glob.Glob(p, unify) {
			return true
		}
	}
	return false
}
