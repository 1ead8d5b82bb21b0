package bumpath

import "strings"

// normalizeSlashes converts backslashes to forward slashes.
func normalizeSlashes(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// applyPrefixToPath computes V' = prefix + "/" + V per §4.9.6. The leading
// "assets/" (or "data/") segment of V is preserved rather than stripped,
// per scenario E5: prefixing skin0.bin's reference to
// assets/characters/aatrox/skins/skin0/particles/p.dds yields
// bum/assets/characters/aatrox/skins/skin0/particles/p.dds, not
// bum/characters/....
func applyPrefixToPath(prefix, original string) string {
	norm := strings.TrimPrefix(normalizeSlashes(original), "/")
	return prefix + "/" + norm
}
