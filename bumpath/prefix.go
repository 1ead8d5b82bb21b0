package bumpath

// ApplyPrefix updates the in-memory prefix of every entry in entryHashes
// to newPrefix. Entries currently marked UneditablePrefix are left
// untouched, per §4.9.5. This performs no I/O.
func ApplyPrefix(result *ScanResult, entryHashes map[uint32]bool, newPrefix string) {
	for hash := range entryHashes {
		e, ok := result.byHash[hash]
		if !ok || e.Prefix == UneditablePrefix {
			continue
		}
		e.Prefix = newPrefix
	}
}
