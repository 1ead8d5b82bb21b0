package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/frogtools/bumpath/bumpath"
	"github.com/frogtools/bumpath/internal/fnvhash"
)

var flagEntry = &cli.StringSliceFlag{
	Name:  "entry",
	Usage: "name=prefix override for a single entry, applied after --prefix; repeatable",
}

// parseEntryOverrides turns a list of "EntryName=prefix" strings into the
// EntryHash->bool selector ApplyPrefix expects, plus the new prefix each
// one should move to. All overrides in one invocation share a prefix,
// matching the C9 "bump a set of entries to one destination" usage.
func parseEntryOverrides(raw []string) (map[uint32]bool, string, error) {
	selected := make(map[uint32]bool)
	var prefix string
	for _, r := range raw {
		parts := strings.SplitN(r, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, "", fmt.Errorf("malformed --entry %q, want name=prefix", r)
		}
		if prefix != "" && prefix != parts[1] {
			return nil, "", fmt.Errorf("--entry overrides must share one prefix per invocation, got %q and %q", prefix, parts[1])
		}
		prefix = parts[1]
		selected[fnvhash.FNV1a32(parts[0])] = true
	}
	return selected, prefix, nil
}

func newCmd_ApplyPrefix() *cli.Command {
	return &cli.Command{
		Name:  "apply-prefix",
		Usage: "re-target a subset of scanned entries to a different prefix before processing",
		Flags: []cli.Flag{flagSource, flagSelect, flagPrefix, flagHashesDir, flagEntry},
		Action: func(c *cli.Context) error {
			idx, err := bumpath.BuildSourceIndex(c.StringSlice("source"))
			if err != nil {
				return fmt.Errorf("indexing sources: %w", err)
			}
			tables, err := loadTables(c)
			if err != nil {
				return err
			}
			selected, err := resolveSelection(idx, c.StringSlice("select"))
			if err != nil {
				return err
			}
			if len(selected) == 0 {
				return fmt.Errorf("no BINs matched --select")
			}

			result, err := bumpath.Scan(idx, tables, selected, c.String("prefix"), nil)
			if err != nil {
				return fmt.Errorf("scanning: %w", err)
			}

			overrides, newPrefix, err := parseEntryOverrides(c.StringSlice("entry"))
			if err != nil {
				return err
			}
			if len(overrides) > 0 {
				bumpath.ApplyPrefix(result, overrides, newPrefix)
				klog.Infof("re-targeted %d entries to prefix %q", len(overrides), newPrefix)
			}

			for _, bin := range result.Bins {
				for _, entry := range bin.Entries {
					fmt.Printf("%s\t%s\t%s\n", bin.UnifyPath, entry.Name, entry.Prefix)
				}
			}
			return nil
		},
	}
}
