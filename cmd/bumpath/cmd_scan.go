package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/frogtools/bumpath/bumpath"
	"github.com/frogtools/bumpath/internal/hashtable"
)

var flagSource = &cli.StringSliceFlag{
	Name:     "source",
	Usage:    "a source directory mirroring the game's assets/ tree; repeatable, later wins on collision",
	Required: true,
}

var flagSelect = &cli.StringSliceFlag{
	Name:  "select",
	Usage: "a selectable BIN unify_path, or a glob matching several; repeatable",
}

var flagPrefix = &cli.StringFlag{
	Name:     "prefix",
	Usage:    "the path prefix to rewrite selected entries under",
	Required: true,
}

var flagHashesDir = &cli.StringFlag{
	Name:  "hashes-dir",
	Usage: "directory containing the CDTB-style hash table text files",
}

func newCmd_Scan() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "index the given source directories and scan a selection of BINs for references",
		Flags: []cli.Flag{flagSource, flagSelect, flagPrefix, flagHashesDir},
		Action: func(c *cli.Context) error {
			idx, err := bumpath.BuildSourceIndex(c.StringSlice("source"))
			if err != nil {
				return fmt.Errorf("indexing sources: %w", err)
			}
			klog.Infof("indexed %d files across %d source directories", idx.Len(), len(c.StringSlice("source")))
			for _, shadowed := range idx.Shadowed() {
				klog.V(1).Infof("shadowed by a later source directory: %s", shadowed)
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
			spew.Dump(result)
			return nil
		},
	}
}

func loadTables(c *cli.Context) (*hashtable.Tables, error) {
	dir := c.String("hashes-dir")
	if dir == "" {
		return hashtable.Load(".", hashtable.Selection{})
	}
	return hashtable.Load(dir, hashtable.All())
}

func resolveSelection(idx *bumpath.SourceIndex, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		if _, ok := idx.Get(p); ok {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
			continue
		}
		for _, m := range bumpath.SelectByGlob(idx, []string{p}) {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}
