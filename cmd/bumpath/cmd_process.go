package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/frogtools/bumpath/bumpath"
)

func newCmd_Process() *cli.Command {
	return &cli.Command{
		Name:  "process",
		Usage: "scan, rewrite, and materialize a relocated copy of the selected BINs and their assets",
		Flags: []cli.Flag{
			flagSource, flagSelect, flagPrefix, flagHashesDir, flagEntry,
			&cli.StringFlag{Name: "out", Required: true, Usage: "output directory for the relocated tree"},
			&cli.BoolFlag{Name: "ignore-missing", Usage: "warn and skip instead of failing on a missing source asset"},
			&cli.BoolFlag{Name: "combine-linked", Usage: "merge referenced animation BINs into their parent's output instead of writing them separately"},
			&cli.IntFlag{Name: "path-cap", Value: 240, Usage: "maximum output path length in characters"},
			&cli.IntFlag{Name: "concurrency", Value: 8, Usage: "number of concurrent copy/write workers"},
			&cli.BoolFlag{Name: "progress", Usage: "show a progress bar while copying and writing"},
		},
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
			}

			report, err := bumpath.Process(c.Context, idx, result, tables, c.String("out"), bumpath.ProcessOptions{
				IgnoreMissing: c.Bool("ignore-missing"),
				CombineLinked: c.Bool("combine-linked"),
				PathLengthCap: c.Int("path-cap"),
				Concurrency:   c.Int("concurrency"),
				ShowProgress:  c.Bool("progress"),
			})
			if err != nil {
				return err
			}
			klog.Infof("run %s: copied %d files, wrote %d BINs", report.RunID, report.FilesCopied, report.BinsWritten)
			for _, w := range report.Warnings {
				klog.Warning(w)
			}
			return nil
		},
	}
}
