package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/frogtools/bumpath/internal/hashtable"
)

const defaultMirror = "https://raw.githubusercontent.com/CommunityDragon/CDTB/master/cdragontoolbox/hashes/"

func newCmd_Hashes() *cli.Command {
	return &cli.Command{
		Name:  "hashes",
		Usage: "manage the local hash-table cache",
		Subcommands: []*cli.Command{
			newCmd_HashesRefresh(),
		},
	}
}

func newCmd_HashesRefresh() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "fetch the latest hash tables from the mirror into the cache directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mirror", Value: defaultMirror, Usage: "base URL of the hash-file mirror"},
			&cli.StringFlag{Name: "dir", Usage: "override the per-user cache directory"},
		},
		Action: func(c *cli.Context) error {
			dir := c.String("dir")
			if dir == "" {
				var err error
				dir, err = hashtable.CacheDir()
				if err != nil {
					return fmt.Errorf("resolving cache dir: %w", err)
				}
			}
			fetcher := hashtable.NewHTTPFetcher(c.String("mirror"))
			if err := hashtable.RefreshAll(c.Context, fetcher, dir, hashtable.All()); err != nil {
				return err
			}
			klog.Infof("refreshed hash tables into %s", dir)
			return nil
		},
	}
}
