package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-interrupt:
			fmt.Println()
			klog.Info("received interrupt signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(interrupt)
	}()

	app := &cli.App{
		Name:        "bumpath",
		Description: "Rewrite referenced resource paths within selected BIN files under a new prefix, and materialize the relocated assets.",
		Before: func(c *cli.Context) error {
			return nil
		},
		Commands: []*cli.Command{
			newCmd_Scan(),
			newCmd_ApplyPrefix(),
			newCmd_Process(),
			newCmd_Hashes(),
		},
	}

	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.RunContext(ctx, os.Args); err != nil {
		klog.Fatal(err)
	}
}
