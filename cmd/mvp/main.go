package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "mvp",
		Usage: "find minimum-variance portfolio weights",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file with MVP_* settings"},
			&cli.StringFlag{Name: "log-level", Usage: "panic, fatal, error, warn, info, debug or trace"},
			&cli.StringFlag{Name: "log-file", Usage: "append log lines to this file instead of stderr"},
		},
		Commands: []*cli.Command{
			{
				Name:  "optimize",
				Usage: "minimize the variance of a portfolio file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "portfolio YAML file"},
					&cli.Float64Flag{Name: "step", Usage: "weight moved per probe"},
					&cli.Float64Flag{Name: "min-savings", Usage: "smallest variance reduction worth a move"},
					&cli.IntFlag{Name: "max-rounds", Usage: "stop after this many rounds (0 means no limit)"},
					&cli.IntFlag{Name: "restarts", Usage: "number of starting portfolios"},
					&cli.StringFlag{Name: "db", Usage: "sqlite file recording every probe and round"},
					&cli.BoolFlag{Name: "cache", Usage: "remember evaluated weight vectors within each search"},
				},
				Action: optimize,
			},
			{
				Name:  "variance",
				Usage: "evaluate the variance of given weights",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "portfolio YAML file"},
					&cli.StringFlag{Name: "weights", Aliases: []string{"w"}, Usage: "comma separated weights (default: the file's weights)"},
				},
				Action: variance,
			},
			{
				Name:  "estimate",
				Usage: "estimate standard deviations and correlations from a CSV of returns",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "returns", Aliases: []string{"r"}, Required: true, Usage: "CSV file, header row of asset names"},
				},
				Action: estimateCmd,
			},
			{
				Name:   "bench",
				Usage:  "compare the optimizer with closed-form optima",
				Action: benchCmd,
			},
		},
	}
}
