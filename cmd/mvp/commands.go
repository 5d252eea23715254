package main

import (
	"database/sql"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	portfolio "github.com/MitchK/PortfolioOptimizer"
	"github.com/MitchK/PortfolioOptimizer/bench"
	"github.com/MitchK/PortfolioOptimizer/estimate"
	"github.com/MitchK/PortfolioOptimizer/greedy"
	"github.com/MitchK/PortfolioOptimizer/internal/config"
	"github.com/MitchK/PortfolioOptimizer/internal/logger"
	"github.com/MitchK/PortfolioOptimizer/pop"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	_ "modernc.org/sqlite"
)

// setup loads the configuration, lets command line flags override it and
// opens the logger.
func setup(c *cli.Context) (*config.Config, *logrus.Logger, io.Closer, error) {
	cfg, err := config.Load(c.String("env-file"), c.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-file") {
		cfg.LogFile = c.String("log-file")
	}
	if c.IsSet("step") {
		cfg.Step = c.Float64("step")
	}
	if c.IsSet("min-savings") {
		cfg.MinSavings = c.Float64("min-savings")
	}
	if c.IsSet("max-rounds") {
		cfg.MaxRounds = c.Int("max-rounds")
	}
	if c.IsSet("restarts") {
		cfg.Restarts = c.Int("restarts")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("cache") {
		cfg.Cache = c.Bool("cache")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	log, closer, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, closer, nil
}

func optimize(c *cli.Context) error {
	cfg, log, closer, err := setup(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	pf, err := config.LoadPortfolio(c.String("input"))
	if err != nil {
		return err
	}
	prob := pf.Problem()

	opts := []greedy.Option{
		greedy.Step(cfg.Step),
		greedy.MinSavings(cfg.MinSavings),
		greedy.MaxRounds(cfg.MaxRounds),
		greedy.Logger(log),
	}
	if cfg.Cache {
		opts = append(opts, greedy.Cache())
	}
	if log.IsLevelEnabled(logrus.TraceLevel) {
		opts = append(opts, greedy.Trace())
	}

	if cfg.DBPath != "" {
		db, err := sql.Open("sqlite", cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		// concurrent searches share the file
		db.SetMaxOpenConns(1)
		opts = append(opts, greedy.DB(db))
	}

	log.WithFields(logrus.Fields{
		"assets":   prob.Len(),
		"step":     cfg.Step,
		"restarts": cfg.Restarts,
		"cache":    cfg.Cache,
	}).Info("optimizing")

	var res greedy.Result
	if cfg.Restarts > 1 {
		starts := pop.New(prob.Len(), cfg.Restarts, rand.New(rand.NewSource(cfg.Seed)))
		if pf.Weights != nil {
			starts[0] = pf.Weights
		}
		ranked, err := pop.MultiStart(c.Context, prob, starts, cfg.Workers, 1, opts...)
		if err != nil {
			return err
		}
		log.WithField("start", ranked[0].Start).Info("best start")
		res = ranked[0].Result
	} else {
		if pf.Weights != nil {
			opts = append(opts, greedy.Start(pf.Weights))
		}
		res, err = greedy.Minimize(prob, opts...)
		if err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"rounds":   res.Rounds,
		"evals":    res.Evals,
		"variance": res.Variance,
	}).Infof("search stopped: %v", res.Stop)

	return printWeights(c.App.Writer, pf, res.Weights)
}

func printWeights(w io.Writer, pf *config.PortfolioFile, weights []float64) error {
	for i, x := range weights {
		fmt.Fprintf(w, "%-12s %.6f\n", pf.Name(i), x)
	}
	v, err := portfolio.Variance(weights, pf.StdDevs, pf.Corr)
	if err != nil {
		return err
	}
	sd, err := portfolio.StdDev(weights, pf.StdDevs, pf.Corr)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "variance     %.10g\n", v)
	fmt.Fprintf(w, "stddev       %.10g\n", sd)
	return nil
}

func variance(c *cli.Context) error {
	pf, err := config.LoadPortfolio(c.String("input"))
	if err != nil {
		return err
	}

	weights := pf.Weights
	if c.IsSet("weights") {
		weights, err = parseWeights(c.String("weights"))
		if err != nil {
			return err
		}
	}
	if weights == nil {
		return fmt.Errorf("no weights given and none in %v: %w", c.String("input"), portfolio.ErrInvalidInput)
	}
	return printWeights(c.App.Writer, pf, weights)
}

func parseWeights(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	weights := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %v: %v: %w", i, err, portfolio.ErrInvalidInput)
		}
		weights[i] = v
	}
	return weights, nil
}

func estimateCmd(c *cli.Context) error {
	f, err := os.Open(c.String("returns"))
	if err != nil {
		return err
	}
	defer f.Close()

	ret, err := estimate.ReadCSV(f)
	if err != nil {
		return err
	}
	prob, err := estimate.FromReturns(ret)
	if err != nil {
		return err
	}
	pf := &config.PortfolioFile{
		Assets:  ret.Assets,
		StdDevs: prob.StdDevs,
		Corr:    prob.Corr,
	}
	return config.WritePortfolio(c.App.Writer, pf)
}

func benchCmd(c *cli.Context) error {
	cfg, log, closer, err := setup(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	for _, bc := range bench.AllCases {
		r, err := bench.Run(bc, greedy.Step(cfg.Step), greedy.MinSavings(cfg.MinSavings), greedy.MaxRounds(cfg.MaxRounds), greedy.Logger(log))
		if err != nil {
			return fmt.Errorf("%v: %w", bc.Name, err)
		}
		fmt.Fprintln(c.App.Writer, r)
	}
	return nil
}
