package main

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/jcalabro/minhash"
	"github.com/spf13/cobra"
)

// AccuracyResult summarizes the estimates for one register count.
type AccuracyResult struct {
	Registers    uint32  `json:"registers" yaml:"registers"`
	MemoryBytes  int     `json:"memory_bytes" yaml:"memory_bytes"`
	Jaccard      float64 `json:"jaccard" yaml:"jaccard"`
	MeanEstimate float64 `json:"mean_estimate" yaml:"mean_estimate"`
	Bias         float64 `json:"bias" yaml:"bias"`
	StdDev       float64 `json:"std_dev" yaml:"std_dev"`
	StdError     float64 `json:"std_error" yaml:"std_error"`
	Pass         bool    `json:"pass" yaml:"pass"`
}

func newAccuracyCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accuracy",
		Short: "Measure estimate error against the true Jaccard similarity",
		Long: `Builds pairs of sketches from two integer sets with a known overlap,
repeats over disjoint key ranges and compares the mean estimate with the true
Jaccard similarity for every configured register count.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(opts.configPath, cmd.Flags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, opts.verbose)

			results, err := runAccuracy(cfg, logger)
			if err != nil {
				return err
			}

			err = writeAccuracy(cmd.OutOrStdout(), cfg.Format, results)
			if err != nil {
				return err
			}

			for _, r := range results {
				if !r.Pass {
					return fmt.Errorf("%w: %d registers off by %.4f", ErrOutOfTolerance, r.Registers, r.Bias)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntSlice("registers", DefaultRegisters, "register counts to measure")
	cmd.Flags().Int("set-size", DefaultSetSize, "keys per set")
	cmd.Flags().Int("overlap", DefaultOverlap, "keys shared by both sets")
	cmd.Flags().Int("trials", DefaultTrials, "independent trials per register count")
	cmd.Flags().Float64("tolerance", DefaultTolerance, "allowed absolute bias of the mean estimate")
	cmd.Flags().String("hasher", DefaultHasher, "key hash function (metro, xxh3)")
	cmd.Flags().Uint64("seed", minhash.DefaultSeed, "key hash seed")

	return cmd
}

// runAccuracy measures every configured register count.
func runAccuracy(cfg *Config, logger *slog.Logger) ([]AccuracyResult, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	jaccard := cfg.TrueJaccard()
	logger.Info("measuring accuracy",
		"set_size", cfg.SetSize, "overlap", cfg.Overlap, "jaccard", jaccard,
		"trials", cfg.Trials, "hasher", cfg.Hasher)

	results := make([]AccuracyResult, 0, len(cfg.Registers))

	for _, n := range cfg.Registers {
		res, measureErr := measureAccuracy(uint32(n), cfg, opts)
		if measureErr != nil {
			return nil, fmt.Errorf("measure %d registers: %w", n, measureErr)
		}

		logger.Debug("measured",
			"registers", res.Registers, "mean", res.MeanEstimate,
			"std_dev", res.StdDev, "pass", res.Pass)

		results = append(results, res)
	}

	return results, nil
}

// measureAccuracy runs cfg.Trials trials with n registers. Trial t uses keys
// starting at t times the union size, so trials never share keys.
func measureAccuracy(n uint32, cfg *Config, opts []minhash.Option) (AccuracyResult, error) {
	a, err := minhash.New(n, opts...)
	if err != nil {
		return AccuracyResult{}, err
	}
	defer a.Release()

	b, err := minhash.New(n, opts...)
	if err != nil {
		return AccuracyResult{}, err
	}
	defer b.Release()

	unionSize := 2*cfg.SetSize - cfg.Overlap
	estimates := make([]float64, 0, cfg.Trials)

	var key []byte
	for trial := range cfg.Trials {
		a.Reset()
		b.Reset()

		offset := trial * unionSize
		for k := offset; k < offset+cfg.SetSize; k++ {
			key = strconv.AppendInt(key[:0], int64(k), 10)
			a.Add(key)
		}
		for k := offset + cfg.SetSize - cfg.Overlap; k < offset+unionSize; k++ {
			key = strconv.AppendInt(key[:0], int64(k), 10)
			b.Add(key)
		}

		estimates = append(estimates, a.Estimate(b))
	}

	jaccard := cfg.TrueJaccard()
	mean, stdDev := meanStdDev(estimates)

	return AccuracyResult{
		Registers:    n,
		MemoryBytes:  a.SizeBytes(),
		Jaccard:      jaccard,
		MeanEstimate: mean,
		Bias:         mean - jaccard,
		StdDev:       stdDev,
		StdError:     minhash.StandardError(n, jaccard),
		Pass:         math.Abs(mean-jaccard) <= cfg.Tolerance,
	}, nil
}

// meanStdDev returns the mean and sample standard deviation of xs.
func meanStdDev(xs []float64) (mean, stdDev float64) {
	if len(xs) == 0 {
		return 0, 0
	}

	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	if len(xs) < 2 {
		return mean, 0
	}

	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}

	return mean, math.Sqrt(sumSq / float64(len(xs)-1))
}
