package main

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/jcalabro/minhash"
	"github.com/klauspost/cpuid/v2"
	"github.com/spf13/cobra"
)

// ErrLaneMismatch is returned when a lane width disagrees with the scalar path.
var ErrLaneMismatch = errors.New("lane width disagrees with scalar path")

// vectorFeatures are the CPU features the lane probe looks at.
var vectorFeatures = []cpuid.FeatureID{cpuid.SSE4, cpuid.AVX2, cpuid.AVX512F, cpuid.ASIMD}

// LaneReport describes the CPU and the outcome of the lane cross-check.
type LaneReport struct {
	CPU       string      `json:"cpu" yaml:"cpu"`
	Vendor    string      `json:"vendor" yaml:"vendor"`
	CacheLine int         `json:"cache_line" yaml:"cache_line"`
	Features  []string    `json:"features" yaml:"features"`
	Detected  string      `json:"detected" yaml:"detected"`
	Checks    []LaneCheck `json:"checks" yaml:"checks"`
}

// LaneCheck is the cross-check of one lane width at one register count.
type LaneCheck struct {
	Lanes     string  `json:"lanes" yaml:"lanes"`
	Registers uint32  `json:"registers" yaml:"registers"`
	Keys      int     `json:"keys" yaml:"keys"`
	Estimate  float64 `json:"estimate" yaml:"estimate"`
	Match     bool    `json:"match" yaml:"match"`
}

func newLanesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lanes",
		Short: "Report CPU vector support and cross-check every lane width",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(opts.configPath, cmd.Flags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, opts.verbose)

			report, err := runLaneCheck(cfg, logger)
			if err != nil {
				return err
			}

			err = writeLanes(cmd.OutOrStdout(), cfg.Format, report)
			if err != nil {
				return err
			}

			for _, c := range report.Checks {
				if !c.Match {
					return fmt.Errorf("%w: %s at %d registers", ErrLaneMismatch, c.Lanes, c.Registers)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntSlice("registers", DefaultRegisters, "register counts to check")
	cmd.Flags().Int("keys", DefaultLaneKeys, "keys added to every sketch")
	cmd.Flags().String("hasher", DefaultHasher, "key hash function (metro, xxh3)")

	return cmd
}

// runLaneCheck builds the same sketches with every lane width and compares
// them with the scalar sketch. Each register count is also checked one past
// it so that partial blocks are covered.
func runLaneCheck(cfg *Config, logger *slog.Logger) (LaneReport, error) {
	opts, err := cfg.Options()
	if err != nil {
		return LaneReport{}, err
	}

	report := LaneReport{
		CPU:       cpuid.CPU.BrandName,
		Vendor:    cpuid.CPU.VendorString,
		CacheLine: cpuid.CPU.CacheLine,
		Detected:  minhash.DetectLanes().String(),
	}
	for _, f := range vectorFeatures {
		if cpuid.CPU.Supports(f) {
			report.Features = append(report.Features, f.String())
		}
	}

	logger.Info("cpu", "brand", report.CPU, "features", report.Features, "lanes", report.Detected)

	for _, n := range cfg.Registers {
		for _, count := range []uint32{uint32(n), uint32(n) + 1} {
			checks, checkErr := checkLanes(count, cfg.LaneKeys, opts)
			if checkErr != nil {
				return LaneReport{}, fmt.Errorf("check %d registers: %w", count, checkErr)
			}
			report.Checks = append(report.Checks, checks...)
		}
	}

	return report, nil
}

func checkLanes(n uint32, keys int, opts []minhash.Option) ([]LaneCheck, error) {
	build := func(l minhash.Lanes, from int) (*minhash.Sketch, error) {
		s, err := minhash.New(n, append(slices.Clone(opts), minhash.WithLanes(l))...)
		if err != nil {
			return nil, err
		}
		for k := from; k < from+keys; k++ {
			s.AddString("key-" + strconv.Itoa(k))
		}
		return s, nil
	}

	ref, err := build(minhash.LanesScalar, 0)
	if err != nil {
		return nil, err
	}
	refOther, err := build(minhash.LanesScalar, keys/2)
	if err != nil {
		return nil, err
	}
	refEstimate := ref.Estimate(refOther)

	checks := make([]LaneCheck, 0, len(minhash.AllLanes()))
	for _, l := range minhash.AllLanes() {
		s, buildErr := build(l, 0)
		if buildErr != nil {
			return nil, buildErr
		}
		other, buildErr := build(l, keys/2)
		if buildErr != nil {
			return nil, buildErr
		}

		est := s.Estimate(other)
		match := ref.Equal(s) && slices.Equal(ref.Registers(), s.Registers()) && est == refEstimate

		checks = append(checks, LaneCheck{
			Lanes:     l.String(),
			Registers: n,
			Keys:      keys,
			Estimate:  est,
			Match:     match,
		})
	}

	return checks, nil
}
