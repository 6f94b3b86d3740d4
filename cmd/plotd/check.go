package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/plotconfig/internal/normalizer"
	"github.com/matthewbaird/plotconfig/internal/types"
	"github.com/matthewbaird/plotconfig/internal/validator"
)

func checkCmd() *cobra.Command {
	var (
		quiet  bool
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "check [config.json]",
		Short: "Normalize a plot configuration and report what it is missing",
		Long: `check reads a JSON plot configuration (from a file or stdin), normalizes
it and prints the normalized configuration together with its completeness.
It exits non-zero when the configuration is incomplete.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}
			out := cmd.OutOrStdout()
			if quiet {
				out = io.Discard
			}
			res, err := check(in, out, pretty)
			if err != nil {
				return err
			}
			if !res.Complete {
				return fmt.Errorf("configuration is incomplete: %d missing", len(res.Missing))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only set the exit status")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	return cmd
}

type checkReport struct {
	Config types.PlotConfig `json:"config"`
	validator.Result
}

func check(r io.Reader, w io.Writer, pretty bool) (validator.Result, error) {
	var cfg types.PlotConfig
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return validator.Result{}, fmt.Errorf("decode configuration: %w", err)
	}
	cfg = normalizer.Normalize(cfg)
	res := validator.Check(cfg)

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(checkReport{Config: cfg, Result: res}); err != nil {
		return res, fmt.Errorf("write report: %w", err)
	}
	return res, nil
}
