package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/compression-optimizer/internal/dataset"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/metrics"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/optd"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/logger"
)

func newOptimizeCmd() *cobra.Command {
	var input string
	var full bool

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimise a local dataset and print the result as JSON",
		Long: `Reads a CSV file with timestamp and value columns, or a JSON request body
({"data": [...]} or {"storage_url": "..."}), runs the search and prints the
optimal parameters. With --full the whole run record is printed.`,
		Example: "  optd optimize --input readings.csv\n  optd optimize -c config/config.yaml --input request.json --full",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			req, err := readRequest(input)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			// one-shot runs keep history in memory only
			cfg.Store.Driver = "memory"
			service, err := newService(ctx, cfg, metrics.New(prometheus.NewRegistry()))
			if err != nil {
				return err
			}

			rec, err := service.Run(ctx, req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if full {
				return enc.Encode(rec)
			}
			return enc.Encode(rec.Optimal)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV or JSON file to optimise")
	cmd.Flags().BoolVar(&full, "full", false, "Print the full run record including top results")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// readRequest loads a request from a .csv or .json file
func readRequest(path string) (dataset.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataset.Request{}, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return dataset.DecodeRequest(f)
	case ".csv":
		res, err := dataset.ParseCSV(f)
		if err != nil {
			return dataset.Request{}, err
		}
		if res.Skipped > 0 {
			logger.Warn("skipped unparseable rows", "skipped", res.Skipped, "total", res.Total, "errors", res.Errors)
		}
		return dataset.Request{Data: res.Data}, nil
	default:
		return dataset.Request{}, fmt.Errorf("unsupported input %q (expected .csv or .json)", path)
	}
}

func newSpaceCmd() *cobra.Command {
	var countOnly bool

	cmd := &cobra.Command{
		Use:   "space",
		Short: "Print the candidates the configured search would evaluate",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			space, err := optd.BuildSpace(cfg.Search)
			if err != nil {
				return err
			}

			if countOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), space.Size())
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(space.Enumerate())
		},
	}

	cmd.Flags().BoolVar(&countOnly, "count", false, "Print only the number of candidates")
	return cmd
}
