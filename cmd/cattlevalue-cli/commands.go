package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"cattlevalue/internal/core"
	"cattlevalue/internal/dataset"
	"cattlevalue/internal/derive"
)

type options struct {
	datasetPath string
	herdPath    string
	start       string
	end         string
	id          string
	bins        int
	indent      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "cattlevalue-cli",
		Short:        "Derive cattle value chart series from a dataset and a herd file",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.datasetPath, "dataset", "data/farming_data.json", "reference dataset JSON file")
	root.PersistentFlags().StringVar(&opts.herdPath, "herd", "", "herd JSON file (array of {type, weight[, values]})")
	root.PersistentFlags().BoolVar(&opts.indent, "indent", true, "indent JSON output")

	root.AddCommand(typesCmd(opts))
	root.AddCommand(seriesCmd(opts))
	return root
}

func typesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the cattle types of the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := loadDataset(cmd.Context(), opts.datasetPath)
			if err != nil {
				return err
			}
			types := d.Types()
			if types == nil {
				types = []core.TypeOption{}
			}
			return writeJSON(cmd.OutOrStdout(), types, opts.indent)
		},
	}
}

func seriesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "series individual|total|average|comparison|distribution",
		Short:     "Print a derived chart series as JSON",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"individual", "total", "average", "comparison", "distribution"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.herdPath == "" {
				return errors.New("--herd is required")
			}
			h, err := loadHerd(cmd.Context(), opts)
			if err != nil {
				return err
			}
			out, err := derivedSeries(args[0], h, opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out, opts.indent)
		},
	}
	cmd.Flags().StringVar(&opts.start, "start", "", "range start date (average, comparison)")
	cmd.Flags().StringVar(&opts.end, "end", "", "range end date (average, comparison)")
	cmd.Flags().StringVar(&opts.id, "id", "", "cattle id, or zero-based herd index (distribution)")
	cmd.Flags().IntVar(&opts.bins, "bins", derive.DefaultBins, "number of histogram bins (distribution)")
	return cmd
}

func derivedSeries(kind string, h core.Herd, opts *options) (any, error) {
	switch kind {
	case "individual":
		return derive.IndividualSeries(h), nil
	case "total":
		return derive.HerdTotalSeries(h), nil
	case "average":
		return derive.RangeAverageSeries(h, opts.start, opts.end), nil
	case "comparison":
		return derive.TypeAverageComparison(h, opts.start, opts.end), nil
	case "distribution":
		c, err := findCattle(h, opts.id)
		if err != nil {
			return nil, err
		}
		return derive.Distribution(c, opts.bins), nil
	}
	return nil, fmt.Errorf("unknown series %q", kind)
}

func findCattle(h core.Herd, id string) (core.TrackedCattle, error) {
	if id == "" {
		return core.TrackedCattle{}, errors.New("--id is required for distribution")
	}
	if i := h.Index(id); i >= 0 {
		return h[i], nil
	}
	if idx, err := strconv.Atoi(id); err == nil && idx >= 0 && idx < len(h) {
		return h[idx], nil
	}
	return core.TrackedCattle{}, fmt.Errorf("cattle %q not found in herd of %d", id, len(h))
}

func loadDataset(ctx context.Context, path string) (*dataset.Dataset, error) {
	d, err := dataset.FileLoader{Path: path}.Load(ctx)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// herdEntry keeps Values nil when the file omits them, so they can be
// resolved against the dataset.
type herdEntry struct {
	ID     string                      `json:"id"`
	Type   string                      `json:"type"`
	Weight float64                     `json:"weight"`
	Values []core.ReferenceObservation `json:"values"`
}

func loadHerd(ctx context.Context, opts *options) (core.Herd, error) {
	data, err := os.ReadFile(opts.herdPath)
	if err != nil {
		return nil, fmt.Errorf("read herd file: %w", err)
	}
	var entries []herdEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode herd file %s: %w", opts.herdPath, err)
	}

	var d *dataset.Dataset
	h := make(core.Herd, 0, len(entries))
	for i, e := range entries {
		values := e.Values
		if values == nil {
			if d == nil {
				if d, err = loadDataset(ctx, opts.datasetPath); err != nil {
					return nil, fmt.Errorf("resolve values for entry %d: %w", i, err)
				}
			}
			values, _ = d.Lookup(e.Type)
		}
		c := core.TrackedCattle{ID: e.ID, Type: e.Type, Weight: e.Weight, Values: core.CopyObservations(values)}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("herd entry %d: %w", i, err)
		}
		h = append(h, c)
	}
	h.EnsureIDs()
	return h, nil
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
