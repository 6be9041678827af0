package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innsight-labs/innsight/internal/pipeline"
	"github.com/innsight-labs/innsight/internal/report"
)

var (
	recommendFilters []string
	recommendLimit   int
	recommendSave    bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [query]",
	Short: "Recommend accommodations for one travel query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline()
		if err != nil {
			return err
		}

		result, err := env.Pipeline.Recommend(cmd.Context(), pipeline.Request{
			Query:   args[0],
			Filters: recommendFilters,
			Limit:   recommendLimit,
		})
		if err != nil {
			return err
		}

		fmt.Println(report.Render(result))

		if recommendSave {
			path, err := report.Write(cfg.Report.Dir, result)
			if err != nil {
				return err
			}
			zap.L().Info("report saved", zap.String("path", path))
		}

		return nil
	},
}

func init() {
	recommendCmd.Flags().StringSliceVar(&recommendFilters, "filter", nil, "amenity filter (parking, wheelchair, kids, pet); repeatable")
	recommendCmd.Flags().IntVar(&recommendLimit, "limit", 0, "max results (default from config)")
	recommendCmd.Flags().BoolVar(&recommendSave, "save", false, "write a markdown report file")
	rootCmd.AddCommand(recommendCmd)
}
