package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsystem-ai/recording-insights/internal/model"
	"github.com/newsystem-ai/recording-insights/internal/pipeline"
	"github.com/newsystem-ai/recording-insights/internal/sampler"
)

var (
	analyzeVideo      string
	analyzeType       string
	analyzeFPS        float64
	analyzeMaxFrames  int
	analyzeHourlyRate float64
	analyzeBudget     float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single screen recording",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p := buildPipeline(st)

		envelope, err := p.Run(ctx, pipeline.Request{
			Recording:    model.Recording{VideoPath: analyzeVideo},
			AnalysisType: analyzeType,
			Overrides: sampler.StrategyOverrides{
				TargetFPS: analyzeFPS,
				MaxFrames: analyzeMaxFrames,
			},
			HourlyRate: analyzeHourlyRate,
			BudgetUSD:  analyzeBudget,
		})
		if err != nil {
			zap.L().Error("analysis failed",
				zap.String("video", analyzeVideo),
				zap.String("step", envelope.FailedStep),
				zap.Error(err),
			)
		} else {
			zap.L().Info("analysis complete",
				zap.String("run_id", envelope.RunID),
				zap.Int("workflows", len(envelope.Workflows)),
				zap.Int("opportunities", len(envelope.Opportunities)),
				zap.Float64("estimated_cost_usd", envelope.EstimatedCostUSD),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(envelope); encErr != nil {
			return eris.Wrap(encErr, "encode result")
		}
		return err
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeVideo, "video", "", "path to the screen recording (required)")
	analyzeCmd.Flags().StringVar(&analyzeType, "type", "", "analysis type: structured, discovery, or natural (default from config)")
	analyzeCmd.Flags().Float64Var(&analyzeFPS, "fps", 0, "override target sampling FPS")
	analyzeCmd.Flags().IntVar(&analyzeMaxFrames, "max-frames", 0, "override frame budget")
	analyzeCmd.Flags().Float64Var(&analyzeHourlyRate, "hourly-rate", 0, "hourly rate for ROI (default from config)")
	analyzeCmd.Flags().Float64Var(&analyzeBudget, "budget", 0, "implementation budget for recommendations")
	_ = analyzeCmd.MarkFlagRequired("video")
	rootCmd.AddCommand(analyzeCmd)
}
