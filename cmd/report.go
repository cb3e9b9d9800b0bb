package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsystem-ai/recording-insights/internal/report"
)

var (
	reportRunID string
	reportOut   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export a completed run as an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetRun(ctx, reportRunID)
		if err != nil {
			return eris.Wrapf(err, "get run %s", reportRunID)
		}
		if run.Result == nil {
			return eris.Errorf("run %s has no result (status %s)", reportRunID, run.Status)
		}

		if err := report.WriteWorkbook(reportOut, run.Result); err != nil {
			return err
		}

		zap.L().Info("report written",
			zap.String("run_id", reportRunID),
			zap.String("path", reportOut),
		)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run ID to export (required)")
	reportCmd.Flags().StringVar(&reportOut, "out", "roi-report.xlsx", "output xlsx path")
	_ = reportCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(reportCmd)
}
