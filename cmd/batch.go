package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newsystem-ai/recording-insights/internal/analysis"
	"github.com/newsystem-ai/recording-insights/internal/model"
	"github.com/newsystem-ai/recording-insights/internal/pipeline"
	"github.com/newsystem-ai/recording-insights/pkg/anthropic"
)

var (
	batchDir         string
	batchType        string
	batchConcurrency int
	batchLimit       int
)

// videoExtensions lists the container formats ffmpeg handles for us.
var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze every recording in a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		videos, err := findRecordings(batchDir, batchLimit)
		if err != nil {
			return err
		}
		if len(videos) == 0 {
			zap.L().Warn("no recordings found", zap.String("dir", batchDir))
			return nil
		}

		p := buildPipeline(st)

		// Prime the prompt cache once so concurrent runs share the cached
		// system prompt instead of each paying the cache write.
		analysisType := batchType
		if analysisType == "" {
			analysisType = cfg.Analysis.DefaultType
		}
		primer := anthropic.MessageRequest{
			Model:     cfg.Anthropic.VisionModel,
			MaxTokens: 16,
			System:    anthropic.BuildCachedSystemBlocks(analysis.SystemPrompt(analysisType)),
			Messages: []anthropic.Message{
				{Role: "user", Parts: []anthropic.ContentPart{anthropic.TextPart("ok")}},
			},
		}
		client := anthropic.NewClient(cfg.Anthropic.Key)
		if _, err := anthropic.PrimerRequest(ctx, client, primer); err != nil {
			zap.L().Warn("prompt cache primer failed, continuing uncached", zap.Error(err))
		}

		var completed, failed atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(batchConcurrency)
		for _, video := range videos {
			g.Go(func() error {
				envelope, runErr := p.Run(gctx, pipeline.Request{
					Recording:    model.Recording{VideoPath: video},
					AnalysisType: batchType,
				})
				if runErr != nil {
					failed.Add(1)
					zap.L().Error("batch item failed",
						zap.String("video", video),
						zap.String("step", envelope.FailedStep),
						zap.Error(runErr),
					)
					// One bad recording never aborts the batch.
					return nil
				}
				completed.Add(1)
				zap.L().Info("batch item complete",
					zap.String("video", video),
					zap.String("run_id", envelope.RunID),
					zap.Int("opportunities", len(envelope.Opportunities)),
				)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "batch wait")
		}

		zap.L().Info("batch complete",
			zap.Int64("completed", completed.Load()),
			zap.Int64("failed", failed.Load()),
			zap.Int("total", len(videos)),
		)
		return nil
	},
}

func findRecordings(dir string, limit int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read dir %s", dir)
	}

	var videos []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if videoExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			videos = append(videos, filepath.Join(dir, e.Name()))
		}
		if limit > 0 && len(videos) >= limit {
			break
		}
	}
	return videos, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "directory of recordings (required)")
	batchCmd.Flags().StringVar(&batchType, "type", "", "analysis type for all recordings")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 2, "max concurrent analyses")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max recordings to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(batchCmd)
}
