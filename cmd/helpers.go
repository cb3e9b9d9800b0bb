package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/newsystem-ai/recording-insights/internal/analysis"
	"github.com/newsystem-ai/recording-insights/internal/parser"
	"github.com/newsystem-ai/recording-insights/internal/pipeline"
	"github.com/newsystem-ai/recording-insights/internal/roi"
	"github.com/newsystem-ai/recording-insights/internal/sampler"
	"github.com/newsystem-ai/recording-insights/internal/store"
	"github.com/newsystem-ai/recording-insights/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// buildPipeline wires the full analysis stack. Callers own the returned
// store's lifecycle.
func buildPipeline(st store.Store) *pipeline.Pipeline {
	client := anthropic.NewClient(cfg.Anthropic.Key)
	smp := sampler.New(cfg.Extraction, cfg.Pricing)
	analyzer := analysis.NewAnalyzer(client, cfg.Analysis, cfg.Anthropic)
	normalizer := parser.NewNormalizer(cfg.Workflow, cfg.ROI.HourlyRate)
	roiCalc := roi.NewCalculator(cfg.ROI)
	return pipeline.New(cfg, st, smp, analyzer, normalizer, roiCalc, nil)
}
