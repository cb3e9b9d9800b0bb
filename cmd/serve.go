package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsystem-ai/recording-insights/internal/model"
	"github.com/newsystem-ai/recording-insights/internal/pipeline"
	"github.com/newsystem-ai/recording-insights/internal/sampler"
	"github.com/newsystem-ai/recording-insights/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p := buildPipeline(st)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st, p, cfg.Server.AllowedOrigins),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func newRouter(st store.Store, p *pipeline.Pipeline, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/analyses", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			VideoPath    string  `json:"video_path"`
			AnalysisType string  `json:"analysis_type"`
			TargetFPS    float64 `json:"target_fps"`
			MaxFrames    int     `json:"max_frames"`
			HourlyRate   float64 `json:"hourly_rate"`
			BudgetUSD    float64 `json:"budget_usd"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.VideoPath == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "video_path is required"})
			return
		}

		envelope, err := p.Run(req.Context(), pipeline.Request{
			Recording:    model.Recording{VideoPath: body.VideoPath},
			AnalysisType: body.AnalysisType,
			Overrides: sampler.StrategyOverrides{
				TargetFPS: body.TargetFPS,
				MaxFrames: body.MaxFrames,
			},
			HourlyRate: body.HourlyRate,
			BudgetUSD:  body.BudgetUSD,
		})
		if err != nil {
			zap.L().Error("analysis request failed",
				zap.String("video", body.VideoPath),
				zap.Error(err),
			)
			// The failure envelope is a structured API response, not a 5xx.
			writeJSON(w, http.StatusUnprocessableEntity, envelope)
			return
		}
		writeJSON(w, http.StatusOK, envelope)
	})

	r.Get("/v1/runs", func(w http.ResponseWriter, req *http.Request) {
		runs, err := st.ListRuns(req.Context(), store.RunFilter{
			Status: model.RunStatus(req.URL.Query().Get("status")),
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list runs failed"})
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/v1/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
