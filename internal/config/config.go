package config

import (
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Workflow   WorkflowConfig   `yaml:"workflow" mapstructure:"workflow"`
	ROI        ROIConfig        `yaml:"roi" mapstructure:"roi"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the vision model.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	VisionModel string  `yaml:"vision_model" mapstructure:"vision_model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// ExtractionConfig configures frame sampling.
type ExtractionConfig struct {
	Mode            string  `yaml:"mode" mapstructure:"mode"` // production | testing
	TargetFPS       float64 `yaml:"target_fps" mapstructure:"target_fps"`
	MinFPS          float64 `yaml:"min_fps" mapstructure:"min_fps"`
	MaxFPS          float64 `yaml:"max_fps" mapstructure:"max_fps"`
	MaxFrames       int     `yaml:"max_frames" mapstructure:"max_frames"`
	MinFrames       int     `yaml:"min_frames" mapstructure:"min_frames"`
	SceneDetection  bool    `yaml:"scene_detection" mapstructure:"scene_detection"`
	SceneThreshold  float64 `yaml:"scene_threshold" mapstructure:"scene_threshold"`
	JPEGQuality     int     `yaml:"jpeg_quality" mapstructure:"jpeg_quality"`
	MaxDimensionPx  int     `yaml:"max_dimension_px" mapstructure:"max_dimension_px"`
	FallbackFPS     float64 `yaml:"fallback_fps" mapstructure:"fallback_fps"`
	DegradedPercent float64 `yaml:"degraded_percent" mapstructure:"degraded_percent"`
}

// AnalysisConfig configures the vision-model invocation.
type AnalysisConfig struct {
	MaxFramesPerRequest int     `yaml:"max_frames_per_request" mapstructure:"max_frames_per_request"`
	MaxRetries          int     `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffBaseSecs     float64 `yaml:"backoff_base_secs" mapstructure:"backoff_base_secs"`
	RequestTimeoutSecs  int     `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	RequestsPerMinute   float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	DefaultType         string  `yaml:"default_type" mapstructure:"default_type"`
}

// WorkflowCategory pairs a workflow type with the keywords that identify it.
// Categories form an ordered table, not a map: keyword-count ties during
// type inference are broken by table order.
type WorkflowCategory struct {
	Name     string   `yaml:"name" mapstructure:"name"`
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
}

// WorkflowConfig configures type inference and workflow priority scoring.
type WorkflowConfig struct {
	Categories        []WorkflowCategory `yaml:"categories" mapstructure:"categories"`
	CategoriesFile    string             `yaml:"categories_file" mapstructure:"categories_file"`
	HighPriorityTypes []string           `yaml:"high_priority_types" mapstructure:"high_priority_types"`
	HighPriorityBoost float64            `yaml:"high_priority_boost" mapstructure:"high_priority_boost"`
	TimeFactorCap     float64            `yaml:"time_factor_cap" mapstructure:"time_factor_cap"`
	PotentialWeights  map[string]float64 `yaml:"potential_weights" mapstructure:"potential_weights"`
	ComplexityWeights map[string]float64 `yaml:"complexity_weights" mapstructure:"complexity_weights"`
	PriorityScale     float64            `yaml:"priority_scale" mapstructure:"priority_scale"`
	MaxInsights       int                `yaml:"max_insights" mapstructure:"max_insights"`
}

// ROIConfig configures the financial engine. The rates and tier tables are
// calibration data, so they live in configuration rather than code.
type ROIConfig struct {
	HourlyRate          float64            `yaml:"hourly_rate" mapstructure:"hourly_rate"`
	WorkingDaysPerYear  float64            `yaml:"working_days_per_year" mapstructure:"working_days_per_year"`
	WorkingHoursPerDay  float64            `yaml:"working_hours_per_day" mapstructure:"working_hours_per_day"`
	ImplementationCosts map[string]float64 `yaml:"implementation_costs" mapstructure:"implementation_costs"`
	EfficiencyFactors   map[string]float64 `yaml:"efficiency_factors" mapstructure:"efficiency_factors"`
	QuickWinMonths      float64            `yaml:"quick_win_months" mapstructure:"quick_win_months"`
	HighValueSavings    float64            `yaml:"high_value_savings" mapstructure:"high_value_savings"`
	PhasedProgramFloor  float64            `yaml:"phased_program_floor" mapstructure:"phased_program_floor"`
	MaxRecommendations  int                `yaml:"max_recommendations" mapstructure:"max_recommendations"`
}

// PricingConfig holds cost-attribution rates for pipeline estimates.
type PricingConfig struct {
	PerFrameUSD    float64 `yaml:"per_frame_usd" mapstructure:"per_frame_usd"`
	Per1KTokensUSD float64 `yaml:"per_1k_tokens_usd" mapstructure:"per_1k_tokens_usd"`
	WarnAboveUSD   float64 `yaml:"warn_above_usd" mapstructure:"warn_above_usd"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and the environment.
// Environment variables use the INSIGHTS_ prefix with underscores,
// e.g. INSIGHTS_ANTHROPIC_KEY.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INSIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "insights.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// An empty default registers the key so AutomaticEnv can populate it.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.vision_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.2)

	v.SetDefault("extraction.mode", "production")
	v.SetDefault("extraction.target_fps", 1.0)
	v.SetDefault("extraction.min_fps", 0.05)
	v.SetDefault("extraction.max_fps", 2.0)
	v.SetDefault("extraction.max_frames", 30)
	v.SetDefault("extraction.min_frames", 5)
	// Scene filtering drops too much from mostly-static UI recordings;
	// off until the histogram threshold is recalibrated.
	v.SetDefault("extraction.scene_detection", false)
	v.SetDefault("extraction.scene_threshold", 0.3)
	v.SetDefault("extraction.jpeg_quality", 85)
	v.SetDefault("extraction.max_dimension_px", 2048)
	v.SetDefault("extraction.fallback_fps", 30.0)
	v.SetDefault("extraction.degraded_percent", 0.5)

	v.SetDefault("analysis.max_frames_per_request", 60)
	v.SetDefault("analysis.max_retries", 3)
	v.SetDefault("analysis.backoff_base_secs", 2.0)
	v.SetDefault("analysis.request_timeout_secs", 300)
	v.SetDefault("analysis.requests_per_minute", 10)
	v.SetDefault("analysis.default_type", "natural")

	v.SetDefault("workflow.high_priority_types", []string{"email_to_wms", "data_entry"})
	v.SetDefault("workflow.high_priority_boost", 1.3)
	v.SetDefault("workflow.time_factor_cap", 0.5)
	v.SetDefault("workflow.potential_weights", map[string]float64{"high": 3, "medium": 2, "low": 1})
	v.SetDefault("workflow.complexity_weights", map[string]float64{"low": 3, "medium": 2, "high": 1})
	v.SetDefault("workflow.priority_scale", 10)
	v.SetDefault("workflow.max_insights", 5)

	v.SetDefault("roi.hourly_rate", 25.0)
	v.SetDefault("roi.working_days_per_year", 250)
	v.SetDefault("roi.working_hours_per_day", 8)
	v.SetDefault("roi.implementation_costs", map[string]float64{"low": 5000, "medium": 15000, "high": 50000})
	v.SetDefault("roi.efficiency_factors", map[string]float64{"high": 0.95, "medium": 0.75, "low": 0.50})
	v.SetDefault("roi.quick_win_months", 3)
	v.SetDefault("roi.high_value_savings", 50000)
	v.SetDefault("roi.phased_program_floor", 100000)
	v.SetDefault("roi.max_recommendations", 4)

	v.SetDefault("pricing.per_frame_usd", 0.01)
	v.SetDefault("pricing.per_1k_tokens_usd", 0.02)
	v.SetDefault("pricing.warn_above_usd", 5.0)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Workflow.Categories) == 0 {
		cfg.Workflow.Categories = DefaultCategories()
	}
	if cfg.Workflow.CategoriesFile != "" {
		cats, err := LoadCategoriesFile(cfg.Workflow.CategoriesFile)
		if err != nil {
			return nil, err
		}
		cfg.Workflow.Categories = cats
	}

	return &cfg, nil
}

// DefaultCategories returns the built-in workflow keyword table. Earlier
// categories win keyword-count ties, so the most specific types come first.
func DefaultCategories() []WorkflowCategory {
	return []WorkflowCategory{
		{Name: "email_to_wms", Keywords: []string{
			"email", "outlook", "gmail", "wms", "warehouse", "order entry", "sap",
		}},
		{Name: "data_entry", Keywords: []string{
			"copy", "paste", "type", "form", "field", "entry", "input", "populate",
		}},
		{Name: "excel_reporting", Keywords: []string{
			"excel", "spreadsheet", "report", "pivot", "csv", "sheet", "export",
		}},
		{Name: "data_validation", Keywords: []string{
			"verify", "validate", "check", "confirm", "review", "compare",
		}},
		{Name: "communication", Keywords: []string{
			"reply", "message", "chat", "slack", "teams", "respond", "notify",
		}},
	}
}

// LoadCategoriesFile reads an ordered workflow keyword table from a YAML
// file holding a sequence of {name, keywords} entries.
func LoadCategoriesFile(path string) ([]WorkflowCategory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read categories file %s", path)
	}
	var cats []WorkflowCategory
	if err := yaml.Unmarshal(data, &cats); err != nil {
		return nil, eris.Wrapf(err, "config: parse categories file %s", path)
	}
	if len(cats) == 0 {
		return nil, eris.Errorf("config: categories file %s is empty", path)
	}
	return cats, nil
}

// Validate checks that the tunables are internally consistent. All problems
// are collected and reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Extraction.MaxFrames < 1 {
		errs = append(errs, "extraction.max_frames must be >= 1")
	}
	if c.Extraction.MinFPS <= 0 || c.Extraction.MaxFPS < c.Extraction.MinFPS {
		errs = append(errs, "extraction fps bounds must satisfy 0 < min_fps <= max_fps")
	}
	if c.Extraction.SceneThreshold < 0 || c.Extraction.SceneThreshold > 1 {
		errs = append(errs, "extraction.scene_threshold must be in [0,1]")
	}
	if c.Extraction.JPEGQuality < 1 || c.Extraction.JPEGQuality > 100 {
		errs = append(errs, "extraction.jpeg_quality must be in [1,100]")
	}
	if c.Analysis.MaxRetries < 0 {
		errs = append(errs, "analysis.max_retries must be >= 0")
	}
	if c.Analysis.BackoffBaseSecs <= 0 {
		errs = append(errs, "analysis.backoff_base_secs must be > 0")
	}
	if c.ROI.HourlyRate < 0 {
		errs = append(errs, "roi.hourly_rate must be >= 0")
	}
	if c.ROI.WorkingDaysPerYear <= 0 {
		errs = append(errs, "roi.working_days_per_year must be > 0")
	}
	if c.ROI.WorkingHoursPerDay <= 0 {
		errs = append(errs, "roi.working_hours_per_day must be > 0")
	}
	for _, tier := range []string{"low", "medium", "high"} {
		if _, ok := c.ROI.ImplementationCosts[tier]; !ok {
			errs = append(errs, "roi.implementation_costs missing tier "+tier)
		}
		if _, ok := c.ROI.EfficiencyFactors[tier]; !ok {
			errs = append(errs, "roi.efficiency_factors missing tier "+tier)
		}
	}
	for level, f := range c.ROI.EfficiencyFactors {
		if f < 0 || f > 1 || math.IsNaN(f) {
			errs = append(errs, "roi.efficiency_factors."+level+" must be in [0,1]")
		}
	}
	if len(c.Workflow.Categories) == 0 {
		errs = append(errs, "workflow.categories must not be empty")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger from the log config.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
