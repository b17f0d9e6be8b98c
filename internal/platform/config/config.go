// Package config は環境変数と任意の YAML ファイルからエンジン設定を読み込みます。
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"price_optimizer/internal/feature/pricing/domain"
	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/domain/rules"
)

// 予測器の種類です。
const (
	PredictorNone       = "none"
	PredictorSubprocess = "subprocess"
	PredictorGemini     = "gemini"
)

// PolicyConfig は独自の設定を持たない商品に与えるマークアップ幅です。
type PolicyConfig struct {
	MinMarkupPct   float64               `yaml:"min_markup_pct"`
	MaxMarkupPct   float64               `yaml:"max_markup_pct"`
	UpdateInterval entity.UpdateInterval `yaml:"update_interval"`
}

// CompetitorConfig は競合価格の取得を制御します。
type CompetitorConfig struct {
	Sources            []string      `yaml:"sources"`
	FreshnessWindow    time.Duration `yaml:"freshness_window"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout"`
	FetchConcurrency   int           `yaml:"fetch_concurrency"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	UserAgent          string        `yaml:"user_agent"`
}

// ScheduleConfig は2つのトリガーの cron 式です。空の式はトリガーを無効にします。
type ScheduleConfig struct {
	Optimization      string `yaml:"optimization"`
	CompetitorRefresh string `yaml:"competitor_refresh"`
}

// PredictorConfig は外部予測器の選択と設定です。
type PredictorConfig struct {
	Kind        string        `yaml:"kind"`
	Fallback    string        `yaml:"fallback"`
	Python      string        `yaml:"python"`
	Script      string        `yaml:"script"`
	ModelDir    string        `yaml:"model_dir"`
	Timeout     time.Duration `yaml:"timeout"`
	GeminiModel string        `yaml:"gemini_model"`
}

// RedisConfig は観測値キャッシュの接続先です。Addr が空なら Redis を使いません。
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig は決定のパブリッシャーと注文イベントのコンシューマーの設定です。
// ブローカーがなければ両方とも無効です。
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	DecisionTopic string   `yaml:"decision_topic"`
	EventTopic    string   `yaml:"event_topic"`
	GroupID       string   `yaml:"group_id"`
}

// Config はエンジン設定の全体です。
type Config struct {
	HTTPPort           string             `yaml:"http_port"`
	LogLevel           string             `yaml:"log_level"`
	Timezone           string             `yaml:"timezone"`
	Weights            entity.Weights     `yaml:"weights"`
	Model              entity.ModelConfig `yaml:"model"`
	Risk               rules.RiskConfig   `yaml:"risk"`
	MinChangeThreshold float64            `yaml:"min_change_threshold"`
	Holidays           []string           `yaml:"holidays"`
	DefaultPolicy      PolicyConfig       `yaml:"default_policy"`
	Competitors        CompetitorConfig   `yaml:"competitors"`
	Schedule           ScheduleConfig     `yaml:"schedule"`
	Predictor          PredictorConfig    `yaml:"predictor"`
	BatchConcurrency   int                `yaml:"batch_concurrency"`
	HistorySize        int                `yaml:"history_size"`
	AuditLimit         int                `yaml:"audit_limit"`
	LowStockTrigger    int                `yaml:"low_stock_trigger"`
	Redis              RedisConfig        `yaml:"redis"`
	Kafka              KafkaConfig        `yaml:"kafka"`
}

// Default は標準の設定を返します。
func Default() Config {
	return Config{
		HTTPPort:           "8080",
		LogLevel:           "info",
		Timezone:           "UTC",
		Weights:            entity.DefaultWeights(),
		Model:              entity.DefaultModelConfig(),
		Risk:               rules.DefaultRiskConfig(),
		MinChangeThreshold: 0.01,
		DefaultPolicy: PolicyConfig{
			MinMarkupPct:   10,
			MaxMarkupPct:   50,
			UpdateInterval: entity.UpdateDaily,
		},
		Competitors: CompetitorConfig{
			FreshnessWindow:    rules.DefaultFreshnessWindow,
			FetchTimeout:       10 * time.Second,
			FetchConcurrency:   4,
			RateLimitPerMinute: 60,
			UserAgent:          "price-optimizer/1.0",
		},
		Schedule: ScheduleConfig{
			Optimization:      "@hourly",
			CompetitorRefresh: "@weekly",
		},
		Predictor: PredictorConfig{
			Kind:        PredictorNone,
			Fallback:    "rules",
			Python:      "python3",
			Script:      "predict_price.py",
			ModelDir:    "models",
			Timeout:     30 * time.Second,
			GeminiModel: "gemini-2.5-flash",
		},
		BatchConcurrency: 1,
		HistorySize:      100,
		AuditLimit:       1000,
		LowStockTrigger:  5,
		Kafka: KafkaConfig{
			DecisionTopic: "price-decisions",
			EventTopic:    "order-events",
			GroupID:       "price-optimizer",
		},
	}
}

// Load は設定を組み立てます。デフォルトに CONFIG_FILE で指定した YAML ファイルを重ね、
// さらに個別の環境変数で上書きしてから検証します。
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidConfig, path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidConfig, path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.HTTPPort, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Timezone, "TZ_NAME")
	setString(&cfg.Schedule.Optimization, "OPTIMIZATION_SCHEDULE")
	setString(&cfg.Schedule.CompetitorRefresh, "COMPETITOR_REFRESH_SCHEDULE")
	setString(&cfg.Predictor.Kind, "PREDICTOR")
	setString(&cfg.Predictor.Fallback, "PREDICTOR_FALLBACK")
	setString(&cfg.Predictor.Python, "PREDICTOR_PYTHON")
	setString(&cfg.Predictor.Script, "PREDICTOR_SCRIPT")
	setString(&cfg.Predictor.ModelDir, "PREDICTOR_MODEL_DIR")
	setString(&cfg.Predictor.GeminiModel, "GEMINI_MODEL")
	setString(&cfg.Kafka.DecisionTopic, "KAFKA_DECISION_TOPIC")
	setString(&cfg.Kafka.EventTopic, "KAFKA_EVENT_TOPIC")
	setString(&cfg.Kafka.GroupID, "KAFKA_GROUP_ID")
	setList(&cfg.Kafka.Brokers, "KAFKA_BROKERS")
	setList(&cfg.Competitors.Sources, "COMPETITOR_SOURCES")
	setList(&cfg.Holidays, "HOLIDAYS")

	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Redis.Addr = host + ":" + envOr("REDIS_PORT", "6379")
	}
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")

	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	collect(setFloat(&cfg.MinChangeThreshold, "MIN_CHANGE_THRESHOLD"))
	collect(setFloat(&cfg.Model.MaxPriceChange, "MAX_PRICE_CHANGE"))
	collect(setFloat(&cfg.Model.MinMargin, "MIN_MARGIN"))
	collect(setFloat(&cfg.Model.MaxMargin, "MAX_MARGIN"))
	collect(setInt(&cfg.BatchConcurrency, "BATCH_CONCURRENCY"))
	collect(setInt(&cfg.LowStockTrigger, "LOW_STOCK_TRIGGER"))
	collect(setDuration(&cfg.Competitors.FreshnessWindow, "COMPETITOR_FRESHNESS"))
	collect(setDuration(&cfg.Predictor.Timeout, "PREDICTOR_TIMEOUT"))
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Validate は価格ルールが前提とする不変条件を検査します。
// 重みの合計が100ならパーセントとみなしてその場で正規化します。
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	w := c.Weights
	if w.Competitor < 0 || w.Historical < 0 || w.Seasonal < 0 || w.Inventory < 0 || w.Demand < 0 {
		add("weights must be non-negative")
	} else {
		switch sum := w.Sum(); {
		case math.Abs(sum-1) <= 1e-6:
		case math.Abs(sum-100) <= 1e-4:
			c.Weights = entity.Weights{
				Competitor: w.Competitor / 100,
				Historical: w.Historical / 100,
				Seasonal:   w.Seasonal / 100,
				Inventory:  w.Inventory / 100,
				Demand:     w.Demand / 100,
			}
		default:
			add("weights must sum to 1, got %g", sum)
		}
	}

	m := c.Model
	if m.MinMargin < 0 || m.MaxMargin >= 1 || m.MinMargin > m.MaxMargin {
		add("margins must satisfy 0 <= min (%g) <= max (%g) < 1", m.MinMargin, m.MaxMargin)
	}
	if m.MaxPriceChange <= 0 || m.MaxPriceChange > 1 {
		add("max price change must be in (0, 1], got %g", m.MaxPriceChange)
	}
	if m.Precision < 0 || m.Precision > 6 {
		add("precision must be in [0, 6], got %d", m.Precision)
	}
	if m.BusinessHoursStart < 0 || m.BusinessHoursEnd > 23 || m.BusinessHoursStart > m.BusinessHoursEnd {
		add("business hours must satisfy 0 <= start <= end <= 23")
	}
	if c.MinChangeThreshold < 0 || c.MinChangeThreshold >= 1 {
		add("min change threshold must be in [0, 1), got %g", c.MinChangeThreshold)
	}

	p := c.DefaultPolicy
	if p.MinMarkupPct < 0 || p.MinMarkupPct > p.MaxMarkupPct {
		add("default markup must satisfy 0 <= min (%g) <= max (%g)", p.MinMarkupPct, p.MaxMarkupPct)
	}
	if p.UpdateInterval != entity.UpdateDaily && p.UpdateInterval != entity.UpdateWeekly {
		add("update interval must be daily or weekly, got %q", p.UpdateInterval)
	}

	switch c.Predictor.Kind {
	case PredictorNone, PredictorSubprocess, PredictorGemini:
	default:
		add("unknown predictor %q", c.Predictor.Kind)
	}
	switch c.Predictor.Fallback {
	case "rules", "skip":
	default:
		add("predictor fallback must be rules or skip, got %q", c.Predictor.Fallback)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		add("unknown timezone %q", c.Timezone)
	}
	for _, h := range c.Holidays {
		if !validHoliday(h) {
			add("holiday %q must be YYYY-MM-DD or MM-DD", h)
		}
	}
	if c.BatchConcurrency < 1 {
		c.BatchConcurrency = 1
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Location は設定されたタイムゾーンを返します。不明なら UTC です。
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validHoliday(s string) bool {
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	_, err := time.Parse("01-02", s)
	return err == nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %v", key, err)
	}
	*dst = f
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %v", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %v", key, err)
	}
	*dst = d
	return nil
}
