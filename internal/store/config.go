package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"chronos-quant/internal/pipeline"
	"chronos-quant/internal/predictor"
	"chronos-quant/internal/rules"
)

type Config struct {
	DataSource string   `yaml:"data_source"` // YAHOO, FYERS, KITE or STATIC
	Interval   string   `yaml:"interval"`
	Period     string   `yaml:"period"`
	Exchange   string   `yaml:"exchange"`
	Universe   []string `yaml:"universe"`

	Indicators struct {
		SMAWindow  int     `yaml:"sma_window"`
		EMAWindow  int     `yaml:"ema_window"`
		RSIWindow  int     `yaml:"rsi_window"`
		MACDFast   int     `yaml:"macd_fast"`
		MACDSlow   int     `yaml:"macd_slow"`
		MACDSignal int     `yaml:"macd_signal"`
		BBWindow   int     `yaml:"bb_window"`
		BBK        float64 `yaml:"bb_k"`
		ATRWindow  int     `yaml:"atr_window"`
	} `yaml:"indicators"`
	Rules struct {
		Oversold            float64 `yaml:"oversold"`
		Overbought          float64 `yaml:"overbought"`
		UseMACDConfirmation bool    `yaml:"use_macd_confirmation"`
		Vocabulary          string  `yaml:"vocabulary"`
	} `yaml:"rules"`
	Predictor struct {
		Weights              *predictor.Weights `yaml:"weights"`
		MomentumLag          int                `yaml:"momentum_lag"`
		MinBars              int                `yaml:"min_bars"`
		ConfidenceBounds     []float64          `yaml:"confidence_bounds"`
		DegenerateConfidence float64            `yaml:"degenerate_confidence"`
	} `yaml:"predictor"`
	Commentary struct {
		Capability  string  `yaml:"capability"` // NONE, TEMPLATE or LLM
		Provider    string  `yaml:"provider"`   // OPENAI or CLAUDE
		Model       string  `yaml:"model"`
		Endpoint    string  `yaml:"endpoint"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
		System      string  `yaml:"system"`
		PromptBars  int     `yaml:"prompt_bars"`
	} `yaml:"commentary"`
	Fetch struct {
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
		MaxAttempts       int     `yaml:"max_attempts"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		YahooBaseURL      string  `yaml:"yahoo_base_url"`
		FyersBaseURL      string  `yaml:"fyers_base_url"`
	} `yaml:"fetch"`
	Cache struct {
		Backend    string `yaml:"backend"` // NONE, MEMORY or REDIS
		TTLSeconds int    `yaml:"ttl_seconds"`
		RedisAddr  string `yaml:"redis_addr"`
		RedisDB    int    `yaml:"redis_db"`
		KeyPrefix  string `yaml:"key_prefix"`
	} `yaml:"cache"`
	Journal struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
		SQLitePath    string `yaml:"sqlite_path"`
	} `yaml:"journal"`
	Watch struct {
		Cron        string `yaml:"cron"`
		EODCron     string `yaml:"eod_cron"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"watch"`
}

var (
	dataSources  = []string{"YAHOO", "FYERS", "KITE", "STATIC"}
	capabilities = []string{"NONE", "TEMPLATE", "LLM"}
	providers    = []string{"OPENAI", "CLAUDE"}
	cacheKinds   = []string{"NONE", "MEMORY", "REDIS"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if !oneOf(c.DataSource, dataSources) {
		return fmt.Errorf("invalid data_source '%s': must be one of %s", c.DataSource, strings.Join(dataSources, ", "))
	}
	if len(c.Universe) == 0 {
		return errors.New("universe cannot be empty")
	}
	if !oneOf(c.Commentary.Capability, capabilities) {
		return fmt.Errorf("invalid commentary.capability '%s': must be one of %s", c.Commentary.Capability, strings.Join(capabilities, ", "))
	}
	if c.Commentary.Capability == "LLM" && !oneOf(c.Commentary.Provider, providers) {
		return fmt.Errorf("commentary.provider must be OPENAI or CLAUDE when capability is LLM, got '%s'", c.Commentary.Provider)
	}
	if !oneOf(c.Cache.Backend, cacheKinds) {
		return fmt.Errorf("invalid cache.backend '%s': must be one of %s", c.Cache.Backend, strings.Join(cacheKinds, ", "))
	}
	if c.Cache.Backend == "REDIS" && c.Cache.RedisAddr == "" {
		return errors.New("cache.redis_addr is required for the REDIS backend")
	}
	if b := c.Predictor.ConfidenceBounds; len(b) != 0 && len(b) != 2 {
		return fmt.Errorf("predictor.confidence_bounds must have two values, got %d", len(b))
	}
	if c.Fetch.RequestsPerSecond < 0 {
		return fmt.Errorf("fetch.requests_per_second must not be negative, got %.2f", c.Fetch.RequestsPerSecond)
	}
	if err := c.PipelineConfig().Validate(); err != nil {
		return err
	}
	return nil
}

// PipelineConfig maps the indicator, rule and predictor sections onto an
// explicit pipeline configuration.
func (c *Config) PipelineConfig() pipeline.Config {
	pc := pipeline.DefaultConfig()
	ind := c.Indicators
	pc.SMAWindow = ind.SMAWindow
	pc.EMAWindow = ind.EMAWindow
	pc.RSIWindow = ind.RSIWindow
	pc.MACDFast = ind.MACDFast
	pc.MACDSlow = ind.MACDSlow
	pc.MACDSignal = ind.MACDSignal
	pc.BBWindow = ind.BBWindow
	pc.BBK = ind.BBK
	pc.ATRWindow = ind.ATRWindow

	pc.Rules = rules.Config{
		Oversold:            c.Rules.Oversold,
		Overbought:          c.Rules.Overbought,
		UseMACDConfirmation: c.Rules.UseMACDConfirmation,
	}
	pc.Vocabulary = rules.Vocabulary(strings.ToUpper(c.Rules.Vocabulary))

	p := c.Predictor
	if p.Weights != nil {
		pc.Predictor.Weights = *p.Weights
	}
	pc.Predictor.MomentumLag = p.MomentumLag
	pc.Predictor.MinBars = p.MinBars
	if len(p.ConfidenceBounds) == 2 {
		pc.Predictor.ConfidenceMin = p.ConfidenceBounds[0]
		pc.Predictor.ConfidenceMax = p.ConfidenceBounds[1]
	}
	pc.Predictor.DegenerateConfidence = p.DegenerateConfidence
	return pc
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	def := pipeline.DefaultConfig()

	c.DataSource = strings.ToUpper(c.DataSource)
	if c.DataSource == "" {
		c.DataSource = "STATIC"
	}
	if c.Interval == "" {
		c.Interval = "1d"
	}
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}

	ind := &c.Indicators
	setInt(&ind.SMAWindow, def.SMAWindow)
	setInt(&ind.EMAWindow, def.EMAWindow)
	setInt(&ind.RSIWindow, def.RSIWindow)
	setInt(&ind.MACDFast, def.MACDFast)
	setInt(&ind.MACDSlow, def.MACDSlow)
	setInt(&ind.MACDSignal, def.MACDSignal)
	setInt(&ind.BBWindow, def.BBWindow)
	setFloat(&ind.BBK, def.BBK)
	setInt(&ind.ATRWindow, def.ATRWindow)

	setFloat(&c.Rules.Oversold, def.Rules.Oversold)
	setFloat(&c.Rules.Overbought, def.Rules.Overbought)
	if c.Rules.Vocabulary == "" {
		c.Rules.Vocabulary = string(rules.Trade)
	}

	setInt(&c.Predictor.MomentumLag, def.Predictor.MomentumLag)
	setInt(&c.Predictor.MinBars, def.Predictor.MinBars)
	setFloat(&c.Predictor.DegenerateConfidence, def.Predictor.DegenerateConfidence)

	c.Commentary.Capability = strings.ToUpper(c.Commentary.Capability)
	if c.Commentary.Capability == "" {
		c.Commentary.Capability = "NONE"
	}
	c.Commentary.Provider = strings.ToUpper(c.Commentary.Provider)
	setInt(&c.Commentary.MaxTokens, 512)
	setInt(&c.Commentary.PromptBars, 10)

	setInt(&c.Fetch.TimeoutSeconds, 30)
	setInt(&c.Fetch.MaxAttempts, 3)
	setInt(&c.Fetch.Burst, 1)

	c.Cache.Backend = strings.ToUpper(c.Cache.Backend)
	if c.Cache.Backend == "" {
		c.Cache.Backend = "NONE"
	}
	setInt(&c.Cache.TTLSeconds, 60)
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "candles"
	}

	if c.Journal.Dir == "" {
		c.Journal.Dir = getEnv("TRADER_LOG_DIR", "logs")
	}

	if c.Watch.Cron == "" {
		c.Watch.Cron = "0 */15 * * * *"
	}
	if c.Watch.EODCron == "" {
		c.Watch.EODCron = "0 */5 * * * *"
	}
}

func setInt(p *int, def int) {
	if *p == 0 {
		*p = def
	}
}

func setFloat(p *float64, def float64) {
	if *p == 0 {
		*p = def
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
