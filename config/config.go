// Package config loads the process configuration: a YAML file layered
// with .env and environment overrides, defaults filled, then validated.
// The result is immutable; components receive it via constructors.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"alert-systemv1/internal/model"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "500ms" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// InstrumentDef declares one tracked instrument.
type InstrumentDef struct {
	Symbol     string `yaml:"symbol" validate:"required"`
	Exchange   string `yaml:"exchange" default:"NSE"`
	Type       string `yaml:"type" default:"EQ" validate:"oneof=EQ FUT INDEX"`
	Name       string `yaml:"name"`                  // display name, defaults to symbol
	Sector     string `yaml:"sector"`
	Underlying string `yaml:"underlying"`            // futures only
	TickSize   int64  `yaml:"tick_size" default:"5"` // paise
}

// IndexGroup is one weighted constituent of the market direction vote.
type IndexGroup struct {
	Name    string   `yaml:"name" validate:"required"`
	Symbols []string `yaml:"symbols" validate:"min=1"`
	Weight  float64  `yaml:"weight" validate:"gt=0"`
}

// ExprNode is one node of a custom rule predicate tree. Exactly one of
// All/Any/Not/Field forms is set per node; leaves compare an
// AlertContext field against a numeric value.
type ExprNode struct {
	All   []ExprNode `yaml:"all,omitempty"`
	Any   []ExprNode `yaml:"any,omitempty"`
	Not   *ExprNode  `yaml:"not,omitempty"`
	Field string     `yaml:"field,omitempty"`
	Op    string     `yaml:"op,omitempty"` // gt, ge, lt, le, eq
	Value float64    `yaml:"value,omitempty"`
}

// RuleDef names a predicate tree evaluated against each AlertContext.
type RuleDef struct {
	Name string   `yaml:"name" validate:"required"`
	When ExprNode `yaml:"when"`
}

// ScoringWeights are the evidence-group point values. Defaults sum to
// 100 with every group fully aligned.
type ScoringWeights struct {
	OIDepthBoth   float64 `yaml:"oi_depth_both" default:"40"`
	OIDepthSingle float64 `yaml:"oi_depth_single" default:"20"`
	VotesStrong   float64 `yaml:"votes_strong" default:"30"`
	VotesSimple   float64 `yaml:"votes_simple" default:"15"`
	Regime        float64 `yaml:"regime" default:"10"`
	VIXCalm       float64 `yaml:"vix_calm" default:"5"`
	VIXHigh       float64 `yaml:"vix_high" default:"2"`
	Sector        float64 `yaml:"sector" default:"10"`
	SectorNeutral float64 `yaml:"sector_neutral" default:"5"`
	Index         float64 `yaml:"index" default:"5"`
	IndexMixed    float64 `yaml:"index_mixed" default:"2"`
}

// ScoringConfig is the alert scorer's block: evidence weights, the
// strong-majority gate, and the grade thresholds.
type ScoringConfig struct {
	Weights       ScoringWeights `yaml:"weights"`
	StrongVotePct float64        `yaml:"strong_vote_pct" default:"0.70"`
	GradeAPlus    float64        `yaml:"grade_a_plus" default:"80"`
	GradeA        float64        `yaml:"grade_a" default:"70"`
	GradeB        float64        `yaml:"grade_b" default:"60"`
}

// Config holds all application configuration.
type Config struct {
	Environment string `yaml:"environment" default:"dev"`

	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	} `yaml:"log"`

	Feed struct {
		Source   string `yaml:"source" default:"ws" validate:"oneof=ws kafka"`
		RingSize int    `yaml:"ring_size" default:"16384"`
		WS       struct {
			URL               string   `yaml:"url" default:"ws://localhost:9001/ws"`
			ReconnectDelay    Duration `yaml:"reconnect_delay"`
			MaxReconnectDelay Duration `yaml:"max_reconnect_delay"`
		} `yaml:"ws"`
		Kafka struct {
			Brokers    []string `yaml:"brokers"`
			Topic      string   `yaml:"topic" default:"ticks"`
			GroupID    string   `yaml:"group_id" default:"alertengine"`
			Workers    int      `yaml:"workers" default:"4"`
			BufferSize int      `yaml:"buffer_size" default:"4096"`
			RetryMax   int      `yaml:"retry_max" default:"3"`
			BackoffMin Duration `yaml:"backoff_min"`
			BackoffMax Duration `yaml:"backoff_max"`
			MinBytes   int      `yaml:"min_bytes" default:"1"`
			MaxBytes   int      `yaml:"max_bytes" default:"1048576"`
		} `yaml:"kafka"`
	} `yaml:"feed"`

	Pipeline struct {
		Shards           int      `yaml:"shards" default:"4" validate:"gt=0"`
		CandleBuffer     int      `yaml:"candle_buffer" default:"4096"`
		ShardBuffer      int      `yaml:"shard_buffer" default:"1024"`
		FlushGrace       Duration `yaml:"flush_grace"`       // idle bucket seal grace
		FlushSweep       Duration `yaml:"flush_sweep"`       // idle sweep cadence
		ResampleTFs      []int    `yaml:"resample_tfs"`      // seconds, default [300]
		CheckpointEvery  Duration `yaml:"checkpoint_every"`  // engine state checkpoints
		DrainGracePeriod Duration `yaml:"drain_grace_period"`
	} `yaml:"pipeline"`

	Indicators struct {
		CrossFast        int     `yaml:"cross_fast" default:"9"`
		CrossSlow        int     `yaml:"cross_slow" default:"21"`
		VolumeSpikeRatio float64 `yaml:"volume_spike_ratio" default:"1.5"`
	} `yaml:"indicators"`

	Regime struct {
		ADXTrend   float64 `yaml:"adx_trend" default:"25"`
		ATRHighVol float64 `yaml:"atr_high_vol" default:"0.015"` // ATR/close ratio
	} `yaml:"regime"`

	VIX struct {
		Symbol  string  `yaml:"symbol" default:"INDIAVIX"`
		Low     float64 `yaml:"low" default:"12"`
		Normal  float64 `yaml:"normal" default:"15"`
		High    float64 `yaml:"high" default:"18"`
	} `yaml:"vix"`

	Depth struct {
		BuyerRatio        float64 `yaml:"buyer_ratio" default:"1.5"`
		SellerRatio       float64 `yaml:"seller_ratio" default:"0.67"`
		MinOrderImbalance int64   `yaml:"min_order_imbalance" default:"100"`
	} `yaml:"depth"`

	Scoring ScoringConfig `yaml:"scoring"`

	Market struct {
		SectorAgreePct float64      `yaml:"sector_agree_pct" default:"0.60"`
		IndexAgreePct  float64      `yaml:"index_agree_pct" default:"0.50"`
		IndexGroups    []IndexGroup `yaml:"index_groups"`
	} `yaml:"market"`

	Dispatch struct {
		Queue         int      `yaml:"queue" default:"256"`
		Cooldown      Duration `yaml:"cooldown"`
		MaxAttempts   int      `yaml:"max_attempts" default:"3"`
		BackoffBase   Duration `yaml:"backoff_base"`
		BackoffFactor float64  `yaml:"backoff_factor" default:"2"`
		BackoffMax    Duration `yaml:"backoff_max"`
		JournalPath   string   `yaml:"journal_path" default:"data/dispatch_journal.db"`
	} `yaml:"dispatch"`

	Channels struct {
		Telegram struct {
			Enabled  bool   `yaml:"enabled"`
			BotToken string `yaml:"bot_token"`
			ChatID   string `yaml:"chat_id"`
		} `yaml:"telegram"`
		Webhook struct {
			Enabled bool   `yaml:"enabled"`
			URL     string `yaml:"url"`
		} `yaml:"webhook"`
		WSFeed struct {
			Enabled bool   `yaml:"enabled"`
			Addr    string `yaml:"addr" default:":9102"`
			Replay  int    `yaml:"replay" default:"50"` // alerts sent to a new client
		} `yaml:"wsfeed"`
	} `yaml:"channels"`

	Store struct {
		Backend    string   `yaml:"backend" default:"sqlite" validate:"oneof=sqlite postgres"`
		BatchSize  int      `yaml:"batch_size" default:"100"`
		FlushDelay Duration `yaml:"flush_delay"`
		SQLite     struct {
			Path string `yaml:"path" default:"data/alertengine.db"`
		} `yaml:"sqlite"`
		Postgres struct {
			DSN string `yaml:"dsn"`
		} `yaml:"postgres"`
	} `yaml:"store"`

	Redis struct {
		// Disabled opts out of the hot cache; it is on by default.
		Disabled     bool   `yaml:"disabled"`
		Addr         string `yaml:"addr" default:"localhost:6379"`
		Password     string `yaml:"password"`
		DB           int    `yaml:"db"`
		StreamMaxLen int64  `yaml:"stream_maxlen" default:"12000"`
	} `yaml:"redis"`

	API struct {
		Addr string `yaml:"addr" default:":9101"`
	} `yaml:"api"`

	Metrics struct {
		Addr string `yaml:"addr" default:":9090"`
	} `yaml:"metrics"`

	Instruments []InstrumentDef `yaml:"instruments" validate:"min=1,dive"`
	Rules       []RuleDef       `yaml:"rules" validate:"dive"`
}

// Load reads the YAML file at path, applies .env and environment
// overrides, fills defaults and validates. The path may be "" to load
// from CONFIG_PATH (default "config.yaml").
func Load(path string) (*Config, error) {
	// .env is optional; real env vars win over it.
	_ = godotenv.Load()

	if path == "" {
		path = getEnv("CONFIG_PATH", "config.yaml")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.durationDefaults()
	c.applyEnv()

	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// durationDefaults fills zero duration and slice fields that struct
// tags cannot express.
func (c *Config) durationDefaults() {
	setDur := func(d *Duration, v time.Duration) {
		if *d == 0 {
			*d = Duration(v)
		}
	}
	setDur(&c.Feed.WS.ReconnectDelay, 2*time.Second)
	setDur(&c.Feed.WS.MaxReconnectDelay, 30*time.Second)
	setDur(&c.Feed.Kafka.BackoffMin, 250*time.Millisecond)
	setDur(&c.Feed.Kafka.BackoffMax, 5*time.Second)
	setDur(&c.Pipeline.FlushGrace, 10*time.Second)
	setDur(&c.Pipeline.FlushSweep, 5*time.Second)
	setDur(&c.Pipeline.CheckpointEvery, time.Minute)
	setDur(&c.Pipeline.DrainGracePeriod, 10*time.Second)
	setDur(&c.Dispatch.Cooldown, 5*time.Minute)
	setDur(&c.Dispatch.BackoffBase, 500*time.Millisecond)
	setDur(&c.Dispatch.BackoffMax, 5*time.Second)
	setDur(&c.Store.FlushDelay, 200*time.Millisecond)

	if len(c.Pipeline.ResampleTFs) == 0 {
		c.Pipeline.ResampleTFs = []int{300}
	}
}

// applyEnv overrides selected fields from environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FEED_SOURCE"); v != "" {
		c.Feed.Source = v
	}
	if v := os.Getenv("WS_URL"); v != "" {
		c.Feed.WS.URL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Feed.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.SQLite.Path = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Store.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Channels.Telegram.BotToken = v
		c.Channels.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Channels.Telegram.ChatID = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		c.Channels.Webhook.URL = v
		c.Channels.Webhook.Enabled = true
	}
}

// Validate enforces cross-field constraints struct tags cannot cover.
func (c *Config) Validate() error {
	if c.Store.Backend == "postgres" && c.Store.Postgres.DSN == "" {
		return fmt.Errorf("store.backend is postgres but store.postgres.dsn is empty")
	}
	if c.Feed.Source == "kafka" && len(c.Feed.Kafka.Brokers) == 0 {
		return fmt.Errorf("feed.source is kafka but feed.kafka.brokers is empty")
	}
	if c.Channels.Telegram.Enabled {
		if c.Channels.Telegram.BotToken == "" || c.Channels.Telegram.ChatID == "" {
			return fmt.Errorf("telegram channel enabled without bot_token/chat_id")
		}
	}
	if c.Channels.Webhook.Enabled && c.Channels.Webhook.URL == "" {
		return fmt.Errorf("webhook channel enabled without url")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for _, in := range c.Instruments {
		if seen[in.Symbol] {
			return fmt.Errorf("duplicate instrument symbol %q", in.Symbol)
		}
		seen[in.Symbol] = true
		if in.Type == "FUT" && in.Underlying == "" {
			return fmt.Errorf("futures instrument %q needs an underlying", in.Symbol)
		}
	}
	for _, g := range c.Market.IndexGroups {
		for _, s := range g.Symbols {
			if !seen[s] {
				return fmt.Errorf("index group %q references unknown symbol %q", g.Name, s)
			}
		}
	}
	return nil
}

// FuturesMap returns symbol → underlying for configured futures.
func (c *Config) FuturesMap() map[string]string {
	m := make(map[string]string)
	for _, in := range c.Instruments {
		if in.Type == "FUT" && in.Underlying != "" {
			m[in.Symbol] = in.Underlying
		}
	}
	return m
}

// SectorMap returns symbol → sector for sectored instruments.
func (c *Config) SectorMap() map[string]string {
	m := make(map[string]string)
	for _, in := range c.Instruments {
		if in.Sector != "" {
			m[in.Symbol] = in.Sector
		}
	}
	return m
}

// InstrumentList materializes the configured instruments as model
// records for the query API.
func (c *Config) InstrumentList() []model.Instrument {
	out := make([]model.Instrument, 0, len(c.Instruments))
	for _, in := range c.Instruments {
		name := in.Name
		if name == "" {
			name = in.Symbol
		}
		out = append(out, model.Instrument{
			Symbol:         in.Symbol,
			Exchange:       in.Exchange,
			Name:           name,
			InstrumentType: in.Type,
			Sector:         in.Sector,
			Underlying:     in.Underlying,
			TickSize:       in.TickSize,
		})
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
