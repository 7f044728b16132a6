package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalYAML = `
instruments:
  - symbol: NIFTY
    exchange: NSE
    type: INDEX
`

func TestLoad_FillsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log defaults = %s/%s, want info/json", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Feed.Source != "ws" || cfg.Feed.RingSize != 16384 {
		t.Errorf("feed defaults = %s/%d", cfg.Feed.Source, cfg.Feed.RingSize)
	}
	if cfg.Feed.WS.ReconnectDelay.Std() != 2*time.Second {
		t.Errorf("reconnect delay = %v, want 2s", cfg.Feed.WS.ReconnectDelay.Std())
	}
	if cfg.Pipeline.Shards != 4 || cfg.Pipeline.CheckpointEvery.Std() != time.Minute {
		t.Errorf("pipeline defaults = %d shards, checkpoint %v", cfg.Pipeline.Shards, cfg.Pipeline.CheckpointEvery.Std())
	}
	if len(cfg.Pipeline.ResampleTFs) != 1 || cfg.Pipeline.ResampleTFs[0] != 300 {
		t.Errorf("resample tfs = %v, want [300]", cfg.Pipeline.ResampleTFs)
	}
	if cfg.Scoring.Weights.OIDepthBoth != 40 || cfg.Scoring.Weights.VotesStrong != 30 {
		t.Errorf("scoring weights = %+v", cfg.Scoring.Weights)
	}
	if cfg.Scoring.GradeAPlus != 80 || cfg.Scoring.GradeA != 70 || cfg.Scoring.GradeB != 60 {
		t.Errorf("grade thresholds = %v/%v/%v", cfg.Scoring.GradeAPlus, cfg.Scoring.GradeA, cfg.Scoring.GradeB)
	}
	if cfg.Dispatch.Cooldown.Std() != 5*time.Minute || cfg.Dispatch.MaxAttempts != 3 {
		t.Errorf("dispatch defaults = %v/%d", cfg.Dispatch.Cooldown.Std(), cfg.Dispatch.MaxAttempts)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.FlushDelay.Std() != 200*time.Millisecond {
		t.Errorf("store defaults = %s/%v", cfg.Store.Backend, cfg.Store.FlushDelay.Std())
	}
	if cfg.Redis.Disabled || cfg.Redis.Addr != "localhost:6379" || cfg.Redis.StreamMaxLen != 12000 {
		t.Errorf("redis defaults = %+v", cfg.Redis)
	}
	if cfg.Instruments[0].Exchange != "NSE" || cfg.Instruments[0].TickSize != 5 {
		t.Errorf("instrument defaults = %+v", cfg.Instruments[0])
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
log:
  level: debug
  format: console
pipeline:
  shards: 8
  resample_tfs: [300, 900]
dispatch:
  cooldown: 90s
redis:
  disabled: true
scoring:
  grade_b: 55
  weights:
    oi_depth_both: 35
`+minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Errorf("log = %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Pipeline.Shards != 8 {
		t.Errorf("shards = %d, want 8", cfg.Pipeline.Shards)
	}
	if len(cfg.Pipeline.ResampleTFs) != 2 || cfg.Pipeline.ResampleTFs[1] != 900 {
		t.Errorf("resample tfs = %v", cfg.Pipeline.ResampleTFs)
	}
	if cfg.Dispatch.Cooldown.Std() != 90*time.Second {
		t.Errorf("cooldown = %v, want 90s", cfg.Dispatch.Cooldown.Std())
	}
	if !cfg.Redis.Disabled {
		t.Error("redis.disabled did not stick")
	}
	if cfg.Scoring.GradeB != 55 || cfg.Scoring.Weights.OIDepthBoth != 35 {
		t.Errorf("scoring overrides = %v/%v", cfg.Scoring.GradeB, cfg.Scoring.Weights.OIDepthBoth)
	}
	// Untouched siblings keep their defaults.
	if cfg.Scoring.Weights.VotesStrong != 30 || cfg.Scoring.GradeA != 70 {
		t.Errorf("sibling defaults lost: %+v", cfg.Scoring)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("WS_URL", "ws://feed.internal:9001/ws")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok-123")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %s, want warn", cfg.Log.Level)
	}
	if cfg.Feed.WS.URL != "ws://feed.internal:9001/ws" {
		t.Errorf("ws url = %s", cfg.Feed.WS.URL)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Errorf("redis addr = %s", cfg.Redis.Addr)
	}
	if !cfg.Channels.Telegram.Enabled || cfg.Channels.Telegram.BotToken != "tok-123" || cfg.Channels.Telegram.ChatID != "-100200" {
		t.Errorf("telegram = %+v", cfg.Channels.Telegram)
	}
}

func TestLoad_KafkaBrokersFromEnv(t *testing.T) {
	t.Setenv("FEED_SOURCE", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Feed.Source != "kafka" {
		t.Errorf("source = %s, want kafka", cfg.Feed.Source)
	}
	if len(cfg.Feed.Kafka.Brokers) != 2 || cfg.Feed.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Feed.Kafka.Brokers)
	}
}

func TestLoad_Rejections(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "duplicate symbol",
			yaml: `
instruments:
  - symbol: NIFTY
  - symbol: NIFTY
`,
			want: "duplicate instrument",
		},
		{
			name: "futures without underlying",
			yaml: `
instruments:
  - symbol: RELIANCE-FUT
    type: FUT
`,
			want: "needs an underlying",
		},
		{
			name: "index group unknown symbol",
			yaml: minimalYAML + `
market:
  index_groups:
    - name: GHOSTS
      symbols: [GHOST]
      weight: 1
`,
			want: "unknown symbol",
		},
		{
			name: "kafka without brokers",
			yaml: minimalYAML + `
feed:
  source: kafka
`,
			want: "brokers is empty",
		},
		{
			name: "postgres without dsn",
			yaml: minimalYAML + `
store:
  backend: postgres
`,
			want: "dsn is empty",
		},
		{
			name: "webhook without url",
			yaml: minimalYAML + `
channels:
  webhook:
    enabled: true
`,
			want: "without url",
		},
		{
			name: "telegram without chat id",
			yaml: minimalYAML + `
channels:
  telegram:
    enabled: true
    bot_token: tok
`,
			want: "bot_token/chat_id",
		},
		{
			name: "no instruments",
			yaml: `
log:
  level: info
`,
			want: "validate config",
		},
		{
			name: "bad log format",
			yaml: minimalYAML + `
log:
  format: xml
`,
			want: "validate config",
		},
		{
			name: "bad duration",
			yaml: minimalYAML + `
dispatch:
  cooldown: soon
`,
			want: "invalid duration",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("error = %v, want read config", err)
	}
}

func TestLoad_ParsesRuleTree(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
rules:
  - name: squeeze
    when:
      all:
        - { field: adx14, op: gt, value: 25 }
        - any:
            - { field: bull_votes, op: ge, value: 6 }
            - { field: bear_votes, op: ge, value: 6 }
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(cfg.Rules) != 1 || cfg.Rules[0].Name != "squeeze" {
		t.Fatalf("rules = %+v", cfg.Rules)
	}
	when := cfg.Rules[0].When
	if len(when.All) != 2 {
		t.Fatalf("all = %d nodes, want 2", len(when.All))
	}
	if when.All[0].Field != "adx14" || when.All[0].Op != "gt" || when.All[0].Value != 25 {
		t.Errorf("leaf = %+v", when.All[0])
	}
	if len(when.All[1].Any) != 2 || when.All[1].Any[1].Field != "bear_votes" {
		t.Errorf("any branch = %+v", when.All[1])
	}
}

func TestHelperMaps(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
instruments:
  - symbol: RELIANCE
    sector: ENERGY
  - symbol: RELIANCE-FUT
    exchange: NFO
    type: FUT
    underlying: RELIANCE
  - symbol: NIFTY
    type: INDEX
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	fm := cfg.FuturesMap()
	if len(fm) != 1 || fm["RELIANCE-FUT"] != "RELIANCE" {
		t.Errorf("futures map = %v", fm)
	}
	sm := cfg.SectorMap()
	if len(sm) != 1 || sm["RELIANCE"] != "ENERGY" {
		t.Errorf("sector map = %v", sm)
	}

	list := cfg.InstrumentList()
	if len(list) != 3 {
		t.Fatalf("instrument list = %d entries, want 3", len(list))
	}
	if list[0].Name != "RELIANCE" {
		t.Errorf("name fallback = %q, want symbol", list[0].Name)
	}
	if !list[1].IsFutures() {
		t.Errorf("futures flag lost: %+v", list[1])
	}
}
