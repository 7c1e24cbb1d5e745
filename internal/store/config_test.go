package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chronos-quant/internal/rules"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("universe: [RELIANCE, TCS]\n"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.DataSource != "STATIC" {
		t.Errorf("Expected STATIC data source, got %s", cfg.DataSource)
	}
	if cfg.Interval != "1d" {
		t.Errorf("Expected interval 1d, got %s", cfg.Interval)
	}
	if cfg.Commentary.Capability != "NONE" {
		t.Errorf("Expected commentary NONE, got %s", cfg.Commentary.Capability)
	}

	pc := cfg.PipelineConfig()
	if pc.SMAWindow != 20 || pc.EMAWindow != 9 || pc.RSIWindow != 14 {
		t.Errorf("Unexpected windows %d/%d/%d", pc.SMAWindow, pc.EMAWindow, pc.RSIWindow)
	}
	if pc.MACDFast != 12 || pc.MACDSlow != 26 || pc.MACDSignal != 9 {
		t.Errorf("Unexpected MACD %d/%d/%d", pc.MACDFast, pc.MACDSlow, pc.MACDSignal)
	}
	if pc.Predictor.ConfidenceMin != 55 || pc.Predictor.ConfidenceMax != 95 {
		t.Errorf("Unexpected confidence bounds %f/%f", pc.Predictor.ConfidenceMin, pc.Predictor.ConfidenceMax)
	}
	if pc.Vocabulary != rules.Trade {
		t.Errorf("Expected TRADE vocabulary, got %s", pc.Vocabulary)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	yml := `
data_source: yahoo
interval: 1h
universe: [INFY.NS]
indicators:
  sma_window: 50
  bb_k: 2.5
rules:
  use_macd_confirmation: true
  vocabulary: position
predictor:
  weights: {ema: 0.25, sma: 0.25, close: 0.25, momentum: 0.25}
  confidence_bounds: [50, 90]
commentary:
  capability: llm
  provider: claude
  model: claude-sonnet
cache:
  backend: memory
`
	cfg, err := ParseConfig([]byte(yml))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.DataSource != "YAHOO" || cfg.Commentary.Capability != "LLM" || cfg.Commentary.Provider != "CLAUDE" {
		t.Errorf("Expected upper-cased enums, got %s/%s/%s", cfg.DataSource, cfg.Commentary.Capability, cfg.Commentary.Provider)
	}

	pc := cfg.PipelineConfig()
	if pc.SMAWindow != 50 || pc.BBK != 2.5 {
		t.Errorf("Expected overrides, got sma %d k %f", pc.SMAWindow, pc.BBK)
	}
	if !pc.Rules.UseMACDConfirmation || pc.MinBars() != 50 {
		t.Errorf("Expected confirmation on and min bars 50, got %v / %d", pc.Rules.UseMACDConfirmation, pc.MinBars())
	}
	if pc.Vocabulary != rules.Position {
		t.Errorf("Expected POSITION vocabulary, got %s", pc.Vocabulary)
	}
	if pc.Predictor.Weights.EMA != 0.25 || pc.Predictor.ConfidenceMin != 50 || pc.Predictor.ConfidenceMax != 90 {
		t.Errorf("Unexpected predictor config %+v", pc.Predictor)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{"empty universe", "data_source: STATIC\n", "universe"},
		{"unknown source", "data_source: BLOOMBERG\nuniverse: [A]\n", "data_source"},
		{"llm without provider", "universe: [A]\ncommentary: {capability: LLM}\n", "provider"},
		{"redis without addr", "universe: [A]\ncache: {backend: REDIS}\n", "redis_addr"},
		{"weights off", "universe: [A]\npredictor: {weights: {ema: 1, sma: 1}}\n", "weights"},
		{"negative k", "universe: [A]\nindicators: {bb_k: -1}\n", "bb_k"},
		{"bad bounds", "universe: [A]\npredictor: {confidence_bounds: [1]}\n", "confidence_bounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yml))
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("universe: [SBIN]\njournal: {dir: /tmp/j}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Journal.Dir != "/tmp/j" {
		t.Errorf("Expected journal dir /tmp/j, got %s", cfg.Journal.Dir)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
