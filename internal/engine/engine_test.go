package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"chronos-quant/internal/marketdata"
	"chronos-quant/internal/pipeline"
	"chronos-quant/internal/store"
	"chronos-quant/internal/types"
)

var t0 = time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)

type fakeSource struct {
	candles []types.Candle
	err     error
	got     types.CandleRequest
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Candles(_ context.Context, req types.CandleRequest) ([]types.Candle, error) {
	f.got = req
	return f.candles, f.err
}

type fakeCommentator struct {
	capability string
	err        error
	got        *types.CommentaryRequest
}

func (f *fakeCommentator) Capability() string { return f.capability }

func (f *fakeCommentator) Comment(_ context.Context, req types.CommentaryRequest) (types.Commentary, error) {
	f.got = &req
	if f.err != nil {
		return types.Commentary{}, f.err
	}
	return types.Commentary{Capability: f.capability, Recommendation: "Action: " + req.Decision.Action}, nil
}

type fakeSink struct {
	results []*types.StepResult
	err     error
}

func (f *fakeSink) Record(_ context.Context, r *types.StepResult) error {
	f.results = append(f.results, r)
	return f.err
}

func (f *fakeSink) Close() error { return nil }

// breakoutDip rallies to 200 then eases one point a bar: oversold above the mean.
func breakoutDip() []types.Candle {
	var closes []float64
	for i := 0; i < 10; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 200)
	for i := 0; i < 14; i++ {
		closes = append(closes, 199-float64(i))
	}
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		out[i] = types.Candle{Time: t0.Add(time.Duration(i) * 24 * time.Hour), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return out
}

func testConfig(t *testing.T) *store.Config {
	t.Helper()
	cfg, err := store.ParseConfig([]byte("data_source: STATIC\ninterval: 1d\nperiod: 60d\nexchange: NSE\nuniverse: [INFY]\n"))
	if err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}
	return cfg
}

func TestStepRecordsDecision(t *testing.T) {
	src := &fakeSource{candles: breakoutDip()}
	sink := &fakeSink{}
	e := newEngine(testConfig(t), src, nil, sink)
	e.newID = func() string { return "step-1" }

	res, err := e.Step(context.Background(), " infy ")
	if err != nil {
		t.Fatal(err)
	}
	if src.got.Symbol != "INFY" || src.got.Interval != "1d" || src.got.Period != "60d" || src.got.Exchange != "NSE" {
		t.Errorf("Unexpected candle request %+v", src.got)
	}
	if res.ID != "step-1" || res.Symbol != "INFY" || res.Source != "fake" || res.Bars != 25 {
		t.Errorf("Unexpected result header %+v", res)
	}
	if res.Decision.Action != "BUY" || res.Decision.Direction != "UP" || res.Rule != "oversold_above_sma" {
		t.Errorf("Expected BUY via oversold_above_sma, got %s/%s via %s", res.Decision.Action, res.Decision.Direction, res.Rule)
	}
	if res.Price != 186 {
		t.Errorf("Expected last close 186, got %v", res.Price)
	}
	if res.Time != t0.Add(24*24*time.Hour).Unix() {
		t.Errorf("Expected last bar time, got %d", res.Time)
	}
	if p := res.Decision.PredictedPrice; math.Round(p*100)/100 != p {
		t.Errorf("Expected predicted price rounded to 2 dp, got %v", p)
	}
	if res.Indicators["rsi"] == nil || *res.Indicators["rsi"] != 0 {
		t.Errorf("Expected rsi 0, got %v", res.Indicators["rsi"])
	}
	if _, ok := res.Indicators["macd"]; !ok || res.Indicators["macd"] != nil {
		t.Error("Expected macd present and undefined with 25 bars")
	}
	if res.Commentary != nil {
		t.Error("Expected no commentary with the noop commentator")
	}
	if len(sink.results) != 1 || sink.results[0] != res {
		t.Errorf("Expected result recorded once, got %d", len(sink.results))
	}
}

func TestStepWithCommentary(t *testing.T) {
	c := &fakeCommentator{capability: "TEMPLATE"}
	e := newEngine(testConfig(t), &fakeSource{candles: breakoutDip()}, c, nil)

	res, err := e.Step(context.Background(), "INFY")
	if err != nil {
		t.Fatal(err)
	}
	if res.Commentary == nil || res.Commentary.Recommendation != "Action: BUY" {
		t.Errorf("Expected commentary attached, got %+v", res.Commentary)
	}
	if c.got == nil || len(c.got.Candles) != 25 || c.got.ATR == nil || c.got.Rule != "oversold_above_sma" {
		t.Errorf("Unexpected commentary request %+v", c.got)
	}
}

func TestStepCommentaryFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	sink := &fakeSink{}
	e := newEngine(testConfig(t), &fakeSource{candles: breakoutDip()}, &fakeCommentator{capability: "LLM", err: boom}, sink)

	res, err := e.Step(context.Background(), "INFY")
	if err != nil || res == nil {
		t.Fatalf("Expected decision despite commentary failure, got %v", err)
	}
	if res.Decision.Action != "BUY" || res.Rule != "oversold_above_sma" {
		t.Errorf("Expected BUY via oversold_above_sma, got %s via %s", res.Decision.Action, res.Rule)
	}
	if res.Commentary != nil || res.CommentaryError != boom.Error() {
		t.Errorf("Expected commentary error %q, got %q with %+v", boom, res.CommentaryError, res.Commentary)
	}
	if len(sink.results) != 1 || sink.results[0].CommentaryError == "" {
		t.Errorf("Expected the decision recorded with its commentary error, got %d records", len(sink.results))
	}
}

func TestStepSinkFailureKeepsDecision(t *testing.T) {
	sink := &fakeSink{err: errors.New("disk full")}
	e := newEngine(testConfig(t), &fakeSource{candles: breakoutDip()}, nil, sink)

	res, err := e.Step(context.Background(), "INFY")
	if err != nil || res == nil {
		t.Fatalf("Expected decision despite sink failure, got %v", err)
	}
}

func TestStepErrors(t *testing.T) {
	noData := &marketdata.NoDataError{Source: "fake", Symbol: "INFY", Reason: "empty"}
	e := newEngine(testConfig(t), &fakeSource{err: noData}, nil, nil)
	if _, err := e.Step(context.Background(), "INFY"); !errors.Is(err, marketdata.ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}

	short := newEngine(testConfig(t), &fakeSource{candles: breakoutDip()[:10]}, nil, nil)
	_, err := short.Step(context.Background(), "INFY")
	if !errors.Is(err, pipeline.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestAnalyzeDoesNotRecord(t *testing.T) {
	sink := &fakeSink{}
	e := newEngine(testConfig(t), &fakeSource{candles: breakoutDip()}, nil, sink)

	a, err := e.Analyze(context.Background(), "INFY")
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Table) != 25 || a.Schema != pipeline.SchemaVersion {
		t.Errorf("Expected 25 annotated rows of %s, got %d of %s", pipeline.SchemaVersion, len(a.Table), a.Schema)
	}
	if len(sink.results) != 0 {
		t.Error("Expected Analyze not to record")
	}
}

func TestStepWithStaticSource(t *testing.T) {
	e := newEngine(testConfig(t), marketdata.NewStaticSource(), nil, nil)
	res, err := e.Step(context.Background(), "RELIANCE")
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != "static" || res.Bars < 20 {
		t.Errorf("Expected static bars, got %d from %s", res.Bars, res.Source)
	}
	if res.Decision.Confidence < 55 || res.Decision.Confidence > 95 {
		t.Errorf("Expected confidence within bounds, got %v", res.Decision.Confidence)
	}
}

func TestRound2(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{101.234, 101.23},
		{101.235, 101.24},
		{-3.456, -3.46},
		{100, 100},
	}
	for _, c := range cases {
		if got := round2(c.in); got != c.want {
			t.Errorf("Expected round2(%v) = %v, got %v", c.in, c.want, got)
		}
	}
}
