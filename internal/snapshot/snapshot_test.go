package snapshot

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"tradelens/internal/model"
)

// testSeries spans two CME sessions with enough bars for every default
// indicator window.
func testSeries(n int) model.TimeSeries {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	price := 100.0
	for i := range candles {
		price += 2 * math.Sin(float64(i)/7.0)
		candles[i] = model.Candle{
			TS:   base.Add(time.Duration(i) * 15 * time.Minute),
			Open: price - 0.5, High: price + 1.5, Low: price - 1.5, Close: price,
			Volume: 10 + float64(i%5),
		}
	}
	return model.NewTimeSeries("15", candles)
}

func TestBuild_PopulatesAllSections(t *testing.T) {
	s := testSeries(120) // 30 hours of 15m bars, crosses the session boundary
	snap, err := Build("TESTUSDT", s, true)
	if err != nil {
		t.Fatal(err)
	}

	if snap.Symbol != "TESTUSDT" || snap.Interval != "15" {
		t.Errorf("identity=(%s, %s)", snap.Symbol, snap.Interval)
	}
	last, _ := s.Last()
	if !snap.LastTS.Equal(last.TS) || snap.LastClose != last.Close {
		t.Errorf("last bar=(%v, %v), want (%v, %v)", snap.LastTS, snap.LastClose, last.TS, last.Close)
	}

	if snap.RSI == nil || len(snap.RSI.Values) == 0 {
		t.Error("rsi missing")
	}
	if snap.StochRSI == nil || len(snap.StochRSI.K) == 0 {
		t.Error("stoch rsi missing")
	}
	if snap.MACD == nil || len(snap.MACD.Histogram) == 0 {
		t.Error("macd missing")
	}
	for _, key := range []string{"ema7", "ema14", "ema20", "ema50"} {
		if len(snap.EMA[key]) == 0 {
			t.Errorf("%s missing", key)
		}
	}
	if snap.Bollinger == nil || len(snap.ATR) == 0 || len(snap.VWAP) == 0 || len(snap.OBV) == 0 {
		t.Error("volatility/volume sections missing")
	}
	if snap.Supertrend == nil || len(snap.Supertrend.Trend) == 0 {
		t.Error("supertrend missing")
	}
	if snap.Levels == nil {
		t.Fatal("levels missing with withLevels=true")
	}
	if snap.Levels.Pivot == 0 {
		t.Error("pivot level zero")
	}
}

func TestBuild_WithoutLevels(t *testing.T) {
	snap, err := Build("TESTUSDT", testSeries(120), false)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Levels != nil {
		t.Error("levels present with withLevels=false")
	}
}

func TestBuild_ShortSeriesFails(t *testing.T) {
	// 40 bars cannot warm up the 50-bar EMA.
	_, err := Build("TESTUSDT", testSeries(40), false)
	if !errors.Is(err, model.ErrParameter) {
		t.Fatalf("err=%v, want ErrParameter", err)
	}
}

func TestBuild_EmptySeriesFails(t *testing.T) {
	_, err := Build("TESTUSDT", model.TimeSeries{}, false)
	if !errors.Is(err, model.ErrData) {
		t.Fatalf("err=%v, want ErrData", err)
	}
}

func TestSnapshot_SerializesToJSON(t *testing.T) {
	snap, err := Build("TESTUSDT", testSeries(120), true)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"symbol", "rsi", "macd", "ema", "bollinger", "supertrend", "reference_levels"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("serialized snapshot missing %q", key)
		}
	}
}
