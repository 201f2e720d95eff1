package indicator

import (
	"math"
	"testing"

	"tradelens/internal/model"
)

// waveSeries is 120 bars of a smooth oscillation, long enough to warm up
// every window in use.
func waveSeries() model.TimeSeries {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 8*math.Sin(float64(i)/9.0) + 0.3*float64(i%4)
	}
	return seriesOf(closes...)
}

func assertRange(t *testing.T, label string, l Line, lo, hi float64) {
	t.Helper()
	for _, p := range l {
		if p.Value < lo || p.Value > hi {
			t.Fatalf("%s: %v at %v outside [%v, %v]", label, p.Value, p.TS, lo, hi)
		}
	}
}

func TestWilliamsR_WarmupAndBounds(t *testing.T) {
	s := waveSeries()
	line, err := WilliamsR(s, 14)
	if err != nil {
		t.Fatal(err)
	}
	if len(line) != s.Len()-13 {
		t.Fatalf("points=%d, want %d", len(line), s.Len()-13)
	}
	assertRange(t, "williams %r", line, -100, 0)
}

func TestROC_Warmup(t *testing.T) {
	s := waveSeries()
	line, err := ROC(s, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(line) != s.Len()-5 {
		t.Fatalf("points=%d, want %d", len(line), s.Len()-5)
	}
}

func TestROC_KnownValue(t *testing.T) {
	// closes 100..104, ROC(2) at bar 2 = 100*(102/100 - 1) = 2
	line, err := ROC(seriesOf(100, 101, 102, 103, 104), 2)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "ROC(2)", line[0].Value, 2, 1e-6)
}

func TestCCI_Warmup(t *testing.T) {
	s := waveSeries()
	line, err := CCI(s, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(line) != s.Len()-19 {
		t.Fatalf("points=%d, want %d", len(line), s.Len()-19)
	}
}

func TestMFI_WarmupAndBounds(t *testing.T) {
	s := waveSeries()
	line, err := MFI(s, 14)
	if err != nil {
		t.Fatal(err)
	}
	if len(line) != s.Len()-14 {
		t.Fatalf("points=%d, want %d", len(line), s.Len()-14)
	}
	assertRange(t, "mfi", line, 0, 100)
}

func TestADX_WarmupAndBounds(t *testing.T) {
	s := waveSeries()
	res, err := ADX(s, 14)
	if err != nil {
		t.Fatal(err)
	}
	want := s.Len() - (2*14 - 1)
	if len(res.ADX) != want || len(res.PlusDI) != want || len(res.MinusDI) != want {
		t.Fatalf("points=(%d,%d,%d), want %d each", len(res.ADX), len(res.PlusDI), len(res.MinusDI), want)
	}
	assertRange(t, "adx", res.ADX, 0, 100)
	assertRange(t, "+di", res.PlusDI, 0, 100)
	assertRange(t, "-di", res.MinusDI, 0, 100)
}

func TestStochRSI_WarmupAndBounds(t *testing.T) {
	s := waveSeries()
	res, err := StochRSI(s, 14, 3, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := s.Len() - (14 + 3 + 3 - 2)
	if len(res.K) != want || len(res.D) != want {
		t.Fatalf("points=(%d,%d), want %d each", len(res.K), len(res.D), want)
	}
	assertRange(t, "stochrsi %k", res.K, 0, 100)
	assertRange(t, "stochrsi %d", res.D, 0, 100)
}

func TestParabolicSAR_Warmup(t *testing.T) {
	s := waveSeries()
	line, err := ParabolicSAR(s, 0.02, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if len(line) != s.Len()-1 {
		t.Fatalf("points=%d, want %d", len(line), s.Len()-1)
	}
}

func TestIchimoku_LineAlignment(t *testing.T) {
	s := waveSeries()
	res, err := Ichimoku(s, 9, 26, 52)
	if err != nil {
		t.Fatal(err)
	}
	n := s.Len()
	cases := []struct {
		name string
		got  int
		want int
	}{
		{"conversion", len(res.Conversion), n - 8},
		{"base", len(res.Base), n - 25},
		{"span a", len(res.SpanA), n - 51},
		{"span b", len(res.SpanB), n - 77},
		{"lagging", len(res.Lagging), n - 26},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s points=%d, want %d", tc.name, tc.got, tc.want)
		}
	}
	// Spans project onto existing bars only; the last span timestamp must
	// not exceed the series end.
	last, _ := s.Last()
	if sp, ok := res.SpanA.Last(); ok && sp.TS.After(last.TS) {
		t.Errorf("span a projects past series end: %v > %v", sp.TS, last.TS)
	}
}

func TestKeltnerAndDonchian_Ordering(t *testing.T) {
	s := waveSeries()

	kc, err := KeltnerChannel(s, 20, 10, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(kc.Upper) != s.Len()-19 {
		t.Fatalf("keltner points=%d, want %d", len(kc.Upper), s.Len()-19)
	}
	for i := range kc.Middle {
		if !(kc.Lower[i].Value < kc.Middle[i].Value && kc.Middle[i].Value < kc.Upper[i].Value) {
			t.Fatalf("keltner ordering violated at %v", kc.Middle[i].TS)
		}
	}

	dc, err := DonchianChannel(s, 20)
	if err != nil {
		t.Fatal(err)
	}
	for i := range dc.Middle {
		if !(dc.Lower[i].Value <= dc.Middle[i].Value && dc.Middle[i].Value <= dc.Upper[i].Value) {
			t.Fatalf("donchian ordering violated at %v", dc.Middle[i].TS)
		}
	}
}

func TestVortex_Warmup(t *testing.T) {
	s := waveSeries()
	res, err := Vortex(s, 14)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Plus) != s.Len()-14 || len(res.Minus) != s.Len()-14 {
		t.Fatalf("points=(%d,%d), want %d each", len(res.Plus), len(res.Minus), s.Len()-14)
	}
	for i := range res.Plus {
		if res.Plus[i].Value < 0 || res.Minus[i].Value < 0 {
			t.Fatal("vortex movement went negative")
		}
	}
}

func TestChaikinMoneyFlow_Bounds(t *testing.T) {
	s := waveSeries()
	line, err := ChaikinMoneyFlow(s, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(line) != s.Len()-19 {
		t.Fatalf("points=%d, want %d", len(line), s.Len()-19)
	}
	assertRange(t, "cmf", line, -1, 1)
}
