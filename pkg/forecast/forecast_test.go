package forecast

import (
	"math"
	"testing"
	"time"
)

func TestDirectionFromDegrees(t *testing.T) {
	tests := []struct {
		deg  float64
		want Direction
	}{
		{0, N},
		{10, N},
		{11.25, NNE},
		{90, E},
		{225, SW},
		{340, NNW},
		{350, N},
		{359.9, N},
	}
	for _, tt := range tests {
		if got := DirectionFromDegrees(tt.deg); got != tt.want {
			t.Errorf("DirectionFromDegrees(%.2f) = %s, want %s", tt.deg, got, tt.want)
		}
	}
}

func TestAltitudeNormalized(t *testing.T) {
	if got := AltitudeNormalized(1013.25, 15, 0); got != 1013.25 {
		t.Errorf("sea-level station changed reading: %.4f", got)
	}
	delta := AltitudeNormalized(1013.25, 15, 100) - 1013.25
	if delta < 11.5 || delta > 12.5 {
		t.Errorf("100m correction = %.2f hPa, want about 12", delta)
	}
}

func fill(p *Predictor, start, step float64, n int) {
	for i := 0; i < n; i++ {
		p.Record(start+step*float64(i), 10)
	}
}

func TestTrendClassification(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		step  float64
		n     int
		want  Trend
	}{
		{"window not filled", 1000, 0, ringSize - 1, TrendUnknown},
		{"flat", 1013, 0, ringSize, TrendSteady},
		{"slow drift below threshold", 1000, 0.05, ringSize, TrendSteady},
		{"rising", 1000, 0.2, ringSize, TrendRising},
		{"falling", 1010, -0.2, ringSize, TrendFalling},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(Config{})
			fill(p, tt.start, tt.step, tt.n)
			if got := p.Trend(); got != tt.want {
				t.Errorf("trend = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestForecastNotReadyBeforeWindowFills(t *testing.T) {
	p := New(Config{})
	fill(p, 1013, 0, ringSize-1)
	cast := p.Forecast(time.January, 0)
	if cast.Ready {
		t.Errorf("forecast ready with %d readings", ringSize-1)
	}
	if cast.Trend != TrendUnknown {
		t.Errorf("trend = %s, want unknown", cast.Trend)
	}
}

func TestForecastSettledFine(t *testing.T) {
	p := New(Config{Hemisphere: North})
	fill(p, 1030, 0, ringSize)

	cast := p.Forecast(time.January, 0) // steady high pressure, north wind
	if !cast.Ready {
		t.Fatal("forecast not ready")
	}
	if cast.Text != "Settled fine" || cast.Index != 0 {
		t.Errorf("cast = %d %q, want 0 \"Settled fine\"", cast.Index, cast.Text)
	}
	if cast.Extreme {
		t.Error("unexpectedly flagged extreme")
	}
}

func TestForecastExtremeLowClamps(t *testing.T) {
	p := New(Config{Hemisphere: North})
	fill(p, 940, 0, ringSize)

	cast := p.Forecast(time.January, 0)
	if !cast.Ready {
		t.Fatal("forecast not ready")
	}
	if !cast.Extreme {
		t.Error("pressure below window not flagged extreme")
	}
	if cast.Text != "Stormy, much rain" {
		t.Errorf("cast = %q, want \"Stormy, much rain\"", cast.Text)
	}
}

func TestBetelCastSeasonalBump(t *testing.T) {
	// Rising at 1000 hPa with an east wind: the summer correction
	// shifts the dial three windows up.
	summer := betelCast(1000, 6, E, TrendRising, North, DefaultBaroTopHPa, DefaultBaroBottomHPa)
	if summer.Index != 5 || summer.Text != "Fairly fine, improving" {
		t.Errorf("summer cast = %d %q", summer.Index, summer.Text)
	}
	winter := betelCast(1000, 1, E, TrendRising, North, DefaultBaroTopHPa, DefaultBaroBottomHPa)
	if winter.Index != 8 || winter.Text != "Showery early, improving" {
		t.Errorf("winter cast = %d %q", winter.Index, winter.Text)
	}
}

func TestBetelCastSouthernHemisphere(t *testing.T) {
	// A southerly is the southern hemisphere's polar wind; it gets the
	// same positive correction a northerly gets in the north.
	cast := betelCast(1000, 1, S, TrendSteady, South, DefaultBaroTopHPa, DefaultBaroBottomHPa)
	if cast.Index != 10 || cast.Text != "Fairly fine, showers likely" {
		t.Errorf("cast = %d %q", cast.Index, cast.Text)
	}
}

func TestRecordNormalizesAltitude(t *testing.T) {
	p := New(Config{AltitudeMeters: 100})
	fill(p, 1013.25, 0, ringSize)
	p.mu.Lock()
	last := p.ring[(p.next-1+ringSize)%ringSize]
	p.mu.Unlock()
	if math.Abs(last-1025.3) > 0.5 {
		t.Errorf("recorded value = %.2f, want about 1025.3", last)
	}
}
