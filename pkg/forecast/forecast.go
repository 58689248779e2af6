// Package forecast produces short-range weather forecasts from a
// rolling window of barometric pressure readings, using the
// beteljuice.com rendition of the Zambretti algorithm. Readings are
// normalized to sea level before recording; a forecast needs a full
// three-hour window (18 readings at 6 per hour) before it is ready.
package forecast

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Trend classifies the pressure change over the recording window.
type Trend int

const (
	TrendSteady Trend = iota
	TrendRising
	TrendFalling
	TrendUnknown
)

func (t Trend) String() string {
	switch t {
	case TrendSteady:
		return "steady"
	case TrendRising:
		return "rising"
	case TrendFalling:
		return "falling"
	}
	return "unknown"
}

// Direction is a 16-point compass direction, N = 0 clockwise to
// NNW = 15.
type Direction int

const (
	N Direction = iota
	NNE
	NE
	ENE
	E
	ESE
	SE
	SSE
	S
	SSW
	SW
	WSW
	W
	WNW
	NW
	NNW
)

var directionNames = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return "?"
	}
	return directionNames[d]
}

// DirectionFromDegrees rounds a bearing to the nearest compass point.
func DirectionFromDegrees(deg float64) Direction {
	const division = 360.0 / 16
	rounded := math.Mod(deg+division/2, 360)
	if rounded < 0 {
		rounded += 360
	}
	return Direction(int(rounded / division))
}

// Hemisphere selects the wind-direction and seasonal corrections.
type Hemisphere int

const (
	North Hemisphere = iota
	South
)

// Cast is one forecast. Ready is false until the pressure window has
// filled; Extreme marks pressure outside the configured window, where
// the forecast is clamped to the nearest table entry.
type Cast struct {
	Ready   bool
	Index   int
	Text    string
	Trend   Trend
	Extreme bool
}

var forecastTexts = [26]string{
	"Settled fine", "Fine weather", "Becoming fine",
	"Fine, becoming less settled", "Fine, possible showers", "Fairly fine, improving",
	"Fairly fine, possible showers early", "Fairly fine, showery later", "Showery early, improving",
	"Changeable, mending", "Fairly fine, showers likely", "Rather unsettled clearing later",
	"Unsettled, probably improving", "Showery, bright intervals", "Showery, becoming less settled",
	"Changeable, some rain", "Unsettled, short fine intervals", "Unsettled, rain later",
	"Unsettled, some rain", "Mostly very unsettled", "Occasional rain, worsening",
	"Rain at times, very unsettled", "Rain at frequent intervals", "Rain, very unsettled",
	"Stormy, may improve", "Stormy, much rain",
}

// Zambretti 'dial window' letters A..Z mapped to forecast texts, one
// table per pressure trend.
var (
	riseOptions   = [22]int{25, 25, 25, 24, 24, 19, 16, 12, 11, 9, 8, 6, 5, 2, 1, 1, 0, 0, 0, 0, 0, 0}
	steadyOptions = [22]int{25, 25, 25, 25, 25, 25, 23, 23, 22, 18, 15, 13, 10, 4, 1, 1, 0, 0, 0, 0, 0, 0}
	fallOptions   = [22]int{25, 25, 25, 25, 25, 25, 25, 25, 23, 23, 21, 20, 17, 14, 7, 3, 1, 1, 1, 0, 0, 0}
)

// Wind-direction pressure corrections for the northern hemisphere, in
// percent of the barometric window, indexed by Direction. The southern
// hemisphere uses the same table rotated half a turn.
var northWindAdjust = [16]float64{
	6, 5, 5, 2, -0.5, -2, -5, -8.5, -12, -10, -6, -4.5, -3, -0.5, 1.5, 3,
}

const (
	ringSize          = 18 // three hours at six readings per hour
	trendWindow       = 3
	trendThresholdHPa = 1.6

	// DefaultBaroTopHPa and DefaultBaroBottomHPa bound the local
	// 'weather window' (UK values).
	DefaultBaroTopHPa    = 1050.0
	DefaultBaroBottomHPa = 950.0
)

// AltitudeNormalized converts a raw station pressure to its sea-level
// equivalent using the current outdoor temperature.
func AltitudeNormalized(pressureHPa, tempC, altitudeMeters float64) float64 {
	m := 0.0065 * altitudeMeters
	return pressureHPa * math.Pow(1-m/(tempC+m+273.15), -5.257)
}

// Config parameterizes a Predictor. Zero values for the barometer
// bounds select the defaults.
type Config struct {
	AltitudeMeters float64
	Hemisphere     Hemisphere
	BaroTopHPa     float64
	BaroBottomHPa  float64
}

// Predictor accumulates normalized pressure readings and casts
// forecasts. Safe for concurrent use.
type Predictor struct {
	cfg Config

	mu       sync.Mutex
	ring     [ringSize]float64
	next     int
	recorded int
}

// New creates a Predictor.
func New(cfg Config) *Predictor {
	if cfg.BaroTopHPa == 0 {
		cfg.BaroTopHPa = DefaultBaroTopHPa
	}
	if cfg.BaroBottomHPa == 0 {
		cfg.BaroBottomHPa = DefaultBaroBottomHPa
	}
	return &Predictor{cfg: cfg}
}

// Record normalizes one raw pressure reading and appends it to the
// window.
func (p *Predictor) Record(pressureHPa, tempC float64) {
	n := AltitudeNormalized(pressureHPa, tempC, p.cfg.AltitudeMeters)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ring[p.next] = n
	p.next = (p.next + 1) % ringSize
	if p.recorded < ringSize {
		p.recorded++
	}
}

// trendLocked classifies the window by comparing the averages of the
// three oldest and three newest readings against the 1.6 hPa
// threshold. Averaging smooths single-reading sensor noise at the
// endpoints.
func (p *Predictor) trendLocked() Trend {
	if p.recorded < ringSize {
		return TrendUnknown
	}
	oldest := make([]float64, trendWindow)
	newest := make([]float64, trendWindow)
	for i := 0; i < trendWindow; i++ {
		oldest[i] = p.ring[(p.next+i)%ringSize]
		newest[i] = p.ring[(p.next-1-i+ringSize)%ringSize]
	}
	diff := stat.Mean(newest, nil) - stat.Mean(oldest, nil)
	switch {
	case diff <= -trendThresholdHPa:
		return TrendFalling
	case diff >= trendThresholdHPa:
		return TrendRising
	}
	return TrendSteady
}

// Trend reports the pressure trend over the current window.
func (p *Predictor) Trend() Trend {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trendLocked()
}

// Forecast casts for the given month and wind bearing. Returns a
// not-ready Cast until the window has filled.
func (p *Predictor) Forecast(month time.Month, windDirDeg float64) Cast {
	p.mu.Lock()
	trend := p.trendLocked()
	last := p.ring[(p.next-1+ringSize)%ringSize]
	recorded := p.recorded
	p.mu.Unlock()

	if recorded < ringSize || trend == TrendUnknown {
		return Cast{Trend: TrendUnknown}
	}
	return betelCast(last, int(month), DirectionFromDegrees(windDirDeg), trend,
		p.cfg.Hemisphere, p.cfg.BaroTopHPa, p.cfg.BaroBottomHPa)
}

// betelCast is the beteljuice.com near-enough Zambretti algorithm
// (June 2008, v1.0).
func betelCast(hpa float64, month int, dir Direction, trend Trend,
	where Hemisphere, baroTop, baroBottom float64) Cast {
	baroRange := baroTop - baroBottom
	baroConstant := float64(int(baroRange/22.0*1000)) / 1000.0
	isSummer := month >= 4 && month <= 9

	adjustIndex := int(dir)
	if where == South {
		adjustIndex = (adjustIndex + 8) % 16
	}
	hpa += northWindAdjust[adjustIndex] / 100.0 * baroRange

	// The seasonal bump applies in the hemisphere's summer.
	if (where == North && isSummer) || (where == South && !isSummer) {
		switch trend {
		case TrendRising:
			hpa += 7 / 100.0 * baroRange
		case TrendFalling:
			hpa -= 7 / 100.0 * baroRange
		}
	}

	if hpa == baroTop {
		hpa = baroTop - 1
	}

	cast := Cast{Ready: true, Trend: trend}
	option := int(math.Floor((hpa - baroBottom) / baroConstant))
	if option < 0 {
		option = 0
		cast.Extreme = true
	}
	if option > 21 {
		option = 21
		cast.Extreme = true
	}

	switch trend {
	case TrendRising:
		cast.Index = riseOptions[option]
	case TrendFalling:
		cast.Index = fallOptions[option]
	default:
		cast.Index = steadyOptions[option]
	}
	cast.Text = forecastTexts[cast.Index]
	return cast
}
