// Package status serves a small read-only HTTP API reporting the
// logger's duty-cycle position, the latest measurement and the current
// forecast.
package status

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/bresserlog/bresserlog/internal/log"
	"github.com/bresserlog/bresserlog/internal/scheduler"
	"github.com/bresserlog/bresserlog/internal/types"
	"github.com/bresserlog/bresserlog/pkg/forecast"
	"github.com/bresserlog/bresserlog/pkg/responseformat"
)

// Provider supplies the data the endpoints report.
type Provider interface {
	SchedulerStatus() scheduler.Status
	Latest() (types.HistoryEntry, bool)
	Forecast() forecast.Cast
	BufferedEntries() int
	SessionID() string
	StartedAt() time.Time
}

// Config holds the listen settings.
type Config struct {
	ListenAddr string
	Port       int
}

// Controller is the status API server.
type Controller struct {
	ctx       context.Context
	wg        *sync.WaitGroup
	provider  Provider
	formatter *responseformat.Formatter
	Server    http.Server
}

// NewController creates a status API controller.
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg Config, provider Provider) *Controller {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8150
	}

	c := &Controller{
		ctx:       ctx,
		wg:        wg,
		provider:  provider,
		formatter: responseformat.NewFormatter(),
	}
	c.Server.Addr = fmt.Sprintf("%v:%v", cfg.ListenAddr, cfg.Port)
	c.Server.Handler = c.setupRouter()
	return c
}

// StartController starts serving and arranges shutdown on context
// cancellation.
func (c *Controller) StartController() {
	log.Infof("starting status API on %s", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("status API server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("shutting down the status API...")
		c.Server.Shutdown(context.Background())
	}()
}

func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/status", c.getStatus)
	router.HandleFunc("/api/latest", c.getLatest)
	router.HandleFunc("/api/forecast", c.getForecast)
	return router
}

type statusResponse struct {
	State           string `json:"state"`
	SessionID       string `json:"sessionId"`
	TargetWake      uint64 `json:"targetWake"`
	LastCapture     string `json:"lastCapture,omitempty"`
	BufferedEntries int    `json:"bufferedEntries"`
	UptimeSeconds   int64  `json:"uptimeSeconds"`
}

func (c *Controller) getStatus(w http.ResponseWriter, req *http.Request) {
	st := c.provider.SchedulerStatus()
	resp := statusResponse{
		State:           st.State.String(),
		SessionID:       c.provider.SessionID(),
		TargetWake:      uint64(st.TargetWake),
		BufferedEntries: c.provider.BufferedEntries(),
		UptimeSeconds:   int64(time.Since(c.provider.StartedAt()).Seconds()),
	}
	if !st.LastCapture.IsZero() {
		resp.LastCapture = st.LastCapture.Format(time.RFC3339)
	}
	if err := c.formatter.WriteResponse(w, req, resp, nil); err != nil {
		log.Errorf("error writing status response: %v", err)
	}
}

type latestResponse struct {
	Taken       string  `json:"taken"`
	SensorID    uint8   `json:"sensorId"`
	TempC       float64 `json:"temperatureC"`
	Humidity    int     `json:"humidity"`
	WindDirDeg  float64 `json:"windDirectionDeg"`
	WindAvgMS   float64 `json:"windAvgMS"`
	WindGustMS  float64 `json:"windGustMS"`
	RainMM      float64 `json:"rainMM"`
	PressureHPa float64 `json:"pressureHPa"`
	BatteryLow  bool    `json:"batteryLow"`
}

func (c *Controller) getLatest(w http.ResponseWriter, req *http.Request) {
	entry, ok := c.provider.Latest()
	if !ok {
		http.Error(w, "no measurement captured yet", http.StatusNotFound)
		return
	}
	m := entry.Measurement
	resp := latestResponse{
		Taken:       entry.Taken.Format(time.RFC3339),
		SensorID:    m.SensorID,
		TempC:       m.TempC,
		Humidity:    m.Humidity,
		WindDirDeg:  m.WindDirDeg,
		WindAvgMS:   m.WindAvgMS,
		WindGustMS:  m.WindGustMS,
		RainMM:      m.RainMM,
		PressureHPa: m.PressureHPa,
		BatteryLow:  m.BatteryLow,
	}
	if err := c.formatter.WriteResponse(w, req, resp, nil); err != nil {
		log.Errorf("error writing latest response: %v", err)
	}
}

type forecastResponse struct {
	Ready   bool   `json:"ready"`
	Text    string `json:"text,omitempty"`
	Trend   string `json:"trend"`
	Extreme bool   `json:"extreme"`
}

func (c *Controller) getForecast(w http.ResponseWriter, req *http.Request) {
	cast := c.provider.Forecast()
	resp := forecastResponse{
		Ready:   cast.Ready,
		Text:    cast.Text,
		Trend:   cast.Trend.String(),
		Extreme: cast.Extreme,
	}
	if err := c.formatter.WriteResponse(w, req, resp, nil); err != nil {
		log.Errorf("error writing forecast response: %v", err)
	}
}
