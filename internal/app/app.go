// Package app wires the logger's components together and runs them
// until shutdown.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bresserlog/bresserlog/internal/controllers/status"
	"github.com/bresserlog/bresserlog/internal/history"
	"github.com/bresserlog/bresserlog/internal/log"
	"github.com/bresserlog/bresserlog/internal/pressure"
	"github.com/bresserlog/bresserlog/internal/receiver"
	"github.com/bresserlog/bresserlog/internal/scheduler"
	"github.com/bresserlog/bresserlog/internal/sheets"
	"github.com/bresserlog/bresserlog/internal/types"
	"github.com/bresserlog/bresserlog/pkg/config"
	"github.com/bresserlog/bresserlog/pkg/forecast"
)

const defaultHistoryPath = "bresserlog.db"
const defaultI2CAddr = 0x76

// App represents the main application.
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
	sessionID      string
	startedAt      time.Time

	sched     *scheduler.Scheduler
	predictor *forecast.Predictor
	recorder  *recorder
}

// New creates a new application instance.
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
		sessionID:      uuid.NewString(),
		startedAt:      time.Now(),
	}
}

// Run starts the application and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	historyPath := cfg.History.Path
	if historyPath == "" {
		historyPath = defaultHistoryPath
	}
	store, err := history.Open(historyPath, cfg.History.Capacity)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()

	// A logger without a working receiver is useless, so a failure
	// here is the one fatal hardware condition.
	source, err := a.openSource(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening radio bridge: %w", err)
	}
	defer source.Close()

	var sensor scheduler.PressureSensor = pressure.Disabled{}
	if cfg.Pressure != nil {
		addr := cfg.Pressure.I2CAddr
		if addr == 0 {
			addr = defaultI2CAddr
		}
		bmp, err := pressure.NewBMP280(cfg.Pressure.I2CBus, addr)
		if err != nil {
			log.Warnf("pressure sensor unavailable, pressure will read as 0: %v", err)
		} else {
			sensor = bmp
			defer bmp.Halt()
		}
	}

	a.predictor = forecast.New(forecast.Config{
		AltitudeMeters: cfg.Forecast.AltitudeMeters,
		Hemisphere:     parseHemisphere(cfg.Forecast.Hemisphere),
		BaroTopHPa:     cfg.Forecast.BaroTopHPa,
		BaroBottomHPa:  cfg.Forecast.BaroBottomHPa,
	})
	a.recorder = newRecorder(store, a.predictor)

	var sink scheduler.UploadSink
	if cfg.Sheets != nil {
		gate := sheets.NewFileTokenGate(cfg.Sheets.TokenFile)
		sink = sheets.NewClient(cfg.Sheets.Endpoint, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, gate)
	} else {
		log.Info("no sheets section configured, uploads disabled")
	}

	a.sched = scheduler.New(
		scheduler.Config{IntervalMinutes: cfg.Sampling.IntervalMinutes},
		scheduler.Deps{
			Radio:    source,
			Net:      newHostConnectivity(),
			Clock:    systemClock{},
			Sleep:    &timerSleeper{ctx: ctx},
			Pressure: sensor,
			Buffer:   a.recorder,
			Sink:     sink,
		})

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sched.Run(ctx)
	}()

	if cfg.Status != nil {
		sc := status.NewController(ctx, &wg, status.Config{
			ListenAddr: cfg.Status.ListenAddr,
			Port:       cfg.Status.Port,
		}, a)
		sc.StartController()
	}

	log.Infof("bresserlog started, session %s", a.sessionID)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	cancel()
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

func (a *App) openSource(ctx context.Context, cfg *config.ConfigData) (receiver.Source, error) {
	switch cfg.Device.Type {
	case "serial":
		return receiver.NewSerialSource(ctx, cfg.Device.SerialDevice, cfg.Device.Baud)
	case "tcp":
		return receiver.NewNetworkSource(ctx, cfg.Device.Hostname, cfg.Device.Port, 0)
	}
	return nil, fmt.Errorf("unsupported device type %q", cfg.Device.Type)
}

func parseHemisphere(s string) forecast.Hemisphere {
	if s == "south" {
		return forecast.South
	}
	return forecast.North
}

// SchedulerStatus implements status.Provider.
func (a *App) SchedulerStatus() scheduler.Status {
	return a.sched.Status()
}

// Latest implements status.Provider.
func (a *App) Latest() (types.HistoryEntry, bool) {
	return a.recorder.Latest()
}

// Forecast implements status.Provider, casting with the latest wind
// bearing.
func (a *App) Forecast() forecast.Cast {
	entry, ok := a.recorder.Latest()
	if !ok {
		return forecast.Cast{Trend: forecast.TrendUnknown}
	}
	return a.predictor.Forecast(time.Now().Month(), entry.Measurement.WindDirDeg)
}

// BufferedEntries implements status.Provider.
func (a *App) BufferedEntries() int {
	n, err := a.recorder.Count()
	if err != nil {
		return 0
	}
	return n
}

// SessionID implements status.Provider.
func (a *App) SessionID() string { return a.sessionID }

// StartedAt implements status.Provider.
func (a *App) StartedAt() time.Time { return a.startedAt }
