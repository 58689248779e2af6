package app

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/bresserlog/bresserlog/internal/history"
	"github.com/bresserlog/bresserlog/internal/log"
	"github.com/bresserlog/bresserlog/internal/types"
	"github.com/bresserlog/bresserlog/pkg/forecast"
)

// hostConnectivity probes whether the host currently has a route to
// the upload endpoint. The OS owns the interface, so Disconnect is a
// no-op; the scheduler's disconnect-before-sleep exists to save power
// on self-managed radios, which a host OS handles itself.
type hostConnectivity struct {
	probeAddr    string
	probeTimeout time.Duration
}

func newHostConnectivity() *hostConnectivity {
	return &hostConnectivity{
		probeAddr:    "sheets.googleapis.com:443",
		probeTimeout: 2 * time.Second,
	}
}

func (h *hostConnectivity) HandleConnection() bool {
	conn, err := net.DialTimeout("tcp", h.probeAddr, h.probeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (h *hostConnectivity) Disconnect() {
	log.Debug("network managed by the host, nothing to disconnect")
}

// systemClock reads the host clock. Validity mirrors an embedded
// never-synced clock: hosts without an RTC battery boot near the
// epoch.
type systemClock struct{}

func (systemClock) LocalTime() (time.Time, bool) {
	now := time.Now()
	return now, now.Year() >= 2000
}

func (systemClock) EpochSeconds() uint64 {
	return uint64(time.Now().Unix())
}

// timerSleeper is the low-power suspension stand-in on a host OS: a
// plain timed wait that releases early on shutdown.
type timerSleeper struct {
	ctx context.Context
}

func (s *timerSleeper) SleepFor(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.ctx.Done():
	}
}

// recorder layers the latest-measurement snapshot and the forecast
// feed on top of the durable history store.
type recorder struct {
	store     *history.Store
	predictor *forecast.Predictor

	mu     sync.Mutex
	latest types.HistoryEntry
	has    bool
}

func newRecorder(store *history.Store, predictor *forecast.Predictor) *recorder {
	return &recorder{store: store, predictor: predictor}
}

func (r *recorder) Append(m types.Measurement, taken time.Time) error {
	if err := r.store.Append(m, taken); err != nil {
		return err
	}
	// A zero reading means no barometer is attached; feeding it to the
	// predictor would poison the trend window.
	if m.PressureHPa > 0 {
		r.predictor.Record(m.PressureHPa, m.TempC)
	}
	r.mu.Lock()
	r.latest = types.HistoryEntry{Taken: taken, Measurement: m}
	r.has = true
	r.mu.Unlock()
	return nil
}

func (r *recorder) PeekNext() (types.HistoryEntry, int64, bool) {
	return r.store.PeekNext()
}

func (r *recorder) Confirm(id int64) error {
	return r.store.Confirm(id)
}

func (r *recorder) Count() (int, error) {
	return r.store.Count()
}

// Latest returns the most recent capture of this session.
func (r *recorder) Latest() (types.HistoryEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest, r.has
}
