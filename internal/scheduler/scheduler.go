// Package scheduler paces the capture, upload and sleep duty cycle.
// It is a step-driven state machine: each Step call does one bounded
// unit of work in the current state, then stays or transitions. All
// hardware and network access goes through the collaborator interfaces
// in Deps, so the machine itself never touches a socket or a sensor.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/bresserlog/bresserlog/internal/bresser"
	"github.com/bresserlog/bresserlog/internal/log"
	"github.com/bresserlog/bresserlog/internal/receiver"
	"github.com/bresserlog/bresserlog/internal/sheets"
	"github.com/bresserlog/bresserlog/internal/timeslot"
	"github.com/bresserlog/bresserlog/internal/types"
)

// State is the scheduler's position in the duty cycle.
type State int

const (
	AwaitingInitialConnection State = iota
	ReinitializingConnection
	AwaitingTimeSlot
	Capturing
	Sending
	Sleeping
)

func (s State) String() string {
	switch s {
	case AwaitingInitialConnection:
		return "awaiting-initial-connection"
	case ReinitializingConnection:
		return "reinitializing-connection"
	case AwaitingTimeSlot:
		return "awaiting-time-slot"
	case Capturing:
		return "capturing"
	case Sending:
		return "sending"
	case Sleeping:
		return "sleeping"
	}
	return "unknown"
}

const (
	// DefaultIntervalMinutes is the capture cadence when the config
	// does not override it.
	DefaultIntervalMinutes = 10

	// Below the sleep threshold it is not worth dropping the network
	// connection, so the scheduler spins on the slot poll instead.
	sleepThreshold = 30 * time.Second

	connPollInterval   = 500 * time.Millisecond
	maxReinitAttempts  = 40
	reinitPollInterval = 500 * time.Millisecond

	// Epoch seconds this far past zero mean the clock has been set by
	// NTP at least once. An unset clock sits within weeks of the epoch.
	timeSyncedEpochSeconds = 24 * 60 * 60 * 21

	// Settle time after waking from light sleep, giving NTP a chance
	// to correct any drift accumulated while suspended.
	settlePolls    = 10
	settleInterval = time.Second

	slotPollInterval = 2 * time.Second

	sendConnRetries      = 6
	sendConnPolls        = 20
	sendConnPollInterval = 250 * time.Millisecond

	tokenWaitPolls          = 60
	tokenWaitInterval       = 500 * time.Millisecond
	tokenExpirySlackSeconds = 30

	uploadBatch  = 20
	uploadPacing = 250 * time.Millisecond
)

// TimeSource reports calendar time. LocalTime returns false until the
// clock has been set.
type TimeSource interface {
	LocalTime() (time.Time, bool)
	EpochSeconds() uint64
}

// Connectivity manages the network link. HandleConnection is
// idempotent and polled to make progress; it reports whether the link
// is currently up.
type Connectivity interface {
	HandleConnection() bool
	Disconnect()
}

// Sleeper suspends the host for a duration. SleepFor returns once the
// duration has elapsed or the host was woken externally.
type Sleeper interface {
	SleepFor(d time.Duration)
}

// PressureSensor supplies the barometric reading the radio frame
// lacks.
type PressureSensor interface {
	Available() bool
	ReadHPa() (float64, error)
}

// HistoryBuffer stores captured entries until they are uploaded.
// Entries peeked but not confirmed are redelivered, including across
// restarts.
type HistoryBuffer interface {
	Append(m types.Measurement, taken time.Time) error
	PeekNext() (types.HistoryEntry, int64, bool)
	Confirm(id int64) error
	Count() (int, error)
}

// UploadSink delivers rows to the spreadsheet. AcquireToken starts
// obtaining a bearer token valid for at least expirySeconds; TokenReady
// reports whether an upload can proceed.
type UploadSink interface {
	AcquireToken(expirySeconds int)
	TokenReady() bool
	AppendRow(row sheets.Row) error
}

// Deps are the scheduler's external collaborators.
type Deps struct {
	Radio    receiver.Source
	Net      Connectivity
	Clock    TimeSource
	Sleep    Sleeper
	Pressure PressureSensor
	Buffer   HistoryBuffer
	Sink     UploadSink
}

// Config holds the scheduler's tunable settings.
type Config struct {
	IntervalMinutes int
}

// Status is a read-only view of the scheduler for reporting.
type Status struct {
	State          State
	TargetWake     timeslot.Token
	LastCapture    time.Time
	ReinitAttempts int
}

// Scheduler runs the duty cycle. One goroutine drives Step (or Run);
// Status may be read concurrently.
type Scheduler struct {
	cfg  Config
	deps Deps

	// pause replaces time.Sleep in tests.
	pause func(time.Duration)

	mu             sync.Mutex
	state          State
	targetWake     timeslot.Token
	lastCapture    time.Time
	reinitAttempts int
	lightSlept     bool
}

// New creates a scheduler in the AwaitingInitialConnection state.
func New(cfg Config, deps Deps) *Scheduler {
	if cfg.IntervalMinutes <= 0 {
		cfg.IntervalMinutes = DefaultIntervalMinutes
	}
	return &Scheduler{
		cfg:   cfg,
		deps:  deps,
		pause: time.Sleep,
		state: AwaitingInitialConnection,
	}
}

// Status returns the current duty-cycle position.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:          s.state,
		TargetWake:     s.targetWake,
		LastCapture:    s.lastCapture,
		ReinitAttempts: s.reinitAttempts,
	}
}

func (s *Scheduler) currentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != next {
		log.Debugf("scheduler: %s -> %s", s.state, next)
	}
	s.state = next
}

// Run drives the scheduler until ctx is canceled. Cancellation is
// checked between steps; a step in progress runs to completion.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			s.Step()
		}
	}
}

// Step performs one tick of the state machine.
func (s *Scheduler) Step() {
	switch s.currentState() {
	case AwaitingInitialConnection:
		s.stepInitialConnection()
	case ReinitializingConnection:
		s.stepReinit()
	case AwaitingTimeSlot:
		s.stepAwaitSlot()
	case Capturing:
		s.stepCapture()
	case Sending:
		s.send()
		s.setState(Sleeping)
	case Sleeping:
		s.stepSleep()
	}
}

func (s *Scheduler) stepInitialConnection() {
	if s.deps.Net.HandleConnection() {
		log.Info("network connected")
		s.setState(Sleeping)
		return
	}
	s.pause(connPollInterval)
}

// stepReinit re-establishes the network before a capture. After the
// retry budget is spent, capture proceeds offline if the clock has
// ever been synced; otherwise timestamps would be garbage, so the
// cycle goes back to sleep and waits for the network to return.
func (s *Scheduler) stepReinit() {
	if s.deps.Net.HandleConnection() {
		s.mu.Lock()
		slept := s.lightSlept
		s.lightSlept = false
		s.mu.Unlock()
		if slept {
			log.Info("network connected, settling for clock re-sync")
			for i := 0; i < settlePolls; i++ {
				s.pause(settleInterval)
			}
		}
		s.setState(Capturing)
		return
	}

	s.mu.Lock()
	attempts := s.reinitAttempts
	s.mu.Unlock()

	if attempts < maxReinitAttempts {
		s.pause(reinitPollInterval)
		s.mu.Lock()
		s.reinitAttempts++
		s.mu.Unlock()
		return
	}

	if s.deps.Clock.EpochSeconds() >= timeSyncedEpochSeconds {
		log.Warn("cannot connect but clock is synced, capturing offline")
		s.setState(AwaitingTimeSlot)
	} else {
		log.Warn("cannot connect and clock never synced, waiting for network")
		s.setState(Sleeping)
	}
}

func (s *Scheduler) stepAwaitSlot() {
	now, ok := s.deps.Clock.LocalTime()
	if !ok {
		s.pause(slotPollInterval)
		return
	}
	current := timeslot.Encode(now, 0)
	s.mu.Lock()
	target := s.targetWake
	s.mu.Unlock()
	if current >= target {
		log.Debug("reached capture slot")
		s.setState(Capturing)
		return
	}
	log.Debugf("awaiting capture slot, want %d have %d", target, current)
	s.pause(slotPollInterval)
}

// stepCapture attempts one receive. Corrupt or mistimed frames are
// discarded and the state persists until a frame validates; the sensor
// transmits every few seconds so the wait is short in practice.
func (s *Scheduler) stepCapture() {
	var frame [bresser.FrameSize]byte
	switch status := s.deps.Radio.Receive(frame[:]); status {
	case receiver.StatusOK:
	case receiver.StatusTimeout:
		return
	default:
		log.Warnf("receive failed: %s", status)
		return
	}

	if frame[0] != bresser.SyncByte {
		log.Debugf("discarding frame without sync byte (got 0x%02X, rssi %.1f, lqi %d)",
			frame[0], s.deps.Radio.RSSI(), s.deps.Radio.LQI())
		return
	}

	m, err := bresser.Decode(frame[1:])
	if err != nil {
		log.Debugf("discarding corrupt frame: %v", err)
		return
	}

	if s.deps.Pressure.Available() {
		hpa, err := s.deps.Pressure.ReadHPa()
		if err != nil {
			log.Warnf("pressure read failed: %v", err)
		} else {
			m.PressureHPa = hpa
		}
	}

	now, _ := s.deps.Clock.LocalTime()
	log.Infof("captured: sensor %d batt %v temp %.1fC hum %d gust %.1fm/s avg %.1fm/s dir %.1f rain %.1fmm pressure %.1fhPa (rssi %.1f, lqi %d)",
		m.SensorID, !m.BatteryLow, m.TempC, m.Humidity, m.WindGustMS, m.WindAvgMS,
		m.WindDirDeg, m.RainMM, m.PressureHPa, s.deps.Radio.RSSI(), s.deps.Radio.LQI())

	if err := s.deps.Buffer.Append(m, now); err != nil {
		log.Errorf("cannot buffer capture: %v", err)
		return
	}

	s.mu.Lock()
	s.lastCapture = now
	s.mu.Unlock()
	s.setState(Sending)
}

// send runs one upload cycle: wait for the network, make sure a token
// is ready, then drain up to a batch of buffered entries. Failures
// leave the remainder buffered; the next cycle picks them up.
func (s *Scheduler) send() {
	if s.deps.Sink == nil {
		log.Debug("no upload sink configured, entries stay buffered")
		return
	}
	for retry := 0; retry < sendConnRetries && !s.deps.Net.HandleConnection(); retry++ {
		log.Info("connection pending before upload")
		for i := 0; i < sendConnPolls && !s.deps.Net.HandleConnection(); i++ {
			s.pause(sendConnPollInterval)
		}
	}
	if !s.deps.Net.HandleConnection() {
		log.Warn("connection not up, leaving entries buffered")
		return
	}

	if !s.deps.Sink.TokenReady() {
		// The token must outlive the coming sleep so the next cycle
		// does not start with a stale one.
		s.deps.Sink.AcquireToken(s.cfg.IntervalMinutes*60 + tokenExpirySlackSeconds)
	}
	for i := 0; i < tokenWaitPolls && !s.deps.Sink.TokenReady(); i++ {
		s.pause(tokenWaitInterval)
	}
	if !s.deps.Sink.TokenReady() {
		log.Warn("upload token not ready, leaving entries buffered")
		return
	}

	if n, err := s.deps.Buffer.Count(); err == nil {
		log.Infof("%d entries to upload", n)
	}

	for i := 0; i < uploadBatch; i++ {
		entry, id, ok := s.deps.Buffer.PeekNext()
		if !ok {
			break
		}
		if err := s.deps.Sink.AppendRow(sheets.BuildRow(entry)); err != nil {
			log.Warnf("upload failed, leaving entry buffered: %v", err)
			break
		}
		if err := s.deps.Buffer.Confirm(id); err != nil {
			log.Errorf("cannot confirm uploaded entry %d: %v", id, err)
			break
		}
		s.pause(uploadPacing)
	}
}

// stepSleep aims at the next wall-clock boundary of the sampling
// interval. Long waits suspend the host; short ones just poll so the
// connection stays up.
func (s *Scheduler) stepSleep() {
	now, ok := s.deps.Clock.LocalTime()
	if !ok {
		s.pause(time.Second)
		return
	}

	wait, target := timeslot.NextBoundary(now, s.cfg.IntervalMinutes)
	s.mu.Lock()
	s.targetWake = target
	s.mu.Unlock()

	if wait < sleepThreshold {
		s.setState(AwaitingTimeSlot)
		return
	}

	s.setState(ReinitializingConnection)
	s.mu.Lock()
	s.reinitAttempts = 0
	s.mu.Unlock()
	log.Infof("sleeping %s until slot %d", wait, target)
	s.deps.Net.Disconnect()
	s.pause(time.Second)
	s.mu.Lock()
	s.lightSlept = true
	s.mu.Unlock()
	s.deps.Sleep.SleepFor(wait)
}
