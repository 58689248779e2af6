package receiver

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bresserlog/bresserlog/internal/log"
	serial "github.com/tarm/goserial"
)

// SerialSource reads bridge records from a serial-attached radio
// bridge. Serial reads block until the bridge forwards a capture, so
// this source never reports StatusTimeout; the scheduler's capture
// state simply waits for the next sensor transmission.
type SerialSource struct {
	ctx      context.Context
	device   string
	baud     int
	port     io.ReadWriteCloser
	lastRSSI float32
	lastLQI  int
}

// NewSerialSource opens the serial device, retrying every 30 seconds
// until it succeeds or ctx is cancelled. An unrecoverable open error
// (bad device path) is returned immediately so startup can halt.
func NewSerialSource(ctx context.Context, device string, baud int) (*SerialSource, error) {
	if device == "" {
		return nil, fmt.Errorf("no serial device configured")
	}

	s := &SerialSource{ctx: ctx, device: device, baud: baud}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SerialSource) connect() error {
	for {
		sc := &serial.Config{Name: s.device, Baud: s.baud}
		log.Debugf("opening radio bridge serial port %s at %d baud", s.device, s.baud)
		port, err := serial.OpenPort(sc)
		if err == nil {
			s.port = port
			return nil
		}

		log.Errorf("failed to open serial port %s: %v", s.device, err)
		log.Error("sleeping 30 seconds and trying again")

		select {
		case <-s.ctx.Done():
			return fmt.Errorf("cancelled while opening %s: %w", s.device, s.ctx.Err())
		case <-time.After(30 * time.Second):
		}
	}
}

// Receive blocks until the bridge forwards one capture record.
func (s *SerialSource) Receive(buf []byte) Status {
	record := make([]byte, RecordSize)
	if _, err := io.ReadFull(s.port, record); err != nil {
		log.Errorf("error reading from radio bridge: %v", err)
		s.port.Close()
		if err := s.connect(); err != nil {
			return StatusError
		}
		return StatusError
	}

	copy(buf, record[:len(record)-2])
	s.lastRSSI = float32(int8(record[len(record)-2]))
	s.lastLQI = int(record[len(record)-1])
	return StatusOK
}

func (s *SerialSource) RSSI() float32 { return s.lastRSSI }
func (s *SerialSource) LQI() int { return s.lastLQI }

func (s *SerialSource) Close() error {
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}
