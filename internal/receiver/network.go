package receiver

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/bresserlog/bresserlog/internal/log"
)

// NetworkSource reads bridge records from a TCP-attached radio bridge.
// A read deadline distinguishes "no transmission yet" (StatusTimeout)
// from transport failure (StatusError with reconnect).
type NetworkSource struct {
	ctx         context.Context
	addr        string
	readTimeout time.Duration
	conn        net.Conn
	lastRSSI    float32
	lastLQI     int
}

// NewNetworkSource dials the bridge, retrying every 5 seconds until it
// succeeds or ctx is cancelled.
func NewNetworkSource(ctx context.Context, host, port string, readTimeout time.Duration) (*NetworkSource, error) {
	if host == "" || port == "" {
		return nil, fmt.Errorf("radio bridge requires hostname and port")
	}
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}

	s := &NetworkSource{
		ctx:         ctx,
		addr:        net.JoinHostPort(host, port),
		readTimeout: readTimeout,
	}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *NetworkSource) connect() error {
	for {
		log.Debugf("connecting to radio bridge at %s", s.addr)
		conn, err := net.DialTimeout("tcp", s.addr, 10*time.Second)
		if err == nil {
			s.conn = conn
			return nil
		}

		log.Errorf("could not connect to %s: %v", s.addr, err)
		log.Error("sleeping 5 seconds and trying again")

		select {
		case <-s.ctx.Done():
			return fmt.Errorf("cancelled while connecting to %s: %w", s.addr, s.ctx.Err())
		case <-time.After(5 * time.Second):
		}
	}
}

// Receive waits up to the read timeout for one capture record.
func (s *NetworkSource) Receive(buf []byte) Status {
	s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))

	record := make([]byte, RecordSize)
	if _, err := io.ReadFull(s.conn, record); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return StatusTimeout
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF || os.IsTimeout(err) {
			log.Warnf("radio bridge connection lost: %v", err)
		} else {
			log.Errorf("error reading from radio bridge: %v", err)
		}
		s.conn.Close()
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

func (s *NetworkSource) RSSI() float32 { return s.lastRSSI }
func (s *NetworkSource) LQI() int { return s.lastLQI }

func (s *NetworkSource) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
