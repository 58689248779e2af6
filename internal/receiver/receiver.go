// Package receiver captures raw sensor frames from a CC1101 radio
// bridge. The bridge handles demodulation and framing and forwards
// each capture as a fixed-size record over serial or TCP:
//
//	27 frame bytes | RSSI (signed byte, dBm) | LQI (byte)
//
// Register-level programming of the transceiver lives on the bridge;
// this package only transports its captures.
package receiver

import "github.com/bresserlog/bresserlog/internal/bresser"

// Status is the outcome of a single capture attempt.
type Status int

const (
	StatusOK Status = iota
	StatusTimeout
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimeout:
		return "timeout"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// RecordSize is the bridge record: a full frame plus RSSI and LQI.
const RecordSize = bresser.FrameSize + 2

// Source produces raw frames. Receive fills buf (which must hold
// bresser.FrameSize bytes) with the next capture; RSSI and LQI report
// link quality for the most recent successful capture.
type Source interface {
	Receive(buf []byte) Status
	RSSI() float32
	LQI() int
	Close() error
}
