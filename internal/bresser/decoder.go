// Package bresser decodes the fixed 27-byte radio frame transmitted by
// Bresser 5-in-1 weather sensors on 868 MHz.
//
// Frame layout (after the leading sync byte is stripped):
//
//	CC CC CC CC CC CC CC CC CC CC CC CC CC uu II SS GG DG WW  W TT  T HH RR  R Bt
//
//	C  = check: inverted copy of the byte 13 positions later
//	uu = checksum: count of set bits within bytes 14-25
//	I  = station ID
//	G  = wind gust in 1/10 m/s, plain binary, MSB nibble out of sequence
//	D  = wind direction, 0..F = N..NNW in 22.5 degree steps
//	W  = wind speed in 1/10 m/s, BCD, MSB nibble out of sequence
//	T  = temperature in 1/10 C, BCD; sign byte is non-zero when negative
//	H  = humidity in percent, BCD
//	R  = rain in 1/10 mm, BCD
//	B  = battery flag, high bit set when low
package bresser

import (
	"fmt"
	"math/bits"

	"github.com/bresserlog/bresserlog/internal/types"
)

const (
	// FrameSize is the over-the-air frame length including the trailing
	// sync byte the receiver hands us as byte zero.
	FrameSize = 27

	// PayloadSize is the decodable portion of the frame.
	PayloadSize = FrameSize - 1

	// SyncByte is the last byte of the radio sync word. The CC1101
	// cannot match the full 40-bit preamble+sync, so the bridge matches
	// one byte short and the final sync byte arrives as payload byte
	// zero. Captures not starting with it are not sensor frames.
	SyncByte = 0xD4
)

// ParityError reports the first payload offset at which the leading
// half of the frame was not the bitwise complement of the trailing half.
type ParityError struct {
	Offset int
}

func (e *ParityError) Error() string {
	return fmt.Sprintf("parity check failed at byte %d", e.Offset)
}

// ChecksumError reports a set-bit checksum mismatch. The counter is
// eight bits wide by sensor design; distinct payloads with equal
// popcounts alias, which is a limitation of the wire format.
type ChecksumError struct {
	Actual   uint8
	Expected uint8
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: actual [%02X] != expected [%02X]", e.Actual, e.Expected)
}

// bcd2 extracts a two-digit BCD value from a single byte.
func bcd2(b byte) int {
	return int(b&0x0f) + int(b>>4)*10
}

// Decode validates a 26-byte payload and extracts the measurement.
// Validation fails fast: parity first, then checksum. On failure no
// fields are extracted and the returned error is a *ParityError or
// *ChecksumError. Pressure is not part of the frame and is left zero.
func Decode(payload []byte) (types.Measurement, error) {
	var m types.Measurement

	if len(payload) != PayloadSize {
		return m, fmt.Errorf("payload must be %d bytes, got %d", PayloadSize, len(payload))
	}

	// First 13 bytes must be the inverse of the last 13.
	for i := 0; i < PayloadSize/2; i++ {
		if payload[i]^payload[i+13] != 0xff {
			return m, &ParityError{Offset: i}
		}
	}

	// Byte 13 holds the number of bits set in bytes 14-25.
	var bitsSet uint8
	for _, b := range payload[14:] {
		bitsSet += uint8(bits.OnesCount8(b))
	}
	if bitsSet != payload[13] {
		return m, &ChecksumError{Actual: bitsSet, Expected: payload[13]}
	}

	m.SensorID = payload[14]

	tempRaw := bcd2(payload[20]) + int(payload[21]&0x0f)*100
	if payload[25]&0x0f != 0 {
		tempRaw = -tempRaw
	}
	m.TempC = float64(tempRaw) * 0.1

	m.Humidity = bcd2(payload[22])

	m.WindDirDeg = float64(payload[17]>>4) * 22.5

	gustRaw := int(payload[17]&0x0f)<<8 | int(payload[16])
	m.WindGustMS = float64(gustRaw) * 0.1

	windRaw := bcd2(payload[18]) + int(payload[19]&0x0f)*100
	m.WindAvgMS = float64(windRaw) * 0.1

	rainRaw := bcd2(payload[23]) + int(payload[24]&0x0f)*100
	m.RainMM = float64(rainRaw) * 0.1

	m.BatteryLow = payload[25]&0x80 != 0

	return m, nil
}
