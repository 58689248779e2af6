package bresser

import (
	"fmt"
	"math/bits"
)

// Fields holds the raw wire-format values used to assemble a frame.
// The simulator and the decoder tests both build frames through it.
type Fields struct {
	SensorID   uint8
	TempTenths int // signed, -999..999
	Humidity   int // 0..99
	DirIndex   int // 0..15, multiples of 22.5 degrees
	GustTenths int // 0..4095, plain binary
	AvgTenths  int // 0..999, BCD
	RainTenths int // 0..999, BCD
	BatteryLow bool
}

// bcdNibbles splits a 0..999 value into (hundreds, packed tens+ones).
func bcdNibbles(v int) (hundreds, tensOnes byte) {
	return byte(v / 100), byte((v/10%10)<<4 | v%10)
}

// BuildFrame assembles a complete 27-byte frame (sync byte first) that
// Decode accepts and decodes back to the given fields.
func BuildFrame(f Fields) ([]byte, error) {
	if f.TempTenths < -999 || f.TempTenths > 999 {
		return nil, fmt.Errorf("temperature out of range: %d", f.TempTenths)
	}
	if f.GustTenths < 0 || f.GustTenths > 0xfff {
		return nil, fmt.Errorf("gust out of range: %d", f.GustTenths)
	}
	if f.AvgTenths < 0 || f.AvgTenths > 999 {
		return nil, fmt.Errorf("wind speed out of range: %d", f.AvgTenths)
	}
	if f.RainTenths < 0 || f.RainTenths > 999 {
		return nil, fmt.Errorf("rain out of range: %d", f.RainTenths)
	}
	if f.Humidity < 0 || f.Humidity > 99 {
		return nil, fmt.Errorf("humidity out of range: %d", f.Humidity)
	}
	if f.DirIndex < 0 || f.DirIndex > 15 {
		return nil, fmt.Errorf("direction index out of range: %d", f.DirIndex)
	}

	payload := make([]byte, PayloadSize)

	payload[14] = f.SensorID

	payload[16] = byte(f.GustTenths & 0xff)
	payload[17] = byte(f.DirIndex)<<4 | byte(f.GustTenths>>8)

	avgHundreds, avgTensOnes := bcdNibbles(f.AvgTenths)
	payload[18] = avgTensOnes
	payload[19] = avgHundreds

	temp := f.TempTenths
	var sign byte
	if temp < 0 {
		temp = -temp
		sign = 0x01
	}
	tempHundreds, tempTensOnes := bcdNibbles(temp)
	payload[20] = tempTensOnes
	payload[21] = tempHundreds

	payload[22] = byte((f.Humidity/10)<<4 | f.Humidity%10)

	rainHundreds, rainTensOnes := bcdNibbles(f.RainTenths)
	payload[23] = rainTensOnes
	payload[24] = rainHundreds

	payload[25] = sign
	if f.BatteryLow {
		payload[25] |= 0x80
	}

	var bitsSet uint8
	for _, b := range payload[14:] {
		bitsSet += uint8(bits.OnesCount8(b))
	}
	payload[13] = bitsSet

	for i := 0; i < PayloadSize/2; i++ {
		payload[i] = ^payload[i+13]
	}

	frame := make([]byte, 0, FrameSize)
	frame = append(frame, SyncByte)
	return append(frame, payload...), nil
}
