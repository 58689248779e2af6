package bresser

import (
	"errors"
	"math"
	"testing"
)

// capturedPayload is a real over-the-air capture (sync byte stripped):
// 10.5C, 89% humidity, SW wind at 1.1 m/s gusting 2.0 m/s, 54.4 mm rain.
var capturedPayload = []byte{
	0xEA, 0xEC, 0x7F, 0xEB, 0x5F, 0xEE, 0xEF, 0xFA, 0xFE, 0x76, 0xBB, 0xFA, 0xFF,
	0x15, 0x13, 0x80, 0x14, 0xA0, 0x11, 0x10, 0x05, 0x01, 0x89, 0x44, 0x05, 0x00,
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDecodeCapturedFrame(t *testing.T) {
	m, err := Decode(capturedPayload)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if m.SensorID != 0x13 {
		t.Errorf("sensor id = %#x, want 0x13", m.SensorID)
	}
	if !approxEqual(m.TempC, 10.5) {
		t.Errorf("temp = %v, want 10.5", m.TempC)
	}
	if m.Humidity != 89 {
		t.Errorf("humidity = %d, want 89", m.Humidity)
	}
	if !approxEqual(m.WindDirDeg, 225.0) {
		t.Errorf("wind dir = %v, want 225.0", m.WindDirDeg)
	}
	if !approxEqual(m.WindGustMS, 2.0) {
		t.Errorf("gust = %v, want 2.0", m.WindGustMS)
	}
	if !approxEqual(m.WindAvgMS, 1.1) {
		t.Errorf("wind avg = %v, want 1.1", m.WindAvgMS)
	}
	if !approxEqual(m.RainMM, 54.4) {
		t.Errorf("rain = %v, want 54.4", m.RainMM)
	}
	if m.BatteryLow {
		t.Error("battery low flag set, want clear")
	}
	if m.PressureHPa != 0 {
		t.Errorf("pressure = %v, want 0 (filled later by sensor)", m.PressureHPa)
	}
}

func TestDecodeParityError(t *testing.T) {
	for _, offset := range []int{0, 5, 12} {
		payload := append([]byte(nil), capturedPayload...)
		payload[offset] ^= 0x01

		_, err := Decode(payload)
		var parityErr *ParityError
		if !errors.As(err, &parityErr) {
			t.Fatalf("offset %d: got %v, want ParityError", offset, err)
		}
		if parityErr.Offset != offset {
			t.Errorf("parity offset = %d, want %d", parityErr.Offset, offset)
		}
	}
}

func TestDecodeChecksumError(t *testing.T) {
	payload := append([]byte(nil), capturedPayload...)
	// Flip a data bit and keep parity intact by flipping the mirrored
	// copy too, so only the checksum catches the corruption.
	payload[16] ^= 0x02
	payload[3] = ^payload[16]

	_, err := Decode(payload)
	var chkErr *ChecksumError
	if !errors.As(err, &chkErr) {
		t.Fatalf("got %v, want ChecksumError", err)
	}
	if chkErr.Expected != payload[13] {
		t.Errorf("expected checksum = %#x, want %#x", chkErr.Expected, payload[13])
	}
	if chkErr.Actual == chkErr.Expected {
		t.Error("actual equals expected on a corrupted payload")
	}
}

func TestDecodeParityCheckedBeforeChecksum(t *testing.T) {
	payload := append([]byte(nil), capturedPayload...)
	payload[0] ^= 0xff  // breaks parity
	payload[14] ^= 0xff // would also break the checksum

	_, err := Decode(payload)
	var parityErr *ParityError
	if !errors.As(err, &parityErr) {
		t.Fatalf("got %v, want ParityError to win over ChecksumError", err)
	}
}

func TestDecodeWrongLength(t *testing.T) {
	if _, err := Decode(capturedPayload[:20]); err == nil {
		t.Error("expected error for short payload")
	}
}

func TestBuildFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
		temp   float64
		gust   float64
		dir    float64
	}{
		{
			name: "documented example values",
			fields: Fields{
				SensorID:   0x44,
				TempTenths: 312,
				Humidity:   23,
				DirIndex:   4,
				GustTenths: 0x0176,
				AvgTenths:  275,
				RainTenths: 312,
			},
			temp: 31.2,
			gust: 37.4,
			dir:  90.0,
		},
		{
			name: "negative temperature, low battery",
			fields: Fields{
				SensorID:   0x13,
				TempTenths: -85,
				Humidity:   99,
				DirIndex:   15,
				GustTenths: 0,
				AvgTenths:  0,
				RainTenths: 0,
				BatteryLow: true,
			},
			temp: -8.5,
			gust: 0,
			dir:  337.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := BuildFrame(tt.fields)
			if err != nil {
				t.Fatalf("BuildFrame: %v", err)
			}
			if len(frame) != FrameSize {
				t.Fatalf("frame length = %d, want %d", len(frame), FrameSize)
			}
			if frame[0] != SyncByte {
				t.Fatalf("frame[0] = %#x, want sync byte %#x", frame[0], SyncByte)
			}

			m, err := Decode(frame[1:])
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if m.SensorID != tt.fields.SensorID {
				t.Errorf("sensor id = %#x, want %#x", m.SensorID, tt.fields.SensorID)
			}
			if !approxEqual(m.TempC, tt.temp) {
				t.Errorf("temp = %v, want %v", m.TempC, tt.temp)
			}
			if m.Humidity != tt.fields.Humidity {
				t.Errorf("humidity = %d, want %d", m.Humidity, tt.fields.Humidity)
			}
			if !approxEqual(m.WindGustMS, tt.gust) {
				t.Errorf("gust = %v, want %v", m.WindGustMS, tt.gust)
			}
			if !approxEqual(m.WindDirDeg, tt.dir) {
				t.Errorf("dir = %v, want %v", m.WindDirDeg, tt.dir)
			}
			if !approxEqual(m.RainMM, float64(tt.fields.RainTenths)*0.1) {
				t.Errorf("rain = %v, want %v", m.RainMM, float64(tt.fields.RainTenths)*0.1)
			}
			if m.BatteryLow != tt.fields.BatteryLow {
				t.Errorf("battery low = %v, want %v", m.BatteryLow, tt.fields.BatteryLow)
			}
		})
	}
}

func TestChecksumAliasing(t *testing.T) {
	// Two different payloads with identical popcount over bytes 14-25
	// both pass the checksum. This is a documented limitation of the
	// sensor's wire format, not a defect.
	a, err := BuildFrame(Fields{SensorID: 0x01, GustTenths: 0x002})
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildFrame(Fields{SensorID: 0x02, GustTenths: 0x001})
	if err != nil {
		t.Fatal(err)
	}

	if a[14] != b[14] {
		t.Fatalf("checksum bytes differ: %#x vs %#x", a[14], b[14])
	}
	if _, err := Decode(a[1:]); err != nil {
		t.Errorf("payload a rejected: %v", err)
	}
	if _, err := Decode(b[1:]); err != nil {
		t.Errorf("payload b rejected: %v", err)
	}
}
