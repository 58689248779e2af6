// Package types holds the data model shared between the decoder, the
// scheduler and the storage/upload layers.
package types

import "time"

// Measurement is one validated reading from the Bresser 5-in-1 sensor.
// All fields are set together on a successful decode; PressureHPa is
// filled afterwards by the pressure sensor collaborator and stays zero
// when no sensor is fitted.
type Measurement struct {
	SensorID    uint8
	TempC       float64
	Humidity    int
	WindDirDeg  float64
	WindAvgMS   float64
	WindGustMS  float64
	RainMM      float64
	BatteryLow  bool
	PressureHPa float64
}

// HistoryEntry is a Measurement together with the wall-clock time it
// was captured. Entries are owned by the history buffer.
type HistoryEntry struct {
	Taken       time.Time
	Measurement Measurement
}
