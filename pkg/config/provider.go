// Package config loads and validates the logger's configuration.
package config

import "fmt"

// ConfigProvider defines the interface for configuration data sources.
type ConfigProvider interface {
	LoadConfig() (*ConfigData, error)
	IsReadOnly() bool
	Close() error
}

// ConfigData is the complete configuration.
type ConfigData struct {
	Device   DeviceData    `json:"device" yaml:"device"`
	Sampling SamplingData  `json:"sampling,omitempty" yaml:"sampling,omitempty"`
	History  HistoryData   `json:"history,omitempty" yaml:"history,omitempty"`
	Sheets   *SheetsData   `json:"sheets,omitempty" yaml:"sheets,omitempty"`
	Pressure *PressureData `json:"pressure,omitempty" yaml:"pressure,omitempty"`
	Forecast ForecastData  `json:"forecast,omitempty" yaml:"forecast,omitempty"`
	Status   *StatusData   `json:"status,omitempty" yaml:"status,omitempty"`
}

// DeviceData configures the radio bridge connection.
type DeviceData struct {
	Type         string `json:"type" yaml:"type"` // serial or tcp
	SerialDevice string `json:"serial_device,omitempty" yaml:"serial_device,omitempty"`
	Baud         int    `json:"baud,omitempty" yaml:"baud,omitempty"`
	Hostname     string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Port         string `json:"port,omitempty" yaml:"port,omitempty"`
}

// SamplingData configures the capture cadence.
type SamplingData struct {
	IntervalMinutes int `json:"interval_minutes,omitempty" yaml:"interval_minutes,omitempty"`
}

// HistoryData configures the durable capture buffer.
type HistoryData struct {
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Capacity int    `json:"capacity,omitempty" yaml:"capacity,omitempty"`
}

// SheetsData configures the spreadsheet upload sink. Omitting the
// section disables uploads; captures stay in the history buffer.
type SheetsData struct {
	Endpoint      string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	SpreadsheetID string `json:"spreadsheet_id" yaml:"spreadsheet_id"`
	SheetName     string `json:"sheet_name" yaml:"sheet_name"`
	TokenFile     string `json:"token_file" yaml:"token_file"`
}

// PressureData configures the BMP280. Omitting the section leaves
// pressure at zero.
type PressureData struct {
	I2CBus  string `json:"i2c_bus,omitempty" yaml:"i2c_bus,omitempty"`
	I2CAddr uint16 `json:"i2c_addr,omitempty" yaml:"i2c_addr,omitempty"`
}

// ForecastData configures the Zambretti predictor.
type ForecastData struct {
	AltitudeMeters float64 `json:"altitude_meters,omitempty" yaml:"altitude_meters,omitempty"`
	Hemisphere     string  `json:"hemisphere,omitempty" yaml:"hemisphere,omitempty"` // north or south
	BaroTopHPa     float64 `json:"baro_top_hpa,omitempty" yaml:"baro_top_hpa,omitempty"`
	BaroBottomHPa  float64 `json:"baro_bottom_hpa,omitempty" yaml:"baro_bottom_hpa,omitempty"`
}

// StatusData configures the local status API. Omitting the section
// disables it.
type StatusData struct {
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// Validate checks the configuration for errors that would only surface
// later at runtime.
func (c *ConfigData) Validate() error {
	switch c.Device.Type {
	case "serial":
		if c.Device.SerialDevice == "" {
			return fmt.Errorf("device.serial_device is required for a serial device")
		}
	case "tcp":
		if c.Device.Hostname == "" || c.Device.Port == "" {
			return fmt.Errorf("device.hostname and device.port are required for a tcp device")
		}
	default:
		return fmt.Errorf("device.type must be serial or tcp, got %q", c.Device.Type)
	}

	if c.Sampling.IntervalMinutes < 0 || c.Sampling.IntervalMinutes > 60 {
		return fmt.Errorf("sampling.interval_minutes must be within 0..60, got %d", c.Sampling.IntervalMinutes)
	}

	if c.Sheets != nil {
		if c.Sheets.SpreadsheetID == "" || c.Sheets.SheetName == "" {
			return fmt.Errorf("sheets.spreadsheet_id and sheets.sheet_name are required when sheets is configured")
		}
		if c.Sheets.TokenFile == "" {
			return fmt.Errorf("sheets.token_file is required when sheets is configured")
		}
	}

	switch c.Forecast.Hemisphere {
	case "", "north", "south":
	default:
		return fmt.Errorf("forecast.hemisphere must be north or south, got %q", c.Forecast.Hemisphere)
	}

	return nil
}
