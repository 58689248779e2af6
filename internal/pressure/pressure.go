// Package pressure supplies the barometric reading that the sensor's
// radio frame does not carry. A BMP280 on the host's I2C bus fills it
// in; hosts without one use the Disabled sensor and pressure reads as
// zero.
package pressure

import (
	"fmt"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/bresserlog/bresserlog/internal/log"
)

// Sensor reads barometric pressure. Available reports whether a
// working device is attached; ReadHPa returns hectopascals.
type Sensor interface {
	Available() bool
	ReadHPa() (float64, error)
}

// BMP280 reads a Bosch BMP280 over I2C via periph.io.
type BMP280 struct {
	dev *bmxx80.Dev
}

// NewBMP280 opens the named I2C bus ("" for the first available) and
// probes the device at addr (0x76 or 0x77 on most breakouts).
func NewBMP280(bus string, addr uint16) (*BMP280, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("opening I2C bus %q: %w", bus, err)
	}
	dev, err := bmxx80.NewI2C(b, addr, &bmxx80.DefaultOpts)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("initializing BMP280 at 0x%02X: %w", addr, err)
	}
	log.Infof("BMP280 initialized on bus %q at 0x%02X", bus, addr)
	return &BMP280{dev: dev}, nil
}

func (s *BMP280) Available() bool { return true }

// ReadHPa senses once and converts to hectopascals.
func (s *BMP280) ReadHPa() (float64, error) {
	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		return 0, fmt.Errorf("BMP280 sense: %w", err)
	}
	return float64(e.Pressure) / float64(physic.Pascal) / 100.0, nil
}

// Halt releases the device.
func (s *BMP280) Halt() error {
	return s.dev.Halt()
}

// Disabled is the no-op sensor for hosts without a barometer.
type Disabled struct{}

func (Disabled) Available() bool           { return false }
func (Disabled) ReadHPa() (float64, error) { return 0, nil }
