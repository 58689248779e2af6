// frame-simulator emulates the CC1101 radio bridge: it serves the
// 29-byte bridge record stream (27 frame bytes, RSSI, LQI) over TCP,
// random-walking the weather values between transmissions. A fraction
// of frames can be corrupted to exercise the validation path.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"time"

	"github.com/bresserlog/bresserlog/internal/bresser"
)

type simulator struct {
	interval    time.Duration
	corruptRate float64

	fields bresser.Fields
}

func main() {
	port := flag.Int("port", 9401, "TCP port to listen on")
	interval := flag.Duration("interval", 12*time.Second, "Time between transmissions")
	corruptRate := flag.Float64("corrupt-rate", 0.0, "Fraction of frames to corrupt (0.0-1.0)")
	sensorID := flag.Int("sensor-id", 0x13, "Sensor ID to transmit")
	temp := flag.Float64("temp", 18.5, "Starting temperature in C")
	humidity := flag.Int("humidity", 60, "Starting humidity percent")
	flag.Parse()

	sim := &simulator{
		interval:    *interval,
		corruptRate: *corruptRate,
		fields: bresser.Fields{
			SensorID:   uint8(*sensorID),
			TempTenths: int(*temp * 10),
			Humidity:   *humidity,
			DirIndex:   10,
			GustTenths: 40,
			AvgTenths:  25,
			RainTenths: 120,
		},
	}

	addr := fmt.Sprintf(":%d", *port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}
	log.Printf("Frame simulator listening on %s, transmitting every %s", addr, *interval)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("Accept error: %v", err)
			continue
		}
		log.Printf("Client connected: %s", conn.RemoteAddr())
		go sim.serve(conn)
	}
}

func (s *simulator) serve(conn net.Conn) {
	defer conn.Close()
	fields := s.fields

	for {
		walk(&fields)
		record, err := buildRecord(fields)
		if err != nil {
			log.Printf("Cannot build frame: %v", err)
			return
		}

		if s.corruptRate > 0 && rand.Float64() < s.corruptRate {
			// Flip one payload bit without fixing its inverted copy,
			// which breaks the parity check on the receiving side.
			record[1+rand.Intn(13)] ^= 1 << rand.Intn(8)
			log.Printf("Transmitting corrupted frame")
		}

		if _, err := conn.Write(record); err != nil {
			log.Printf("Client disconnected: %s", conn.RemoteAddr())
			return
		}
		time.Sleep(s.interval)
	}
}

// buildRecord wraps a frame into the bridge record with plausible
// link-quality bytes.
func buildRecord(f bresser.Fields) ([]byte, error) {
	frame, err := bresser.BuildFrame(f)
	if err != nil {
		return nil, err
	}
	rssi := int8(-60 - rand.Intn(30))
	lqi := byte(rand.Intn(16))
	return append(frame, byte(rssi), lqi), nil
}

// walk nudges each value within its plausible range.
func walk(f *bresser.Fields) {
	f.TempTenths = clamp(f.TempTenths+rand.Intn(5)-2, -300, 450)
	f.Humidity = clamp(f.Humidity+rand.Intn(3)-1, 10, 99)
	f.DirIndex = (f.DirIndex + rand.Intn(3) - 1 + 16) % 16
	f.AvgTenths = clamp(f.AvgTenths+rand.Intn(7)-3, 0, 300)
	f.GustTenths = clamp(f.AvgTenths+rand.Intn(40), 0, 999)
	if rand.Intn(20) == 0 {
		f.RainTenths = clamp(f.RainTenths+1, 0, 999)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
