package receiver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/bresserlog/bresserlog/internal/bresser"
)

// serveRecords accepts one connection and writes the given records.
func serveRecords(t *testing.T, records [][]byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for _, r := range records {
			if _, err := conn.Write(r); err != nil {
				return
			}
		}
		// Hold the connection open so reads time out instead of
		// triggering a reconnect.
		time.Sleep(5 * time.Second)
	}()
	return ln.Addr().String()
}

func testRecord(t *testing.T, rssi int8, lqi byte) []byte {
	t.Helper()
	frame, err := bresser.BuildFrame(bresser.Fields{
		SensorID:   0x13,
		TempTenths: 105,
		Humidity:   89,
		DirIndex:   10,
		GustTenths: 20,
		AvgTenths:  11,
		RainTenths: 544,
	})
	if err != nil {
		t.Fatal(err)
	}
	return append(frame, byte(rssi), lqi)
}

func TestNetworkSourceReceive(t *testing.T) {
	record := testRecord(t, -72, 11)
	addr := serveRecords(t, [][]byte{record})
	host, port, _ := net.SplitHostPort(addr)

	src, err := NewNetworkSource(context.Background(), host, port, time.Second)
	if err != nil {
		t.Fatalf("NewNetworkSource: %v", err)
	}
	defer src.Close()

	buf := make([]byte, bresser.FrameSize)
	if status := src.Receive(buf); status != StatusOK {
		t.Fatalf("status = %s, want ok", status)
	}
	if buf[0] != bresser.SyncByte {
		t.Errorf("frame does not start with sync byte: 0x%02X", buf[0])
	}
	if _, err := bresser.Decode(buf[1:]); err != nil {
		t.Errorf("received frame does not decode: %v", err)
	}
	if src.RSSI() != -72 {
		t.Errorf("RSSI = %.1f, want -72", src.RSSI())
	}
	if src.LQI() != 11 {
		t.Errorf("LQI = %d, want 11", src.LQI())
	}
}

func TestNetworkSourceTimeout(t *testing.T) {
	addr := serveRecords(t, nil)
	host, port, _ := net.SplitHostPort(addr)

	src, err := NewNetworkSource(context.Background(), host, port, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewNetworkSource: %v", err)
	}
	defer src.Close()

	buf := make([]byte, bresser.FrameSize)
	if status := src.Receive(buf); status != StatusTimeout {
		t.Errorf("status = %s, want timeout", status)
	}
}

func TestNetworkSourceRequiresAddress(t *testing.T) {
	if _, err := NewNetworkSource(context.Background(), "", "", 0); err == nil {
		t.Error("expected error for missing address")
	}
}
