package history

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/bresserlog/bresserlog/internal/types"
)

func openTestStore(t *testing.T, capacity int) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path, capacity)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func measurement(rainMM float64) types.Measurement {
	return types.Measurement{
		SensorID:    0x13,
		TempC:       10.5,
		Humidity:    89,
		WindDirDeg:  225.0,
		WindAvgMS:   1.1,
		WindGustMS:  2.0,
		RainMM:      rainMM,
		PressureHPa: 1013.2,
	}
}

func TestAppendPeekConfirm(t *testing.T) {
	s, _ := openTestStore(t, 0)
	taken := time.Date(2022, time.March, 5, 12, 10, 0, 0, time.UTC)

	if err := s.Append(measurement(0), taken); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(measurement(0), taken.Add(10*time.Minute)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if n, _ := s.Count(); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}

	entry, id, ok := s.PeekNext()
	if !ok {
		t.Fatal("PeekNext returned empty on populated buffer")
	}
	if !entry.Taken.Equal(taken) {
		t.Errorf("peeked entry time = %v, want %v (oldest first)", entry.Taken, taken)
	}
	if entry.Measurement.Humidity != 89 {
		t.Errorf("humidity = %d, want 89", entry.Measurement.Humidity)
	}

	// Peek without confirm must redeliver the same entry.
	again, id2, ok := s.PeekNext()
	if !ok || id2 != id || !again.Taken.Equal(entry.Taken) {
		t.Error("unconfirmed peek was not redelivered")
	}

	if err := s.Confirm(id); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	next, _, ok := s.PeekNext()
	if !ok {
		t.Fatal("second entry missing after confirm")
	}
	if !next.Taken.Equal(taken.Add(10 * time.Minute)) {
		t.Errorf("next entry time = %v, want %v", next.Taken, taken.Add(10*time.Minute))
	}
}

func TestUnconfirmedPeekSurvivesReopen(t *testing.T) {
	s, path := openTestStore(t, 0)
	taken := time.Date(2022, time.March, 5, 12, 10, 0, 0, time.UTC)
	if err := s.Append(measurement(0), taken); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, _, ok := s.PeekNext(); !ok {
		t.Fatal("PeekNext returned empty")
	}
	s.Close()

	reopened, err := Open(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	entry, _, ok := reopened.PeekNext()
	if !ok {
		t.Fatal("entry lost across restart without confirm")
	}
	if !entry.Taken.Equal(taken) {
		t.Errorf("redelivered entry time = %v, want %v", entry.Taken, taken)
	}
}

func TestRainBaselineResets(t *testing.T) {
	s, _ := openTestStore(t, 0)
	day1 := time.Date(2022, time.March, 5, 8, 0, 0, 0, time.UTC)

	steps := []struct {
		name   string
		taken  time.Time
		rainMM float64
		want   float64
	}{
		{"first reading of day sets baseline", day1, 54.4, 0},
		{"later reading is relative to baseline", day1.Add(2 * time.Hour), 57.4, 3.0},
		{"new day resets baseline", day1.Add(24 * time.Hour), 60.0, 0},
		{"counter going backwards resets baseline", day1.Add(25 * time.Hour), 1.2, 0},
		{"increment after backwards reset", day1.Add(26 * time.Hour), 2.2, 1.0},
	}

	for _, st := range steps {
		if err := s.Append(measurement(st.rainMM), st.taken); err != nil {
			t.Fatalf("%s: Append: %v", st.name, err)
		}
		entry, id, ok := s.PeekNext()
		if !ok {
			t.Fatalf("%s: buffer empty", st.name)
		}
		if math.Abs(entry.Measurement.RainMM-st.want) > 1e-9 {
			t.Errorf("%s: stored rain = %v, want %v", st.name, entry.Measurement.RainMM, st.want)
		}
		if err := s.Confirm(id); err != nil {
			t.Fatalf("%s: Confirm: %v", st.name, err)
		}
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	s, _ := openTestStore(t, 3)
	base := time.Date(2022, time.March, 5, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if err := s.Append(measurement(0), base.Add(time.Duration(i)*10*time.Minute)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	if n, _ := s.Count(); n != 3 {
		t.Fatalf("count = %d, want capacity 3", n)
	}
	entry, _, ok := s.PeekNext()
	if !ok {
		t.Fatal("buffer empty")
	}
	if want := base.Add(20 * time.Minute); !entry.Taken.Equal(want) {
		t.Errorf("oldest surviving entry = %v, want %v", entry.Taken, want)
	}
}
