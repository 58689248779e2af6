// Package history persists captured measurements until they are
// uploaded. Entries are read with a peek/confirm cursor: a peeked
// entry is only removed once the upload is confirmed, so an entry
// that was peeked but never confirmed is redelivered after a restart.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bresserlog/bresserlog/internal/log"
	"github.com/bresserlog/bresserlog/internal/types"
	_ "modernc.org/sqlite"
)

// DefaultCapacity bounds the backlog to 20 days of entries at six
// readings an hour.
const DefaultCapacity = 20 * 6 * 24

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at     TEXT    NOT NULL,
	sensor_id    INTEGER NOT NULL,
	temp_c       REAL    NOT NULL,
	humidity     INTEGER NOT NULL,
	wind_dir     REAL    NOT NULL,
	wind_avg     REAL    NOT NULL,
	wind_gust    REAL    NOT NULL,
	rain_mm      REAL    NOT NULL,
	battery_low  INTEGER NOT NULL,
	pressure_hpa REAL    NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is a SQLite-backed history buffer.
type Store struct {
	db       *sql.DB
	capacity int
}

// Open opens (creating if necessary) the history database at path.
func Open(path string, capacity int) (*Store, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db, capacity: capacity}, nil
}

// Append stores a measurement taken at the given time. The rain gauge
// reports a counter that accumulates across days, so the stored value
// is normalized against the first reading of the calendar day; the
// baseline resets when the day changes or the counter moves backwards.
// When the buffer is full the oldest entry is evicted.
func (s *Store) Append(m types.Measurement, taken time.Time) error {
	base, err := s.rainBaseline(taken, m.RainMM)
	if err != nil {
		return err
	}
	m.RainMM -= base

	count, err := s.Count()
	if err != nil {
		return err
	}
	if count >= s.capacity {
		if _, err := s.db.Exec(
			`DELETE FROM history WHERE id = (SELECT MIN(id) FROM history)`); err != nil {
			return fmt.Errorf("failed to evict oldest entry: %w", err)
		}
	}

	_, err = s.db.Exec(`
		INSERT INTO history (taken_at, sensor_id, temp_c, humidity, wind_dir,
		                     wind_avg, wind_gust, rain_mm, battery_low, pressure_hpa)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		taken.Format(time.RFC3339), m.SensorID, m.TempC, m.Humidity, m.WindDirDeg,
		m.WindAvgMS, m.WindGustMS, m.RainMM, boolToInt(m.BatteryLow), m.PressureHPa)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// rainBaseline returns the cumulative-rain baseline for the day of
// taken, resetting it first if the day changed or the counter dropped.
func (s *Store) rainBaseline(taken time.Time, rainMM float64) (float64, error) {
	day := taken.Format("2006-01-02")

	var storedDay string
	var base float64
	err := s.db.QueryRow(
		`SELECT value FROM meta WHERE key = 'rain_day'`).Scan(&storedDay)
	if err == nil {
		err = s.db.QueryRow(
			`SELECT value FROM meta WHERE key = 'rain_base'`).Scan(&base)
	}

	if err == sql.ErrNoRows || storedDay != day || rainMM < base {
		log.Debugf("resetting rain baseline for %s at %.2f mm", day, rainMM)
		if err := s.setMeta("rain_day", day); err != nil {
			return 0, err
		}
		if err := s.setMeta("rain_base", fmt.Sprintf("%g", rainMM)); err != nil {
			return 0, err
		}
		return rainMM, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read rain baseline: %w", err)
	}
	return base, nil
}

func (s *Store) setMeta(key, value string) error {
	if _, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
		return fmt.Errorf("failed to write meta %s: %w", key, err)
	}
	return nil
}

// PeekNext returns the oldest buffered entry and its confirm token
// without removing it. The third return is false when the buffer is
// empty.
func (s *Store) PeekNext() (types.HistoryEntry, int64, bool) {
	var (
		entry      types.HistoryEntry
		id         int64
		takenAt    string
		batteryLow int
	)
	err := s.db.QueryRow(`
		SELECT id, taken_at, sensor_id, temp_c, humidity, wind_dir,
		       wind_avg, wind_gust, rain_mm, battery_low, pressure_hpa
		FROM history ORDER BY id LIMIT 1`).Scan(
		&id, &takenAt, &entry.Measurement.SensorID, &entry.Measurement.TempC,
		&entry.Measurement.Humidity, &entry.Measurement.WindDirDeg,
		&entry.Measurement.WindAvgMS, &entry.Measurement.WindGustMS,
		&entry.Measurement.RainMM, &batteryLow, &entry.Measurement.PressureHPa)
	if err == sql.ErrNoRows {
		return entry, 0, false
	}
	if err != nil {
		log.Errorf("failed to peek history entry: %v", err)
		return entry, 0, false
	}

	entry.Measurement.BatteryLow = batteryLow != 0
	entry.Taken, err = time.Parse(time.RFC3339, takenAt)
	if err != nil {
		log.Errorf("corrupt timestamp in history entry %d: %v", id, err)
		return entry, 0, false
	}
	return entry, id, true
}

// Confirm removes the entry previously returned by PeekNext. Entries
// never confirmed are redelivered by the next PeekNext, including
// across restarts.
func (s *Store) Confirm(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM history WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to confirm history entry %d: %w", id, err)
	}
	return nil
}

// Count returns the number of buffered entries.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history entries: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
