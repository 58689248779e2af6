// Package sheets uploads history entries to a Google Sheets
// spreadsheet, one row per entry. Token acquisition is delegated to a
// TokenGate; this package only consumes a ready bearer token.
package sheets

import (
	"fmt"

	"github.com/bresserlog/bresserlog/internal/types"
)

// Cell is one labeled value of an upload row. Numeric cells are sent
// as numbers so the spreadsheet can chart them directly.
type Cell struct {
	Name    string
	Value   string
	Numeric bool
}

// Row is the fixed 10-cell shape of an uploaded entry.
type Row []Cell

// BuildRow formats a history entry into its upload row. Timestamps use
// a two-digit year, matching the sheet's existing data.
func BuildRow(e types.HistoryEntry) Row {
	t := e.Taken
	m := e.Measurement
	return Row{
		{Name: "date", Value: fmt.Sprintf("%02d/%02d/%02d", t.Year()%100, int(t.Month()), t.Day())},
		{Name: "time", Value: fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())},
		{Name: "timestamp", Value: fmt.Sprintf("%02d-%02d-%02dT%02d:%02d:%02dZ",
			t.Year()%100, int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())},
		{Name: "humidity", Value: fmt.Sprintf("%.2f", float64(m.Humidity)), Numeric: true},
		{Name: "rain", Value: fmt.Sprintf("%.3f", m.RainMM), Numeric: true},
		{Name: "temperature", Value: fmt.Sprintf("%.2f", m.TempC), Numeric: true},
		{Name: "wind", Value: fmt.Sprintf("%.2f", m.WindAvgMS), Numeric: true},
		{Name: "gust", Value: fmt.Sprintf("%.2f", m.WindGustMS), Numeric: true},
		{Name: "direction", Value: fmt.Sprintf("%.2f", m.WindDirDeg), Numeric: true},
		{Name: "pressure", Value: fmt.Sprintf("%.2f", m.PressureHPa), Numeric: true},
	}
}
